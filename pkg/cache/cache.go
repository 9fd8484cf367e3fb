// Copyright 2020-2022 The MGC Authors.
//
// This program is free software: you can redistribute it and/or modify
// it under the terms of the GNU General Public License as published by
// the Free Software Foundation; version 2.
//
// This program is distributed in the hope that it will be useful,
// but WITHOUT ANY WARRANTY; without even the implied warranty of
// MERCHANTABILITY or FITNESS FOR A PARTICULAR PURPOSE.  See the
// GNU General Public License for more details.
//
// You should have received a copy of the GNU General Public License
// along with this program.  If not, see <https://www.gnu.org/licenses/>.

// Package cache holds decoded media: images and video frames keyed
// by (path, frame, color space), and full decoded audio tracks at
// the engine sample rate.
package cache

import (
	"context"
	"errors"
	"fmt"
	"image"
	"strconv"
	"sync"

	"mgc/pkg/log"

	"golang.org/x/crypto/blake2b"
)

// ErrNoLoader no plugin accepted the request.
var ErrNoLoader = errors.New("no plugin accepts the request")

// RequestKind load request variant.
type RequestKind uint8

// Load request kinds.
const (
	RequestImage RequestKind = iota
	RequestVideoFrame
	RequestAudio
)

// LoadRequest asks the first accepting plugin for decoded media.
type LoadRequest struct {
	Kind RequestKind
	Path string

	// Video frames.
	Frame         int64
	Width, Height int
	InColorSpace  string
	OutColorSpace string

	// Audio.
	SampleRate int
}

// Key returns the content-addressed cache key.
func (r LoadRequest) Key() Key {
	h, _ := blake2b.New256(nil)
	h.Write([]byte(r.Path))
	h.Write([]byte{0, byte(r.Kind)})
	h.Write([]byte(strconv.FormatInt(r.Frame, 10)))
	h.Write([]byte{0})
	h.Write([]byte(r.InColorSpace))
	h.Write([]byte{0})
	h.Write([]byte(r.OutColorSpace))

	var key Key
	copy(key[:], h.Sum(nil))
	return key
}

// Key content hash.
type Key [32]byte

// Result decoded media.
type Result struct {
	Image   *image.RGBA
	Samples []float32 // Interleaved stereo at the engine rate.
}

// LoadPlugin decodes media. Plugins are asked in registration order,
// the first plugin accepting a request serves it.
type LoadPlugin interface {
	Accepts(req LoadRequest) bool
	Load(ctx context.Context, req LoadRequest) (*Result, error)
}

// Manager is the internally-synchronized load cache.
type Manager struct {
	mu      sync.Mutex
	images  map[Key]*image.RGBA
	audio   map[Key][]float32
	loading map[Key]chan struct{}

	plugins []LoadPlugin
	paths   map[string][]Key // For file-change invalidation.

	log        *log.Logger
	sampleRate int
}

// NewManager returns a cache manager.
func NewManager(sampleRate int, logger *log.Logger) *Manager {
	return &Manager{
		images:     map[Key]*image.RGBA{},
		audio:      map[Key][]float32{},
		loading:    map[Key]chan struct{}{},
		paths:      map[string][]Key{},
		log:        logger,
		sampleRate: sampleRate,
	}
}

// RegisterPlugin appends a load plugin. Order matters.
func (m *Manager) RegisterPlugin(p LoadPlugin) {
	m.mu.Lock()
	m.plugins = append(m.plugins, p)
	m.mu.Unlock()
}

func (m *Manager) plugin(req LoadRequest) (LoadPlugin, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	for _, p := range m.plugins {
		if p.Accepts(req) {
			return p, nil
		}
	}
	return nil, fmt.Errorf("%w: %v", ErrNoLoader, req.Path)
}

// Image returns a decoded image or video frame, loading it through
// the first accepting plugin on a miss. Loading may block on I/O.
func (m *Manager) Image(ctx context.Context, req LoadRequest) (*image.RGBA, error) {
	key := req.Key()

	m.mu.Lock()
	if img, exist := m.images[key]; exist {
		m.mu.Unlock()
		return img, nil
	}
	m.mu.Unlock()

	plugin, err := m.plugin(req)
	if err != nil {
		return nil, err
	}

	result, err := plugin.Load(ctx, req)
	if err != nil {
		return nil, fmt.Errorf("could not load %v: %w", req.Path, err)
	}
	if result.Image == nil {
		return nil, fmt.Errorf("plugin returned no image for %v", req.Path)
	}

	m.mu.Lock()
	m.images[key] = result.Image
	m.paths[req.Path] = append(m.paths[req.Path], key)
	m.mu.Unlock()

	return result.Image, nil
}

// PreloadAudio decodes an audio track on a background worker.
// Duplicate requests while a decode is in flight are ignored.
func (m *Manager) PreloadAudio(req LoadRequest) {
	req.SampleRate = m.sampleRate
	key := req.Key()

	m.mu.Lock()
	if _, exist := m.audio[key]; exist {
		m.mu.Unlock()
		return
	}
	if _, inFlight := m.loading[key]; inFlight {
		m.mu.Unlock()
		return
	}
	done := make(chan struct{})
	m.loading[key] = done
	m.mu.Unlock()

	go func() {
		defer close(done)
		if _, err := m.loadAudio(req, key); err != nil {
			m.log.Error().Src("cache").Msgf("could not load audio: %v", err)
		}
	}()
}

// Audio returns a decoded audio track if available. The mixer treats
// missing tracks as silence.
func (m *Manager) Audio(req LoadRequest) ([]float32, bool) {
	req.SampleRate = m.sampleRate

	m.mu.Lock()
	samples, exist := m.audio[req.Key()]
	m.mu.Unlock()
	return samples, exist
}

// AudioSync returns a decoded audio track, blocking on a decode in
// flight or performing one. Used by the offline export path.
func (m *Manager) AudioSync(req LoadRequest) ([]float32, error) {
	req.SampleRate = m.sampleRate
	key := req.Key()

	m.mu.Lock()
	if samples, exist := m.audio[key]; exist {
		m.mu.Unlock()
		return samples, nil
	}
	inFlight := m.loading[key]
	m.mu.Unlock()

	if inFlight != nil {
		<-inFlight
		m.mu.Lock()
		samples, exist := m.audio[key]
		m.mu.Unlock()
		if !exist {
			return nil, fmt.Errorf("audio decode failed: %v", req.Path)
		}
		return samples, nil
	}

	return m.loadAudio(req, key)
}

func (m *Manager) loadAudio(req LoadRequest, key Key) ([]float32, error) {
	// Failed decodes must clear the in-flight marker so a later
	// request can retry.
	defer func() {
		m.mu.Lock()
		delete(m.loading, key)
		m.mu.Unlock()
	}()

	plugin, err := m.plugin(req)
	if err != nil {
		return nil, err
	}
	result, err := plugin.Load(context.Background(), req)
	if err != nil {
		return nil, fmt.Errorf("could not load %v: %w", req.Path, err)
	}

	m.mu.Lock()
	m.audio[key] = result.Samples
	m.paths[req.Path] = append(m.paths[req.Path], key)
	m.mu.Unlock()

	return result.Samples, nil
}

// Invalidate drops all entries backed by a path.
func (m *Manager) Invalidate(path string) {
	m.mu.Lock()
	for _, key := range m.paths[path] {
		delete(m.images, key)
		delete(m.audio, key)
	}
	delete(m.paths, path)
	m.mu.Unlock()
}

// Conform expands mono to stereo, truncates extra channels to the
// first two, and linearly resamples to the target rate.
func Conform(samples []float32, channels, rate, targetRate int) []float32 {
	if channels <= 0 || rate <= 0 {
		return nil
	}

	frames := len(samples) / channels
	stereo := make([]float32, frames*2)
	for i := 0; i < frames; i++ {
		left := samples[i*channels]
		right := left
		if channels >= 2 {
			right = samples[i*channels+1]
		}
		stereo[i*2] = left
		stereo[i*2+1] = right
	}

	if rate == targetRate {
		return stereo
	}

	outFrames := int(int64(frames) * int64(targetRate) / int64(rate))
	out := make([]float32, outFrames*2)
	for i := 0; i < outFrames; i++ {
		pos := float64(i) * float64(rate) / float64(targetRate)
		i0 := int(pos)
		frac := float32(pos - float64(i0))
		i1 := i0 + 1
		if i1 >= frames {
			i1 = frames - 1
		}
		for ch := 0; ch < 2; ch++ {
			a := stereo[i0*2+ch]
			b := stereo[i1*2+ch]
			out[i*2+ch] = a + (b-a)*frac
		}
	}
	return out
}

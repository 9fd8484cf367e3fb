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

package audio

import (
	"encoding/binary"
	"math"
	"sync"

	"github.com/ebitengine/oto/v3"
)

// Device plays the ring buffer on the system audio device. The
// device callback only touches the ring.
type Device struct {
	ctx    *oto.Context
	player *oto.Player

	mutex   sync.Mutex
	started bool
}

// NewDevice opens the audio device at the engine sample rate.
func NewDevice(sampleRate int, ring *Ring) (*Device, error) {
	op := &oto.NewContextOptions{
		SampleRate:   sampleRate,
		ChannelCount: 2,
		Format:       oto.FormatFloat32LE,
	}

	ctx, ready, err := oto.NewContext(op)
	if err != nil {
		return nil, err
	}
	<-ready

	d := &Device{ctx: ctx}
	d.player = ctx.NewPlayer(&ringReader{ring: ring})
	return d, nil
}

// Start starts playback.
func (d *Device) Start() {
	d.mutex.Lock()
	defer d.mutex.Unlock()

	if !d.started && d.player != nil {
		d.player.Play()
		d.started = true
	}
}

// Close stops playback and releases the player.
func (d *Device) Close() {
	d.mutex.Lock()
	defer d.mutex.Unlock()

	if d.player != nil {
		d.player.Close()
		d.player = nil
		d.started = false
	}
}

// ringReader adapts the ring to the io.Reader the player pulls from.
// Underruns read as silence.
type ringReader struct {
	ring      *Ring
	sampleBuf []float32
}

func (r *ringReader) Read(p []byte) (int, error) {
	numSamples := len(p) / 4

	if len(r.sampleBuf) < numSamples {
		r.sampleBuf = make([]float32, numSamples)
	}
	samples := r.sampleBuf[:numSamples]

	n := r.ring.Read(samples)
	for i := n; i < numSamples; i++ {
		samples[i] = 0
	}

	for i, s := range samples {
		binary.LittleEndian.PutUint32(p[i*4:], math.Float32bits(s))
	}
	return numSamples * 4, nil
}

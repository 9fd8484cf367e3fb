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
	"math"

	"mgc/pkg/cache"
	"mgc/pkg/project"
	"mgc/pkg/property"
)

// Mixer mixes the composition's audio clips at sample granularity.
// Audio mixing is single-composition, nested composition clips do
// not contribute.
type Mixer struct {
	Cache *cache.Manager
	Props *property.Registry

	SampleRate int
}

// Mix renders interleaved stereo samples for the half-open sample
// range [startSample, startSample+frames). Missing or still-loading
// audio mixes as silence.
func (m *Mixer) Mix(proj *project.Project, comp *project.Composition, startSample int64, frames int) []float32 {
	out := make([]float32, frames*2)
	if comp == nil {
		return out
	}

	root, err := proj.Node(comp.RootTrackID)
	if err != nil {
		return out
	}
	m.mixTrack(proj, comp, root, startSample, out)
	return out
}

func (m *Mixer) mixTrack(
	proj *project.Project,
	comp *project.Composition,
	track *project.Node,
	startSample int64,
	out []float32,
) {
	if !track.Visible {
		return
	}
	for _, childID := range track.Children {
		child, err := proj.Node(childID)
		if err != nil {
			continue
		}
		switch child.Kind {
		case project.NodeTrack:
			m.mixTrack(proj, comp, child, startSample, out)
		case project.NodeClip:
			if child.ClipKind == project.ClipAudio && child.Visible {
				m.mixClip(proj, comp, child, startSample, out)
			}
		}
	}
}

func (m *Mixer) mixClip(
	proj *project.Project,
	comp *project.Composition,
	clip *project.Node,
	startSample int64,
	out []float32,
) {
	path := m.clipPath(proj, clip)
	if path == "" {
		return
	}

	samples, exist := m.Cache.Audio(cache.LoadRequest{
		Kind: cache.RequestAudio,
		Path: path,
	})
	if !exist || len(samples) == 0 {
		return
	}

	rate := float64(m.SampleRate)
	clipStart := int64(float64(clip.InFrame) / comp.FPS * rate)
	clipEnd := int64(float64(clip.OutFrame+1) / comp.FPS * rate)

	sourceFPS := clip.FPS
	if sourceFPS == 0 {
		sourceFPS = comp.FPS
	}
	sourceOffset := int64(float64(clip.SourceBeginFrame) / sourceFPS * rate)

	frames := len(out) / 2

	// Per-frame property evaluation, cached across the chunk.
	var lastFrame int64 = -1
	volume, pan := 1.0, 0.0

	for i := 0; i < frames; i++ {
		pos := startSample + int64(i)
		if pos < clipStart || pos >= clipEnd {
			continue
		}

		frameNumber := int64(float64(pos) / rate * comp.FPS)
		if frameNumber != lastFrame {
			t := float64(clip.SourceBeginFrame)/sourceFPS +
				float64(frameNumber-clip.InFrame)/comp.FPS
			volume = m.Props.Resolve(clip.Prop("volume"), t, comp.FPS).Float() / 100
			pan = m.Props.Resolve(clip.Prop("pan"), t, comp.FPS).Float()
			pan = math.Min(math.Max(pan, -1), 1)
			lastFrame = frameNumber
		}
		if volume <= 0 {
			continue
		}

		src := (pos - clipStart + sourceOffset) * 2
		if src < 0 || int(src)+1 >= len(samples) {
			continue
		}

		left := float64(samples[src]) * volume * math.Min(1, 1-pan)
		right := float64(samples[src+1]) * volume * math.Min(1, 1+pan)

		out[i*2] += float32(left)
		out[i*2+1] += float32(right)
	}
}

func (m *Mixer) clipPath(proj *project.Project, clip *project.Node) string {
	if clip.AssetID != "" {
		if asset, err := proj.Asset(clip.AssetID); err == nil {
			return asset.Path
		}
	}
	if p := clip.Prop("file_path"); p != nil {
		return p.Value.Str()
	}
	return ""
}

// Preload kicks off background decodes for every audio clip in the
// composition.
func (m *Mixer) Preload(proj *project.Project, comp *project.Composition) {
	root, err := proj.Node(comp.RootTrackID)
	if err != nil {
		return
	}
	var walk func(track *project.Node)
	walk = func(track *project.Node) {
		for _, childID := range track.Children {
			child, err := proj.Node(childID)
			if err != nil {
				continue
			}
			if child.Kind == project.NodeTrack {
				walk(child)
				continue
			}
			if child.Kind == project.NodeClip && child.ClipKind == project.ClipAudio {
				if path := m.clipPath(proj, child); path != "" {
					m.Cache.PreloadAudio(cache.LoadRequest{
						Kind: cache.RequestAudio,
						Path: path,
					})
				}
			}
		}
	}
	walk(root)
}

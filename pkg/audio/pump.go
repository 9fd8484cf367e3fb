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

	"mgc/pkg/project"
)

const (
	// Chunk cap per pump, in sample frames.
	maxPumpFrames = 16384

	// Scrub preview length.
	scrubPreviewSeconds = 0.05
)

// Pump feeds the ring buffer from the project state. It runs on the
// UI thread, the device callback drains the ring on its own thread.
type Pump struct {
	ring  *Ring
	mixer *Mixer

	proj *project.Project
	comp *project.Composition

	nextWriteSample int64
	playing         bool
}

// NewPump returns a pump over a ring.
func NewPump(ring *Ring, mixer *Mixer) *Pump {
	return &Pump{ring: ring, mixer: mixer}
}

// SetSource sets the composition the pump mixes from.
func (p *Pump) SetSource(proj *project.Project, comp *project.Composition) {
	p.proj = proj
	p.comp = comp
	if comp != nil {
		p.mixer.Preload(proj, comp)
	}
}

// SetPlaying toggles continuous-play mode.
func (p *Pump) SetPlaying(playing bool) {
	p.playing = playing
}

// Reset sets the engine time and pushes a short scrub preview from
// the new position.
func (p *Pump) Reset(time float64) {
	rate := float64(p.mixer.SampleRate)
	samplePos := int64(math.Round(time * rate))

	p.ring.Clear()

	frames := int(scrubPreviewSeconds * rate)
	chunk := p.mixer.Mix(p.proj, p.comp, samplePos, frames)
	p.ring.Write(chunk)

	p.nextWriteSample = samplePos + int64(frames)
}

// Pump mixes the next chunk if the device buffer has room. Chunks
// are capped at 16384 frames.
func (p *Pump) Pump() {
	if !p.playing {
		return
	}

	free := p.ring.Free() / 2
	if free == 0 {
		return
	}
	frames := free
	if frames > maxPumpFrames {
		frames = maxPumpFrames
	}

	chunk := p.mixer.Mix(p.proj, p.comp, p.nextWriteSample, frames)
	p.ring.Write(chunk)
	p.nextWriteSample += int64(frames)
}

// Render mixes offline, used by the exporter to pre-render the audio
// track for muxing.
func (p *Pump) Render(startTime, duration float64) []float32 {
	rate := float64(p.mixer.SampleRate)
	start := int64(math.Round(startTime * rate))
	frames := int(math.Round(duration * rate))
	if frames <= 0 {
		return nil
	}
	return p.mixer.Mix(p.proj, p.comp, start, frames)
}

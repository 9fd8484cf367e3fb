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

// Package audioload decodes full audio tracks through ffmpeg and
// conforms them to interleaved stereo at the engine sample rate.
package audioload

import (
	"context"
	"fmt"

	"mgc"
	"mgc/pkg/cache"
	"mgc/pkg/ffmpeg"
)

func init() { //nolint:gochecknoinits
	mgc.RegisterLoadPlugin(func(app *mgc.App) cache.LoadPlugin {
		return &plugin{ffmpeg: ffmpeg.New(app.Env.FFmpegBin)}
	})
}

type plugin struct {
	ffmpeg *ffmpeg.FFMPEG
}

// Accepts implements cache.LoadPlugin.
func (p *plugin) Accepts(req cache.LoadRequest) bool {
	return req.Kind == cache.RequestAudio
}

// Load implements cache.LoadPlugin.
func (p *plugin) Load(_ context.Context, req cache.LoadRequest) (*cache.Result, error) {
	samples, channels, rate, err := p.ffmpeg.DecodeAudio(req.Path)
	if err != nil {
		return nil, err
	}

	targetRate := req.SampleRate
	if targetRate == 0 {
		return nil, fmt.Errorf("no target sample rate for %v", req.Path)
	}

	return &cache.Result{
		Samples: cache.Conform(samples, channels, rate, targetRate),
	}, nil
}

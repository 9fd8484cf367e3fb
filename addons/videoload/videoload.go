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

// Package videoload decodes single video frames through ffmpeg.
package videoload

import (
	"context"
	"fmt"

	"mgc"
	"mgc/pkg/cache"
	"mgc/pkg/ffmpeg"
	"mgc/pkg/project"
)

func init() { //nolint:gochecknoinits
	mgc.RegisterLoadPlugin(func(app *mgc.App) cache.LoadPlugin {
		return &plugin{
			ffmpeg: ffmpeg.New(app.Env.FFmpegBin),
			meta:   app.Meta,
		}
	})
}

type plugin struct {
	ffmpeg *ffmpeg.FFMPEG
	meta   *cache.MetaDB
}

// Accepts implements cache.LoadPlugin.
func (p *plugin) Accepts(req cache.LoadRequest) bool {
	return req.Kind == cache.RequestVideoFrame
}

// Load implements cache.LoadPlugin. The frame dimensions come from
// the request, falling back to a cached or fresh probe.
func (p *plugin) Load(_ context.Context, req cache.LoadRequest) (*cache.Result, error) {
	w, h := req.Width, req.Height
	if w == 0 || h == 0 {
		meta, err := p.probe(req.Path)
		if err != nil {
			return nil, err
		}
		w, h = meta.Width, meta.Height
	}
	if w == 0 || h == 0 {
		return nil, fmt.Errorf("no video stream in %v", req.Path)
	}

	img, err := p.ffmpeg.ExtractFrame(
		req.Path, req.Frame, w, h, req.InColorSpace, req.OutColorSpace)
	if err != nil {
		return nil, err
	}
	return &cache.Result{Image: img}, nil
}

func (p *plugin) probe(path string) (*project.MediaMeta, error) {
	if p.meta != nil {
		if meta, exist := p.meta.Get(path); exist {
			return meta, nil
		}
	}

	probe, err := p.ffmpeg.Probe(path)
	if err != nil {
		return nil, fmt.Errorf("probe %v: %w", path, err)
	}
	meta := &project.MediaMeta{
		Duration: probe.Duration,
		FPS:      probe.FPS,
		Width:    probe.Width,
		Height:   probe.Height,
	}

	if p.meta != nil {
		p.meta.Set(path, *meta) //nolint:errcheck
	}
	return meta, nil
}

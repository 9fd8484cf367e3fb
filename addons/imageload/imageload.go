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

// Package imageload decodes still images for the media cache.
package imageload

import (
	"context"
	"fmt"
	"image"
	"image/draw"
	"os"
	"path/filepath"
	"strings"

	_ "image/jpeg" // jpeg decoder.
	_ "image/png"  // png decoder.

	"mgc"
	"mgc/pkg/cache"
)

func init() { //nolint:gochecknoinits
	mgc.RegisterLoadPlugin(func(app *mgc.App) cache.LoadPlugin {
		return &plugin{watch: app.Watcher.Watch}
	})
}

type plugin struct {
	watch func(string)
}

var extensions = map[string]bool{
	".png":  true,
	".jpg":  true,
	".jpeg": true,
}

// Accepts implements cache.LoadPlugin.
func (p *plugin) Accepts(req cache.LoadRequest) bool {
	if req.Kind != cache.RequestImage {
		return false
	}
	return extensions[strings.ToLower(filepath.Ext(req.Path))]
}

// Load implements cache.LoadPlugin.
func (p *plugin) Load(_ context.Context, req cache.LoadRequest) (*cache.Result, error) {
	file, err := os.Open(req.Path)
	if err != nil {
		return nil, fmt.Errorf("could not open image: %w", err)
	}
	defer file.Close()

	decoded, _, err := image.Decode(file)
	if err != nil {
		return nil, fmt.Errorf("could not decode image: %w", err)
	}

	rgba, ok := decoded.(*image.RGBA)
	if !ok {
		rgba = image.NewRGBA(decoded.Bounds())
		draw.Draw(rgba, rgba.Bounds(), decoded, decoded.Bounds().Min, draw.Src)
	}

	if p.watch != nil {
		p.watch(req.Path)
	}
	return &cache.Result{Image: rgba}, nil
}

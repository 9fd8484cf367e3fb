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

package eval

import (
	"fmt"
	"math"

	"mgc/pkg/cache"
	"mgc/pkg/project"
	"mgc/pkg/render"
	"mgc/pkg/shape"
)

// evalTime maps the composition frame into clip-local source-media
// time. Keyframes and expressions on the clip evaluate in this
// timebase.
func (ctx *Context) evalTime(clip *project.Node) float64 {
	sourceFPS := clip.FPS
	if sourceFPS == 0 {
		sourceFPS = ctx.Comp.FPS
	}
	return float64(clip.SourceBeginFrame)/sourceFPS +
		float64(ctx.FrameNumber-clip.InFrame)/ctx.Comp.FPS
}

// evaluateClip dispatches a clip pin by clip kind.
func (ctx *Context) evaluateClip(clip *project.Node, pin string) (Value, error) {
	if ctx.FrameNumber < clip.InFrame || ctx.FrameNumber > clip.OutFrame {
		return None, nil
	}

	t := ctx.evalTime(clip)

	switch {
	case clip.ClipKind == project.ClipText && pin == "shape_out":
		return ctx.evaluateTextClip(clip, t)

	case clip.ClipKind == project.ClipShape && pin == "shape_out":
		path := ctx.resolveAt(clip, "path", t).Str()
		return ShapeValue(shape.NewPath(path)), nil

	case clip.ClipKind == project.ClipImage && pin == "image_out":
		return ctx.evaluateImageClip(clip, t)

	case clip.ClipKind == project.ClipVideo && pin == "image_out":
		return ctx.evaluateVideoClip(clip, t)

	case clip.ClipKind == project.ClipSkSL && pin == "image_out":
		return ctx.evaluateShaderClip(clip, t)

	case clip.ClipKind == project.ClipComposition && pin == "image_out":
		return ctx.evaluateCompositionClip(clip, t)
	}
	return None, nil
}

func (ctx *Context) evaluateTextClip(clip *project.Node, t float64) (Value, error) {
	text := ctx.resolveAt(clip, "text", t).Str()
	family := ctx.resolveAt(clip, "font_family", t).Str()
	size := ctx.resolveAt(clip, "size", t).Float()
	if size <= 0 {
		size = 100
	}

	face := ctx.Fonts.Typeface(family)
	data, err := shape.DecomposeText(text, face, size)
	if err != nil {
		return None, fmt.Errorf("decompose text: %w", err)
	}
	return ShapeValue(data), nil
}

// assetPath resolves the clip's backing file: the referenced asset,
// or the file_path property.
func (ctx *Context) assetPath(clip *project.Node, t float64) (string, *project.MediaMeta) {
	if clip.AssetID != "" {
		if asset, err := ctx.Project.Asset(clip.AssetID); err == nil {
			return asset.Path, asset.Meta
		}
	}
	return ctx.resolveAt(clip, "file_path", t).Str(), nil
}

func (ctx *Context) evaluateImageClip(clip *project.Node, t float64) (Value, error) {
	path, _ := ctx.assetPath(clip, t)
	if path == "" {
		return None, nil
	}

	img, err := ctx.Cache.Image(ctx.background(), cache.LoadRequest{
		Kind: cache.RequestImage,
		Path: path,
	})
	if err != nil {
		return None, err
	}
	return ImageValue(&render.CPUImage{Pix: img}), nil
}

func (ctx *Context) evaluateVideoClip(clip *project.Node, t float64) (Value, error) {
	path, meta := ctx.assetPath(clip, t)
	if path == "" {
		return None, nil
	}

	sourceFPS := clip.FPS
	if sourceFPS == 0 && meta != nil {
		sourceFPS = meta.FPS
	}
	if sourceFPS == 0 {
		sourceFPS = ctx.Comp.FPS
	}

	frame := clip.SourceBeginFrame + int64(math.Round(
		float64(ctx.FrameNumber-clip.InFrame)*sourceFPS/ctx.Comp.FPS))
	if frame < 0 {
		return None, fmt.Errorf("negative source frame: %v", frame)
	}

	req := cache.LoadRequest{
		Kind:          cache.RequestVideoFrame,
		Path:          path,
		Frame:         frame,
		InColorSpace:  ctx.resolveAt(clip, "input_color_space", t).Str(),
		OutColorSpace: ctx.resolveAt(clip, "output_color_space", t).Str(),
	}
	if meta != nil {
		req.Width = meta.Width
		req.Height = meta.Height
	}

	img, err := ctx.Cache.Image(ctx.background(), req)
	if err != nil {
		return None, err
	}
	return ImageValue(&render.CPUImage{Pix: img}), nil
}

func (ctx *Context) evaluateShaderClip(clip *project.Node, t float64) (Value, error) {
	shader := ctx.resolveAt(clip, "shader", t).Str()
	w := int(ctx.resolveAt(clip, "width", t).Float())
	h := int(ctx.resolveAt(clip, "height", t).Float())
	if w <= 0 {
		w = ctx.Comp.Width
	}
	if h <= 0 {
		h = ctx.Comp.Height
	}

	img, err := ctx.Renderer.RasterizeShaderLayer(shader, w, h, t, render.Identity())
	if err != nil {
		return None, err
	}
	return ImageValue(img), nil
}

// evaluateCompositionClip renders a nested composition at the mapped
// frame with its own context and layer renderer.
func (ctx *Context) evaluateCompositionClip(clip *project.Node, t float64) (Value, error) {
	sub, err := ctx.Project.Composition(clip.AssetID)
	if err != nil {
		return None, err
	}
	if sub.ID == ctx.Comp.ID {
		return None, fmt.Errorf("composition references itself: %v", sub.ID)
	}

	frame := int64(math.Round(t * sub.FPS))
	if frame < 0 {
		frame = 0
	}

	renderer := ctx.NewRenderer(sub.Width, sub.Height)
	subCtx := ctx.subContext(sub, frame, renderer)

	img, err := EvaluateComposition(subCtx)
	if err != nil {
		return None, err
	}
	return ImageValue(img), nil
}

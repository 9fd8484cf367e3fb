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
	"image"
	"sync"

	"mgc/pkg/project"
	"mgc/pkg/property"
	"mgc/pkg/render"
)

// EffectHandler processes an image. Properties arrive resolved, with
// u_time injected at the context time.
type EffectHandler func(img render.Image, props map[string]property.Value) (render.Image, error)

// EffectRegistry maps effect type ids to handlers.
type EffectRegistry struct {
	mu       sync.RWMutex
	handlers map[string]EffectHandler
}

// NewEffectRegistry returns a registry with the built-in
// effects registered.
func NewEffectRegistry() *EffectRegistry {
	r := &EffectRegistry{handlers: map[string]EffectHandler{}}
	r.Register("effect.blur", blurEffect)
	r.Register("effect.drop_shadow", dropShadowEffect)
	return r
}

// Register adds or replaces a handler.
func (r *EffectRegistry) Register(typeID string, h EffectHandler) {
	r.mu.Lock()
	r.handlers[typeID] = h
	r.mu.Unlock()
}

// Find returns the handler for a type id, or nil.
func (r *EffectRegistry) Find(typeID string) EffectHandler {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return r.handlers[typeID]
}

// effectEvaluator dispatches effect.* nodes to registered handlers.
// Unknown effects pass the image through unchanged.
type effectEvaluator struct{}

func (effectEvaluator) Evaluate(ctx *Context, node *project.Node, pin string) (Value, error) {
	if pin != "image_out" {
		return None, nil
	}

	in, err := ctx.PullInput(node.ID, "image_in")
	if err != nil {
		return None, err
	}
	if in.Kind != KindImage || in.Image == nil {
		return None, nil
	}

	handler := ctx.Effects.Find(node.TypeID)
	if handler == nil {
		ctx.Log.Warn().Src("eval").Comp(ctx.Comp.ID).
			Msgf("no handler for %v", node.TypeID)
		return in, nil
	}

	props := map[string]property.Value{
		"u_time": property.Number(ctx.Time),
	}
	for name := range node.Properties {
		props[name] = ctx.resolve(node, name)
	}

	img, err := handler(in.Image, props)
	if err != nil {
		return None, err
	}
	return ImageValue(img), nil
}

// blurEffect is a box blur with integer radius.
func blurEffect(img render.Image, props map[string]property.Value) (render.Image, error) {
	radius := int(props["radius"].Float())
	if radius <= 0 {
		return img, nil
	}

	src := img.ToRGBA()
	bounds := src.Bounds()
	w, h := bounds.Dx(), bounds.Dy()

	horizontal := image.NewRGBA(bounds)
	boxPass(src, horizontal, w, h, radius, true)
	out := image.NewRGBA(bounds)
	boxPass(horizontal, out, w, h, radius, false)

	return &render.CPUImage{Pix: out}, nil
}

func boxPass(src, dst *image.RGBA, w, h, radius int, horizontal bool) {
	window := 2*radius + 1
	for y := 0; y < h; y++ {
		for x := 0; x < w; x++ {
			var r, g, b, a int
			for k := -radius; k <= radius; k++ {
				sx, sy := x, y
				if horizontal {
					sx += k
				} else {
					sy += k
				}
				if sx < 0 {
					sx = 0
				} else if sx >= w {
					sx = w - 1
				}
				if sy < 0 {
					sy = 0
				} else if sy >= h {
					sy = h - 1
				}
				i := src.PixOffset(sx, sy)
				r += int(src.Pix[i])
				g += int(src.Pix[i+1])
				b += int(src.Pix[i+2])
				a += int(src.Pix[i+3])
			}
			i := dst.PixOffset(x, y)
			dst.Pix[i] = uint8(r / window)
			dst.Pix[i+1] = uint8(g / window)
			dst.Pix[i+2] = uint8(b / window)
			dst.Pix[i+3] = uint8(a / window)
		}
	}
}

// dropShadowEffect composites an offset alpha-tinted copy behind
// the source.
func dropShadowEffect(img render.Image, props map[string]property.Value) (render.Image, error) {
	ox, oy, _, _ := props["offset"].Components()
	if ox == 0 && oy == 0 {
		ox, oy = 4, 4
	}
	shadowColor := props["color"].Color()
	if props["color"].Kind == property.KindNone {
		shadowColor = property.Color{A: 128}
	}

	src := img.ToRGBA()
	bounds := src.Bounds()
	out := image.NewRGBA(bounds)

	// Shadow pass.
	dx, dy := int(ox), int(oy)
	for y := bounds.Min.Y; y < bounds.Max.Y; y++ {
		for x := bounds.Min.X; x < bounds.Max.X; x++ {
			sx, sy := x-dx, y-dy
			if !image.Pt(sx, sy).In(bounds) {
				continue
			}
			alpha := src.Pix[src.PixOffset(sx, sy)+3]
			if alpha == 0 {
				continue
			}
			scale := uint16(alpha) * uint16(shadowColor.A) / 255
			i := out.PixOffset(x, y)
			out.Pix[i] = uint8(uint16(shadowColor.R) * scale / 255)
			out.Pix[i+1] = uint8(uint16(shadowColor.G) * scale / 255)
			out.Pix[i+2] = uint8(uint16(shadowColor.B) * scale / 255)
			out.Pix[i+3] = uint8(scale)
		}
	}

	// Source over shadow.
	for i := 0; i < len(src.Pix); i += 4 {
		sa := int(src.Pix[i+3])
		if sa == 0 {
			continue
		}
		inv := 255 - sa
		out.Pix[i] = uint8(int(src.Pix[i]) + int(out.Pix[i])*inv/255)
		out.Pix[i+1] = uint8(int(src.Pix[i+1]) + int(out.Pix[i+1])*inv/255)
		out.Pix[i+2] = uint8(int(src.Pix[i+2]) + int(out.Pix[i+2])*inv/255)
		out.Pix[i+3] = uint8(sa + int(out.Pix[i+3])*inv/255)
	}

	return &render.CPUImage{Pix: out}, nil
}

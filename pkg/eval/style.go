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
	"strconv"
	"strings"

	"mgc/pkg/project"
	"mgc/pkg/render"
	"mgc/pkg/shape"
)

// styleEvaluator rasterizes shape data to an image. Terminates
// shape chains.
type styleEvaluator struct{}

func (styleEvaluator) Evaluate(ctx *Context, node *project.Node, pin string) (Value, error) {
	if pin != "image_out" {
		return None, nil
	}

	in, err := ctx.PullInput(node.ID, "shape_in")
	if err != nil {
		return None, err
	}
	if in.Kind != KindShape || in.Shape == nil {
		return None, nil
	}

	style := buildStyleConfig(ctx, node)
	styles := []render.StyleConfig{style}

	var img render.Image
	if in.Shape.Kind == shape.KindGrouped {
		img, err = ctx.Renderer.RasterizeGroupedShapes(in.Shape.Groups, styles, render.Identity())
	} else {
		var effects []render.PathEffect
		if len(style.DashArray) > 0 {
			effects = append(effects, render.PathEffect{
				Kind:      render.EffectDash,
				Intervals: style.DashArray,
				Phase:     style.DashOffset,
			})
		}
		img, err = ctx.Renderer.RasterizeShapeLayer(in.Shape.Path, styles, effects, render.Identity())
	}
	if err != nil {
		return None, err
	}
	return ImageValue(img), nil
}

// buildStyleConfig resolves style-node properties. Opacity is
// premultiplied into the color alpha.
func buildStyleConfig(ctx *Context, node *project.Node) render.StyleConfig {
	color := ctx.resolve(node, "color").Color()
	opacity := ctx.resolve(node, "opacity").Float() / 100
	if opacity < 0 {
		opacity = 0
	}
	if opacity > 1 {
		opacity = 1
	}
	color.A = uint8(float64(color.A)*opacity + 0.5)

	ox, oy, _, _ := ctx.resolve(node, "offset").Components()

	config := render.StyleConfig{
		Kind:   render.StyleFill,
		Color:  color,
		Offset: [2]float64{ox, oy},
	}

	if node.TypeID == "style.stroke" {
		config.Kind = render.StyleStroke
		config.Width = ctx.resolve(node, "width").Float()
		config.Cap = ctx.resolve(node, "cap").Str()
		config.Join = ctx.resolve(node, "join").Str()
		config.MiterLimit = ctx.resolve(node, "miter_limit").Float()
		config.DashArray = parseDashArray(ctx.resolve(node, "dash_array").Str())
		config.DashOffset = ctx.resolve(node, "dash_offset").Float()
	}
	return config
}

// parseDashArray parses a comma-separated interval list.
func parseDashArray(s string) []float64 {
	if strings.TrimSpace(s) == "" {
		return nil
	}
	var out []float64
	for _, part := range strings.Split(s, ",") {
		v, err := strconv.ParseFloat(strings.TrimSpace(part), 64)
		if err != nil {
			return nil
		}
		out = append(out, v)
	}
	return out
}

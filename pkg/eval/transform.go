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
	"mgc/pkg/project"
	"mgc/pkg/render"
)

// transformEvaluator draws the input image through a 2D affine onto
// a fresh layer.
type transformEvaluator struct{}

func (transformEvaluator) Evaluate(ctx *Context, node *project.Node, pin string) (Value, error) {
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

	px, py, _, _ := ctx.resolve(node, "position").Components()
	ax, ay, _, _ := ctx.resolve(node, "anchor").Components()
	sx, sy, _, _ := ctx.resolve(node, "scale").Components()
	rotation := ctx.resolve(node, "rotation").Float()

	opacity := ctx.resolve(node, "opacity").Float() / 100
	if opacity < 0 {
		opacity = 0
	}
	if opacity > 1 {
		opacity = 1
	}

	m := render.Translate(px, py)
	m = m.Mul(render.Rotate(rotation))
	m = m.Mul(render.Scale(sx, sy))
	m = m.Mul(render.Translate(-ax, -ay))

	layer := ctx.NewRenderer(ctx.Comp.Width, ctx.Comp.Height)
	layer.Clear()
	layer.DrawLayer(in.Image, m, opacity)
	return ImageValue(layer.Finalize()), nil
}

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
	"mgc/pkg/shape"
)

// decoratorEvaluator attaches backing shapes to grouped shape data.
// Path shapes pass through unchanged.
type decoratorEvaluator struct{}

func (decoratorEvaluator) Evaluate(ctx *Context, node *project.Node, pin string) (Value, error) {
	in, err := ctx.PullInput(node.ID, "shape_in")
	if err != nil {
		return None, err
	}
	if in.Kind != KindShape {
		return None, nil
	}
	if in.Shape.Kind != shape.KindGrouped || node.TypeID != "decorator.backplate" {
		return in, nil
	}

	data := in.Shape.Clone()
	applyBackplate(ctx, node, data)
	return ShapeValue(data), nil
}

func applyBackplate(ctx *Context, node *project.Node, data *shape.Data) {
	target := ctx.resolve(node, "target").Str()
	shapeKind := shape.DecorationShape(ctx.resolve(node, "shape").Str())
	color := ctx.resolve(node, "color").Color()
	padding := ctx.resolve(node, "padding").Float()
	radius := ctx.resolve(node, "radius").Float()

	pad := func(r shape.Rect) shape.Rect {
		return shape.Rect{
			X: r.X - padding,
			Y: r.Y - padding,
			W: r.W + 2*padding,
			H: r.H + 2*padding,
		}
	}

	decoration := func(bounds shape.Rect) shape.Decoration {
		return shape.Decoration{
			Shape:  shapeKind,
			Bounds: pad(bounds),
			Radius: radius,
			Color:  color,
			Behind: true,
		}
	}

	switch target {
	case "line":
		// One plate per line, attached to the first group of the line.
		for lineIndex, bounds := range data.Lines {
			for i := range data.Groups {
				if data.Groups[i].LineIndex == lineIndex {
					data.Groups[i].Decorations = append(
						data.Groups[i].Decorations, decoration(bounds))
					break
				}
			}
		}
	case "block", "parts":
		// One plate over the global bounds on the first group.
		if len(data.Groups) > 0 {
			data.Groups[0].Decorations = append(
				data.Groups[0].Decorations, decoration(data.Bounds))
		}
	default: // char
		for i := range data.Groups {
			data.Groups[i].Decorations = append(
				data.Groups[i].Decorations, decoration(data.Groups[i].Bounds))
		}
	}
}

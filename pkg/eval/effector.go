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
	"hash/fnv"
	"math"

	"mgc/pkg/project"
	"mgc/pkg/shape"
)

// effectorEvaluator mutates per-group transforms on grouped shape
// data. Path shapes pass through unchanged.
type effectorEvaluator struct{}

func (effectorEvaluator) Evaluate(ctx *Context, node *project.Node, pin string) (Value, error) {
	in, err := ctx.PullInput(node.ID, "shape_in")
	if err != nil {
		return None, err
	}
	if in.Kind != KindShape {
		return None, nil
	}
	if in.Shape.Kind != shape.KindGrouped {
		return in, nil
	}

	data := in.Shape.Clone()
	switch node.TypeID {
	case "effector.transform":
		applyTransformEffector(ctx, node, data)
	case "effector.step_delay":
		applyStepDelay(ctx, node, data)
	case "effector.randomize":
		applyRandomize(ctx, node, data)
	case "effector.opacity":
		applyOpacityEffector(ctx, node, data)
	}
	return ShapeValue(data), nil
}

func applyTransformEffector(ctx *Context, node *project.Node, data *shape.Data) {
	tx, ty, _, _ := ctx.resolve(node, "translate").Components()
	rotation := ctx.resolve(node, "rotation").Float()
	sx, sy, _, _ := ctx.resolve(node, "scale").Components()

	for i := range data.Groups {
		t := &data.Groups[i].Transform
		t.Translate[0] += tx
		t.Translate[1] += ty
		t.Rotate += rotation
		t.Scale[0] *= sx
		t.Scale[1] *= sy
	}
}

// applyStepDelay fades groups in one after another: group i starts
// at i*delay and ramps over duration.
func applyStepDelay(ctx *Context, node *project.Node, data *shape.Data) {
	delay := ctx.resolve(node, "delay").Float()
	duration := ctx.resolve(node, "duration").Float()
	from := ctx.resolve(node, "from_opacity").Float()
	to := ctx.resolve(node, "to_opacity").Float()

	for i := range data.Groups {
		start := float64(i) * delay

		var p float64
		if duration <= 0 {
			if ctx.Time >= start {
				p = 1
			}
		} else {
			p = (ctx.Time - start) / duration
			p = math.Min(math.Max(p, 0), 1)
		}

		opacity := (from + (to-from)*p) / 100
		data.Groups[i].Transform.Opacity *= opacity
	}
}

func applyRandomize(ctx *Context, node *project.Node, data *shape.Data) {
	seed := ctx.resolve(node, "seed").Int()
	amount := ctx.resolve(node, "amount").Float()
	translateRange := ctx.resolve(node, "translate_range").Float()
	rotateRange := ctx.resolve(node, "rotate_range").Float()

	for i := range data.Groups {
		jx := groupJitter(seed, data.Groups[i].Index, 0)
		jy := groupJitter(seed, data.Groups[i].Index, 1)
		jr := groupJitter(seed, data.Groups[i].Index, 2)

		t := &data.Groups[i].Transform
		t.Translate[0] += jx * amount * translateRange
		t.Translate[1] += jy * amount * translateRange
		t.Rotate += jr * amount * rotateRange
	}
}

// groupJitter hashes (seed, index, axis) into a deterministic
// value in [-1, 1].
func groupJitter(seed int64, index, axis int) float64 {
	h := fnv.New64a()
	var buf [17]byte
	for i := 0; i < 8; i++ {
		buf[i] = byte(seed >> (8 * i))
		buf[8+i] = byte(index >> (8 * i))
	}
	buf[16] = byte(axis)
	h.Write(buf[:])
	return float64(h.Sum64()%2000001)/1000000 - 1
}

func applyOpacityEffector(ctx *Context, node *project.Node, data *shape.Data) {
	opacity := ctx.resolve(node, "opacity").Float()
	mode := ctx.resolve(node, "mode").Str()

	for i := range data.Groups {
		t := &data.Groups[i].Transform
		switch mode {
		case "multiply":
			t.Opacity *= opacity
		case "add":
			t.Opacity = math.Min(t.Opacity+opacity, 1)
		default: // set
			t.Opacity = opacity
		}
		t.Opacity = math.Min(math.Max(t.Opacity, 0), 1)
	}
}

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

package render

import (
	"image"
	"testing"

	"mgc/pkg/property"
	"mgc/pkg/shape"

	"github.com/stretchr/testify/require"
)

func newTestRaster(w, h int) *Raster {
	return NewRaster(w, h, shape.NewFontCache("/nonexistent"))
}

func TestParsePath(t *testing.T) {
	t.Run("square", func(t *testing.T) {
		cmds, err := ParsePath("M 10 10 H 90 V 90 H 10 Z")
		require.NoError(t, err)
		require.Equal(t, 5, len(cmds))
		require.Equal(t, OpMove, cmds[0].Op)
		require.Equal(t, [2]float64{90, 10}, cmds[1].Pts[0])
		require.Equal(t, [2]float64{90, 90}, cmds[2].Pts[0])
		require.Equal(t, OpClose, cmds[4].Op)
	})
	t.Run("relative", func(t *testing.T) {
		cmds, err := ParsePath("m 10 10 l 5 0 v 5 z")
		require.NoError(t, err)
		require.Equal(t, [2]float64{15, 10}, cmds[1].Pts[0])
		require.Equal(t, [2]float64{15, 15}, cmds[2].Pts[0])
	})
	t.Run("curves", func(t *testing.T) {
		cmds, err := ParsePath("M 0 0 Q 5 5 10 0 C 15 -5 20 5 25 0 Z")
		require.NoError(t, err)
		require.Equal(t, OpQuad, cmds[1].Op)
		require.Equal(t, OpCube, cmds[2].Op)
	})
	t.Run("negativeNumbers", func(t *testing.T) {
		cmds, err := ParsePath("M-1-2L3-4")
		require.NoError(t, err)
		require.Equal(t, [2]float64{-1, -2}, cmds[0].Pts[0])
		require.Equal(t, [2]float64{3, -4}, cmds[1].Pts[0])
	})
	t.Run("implicitLineTo", func(t *testing.T) {
		cmds, err := ParsePath("M 0 0 10 10 20 20")
		require.NoError(t, err)
		require.Equal(t, 3, len(cmds))
		require.Equal(t, OpLine, cmds[1].Op)
	})
	t.Run("badCommand", func(t *testing.T) {
		_, err := ParsePath("M 0 0 A 1 1 0 0 0 5 5")
		require.Error(t, err)
	})
	t.Run("truncated", func(t *testing.T) {
		_, err := ParsePath("M 0")
		require.Error(t, err)
	})
}

func TestMatrix(t *testing.T) {
	t.Run("identity", func(t *testing.T) {
		x, y := Identity().Apply(3, 4)
		require.Equal(t, 3.0, x)
		require.Equal(t, 4.0, y)
		require.True(t, Identity().IsIdentity())
	})
	t.Run("compose", func(t *testing.T) {
		m := Translate(10, 0).Mul(Scale(2, 2))
		x, y := m.Apply(1, 1)
		require.Equal(t, 12.0, x)
		require.Equal(t, 2.0, y)
	})
	t.Run("rotate", func(t *testing.T) {
		x, y := Rotate(90).Apply(1, 0)
		require.InDelta(t, 0, x, 1e-9)
		require.InDelta(t, 1, y, 1e-9)
	})
	t.Run("invert", func(t *testing.T) {
		m := Translate(3, 4).Mul(Scale(2, 0.5)).Mul(Rotate(30))
		inv := m.Invert()
		x, y := inv.Apply(m.Apply(7, 9))
		require.InDelta(t, 7, x, 1e-9)
		require.InDelta(t, 9, y, 1e-9)
	})
}

func redFill() StyleConfig {
	return StyleConfig{
		Kind:  StyleFill,
		Color: property.Color{R: 255, A: 255},
	}
}

func TestRasterizeShapeLayer(t *testing.T) {
	r := newTestRaster(100, 100)

	img, err := r.RasterizeShapeLayer(
		"M 10 10 H 90 V 90 H 10 Z", []StyleConfig{redFill()}, nil, Identity())
	require.NoError(t, err)

	rgba := img.ToRGBA()

	// Inside is red, outside transparent.
	_, _, _, aIn := rgba.At(50, 50).RGBA()
	require.NotZero(t, aIn)
	rIn, _, _, _ := rgba.At(50, 50).RGBA()
	require.NotZero(t, rIn)

	_, _, _, aOut := rgba.At(5, 5).RGBA()
	require.Zero(t, aOut)
}

func TestRasterizeShapeLayerStroke(t *testing.T) {
	r := newTestRaster(100, 100)

	stroke := StyleConfig{
		Kind:  StyleStroke,
		Color: property.Color{G: 255, A: 255},
		Width: 4,
		Cap:   "round",
		Join:  "round",
	}
	img, err := r.RasterizeShapeLayer(
		"M 10 50 L 90 50", []StyleConfig{stroke}, nil, Identity())
	require.NoError(t, err)

	rgba := img.ToRGBA()
	_, _, _, aOn := rgba.At(50, 50).RGBA()
	require.NotZero(t, aOn)
	_, _, _, aOff := rgba.At(50, 80).RGBA()
	require.Zero(t, aOff)
}

func TestDrawLayerAndFinalize(t *testing.T) {
	t.Run("dimensions", func(t *testing.T) {
		r := newTestRaster(64, 36)
		r.Clear()
		out := r.Finalize()
		require.Equal(t, image.Rect(0, 0, 64, 36), out.Bounds())
	})
	t.Run("scale", func(t *testing.T) {
		r := newTestRaster(64, 36)
		r.SetRenderScale(0.5)
		out := r.Finalize()
		require.Equal(t, image.Rect(0, 0, 32, 18), out.Bounds())
	})
	t.Run("region", func(t *testing.T) {
		r := newTestRaster(64, 36)
		region := image.Rect(10, 10, 30, 20)
		r.SetRegion(&region)
		out := r.Finalize()
		require.Equal(t, image.Rect(0, 0, 20, 10), out.Bounds())
	})
	t.Run("background", func(t *testing.T) {
		r := newTestRaster(8, 8)
		r.Clear()
		bg := NewSolidImage(8, 8, property.Color{R: 10, G: 20, B: 30, A: 255})
		r.DrawLayer(bg, Identity(), 1)

		out := r.Finalize().ToRGBA()
		c := out.RGBAAt(4, 4)
		require.Equal(t, uint8(10), c.R)
		require.Equal(t, uint8(255), c.A)
	})
	t.Run("opacity", func(t *testing.T) {
		r := newTestRaster(8, 8)
		r.Clear()
		white := NewSolidImage(8, 8, property.Color{R: 255, G: 255, B: 255, A: 255})
		r.DrawLayer(white, Identity(), 0.5)

		out := r.Finalize().ToRGBA()
		a := out.RGBAAt(4, 4).A
		require.InDelta(t, 128, float64(a), 2)
	})
	t.Run("translate", func(t *testing.T) {
		r := newTestRaster(16, 16)
		r.Clear()
		dot := NewSolidImage(2, 2, property.Color{R: 255, A: 255})
		r.DrawLayer(dot, Translate(10, 10), 1)

		out := r.Finalize().ToRGBA()
		require.NotZero(t, out.RGBAAt(11, 11).A)
		require.Zero(t, out.RGBAAt(2, 2).A)
	})
}

func TestRasterizeGroupedShapes(t *testing.T) {
	group := shape.Group{
		Path:      "M 10 10 H 30 V 30 H 10 Z",
		Bounds:    shape.Rect{X: 10, Y: 10, W: 20, H: 20},
		Transform: shape.IdentityTransform(),
	}

	t.Run("basic", func(t *testing.T) {
		r := newTestRaster(40, 40)
		img, err := r.RasterizeGroupedShapes(
			[]shape.Group{group}, []StyleConfig{redFill()}, Identity())
		require.NoError(t, err)
		require.NotZero(t, img.ToRGBA().RGBAAt(20, 20).A)
	})
	t.Run("zeroOpacitySkipped", func(t *testing.T) {
		g := group
		g.Transform.Opacity = 0
		r := newTestRaster(40, 40)
		img, err := r.RasterizeGroupedShapes(
			[]shape.Group{g}, []StyleConfig{redFill()}, Identity())
		require.NoError(t, err)
		require.Zero(t, img.ToRGBA().RGBAAt(20, 20).A)
	})
	t.Run("translateMoves", func(t *testing.T) {
		g := group
		g.Transform.Translate = [2]float64{-15, -15}
		r := newTestRaster(40, 40)
		img, err := r.RasterizeGroupedShapes(
			[]shape.Group{g}, []StyleConfig{redFill()}, Identity())
		require.NoError(t, err)
		require.NotZero(t, img.ToRGBA().RGBAAt(5, 5).A)
	})
	t.Run("decorationBehind", func(t *testing.T) {
		g := group
		g.Decorations = []shape.Decoration{{
			Shape:  shape.DecorationRect,
			Bounds: shape.Rect{X: 0, Y: 0, W: 40, H: 40},
			Color:  property.Color{B: 255, A: 255},
			Behind: true,
		}}
		r := newTestRaster(40, 40)
		img, err := r.RasterizeGroupedShapes(
			[]shape.Group{g}, []StyleConfig{redFill()}, Identity())
		require.NoError(t, err)

		// Backplate visible outside the glyph.
		c := img.ToRGBA().RGBAAt(35, 35)
		require.NotZero(t, c.B)
	})
}

func TestPathEffects(t *testing.T) {
	square := "M 0 0 H 10 V 10 H 0 Z"
	cmds, err := ParsePath(square)
	require.NoError(t, err)

	t.Run("trimHalf", func(t *testing.T) {
		out := trimPath(cmds, 0, 0.5)
		require.NotEmpty(t, out)

		var length float64
		var pos [2]float64
		for _, c := range out {
			switch c.Op {
			case OpMove:
				pos = c.Pts[0]
			case OpLine:
				length += segmentLength(pos, c.Pts[0])
				pos = c.Pts[0]
			}
		}
		require.InDelta(t, 20, length, 0.01)
	})
	t.Run("trimEmpty", func(t *testing.T) {
		require.Empty(t, trimPath(cmds, 0.7, 0.3))
	})
	t.Run("discreteDeterministic", func(t *testing.T) {
		a := discretePath(cmds, 2, 1, 42)
		b := discretePath(cmds, 2, 1, 42)
		require.Equal(t, a, b)

		c := discretePath(cmds, 2, 1, 43)
		require.NotEqual(t, a, c)
	})
	t.Run("cornerAddsQuads", func(t *testing.T) {
		out := cornerPath(cmds, 2)
		var quads int
		for _, c := range out {
			if c.Op == OpQuad {
				quads++
			}
		}
		require.Greater(t, quads, 0)
	})
}

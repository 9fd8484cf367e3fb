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
	"fmt"
	"image"
	"image/color"
	"image/draw"
	"math"

	"mgc/pkg/property"
	"mgc/pkg/shape"

	"github.com/nfnt/resize"
	"github.com/srwiley/rasterx"
	"golang.org/x/image/math/fixed"
)

// Raster is the CPU renderer backend.
type Raster struct {
	width  int
	height int

	scale  float64
	region *image.Rectangle

	surface *image.RGBA
	fonts   *shape.FontCache
	shader  ShaderHandler
}

// NewRaster returns a CPU renderer for a surface size.
func NewRaster(w, h int, fonts *shape.FontCache) *Raster {
	return &Raster{
		width:   w,
		height:  h,
		scale:   1,
		surface: image.NewRGBA(image.Rect(0, 0, w, h)),
		fonts:   fonts,
	}
}

// SetRenderScale sets the uniform output scale factor.
func (r *Raster) SetRenderScale(scale float64) {
	if scale > 0 {
		r.scale = scale
	}
}

// SetRegion sets an optional output crop region.
func (r *Raster) SetRegion(region *image.Rectangle) {
	r.region = region
}

// SetShaderHandler installs the shader rasterization plugin.
func (r *Raster) SetShaderHandler(h ShaderHandler) {
	r.shader = h
}

// Clear implements Renderer.
func (r *Raster) Clear() {
	pix := r.surface.Pix
	for i := range pix {
		pix[i] = 0
	}
}

// DrawLayer implements Renderer.
func (r *Raster) DrawLayer(img Image, m Matrix, opacity float64) {
	if img == nil {
		return
	}
	drawInto(r.surface, img.ToRGBA(), m, opacity)
}

func drawInto(dst *image.RGBA, src *image.RGBA, m Matrix, opacity float64) {
	if opacity <= 0 {
		return
	}
	if opacity > 1 {
		opacity = 1
	}

	if m.IsIdentity() && opacity == 1 {
		draw.Draw(dst, src.Bounds(), src, src.Bounds().Min, draw.Over)
		return
	}

	// Destination bounding box of the transformed source.
	sb := src.Bounds()
	corners := [4][2]float64{
		{float64(sb.Min.X), float64(sb.Min.Y)},
		{float64(sb.Max.X), float64(sb.Min.Y)},
		{float64(sb.Min.X), float64(sb.Max.Y)},
		{float64(sb.Max.X), float64(sb.Max.Y)},
	}
	minX, minY := math.Inf(1), math.Inf(1)
	maxX, maxY := math.Inf(-1), math.Inf(-1)
	for _, c := range corners {
		x, y := m.Apply(c[0], c[1])
		minX, maxX = math.Min(minX, x), math.Max(maxX, x)
		minY, maxY = math.Min(minY, y), math.Max(maxY, y)
	}

	db := dst.Bounds()
	x0 := int(math.Max(math.Floor(minX), float64(db.Min.X)))
	y0 := int(math.Max(math.Floor(minY), float64(db.Min.Y)))
	x1 := int(math.Min(math.Ceil(maxX), float64(db.Max.X)))
	y1 := int(math.Min(math.Ceil(maxY), float64(db.Max.Y)))

	inv := m.Invert()
	for y := y0; y < y1; y++ {
		for x := x0; x < x1; x++ {
			sx, sy := inv.Apply(float64(x)+0.5, float64(y)+0.5)
			sr, sg, sb2, sa := sampleBilinear(src, sx, sy)
			if sa == 0 {
				continue
			}
			sr *= opacity
			sg *= opacity
			sb2 *= opacity
			sa *= opacity

			i := dst.PixOffset(x, y)
			invA := 1 - sa/255
			dst.Pix[i] = clampByte(sr + float64(dst.Pix[i])*invA)
			dst.Pix[i+1] = clampByte(sg + float64(dst.Pix[i+1])*invA)
			dst.Pix[i+2] = clampByte(sb2 + float64(dst.Pix[i+2])*invA)
			dst.Pix[i+3] = clampByte(sa + float64(dst.Pix[i+3])*invA)
		}
	}
}

func clampByte(v float64) uint8 {
	if v <= 0 {
		return 0
	}
	if v >= 255 {
		return 255
	}
	return uint8(v + 0.5)
}

// sampleBilinear samples premultiplied channels at a point.
func sampleBilinear(src *image.RGBA, x, y float64) (r, g, b, a float64) {
	x -= 0.5
	y -= 0.5
	x0, y0 := int(math.Floor(x)), int(math.Floor(y))
	fx, fy := x-float64(x0), y-float64(y0)

	get := func(px, py int) (float64, float64, float64, float64) {
		if !image.Pt(px, py).In(src.Bounds()) {
			return 0, 0, 0, 0
		}
		i := src.PixOffset(px, py)
		return float64(src.Pix[i]), float64(src.Pix[i+1]),
			float64(src.Pix[i+2]), float64(src.Pix[i+3])
	}

	mix := func(c00, c10, c01, c11 float64) float64 {
		return c00*(1-fx)*(1-fy) + c10*fx*(1-fy) + c01*(1-fx)*fy + c11*fx*fy
	}

	r00, g00, b00, a00 := get(x0, y0)
	r10, g10, b10, a10 := get(x0+1, y0)
	r01, g01, b01, a01 := get(x0, y0+1)
	r11, g11, b11, a11 := get(x0+1, y0+1)

	return mix(r00, r10, r01, r11), mix(g00, g10, g01, g11),
		mix(b00, b10, b01, b11), mix(a00, a10, a01, a11)
}

// RasterizeShapeLayer implements Renderer.
func (r *Raster) RasterizeShapeLayer(
	svgPath string,
	styles []StyleConfig,
	effects []PathEffect,
	m Matrix,
) (Image, error) {
	cmds, err := ParsePath(svgPath)
	if err != nil {
		return nil, fmt.Errorf("could not parse path: %w", err)
	}
	cmds = applyPathEffects(cmds, effects)
	dashes, dashOffset := dashParams(effects)

	layer := image.NewRGBA(image.Rect(0, 0, r.width, r.height))
	for _, style := range styles {
		s := style
		if s.Kind == StyleStroke && s.DashArray == nil {
			s.DashArray = dashes
			s.DashOffset = dashOffset
		}
		r.paintPath(layer, cmds, s, m, 1)
	}
	return &CPUImage{Pix: layer}, nil
}

// RasterizeGroupedShapes implements Renderer.
func (r *Raster) RasterizeGroupedShapes(
	groups []shape.Group,
	styles []StyleConfig,
	m Matrix,
) (Image, error) {
	layer := image.NewRGBA(image.Rect(0, 0, r.width, r.height))

	for i := range groups {
		g := &groups[i]
		if g.Transform.Opacity <= 0 {
			continue
		}
		gm := m.Mul(groupMatrix(g))

		for _, d := range g.Decorations {
			if d.Behind {
				r.paintDecoration(layer, d, gm, g.Transform.Opacity)
			}
		}

		if g.Path != "" {
			cmds, err := ParsePath(g.Path)
			if err != nil {
				return nil, fmt.Errorf("could not parse glyph path: %w", err)
			}
			for _, style := range styles {
				r.paintPath(layer, cmds, style, gm, g.Transform.Opacity)
			}
		}

		for _, d := range g.Decorations {
			if !d.Behind {
				r.paintDecoration(layer, d, gm, g.Transform.Opacity)
			}
		}
	}
	return &CPUImage{Pix: layer}, nil
}

// groupMatrix builds the per-group transform: rotation and scale
// pivot at the group center.
func groupMatrix(g *shape.Group) Matrix {
	cx := g.Bounds.X + g.Bounds.W/2
	cy := g.Bounds.Y + g.Bounds.H/2

	m := Translate(g.Transform.Translate[0], g.Transform.Translate[1])
	m = m.Mul(Translate(cx, cy))
	m = m.Mul(Rotate(g.Transform.Rotate))
	m = m.Mul(Scale(g.Transform.Scale[0], g.Transform.Scale[1]))
	m = m.Mul(Translate(-cx, -cy))
	return m
}

// RasterizeTextLayer implements Renderer.
func (r *Raster) RasterizeTextLayer(
	text string,
	size float64,
	fontFamily string,
	styles []StyleConfig,
	ensemble *shape.Data,
	m Matrix,
) (Image, error) {
	data := ensemble
	if data == nil {
		face := r.fonts.Typeface(fontFamily)
		var err error
		data, err = shape.DecomposeText(text, face, size)
		if err != nil {
			return nil, fmt.Errorf("could not decompose text: %w", err)
		}
	}
	return r.RasterizeGroupedShapes(data.Groups, styles, m)
}

// RasterizeShaderLayer implements Renderer.
func (r *Raster) RasterizeShaderLayer(
	shader string, w, h int, time float64, m Matrix,
) (Image, error) {
	if r.shader == nil {
		// No shader backend, produce an empty layer.
		return NewImage(w, h), nil
	}
	img, err := r.shader(shader, w, h, time)
	if err != nil {
		return nil, fmt.Errorf("shader rasterization: %w", err)
	}
	if m.IsIdentity() {
		return img, nil
	}
	layer := image.NewRGBA(image.Rect(0, 0, r.width, r.height))
	drawInto(layer, img.ToRGBA(), m, 1)
	return &CPUImage{Pix: layer}, nil
}

// Finalize implements Renderer.
func (r *Raster) Finalize() Image {
	out := r.surface

	if r.region != nil {
		crop := r.region.Intersect(out.Bounds())
		cropped := image.NewRGBA(image.Rect(0, 0, crop.Dx(), crop.Dy()))
		draw.Draw(cropped, cropped.Bounds(), out, crop.Min, draw.Src)
		out = cropped
	}

	if r.scale != 1 {
		w := int(math.Round(float64(out.Bounds().Dx()) * r.scale))
		h := int(math.Round(float64(out.Bounds().Dy()) * r.scale))
		resized := resize.Resize(uint(w), uint(h), out, resize.Bilinear)
		rgba := image.NewRGBA(image.Rect(0, 0, w, h))
		draw.Draw(rgba, rgba.Bounds(), resized, image.Point{}, draw.Src)
		out = rgba
	}

	// Detach so the next frame does not overwrite the result.
	result := image.NewRGBA(out.Bounds())
	copy(result.Pix, out.Pix)
	return &CPUImage{Pix: result}
}

// GPUContext implements Renderer. The CPU backend has no GPU handle.
func (r *Raster) GPUContext() interface{} { return nil }

// paintPath fills or strokes path commands onto dst.
func (r *Raster) paintPath(
	dst *image.RGBA,
	cmds []PathCmd,
	style StyleConfig,
	m Matrix,
	opacity float64,
) {
	if style.Offset != [2]float64{} {
		m = m.Mul(Translate(style.Offset[0], style.Offset[1]))
	}
	transformed := TransformPath(cmds, m)

	col := styleColor(style.Color, opacity)
	if col.A == 0 {
		return
	}

	scanner := rasterx.NewScannerGV(r.width, r.height, dst, dst.Bounds())

	if style.Kind == StyleStroke {
		dasher := rasterx.NewDasher(r.width, r.height, scanner)
		dasher.SetColor(col)
		width := style.Width
		if width <= 0 {
			width = 1
		}
		miter := style.MiterLimit
		if miter <= 0 {
			miter = 4
		}
		capFn, gapFn := capFunc(style.Cap)
		dasher.SetStroke(
			fixed.Int26_6(width*64),
			fixed.Int26_6(miter*64),
			capFn, capFn, gapFn, joinMode(style.Join),
			style.DashArray, style.DashOffset,
		)
		feedPath(dasher, transformed)
		dasher.Draw()
		return
	}

	filler := rasterx.NewFiller(r.width, r.height, scanner)
	filler.SetColor(col)
	feedPath(filler, transformed)
	filler.Draw()
}

// paintDecoration paints a decoration backing shape.
func (r *Raster) paintDecoration(
	dst *image.RGBA, d shape.Decoration, m Matrix, opacity float64,
) {
	cmds := decorationCmds(d)
	style := StyleConfig{Kind: StyleFill, Color: d.Color}
	r.paintPath(dst, cmds, style, m, opacity)
}

func decorationCmds(d shape.Decoration) []PathCmd {
	b := d.Bounds
	switch d.Shape {
	case shape.DecorationCircle:
		cx, cy := b.X+b.W/2, b.Y+b.H/2
		rx, ry := b.W/2, b.H/2
		// Cubic approximation of an ellipse.
		const k = 0.5523
		cube := func(pts ...[2]float64) PathCmd {
			var arr [3][2]float64
			copy(arr[:], pts)
			return PathCmd{Op: OpCube, Pts: arr}
		}
		return []PathCmd{
			{Op: OpMove, Pts: [3][2]float64{{cx + rx, cy}}},
			cube([2]float64{cx + rx, cy + ry*k}, [2]float64{cx + rx*k, cy + ry}, [2]float64{cx, cy + ry}),
			cube([2]float64{cx - rx*k, cy + ry}, [2]float64{cx - rx, cy + ry*k}, [2]float64{cx - rx, cy}),
			cube([2]float64{cx - rx, cy - ry*k}, [2]float64{cx - rx*k, cy - ry}, [2]float64{cx, cy - ry}),
			cube([2]float64{cx + rx*k, cy - ry}, [2]float64{cx + rx, cy - ry*k}, [2]float64{cx + rx, cy}),
			{Op: OpClose},
		}
	case shape.DecorationRoundedRect:
		cmds := rectCmds(b)
		return cornerPath(cmds, d.Radius)
	default:
		return rectCmds(b)
	}
}

func rectCmds(b shape.Rect) []PathCmd {
	return []PathCmd{
		{Op: OpMove, Pts: [3][2]float64{{b.X, b.Y}}},
		{Op: OpLine, Pts: [3][2]float64{{b.X + b.W, b.Y}}},
		{Op: OpLine, Pts: [3][2]float64{{b.X + b.W, b.Y + b.H}}},
		{Op: OpLine, Pts: [3][2]float64{{b.X, b.Y + b.H}}},
		{Op: OpClose},
	}
}

// feedPath feeds commands into a rasterx adder.
func feedPath(adder rasterx.Adder, cmds []PathCmd) {
	toFixed := func(p [2]float64) fixed.Point26_6 {
		return fixed.Point26_6{
			X: fixed.Int26_6(math.Round(p[0] * 64)),
			Y: fixed.Int26_6(math.Round(p[1] * 64)),
		}
	}

	open := false
	for _, c := range cmds {
		switch c.Op {
		case OpMove:
			if open {
				adder.Stop(false)
			}
			adder.Start(toFixed(c.Pts[0]))
			open = true
		case OpLine:
			adder.Line(toFixed(c.Pts[0]))
		case OpQuad:
			adder.QuadBezier(toFixed(c.Pts[0]), toFixed(c.Pts[1]))
		case OpCube:
			adder.CubeBezier(toFixed(c.Pts[0]), toFixed(c.Pts[1]), toFixed(c.Pts[2]))
		case OpClose:
			if open {
				adder.Stop(true)
				open = false
			}
		}
	}
	if open {
		adder.Stop(false)
	}
}

func styleColor(c property.Color, opacity float64) color.NRGBA {
	if opacity < 0 {
		opacity = 0
	}
	if opacity > 1 {
		opacity = 1
	}
	return color.NRGBA{R: c.R, G: c.G, B: c.B, A: clampByte(float64(c.A) * opacity)}
}

func capFunc(name string) (rasterx.CapFunc, rasterx.GapFunc) {
	switch name {
	case "round":
		return rasterx.RoundCap, rasterx.RoundGap
	case "square":
		return rasterx.SquareCap, rasterx.QuadraticGap
	default:
		return rasterx.ButtCap, rasterx.FlatGap
	}
}

func joinMode(name string) rasterx.JoinMode {
	switch name {
	case "round":
		return rasterx.Round
	case "bevel":
		return rasterx.Bevel
	default:
		return rasterx.Miter
	}
}

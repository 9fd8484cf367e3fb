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

// Package render defines the abstract raster surface contract and
// provides the CPU backend.
package render

import (
	"image"
	"image/color"

	"mgc/pkg/property"
	"mgc/pkg/shape"
)

// Image is an opaque raster result: a CPU pixel buffer or a
// GPU texture handle. Callers do not know which.
type Image interface {
	Bounds() image.Rectangle
	// ToRGBA downloads the image into a CPU pixel buffer.
	ToRGBA() *image.RGBA
}

// CPUImage wraps a pixel buffer.
type CPUImage struct {
	Pix *image.RGBA
}

// Bounds implements Image.
func (i *CPUImage) Bounds() image.Rectangle { return i.Pix.Bounds() }

// ToRGBA implements Image.
func (i *CPUImage) ToRGBA() *image.RGBA { return i.Pix }

// NewImage returns an empty transparent CPU image.
func NewImage(w, h int) *CPUImage {
	return &CPUImage{Pix: image.NewRGBA(image.Rect(0, 0, w, h))}
}

// NewSolidImage returns a solid-color CPU image.
func NewSolidImage(w, h int, c property.Color) *CPUImage {
	img := NewImage(w, h)
	fill := color.RGBA{
		R: uint8(uint16(c.R) * uint16(c.A) / 255),
		G: uint8(uint16(c.G) * uint16(c.A) / 255),
		B: uint8(uint16(c.B) * uint16(c.A) / 255),
		A: c.A,
	}
	for i := 0; i < len(img.Pix.Pix); i += 4 {
		img.Pix.Pix[i] = fill.R
		img.Pix.Pix[i+1] = fill.G
		img.Pix.Pix[i+2] = fill.B
		img.Pix.Pix[i+3] = fill.A
	}
	return img
}

// StyleKind fill or stroke.
type StyleKind uint8

// Style kinds.
const (
	StyleFill StyleKind = iota
	StyleStroke
)

// StyleConfig resolved style-node parameters.
type StyleConfig struct {
	Kind   StyleKind
	Color  property.Color
	Offset [2]float64

	// Stroke only.
	Width      float64
	Cap        string // round, square, butt
	Join       string // round, bevel, miter
	MiterLimit float64
	DashArray  []float64
	DashOffset float64
}

// ShaderHandler rasterizes a shader source to an image. Registered
// by the embedding application, the CPU backend has no shader
// compiler of its own.
type ShaderHandler func(shader string, w, h int, time float64) (Image, error)

// Renderer is the abstract raster surface.
type Renderer interface {
	// Clear resets the surface to transparent.
	Clear()

	// DrawLayer composites an image onto the surface through an
	// affine transform with an opacity in [0,1].
	DrawLayer(img Image, m Matrix, opacity float64)

	// RasterizeShapeLayer rasterizes a single SVG path with styles
	// and path effects applied.
	RasterizeShapeLayer(svgPath string, styles []StyleConfig, effects []PathEffect, m Matrix) (Image, error)

	// RasterizeGroupedShapes rasterizes grouped glyph outlines,
	// applying per-group transforms and decorations.
	RasterizeGroupedShapes(groups []shape.Group, styles []StyleConfig, m Matrix) (Image, error)

	// RasterizeTextLayer decomposes and rasterizes text. A non-nil
	// ensemble skips decomposition and uses the given groups.
	RasterizeTextLayer(text string, size float64, fontFamily string, styles []StyleConfig, ensemble *shape.Data, m Matrix) (Image, error)

	// RasterizeShaderLayer rasterizes a shader layer at a time.
	RasterizeShaderLayer(shader string, w, h int, time float64, m Matrix) (Image, error)

	// Finalize applies render scale and region and returns the
	// finished frame.
	Finalize() Image

	// GPUContext returns the backend GPU handle, or nil.
	GPUContext() interface{}
}

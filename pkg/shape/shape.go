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

// Package shape holds the intermediate shape representation between
// clips and style nodes: either a single SVG path, or per-glyph
// outline groups with per-group transforms and decorations.
package shape

import "mgc/pkg/property"

// DataKind tags the shape data variant.
type DataKind uint8

// Shape data variants.
const (
	KindPath DataKind = iota
	KindGrouped
)

// Rect axis-aligned bounds.
type Rect struct {
	X, Y, W, H float64
}

// Union returns the union of two rects. Empty rects are ignored.
func (r Rect) Union(o Rect) Rect {
	if r.W == 0 && r.H == 0 {
		return o
	}
	if o.W == 0 && o.H == 0 {
		return r
	}
	x0 := min(r.X, o.X)
	y0 := min(r.Y, o.Y)
	x1 := max(r.X+r.W, o.X+o.W)
	y1 := max(r.Y+r.H, o.Y+o.H)
	return Rect{X: x0, Y: y0, W: x1 - x0, H: y1 - y0}
}

// TransformData per-group transform, mutated by effectors.
type TransformData struct {
	Translate [2]float64
	Rotate    float64 // Degrees.
	Scale     [2]float64
	Opacity   float64 // [0,1].
}

// IdentityTransform returns the identity transform.
func IdentityTransform() TransformData {
	return TransformData{Scale: [2]float64{1, 1}, Opacity: 1}
}

// DecorationShape backing shape kind.
type DecorationShape string

// Decoration shapes.
const (
	DecorationRect        DecorationShape = "rect"
	DecorationRoundedRect DecorationShape = "rounded_rect"
	DecorationCircle      DecorationShape = "circle"
)

// Decoration is a backing shape attached to a group by a decorator.
type Decoration struct {
	Shape  DecorationShape
	Bounds Rect
	Radius float64
	Color  property.Color
	Behind bool
}

// FontInfo font used to produce grouped shapes.
type FontInfo struct {
	Family string
	Size   float64
}

// Group is one glyph outline with its layout info.
type Group struct {
	// SVG path commands (M/L/Q/C/Z), positioned in text-local
	// coordinates. Empty for whitespace.
	Path string

	SourceChar rune
	Index      int // Global sequential index, newlines excluded.
	LineIndex  int

	BasePosition [2]float64
	Advance      float64
	Bounds       Rect

	Transform   TransformData
	Decorations []Decoration
}

// Data is the shape value carried on shape pins.
type Data struct {
	Kind DataKind

	// Path variant.
	Path string

	// Grouped variant.
	Groups []Group
	Lines  []Rect
	Bounds Rect
	Font   FontInfo
}

// NewPath returns path shape data.
func NewPath(path string) *Data {
	return &Data{Kind: KindPath, Path: path}
}

// Clone returns a deep copy. Effectors and decorators mutate a
// copy, the memoized upstream value stays untouched.
func (d *Data) Clone() *Data {
	c := *d
	c.Groups = make([]Group, len(d.Groups))
	for i, g := range d.Groups {
		g.Decorations = append([]Decoration(nil), g.Decorations...)
		c.Groups[i] = g
	}
	c.Lines = append([]Rect(nil), d.Lines...)
	return &c
}

func min(a, b float64) float64 {
	if a < b {
		return a
	}
	return b
}

func max(a, b float64) float64 {
	if a > b {
		return a
	}
	return b
}

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

package shape

import (
	"fmt"
	"math"
	"strings"
	"unicode"

	"golang.org/x/image/font"
	"golang.org/x/image/font/sfnt"
	"golang.org/x/image/math/fixed"
)

// DecomposeText lays out text into one outline group per character,
// left to right, split by newline. Whitespace produces an empty-path
// group carrying its advance. Group index is the position in the
// flattened text, newlines excluded.
func DecomposeText(text string, face *Typeface, size float64) (*Data, error) {
	face.mu.Lock()
	defer face.mu.Unlock()

	ppem := fixed.Int26_6(math.Round(size * 64))

	metrics, err := face.font.Metrics(&face.buf, ppem, font.HintingNone)
	if err != nil {
		return nil, fmt.Errorf("font metrics: %w", err)
	}
	ascent := fixedToFloat(metrics.Ascent)
	descent := fixedToFloat(metrics.Descent)
	lineHeight := fixedToFloat(metrics.Height)
	if lineHeight <= 0 {
		lineHeight = ascent + descent
	}

	data := &Data{
		Kind: KindGrouped,
		Font: FontInfo{Family: face.Family, Size: size},
	}

	index := 0
	for lineIndex, line := range strings.Split(text, "\n") {
		yOffset := float64(lineIndex) * lineHeight
		baseline := yOffset + ascent
		lineBounds := Rect{}

		x := 0.0
		for _, r := range line {
			group := Group{
				SourceChar:   r,
				Index:        index,
				LineIndex:    lineIndex,
				BasePosition: [2]float64{x, yOffset},
				Transform:    IdentityTransform(),
			}

			advance, err := face.glyphAdvance(r, ppem)
			if err != nil {
				return nil, err
			}
			group.Advance = advance

			if unicode.IsSpace(r) {
				group.Bounds = Rect{X: x, Y: yOffset, W: advance, H: lineHeight}
			} else {
				path, bounds, err := face.glyphPath(r, ppem, x, baseline)
				if err != nil {
					return nil, err
				}
				group.Path = path
				group.Bounds = bounds
			}

			lineBounds = lineBounds.Union(group.Bounds)
			data.Bounds = data.Bounds.Union(group.Bounds)
			data.Groups = append(data.Groups, group)

			x += advance
			index++
		}
		data.Lines = append(data.Lines, lineBounds)
	}

	return data, nil
}

func (face *Typeface) glyphAdvance(r rune, ppem fixed.Int26_6) (float64, error) {
	gi, err := face.font.GlyphIndex(&face.buf, r)
	if err != nil {
		return 0, fmt.Errorf("glyph index %q: %w", r, err)
	}
	adv, err := face.font.GlyphAdvance(&face.buf, gi, ppem, font.HintingNone)
	if err != nil {
		return 0, fmt.Errorf("glyph advance %q: %w", r, err)
	}
	return fixedToFloat(adv), nil
}

// glyphPath extracts a glyph outline positioned at (x, baseline) and
// lowered to SVG path commands.
func (face *Typeface) glyphPath(
	r rune, ppem fixed.Int26_6, x, baseline float64,
) (string, Rect, error) {
	gi, err := face.font.GlyphIndex(&face.buf, r)
	if err != nil {
		return "", Rect{}, fmt.Errorf("glyph index %q: %w", r, err)
	}

	segments, err := face.font.LoadGlyph(&face.buf, gi, ppem, nil)
	if err != nil {
		return "", Rect{}, fmt.Errorf("load glyph %q: %w", r, err)
	}

	var sb strings.Builder
	var minX, minY = math.Inf(1), math.Inf(1)
	var maxX, maxY = math.Inf(-1), math.Inf(-1)

	point := func(p fixed.Point26_6) (float64, float64) {
		px := x + fixedToFloat(p.X)
		py := baseline + fixedToFloat(p.Y)
		minX = math.Min(minX, px)
		minY = math.Min(minY, py)
		maxX = math.Max(maxX, px)
		maxY = math.Max(maxY, py)
		return px, py
	}

	open := false
	for _, seg := range segments {
		switch seg.Op {
		case sfnt.SegmentOpMoveTo:
			if open {
				sb.WriteString("Z ")
			}
			px, py := point(seg.Args[0])
			fmt.Fprintf(&sb, "M %s %s ", num(px), num(py))
			open = true
		case sfnt.SegmentOpLineTo:
			px, py := point(seg.Args[0])
			fmt.Fprintf(&sb, "L %s %s ", num(px), num(py))
		case sfnt.SegmentOpQuadTo:
			cx, cy := point(seg.Args[0])
			px, py := point(seg.Args[1])
			fmt.Fprintf(&sb, "Q %s %s %s %s ", num(cx), num(cy), num(px), num(py))
		case sfnt.SegmentOpCubeTo:
			c1x, c1y := point(seg.Args[0])
			c2x, c2y := point(seg.Args[1])
			px, py := point(seg.Args[2])
			fmt.Fprintf(&sb, "C %s %s %s %s %s %s ",
				num(c1x), num(c1y), num(c2x), num(c2y), num(px), num(py))
		}
	}
	if open {
		sb.WriteString("Z")
	}

	var bounds Rect
	if !math.IsInf(minX, 1) {
		bounds = Rect{X: minX, Y: minY, W: maxX - minX, H: maxY - minY}
	}
	return strings.TrimSpace(sb.String()), bounds, nil
}

func fixedToFloat(v fixed.Int26_6) float64 {
	return float64(v) / 64
}

func num(v float64) string {
	return fmt.Sprintf("%g", math.Round(v*1000)/1000)
}

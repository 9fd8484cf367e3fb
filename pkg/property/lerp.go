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

package property

import "math"

// Lerp interpolates two values per-variant. Mismatching kinds,
// and kinds without an interpolation, return the start value.
// attrs carries per-property metadata, `interpolation: "hsv"`
// switches colors to HSV interpolation.
func Lerp(a, b Value, u float64, attrs map[string]string) Value {
	if a.Kind != b.Kind {
		return a
	}
	switch a.Kind {
	case KindNumber:
		return Number(lerp(a.num, b.num, u))
	case KindInteger:
		return Integer(int64(math.Round(lerp(float64(a.i), float64(b.i), u))))
	case KindVec2:
		return Vec2(lerp(a.vec[0], b.vec[0], u), lerp(a.vec[1], b.vec[1], u))
	case KindVec3:
		return Vec3(
			lerp(a.vec[0], b.vec[0], u),
			lerp(a.vec[1], b.vec[1], u),
			lerp(a.vec[2], b.vec[2], u))
	case KindVec4:
		return Vec4(
			lerp(a.vec[0], b.vec[0], u),
			lerp(a.vec[1], b.vec[1], u),
			lerp(a.vec[2], b.vec[2], u),
			lerp(a.vec[3], b.vec[3], u))
	case KindColor:
		if attrs["interpolation"] == "hsv" {
			return ColorValue(lerpColorHSV(a.col, b.col, u))
		}
		return ColorValue(lerpColorRGB(a.col, b.col, u))
	case KindArray:
		if len(a.arr) != len(b.arr) {
			return a
		}
		items := make([]Value, len(a.arr))
		for n := range a.arr {
			items[n] = Lerp(a.arr[n], b.arr[n], u, attrs)
		}
		return Array(items)
	case KindMap:
		if len(a.dict) != len(b.dict) {
			return a
		}
		entries := make(map[string]Value, len(a.dict))
		for k, av := range a.dict {
			bv, exist := b.dict[k]
			if !exist {
				return a
			}
			entries[k] = Lerp(av, bv, u, attrs)
		}
		return Map(entries)
	}
	return a
}

func lerp(a, b, u float64) float64 {
	return a + (b-a)*u
}

func lerpColorRGB(a, b Color, u float64) Color {
	return Color{
		R: uint8(math.Round(lerp(float64(a.R), float64(b.R), u))),
		G: uint8(math.Round(lerp(float64(a.G), float64(b.G), u))),
		B: uint8(math.Round(lerp(float64(a.B), float64(b.B), u))),
		A: uint8(math.Round(lerp(float64(a.A), float64(b.A), u))),
	}
}

// lerpColorHSV interpolates hue along the shortest arc,
// saturation and value linearly.
func lerpColorHSV(a, b Color, u float64) Color {
	ah, as, av := rgbToHSV(a)
	bh, bs, bv := rgbToHSV(b)

	diff := bh - ah
	if diff > 180 {
		diff -= 360
	} else if diff < -180 {
		diff += 360
	}
	h := math.Mod(ah+diff*u+360, 360)

	s := lerp(as, bs, u)
	v := lerp(av, bv, u)
	alpha := uint8(math.Round(lerp(float64(a.A), float64(b.A), u)))

	out := hsvToRGB(h, s, v)
	out.A = alpha
	return out
}

// rgbToHSV converts to hue [0,360), saturation and value [0,1].
func rgbToHSV(c Color) (h, s, v float64) {
	r := float64(c.R) / 255
	g := float64(c.G) / 255
	b := float64(c.B) / 255

	max := math.Max(r, math.Max(g, b))
	min := math.Min(r, math.Min(g, b))
	delta := max - min

	switch {
	case delta == 0:
		h = 0
	case max == r:
		h = 60 * math.Mod((g-b)/delta, 6)
	case max == g:
		h = 60 * ((b-r)/delta + 2)
	default:
		h = 60 * ((r-g)/delta + 4)
	}
	if h < 0 {
		h += 360
	}

	if max != 0 {
		s = delta / max
	}
	return h, s, max
}

func hsvToRGB(h, s, v float64) Color {
	c := v * s
	x := c * (1 - math.Abs(math.Mod(h/60, 2)-1))
	m := v - c

	var r, g, b float64
	switch {
	case h < 60:
		r, g, b = c, x, 0
	case h < 120:
		r, g, b = x, c, 0
	case h < 180:
		r, g, b = 0, c, x
	case h < 240:
		r, g, b = 0, x, c
	case h < 300:
		r, g, b = x, 0, c
	default:
		r, g, b = c, 0, x
	}

	return Color{
		R: uint8(math.Round((r + m) * 255)),
		G: uint8(math.Round((g + m) * 255)),
		B: uint8(math.Round((b + m) * 255)),
		A: 255,
	}
}

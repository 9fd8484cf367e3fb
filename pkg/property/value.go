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

import (
	"encoding/json"
	"fmt"
	"math"
)

// Kind tags a Value variant.
type Kind uint8

// Value variants.
const (
	KindNone Kind = iota
	KindNumber
	KindInteger
	KindString
	KindBoolean
	KindVec2
	KindVec3
	KindVec4
	KindColor
	KindArray
	KindMap
)

// Color 8-bit RGBA.
type Color struct {
	R uint8 `json:"r"`
	G uint8 `json:"g"`
	B uint8 `json:"b"`
	A uint8 `json:"a"`
}

// Value is a tagged union of the property value variants.
// Equal compares numeric fields through their bit patterns.
type Value struct {
	Kind Kind

	num  float64
	i    int64
	str  string
	b    bool
	vec  [4]float64
	col  Color
	arr  []Value
	dict map[string]Value
}

// Number returns a number value.
func Number(v float64) Value { return Value{Kind: KindNumber, num: v} }

// Integer returns an integer value.
func Integer(v int64) Value { return Value{Kind: KindInteger, i: v} }

// String returns a string value.
func String(v string) Value { return Value{Kind: KindString, str: v} }

// Boolean returns a boolean value.
func Boolean(v bool) Value { return Value{Kind: KindBoolean, b: v} }

// Vec2 returns a 2-component vector value.
func Vec2(x, y float64) Value { return Value{Kind: KindVec2, vec: [4]float64{x, y, 0, 0}} }

// Vec3 returns a 3-component vector value.
func Vec3(x, y, z float64) Value { return Value{Kind: KindVec3, vec: [4]float64{x, y, z, 0}} }

// Vec4 returns a 4-component vector value.
func Vec4(x, y, z, w float64) Value { return Value{Kind: KindVec4, vec: [4]float64{x, y, z, w}} }

// ColorValue returns a color value.
func ColorValue(c Color) Value { return Value{Kind: KindColor, col: c} }

// Array returns an array value.
func Array(vs []Value) Value { return Value{Kind: KindArray, arr: vs} }

// Map returns a map value.
func Map(m map[string]Value) Value { return Value{Kind: KindMap, dict: m} }

// Float returns the value coerced to float64.
// Booleans coerce to 0/1, everything non-numeric to 0.
func (v Value) Float() float64 {
	switch v.Kind {
	case KindNumber:
		return v.num
	case KindInteger:
		return float64(v.i)
	case KindBoolean:
		if v.b {
			return 1
		}
	}
	return 0
}

// Int returns the value coerced to int64.
func (v Value) Int() int64 {
	if v.Kind == KindInteger {
		return v.i
	}
	return int64(math.Round(v.Float()))
}

// Str returns the string variant, or "".
func (v Value) Str() string {
	if v.Kind == KindString {
		return v.str
	}
	return ""
}

// Bool returns the boolean variant, or false.
func (v Value) Bool() bool {
	return v.Kind == KindBoolean && v.b
}

// Components returns the vector components.
func (v Value) Components() (x, y, z, w float64) {
	return v.vec[0], v.vec[1], v.vec[2], v.vec[3]
}

// Color returns the color variant, or opaque black.
func (v Value) Color() Color {
	if v.Kind == KindColor {
		return v.col
	}
	return Color{A: 255}
}

// Items returns the array variant.
func (v Value) Items() []Value { return v.arr }

// Entries returns the map variant.
func (v Value) Entries() map[string]Value { return v.dict }

// Equal reports bit-equality for scalar kinds and
// structural equality for arrays and maps.
func (v Value) Equal(o Value) bool {
	if v.Kind != o.Kind {
		return false
	}
	switch v.Kind {
	case KindNumber:
		return math.Float64bits(v.num) == math.Float64bits(o.num)
	case KindInteger:
		return v.i == o.i
	case KindString:
		return v.str == o.str
	case KindBoolean:
		return v.b == o.b
	case KindVec2, KindVec3, KindVec4:
		for n := range v.vec {
			if math.Float64bits(v.vec[n]) != math.Float64bits(o.vec[n]) {
				return false
			}
		}
		return true
	case KindColor:
		return v.col == o.col
	case KindArray:
		if len(v.arr) != len(o.arr) {
			return false
		}
		for n := range v.arr {
			if !v.arr[n].Equal(o.arr[n]) {
				return false
			}
		}
		return true
	case KindMap:
		if len(v.dict) != len(o.dict) {
			return false
		}
		for k, a := range v.dict {
			b, exist := o.dict[k]
			if !exist || !a.Equal(b) {
				return false
			}
		}
		return true
	}
	return true
}

// MarshalJSON implements the untagged project-file encoding.
func (v Value) MarshalJSON() ([]byte, error) {
	switch v.Kind {
	case KindNone:
		return []byte("null"), nil
	case KindNumber:
		return json.Marshal(v.num)
	case KindInteger:
		return json.Marshal(v.i)
	case KindString:
		return json.Marshal(v.str)
	case KindBoolean:
		return json.Marshal(v.b)
	case KindVec2:
		return json.Marshal(map[string]float64{"x": v.vec[0], "y": v.vec[1]})
	case KindVec3:
		return json.Marshal(map[string]float64{"x": v.vec[0], "y": v.vec[1], "z": v.vec[2]})
	case KindVec4:
		return json.Marshal(map[string]float64{
			"x": v.vec[0], "y": v.vec[1], "z": v.vec[2], "w": v.vec[3],
		})
	case KindColor:
		return json.Marshal(v.col)
	case KindArray:
		if v.arr == nil {
			return []byte("[]"), nil
		}
		return json.Marshal(v.arr)
	case KindMap:
		return json.Marshal(v.dict)
	}
	return nil, fmt.Errorf("unknown value kind: %d", v.Kind)
}

// UnmarshalJSON implements the untagged project-file decoding.
// Numbers always decode as Number, vectors as {x,y[,z[,w]]},
// colors as {r,g,b,a}, remaining objects as Map.
func (v *Value) UnmarshalJSON(data []byte) error {
	var raw interface{}
	if err := json.Unmarshal(data, &raw); err != nil {
		return err
	}
	*v = fromInterface(raw)
	return nil
}

func fromInterface(raw interface{}) Value {
	switch val := raw.(type) {
	case nil:
		return Value{}
	case float64:
		return Number(val)
	case string:
		return String(val)
	case bool:
		return Boolean(val)
	case []interface{}:
		items := make([]Value, 0, len(val))
		for _, item := range val {
			items = append(items, fromInterface(item))
		}
		return Array(items)
	case map[string]interface{}:
		return fromObject(val)
	}
	return Value{}
}

func fromObject(obj map[string]interface{}) Value {
	num := func(key string) (float64, bool) {
		v, exist := obj[key]
		if !exist {
			return 0, false
		}
		f, ok := v.(float64)
		return f, ok
	}

	if r, ok := num("r"); ok {
		g, _ := num("g")
		b, _ := num("b")
		a, aOK := num("a")
		if !aOK {
			a = 255
		}
		return ColorValue(Color{
			R: colorComponent(r),
			G: colorComponent(g),
			B: colorComponent(b),
			A: colorComponent(a),
		})
	}

	if x, ok := num("x"); ok {
		y, _ := num("y")
		if w, ok := num("w"); ok {
			z, _ := num("z")
			return Vec4(x, y, z, w)
		}
		if z, ok := num("z"); ok {
			return Vec3(x, y, z)
		}
		return Vec2(x, y)
	}

	entries := make(map[string]Value, len(obj))
	for k, item := range obj {
		entries[k] = fromInterface(item)
	}
	return Map(entries)
}

func colorComponent(v float64) uint8 {
	return uint8(math.Round(math.Min(math.Max(v, 0), 255)))
}

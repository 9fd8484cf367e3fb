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
	"math"
	"testing"

	"github.com/stretchr/testify/require"
)

func keyframed(ks ...Keyframe) *Property {
	return &Property{Type: "keyframe", Value: Number(-1), Keyframes: ks}
}

func TestKeyframeEvaluator(t *testing.T) {
	registry := NewRegistry()

	p := keyframed(
		Keyframe{Time: 1, Value: Number(10), Easing: EasingLinear},
		Keyframe{Time: 3, Value: Number(30), Easing: EasingLinear},
	)

	cases := []struct {
		name     string
		time     float64
		expected float64
	}{
		{"clampBefore", 0, 10},
		{"first", 1, 10},
		{"midpoint", 2, 20},
		{"last", 3, 30},
		{"clampAfter", 99, 30},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			v := registry.Resolve(p, tc.time, 30)
			require.Equal(t, tc.expected, v.Float())
		})
	}

	t.Run("nanTime", func(t *testing.T) {
		v := registry.Resolve(p, math.NaN(), 30)
		require.Equal(t, float64(-1), v.Float())
	})
	t.Run("empty", func(t *testing.T) {
		v := registry.Resolve(keyframed(), 1, 30)
		require.Equal(t, float64(-1), v.Float())
	})
	t.Run("zeroGap", func(t *testing.T) {
		p := keyframed(
			Keyframe{Time: 0, Value: Number(1)},
			Keyframe{Time: 1, Value: Number(2)},
			Keyframe{Time: 1 + 1e-9, Value: Number(7)},
			Keyframe{Time: 2, Value: Number(3)},
		)
		v := registry.Resolve(p, 1+1e-10, 30)
		require.Equal(t, float64(7), v.Float())
	})
	t.Run("unsorted", func(t *testing.T) {
		p := keyframed(
			Keyframe{Time: 3, Value: Number(30), Easing: EasingLinear},
			Keyframe{Time: 1, Value: Number(10), Easing: EasingLinear},
		)
		v := registry.Resolve(p, 2, 30)
		require.Equal(t, float64(20), v.Float())
		// Evaluation must not mutate the property.
		require.Equal(t, float64(3), p.Keyframes[0].Time)
	})
	t.Run("constantEasing", func(t *testing.T) {
		p := keyframed(
			Keyframe{Time: 0, Value: Number(0), Easing: Easing{Name: "constant"}},
			Keyframe{Time: 1, Value: Number(100)},
		)
		require.Equal(t, float64(0), registry.Resolve(p, 0.99, 30).Float())
		require.Equal(t, float64(100), registry.Resolve(p, 1, 30).Float())
	})
}

func TestLerpVariants(t *testing.T) {
	t.Run("vec2", func(t *testing.T) {
		v := Lerp(Vec2(0, 10), Vec2(10, 30), 0.5, nil)
		x, y, _, _ := v.Components()
		require.Equal(t, 5.0, x)
		require.Equal(t, 20.0, y)
	})
	t.Run("integerRounds", func(t *testing.T) {
		v := Lerp(Integer(0), Integer(5), 0.5, nil)
		require.Equal(t, int64(3), v.Int())
	})
	t.Run("mismatchedKinds", func(t *testing.T) {
		v := Lerp(Number(1), String("x"), 0.5, nil)
		require.Equal(t, 1.0, v.Float())
	})
	t.Run("stringReturnsStart", func(t *testing.T) {
		v := Lerp(String("a"), String("b"), 0.9, nil)
		require.Equal(t, "a", v.Str())
	})
	t.Run("arrayZipwise", func(t *testing.T) {
		v := Lerp(
			Array([]Value{Number(0), Number(10)}),
			Array([]Value{Number(10), Number(20)}),
			0.5, nil)
		require.Equal(t, 5.0, v.Items()[0].Float())
		require.Equal(t, 15.0, v.Items()[1].Float())
	})
	t.Run("arrayShapeMismatch", func(t *testing.T) {
		a := Array([]Value{Number(0)})
		v := Lerp(a, Array([]Value{Number(1), Number(2)}), 0.5, nil)
		require.True(t, v.Equal(a))
	})
}

func TestColorInterpolation(t *testing.T) {
	red := Color{R: 255, A: 255}
	green := Color{G: 255, A: 255}

	t.Run("rgbMidpoint", func(t *testing.T) {
		v := Lerp(ColorValue(red), ColorValue(green), 0.5, nil)
		c := v.Color()
		require.Equal(t, uint8(128), c.R)
		require.Equal(t, uint8(128), c.G)
		require.Equal(t, uint8(0), c.B)
	})
	t.Run("hsvMidpointIsYellow", func(t *testing.T) {
		attrs := map[string]string{"interpolation": "hsv"}
		v := Lerp(ColorValue(red), ColorValue(green), 0.5, attrs)
		c := v.Color()

		// Hue 60, full saturation and value.
		h, s, val := rgbToHSV(c)
		require.InDelta(t, 60, h, 1)
		require.InDelta(t, 1, s, 0.01)
		require.InDelta(t, 1, val, 0.01)
		require.Equal(t, uint8(255), c.A)
	})
	t.Run("hsvShortestArc", func(t *testing.T) {
		// 350 -> 10 degrees should pass through 0, not 180.
		a := hsvToRGB(350, 1, 1)
		b := hsvToRGB(10, 1, 1)
		attrs := map[string]string{"interpolation": "hsv"}
		v := Lerp(ColorValue(a), ColorValue(b), 0.5, attrs)
		h, _, _ := rgbToHSV(v.Color())
		require.InDelta(t, 0, math.Min(h, 360-h), 1)
	})
}

func TestEasing(t *testing.T) {
	t.Run("linearIdentity", func(t *testing.T) {
		require.Equal(t, 0.5, EasingLinear.Apply(0.5))
	})
	t.Run("clamp", func(t *testing.T) {
		require.Equal(t, 0.0, Easing{Name: "easeInQuad"}.Apply(-1))
		require.Equal(t, 1.0, Easing{Name: "easeInQuad"}.Apply(2))
	})
	t.Run("endpoints", func(t *testing.T) {
		for name := range easings {
			if name == "constant" {
				continue
			}
			e := Easing{Name: name}
			require.InDelta(t, 0, e.Apply(1e-12), 0.01, name)
			require.Equal(t, 1.0, e.Apply(1), name)
		}
	})
	t.Run("bezierLinear", func(t *testing.T) {
		e := Bezier(0.25, 0.25, 0.75, 0.75)
		require.InDelta(t, 0.5, e.Apply(0.5), 1e-6)
	})
	t.Run("unknownName", func(t *testing.T) {
		require.Equal(t, 0.25, Easing{Name: "bogus"}.Apply(0.25))
	})
	t.Run("jsonRoundTrip", func(t *testing.T) {
		for _, e := range []Easing{EasingLinear, {Name: "easeOutBounce"}, Bezier(0.1, 0.2, 0.3, 0.4)} {
			data, err := json.Marshal(e)
			require.NoError(t, err)

			var decoded Easing
			require.NoError(t, json.Unmarshal(data, &decoded))
			require.Equal(t, e, decoded)
		}
	})
}

func TestExpressionEvaluator(t *testing.T) {
	registry := NewRegistry()

	expr := func(src string) *Property {
		return &Property{Type: "expression", Value: Number(-1), Expression: src}
	}

	t.Run("scalar", func(t *testing.T) {
		v := registry.Resolve(expr("time * 2"), 1.5, 30)
		require.Equal(t, 3.0, v.Float())
	})
	t.Run("frameAndFPS", func(t *testing.T) {
		v := registry.Resolve(expr("frame + fps"), 0.5, 30)
		require.Equal(t, 45.0, v.Float())
	})
	t.Run("mathLib", func(t *testing.T) {
		v := registry.Resolve(expr("math.min(time, 1)"), 5, 30)
		require.Equal(t, 1.0, v.Float())
	})
	t.Run("helpers", func(t *testing.T) {
		v := registry.Resolve(expr("lerp(0, 10, clamp(time, 0, 1))"), 0.5, 30)
		require.Equal(t, 5.0, v.Float())
	})
	t.Run("vector", func(t *testing.T) {
		v := registry.Resolve(expr("{x = time, y = 2}"), 3, 30)
		x, y, _, _ := v.Components()
		require.Equal(t, 3.0, x)
		require.Equal(t, 2.0, y)
	})
	t.Run("badExpression", func(t *testing.T) {
		v := registry.Resolve(expr("nonsense("), 0, 30)
		require.Equal(t, -1.0, v.Float())
	})
	t.Run("emptyExpression", func(t *testing.T) {
		v := registry.Resolve(&Property{Type: "expression", Value: Number(7)}, 0, 30)
		require.Equal(t, 7.0, v.Float())
	})
	t.Run("dynamicState", func(t *testing.T) {
		p := &Property{
			Type:       "dynamic",
			Value:      Number(-1),
			Expression: "state.n = (state.n or 0) + 1\nreturn state.n",
		}
		require.Equal(t, 1.0, registry.Resolve(p, 0, 30).Float())
		require.Equal(t, 2.0, registry.Resolve(p, 0, 30).Float())
	})
	t.Run("sandboxed", func(t *testing.T) {
		v := registry.Resolve(expr("os ~= nil"), 0, 30)
		require.False(t, v.Bool())
	})
}

func TestValueJSON(t *testing.T) {
	cases := []struct {
		name  string
		value Value
		json  string
	}{
		{"number", Number(1.5), "1.5"},
		{"string", String("a"), `"a"`},
		{"bool", Boolean(true), "true"},
		{"vec2", Vec2(1, 2), `{"x":1,"y":2}`},
		{"vec3", Vec3(1, 2, 3), `{"x":1,"y":2,"z":3}`},
		{"color", ColorValue(Color{R: 255, A: 255}), `{"r":255,"g":0,"b":0,"a":255}`},
		{"array", Array([]Value{Number(1), Number(2)}), "[1,2]"},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			data, err := json.Marshal(tc.value)
			require.NoError(t, err)
			require.JSONEq(t, tc.json, string(data))

			var decoded Value
			require.NoError(t, json.Unmarshal(data, &decoded))
			require.True(t, tc.value.Equal(decoded), "round trip mismatch")
		})
	}

	t.Run("vec4", func(t *testing.T) {
		var decoded Value
		require.NoError(t, json.Unmarshal([]byte(`{"x":1,"y":2,"z":3,"w":4}`), &decoded))
		require.True(t, decoded.Equal(Vec4(1, 2, 3, 4)))
	})
	t.Run("colorDefaultAlpha", func(t *testing.T) {
		var decoded Value
		require.NoError(t, json.Unmarshal([]byte(`{"r":1,"g":2,"b":3}`), &decoded))
		require.Equal(t, uint8(255), decoded.Color().A)
	})
	t.Run("map", func(t *testing.T) {
		var decoded Value
		require.NoError(t, json.Unmarshal([]byte(`{"foo":1}`), &decoded))
		require.Equal(t, KindMap, decoded.Kind)
	})
}

func TestSortKeyframes(t *testing.T) {
	p := keyframed(
		Keyframe{Time: 2, Value: Number(1)},
		Keyframe{Time: 1, Value: Number(2)},
		Keyframe{Time: 2, Value: Number(3)},
	)
	p.SortKeyframes()

	require.Equal(t, 2, len(p.Keyframes))
	require.Equal(t, float64(1), p.Keyframes[0].Time)
	// Last write wins on duplicate times.
	require.Equal(t, float64(3), p.Keyframes[1].Value.Float())
}

func TestSetKeyframe(t *testing.T) {
	p := keyframed()
	p.SetKeyframe(Keyframe{Time: 1, Value: Number(1)})
	p.SetKeyframe(Keyframe{Time: 0, Value: Number(0)})
	p.SetKeyframe(Keyframe{Time: 1, Value: Number(9)})

	require.Equal(t, 2, len(p.Keyframes))
	require.Equal(t, float64(9), p.Keyframes[1].Value.Float())
}

func TestRemoveKeyframeByIndex(t *testing.T) {
	p := keyframed(
		Keyframe{Time: 0, Value: Number(0)},
		Keyframe{Time: 1, Value: Number(1)},
	)
	require.NoError(t, p.RemoveKeyframeByIndex(0))
	require.Equal(t, 1, len(p.Keyframes))
	require.Equal(t, float64(1), p.Keyframes[0].Time)

	require.ErrorIs(t, p.RemoveKeyframeByIndex(5), ErrKeyframeIndex)
}

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
	"hash/fnv"
	"math"
)

// PathEffectKind path effect variant.
type PathEffectKind uint8

// Path effects.
const (
	EffectDash PathEffectKind = iota
	EffectCorner
	EffectDiscrete
	EffectTrim
)

// PathEffect is applied to a path before rasterization.
type PathEffect struct {
	Kind PathEffectKind

	// Dash.
	Intervals []float64
	Phase     float64

	// Corner.
	Radius float64

	// Discrete.
	SegLength float64
	Deviation float64
	Seed      int64

	// Trim, normalized [0,1].
	Start float64
	End   float64
}

// applyPathEffects applies the geometry-altering effects. Dash is
// not handled here, it maps onto the stroker's dash support.
func applyPathEffects(cmds []PathCmd, effects []PathEffect) []PathCmd {
	for _, e := range effects {
		switch e.Kind {
		case EffectTrim:
			cmds = trimPath(cmds, e.Start, e.End)
		case EffectDiscrete:
			cmds = discretePath(cmds, e.SegLength, e.Deviation, e.Seed)
		case EffectCorner:
			cmds = cornerPath(cmds, e.Radius)
		}
	}
	return cmds
}

// dashParams extracts stroke dash parameters from the first dash
// effect in the list.
func dashParams(effects []PathEffect) (intervals []float64, phase float64) {
	for _, e := range effects {
		if e.Kind == EffectDash && len(e.Intervals) > 0 {
			return e.Intervals, e.Phase
		}
	}
	return nil, 0
}

// contour is a flattened polyline.
type contour struct {
	pts    [][2]float64
	closed bool
}

const flattenSteps = 16

// flatten lowers curves to line segments.
func flatten(cmds []PathCmd) []contour {
	var out []contour
	var cur *contour

	start := func(p [2]float64) {
		out = append(out, contour{pts: [][2]float64{p}})
		cur = &out[len(out)-1]
	}
	add := func(p [2]float64) {
		if cur == nil {
			start(p)
			return
		}
		cur.pts = append(cur.pts, p)
	}

	var pos [2]float64
	for _, c := range cmds {
		switch c.Op {
		case OpMove:
			pos = c.Pts[0]
			start(pos)
		case OpLine:
			add(c.Pts[0])
			pos = c.Pts[0]
		case OpQuad:
			for i := 1; i <= flattenSteps; i++ {
				t := float64(i) / flattenSteps
				add(quadPoint(pos, c.Pts[0], c.Pts[1], t))
			}
			pos = c.Pts[1]
		case OpCube:
			for i := 1; i <= flattenSteps; i++ {
				t := float64(i) / flattenSteps
				add(cubePoint(pos, c.Pts[0], c.Pts[1], c.Pts[2], t))
			}
			pos = c.Pts[2]
		case OpClose:
			if cur != nil {
				cur.closed = true
				if len(cur.pts) > 0 {
					pos = cur.pts[0]
				}
			}
			cur = nil
		}
	}
	return out
}

func toCmds(contours []contour) []PathCmd {
	var cmds []PathCmd
	for _, c := range contours {
		if len(c.pts) == 0 {
			continue
		}
		cmds = append(cmds, PathCmd{Op: OpMove, Pts: [3][2]float64{c.pts[0]}})
		for _, p := range c.pts[1:] {
			cmds = append(cmds, PathCmd{Op: OpLine, Pts: [3][2]float64{p}})
		}
		if c.closed {
			cmds = append(cmds, PathCmd{Op: OpClose})
		}
	}
	return cmds
}

func quadPoint(p0, c, p1 [2]float64, t float64) [2]float64 {
	inv := 1 - t
	return [2]float64{
		inv*inv*p0[0] + 2*inv*t*c[0] + t*t*p1[0],
		inv*inv*p0[1] + 2*inv*t*c[1] + t*t*p1[1],
	}
}

func cubePoint(p0, c1, c2, p1 [2]float64, t float64) [2]float64 {
	inv := 1 - t
	return [2]float64{
		inv*inv*inv*p0[0] + 3*inv*inv*t*c1[0] + 3*inv*t*t*c2[0] + t*t*t*p1[0],
		inv*inv*inv*p0[1] + 3*inv*inv*t*c1[1] + 3*inv*t*t*c2[1] + t*t*t*p1[1],
	}
}

func segmentLength(a, b [2]float64) float64 {
	return math.Hypot(b[0]-a[0], b[1]-a[1])
}

// trimPath keeps the [start, end] fraction of each contour's length.
func trimPath(cmds []PathCmd, start, end float64) []PathCmd {
	start = math.Min(math.Max(start, 0), 1)
	end = math.Min(math.Max(end, 0), 1)
	if end <= start {
		return nil
	}
	if start == 0 && end == 1 {
		return cmds
	}

	var out []contour
	for _, c := range flatten(cmds) {
		pts := c.pts
		if c.closed && len(pts) > 1 {
			pts = append(append([][2]float64{}, pts...), pts[0])
		}

		var total float64
		for i := 1; i < len(pts); i++ {
			total += segmentLength(pts[i-1], pts[i])
		}
		if total == 0 {
			continue
		}

		lo, hi := start*total, end*total
		var trimmed [][2]float64
		var walked float64
		for i := 1; i < len(pts); i++ {
			a, b := pts[i-1], pts[i]
			segLen := segmentLength(a, b)
			if segLen == 0 {
				continue
			}
			segStart, segEnd := walked, walked+segLen
			walked = segEnd

			if segEnd < lo || segStart > hi {
				continue
			}

			from, to := a, b
			if segStart < lo {
				t := (lo - segStart) / segLen
				from = [2]float64{a[0] + (b[0]-a[0])*t, a[1] + (b[1]-a[1])*t}
			}
			if segEnd > hi {
				t := (hi - segStart) / segLen
				to = [2]float64{a[0] + (b[0]-a[0])*t, a[1] + (b[1]-a[1])*t}
			}
			if len(trimmed) == 0 {
				trimmed = append(trimmed, from)
			}
			trimmed = append(trimmed, to)
		}
		if len(trimmed) > 1 {
			out = append(out, contour{pts: trimmed})
		}
	}
	return toCmds(out)
}

// discretePath resamples contours at segLength and jitters the points
// deterministically from the seed.
func discretePath(cmds []PathCmd, segLength, deviation float64, seed int64) []PathCmd {
	if segLength <= 0 {
		return cmds
	}

	var out []contour
	for ci, c := range flatten(cmds) {
		pts := c.pts
		if c.closed && len(pts) > 1 {
			pts = append(append([][2]float64{}, pts...), pts[0])
		}
		if len(pts) < 2 {
			continue
		}

		var resampled [][2]float64
		resampled = append(resampled, pts[0])
		carry := 0.0
		for i := 1; i < len(pts); i++ {
			a, b := pts[i-1], pts[i]
			segLen := segmentLength(a, b)
			for carry+segLength <= segLen {
				carry += segLength
				t := carry / segLen
				resampled = append(resampled, [2]float64{
					a[0] + (b[0]-a[0])*t,
					a[1] + (b[1]-a[1])*t,
				})
			}
			carry -= segLen
			if carry < 0 {
				carry = 0
			}
		}

		for i := range resampled {
			jx := hashJitter(seed, int64(ci)<<32|int64(i)*2) * deviation
			jy := hashJitter(seed, int64(ci)<<32|int64(i)*2+1) * deviation
			resampled[i][0] += jx
			resampled[i][1] += jy
		}
		out = append(out, contour{pts: resampled, closed: c.closed})
	}
	return toCmds(out)
}

// hashJitter returns a deterministic value in [-1, 1].
func hashJitter(seed, n int64) float64 {
	h := fnv.New64a()
	var buf [16]byte
	for i := 0; i < 8; i++ {
		buf[i] = byte(seed >> (8 * i))
		buf[8+i] = byte(n >> (8 * i))
	}
	h.Write(buf[:])
	return float64(h.Sum64()%2000001)/1000000 - 1
}

// cornerPath rounds corners between straight segments with
// quadratic curves of the given radius.
func cornerPath(cmds []PathCmd, radius float64) []PathCmd {
	if radius <= 0 {
		return cmds
	}

	var out []PathCmd
	for _, c := range flatten(cmds) {
		pts := c.pts
		n := len(pts)
		if n < 3 {
			out = append(out, toCmds([]contour{c})...)
			continue
		}

		cornerAt := func(prev, corner, next [2]float64) (in, outPt [2]float64) {
			d1 := segmentLength(prev, corner)
			d2 := segmentLength(corner, next)
			r1 := math.Min(radius, d1/2)
			r2 := math.Min(radius, d2/2)
			in = [2]float64{
				corner[0] + (prev[0]-corner[0])*r1/math.Max(d1, 1e-9),
				corner[1] + (prev[1]-corner[1])*r1/math.Max(d1, 1e-9),
			}
			outPt = [2]float64{
				corner[0] + (next[0]-corner[0])*r2/math.Max(d2, 1e-9),
				corner[1] + (next[1]-corner[1])*r2/math.Max(d2, 1e-9),
			}
			return in, outPt
		}

		var cmdsOut []PathCmd
		add := func(op PathOp, pts ...[2]float64) {
			var arr [3][2]float64
			copy(arr[:], pts)
			cmdsOut = append(cmdsOut, PathCmd{Op: op, Pts: arr})
		}

		last := n - 1
		if c.closed {
			in0, _ := cornerAt(pts[last], pts[0], pts[1])
			add(OpMove, in0)
		} else {
			add(OpMove, pts[0])
		}

		for i := 1; i < n; i++ {
			isLast := i == last
			if isLast && !c.closed {
				add(OpLine, pts[i])
				break
			}
			next := pts[(i+1)%n]
			in, outPt := cornerAt(pts[i-1], pts[i], next)
			add(OpLine, in)
			add(OpQuad, pts[i], outPt)
		}
		if c.closed {
			in0, _ := cornerAt(pts[last], pts[0], pts[1])
			add(OpLine, in0)
			add(OpClose)
		}
		out = append(out, cmdsOut...)
	}
	return out
}

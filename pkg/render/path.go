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
	"math"
	"strconv"
	"strings"
)

// Matrix is a 2D affine transform.
//
//	x' = A*x + C*y + E
//	y' = B*x + D*y + F
type Matrix struct {
	A, B, C, D, E, F float64
}

// Identity returns the identity matrix.
func Identity() Matrix {
	return Matrix{A: 1, D: 1}
}

// Translate returns a translation matrix.
func Translate(x, y float64) Matrix {
	return Matrix{A: 1, D: 1, E: x, F: y}
}

// Scale returns a scale matrix.
func Scale(x, y float64) Matrix {
	return Matrix{A: x, D: y}
}

// Rotate returns a rotation matrix, degrees clockwise.
func Rotate(degrees float64) Matrix {
	rad := degrees * math.Pi / 180
	sin, cos := math.Sin(rad), math.Cos(rad)
	return Matrix{A: cos, B: sin, C: -sin, D: cos}
}

// Mul returns m * o, applying o first.
func (m Matrix) Mul(o Matrix) Matrix {
	return Matrix{
		A: m.A*o.A + m.C*o.B,
		B: m.B*o.A + m.D*o.B,
		C: m.A*o.C + m.C*o.D,
		D: m.B*o.C + m.D*o.D,
		E: m.A*o.E + m.C*o.F + m.E,
		F: m.B*o.E + m.D*o.F + m.F,
	}
}

// Apply transforms a point.
func (m Matrix) Apply(x, y float64) (float64, float64) {
	return m.A*x + m.C*y + m.E, m.B*x + m.D*y + m.F
}

// IsIdentity reports whether m is the identity.
func (m Matrix) IsIdentity() bool {
	return m == Identity()
}

// Invert returns the inverse matrix. Singular
// matrices invert to identity.
func (m Matrix) Invert() Matrix {
	det := m.A*m.D - m.B*m.C
	if det == 0 {
		return Identity()
	}
	inv := 1 / det
	return Matrix{
		A: m.D * inv,
		B: -m.B * inv,
		C: -m.C * inv,
		D: m.A * inv,
		E: (m.C*m.F - m.D*m.E) * inv,
		F: (m.B*m.E - m.A*m.F) * inv,
	}
}

// PathOp path command op.
type PathOp uint8

// Path command ops.
const (
	OpMove PathOp = iota
	OpLine
	OpQuad
	OpCube
	OpClose
)

// PathCmd one parsed path command with absolute coordinates.
type PathCmd struct {
	Op PathOp
	// Points: Move/Line 1, Quad 2 (ctrl, end), Cube 3 (c1, c2, end).
	Pts [3][2]float64
}

// ParsePath parses SVG path data restricted to the
// M/L/H/V/Q/C/Z command set, absolute or relative.
func ParsePath(data string) ([]PathCmd, error) {
	var cmds []PathCmd

	var cur, start [2]float64
	toks := tokenizePath(data)
	i := 0

	read := func(n int) ([]float64, error) {
		if i+n > len(toks) {
			return nil, fmt.Errorf("unexpected end of path data")
		}
		vals := make([]float64, n)
		for j := 0; j < n; j++ {
			v, err := strconv.ParseFloat(toks[i+j], 64)
			if err != nil {
				return nil, fmt.Errorf("bad number %q in path data", toks[i+j])
			}
			vals[j] = v
		}
		i += n
		return vals, nil
	}

	for i < len(toks) {
		tok := toks[i]
		if len(tok) != 1 || !strings.ContainsAny(tok, "MmLlHhVvQqCcZz") {
			return nil, fmt.Errorf("unknown path command %q", tok)
		}
		cmd := tok[0]
		i++
		rel := cmd >= 'a'

		// Repeated coordinate sets reuse the command.
		for {
			switch cmd {
			case 'M', 'm':
				vals, err := read(2)
				if err != nil {
					return nil, err
				}
				if rel {
					vals[0] += cur[0]
					vals[1] += cur[1]
				}
				cur = [2]float64{vals[0], vals[1]}
				start = cur
				cmds = append(cmds, PathCmd{Op: OpMove, Pts: [3][2]float64{cur}})
				// Subsequent pairs are implicit line-tos.
				cmd = 'L'
				if rel {
					cmd = 'l'
				}
			case 'L', 'l':
				vals, err := read(2)
				if err != nil {
					return nil, err
				}
				if rel {
					vals[0] += cur[0]
					vals[1] += cur[1]
				}
				cur = [2]float64{vals[0], vals[1]}
				cmds = append(cmds, PathCmd{Op: OpLine, Pts: [3][2]float64{cur}})
			case 'H', 'h':
				vals, err := read(1)
				if err != nil {
					return nil, err
				}
				if rel {
					vals[0] += cur[0]
				}
				cur[0] = vals[0]
				cmds = append(cmds, PathCmd{Op: OpLine, Pts: [3][2]float64{cur}})
			case 'V', 'v':
				vals, err := read(1)
				if err != nil {
					return nil, err
				}
				if rel {
					vals[0] += cur[1]
				}
				cur[1] = vals[0]
				cmds = append(cmds, PathCmd{Op: OpLine, Pts: [3][2]float64{cur}})
			case 'Q', 'q':
				vals, err := read(4)
				if err != nil {
					return nil, err
				}
				if rel {
					vals[0] += cur[0]
					vals[1] += cur[1]
					vals[2] += cur[0]
					vals[3] += cur[1]
				}
				ctrl := [2]float64{vals[0], vals[1]}
				cur = [2]float64{vals[2], vals[3]}
				cmds = append(cmds, PathCmd{Op: OpQuad, Pts: [3][2]float64{ctrl, cur}})
			case 'C', 'c':
				vals, err := read(6)
				if err != nil {
					return nil, err
				}
				if rel {
					for j := 0; j < 6; j += 2 {
						vals[j] += cur[0]
						vals[j+1] += cur[1]
					}
				}
				c1 := [2]float64{vals[0], vals[1]}
				c2 := [2]float64{vals[2], vals[3]}
				cur = [2]float64{vals[4], vals[5]}
				cmds = append(cmds, PathCmd{Op: OpCube, Pts: [3][2]float64{c1, c2, cur}})
			case 'Z', 'z':
				cur = start
				cmds = append(cmds, PathCmd{Op: OpClose})
			}

			if cmd == 'Z' || cmd == 'z' {
				break
			}
			// Another coordinate set for the same command?
			if i >= len(toks) || isCommandToken(toks[i]) {
				break
			}
		}
	}
	return cmds, nil
}

func isCommandToken(tok string) bool {
	return len(tok) == 1 && strings.ContainsAny(tok, "MmLlHhVvQqCcZz")
}

func tokenizePath(data string) []string {
	var toks []string
	var sb strings.Builder

	flush := func() {
		if sb.Len() > 0 {
			toks = append(toks, sb.String())
			sb.Reset()
		}
	}

	for _, r := range data {
		switch {
		case r == ' ' || r == ',' || r == '\t' || r == '\n' || r == '\r':
			flush()
		case (r >= 'A' && r <= 'Z') || (r >= 'a' && r <= 'z'):
			// An exponent marker inside a number is not a command.
			if (r == 'e' || r == 'E') && sb.Len() > 0 {
				sb.WriteRune(r)
				continue
			}
			flush()
			toks = append(toks, string(r))
		case r == '-':
			// A minus sign starts a new number unless it follows
			// an exponent marker.
			prev := sb.String()
			if sb.Len() > 0 && !strings.HasSuffix(prev, "e") && !strings.HasSuffix(prev, "E") {
				flush()
			}
			sb.WriteRune(r)
		default:
			sb.WriteRune(r)
		}
	}
	flush()
	return toks
}

// TransformPath returns the commands with the matrix applied.
func TransformPath(cmds []PathCmd, m Matrix) []PathCmd {
	if m.IsIdentity() {
		return cmds
	}
	out := make([]PathCmd, len(cmds))
	for i, c := range cmds {
		for j := range c.Pts {
			c.Pts[j][0], c.Pts[j][1] = m.Apply(c.Pts[j][0], c.Pts[j][1])
		}
		out[i] = c
	}
	return out
}

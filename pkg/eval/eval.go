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

package eval

import (
	"errors"
	"fmt"

	"mgc/pkg/project"
	"mgc/pkg/render"
)

// Render errors.
var (
	ErrTrackPulled     = errors.New("track pulled through evaluate pin")
	ErrUnknownNodeType = errors.New("no evaluator for node type")
)

// EvaluateComposition renders one frame of the composition onto the
// context renderer and returns the finalized image.
func EvaluateComposition(ctx *Context) (render.Image, error) {
	root, err := ctx.Project.Node(ctx.Comp.RootTrackID)
	if err != nil {
		return nil, fmt.Errorf("root track: %w", err)
	}

	ctx.Renderer.Clear()
	bg := render.NewSolidImage(ctx.Comp.Width, ctx.Comp.Height, ctx.Comp.BackgroundColor)
	ctx.Renderer.DrawLayer(bg, render.Identity(), 1)

	if err := ctx.evaluateTrack(root, ctx.Renderer); err != nil {
		return nil, err
	}
	return ctx.Renderer.Finalize(), nil
}

// evaluateTrack composites the track's children onto r in order,
// painter's algorithm.
func (ctx *Context) evaluateTrack(track *project.Node, r render.Renderer) error {
	if !track.Visible {
		return nil
	}

	// Layer-output-override: a connection into the track's own
	// image_out pin replaces its content.
	if conn := ctx.Project.ConnectionTo(project.Endpoint{NodeID: track.ID, Pin: "image_out"}); conn != nil {
		v, err := ctx.EvaluatePin(conn.From)
		if err != nil {
			return err
		}
		if v.Kind == KindImage && v.Image != nil {
			r.DrawLayer(v.Image, render.Identity(), 1)
		}
		return nil
	}

	for _, childID := range track.Children {
		child, err := ctx.Project.Node(childID)
		if err != nil {
			return fmt.Errorf("track child: %w", err)
		}

		switch child.Kind {
		case project.NodeClip:
			if child.ClipKind == project.ClipAudio {
				continue
			}
			if !child.Visible {
				continue
			}
			if ctx.FrameNumber < child.InFrame || ctx.FrameNumber > child.OutFrame {
				continue
			}

			img, err := ctx.resolveImageChain(child)
			if err != nil {
				// One broken clip must not abort the frame.
				ctx.logErr("eval", fmt.Errorf("clip %v: %w", child.ID, err))
				continue
			}
			if img != nil {
				r.DrawLayer(img, render.Identity(), 1)
			}

		case project.NodeTrack:
			if !child.Visible {
				continue
			}
			sub := ctx.NewRenderer(ctx.Comp.Width, ctx.Comp.Height)
			sub.Clear()
			if err := ctx.evaluateTrack(child, sub); err != nil {
				ctx.logErr("eval", fmt.Errorf("track %v: %w", child.ID, err))
				continue
			}
			opacity := 1.0
			if child.Opacity != nil {
				opacity = *child.Opacity / 100
			}
			r.DrawLayer(sub.Finalize(), render.Identity(), opacity)

		case project.NodeGraph:
			// Graph nodes are pulled by connected clips.
		}
	}
	return nil
}

// EvaluatePin evaluates an output pin, memoized for the frame.
func (ctx *Context) EvaluatePin(ep project.Endpoint) (Value, error) {
	key := memoKey{node: ep.NodeID, pin: ep.Pin}
	if v, exist := ctx.memo[key]; exist {
		return v, nil
	}

	node, err := ctx.Project.Node(ep.NodeID)
	if err != nil {
		return None, err
	}

	var v Value
	switch node.Kind {
	case project.NodeClip:
		v, err = ctx.evaluateClip(node, ep.Pin)
	case project.NodeGraph:
		evaluator := ctx.Nodes.Find(node.TypeID)
		if evaluator == nil {
			return None, fmt.Errorf("%w: %v", ErrUnknownNodeType, node.TypeID)
		}
		v, err = evaluator.Evaluate(ctx, node, ep.Pin)
	case project.NodeTrack:
		return None, fmt.Errorf("%w: %v", ErrTrackPulled, node.ID)
	}
	if err != nil {
		return None, err
	}

	ctx.memo[key] = v
	return v, nil
}

// PullInput evaluates the at-most-one connection into an input pin.
// Unconnected pins yield None.
func (ctx *Context) PullInput(nodeID project.ID, pin string) (Value, error) {
	conn := ctx.Project.ConnectionTo(project.Endpoint{NodeID: nodeID, Pin: pin})
	if conn == nil {
		return None, nil
	}
	return ctx.EvaluatePin(conn.From)
}

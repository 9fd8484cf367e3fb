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
	"strings"

	"mgc/pkg/project"
	"mgc/pkg/render"
)

// resolveImageChain resolves a clip's final image: the primary output
// pin followed through the downstream shape and image chains.
func (ctx *Context) resolveImageChain(clip *project.Node) (render.Image, error) {
	primary := "image_out"
	if clip.ClipKind == project.ClipText || clip.ClipKind == project.ClipShape {
		primary = "shape_out"
	}

	v, err := ctx.EvaluatePin(project.Endpoint{NodeID: clip.ID, Pin: primary})
	if err != nil {
		return nil, err
	}

	if primary == "shape_out" {
		return ctx.resolveShapeChain(clip.ID, v)
	}
	if v.Kind != KindImage {
		return nil, nil
	}
	return ctx.resolveDownstreamImages(clip.ID, v.Image)
}

// resolveShapeChain walks shape_out -> shape_in hops until a style
// node terminates the chain, then continues down the image chain.
// A shape chain without a style node produces no image.
func (ctx *Context) resolveShapeChain(nodeID project.ID, v Value) (render.Image, error) {
	if v.Kind != KindShape {
		return nil, nil
	}

	cur := nodeID
	for {
		conn := ctx.shapeConsumer(cur)
		if conn == nil {
			return nil, nil
		}

		next, err := ctx.Project.Node(conn.To.NodeID)
		if err != nil {
			return nil, err
		}

		if strings.HasPrefix(next.TypeID, "style.") {
			// The style node lazily pulls shape_in back through the
			// chain and rasterizes.
			styled, err := ctx.EvaluatePin(project.Endpoint{NodeID: next.ID, Pin: "image_out"})
			if err != nil {
				return nil, err
			}
			if styled.Kind != KindImage {
				return nil, nil
			}
			return ctx.resolveDownstreamImages(next.ID, styled.Image)
		}

		// Effector or decorator, pass through.
		cur = next.ID
	}
}

// resolveDownstreamImages walks image_out -> image_in hops, taking
// each downstream node's image_out, until no consumer remains. A hop
// producing a non-image stops the walk with what was produced.
func (ctx *Context) resolveDownstreamImages(nodeID project.ID, img render.Image) (render.Image, error) {
	cur := nodeID
	for {
		conn := ctx.imageConsumer(cur)
		if conn == nil {
			return img, nil
		}

		v, err := ctx.EvaluatePin(project.Endpoint{NodeID: conn.To.NodeID, Pin: "image_out"})
		if err != nil {
			return nil, err
		}
		if v.Kind != KindImage || v.Image == nil {
			return img, nil
		}
		img = v.Image
		cur = conn.To.NodeID
	}
}

// shapeConsumer finds the connection consuming a node's shape_out.
func (ctx *Context) shapeConsumer(nodeID project.ID) *project.Connection {
	for _, c := range ctx.Project.Connections {
		if c.From.NodeID == nodeID && c.From.Pin == "shape_out" && c.To.Pin == "shape_in" {
			return c
		}
	}
	return nil
}

// imageConsumer finds the connection consuming a node's image_out.
func (ctx *Context) imageConsumer(nodeID project.ID) *project.Connection {
	for _, c := range ctx.Project.Connections {
		if c.From.NodeID == nodeID && c.From.Pin == "image_out" && c.To.Pin == "image_in" {
			return c
		}
	}
	return nil
}

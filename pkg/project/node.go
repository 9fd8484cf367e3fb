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

package project

import (
	"encoding/json"

	"mgc/pkg/property"

	"github.com/google/uuid"
)

// NodeKind tags the node variant.
type NodeKind string

// Node variants.
const (
	NodeTrack NodeKind = "track"
	NodeClip  NodeKind = "clip"
	NodeGraph NodeKind = "graph"
)

// ClipKind media kind of a clip.
type ClipKind string

// Clip kinds.
const (
	ClipVideo       ClipKind = "video"
	ClipImage       ClipKind = "image"
	ClipAudio       ClipKind = "audio"
	ClipText        ClipKind = "text"
	ClipShape       ClipKind = "shape"
	ClipSkSL        ClipKind = "sksl"
	ClipComposition ClipKind = "composition"
)

// Node is the tagged union of track, clip and graph nodes.
type Node struct {
	ID   ID       `json:"-"`
	Kind NodeKind `json:"kind"`
	Name string   `json:"name,omitempty"`

	// Track fields.
	Children  []ID     `json:"children,omitempty"`
	Visible   bool     `json:"visible"`
	Opacity   *float64 `json:"opacity,omitempty"`
	BlendMode string   `json:"blend_mode,omitempty"`

	// Clip fields. Frame range is inclusive on both ends,
	// in the composition timebase.
	ClipKind         ClipKind `json:"clip_kind,omitempty"`
	InFrame          int64    `json:"in_frame,omitempty"`
	OutFrame         int64    `json:"out_frame,omitempty"`
	SourceBeginFrame int64    `json:"source_begin_frame,omitempty"`
	FPS              float64  `json:"fps,omitempty"`
	AssetID          ID       `json:"asset_id,omitempty"`

	// Graph fields.
	TypeID string `json:"type_id,omitempty"`

	Properties property.PropertyMap `json:"properties,omitempty"`
}

// UnmarshalJSON decodes a node, defaulting visibility to true.
func (n *Node) UnmarshalJSON(data []byte) error {
	type alias Node
	aux := struct {
		Visible *bool `json:"visible"`
		*alias
	}{alias: (*alias)(n)}

	if err := json.Unmarshal(data, &aux); err != nil {
		return err
	}
	n.Visible = aux.Visible == nil || *aux.Visible
	return nil
}

// Clone returns a deep copy.
func (n *Node) Clone() *Node {
	c := *n
	c.Children = append([]ID(nil), n.Children...)
	if n.Opacity != nil {
		opacity := *n.Opacity
		c.Opacity = &opacity
	}
	c.Properties = n.Properties.Clone()
	return &c
}

// Prop returns a property by name, or nil.
func (n *Node) Prop(name string) *property.Property {
	return n.Properties[name]
}

// NewTrack returns a new track node.
func NewTrack(name string) *Node {
	return &Node{
		ID:      uuid.NewString(),
		Kind:    NodeTrack,
		Name:    name,
		Visible: true,
	}
}

// NewGraphNode returns a new graph node with the
// default properties for its type id.
func NewGraphNode(typeID string) *Node {
	return &Node{
		ID:         uuid.NewString(),
		Kind:       NodeGraph,
		TypeID:     typeID,
		Visible:    true,
		Properties: defaultGraphProperties(typeID),
	}
}

// ClipRange frame range and source mapping of a new clip.
type ClipRange struct {
	InFrame          int64
	OutFrame         int64
	SourceBeginFrame int64
	FPS              float64
}

// NewClip returns a new clip node of the given kind with
// default properties. The transform properties center the
// clip on the canvas.
func NewClip(kind ClipKind, assetID ID, r ClipRange, canvasW, canvasH int) *Node {
	props := property.PropertyMap{
		"position": property.Constant(property.Vec2(float64(canvasW)/2, float64(canvasH)/2)),
		"anchor":   property.Constant(property.Vec2(0, 0)),
		"scale":    property.Constant(property.Vec2(1, 1)),
		"rotation": property.Constant(property.Number(0)),
		"opacity":  property.Constant(property.Number(100)),
	}

	switch kind {
	case ClipText:
		props["text"] = property.Constant(property.String(""))
		props["font_family"] = property.Constant(property.String(""))
		props["size"] = property.Constant(property.Number(100))
	case ClipShape:
		props["path"] = property.Constant(property.String(""))
	case ClipImage, ClipVideo:
		props["file_path"] = property.Constant(property.String(""))
	case ClipSkSL:
		props["shader"] = property.Constant(property.String(""))
		props["width"] = property.Constant(property.Number(float64(canvasW)))
		props["height"] = property.Constant(property.Number(float64(canvasH)))
	case ClipAudio:
		props["volume"] = property.Constant(property.Number(100))
		props["pan"] = property.Constant(property.Number(0))
	}

	return &Node{
		ID:               uuid.NewString(),
		Kind:             NodeClip,
		ClipKind:         kind,
		Visible:          true,
		InFrame:          r.InFrame,
		OutFrame:         r.OutFrame,
		SourceBeginFrame: r.SourceBeginFrame,
		FPS:              r.FPS,
		AssetID:          assetID,
		Properties:       props,
	}
}

func defaultGraphProperties(typeID string) property.PropertyMap {
	white := property.Color{R: 255, G: 255, B: 255, A: 255}

	switch typeID {
	case "style.fill":
		return property.PropertyMap{
			"color":   property.Constant(property.ColorValue(white)),
			"opacity": property.Constant(property.Number(100)),
			"offset":  property.Constant(property.Vec2(0, 0)),
		}
	case "style.stroke":
		return property.PropertyMap{
			"color":       property.Constant(property.ColorValue(white)),
			"opacity":     property.Constant(property.Number(100)),
			"width":       property.Constant(property.Number(1)),
			"offset":      property.Constant(property.Vec2(0, 0)),
			"cap":         property.Constant(property.String("butt")),
			"join":        property.Constant(property.String("miter")),
			"miter_limit": property.Constant(property.Number(4)),
			"dash_array":  property.Constant(property.String("")),
			"dash_offset": property.Constant(property.Number(0)),
		}
	case "transform.image":
		return property.PropertyMap{
			"position": property.Constant(property.Vec2(0, 0)),
			"anchor":   property.Constant(property.Vec2(0, 0)),
			"scale":    property.Constant(property.Vec2(1, 1)),
			"rotation": property.Constant(property.Number(0)),
			"opacity":  property.Constant(property.Number(100)),
		}
	case "effector.transform":
		return property.PropertyMap{
			"translate": property.Constant(property.Vec2(0, 0)),
			"rotation":  property.Constant(property.Number(0)),
			"scale":     property.Constant(property.Vec2(1, 1)),
		}
	case "effector.step_delay":
		return property.PropertyMap{
			"delay":        property.Constant(property.Number(0.1)),
			"duration":     property.Constant(property.Number(0.2)),
			"from_opacity": property.Constant(property.Number(0)),
			"to_opacity":   property.Constant(property.Number(100)),
		}
	case "effector.randomize":
		return property.PropertyMap{
			"seed":            property.Constant(property.Integer(0)),
			"amount":          property.Constant(property.Number(1)),
			"translate_range": property.Constant(property.Number(10)),
			"rotate_range":    property.Constant(property.Number(15)),
		}
	case "effector.opacity":
		return property.PropertyMap{
			"opacity": property.Constant(property.Number(1)),
			"mode":    property.Constant(property.String("set")),
		}
	case "decorator.backplate":
		return property.PropertyMap{
			"target":  property.Constant(property.String("char")),
			"shape":   property.Constant(property.String("rect")),
			"color":   property.Constant(property.ColorValue(property.Color{A: 255})),
			"padding": property.Constant(property.Number(4)),
			"radius":  property.Constant(property.Number(0)),
		}
	}
	return property.PropertyMap{}
}

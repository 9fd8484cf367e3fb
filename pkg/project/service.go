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
	"errors"
	"fmt"

	"mgc/pkg/property"

	"github.com/google/uuid"
)

// Mutation errors.
var (
	ErrNotTrack = errors.New("node is not a track")
	ErrNotClip  = errors.New("node is not a clip")
	ErrNotGraph = errors.New("node is not a graph node")
)

// AddComposition creates a composition and its root track,
// and returns the new composition id.
func (p *Project) AddComposition(name string, w, h int, fps, duration float64) ID {
	root := NewTrack(name)
	p.Nodes[root.ID] = root

	comp := &Composition{
		ID:              uuid.NewString(),
		Name:            name,
		Width:           w,
		Height:          h,
		FPS:             fps,
		Duration:        duration,
		BackgroundColor: property.Color{A: 255},
		RootTrackID:     root.ID,
	}
	comp.WorkAreaOut = comp.TotalFrames() - 1
	if comp.WorkAreaOut < 0 {
		comp.WorkAreaOut = 0
	}

	p.Compositions = append(p.Compositions, comp)
	return comp.ID
}

// CompositionUpdate optional composition fields to update.
type CompositionUpdate struct {
	Name            *string
	Width           *int
	Height          *int
	FPS             *float64
	Duration        *float64
	BackgroundColor *property.Color
	WorkAreaIn      *int64
	WorkAreaOut     *int64
}

// UpdateComposition updates the set fields.
func (p *Project) UpdateComposition(id ID, upd CompositionUpdate) error {
	comp, err := p.Composition(id)
	if err != nil {
		return err
	}
	if upd.Name != nil {
		comp.Name = *upd.Name
	}
	if upd.Width != nil {
		comp.Width = *upd.Width
	}
	if upd.Height != nil {
		comp.Height = *upd.Height
	}
	if upd.FPS != nil {
		comp.FPS = *upd.FPS
	}
	if upd.Duration != nil {
		comp.Duration = *upd.Duration
	}
	if upd.BackgroundColor != nil {
		comp.BackgroundColor = *upd.BackgroundColor
	}
	if upd.WorkAreaIn != nil {
		comp.WorkAreaIn = *upd.WorkAreaIn
	}
	if upd.WorkAreaOut != nil {
		comp.WorkAreaOut = *upd.WorkAreaOut
	}
	return nil
}

// RemoveComposition removes a composition and cascades to its nodes.
func (p *Project) RemoveComposition(id ID) error {
	comp, err := p.Composition(id)
	if err != nil {
		return err
	}

	p.removeNodeCascade(comp.RootTrackID)

	for i, c := range p.Compositions {
		if c.ID == id {
			p.Compositions = append(p.Compositions[:i], p.Compositions[i+1:]...)
			break
		}
	}
	return nil
}

// AddTrack adds a track to a composition's root track.
func (p *Project) AddTrack(compID ID, name string) (ID, error) {
	comp, err := p.Composition(compID)
	if err != nil {
		return "", err
	}
	return p.AddSubTrack(comp.RootTrackID, name)
}

// AddSubTrack adds a track inside another track.
func (p *Project) AddSubTrack(parentID ID, name string) (ID, error) {
	parent, err := p.Node(parentID)
	if err != nil {
		return "", err
	}
	if parent.Kind != NodeTrack {
		return "", fmt.Errorf("%w: %v", ErrNotTrack, parentID)
	}

	track := NewTrack(name)
	p.Nodes[track.ID] = track
	parent.Children = append(parent.Children, track.ID)
	return track.ID, nil
}

// RenameTrack renames a track.
func (p *Project) RenameTrack(id ID, name string) error {
	track, err := p.Node(id)
	if err != nil {
		return err
	}
	if track.Kind != NodeTrack {
		return fmt.Errorf("%w: %v", ErrNotTrack, id)
	}
	track.Name = name
	return nil
}

// RemoveTrack removes a track and cascades to its children.
func (p *Project) RemoveTrack(id ID) error {
	track, err := p.Node(id)
	if err != nil {
		return err
	}
	if track.Kind != NodeTrack {
		return fmt.Errorf("%w: %v", ErrNotTrack, id)
	}
	p.removeNodeCascade(id)
	return nil
}

// AddClipToTrack adds a clip node to a track.
func (p *Project) AddClipToTrack(trackID ID, clip *Node) error {
	track, err := p.Node(trackID)
	if err != nil {
		return err
	}
	if track.Kind != NodeTrack {
		return fmt.Errorf("%w: %v", ErrNotTrack, trackID)
	}
	if clip.Kind != NodeClip {
		return fmt.Errorf("%w: %v", ErrNotClip, clip.ID)
	}
	if clip.InFrame > clip.OutFrame {
		return fmt.Errorf("%w: %v > %v", ErrFrameOrder, clip.InFrame, clip.OutFrame)
	}

	p.Nodes[clip.ID] = clip
	track.Children = append(track.Children, clip.ID)
	return nil
}

// RemoveClipFromTrack removes a clip.
func (p *Project) RemoveClipFromTrack(clipID ID) error {
	clip, err := p.Node(clipID)
	if err != nil {
		return err
	}
	if clip.Kind != NodeClip {
		return fmt.Errorf("%w: %v", ErrNotClip, clipID)
	}
	p.removeNodeCascade(clipID)
	return nil
}

// MoveClipToTrack moves a clip to the end of another track.
func (p *Project) MoveClipToTrack(clipID, toTrackID ID) error {
	return p.MoveClipToTrackAtIndex(clipID, toTrackID, -1)
}

// MoveClipToTrackAtIndex moves a clip to a specific index in another
// track. A negative index appends.
func (p *Project) MoveClipToTrackAtIndex(clipID, toTrackID ID, index int) error {
	clip, err := p.Node(clipID)
	if err != nil {
		return err
	}
	if clip.Kind != NodeClip {
		return fmt.Errorf("%w: %v", ErrNotClip, clipID)
	}
	to, err := p.Node(toTrackID)
	if err != nil {
		return err
	}
	if to.Kind != NodeTrack {
		return fmt.Errorf("%w: %v", ErrNotTrack, toTrackID)
	}

	if parent := p.parentOf(clipID); parent != nil {
		parent.Children = removeID(parent.Children, clipID)
	}

	if index < 0 || index >= len(to.Children) {
		to.Children = append(to.Children, clipID)
		return nil
	}
	to.Children = append(to.Children[:index],
		append([]ID{clipID}, to.Children[index:]...)...)
	return nil
}

// AddGraphNode adds a graph node to a container track
// and returns the new node id.
func (p *Project) AddGraphNode(containerID ID, typeID string) (ID, error) {
	container, err := p.Node(containerID)
	if err != nil {
		return "", err
	}
	if container.Kind != NodeTrack {
		return "", fmt.Errorf("%w: %v", ErrNotTrack, containerID)
	}

	node := NewGraphNode(typeID)
	p.Nodes[node.ID] = node
	container.Children = append(container.Children, node.ID)
	return node.ID, nil
}

// RemoveGraphNode removes a graph node.
func (p *Project) RemoveGraphNode(id ID) error {
	node, err := p.Node(id)
	if err != nil {
		return err
	}
	if node.Kind != NodeGraph {
		return fmt.Errorf("%w: %v", ErrNotGraph, id)
	}
	p.removeNodeCascade(id)
	return nil
}

// AddGraphConnection connects an output pin to an input pin.
// The mutation is rejected, with the project unmodified, when an
// endpoint is missing, the pin types mismatch, the input pin is
// occupied or the edge would create a cycle.
func (p *Project) AddGraphConnection(from, to Endpoint) (ID, error) {
	fromNode, err := p.Node(from.NodeID)
	if err != nil {
		return "", err
	}
	toNode, err := p.Node(to.NodeID)
	if err != nil {
		return "", err
	}

	fromType := OutputPinType(fromNode, from.Pin)
	toType := InputPinType(toNode, to.Pin)
	if !pinTypesMatch(fromType, toType) {
		return "", fmt.Errorf("%w: %v(%v) -> %v(%v)",
			ErrPinTypeMismatch, from.Pin, fromType, to.Pin, toType)
	}

	if p.ConnectionTo(to) != nil {
		return "", fmt.Errorf("%w: %v.%v", ErrInputOccupied, to.NodeID, to.Pin)
	}

	if p.wouldCycle(from.NodeID, to.NodeID) {
		return "", ErrCycle
	}

	conn := &Connection{
		ID:   uuid.NewString(),
		From: from,
		To:   to,
	}
	p.Connections = append(p.Connections, conn)
	return conn.ID, nil
}

// RemoveGraphConnection removes a connection by id.
func (p *Project) RemoveGraphConnection(id ID) error {
	for i, c := range p.Connections {
		if c.ID == id {
			p.Connections = append(p.Connections[:i], p.Connections[i+1:]...)
			return nil
		}
	}
	return fmt.Errorf("%w: %v", ErrConnectionNotExist, id)
}

// AddAsset registers an asset and returns its id.
func (p *Project) AddAsset(kind AssetKind, path string) ID {
	asset := &Asset{
		ID:   uuid.NewString(),
		Kind: kind,
		Path: path,
	}
	p.Assets = append(p.Assets, asset)
	return asset.ID
}

// RemoveAsset removes an asset by id.
func (p *Project) RemoveAsset(id ID) error {
	for i, a := range p.Assets {
		if a.ID == id {
			p.Assets = append(p.Assets[:i], p.Assets[i+1:]...)
			return nil
		}
	}
	return fmt.Errorf("%w: %v", ErrAssetNotExist, id)
}

// PropertyTarget selects the clip itself or a graph node by id.
type PropertyTarget struct {
	GraphNode ID // Empty targets the clip.
}

func (p *Project) propertyNode(clipID ID, target PropertyTarget) (*Node, error) {
	if target.GraphNode != "" {
		return p.Node(target.GraphNode)
	}
	return p.Node(clipID)
}

// UpdatePropertyOrKeyframe rewrites the constant value, or, for
// keyframed properties, sets a keyframe at the given time.
func (p *Project) UpdatePropertyOrKeyframe(
	clipID ID,
	target PropertyTarget,
	key string,
	time float64,
	value property.Value,
	easing *property.Easing,
) error {
	node, err := p.propertyNode(clipID, target)
	if err != nil {
		return err
	}

	prop := node.Prop(key)
	if prop == nil {
		prop = property.Constant(value)
		if node.Properties == nil {
			node.Properties = property.PropertyMap{}
		}
		node.Properties[key] = prop
	}

	if prop.Type == "keyframe" {
		k := property.Keyframe{Time: time, Value: value, Easing: property.EasingLinear}
		if easing != nil {
			k.Easing = *easing
		}
		prop.SetKeyframe(k)
		return nil
	}

	prop.Value = value
	return nil
}

// SetPropertyType changes the evaluator tag of a property.
func (p *Project) SetPropertyType(clipID ID, target PropertyTarget, key, tag string) error {
	node, err := p.propertyNode(clipID, target)
	if err != nil {
		return err
	}
	prop := node.Prop(key)
	if prop == nil {
		prop = property.Constant(property.Value{})
		if node.Properties == nil {
			node.Properties = property.PropertyMap{}
		}
		node.Properties[key] = prop
	}
	prop.Type = tag
	return nil
}

// SetPropertyAttribute sets a metadata attribute on a property.
func (p *Project) SetPropertyAttribute(
	clipID ID, target PropertyTarget, key, attr, value string,
) error {
	node, err := p.propertyNode(clipID, target)
	if err != nil {
		return err
	}
	prop := node.Prop(key)
	if prop == nil {
		return fmt.Errorf("property does not exist: %v", key)
	}
	prop.SetAttribute(attr, value)
	return nil
}

// AddKeyframe pushes a keyframe and switches the
// property to the keyframe evaluator.
func (p *Project) AddKeyframe(
	clipID ID,
	target PropertyTarget,
	key string,
	k property.Keyframe,
) error {
	node, err := p.propertyNode(clipID, target)
	if err != nil {
		return err
	}
	prop := node.Prop(key)
	if prop == nil {
		prop = property.Constant(k.Value)
		if node.Properties == nil {
			node.Properties = property.PropertyMap{}
		}
		node.Properties[key] = prop
	}
	prop.Type = "keyframe"
	prop.SetKeyframe(k)
	return nil
}

// UpdateKeyframeByIndex replaces a keyframe by time-sorted index.
func (p *Project) UpdateKeyframeByIndex(
	clipID ID,
	target PropertyTarget,
	key string,
	index int,
	k property.Keyframe,
) error {
	node, err := p.propertyNode(clipID, target)
	if err != nil {
		return err
	}
	prop := node.Prop(key)
	if prop == nil {
		return fmt.Errorf("property does not exist: %v", key)
	}
	return prop.UpdateKeyframeByIndex(index, k)
}

// RemoveKeyframeByIndex removes a keyframe by time-sorted index.
func (p *Project) RemoveKeyframeByIndex(
	clipID ID,
	target PropertyTarget,
	key string,
	index int,
) error {
	node, err := p.propertyNode(clipID, target)
	if err != nil {
		return err
	}
	prop := node.Prop(key)
	if prop == nil {
		return fmt.Errorf("property does not exist: %v", key)
	}
	return prop.RemoveKeyframeByIndex(index)
}

// removeNodeCascade removes a node, its descendants, connections
// touching any removed node, and references from parent tracks.
func (p *Project) removeNodeCascade(id ID) {
	removed := map[ID]bool{}
	var walk func(id ID)
	walk = func(id ID) {
		node, exist := p.Nodes[id]
		if !exist {
			return
		}
		removed[id] = true
		for _, child := range node.Children {
			walk(child)
		}
		delete(p.Nodes, id)
	}
	walk(id)

	var conns []*Connection
	for _, c := range p.Connections {
		if !removed[c.From.NodeID] && !removed[c.To.NodeID] {
			conns = append(conns, c)
		}
	}
	p.Connections = conns

	for _, n := range p.Nodes {
		if n.Kind != NodeTrack {
			continue
		}
		children := n.Children[:0]
		for _, child := range n.Children {
			if !removed[child] {
				children = append(children, child)
			}
		}
		n.Children = children
	}
}

func (p *Project) parentOf(id ID) *Node {
	for _, n := range p.Nodes {
		if n.Kind != NodeTrack {
			continue
		}
		for _, child := range n.Children {
			if child == id {
				return n
			}
		}
	}
	return nil
}

func removeID(ids []ID, id ID) []ID {
	out := ids[:0]
	for _, v := range ids {
		if v != id {
			out = append(out, v)
		}
	}
	return out
}

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
	"testing"

	"mgc/pkg/property"

	"github.com/stretchr/testify/require"
)

func newTestProject(t *testing.T) (*Project, *Composition) {
	p := NewProject("test")
	compID := p.AddComposition("comp", 640, 360, 30, 1)

	comp, err := p.Composition(compID)
	require.NoError(t, err)
	return p, comp
}

func TestAddComposition(t *testing.T) {
	p, comp := newTestProject(t)

	require.Equal(t, 640, comp.Width)
	require.Equal(t, int64(29), comp.WorkAreaOut)

	root, err := p.Node(comp.RootTrackID)
	require.NoError(t, err)
	require.Equal(t, NodeTrack, root.Kind)
	require.True(t, root.Visible)
}

func TestRemoveCompositionCascades(t *testing.T) {
	p, comp := newTestProject(t)

	trackID, err := p.AddTrack(comp.ID, "t1")
	require.NoError(t, err)

	clip := NewClip(ClipShape, "", ClipRange{OutFrame: 30}, 640, 360)
	require.NoError(t, p.AddClipToTrack(trackID, clip))

	require.NoError(t, p.RemoveComposition(comp.ID))

	require.Empty(t, p.Compositions)
	require.Empty(t, p.Nodes)
}

func TestTrackCRUD(t *testing.T) {
	p, comp := newTestProject(t)

	trackID, err := p.AddTrack(comp.ID, "t1")
	require.NoError(t, err)

	subID, err := p.AddSubTrack(trackID, "sub")
	require.NoError(t, err)

	require.NoError(t, p.RenameTrack(subID, "renamed"))
	sub, _ := p.Node(subID)
	require.Equal(t, "renamed", sub.Name)

	require.NoError(t, p.RemoveTrack(trackID))
	_, err = p.Node(subID)
	require.ErrorIs(t, err, ErrNodeNotExist)

	root, _ := p.Node(comp.RootTrackID)
	require.Empty(t, root.Children)
}

func TestClipFrameOrder(t *testing.T) {
	p, comp := newTestProject(t)

	clip := NewClip(ClipImage, "", ClipRange{InFrame: 10, OutFrame: 5}, 640, 360)
	err := p.AddClipToTrack(comp.RootTrackID, clip)
	require.ErrorIs(t, err, ErrFrameOrder)
	require.Empty(t, p.Nodes[clip.ID])
}

func TestMoveClipToTrackAtIndex(t *testing.T) {
	p, comp := newTestProject(t)

	t1, err := p.AddTrack(comp.ID, "t1")
	require.NoError(t, err)
	t2, err := p.AddTrack(comp.ID, "t2")
	require.NoError(t, err)

	a := NewClip(ClipShape, "", ClipRange{OutFrame: 10}, 640, 360)
	b := NewClip(ClipShape, "", ClipRange{OutFrame: 10}, 640, 360)
	c := NewClip(ClipShape, "", ClipRange{OutFrame: 10}, 640, 360)
	require.NoError(t, p.AddClipToTrack(t1, a))
	require.NoError(t, p.AddClipToTrack(t2, b))
	require.NoError(t, p.AddClipToTrack(t2, c))

	require.NoError(t, p.MoveClipToTrackAtIndex(a.ID, t2, 1))

	track2, _ := p.Node(t2)
	require.Equal(t, []ID{b.ID, a.ID, c.ID}, track2.Children)

	track1, _ := p.Node(t1)
	require.Empty(t, track1.Children)

	require.NoError(t, p.MoveClipToTrack(b.ID, t1))
	track1, _ = p.Node(t1)
	require.Equal(t, []ID{b.ID}, track1.Children)
}

func TestGraphConnections(t *testing.T) {
	p, comp := newTestProject(t)

	clip := NewClip(ClipShape, "", ClipRange{OutFrame: 30}, 640, 360)
	require.NoError(t, p.AddClipToTrack(comp.RootTrackID, clip))

	fillID, err := p.AddGraphNode(comp.RootTrackID, "style.fill")
	require.NoError(t, err)

	t.Run("connect", func(t *testing.T) {
		connID, err := p.AddGraphConnection(
			Endpoint{clip.ID, "shape_out"},
			Endpoint{fillID, "shape_in"},
		)
		require.NoError(t, err)

		conn, err := p.Connection(connID)
		require.NoError(t, err)
		require.Equal(t, clip.ID, conn.From.NodeID)
	})
	t.Run("duplicateInputRejected", func(t *testing.T) {
		before := len(p.Connections)
		_, err := p.AddGraphConnection(
			Endpoint{clip.ID, "shape_out"},
			Endpoint{fillID, "shape_in"},
		)
		require.ErrorIs(t, err, ErrInputOccupied)
		require.Equal(t, before, len(p.Connections))
	})
	t.Run("typeMismatchRejected", func(t *testing.T) {
		xformID, err := p.AddGraphNode(comp.RootTrackID, "transform.image")
		require.NoError(t, err)

		before := len(p.Connections)
		_, err = p.AddGraphConnection(
			Endpoint{clip.ID, "shape_out"},
			Endpoint{xformID, "image_in"},
		)
		require.ErrorIs(t, err, ErrPinTypeMismatch)
		require.Equal(t, before, len(p.Connections))
	})
	t.Run("unknownNodeRejected", func(t *testing.T) {
		_, err := p.AddGraphConnection(
			Endpoint{"bogus", "shape_out"},
			Endpoint{fillID, "shape_in"},
		)
		require.ErrorIs(t, err, ErrNodeNotExist)
	})
	t.Run("cycleRejected", func(t *testing.T) {
		e1, err := p.AddGraphNode(comp.RootTrackID, "effect.blur")
		require.NoError(t, err)
		e2, err := p.AddGraphNode(comp.RootTrackID, "effect.blur")
		require.NoError(t, err)

		_, err = p.AddGraphConnection(
			Endpoint{e1, "image_out"}, Endpoint{e2, "image_in"})
		require.NoError(t, err)

		before := len(p.Connections)
		_, err = p.AddGraphConnection(
			Endpoint{e2, "image_out"}, Endpoint{e1, "image_in"})
		require.ErrorIs(t, err, ErrCycle)
		require.Equal(t, before, len(p.Connections))
	})
	t.Run("removeGraphNodeDropsConnections", func(t *testing.T) {
		require.NoError(t, p.RemoveGraphNode(fillID))
		for _, c := range p.Connections {
			require.NotEqual(t, fillID, c.From.NodeID)
			require.NotEqual(t, fillID, c.To.NodeID)
		}
	})
}

func TestPropertyOperations(t *testing.T) {
	p, comp := newTestProject(t)

	clip := NewClip(ClipText, "", ClipRange{OutFrame: 30}, 640, 360)
	require.NoError(t, p.AddClipToTrack(comp.RootTrackID, clip))

	t.Run("updateConstant", func(t *testing.T) {
		err := p.UpdatePropertyOrKeyframe(
			clip.ID, PropertyTarget{}, "text", 0, property.String("hello"), nil)
		require.NoError(t, err)
		require.Equal(t, "hello", clip.Prop("text").Value.Str())
	})
	t.Run("addKeyframeSwitchesType", func(t *testing.T) {
		err := p.AddKeyframe(clip.ID, PropertyTarget{}, "opacity", property.Keyframe{
			Time:  0,
			Value: property.Number(0),
		})
		require.NoError(t, err)
		require.Equal(t, "keyframe", clip.Prop("opacity").Type)

		// Keyframed property updates at a time set a keyframe.
		err = p.UpdatePropertyOrKeyframe(
			clip.ID, PropertyTarget{}, "opacity", 1, property.Number(100), nil)
		require.NoError(t, err)
		require.Equal(t, 2, len(clip.Prop("opacity").Keyframes))
	})
	t.Run("graphNodeTarget", func(t *testing.T) {
		fillID, err := p.AddGraphNode(comp.RootTrackID, "style.fill")
		require.NoError(t, err)

		target := PropertyTarget{GraphNode: fillID}
		red := property.Color{R: 255, A: 255}
		err = p.UpdatePropertyOrKeyframe(
			clip.ID, target, "color", 0, property.ColorValue(red), nil)
		require.NoError(t, err)

		fill, _ := p.Node(fillID)
		require.Equal(t, red, fill.Prop("color").Value.Color())
	})
	t.Run("attribute", func(t *testing.T) {
		err := p.SetPropertyAttribute(
			clip.ID, PropertyTarget{}, "opacity", "interpolation", "hsv")
		require.NoError(t, err)
		require.Equal(t, "hsv", clip.Prop("opacity").Attributes["interpolation"])
	})
	t.Run("keyframeByIndex", func(t *testing.T) {
		err := p.UpdateKeyframeByIndex(clip.ID, PropertyTarget{}, "opacity", 0,
			property.Keyframe{Time: 0.5, Value: property.Number(50)})
		require.NoError(t, err)

		err = p.RemoveKeyframeByIndex(clip.ID, PropertyTarget{}, "opacity", 0)
		require.NoError(t, err)
		require.Equal(t, 1, len(clip.Prop("opacity").Keyframes))
	})
}

func TestSaveLoadRoundTrip(t *testing.T) {
	p, comp := newTestProject(t)

	assetID := p.AddAsset(AssetImage, "/tmp/a.png")
	clip := NewClip(ClipText, assetID, ClipRange{OutFrame: 30, FPS: 30}, 640, 360)
	require.NoError(t, p.AddClipToTrack(comp.RootTrackID, clip))

	fillID, err := p.AddGraphNode(comp.RootTrackID, "style.fill")
	require.NoError(t, err)
	_, err = p.AddGraphConnection(
		Endpoint{clip.ID, "shape_out"}, Endpoint{fillID, "shape_in"})
	require.NoError(t, err)

	require.NoError(t, p.AddKeyframe(clip.ID, PropertyTarget{}, "opacity",
		property.Keyframe{Time: 1, Value: property.Number(100), Easing: property.EasingLinear}))

	data, err := p.Save()
	require.NoError(t, err)

	loaded, err := Load(data)
	require.NoError(t, err)

	data2, err := loaded.Save()
	require.NoError(t, err)
	require.JSONEq(t, string(data), string(data2))

	// Key fields survive.
	loadedComp, err := loaded.Composition(comp.ID)
	require.NoError(t, err)
	require.Equal(t, comp.RootTrackID, loadedComp.RootTrackID)

	loadedClip, err := loaded.Node(clip.ID)
	require.NoError(t, err)
	require.Equal(t, ClipText, loadedClip.ClipKind)
	require.True(t, loadedClip.Visible)
	require.Equal(t, "keyframe", loadedClip.Prop("opacity").Type)
}

func TestLoadDefaults(t *testing.T) {
	data := []byte(`{
		"name": "p",
		"compositions": [{"id": "c1", "name": "c", "width": 10, "height": 10, "root_track_id": "n1"}],
		"nodes": {"n1": {"kind": "track"}}
	}`)

	p, err := Load(data)
	require.NoError(t, err)

	comp, err := p.Composition("c1")
	require.NoError(t, err)
	require.Equal(t, float64(30), comp.FPS)

	root, err := p.Node("n1")
	require.NoError(t, err)
	require.Equal(t, "n1", root.ID)
	require.True(t, root.Visible)
}

func TestClone(t *testing.T) {
	p, comp := newTestProject(t)

	clip := NewClip(ClipShape, "", ClipRange{OutFrame: 30}, 640, 360)
	require.NoError(t, p.AddClipToTrack(comp.RootTrackID, clip))

	snapshot := p.Clone()

	// Mutating the original must not affect the snapshot.
	require.NoError(t, p.UpdatePropertyOrKeyframe(
		clip.ID, PropertyTarget{}, "path", 0, property.String("M 0 0"), nil))
	require.NoError(t, p.RemoveClipFromTrack(clip.ID))

	cloned, err := snapshot.Node(clip.ID)
	require.NoError(t, err)
	require.Equal(t, "", cloned.Prop("path").Value.Str())
}

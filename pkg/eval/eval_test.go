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
	"context"
	"image"
	"testing"

	"mgc/pkg/cache"
	"mgc/pkg/log"
	"mgc/pkg/project"
	"mgc/pkg/property"
	"mgc/pkg/render"
	"mgc/pkg/shape"

	"github.com/stretchr/testify/require"
)

type testEngine struct {
	proj  *project.Project
	comp  *project.Composition
	cache *cache.Manager
	fonts *shape.FontCache
	nodes *Registry
}

func newTestEngine(t *testing.T, w, h int, fps float64) *testEngine {
	t.Helper()

	proj := project.NewProject("test")
	compID := proj.AddComposition("comp", w, h, fps, 1)
	comp, err := proj.Composition(compID)
	require.NoError(t, err)

	return &testEngine{
		proj:  proj,
		comp:  comp,
		cache: cache.NewManager(48000, log.NewMockLogger()),
		fonts: shape.NewFontCache("/nonexistent"),
		nodes: NewRegistry(),
	}
}

func (e *testEngine) context(frame int64) *Context {
	newRenderer := func(w, h int) render.Renderer {
		return render.NewRaster(w, h, e.fonts)
	}
	return NewContext(
		e.proj, e.comp,
		newRenderer(e.comp.Width, e.comp.Height), newRenderer,
		e.cache,
		property.NewRegistry(),
		e.nodes,
		NewEffectRegistry(),
		e.fonts,
		log.NewMockLogger(),
		frame, 1, nil,
	)
}

func (e *testEngine) render(t *testing.T, frame int64) *image.RGBA {
	t.Helper()
	img, err := EvaluateComposition(e.context(frame))
	require.NoError(t, err)
	return img.ToRGBA()
}

// E1: an empty composition renders the background color at the
// composition dimensions.
func TestEvaluateEmptyComposition(t *testing.T) {
	e := newTestEngine(t, 640, 360, 30)

	out := e.render(t, 0)
	require.Equal(t, image.Rect(0, 0, 640, 360), out.Bounds())

	c := out.RGBAAt(320, 180)
	require.Equal(t, uint8(0), c.R)
	require.Equal(t, uint8(255), c.A)
}

func TestRenderScaleDimensions(t *testing.T) {
	e := newTestEngine(t, 640, 360, 30)

	newRenderer := func(w, h int) render.Renderer {
		return render.NewRaster(w, h, e.fonts)
	}
	top := render.NewRaster(640, 360, e.fonts)
	top.SetRenderScale(0.5)

	ctx := NewContext(
		e.proj, e.comp, top, newRenderer, e.cache,
		property.NewRegistry(), e.nodes, NewEffectRegistry(),
		e.fonts, log.NewMockLogger(), 0, 0.5, nil,
	)
	img, err := EvaluateComposition(ctx)
	require.NoError(t, err)
	require.Equal(t, image.Rect(0, 0, 320, 180), img.Bounds())
}

// E2: a shape clip with a fill style renders a red square.
func TestShapeFillChain(t *testing.T) {
	e := newTestEngine(t, 100, 100, 30)

	clip := project.NewClip(project.ClipShape, "", project.ClipRange{OutFrame: 30}, 100, 100)
	require.NoError(t, e.proj.AddClipToTrack(e.comp.RootTrackID, clip))
	require.NoError(t, e.proj.UpdatePropertyOrKeyframe(
		clip.ID, project.PropertyTarget{}, "path", 0,
		property.String("M 10 10 H 90 V 90 H 10 Z"), nil))

	fillID, err := e.proj.AddGraphNode(e.comp.RootTrackID, "style.fill")
	require.NoError(t, err)
	require.NoError(t, e.proj.UpdatePropertyOrKeyframe(
		clip.ID, project.PropertyTarget{GraphNode: fillID}, "color", 0,
		property.ColorValue(property.Color{R: 255, A: 255}), nil))

	_, err = e.proj.AddGraphConnection(
		project.Endpoint{NodeID: clip.ID, Pin: "shape_out"},
		project.Endpoint{NodeID: fillID, Pin: "shape_in"})
	require.NoError(t, err)

	out := e.render(t, 5)

	inside := out.RGBAAt(50, 50)
	require.Equal(t, uint8(255), inside.R)
	require.Equal(t, uint8(0), inside.G)

	outside := out.RGBAAt(5, 5)
	require.Equal(t, uint8(0), outside.R)
}

// A shape chain without a style node produces no image.
func TestShapeChainWithoutStyle(t *testing.T) {
	e := newTestEngine(t, 100, 100, 30)

	clip := project.NewClip(project.ClipShape, "", project.ClipRange{OutFrame: 30}, 100, 100)
	require.NoError(t, e.proj.AddClipToTrack(e.comp.RootTrackID, clip))
	require.NoError(t, e.proj.UpdatePropertyOrKeyframe(
		clip.ID, project.PropertyTarget{}, "path", 0,
		property.String("M 10 10 H 90 V 90 H 10 Z"), nil))

	ctx := e.context(5)
	img, err := ctx.resolveImageChain(clip)
	require.NoError(t, err)
	require.Nil(t, img)
}

// E4: text with a step_delay effector, "A" visible at t=0,
// both visible at t=0.5.
func TestTextStepDelay(t *testing.T) {
	e := newTestEngine(t, 400, 200, 30)

	clip := project.NewClip(project.ClipText, "", project.ClipRange{OutFrame: 30}, 400, 200)
	require.NoError(t, e.proj.AddClipToTrack(e.comp.RootTrackID, clip))
	require.NoError(t, e.proj.UpdatePropertyOrKeyframe(
		clip.ID, project.PropertyTarget{}, "text", 0, property.String("AB"), nil))
	require.NoError(t, e.proj.UpdatePropertyOrKeyframe(
		clip.ID, project.PropertyTarget{}, "size", 0, property.Number(100), nil))

	stepID, err := e.proj.AddGraphNode(e.comp.RootTrackID, "effector.step_delay")
	require.NoError(t, err)
	target := project.PropertyTarget{GraphNode: stepID}
	require.NoError(t, e.proj.UpdatePropertyOrKeyframe(clip.ID, target, "delay", 0, property.Number(0.5), nil))
	require.NoError(t, e.proj.UpdatePropertyOrKeyframe(clip.ID, target, "duration", 0, property.Number(0), nil))
	require.NoError(t, e.proj.UpdatePropertyOrKeyframe(clip.ID, target, "from_opacity", 0, property.Number(0), nil))
	require.NoError(t, e.proj.UpdatePropertyOrKeyframe(clip.ID, target, "to_opacity", 0, property.Number(100), nil))

	fillID, err := e.proj.AddGraphNode(e.comp.RootTrackID, "style.fill")
	require.NoError(t, err)

	_, err = e.proj.AddGraphConnection(
		project.Endpoint{NodeID: clip.ID, Pin: "shape_out"},
		project.Endpoint{NodeID: stepID, Pin: "shape_in"})
	require.NoError(t, err)
	_, err = e.proj.AddGraphConnection(
		project.Endpoint{NodeID: stepID, Pin: "shape_out"},
		project.Endpoint{NodeID: fillID, Pin: "shape_in"})
	require.NoError(t, err)

	shapeVal := func(frame int64) *shape.Data {
		ctx := e.context(frame)
		v, err := ctx.EvaluatePin(project.Endpoint{NodeID: stepID, Pin: "shape_out"})
		require.NoError(t, err)
		require.Equal(t, KindShape, v.Kind)
		return v.Shape
	}

	// Frame 0: "A" full opacity, "B" invisible.
	data := shapeVal(0)
	require.Equal(t, 1.0, data.Groups[0].Transform.Opacity)
	require.Equal(t, 0.0, data.Groups[1].Transform.Opacity)

	// Frame 15 (t=0.5): both visible.
	data = shapeVal(15)
	require.Equal(t, 1.0, data.Groups[0].Transform.Opacity)
	require.Equal(t, 1.0, data.Groups[1].Transform.Opacity)
}

// Memoization law: the same pin evaluated twice in one frame yields
// the identical value and evaluates once.
func TestPinMemoization(t *testing.T) {
	e := newTestEngine(t, 10, 10, 30)

	count := 0
	e.nodes.Register("test.", nodeEvaluatorFunc(func(ctx *Context, n *project.Node, pin string) (Value, error) {
		count++
		return PropValue(property.Number(float64(count))), nil
	}))

	id, err := e.proj.AddGraphNode(e.comp.RootTrackID, "test.count")
	require.NoError(t, err)

	ctx := e.context(0)
	ep := project.Endpoint{NodeID: id, Pin: "value_out"}

	v1, err := ctx.EvaluatePin(ep)
	require.NoError(t, err)
	v2, err := ctx.EvaluatePin(ep)
	require.NoError(t, err)

	require.True(t, v1.Prop.Equal(v2.Prop))
	require.Equal(t, 1, count)

	// A fresh context re-evaluates.
	_, err = e.context(0).EvaluatePin(ep)
	require.NoError(t, err)
	require.Equal(t, 2, count)
}

type nodeEvaluatorFunc func(*Context, *project.Node, string) (Value, error)

func (f nodeEvaluatorFunc) Evaluate(ctx *Context, n *project.Node, pin string) (Value, error) {
	return f(ctx, n, pin)
}

func TestTrackPulledError(t *testing.T) {
	e := newTestEngine(t, 10, 10, 30)

	ctx := e.context(0)
	_, err := ctx.EvaluatePin(project.Endpoint{NodeID: e.comp.RootTrackID, Pin: "image_out"})
	require.ErrorIs(t, err, ErrTrackPulled)
}

func TestClipTimingGuard(t *testing.T) {
	e := newTestEngine(t, 10, 10, 30)

	clip := project.NewClip(project.ClipShape, "",
		project.ClipRange{InFrame: 10, OutFrame: 20}, 10, 10)
	require.NoError(t, e.proj.AddClipToTrack(e.comp.RootTrackID, clip))
	require.NoError(t, e.proj.UpdatePropertyOrKeyframe(
		clip.ID, project.PropertyTarget{}, "path", 0, property.String("M 0 0 H 5"), nil))

	ctx := e.context(5)
	v, err := ctx.EvaluatePin(project.Endpoint{NodeID: clip.ID, Pin: "shape_out"})
	require.NoError(t, err)
	require.Equal(t, KindNone, v.Kind)

	ctx = e.context(15)
	v, err = ctx.EvaluatePin(project.Endpoint{NodeID: clip.ID, Pin: "shape_out"})
	require.NoError(t, err)
	require.Equal(t, KindShape, v.Kind)
}

type frameCapturePlugin struct {
	frames []int64
}

func (p *frameCapturePlugin) Accepts(req cache.LoadRequest) bool {
	return req.Kind == cache.RequestVideoFrame
}

func (p *frameCapturePlugin) Load(_ context.Context, req cache.LoadRequest) (*cache.Result, error) {
	p.frames = append(p.frames, req.Frame)
	return &cache.Result{Image: image.NewRGBA(image.Rect(0, 0, 2, 2))}, nil
}

// E5: video source frame mapping.
func TestVideoFrameMapping(t *testing.T) {
	e := newTestEngine(t, 10, 10, 60)

	plugin := &frameCapturePlugin{}
	e.cache.RegisterPlugin(plugin)

	clip := project.NewClip(project.ClipVideo, "", project.ClipRange{
		InFrame:          10,
		OutFrame:         40,
		SourceBeginFrame: 100,
		FPS:              30,
	}, 10, 10)
	require.NoError(t, e.proj.AddClipToTrack(e.comp.RootTrackID, clip))
	require.NoError(t, e.proj.UpdatePropertyOrKeyframe(
		clip.ID, project.PropertyTarget{}, "file_path", 0, property.String("/v.mp4"), nil))

	ctx := e.context(20)
	v, err := ctx.EvaluatePin(project.Endpoint{NodeID: clip.ID, Pin: "image_out"})
	require.NoError(t, err)
	require.Equal(t, KindImage, v.Kind)

	// 100 + round((20-10) * 30/60) = 105.
	require.Equal(t, []int64{105}, plugin.frames)
}

func TestEffectorOpacityModes(t *testing.T) {
	e := newTestEngine(t, 10, 10, 30)

	data, err := shape.DecomposeText("A", shape.Fallback(), 50)
	require.NoError(t, err)

	apply := func(mode string, opacity float64) float64 {
		id, err := e.proj.AddGraphNode(e.comp.RootTrackID, "effector.opacity")
		require.NoError(t, err)
		node, _ := e.proj.Node(id)
		node.Properties["opacity"] = property.Constant(property.Number(opacity))
		node.Properties["mode"] = property.Constant(property.String(mode))

		clone := data.Clone()
		applyOpacityEffector(e.context(0), node, clone)
		return clone.Groups[0].Transform.Opacity
	}

	require.Equal(t, 0.25, apply("set", 0.25))
	require.Equal(t, 0.5, apply("multiply", 0.5))
	require.Equal(t, 1.0, apply("add", 0.7))
}

func TestRandomizeDeterministic(t *testing.T) {
	e := newTestEngine(t, 10, 10, 30)

	id, err := e.proj.AddGraphNode(e.comp.RootTrackID, "effector.randomize")
	require.NoError(t, err)
	node, _ := e.proj.Node(id)
	node.Properties["seed"] = property.Constant(property.Integer(7))

	data, err := shape.DecomposeText("AB", shape.Fallback(), 50)
	require.NoError(t, err)

	a := data.Clone()
	applyRandomize(e.context(0), node, a)
	b := data.Clone()
	applyRandomize(e.context(0), node, b)

	require.Equal(t, a.Groups[0].Transform, b.Groups[0].Transform)
	require.NotEqual(t, data.Groups[0].Transform, a.Groups[0].Transform)
	// Different groups jitter differently.
	require.NotEqual(t, a.Groups[0].Transform.Translate, a.Groups[1].Transform.Translate)
}

func TestDecoratorBackplate(t *testing.T) {
	e := newTestEngine(t, 10, 10, 30)

	data, err := shape.DecomposeText("AB\nCD", shape.Fallback(), 50)
	require.NoError(t, err)

	newNode := func(target string) *project.Node {
		id, err := e.proj.AddGraphNode(e.comp.RootTrackID, "decorator.backplate")
		require.NoError(t, err)
		node, _ := e.proj.Node(id)
		node.Properties["target"] = property.Constant(property.String(target))
		return node
	}

	t.Run("char", func(t *testing.T) {
		clone := data.Clone()
		applyBackplate(e.context(0), newNode("char"), clone)
		for _, g := range clone.Groups {
			require.Equal(t, 1, len(g.Decorations))
			require.True(t, g.Decorations[0].Behind)
		}
	})
	t.Run("line", func(t *testing.T) {
		clone := data.Clone()
		applyBackplate(e.context(0), newNode("line"), clone)
		// First group of each line gets the plate.
		require.Equal(t, 1, len(clone.Groups[0].Decorations))
		require.Empty(t, clone.Groups[1].Decorations)
		require.Equal(t, 1, len(clone.Groups[2].Decorations))
	})
	t.Run("block", func(t *testing.T) {
		clone := data.Clone()
		applyBackplate(e.context(0), newNode("block"), clone)
		require.Equal(t, 1, len(clone.Groups[0].Decorations))
		require.Empty(t, clone.Groups[1].Decorations)
	})
}

func TestTransformNode(t *testing.T) {
	e := newTestEngine(t, 100, 100, 30)

	clip := project.NewClip(project.ClipShape, "", project.ClipRange{OutFrame: 30}, 100, 100)
	require.NoError(t, e.proj.AddClipToTrack(e.comp.RootTrackID, clip))
	require.NoError(t, e.proj.UpdatePropertyOrKeyframe(
		clip.ID, project.PropertyTarget{}, "path", 0,
		property.String("M 0 0 H 20 V 20 H 0 Z"), nil))

	fillID, err := e.proj.AddGraphNode(e.comp.RootTrackID, "style.fill")
	require.NoError(t, err)
	xformID, err := e.proj.AddGraphNode(e.comp.RootTrackID, "transform.image")
	require.NoError(t, err)

	xform, _ := e.proj.Node(xformID)
	xform.Properties["position"] = property.Constant(property.Vec2(50, 50))

	_, err = e.proj.AddGraphConnection(
		project.Endpoint{NodeID: clip.ID, Pin: "shape_out"},
		project.Endpoint{NodeID: fillID, Pin: "shape_in"})
	require.NoError(t, err)
	_, err = e.proj.AddGraphConnection(
		project.Endpoint{NodeID: fillID, Pin: "image_out"},
		project.Endpoint{NodeID: xformID, Pin: "image_in"})
	require.NoError(t, err)

	out := e.render(t, 0)

	// The square moved from the origin to (50,50).
	require.NotZero(t, out.RGBAAt(60, 60).R)
	require.Zero(t, out.RGBAAt(10, 10).R)
}

func TestLayerOutputOverride(t *testing.T) {
	e := newTestEngine(t, 50, 50, 30)

	subID, err := e.proj.AddTrack(e.comp.ID, "sub")
	require.NoError(t, err)

	// A clip inside the sub-track that would paint the surface.
	clip := project.NewClip(project.ClipShape, "", project.ClipRange{OutFrame: 30}, 50, 50)
	require.NoError(t, e.proj.AddClipToTrack(subID, clip))
	require.NoError(t, e.proj.UpdatePropertyOrKeyframe(
		clip.ID, project.PropertyTarget{}, "path", 0,
		property.String("M 0 0 H 50 V 50 H 0 Z"), nil))

	fillID, err := e.proj.AddGraphNode(subID, "style.fill")
	require.NoError(t, err)
	_, err = e.proj.AddGraphConnection(
		project.Endpoint{NodeID: clip.ID, Pin: "shape_out"},
		project.Endpoint{NodeID: fillID, Pin: "shape_in"})
	require.NoError(t, err)

	// Override the sub-track output with the fill node image.
	_, err = e.proj.AddGraphConnection(
		project.Endpoint{NodeID: fillID, Pin: "image_out"},
		project.Endpoint{NodeID: subID, Pin: "image_out"})
	require.NoError(t, err)

	out := e.render(t, 0)
	require.NotZero(t, out.RGBAAt(25, 25).R)
}

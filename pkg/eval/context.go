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

// Package eval is the pull-based node-graph evaluator. One Context is
// constructed per frame, every pin is evaluated at most once per
// frame.
package eval

import (
	"context"
	"image"

	"mgc/pkg/cache"
	"mgc/pkg/log"
	"mgc/pkg/project"
	"mgc/pkg/property"
	"mgc/pkg/render"
	"mgc/pkg/shape"
)

// ValueKind pin value variant.
type ValueKind uint8

// Pin value kinds.
const (
	KindNone ValueKind = iota
	KindImage
	KindShape
	KindProp
)

// Value is a typed pin value.
type Value struct {
	Kind  ValueKind
	Image render.Image
	Shape *shape.Data
	Prop  property.Value
}

// None is the unconnected-pin value.
var None = Value{}

// ImageValue wraps an image.
func ImageValue(img render.Image) Value { return Value{Kind: KindImage, Image: img} }

// ShapeValue wraps shape data.
func ShapeValue(data *shape.Data) Value { return Value{Kind: KindShape, Shape: data} }

// PropValue wraps a property value.
func PropValue(v property.Value) Value { return Value{Kind: KindProp, Prop: v} }

// RendererFunc creates a renderer layer. Layer renderers render at
// scale 1, the output scale is applied by the top-level renderer.
type RendererFunc func(w, h int) render.Renderer

type memoKey struct {
	node project.ID
	pin  string
}

// Context carries everything needed to resolve any pin for one frame.
type Context struct {
	Project *project.Project
	Comp    *project.Composition

	Renderer    render.Renderer
	NewRenderer RendererFunc

	Cache   *cache.Manager
	Props   *property.Registry
	Nodes   *Registry
	Effects *EffectRegistry
	Fonts   *shape.FontCache
	Log     *log.Logger

	FrameNumber int64
	Time        float64
	RenderScale float64
	Region      *image.Rectangle

	memo map[memoKey]Value
}

// NewContext returns a per-frame evaluation context.
func NewContext(
	proj *project.Project,
	comp *project.Composition,
	renderer render.Renderer,
	newRenderer RendererFunc,
	cacheManager *cache.Manager,
	props *property.Registry,
	nodes *Registry,
	effects *EffectRegistry,
	fonts *shape.FontCache,
	logger *log.Logger,
	frameNumber int64,
	renderScale float64,
	region *image.Rectangle,
) *Context {
	return &Context{
		Project:     proj,
		Comp:        comp,
		Renderer:    renderer,
		NewRenderer: newRenderer,
		Cache:       cacheManager,
		Props:       props,
		Nodes:       nodes,
		Effects:     effects,
		Fonts:       fonts,
		Log:         logger,
		FrameNumber: frameNumber,
		Time:        float64(frameNumber) / comp.FPS,
		RenderScale: renderScale,
		Region:      region,
		memo:        map[memoKey]Value{},
	}
}

// subContext returns a context for a nested composition sharing the
// frame cache but targeting another composition.
func (ctx *Context) subContext(comp *project.Composition, frameNumber int64, renderer render.Renderer) *Context {
	sub := *ctx
	sub.Comp = comp
	sub.Renderer = renderer
	sub.FrameNumber = frameNumber
	sub.Time = float64(frameNumber) / comp.FPS
	sub.RenderScale = 1
	sub.Region = nil
	sub.memo = map[memoKey]Value{}
	return &sub
}

// resolve evaluates a property on a node at the context time.
func (ctx *Context) resolve(node *project.Node, name string) property.Value {
	return ctx.resolveAt(node, name, ctx.Time)
}

func (ctx *Context) resolveAt(node *project.Node, name string, t float64) property.Value {
	return ctx.Props.Resolve(node.Prop(name), t, ctx.Comp.FPS)
}

// background is the context loaders block under. Evaluation itself
// never blocks on external resources except by way of loader calls.
func (ctx *Context) background() context.Context {
	return context.Background()
}

func (ctx *Context) logErr(src string, err error) {
	if ctx.Log == nil {
		return
	}
	ctx.Log.Error().Src(src).Comp(ctx.Comp.ID).Msgf("%v", err)
}

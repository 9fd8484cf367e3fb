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

// Package service is the surface the core exposes to the editor.
// Mutations take the write lock and commit atomically, evaluation
// holds the read lock for one frame or clones a snapshot.
package service

import (
	"fmt"
	"image"
	"sync"

	"mgc/pkg/audio"
	"mgc/pkg/cache"
	"mgc/pkg/eval"
	"mgc/pkg/export"
	"mgc/pkg/log"
	"mgc/pkg/project"
	"mgc/pkg/property"
	"mgc/pkg/render"
	"mgc/pkg/shape"
	"mgc/pkg/system"
)

// Service owns the project state.
type Service struct {
	mu   sync.RWMutex
	proj *project.Project

	cache   *cache.Manager
	props   *property.Registry
	nodes   *eval.Registry
	effects *eval.EffectRegistry
	fonts   *shape.FontCache
	shader  render.ShaderHandler
	log     *log.Logger

	ffmpegBin  string
	sampleRate int

	pump *audio.Pump
}

// Config service dependencies.
type Config struct {
	FontDir    string
	FFmpegBin  string
	SampleRate int

	Cache  *cache.Manager
	Logger *log.Logger
}

// New returns a service with an empty project.
func New(cfg Config) *Service {
	if cfg.SampleRate == 0 {
		cfg.SampleRate = 48000
	}

	s := &Service{
		proj:       project.NewProject(""),
		cache:      cfg.Cache,
		props:      property.NewRegistry(),
		nodes:      eval.NewRegistry(),
		effects:    eval.NewEffectRegistry(),
		fonts:      shape.NewFontCache(cfg.FontDir),
		log:        cfg.Logger,
		ffmpegBin:  cfg.FFmpegBin,
		sampleRate: cfg.SampleRate,
	}

	mixer := &audio.Mixer{
		Cache:      cfg.Cache,
		Props:      s.props,
		SampleRate: cfg.SampleRate,
	}
	s.pump = audio.NewPump(audio.NewRing(cfg.SampleRate*4), mixer)

	return s
}

// NodeRegistry for plugin registration at startup.
func (s *Service) NodeRegistry() *eval.Registry { return s.nodes }

// EffectRegistry for plugin registration at startup.
func (s *Service) EffectRegistry() *eval.EffectRegistry { return s.effects }

// PropertyRegistry for plugin registration at startup.
func (s *Service) PropertyRegistry() *property.Registry { return s.props }

// SetShaderHandler installs the shader rasterization plugin.
func (s *Service) SetShaderHandler(h render.ShaderHandler) {
	s.shader = h
}

// Pump returns the audio pump.
func (s *Service) Pump() *audio.Pump { return s.pump }

// NewProject replaces the project with an empty one.
func (s *Service) NewProject(name string) {
	defer s.mu.Unlock()
	s.mu.Lock()
	s.proj = project.NewProject(name)
}

// Load replaces the project from JSON.
func (s *Service) Load(data []byte) error {
	proj, err := project.Load(data)
	if err != nil {
		return err
	}

	defer s.mu.Unlock()
	s.mu.Lock()
	s.proj = proj
	return nil
}

// Save serializes the project as JSON.
func (s *Service) Save() ([]byte, error) {
	defer s.mu.RUnlock()
	s.mu.RLock()
	return s.proj.Save()
}

// write runs a mutation under the write lock.
func (s *Service) write(fn func(p *project.Project) error) error {
	defer s.mu.Unlock()
	s.mu.Lock()
	return fn(s.proj)
}

// AddComposition creates a composition and returns its id.
func (s *Service) AddComposition(name string, w, h int, fps, duration float64) project.ID {
	defer s.mu.Unlock()
	s.mu.Lock()
	return s.proj.AddComposition(name, w, h, fps, duration)
}

// UpdateComposition updates composition fields.
func (s *Service) UpdateComposition(id project.ID, upd project.CompositionUpdate) error {
	return s.write(func(p *project.Project) error { return p.UpdateComposition(id, upd) })
}

// RemoveComposition removes a composition.
func (s *Service) RemoveComposition(id project.ID) error {
	return s.write(func(p *project.Project) error { return p.RemoveComposition(id) })
}

// AddTrack adds a track to a composition.
func (s *Service) AddTrack(compID project.ID, name string) (project.ID, error) {
	defer s.mu.Unlock()
	s.mu.Lock()
	return s.proj.AddTrack(compID, name)
}

// AddSubTrack adds a track inside another track.
func (s *Service) AddSubTrack(parentID project.ID, name string) (project.ID, error) {
	defer s.mu.Unlock()
	s.mu.Lock()
	return s.proj.AddSubTrack(parentID, name)
}

// RenameTrack renames a track.
func (s *Service) RenameTrack(id project.ID, name string) error {
	return s.write(func(p *project.Project) error { return p.RenameTrack(id, name) })
}

// RemoveTrack removes a track and its children.
func (s *Service) RemoveTrack(id project.ID) error {
	return s.write(func(p *project.Project) error { return p.RemoveTrack(id) })
}

// AddClipToTrack adds a clip to a track.
func (s *Service) AddClipToTrack(trackID project.ID, clip *project.Node) error {
	return s.write(func(p *project.Project) error { return p.AddClipToTrack(trackID, clip) })
}

// RemoveClipFromTrack removes a clip.
func (s *Service) RemoveClipFromTrack(clipID project.ID) error {
	return s.write(func(p *project.Project) error { return p.RemoveClipFromTrack(clipID) })
}

// MoveClipToTrack moves a clip to the end of another track.
func (s *Service) MoveClipToTrack(clipID, toTrackID project.ID) error {
	return s.write(func(p *project.Project) error { return p.MoveClipToTrack(clipID, toTrackID) })
}

// MoveClipToTrackAtIndex moves a clip to an index in another track.
func (s *Service) MoveClipToTrackAtIndex(clipID, toTrackID project.ID, index int) error {
	return s.write(func(p *project.Project) error {
		return p.MoveClipToTrackAtIndex(clipID, toTrackID, index)
	})
}

// AddGraphNode adds a graph node to a container.
func (s *Service) AddGraphNode(containerID project.ID, typeID string) (project.ID, error) {
	defer s.mu.Unlock()
	s.mu.Lock()
	return s.proj.AddGraphNode(containerID, typeID)
}

// RemoveGraphNode removes a graph node.
func (s *Service) RemoveGraphNode(id project.ID) error {
	return s.write(func(p *project.Project) error { return p.RemoveGraphNode(id) })
}

// AddGraphConnection connects two pins.
func (s *Service) AddGraphConnection(from, to project.Endpoint) (project.ID, error) {
	defer s.mu.Unlock()
	s.mu.Lock()
	return s.proj.AddGraphConnection(from, to)
}

// RemoveGraphConnection removes a connection.
func (s *Service) RemoveGraphConnection(id project.ID) error {
	return s.write(func(p *project.Project) error { return p.RemoveGraphConnection(id) })
}

// AddAsset registers an asset.
func (s *Service) AddAsset(kind project.AssetKind, path string) project.ID {
	defer s.mu.Unlock()
	s.mu.Lock()
	return s.proj.AddAsset(kind, path)
}

// UpdatePropertyOrKeyframe rewrites a constant or sets a keyframe.
func (s *Service) UpdatePropertyOrKeyframe(
	clipID project.ID,
	target project.PropertyTarget,
	key string,
	time float64,
	value property.Value,
	easing *property.Easing,
) error {
	return s.write(func(p *project.Project) error {
		return p.UpdatePropertyOrKeyframe(clipID, target, key, time, value, easing)
	})
}

// SetPropertyAttribute sets property metadata.
func (s *Service) SetPropertyAttribute(
	clipID project.ID, target project.PropertyTarget, key, attr, value string,
) error {
	return s.write(func(p *project.Project) error {
		return p.SetPropertyAttribute(clipID, target, key, attr, value)
	})
}

// AddKeyframe pushes a keyframe.
func (s *Service) AddKeyframe(
	clipID project.ID, target project.PropertyTarget, key string, k property.Keyframe,
) error {
	return s.write(func(p *project.Project) error {
		return p.AddKeyframe(clipID, target, key, k)
	})
}

// UpdateKeyframeByIndex replaces a keyframe by index.
func (s *Service) UpdateKeyframeByIndex(
	clipID project.ID, target project.PropertyTarget, key string, index int, k property.Keyframe,
) error {
	return s.write(func(p *project.Project) error {
		return p.UpdateKeyframeByIndex(clipID, target, key, index, k)
	})
}

// RemoveKeyframeByIndex removes a keyframe by index.
func (s *Service) RemoveKeyframeByIndex(
	clipID project.ID, target project.PropertyTarget, key string, index int,
) error {
	return s.write(func(p *project.Project) error {
		return p.RemoveKeyframeByIndex(clipID, target, key, index)
	})
}

// Project returns the live project. Callers must not hold the
// returned pointer across mutations.
func (s *Service) Project() *project.Project {
	defer s.mu.RUnlock()
	s.mu.RLock()
	return s.proj
}

// RenderFrame renders one frame of a composition.
func (s *Service) RenderFrame(
	compID project.ID,
	frameNumber int64,
	renderScale float64,
	region *image.Rectangle,
) (render.Image, error) {
	defer s.mu.RUnlock()
	s.mu.RLock()

	return renderFrame(
		s.proj, compID, frameNumber, renderScale, region,
		s.fonts, s.shader, s.cache, s.props, s.nodes, s.effects, s.log,
	)
}

func renderFrame(
	proj *project.Project,
	compID project.ID,
	frameNumber int64,
	renderScale float64,
	region *image.Rectangle,
	fonts *shape.FontCache,
	shader render.ShaderHandler,
	cacheManager *cache.Manager,
	props *property.Registry,
	nodes *eval.Registry,
	effects *eval.EffectRegistry,
	logger *log.Logger,
) (render.Image, error) {
	comp, err := proj.Composition(compID)
	if err != nil {
		return nil, err
	}
	if renderScale <= 0 {
		renderScale = 1
	}

	newLayer := func(w, h int) render.Renderer {
		r := render.NewRaster(w, h, fonts)
		if shader != nil {
			r.SetShaderHandler(shader)
		}
		return r
	}

	top := render.NewRaster(comp.Width, comp.Height, fonts)
	if shader != nil {
		top.SetShaderHandler(shader)
	}
	top.SetRenderScale(renderScale)
	top.SetRegion(region)

	ctx := eval.NewContext(
		proj, comp, top, newLayer, cacheManager,
		props, nodes, effects, fonts, logger,
		frameNumber, renderScale, region,
	)
	return eval.EvaluateComposition(ctx)
}

// SetTime moves the playhead: synthesizes a scrub preview.
func (s *Service) SetTime(compID project.ID, time float64) error {
	defer s.mu.RUnlock()
	s.mu.RLock()

	comp, err := s.proj.Composition(compID)
	if err != nil {
		return err
	}
	s.pump.SetSource(s.proj, comp)
	s.pump.Reset(time)
	return nil
}

// FrameRange half-open frame range.
type FrameRange struct {
	From int64
	To   int64
}

// RenderRange exports a frame range. PNG containers write one file
// per frame, everything else routes to the video exporter with a
// single ordered render worker.
func (s *Service) RenderRange(
	compID project.ID,
	frames FrameRange,
	outputStem string,
	cfg project.ExportConfig,
) error {
	// Export runs on a cloned snapshot so long renders don't
	// stall the editor.
	s.mu.RLock()
	snapshot := s.proj.Clone()
	s.mu.RUnlock()

	comp, err := snapshot.Composition(compID)
	if err != nil {
		return err
	}

	total := frames.To - frames.From
	if total <= 0 {
		return fmt.Errorf("empty frame range: %v..%v", frames.From, frames.To)
	}

	workers := system.Parallelism()
	if int64(workers) > total {
		workers = int(total)
	}

	var exporter export.Exporter
	perFrame := !cfg.IsVideo()
	if perFrame {
		exporter = &export.PNGExporter{}
	} else {
		// Strict frame ordering for the encoder pipe.
		workers = 1

		mixer := &audio.Mixer{Cache: s.cache, Props: s.props, SampleRate: s.sampleRate}
		mixer.Preload(snapshot, comp)
		pump := audio.NewPump(audio.NewRing(1), mixer)
		pump.SetSource(snapshot, comp)
		samples := pump.Render(
			float64(frames.From)/comp.FPS,
			float64(total)/comp.FPS,
		)

		outputPath := export.ExpandStem(outputStem, snapshot.Name, comp.Name, 0, false)
		if cfg.Container != "" {
			outputPath += "." + cfg.Container
		}

		videoExporter, err := export.NewFFmpegExporter(
			cfg, outputPath, s.ffmpegBin, comp.Width, comp.Height, samples, s.log)
		if err != nil {
			return err
		}
		exporter = videoExporter
	}

	newRenderer := func() render.Renderer {
		// Unused, the render func builds a fresh renderer per frame
		// so scale and region state never leak between frames.
		return render.NewRaster(comp.Width, comp.Height, s.fonts)
	}
	renderOne := func(_ render.Renderer, frameIndex int64) (render.Image, error) {
		return renderFrame(
			snapshot, compID, frameIndex, 1, nil,
			s.fonts, s.shader, s.cache, s.props, s.nodes, s.effects, s.log,
		)
	}

	queue := export.NewQueue(
		export.Config{Workers: workers},
		newRenderer, renderOne, exporter, s.log,
	)

	for frame := frames.From; frame < frames.To; frame++ {
		job := export.Job{
			FrameIndex: frame,
			FrameTime:  float64(frame) / comp.FPS,
			OutputPath: export.ExpandStem(outputStem, snapshot.Name, comp.Name, frame, perFrame),
		}
		if err := queue.Submit(job); err != nil {
			break
		}
	}
	return queue.Finish()
}

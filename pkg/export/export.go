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

// Package export drives deterministic frame output: render workers
// feed a serial save worker that owns the exporter plugin.
package export

import (
	"errors"
	"fmt"
	"image"
	"sync"

	"mgc/pkg/log"
	"mgc/pkg/render"
)

// Exporter consumes finished frames. Owned by the save worker,
// never called concurrently.
type Exporter interface {
	// SaveFrame persists one frame. An error aborts the export job.
	SaveFrame(frameIndex int64, path string, img *image.RGBA) error
	// Finish flushes and closes the output.
	Finish() error
}

// Job one frame to render.
type Job struct {
	FrameIndex int64
	FrameTime  float64
	OutputPath string
}

// RenderFrameFunc builds one frame on a worker-owned renderer.
type RenderFrameFunc func(renderer render.Renderer, frameIndex int64) (render.Image, error)

// Config queue configuration.
type Config struct {
	// Render worker count. The caller defaults this to
	// min(hardware parallelism, total frames).
	Workers int

	// Bounded save-queue depth. The render workers block when the
	// save worker falls behind.
	QueueDepth int
}

type saveItem struct {
	frameIndex int64
	path       string
	img        *image.RGBA
}

// Queue multi-worker render pipeline.
type Queue struct {
	cfg         Config
	newRenderer func() render.Renderer
	renderFrame RenderFrameFunc
	exporter    Exporter
	log         *log.Logger

	jobs  chan Job
	saves chan saveItem
	quit  chan struct{} // Closed when the save worker aborts.

	renderWG sync.WaitGroup
	saveWG   sync.WaitGroup

	mu      sync.Mutex
	saveErr error
}

// ErrAborted the save worker aborted the job.
var ErrAborted = errors.New("export aborted")

// NewQueue returns a started export queue.
func NewQueue(
	cfg Config,
	newRenderer func() render.Renderer,
	renderFrame RenderFrameFunc,
	exporter Exporter,
	logger *log.Logger,
) *Queue {
	if cfg.Workers < 1 {
		cfg.Workers = 1
	}
	if cfg.QueueDepth < 1 {
		cfg.QueueDepth = 4
	}

	q := &Queue{
		cfg:         cfg,
		newRenderer: newRenderer,
		renderFrame: renderFrame,
		exporter:    exporter,
		log:         logger,
		jobs:        make(chan Job),
		saves:       make(chan saveItem, cfg.QueueDepth),
		quit:        make(chan struct{}),
	}

	q.saveWG.Add(1)
	go q.saveWorker()

	for i := 0; i < cfg.Workers; i++ {
		q.renderWG.Add(1)
		go q.renderWorker()
	}
	return q
}

// saveWorker drains the save queue in arrival order. An encoder
// error is fatal to the job, the worker stops consuming.
func (q *Queue) saveWorker() {
	defer q.saveWG.Done()

	for item := range q.saves {
		if err := q.exporter.SaveFrame(item.frameIndex, item.path, item.img); err != nil {
			q.setErr(fmt.Errorf("save frame %v: %w", item.frameIndex, err))
			q.log.Error().Src("export").Msgf("save frame %v: %v", item.frameIndex, err)
			close(q.quit)
			return
		}
	}
}

// renderWorker owns its renderer and loops over jobs.
func (q *Queue) renderWorker() {
	defer q.renderWG.Done()

	renderer := q.newRenderer()
	for job := range q.jobs {
		img, err := q.renderFrame(renderer, job.FrameIndex)
		if err != nil {
			q.log.Error().Src("export").Msgf("render frame %v: %v", job.FrameIndex, err)
			continue
		}

		select {
		case q.saves <- saveItem{frameIndex: job.FrameIndex, path: job.OutputPath, img: img.ToRGBA()}:
		case <-q.quit:
			return
		}
	}
}

// Submit blocks until a render worker picks the job up, or the job
// was aborted.
func (q *Queue) Submit(job Job) error {
	select {
	case q.jobs <- job:
		return nil
	case <-q.quit:
		return fmt.Errorf("%w: %v", ErrAborted, q.Err())
	}
}

// Finish closes the job channel, joins the render workers, closes
// the save channel and joins the save worker.
func (q *Queue) Finish() error {
	close(q.jobs)
	q.renderWG.Wait()

	close(q.saves)
	q.saveWG.Wait()

	if err := q.exporter.Finish(); err != nil {
		q.setErr(fmt.Errorf("finish export: %w", err))
	}
	return q.Err()
}

func (q *Queue) setErr(err error) {
	q.mu.Lock()
	if q.saveErr == nil {
		q.saveErr = err
	}
	q.mu.Unlock()
}

// Err returns the first fatal error.
func (q *Queue) Err() error {
	q.mu.Lock()
	defer q.mu.Unlock()
	return q.saveErr
}

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

// Package audio mixes project audio into a bounded ring buffer
// consumed by the audio device callback.
package audio

import "sync/atomic"

// Ring is a bounded single-producer single-consumer sample buffer.
// The mixer thread writes, the device callback reads.
type Ring struct {
	buf  []float32
	head atomic.Int64 // Read position, only advanced by the consumer.
	tail atomic.Int64 // Write position, only advanced by the producer.
}

// NewRing returns a ring holding up to capacity samples.
func NewRing(capacity int) *Ring {
	return &Ring{buf: make([]float32, capacity+1)}
}

// Capacity maximum buffered samples.
func (r *Ring) Capacity() int {
	return len(r.buf) - 1
}

// Buffered samples available to the consumer.
func (r *Ring) Buffered() int {
	head := r.head.Load()
	tail := r.tail.Load()
	n := int(tail - head)
	if n < 0 {
		n += len(r.buf)
	}
	return n
}

// Free space available to the producer.
func (r *Ring) Free() int {
	return r.Capacity() - r.Buffered()
}

// Write pushes samples, returning how many fit.
func (r *Ring) Write(samples []float32) int {
	free := r.Free()
	if len(samples) > free {
		samples = samples[:free]
	}

	tail := r.tail.Load()
	for _, s := range samples {
		r.buf[tail%int64(len(r.buf))] = s
		tail++
	}
	r.tail.Store(tail)
	return len(samples)
}

// Read pops up to len(p) samples, returning how many were read.
func (r *Ring) Read(p []float32) int {
	buffered := r.Buffered()
	if len(p) > buffered {
		p = p[:buffered]
	}

	head := r.head.Load()
	for i := range p {
		p[i] = r.buf[head%int64(len(r.buf))]
		head++
	}
	r.head.Store(head)
	return len(p)
}

// Clear drops all buffered samples. Producer side only.
func (r *Ring) Clear() {
	r.head.Store(r.tail.Load())
}

// Copyright 2026 The gogpu Authors
// SPDX-License-Identifier: MIT

// Package pool keeps reusable off-screen gg surfaces for background renders.
//
// A surface is handed out by Acquire for exclusive use and returned with
// Release. Surfaces whose size no longer matches the requested size are
// evicted the next time Acquire scans the pool.
//
// Pool is safe for concurrent use. Acquire typically runs on a render
// worker while Release runs on both the worker and the frame loop.
package pool

import (
	"errors"
	"fmt"
	"log/slog"
	"sync"

	"github.com/gogpu/gg"
)

// Errors returned by Acquire.
var (
	// ErrInvalidSize is returned for non-positive surface dimensions.
	ErrInvalidSize = errors.New("pool: invalid surface size")

	// ErrExhausted is returned when a new surface would exceed the
	// configured surface count or pixel limits.
	ErrExhausted = errors.New("pool: surfaces exhausted")

	// ErrClosed is returned by Acquire after Close.
	ErrClosed = errors.New("pool: closed")
)

// DefaultMaxPixels bounds a single surface to 64 megapixels (256 MiB RGBA).
const DefaultMaxPixels = 64 << 20

// Stats is a point-in-time view of the pool bookkeeping.
type Stats struct {
	// Surfaces is the number of tracked surfaces (free and in use).
	Surfaces int
	// InUse is the number of surfaces currently handed out.
	InUse int
	// Created counts surfaces allocated over the pool lifetime.
	Created int
	// Evicted counts surfaces dropped because their size went stale.
	Evicted int
}

// Option configures a Pool.
type Option func(*Pool)

// WithMaxSurfaces caps the number of tracked surfaces. Zero means unbounded.
func WithMaxSurfaces(n int) Option {
	return func(p *Pool) {
		if n >= 0 {
			p.maxSurfaces = n
		}
	}
}

// WithMaxPixels caps the pixel count of a single surface.
func WithMaxPixels(n int) Option {
	return func(p *Pool) {
		if n > 0 {
			p.maxPixels = n
		}
	}
}

// WithLogger sets the source of the logger used for allocation and
// eviction diagnostics. fn is called on every log call, so it may return a
// logger that changes over the pool's lifetime.
func WithLogger(fn func() *slog.Logger) Option {
	return func(p *Pool) {
		if fn != nil {
			p.logger = fn
		}
	}
}

// Pool is a free list of surfaces plus the set of surfaces in use.
type Pool struct {
	mu sync.Mutex

	// free holds tracked surfaces that may be handed out.
	free []*gg.Context

	// inUse maps handed-out surfaces to whether they are still tracked.
	// An entry flips to false when its size goes stale while in use;
	// such a surface is closed on release instead of being reused.
	inUse map[*gg.Context]bool

	maxSurfaces int
	maxPixels   int
	created     int
	evicted     int
	closed      bool

	logger func() *slog.Logger
}

// New creates an empty pool.
func New(opts ...Option) *Pool {
	p := &Pool{
		inUse:     make(map[*gg.Context]bool),
		maxPixels: DefaultMaxPixels,
		logger:    discardLogger,
	}
	for _, opt := range opts {
		opt(p)
	}
	return p
}

// Acquire returns a surface of exactly width x height that is not in use,
// allocating one if necessary, and marks it in use. The surface comes back
// with an identity transform, no clip and an empty path; its pixels are
// whatever the previous user left.
func (p *Pool) Acquire(width, height int) (*gg.Context, error) {
	if width <= 0 || height <= 0 {
		return nil, fmt.Errorf("%w: width=%d, height=%d", ErrInvalidSize, width, height)
	}

	p.mu.Lock()
	defer p.mu.Unlock()

	if p.closed {
		return nil, ErrClosed
	}

	p.evictStale(width, height)

	if n := len(p.free); n > 0 {
		dc := p.free[n-1]
		p.free[n-1] = nil
		p.free = p.free[:n-1]
		p.inUse[dc] = true
		reset(dc)
		return dc, nil
	}

	if width*height > p.maxPixels {
		return nil, fmt.Errorf("%w: %dx%d exceeds %d pixels", ErrExhausted, width, height, p.maxPixels)
	}
	if p.maxSurfaces > 0 && p.trackedLocked() >= p.maxSurfaces {
		return nil, fmt.Errorf("%w: %d surfaces in use", ErrExhausted, p.maxSurfaces)
	}

	dc := gg.NewContext(width, height)
	p.inUse[dc] = true
	p.created++
	p.logger().Debug("pool: surface allocated", "width", width, "height", height, "created", p.created)
	return dc, nil
}

// Release returns a surface to the pool. Releasing nil or a surface the
// pool did not hand out is a no-op.
func (p *Pool) Release(dc *gg.Context) {
	if dc == nil {
		return
	}

	p.mu.Lock()
	tracked, ok := p.inUse[dc]
	if !ok {
		p.mu.Unlock()
		return
	}
	delete(p.inUse, dc)
	if tracked && !p.closed {
		p.free = append(p.free, dc)
		p.mu.Unlock()
		return
	}
	p.mu.Unlock()

	_ = dc.Close()
}

// Stats returns the current bookkeeping counters.
func (p *Pool) Stats() Stats {
	p.mu.Lock()
	defer p.mu.Unlock()
	return Stats{
		Surfaces: p.trackedLocked(),
		InUse:    len(p.inUse),
		Created:  p.created,
		Evicted:  p.evicted,
	}
}

// Close releases all free surfaces. Surfaces still in use are closed when
// they are released. Close is idempotent.
func (p *Pool) Close() error {
	p.mu.Lock()
	if p.closed {
		p.mu.Unlock()
		return nil
	}
	p.closed = true
	free := p.free
	p.free = nil
	for dc := range p.inUse {
		p.inUse[dc] = false
	}
	p.mu.Unlock()

	for _, dc := range free {
		_ = dc.Close()
	}
	return nil
}

// evictStale drops every surface whose size differs from width x height.
// Free ones are closed now, in-use ones when they come back.
func (p *Pool) evictStale(width, height int) {
	kept := p.free[:0]
	for _, dc := range p.free {
		if dc.Width() == width && dc.Height() == height {
			kept = append(kept, dc)
			continue
		}
		p.evicted++
		p.logger().Debug("pool: stale surface evicted", "width", dc.Width(), "height", dc.Height())
		_ = dc.Close()
	}
	for i := len(kept); i < len(p.free); i++ {
		p.free[i] = nil
	}
	p.free = kept

	for dc, tracked := range p.inUse {
		if tracked && (dc.Width() != width || dc.Height() != height) {
			p.inUse[dc] = false
			p.evicted++
		}
	}
}

// trackedLocked counts free surfaces plus tracked in-use surfaces.
func (p *Pool) trackedLocked() int {
	n := len(p.free)
	for _, tracked := range p.inUse {
		if tracked {
			n++
		}
	}
	return n
}

var discard = slog.New(slog.DiscardHandler)

func discardLogger() *slog.Logger { return discard }

func reset(dc *gg.Context) {
	dc.Identity()
	dc.ResetClip()
	dc.ClearPath()
}

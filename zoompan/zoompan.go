// Package zoompan provides a pan and zoom viewport for ggbuffer.
//
// ZoomPan holds a content-to-display affine transform built from
// translations and uniform scales. It is safe for concurrent use: the frame
// loop mutates it while background renders read immutable State snapshots.
//
//	zp := zoompan.New(zoompan.WithScaleLimits(0.1, 50))
//	buf, _ := ggbuffer.New(host, zp, drawer, bounds)
//
//	zp.BeginZoom()
//	zp.Zoom(1.1, gg.Pt(mouseX, mouseY))
//	zp.EndZoom() // buffer re-renders on the next Draw
package zoompan

import (
	"sync"

	"github.com/gogpu/gg"
	"github.com/gogpu/ggbuffer"
)

// Default scale limits.
const (
	DefaultMinScale = 1e-3
	DefaultMaxScale = 1e3
)

// State is an immutable snapshot of a ZoomPan transform.
type State struct {
	m   gg.Matrix
	inv gg.Matrix
}

// NewState returns the snapshot for a content-to-display matrix.
func NewState(m gg.Matrix) State {
	return State{m: m, inv: m.Invert()}
}

// FromTransform returns the snapshot equivalent to an affine t. A State is
// returned as is; other transforms are sampled at three points.
func FromTransform(t ggbuffer.Transform) State {
	if s, ok := t.(State); ok {
		return s
	}
	o := t.CoordToDisp(gg.Pt(0, 0))
	x := t.CoordToDisp(gg.Pt(1, 0))
	y := t.CoordToDisp(gg.Pt(0, 1))
	return NewState(gg.Matrix{
		A: x.X - o.X, B: y.X - o.X, C: o.X,
		D: x.Y - o.Y, E: y.Y - o.Y, F: o.Y,
	})
}

// DispToCoord converts a display point to content coordinates.
func (s State) DispToCoord(p gg.Point) gg.Point {
	return s.inv.TransformPoint(p)
}

// CoordToDisp converts a content point to display coordinates.
func (s State) CoordToDisp(p gg.Point) gg.Point {
	return s.m.TransformPoint(p)
}

// ZoomScale returns the content-to-display scale factor.
func (s State) ZoomScale() float64 {
	return s.m.A
}

// Matrix returns the content-to-display matrix.
func (s State) Matrix() gg.Matrix {
	return s.m
}

// Apply concatenates the snapshot's transform onto dc's current matrix so
// that subsequent drawing uses content coordinates.
func (s State) Apply(dc *gg.Context) {
	dc.Transform(s.m)
}

// Option configures a ZoomPan.
type Option func(*ZoomPan)

// WithScaleLimits bounds the zoom scale to [lo, hi]. Non-positive or
// inverted limits are ignored.
func WithScaleLimits(lo, hi float64) Option {
	return func(z *ZoomPan) {
		if lo > 0 && hi >= lo {
			z.minScale, z.maxScale = lo, hi
		}
	}
}

// WithState starts the viewport at m instead of the identity.
func WithState(m gg.Matrix) Option {
	return func(z *ZoomPan) {
		z.state = NewState(m)
	}
}

// ZoomPan is a live viewport. It implements ggbuffer.Viewport.
type ZoomPan struct {
	mu sync.RWMutex

	state    State
	minScale float64
	maxScale float64

	panning bool
	zooming bool

	listenersMu sync.Mutex
	listeners   []func()
}

var _ ggbuffer.Viewport = (*ZoomPan)(nil)

// New creates a viewport at the identity transform.
func New(opts ...Option) *ZoomPan {
	z := &ZoomPan{
		state:    NewState(gg.Identity()),
		minScale: DefaultMinScale,
		maxScale: DefaultMaxScale,
	}
	for _, opt := range opts {
		opt(z)
	}
	return z
}

// Snapshot returns the current transform.
func (z *ZoomPan) Snapshot() State {
	z.mu.RLock()
	defer z.mu.RUnlock()
	return z.state
}

// State returns the current transform as a ggbuffer.Transform.
func (z *ZoomPan) State() ggbuffer.Transform {
	return z.Snapshot()
}

// DispToCoord converts a display point using the live transform.
func (z *ZoomPan) DispToCoord(p gg.Point) gg.Point {
	return z.Snapshot().DispToCoord(p)
}

// CoordToDisp converts a content point using the live transform.
func (z *ZoomPan) CoordToDisp(p gg.Point) gg.Point {
	return z.Snapshot().CoordToDisp(p)
}

// ZoomScale returns the live zoom scale.
func (z *ZoomPan) ZoomScale() float64 {
	return z.Snapshot().ZoomScale()
}

// Pan moves the content by (dx, dy) display pixels.
func (z *ZoomPan) Pan(dx, dy float64) {
	z.mu.Lock()
	defer z.mu.Unlock()
	z.state = NewState(gg.Translate(dx, dy).Multiply(z.state.m))
}

// Zoom scales the content by factor about the display point about, which
// stays fixed on screen. The resulting scale is clamped to the limits.
func (z *ZoomPan) Zoom(factor float64, about gg.Point) {
	if factor <= 0 {
		return
	}

	z.mu.Lock()
	defer z.mu.Unlock()

	cur := z.state.m.A
	next := min(max(cur*factor, z.minScale), z.maxScale)
	if next == cur {
		return
	}
	f := next / cur

	m := gg.Translate(about.X, about.Y).
		Multiply(gg.Scale(f, f)).
		Multiply(gg.Translate(-about.X, -about.Y)).
		Multiply(z.state.m)
	z.state = NewState(m)
}

// SetState replaces the transform. It does not fire motion-end listeners.
func (z *ZoomPan) SetState(s State) {
	z.mu.Lock()
	z.state = s
	z.mu.Unlock()
}

// Reset returns to the identity transform and notifies motion-end
// listeners.
func (z *ZoomPan) Reset() {
	z.mu.Lock()
	z.state = NewState(gg.Identity())
	z.mu.Unlock()
	z.fireMotionEnd()
}

// ScaleLimits returns the zoom scale bounds.
func (z *ZoomPan) ScaleLimits() (lo, hi float64) {
	z.mu.RLock()
	defer z.mu.RUnlock()
	return z.minScale, z.maxScale
}

// BeginPan marks the start of a pan gesture.
func (z *ZoomPan) BeginPan() {
	z.mu.Lock()
	z.panning = true
	z.mu.Unlock()
}

// EndPan marks the end of a pan gesture and notifies motion-end
// listeners. It is a no-op if no pan is in progress.
func (z *ZoomPan) EndPan() {
	z.mu.Lock()
	was := z.panning
	z.panning = false
	z.mu.Unlock()
	if was {
		z.fireMotionEnd()
	}
}

// BeginZoom marks the start of a zoom gesture.
func (z *ZoomPan) BeginZoom() {
	z.mu.Lock()
	z.zooming = true
	z.mu.Unlock()
}

// EndZoom marks the end of a zoom gesture and notifies motion-end
// listeners. It is a no-op if no zoom is in progress.
func (z *ZoomPan) EndZoom() {
	z.mu.Lock()
	was := z.zooming
	z.zooming = false
	z.mu.Unlock()
	if was {
		z.fireMotionEnd()
	}
}

// IsPanning reports whether a pan gesture is in progress.
func (z *ZoomPan) IsPanning() bool {
	z.mu.RLock()
	defer z.mu.RUnlock()
	return z.panning
}

// IsZooming reports whether a zoom gesture is in progress.
func (z *ZoomPan) IsZooming() bool {
	z.mu.RLock()
	defer z.mu.RUnlock()
	return z.zooming
}

// OnMotionEnd registers fn to run after every pan or zoom gesture ends.
// Callbacks run synchronously on the goroutine that ended the gesture.
func (z *ZoomPan) OnMotionEnd(fn func()) {
	if fn == nil {
		return
	}
	z.listenersMu.Lock()
	z.listeners = append(z.listeners, fn)
	z.listenersMu.Unlock()
}

func (z *ZoomPan) fireMotionEnd() {
	z.listenersMu.Lock()
	fns := append([]func(){}, z.listeners...)
	z.listenersMu.Unlock()

	ggbuffer.Logger().Debug("zoompan: motion ended", "listeners", len(fns))
	for _, fn := range fns {
		fn()
	}
}

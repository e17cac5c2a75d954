package ggbuffer

import (
	"context"
	"errors"
	"fmt"
	"image"
	"image/draw"

	"github.com/gogpu/gg"
	"github.com/gogpu/ggbuffer/internal/pool"
)

// Host is the frame host a Buffer composites into.
//
// Canvas is called once per Draw on the frame goroutine and returns the
// raster the buffer is painted onto. Pointer reports the current pointer
// position in screen coordinates; it is only consulted when updating
// during viewport motion is enabled.
type Host interface {
	Canvas() draw.Image
	Pointer() image.Point
}

// SmoothingHost is optionally implemented by a Host whose own drawing uses
// a specific rasterizer mode. Background renders use the same mode so the
// buffered content matches what the host draws directly.
type SmoothingHost interface {
	RasterizerMode() gg.RasterizerMode
}

// Drawer paints buffer content onto an off-screen surface.
//
// DrawBuffer runs on a background goroutine. The surface's origin is
// translated so that screen coordinates can be used directly. view is nil
// when the buffer has no viewport; otherwise it holds the viewport
// snapshot taken when the render was requested, and the drawer must use
// it, not the live viewport, for transforms and visibility culling.
//
// ctx is cancelled when the render is superseded. Implementations MUST
// check ctx regularly (for example once per drawn item) and return as
// soon as it is done: there is no other way to stop a render, and a newer
// render cannot start until this one returns. Whatever is returned after
// cancellation is discarded.
//
// A non-nil error (other than after cancellation) fails the render: the
// surface is discarded and failure listeners are notified.
type Drawer interface {
	DrawBuffer(ctx context.Context, dc *gg.Context, view *View, data any) error
}

// DrawerFunc adapts an ordinary function to the Drawer interface.
type DrawerFunc func(ctx context.Context, dc *gg.Context, view *View, data any) error

// DrawBuffer calls f(ctx, dc, view, data).
func (f DrawerFunc) DrawBuffer(ctx context.Context, dc *gg.Context, view *View, data any) error {
	return f(ctx, dc, view, data)
}

// Buffer is an off-screen buffer whose content is rendered on a background
// goroutine and composited onto the host every frame.
//
// Draw and the other frame-loop methods are meant to be called from a
// single frame goroutine; they never wait for a background render. The
// query and configuration methods are safe to call from any goroutine.
type Buffer struct {
	host     Host
	viewport Viewport
	drawer   Drawer
	pool     *pool.Pool

	sched  scheduler
	comp   compositor
	notify notifier
}

// New creates a buffer covering bounds on the host's canvas.
//
// viewport may be nil, in which case the buffer is pinned to the screen.
// When a viewport is given the buffer listens for the end of pan and zoom
// gestures and re-renders afterwards. The new buffer is marked dirty, so
// the first Draw starts a render.
func New(host Host, viewport Viewport, drawer Drawer, bounds image.Rectangle, opts ...Option) (*Buffer, error) {
	if host == nil {
		return nil, ErrNilHost
	}
	if drawer == nil {
		return nil, ErrNilDrawer
	}
	if bounds.Empty() {
		return nil, fmt.Errorf("%w: %v", ErrInvalidBounds, bounds)
	}

	o := defaultOptions()
	for _, opt := range opts {
		opt(&o)
	}

	poolOpts := []pool.Option{
		pool.WithMaxSurfaces(o.maxSurfaces),
		pool.WithLogger(Logger),
	}
	if o.maxSurfacePixels > 0 {
		poolOpts = append(poolOpts, pool.WithMaxPixels(o.maxSurfacePixels))
	}

	b := &Buffer{
		host:     host,
		viewport: viewport,
		drawer:   drawer,
		pool:     pool.New(poolOpts...),
	}
	b.sched.init(bounds, o.updateDuringMotion)
	b.comp.fade = o.fade
	b.comp.fadeSteps = o.fadeSteps
	b.comp.release = b.pool.Release

	if viewport != nil {
		viewport.OnMotionEnd(b.MarkDirty)
	}
	return b, nil
}

// Draw starts a background render if one is due and composites the most
// recently completed buffer onto the host canvas. With a viewport, the
// live viewport state is used for both.
//
// The returned error is non-nil only for problems the caller must act on,
// such as ErrResourceExhausted or ErrClosed. The buffer is still
// composited when a render could not be started.
func (b *Buffer) Draw() error {
	return b.DrawState(nil, nil)
}

// DrawWith is like Draw but passes data through to the drawer if a render
// is started.
func (b *Buffer) DrawWith(data any) error {
	return b.DrawState(nil, data)
}

// DrawState is like DrawWith but uses state, typically captured once at
// the start of the frame, instead of the live viewport. A nil state falls
// back to the live viewport.
func (b *Buffer) DrawState(state Transform, data any) error {
	if state == nil && b.viewport != nil {
		state = b.viewport.State()
	}

	bounds, err := b.schedule(state, data)
	if errors.Is(err, ErrClosed) {
		return err
	}
	b.comp.composite(b.host.Canvas(), state, bounds)
	return err
}

// MarkDirty requests a fresh render on the next Draw. Calling it several
// times before the next Draw still starts a single render.
func (b *Buffer) MarkDirty() {
	b.sched.mu.Lock()
	b.sched.dirty = true
	b.sched.mu.Unlock()
}

// IsDirty reports whether a render has been requested but not started.
func (b *Buffer) IsDirty() bool {
	b.sched.mu.Lock()
	defer b.sched.mu.Unlock()
	return b.sched.dirty
}

// IsRenderingInBackground reports whether a render task is running,
// including one that has been cancelled but has not returned yet.
func (b *Buffer) IsRenderingInBackground() bool {
	return b.State() == Rendering
}

// State returns the scheduler state.
func (b *Buffer) State() State {
	b.sched.mu.Lock()
	defer b.sched.mu.Unlock()
	return b.sched.state
}

// SetUpdateDuringViewportMotion controls whether renders are started while
// the viewport is panning or zooming. When disabled (the default) a
// request made during a gesture waits for the gesture to end. When
// enabled a render is started every frame the pointer moves during a
// gesture, trading wasted renders for live feedback.
//
// Motion is detected through pointer movement only: a viewport that keeps
// animating while the pointer is still does not trigger renders.
func (b *Buffer) SetUpdateDuringViewportMotion(enabled bool) {
	b.sched.mu.Lock()
	b.sched.updateDuringMotion = enabled
	b.sched.mu.Unlock()
}

// SetFade enables or disables crossfading newly committed buffers in over
// the previous one, over steps frames. Non-positive steps selects
// DefaultFadeSteps. Renders started while fading is enabled get an opaque
// white background so the blend is well defined.
func (b *Buffer) SetFade(enabled bool, steps int) {
	b.comp.setFade(enabled, normalizeFadeSteps(steps))
}

// Fade reports whether crossfading is enabled.
func (b *Buffer) Fade() bool {
	enabled, _ := b.comp.fadeConfig()
	return enabled
}

// FadeLevel returns the opacity the current buffer is drawn with in the
// next frame, in [0, 1]. It is 1 when fading is disabled.
func (b *Buffer) FadeLevel() float64 {
	return b.comp.fadeLevel()
}

// CurrentImage returns a copy of the most recently committed buffer, or
// nil if no render has completed yet.
func (b *Buffer) CurrentImage() image.Image {
	return b.comp.currentImage()
}

// ScreenBounds returns the buffer's screen rectangle.
func (b *Buffer) ScreenBounds() image.Rectangle {
	b.sched.mu.Lock()
	defer b.sched.mu.Unlock()
	return b.sched.bounds
}

// ViewportContentRect returns the content rectangle currently visible
// through the buffer's screen bounds. Without a viewport it is the screen
// bounds themselves.
func (b *Buffer) ViewportContentRect() Rect {
	var state Transform
	if b.viewport != nil {
		state = b.viewport.State()
	}
	return b.ViewportContentRectFor(state)
}

// ViewportContentRectFor is like ViewportContentRect but uses state. A nil
// state means the identity transform.
func (b *Buffer) ViewportContentRectFor(state Transform) Rect {
	bounds := b.ScreenBounds()
	if state == nil {
		return Rect{
			X: float64(bounds.Min.X),
			Y: float64(bounds.Min.Y),
			W: float64(bounds.Dx()),
			H: float64(bounds.Dy()),
		}
	}
	return ContentRect(state, bounds)
}

// Subscribe registers l for commit notifications, and failure
// notifications if l implements FailureListener. Subscribing the same
// listener twice has no effect.
func (b *Buffer) Subscribe(l Listener) {
	b.notify.subscribe(l)
}

// Unsubscribe removes l.
func (b *Buffer) Unsubscribe(l Listener) {
	b.notify.unsubscribe(l)
}

// SetScreenBounds moves or resizes the buffer. The running render is
// cancelled and waited for before the bounds change; ctx bounds the wait.
// Completed buffers are dropped, so nothing is composited until the next
// render commits. The buffer is marked dirty afterwards.
func (b *Buffer) SetScreenBounds(ctx context.Context, bounds image.Rectangle) error {
	if bounds.Empty() {
		return fmt.Errorf("%w: %v", ErrInvalidBounds, bounds)
	}
	if err := b.stop(ctx); err != nil {
		return err
	}

	b.sched.mu.Lock()
	defer b.sched.mu.Unlock()
	if b.sched.closed {
		return ErrClosed
	}
	b.sched.bounds = bounds
	b.sched.dirty = true
	for _, dc := range b.comp.reset() {
		b.pool.Release(dc)
	}
	return nil
}

// WaitIdle blocks until no render is running or pending, or ctx is done.
func (b *Buffer) WaitIdle(ctx context.Context) error {
	b.sched.mu.Lock()
	idle := b.sched.idle
	b.sched.mu.Unlock()

	select {
	case <-idle:
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}

// Close cancels any running render, waits for it to return and releases
// all off-screen surfaces. Close blocks for as long as the drawer takes to
// notice cancellation. Close is idempotent.
func (b *Buffer) Close() error {
	b.sched.mu.Lock()
	if b.sched.closed {
		b.sched.mu.Unlock()
		return nil
	}
	b.sched.closed = true
	b.sched.pending = nil
	if b.sched.active != nil {
		b.sched.active.cancel()
	}
	idle := b.sched.idle
	b.sched.mu.Unlock()

	<-idle

	for _, dc := range b.comp.reset() {
		b.pool.Release(dc)
	}
	return b.pool.Close()
}

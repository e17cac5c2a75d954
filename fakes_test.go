package ggbuffer

import (
	"context"
	"image"
	"image/color"
	"image/draw"
	"sync"
	"testing"
	"time"

	"github.com/gogpu/gg"
)

// testHost is a Host backed by an in-memory RGBA canvas.
type testHost struct {
	mu      sync.Mutex
	canvas  *image.RGBA
	pointer image.Point
}

func newTestHost(w, h int) *testHost {
	canvas := image.NewRGBA(image.Rect(0, 0, w, h))
	draw.Draw(canvas, canvas.Bounds(), image.NewUniform(color.White), image.Point{}, draw.Src)
	return &testHost{canvas: canvas}
}

func (h *testHost) Canvas() draw.Image { return h.canvas }

func (h *testHost) Pointer() image.Point {
	h.mu.Lock()
	defer h.mu.Unlock()
	return h.pointer
}

func (h *testHost) setPointer(p image.Point) {
	h.mu.Lock()
	h.pointer = p
	h.mu.Unlock()
}

// affine is a scale-then-translate transform: disp = coord*scale + off.
type affine struct {
	scale  float64
	dx, dy float64
}

func (a affine) DispToCoord(p gg.Point) gg.Point {
	return gg.Pt((p.X-a.dx)/a.scale, (p.Y-a.dy)/a.scale)
}

func (a affine) CoordToDisp(p gg.Point) gg.Point {
	return gg.Pt(p.X*a.scale+a.dx, p.Y*a.scale+a.dy)
}

func (a affine) ZoomScale() float64 { return a.scale }

// testViewport is a Viewport whose gestures are driven by the test.
type testViewport struct {
	mu       sync.Mutex
	state    affine
	panning  bool
	zooming  bool
	onMotion []func()
}

func newTestViewport() *testViewport {
	return &testViewport{state: affine{scale: 1}}
}

func (v *testViewport) snapshot() affine {
	v.mu.Lock()
	defer v.mu.Unlock()
	return v.state
}

func (v *testViewport) DispToCoord(p gg.Point) gg.Point { return v.snapshot().DispToCoord(p) }
func (v *testViewport) CoordToDisp(p gg.Point) gg.Point { return v.snapshot().CoordToDisp(p) }
func (v *testViewport) ZoomScale() float64 { return v.snapshot().scale }
func (v *testViewport) State() Transform { return v.snapshot() }

func (v *testViewport) IsPanning() bool {
	v.mu.Lock()
	defer v.mu.Unlock()
	return v.panning
}

func (v *testViewport) IsZooming() bool {
	v.mu.Lock()
	defer v.mu.Unlock()
	return v.zooming
}

func (v *testViewport) OnMotionEnd(fn func()) {
	v.mu.Lock()
	v.onMotion = append(v.onMotion, fn)
	v.mu.Unlock()
}

func (v *testViewport) set(a affine) {
	v.mu.Lock()
	v.state = a
	v.mu.Unlock()
}

func (v *testViewport) beginPan() {
	v.mu.Lock()
	v.panning = true
	v.mu.Unlock()
}

func (v *testViewport) endPan() {
	v.mu.Lock()
	v.panning = false
	fns := append([]func(){}, v.onMotion...)
	v.mu.Unlock()
	for _, fn := range fns {
		fn()
	}
}

// fillDrawer paints the whole surface with one color.
func fillDrawer(r, g, b float64) Drawer {
	return DrawerFunc(func(_ context.Context, dc *gg.Context, _ *View, _ any) error {
		dc.Push()
		dc.Identity()
		dc.SetRGB(r, g, b)
		dc.DrawRectangle(0, 0, float64(dc.Width()), float64(dc.Height()))
		err := dc.Fill()
		dc.Pop()
		return err
	})
}

// gatedDrawer blocks every render until release is closed or the render
// is cancelled.
type gatedDrawer struct {
	release chan struct{}

	mu     sync.Mutex
	starts int
	data   []any
}

func newGatedDrawer() *gatedDrawer {
	return &gatedDrawer{release: make(chan struct{})}
}

func (g *gatedDrawer) DrawBuffer(ctx context.Context, dc *gg.Context, _ *View, data any) error {
	g.mu.Lock()
	g.starts++
	g.data = append(g.data, data)
	g.mu.Unlock()

	select {
	case <-g.release:
	case <-ctx.Done():
		return ctx.Err()
	}
	dc.SetRGB(0, 0, 1)
	dc.DrawRectangle(0, 0, 10, 10)
	return dc.Fill()
}

func (g *gatedDrawer) startCount() int {
	g.mu.Lock()
	defer g.mu.Unlock()
	return g.starts
}

// chanListener forwards notifications to channels.
type chanListener struct {
	available chan struct{}
	failed    chan error
}

func newChanListener() *chanListener {
	return &chanListener{
		available: make(chan struct{}, 16),
		failed:    make(chan error, 16),
	}
}

func (l *chanListener) BufferAvailable() { l.available <- struct{}{} }
func (l *chanListener) BufferFailed(err error) { l.failed <- err }

func waitIdle(t *testing.T, b *Buffer) {
	t.Helper()
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	if err := b.WaitIdle(ctx); err != nil {
		t.Fatalf("WaitIdle() error = %v", err)
	}
}

func closeBuffer(t *testing.T, b *Buffer) {
	t.Helper()
	if err := b.Close(); err != nil {
		t.Errorf("Close() error = %v", err)
	}
}

func isRed(c color.Color) bool {
	r, g, b, a := c.RGBA()
	return r > 0xf000 && g < 0x1000 && b < 0x1000 && a > 0xf000
}

func isWhite(c color.Color) bool {
	r, g, b, _ := c.RGBA()
	return r > 0xf000 && g > 0xf000 && b > 0xf000
}

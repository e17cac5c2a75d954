// Package gpuscreen provides a ggbuffer frame host presented in a gogpu
// window.
//
// The host wraps a ggcanvas.Canvas. The frame loop draws on Context,
// buffers are composited onto Canvas, and Present uploads the finished
// frame to the GPU and draws it.
//
//	gs, err := gpuscreen.New(app.GPUContextProvider(), 800, 600)
//	...
//	buf, _ := ggbuffer.New(gs, zp, drawer, gs.Bounds())
//
//	app.OnDraw(func(dc *gogpu.Context) {
//	    gs.BeginFrame()
//	    _ = buf.Draw()
//	    _ = gs.Present(dc.AsTextureDrawer())
//	})
package gpuscreen

import (
	"errors"
	"fmt"
	"image"
	"image/draw"
	"sync"

	"github.com/gogpu/gg"
	"github.com/gogpu/gg/integration/ggcanvas"
	"github.com/gogpu/ggbuffer"
	"github.com/gogpu/gpucontext"
)

// ErrClosed is returned by operations on a closed Screen.
var ErrClosed = errors.New("gpuscreen: screen is closed")

// Screen is a ggbuffer.Host backed by a GPU-presented canvas.
type Screen struct {
	canvas     *ggcanvas.Canvas
	background gg.RGBA

	mu      sync.Mutex
	pointer image.Point
}

var (
	_ ggbuffer.Host          = (*Screen)(nil)
	_ ggbuffer.SmoothingHost = (*Screen)(nil)
)

// New creates a width x height screen on provider's GPU device.
func New(provider gpucontext.DeviceProvider, width, height int) (*Screen, error) {
	c, err := ggcanvas.New(provider, width, height)
	if err != nil {
		return nil, fmt.Errorf("gpuscreen: %w", err)
	}
	s := &Screen{canvas: c, background: gg.White}
	s.BeginFrame()
	return s, nil
}

// Context returns the canvas drawing context, or nil after Close.
func (s *Screen) Context() *gg.Context {
	return s.canvas.Context()
}

// Bounds returns the screen rectangle.
func (s *Screen) Bounds() image.Rectangle {
	w, h := s.canvas.Size()
	return image.Rect(0, 0, w, h)
}

// SetBackground sets the color BeginFrame clears to.
func (s *Screen) SetBackground(c gg.RGBA) {
	s.background = c
}

// BeginFrame clears the canvas and resets its drawing state.
func (s *Screen) BeginFrame() {
	_ = s.canvas.Draw(func(dc *gg.Context) {
		dc.Identity()
		dc.ResetClip()
		dc.ClearPath()
		dc.ClearWithColor(s.background)
	})
}

// Canvas returns the canvas pixels for compositing and flags the canvas
// for upload. After Close it returns an empty image.
func (s *Screen) Canvas() draw.Image {
	dc := s.canvas.Context()
	if dc == nil {
		return image.NewRGBA(image.Rectangle{})
	}
	if err := dc.FlushGPU(); err != nil {
		ggbuffer.Logger().Warn("gpuscreen: flush before composite failed", "err", err)
	}
	s.canvas.MarkDirty()

	pm := dc.ResizeTarget()
	return &image.RGBA{
		Pix:    pm.Data(),
		Stride: pm.Width() * 4,
		Rect:   image.Rect(0, 0, pm.Width(), pm.Height()),
	}
}

// Pointer returns the last position passed to SetPointer.
func (s *Screen) Pointer() image.Point {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.pointer
}

// SetPointer records the pointer position in window coordinates.
func (s *Screen) SetPointer(p image.Point) {
	s.mu.Lock()
	s.pointer = p
	s.mu.Unlock()
}

// RasterizerMode returns the canvas context's rasterizer mode.
func (s *Screen) RasterizerMode() gg.RasterizerMode {
	if dc := s.canvas.Context(); dc != nil {
		return dc.RasterizerMode()
	}
	return gg.RasterizerAuto
}

// Present uploads the frame and draws it at the window origin.
func (s *Screen) Present(dc gpucontext.TextureDrawer) error {
	if s.canvas.Context() == nil {
		return ErrClosed
	}
	return s.canvas.RenderTo(dc)
}

// Resize changes the canvas size.
func (s *Screen) Resize(width, height int) error {
	return s.canvas.Resize(width, height)
}

// Close releases the canvas and its GPU texture.
func (s *Screen) Close() error {
	return s.canvas.Close()
}

// Package screen provides a CPU frame host for ggbuffer.
//
// A Screen owns a gg.Context that the frame loop draws on directly. Its
// pixels are shared, without copying, with the draw.Image returned by
// Canvas, so buffers composited by ggbuffer and shapes drawn through
// Context end up in the same frame.
package screen

import (
	"errors"
	"fmt"
	"image"
	"image/draw"
	"sync"

	"github.com/gogpu/gg"
	"github.com/gogpu/ggbuffer"
)

// ErrInvalidSize is returned for non-positive screen dimensions.
var ErrInvalidSize = errors.New("screen: invalid size")

// Option configures a Screen.
type Option func(*Screen)

// WithRasterizerMode sets the rasterizer mode used by the screen and, since
// Screen implements ggbuffer.SmoothingHost, by every buffer composited
// onto it.
func WithRasterizerMode(m gg.RasterizerMode) Option {
	return func(s *Screen) {
		s.mode = m
	}
}

// WithBackground sets the color BeginFrame clears to. The default is white.
func WithBackground(c gg.RGBA) Option {
	return func(s *Screen) {
		s.background = c
	}
}

// Screen is an off-window frame. It implements ggbuffer.Host and
// ggbuffer.SmoothingHost.
type Screen struct {
	dc         *gg.Context
	mode       gg.RasterizerMode
	background gg.RGBA

	mu      sync.Mutex
	pointer image.Point
}

var (
	_ ggbuffer.Host          = (*Screen)(nil)
	_ ggbuffer.SmoothingHost = (*Screen)(nil)
)

// New creates a width x height screen.
func New(width, height int, opts ...Option) (*Screen, error) {
	if width <= 0 || height <= 0 {
		return nil, fmt.Errorf("%w: %dx%d", ErrInvalidSize, width, height)
	}

	s := &Screen{
		mode:       gg.RasterizerAuto,
		background: gg.White,
	}
	for _, opt := range opts {
		opt(s)
	}

	s.dc = gg.NewContext(width, height, gg.WithPixmap(gg.NewPixmap(width, height)))
	s.dc.SetRasterizerMode(s.mode)
	s.dc.ClearWithColor(s.background)
	return s, nil
}

// Context returns the screen's drawing context. It must only be used from
// the frame goroutine.
func (s *Screen) Context() *gg.Context {
	return s.dc
}

// Width returns the screen width in pixels.
func (s *Screen) Width() int { return s.dc.Width() }

// Height returns the screen height in pixels.
func (s *Screen) Height() int { return s.dc.Height() }

// Bounds returns the screen rectangle.
func (s *Screen) Bounds() image.Rectangle {
	return image.Rect(0, 0, s.dc.Width(), s.dc.Height())
}

// BeginFrame resets the drawing state and clears the screen to the
// background color.
func (s *Screen) BeginFrame() {
	s.dc.Identity()
	s.dc.ResetClip()
	s.dc.ClearPath()
	s.dc.ClearWithColor(s.background)
}

// Canvas returns the screen pixels as a draw.Image. gg keeps
// premultiplied RGBA, hence image.RGBA. The returned image aliases the
// context's pixmap and is invalidated by Resize.
func (s *Screen) Canvas() draw.Image {
	if err := s.dc.FlushGPU(); err != nil {
		ggbuffer.Logger().Warn("screen: flush before composite failed", "err", err)
	}
	pm := s.dc.ResizeTarget()
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

// SetPointer records the pointer position in screen coordinates.
func (s *Screen) SetPointer(p image.Point) {
	s.mu.Lock()
	s.pointer = p
	s.mu.Unlock()
}

// RasterizerMode returns the screen's rasterizer mode.
func (s *Screen) RasterizerMode() gg.RasterizerMode {
	return s.mode
}

// Resize reallocates the screen. Buffers composited onto it should be
// moved with ggbuffer.Buffer.SetScreenBounds afterwards.
func (s *Screen) Resize(width, height int) error {
	if width <= 0 || height <= 0 {
		return fmt.Errorf("%w: %dx%d", ErrInvalidSize, width, height)
	}
	if err := s.dc.Resize(width, height); err != nil {
		return err
	}
	s.dc.ClearWithColor(s.background)
	return nil
}

// Image returns a copy of the current frame.
func (s *Screen) Image() image.Image {
	src := s.Canvas().(*image.RGBA)
	out := image.NewRGBA(src.Rect)
	copy(out.Pix, src.Pix)
	return out
}

// SavePNG writes the current frame to path.
func (s *Screen) SavePNG(path string) error {
	return s.dc.SavePNG(path)
}

// Close releases the drawing context.
func (s *Screen) Close() error {
	return s.dc.Close()
}

package ggbuffer

import (
	"fmt"
	"image"
	"image/color"
	"math"
	"sync"

	"github.com/gogpu/gg"
	"golang.org/x/image/draw"
	"golang.org/x/image/math/f64"
)

// slot is a completed render.
//
// refs and retired are guarded by the compositor mutex. A retired slot
// with readers hands its surface back when the last reader is done.
type slot struct {
	dc   *gg.Context
	view *View
	id   uint64
	data any

	refs    int
	retired bool
}

// compositor holds the current and previous buffers and paints them onto
// the host canvas.
//
// mu guards the slots and the fade state. Painting runs without mu; slots
// being painted are pinned by their reference count instead.
type compositor struct {
	mu sync.Mutex

	current  *slot
	previous *slot

	fade      bool
	fadeSteps int
	fadeFrame int

	warnedClip bool

	// release returns a surface to its pool. Nil drops it.
	release func(*gg.Context)
}

// commit makes s current, demoting the old current buffer to previous and
// restarting the crossfade. It returns the surface that fell out of the
// previous slot, which the caller must release. The surface is nil when
// it is still being painted; the painter releases it then.
func (c *compositor) commit(s *slot) *gg.Context {
	c.mu.Lock()
	defer c.mu.Unlock()

	stale := c.retireLocked(c.previous)
	c.previous = c.current
	c.current = s
	c.fadeFrame = 0
	return stale
}

// retireLocked drops s from the compositor. It returns the surface if
// nobody is painting it.
func (c *compositor) retireLocked(s *slot) *gg.Context {
	if s == nil {
		return nil
	}
	s.retired = true
	if s.refs > 0 {
		return nil
	}
	return s.dc
}

// layer is one slot painted at a given opacity.
type layer struct {
	s     *slot
	alpha float64
}

// composite paints the current buffer, crossfaded over the previous one if
// a fade is in progress, into bounds on dst. live is the viewport state the
// frame is drawn with, nil without a viewport.
func (c *compositor) composite(dst draw.Image, live Transform, bounds image.Rectangle) {
	if dst == nil {
		return
	}
	layers, dst := c.begin(dst, bounds)
	for _, l := range layers {
		c.paint(dst, l.s, live, bounds, l.alpha)
	}
	c.end(layers)
}

// begin picks the slots to paint for this frame, pins them and advances
// the fade.
func (c *compositor) begin(dst draw.Image, bounds image.Rectangle) ([]layer, draw.Image) {
	c.mu.Lock()
	defer c.mu.Unlock()

	if c.current == nil {
		return nil, dst
	}
	dst = c.clipTo(dst, bounds)

	var layers []layer
	if c.fade && c.fadeFrame < c.fadeSteps {
		if c.previous != nil {
			layers = append(layers, layer{c.previous, 1})
		}
		layers = append(layers, layer{c.current, float64(c.fadeFrame) / float64(c.fadeSteps)})
		c.fadeFrame++
	} else {
		layers = append(layers, layer{c.current, 1})
	}
	for _, l := range layers {
		l.s.refs++
	}
	return layers, dst
}

// end unpins the painted slots and releases surfaces retired meanwhile.
func (c *compositor) end(layers []layer) {
	var done []*gg.Context
	c.mu.Lock()
	for _, l := range layers {
		l.s.refs--
		if l.s.retired && l.s.refs == 0 {
			done = append(done, l.s.dc)
		}
	}
	release := c.release
	c.mu.Unlock()

	if release != nil {
		for _, dc := range done {
			release(dc)
		}
	}
}

// paint draws s at the position its content occupies under live.
func (c *compositor) paint(dst draw.Image, s *slot, live Transform, bounds image.Rectangle, alpha float64) {
	if alpha <= 0 {
		return
	}
	src := surfaceImage(s.dc)
	sr := src.Bounds()
	if sr.Empty() {
		return
	}

	x, y, w, h := remap(s.view, live, bounds)
	if w == 0 || h == 0 || math.IsNaN(w+h+x+y) || math.IsInf(w+h+x+y, 0) {
		return
	}

	var mask image.Image
	if alpha < 1 {
		mask = image.NewUniform(color.Alpha16{A: uint16(alpha * 0xffff)})
	}

	// Unscaled and pixel aligned: plain copy.
	if w == float64(sr.Dx()) && h == float64(sr.Dy()) && x == math.Trunc(x) && y == math.Trunc(y) {
		r := image.Rect(int(x), int(y), int(x)+sr.Dx(), int(y)+sr.Dy())
		draw.DrawMask(dst, r, src, sr.Min, mask, image.Point{}, draw.Over)
		return
	}

	s2d := f64.Aff3{
		w / float64(sr.Dx()), 0, x,
		0, h / float64(sr.Dy()), y,
	}
	var opts *draw.Options
	if mask != nil {
		opts = &draw.Options{SrcMask: mask}
	}
	draw.BiLinear.Transform(dst, s2d, src, sr, draw.Over, opts)
}

// remap returns the screen rectangle a buffer rendered against view
// occupies when the viewport is at live. Without either transform the
// buffer is pinned to bounds.
func remap(view *View, live Transform, bounds image.Rectangle) (x, y, w, h float64) {
	minX, minY := float64(bounds.Min.X), float64(bounds.Min.Y)
	maxX, maxY := float64(bounds.Max.X), float64(bounds.Max.Y)

	if view == nil || live == nil {
		return minX, minY, maxX - minX, maxY - minY
	}

	p1 := live.DispToCoord(gg.Pt(minX, minY))
	p2 := live.DispToCoord(gg.Pt(maxX, maxY))

	x = mapRange(view.Bounds.X, p1.X, p2.X, minX, maxX)
	y = mapRange(view.Bounds.Y, p1.Y, p2.Y, minY, maxY)
	w = mapRange(view.Bounds.W, 0, p2.X-p1.X, 0, maxX-minX)
	h = mapRange(view.Bounds.H, 0, p2.Y-p1.Y, 0, maxY-minY)
	return x, y, w, h
}

// mapRange maps v linearly from [a1, a2] to [b1, b2]. An empty source
// range maps everything to b1.
func mapRange(v, a1, a2, b1, b2 float64) float64 {
	if a2 == a1 {
		return b1
	}
	return b1 + (v-a1)*(b2-b1)/(a2-a1)
}

// clipTo restricts dst to bounds. Canvases that cannot produce a sub-image
// are drawn unclipped, with a one-time warning.
func (c *compositor) clipTo(dst draw.Image, bounds image.Rectangle) draw.Image {
	type subImager interface {
		SubImage(r image.Rectangle) image.Image
	}
	if si, ok := dst.(subImager); ok {
		if sub, ok := si.SubImage(bounds).(draw.Image); ok {
			return sub
		}
	}
	if !c.warnedClip {
		c.warnedClip = true
		Logger().Warn("ggbuffer: canvas does not support clipping, drawing unclipped",
			"canvas", fmt.Sprintf("%T", dst))
	}
	return dst
}

// surfaceImage exposes the pixels of dc without copying. gg stores
// premultiplied RGBA.
func surfaceImage(dc *gg.Context) *image.RGBA {
	pm := dc.ResizeTarget()
	return &image.RGBA{
		Pix:    pm.Data(),
		Stride: pm.Width() * 4,
		Rect:   image.Rect(0, 0, pm.Width(), pm.Height()),
	}
}

func (c *compositor) setFade(enabled bool, steps int) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.fade = enabled
	c.fadeSteps = steps
	if c.fadeFrame > steps {
		c.fadeFrame = steps
	}
}

func (c *compositor) fadeConfig() (enabled bool, steps int) {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.fade, c.fadeSteps
}

func (c *compositor) fadeLevel() float64 {
	c.mu.Lock()
	defer c.mu.Unlock()
	if !c.fade || c.fadeFrame >= c.fadeSteps {
		return 1
	}
	return float64(c.fadeFrame) / float64(c.fadeSteps)
}

// currentImage returns a copy of the current buffer.
func (c *compositor) currentImage() image.Image {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.current == nil {
		return nil
	}
	src := surfaceImage(c.current.dc)
	out := image.NewRGBA(src.Rect)
	copy(out.Pix, src.Pix)
	return out
}

// currentID returns the id of the current buffer, zero if none.
func (c *compositor) currentID() uint64 {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.current == nil {
		return 0
	}
	return c.current.id
}

// reset drops both buffers and returns the surfaces nobody is painting.
func (c *compositor) reset() []*gg.Context {
	c.mu.Lock()
	defer c.mu.Unlock()

	var out []*gg.Context
	for _, s := range []*slot{c.current, c.previous} {
		if dc := c.retireLocked(s); dc != nil {
			out = append(out, dc)
		}
	}
	c.current, c.previous = nil, nil
	c.fadeFrame = 0
	return out
}

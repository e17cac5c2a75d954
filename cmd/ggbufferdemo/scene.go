package main

import (
	"context"
	"image"
	"math/rand/v2"

	"github.com/gogpu/gg"
	"github.com/gogpu/ggbuffer"
	"github.com/gogpu/ggbuffer/zoompan"
)

// shape is an axis-aligned ellipse given by its bounding box in content
// coordinates.
type shape struct {
	rect   ggbuffer.Rect
	fill   gg.RGBA
	stroke gg.RGBA
}

func (s shape) contains(p gg.Point) bool {
	if !s.rect.Contains(p) {
		return false
	}
	rx, ry := s.rect.W/2, s.rect.H/2
	dx := (p.X - s.rect.X - rx) / rx
	dy := (p.Y - s.rect.Y - ry) / ry
	return dx*dx+dy*dy <= 1
}

func (s shape) path(dc *gg.Context) {
	rx, ry := s.rect.W/2, s.rect.H/2
	dc.DrawEllipse(s.rect.X+rx, s.rect.Y+ry, rx, ry)
}

// scene is the buffered content: many small translucent ellipses. It is
// immutable after creation and safe to draw from the render goroutine.
type scene struct {
	shapes []shape
}

// newScene scatters n ellipses over area with a deterministic seed.
func newScene(n int, area image.Rectangle, seed uint64) *scene {
	rng := rand.New(rand.NewPCG(seed, seed^0x9e3779b97f4a7c15))
	between := func(lo, hi float64) float64 { return lo + rng.Float64()*(hi-lo) }

	s := &scene{shapes: make([]shape, n)}
	for i := range s.shapes {
		s.shapes[i] = shape{
			rect: ggbuffer.Rect{
				X: between(float64(area.Min.X), float64(area.Max.X)),
				Y: between(float64(area.Min.Y), float64(area.Max.Y)),
				W: between(2, 10),
				H: between(2, 10),
			},
			fill:   gg.RGBA2(rng.Float64(), rng.Float64(), rng.Float64(), 100.0/255),
			stroke: gg.RGBA2(rng.Float64(), rng.Float64(), rng.Float64(), 100.0/255),
		}
	}
	return s
}

// DrawBuffer draws every shape visible in view. It checks for cancellation
// before each shape.
func (s *scene) DrawBuffer(ctx context.Context, dc *gg.Context, view *ggbuffer.View, _ any) error {
	scale := 1.0
	if view != nil {
		zoompan.FromTransform(view.State).Apply(dc)
		scale = view.Scale
	}
	dc.SetLineWidth(1 / scale)

	for _, sh := range s.shapes {
		if err := ctx.Err(); err != nil {
			return err
		}
		if view != nil && !view.Bounds.Intersects(sh.rect) {
			continue
		}
		sh.path(dc)
		dc.SetRGBA(sh.fill.R, sh.fill.G, sh.fill.B, sh.fill.A)
		if err := dc.FillPreserve(); err != nil {
			return err
		}
		dc.SetRGBA(sh.stroke.R, sh.stroke.G, sh.stroke.B, sh.stroke.A)
		if err := dc.Stroke(); err != nil {
			return err
		}
	}
	return nil
}

// hits returns the shapes under the content point p.
func (s *scene) hits(p gg.Point) []shape {
	var out []shape
	for _, sh := range s.shapes {
		if sh.contains(p) {
			out = append(out, sh)
		}
	}
	return out
}

// drawHover outlines shapes on the frame, clipped to the buffer bounds so
// outlines never spill outside the buffered area.
func drawHover(dc *gg.Context, st zoompan.State, bounds image.Rectangle, shapes []shape) error {
	if len(shapes) == 0 {
		return nil
	}
	dc.Push()
	defer dc.Pop()

	dc.ClipRect(float64(bounds.Min.X), float64(bounds.Min.Y), float64(bounds.Dx()), float64(bounds.Dy()))

	st.Apply(dc)
	dc.SetLineWidth(2 / st.ZoomScale())
	dc.SetRGBA(0, 0, 0, 150.0/255)
	for _, sh := range shapes {
		sh.path(dc)
		if err := dc.Stroke(); err != nil {
			return err
		}
	}
	return nil
}

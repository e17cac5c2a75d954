package ggbuffer

import (
	"image"

	"github.com/gogpu/gg"
)

// Transform maps between display (screen) and content coordinates at a
// single instant.
type Transform interface {
	// DispToCoord converts a display-space point to content space.
	DispToCoord(p gg.Point) gg.Point

	// CoordToDisp converts a content-space point to display space.
	CoordToDisp(p gg.Point) gg.Point

	// ZoomScale returns the content-to-display scale factor.
	ZoomScale() float64
}

// Viewport is a live zoom/pan provider.
//
// The Transform methods reflect the live state and may change between
// calls. State returns an immutable snapshot that can safely be handed to
// a background render.
type Viewport interface {
	Transform

	// State returns an immutable snapshot of the current transform.
	State() Transform

	// IsPanning reports whether a pan gesture is in progress.
	IsPanning() bool

	// IsZooming reports whether a zoom gesture is in progress.
	IsZooming() bool

	// OnMotionEnd registers fn to be called whenever a pan or zoom
	// gesture ends.
	OnMotionEnd(fn func())
}

// Rect is an axis-aligned rectangle in content coordinates.
type Rect struct {
	X, Y, W, H float64
}

// MinX returns the left edge.
func (r Rect) MinX() float64 { return r.X }

// MinY returns the top edge.
func (r Rect) MinY() float64 { return r.Y }

// MaxX returns the right edge.
func (r Rect) MaxX() float64 { return r.X + r.W }

// MaxY returns the bottom edge.
func (r Rect) MaxY() float64 { return r.Y + r.H }

// Contains reports whether p lies inside r. The right and bottom edges are
// exclusive.
func (r Rect) Contains(p gg.Point) bool {
	return p.X >= r.MinX() && p.X < r.MaxX() && p.Y >= r.MinY() && p.Y < r.MaxY()
}

// Intersects reports whether r and o overlap.
func (r Rect) Intersects(o Rect) bool {
	return r.MinX() < o.MaxX() && o.MinX() < r.MaxX() &&
		r.MinY() < o.MaxY() && o.MinY() < r.MaxY()
}

// ContentRect maps a screen rectangle through t and returns the content
// rectangle it shows. The width and height may be negative if t flips an
// axis.
func ContentRect(t Transform, screen image.Rectangle) Rect {
	p1 := t.DispToCoord(gg.Pt(float64(screen.Min.X), float64(screen.Min.Y)))
	p2 := t.DispToCoord(gg.Pt(float64(screen.Max.X), float64(screen.Max.Y)))
	return Rect{X: p1.X, Y: p1.Y, W: p2.X - p1.X, H: p2.Y - p1.Y}
}

// View is the viewport snapshot a render task is drawn against.
//
// It is captured once when the task is submitted and never changes, so a
// draw callback that culls against Bounds and transforms with State stays
// geometrically consistent even while the live viewport keeps moving.
type View struct {
	// State is the transform captured at submission.
	State Transform

	// Bounds is the content rectangle covered by the buffer's screen bounds.
	Bounds Rect

	// Scale is State's zoom scale at submission.
	Scale float64
}

func newView(state Transform, screen image.Rectangle) *View {
	if state == nil {
		return nil
	}
	return &View{
		State:  state,
		Bounds: ContentRect(state, screen),
		Scale:  state.ZoomScale(),
	}
}

// Package busyicon draws an animated busy indicator: a ring of spokes whose
// grey levels rotate one step per frame.
//
// Show it while a ggbuffer.Buffer is rendering in the background:
//
//	if buf.IsRenderingInBackground() {
//	    icon.Draw(dc, x, y, 40)
//	}
package busyicon

import (
	"errors"
	"math"

	"github.com/gogpu/gg"
)

const (
	// Spokes is the number of spokes in the ring.
	Spokes = 12

	minGrey = 150
	maxGrey = 255

	// greyStep is the grey increment between neighbouring spokes.
	greyStep = (maxGrey - minGrey) / (Spokes - 1)
)

// Icon is a busy indicator. The zero value starts at the first frame.
// An Icon is animated by drawing it and is not safe for concurrent use.
type Icon struct {
	start int
}

// New returns an icon at the first animation frame.
func New() *Icon {
	return &Icon{start: minGrey}
}

// Draw paints the icon centred on (x, y) with the given diameter and
// advances the animation by one frame. dc's transform is restored; its
// color, line width and line cap are not.
func (ic *Icon) Draw(dc *gg.Context, x, y, diameter float64) error {
	if ic.start < minGrey || ic.start > maxGrey {
		ic.start = minGrey
	}

	dc.Push()
	defer dc.Pop()

	dc.SetRGBA(1, 1, 1, 50.0/255)
	dc.DrawCircle(x, y, diameter/2)
	err := dc.Fill()

	dc.Translate(x, y)
	dc.SetLineWidth(diameter / 14)
	dc.SetLineCap(gg.LineCapRound)

	for _, grey := range ic.Greys() {
		dc.Rotate(2 * math.Pi / Spokes)
		g := float64(grey) / 255
		dc.SetRGB(g, g, g)
		dc.DrawLine(diameter/3, diameter/3, diameter/8, diameter/8)
		err = errors.Join(err, dc.Stroke())
	}

	ic.start++
	if ic.start > maxGrey {
		ic.start = minGrey
	}
	return err
}

// Greys returns the grey level of each spoke for the next frame, in
// drawing order.
func (ic *Icon) Greys() [Spokes]int {
	var out [Spokes]int
	grey := ic.start
	if grey < minGrey || grey > maxGrey {
		grey = minGrey
	}
	for i := range out {
		out[i] = grey
		grey += greyStep
		if grey > maxGrey {
			grey = minGrey
		}
	}
	return out
}

// Frame returns the grey level of the first spoke, which identifies the
// animation frame.
func (ic *Icon) Frame() int {
	return ic.start
}

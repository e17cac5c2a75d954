package ggbuffer

import (
	"context"
	"fmt"
	"image"

	"github.com/gogpu/gg"
)

// task is one background render.
type task struct {
	id     uint64
	ctx    context.Context
	cancel context.CancelFunc

	dc     *gg.Context
	view   *View
	data   any
	fade   bool
	bounds image.Rectangle

	mode    gg.RasterizerMode
	hasMode bool
}

// run is the worker goroutine body.
func (b *Buffer) run(t *task) {
	err := b.execute(t)
	b.finish(t, err)
}

// execute prepares the surface and invokes the drawer. A panic in the
// drawer is turned into an error wrapping both ErrDrawFailed and
// ErrDrawPanic.
func (b *Buffer) execute(t *task) (err error) {
	dc := t.dc

	// The crossfade blends against the previous buffer, so the new one
	// must be opaque.
	if t.fade {
		dc.ClearWithColor(gg.White)
	} else {
		dc.Clear()
	}
	if t.hasMode {
		dc.SetRasterizerMode(t.mode)
	}

	dc.Push()
	dc.Identity()
	dc.Translate(-float64(t.bounds.Min.X), -float64(t.bounds.Min.Y))

	defer func() {
		if r := recover(); r != nil {
			err = fmt.Errorf("%w: %w: %v", ErrDrawFailed, ErrDrawPanic, r)
		}
		dc.Pop()
		if err == nil {
			if ferr := dc.FlushGPU(); ferr != nil {
				err = fmt.Errorf("%w: flush: %w", ErrDrawFailed, ferr)
			}
		}
	}()

	if derr := b.drawer.DrawBuffer(t.ctx, dc, t.view, t.data); derr != nil {
		return fmt.Errorf("%w: %w", ErrDrawFailed, derr)
	}
	return nil
}

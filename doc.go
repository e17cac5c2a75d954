// Package ggbuffer provides threaded off-screen render buffers for gg.
//
// # Overview
//
// A Buffer lets an interactive frame loop show content that is too slow to
// draw every frame. The content is described once as a Drawer; the buffer
// renders it into an off-screen *gg.Context on a background goroutine and
// composites the last finished result onto the host canvas on every Draw.
// The frame loop never waits for a render.
//
// # Quick Start
//
//	import "github.com/gogpu/ggbuffer"
//
//	drawer := ggbuffer.DrawerFunc(func(ctx context.Context, dc *gg.Context, view *ggbuffer.View, _ any) error {
//		for _, item := range items {
//			if err := ctx.Err(); err != nil {
//				return err
//			}
//			item.Draw(dc)
//		}
//		return nil
//	})
//
//	buf, err := ggbuffer.New(host, nil, drawer, image.Rect(50, 50, 750, 450))
//	if err != nil {
//		return err
//	}
//	defer buf.Close()
//
//	for range frames {
//		_ = buf.Draw() // composites; starts a render when one is due
//	}
//
// # Scheduling
//
// A new Buffer is dirty, so the first Draw starts a render. MarkDirty
// requests another one. While a render runs, a newer request cancels it
// through its context and is started as soon as the cancelled drawer
// returns, so at most one drawer runs at a time and the most recently
// requested render is the one that ends up on screen.
//
// # Viewports
//
// With a Viewport (see package zoompan), each render is drawn against an
// immutable View captured when it was requested. Compositing maps the
// buffer from that View to the live viewport, so panning and zooming move
// the old content immediately while a fresh render is in progress. Renders
// are deferred until a gesture ends unless updating during viewport motion
// is enabled.
//
// # Fading
//
// With WithFade, a newly committed buffer is blended over the previous one
// across a fixed number of frames. FadeLevel reports the progress.
//
// # Notifications
//
// Listeners registered with Subscribe are called on the render goroutine
// after every commit. A Listener that also implements FailureListener is
// told about drawer errors and panics.
//
// # Logging
//
// The package is silent by default. SetLogger installs a *slog.Logger for
// this package and for gg.
package ggbuffer

package main

import (
	"context"
	"errors"
	"fmt"
	"image"
	"os"
	"path/filepath"
	"sync/atomic"
	"time"

	"github.com/gogpu/gg"
	"github.com/gogpu/ggbuffer"
	"github.com/gogpu/ggbuffer/screen"
	"github.com/gogpu/ggbuffer/zoompan"
)

// runStats summarizes a finished run.
type runStats struct {
	frames   int
	commits  int64
	failures int64
	saved    int
	elapsed  time.Duration
}

// counter counts buffer notifications.
type counter struct {
	commits  atomic.Int64
	failures atomic.Int64
}

func (c *counter) BufferAvailable() { c.commits.Add(1) }

func (c *counter) BufferFailed(err error) {
	c.failures.Add(1)
	ggbuffer.Logger().Warn("render failed", "err", err)
}

// demo is one run of the scripted scene.
type demo struct {
	cfg    Config
	bounds image.Rectangle
	scr    *screen.Screen
	zp     *zoompan.ZoomPan
	scene  *scene
	buf    *ggbuffer.Buffer
	hud    *hud
	counts counter
}

func newDemo(cfg Config) (*demo, error) {
	scr, err := screen.New(cfg.Width, cfg.Height)
	if err != nil {
		return nil, err
	}
	h, err := newHUD()
	if err != nil {
		_ = scr.Close()
		return nil, err
	}

	d := &demo{
		cfg:    cfg,
		bounds: image.Rect(cfg.Margin, cfg.Margin, cfg.Width-cfg.Margin, cfg.Height-cfg.Margin),
		scr:    scr,
		zp:     zoompan.New(zoompan.WithScaleLimits(cfg.MinZoom, cfg.MaxZoom)),
		hud:    h,
	}
	d.scene = newScene(cfg.Shapes, d.bounds, cfg.Seed)

	opts := []ggbuffer.Option{
		ggbuffer.WithUpdateDuringViewportMotion(cfg.UpdateDuringMotion),
		ggbuffer.WithMaxSurfaces(3),
	}
	if cfg.Fade {
		opts = append(opts, ggbuffer.WithFade(cfg.FadeSteps))
	}
	d.buf, err = ggbuffer.New(scr, d.zp, d.scene, d.bounds, opts...)
	if err != nil {
		_ = scr.Close()
		return nil, err
	}
	d.buf.Subscribe(&d.counts)
	return d, nil
}

func (d *demo) close() {
	if err := d.buf.Close(); err != nil {
		ggbuffer.Logger().Warn("close buffer", "err", err)
	}
	_ = d.scr.Close()
}

// run plays cfg.Frames frames at cfg.FPS, then waits for the last render
// and saves a final frame.
func run(ctx context.Context, cfg Config) (runStats, error) {
	d, err := newDemo(cfg)
	if err != nil {
		return runStats{}, err
	}
	defer d.close()

	if cfg.OutDir != "" {
		if err := os.MkdirAll(cfg.OutDir, 0o755); err != nil {
			return runStats{}, err
		}
	}

	var st runStats
	start := time.Now()
	tick := time.NewTicker(time.Second / time.Duration(cfg.FPS))
	defer tick.Stop()

	for frame := range cfg.Frames {
		d.applySteps(frame)
		if err := d.frame(frame); err != nil {
			return st, err
		}
		st.frames++

		if cfg.OutDir != "" && cfg.SaveEvery > 0 && frame%cfg.SaveEvery == 0 {
			if err := d.save(fmt.Sprintf("frame-%04d.png", frame)); err != nil {
				return st, err
			}
			st.saved++
		}

		select {
		case <-ctx.Done():
			return d.finish(st, start), ctx.Err()
		case <-tick.C:
		}
	}

	if err := d.buf.WaitIdle(ctx); err != nil {
		return d.finish(st, start), err
	}
	if err := d.frame(cfg.Frames); err != nil {
		return st, err
	}
	if cfg.OutDir != "" {
		if err := d.save("final.png"); err != nil {
			return st, err
		}
		st.saved++
	}
	return d.finish(st, start), nil
}

func (d *demo) finish(st runStats, start time.Time) runStats {
	st.commits = d.counts.commits.Load()
	st.failures = d.counts.failures.Load()
	st.elapsed = time.Since(start)
	return st
}

// frame draws one frame: the buffer, hover outlines on top of it and the
// HUD.
func (d *demo) frame(n int) error {
	d.scr.BeginFrame()
	state := d.zp.Snapshot()

	ptr := d.scr.Pointer()
	pp := gg.Pt(float64(ptr.X), float64(ptr.Y))
	var hovered []shape
	if ptr.In(d.bounds) {
		hovered = d.scene.hits(state.DispToCoord(pp))
	}

	if err := d.buf.DrawState(state, nil); err != nil {
		if errors.Is(err, ggbuffer.ErrClosed) {
			return err
		}
		ggbuffer.Logger().Warn("draw buffer", "frame", n, "err", err)
	}

	dc := d.scr.Context()
	if err := drawHover(dc, state, d.bounds, hovered); err != nil {
		return err
	}
	return d.hud.draw(dc, frameInfo{
		frame:     n,
		rendering: d.buf.IsRenderingInBackground(),
		fade:      d.buf.FadeLevel(),
		zoom:      state.ZoomScale(),
		commits:   d.counts.commits.Load(),
		shapes:    len(d.scene.shapes),
		hovered:   len(hovered),
		pointer:   pp,
	})
}

func (d *demo) save(name string) error {
	path := filepath.Join(d.cfg.OutDir, name)
	if err := d.scr.SavePNG(path); err != nil {
		return fmt.Errorf("save %s: %w", path, err)
	}
	ggbuffer.Logger().Debug("frame saved", "path", path)
	return nil
}

// applySteps performs the scripted actions active on frame.
func (d *demo) applySteps(frame int) {
	for _, s := range d.cfg.Steps {
		if frame < s.From || frame > s.To {
			continue
		}
		switch s.Action {
		case ActionPointer:
			d.scr.SetPointer(image.Pt(int(s.X), int(s.Y)))
		case ActionBeginPan:
			d.zp.BeginPan()
		case ActionPan:
			d.zp.Pan(s.DX, s.DY)
		case ActionEndPan:
			d.zp.EndPan()
		case ActionBeginZoom:
			d.zp.BeginZoom()
		case ActionZoom:
			d.zp.Zoom(s.Factor, gg.Pt(s.X, s.Y))
		case ActionEndZoom:
			d.zp.EndZoom()
		case ActionReset:
			d.zp.Reset()
		case ActionFade:
			d.buf.SetFade(!d.buf.Fade(), d.cfg.FadeSteps)
		}
	}
}

package main

import (
	"context"
	"image"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/gogpu/gg"
	"github.com/gogpu/ggbuffer"
	"github.com/gogpu/ggbuffer/zoompan"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func identityView(bounds ggbuffer.Rect) *ggbuffer.View {
	return &ggbuffer.View{State: zoompan.NewState(gg.Identity()), Bounds: bounds, Scale: 1}
}

func opaquePixels(img image.Image) int {
	n := 0
	b := img.Bounds()
	for y := b.Min.Y; y < b.Max.Y; y++ {
		for x := b.Min.X; x < b.Max.X; x++ {
			if _, _, _, a := img.At(x, y).RGBA(); a != 0 {
				n++
			}
		}
	}
	return n
}

func TestNewSceneDeterministic(t *testing.T) {
	area := image.Rect(10, 20, 110, 80)
	a := newScene(200, area, 7)
	b := newScene(200, area, 7)
	c := newScene(200, area, 8)

	assert.Equal(t, a.shapes, b.shapes)
	assert.NotEqual(t, a.shapes, c.shapes)
	for _, sh := range a.shapes {
		assert.GreaterOrEqual(t, sh.rect.X, 10.0)
		assert.Less(t, sh.rect.X, 110.0)
		assert.GreaterOrEqual(t, sh.rect.Y, 20.0)
		assert.Less(t, sh.rect.Y, 80.0)
	}
}

func TestShapeContains(t *testing.T) {
	sh := shape{rect: ggbuffer.Rect{X: 0, Y: 0, W: 10, H: 10}}

	assert.True(t, sh.contains(gg.Pt(5, 5)))
	assert.True(t, sh.contains(gg.Pt(5, 0.5)))
	assert.False(t, sh.contains(gg.Pt(0.5, 0.5)), "corner of the box is outside the ellipse")
	assert.False(t, sh.contains(gg.Pt(20, 5)))
}

func TestSceneHits(t *testing.T) {
	s := &scene{shapes: []shape{
		{rect: ggbuffer.Rect{X: 0, Y: 0, W: 10, H: 10}},
		{rect: ggbuffer.Rect{X: 4, Y: 4, W: 10, H: 10}},
		{rect: ggbuffer.Rect{X: 50, Y: 50, W: 4, H: 4}},
	}}

	assert.Len(t, s.hits(gg.Pt(7, 7)), 2)
	assert.Len(t, s.hits(gg.Pt(52, 52)), 1)
	assert.Empty(t, s.hits(gg.Pt(30, 30)))
}

func TestSceneDrawCullsToView(t *testing.T) {
	s := newScene(100, image.Rect(0, 0, 60, 60), 3)

	dc := gg.NewContext(64, 64)
	err := s.DrawBuffer(context.Background(), dc, identityView(ggbuffer.Rect{X: 500, Y: 500, W: 10, H: 10}), nil)
	require.NoError(t, err)
	assert.Zero(t, opaquePixels(dc.Image()), "every shape is outside the view")

	dc = gg.NewContext(64, 64)
	err = s.DrawBuffer(context.Background(), dc, identityView(ggbuffer.Rect{W: 64, H: 64}), nil)
	require.NoError(t, err)
	assert.NotZero(t, opaquePixels(dc.Image()))
}

func TestSceneDrawWithoutView(t *testing.T) {
	s := newScene(20, image.Rect(0, 0, 30, 30), 1)
	dc := gg.NewContext(32, 32)

	require.NoError(t, s.DrawBuffer(context.Background(), dc, nil, nil))
	assert.NotZero(t, opaquePixels(dc.Image()))
}

func TestSceneDrawStopsWhenCancelled(t *testing.T) {
	s := newScene(50, image.Rect(0, 0, 30, 30), 1)
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	dc := gg.NewContext(32, 32)
	err := s.DrawBuffer(ctx, dc, nil, nil)
	assert.ErrorIs(t, err, context.Canceled)
	assert.Zero(t, opaquePixels(dc.Image()))
}

func TestRunWritesFrames(t *testing.T) {
	cfg := defaultConfig()
	cfg.Width, cfg.Height, cfg.Margin = 160, 120, 10
	cfg.Shapes = 300
	cfg.Frames = 3
	cfg.FPS = 1000
	cfg.SaveEvery = 1
	cfg.OutDir = t.TempDir()
	cfg.Steps = []Step{
		{From: 0, To: 2, Action: ActionPointer, X: 80, Y: 60},
		{From: 1, To: 1, Action: ActionZoom, X: 80, Y: 60, Factor: 2},
	}
	require.NoError(t, cfg.validate())

	ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()

	st, err := run(ctx, cfg)
	require.NoError(t, err)
	assert.Equal(t, 3, st.frames)
	assert.Equal(t, 4, st.saved)
	assert.GreaterOrEqual(t, st.commits, int64(1))
	assert.Zero(t, st.failures)

	for _, name := range []string{"frame-0000.png", "frame-0002.png", "final.png"} {
		_, err := os.Stat(filepath.Join(cfg.OutDir, name))
		assert.NoError(t, err, name)
	}
}

func TestRunCancelled(t *testing.T) {
	cfg := defaultConfig()
	cfg.Width, cfg.Height, cfg.Margin = 80, 60, 5
	cfg.Shapes = 10
	cfg.OutDir = ""
	cfg.Steps = nil

	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	st, err := run(ctx, cfg)
	assert.ErrorIs(t, err, context.Canceled)
	assert.Positive(t, st.frames)
	assert.Less(t, st.frames, cfg.Frames)
}

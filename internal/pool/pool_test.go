// Copyright 2026 The gogpu Authors
// SPDX-License-Identifier: MIT

package pool

import (
	"bytes"
	"log/slog"
	"strings"
	"sync"
	"testing"

	"github.com/gogpu/gg"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestAcquireCreatesAndReuses(t *testing.T) {
	p := New()

	a, err := p.Acquire(40, 30)
	require.NoError(t, err)
	assert.Equal(t, 40, a.Width())
	assert.Equal(t, 30, a.Height())

	b, err := p.Acquire(40, 30)
	require.NoError(t, err)
	assert.NotSame(t, a, b, "in-use surface must not be handed out twice")

	p.Release(a)
	c, err := p.Acquire(40, 30)
	require.NoError(t, err)
	assert.Same(t, a, c, "released surface should be reused")

	st := p.Stats()
	assert.Equal(t, 2, st.Created)
	assert.Equal(t, 2, st.InUse)
	assert.Equal(t, 2, st.Surfaces)
}

func TestLoggerResolvedPerCall(t *testing.T) {
	var first, second bytes.Buffer
	cur := slog.New(slog.NewTextHandler(&first, &slog.HandlerOptions{Level: slog.LevelDebug}))
	p := New(WithLogger(func() *slog.Logger { return cur }))

	_, err := p.Acquire(8, 8)
	require.NoError(t, err)
	assert.Contains(t, first.String(), "surface allocated")

	cur = slog.New(slog.NewTextHandler(&second, &slog.HandlerOptions{Level: slog.LevelDebug}))
	_, err = p.Acquire(8, 8)
	require.NoError(t, err)
	assert.Contains(t, second.String(), "surface allocated")
	assert.Equal(t, 1, strings.Count(first.String(), "surface allocated"))
}

func TestAcquireInvalidSize(t *testing.T) {
	p := New()
	tests := []struct {
		name string
		w, h int
	}{
		{"zero width", 0, 10},
		{"zero height", 10, 0},
		{"negative", -1, -1},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := p.Acquire(tt.w, tt.h)
			assert.ErrorIs(t, err, ErrInvalidSize)
		})
	}
}

func TestAcquireEvictsStaleSizes(t *testing.T) {
	p := New()

	small, err := p.Acquire(10, 10)
	require.NoError(t, err)
	p.Release(small)

	big, err := p.Acquire(20, 20)
	require.NoError(t, err)
	assert.NotSame(t, small, big)

	st := p.Stats()
	assert.Equal(t, 1, st.Evicted)
	assert.Equal(t, 1, st.Surfaces, "stale free surface should be dropped")
}

func TestReleaseOfEvictedInUseSurface(t *testing.T) {
	p := New()

	old, err := p.Acquire(10, 10)
	require.NoError(t, err)

	// A resize happens while old is still in use.
	cur, err := p.Acquire(12, 12)
	require.NoError(t, err)
	p.Release(cur)

	p.Release(old)
	st := p.Stats()
	assert.Equal(t, 1, st.Surfaces, "evicted surface must not return to the free list")
	assert.Equal(t, 0, st.InUse)

	again, err := p.Acquire(12, 12)
	require.NoError(t, err)
	assert.Same(t, cur, again)
}

func TestReleaseUnknownIsNoop(t *testing.T) {
	p := New()
	p.Release(nil)
	p.Release(gg.NewContext(4, 4))
	assert.Equal(t, Stats{}, p.Stats())
}

func TestAcquireLimits(t *testing.T) {
	t.Run("max surfaces", func(t *testing.T) {
		p := New(WithMaxSurfaces(2))
		_, err := p.Acquire(8, 8)
		require.NoError(t, err)
		_, err = p.Acquire(8, 8)
		require.NoError(t, err)
		_, err = p.Acquire(8, 8)
		assert.ErrorIs(t, err, ErrExhausted)
	})

	t.Run("max pixels", func(t *testing.T) {
		p := New(WithMaxPixels(100))
		_, err := p.Acquire(10, 10)
		require.NoError(t, err)
		_, err = p.Acquire(11, 10)
		assert.ErrorIs(t, err, ErrExhausted)
	})
}

func TestAcquireResetsState(t *testing.T) {
	p := New()
	dc, err := p.Acquire(16, 16)
	require.NoError(t, err)
	dc.Translate(5, 5)
	dc.ClipRect(0, 0, 2, 2)
	p.Release(dc)

	dc, err = p.Acquire(16, 16)
	require.NoError(t, err)
	assert.True(t, dc.GetTransform().IsIdentity())
}

func TestClose(t *testing.T) {
	p := New()
	held, err := p.Acquire(8, 8)
	require.NoError(t, err)
	free, err := p.Acquire(8, 8)
	require.NoError(t, err)
	p.Release(free)

	require.NoError(t, p.Close())
	require.NoError(t, p.Close())

	_, err = p.Acquire(8, 8)
	assert.ErrorIs(t, err, ErrClosed)

	p.Release(held)
	assert.Equal(t, 0, p.Stats().Surfaces)
}

func TestConcurrentAcquireRelease(t *testing.T) {
	p := New()
	var wg sync.WaitGroup
	for range 8 {
		wg.Add(1)
		go func() {
			defer wg.Done()
			for range 50 {
				dc, err := p.Acquire(8, 8)
				if err != nil {
					t.Error(err)
					return
				}
				p.Release(dc)
			}
		}()
	}
	wg.Wait()

	st := p.Stats()
	assert.Equal(t, 0, st.InUse)
	assert.LessOrEqual(t, st.Created, 8)
}

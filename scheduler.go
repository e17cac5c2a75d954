package ggbuffer

import (
	"context"
	"fmt"
	"image"
	"sync"

	"github.com/gogpu/gg"
)

// State is the scheduler state of a Buffer.
type State int

const (
	// Idle means no render task is running.
	Idle State = iota

	// Rendering means one render task is running, possibly already
	// cancelled and about to be replaced by a pending request.
	Rendering
)

// String returns the state name.
func (s State) String() string {
	switch s {
	case Idle:
		return "Idle"
	case Rendering:
		return "Rendering"
	default:
		return fmt.Sprintf("State(%d)", int(s))
	}
}

// request is a render that has been asked for but not started.
type request struct {
	view    *View
	data    any
	fade    bool
	bounds  image.Rectangle
	mode    gg.RasterizerMode
	hasMode bool
}

// scheduler decides when renders start and owns the single active task.
//
// mu guards every field. It may be held while taking the compositor or
// pool locks, never the other way around.
type scheduler struct {
	mu sync.Mutex

	state  State
	bounds image.Rectangle
	dirty  bool

	// active is the running task, nil when idle.
	active *task

	// pending is the request to start once the cancelled active task
	// returns. A newer request replaces an older one.
	pending *request

	// idle is closed whenever state is Idle.
	idle chan struct{}

	updateDuringMotion bool
	lastPointer        image.Point

	// deferred holds an error from a restart on the worker goroutine,
	// returned by the next Draw.
	deferred error

	nextID uint64
	closed bool
}

func (s *scheduler) init(bounds image.Rectangle, updateDuringMotion bool) {
	s.bounds = bounds
	s.dirty = true
	s.updateDuringMotion = updateDuringMotion
	s.lastPointer = image.Pt(-1, -1)
	s.idle = make(chan struct{})
	close(s.idle)
}

// schedule runs the per-frame scheduling decision and returns the bounds
// to composite with. The update flag is read and cleared in the same
// critical section that decides to start or supersede a task.
func (b *Buffer) schedule(state Transform, data any) (image.Rectangle, error) {
	s := &b.sched
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.closed {
		return s.bounds, ErrClosed
	}

	err := s.deferred
	s.deferred = nil

	if !b.updateDueLocked() {
		return s.bounds, err
	}
	s.dirty = false

	fade, _ := b.comp.fadeConfig()
	req := request{
		view:   newView(state, s.bounds),
		data:   data,
		fade:   fade,
		bounds: s.bounds,
	}
	if sh, ok := b.host.(SmoothingHost); ok {
		req.mode = sh.RasterizerMode()
		req.hasMode = true
	}

	if startErr := b.submitLocked(req); startErr != nil && err == nil {
		err = startErr
	}
	return s.bounds, err
}

// updateDueLocked reports whether a render should be requested this frame.
func (b *Buffer) updateDueLocked() bool {
	s := &b.sched
	if b.viewport == nil {
		return s.dirty
	}

	moving := b.viewport.IsPanning() || b.viewport.IsZooming()
	if s.updateDuringMotion && moving {
		if p := b.host.Pointer(); p != s.lastPointer {
			s.lastPointer = p
			return true
		}
		return s.dirty
	}
	if !s.updateDuringMotion && moving {
		return false
	}
	return s.dirty
}

// submitLocked starts req now if idle, otherwise cancels the active task
// and queues req to start when that task returns.
func (b *Buffer) submitLocked(req request) error {
	s := &b.sched
	if s.active == nil {
		return b.startLocked(req)
	}

	s.active.cancel()
	if s.pending != nil {
		Logger().Debug("ggbuffer: pending render replaced")
	}
	s.pending = &req
	Logger().Debug("ggbuffer: render superseded", "task", s.active.id)
	return nil
}

// startLocked acquires a surface and launches a worker for req. It runs on
// the frame goroutine for fresh requests and on the retiring worker for
// pending ones.
func (b *Buffer) startLocked(req request) error {
	s := &b.sched

	dc, err := b.pool.Acquire(req.bounds.Dx(), req.bounds.Dy())
	if err != nil {
		return fmt.Errorf("%w: %w", ErrResourceExhausted, err)
	}

	ctx, cancel := context.WithCancel(context.Background())
	s.nextID++
	t := &task{
		id:      s.nextID,
		ctx:     ctx,
		cancel:  cancel,
		dc:      dc,
		view:    req.view,
		data:    req.data,
		fade:    req.fade,
		bounds:  req.bounds,
		mode:    req.mode,
		hasMode: req.hasMode,
	}

	if s.state == Idle {
		s.idle = make(chan struct{})
		s.state = Rendering
	}
	s.active = t

	Logger().Debug("ggbuffer: render started", "task", t.id, "fade", t.fade, "bounds", t.bounds)
	go b.run(t)
	return nil
}

// finish settles a returned task. Whether the task counts as cancelled is
// decided under the scheduler lock, so a task cancelled by a concurrent
// Draw can never be committed after its replacement was queued.
func (b *Buffer) finish(t *task, drawErr error) {
	s := &b.sched
	var (
		committed bool
		stale     *gg.Context
		failure   error
		startErr  error
	)

	s.mu.Lock()
	switch {
	case t.ctx.Err() != nil:
		Logger().Debug("ggbuffer: render cancelled", "task", t.id)
		b.pool.Release(t.dc)
	case drawErr != nil:
		failure = drawErr
		b.pool.Release(t.dc)
	default:
		stale = b.comp.commit(&slot{dc: t.dc, view: t.view, id: t.id, data: t.data})
		committed = true
		Logger().Debug("ggbuffer: render committed", "task", t.id)
	}
	t.cancel()
	s.active = nil

	if s.pending != nil && !s.closed {
		req := *s.pending
		s.pending = nil
		if startErr = b.startLocked(req); startErr != nil {
			s.deferred = startErr
		}
	}
	if s.active == nil {
		s.state = Idle
		close(s.idle)
	}
	s.mu.Unlock()

	b.pool.Release(stale)

	if committed {
		b.notify.available()
	}
	if failure != nil {
		Logger().Warn("ggbuffer: render failed", "task", t.id, "err", failure)
		b.notify.failed(failure)
	}
	if startErr != nil {
		Logger().Warn("ggbuffer: pending render not started", "err", startErr)
		b.notify.failed(startErr)
	}
}

// stop cancels the active task, drops any pending request and waits until
// the scheduler is idle.
func (b *Buffer) stop(ctx context.Context) error {
	b.sched.mu.Lock()
	b.sched.pending = nil
	if b.sched.active != nil {
		b.sched.active.cancel()
	}
	b.sched.mu.Unlock()

	return b.WaitIdle(ctx)
}

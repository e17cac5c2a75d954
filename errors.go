package ggbuffer

import "errors"

// Errors returned by Buffer operations.
var (
	// ErrNilHost is returned by New when no frame host is given.
	ErrNilHost = errors.New("ggbuffer: nil host")

	// ErrNilDrawer is returned by New when no draw callback is given.
	ErrNilDrawer = errors.New("ggbuffer: nil drawer")

	// ErrInvalidBounds is returned for empty screen bounds.
	ErrInvalidBounds = errors.New("ggbuffer: invalid screen bounds")

	// ErrClosed is returned by operations on a closed Buffer.
	ErrClosed = errors.New("ggbuffer: buffer is closed")

	// ErrResourceExhausted is returned when no off-screen surface can be
	// allocated for a render. It is not retried automatically.
	ErrResourceExhausted = errors.New("ggbuffer: off-screen surface unavailable")

	// ErrDrawFailed wraps an error returned by a draw callback. It is
	// delivered to failure listeners, never returned from Draw.
	ErrDrawFailed = errors.New("ggbuffer: draw callback failed")

	// ErrDrawPanic wraps a panic recovered from a draw callback.
	ErrDrawPanic = errors.New("ggbuffer: draw callback panicked")
)

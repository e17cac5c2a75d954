package ggbuffer

// DefaultFadeSteps is the number of frames a crossfade takes when no
// explicit step count is given.
const DefaultFadeSteps = 10

// Option configures a Buffer during creation.
//
// Example:
//
//	buf, err := ggbuffer.New(host, zp, drawer, bounds,
//	    ggbuffer.WithFade(10),
//	    ggbuffer.WithUpdateDuringViewportMotion(true),
//	)
type Option func(*options)

// options holds optional configuration for Buffer creation.
type options struct {
	fade               bool
	fadeSteps          int
	updateDuringMotion bool
	maxSurfaces        int
	maxSurfacePixels   int
}

// defaultOptions returns the default buffer options.
func defaultOptions() options {
	return options{
		fadeSteps: DefaultFadeSteps,
	}
}

// WithFade enables crossfading from the previous buffer to a newly
// committed one over steps frames. Non-positive steps selects
// DefaultFadeSteps.
func WithFade(steps int) Option {
	return func(o *options) {
		o.fade = true
		o.fadeSteps = normalizeFadeSteps(steps)
	}
}

// WithUpdateDuringViewportMotion makes the buffer re-render continuously
// while the viewport is panning or zooming and the pointer moves, instead
// of waiting for the gesture to end.
func WithUpdateDuringViewportMotion(enabled bool) Option {
	return func(o *options) {
		o.updateDuringMotion = enabled
	}
}

// WithMaxSurfaces caps the number of off-screen surfaces the buffer may
// allocate. Zero means unbounded. A buffer needs at most three at a time:
// current, previous and the one being rendered.
func WithMaxSurfaces(n int) Option {
	return func(o *options) {
		o.maxSurfaces = n
	}
}

// WithMaxSurfacePixels caps the pixel count of a single off-screen surface.
func WithMaxSurfacePixels(n int) Option {
	return func(o *options) {
		o.maxSurfacePixels = n
	}
}

func normalizeFadeSteps(steps int) int {
	if steps <= 0 {
		return DefaultFadeSteps
	}
	return steps
}

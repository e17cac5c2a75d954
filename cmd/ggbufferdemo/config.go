package main

import (
	"errors"
	"fmt"

	"github.com/BurntSushi/toml"
)

// Config describes a demo run. It is read from a TOML file; flags override
// individual fields.
type Config struct {
	Width  int `toml:"width"`
	Height int `toml:"height"`
	Margin int `toml:"margin"`

	Shapes int    `toml:"shapes"`
	Seed   uint64 `toml:"seed"`

	Frames    int    `toml:"frames"`
	FPS       int    `toml:"fps"`
	SaveEvery int    `toml:"save_every"`
	OutDir    string `toml:"out_dir"`

	Fade               bool `toml:"fade"`
	FadeSteps          int  `toml:"fade_steps"`
	UpdateDuringMotion bool `toml:"update_during_motion"`

	MinZoom float64 `toml:"min_zoom"`
	MaxZoom float64 `toml:"max_zoom"`

	Steps []Step `toml:"step"`
}

// Step is a scripted viewport or buffer action applied on every frame in
// [From, To].
type Step struct {
	From   int     `toml:"from"`
	To     int     `toml:"to"`
	Action string  `toml:"action"`
	X      float64 `toml:"x"`
	Y      float64 `toml:"y"`
	DX     float64 `toml:"dx"`
	DY     float64 `toml:"dy"`
	Factor float64 `toml:"factor"`
}

// Step actions.
const (
	ActionBeginPan  = "begin-pan"
	ActionPan       = "pan"
	ActionEndPan    = "end-pan"
	ActionBeginZoom = "begin-zoom"
	ActionZoom      = "zoom"
	ActionEndZoom   = "end-zoom"
	ActionReset     = "reset"
	ActionFade      = "toggle-fade"
	ActionPointer   = "pointer"
)

var errInvalidConfig = errors.New("invalid config")

// defaultConfig mirrors the interactive sketch: an 800x500 window, the
// buffer inset by 50 pixels, a zoom in, a pan and a reset.
func defaultConfig() Config {
	return Config{
		Width:     800,
		Height:    500,
		Margin:    50,
		Shapes:    30000,
		Seed:      1,
		Frames:    150,
		FPS:       30,
		SaveEvery: 10,
		OutDir:    "frames",
		FadeSteps: 10,
		MinZoom:   0.5,
		MaxZoom:   40,
		Steps: []Step{
			{From: 0, To: 149, Action: ActionPointer, X: 400, Y: 250},
			{From: 20, To: 20, Action: ActionBeginZoom},
			{From: 20, To: 40, Action: ActionZoom, X: 400, Y: 250, Factor: 1.05},
			{From: 40, To: 40, Action: ActionEndZoom},
			{From: 70, To: 70, Action: ActionBeginPan},
			{From: 70, To: 90, Action: ActionPan, DX: -6, DY: 3},
			{From: 90, To: 90, Action: ActionEndPan},
			{From: 110, To: 110, Action: ActionFade},
			{From: 120, To: 120, Action: ActionReset},
		},
	}
}

// loadConfig reads path over the defaults. An empty path returns the
// defaults.
func loadConfig(path string) (Config, error) {
	cfg := defaultConfig()
	if path == "" {
		return cfg, nil
	}

	// A file with steps replaces the default script entirely.
	cfg.Steps = nil
	md, err := toml.DecodeFile(path, &cfg)
	if err != nil {
		return Config{}, fmt.Errorf("read config %s: %w", path, err)
	}
	if !md.IsDefined("step") {
		cfg.Steps = defaultConfig().Steps
	}
	if undec := md.Undecoded(); len(undec) > 0 {
		return Config{}, fmt.Errorf("%w: unknown key %q in %s", errInvalidConfig, undec[0].String(), path)
	}
	return cfg, cfg.validate()
}

func (c Config) validate() error {
	switch {
	case c.Width <= 0 || c.Height <= 0:
		return fmt.Errorf("%w: size %dx%d", errInvalidConfig, c.Width, c.Height)
	case c.Margin < 0 || 2*c.Margin >= c.Width || 2*c.Margin >= c.Height:
		return fmt.Errorf("%w: margin %d leaves no buffer area", errInvalidConfig, c.Margin)
	case c.Shapes < 0:
		return fmt.Errorf("%w: shapes %d", errInvalidConfig, c.Shapes)
	case c.Frames <= 0:
		return fmt.Errorf("%w: frames %d", errInvalidConfig, c.Frames)
	case c.FPS <= 0:
		return fmt.Errorf("%w: fps %d", errInvalidConfig, c.FPS)
	case c.MinZoom <= 0 || c.MaxZoom < c.MinZoom:
		return fmt.Errorf("%w: zoom limits [%g, %g]", errInvalidConfig, c.MinZoom, c.MaxZoom)
	}
	for i, s := range c.Steps {
		if s.To < s.From {
			return fmt.Errorf("%w: step %d ends before it starts", errInvalidConfig, i)
		}
		switch s.Action {
		case ActionBeginPan, ActionPan, ActionEndPan, ActionBeginZoom, ActionEndZoom,
			ActionReset, ActionFade, ActionPointer:
		case ActionZoom:
			if s.Factor <= 0 {
				return fmt.Errorf("%w: step %d zoom factor %g", errInvalidConfig, i, s.Factor)
			}
		default:
			return fmt.Errorf("%w: step %d unknown action %q", errInvalidConfig, i, s.Action)
		}
	}
	return nil
}

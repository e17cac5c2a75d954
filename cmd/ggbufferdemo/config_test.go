package main

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func writeConfig(t *testing.T, body string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "demo.toml")
	require.NoError(t, os.WriteFile(path, []byte(body), 0o644))
	return path
}

func TestLoadConfigDefaults(t *testing.T) {
	cfg, err := loadConfig("")
	require.NoError(t, err)
	assert.Equal(t, defaultConfig(), cfg)
	assert.NoError(t, cfg.validate())
}

func TestLoadConfigOverrides(t *testing.T) {
	path := writeConfig(t, `
width = 320
height = 200
shapes = 10
fade = true
fade_steps = 4

[[step]]
from = 0
to = 5
action = "pan"
dx = 1.5
`)
	cfg, err := loadConfig(path)
	require.NoError(t, err)

	assert.Equal(t, 320, cfg.Width)
	assert.Equal(t, 200, cfg.Height)
	assert.Equal(t, 10, cfg.Shapes)
	assert.True(t, cfg.Fade)
	assert.Equal(t, 4, cfg.FadeSteps)
	assert.Equal(t, defaultConfig().Margin, cfg.Margin, "unset keys keep defaults")
	assert.Equal(t, []Step{{From: 0, To: 5, Action: ActionPan, DX: 1.5}}, cfg.Steps)
}

func TestLoadConfigKeepsDefaultScript(t *testing.T) {
	cfg, err := loadConfig(writeConfig(t, "frames = 10\n"))
	require.NoError(t, err)
	assert.Equal(t, 10, cfg.Frames)
	assert.Equal(t, defaultConfig().Steps, cfg.Steps)
}

func TestLoadConfigErrors(t *testing.T) {
	tests := []struct {
		name    string
		body    string
		invalid bool
	}{
		{"syntax", "width = \n", false},
		{"unknown key", "colour = \"red\"\n", true},
		{"zero frames", "frames = 0\n", true},
		{"bad size", "width = -1\n", true},
		{"margin too large", "width = 100\nheight = 100\nmargin = 50\n", true},
		{"inverted zoom", "min_zoom = 2.0\nmax_zoom = 1.0\n", true},
		{"unknown action", "[[step]]\nfrom = 0\nto = 1\naction = \"spin\"\n", true},
		{"step order", "[[step]]\nfrom = 5\nto = 1\naction = \"reset\"\n", true},
		{"zoom factor", "[[step]]\nfrom = 0\nto = 1\naction = \"zoom\"\n", true},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := loadConfig(writeConfig(t, tt.body))
			require.Error(t, err)
			if tt.invalid {
				assert.ErrorIs(t, err, errInvalidConfig)
			} else {
				assert.NotErrorIs(t, err, errInvalidConfig)
			}
		})
	}
}

func TestLoadConfigMissingFile(t *testing.T) {
	_, err := loadConfig(filepath.Join(t.TempDir(), "missing.toml"))
	assert.ErrorIs(t, err, os.ErrNotExist)
}

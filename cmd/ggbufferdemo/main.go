// Command ggbufferdemo renders a scripted zoom and pan session over a large
// scene through a threaded ggbuffer.Buffer and writes the frames as PNG.
//
// The scene is redrawn in the background while the frame loop keeps
// compositing the last finished buffer, so slow content never blocks the
// HUD. With -watch the run restarts whenever the TOML config changes.
package main

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"log/slog"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/gogpu/ggbuffer"
	"github.com/muesli/termenv"
)

func main() {
	var (
		configPath = flag.String("config", "", "TOML config file (defaults built in)")
		outDir     = flag.String("out", "", "directory for PNG frames")
		frames     = flag.Int("frames", 0, "number of frames to play")
		shapes     = flag.Int("shapes", 0, "number of shapes in the scene")
		seed       = flag.Uint64("seed", 0, "scene seed")
		fade       = flag.Bool("fade", false, "cross-fade new renders")
		watchMode  = flag.Bool("watch", false, "restart when the config file changes")
		verbose    = flag.Bool("v", false, "debug logging")
	)
	flag.Parse()

	level := slog.LevelInfo
	if *verbose {
		level = slog.LevelDebug
	}
	ggbuffer.SetLogger(slog.New(slog.NewTextHandler(os.Stderr, &slog.HandlerOptions{Level: level})))

	// Flags given on the command line win over the config file.
	set := map[string]bool{}
	flag.Visit(func(f *flag.Flag) { set[f.Name] = true })
	override := func(cfg *Config) {
		if set["out"] {
			cfg.OutDir = *outDir
		}
		if set["frames"] {
			cfg.Frames = *frames
		}
		if set["shapes"] {
			cfg.Shapes = *shapes
		}
		if set["seed"] {
			cfg.Seed = *seed
		}
		if set["fade"] {
			cfg.Fade = *fade
		}
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	out := termenv.NewOutput(os.Stdout)
	report := func(cfg Config, st runStats, err error) {
		printSummary(out, cfg, st, err)
	}

	if *watchMode {
		if *configPath == "" {
			fatal(errors.New("-watch needs -config"))
		}
		if err := watch(ctx, *configPath, override, report); err != nil {
			fatal(err)
		}
		return
	}

	cfg, err := loadConfig(*configPath)
	if err != nil {
		fatal(err)
	}
	override(&cfg)
	if err := cfg.validate(); err != nil {
		fatal(err)
	}

	st, err := run(ctx, cfg)
	report(cfg, st, err)
	if err != nil && !errors.Is(err, context.Canceled) {
		os.Exit(1)
	}
}

func printSummary(out *termenv.Output, cfg Config, st runStats, err error) {
	title := out.String("ggbufferdemo").Bold()
	if err != nil && !errors.Is(err, context.Canceled) {
		fmt.Fprintf(out, "%s %s\n", title, out.String(err.Error()).Foreground(out.Color("1")))
		return
	}
	renders := out.String(fmt.Sprintf("%d renders", st.commits)).Foreground(out.Color("2"))
	fmt.Fprintf(out, "%s %d frames in %s, %s", title, st.frames, st.elapsed.Round(time.Millisecond), renders)
	if st.failures > 0 {
		fmt.Fprintf(out, ", %s", out.String(fmt.Sprintf("%d failed", st.failures)).Foreground(out.Color("1")))
	}
	if st.saved > 0 {
		fmt.Fprintf(out, ", %d PNGs in %s", st.saved, cfg.OutDir)
	}
	fmt.Fprintln(out)
}

func fatal(err error) {
	ggbuffer.Logger().Error("ggbufferdemo", "err", err)
	os.Exit(1)
}

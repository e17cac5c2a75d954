package main

import (
	"errors"
	"fmt"

	"github.com/gogpu/gg"
	"github.com/gogpu/gg/text"
	"github.com/gogpu/ggbuffer/busyicon"
	"golang.org/x/image/font/gofont/goregular"
	"golang.org/x/text/language"
	"golang.org/x/text/message"
)

// hud draws the status overlay on top of each frame.
type hud struct {
	status  text.Face
	small   text.Face
	icon    *busyicon.Icon
	printer *message.Printer
}

func newHUD() (*hud, error) {
	src, err := text.NewFontSource(goregular.TTF)
	if err != nil {
		return nil, fmt.Errorf("load HUD font: %w", err)
	}
	return &hud{
		status:  src.Face(20),
		small:   src.Face(12),
		icon:    busyicon.New(),
		printer: message.NewPrinter(language.English),
	}, nil
}

// frameInfo is what the HUD shows for one frame.
type frameInfo struct {
	frame     int
	rendering bool
	fade      float64
	zoom      float64
	commits   int64
	shapes    int
	hovered   int
	pointer   gg.Point
}

func (h *hud) draw(dc *gg.Context, info frameInfo) error {
	w, ht := float64(dc.Width()), float64(dc.Height())

	dc.Push()
	defer dc.Pop()
	dc.Identity()

	var err error
	if info.rendering {
		err = h.icon.Draw(dc, 15, ht-15, 30)
		dc.SetFont(h.status)
		dc.SetRGB(80.0/255, 80.0/255, 80.0/255)
		dc.DrawString("Drawing content...", 30, ht-4)
	}

	dc.SetFont(h.small)
	dc.SetRGB(80.0/255, 80.0/255, 80.0/255)
	dc.DrawStringAnchored(h.statusLine(info), w-8, 8, 1, 0)

	if info.hovered > 0 {
		dc.SetRGBA(1, 1, 0.85, 0.9)
		dc.DrawRectangle(info.pointer.X+12, info.pointer.Y-22, 90, 18)
		err = errors.Join(err, dc.Fill())
		dc.SetRGB(0, 0, 0)
		dc.DrawString(h.printer.Sprintf("%d shapes", info.hovered), info.pointer.X+16, info.pointer.Y-8)
	}
	return err
}

func (h *hud) statusLine(info frameInfo) string {
	return h.printer.Sprintf("frame %d  |  %d shapes  |  zoom %.2f  |  fade %.0f%%  |  %d renders",
		info.frame, info.shapes, info.zoom, info.fade*100, info.commits)
}

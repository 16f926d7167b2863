// Package ebiten provides an Ebiten-specific wrapper for the emulator.
package ebiten

import (
	"github.com/hajimehoshi/ebiten/v2"
	"github.com/user-none/emsnes/emu"
)

// pixelAspect is the width of one SNES pixel relative to its height on a
// 4:3 display.
const pixelAspect = 8.0 / 7.0

// Emulator wraps an emu.Emulator with drawing onto an Ebiten screen.
type Emulator struct {
	*emu.Emulator

	offscreen *ebiten.Image // Native-resolution frame
	drawOpts  ebiten.DrawImageOptions
	drawnGen  uint64
}

// NewEmulator creates a new emulator instance with Ebiten rendering.
func NewEmulator(rom []byte, region emu.Region) (*Emulator, error) {
	e, err := emu.NewEmulator(rom, region)
	if err != nil {
		return nil, err
	}
	return &Emulator{Emulator: e}, nil
}

// Layout implements ebiten.Game.
func (e *Emulator) Layout(outsideWidth, outsideHeight int) (int, int) {
	return outsideWidth, outsideHeight
}

// DrawCachedFramebuffer draws a frame produced by the emulation goroutine.
// The texture is only re-uploaded when generation changes.
func (e *Emulator) DrawCachedFramebuffer(screen *ebiten.Image, pixels []byte, stride, activeHeight int, generation uint64) {
	if activeHeight == 0 || stride == 0 || len(pixels) < stride*activeHeight {
		return
	}

	if e.offscreen == nil || e.offscreen.Bounds().Dy() != activeHeight {
		e.offscreen = ebiten.NewImage(emu.ScreenWidth, activeHeight)
		e.drawnGen = 0
	}
	if generation != e.drawnGen {
		e.offscreen.WritePixels(pixels[:stride*activeHeight])
		e.drawnGen = generation
	}

	screenW, screenH := screen.Bounds().Dx(), screen.Bounds().Dy()
	sx, sy, ox, oy := fitRect(float64(screenW), float64(screenH), float64(emu.ScreenWidth), float64(activeHeight))

	e.drawOpts = ebiten.DrawImageOptions{}
	e.drawOpts.GeoM.Scale(sx, sy)
	e.drawOpts.GeoM.Translate(ox, oy)
	e.drawOpts.Filter = ebiten.FilterNearest
	screen.DrawImage(e.offscreen, &e.drawOpts)
}

// fitRect returns the scale and offset that fit a native w x h frame of
// non-square pixels centered inside the screen.
func fitRect(screenW, screenH, w, h float64) (sx, sy, ox, oy float64) {
	displayW := w * pixelAspect
	scale := min(screenW/displayW, screenH/h)
	sx = scale * pixelAspect
	sy = scale
	ox = (screenW - w*sx) / 2
	oy = (screenH - h*sy) / 2
	return sx, sy, ox, oy
}

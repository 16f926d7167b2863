// Package cli provides a command-line runner for the emulator.
// It handles input polling and runs the emulator in a window without the full UI.
package cli

import (
	"log"
	"time"

	"github.com/hajimehoshi/ebiten/v2"
	"github.com/hajimehoshi/ebiten/v2/inpututil"
	emucore "github.com/user-none/eblitui/api"
	emubridge "github.com/user-none/emsnes/bridge/ebiten"
	"github.com/user-none/emsnes/ui"
)

// Bit positions in the eblitui button mask.
const (
	bitA      = 4
	bitB      = 5
	bitX      = 6
	bitY      = 7
	bitL      = 8
	bitR      = 9
	bitStart  = 10
	bitSelect = 11
)

// Runner wraps an emulator for command-line mode.
// The emulator runs on a dedicated goroutine paced by the audio queue.
// The Ebiten thread handles input polling and rendering from the shared framebuffer.
type Runner struct {
	emulator    *emubridge.Emulator
	audioPlayer *ui.AudioPlayer

	emuControl        *ui.EmuControl
	sharedInput       *ui.SharedInput
	sharedFramebuffer *ui.SharedFramebuffer
	emuDone           chan struct{}
}

// NewRunner creates a new Runner wrapping the given emulator.
// Audio initialization failure is non-fatal; the runner will work without sound.
func NewRunner(e *emubridge.Emulator) *Runner {
	player, err := ui.NewAudioPlayer(1.0)
	if err != nil {
		log.Printf("Warning: audio initialization failed: %v", err)
	}

	r := &Runner{
		emulator:          e,
		audioPlayer:       player,
		emuControl:        ui.NewEmuControl(),
		sharedInput:       &ui.SharedInput{},
		sharedFramebuffer: ui.NewSharedFramebuffer(),
		emuDone:           make(chan struct{}),
	}

	go r.emulationLoop()

	return r
}

// Close stops the emulation goroutine and audio.
func (r *Runner) Close() {
	if r.emuControl != nil {
		r.emuControl.Stop()
		<-r.emuDone
	}

	if r.audioPlayer != nil {
		r.audioPlayer.Close()
		r.audioPlayer = nil
	}
}

// Reset power-cycles the console between frames.
func (r *Runner) Reset() {
	if r.emuControl.Stopped() {
		return
	}
	r.emuControl.RequestPause()
	r.emulator.Reset()
	if r.audioPlayer != nil {
		r.audioPlayer.Flush()
	}
	r.emuControl.RequestResume()
}

func (r *Runner) emulationLoop() {
	defer close(r.emuDone)

	pacer := ui.NewFramePacer(r.emulator.GetTiming().FPS, time.Now())

	for r.emuControl.Wait() {
		pads := r.sharedInput.Read()
		r.emulator.SetInput(0, pads[0])
		r.emulator.SetInput(1, pads[1])

		r.emulator.RunFrame()
		if err := r.emulator.Err(); err != nil {
			log.Printf("Emulation stopped: %v", err)
			r.emuControl.Stop()
			return
		}

		if r.audioPlayer != nil {
			r.audioPlayer.QueueSamples(r.emulator.GetAudioSamples())
		}
		r.sharedFramebuffer.Update(
			r.emulator.GetFramebuffer(),
			r.emulator.GetFramebufferStride(),
			r.emulator.GetActiveHeight(),
		)

		level := -1
		if r.audioPlayer != nil {
			level = r.audioPlayer.GetBufferLevel()
		}
		if d := pacer.Delay(time.Now(), level); d > 0 {
			time.Sleep(d)
		}
		pacer.Mark(time.Now())
	}
}

// Update implements ebiten.Game.
func (r *Runner) Update() error {
	if !ebiten.IsFocused() {
		return nil
	}
	if inpututil.IsKeyJustPressed(ebiten.KeyF1) {
		r.Reset()
	}
	r.sharedInput.Set(0, pollPad())
	return nil
}

// Draw implements ebiten.Game.
func (r *Runner) Draw(screen *ebiten.Image) {
	pixels, stride, height, gen := r.sharedFramebuffer.Read()
	if height == 0 {
		return
	}
	r.emulator.DrawCachedFramebuffer(screen, pixels, stride, height, gen)
}

// Layout implements ebiten.Game.
func (r *Runner) Layout(outsideWidth, outsideHeight int) (int, int) {
	return r.emulator.Layout(outsideWidth, outsideHeight)
}

// keyBindings maps keyboard keys to mask bits. WASD and the arrows both
// drive the d-pad.
var keyBindings = []struct {
	key ebiten.Key
	bit uint
}{
	{ebiten.KeyW, emucore.ButtonUp}, {ebiten.KeyArrowUp, emucore.ButtonUp},
	{ebiten.KeyS, emucore.ButtonDown}, {ebiten.KeyArrowDown, emucore.ButtonDown},
	{ebiten.KeyA, emucore.ButtonLeft}, {ebiten.KeyArrowLeft, emucore.ButtonLeft},
	{ebiten.KeyD, emucore.ButtonRight}, {ebiten.KeyArrowRight, emucore.ButtonRight},
	{ebiten.KeyK, bitA},
	{ebiten.KeyJ, bitB},
	{ebiten.KeyI, bitX},
	{ebiten.KeyU, bitY},
	{ebiten.KeyQ, bitL},
	{ebiten.KeyE, bitR},
	{ebiten.KeyEnter, bitStart},
	{ebiten.KeyShiftRight, bitSelect},
}

// padBindings follow the physical layout: the bottom face button is B
// and the right one is A, as on the SNES pad.
var padBindings = []struct {
	button ebiten.StandardGamepadButton
	bit    uint
}{
	{ebiten.StandardGamepadButtonLeftTop, emucore.ButtonUp},
	{ebiten.StandardGamepadButtonLeftBottom, emucore.ButtonDown},
	{ebiten.StandardGamepadButtonLeftLeft, emucore.ButtonLeft},
	{ebiten.StandardGamepadButtonLeftRight, emucore.ButtonRight},
	{ebiten.StandardGamepadButtonRightRight, bitA},
	{ebiten.StandardGamepadButtonRightBottom, bitB},
	{ebiten.StandardGamepadButtonRightTop, bitX},
	{ebiten.StandardGamepadButtonRightLeft, bitY},
	{ebiten.StandardGamepadButtonFrontTopLeft, bitL},
	{ebiten.StandardGamepadButtonFrontTopRight, bitR},
	{ebiten.StandardGamepadButtonCenterRight, bitStart},
	{ebiten.StandardGamepadButtonCenterLeft, bitSelect},
}

// pollPad reads the keyboard and every standard-layout gamepad into one
// button mask for player 1.
func pollPad() uint32 {
	var mask uint32
	for _, b := range keyBindings {
		if ebiten.IsKeyPressed(b.key) {
			mask |= 1 << b.bit
		}
	}

	for _, id := range ebiten.AppendGamepadIDs(nil) {
		if !ebiten.IsStandardGamepadLayoutAvailable(id) {
			continue
		}
		for _, b := range padBindings {
			if ebiten.IsStandardGamepadButtonPressed(id, b.button) {
				mask |= 1 << b.bit
			}
		}

		const deadzone = 0.5
		axisX := ebiten.StandardGamepadAxisValue(id, ebiten.StandardGamepadAxisLeftStickHorizontal)
		axisY := ebiten.StandardGamepadAxisValue(id, ebiten.StandardGamepadAxisLeftStickVertical)
		if axisX < -deadzone {
			mask |= 1 << emucore.ButtonLeft
		}
		if axisX > deadzone {
			mask |= 1 << emucore.ButtonRight
		}
		if axisY < -deadzone {
			mask |= 1 << emucore.ButtonUp
		}
		if axisY > deadzone {
			mask |= 1 << emucore.ButtonDown
		}
	}
	return mask
}

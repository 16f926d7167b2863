package emu

import (
	"context"
	"fmt"

	emucore "github.com/user-none/eblitui/api"
)

// Compile-time interface checks.
var _ emucore.Emulator = (*Emulator)(nil)
var _ emucore.SaveStater = (*Emulator)(nil)
var _ emucore.BatterySaver = (*Emulator)(nil)
var _ emucore.MemoryInspector = (*Emulator)(nil)
var _ emucore.MemoryMapper = (*Emulator)(nil)

// Flat address boundaries for ReadMemory.
const (
	wramStart = 0x000000
	wramEnd   = 0x01FFFF
	sramStart = 0x020000
	sramEnd   = 0x03FFFF
)

// Emulator is one console session: CPU, bus, PPU and APU driven by a
// shared master clock. Sessions share no state.
type Emulator struct {
	cart *Cartridge
	cpu  *CPU
	bus  *Bus
	ppu  *PPU
	io   *IO
	apu  *APU

	// thread is non-nil while the APU runs on its own goroutine.
	thread   *apuThread
	lastLine int

	region Region
	timing RegionTiming

	// err halts the session. Set by an unimplemented opcode on either CPU.
	err error

	resampler   resampler
	rawAudio    []int16
	audioBuffer []int16
}

// FrameOutput is the result of one RunFrameInput call.
type FrameOutput struct {
	Pixels  []byte  // RGBA, Stride bytes per row
	Indices []uint8 // CGRAM index per pixel, ScreenWidth per row
	Stride  int
	Width   int
	Height  int
	Audio   []int16 // 48kHz interleaved stereo
}

// NewEmulator loads rom and powers on a session for region.
func NewEmulator(rom []byte, region Region) (*Emulator, error) {
	cart, err := LoadCartridge(rom)
	if err != nil {
		return nil, err
	}

	timing := GetTimingForRegion(region)
	e := &Emulator{
		cart:        cart,
		region:      region,
		timing:      timing,
		rawAudio:    make([]int16, 0, 2048),
		audioBuffer: make([]int16, 0, 4096),
	}

	e.ppu = NewPPU(region == RegionPAL)
	e.apu = NewAPU(timing)
	e.io = NewIO(e.ppu, func() { e.cpu.NMI() }, func(on bool) { e.cpu.SetIRQ(on) })
	e.bus = NewBus(cart, e.ppu, e.io, e.apu)
	e.cpu = NewCPU(e.bus)
	e.bus.SetCPU(e.cpu)
	e.bus.SetBeamSync(e.ppu.AdvanceTo)
	e.ppu.SetHost(e)

	e.cpu.Reset()
	e.io.reset()
	return e, nil
}

// Cartridge returns the loaded cartridge.
func (e *Emulator) Cartridge() *Cartridge {
	return e.cart
}

// Err returns the error that halted the session, if any.
func (e *Emulator) Err() error {
	return e.err
}

// InstructionCycles returns the CPU cycle count of the last instruction.
func (e *Emulator) InstructionCycles() int {
	return e.cpu.InstructionCycles()
}

// Reset power-cycles every component. The cartridge and SRAM are kept.
func (e *Emulator) Reset() {
	threaded := e.thread != nil
	if threaded {
		e.stopThread()
	}
	e.bus.resetState()
	e.ppu.Reset()
	e.apu.Reset()
	e.io.reset()
	e.cpu.Reset()
	e.resampler = resampler{}
	e.rawAudio = e.rawAudio[:0]
	e.audioBuffer = e.audioBuffer[:0]
	e.err = nil
	if threaded {
		e.startThread()
	}
}

// RunFrame executes until the PPU completes a frame, then resamples the
// frame's audio. It does nothing once the session has halted.
func (e *Emulator) RunFrame() {
	e.audioBuffer = e.audioBuffer[:0]
	if e.err != nil {
		return
	}
	start := e.ppu.Frames()
	for e.ppu.Frames() == start {
		if !e.step() {
			break
		}
	}
	e.finishFrame()
}

// RunFrameInput sets both pads, runs one frame and returns its picture and
// audio. A fatal CPU error is returned and the session stays halted.
func (e *Emulator) RunFrameInput(input [2]ControllerState) (*FrameOutput, error) {
	e.io.Pads = input
	e.RunFrame()
	if e.err != nil {
		return nil, e.err
	}
	return &FrameOutput{
		Pixels:  e.GetFramebuffer(),
		Indices: e.ppu.FrameIndices(),
		Stride:  e.GetFramebufferStride(),
		Width:   ScreenWidth,
		Height:  e.GetActiveHeight(),
		Audio:   e.audioBuffer,
	}, nil
}

// FrameSink receives each completed frame from RunContext. Returning an
// error stops the run.
type FrameSink func(frame *FrameOutput) error

// RunContext runs frames until ctx is cancelled, the sink fails or the
// session halts. ctx is only checked between frames.
func (e *Emulator) RunContext(ctx context.Context, input func() [2]ControllerState, sink FrameSink) error {
	for {
		if err := ctx.Err(); err != nil {
			return err
		}
		var pads [2]ControllerState
		if input != nil {
			pads = input()
		}
		frame, err := e.RunFrameInput(pads)
		if err != nil {
			return err
		}
		if sink != nil {
			if err := sink(frame); err != nil {
				return err
			}
		}
	}
}

// step runs one CPU instruction and brings the other components up to the
// CPU's clock. It reports false when the session halted.
func (e *Emulator) step() bool {
	if _, err := e.cpu.Step(); err != nil {
		e.halt(err)
		return false
	}
	e.cpu.AddCycles(e.bus.TakeStall())
	e.catchUp()

	if e.thread != nil {
		if line := e.ppu.Line(); line != e.lastLine {
			e.lastLine = line
			if err := e.thread.checkpoint(e.cpu.Clock()); err != nil {
				e.halt(err)
				return false
			}
		}
		return true
	}
	if err := e.apu.Err(); err != nil {
		e.halt(err)
		return false
	}
	return true
}

// catchUp advances the PPU and (single-threaded) APU to the CPU clock,
// most-lagging first. HDMA raised by the PPU stalls the CPU, which moves
// the target, so the loop repeats until nothing new is billed.
func (e *Emulator) catchUp() {
	for {
		target := e.cpu.Clock()
		if e.thread == nil && e.apu.Clock() < e.ppu.Clock() {
			e.apu.RunUntil(target)
			e.ppu.AdvanceTo(target)
		} else {
			e.ppu.AdvanceTo(target)
			if e.thread == nil {
				e.apu.RunUntil(target)
			}
		}
		if e.cpu.Clock() == target {
			return
		}
	}
}

func (e *Emulator) halt(err error) {
	e.err = fmt.Errorf("session halted: %w", err)
}

// finishFrame drains the frame's 32kHz samples and resamples them.
func (e *Emulator) finishFrame() {
	e.rawAudio = e.rawAudio[:0]
	if e.thread != nil {
		if err := e.thread.sync(e.cpu.Clock()); err != nil && e.err == nil {
			e.halt(err)
		}
		e.rawAudio = e.thread.takeSamples(e.rawAudio)
	} else {
		e.rawAudio = e.apu.TakeSamples(e.rawAudio)
	}
	e.audioBuffer = e.resampler.process(e.audioBuffer, e.rawAudio)
}

// --- Beam events (ppuHost) ---

func (e *Emulator) ppuFrameStart() {
	e.io.vblankEnd()
	e.cpu.AddCycles(e.bus.hdmaInit())
}

func (e *Emulator) ppuVBlank() {
	e.io.vblankStart()
}

func (e *Emulator) ppuHBlank(line int) {
	e.cpu.AddCycles(e.bus.hdmaLine(e.ppu.Clock()))
}

func (e *Emulator) ppuTimerIRQ() {
	e.io.timerIRQ()
}

// --- Threaded APU ---

func (e *Emulator) startThread() {
	e.thread = newAPUThread(e.apu)
	e.bus.SetAPU(e.thread)
	e.lastLine = e.ppu.Line()
}

func (e *Emulator) stopThread() {
	t := e.thread
	if err := t.stop(); err != nil && e.err == nil {
		e.halt(err)
	}
	// Received samples precede whatever the final drain produced.
	received := t.takeSamples(nil)
	e.apu.dsp.samples = append(received, e.apu.dsp.samples...)
	e.thread = nil
	e.bus.SetAPU(e.apu)
}

// Threaded reports whether the APU runs on its own goroutine.
func (e *Emulator) Threaded() bool {
	return e.thread != nil
}

// SetThreaded moves the APU onto or off its own goroutine.
func (e *Emulator) SetThreaded(on bool) {
	switch {
	case on && e.thread == nil:
		e.startThread()
	case !on && e.thread != nil:
		e.stopThread()
	}
}

// --- Input ---

// snesButtons maps eblitui button IDs to pad bits.
var snesButtons = [12]ControllerState{
	ButtonUp, ButtonDown, ButtonLeft, ButtonRight,
	ButtonA, ButtonB, ButtonX, ButtonY,
	ButtonL, ButtonR, ButtonStart, ButtonSelect,
}

// PadState converts an eblitui button bitmask to a ControllerState.
func PadState(buttons uint32) ControllerState {
	var s ControllerState
	for id, bit := range snesButtons {
		if buttons&(1<<id) != 0 {
			s |= bit
		}
	}
	return s
}

// SetInput unpacks a button bitmask and sets controller state for the given player.
func (e *Emulator) SetInput(player int, buttons uint32) {
	if player < 0 || player > 1 {
		return
	}
	e.io.Pads[player] = PadState(buttons)
}

// --- Video ---

// GetFramebuffer returns raw RGBA pixel data for current frame.
func (e *Emulator) GetFramebuffer() []byte {
	return e.ppu.GetFramebuffer()
}

// GetFramebufferStride returns the stride (bytes per row) of the framebuffer.
func (e *Emulator) GetFramebufferStride() int {
	return e.ppu.GetStride()
}

// GetActiveHeight returns 224 or 239 depending on the overscan setting.
func (e *Emulator) GetActiveHeight() int {
	return e.ppu.ActiveHeight()
}

// FrameIndices returns the CGRAM index of every pixel of the last frame.
func (e *Emulator) FrameIndices() []uint8 {
	return e.ppu.FrameIndices()
}

// --- Region ---

// GetRegion returns the emulator's region setting.
func (e *Emulator) GetRegion() Region {
	return e.region
}

// GetTiming returns FPS and scanline count for the current region.
func (e *Emulator) GetTiming() emucore.Timing {
	return emucore.Timing{
		FPS:       e.timing.FPS,
		Scanlines: e.timing.Scanlines,
	}
}

// SetRegion updates the emulator's region configuration.
func (e *Emulator) SetRegion(region Region) {
	threaded := e.thread != nil
	if threaded {
		e.stopThread()
	}
	e.region = region
	e.timing = GetTimingForRegion(region)
	e.ppu.SetPAL(region == RegionPAL)
	e.apu.SetTiming(e.timing)
	if threaded {
		e.startThread()
	}
}

// --- Battery RAM ---

// HasSRAM returns true if the cartridge declares battery-backed SRAM.
func (e *Emulator) HasSRAM() bool {
	return e.bus.HasSRAM()
}

// GetSRAM returns a copy of the current SRAM contents.
func (e *Emulator) GetSRAM() []byte {
	return e.bus.GetSRAM()
}

// SetSRAM loads SRAM contents from a save file.
func (e *Emulator) SetSRAM(data []byte) {
	e.bus.SetSRAM(data)
}

// Close stops the sound goroutine, if running.
func (e *Emulator) Close() {
	if e.thread != nil {
		e.stopThread()
	}
}

// SetOption applies a core option change identified by key.
func (e *Emulator) SetOption(key string, value string) {
	switch key {
	case "threaded_apu":
		e.SetThreaded(value == "true")
	}
}

// --- Memory inspection ---

// ReadMemory reads from a flat address into buf and returns the number
// of bytes read. WRAM is at 0x000000 and SRAM at 0x020000.
func (e *Emulator) ReadMemory(addr uint32, buf []byte) uint32 {
	var count uint32
	for i := range buf {
		cur := addr + uint32(i)
		switch {
		case cur <= wramEnd:
			buf[i] = e.bus.wram[cur-wramStart]
		case cur >= sramStart && cur <= sramEnd && int(cur-sramStart) < len(e.bus.sram):
			buf[i] = e.bus.sram[cur-sramStart]
		default:
			return count
		}
		count++
	}
	return count
}

// MemoryMap returns a list of available memory regions with sizes.
func (e *Emulator) MemoryMap() []emucore.MemoryRegion {
	regions := []emucore.MemoryRegion{
		{Type: emucore.MemorySystemRAM, Size: wramSize},
	}
	if n := len(e.bus.sram); n > 0 {
		regions = append(regions, emucore.MemoryRegion{
			Type: emucore.MemorySaveRAM,
			Size: n,
		})
	}
	return regions
}

// ReadRegion returns a copy of the specified memory region.
func (e *Emulator) ReadRegion(regionType int) []byte {
	switch regionType {
	case emucore.MemorySystemRAM:
		out := make([]byte, wramSize)
		copy(out, e.bus.wram[:])
		return out
	case emucore.MemorySaveRAM:
		return e.GetSRAM()
	default:
		return nil
	}
}

// WriteRegion writes data to the specified memory region.
func (e *Emulator) WriteRegion(regionType int, data []byte) {
	switch regionType {
	case emucore.MemorySystemRAM:
		copy(e.bus.wram[:], data)
	case emucore.MemorySaveRAM:
		e.SetSRAM(data)
	}
}

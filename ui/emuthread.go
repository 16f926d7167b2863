package ui

import (
	"sync"

	"github.com/user-none/emsnes/emu"
)

// SharedInput holds both pads' button masks, written by the Ebiten thread
// and read by the emulation goroutine. Masks use the eblitui bit layout.
type SharedInput struct {
	mu      sync.Mutex
	buttons [2]uint32
}

// Set replaces one player's mask. Other players are ignored.
func (si *SharedInput) Set(player int, buttons uint32) {
	if player < 0 || player >= len(si.buttons) {
		return
	}
	si.mu.Lock()
	si.buttons[player] = buttons
	si.mu.Unlock()
}

// Read returns both masks.
func (si *SharedInput) Read() [2]uint32 {
	si.mu.Lock()
	defer si.mu.Unlock()
	return si.buttons
}

// SharedFramebuffer passes finished frames from the emulation goroutine to
// Draw. Update copies into a back buffer; Read copies the back buffer into
// a front buffer that Draw may use without the lock. The generation
// counter lets Draw skip re-uploading an unchanged frame.
type SharedFramebuffer struct {
	mu           sync.Mutex
	back         []byte
	front        []byte
	stride       int
	activeHeight int
	generation   uint64
}

// NewSharedFramebuffer allocates buffers for the tallest SNES frame.
func NewSharedFramebuffer() *SharedFramebuffer {
	size := emu.ScreenWidth * emu.MaxScreenHeight * 4
	return &SharedFramebuffer{
		back:  make([]byte, size),
		front: make([]byte, size),
	}
}

// Update stores a new frame.
func (sf *SharedFramebuffer) Update(pixels []byte, stride, activeHeight int) {
	n := min(stride*activeHeight, len(pixels))
	sf.mu.Lock()
	n = min(n, len(sf.back))
	copy(sf.back[:n], pixels[:n])
	sf.stride = stride
	sf.activeHeight = activeHeight
	sf.generation++
	sf.mu.Unlock()
}

// Read returns the latest frame and its generation. The pixel slice stays
// valid until the next Read.
func (sf *SharedFramebuffer) Read() (pixels []byte, stride, activeHeight int, generation uint64) {
	sf.mu.Lock()
	defer sf.mu.Unlock()
	n := min(sf.stride*sf.activeHeight, len(sf.back))
	copy(sf.front[:n], sf.back[:n])
	return sf.front[:n], sf.stride, sf.activeHeight, sf.generation
}

// EmuControl coordinates pause, resume and stop between the Ebiten thread
// and the emulation goroutine. The goroutine calls Wait between frames.
type EmuControl struct {
	mu       sync.Mutex
	cond     *sync.Cond
	pauseReq bool
	paused   bool
	stopped  bool
}

// NewEmuControl returns a control in the running state.
func NewEmuControl() *EmuControl {
	ec := &EmuControl{}
	ec.cond = sync.NewCond(&ec.mu)
	return ec
}

// RequestPause asks the goroutine to pause and blocks until it has, so the
// caller may touch the emulator afterwards. Returns at once if stopped.
func (ec *EmuControl) RequestPause() {
	ec.mu.Lock()
	defer ec.mu.Unlock()
	ec.pauseReq = true
	for !ec.paused && !ec.stopped {
		ec.cond.Wait()
	}
}

// RequestResume releases a paused goroutine.
func (ec *EmuControl) RequestResume() {
	ec.mu.Lock()
	ec.pauseReq = false
	ec.mu.Unlock()
	ec.cond.Broadcast()
}

// Wait is called by the emulation goroutine between frames. It parks while
// a pause is requested and reports false once the goroutine should exit.
func (ec *EmuControl) Wait() bool {
	ec.mu.Lock()
	defer ec.mu.Unlock()
	for ec.pauseReq && !ec.stopped {
		if !ec.paused {
			ec.paused = true
			ec.cond.Broadcast()
		}
		ec.cond.Wait()
	}
	ec.paused = false
	return !ec.stopped
}

// Stop tells the goroutine to exit and wakes every waiter.
func (ec *EmuControl) Stop() {
	ec.mu.Lock()
	ec.stopped = true
	ec.mu.Unlock()
	ec.cond.Broadcast()
}

// Stopped reports whether Stop has been called.
func (ec *EmuControl) Stopped() bool {
	ec.mu.Lock()
	defer ec.mu.Unlock()
	return ec.stopped
}

// IsPaused reports whether the goroutine is parked in Wait.
func (ec *EmuControl) IsPaused() bool {
	ec.mu.Lock()
	defer ec.mu.Unlock()
	return ec.paused
}

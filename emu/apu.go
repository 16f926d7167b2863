package emu

// iplROM is the 64-byte boot program mapped at $FFC0 while CONTROL bit 7
// is set. It clears zero page and runs the CPU upload handshake.
var iplROM = [64]uint8{
	0xCD, 0xEF, 0xBD, 0xE8, 0x00, 0xC6, 0x1D, 0xD0,
	0xFC, 0x8F, 0xAA, 0xF4, 0x8F, 0xBB, 0xF5, 0x78,
	0xCC, 0xF4, 0xD0, 0xFB, 0x2F, 0x19, 0xEB, 0xF4,
	0xD0, 0xFC, 0x7E, 0xF4, 0xD0, 0x0B, 0xE4, 0xF5,
	0xCB, 0xF4, 0xD7, 0x00, 0xFC, 0xD0, 0xF3, 0xAB,
	0x01, 0x10, 0xEF, 0x7E, 0xF4, 0x10, 0xEB, 0xBA,
	0xF6, 0xDA, 0x00, 0xBA, 0xF4, 0xC4, 0xF4, 0xDD,
	0x5D, 0xD0, 0xDB, 0x1F, 0x00, 0x00, 0xC0, 0xFF,
}

const (
	apuRAMSize         = 0x10000
	spcCyclesPerSample = 32 // 1.024MHz / 32 = 32kHz
)

// spcTimer is one of the three SPC700 interval timers.
type spcTimer struct {
	period  int   // SPC cycles per stage tick (128 or 16)
	div     int   // Cycles toward the next stage tick
	stage   uint8 // Counts up to target
	target  uint8 // $FA-$FC, 0 means 256
	counter uint8 // 4-bit output, cleared on read
	enabled bool
}

func (t *spcTimer) tick(cycles int) {
	if !t.enabled {
		return
	}
	t.div += cycles
	for t.div >= t.period {
		t.div -= t.period
		t.stage++
		if t.stage == t.target {
			t.stage = 0
			t.counter = (t.counter + 1) & 0x0F
		}
	}
}

// APU is the sound subsystem: SPC700, DSP, 64KB RAM, timers and the two
// mailbox directions. It is isolated from the main address space.
type APU struct {
	ram [apuRAMSize]uint8
	spc *SPC700
	dsp *DSP
	in  mailbox // CPU -> APU
	out mailbox // APU -> CPU

	timers  [3]spcTimer
	control uint8
	dspAddr uint8
	cycles  uint64 // SPC700 cycles since power-on
	dspDiv  int

	timing RegionTiming
	err    error

	// recordOutputs captures APU->CPU writes for delivery across threads.
	recordOutputs bool
	outputs       []portWrite
}

// NewAPU creates the sound subsystem for the given region timing.
func NewAPU(timing RegionTiming) *APU {
	a := &APU{timing: timing}
	a.spc = NewSPC700(a)
	a.dsp = NewDSP(a.ram[:])
	a.Reset()
	return a
}

// Reset power-cycles the sound subsystem. RAM is cleared.
func (a *APU) Reset() {
	a.ram = [apuRAMSize]uint8{}
	a.in.reset()
	a.out.reset()
	a.timers = [3]spcTimer{{period: 128}, {period: 128}, {period: 16}}
	a.control = 0xB0
	a.dspAddr = 0
	a.cycles = 0
	a.dspDiv = 0
	a.err = nil
	a.outputs = a.outputs[:0]
	a.dsp.Reset()
	a.spc.Reset()
}

// SetTiming updates the master/SPC clock ratio after a region change. The
// SPC cycle count is rebased so the master-cycle position is kept.
func (a *APU) SetTiming(t RegionTiming) {
	master := a.Clock()
	a.timing = t
	a.cycles = t.masterToAPU(master)
}

// Clock returns the APU's position in master cycles.
func (a *APU) Clock() uint64 {
	return a.timing.apuToMaster(a.cycles)
}

// busClock is the master cycle of the sound CPU's current bus access,
// counting one SPC cycle per access made so far in the instruction.
func (a *APU) busClock() uint64 {
	n := a.spc.accesses
	if n > a.spc.cycles {
		n = a.spc.cycles
	}
	return a.timing.apuToMaster(a.cycles + uint64(n))
}

// Err returns the fault that halted the sound CPU, if any.
func (a *APU) Err() error {
	return a.err
}

// RunUntil steps the sound CPU until its clock reaches master cycle target.
// The APU may overshoot by at most one instruction.
func (a *APU) RunUntil(target uint64) {
	goal := a.timing.masterToAPU(target)
	for a.cycles < goal && a.err == nil {
		n, err := a.spc.Step()
		if err != nil {
			a.err = err
			return
		}
		a.tick(n)
	}
}

// tick advances timers and the DSP by n SPC cycles.
func (a *APU) tick(n int) {
	a.cycles += uint64(n)
	for i := range a.timers {
		a.timers[i].tick(n)
	}
	a.dspDiv += n
	for a.dspDiv >= spcCyclesPerSample {
		a.dspDiv -= spcCyclesPerSample
		a.dsp.Sample()
	}
}

// TakeSamples returns and clears the stereo 32kHz samples produced so far.
func (a *APU) TakeSamples(dst []int16) []int16 {
	return a.dsp.takeSamples(dst)
}

// ReadPort implements apuPorts for the single-threaded scheduler: the APU
// is brought up to the access time before the mailbox is read.
func (a *APU) ReadPort(port int, at uint64) uint8 {
	a.RunUntil(at)
	return a.out.read(port, at)
}

// WritePort implements apuPorts. Like ReadPort it first brings the APU up
// to the access time.
func (a *APU) WritePort(port int, v uint8, at uint64) {
	a.RunUntil(at)
	a.in.write(port, v, at)
}

// Read implements SPCBus.
func (a *APU) Read(addr uint16) uint8 {
	switch {
	case addr >= 0xF0 && addr <= 0xFF:
		return a.readIO(addr)
	case addr >= 0xFFC0 && a.control&0x80 != 0:
		return iplROM[addr-0xFFC0]
	}
	return a.ram[addr]
}

// Write implements SPCBus. Writes under the IPL ROM land in RAM.
func (a *APU) Write(addr uint16, v uint8) {
	if addr >= 0xF0 && addr <= 0xFF {
		a.writeIO(addr, v)
	}
	a.ram[addr] = v
}

func (a *APU) readIO(addr uint16) uint8 {
	switch addr {
	case 0xF2:
		return a.dspAddr
	case 0xF3:
		return a.dsp.Read(a.dspAddr & 0x7F)
	case 0xF4, 0xF5, 0xF6, 0xF7:
		return a.in.read(int(addr-0xF4), a.busClock())
	case 0xFD, 0xFE, 0xFF:
		t := &a.timers[addr-0xFD]
		v := t.counter
		t.counter = 0
		return v
	case 0xF0, 0xF1, 0xFA, 0xFB, 0xFC:
		return 0
	}
	return a.ram[addr]
}

func (a *APU) writeIO(addr uint16, v uint8) {
	switch addr {
	case 0xF1:
		for i := range a.timers {
			on := v&(1<<i) != 0
			if on && !a.timers[i].enabled {
				a.timers[i].stage = 0
				a.timers[i].counter = 0
				a.timers[i].div = 0
			}
			a.timers[i].enabled = on
		}
		if v&0x10 != 0 {
			a.in.clear(0)
			a.in.clear(1)
		}
		if v&0x20 != 0 {
			a.in.clear(2)
			a.in.clear(3)
		}
		a.control = v
	case 0xF2:
		a.dspAddr = v
	case 0xF3:
		if a.dspAddr < 0x80 {
			a.dsp.Write(a.dspAddr, v)
		}
	case 0xF4, 0xF5, 0xF6, 0xF7:
		at := a.busClock()
		a.out.write(int(addr-0xF4), v, at)
		if a.recordOutputs {
			a.outputs = append(a.outputs, portWrite{Port: uint8(addr - 0xF4), Value: v, At: at})
		}
	case 0xFA, 0xFB, 0xFC:
		a.timers[addr-0xFA].target = v
	}
}

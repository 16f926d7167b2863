package emu

// CPUBus is the memory interface the 65816 core runs against.
type CPUBus interface {
	Read(addr uint32) uint8
	Write(addr uint32, v uint8)
	// Speed returns the master cycles one access to addr takes (6, 8 or 12).
	Speed(addr uint32) int
}

// Processor status flags.
const (
	flagC uint8 = 0x01
	flagZ uint8 = 0x02
	flagI uint8 = 0x04
	flagD uint8 = 0x08
	flagX uint8 = 0x10 // Index width (B in emulation mode pushes)
	flagM uint8 = 0x20 // Accumulator width
	flagV uint8 = 0x40
	flagN uint8 = 0x80
)

// Interrupt vectors (bank 0).
const (
	vecNativeCOP = 0xFFE4
	vecNativeBRK = 0xFFE6
	vecNativeNMI = 0xFFEA
	vecNativeIRQ = 0xFFEE
	vecEmuCOP    = 0xFFF4
	vecEmuNMI    = 0xFFFA
	vecReset     = 0xFFFC
	vecEmuIRQ    = 0xFFFE
)

// internalCycle is the master-cycle cost of a CPU cycle with no bus access.
const internalCycle = 6

// CPU is a 65816 interpreter. Each instance owns its dispatch table so
// entries can be replaced independently.
type CPU struct {
	A, X, Y uint16
	S, D    uint16
	PC      uint16
	PB, DB  uint8
	P       uint8
	E       bool // Emulation mode

	bus   CPUBus
	table [256]opcode

	clock    uint64 // Running master cycle total
	cycles   int    // CPU cycles of the current instruction
	accesses int    // Bus accesses made by the current instruction
	crossed  bool   // Indexed address crossed a page
	wrap0    bool   // Effective address wraps inside bank 0

	nmiPending bool // Edge latched, serviced before the next instruction
	irqLine    bool // Level, masked by I
	waiting    bool // WAI
	stopped    bool // STP
}

// NewCPU creates a 65816 attached to bus. Call Reset before stepping.
func NewCPU(bus CPUBus) *CPU {
	c := &CPU{bus: bus}
	c.table = newOpcodeTable()
	return c
}

// Reset puts the CPU in emulation mode and loads the reset vector.
func (c *CPU) Reset() {
	c.E = true
	c.P = flagM | flagX | flagI
	c.A, c.X, c.Y = 0, 0, 0
	c.S = 0x01FF
	c.D = 0
	c.DB, c.PB = 0, 0
	c.nmiPending = false
	c.irqLine = false
	c.waiting = false
	c.stopped = false
	c.clock = 0
	c.PC = uint16(c.bus.Read(vecReset)) | uint16(c.bus.Read(vecReset+1))<<8
}

// Clock returns the CPU's running master cycle total, including the
// accesses made so far by an instruction in progress.
func (c *CPU) Clock() uint64 {
	return c.clock
}

// AddCycles bills master cycles the CPU spent stalled (DMA).
func (c *CPU) AddCycles(n int) {
	c.clock += uint64(n)
}

// InstructionCycles returns the CPU cycle count of the last Step.
func (c *CPU) InstructionCycles() int {
	return c.cycles
}

// NMI latches a non-maskable interrupt.
func (c *CPU) NMI() {
	c.nmiPending = true
}

// SetIRQ drives the maskable interrupt line.
func (c *CPU) SetIRQ(active bool) {
	c.irqLine = active
}

// Step executes one instruction or services one pending interrupt and
// returns the master cycles consumed.
func (c *CPU) Step() (int, error) {
	start := c.clock
	c.cycles = 0
	c.accesses = 0
	c.crossed = false
	c.wrap0 = false

	switch {
	case c.stopped:
		c.cycles = 1
	case c.nmiPending:
		c.nmiPending = false
		c.waiting = false
		c.interrupt(vecNativeNMI, vecEmuNMI)
	case c.irqLine && c.P&flagI == 0:
		c.waiting = false
		c.interrupt(vecNativeIRQ, vecEmuIRQ)
	case c.waiting:
		// WAI resumes on IRQ even when I masks it.
		if c.irqLine {
			c.waiting = false
		}
		c.cycles = 1
	default:
		pc := c.PC
		op := c.fetch8()
		entry := &c.table[op]
		if entry.exec == nil {
			c.PC = pc
			c.clock = start
			c.cycles = 0
			return 0, &UnimplementedOpcodeError{CPU: "65816", Opcode: op, PC: uint32(c.PB)<<16 | uint32(pc)}
		}
		c.cycles = int(entry.base)
		switch entry.size {
		case sizeM:
			if !c.m8() {
				c.cycles++
			}
		case sizeRMW:
			if !c.m8() {
				c.cycles += 2
			}
		case sizeX:
			if !c.x8() {
				c.cycles++
			}
		}
		if entry.mode.direct() && c.D&0xFF != 0 {
			c.cycles++
		}
		entry.exec(c, entry.mode)
		if entry.penalty && (c.crossed || !c.x8()) {
			c.cycles++
		}
	}

	if internal := c.cycles - c.accesses; internal > 0 {
		c.clock += uint64(internal * internalCycle)
	}
	return int(c.clock - start), nil
}

// interrupt pushes state and jumps through the vector for the current mode.
func (c *CPU) interrupt(native, emulation uint16) {
	c.cycles = 7
	vector := emulation
	if !c.E {
		c.cycles = 8
		vector = native
		c.push8(c.PB)
	}
	c.push16(c.PC)
	p := c.P
	if c.E {
		p &^= flagX // B clear for hardware interrupts
	}
	c.push8(p)
	c.P |= flagI
	c.P &^= flagD
	c.PB = 0
	c.PC = c.read16Bank0(vector)
}

// --- Width helpers ---

func (c *CPU) m8() bool { return c.P&flagM != 0 }
func (c *CPU) x8() bool { return c.P&flagX != 0 }

// fixWidths enforces the emulation-mode and index-width invariants after
// any change to P or E.
func (c *CPU) fixWidths() {
	if c.E {
		c.P |= flagM | flagX
		c.S = 0x0100 | c.S&0xFF
	}
	if c.x8() {
		c.X &= 0xFF
		c.Y &= 0xFF
	}
}

func (c *CPU) setNZ8(v uint8) {
	c.P &^= flagN | flagZ
	if v == 0 {
		c.P |= flagZ
	}
	c.P |= v & flagN
}

func (c *CPU) setNZ16(v uint16) {
	c.P &^= flagN | flagZ
	if v == 0 {
		c.P |= flagZ
	}
	if v&0x8000 != 0 {
		c.P |= flagN
	}
}

func (c *CPU) setNZ(v uint16, wide bool) {
	if wide {
		c.setNZ16(v)
	} else {
		c.setNZ8(uint8(v))
	}
}

func (c *CPU) setFlag(f uint8, on bool) {
	if on {
		c.P |= f
	} else {
		c.P &^= f
	}
}

// --- Bus access ---

func (c *CPU) read(addr uint32) uint8 {
	addr &= 0xFFFFFF
	c.clock += uint64(c.bus.Speed(addr))
	c.accesses++
	return c.bus.Read(addr)
}

func (c *CPU) write(addr uint32, v uint8) {
	addr &= 0xFFFFFF
	c.clock += uint64(c.bus.Speed(addr))
	c.accesses++
	c.bus.Write(addr, v)
}

// next returns the address after addr for a multi-byte access, honoring
// bank-0 wrap for direct page and stack relative operands.
func (c *CPU) next(addr uint32) uint32 {
	if c.wrap0 {
		return (addr + 1) & 0xFFFF
	}
	return (addr + 1) & 0xFFFFFF
}

func (c *CPU) readData(addr uint32, wide bool) uint16 {
	lo := uint16(c.read(addr))
	if !wide {
		return lo
	}
	return lo | uint16(c.read(c.next(addr)))<<8
}

func (c *CPU) writeData(addr uint32, v uint16, wide bool) {
	c.write(addr, uint8(v))
	if wide {
		c.write(c.next(addr), uint8(v>>8))
	}
}

func (c *CPU) read16Bank0(addr uint16) uint16 {
	return uint16(c.read(uint32(addr))) | uint16(c.read(uint32(addr+1)))<<8
}

func (c *CPU) fetch8() uint8 {
	v := c.read(uint32(c.PB)<<16 | uint32(c.PC))
	c.PC++
	return v
}

func (c *CPU) fetch16() uint16 {
	lo := uint16(c.fetch8())
	return lo | uint16(c.fetch8())<<8
}

func (c *CPU) fetch24() uint32 {
	lo := uint32(c.fetch16())
	return lo | uint32(c.fetch8())<<16
}

// --- Stack ---

func (c *CPU) push8(v uint8) {
	c.write(uint32(c.S), v)
	c.S--
	if c.E {
		c.S = 0x0100 | c.S&0xFF
	}
}

func (c *CPU) pull8() uint8 {
	c.S++
	if c.E {
		c.S = 0x0100 | c.S&0xFF
	}
	return c.read(uint32(c.S))
}

func (c *CPU) push16(v uint16) {
	c.push8(uint8(v >> 8))
	c.push8(uint8(v))
}

func (c *CPU) pull16() uint16 {
	lo := uint16(c.pull8())
	return lo | uint16(c.pull8())<<8
}

// --- Effective addresses ---

// dpAddr returns the bank-0 address of direct page offset off.
func (c *CPU) dpAddr(off uint16) uint32 {
	return uint32(c.D + off)
}

// dpIndexed applies an index to a direct page offset. In emulation mode
// with a page-aligned D the result wraps inside the direct page.
func (c *CPU) dpIndexed(off uint8, index uint16) uint32 {
	if c.E && c.D&0xFF == 0 {
		return uint32(c.D | uint16(off+uint8(index)))
	}
	return uint32(c.D + uint16(off) + index)
}

func (c *CPU) readPtr16(addr uint32) uint16 {
	lo := uint16(c.read(addr))
	return lo | uint16(c.read((addr+1)&0xFFFF))<<8
}

func (c *CPU) readPtr24(addr uint32) uint32 {
	lo := uint32(c.readPtr16(addr))
	return lo | uint32(c.read((addr+2)&0xFFFF))<<16
}

// indexed adds index to base and records whether a page was crossed.
func (c *CPU) indexed(base uint32, index uint16) uint32 {
	addr := (base + uint32(index)) & 0xFFFFFF
	c.crossed = base&0xFFFF00 != addr&0xFFFF00
	return addr
}

// ea computes the effective data address for mode, consuming operand bytes.
func (c *CPU) ea(mode addrMode) uint32 {
	db := uint32(c.DB) << 16
	switch mode {
	case modeDP:
		c.wrap0 = true
		return c.dpAddr(uint16(c.fetch8()))
	case modeDPX:
		c.wrap0 = true
		return c.dpIndexed(c.fetch8(), c.X)
	case modeDPY:
		c.wrap0 = true
		return c.dpIndexed(c.fetch8(), c.Y)
	case modeDPInd:
		ptr := c.readPtr16(c.dpAddr(uint16(c.fetch8())))
		return db | uint32(ptr)
	case modeDPIndLong:
		return c.readPtr24(c.dpAddr(uint16(c.fetch8())))
	case modeDPXInd:
		ptr := c.readPtr16(c.dpIndexed(c.fetch8(), c.X))
		return db | uint32(ptr)
	case modeDPIndY:
		ptr := c.readPtr16(c.dpAddr(uint16(c.fetch8())))
		return c.indexed(db|uint32(ptr), c.Y)
	case modeDPIndLongY:
		ptr := c.readPtr24(c.dpAddr(uint16(c.fetch8())))
		return (ptr + uint32(c.Y)) & 0xFFFFFF
	case modeAbs:
		return db | uint32(c.fetch16())
	case modeAbsX:
		return c.indexed(db|uint32(c.fetch16()), c.X)
	case modeAbsY:
		return c.indexed(db|uint32(c.fetch16()), c.Y)
	case modeLong:
		return c.fetch24()
	case modeLongX:
		return (c.fetch24() + uint32(c.X)) & 0xFFFFFF
	case modeSR:
		c.wrap0 = true
		return uint32(c.S + uint16(c.fetch8()))
	case modeSRIndY:
		ptr := c.readPtr16(uint32(c.S + uint16(c.fetch8())))
		return (db | uint32(ptr) + uint32(c.Y)) & 0xFFFFFF
	}
	panic("65816: no effective address for mode")
}

// operand reads a data operand of the given width, either immediate or
// from memory.
func (c *CPU) operand(mode addrMode, wide bool) uint16 {
	if mode == modeImm {
		if wide {
			return c.fetch16()
		}
		return uint16(c.fetch8())
	}
	return c.readData(c.ea(mode), wide)
}

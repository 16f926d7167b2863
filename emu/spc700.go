package emu

// SPCBus is the sound CPU's view of its 64KB address space.
type SPCBus interface {
	Read(addr uint16) uint8
	Write(addr uint16, v uint8)
}

// SPC700 status flags.
const (
	spcC uint8 = 0x01
	spcZ uint8 = 0x02
	spcI uint8 = 0x04
	spcH uint8 = 0x08
	spcB uint8 = 0x10
	spcP uint8 = 0x20 // Direct page at $0100
	spcV uint8 = 0x40
	spcN uint8 = 0x80
)

// spcOp is one SPC700 dispatch entry. exec receives the opcode so that
// bit-numbered and TCALL families share a handler.
type spcOp struct {
	name   string
	cycles uint8
	exec   func(s *SPC700, op uint8)
}

// SPC700 is the sound CPU interpreter.
type SPC700 struct {
	A, X, Y uint8
	SP      uint8
	PC      uint16
	PSW     uint8

	bus      SPCBus
	table    [256]spcOp
	cycles   int
	accesses int  // Bus accesses so far in the current instruction
	stopped  bool // SLEEP or STOP
}

// NewSPC700 creates a sound CPU attached to bus.
func NewSPC700(bus SPCBus) *SPC700 {
	s := &SPC700{bus: bus}
	s.table = newSPCTable()
	return s
}

// Reset loads the reset vector (the IPL ROM entry at $FFC0).
func (s *SPC700) Reset() {
	s.A, s.X, s.Y = 0, 0, 0
	s.SP = 0xEF
	s.PSW = 0x02
	s.stopped = false
	s.PC = s.read16(0xFFFE)
}

// Step executes one instruction and returns the SPC700 cycles consumed.
func (s *SPC700) Step() (int, error) {
	s.accesses = 0
	if s.stopped {
		return 2, nil
	}
	pc := s.PC
	op := s.fetch()
	entry := &s.table[op]
	if entry.exec == nil {
		s.PC = pc
		return 0, &UnimplementedOpcodeError{CPU: "SPC700", Opcode: op, PC: uint32(pc)}
	}
	s.cycles = int(entry.cycles)
	entry.exec(s, op)
	return s.cycles, nil
}

func (s *SPC700) read(addr uint16) uint8 {
	s.accesses++
	return s.bus.Read(addr)
}

func (s *SPC700) write(addr uint16, v uint8) {
	s.accesses++
	s.bus.Write(addr, v)
}

func (s *SPC700) read16(addr uint16) uint16 {
	return uint16(s.read(addr)) | uint16(s.read(addr+1))<<8
}

func (s *SPC700) fetch() uint8 {
	v := s.read(s.PC)
	s.PC++
	return v
}

func (s *SPC700) fetch16() uint16 {
	lo := uint16(s.fetch())
	return lo | uint16(s.fetch())<<8
}

// dp maps a direct page offset to page 0 or 1 per the P flag.
func (s *SPC700) dp(off uint8) uint16 {
	if s.PSW&spcP != 0 {
		return 0x100 | uint16(off)
	}
	return uint16(off)
}

// readDP16 reads a little-endian word inside the direct page, wrapping
// at the page boundary.
func (s *SPC700) readDP16(off uint8) uint16 {
	return uint16(s.read(s.dp(off))) | uint16(s.read(s.dp(off+1)))<<8
}

func (s *SPC700) writeDP16(off uint8, v uint16) {
	s.write(s.dp(off), uint8(v))
	s.write(s.dp(off+1), uint8(v>>8))
}

func (s *SPC700) push(v uint8) {
	s.write(0x100|uint16(s.SP), v)
	s.SP--
}

func (s *SPC700) pop() uint8 {
	s.SP++
	return s.read(0x100 | uint16(s.SP))
}

func (s *SPC700) push16(v uint16) {
	s.push(uint8(v >> 8))
	s.push(uint8(v))
}

func (s *SPC700) pop16() uint16 {
	lo := uint16(s.pop())
	return lo | uint16(s.pop())<<8
}

func (s *SPC700) setFlag(f uint8, on bool) {
	if on {
		s.PSW |= f
	} else {
		s.PSW &^= f
	}
}

func (s *SPC700) setNZ(v uint8) {
	s.setFlag(spcZ, v == 0)
	s.setFlag(spcN, v&0x80 != 0)
}

func (s *SPC700) setNZ16(v uint16) {
	s.setFlag(spcZ, v == 0)
	s.setFlag(spcN, v&0x8000 != 0)
}

func (s *SPC700) ya() uint16 { return uint16(s.Y)<<8 | uint16(s.A) }

func (s *SPC700) setYA(v uint16) {
	s.A = uint8(v)
	s.Y = uint8(v >> 8)
}

// --- ALU ---

func (s *SPC700) or(a, b uint8) uint8  { r := a | b; s.setNZ(r); return r }
func (s *SPC700) and(a, b uint8) uint8 { r := a & b; s.setNZ(r); return r }
func (s *SPC700) eor(a, b uint8) uint8 { r := a ^ b; s.setNZ(r); return r }

func (s *SPC700) adc(a, b uint8) uint8 {
	r := int(a) + int(b) + int(s.PSW&spcC)
	s.setFlag(spcV, ^(a^b)&(a^uint8(r))&0x80 != 0)
	s.setFlag(spcH, (a^b^uint8(r))&0x10 != 0)
	s.setFlag(spcC, r > 0xFF)
	s.setNZ(uint8(r))
	return uint8(r)
}

func (s *SPC700) sbc(a, b uint8) uint8 { return s.adc(a, ^b) }

// cmp sets flags from a-b and returns a unchanged.
func (s *SPC700) cmp(a, b uint8) uint8 {
	s.setFlag(spcC, a >= b)
	s.setNZ(a - b)
	return a
}

func (s *SPC700) asl(v uint8) uint8 {
	s.setFlag(spcC, v&0x80 != 0)
	v <<= 1
	s.setNZ(v)
	return v
}

func (s *SPC700) lsr(v uint8) uint8 {
	s.setFlag(spcC, v&1 != 0)
	v >>= 1
	s.setNZ(v)
	return v
}

func (s *SPC700) rol(v uint8) uint8 {
	carry := s.PSW & spcC
	s.setFlag(spcC, v&0x80 != 0)
	v = v<<1 | carry
	s.setNZ(v)
	return v
}

func (s *SPC700) ror(v uint8) uint8 {
	carry := (s.PSW & spcC) << 7
	s.setFlag(spcC, v&1 != 0)
	v = v>>1 | carry
	s.setNZ(v)
	return v
}

func (s *SPC700) inc(v uint8) uint8 { v++; s.setNZ(v); return v }
func (s *SPC700) dec(v uint8) uint8 { v--; s.setNZ(v); return v }

// branch reads a relative offset and takes it when cond holds (+2 cycles).
func (s *SPC700) branch(cond bool) {
	off := int8(s.fetch())
	if cond {
		s.PC += uint16(off)
		s.cycles += 2
	}
}

// memBit decodes the 13-bit address / 3-bit bit number operand of the
// carry-bit instructions.
func (s *SPC700) memBit() (uint16, uint8) {
	w := s.fetch16()
	return w & 0x1FFF, uint8(w >> 13)
}

package emu

// spcALU is a two-operand ALU handler. It returns the value to store (cmp
// returns the left operand unchanged).
type spcALU func(s *SPC700, a, b uint8) uint8

// spcShift is a one-operand read-modify-write handler.
type spcShift func(s *SPC700, v uint8) uint8

func newSPCTable() [256]spcOp {
	var t [256]spcOp
	set := func(op uint8, name string, cycles uint8, exec func(*SPC700, uint8)) {
		t[op] = spcOp{name: name, cycles: cycles, exec: exec}
	}

	// OR/AND/EOR/CMP/ADC/SBC share one column layout.
	alu := []struct {
		row   uint8
		name  string
		f     spcALU
		store bool
	}{
		{0x00, "OR", (*SPC700).or, true},
		{0x20, "AND", (*SPC700).and, true},
		{0x40, "EOR", (*SPC700).eor, true},
		{0x60, "CMP", (*SPC700).cmp, false},
		{0x80, "ADC", (*SPC700).adc, true},
		{0xA0, "SBC", (*SPC700).sbc, true},
	}
	for _, g := range alu {
		f := g.f
		store := g.store
		set(g.row|0x04, g.name, 3, func(s *SPC700, _ uint8) { s.A = f(s, s.A, s.read(s.dp(s.fetch()))) })
		set(g.row|0x05, g.name, 4, func(s *SPC700, _ uint8) { s.A = f(s, s.A, s.read(s.fetch16())) })
		set(g.row|0x06, g.name, 3, func(s *SPC700, _ uint8) { s.A = f(s, s.A, s.read(s.dp(s.X))) })
		set(g.row|0x07, g.name, 6, func(s *SPC700, _ uint8) {
			s.A = f(s, s.A, s.read(s.readDP16(s.fetch()+s.X)))
		})
		set(g.row|0x08, g.name, 2, func(s *SPC700, _ uint8) { s.A = f(s, s.A, s.fetch()) })
		set(g.row|0x09, g.name, 6, func(s *SPC700, _ uint8) {
			src := s.read(s.dp(s.fetch()))
			dst := s.dp(s.fetch())
			r := f(s, s.read(dst), src)
			if store {
				s.write(dst, r)
			}
		})
		set(g.row|0x14, g.name, 4, func(s *SPC700, _ uint8) { s.A = f(s, s.A, s.read(s.dp(s.fetch()+s.X))) })
		set(g.row|0x15, g.name, 5, func(s *SPC700, _ uint8) { s.A = f(s, s.A, s.read(s.fetch16()+uint16(s.X))) })
		set(g.row|0x16, g.name, 5, func(s *SPC700, _ uint8) { s.A = f(s, s.A, s.read(s.fetch16()+uint16(s.Y))) })
		set(g.row|0x17, g.name, 6, func(s *SPC700, _ uint8) {
			s.A = f(s, s.A, s.read(s.readDP16(s.fetch())+uint16(s.Y)))
		})
		set(g.row|0x18, g.name, 5, func(s *SPC700, _ uint8) {
			imm := s.fetch()
			dst := s.dp(s.fetch())
			r := f(s, s.read(dst), imm)
			if store {
				s.write(dst, r)
			}
		})
		set(g.row|0x19, g.name, 5, func(s *SPC700, _ uint8) {
			dst := s.dp(s.X)
			r := f(s, s.read(dst), s.read(s.dp(s.Y)))
			if store {
				s.write(dst, r)
			}
		})
	}

	// ASL/ROL/LSR/ROR/DEC/INC memory and accumulator forms.
	shifts := []struct {
		row  uint8
		name string
		f    spcShift
	}{
		{0x00, "ASL", (*SPC700).asl},
		{0x20, "ROL", (*SPC700).rol},
		{0x40, "LSR", (*SPC700).lsr},
		{0x60, "ROR", (*SPC700).ror},
		{0x80, "DEC", (*SPC700).dec},
		{0xA0, "INC", (*SPC700).inc},
	}
	for _, g := range shifts {
		f := g.f
		set(g.row|0x0B, g.name, 4, func(s *SPC700, _ uint8) {
			a := s.dp(s.fetch())
			s.write(a, f(s, s.read(a)))
		})
		set(g.row|0x0C, g.name, 5, func(s *SPC700, _ uint8) {
			a := s.fetch16()
			s.write(a, f(s, s.read(a)))
		})
		set(g.row|0x1B, g.name, 5, func(s *SPC700, _ uint8) {
			a := s.dp(s.fetch() + s.X)
			s.write(a, f(s, s.read(a)))
		})
		set(g.row|0x1C, g.name, 2, func(s *SPC700, _ uint8) { s.A = f(s, s.A) })
	}

	// Bit-numbered families: TCALL, SET1, CLR1, BBS, BBC.
	for n := uint8(0); n < 8; n++ {
		hi := n << 5
		set(hi|0x01, "TCALL", 8, (*SPC700).opTCALL)
		set(hi|0x11, "TCALL", 8, (*SPC700).opTCALL)
		set(hi|0x02, "SET1", 4, (*SPC700).opSET1)
		set(hi|0x12, "CLR1", 4, (*SPC700).opCLR1)
		set(hi|0x03, "BBS", 5, (*SPC700).opBBS)
		set(hi|0x13, "BBC", 5, (*SPC700).opBBC)
	}

	// Branches.
	set(0x10, "BPL", 2, func(s *SPC700, _ uint8) { s.branch(s.PSW&spcN == 0) })
	set(0x30, "BMI", 2, func(s *SPC700, _ uint8) { s.branch(s.PSW&spcN != 0) })
	set(0x50, "BVC", 2, func(s *SPC700, _ uint8) { s.branch(s.PSW&spcV == 0) })
	set(0x70, "BVS", 2, func(s *SPC700, _ uint8) { s.branch(s.PSW&spcV != 0) })
	set(0x90, "BCC", 2, func(s *SPC700, _ uint8) { s.branch(s.PSW&spcC == 0) })
	set(0xB0, "BCS", 2, func(s *SPC700, _ uint8) { s.branch(s.PSW&spcC != 0) })
	set(0xD0, "BNE", 2, func(s *SPC700, _ uint8) { s.branch(s.PSW&spcZ == 0) })
	set(0xF0, "BEQ", 2, func(s *SPC700, _ uint8) { s.branch(s.PSW&spcZ != 0) })
	set(0x2F, "BRA", 4, func(s *SPC700, _ uint8) {
		off := int8(s.fetch())
		s.PC += uint16(off)
	})
	set(0x2E, "CBNE", 5, func(s *SPC700, _ uint8) {
		v := s.read(s.dp(s.fetch()))
		s.branch(s.A != v)
	})
	set(0xDE, "CBNE", 6, func(s *SPC700, _ uint8) {
		v := s.read(s.dp(s.fetch() + s.X))
		s.branch(s.A != v)
	})
	set(0x6E, "DBNZ", 5, func(s *SPC700, _ uint8) {
		a := s.dp(s.fetch())
		v := s.read(a) - 1
		s.write(a, v)
		s.branch(v != 0)
	})
	set(0xFE, "DBNZ", 4, func(s *SPC700, _ uint8) {
		s.Y--
		s.branch(s.Y != 0)
	})

	// Jumps and calls.
	set(0x5F, "JMP", 3, func(s *SPC700, _ uint8) { s.PC = s.fetch16() })
	set(0x1F, "JMP", 6, func(s *SPC700, _ uint8) { s.PC = s.read16(s.fetch16() + uint16(s.X)) })
	set(0x3F, "CALL", 8, func(s *SPC700, _ uint8) {
		target := s.fetch16()
		s.push16(s.PC)
		s.PC = target
	})
	set(0x4F, "PCALL", 6, func(s *SPC700, _ uint8) {
		u := s.fetch()
		s.push16(s.PC)
		s.PC = 0xFF00 | uint16(u)
	})
	set(0x6F, "RET", 5, func(s *SPC700, _ uint8) { s.PC = s.pop16() })
	set(0x7F, "RETI", 6, func(s *SPC700, _ uint8) {
		s.PSW = s.pop()
		s.PC = s.pop16()
	})
	set(0x0F, "BRK", 8, func(s *SPC700, _ uint8) {
		s.push16(s.PC)
		s.push(s.PSW)
		s.PSW |= spcB
		s.PSW &^= spcI
		s.PC = s.read16(0xFFDE)
	})

	// Stack.
	set(0x0D, "PUSH", 4, func(s *SPC700, _ uint8) { s.push(s.PSW) })
	set(0x2D, "PUSH", 4, func(s *SPC700, _ uint8) { s.push(s.A) })
	set(0x4D, "PUSH", 4, func(s *SPC700, _ uint8) { s.push(s.X) })
	set(0x6D, "PUSH", 4, func(s *SPC700, _ uint8) { s.push(s.Y) })
	set(0x8E, "POP", 4, func(s *SPC700, _ uint8) { s.PSW = s.pop() })
	set(0xAE, "POP", 4, func(s *SPC700, _ uint8) { s.A = s.pop() })
	set(0xCE, "POP", 4, func(s *SPC700, _ uint8) { s.X = s.pop() })
	set(0xEE, "POP", 4, func(s *SPC700, _ uint8) { s.Y = s.pop() })

	// Loads.
	set(0xE4, "MOV", 3, func(s *SPC700, _ uint8) { s.A = s.read(s.dp(s.fetch())); s.setNZ(s.A) })
	set(0xE5, "MOV", 4, func(s *SPC700, _ uint8) { s.A = s.read(s.fetch16()); s.setNZ(s.A) })
	set(0xE6, "MOV", 3, func(s *SPC700, _ uint8) { s.A = s.read(s.dp(s.X)); s.setNZ(s.A) })
	set(0xE7, "MOV", 6, func(s *SPC700, _ uint8) { s.A = s.read(s.readDP16(s.fetch() + s.X)); s.setNZ(s.A) })
	set(0xE8, "MOV", 2, func(s *SPC700, _ uint8) { s.A = s.fetch(); s.setNZ(s.A) })
	set(0xF4, "MOV", 4, func(s *SPC700, _ uint8) { s.A = s.read(s.dp(s.fetch() + s.X)); s.setNZ(s.A) })
	set(0xF5, "MOV", 5, func(s *SPC700, _ uint8) { s.A = s.read(s.fetch16() + uint16(s.X)); s.setNZ(s.A) })
	set(0xF6, "MOV", 5, func(s *SPC700, _ uint8) { s.A = s.read(s.fetch16() + uint16(s.Y)); s.setNZ(s.A) })
	set(0xF7, "MOV", 6, func(s *SPC700, _ uint8) { s.A = s.read(s.readDP16(s.fetch()) + uint16(s.Y)); s.setNZ(s.A) })
	set(0xBF, "MOV", 4, func(s *SPC700, _ uint8) {
		s.A = s.read(s.dp(s.X))
		s.X++
		s.setNZ(s.A)
	})
	set(0xCD, "MOV", 2, func(s *SPC700, _ uint8) { s.X = s.fetch(); s.setNZ(s.X) })
	set(0xE9, "MOV", 4, func(s *SPC700, _ uint8) { s.X = s.read(s.fetch16()); s.setNZ(s.X) })
	set(0xF8, "MOV", 3, func(s *SPC700, _ uint8) { s.X = s.read(s.dp(s.fetch())); s.setNZ(s.X) })
	set(0xF9, "MOV", 4, func(s *SPC700, _ uint8) { s.X = s.read(s.dp(s.fetch() + s.Y)); s.setNZ(s.X) })
	set(0x8D, "MOV", 2, func(s *SPC700, _ uint8) { s.Y = s.fetch(); s.setNZ(s.Y) })
	set(0xEC, "MOV", 4, func(s *SPC700, _ uint8) { s.Y = s.read(s.fetch16()); s.setNZ(s.Y) })
	set(0xEB, "MOV", 3, func(s *SPC700, _ uint8) { s.Y = s.read(s.dp(s.fetch())); s.setNZ(s.Y) })
	set(0xFB, "MOV", 4, func(s *SPC700, _ uint8) { s.Y = s.read(s.dp(s.fetch() + s.X)); s.setNZ(s.Y) })

	// Stores.
	set(0xC4, "MOV", 4, func(s *SPC700, _ uint8) { s.write(s.dp(s.fetch()), s.A) })
	set(0xC5, "MOV", 5, func(s *SPC700, _ uint8) { s.write(s.fetch16(), s.A) })
	set(0xC6, "MOV", 4, func(s *SPC700, _ uint8) { s.write(s.dp(s.X), s.A) })
	set(0xC7, "MOV", 7, func(s *SPC700, _ uint8) { s.write(s.readDP16(s.fetch()+s.X), s.A) })
	set(0xD4, "MOV", 5, func(s *SPC700, _ uint8) { s.write(s.dp(s.fetch()+s.X), s.A) })
	set(0xD5, "MOV", 6, func(s *SPC700, _ uint8) { s.write(s.fetch16()+uint16(s.X), s.A) })
	set(0xD6, "MOV", 6, func(s *SPC700, _ uint8) { s.write(s.fetch16()+uint16(s.Y), s.A) })
	set(0xD7, "MOV", 7, func(s *SPC700, _ uint8) { s.write(s.readDP16(s.fetch())+uint16(s.Y), s.A) })
	set(0xAF, "MOV", 4, func(s *SPC700, _ uint8) {
		s.write(s.dp(s.X), s.A)
		s.X++
	})
	set(0xD8, "MOV", 4, func(s *SPC700, _ uint8) { s.write(s.dp(s.fetch()), s.X) })
	set(0xD9, "MOV", 5, func(s *SPC700, _ uint8) { s.write(s.dp(s.fetch()+s.Y), s.X) })
	set(0xC9, "MOV", 5, func(s *SPC700, _ uint8) { s.write(s.fetch16(), s.X) })
	set(0xCB, "MOV", 4, func(s *SPC700, _ uint8) { s.write(s.dp(s.fetch()), s.Y) })
	set(0xDB, "MOV", 5, func(s *SPC700, _ uint8) { s.write(s.dp(s.fetch()+s.X), s.Y) })
	set(0xCC, "MOV", 5, func(s *SPC700, _ uint8) { s.write(s.fetch16(), s.Y) })
	set(0xFA, "MOV", 5, func(s *SPC700, _ uint8) {
		v := s.read(s.dp(s.fetch()))
		s.write(s.dp(s.fetch()), v)
	})
	set(0x8F, "MOV", 5, func(s *SPC700, _ uint8) {
		imm := s.fetch()
		s.write(s.dp(s.fetch()), imm)
	})

	// Register transfers.
	set(0x7D, "MOV", 2, func(s *SPC700, _ uint8) { s.A = s.X; s.setNZ(s.A) })
	set(0xDD, "MOV", 2, func(s *SPC700, _ uint8) { s.A = s.Y; s.setNZ(s.A) })
	set(0x5D, "MOV", 2, func(s *SPC700, _ uint8) { s.X = s.A; s.setNZ(s.X) })
	set(0xFD, "MOV", 2, func(s *SPC700, _ uint8) { s.Y = s.A; s.setNZ(s.Y) })
	set(0x9D, "MOV", 2, func(s *SPC700, _ uint8) { s.X = s.SP; s.setNZ(s.X) })
	set(0xBD, "MOV", 2, func(s *SPC700, _ uint8) { s.SP = s.X })

	// Index compares and increments.
	set(0xC8, "CMP", 2, func(s *SPC700, _ uint8) { s.cmp(s.X, s.fetch()) })
	set(0x3E, "CMP", 3, func(s *SPC700, _ uint8) { s.cmp(s.X, s.read(s.dp(s.fetch()))) })
	set(0x1E, "CMP", 4, func(s *SPC700, _ uint8) { s.cmp(s.X, s.read(s.fetch16())) })
	set(0xAD, "CMP", 2, func(s *SPC700, _ uint8) { s.cmp(s.Y, s.fetch()) })
	set(0x7E, "CMP", 3, func(s *SPC700, _ uint8) { s.cmp(s.Y, s.read(s.dp(s.fetch()))) })
	set(0x5E, "CMP", 4, func(s *SPC700, _ uint8) { s.cmp(s.Y, s.read(s.fetch16())) })
	set(0x3D, "INC", 2, func(s *SPC700, _ uint8) { s.X = s.inc(s.X) })
	set(0xFC, "INC", 2, func(s *SPC700, _ uint8) { s.Y = s.inc(s.Y) })
	set(0x1D, "DEC", 2, func(s *SPC700, _ uint8) { s.X = s.dec(s.X) })
	set(0xDC, "DEC", 2, func(s *SPC700, _ uint8) { s.Y = s.dec(s.Y) })

	// 16-bit word operations.
	set(0xBA, "MOVW", 5, func(s *SPC700, _ uint8) {
		v := s.readDP16(s.fetch())
		s.setYA(v)
		s.setNZ16(v)
	})
	set(0xDA, "MOVW", 5, func(s *SPC700, _ uint8) { s.writeDP16(s.fetch(), s.ya()) })
	set(0x3A, "INCW", 6, func(s *SPC700, _ uint8) {
		off := s.fetch()
		v := s.readDP16(off) + 1
		s.writeDP16(off, v)
		s.setNZ16(v)
	})
	set(0x1A, "DECW", 6, func(s *SPC700, _ uint8) {
		off := s.fetch()
		v := s.readDP16(off) - 1
		s.writeDP16(off, v)
		s.setNZ16(v)
	})
	set(0x7A, "ADDW", 5, func(s *SPC700, _ uint8) {
		ya := s.ya()
		w := s.readDP16(s.fetch())
		r := uint32(ya) + uint32(w)
		s.setFlag(spcV, ^(ya^w)&(ya^uint16(r))&0x8000 != 0)
		s.setFlag(spcH, (ya^w^uint16(r))&0x1000 != 0)
		s.setFlag(spcC, r > 0xFFFF)
		s.setYA(uint16(r))
		s.setNZ16(uint16(r))
	})
	set(0x9A, "SUBW", 5, func(s *SPC700, _ uint8) {
		ya := s.ya()
		w := s.readDP16(s.fetch())
		r := ya - w
		s.setFlag(spcV, (ya^w)&(ya^r)&0x8000 != 0)
		s.setFlag(spcH, (ya^w^r)&0x1000 == 0)
		s.setFlag(spcC, ya >= w)
		s.setYA(r)
		s.setNZ16(r)
	})
	set(0x5A, "CMPW", 4, func(s *SPC700, _ uint8) {
		ya := s.ya()
		w := s.readDP16(s.fetch())
		s.setFlag(spcC, ya >= w)
		s.setNZ16(ya - w)
	})
	set(0xCF, "MUL", 9, func(s *SPC700, _ uint8) {
		s.setYA(uint16(s.Y) * uint16(s.A))
		s.setNZ(s.Y)
	})
	set(0x9E, "DIV", 12, (*SPC700).opDIV)

	// Decimal adjust and nibble swap.
	set(0xDF, "DAA", 3, func(s *SPC700, _ uint8) {
		if s.PSW&spcC != 0 || s.A > 0x99 {
			s.A += 0x60
			s.PSW |= spcC
		}
		if s.PSW&spcH != 0 || s.A&0x0F > 9 {
			s.A += 6
		}
		s.setNZ(s.A)
	})
	set(0xBE, "DAS", 3, func(s *SPC700, _ uint8) {
		if s.PSW&spcC == 0 || s.A > 0x99 {
			s.A -= 0x60
			s.PSW &^= spcC
		}
		if s.PSW&spcH == 0 || s.A&0x0F > 9 {
			s.A -= 6
		}
		s.setNZ(s.A)
	})
	set(0x9F, "XCN", 5, func(s *SPC700, _ uint8) {
		s.A = s.A>>4 | s.A<<4
		s.setNZ(s.A)
	})

	// Memory bit operations.
	set(0x0E, "TSET1", 6, func(s *SPC700, _ uint8) {
		a := s.fetch16()
		v := s.read(a)
		s.setNZ(s.A - v)
		s.write(a, v|s.A)
	})
	set(0x4E, "TCLR1", 6, func(s *SPC700, _ uint8) {
		a := s.fetch16()
		v := s.read(a)
		s.setNZ(s.A - v)
		s.write(a, v&^s.A)
	})
	set(0x0A, "OR1", 5, func(s *SPC700, _ uint8) {
		if s.readMemBit() {
			s.PSW |= spcC
		}
	})
	set(0x2A, "OR1", 5, func(s *SPC700, _ uint8) {
		if !s.readMemBit() {
			s.PSW |= spcC
		}
	})
	set(0x4A, "AND1", 4, func(s *SPC700, _ uint8) {
		if !s.readMemBit() {
			s.PSW &^= spcC
		}
	})
	set(0x6A, "AND1", 4, func(s *SPC700, _ uint8) {
		if s.readMemBit() {
			s.PSW &^= spcC
		}
	})
	set(0x8A, "EOR1", 5, func(s *SPC700, _ uint8) {
		if s.readMemBit() {
			s.PSW ^= spcC
		}
	})
	set(0xAA, "MOV1", 4, func(s *SPC700, _ uint8) { s.setFlag(spcC, s.readMemBit()) })
	set(0xCA, "MOV1", 6, func(s *SPC700, _ uint8) {
		a, bit := s.memBit()
		v := s.read(a) &^ (1 << bit)
		if s.PSW&spcC != 0 {
			v |= 1 << bit
		}
		s.write(a, v)
	})
	set(0xEA, "NOT1", 5, func(s *SPC700, _ uint8) {
		a, bit := s.memBit()
		s.write(a, s.read(a)^(1<<bit))
	})

	// Flags.
	set(0x20, "CLRP", 2, func(s *SPC700, _ uint8) { s.PSW &^= spcP })
	set(0x40, "SETP", 2, func(s *SPC700, _ uint8) { s.PSW |= spcP })
	set(0x60, "CLRC", 2, func(s *SPC700, _ uint8) { s.PSW &^= spcC })
	set(0x80, "SETC", 2, func(s *SPC700, _ uint8) { s.PSW |= spcC })
	set(0xED, "NOTC", 3, func(s *SPC700, _ uint8) { s.PSW ^= spcC })
	set(0xE0, "CLRV", 2, func(s *SPC700, _ uint8) { s.PSW &^= spcV | spcH })
	set(0xA0, "EI", 3, func(s *SPC700, _ uint8) { s.PSW |= spcI })
	set(0xC0, "DI", 3, func(s *SPC700, _ uint8) { s.PSW &^= spcI })

	set(0x00, "NOP", 2, func(*SPC700, uint8) {})
	set(0xEF, "SLEEP", 3, func(s *SPC700, _ uint8) { s.stopped = true })
	set(0xFF, "STOP", 3, func(s *SPC700, _ uint8) { s.stopped = true })

	return t
}

func (s *SPC700) readMemBit() bool {
	a, bit := s.memBit()
	return s.read(a)>>bit&1 != 0
}

func (s *SPC700) opTCALL(op uint8) {
	n := uint16(op >> 4)
	s.push16(s.PC)
	s.PC = s.read16(0xFFDE - 2*n)
}

func (s *SPC700) opSET1(op uint8) {
	a := s.dp(s.fetch())
	s.write(a, s.read(a)|1<<(op>>5))
}

func (s *SPC700) opCLR1(op uint8) {
	a := s.dp(s.fetch())
	s.write(a, s.read(a)&^(1<<(op>>5)))
}

func (s *SPC700) opBBS(op uint8) {
	v := s.read(s.dp(s.fetch()))
	s.branch(v&(1<<(op>>5)) != 0)
}

func (s *SPC700) opBBC(op uint8) {
	v := s.read(s.dp(s.fetch()))
	s.branch(v&(1<<(op>>5)) == 0)
}

// opDIV divides YA by X. Quotients that overflow 9 bits produce the
// hardware's characteristic garbage rather than a fault.
func (s *SPC700) opDIV(uint8) {
	ya := uint32(s.ya())
	x := uint32(s.X)
	s.setFlag(spcV, s.Y >= s.X)
	s.setFlag(spcH, s.Y&0x0F >= s.X&0x0F)
	if uint32(s.Y) < x<<1 {
		s.A = uint8(ya / x)
		s.Y = uint8(ya % x)
	} else {
		s.A = uint8(255 - (ya-x<<9)/(256-x))
		s.Y = uint8(x + (ya-x<<9)%(256-x))
	}
	s.setNZ(s.A)
}

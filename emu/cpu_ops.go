package emu

// --- Loads and stores ---

func (c *CPU) opLDA(m addrMode) {
	wide := !c.m8()
	v := c.operand(m, wide)
	if wide {
		c.A = v
	} else {
		c.A = c.A&0xFF00 | v
	}
	c.setNZ(v, wide)
}

func (c *CPU) opLDX(m addrMode) {
	wide := !c.x8()
	c.X = c.operand(m, wide)
	c.setNZ(c.X, wide)
}

func (c *CPU) opLDY(m addrMode) {
	wide := !c.x8()
	c.Y = c.operand(m, wide)
	c.setNZ(c.Y, wide)
}

func (c *CPU) opSTA(m addrMode) { c.writeData(c.ea(m), c.A, !c.m8()) }
func (c *CPU) opSTX(m addrMode) { c.writeData(c.ea(m), c.X, !c.x8()) }
func (c *CPU) opSTY(m addrMode) { c.writeData(c.ea(m), c.Y, !c.x8()) }
func (c *CPU) opSTZ(m addrMode) { c.writeData(c.ea(m), 0, !c.m8()) }

// --- ALU ---

func (c *CPU) opORA(m addrMode) {
	wide := !c.m8()
	v := c.operand(m, wide)
	c.setA(c.A|v, wide)
}

func (c *CPU) opAND(m addrMode) {
	wide := !c.m8()
	v := c.operand(m, wide)
	if wide {
		c.setA(c.A&v, wide)
	} else {
		c.setA(c.A&(0xFF00|v), wide)
	}
}

func (c *CPU) opEOR(m addrMode) {
	wide := !c.m8()
	v := c.operand(m, wide)
	c.setA(c.A^v, wide)
}

// setA stores the low byte (8-bit) or whole accumulator and sets N/Z.
func (c *CPU) setA(v uint16, wide bool) {
	if wide {
		c.A = v
	} else {
		c.A = c.A&0xFF00 | v&0xFF
	}
	c.setNZ(v, wide)
}

func (c *CPU) opADC(m addrMode) {
	wide := !c.m8()
	v := c.operand(m, wide)
	if wide {
		c.setA(c.adc16(c.A, v), true)
	} else {
		c.setA(uint16(c.adc8(uint8(c.A), uint8(v))), false)
	}
}

func (c *CPU) opSBC(m addrMode) {
	wide := !c.m8()
	v := c.operand(m, wide)
	if wide {
		c.setA(c.sbc16(c.A, v), true)
	} else {
		c.setA(uint16(c.sbc8(uint8(c.A), uint8(v))), false)
	}
}

func (c *CPU) adc8(a, b uint8) uint8 {
	carry := int(c.P & flagC)
	var r int
	if c.P&flagD == 0 {
		r = int(a) + int(b) + carry
	} else {
		r = int(a&0x0F) + int(b&0x0F) + carry
		if r > 0x09 {
			r += 0x06
		}
		carry = 0
		if r > 0x0F {
			carry = 1
		}
		r = int(a&0xF0) + int(b&0xF0) + carry<<4 + r&0x0F
	}
	c.setFlag(flagV, ^(a^b)&(a^uint8(r))&0x80 != 0)
	if c.P&flagD != 0 && r > 0x9F {
		r += 0x60
	}
	c.setFlag(flagC, r > 0xFF)
	return uint8(r)
}

func (c *CPU) sbc8(a, b uint8) uint8 {
	b = ^b
	carry := int(c.P & flagC)
	var r int
	if c.P&flagD == 0 {
		r = int(a) + int(b) + carry
	} else {
		r = int(a&0x0F) + int(b&0x0F) + carry
		if r <= 0x0F {
			r -= 0x06
		}
		carry = 0
		if r > 0x0F {
			carry = 1
		}
		r = int(a&0xF0) + int(b&0xF0) + carry<<4 + r&0x0F
	}
	c.setFlag(flagV, ^(a^b)&(a^uint8(r))&0x80 != 0)
	if c.P&flagD != 0 && r <= 0xFF {
		r -= 0x60
	}
	c.setFlag(flagC, r > 0xFF)
	return uint8(r)
}

func (c *CPU) adc16(a, b uint16) uint16 {
	carry := int(c.P & flagC)
	var r int
	if c.P&flagD == 0 {
		r = int(a) + int(b) + carry
	} else {
		r = int(a&0x000F) + int(b&0x000F) + carry
		if r > 0x0009 {
			r += 0x0006
		}
		carry = boolInt(r > 0x000F)
		r = int(a&0x00F0) + int(b&0x00F0) + carry<<4 + r&0x000F
		if r > 0x009F {
			r += 0x0060
		}
		carry = boolInt(r > 0x00FF)
		r = int(a&0x0F00) + int(b&0x0F00) + carry<<8 + r&0x00FF
		if r > 0x09FF {
			r += 0x0600
		}
		carry = boolInt(r > 0x0FFF)
		r = int(a&0xF000) + int(b&0xF000) + carry<<12 + r&0x0FFF
	}
	c.setFlag(flagV, ^(a^b)&(a^uint16(r))&0x8000 != 0)
	if c.P&flagD != 0 && r > 0x9FFF {
		r += 0x6000
	}
	c.setFlag(flagC, r > 0xFFFF)
	return uint16(r)
}

func (c *CPU) sbc16(a, b uint16) uint16 {
	b = ^b
	carry := int(c.P & flagC)
	var r int
	if c.P&flagD == 0 {
		r = int(a) + int(b) + carry
	} else {
		r = int(a&0x000F) + int(b&0x000F) + carry
		if r <= 0x000F {
			r -= 0x0006
		}
		carry = boolInt(r > 0x000F)
		r = int(a&0x00F0) + int(b&0x00F0) + carry<<4 + r&0x000F
		if r <= 0x00FF {
			r -= 0x0060
		}
		carry = boolInt(r > 0x00FF)
		r = int(a&0x0F00) + int(b&0x0F00) + carry<<8 + r&0x00FF
		if r <= 0x0FFF {
			r -= 0x0600
		}
		carry = boolInt(r > 0x0FFF)
		r = int(a&0xF000) + int(b&0xF000) + carry<<12 + r&0x0FFF
	}
	c.setFlag(flagV, ^(a^b)&(a^uint16(r))&0x8000 != 0)
	if c.P&flagD != 0 && r <= 0xFFFF {
		r -= 0x6000
	}
	c.setFlag(flagC, r > 0xFFFF)
	return uint16(r)
}

func boolInt(b bool) int {
	if b {
		return 1
	}
	return 0
}

func (c *CPU) compare(reg, v uint16, wide bool) {
	if !wide {
		reg &= 0xFF
	}
	c.setFlag(flagC, reg >= v)
	c.setNZ(reg-v, wide)
}

func (c *CPU) opCMP(m addrMode) {
	wide := !c.m8()
	c.compare(c.A, c.operand(m, wide), wide)
}

func (c *CPU) opCPX(m addrMode) {
	wide := !c.x8()
	c.compare(c.X, c.operand(m, wide), wide)
}

func (c *CPU) opCPY(m addrMode) {
	wide := !c.x8()
	c.compare(c.Y, c.operand(m, wide), wide)
}

func (c *CPU) opBIT(m addrMode) {
	wide := !c.m8()
	v := c.operand(m, wide)
	a := c.A
	if !wide {
		a &= 0xFF
	}
	c.setFlag(flagZ, a&v == 0)
	if m == modeImm {
		return
	}
	top := uint16(0x80)
	if wide {
		top = 0x8000
	}
	c.setFlag(flagN, v&top != 0)
	c.setFlag(flagV, v&(top>>1) != 0)
}

// --- Read-modify-write ---

// rmw applies f to the accumulator or to memory at the operand address.
func (c *CPU) rmw(m addrMode, f func(v uint16, wide bool) uint16) {
	wide := !c.m8()
	if m == modeAcc {
		c.setA(f(c.A, wide), wide)
		return
	}
	addr := c.ea(m)
	v := f(c.readData(addr, wide), wide)
	c.writeData(addr, v, wide)
	c.setNZ(v, wide)
}

func topBit(wide bool) uint16 {
	if wide {
		return 0x8000
	}
	return 0x80
}

func (c *CPU) opASL(m addrMode) {
	c.rmw(m, func(v uint16, wide bool) uint16 {
		c.setFlag(flagC, v&topBit(wide) != 0)
		return maskWidth(v<<1, wide)
	})
}

func (c *CPU) opLSR(m addrMode) {
	c.rmw(m, func(v uint16, wide bool) uint16 {
		v = maskWidth(v, wide)
		c.setFlag(flagC, v&1 != 0)
		return v >> 1
	})
}

func (c *CPU) opROL(m addrMode) {
	c.rmw(m, func(v uint16, wide bool) uint16 {
		carry := uint16(c.P & flagC)
		c.setFlag(flagC, v&topBit(wide) != 0)
		return maskWidth(v<<1|carry, wide)
	})
}

func (c *CPU) opROR(m addrMode) {
	c.rmw(m, func(v uint16, wide bool) uint16 {
		v = maskWidth(v, wide)
		var carry uint16
		if c.P&flagC != 0 {
			carry = topBit(wide)
		}
		c.setFlag(flagC, v&1 != 0)
		return v>>1 | carry
	})
}

func (c *CPU) opINC(m addrMode) {
	c.rmw(m, func(v uint16, wide bool) uint16 { return maskWidth(v+1, wide) })
}

func (c *CPU) opDEC(m addrMode) {
	c.rmw(m, func(v uint16, wide bool) uint16 { return maskWidth(v-1, wide) })
}

// TSB and TRB set only Z, from A AND the original memory value.
func (c *CPU) opTSB(m addrMode) {
	wide := !c.m8()
	addr := c.ea(m)
	v := c.readData(addr, wide)
	a := maskWidth(c.A, wide)
	c.setFlag(flagZ, a&v == 0)
	c.writeData(addr, v|a, wide)
}

func (c *CPU) opTRB(m addrMode) {
	wide := !c.m8()
	addr := c.ea(m)
	v := c.readData(addr, wide)
	a := maskWidth(c.A, wide)
	c.setFlag(flagZ, a&v == 0)
	c.writeData(addr, v&^a, wide)
}

func maskWidth(v uint16, wide bool) uint16 {
	if wide {
		return v
	}
	return v & 0xFF
}

// --- Index register increments ---

func (c *CPU) opINX(addrMode) { c.X = maskWidth(c.X+1, !c.x8()); c.setNZ(c.X, !c.x8()) }
func (c *CPU) opINY(addrMode) { c.Y = maskWidth(c.Y+1, !c.x8()); c.setNZ(c.Y, !c.x8()) }
func (c *CPU) opDEX(addrMode) { c.X = maskWidth(c.X-1, !c.x8()); c.setNZ(c.X, !c.x8()) }
func (c *CPU) opDEY(addrMode) { c.Y = maskWidth(c.Y-1, !c.x8()); c.setNZ(c.Y, !c.x8()) }

// --- Branches ---

func (c *CPU) branch(taken bool) {
	off := int8(c.fetch8())
	if !taken {
		return
	}
	c.cycles++
	target := c.PC + uint16(off)
	if c.E && target&0xFF00 != c.PC&0xFF00 {
		c.cycles++
	}
	c.PC = target
}

func (c *CPU) opBPL(addrMode) { c.branch(c.P&flagN == 0) }
func (c *CPU) opBMI(addrMode) { c.branch(c.P&flagN != 0) }
func (c *CPU) opBVC(addrMode) { c.branch(c.P&flagV == 0) }
func (c *CPU) opBVS(addrMode) { c.branch(c.P&flagV != 0) }
func (c *CPU) opBCC(addrMode) { c.branch(c.P&flagC == 0) }
func (c *CPU) opBCS(addrMode) { c.branch(c.P&flagC != 0) }
func (c *CPU) opBNE(addrMode) { c.branch(c.P&flagZ == 0) }
func (c *CPU) opBEQ(addrMode) { c.branch(c.P&flagZ != 0) }
func (c *CPU) opBRA(addrMode) { c.branch(true) }

func (c *CPU) opBRL(addrMode) {
	off := c.fetch16()
	c.PC += off
}

// --- Jumps and calls ---

func (c *CPU) opJMP(m addrMode) {
	switch m {
	case modeAbs:
		c.PC = c.fetch16()
	case modeLong:
		target := c.fetch24()
		c.PB = uint8(target >> 16)
		c.PC = uint16(target)
	case modeAbsInd:
		ptr := c.fetch16()
		c.PC = c.read16Bank0(ptr)
	case modeAbsXInd:
		ptr := c.fetch16() + c.X
		base := uint32(c.PB) << 16
		c.PC = uint16(c.read(base|uint32(ptr))) | uint16(c.read(base|uint32(ptr+1)))<<8
	case modeAbsIndLong:
		ptr := c.fetch16()
		lo := c.read16Bank0(ptr)
		c.PB = c.read(uint32(ptr + 2))
		c.PC = lo
	}
}

func (c *CPU) opJSR(m addrMode) {
	if m == modeAbsXInd {
		ptr := c.fetch16()
		c.push16(c.PC - 1)
		ptr += c.X
		base := uint32(c.PB) << 16
		c.PC = uint16(c.read(base|uint32(ptr))) | uint16(c.read(base|uint32(ptr+1)))<<8
		return
	}
	target := c.fetch16()
	c.push16(c.PC - 1)
	c.PC = target
}

func (c *CPU) opJSL(addrMode) {
	target := c.fetch24()
	c.push8(c.PB)
	c.push16(c.PC - 1)
	c.PB = uint8(target >> 16)
	c.PC = uint16(target)
}

func (c *CPU) opRTS(addrMode) { c.PC = c.pull16() + 1 }

func (c *CPU) opRTL(addrMode) {
	c.PC = c.pull16() + 1
	c.PB = c.pull8()
}

func (c *CPU) opRTI(addrMode) {
	c.P = c.pull8()
	c.fixWidths()
	c.PC = c.pull16()
	if !c.E {
		c.cycles++
		c.PB = c.pull8()
	}
}

// software interrupts skip a signature byte and push the following PC.
func (c *CPU) software(native, emulation uint16) {
	c.fetch8()
	vector := emulation
	if !c.E {
		c.cycles++
		vector = native
		c.push8(c.PB)
	}
	c.push16(c.PC)
	p := c.P
	if c.E {
		p |= flagX // B set
	}
	c.push8(p)
	c.P |= flagI
	c.P &^= flagD
	c.PB = 0
	c.PC = c.read16Bank0(vector)
}

func (c *CPU) opBRK(addrMode) { c.software(vecNativeBRK, vecEmuIRQ) }
func (c *CPU) opCOP(addrMode) { c.software(vecNativeCOP, vecEmuCOP) }

// --- Stack ---

func (c *CPU) opPHA(addrMode) {
	if c.m8() {
		c.push8(uint8(c.A))
	} else {
		c.push16(c.A)
	}
}

func (c *CPU) opPLA(addrMode) {
	if c.m8() {
		c.setA(uint16(c.pull8()), false)
	} else {
		c.setA(c.pull16(), true)
	}
}

func (c *CPU) opPHX(addrMode) {
	if c.x8() {
		c.push8(uint8(c.X))
	} else {
		c.push16(c.X)
	}
}

func (c *CPU) opPLX(addrMode) {
	if c.x8() {
		c.X = uint16(c.pull8())
	} else {
		c.X = c.pull16()
	}
	c.setNZ(c.X, !c.x8())
}

func (c *CPU) opPHY(addrMode) {
	if c.x8() {
		c.push8(uint8(c.Y))
	} else {
		c.push16(c.Y)
	}
}

func (c *CPU) opPLY(addrMode) {
	if c.x8() {
		c.Y = uint16(c.pull8())
	} else {
		c.Y = c.pull16()
	}
	c.setNZ(c.Y, !c.x8())
}

func (c *CPU) opPHP(addrMode) { c.push8(c.P) }

func (c *CPU) opPLP(addrMode) {
	c.P = c.pull8()
	c.fixWidths()
}

func (c *CPU) opPHB(addrMode) { c.push8(c.DB) }

func (c *CPU) opPLB(addrMode) {
	c.DB = c.pull8()
	c.setNZ8(c.DB)
}

func (c *CPU) opPHD(addrMode) { c.push16(c.D) }

func (c *CPU) opPLD(addrMode) {
	c.D = c.pull16()
	c.setNZ16(c.D)
}

func (c *CPU) opPHK(addrMode) { c.push8(c.PB) }

func (c *CPU) opPEA(addrMode) { c.push16(c.fetch16()) }

func (c *CPU) opPEI(addrMode) {
	c.push16(c.readPtr16(c.dpAddr(uint16(c.fetch8()))))
}

func (c *CPU) opPER(addrMode) {
	off := c.fetch16()
	c.push16(c.PC + off)
}

// --- Transfers ---

func (c *CPU) opTAX(addrMode) { c.X = maskWidth(c.A, !c.x8()); c.setNZ(c.X, !c.x8()) }
func (c *CPU) opTAY(addrMode) { c.Y = maskWidth(c.A, !c.x8()); c.setNZ(c.Y, !c.x8()) }
func (c *CPU) opTXA(addrMode) { c.setA(c.X, !c.m8()) }
func (c *CPU) opTYA(addrMode) { c.setA(c.Y, !c.m8()) }
func (c *CPU) opTXY(addrMode) { c.Y = c.X; c.setNZ(c.Y, !c.x8()) }
func (c *CPU) opTYX(addrMode) { c.X = c.Y; c.setNZ(c.X, !c.x8()) }
func (c *CPU) opTSX(addrMode) { c.X = maskWidth(c.S, !c.x8()); c.setNZ(c.X, !c.x8()) }

func (c *CPU) opTXS(addrMode) {
	if c.E {
		c.S = 0x0100 | c.X&0xFF
	} else {
		c.S = c.X
	}
}

func (c *CPU) opTCS(addrMode) {
	if c.E {
		c.S = 0x0100 | c.A&0xFF
	} else {
		c.S = c.A
	}
}

func (c *CPU) opTSC(addrMode) { c.A = c.S; c.setNZ16(c.A) }
func (c *CPU) opTCD(addrMode) { c.D = c.A; c.setNZ16(c.D) }
func (c *CPU) opTDC(addrMode) { c.A = c.D; c.setNZ16(c.A) }

func (c *CPU) opXBA(addrMode) {
	c.A = c.A<<8 | c.A>>8
	c.setNZ8(uint8(c.A))
}

// --- Flags ---

func (c *CPU) opCLC(addrMode) { c.P &^= flagC }
func (c *CPU) opSEC(addrMode) { c.P |= flagC }
func (c *CPU) opCLI(addrMode) { c.P &^= flagI }
func (c *CPU) opSEI(addrMode) { c.P |= flagI }
func (c *CPU) opCLV(addrMode) { c.P &^= flagV }
func (c *CPU) opCLD(addrMode) { c.P &^= flagD }
func (c *CPU) opSED(addrMode) { c.P |= flagD }

func (c *CPU) opREP(addrMode) {
	c.P &^= c.fetch8()
	c.fixWidths()
}

func (c *CPU) opSEP(addrMode) {
	c.P |= c.fetch8()
	c.fixWidths()
}

func (c *CPU) opXCE(addrMode) {
	carry := c.P&flagC != 0
	c.setFlag(flagC, c.E)
	c.E = carry
	c.fixWidths()
}

// --- Block moves ---

// blockMove copies one byte per execution and rewinds PC until A wraps
// to $FFFF.
func (c *CPU) blockMove(step uint16) {
	dst := c.fetch8()
	src := c.fetch8()
	c.DB = dst
	v := c.read(uint32(src)<<16 | uint32(c.X))
	c.write(uint32(dst)<<16|uint32(c.Y), v)
	c.X = maskWidth(c.X+step, !c.x8())
	c.Y = maskWidth(c.Y+step, !c.x8())
	c.A--
	if c.A != 0xFFFF {
		c.PC -= 3
	}
}

func (c *CPU) opMVN(addrMode) { c.blockMove(1) }
func (c *CPU) opMVP(addrMode) { c.blockMove(0xFFFF) }

// --- Misc ---

func (c *CPU) opNOP(addrMode) {}
func (c *CPU) opWDM(addrMode) { c.fetch8() }
func (c *CPU) opWAI(addrMode) { c.waiting = true }
func (c *CPU) opSTP(addrMode) { c.stopped = true }

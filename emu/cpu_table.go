package emu

type addrMode uint8

const (
	modeImplied addrMode = iota
	modeAcc
	modeImm
	modeDP
	modeDPX
	modeDPY
	modeDPInd      // (dp)
	modeDPIndLong  // [dp]
	modeDPXInd     // (dp,X)
	modeDPIndY     // (dp),Y
	modeDPIndLongY // [dp],Y
	modeAbs
	modeAbsX
	modeAbsY
	modeLong
	modeLongX
	modeSR     // sr,S
	modeSRIndY // (sr,S),Y
	modeAbsInd
	modeAbsXInd
	modeAbsIndLong
)

// direct reports whether the mode forms its address from the direct page
// register, which costs a cycle when D is not page aligned.
func (m addrMode) direct() bool {
	switch m {
	case modeDP, modeDPX, modeDPY, modeDPInd, modeDPIndLong, modeDPXInd, modeDPIndY, modeDPIndLongY:
		return true
	}
	return false
}

type sizing uint8

const (
	sizeNone sizing = iota
	sizeM           // +1 with a 16-bit accumulator
	sizeX           // +1 with 16-bit index registers
	sizeRMW         // +2 with a 16-bit accumulator
)

// opcode is one dispatch table entry. base is the cycle count with 8-bit
// registers, D page aligned and no page crossing.
type opcode struct {
	name    string
	mode    addrMode
	base    uint8
	size    sizing
	penalty bool // Indexed read pays a cycle on page cross or 16-bit index
	exec    func(c *CPU, m addrMode)
}

// aluLayout gives the mode and base cycles for each column of the
// ORA/AND/EOR/ADC/STA/LDA/CMP/SBC opcode groups.
var aluLayout = []struct {
	low  uint8
	mode addrMode
	base uint8
}{
	{0x01, modeDPXInd, 6},
	{0x03, modeSR, 4},
	{0x05, modeDP, 3},
	{0x07, modeDPIndLong, 6},
	{0x09, modeImm, 2},
	{0x0D, modeAbs, 4},
	{0x0F, modeLong, 5},
	{0x11, modeDPIndY, 5},
	{0x12, modeDPInd, 5},
	{0x13, modeSRIndY, 7},
	{0x15, modeDPX, 4},
	{0x17, modeDPIndLongY, 6},
	{0x19, modeAbsY, 4},
	{0x1D, modeAbsX, 4},
	{0x1F, modeLongX, 5},
}

// rmwLayout covers ASL/ROL/LSR/ROR/DEC/INC memory forms.
var rmwLayout = []struct {
	low  uint8
	mode addrMode
	base uint8
}{
	{0x06, modeDP, 5},
	{0x0E, modeAbs, 6},
	{0x16, modeDPX, 6},
	{0x1E, modeAbsX, 7},
}

func indexedRead(m addrMode) bool {
	return m == modeAbsX || m == modeAbsY || m == modeDPIndY
}

func newOpcodeTable() [256]opcode {
	var t [256]opcode
	set := func(op uint8, name string, mode addrMode, base uint8, size sizing, exec func(*CPU, addrMode)) {
		t[op] = opcode{name: name, mode: mode, base: base, size: size, exec: exec}
	}
	read := func(op uint8, name string, mode addrMode, base uint8, size sizing, exec func(*CPU, addrMode)) {
		set(op, name, mode, base, size, exec)
		t[op].penalty = indexedRead(mode)
	}

	alu := []struct {
		hi   uint8
		name string
		exec func(*CPU, addrMode)
	}{
		{0x00, "ORA", (*CPU).opORA},
		{0x20, "AND", (*CPU).opAND},
		{0x40, "EOR", (*CPU).opEOR},
		{0x60, "ADC", (*CPU).opADC},
		{0xA0, "LDA", (*CPU).opLDA},
		{0xC0, "CMP", (*CPU).opCMP},
		{0xE0, "SBC", (*CPU).opSBC},
	}
	for _, g := range alu {
		for _, l := range aluLayout {
			read(g.hi|l.low, g.name, l.mode, l.base, sizeM, g.exec)
		}
	}
	for _, l := range aluLayout {
		base := l.base
		switch l.mode {
		case modeImm:
			continue
		case modeDPIndY, modeAbsY, modeAbsX:
			base++
		}
		set(0x80|l.low, "STA", l.mode, base, sizeM, (*CPU).opSTA)
	}

	rmw := []struct {
		hi   uint8
		name string
		exec func(*CPU, addrMode)
	}{
		{0x00, "ASL", (*CPU).opASL},
		{0x20, "ROL", (*CPU).opROL},
		{0x40, "LSR", (*CPU).opLSR},
		{0x60, "ROR", (*CPU).opROR},
		{0xC0, "DEC", (*CPU).opDEC},
		{0xE0, "INC", (*CPU).opINC},
	}
	for _, g := range rmw {
		for _, l := range rmwLayout {
			set(g.hi|l.low, g.name, l.mode, l.base, sizeRMW, g.exec)
		}
	}
	set(0x0A, "ASL", modeAcc, 2, sizeNone, (*CPU).opASL)
	set(0x2A, "ROL", modeAcc, 2, sizeNone, (*CPU).opROL)
	set(0x4A, "LSR", modeAcc, 2, sizeNone, (*CPU).opLSR)
	set(0x6A, "ROR", modeAcc, 2, sizeNone, (*CPU).opROR)
	set(0x1A, "INC", modeAcc, 2, sizeNone, (*CPU).opINC)
	set(0x3A, "DEC", modeAcc, 2, sizeNone, (*CPU).opDEC)
	set(0x04, "TSB", modeDP, 5, sizeRMW, (*CPU).opTSB)
	set(0x0C, "TSB", modeAbs, 6, sizeRMW, (*CPU).opTSB)
	set(0x14, "TRB", modeDP, 5, sizeRMW, (*CPU).opTRB)
	set(0x1C, "TRB", modeAbs, 6, sizeRMW, (*CPU).opTRB)

	read(0x24, "BIT", modeDP, 3, sizeM, (*CPU).opBIT)
	read(0x2C, "BIT", modeAbs, 4, sizeM, (*CPU).opBIT)
	read(0x34, "BIT", modeDPX, 4, sizeM, (*CPU).opBIT)
	read(0x3C, "BIT", modeAbsX, 4, sizeM, (*CPU).opBIT)
	read(0x89, "BIT", modeImm, 2, sizeM, (*CPU).opBIT)

	read(0xA2, "LDX", modeImm, 2, sizeX, (*CPU).opLDX)
	read(0xA6, "LDX", modeDP, 3, sizeX, (*CPU).opLDX)
	read(0xAE, "LDX", modeAbs, 4, sizeX, (*CPU).opLDX)
	read(0xB6, "LDX", modeDPY, 4, sizeX, (*CPU).opLDX)
	read(0xBE, "LDX", modeAbsY, 4, sizeX, (*CPU).opLDX)
	read(0xA0, "LDY", modeImm, 2, sizeX, (*CPU).opLDY)
	read(0xA4, "LDY", modeDP, 3, sizeX, (*CPU).opLDY)
	read(0xAC, "LDY", modeAbs, 4, sizeX, (*CPU).opLDY)
	read(0xB4, "LDY", modeDPX, 4, sizeX, (*CPU).opLDY)
	read(0xBC, "LDY", modeAbsX, 4, sizeX, (*CPU).opLDY)
	set(0x86, "STX", modeDP, 3, sizeX, (*CPU).opSTX)
	set(0x8E, "STX", modeAbs, 4, sizeX, (*CPU).opSTX)
	set(0x96, "STX", modeDPY, 4, sizeX, (*CPU).opSTX)
	set(0x84, "STY", modeDP, 3, sizeX, (*CPU).opSTY)
	set(0x8C, "STY", modeAbs, 4, sizeX, (*CPU).opSTY)
	set(0x94, "STY", modeDPX, 4, sizeX, (*CPU).opSTY)
	set(0x64, "STZ", modeDP, 3, sizeM, (*CPU).opSTZ)
	set(0x74, "STZ", modeDPX, 4, sizeM, (*CPU).opSTZ)
	set(0x9C, "STZ", modeAbs, 4, sizeM, (*CPU).opSTZ)
	set(0x9E, "STZ", modeAbsX, 5, sizeM, (*CPU).opSTZ)
	read(0xE0, "CPX", modeImm, 2, sizeX, (*CPU).opCPX)
	read(0xE4, "CPX", modeDP, 3, sizeX, (*CPU).opCPX)
	read(0xEC, "CPX", modeAbs, 4, sizeX, (*CPU).opCPX)
	read(0xC0, "CPY", modeImm, 2, sizeX, (*CPU).opCPY)
	read(0xC4, "CPY", modeDP, 3, sizeX, (*CPU).opCPY)
	read(0xCC, "CPY", modeAbs, 4, sizeX, (*CPU).opCPY)

	set(0xE8, "INX", modeImplied, 2, sizeNone, (*CPU).opINX)
	set(0xC8, "INY", modeImplied, 2, sizeNone, (*CPU).opINY)
	set(0xCA, "DEX", modeImplied, 2, sizeNone, (*CPU).opDEX)
	set(0x88, "DEY", modeImplied, 2, sizeNone, (*CPU).opDEY)

	set(0x10, "BPL", modeImplied, 2, sizeNone, (*CPU).opBPL)
	set(0x30, "BMI", modeImplied, 2, sizeNone, (*CPU).opBMI)
	set(0x50, "BVC", modeImplied, 2, sizeNone, (*CPU).opBVC)
	set(0x70, "BVS", modeImplied, 2, sizeNone, (*CPU).opBVS)
	set(0x90, "BCC", modeImplied, 2, sizeNone, (*CPU).opBCC)
	set(0xB0, "BCS", modeImplied, 2, sizeNone, (*CPU).opBCS)
	set(0xD0, "BNE", modeImplied, 2, sizeNone, (*CPU).opBNE)
	set(0xF0, "BEQ", modeImplied, 2, sizeNone, (*CPU).opBEQ)
	set(0x80, "BRA", modeImplied, 2, sizeNone, (*CPU).opBRA)
	set(0x82, "BRL", modeImplied, 4, sizeNone, (*CPU).opBRL)

	set(0x4C, "JMP", modeAbs, 3, sizeNone, (*CPU).opJMP)
	set(0x5C, "JML", modeLong, 4, sizeNone, (*CPU).opJMP)
	set(0x6C, "JMP", modeAbsInd, 5, sizeNone, (*CPU).opJMP)
	set(0x7C, "JMP", modeAbsXInd, 6, sizeNone, (*CPU).opJMP)
	set(0xDC, "JML", modeAbsIndLong, 6, sizeNone, (*CPU).opJMP)
	set(0x20, "JSR", modeAbs, 6, sizeNone, (*CPU).opJSR)
	set(0xFC, "JSR", modeAbsXInd, 8, sizeNone, (*CPU).opJSR)
	set(0x22, "JSL", modeLong, 8, sizeNone, (*CPU).opJSL)
	set(0x60, "RTS", modeImplied, 6, sizeNone, (*CPU).opRTS)
	set(0x6B, "RTL", modeImplied, 6, sizeNone, (*CPU).opRTL)
	set(0x40, "RTI", modeImplied, 6, sizeNone, (*CPU).opRTI)
	set(0x00, "BRK", modeImplied, 7, sizeNone, (*CPU).opBRK)
	set(0x02, "COP", modeImplied, 7, sizeNone, (*CPU).opCOP)

	set(0x48, "PHA", modeImplied, 3, sizeM, (*CPU).opPHA)
	set(0x68, "PLA", modeImplied, 4, sizeM, (*CPU).opPLA)
	set(0xDA, "PHX", modeImplied, 3, sizeX, (*CPU).opPHX)
	set(0xFA, "PLX", modeImplied, 4, sizeX, (*CPU).opPLX)
	set(0x5A, "PHY", modeImplied, 3, sizeX, (*CPU).opPHY)
	set(0x7A, "PLY", modeImplied, 4, sizeX, (*CPU).opPLY)
	set(0x08, "PHP", modeImplied, 3, sizeNone, (*CPU).opPHP)
	set(0x28, "PLP", modeImplied, 4, sizeNone, (*CPU).opPLP)
	set(0x8B, "PHB", modeImplied, 3, sizeNone, (*CPU).opPHB)
	set(0xAB, "PLB", modeImplied, 4, sizeNone, (*CPU).opPLB)
	set(0x0B, "PHD", modeImplied, 4, sizeNone, (*CPU).opPHD)
	set(0x2B, "PLD", modeImplied, 5, sizeNone, (*CPU).opPLD)
	set(0x4B, "PHK", modeImplied, 3, sizeNone, (*CPU).opPHK)
	set(0xF4, "PEA", modeImplied, 5, sizeNone, (*CPU).opPEA)
	set(0xD4, "PEI", modeDP, 6, sizeNone, (*CPU).opPEI)
	set(0x62, "PER", modeImplied, 6, sizeNone, (*CPU).opPER)

	set(0xAA, "TAX", modeImplied, 2, sizeNone, (*CPU).opTAX)
	set(0xA8, "TAY", modeImplied, 2, sizeNone, (*CPU).opTAY)
	set(0x8A, "TXA", modeImplied, 2, sizeNone, (*CPU).opTXA)
	set(0x98, "TYA", modeImplied, 2, sizeNone, (*CPU).opTYA)
	set(0x9B, "TXY", modeImplied, 2, sizeNone, (*CPU).opTXY)
	set(0xBB, "TYX", modeImplied, 2, sizeNone, (*CPU).opTYX)
	set(0x9A, "TXS", modeImplied, 2, sizeNone, (*CPU).opTXS)
	set(0xBA, "TSX", modeImplied, 2, sizeNone, (*CPU).opTSX)
	set(0x1B, "TCS", modeImplied, 2, sizeNone, (*CPU).opTCS)
	set(0x3B, "TSC", modeImplied, 2, sizeNone, (*CPU).opTSC)
	set(0x5B, "TCD", modeImplied, 2, sizeNone, (*CPU).opTCD)
	set(0x7B, "TDC", modeImplied, 2, sizeNone, (*CPU).opTDC)
	set(0xEB, "XBA", modeImplied, 3, sizeNone, (*CPU).opXBA)

	set(0x18, "CLC", modeImplied, 2, sizeNone, (*CPU).opCLC)
	set(0x38, "SEC", modeImplied, 2, sizeNone, (*CPU).opSEC)
	set(0x58, "CLI", modeImplied, 2, sizeNone, (*CPU).opCLI)
	set(0x78, "SEI", modeImplied, 2, sizeNone, (*CPU).opSEI)
	set(0xB8, "CLV", modeImplied, 2, sizeNone, (*CPU).opCLV)
	set(0xD8, "CLD", modeImplied, 2, sizeNone, (*CPU).opCLD)
	set(0xF8, "SED", modeImplied, 2, sizeNone, (*CPU).opSED)
	set(0xC2, "REP", modeImplied, 3, sizeNone, (*CPU).opREP)
	set(0xE2, "SEP", modeImplied, 3, sizeNone, (*CPU).opSEP)
	set(0xFB, "XCE", modeImplied, 2, sizeNone, (*CPU).opXCE)

	set(0x54, "MVN", modeImplied, 7, sizeNone, (*CPU).opMVN)
	set(0x44, "MVP", modeImplied, 7, sizeNone, (*CPU).opMVP)

	set(0xEA, "NOP", modeImplied, 2, sizeNone, (*CPU).opNOP)
	set(0x42, "WDM", modeImplied, 2, sizeNone, (*CPU).opWDM)
	set(0xCB, "WAI", modeImplied, 3, sizeNone, (*CPU).opWAI)
	set(0xDB, "STP", modeImplied, 3, sizeNone, (*CPU).opSTP)

	return t
}

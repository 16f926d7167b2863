package emu

import (
	"errors"
	"testing"
)

// runSPC executes n instructions and returns the total cycles.
func runSPC(t *testing.T, a *APU, n int) int {
	t.Helper()
	total := 0
	for i := 0; i < n; i++ {
		c, err := a.spc.Step()
		if err != nil {
			t.Fatalf("step %d: %v", i, err)
		}
		total += c
	}
	return total
}

func TestSPC700_ResetEntersIPL(t *testing.T) {
	a := NewAPU(NTSCTiming)
	if a.spc.PC != 0xFFC0 {
		t.Errorf("expected PC 0xFFC0, got 0x%04X", a.spc.PC)
	}
	if a.spc.SP != 0xEF {
		t.Errorf("expected SP 0xEF, got 0x%02X", a.spc.SP)
	}
}

func TestSPC700_MovAndADC(t *testing.T) {
	a := newTestAPU(
		0xE8, 0x05, // MOV A,#$05
		0x88, 0x03, // ADC A,#$03
		0xC4, 0x20, // MOV $20,A
	)
	cycles := runSPC(t, a, 3)
	if a.spc.A != 0x08 {
		t.Errorf("expected A=0x08, got 0x%02X", a.spc.A)
	}
	if a.ram[0x20] != 0x08 {
		t.Errorf("expected $20=0x08, got 0x%02X", a.ram[0x20])
	}
	if cycles != 2+2+4 {
		t.Errorf("expected 8 cycles, got %d", cycles)
	}
}

func TestSPC700_BranchCycles(t *testing.T) {
	a := newTestAPU(
		0xE8, 0x00, // MOV A,#0
		0xF0, 0x02, // BEQ +2
	)
	runSPC(t, a, 1)
	if c := runSPC(t, a, 1); c != 4 {
		t.Errorf("expected taken branch 4 cycles, got %d", c)
	}
	if a.spc.PC != 0x0206 {
		t.Errorf("expected PC 0x0206, got 0x%04X", a.spc.PC)
	}

	a = newTestAPU(
		0xE8, 0x01, // MOV A,#1
		0xF0, 0x02, // BEQ +2
	)
	runSPC(t, a, 1)
	if c := runSPC(t, a, 1); c != 2 {
		t.Errorf("expected untaken branch 2 cycles, got %d", c)
	}
}

func TestSPC700_MulDiv(t *testing.T) {
	a := newTestAPU(
		0x8D, 0x12, // MOV Y,#$12
		0xE8, 0x10, // MOV A,#$10
		0xCF,       // MUL YA
	)
	runSPC(t, a, 3)
	if a.spc.ya() != 0x0120 {
		t.Errorf("expected YA=0x0120, got 0x%04X", a.spc.ya())
	}

	a = newTestAPU(
		0x8D, 0x01, // MOV Y,#1
		0xE8, 0x00, // MOV A,#0
		0xCD, 0x07, // MOV X,#7
		0x9E,       // DIV YA,X
	)
	runSPC(t, a, 4)
	if a.spc.A != 36 || a.spc.Y != 4 {
		t.Errorf("expected 256/7 = 36 r4, got %d r%d", a.spc.A, a.spc.Y)
	}
}

func TestSPC700_CallRet(t *testing.T) {
	a := newTestAPU(0x3F, 0x00, 0x03) // CALL $0300
	a.ram[0x0300] = 0x6F             // RET
	runSPC(t, a, 1)
	if a.spc.PC != 0x0300 || a.spc.SP != 0xED {
		t.Fatalf("expected PC 0x0300 SP 0xED, got 0x%04X 0x%02X", a.spc.PC, a.spc.SP)
	}
	runSPC(t, a, 1)
	if a.spc.PC != 0x0203 || a.spc.SP != 0xEF {
		t.Errorf("expected PC 0x0203 SP 0xEF, got 0x%04X 0x%02X", a.spc.PC, a.spc.SP)
	}
}

func TestSPC700_PushPop(t *testing.T) {
	a := newTestAPU(
		0xE8, 0x5A, // MOV A,#$5A
		0x2D,       // PUSH A
		0xCE,       // POP X
	)
	runSPC(t, a, 3)
	if a.spc.X != 0x5A {
		t.Errorf("expected X=0x5A, got 0x%02X", a.spc.X)
	}
	if a.ram[0x01EF] != 0x5A {
		t.Errorf("expected stack byte at $01EF, got 0x%02X", a.ram[0x01EF])
	}
}

func TestSPC700_WordOps(t *testing.T) {
	a := newTestAPU(
		0x3A, 0x10, // INCW $10
		0xBA, 0x10, // MOVW YA,$10
	)
	a.ram[0x10] = 0xFF
	runSPC(t, a, 2)
	if a.ram[0x10] != 0x00 || a.ram[0x11] != 0x01 {
		t.Errorf("expected $10=0x0100, got %02X%02X", a.ram[0x11], a.ram[0x10])
	}
	if a.spc.ya() != 0x0100 {
		t.Errorf("expected YA=0x0100, got 0x%04X", a.spc.ya())
	}
}

func TestSPC700_DirectPageFlag(t *testing.T) {
	a := newTestAPU(
		0x40,       // SETP
		0xE8, 0xAA, // MOV A,#$AA
		0xC4, 0x10, // MOV $10,A
	)
	runSPC(t, a, 3)
	if a.ram[0x0110] != 0xAA {
		t.Errorf("expected write to $0110, got 0x%02X", a.ram[0x0110])
	}
	if a.ram[0x0010] != 0 {
		t.Errorf("expected $0010 untouched, got 0x%02X", a.ram[0x0010])
	}
}

func TestSPC700_DAA(t *testing.T) {
	a := newTestAPU(
		0x60,       // CLRC
		0xE8, 0x19, // MOV A,#$19
		0x88, 0x01, // ADC A,#$01
		0xDF,       // DAA
	)
	runSPC(t, a, 4)
	if a.spc.A != 0x20 {
		t.Errorf("expected BCD 0x20, got 0x%02X", a.spc.A)
	}
}

func TestSPC700_SleepHalts(t *testing.T) {
	a := newTestAPU(0xEF) // SLEEP
	runSPC(t, a, 1)
	pc := a.spc.PC
	if c := runSPC(t, a, 1); c != 2 {
		t.Errorf("expected idle step of 2 cycles, got %d", c)
	}
	if a.spc.PC != pc {
		t.Errorf("expected PC to stay at 0x%04X, got 0x%04X", pc, a.spc.PC)
	}
}

func TestSPC700_UnimplementedOpcode(t *testing.T) {
	a := newTestAPU(0x00)
	a.spc.table[0x00].exec = nil

	_, err := a.spc.Step()
	var uerr *UnimplementedOpcodeError
	if !errors.As(err, &uerr) {
		t.Fatalf("expected UnimplementedOpcodeError, got %v", err)
	}
	if uerr.CPU != "SPC700" || uerr.Opcode != 0x00 || uerr.PC != 0x0200 {
		t.Errorf("unexpected error fields: %+v", uerr)
	}
	if a.spc.PC != 0x0200 {
		t.Errorf("expected PC unchanged, got 0x%04X", a.spc.PC)
	}
}

func TestSPC700_TablesArePerInstance(t *testing.T) {
	a := newTestAPU()
	b := newTestAPU()
	a.spc.table[0xE8].exec = nil
	if b.spc.table[0xE8].exec == nil {
		t.Error("expected dispatch tables not to be shared")
	}
}

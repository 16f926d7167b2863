package emu

import (
	"errors"
	"fmt"
	"strconv"
	"strings"
	"testing"
)

func TestCPU_Reset(t *testing.T) {
	cpu, _ := newTestCPU(0xEA)
	if !cpu.E {
		t.Error("expected emulation mode after reset")
	}
	if cpu.S != 0x01FF {
		t.Errorf("expected S=0x01FF, got 0x%04X", cpu.S)
	}
	if cpu.P != 0x34 {
		t.Errorf("expected P=0x34, got 0x%02X", cpu.P)
	}
	if cpu.PC != 0x8000 {
		t.Errorf("expected PC=0x8000, got 0x%04X", cpu.PC)
	}
	if cpu.Clock() != 0 {
		t.Errorf("expected clock 0, got %d", cpu.Clock())
	}
}

// cycleReference gives every opcode's cycle count with 8-bit registers, D
// page aligned and no page crossing, then the adjustments that apply:
//
//	1  +1 with a 16-bit accumulator
//	2  +1 when the low byte of D is not zero
//	3  +1 on a page cross or with 16-bit index registers
//	4  +1 with 16-bit index registers
//	5  +2 with a 16-bit accumulator
//	6  +1 when taken, +1 more when taken across a page in emulation mode
//	7  +1 in native mode
var cycleReference = [256]string{
	"7:7", "6:12", "7:7", "4:1", "5:25", "3:12", "5:25", "6:12", "3", "2:1", "2", "4", "6:5", "4:1", "6:5", "5:1",       // 0x
	"2:6", "5:123", "5:12", "7:1", "5:25", "4:12", "6:25", "6:12", "2", "4:13", "2", "2", "6:5", "4:13", "7:5", "5:1",   // 1x
	"6", "6:12", "8", "4:1", "3:12", "3:12", "5:25", "6:12", "4", "2:1", "2", "5", "4:1", "4:1", "6:5", "5:1",           // 2x
	"2:6", "5:123", "5:12", "7:1", "4:12", "4:12", "6:25", "6:12", "2", "4:13", "2", "2", "4:13", "4:13", "7:5", "5:1",  // 3x
	"6:7", "6:12", "2", "4:1", "7", "3:12", "5:25", "6:12", "3:1", "2:1", "2", "3", "3", "4:1", "6:5", "5:1",            // 4x
	"2:6", "5:123", "5:12", "7:1", "7", "4:12", "6:25", "6:12", "2", "4:13", "3:4", "2", "4", "4:13", "7:5", "5:1",      // 5x
	"6", "6:12", "6", "4:1", "3:12", "3:12", "5:25", "6:12", "4:1", "2:1", "2", "6", "5", "4:1", "6:5", "5:1",           // 6x
	"2:6", "5:123", "5:12", "7:1", "4:12", "4:12", "6:25", "6:12", "2", "4:13", "4:4", "2", "6", "4:13", "7:5", "5:1",   // 7x
	"2:6", "6:12", "4", "4:1", "3:24", "3:12", "3:24", "6:12", "2", "2:1", "2", "3", "4:4", "4:1", "4:4", "5:1",         // 8x
	"2:6", "6:12", "5:12", "7:1", "4:24", "4:12", "4:24", "6:12", "2", "5:1", "2", "2", "4:1", "5:1", "5:1", "5:1",      // 9x
	"2:4", "6:12", "2:4", "4:1", "3:24", "3:12", "3:24", "6:12", "2", "2:1", "2", "4", "4:4", "4:1", "4:4", "5:1",       // Ax
	"2:6", "5:123", "5:12", "7:1", "4:24", "4:12", "4:24", "6:12", "2", "4:13", "2", "2", "4:34", "4:13", "4:34", "5:1", // Bx
	"2:4", "6:12", "3", "4:1", "3:24", "3:12", "5:25", "6:12", "2", "2:1", "2", "3", "4:4", "4:1", "6:5", "5:1",         // Cx
	"2:6", "5:123", "5:12", "7:1", "6:2", "4:12", "6:25", "6:12", "2", "4:13", "3:4", "3", "6", "4:13", "7:5", "5:1",    // Dx
	"2:4", "6:12", "3", "4:1", "3:24", "3:12", "5:25", "6:12", "2", "2:1", "2", "3", "4:4", "4:1", "6:5", "5:1",         // Ex
	"2:6", "5:123", "5:12", "7:1", "5", "4:12", "6:25", "6:12", "2", "4:13", "4:4", "2", "8", "4:13", "7:5", "5:1",      // Fx
}

// cycleState is one register configuration an opcode is timed under.
type cycleState struct {
	native bool
	m8, x8 bool
	dl     bool // D low byte non-zero
	cross  bool // Indexed operands and branches cross a page
}

func (s cycleState) String() string {
	mode := "emulation"
	if s.native {
		mode = fmt.Sprintf("native m8=%v x8=%v", s.m8, s.x8)
	}
	return fmt.Sprintf("%s dl=%v cross=%v", mode, s.dl, s.cross)
}

// expected applies the reference adjustments for op under s.
func (s cycleState) expected(op uint8) int {
	ref := cycleReference[op]
	base, notes, _ := strings.Cut(ref, ":")
	cycles, _ := strconv.Atoi(base)
	for _, n := range notes {
		switch n {
		case '1':
			if !s.m8 {
				cycles++
			}
		case '2':
			if s.dl {
				cycles++
			}
		case '3':
			if s.cross || !s.x8 {
				cycles++
			}
		case '4':
			if !s.x8 {
				cycles++
			}
		case '5':
			if !s.m8 {
				cycles += 2
			}
		case '6':
			// Flags after reset (N V Z C clear) take BPL BVC BCC BNE BRA.
			switch op {
			case 0x10, 0x50, 0x90, 0xD0, 0x80:
				cycles++
				if s.cross && !s.native {
					cycles++
				}
			}
		case '7':
			if s.native {
				cycles++
			}
		}
	}
	return cycles
}

func TestCPU_CycleTable(t *testing.T) {
	var states []cycleState
	widths := []struct{ native, m8, x8 bool }{
		{false, true, true},
		{true, true, true},
		{true, false, true},
		{true, true, false},
		{true, false, false},
	}
	for _, w := range widths {
		for _, dl := range []bool{false, true} {
			for _, cross := range []bool{false, true} {
				states = append(states, cycleState{native: w.native, m8: w.m8, x8: w.x8, dl: dl, cross: cross})
			}
		}
	}

	bus := newFlatBus()
	bus.mem[0xFFFC] = 0x00
	bus.mem[0xFFFD] = 0x80
	cpu := NewCPU(bus)

	for op := 0; op < 256; op++ {
		for _, s := range states {
			// Every operand byte, pointer and branch offset is fill. $20
			// with index 1 stays in its page; $E0 with index $FF crosses it
			// and branches back to $7FE2.
			fill, index := uint8(0x20), uint16(0x01)
			if s.cross {
				fill, index = 0xE0, 0xFF
			}
			for i := 0; i < 0x400; i++ {
				bus.mem[i] = fill
			}
			bus.mem[0x8000] = uint8(op)
			bus.mem[0x8001] = fill
			bus.mem[0x8002] = fill
			bus.mem[0x8003] = fill

			cpu.Reset()
			if s.native {
				nativeCPU(cpu, s.m8, s.x8)
			}
			cpu.X, cpu.Y = index, index
			if s.dl {
				cpu.D = 0x0001
			}

			master, err := cpu.Step()
			if err != nil {
				t.Fatalf("%02X %s: %v", op, cpu.table[op].name, err)
			}
			want := s.expected(uint8(op))
			if got := cpu.InstructionCycles(); got != want {
				t.Errorf("%02X %s (%v): expected %d cycles, got %d", op, cpu.table[op].name, s, want, got)
			}
			if master != want*6 {
				t.Errorf("%02X %s (%v): expected %d master cycles, got %d", op, cpu.table[op].name, s, want*6, master)
			}
		}
	}
}

func TestCPU_RTICycles(t *testing.T) {
	cpu, bus := newTestCPU(0x40)
	// Stack holds P, PCL, PCH above S.
	bus.mem[0x01FD] = 0x34
	bus.mem[0x01FE] = 0x00
	bus.mem[0x01FF] = 0x90
	cpu.S = 0x01FC
	if _, err := cpu.Step(); err != nil {
		t.Fatalf("Step: %v", err)
	}
	if cpu.InstructionCycles() != 6 {
		t.Errorf("expected 6 cycles in emulation mode, got %d", cpu.InstructionCycles())
	}
	if cpu.PC != 0x9000 {
		t.Errorf("expected PC=0x9000, got 0x%04X", cpu.PC)
	}
}

func TestCPU_MasterCyclesFollowAccessSpeed(t *testing.T) {
	cpu, bus := newTestCPU(0xAD, 0x00, 0x20, 0xEA)
	bus.speed = 8

	// LDA abs: four bus accesses, no internal cycles.
	master, _ := cpu.Step()
	if master != 32 {
		t.Errorf("expected 32 master cycles for LDA abs, got %d", master)
	}

	// NOP: one access plus one internal cycle.
	master, _ = cpu.Step()
	if master != 8+6 {
		t.Errorf("expected 14 master cycles for NOP, got %d", master)
	}
	if cpu.Clock() != 46 {
		t.Errorf("expected clock 46, got %d", cpu.Clock())
	}
}

func TestCPU_UnimplementedOpcode(t *testing.T) {
	cpu, _ := newTestCPU(0xEA)
	cpu.table[0xEA].exec = nil

	master, err := cpu.Step()
	var unimpl *UnimplementedOpcodeError
	if !errors.As(err, &unimpl) {
		t.Fatalf("expected UnimplementedOpcodeError, got %v", err)
	}
	if unimpl.Opcode != 0xEA || unimpl.PC != 0x008000 || unimpl.CPU != "65816" {
		t.Errorf("unexpected error fields: %+v", unimpl)
	}
	if master != 0 || cpu.Clock() != 0 {
		t.Errorf("expected no cycles consumed, got %d (clock %d)", master, cpu.Clock())
	}
	if cpu.PC != 0x8000 {
		t.Errorf("expected PC unchanged at 0x8000, got 0x%04X", cpu.PC)
	}
}

func TestCPU_TablesArePerInstance(t *testing.T) {
	a, _ := newTestCPU(0xEA)
	b, _ := newTestCPU(0xEA)
	a.table[0xEA].exec = nil
	if _, err := b.Step(); err != nil {
		t.Errorf("clearing one CPU's entry affected another: %v", err)
	}
}

func TestCPU_XCEAndWidths(t *testing.T) {
	// CLC; XCE; REP #$30; LDA #$1234; LDX #$5678
	cpu, _ := newTestCPU(0x18, 0xFB, 0xC2, 0x30, 0xA9, 0x34, 0x12, 0xA2, 0x78, 0x56)
	for i := 0; i < 5; i++ {
		if _, err := cpu.Step(); err != nil {
			t.Fatalf("Step %d: %v", i, err)
		}
	}
	if cpu.E {
		t.Error("expected native mode")
	}
	if cpu.A != 0x1234 {
		t.Errorf("expected A=0x1234, got 0x%04X", cpu.A)
	}
	if cpu.X != 0x5678 {
		t.Errorf("expected X=0x5678, got 0x%04X", cpu.X)
	}
}

func TestCPU_SettingXFlagClearsIndexHighBytes(t *testing.T) {
	cpu, _ := newTestCPU(0xE2, 0x10) // SEP #$10
	nativeCPU(cpu, true, false)
	cpu.X = 0x1234
	cpu.Y = 0xABCD
	cpu.Step()
	if cpu.X != 0x0034 || cpu.Y != 0x00CD {
		t.Errorf("expected X=0x0034 Y=0x00CD, got X=0x%04X Y=0x%04X", cpu.X, cpu.Y)
	}
}

func TestCPU_ADCDecimal8(t *testing.T) {
	cpu, _ := newTestCPU(0xF8, 0x18, 0xA9, 0x19, 0x69, 0x01) // SED; CLC; LDA #$19; ADC #$01
	for i := 0; i < 4; i++ {
		cpu.Step()
	}
	if uint8(cpu.A) != 0x20 {
		t.Errorf("expected 0x20, got 0x%02X", uint8(cpu.A))
	}
	if cpu.P&flagC != 0 {
		t.Error("expected carry clear")
	}
}

func TestCPU_ADCDecimal16(t *testing.T) {
	cpu, _ := newTestCPU(0xF8, 0x18, 0x69, 0x01, 0x00) // SED; CLC; ADC #$0001
	nativeCPU(cpu, false, true)
	cpu.A = 0x0999
	for i := 0; i < 3; i++ {
		cpu.Step()
	}
	if cpu.A != 0x1000 {
		t.Errorf("expected 0x1000, got 0x%04X", cpu.A)
	}
}

func TestCPU_SBCDecimal8(t *testing.T) {
	cpu, _ := newTestCPU(0xF8, 0x38, 0xA9, 0x20, 0xE9, 0x01) // SED; SEC; LDA #$20; SBC #$01
	for i := 0; i < 4; i++ {
		cpu.Step()
	}
	if uint8(cpu.A) != 0x19 {
		t.Errorf("expected 0x19, got 0x%02X", uint8(cpu.A))
	}
	if cpu.P&flagC == 0 {
		t.Error("expected carry set (no borrow)")
	}
}

func TestCPU_ADCBinaryOverflow(t *testing.T) {
	cpu, _ := newTestCPU(0x18, 0xA9, 0x7F, 0x69, 0x01) // CLC; LDA #$7F; ADC #$01
	for i := 0; i < 3; i++ {
		cpu.Step()
	}
	if uint8(cpu.A) != 0x80 {
		t.Errorf("expected 0x80, got 0x%02X", uint8(cpu.A))
	}
	if cpu.P&flagV == 0 || cpu.P&flagN == 0 {
		t.Errorf("expected V and N set, P=0x%02X", cpu.P)
	}
}

func TestCPU_NMIServicing(t *testing.T) {
	cpu, bus := newTestCPU(0xEA)
	bus.mem[0xFFFA] = 0x00
	bus.mem[0xFFFB] = 0x90
	cpu.P |= flagD
	cpu.NMI()
	cpu.Step()
	if cpu.PC != 0x9000 {
		t.Errorf("expected PC=0x9000, got 0x%04X", cpu.PC)
	}
	if cpu.P&flagI == 0 || cpu.P&flagD != 0 {
		t.Errorf("expected I set and D clear, P=0x%02X", cpu.P)
	}
	if cpu.S != 0x01FC {
		t.Errorf("expected 3 bytes pushed, S=0x%04X", cpu.S)
	}
}

func TestCPU_IRQMaskedByI(t *testing.T) {
	cpu, _ := newTestCPU(0xEA, 0xEA)
	cpu.SetIRQ(true)
	cpu.Step()
	if cpu.PC != 0x8001 {
		t.Errorf("expected masked IRQ to be ignored, PC=0x%04X", cpu.PC)
	}
}

func TestCPU_WAIWakesOnMaskedIRQ(t *testing.T) {
	cpu, _ := newTestCPU(0xCB, 0xEA) // WAI; NOP
	cpu.Step()
	cpu.Step()
	if cpu.PC != 0x8001 {
		t.Fatalf("expected CPU halted after WAI, PC=0x%04X", cpu.PC)
	}
	cpu.SetIRQ(true)
	cpu.Step() // wakes
	cpu.Step() // NOP
	if cpu.PC != 0x8002 {
		t.Errorf("expected execution to resume, PC=0x%04X", cpu.PC)
	}
}

func TestCPU_BlockMoveMVN(t *testing.T) {
	// MVN $7E,$7E with A=2 copies three bytes.
	cpu, bus := newTestCPU(0x54, 0x7E, 0x7E)
	nativeCPU(cpu, true, false)
	cpu.A = 2
	cpu.X = 0x1000
	cpu.Y = 0x2000
	copy(bus.mem[0x7E1000:], []byte{1, 2, 3})
	for i := 0; i < 3; i++ {
		cpu.Step()
	}
	for i, want := range []byte{1, 2, 3} {
		if got := bus.mem[0x7E2000+i]; got != want {
			t.Errorf("byte %d: expected %d, got %d", i, want, got)
		}
	}
	if cpu.A != 0xFFFF || cpu.PC != 0x8003 {
		t.Errorf("expected A=0xFFFF PC=0x8003, got A=0x%04X PC=0x%04X", cpu.A, cpu.PC)
	}
}

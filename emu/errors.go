package emu

import (
	"errors"
	"fmt"
)

// Load-time errors. LoadCartridge wraps these with detail; match with errors.Is.
var (
	ErrInvalidHeader     = errors.New("invalid cartridge header")
	ErrUnsupportedMapper = errors.New("unsupported cartridge mapper")
)

// UnimplementedOpcodeError is returned when a CPU fetches an opcode with no
// entry in its dispatch table. It is fatal for the session that raised it.
type UnimplementedOpcodeError struct {
	CPU    string // "65816" or "SPC700"
	Opcode uint8
	PC     uint32 // Full address of the opcode byte
}

func (e *UnimplementedOpcodeError) Error() string {
	return fmt.Sprintf("%s: unimplemented opcode 0x%02X at 0x%06X", e.CPU, e.Opcode, e.PC)
}

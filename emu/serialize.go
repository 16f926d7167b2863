package emu

import (
	"encoding/binary"
	"errors"
	"hash/crc32"
)

// Save state format constants
const (
	stateVersion    = 1
	stateMagic      = "eSNESState\x00\x00"
	stateHeaderSize = 22 // magic(12) + version(2) + romCRC(4) + dataCRC(4)
)

// statePayloadSize is measured by walking an empty session. Every field
// has a fixed width and SRAM is padded to its maximum, so the size is the
// same for every cartridge.
var statePayloadSize = func() int {
	e := &Emulator{
		cpu: &CPU{},
		bus: &Bus{},
		io:  &IO{},
		ppu: &PPU{},
		apu: &APU{spc: &SPC700{}, dsp: &DSP{}},
	}
	s := &stateCodec{}
	e.state(s)
	return s.off
}()

// SerializeSize returns the total size in bytes of a save state.
func SerializeSize() int {
	return stateHeaderSize + statePayloadSize
}

// Serialize creates a save state and returns it as a byte slice. In
// threaded mode the sound goroutine is drained first.
func (e *Emulator) Serialize() ([]byte, error) {
	if e.thread != nil {
		if err := e.thread.drain(); err != nil {
			return nil, err
		}
	}

	data := make([]byte, SerializeSize())
	copy(data[0:12], stateMagic)
	binary.LittleEndian.PutUint16(data[12:14], stateVersion)
	binary.LittleEndian.PutUint32(data[14:18], e.cart.CRC32())

	e.state(&stateCodec{data: data[stateHeaderSize:]})

	dataCRC := crc32.ChecksumIEEE(data[stateHeaderSize:])
	binary.LittleEndian.PutUint32(data[18:22], dataCRC)
	return data, nil
}

// Deserialize restores emulator state from a save state byte slice.
// Region is NOT restored - the current region setting is preserved.
// A halted session resumes.
func (e *Emulator) Deserialize(data []byte) error {
	if err := e.VerifyState(data); err != nil {
		return err
	}
	if e.thread != nil {
		if err := e.thread.drain(); err != nil {
			return err
		}
	}

	e.state(&stateCodec{data: data[stateHeaderSize:], loading: true})

	e.apu.dsp.samples = e.apu.dsp.samples[:0]
	e.apu.err = nil
	e.rawAudio = e.rawAudio[:0]
	e.audioBuffer = e.audioBuffer[:0]
	e.err = nil
	if e.thread != nil {
		e.thread.samples = e.thread.samples[:0]
		e.thread.err = nil
		e.apu.outputs = e.apu.outputs[:0]
		e.thread.syncOut()
		e.lastLine = e.ppu.Line()
	}
	return nil
}

// VerifyState checks if a save state is valid without loading it.
func (e *Emulator) VerifyState(data []byte) error {
	if len(data) < SerializeSize() {
		return errors.New("save state too short")
	}

	if string(data[0:12]) != stateMagic {
		return errors.New("invalid save state magic")
	}

	version := binary.LittleEndian.Uint16(data[12:14])
	if version > stateVersion {
		return errors.New("unsupported save state version")
	}

	romCRC := binary.LittleEndian.Uint32(data[14:18])
	if romCRC != e.cart.CRC32() {
		return errors.New("save state is for a different ROM")
	}

	expectedCRC := binary.LittleEndian.Uint32(data[18:22])
	actualCRC := crc32.ChecksumIEEE(data[stateHeaderSize:SerializeSize()])
	if expectedCRC != actualCRC {
		return errors.New("save state data is corrupted")
	}

	return nil
}

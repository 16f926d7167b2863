package emu

import (
	"encoding/binary"
	"fmt"
)

// Internal header offsets relative to the header base ($7FC0 or $FFC0).
const (
	hdrTitle       = 0x00
	hdrTitleLen    = 21
	hdrMapMode     = 0x15
	hdrChipset     = 0x16
	hdrROMSize     = 0x17
	hdrRAMSize     = 0x18
	hdrCountry     = 0x19
	hdrDeveloper   = 0x1A
	hdrVersion     = 0x1B
	hdrComplement  = 0x1C
	hdrChecksum    = 0x1E
	hdrResetVector = 0x3C
	hdrSize        = 0x40

	loROMHeaderBase = 0x7FC0
	hiROMHeaderBase = 0xFFC0
)

// Map type values from the low nibble of the map mode byte.
const (
	mapTypeLoROM   = 0x0
	mapTypeHiROM   = 0x1
	mapTypeSDD1    = 0x2
	mapTypeSA1     = 0x3
	mapTypeExHiROM = 0x5
	mapTypeSPC7110 = 0xA
)

// validMapMode reports whether b looks like a map mode byte: $20 base,
// optional FastROM bit, and a known map type.
func validMapMode(b uint8) bool {
	if b&0xE0 != 0x20 {
		return false
	}
	switch b & 0x0F {
	case mapTypeLoROM, mapTypeHiROM, mapTypeSDD1, mapTypeSA1, mapTypeExHiROM, mapTypeSPC7110:
		return true
	}
	return false
}

// scoreHeader rates how plausible the header at base is. Returns -1 when
// the location cannot hold a header at all.
func scoreHeader(rom []byte, base int) int {
	if base+hdrSize > len(rom) {
		return -1
	}
	h := rom[base : base+hdrSize]
	score := 0
	for _, c := range h[hdrTitle : hdrTitle+hdrTitleLen] {
		if c >= 0x20 && c < 0x7F {
			score += 2
		}
	}
	mode := h[hdrMapMode]
	if validMapMode(mode) {
		score += 24
		// A header at $7FC0 claiming LoROM (or $FFC0 claiming HiROM) is
		// more likely genuine than a mismatched one.
		if (base == loROMHeaderBase) == (mode&0x0F != mapTypeHiROM) {
			score += 16
		}
	}
	if h[hdrCountry] <= 20 {
		score += 10
	}
	complement := binary.LittleEndian.Uint16(h[hdrComplement:])
	checksum := binary.LittleEndian.Uint16(h[hdrChecksum:])
	if complement^checksum == 0xFFFF {
		score += 32
	}
	if binary.LittleEndian.Uint16(h[hdrResetVector:]) >= 0x8000 {
		score += 8
	}
	return score
}

// ValidateChecksum verifies the header checksum at base against the 16-bit
// sum of every byte in the (mirrored) ROM image.
func ValidateChecksum(rom []byte, base int) error {
	if base+hdrSize > len(rom) {
		return fmt.Errorf("ROM too short to validate checksum (%d bytes)", len(rom))
	}
	expected := binary.LittleEndian.Uint16(rom[base+hdrChecksum:])

	var computed uint16
	for _, b := range rom {
		computed += uint16(b)
	}
	if computed != expected {
		return fmt.Errorf("checksum mismatch: header=%04X computed=%04X", expected, computed)
	}
	return nil
}

package emu

import (
	"encoding/binary"
	"fmt"
	"hash/crc32"
	"strings"
)

const (
	copierHeaderSize = 0x200
	minROMSize       = 0x8000
	maxROMSize       = 0x600000 // 6MB
	maxSRAMSize      = 0x20000  // 128KB
)

// MapMode selects how cartridge addresses are laid into the 24-bit space.
type MapMode int

const (
	MapLoROM MapMode = iota
	MapHiROM
)

func (m MapMode) String() string {
	if m == MapHiROM {
		return "HiROM"
	}
	return "LoROM"
}

// Header holds the parsed internal cartridge header.
type Header struct {
	Title       string
	MapByte     uint8
	Chipset     uint8
	ROMSize     int // Declared size in bytes
	RAMSize     int // Declared SRAM size in bytes, 0 when absent
	Country     uint8
	Developer   uint8
	Version     uint8
	Complement  uint16
	Checksum    uint16
	ResetVector uint16
}

// Cartridge is a loaded, validated cartridge image. It is immutable after
// LoadCartridge returns; SRAM lives on the bus.
type Cartridge struct {
	Header  Header
	Mapping MapMode
	FastROM bool

	rom        []byte // Mirrored to a power-of-two size
	headerBase int
	crc        uint32
}

// LoadCartridge parses a cartridge image, selects the mapping mode and
// validates that the mapper is supported.
func LoadCartridge(image []byte) (*Cartridge, error) {
	if len(image)%0x400 == copierHeaderSize {
		image = image[copierHeaderSize:]
	}
	if len(image) < minROMSize {
		return nil, fmt.Errorf("%w: image is %d bytes, need at least %d", ErrInvalidHeader, len(image), minROMSize)
	}
	if len(image) > maxROMSize {
		return nil, fmt.Errorf("%w: image is %d bytes, max %d", ErrInvalidHeader, len(image), maxROMSize)
	}

	base := -1
	best := -1
	for _, candidate := range []int{loROMHeaderBase, hiROMHeaderBase} {
		score := scoreHeader(image, candidate)
		if score < 0 || !validMapMode(image[candidate+hdrMapMode]) {
			continue
		}
		if score > best {
			best = score
			base = candidate
		}
	}
	if base < 0 {
		return nil, fmt.Errorf("%w: no valid map mode byte at $7FD5 or $FFD5", ErrInvalidHeader)
	}

	h := parseHeader(image[base : base+hdrSize])

	var mapping MapMode
	switch h.MapByte & 0x0F {
	case mapTypeLoROM:
		mapping = MapLoROM
	case mapTypeHiROM:
		mapping = MapHiROM
	default:
		return nil, fmt.Errorf("%w: map mode 0x%02X", ErrUnsupportedMapper, h.MapByte)
	}
	if h.Chipset&0x0F >= 3 {
		return nil, fmt.Errorf("%w: coprocessor chipset 0x%02X", ErrUnsupportedMapper, h.Chipset)
	}

	return &Cartridge{
		Header:     h,
		Mapping:    mapping,
		FastROM:    h.MapByte&0x10 != 0,
		rom:        mirrorROM(image),
		headerBase: base,
		crc:        crc32.ChecksumIEEE(image),
	}, nil
}

func parseHeader(h []byte) Header {
	title := strings.TrimRight(string(h[hdrTitle:hdrTitle+hdrTitleLen]), " \x00")
	hdr := Header{
		Title:       title,
		MapByte:     h[hdrMapMode],
		Chipset:     h[hdrChipset],
		Country:     h[hdrCountry],
		Developer:   h[hdrDeveloper],
		Version:     h[hdrVersion],
		Complement:  binary.LittleEndian.Uint16(h[hdrComplement:]),
		Checksum:    binary.LittleEndian.Uint16(h[hdrChecksum:]),
		ResetVector: binary.LittleEndian.Uint16(h[hdrResetVector:]),
	}
	if n := h[hdrROMSize]; n < 16 {
		hdr.ROMSize = 0x400 << n
	}
	// Chipset low nibble 1 or 2 declares RAM (2 = battery backed).
	if chips := h[hdrChipset] & 0x0F; chips == 1 || chips == 2 {
		if n := h[hdrRAMSize]; n > 0 && n <= 7 {
			hdr.RAMSize = 0x400 << n
		}
	}
	return hdr
}

// mirrorROM pads rom to the next power of two. A non-power-of-two tail is
// mirrored repeatedly into the upper part, as the cartridge address
// decoder does.
func mirrorROM(rom []byte) []byte {
	size := 1
	for size < len(rom) {
		size <<= 1
	}
	if size == len(rom) {
		return rom
	}
	out := make([]byte, size)
	copy(out, rom)
	base := size >> 1
	tail := mirrorROM(rom[base:])
	for off := base; off < size; off += len(tail) {
		copy(out[off:], tail)
	}
	return out
}

// Region returns the display timing region declared by the header.
func (c *Cartridge) Region() Region {
	return regionForCountry(c.Header.Country)
}

// Title returns the header title with padding removed.
func (c *Cartridge) Title() string {
	return c.Header.Title
}

// HasSRAM reports whether the header declares save RAM.
func (c *Cartridge) HasSRAM() bool {
	return c.Header.RAMSize > 0
}

// CRC32 returns the checksum of the image with any copier header removed.
func (c *Cartridge) CRC32() uint32 {
	return c.crc
}

// ChecksumError reports a header checksum mismatch. Loading does not
// fail on it; frontends may log it as a warning.
func (c *Cartridge) ChecksumError() error {
	return ValidateChecksum(c.rom, c.headerBase)
}

// romOffset translates a 24-bit CPU address inside ROM space to an offset
// in the mirrored image.
func (c *Cartridge) romOffset(bank uint8, addr uint16) uint32 {
	var off uint32
	if c.Mapping == MapHiROM {
		off = uint32(bank&0x3F)<<16 | uint32(addr)
	} else {
		off = uint32(bank&0x7F)<<15 | uint32(addr&0x7FFF)
	}
	return off & uint32(len(c.rom)-1)
}

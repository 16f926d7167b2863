package emu

import (
	"encoding/binary"
	"testing"
)

// flatBus is a 16MB RAM with a uniform access speed, for CPU tests.
type flatBus struct {
	mem   []byte
	speed int
}

func newFlatBus() *flatBus {
	return &flatBus{mem: make([]byte, 1<<24), speed: 6}
}

func (b *flatBus) Read(addr uint32) uint8     { return b.mem[addr&0xFFFFFF] }
func (b *flatBus) Write(addr uint32, v uint8) { b.mem[addr&0xFFFFFF] = v }
func (b *flatBus) Speed(addr uint32) int      { return b.speed }

// newTestCPU returns a CPU in emulation mode with program placed at $00:8000.
func newTestCPU(program ...byte) (*CPU, *flatBus) {
	bus := newFlatBus()
	bus.mem[0xFFFC] = 0x00
	bus.mem[0xFFFD] = 0x80
	copy(bus.mem[0x8000:], program)
	cpu := NewCPU(bus)
	cpu.Reset()
	return cpu, bus
}

// nativeCPU switches a test CPU to native mode with the given M/X widths
// without executing instructions.
func nativeCPU(c *CPU, m8, x8 bool) {
	c.E = false
	c.P &^= flagM | flagX
	if m8 {
		c.P |= flagM
	}
	if x8 {
		c.P |= flagX
	}
	c.fixWidths()
}

// makeTestCart builds a cartridge image of size bytes with a valid internal
// header. ramShift > 0 declares 0x400<<ramShift bytes of battery SRAM. The
// reset vector points at $8000 and the NMI/IRQ vectors at $8100.
func makeTestCart(mode MapMode, size int, ramShift uint8) []byte {
	rom := make([]byte, size)
	base := loROMHeaderBase
	mapByte := uint8(0x20)
	if mode == MapHiROM {
		base = hiROMHeaderBase
		mapByte = 0x21
	}
	h := rom[base : base+hdrSize]
	copy(h[hdrTitle:], "TEST CARTRIDGE       ")
	h[hdrMapMode] = mapByte
	h[hdrROMSize] = 8
	h[hdrCountry] = 1
	if ramShift > 0 {
		h[hdrChipset] = 0x02
		h[hdrRAMSize] = ramShift
	}
	binary.LittleEndian.PutUint16(h[0x2A:], 0x8100) // Native NMI
	binary.LittleEndian.PutUint16(h[0x2E:], 0x8100) // Native IRQ
	binary.LittleEndian.PutUint16(h[0x3A:], 0x8100) // Emulation NMI
	binary.LittleEndian.PutUint16(h[hdrResetVector:], 0x8000)
	binary.LittleEndian.PutUint16(h[0x3E:], 0x8100) // Emulation IRQ
	fixChecksum(rom, base)
	return rom
}

// fixChecksum rewrites the header checksum pair to match the image.
func fixChecksum(rom []byte, base int) {
	binary.LittleEndian.PutUint16(rom[base+hdrComplement:], 0xFFFF)
	binary.LittleEndian.PutUint16(rom[base+hdrChecksum:], 0x0000)
	var sum uint16
	for _, b := range rom {
		sum += uint16(b)
	}
	binary.LittleEndian.PutUint16(rom[base+hdrComplement:], ^sum)
	binary.LittleEndian.PutUint16(rom[base+hdrChecksum:], sum)
}

// romCodeOffset is where CPU address $00:8000 lands in the image.
func romCodeOffset(mode MapMode) int {
	if mode == MapHiROM {
		return 0x8000
	}
	return 0
}

// buildProgramROM returns a 32KB LoROM image that starts executing program
// at $8000. The interrupt vectors point at an RTI at $8100.
func buildProgramROM(program []byte) []byte {
	rom := makeTestCart(MapLoROM, 0x8000, 0)
	copy(rom, program)
	rom[0x100] = 0x40 // RTI
	fixChecksum(rom, loROMHeaderBase)
	return rom
}

// createTestEmulator powers on a session running program.
func createTestEmulator(t *testing.T, program []byte) *Emulator {
	t.Helper()
	e, err := NewEmulator(buildProgramROM(program), RegionNTSC)
	if err != nil {
		t.Fatalf("NewEmulator: %v", err)
	}
	t.Cleanup(e.Close)
	return e
}

// newTestBus returns a bus over a LoROM or HiROM test cartridge.
func newTestBus(t *testing.T, mode MapMode, ramShift uint8) (*Bus, []byte) {
	t.Helper()
	size := 0x8000
	if mode == MapHiROM {
		size = 0x10000
	}
	rom := makeTestCart(mode, size, ramShift)
	cart, err := LoadCartridge(rom)
	if err != nil {
		t.Fatalf("LoadCartridge: %v", err)
	}
	ppu := NewPPU(false)
	io := NewIO(ppu, func() {}, func(bool) {})
	apu := NewAPU(NTSCTiming)
	bus := NewBus(cart, ppu, io, apu)
	return bus, rom
}

// newTestAPU returns an APU with the IPL ROM disabled and program loaded
// at $0200, ready to run from there.
func newTestAPU(program ...byte) *APU {
	a := NewAPU(NTSCTiming)
	a.control = 0x00
	copy(a.ram[0x200:], program)
	a.spc.PC = 0x0200
	return a
}

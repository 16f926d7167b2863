package emu

const (
	wramSize  = 0x20000 // 128KB work RAM
	pageShift = 13      // 8KB pages
	pageCount = 1 << (24 - pageShift)
	pageMask  = 1<<pageShift - 1
)

// memRegion is a backing store that pages map into.
type memRegion struct {
	name     string
	data     []byte
	mask     uint32
	writable bool
}

// page is one 8KB slot of the 24-bit address space. A page either points
// into a region, is routed to the I/O dispatcher, or is unmapped (open bus).
type page struct {
	region *memRegion
	offset uint32
	io     bool
}

// apuPorts is the CPU side of the four sound-unit mailbox ports. at is the
// master cycle of the access.
type apuPorts interface {
	ReadPort(port int, at uint64) uint8
	WritePort(port int, v uint8, at uint64)
}

// Bus implements CPUBus with the SNES memory map.
//
// Address map (system banks $00-$3F and $80-$BF):
//
//	$0000-$1FFF  WRAM mirror (first 8KB)
//	$2100-$213F  PPU registers
//	$2140-$217F  APU mailbox ports (mirrored every 4)
//	$2180-$2183  WRAM data port
//	$4016-$4017  Serial joypads
//	$4200-$421F  CPU internal registers
//	$4300-$437F  DMA channels
//	$8000-$FFFF  ROM (LoROM), $0000-$FFFF in $40+ (HiROM)
//
// Banks $7E-$7F hold all 128KB of WRAM. SRAM sits at $70-$7D/$F0-$FF
// $0000-$7FFF for LoROM and $20-$3F/$A0-$BF $6000-$7FFF for HiROM.
type Bus struct {
	cart  *Cartridge
	wram  [wramSize]byte
	sram  []byte
	pages [pageCount]page

	mdr uint8 // Open bus: last byte driven on the data bus

	ppu  *PPU
	io   *IO
	apu  apuPorts
	cpu  *CPU
	beam func(at uint64) // Brings the PPU up to an access; nil in bus-only tests

	dma    [8]dmaChannel
	hdmaen uint8
	stall  int // DMA master cycles not yet billed to the CPU

	wramAddr uint32 // $2181-$2183
}

// NewBus creates a bus for cart. apu may be replaced later with SetAPU.
func NewBus(cart *Cartridge, ppu *PPU, io *IO, apu apuPorts) *Bus {
	b := &Bus{
		cart: cart,
		ppu:  ppu,
		io:   io,
		apu:  apu,
	}
	if cart.HasSRAM() {
		size := cart.Header.RAMSize
		if size > maxSRAMSize {
			size = maxSRAMSize
		}
		b.sram = make([]byte, size)
	}
	b.buildPageTable()
	return b
}

// SetCPU sets the CPU reference used to timestamp port accesses.
// Called after CPU creation due to circular construction dependency.
func (b *Bus) SetCPU(cpu *CPU) {
	b.cpu = cpu
}

// SetBeamSync installs the hook that runs the PPU up to master cycle at
// before a PPU or CPU timing register is touched.
func (b *Bus) SetBeamSync(fn func(at uint64)) {
	b.beam = fn
}

func (b *Bus) syncBeam(at uint64) {
	if b.beam != nil {
		b.beam(at)
	}
}

// SetAPU swaps the mailbox port implementation (direct or threaded).
func (b *Bus) SetAPU(apu apuPorts) {
	b.apu = apu
}

func (b *Bus) buildPageTable() {
	wram := &memRegion{name: "WRAM", data: b.wram[:], mask: wramSize - 1, writable: true}
	rom := &memRegion{name: "ROM", data: b.cart.rom, mask: uint32(len(b.cart.rom) - 1)}
	var sram *memRegion
	if len(b.sram) > 0 {
		sram = &memRegion{name: "SRAM", data: b.sram, mask: uint32(len(b.sram) - 1), writable: true}
	}

	for bank := 0; bank < 256; bank++ {
		system := bank < 0x40 || (bank >= 0x80 && bank < 0xC0)
		for p := 0; p < 8; p++ {
			addr := uint16(p << pageShift)
			pg := &b.pages[bank<<3|p]
			switch {
			case bank == 0x7E || bank == 0x7F:
				pg.region = wram
				pg.offset = uint32(bank&1)<<16 | uint32(addr)
			case system && p == 0:
				pg.region = wram
			case system && (p == 1 || p == 2):
				pg.io = true
			case b.cart.Mapping == MapHiROM:
				b.mapHiROM(pg, uint8(bank), addr, system, rom, sram)
			default:
				b.mapLoROM(pg, uint8(bank), addr, system, rom, sram)
			}
		}
	}
}

func (b *Bus) mapLoROM(pg *page, bank uint8, addr uint16, system bool, rom, sram *memRegion) {
	if addr >= 0x8000 {
		pg.region = rom
		pg.offset = b.cart.romOffset(bank, addr)
		return
	}
	lo := bank & 0x7F
	if !system && lo >= 0x70 && sram != nil && (bank < 0x7E || bank >= 0xF0) {
		pg.region = sram
		pg.offset = uint32(lo&0x0F)<<15 | uint32(addr)
	}
}

func (b *Bus) mapHiROM(pg *page, bank uint8, addr uint16, system bool, rom, sram *memRegion) {
	if !system || addr >= 0x8000 {
		pg.region = rom
		pg.offset = b.cart.romOffset(bank, addr)
		return
	}
	if addr == 0x6000 && bank&0x7F >= 0x20 && sram != nil {
		pg.region = sram
		pg.offset = uint32(bank&0x1F) << pageShift
	}
}

// Speed implements CPUBus.
func (b *Bus) Speed(addr uint32) int {
	bank := uint8(addr >> 16)
	off := uint16(addr)
	if bank&0x40 != 0 {
		if bank >= 0xC0 && b.io.fastROM() {
			return 6
		}
		return 8
	}
	switch {
	case off < 0x2000:
		return 8
	case off < 0x4000:
		return 6
	case off < 0x4200:
		return 12
	case off < 0x6000:
		return 6
	case off < 0x8000:
		return 8
	case bank >= 0x80 && b.io.fastROM():
		return 6
	}
	return 8
}

// Read implements CPUBus.
func (b *Bus) Read(addr uint32) uint8 {
	addr &= 0xFFFFFF
	pg := &b.pages[addr>>pageShift]
	switch {
	case pg.io:
		if v, ok := b.readIO(uint16(addr)); ok {
			b.mdr = v
		}
	case pg.region != nil:
		b.mdr = pg.region.data[(pg.offset+addr&pageMask)&pg.region.mask]
	}
	return b.mdr
}

// Write implements CPUBus.
func (b *Bus) Write(addr uint32, v uint8) {
	addr &= 0xFFFFFF
	b.mdr = v
	pg := &b.pages[addr>>pageShift]
	switch {
	case pg.io:
		b.writeIO(uint16(addr), v)
	case pg.region != nil && pg.region.writable:
		pg.region.data[(pg.offset+addr&pageMask)&pg.region.mask] = v
	}
}

// OpenBus returns the last value driven on the data bus.
func (b *Bus) OpenBus() uint8 {
	return b.mdr
}

// now is the master cycle of the current CPU access.
func (b *Bus) now() uint64 {
	if b.cpu == nil {
		return 0
	}
	return b.cpu.Clock()
}

// TakeStall returns and clears the DMA cycles accumulated since the last call.
func (b *Bus) TakeStall() int {
	s := b.stall
	b.stall = 0
	return s
}

func (b *Bus) readIO(addr uint16) (uint8, bool) {
	switch {
	case addr >= 0x2100 && addr < 0x2200:
		return b.readB(uint8(addr), b.now())
	case addr == 0x4016 || addr == 0x4017:
		return b.io.readSerial(int(addr&1), b.mdr), true
	case addr >= 0x4200 && addr < 0x4220:
		b.syncBeam(b.now())
		return b.io.Read(addr, b.mdr)
	case addr >= 0x4300 && addr < 0x4380:
		return b.readDMA(addr)
	}
	return 0, false
}

func (b *Bus) writeIO(addr uint16, v uint8) {
	switch {
	case addr >= 0x2100 && addr < 0x2200:
		b.writeB(uint8(addr), v, b.now())
	case addr == 0x4016:
		b.io.writeStrobe(v)
	case addr == 0x420B:
		b.stall += b.runDMA(v, b.now())
	case addr == 0x420C:
		b.hdmaen = v
	case addr >= 0x4200 && addr < 0x4220:
		b.syncBeam(b.now())
		b.io.Write(addr, v)
	case addr >= 0x4300 && addr < 0x4380:
		b.writeDMA(addr, v)
	}
}

// readB reads B-bus register $21xx at master cycle at. DMA passes the
// cycle of each transferred byte.
func (b *Bus) readB(reg uint8, at uint64) (uint8, bool) {
	switch {
	case reg < 0x40:
		b.syncBeam(at)
		return b.ppu.ReadRegister(reg)
	case reg < 0x80:
		return b.apu.ReadPort(int(reg&3), at), true
	case reg == 0x80:
		v := b.wram[b.wramAddr]
		b.wramAddr = (b.wramAddr + 1) & (wramSize - 1)
		return v, true
	}
	return 0, false
}

func (b *Bus) writeB(reg uint8, v uint8, at uint64) {
	switch {
	case reg < 0x40:
		b.syncBeam(at)
		b.ppu.WriteRegister(reg, v)
	case reg < 0x80:
		b.apu.WritePort(int(reg&3), v, at)
	case reg == 0x80:
		b.wram[b.wramAddr] = v
		b.wramAddr = (b.wramAddr + 1) & (wramSize - 1)
	case reg == 0x81:
		b.wramAddr = b.wramAddr&0x1FF00 | uint32(v)
	case reg == 0x82:
		b.wramAddr = b.wramAddr&0x100FF | uint32(v)<<8
	case reg == 0x83:
		b.wramAddr = b.wramAddr&0x0FFFF | uint32(v&1)<<16
	}
}

// HasSRAM returns true if the cartridge has save RAM.
func (b *Bus) HasSRAM() bool {
	return len(b.sram) > 0
}

// GetSRAM returns a copy of the SRAM contents.
func (b *Bus) GetSRAM() []byte {
	if len(b.sram) == 0 {
		return nil
	}
	out := make([]byte, len(b.sram))
	copy(out, b.sram)
	return out
}

// SetSRAM loads SRAM contents. Extra bytes are ignored.
func (b *Bus) SetSRAM(data []byte) {
	copy(b.sram, data)
}

// resetState clears RAM and bus latches for a power cycle. SRAM survives.
func (b *Bus) resetState() {
	b.wram = [wramSize]byte{}
	b.mdr = 0
	b.stall = 0
	b.wramAddr = 0
	b.hdmaen = 0
	b.dma = [8]dmaChannel{}
	for i := range b.dma {
		b.dma[i].reset()
	}
}

// Peek reads addr without side effects, for debuggers. I/O pages return
// the open bus value.
func (b *Bus) Peek(addr uint32) uint8 {
	addr &= 0xFFFFFF
	pg := &b.pages[addr>>pageShift]
	if pg.region == nil {
		return b.mdr
	}
	return pg.region.data[(pg.offset+addr&pageMask)&pg.region.mask]
}

// Poke writes addr bypassing I/O and write protection except for I/O pages.
func (b *Bus) Poke(addr uint32, v uint8) {
	addr &= 0xFFFFFF
	pg := &b.pages[addr>>pageShift]
	if pg.region == nil {
		return
	}
	pg.region.data[(pg.offset+addr&pageMask)&pg.region.mask] = v
}

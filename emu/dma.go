package emu

// DMA timing in master cycles.
const (
	dmaByteCycles    = 8
	dmaChannelCycles = 8
	dmaOverhead      = 18
)

// dmaPatterns lists the B-bus register offsets for each transfer unit of
// DMAPx modes 0-7.
var dmaPatterns = [8][]uint8{
	{0},
	{0, 1},
	{0, 0},
	{0, 0, 1, 1},
	{0, 1, 2, 3},
	{0, 1, 0, 1},
	{0, 0},
	{0, 0, 1, 1},
}

// dmaChannel is one of the eight $43x0-$43xF register sets.
type dmaChannel struct {
	control   uint8  // DMAPx
	bAddr     uint8  // BBADx
	aAddr     uint16 // A1TxL/H
	aBank     uint8  // A1Bx
	count     uint16 // DASxL/H, HDMA indirect address
	indBank   uint8  // DASBx
	tableAddr uint16 // A2AxL/H
	lineCount uint8  // NLTRx
	unused    uint8  // $43xB/$43xF

	hdmaTransfer bool
	hdmaDone     bool
}

func (ch *dmaChannel) reset() {
	*ch = dmaChannel{control: 0xFF, bAddr: 0xFF, aAddr: 0xFFFF, aBank: 0xFF,
		count: 0xFFFF, indBank: 0xFF, tableAddr: 0xFFFF, lineCount: 0xFF, unused: 0xFF}
}

func (ch *dmaChannel) toA() bool     { return ch.control&0x80 != 0 }
func (ch *dmaChannel) indirect() bool { return ch.control&0x40 != 0 }
func (ch *dmaChannel) pattern() []uint8 {
	return dmaPatterns[ch.control&7]
}

func (b *Bus) readDMA(addr uint16) (uint8, bool) {
	ch := &b.dma[addr>>4&7]
	switch addr & 0x0F {
	case 0x0:
		return ch.control, true
	case 0x1:
		return ch.bAddr, true
	case 0x2:
		return uint8(ch.aAddr), true
	case 0x3:
		return uint8(ch.aAddr >> 8), true
	case 0x4:
		return ch.aBank, true
	case 0x5:
		return uint8(ch.count), true
	case 0x6:
		return uint8(ch.count >> 8), true
	case 0x7:
		return ch.indBank, true
	case 0x8:
		return uint8(ch.tableAddr), true
	case 0x9:
		return uint8(ch.tableAddr >> 8), true
	case 0xA:
		return ch.lineCount, true
	case 0xB, 0xF:
		return ch.unused, true
	}
	return 0, false
}

func (b *Bus) writeDMA(addr uint16, v uint8) {
	ch := &b.dma[addr>>4&7]
	switch addr & 0x0F {
	case 0x0:
		ch.control = v
	case 0x1:
		ch.bAddr = v
	case 0x2:
		ch.aAddr = ch.aAddr&0xFF00 | uint16(v)
	case 0x3:
		ch.aAddr = ch.aAddr&0x00FF | uint16(v)<<8
	case 0x4:
		ch.aBank = v
	case 0x5:
		ch.count = ch.count&0xFF00 | uint16(v)
	case 0x6:
		ch.count = ch.count&0x00FF | uint16(v)<<8
	case 0x7:
		ch.indBank = v
	case 0x8:
		ch.tableAddr = ch.tableAddr&0xFF00 | uint16(v)
	case 0x9:
		ch.tableAddr = ch.tableAddr&0x00FF | uint16(v)<<8
	case 0xA:
		ch.lineCount = v
	case 0xB, 0xF:
		ch.unused = v
	}
}

// readA reads the A bus for DMA. The A bus cannot reach B-bus or DMA
// registers, so those return open bus.
func (b *Bus) readA(addr uint32) uint8 {
	if b.dmaBlocked(addr) {
		return b.mdr
	}
	return b.Read(addr)
}

func (b *Bus) writeA(addr uint32, v uint8) {
	if b.dmaBlocked(addr) {
		return
	}
	b.Write(addr, v)
}

func (b *Bus) dmaBlocked(addr uint32) bool {
	if !b.pages[addr>>pageShift&(pageCount-1)].io {
		return false
	}
	off := uint16(addr)
	return off&0xFF00 == 0x2100 || (off >= 0x4300 && off < 0x4380) || off == 0x420B || off == 0x420C
}

// transfer moves one byte between the A bus and B-bus register bReg.
func (b *Bus) transfer(ch *dmaChannel, aAddr uint32, bReg uint8, at uint64) {
	if ch.toA() {
		v, ok := b.readB(bReg, at)
		if !ok {
			v = b.mdr
		}
		b.mdr = v
		b.writeA(aAddr, v)
		return
	}
	v := b.readA(aAddr)
	b.writeB(bReg, v, at)
}

// runDMA performs general-purpose DMA on every channel in mask, lowest
// first, and returns the master cycles the CPU is stalled. A byte count of
// zero transfers 65536 bytes.
func (b *Bus) runDMA(mask uint8, at uint64) int {
	if mask == 0 {
		return 0
	}
	cycles := dmaOverhead
	for i := range b.dma {
		if mask&(1<<i) == 0 {
			continue
		}
		ch := &b.dma[i]
		cycles += dmaChannelCycles
		pattern := ch.pattern()
		n := int(ch.count)
		if n == 0 {
			n = 0x10000
		}
		for k := 0; k < n; k++ {
			aAddr := uint32(ch.aBank)<<16 | uint32(ch.aAddr)
			b.transfer(ch, aAddr, ch.bAddr+pattern[k%len(pattern)], at+uint64(cycles))
			switch ch.control >> 3 & 3 {
			case 0:
				ch.aAddr++
			case 2:
				ch.aAddr--
			}
			cycles += dmaByteCycles
		}
		ch.count = 0
	}
	return cycles
}

// hdmaInit reloads every enabled HDMA channel at the top of the frame.
func (b *Bus) hdmaInit() int {
	for i := range b.dma {
		b.dma[i].hdmaDone = false
		b.dma[i].hdmaTransfer = false
	}
	if b.hdmaen == 0 {
		return 0
	}
	cycles := dmaOverhead
	for i := range b.dma {
		if b.hdmaen&(1<<i) == 0 {
			continue
		}
		ch := &b.dma[i]
		ch.tableAddr = ch.aAddr
		cycles += dmaChannelCycles + b.hdmaLoad(ch)
	}
	return cycles
}

// hdmaLoad fetches the next line-count entry (and indirect address) from
// the channel's table.
func (b *Bus) hdmaLoad(ch *dmaChannel) int {
	bank := uint32(ch.aBank) << 16
	ch.lineCount = b.readA(bank | uint32(ch.tableAddr))
	ch.tableAddr++
	cycles := dmaByteCycles
	if ch.lineCount == 0 {
		ch.hdmaDone = true
		ch.hdmaTransfer = false
		return cycles
	}
	if ch.indirect() {
		lo := uint16(b.readA(bank | uint32(ch.tableAddr)))
		hi := uint16(b.readA(bank | uint32(ch.tableAddr+1)))
		ch.tableAddr += 2
		ch.count = hi<<8 | lo
		cycles += 2 * dmaByteCycles
	}
	ch.hdmaTransfer = true
	return cycles
}

// hdmaLine runs one scanline of HDMA for the enabled, unfinished channels.
// at is the master cycle the transfer starts.
func (b *Bus) hdmaLine(at uint64) int {
	active := false
	for i := range b.dma {
		if b.hdmaen&(1<<i) != 0 && !b.dma[i].hdmaDone {
			active = true
			break
		}
	}
	if !active {
		return 0
	}
	cycles := dmaOverhead
	for i := range b.dma {
		ch := &b.dma[i]
		if b.hdmaen&(1<<i) == 0 || ch.hdmaDone {
			continue
		}
		cycles += dmaChannelCycles
		if ch.hdmaTransfer {
			for _, off := range ch.pattern() {
				var aAddr uint32
				if ch.indirect() {
					aAddr = uint32(ch.indBank)<<16 | uint32(ch.count)
					ch.count++
				} else {
					aAddr = uint32(ch.aBank)<<16 | uint32(ch.tableAddr)
					ch.tableAddr++
				}
				b.transfer(ch, aAddr, ch.bAddr+off, at+uint64(cycles))
				cycles += dmaByteCycles
			}
		}
		ch.lineCount--
		ch.hdmaTransfer = ch.lineCount&0x80 != 0
		if ch.lineCount&0x7F == 0 {
			cycles += b.hdmaLoad(ch)
		}
	}
	return cycles
}

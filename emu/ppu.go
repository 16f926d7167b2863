package emu

import "image"

// Screen dimensions
const (
	ScreenWidth         = 256
	DefaultScreenHeight = 224
	MaxScreenHeight     = 239
)

// Scanline layout in dots.
const (
	firstPixelDot = 22  // Dot of screen column 0
	hblankDot     = 274 // HBlank flag rises
	hdmaDot       = 278 // HDMA runs once per active line
	masterPerDot  = 4
)

// PPUState is the coarse beam position.
type PPUState int

const (
	PPUStateVisible PPUState = iota
	PPUStateHBlank
	PPUStateVBlank
)

// ppuHost receives beam events. The scheduler implements it.
type ppuHost interface {
	ppuFrameStart()
	ppuVBlank()
	ppuHBlank(line int)
	ppuTimerIRQ()
}

// layerRegs are the registers rendering reads. Writes land in the pending
// copy; the active copy is latched at the start of every scanline so a
// change never tears a line.
type layerRegs struct {
	inidisp uint8
	bgmode  uint8
	bgsc    [4]uint8
	nba     [2]uint8
	hofs    [4]uint16
	vofs    [4]uint16
	tm      uint8
	ts      uint8
	setini  uint8
}

// PPU is the picture unit: register file, VRAM/CGRAM/OAM, beam counters
// and a per-pixel background renderer.
type PPU struct {
	vram  [0x8000]uint16
	cgram [256]uint16
	oam   [544]uint8

	pending layerRegs
	active  layerRegs
	regs    [0x40]uint8 // Raw copies of registers without further modeling

	scrollLatch uint8
	hscrollPrev uint8

	vmain    uint8
	vmaddr   uint16
	vramRead uint16

	cgaddr  uint8
	cgFlip  bool
	cgLatch uint8

	oamAddr  uint16
	oamLatch uint8

	m7a     uint16
	m7b     uint16
	m7Latch uint8

	hLatch, vLatch uint16
	latched        bool
	hFlip, vFlip   bool
	ppu2mdr        uint8

	line      int
	dot       int
	clock     uint64
	frames    uint64
	scanlines int
	isPAL     bool
	overscan  bool // Latched at line 0

	frameReady  bool
	frameHeight int

	irqMode uint8
	irqH    uint16
	irqV    uint16

	host      ppuHost
	advancing bool // Set while beam events run; nested AdvanceTo calls return

	indices     [ScreenWidth * MaxScreenHeight]uint8
	framebuffer *image.RGBA
}

// NewPPU creates a picture unit for the given timing.
func NewPPU(isPAL bool) *PPU {
	p := &PPU{
		framebuffer: image.NewRGBA(image.Rect(0, 0, ScreenWidth, MaxScreenHeight)),
	}
	p.SetPAL(isPAL)
	p.Reset()
	return p
}

// SetHost sets the beam event receiver.
// Called after construction due to circular construction dependency.
func (p *PPU) SetHost(h ppuHost) {
	p.host = h
}

// SetPAL selects 312 (PAL) or 262 (NTSC) scanlines per frame.
func (p *PPU) SetPAL(pal bool) {
	p.isPAL = pal
	p.scanlines = NTSCTiming.Scanlines
	if pal {
		p.scanlines = PALTiming.Scanlines
	}
	if p.line >= p.scanlines {
		p.line = 0
	}
}

// Reset returns registers and counters to power-on values. Memory is kept.
func (p *PPU) Reset() {
	p.pending = layerRegs{inidisp: 0x80}
	p.active = p.pending
	p.regs = [0x40]uint8{}
	p.scrollLatch, p.hscrollPrev = 0, 0
	p.vmain, p.vmaddr, p.vramRead = 0, 0, 0
	p.cgaddr, p.cgFlip, p.cgLatch = 0, false, 0
	p.oamAddr, p.oamLatch = 0, 0
	p.m7a, p.m7b, p.m7Latch = 0, 0, 0
	p.hLatch, p.vLatch, p.latched = 0, 0, false
	p.hFlip, p.vFlip = false, false
	p.line, p.dot = 0, 0
	p.clock = 0
	p.frames = 0
	p.overscan = false
	p.frameReady = false
	p.frameHeight = DefaultScreenHeight
	p.irqMode, p.irqH, p.irqV = 0, 0x1FF, 0x1FF
}

// Clock returns the master cycle the PPU has advanced to.
func (p *PPU) Clock() uint64 { return p.clock }

// Line returns the current scanline.
func (p *PPU) Line() int { return p.line }

// Dot returns the current dot within the scanline.
func (p *PPU) Dot() int { return p.dot }

// Frames returns the number of frames completed.
func (p *PPU) Frames() uint64 { return p.frames }

// Scanlines returns lines per frame for the current region.
func (p *PPU) Scanlines() int { return p.scanlines }

// VBlankLine is the first scanline of vertical blank (225, or 240 with
// overscan).
func (p *PPU) VBlankLine() int {
	if p.overscan {
		return MaxScreenHeight + 1
	}
	return DefaultScreenHeight + 1
}

// InVBlank reports whether the beam is in vertical blank.
func (p *PPU) InVBlank() bool {
	return p.line >= p.VBlankLine()
}

// InHBlank reports whether the beam is in horizontal blank.
func (p *PPU) InHBlank() bool {
	return p.dot >= hblankDot || p.dot < 1
}

// State returns the coarse beam state.
func (p *PPU) State() PPUState {
	switch {
	case p.InVBlank():
		return PPUStateVBlank
	case p.InHBlank():
		return PPUStateHBlank
	}
	return PPUStateVisible
}

// FrameReady reports whether a complete frame is available. It is set on
// entering VBlank and cleared when the next frame starts.
func (p *PPU) FrameReady() bool { return p.frameReady }

// ActiveHeight returns the number of rendered rows in the last frame.
func (p *PPU) ActiveHeight() int { return p.frameHeight }

// FrameIndices returns the CGRAM index of every pixel of the last frame,
// ScreenWidth entries per row.
func (p *PPU) FrameIndices() []uint8 {
	return p.indices[:ScreenWidth*p.frameHeight]
}

// GetFramebuffer returns RGBA pixel data for the current frame.
func (p *PPU) GetFramebuffer() []byte {
	return p.framebuffer.Pix
}

// GetStride returns bytes per framebuffer row.
func (p *PPU) GetStride() int {
	return p.framebuffer.Stride
}

// SetIRQTimer configures the H/V timer. mode bit 0 enables the H
// comparison, bit 1 the V comparison.
func (p *PPU) SetIRQTimer(mode uint8, h, v uint16) {
	p.irqMode = mode & 3
	p.irqH = h
	p.irqV = v
}

// AdvanceTo runs every dot that starts before master cycle target, leaving
// the beam on the first dot boundary at or after it. Calls made from inside
// a beam event (HDMA writing PPU registers) return immediately.
func (p *PPU) AdvanceTo(target uint64) {
	if p.advancing {
		return
	}
	p.advancing = true
	for p.clock < target {
		p.tickDot()
	}
	p.advancing = false
}

func (p *PPU) tickDot() {
	if p.dot == 0 {
		p.startLine()
	}
	vbl := p.VBlankLine()
	if p.line >= 1 && p.line < vbl && p.dot >= firstPixelDot && p.dot < firstPixelDot+ScreenWidth {
		p.renderPixel(p.dot-firstPixelDot, p.line)
	}
	if p.dot == hdmaDot && p.line < vbl && p.host != nil {
		p.host.ppuHBlank(p.line)
	}
	if p.timerMatch() && p.host != nil {
		p.host.ppuTimerIRQ()
	}

	p.dot++
	p.clock += masterPerDot
	if p.dot == dotsPerLine {
		p.dot = 0
		p.line++
		if p.line == p.scanlines {
			p.line = 0
		}
	}
}

func (p *PPU) startLine() {
	p.active = p.pending
	switch p.line {
	case 0:
		p.overscan = p.pending.setini&0x04 != 0
		p.frameReady = false
		if p.host != nil {
			p.host.ppuFrameStart()
		}
	case p.VBlankLine():
		p.frameHeight = p.line - 1
		p.frameReady = true
		p.frames++
		if p.host != nil {
			p.host.ppuVBlank()
		}
	}
}

func (p *PPU) timerMatch() bool {
	switch p.irqMode {
	case 1:
		return uint16(p.dot) == p.irqH
	case 2:
		return p.dot == 0 && uint16(p.line) == p.irqV
	case 3:
		return uint16(p.line) == p.irqV && uint16(p.dot) == p.irqH
	}
	return false
}

// --- Register ports ---

// vramStep returns the word increment selected by VMAIN.
func (p *PPU) vramStep() uint16 {
	switch p.vmain & 3 {
	case 0:
		return 1
	case 1:
		return 32
	}
	return 128
}

// vramRemap applies the VMAIN address translation used for bitplane
// uploads.
func (p *PPU) vramRemap(addr uint16) uint16 {
	switch p.vmain >> 2 & 3 {
	case 1:
		addr = addr&0xFF00 | addr<<3&0x00F8 | addr>>5&7
	case 2:
		addr = addr&0xFE00 | addr<<3&0x01F8 | addr>>6&7
	case 3:
		addr = addr&0xFC00 | addr<<3&0x03F8 | addr>>7&7
	}
	return addr & 0x7FFF
}

func (p *PPU) vramPrefetch() {
	p.vramRead = p.vram[p.vramRemap(p.vmaddr)]
}

// WriteRegister handles a write to $2100-$213F.
func (p *PPU) WriteRegister(reg uint8, v uint8) {
	reg &= 0x3F
	p.regs[reg] = v
	r := &p.pending
	switch reg {
	case 0x00:
		r.inidisp = v
	case 0x02:
		p.oamAddr = p.oamAddr&0x200 | uint16(v)<<1
	case 0x03:
		p.oamAddr = p.oamAddr&0x1FE | uint16(v&1)<<9
	case 0x04:
		p.writeOAM(v)
	case 0x05:
		r.bgmode = v
	case 0x07, 0x08, 0x09, 0x0A:
		r.bgsc[reg-0x07] = v
	case 0x0B:
		r.nba[0] = v
	case 0x0C:
		r.nba[1] = v
	case 0x0D, 0x0F, 0x11, 0x13:
		bg := (reg - 0x0D) >> 1
		r.hofs[bg] = (uint16(v)<<8 | uint16(p.scrollLatch&^7) | uint16(p.hscrollPrev&7)) & 0x3FF
		p.scrollLatch = v
		p.hscrollPrev = v
	case 0x0E, 0x10, 0x12, 0x14:
		bg := (reg - 0x0E) >> 1
		r.vofs[bg] = (uint16(v)<<8 | uint16(p.scrollLatch)) & 0x3FF
		p.scrollLatch = v
	case 0x15:
		p.vmain = v
	case 0x16:
		p.vmaddr = p.vmaddr&0xFF00 | uint16(v)
		p.vramPrefetch()
	case 0x17:
		p.vmaddr = p.vmaddr&0x00FF | uint16(v)<<8
		p.vramPrefetch()
	case 0x18:
		a := p.vramRemap(p.vmaddr)
		p.vram[a] = p.vram[a]&0xFF00 | uint16(v)
		if p.vmain&0x80 == 0 {
			p.vmaddr += p.vramStep()
		}
	case 0x19:
		a := p.vramRemap(p.vmaddr)
		p.vram[a] = p.vram[a]&0x00FF | uint16(v)<<8
		if p.vmain&0x80 != 0 {
			p.vmaddr += p.vramStep()
		}
	case 0x1B:
		p.m7a = uint16(v)<<8 | uint16(p.m7Latch)
		p.m7Latch = v
	case 0x1C:
		p.m7b = uint16(v)<<8 | uint16(p.m7Latch)
		p.m7Latch = v
	case 0x1D, 0x1E, 0x1F, 0x20:
		p.m7Latch = v
	case 0x21:
		p.cgaddr = v
		p.cgFlip = false
	case 0x22:
		if !p.cgFlip {
			p.cgLatch = v
		} else {
			p.cgram[p.cgaddr] = uint16(v&0x7F)<<8 | uint16(p.cgLatch)
			p.cgaddr++
		}
		p.cgFlip = !p.cgFlip
	case 0x2C:
		r.tm = v
	case 0x2D:
		r.ts = v
	case 0x33:
		r.setini = v
	}
}

func (p *PPU) writeOAM(v uint8) {
	addr := p.oamAddr % uint16(len(p.oam))
	switch {
	case addr >= 0x200:
		p.oam[addr] = v
	case addr&1 == 0:
		p.oamLatch = v
	default:
		p.oam[addr-1] = p.oamLatch
		p.oam[addr] = v
	}
	p.oamAddr = (p.oamAddr + 1) & 0x3FF
}

// ReadRegister handles a read of $2100-$213F. Write-only registers report
// a miss so the bus returns open bus.
func (p *PPU) ReadRegister(reg uint8) (uint8, bool) {
	reg &= 0x3F
	switch reg {
	case 0x34, 0x35, 0x36:
		mpy := int32(int16(p.m7a)) * int32(int8(p.m7b>>8))
		return uint8(mpy >> (8 * (reg - 0x34))), true
	case 0x37:
		p.hLatch = uint16(p.dot)
		p.vLatch = uint16(p.line)
		p.latched = true
		return 0, false
	case 0x38:
		addr := p.oamAddr % uint16(len(p.oam))
		v := p.oam[addr]
		p.oamAddr = (p.oamAddr + 1) & 0x3FF
		return v, true
	case 0x39:
		v := uint8(p.vramRead)
		if p.vmain&0x80 == 0 {
			p.vramPrefetch()
			p.vmaddr += p.vramStep()
		}
		return v, true
	case 0x3A:
		v := uint8(p.vramRead >> 8)
		if p.vmain&0x80 != 0 {
			p.vramPrefetch()
			p.vmaddr += p.vramStep()
		}
		return v, true
	case 0x3B:
		c := p.cgram[p.cgaddr]
		var v uint8
		if !p.cgFlip {
			v = uint8(c)
		} else {
			v = uint8(c>>8)&0x7F | p.ppu2mdr&0x80
			p.cgaddr++
		}
		p.cgFlip = !p.cgFlip
		p.ppu2mdr = v
		return v, true
	case 0x3C:
		v := p.counterByte(p.hLatch, &p.hFlip)
		return v, true
	case 0x3D:
		v := p.counterByte(p.vLatch, &p.vFlip)
		return v, true
	case 0x3E:
		return 0x01, true
	case 0x3F:
		v := uint8(0x03)
		if p.latched {
			v |= 0x40
		}
		if p.isPAL {
			v |= 0x10
		}
		if p.frames&1 != 0 {
			v |= 0x80
		}
		p.latched = false
		p.hFlip, p.vFlip = false, false
		return v, true
	}
	return 0, false
}

func (p *PPU) counterByte(v uint16, flip *bool) uint8 {
	var out uint8
	if !*flip {
		out = uint8(v)
	} else {
		out = uint8(v>>8)&1 | p.ppu2mdr&0xFE
	}
	*flip = !*flip
	p.ppu2mdr = out
	return out
}

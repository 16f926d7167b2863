package emu

import "encoding/binary"

// stateCodec walks component state in a fixed order. The same walk saves,
// loads or, with no buffer, just measures the payload, so the three can
// never disagree about layout. All values are little-endian.
type stateCodec struct {
	data    []byte
	off     int
	loading bool
}

func (s *stateCodec) u8(p *uint8) {
	if s.data != nil {
		if s.loading {
			*p = s.data[s.off]
		} else {
			s.data[s.off] = *p
		}
	}
	s.off++
}

func (s *stateCodec) u16(p *uint16) {
	if s.data != nil {
		if s.loading {
			*p = binary.LittleEndian.Uint16(s.data[s.off:])
		} else {
			binary.LittleEndian.PutUint16(s.data[s.off:], *p)
		}
	}
	s.off += 2
}

func (s *stateCodec) u64(p *uint64) {
	if s.data != nil {
		if s.loading {
			*p = binary.LittleEndian.Uint64(s.data[s.off:])
		} else {
			binary.LittleEndian.PutUint64(s.data[s.off:], *p)
		}
	}
	s.off += 8
}

func (s *stateCodec) u32(p *uint32) {
	if s.data != nil {
		if s.loading {
			*p = binary.LittleEndian.Uint32(s.data[s.off:])
		} else {
			binary.LittleEndian.PutUint32(s.data[s.off:], *p)
		}
	}
	s.off += 4
}

// num stores an int as a signed 32-bit value.
func (s *stateCodec) num(p *int) {
	v := uint32(int32(*p))
	s.u32(&v)
	*p = int(int32(v))
}

func (s *stateCodec) i16(p *int16) {
	v := uint16(*p)
	s.u16(&v)
	*p = int16(v)
}

func (s *stateCodec) flag(p *bool) {
	v := boolByte(*p)
	s.u8(&v)
	*p = v != 0
}

// bytes stores b verbatim.
func (s *stateCodec) bytes(b []byte) {
	s.padded(b, len(b))
}

// padded stores b in a field of n bytes. Loading fills only len(b).
func (s *stateCodec) padded(b []byte, n int) {
	if s.data != nil {
		field := s.data[s.off : s.off+n]
		if s.loading {
			copy(b, field)
		} else {
			copy(field, b)
			for i := len(b); i < n; i++ {
				field[i] = 0
			}
		}
	}
	s.off += n
}

func (s *stateCodec) words(w []uint16) {
	for i := range w {
		s.u16(&w[i])
	}
}

// boolByte converts a bool to a uint8 (0 or 1).
func boolByte(b bool) uint8 {
	if b {
		return 1
	}
	return 0
}

// --- Components ---

func (c *CPU) state(s *stateCodec) {
	s.u16(&c.A)
	s.u16(&c.X)
	s.u16(&c.Y)
	s.u16(&c.S)
	s.u16(&c.D)
	s.u16(&c.PC)
	s.u8(&c.PB)
	s.u8(&c.DB)
	s.u8(&c.P)
	s.flag(&c.E)
	s.u64(&c.clock)
	s.num(&c.cycles)
	s.flag(&c.nmiPending)
	s.flag(&c.irqLine)
	s.flag(&c.waiting)
	s.flag(&c.stopped)
}

func (b *Bus) state(s *stateCodec) {
	s.bytes(b.wram[:])
	s.padded(b.sram, maxSRAMSize)
	s.u8(&b.mdr)
	s.u8(&b.hdmaen)
	s.num(&b.stall)
	s.u32(&b.wramAddr)
	for i := range b.dma {
		ch := &b.dma[i]
		s.u8(&ch.control)
		s.u8(&ch.bAddr)
		s.u16(&ch.aAddr)
		s.u8(&ch.aBank)
		s.u16(&ch.count)
		s.u8(&ch.indBank)
		s.u16(&ch.tableAddr)
		s.u8(&ch.lineCount)
		s.u8(&ch.unused)
		s.flag(&ch.hdmaTransfer)
		s.flag(&ch.hdmaDone)
	}
}

func (io *IO) state(s *stateCodec) {
	for i := range io.Pads {
		v := uint16(io.Pads[i])
		s.u16(&v)
		io.Pads[i] = ControllerState(v)
	}
	s.u8(&io.nmitimen)
	s.u8(&io.wrio)
	s.u8(&io.memsel)
	s.u8(&io.mulA)
	s.u8(&io.mulB)
	s.u16(&io.dividend)
	s.u16(&io.quotient)
	s.u16(&io.product)
	s.u16(&io.htime)
	s.u16(&io.vtime)
	s.flag(&io.nmiFlag)
	s.flag(&io.irqFlag)
	s.words(io.joy[:])
	s.flag(&io.strobe)
	s.words(io.shift[:])
}

func (r *layerRegs) state(s *stateCodec) {
	s.u8(&r.inidisp)
	s.u8(&r.bgmode)
	s.bytes(r.bgsc[:])
	s.bytes(r.nba[:])
	s.words(r.hofs[:])
	s.words(r.vofs[:])
	s.u8(&r.tm)
	s.u8(&r.ts)
	s.u8(&r.setini)
}

func (p *PPU) state(s *stateCodec) {
	s.words(p.vram[:])
	s.words(p.cgram[:])
	s.bytes(p.oam[:])
	p.pending.state(s)
	p.active.state(s)
	s.bytes(p.regs[:])

	s.u8(&p.scrollLatch)
	s.u8(&p.hscrollPrev)
	s.u8(&p.vmain)
	s.u16(&p.vmaddr)
	s.u16(&p.vramRead)
	s.u8(&p.cgaddr)
	s.flag(&p.cgFlip)
	s.u8(&p.cgLatch)
	s.u16(&p.oamAddr)
	s.u8(&p.oamLatch)
	s.u16(&p.m7a)
	s.u16(&p.m7b)
	s.u8(&p.m7Latch)
	s.u16(&p.hLatch)
	s.u16(&p.vLatch)
	s.flag(&p.latched)
	s.flag(&p.hFlip)
	s.flag(&p.vFlip)
	s.u8(&p.ppu2mdr)

	s.num(&p.line)
	s.num(&p.dot)
	s.u64(&p.clock)
	s.u64(&p.frames)
	s.flag(&p.overscan)
	s.flag(&p.frameReady)
	s.num(&p.frameHeight)
	s.u8(&p.irqMode)
	s.u16(&p.irqH)
	s.u16(&p.irqV)
}

func (m *mailbox) state(s *stateCodec) {
	for i := range m.slots {
		sl := &m.slots[i]
		s.u8(&sl.value)
		s.u8(&sl.pending)
		s.u64(&sl.stamp)
		s.flag(&sl.full)
	}
}

func (sp *SPC700) state(s *stateCodec) {
	s.u8(&sp.A)
	s.u8(&sp.X)
	s.u8(&sp.Y)
	s.u8(&sp.SP)
	s.u16(&sp.PC)
	s.u8(&sp.PSW)
	s.flag(&sp.stopped)
}

func (v *dspVoice) state(s *stateCodec) {
	s.u16(&v.brrAddr)
	s.num(&v.brrIndex)
	for i := range v.buf {
		s.i16(&v.buf[i])
	}
	s.i16(&v.prev[0])
	s.i16(&v.prev[1])
	s.i16(&v.interp[0])
	s.i16(&v.interp[1])
	s.num(&v.pos)
	s.num(&v.env)
	s.u8(&v.mode)
	s.num(&v.output)
	s.flag(&v.active)
}

func (d *DSP) state(s *stateCodec) {
	s.bytes(d.regs[:])
	for i := range d.voices {
		d.voices[i].state(s)
	}
	s.u8(&d.kon)
	s.num(&d.counter)
	s.num(&d.noise)
	s.num(&d.echoPos)
	for ch := range d.firHist {
		for i := range d.firHist[ch] {
			s.num(&d.firHist[ch][i])
		}
	}
	s.num(&d.firPos)
}

func (t *spcTimer) state(s *stateCodec) {
	s.num(&t.div)
	s.u8(&t.stage)
	s.u8(&t.target)
	s.u8(&t.counter)
	s.flag(&t.enabled)
}

func (a *APU) state(s *stateCodec) {
	s.bytes(a.ram[:])
	a.spc.state(s)
	a.dsp.state(s)
	a.in.state(s)
	a.out.state(s)
	for i := range a.timers {
		a.timers[i].state(s)
	}
	s.u8(&a.control)
	s.u8(&a.dspAddr)
	s.u64(&a.cycles)
	s.num(&a.dspDiv)
}

func (r *resampler) state(s *stateCodec) {
	s.num(&r.phase)
	s.i16(&r.prev[0])
	s.i16(&r.prev[1])
}

// state walks the whole session. The region is not part of it.
func (e *Emulator) state(s *stateCodec) {
	e.cpu.state(s)
	e.bus.state(s)
	e.io.state(s)
	e.ppu.state(s)
	e.apu.state(s)
	e.resampler.state(s)
}

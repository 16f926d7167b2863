package emu

import "testing"

// recordingHost captures beam events.
type recordingHost struct {
	p            *PPU
	frameStarts  int
	vblankLines  []int
	vblankClocks []uint64
	hblankLines  []int
	timerHits    [][2]int
}

func (h *recordingHost) ppuFrameStart() { h.frameStarts++ }
func (h *recordingHost) ppuVBlank() {
	h.vblankLines = append(h.vblankLines, h.p.Line())
	h.vblankClocks = append(h.vblankClocks, h.p.Clock())
}
func (h *recordingHost) ppuHBlank(line int) { h.hblankLines = append(h.hblankLines, line) }
func (h *recordingHost) ppuTimerIRQ()       { h.timerHits = append(h.timerHits, [2]int{h.p.Line(), h.p.Dot()}) }

func newRecordedPPU(pal bool) (*PPU, *recordingHost) {
	p := NewPPU(pal)
	h := &recordingHost{p: p}
	p.SetHost(h)
	return p, h
}

func TestPPU_FrameLength(t *testing.T) {
	tests := []struct {
		name  string
		pal   bool
		lines int
	}{
		{"NTSC", false, 262},
		{"PAL", true, 312},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			p, h := newRecordedPPU(tt.pal)
			frame := uint64(tt.lines * masterCyclesPerLine)
			p.AdvanceTo(3 * frame)

			if p.Frames() != 3 {
				t.Fatalf("expected 3 frames, got %d", p.Frames())
			}
			if len(h.vblankClocks) != 3 {
				t.Fatalf("expected 3 VBlank events, got %d", len(h.vblankClocks))
			}
			if h.vblankClocks[0] != uint64(225*masterCyclesPerLine) {
				t.Errorf("expected first VBlank at %d, got %d", 225*masterCyclesPerLine, h.vblankClocks[0])
			}
			for i := 1; i < len(h.vblankClocks); i++ {
				if d := h.vblankClocks[i] - h.vblankClocks[i-1]; d != frame {
					t.Errorf("VBlank interval %d: expected %d, got %d", i, frame, d)
				}
			}
			if p.Scanlines() != tt.lines {
				t.Errorf("expected %d scanlines, got %d", tt.lines, p.Scanlines())
			}
		})
	}
}

func TestPPU_VBlankLine(t *testing.T) {
	p, h := newRecordedPPU(false)
	p.AdvanceTo(uint64(262 * masterCyclesPerLine))

	if len(h.vblankLines) != 1 || h.vblankLines[0] != 225 {
		t.Fatalf("expected VBlank at line 225, got %v", h.vblankLines)
	}
	if p.ActiveHeight() != DefaultScreenHeight {
		t.Errorf("expected height %d, got %d", DefaultScreenHeight, p.ActiveHeight())
	}
	if len(h.hblankLines) != 225 {
		t.Errorf("expected 225 HDMA lines, got %d", len(h.hblankLines))
	}
	if h.frameStarts != 1 {
		t.Errorf("expected 1 frame start, got %d", h.frameStarts)
	}
}

func TestPPU_OverscanLatchedAtLineZero(t *testing.T) {
	p, h := newRecordedPPU(false)
	p.WriteRegister(0x33, 0x04)
	p.AdvanceTo(uint64(262 * masterCyclesPerLine))

	if len(h.vblankLines) != 1 || h.vblankLines[0] != 240 {
		t.Fatalf("expected VBlank at line 240, got %v", h.vblankLines)
	}
	if p.ActiveHeight() != MaxScreenHeight {
		t.Errorf("expected height %d, got %d", MaxScreenHeight, p.ActiveHeight())
	}
	if len(p.FrameIndices()) != ScreenWidth*MaxScreenHeight {
		t.Errorf("unexpected index buffer length %d", len(p.FrameIndices()))
	}

	// Turning overscan off mid-frame waits for the next frame.
	p.AdvanceTo(uint64(262*masterCyclesPerLine + 5*masterCyclesPerLine))
	p.WriteRegister(0x33, 0x00)
	p.AdvanceTo(uint64(262*masterCyclesPerLine + 230*masterCyclesPerLine))
	if len(h.vblankLines) != 1 {
		t.Errorf("expected VBlank still pending at line 230, got %v", h.vblankLines)
	}
}

func TestPPU_FrameReady(t *testing.T) {
	p, _ := newRecordedPPU(false)
	if p.FrameReady() {
		t.Fatal("expected no frame at power on")
	}
	p.AdvanceTo(uint64(226 * masterCyclesPerLine))
	if !p.FrameReady() {
		t.Error("expected frame ready during VBlank")
	}
	if p.State() != PPUStateVBlank {
		t.Errorf("expected VBlank state, got %d", p.State())
	}
	p.AdvanceTo(uint64(262*masterCyclesPerLine + masterPerDot))
	if p.FrameReady() {
		t.Error("expected frame ready cleared at next frame start")
	}
}

func TestPPU_TimerIRQ(t *testing.T) {
	p, h := newRecordedPPU(false)
	p.SetIRQTimer(2, 0, 100)
	p.AdvanceTo(uint64(262 * masterCyclesPerLine))
	if len(h.timerHits) != 1 || h.timerHits[0] != [2]int{100, 0} {
		t.Fatalf("expected V-IRQ at line 100 dot 0, got %v", h.timerHits)
	}

	p, h = newRecordedPPU(false)
	p.SetIRQTimer(3, 50, 10)
	p.AdvanceTo(uint64(262 * masterCyclesPerLine))
	if len(h.timerHits) != 1 || h.timerHits[0] != [2]int{10, 50} {
		t.Fatalf("expected HV-IRQ at line 10 dot 50, got %v", h.timerHits)
	}

	p, h = newRecordedPPU(false)
	p.SetIRQTimer(1, 200, 0)
	p.AdvanceTo(uint64(3 * masterCyclesPerLine))
	if len(h.timerHits) != 3 {
		t.Fatalf("expected one H-IRQ per line, got %v", h.timerHits)
	}
}

func TestPPU_RegistersLatchPerLine(t *testing.T) {
	p, _ := newRecordedPPU(false)
	p.AdvanceTo(uint64(5*masterCyclesPerLine + 100*masterPerDot))
	if p.Line() != 5 || p.Dot() != 100 {
		t.Fatalf("expected line 5 dot 100, got %d/%d", p.Line(), p.Dot())
	}

	p.WriteRegister(0x05, 0x01)
	if p.active.bgmode != 0 {
		t.Error("expected mid-line write to stay pending")
	}
	if p.pending.bgmode != 1 {
		t.Error("expected pending BGMODE 1")
	}
	p.AdvanceTo(uint64(6*masterCyclesPerLine + masterPerDot))
	if p.active.bgmode != 1 {
		t.Error("expected BGMODE latched at next line")
	}
}

func TestPPU_VRAMPort(t *testing.T) {
	p := NewPPU(false)
	p.WriteRegister(0x15, 0x80)
	p.WriteRegister(0x16, 0x34)
	p.WriteRegister(0x17, 0x12)
	p.WriteRegister(0x18, 0xCD)
	p.WriteRegister(0x19, 0xAB)
	if p.vram[0x1234] != 0xABCD {
		t.Errorf("expected 0xABCD, got 0x%04X", p.vram[0x1234])
	}
	if p.vmaddr != 0x1235 {
		t.Errorf("expected address 0x1235, got 0x%04X", p.vmaddr)
	}

	// Step of 32 words, incrementing on the low byte.
	p.WriteRegister(0x15, 0x01)
	p.WriteRegister(0x16, 0x00)
	p.WriteRegister(0x17, 0x20)
	p.WriteRegister(0x18, 0x11)
	p.WriteRegister(0x18, 0x22)
	if p.vram[0x2000] != 0x0011 || p.vram[0x2020] != 0x0022 {
		t.Errorf("unexpected VRAM 0x%04X 0x%04X", p.vram[0x2000], p.vram[0x2020])
	}

	p.WriteRegister(0x15, 0x80)
	p.WriteRegister(0x16, 0x34)
	p.WriteRegister(0x17, 0x12)
	lo, _ := p.ReadRegister(0x39)
	hi, _ := p.ReadRegister(0x3A)
	if lo != 0xCD || hi != 0xAB {
		t.Errorf("expected read back CD AB, got %02X %02X", lo, hi)
	}
}

func TestPPU_CGRAMPort(t *testing.T) {
	p := NewPPU(false)
	p.WriteRegister(0x21, 5)
	p.WriteRegister(0x22, 0x34)
	p.WriteRegister(0x22, 0x92)
	if p.cgram[5] != 0x1234 {
		t.Errorf("expected 0x1234 with bit 15 dropped, got 0x%04X", p.cgram[5])
	}

	p.WriteRegister(0x21, 5)
	lo, _ := p.ReadRegister(0x3B)
	hi, _ := p.ReadRegister(0x3B)
	if lo != 0x34 || hi != 0x12 {
		t.Errorf("expected 34 12, got %02X %02X", lo, hi)
	}
}

func TestPPU_CounterLatch(t *testing.T) {
	p := NewPPU(false)
	p.AdvanceTo(uint64(10*masterCyclesPerLine + 100*masterPerDot))

	if _, ok := p.ReadRegister(0x37); ok {
		t.Error("expected $2137 to read as open bus")
	}
	if h, _ := p.ReadRegister(0x3C); h != 100 {
		t.Errorf("expected OPHCT 100, got %d", h)
	}
	if v, _ := p.ReadRegister(0x3D); v != 10 {
		t.Errorf("expected OPVCT 10, got %d", v)
	}
	if s, _ := p.ReadRegister(0x3F); s != 0x43 {
		t.Errorf("expected STAT78 0x43, got 0x%02X", s)
	}
	if s, _ := p.ReadRegister(0x3F); s != 0x03 {
		t.Errorf("expected latch flag cleared, got 0x%02X", s)
	}

	pal := NewPPU(true)
	if s, _ := pal.ReadRegister(0x3F); s&0x10 == 0 {
		t.Errorf("expected PAL bit, got 0x%02X", s)
	}
}

func TestPPU_Multiply(t *testing.T) {
	p := NewPPU(false)
	p.WriteRegister(0x1B, 0x00)
	p.WriteRegister(0x1B, 0x10)
	p.WriteRegister(0x1C, 0x02)
	var got [3]uint8
	for i := range got {
		got[i], _ = p.ReadRegister(0x34 + uint8(i))
	}
	if got != [3]uint8{0x00, 0x20, 0x00} {
		t.Errorf("expected 00 20 00, got % X", got)
	}

	p.WriteRegister(0x1C, 0xFF)
	for i := range got {
		got[i], _ = p.ReadRegister(0x34 + uint8(i))
	}
	if got != [3]uint8{0x00, 0xF0, 0xFF} {
		t.Errorf("expected 00 F0 FF, got % X", got)
	}
}

func TestColorToRGBA(t *testing.T) {
	tests := []struct {
		c       uint16
		bright  uint8
		r, g, b uint8
	}{
		{0x001F, 15, 0xFF, 0x00, 0x00},
		{0x03E0, 15, 0x00, 0xFF, 0x00},
		{0x7C00, 15, 0x00, 0x00, 0xFF},
		{0x7FFF, 0, 0x00, 0x00, 0x00},
		{0x0010, 15, 0x84, 0x00, 0x00},
	}
	for _, tt := range tests {
		r, g, b := ColorToRGBA(tt.c, tt.bright)
		if r != tt.r || g != tt.g || b != tt.b {
			t.Errorf("0x%04X@%d: expected %02X%02X%02X, got %02X%02X%02X",
				tt.c, tt.bright, tt.r, tt.g, tt.b, r, g, b)
		}
	}
}

// sta assembles LDA #v / STA abs.
func sta(addr uint16, v uint8) []byte {
	return []byte{0xA9, v, 0x8D, uint8(addr), uint8(addr >> 8)}
}

// bgTileProgram sets up mode 0 with BG1 showing tile 0 everywhere. Tile 0's
// top row decodes to colors 0,1,2,3,0,1,2,3 and the palette is black, red,
// green, blue.
func bgTileProgram() []byte {
	var prog []byte
	add := func(b ...byte) { prog = append(prog, b...) }

	add(0x78)             // SEI
	add(0x9C, 0x21, 0x21) // STZ $2121
	for _, c := range []uint16{0x0000, 0x001F, 0x03E0, 0x7C00} {
		add(sta(0x2122, uint8(c))...)
		add(sta(0x2122, uint8(c>>8))...)
	}
	add(0x9C, 0x05, 0x21)      // Mode 0
	add(sta(0x2107, 0x04)...)  // BG1 map at word 0x0400
	add(sta(0x210B, 0x01)...)  // BG1 tiles at word 0x1000
	add(sta(0x2115, 0x80)...)  // Increment on high byte
	add(0x9C, 0x16, 0x21)      // VMADD low
	add(sta(0x2117, 0x10)...)  // VMADD high
	add(sta(0x2118, 0x55)...)  // Plane 0
	add(sta(0x2119, 0x33)...)  // Plane 1
	add(sta(0x210E, 0xFF)...)  // BG1VOFS = 0x3FF so line 1 reads tile row 0
	add(sta(0x210E, 0x03)...)
	add(sta(0x212C, 0x01)...)  // BG1 on main screen
	add(sta(0x2100, 0x0F)...)  // Display on, full brightness
	add(0x80, 0xFE)            // BRA *
	return prog
}

func TestPPU_RendersBackgroundTile(t *testing.T) {
	e := createTestEmulator(t, bgTileProgram())
	e.RunFrame()
	e.RunFrame()
	if err := e.Err(); err != nil {
		t.Fatalf("unexpected halt: %v", err)
	}

	if e.GetActiveHeight() != DefaultScreenHeight {
		t.Fatalf("expected height %d, got %d", DefaultScreenHeight, e.GetActiveHeight())
	}
	colors := [4][3]uint8{{0, 0, 0}, {0xFF, 0, 0}, {0, 0xFF, 0}, {0, 0, 0xFF}}
	idx := e.FrameIndices()
	pix := e.GetFramebuffer()
	for x := 0; x < ScreenWidth; x++ {
		want := uint8(x % 4)
		if idx[x] != want {
			t.Fatalf("x=%d: expected index %d, got %d", x, want, idx[x])
		}
		c := colors[want]
		if pix[x*4] != c[0] || pix[x*4+1] != c[1] || pix[x*4+2] != c[2] || pix[x*4+3] != 0xFF {
			t.Fatalf("x=%d: expected RGB % X, got % X", x, c, pix[x*4:x*4+4])
		}
	}

	// Row 1 reads tile row 1, which is empty.
	for x := 0; x < ScreenWidth; x++ {
		if idx[ScreenWidth+x] != 0 {
			t.Fatalf("row 1 x=%d: expected backdrop, got %d", x, idx[ScreenWidth+x])
		}
	}
}

func TestPPU_ForceBlankRendersBlack(t *testing.T) {
	e := createTestEmulator(t, []byte{0x80, 0xFE})
	e.RunFrame()
	pix := e.GetFramebuffer()
	for i := 0; i < ScreenWidth*4; i += 4 {
		if pix[i] != 0 || pix[i+1] != 0 || pix[i+2] != 0 || pix[i+3] != 0xFF {
			t.Fatalf("pixel %d: expected opaque black, got % X", i/4, pix[i:i+4])
		}
	}
}

func TestPPU_LargeTileNumberWraps(t *testing.T) {
	p := NewPPU(false)
	p.active.bgmode = 0x10 // Mode 0, BG1 16x16 tiles
	p.active.nba[0] = 0x01 // BG1 tiles at word $1000
	p.vram[0] = 0x03FF     // Last tile; its right half is tile 0
	p.vram[0x1000] = 0x0080

	s := p.bgPixel(0, 2, 8, 0)
	if !s.opaque || s.index != 1 {
		t.Errorf("expected tile 0 pixel with index 1, got %+v", s)
	}
}

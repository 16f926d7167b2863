package emu

// layerSlot is one entry of a mode's front-to-back priority order.
type layerSlot struct {
	bg   uint8
	high bool
}

// modeBPP gives bits per pixel for BG1-BG4 in modes 0-7. Zero means the
// layer does not exist in that mode.
var modeBPP = [8][4]int{
	{2, 2, 2, 2},
	{4, 4, 2, 0},
	{4, 4, 0, 0},
	{8, 4, 0, 0},
	{8, 2, 0, 0},
	{4, 2, 0, 0},
	{4, 0, 0, 0},
	{0, 0, 0, 0},
}

var (
	priorityMode0 = []layerSlot{
		{0, true}, {1, true}, {0, false}, {1, false},
		{2, true}, {3, true}, {2, false}, {3, false},
	}
	priorityMode1 = []layerSlot{
		{0, true}, {1, true}, {0, false}, {1, false}, {2, true}, {2, false},
	}
	priorityMode1BG3 = []layerSlot{
		{2, true}, {0, true}, {1, true}, {0, false}, {1, false}, {2, false},
	}
	priorityTwoLayer = []layerSlot{
		{0, true}, {1, true}, {0, false}, {1, false},
	}
)

func priorityOrder(bgmode uint8) []layerSlot {
	switch bgmode & 7 {
	case 0:
		return priorityMode0
	case 1:
		if bgmode&0x08 != 0 {
			return priorityMode1BG3
		}
		return priorityMode1
	case 7:
		return nil
	}
	return priorityTwoLayer
}

// bgSample is one layer's pixel at the current position.
type bgSample struct {
	index  uint8 // CGRAM index
	high   bool
	opaque bool
}

// renderPixel composes the main screen at column x of scanline line.
func (p *PPU) renderPixel(x, line int) {
	r := &p.active
	row := line - 1
	idx := 0
	if r.inidisp&0x80 == 0 {
		idx = int(p.mainPixel(x, line))
	}
	p.indices[row*ScreenWidth+x] = uint8(idx)

	var cr, cg, cb uint8
	if r.inidisp&0x80 == 0 {
		cr, cg, cb = ColorToRGBA(p.cgram[idx], r.inidisp&0x0F)
	}
	off := row*p.framebuffer.Stride + x*4
	pix := p.framebuffer.Pix[off : off+4 : off+4]
	pix[0] = cr
	pix[1] = cg
	pix[2] = cb
	pix[3] = 0xFF
}

// mainPixel returns the CGRAM index of the frontmost opaque main-screen
// layer, or 0 (backdrop).
func (p *PPU) mainPixel(x, line int) uint8 {
	r := &p.active
	mode := r.bgmode & 7
	var samples [4]bgSample
	for bg := 0; bg < 4; bg++ {
		bpp := modeBPP[mode][bg]
		if bpp == 0 || r.tm&(1<<bg) == 0 {
			continue
		}
		samples[bg] = p.bgPixel(bg, bpp, x, line)
	}
	for _, slot := range priorityOrder(r.bgmode) {
		s := samples[slot.bg]
		if s.opaque && s.high == slot.high {
			return s.index
		}
	}
	return 0
}

// bgPixel fetches one background pixel: tilemap entry, then the tile's
// bitplanes.
func (p *PPU) bgPixel(bg, bpp, x, line int) bgSample {
	r := &p.active
	sc := r.bgsc[bg]
	size := 8
	if r.bgmode&(0x10<<bg) != 0 {
		size = 16
	}
	px := x + int(r.hofs[bg])
	py := line + int(r.vofs[bg])

	tilesWide := 32 << (sc & 1)
	tilesHigh := 32 << (sc >> 1 & 1)
	tx := (px / size) & (tilesWide - 1)
	ty := (py / size) & (tilesHigh - 1)

	addr := uint16(sc&0xFC)<<8 + uint16((ty&31)<<5|tx&31)
	if tx >= 32 {
		addr += 0x400
	}
	if ty >= 32 {
		addr += 0x400 << (sc & 1)
	}
	entry := p.vram[addr&0x7FFF]

	tile := int(entry & 0x3FF)
	pal := int(entry >> 10 & 7)
	fx := px & (size - 1)
	fy := py & (size - 1)
	if entry&0x4000 != 0 {
		fx = size - 1 - fx
	}
	if entry&0x8000 != 0 {
		fy = size - 1 - fy
	}
	if size == 16 {
		if fx >= 8 {
			tile++
		}
		if fy >= 8 {
			tile += 16
		}
		tile &= 0x3FF
		fx &= 7
		fy &= 7
	}

	color := p.tilePixel(p.charBase(bg), tile, bpp, fx, fy)
	if color == 0 {
		return bgSample{}
	}

	var index int
	switch {
	case bpp == 8:
		index = color
	case bpp == 2 && r.bgmode&7 == 0:
		index = bg<<5 + pal<<2 + color
	case bpp == 2:
		index = pal<<2 + color
	default:
		index = pal<<4 + color
	}
	return bgSample{index: uint8(index), high: entry&0x2000 != 0, opaque: true}
}

// charBase returns the VRAM word address of a layer's tile data.
func (p *PPU) charBase(bg int) int {
	nba := p.active.nba[bg>>1]
	if bg&1 != 0 {
		nba >>= 4
	}
	return int(nba&0x0F) << 12
}

// tilePixel decodes one pixel of a planar tile. Each pair of bitplanes
// occupies 8 words; a row's low byte holds the even plane.
func (p *PPU) tilePixel(base, tile, bpp, fx, fy int) int {
	words := bpp * 4
	addr := base + tile*words + fy
	bit := uint(7 - fx)
	color := 0
	for pair := 0; pair < bpp/2; pair++ {
		w := p.vram[(addr+pair*8)&0x7FFF]
		color |= int(w>>bit&1) << (2 * pair)
		color |= int(w>>(bit+8)&1) << (2*pair + 1)
	}
	return color
}

// ColorToRGBA converts a BGR555 CGRAM entry to 8-bit RGB scaled by the
// master brightness (0-15).
func ColorToRGBA(c uint16, brightness uint8) (r, g, b uint8) {
	expand := func(v uint16) uint8 {
		v &= 0x1F
		full := uint32(v<<3 | v>>2)
		return uint8(full * uint32(brightness) / 15)
	}
	return expand(c), expand(c >> 5), expand(c >> 10)
}

package emu

// DSP global registers.
const (
	dspMVolL = 0x0C
	dspMVolR = 0x1C
	dspEVolL = 0x2C
	dspEVolR = 0x3C
	dspKON   = 0x4C
	dspKOF   = 0x5C
	dspFLG   = 0x6C
	dspENDX  = 0x7C
	dspEFB   = 0x0D
	dspPMON  = 0x2D
	dspNON   = 0x3D
	dspEON   = 0x4D
	dspDIR   = 0x5D
	dspESA   = 0x6D
	dspEDL   = 0x7D
)

// envRates is the number of samples between steps for each 5-bit rate.
// Rate 0 never steps.
var envRates = [32]int{
	0, 2048, 1536, 1280, 1024, 768, 640, 512,
	384, 320, 256, 192, 160, 128, 96, 80,
	64, 48, 40, 32, 24, 20, 16, 12,
	10, 8, 6, 5, 4, 3, 2, 1,
}

// envOffsets phase-shifts the rates that share a period so they step on
// different samples of the shared counter.
var envOffsets = [32]int{
	1, 0, 1040, 536, 0, 1040, 536, 0,
	1040, 536, 0, 1040, 536, 0, 1040, 536,
	0, 1040, 536, 0, 1040, 536, 0, 1040,
	536, 0, 1040, 536, 0, 1040, 0, 0,
}

// DSP is the sound synthesizer: eight BRR voices with ADSR/GAIN envelopes,
// a noise generator and an 8-tap FIR echo, producing one stereo sample
// every 32 SPC700 cycles.
type DSP struct {
	regs   [128]uint8
	ram    []uint8
	voices [8]dspVoice

	kon     uint8 // Key-on latched since the last sample
	counter int   // Shared envelope/noise rate counter
	noise   int   // 15-bit LFSR

	echoPos int
	firHist [2][8]int
	firPos  int

	samples []int16
}

// NewDSP creates a synthesizer reading sample data from ram.
func NewDSP(ram []uint8) *DSP {
	d := &DSP{ram: ram, samples: make([]int16, 0, 2048)}
	d.Reset()
	return d
}

// Reset returns the DSP to its power-on state: all voices silent, output
// muted and echo writes disabled.
func (d *DSP) Reset() {
	d.regs = [128]uint8{}
	d.regs[dspFLG] = 0xE0
	d.voices = [8]dspVoice{}
	for i := range d.voices {
		d.voices[i].mode = envRelease
	}
	d.kon = 0
	d.counter = 0
	d.noise = 0x4000
	d.echoPos = 0
	d.firHist = [2][8]int{}
	d.firPos = 0
	d.samples = d.samples[:0]
}

// Read returns DSP register addr.
func (d *DSP) Read(addr uint8) uint8 {
	return d.regs[addr&0x7F]
}

// Write sets DSP register addr.
func (d *DSP) Write(addr uint8, v uint8) {
	addr &= 0x7F
	switch addr {
	case dspKON:
		d.kon |= v
	case dspENDX:
		d.regs[dspENDX] = 0
		return
	}
	d.regs[addr] = v
}

// dirEntry reads the start (off 0) or loop (off 2) address of sample srcn
// from the sample directory.
func (d *DSP) dirEntry(srcn uint8, off uint16) uint16 {
	addr := uint16(d.regs[dspDIR])<<8 + uint16(srcn)*4 + off
	return uint16(d.ram[addr]) | uint16(d.ram[addr+1])<<8
}

// rateTick reports whether an envelope or noise step at rate fires on the
// current sample.
func (d *DSP) rateTick(rate int) bool {
	if rate == 0 {
		return false
	}
	return (d.counter+envOffsets[rate])%envRates[rate] == 0
}

// Sample produces one stereo output pair.
func (d *DSP) Sample() {
	if d.counter == 0 {
		d.counter = 0x7800
	}
	d.counter--

	flg := d.regs[dspFLG]
	if d.rateTick(int(flg & 0x1F)) {
		feedback := (d.noise << 13) ^ (d.noise << 14)
		d.noise = d.noise>>1 | feedback&0x4000
	}

	if d.kon != 0 {
		for n := range d.voices {
			if d.kon&(1<<n) != 0 {
				d.voices[n].keyOn(d, n)
			}
		}
		d.kon = 0
	}
	kof := d.regs[dspKOF]
	for n := range d.voices {
		if kof&(1<<n) != 0 || flg&0x80 != 0 {
			d.voices[n].mode = envRelease
			if flg&0x80 != 0 {
				d.voices[n].env = 0
			}
		}
	}

	var mainL, mainR, echoL, echoR int
	prev := 0
	eon := d.regs[dspEON]
	for n := range d.voices {
		out := d.voices[n].sample(d, n, prev)
		prev = out
		l := out * int(int8(d.regs[n<<4|vregVolL])) >> 7
		r := out * int(int8(d.regs[n<<4|vregVolR])) >> 7
		mainL = clamp16(mainL + l)
		mainR = clamp16(mainR + r)
		if eon&(1<<n) != 0 {
			echoL = clamp16(echoL + l)
			echoR = clamp16(echoR + r)
		}
	}

	firL, firR := d.echo(echoL, echoR, flg)

	outL := clamp16(mainL*int(int8(d.regs[dspMVolL]))>>7 + firL*int(int8(d.regs[dspEVolL]))>>7)
	outR := clamp16(mainR*int(int8(d.regs[dspMVolR]))>>7 + firR*int(int8(d.regs[dspEVolR]))>>7)
	if flg&0x40 != 0 {
		outL, outR = 0, 0
	}
	d.samples = append(d.samples, int16(outL), int16(outR))
}

// echo reads the echo buffer, runs the FIR filter, writes back the new
// input with feedback and returns the filtered output.
func (d *DSP) echo(inL, inR int, flg uint8) (int, int) {
	base := uint16(d.regs[dspESA]) << 8
	length := int(d.regs[dspEDL]&0x0F) * 0x800
	if length == 0 {
		length = 4
	}
	addr := base + uint16(d.echoPos)

	d.firPos = (d.firPos + 1) & 7
	d.firHist[0][d.firPos] = int(int16(uint16(d.ram[addr])|uint16(d.ram[addr+1])<<8)) >> 1
	d.firHist[1][d.firPos] = int(int16(uint16(d.ram[addr+2])|uint16(d.ram[addr+3])<<8)) >> 1

	var fir [2]int
	for ch := 0; ch < 2; ch++ {
		sum := 0
		for i := 0; i < 8; i++ {
			coef := int(int8(d.regs[i<<4|0x0F]))
			sum += d.firHist[ch][(d.firPos+i+1)&7] * coef >> 6
		}
		fir[ch] = clamp16(sum)
	}

	if flg&0x20 == 0 {
		efb := int(int8(d.regs[dspEFB]))
		wl := clamp16(inL+fir[0]*efb>>7) &^ 1
		wr := clamp16(inR+fir[1]*efb>>7) &^ 1
		d.ram[addr] = uint8(wl)
		d.ram[addr+1] = uint8(wl >> 8)
		d.ram[addr+2] = uint8(wr)
		d.ram[addr+3] = uint8(wr >> 8)
	}

	d.echoPos += 4
	if d.echoPos >= length {
		d.echoPos = 0
	}
	return fir[0], fir[1]
}

func (d *DSP) takeSamples(dst []int16) []int16 {
	dst = append(dst, d.samples...)
	d.samples = d.samples[:0]
	return dst
}

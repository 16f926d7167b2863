package emu

// Envelope phases.
const (
	envAttack uint8 = iota
	envDecay
	envSustain
	envRelease
)

const (
	brrBlockSize = 9
	envMax       = 0x7FF
)

// Per-voice register offsets within each 16-byte voice block.
const (
	vregVolL   = 0x0
	vregVolR   = 0x1
	vregPitchL = 0x2
	vregPitchH = 0x3
	vregSrcn   = 0x4
	vregADSR1  = 0x5
	vregADSR2  = 0x6
	vregGain   = 0x7
	vregEnvx   = 0x8
	vregOutx   = 0x9
)

// dspVoice is the runtime state of one of the eight voices.
type dspVoice struct {
	brrAddr  uint16    // Current block
	brrIndex int       // Next sample within the decoded block
	buf      [16]int16 // Decoded block
	prev     [2]int16  // Last two decoded samples, for filters
	interp   [2]int16  // Previous and current output sample
	pos      int       // 12-bit fraction toward the next sample
	env      int
	mode     uint8
	output   int // Last enveloped output, for pitch modulation
	active   bool
}

// keyOn starts a voice at the sample named by SRCN.
func (v *dspVoice) keyOn(d *DSP, n int) {
	srcn := d.regs[n<<4|vregSrcn]
	v.brrAddr = d.dirEntry(srcn, 0)
	v.prev = [2]int16{}
	v.interp = [2]int16{}
	v.pos = 0
	v.env = 0
	v.mode = envAttack
	v.active = true
	d.regs[dspENDX] &^= 1 << n
	v.decodeBlock(d)
}

// decodeBlock expands the 9-byte BRR block at brrAddr into 16 samples.
func (v *dspVoice) decodeBlock(d *DSP) {
	header := d.ram[v.brrAddr]
	shift := int(header >> 4)
	filter := header >> 2 & 3
	for i := 0; i < 16; i++ {
		b := d.ram[uint16(int(v.brrAddr)+1+i/2)]
		nib := int(b >> 4)
		if i&1 != 0 {
			nib = int(b & 0x0F)
		}
		s := int(int8(uint8(nib)<<4)) >> 4
		if shift <= 12 {
			s = s << shift >> 1
		} else if s < 0 {
			s = -2048
		} else {
			s = 0
		}

		p1 := int(v.prev[0])
		p2 := int(v.prev[1]) >> 1
		switch filter {
		case 1:
			s += p1 >> 1
			s += -p1 >> 5
		case 2:
			s += p1
			s -= p2
			s += p2 >> 4
			s += p1 * -3 >> 6
		case 3:
			s += p1
			s -= p2
			s += p1 * -13 >> 7
			s += p2 * 3 >> 4
		}
		s = clamp16(s)
		out := int16(s * 2)
		v.buf[i] = out
		v.prev[1] = v.prev[0]
		v.prev[0] = out
	}
	v.brrIndex = 0
}

// nextSample shifts one decoded sample into the interpolation window,
// moving to the next block (or the loop point) when this one is used up.
func (v *dspVoice) nextSample(d *DSP, n int) {
	v.interp[0] = v.interp[1]
	v.interp[1] = v.buf[v.brrIndex]
	v.brrIndex++
	if v.brrIndex < 16 {
		return
	}
	header := d.ram[v.brrAddr]
	if header&1 != 0 {
		d.regs[dspENDX] |= 1 << n
		if header&2 == 0 {
			v.mode = envRelease
			v.env = 0
			v.active = false
		}
		v.brrAddr = d.dirEntry(d.regs[n<<4|vregSrcn], 2)
	} else {
		v.brrAddr += brrBlockSize
	}
	v.decodeBlock(d)
}

// sample returns the interpolated, enveloped output of the voice and
// advances its pitch counter.
func (v *dspVoice) sample(d *DSP, n int, prevOut int) int {
	if !v.active && v.env == 0 {
		v.output = 0
		return 0
	}
	base := n << 4
	pitch := int(d.regs[base|vregPitchL]) | int(d.regs[base|vregPitchH]&0x3F)<<8
	if n > 0 && d.regs[dspPMON]&(1<<n) != 0 {
		pitch += (prevOut >> 5) * pitch >> 10
		if pitch < 0 {
			pitch = 0
		}
		if pitch > 0x3FFF {
			pitch = 0x3FFF
		}
	}

	var s int
	if d.regs[dspNON]&(1<<n) != 0 {
		s = int(int16(d.noise << 1))
	} else {
		a, b := int(v.interp[0]), int(v.interp[1])
		s = a + (b-a)*v.pos>>12
	}

	v.stepEnvelope(d, n)
	out := s * v.env >> 11
	v.output = out

	v.pos += pitch
	for v.pos >= 0x1000 {
		v.pos -= 0x1000
		v.nextSample(d, n)
	}

	d.regs[base|vregEnvx] = uint8(v.env >> 4)
	d.regs[base|vregOutx] = uint8(out >> 8)
	return out
}

// stepEnvelope advances ADSR or GAIN by one sample.
func (v *dspVoice) stepEnvelope(d *DSP, n int) {
	if v.mode == envRelease {
		v.env -= 8
		if v.env < 0 {
			v.env = 0
		}
		return
	}
	base := n << 4
	adsr1 := d.regs[base|vregADSR1]
	adsr2 := d.regs[base|vregADSR2]
	env := v.env

	if adsr1&0x80 != 0 {
		switch v.mode {
		case envAttack:
			rate := int(adsr1&0x0F)*2 + 1
			if !d.rateTick(rate) {
				return
			}
			if rate == 31 {
				env += 0x400
			} else {
				env += 0x20
			}
			if env >= envMax {
				env = envMax
				v.mode = envDecay
			}
		case envDecay:
			if !d.rateTick(int(adsr1>>4&7)*2 + 16) {
				return
			}
			env -= (env-1)>>8 + 1
			if env>>8 <= int(adsr2>>5) {
				v.mode = envSustain
			}
		case envSustain:
			if !d.rateTick(int(adsr2 & 0x1F)) {
				return
			}
			env -= (env-1)>>8 + 1
		}
	} else {
		gain := d.regs[base|vregGain]
		if gain&0x80 == 0 {
			env = int(gain&0x7F) << 4
		} else {
			if !d.rateTick(int(gain & 0x1F)) {
				return
			}
			switch gain >> 5 & 3 {
			case 0:
				env -= 0x20
			case 1:
				env -= (env-1)>>8 + 1
			case 2:
				env += 0x20
			case 3:
				if env < 0x600 {
					env += 0x20
				} else {
					env += 0x08
				}
			}
		}
	}
	if env < 0 {
		env = 0
	}
	if env > envMax {
		env = envMax
	}
	v.env = env
}

func clamp16(v int) int {
	if v > 32767 {
		return 32767
	}
	if v < -32768 {
		return -32768
	}
	return v
}

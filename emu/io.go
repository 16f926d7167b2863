package emu

// ControllerState is one SNES pad in serial shift order: bit 15 is the
// first bit clocked out (B), bit 4 the last button (R). Bits 0-3 are zero.
type ControllerState uint16

const (
	ButtonR      ControllerState = 1 << 4
	ButtonL      ControllerState = 1 << 5
	ButtonX      ControllerState = 1 << 6
	ButtonA      ControllerState = 1 << 7
	ButtonRight  ControllerState = 1 << 8
	ButtonLeft   ControllerState = 1 << 9
	ButtonDown   ControllerState = 1 << 10
	ButtonUp     ControllerState = 1 << 11
	ButtonStart  ControllerState = 1 << 12
	ButtonSelect ControllerState = 1 << 13
	ButtonY      ControllerState = 1 << 14
	ButtonB      ControllerState = 1 << 15
)

// Pressed reports whether every button in mask is held.
func (s ControllerState) Pressed(mask ControllerState) bool {
	return s&mask == mask
}

// autoJoypadLines is how many scanlines the auto-read busy flag stays set.
const autoJoypadLines = 3

// IO holds the CPU-side internal registers ($4200-$421F) and the two
// controller ports.
type IO struct {
	Pads [2]ControllerState

	nmitimen uint8
	wrio     uint8
	memsel   uint8

	mulA     uint8
	mulB     uint8
	dividend uint16
	quotient uint16 // RDDIVL/H
	product  uint16 // RDMPYL/H, also the division remainder

	htime uint16
	vtime uint16

	nmiFlag bool // RDNMI bit 7, cleared on read
	irqFlag bool // TIMEUP bit 7, cleared on read

	joy [4]uint16 // Auto-joypad results

	strobe bool
	shift  [2]uint16

	ppu      *PPU
	raiseNMI func()
	setIRQ   func(bool)
}

// NewIO creates the internal register block. raiseNMI and setIRQ drive the
// CPU interrupt lines.
func NewIO(ppu *PPU, raiseNMI func(), setIRQ func(bool)) *IO {
	return &IO{
		ppu:      ppu,
		raiseNMI: raiseNMI,
		setIRQ:   setIRQ,
		wrio:     0xFF,
	}
}

func (io *IO) fastROM() bool {
	return io.memsel&1 != 0
}

func (io *IO) nmiEnabled() bool {
	return io.nmitimen&0x80 != 0
}

// Read reads $4200-$421F. Write-only registers report a miss so the bus
// returns open bus.
func (io *IO) Read(addr uint16, mdr uint8) (uint8, bool) {
	switch addr {
	case 0x4210:
		v := mdr&0x70 | 0x02
		if io.nmiFlag {
			v |= 0x80
		}
		io.nmiFlag = false
		return v, true
	case 0x4211:
		v := mdr & 0x7F
		if io.irqFlag {
			v |= 0x80
		}
		io.irqFlag = false
		io.setIRQ(false)
		return v, true
	case 0x4212:
		v := mdr & 0x3E
		if io.ppu.InVBlank() {
			v |= 0x80
		}
		if io.ppu.InHBlank() {
			v |= 0x40
		}
		if io.autoJoypadBusy() {
			v |= 0x01
		}
		return v, true
	case 0x4213:
		return io.wrio, true
	case 0x4214:
		return uint8(io.quotient), true
	case 0x4215:
		return uint8(io.quotient >> 8), true
	case 0x4216:
		return uint8(io.product), true
	case 0x4217:
		return uint8(io.product >> 8), true
	}
	if addr >= 0x4218 && addr < 0x4220 {
		j := io.joy[(addr-0x4218)>>1]
		if addr&1 != 0 {
			return uint8(j >> 8), true
		}
		return uint8(j), true
	}
	return 0, false
}

// Write writes $4200-$421F.
func (io *IO) Write(addr uint16, v uint8) {
	switch addr {
	case 0x4200:
		old := io.nmitimen
		io.nmitimen = v
		// Enabling NMI during VBlank with the flag still set fires at once.
		if old&0x80 == 0 && v&0x80 != 0 && io.nmiFlag {
			io.raiseNMI()
		}
		if v&0x30 == 0 {
			io.irqFlag = false
			io.setIRQ(false)
		}
		io.ppu.SetIRQTimer(v>>4&3, io.htime, io.vtime)
	case 0x4201:
		io.wrio = v
	case 0x4202:
		io.mulA = v
	case 0x4203:
		io.mulB = v
		io.product = uint16(io.mulA) * uint16(v)
		io.quotient = uint16(v)
	case 0x4204:
		io.dividend = io.dividend&0xFF00 | uint16(v)
	case 0x4205:
		io.dividend = io.dividend&0x00FF | uint16(v)<<8
	case 0x4206:
		if v == 0 {
			io.quotient = 0xFFFF
			io.product = io.dividend
		} else {
			io.quotient = io.dividend / uint16(v)
			io.product = io.dividend % uint16(v)
		}
	case 0x4207:
		io.htime = io.htime&0x100 | uint16(v)
		io.ppu.SetIRQTimer(io.nmitimen>>4&3, io.htime, io.vtime)
	case 0x4208:
		io.htime = io.htime&0xFF | uint16(v&1)<<8
		io.ppu.SetIRQTimer(io.nmitimen>>4&3, io.htime, io.vtime)
	case 0x4209:
		io.vtime = io.vtime&0x100 | uint16(v)
		io.ppu.SetIRQTimer(io.nmitimen>>4&3, io.htime, io.vtime)
	case 0x420A:
		io.vtime = io.vtime&0xFF | uint16(v&1)<<8
		io.ppu.SetIRQTimer(io.nmitimen>>4&3, io.htime, io.vtime)
	case 0x420D:
		io.memsel = v
	}
}

// vblankStart latches the NMI flag, fires NMI when enabled and runs the
// automatic joypad read.
func (io *IO) vblankStart() {
	io.nmiFlag = true
	if io.nmiEnabled() {
		io.raiseNMI()
	}
	if io.nmitimen&1 != 0 {
		io.joy[0] = uint16(io.Pads[0])
		io.joy[1] = uint16(io.Pads[1])
		io.joy[2] = 0
		io.joy[3] = 0
	}
}

// vblankEnd clears the NMI flag at the start of a new frame.
func (io *IO) vblankEnd() {
	io.nmiFlag = false
}

// timerIRQ latches TIMEUP and asserts the IRQ line.
func (io *IO) timerIRQ() {
	io.irqFlag = true
	io.setIRQ(true)
}

func (io *IO) autoJoypadBusy() bool {
	if io.nmitimen&1 == 0 {
		return false
	}
	line := io.ppu.Line()
	start := io.ppu.VBlankLine()
	return line >= start && line < start+autoJoypadLines
}

// writeStrobe handles $4016 writes. While the latch is high the shift
// registers reload continuously.
func (io *IO) writeStrobe(v uint8) {
	io.strobe = v&1 != 0
	if io.strobe {
		io.shift[0] = uint16(io.Pads[0])
		io.shift[1] = uint16(io.Pads[1])
	}
}

// readSerial clocks one bit out of a pad's shift register. After 16 reads
// the register returns 1s.
func (io *IO) readSerial(port int, mdr uint8) uint8 {
	if io.strobe {
		io.shift[port] = uint16(io.Pads[port])
	}
	bit := uint8(io.shift[port] >> 15)
	io.shift[port] = io.shift[port]<<1 | 1
	v := mdr&0xFC | bit
	if port == 1 {
		v |= 0x1C
	}
	return v
}

func (io *IO) reset() {
	io.nmitimen = 0
	io.wrio = 0xFF
	io.memsel = 0
	io.mulA, io.mulB = 0xFF, 0
	io.dividend = 0xFFFF
	io.quotient, io.product = 0, 0
	io.htime, io.vtime = 0x1FF, 0x1FF
	io.nmiFlag, io.irqFlag = false, false
	io.joy = [4]uint16{}
	io.strobe = false
	io.shift = [2]uint16{}
	io.ppu.SetIRQTimer(0, io.htime, io.vtime)
}

package emu

import emucore "github.com/user-none/eblitui/api"

// Region is an alias for emucore.Region so internal code compiles unchanged.
type Region = emucore.Region

const (
	RegionNTSC = emucore.RegionNTSC
	RegionPAL  = emucore.RegionPAL
)

// Master cycle layout of one scanline. Every dot is 4 master cycles.
const (
	masterCyclesPerLine = 1364
	dotsPerLine         = 341
)

// RegionTiming holds timing constants for a specific region.
// The sound subsystem runs from its own oscillator, so the ratio between
// the SPC700 clock and the master clock is kept as an exact fraction.
type RegionTiming struct {
	MasterClockHz int // Main oscillator
	APUClockHz    int // SPC700 clock
	Scanlines     int // Total scanlines per frame
	FPS           int // Frames per second

	apuNum uint64 // SPC700 cycles per apuDen master cycles
	apuDen uint64
}

// NTSC timing: 21.477272 MHz master, 262 scanlines, 60 Hz
var NTSCTiming = RegionTiming{
	MasterClockHz: 21477272,
	APUClockHz:    1024000,
	Scanlines:     262,
	FPS:           60,
	apuNum:        5632,
	apuDen:        118125,
}

// PAL timing: 21.281370 MHz master, 312 scanlines, 50 Hz
var PALTiming = RegionTiming{
	MasterClockHz: 21281370,
	APUClockHz:    1024000,
	Scanlines:     312,
	FPS:           50,
	apuNum:        102400,
	apuDen:        2128137,
}

// GetTimingForRegion returns the appropriate timing constants
func GetTimingForRegion(r Region) RegionTiming {
	if r == RegionPAL {
		return PALTiming
	}
	return NTSCTiming
}

// masterToAPU converts a master cycle count to SPC700 cycles (floor).
func (t RegionTiming) masterToAPU(master uint64) uint64 {
	return master * t.apuNum / t.apuDen
}

// apuToMaster converts an SPC700 cycle count to master cycles (floor).
func (t RegionTiming) apuToMaster(apu uint64) uint64 {
	return apu * t.apuDen / t.apuNum
}

// regionForCountry maps the cartridge header country code to a display
// timing region.
func regionForCountry(code uint8) Region {
	switch {
	case code >= 2 && code <= 12, code == 17:
		return RegionPAL
	default:
		return RegionNTSC
	}
}

// DetectRegion inspects the cartridge header country code and returns the
// display timing region. Images without a recognizable header are NTSC.
func DetectRegion(rom []byte) Region {
	cart, err := LoadCartridge(rom)
	if err != nil {
		return RegionNTSC
	}
	return cart.Region()
}

// DefaultRegion returns the default region (NTSC).
func DefaultRegion() Region {
	return RegionNTSC
}

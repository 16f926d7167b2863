package emu

import "testing"

// makeROM builds a 32KB LoROM image with the given header country code.
func makeROM(country uint8) []byte {
	rom := makeTestCart(MapLoROM, 0x8000, 0)
	rom[loROMHeaderBase+hdrCountry] = country
	fixChecksum(rom, loROMHeaderBase)
	return rom
}

func TestDetectRegion_Japan(t *testing.T) {
	if got := DetectRegion(makeROM(0)); got != RegionNTSC {
		t.Errorf("Japan: got %v, want NTSC", got)
	}
}

func TestDetectRegion_USA(t *testing.T) {
	if got := DetectRegion(makeROM(1)); got != RegionNTSC {
		t.Errorf("USA: got %v, want NTSC", got)
	}
}

func TestDetectRegion_Europe(t *testing.T) {
	if got := DetectRegion(makeROM(2)); got != RegionPAL {
		t.Errorf("Europe: got %v, want PAL", got)
	}
}

func TestDetectRegion_PALCountries(t *testing.T) {
	for code := uint8(2); code <= 12; code++ {
		if got := regionForCountry(code); got != RegionPAL {
			t.Errorf("country %d: got %v, want PAL", code, got)
		}
	}
	if got := regionForCountry(17); got != RegionPAL {
		t.Errorf("Australia: got %v, want PAL", got)
	}
}

func TestDetectRegion_NTSCCountries(t *testing.T) {
	for _, code := range []uint8{0, 1, 13, 14, 15, 16, 18, 19, 20} {
		if got := regionForCountry(code); got != RegionNTSC {
			t.Errorf("country %d: got %v, want NTSC", code, got)
		}
	}
}

func TestDetectRegion_ROMTooShort(t *testing.T) {
	rom := make([]byte, 0x100)
	if got := DetectRegion(rom); got != RegionNTSC {
		t.Errorf("short ROM: got %v, want NTSC (default)", got)
	}
}

func TestGetTimingForRegion(t *testing.T) {
	ntsc := GetTimingForRegion(RegionNTSC)
	if ntsc.Scanlines != 262 || ntsc.FPS != 60 || ntsc.MasterClockHz != 21477272 {
		t.Errorf("unexpected NTSC timing: %+v", ntsc)
	}
	pal := GetTimingForRegion(RegionPAL)
	if pal.Scanlines != 312 || pal.FPS != 50 || pal.MasterClockHz != 21281370 {
		t.Errorf("unexpected PAL timing: %+v", pal)
	}
}

func TestRegionTiming_APURatio(t *testing.T) {
	for _, timing := range []RegionTiming{NTSCTiming, PALTiming} {
		got := timing.masterToAPU(uint64(timing.MasterClockHz))
		if d := int(got) - timing.APUClockHz; d < -1 || d > 1 {
			t.Errorf("%d Hz master: expected about %d SPC cycles per second, got %d",
				timing.MasterClockHz, timing.APUClockHz, got)
		}
	}
}

func TestRegionTiming_APUToMasterRoundTrip(t *testing.T) {
	for _, apu := range []uint64{0, 1, 32, 1000, 1024000} {
		master := NTSCTiming.apuToMaster(apu)
		// master is the floor, so one more master cycle reaches apu.
		if got := NTSCTiming.masterToAPU(master + 1); got < apu {
			t.Errorf("apu %d: master %d converts back to %d", apu, master, got)
		}
		if apu > 0 {
			if got := NTSCTiming.masterToAPU(master - 1); got >= apu {
				t.Errorf("apu %d: expected master %d to be the first cycle reaching it", apu, master)
			}
		}
	}
}

func TestDefaultRegion(t *testing.T) {
	if DefaultRegion() != RegionNTSC {
		t.Errorf("expected NTSC default, got %v", DefaultRegion())
	}
}

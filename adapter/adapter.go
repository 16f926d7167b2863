package adapter

import (
	emucore "github.com/user-none/eblitui/api"
	"github.com/user-none/emsnes/emu"
)

// Compile-time interface check.
var _ emucore.CoreFactory = (*Factory)(nil)

// Factory implements emucore.CoreFactory for the SNES emulator.
type Factory struct{}

// SystemInfo returns system metadata for UI configuration.
func (f *Factory) SystemInfo() emucore.SystemInfo {
	return emucore.SystemInfo{
		Name:            "emsnes",
		ConsoleName:     "Super Nintendo",
		Extensions:      []string{".sfc", ".smc"},
		ScreenWidth:     emu.ScreenWidth,
		MaxScreenHeight: emu.MaxScreenHeight,
		AspectRatio:     4.0 / 3.0,
		SampleRate:      48000,
		Buttons: []emucore.Button{
			{Name: "A", ID: 4, DefaultKey: "K", DefaultPad: "B"},
			{Name: "B", ID: 5, DefaultKey: "J", DefaultPad: "A"},
			{Name: "X", ID: 6, DefaultKey: "I", DefaultPad: "Y"},
			{Name: "Y", ID: 7, DefaultKey: "U", DefaultPad: "X"},
			{Name: "L", ID: 8, DefaultKey: "Q", DefaultPad: "L1"},
			{Name: "R", ID: 9, DefaultKey: "E", DefaultPad: "R1"},
			{Name: "Start", ID: 10, DefaultKey: "Enter", DefaultPad: "Start"},
			{Name: "Select", ID: 11, DefaultKey: "RightShift", DefaultPad: "Back"},
		},
		Players: 2,
		CoreOptions: []emucore.CoreOption{
			{
				Key:         "threaded_apu",
				Label:       "Threaded Sound",
				Description: "Run the sound processor on its own thread",
				Type:        emucore.CoreOptionBool,
				Default:     "false",
				Category:    emucore.CoreOptionCategoryCore,
			},
		},
		RDBName:       "Nintendo - Super Nintendo Entertainment System",
		ThumbnailRepo: "Nintendo_-_Super_Nintendo_Entertainment_System",
		DataDirName:   "emsnes",
		ConsoleID:     3,
		CoreName:      emu.Name,
		CoreVersion:   emu.Version,
		SerializeSize: emu.SerializeSize(),
	}
}

// CreateEmulator creates a new emulator instance with the given ROM and region.
func (f *Factory) CreateEmulator(rom []byte, region emucore.Region) (emucore.Emulator, error) {
	e, err := emu.NewEmulator(rom, region)
	if err != nil {
		return nil, err
	}
	return e, nil
}

// DetectRegion auto-detects the region from the cartridge header.
// The bool return is false since emsnes reads the header country code,
// not a ROM database.
func (f *Factory) DetectRegion(rom []byte) (emucore.Region, bool) {
	return emu.DetectRegion(rom), false
}

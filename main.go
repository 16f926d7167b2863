package main

import (
	"flag"
	"log"
	"os"
	"path/filepath"
	"strings"

	"github.com/hajimehoshi/ebiten/v2"
	emubridge "github.com/user-none/emsnes/bridge/ebiten"
	"github.com/user-none/emsnes/cli"
	"github.com/user-none/emsnes/emu"
)

func main() {
	romPath := flag.String("rom", "", "path to ROM file (required)")
	regionFlag := flag.String("region", "auto", "region: auto, ntsc, or pal")
	threaded := flag.Bool("threaded", false, "run the sound processor on its own goroutine")
	flag.Parse()

	if *romPath == "" {
		log.Fatal("ROM path is required. Usage: emsnes -rom <path>")
	}

	romData, err := os.ReadFile(*romPath)
	if err != nil {
		log.Fatalf("Failed to load ROM: %v", err)
	}

	var region emu.Region
	switch strings.ToLower(*regionFlag) {
	case "auto":
		region = emu.DetectRegion(romData)
	case "ntsc":
		region = emu.RegionNTSC
	case "pal":
		region = emu.RegionPAL
	default:
		log.Fatalf("Invalid region: %s (use auto, ntsc, or pal)", *regionFlag)
	}

	e, err := emubridge.NewEmulator(romData, region)
	if err != nil {
		log.Fatalf("Failed to initialize emulator: %v", err)
	}
	if err := e.Cartridge().ChecksumError(); err != nil {
		log.Printf("Warning: %v", err)
	}
	e.SetThreaded(*threaded)

	srmPath := strings.TrimSuffix(*romPath, filepath.Ext(*romPath)) + ".srm"
	if e.HasSRAM() {
		if data, err := os.ReadFile(srmPath); err == nil {
			e.SetSRAM(data)
		}
	}

	ebiten.SetWindowSize(emu.ScreenWidth*2*8/7, emu.DefaultScreenHeight*2)
	ebiten.SetWindowTitle(emu.Name + " - " + e.Cartridge().Title())
	ebiten.SetWindowResizingMode(ebiten.WindowResizingModeEnabled)
	ebiten.SetWindowSizeLimits(292, 224, -1, -1)
	ebiten.SetTPS(e.GetTiming().FPS)

	runner := cli.NewRunner(e)
	runErr := ebiten.RunGame(runner)

	// The emulation goroutine must be gone before SRAM is read.
	runner.Close()
	if e.HasSRAM() {
		if err := os.WriteFile(srmPath, e.GetSRAM(), 0644); err != nil {
			log.Printf("Warning: failed to save SRAM: %v", err)
		}
	}
	e.Close()

	if runErr != nil {
		log.Fatal(runErr)
	}
}

// Command snesrec runs a cartridge headless and records its output:
// PNG frames, a WAV of the audio and optionally a compressed save state.
package main

import (
	"context"
	"errors"
	"flag"
	"log"
	"os"
	"os/signal"

	"github.com/spf13/afero"
)

func main() {
	romPath := flag.String("rom", "", "path to ROM file (required)")
	regionFlag := flag.String("region", "auto", "region: auto, ntsc, or pal")
	frames := flag.Int("frames", 600, "frames to record (0 = until interrupted)")
	outDir := flag.String("out", "out", "output directory")
	inputFlag := flag.String("input", "", "held buttons, e.g. start@60-65,a@120-")
	every := flag.Int("every", 60, "write every Nth frame as PNG (0 = none)")
	saveState := flag.Bool("state", false, "write final.state.zst at the end")
	loadState := flag.String("load-state", "", "resume from a .state.zst file")
	threaded := flag.Bool("threaded", false, "run the sound processor on its own goroutine")
	flag.Parse()

	if *romPath == "" {
		log.Fatal("ROM path is required. Usage: snesrec -rom <path>")
	}
	script, err := parseInput(*inputFlag)
	if err != nil {
		log.Fatalf("Invalid input: %v", err)
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt)
	defer stop()

	res, err := Run(ctx, afero.NewOsFs(), Config{
		ROMPath:   *romPath,
		Region:    *regionFlag,
		Frames:    *frames,
		OutDir:    *outDir,
		Input:     script,
		Every:     *every,
		SaveState: *saveState,
		LoadState: *loadState,
		Threaded:  *threaded,
	})
	log.Printf("Recorded %d frames, %d images, %d audio frames to %s", res.Frames, res.Images, res.AudioFrames, *outDir)
	if err != nil && !errors.Is(err, context.Canceled) {
		log.Fatal(err)
	}
}

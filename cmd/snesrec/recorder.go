package main

import (
	"context"
	"errors"
	"fmt"
	"image"
	"image/png"
	"path"
	"strings"

	"github.com/go-audio/audio"
	"github.com/go-audio/wav"
	"github.com/klauspost/compress/zstd"
	"github.com/spf13/afero"
	"github.com/user-none/emsnes/emu"
)

const (
	audioFile = "audio.wav"
	stateFile = "final.state.zst"
)

// Config describes one recording run.
type Config struct {
	ROMPath   string
	Region    string // auto, ntsc or pal
	Frames    int    // 0 runs until cancelled
	OutDir    string
	Input     inputScript
	Every     int    // Write every Every-th frame as PNG; 0 writes none
	SaveState bool   // Write final.state.zst when the run ends
	LoadState string // zstd-compressed state to resume from
	Threaded  bool
}

// Result summarizes a finished run.
type Result struct {
	Frames      int
	Images      int
	AudioFrames int // Stereo sample pairs written
}

// errFrameLimit ends RunContext once the requested frames are recorded.
var errFrameLimit = errors.New("frame limit reached")

func parseRegion(s string, rom []byte) (emu.Region, error) {
	switch strings.ToLower(s) {
	case "", "auto":
		return emu.DetectRegion(rom), nil
	case "ntsc":
		return emu.RegionNTSC, nil
	case "pal":
		return emu.RegionPAL, nil
	}
	return 0, fmt.Errorf("invalid region: %s (use auto, ntsc, or pal)", s)
}

// Run records cfg.Frames frames into cfg.OutDir on fs. Cancelling ctx
// stops at the next frame boundary; the WAV and state are still finished
// and ctx's error is returned with the partial result.
func Run(ctx context.Context, fs afero.Fs, cfg Config) (Result, error) {
	var res Result

	rom, err := afero.ReadFile(fs, cfg.ROMPath)
	if err != nil {
		return res, fmt.Errorf("failed to load ROM: %w", err)
	}
	region, err := parseRegion(cfg.Region, rom)
	if err != nil {
		return res, err
	}
	e, err := emu.NewEmulator(rom, region)
	if err != nil {
		return res, err
	}
	defer e.Close()
	e.SetThreaded(cfg.Threaded)

	if cfg.LoadState != "" {
		if err := loadState(fs, e, cfg.LoadState); err != nil {
			return res, err
		}
	}

	if err := fs.MkdirAll(cfg.OutDir, 0755); err != nil {
		return res, err
	}
	f, err := fs.Create(path.Join(cfg.OutDir, audioFile))
	if err != nil {
		return res, err
	}
	defer f.Close()
	enc := wav.NewEncoder(f, 48000, 16, 2, 1)
	buf := &audio.IntBuffer{
		Format:         &audio.Format{NumChannels: 2, SampleRate: 48000},
		SourceBitDepth: 16,
	}

	frame := 0
	input := func() [2]emu.ControllerState {
		return [2]emu.ControllerState{emu.PadState(cfg.Input.mask(frame))}
	}
	runErr := e.RunContext(ctx, input, func(out *emu.FrameOutput) error {
		buf.Data = buf.Data[:0]
		for _, s := range out.Audio {
			buf.Data = append(buf.Data, int(s))
		}
		if err := enc.Write(buf); err != nil {
			return fmt.Errorf("write audio: %w", err)
		}
		res.AudioFrames += len(out.Audio) / 2

		if cfg.Every > 0 && frame%cfg.Every == 0 {
			if err := writePNG(fs, path.Join(cfg.OutDir, fmt.Sprintf("frame_%04d.png", frame)), out); err != nil {
				return err
			}
			res.Images++
		}

		frame++
		res.Frames = frame
		if cfg.Frames > 0 && frame >= cfg.Frames {
			return errFrameLimit
		}
		return nil
	})
	if errors.Is(runErr, errFrameLimit) {
		runErr = nil
	}

	if err := enc.Close(); err != nil && runErr == nil {
		runErr = fmt.Errorf("finish audio: %w", err)
	}
	if cfg.SaveState && e.Err() == nil {
		if err := saveState(fs, e, path.Join(cfg.OutDir, stateFile)); err != nil && runErr == nil {
			runErr = err
		}
	}
	return res, runErr
}

func writePNG(fs afero.Fs, name string, out *emu.FrameOutput) error {
	img := &image.RGBA{
		Pix:    out.Pixels[:out.Stride*out.Height],
		Stride: out.Stride,
		Rect:   image.Rect(0, 0, out.Width, out.Height),
	}
	f, err := fs.Create(name)
	if err != nil {
		return err
	}
	if err := png.Encode(f, img); err != nil {
		f.Close()
		return fmt.Errorf("encode %s: %w", name, err)
	}
	return f.Close()
}

func saveState(fs afero.Fs, e *emu.Emulator, name string) error {
	state, err := e.Serialize()
	if err != nil {
		return fmt.Errorf("save state: %w", err)
	}
	enc, err := zstd.NewWriter(nil)
	if err != nil {
		return err
	}
	defer enc.Close()
	return afero.WriteFile(fs, name, enc.EncodeAll(state, nil), 0644)
}

func loadState(fs afero.Fs, e *emu.Emulator, name string) error {
	data, err := afero.ReadFile(fs, name)
	if err != nil {
		return fmt.Errorf("load state: %w", err)
	}
	dec, err := zstd.NewReader(nil)
	if err != nil {
		return err
	}
	defer dec.Close()
	state, err := dec.DecodeAll(data, nil)
	if err != nil {
		return fmt.Errorf("load state: %w", err)
	}
	if err := e.Deserialize(state); err != nil {
		return fmt.Errorf("load state: %w", err)
	}
	return nil
}

package main

import (
	"context"
	"encoding/binary"
	"errors"
	"image/png"
	"testing"

	"github.com/go-audio/wav"
	"github.com/spf13/afero"
)

// testROM returns a 32KB LoROM image that loops forever at $8000.
func testROM() []byte {
	rom := make([]byte, 0x8000)
	copy(rom, []byte{
		0xE6, 0x10, // INC $10
		0x80, 0xFC, // BRA -4
	})
	h := rom[0x7FC0:]
	copy(h, "RECORDER TEST        ")
	h[0x15] = 0x20
	h[0x17] = 8
	h[0x19] = 1
	binary.LittleEndian.PutUint16(h[0x3C:], 0x8000)
	return rom
}

func newTestFs(t *testing.T) afero.Fs {
	t.Helper()
	fs := afero.NewMemMapFs()
	if err := afero.WriteFile(fs, "/roms/test.sfc", testROM(), 0644); err != nil {
		t.Fatalf("WriteFile: %v", err)
	}
	return fs
}

func TestRun_WritesFramesAndAudio(t *testing.T) {
	fs := newTestFs(t)
	res, err := Run(context.Background(), fs, Config{
		ROMPath: "/roms/test.sfc",
		Frames:  5,
		OutDir:  "/out",
		Every:   2,
	})
	if err != nil {
		t.Fatalf("Run: %v", err)
	}
	if res.Frames != 5 || res.Images != 3 {
		t.Errorf("expected 5 frames and 3 images, got %d and %d", res.Frames, res.Images)
	}

	for _, name := range []string{"/out/frame_0000.png", "/out/frame_0002.png", "/out/frame_0004.png"} {
		f, err := fs.Open(name)
		if err != nil {
			t.Fatalf("expected %s: %v", name, err)
		}
		img, err := png.Decode(f)
		f.Close()
		if err != nil {
			t.Fatalf("decode %s: %v", name, err)
		}
		if b := img.Bounds(); b.Dx() != 256 || b.Dy() != 224 {
			t.Errorf("%s: expected 256x224, got %dx%d", name, b.Dx(), b.Dy())
		}
	}
	if ok, _ := afero.Exists(fs, "/out/frame_0001.png"); ok {
		t.Error("expected odd frames to be skipped")
	}

	f, err := fs.Open("/out/audio.wav")
	if err != nil {
		t.Fatalf("open audio: %v", err)
	}
	defer f.Close()
	dec := wav.NewDecoder(f)
	if !dec.IsValidFile() {
		t.Fatal("expected a valid WAV file")
	}
	buf, err := dec.FullPCMBuffer()
	if err != nil {
		t.Fatalf("FullPCMBuffer: %v", err)
	}
	if dec.SampleRate != 48000 || dec.NumChans != 2 || dec.BitDepth != 16 {
		t.Errorf("expected 48kHz 16-bit stereo, got %d Hz %d-bit %d ch", dec.SampleRate, dec.BitDepth, dec.NumChans)
	}
	if len(buf.Data)/2 != res.AudioFrames {
		t.Errorf("expected %d audio frames, got %d", res.AudioFrames, len(buf.Data)/2)
	}
	// Four full frames plus the shorter first one at about 800 pairs each.
	if res.AudioFrames < 3500 || res.AudioFrames > 4100 {
		t.Errorf("unexpected audio frame count %d", res.AudioFrames)
	}
}

func TestRun_StateRoundTrip(t *testing.T) {
	fs := newTestFs(t)
	_, err := Run(context.Background(), fs, Config{
		ROMPath:   "/roms/test.sfc",
		Frames:    3,
		OutDir:    "/first",
		SaveState: true,
	})
	if err != nil {
		t.Fatalf("Run: %v", err)
	}
	if ok, _ := afero.Exists(fs, "/first/final.state.zst"); !ok {
		t.Fatal("expected a compressed state")
	}

	res, err := Run(context.Background(), fs, Config{
		ROMPath:   "/roms/test.sfc",
		Frames:    1,
		OutDir:    "/second",
		LoadState: "/first/final.state.zst",
		Every:     1,
	})
	if err != nil {
		t.Fatalf("Run from state: %v", err)
	}
	if res.Frames != 1 || res.Images != 1 {
		t.Errorf("expected one frame, got %+v", res)
	}
}

func TestRun_CorruptStateRejected(t *testing.T) {
	fs := newTestFs(t)
	afero.WriteFile(fs, "/bad.zst", []byte("not zstd"), 0644)
	_, err := Run(context.Background(), fs, Config{
		ROMPath:   "/roms/test.sfc",
		Frames:    1,
		OutDir:    "/out",
		LoadState: "/bad.zst",
	})
	if err == nil {
		t.Error("expected an error for a corrupt state")
	}
}

func TestRun_Cancelled(t *testing.T) {
	fs := newTestFs(t)
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	res, err := Run(ctx, fs, Config{
		ROMPath: "/roms/test.sfc",
		Frames:  10,
		OutDir:  "/out",
	})
	if !errors.Is(err, context.Canceled) {
		t.Errorf("expected context.Canceled, got %v", err)
	}
	if res.Frames != 0 {
		t.Errorf("expected no frames, got %d", res.Frames)
	}
	if ok, _ := afero.Exists(fs, "/out/audio.wav"); !ok {
		t.Error("expected the WAV to be created")
	}
}

func TestRun_Errors(t *testing.T) {
	fs := newTestFs(t)
	if _, err := Run(context.Background(), fs, Config{ROMPath: "/missing.sfc", OutDir: "/out"}); err == nil {
		t.Error("expected an error for a missing ROM")
	}
	if _, err := Run(context.Background(), fs, Config{ROMPath: "/roms/test.sfc", Region: "secam", OutDir: "/out"}); err == nil {
		t.Error("expected an error for a bad region")
	}
	afero.WriteFile(fs, "/tiny.sfc", make([]byte, 64), 0644)
	if _, err := Run(context.Background(), fs, Config{ROMPath: "/tiny.sfc", OutDir: "/out"}); err == nil {
		t.Error("expected an error for an invalid cartridge")
	}
}

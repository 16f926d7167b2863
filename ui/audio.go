package ui

import (
	"fmt"
	"sync"
	"time"

	"github.com/ebitengine/oto/v3"
)

const audioSampleRate = 48000

// ringBufferCapacity holds about 170ms of 48kHz stereo 16-bit audio.
const ringBufferCapacity = 8192 * bytesPerFrame

// playerBufferSize is oto's own read-ahead, 100ms.
const playerBufferSize = audioSampleRate / 10 * bytesPerFrame

// AudioPlayer plays the emulator's 48kHz stereo stream through oto. oto
// pulls from a ring buffer that the emulation goroutine fills each frame.
type AudioPlayer struct {
	player     *oto.Player
	ringBuffer *AudioRingBuffer
}

// There is one oto context per process.
var (
	otoCtx      *oto.Context
	otoInitOnce sync.Once
	otoInitErr  error
)

func ensureOtoContext() (*oto.Context, error) {
	otoInitOnce.Do(func() {
		var ready chan struct{}
		otoCtx, ready, otoInitErr = oto.NewContext(&oto.NewContextOptions{
			SampleRate:   audioSampleRate,
			ChannelCount: 2,
			Format:       oto.FormatSignedInt16LE,
			BufferSize:   50 * time.Millisecond,
		})
		if otoInitErr != nil {
			return
		}
		<-ready
	})
	return otoCtx, otoInitErr
}

// NewAudioPlayer starts playback at the given volume.
func NewAudioPlayer(volume float64) (*AudioPlayer, error) {
	ctx, err := ensureOtoContext()
	if err != nil {
		return nil, fmt.Errorf("oto audio not available: %w", err)
	}

	rb := NewAudioRingBuffer(ringBufferCapacity)
	player := ctx.NewPlayer(rb)
	player.SetBufferSize(playerBufferSize)
	player.SetVolume(volume)
	player.Play()

	return &AudioPlayer{player: player, ringBuffer: rb}, nil
}

// QueueSamples hands one frame of interleaved stereo samples to oto.
func (a *AudioPlayer) QueueSamples(samples []int16) {
	a.ringBuffer.WriteSamples(samples)
}

// Flush drops queued audio, for use after a reset or state load.
func (a *AudioPlayer) Flush() {
	a.ringBuffer.Clear()
}

// GetBufferLevel returns the bytes queued in the ring buffer and oto's
// player together. The frame pacer steers on it.
func (a *AudioPlayer) GetBufferLevel() int {
	return a.ringBuffer.Buffered() + a.player.BufferedSize()
}

// SetVolume sets the playback volume (0.0 = silent, 1.0 = full).
func (a *AudioPlayer) SetVolume(vol float64) {
	a.player.SetVolume(vol)
}

// Close stops playback.
func (a *AudioPlayer) Close() {
	if a.ringBuffer != nil {
		a.ringBuffer.Close()
	}
	if a.player != nil {
		a.player.Close()
	}
}

package ui

import "time"

// Audio buffer thresholds for pacing, in bytes. About 50ms and 100ms of
// 48kHz stereo.
const (
	paceMinBuffer = 9600
	paceMaxBuffer = 19200
)

// FramePacer spaces frames at the console's rate and nudges the spacing
// to keep the audio queue between paceMinBuffer and paceMaxBuffer.
type FramePacer struct {
	frameTime time.Duration
	last      time.Time
}

// NewFramePacer paces at fps frames per second starting from now.
func NewFramePacer(fps int, now time.Time) *FramePacer {
	return &FramePacer{
		frameTime: time.Second / time.Duration(fps),
		last:      now,
	}
}

// Delay returns how long to sleep before the next frame. bufferLevel is
// the queued audio in bytes, or -1 when there is no audio output.
func (p *FramePacer) Delay(now time.Time, bufferLevel int) time.Duration {
	d := p.frameTime - now.Sub(p.last)
	switch {
	case bufferLevel < 0:
	case bufferLevel < paceMinBuffer:
		d = d * 9 / 10
	case bufferLevel > paceMaxBuffer:
		d = d * 11 / 10
	}
	if d <= time.Millisecond {
		return 0
	}
	return d
}

// Mark records the start of a frame.
func (p *FramePacer) Mark(now time.Time) {
	p.last = now
}

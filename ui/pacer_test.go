package ui

import (
	"testing"
	"time"
)

func TestFramePacer_Delay(t *testing.T) {
	start := time.Unix(0, 0)
	p := NewFramePacer(50, start)
	now := start.Add(5 * time.Millisecond)

	tests := []struct {
		name  string
		level int
		want  time.Duration
	}{
		{"noAudio", -1, 15 * time.Millisecond},
		{"steady", (paceMinBuffer + paceMaxBuffer) / 2, 15 * time.Millisecond},
		{"starved", 0, 13500 * time.Microsecond},
		{"full", paceMaxBuffer + 1, 16500 * time.Microsecond},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := p.Delay(now, tt.level); got != tt.want {
				t.Errorf("expected %v, got %v", tt.want, got)
			}
		})
	}
}

func TestFramePacer_LateFrameDoesNotSleep(t *testing.T) {
	start := time.Unix(0, 0)
	p := NewFramePacer(60, start)
	if d := p.Delay(start.Add(40*time.Millisecond), -1); d != 0 {
		t.Errorf("expected no sleep for a late frame, got %v", d)
	}
	p.Mark(start.Add(40 * time.Millisecond))
	if d := p.Delay(start.Add(40*time.Millisecond), -1); d != time.Second/60 {
		t.Errorf("expected a full frame after Mark, got %v", d)
	}
}

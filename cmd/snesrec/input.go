package main

import (
	"fmt"
	"strconv"
	"strings"
)

// buttonBits maps button names to eblitui mask bits.
var buttonBits = map[string]uint{
	"up": 0, "down": 1, "left": 2, "right": 3,
	"a": 4, "b": 5, "x": 6, "y": 7,
	"l": 8, "r": 9, "start": 10, "select": 11,
}

// inputSpan holds a button from frame first to last inclusive. last < 0
// means until the end of the run.
type inputSpan struct {
	bit         uint
	first, last int
}

// inputScript is a list of held buttons over frame ranges.
type inputScript []inputSpan

// parseInput reads a comma-separated list of "button", "button@N" (one
// frame), "button@N-M" or "button@N-" (to the end). Frames count from 0.
func parseInput(s string) (inputScript, error) {
	var script inputScript
	for _, item := range strings.Split(s, ",") {
		item = strings.TrimSpace(strings.ToLower(item))
		if item == "" {
			continue
		}
		name, frames, hasFrames := strings.Cut(item, "@")
		bit, ok := buttonBits[name]
		if !ok {
			return nil, fmt.Errorf("unknown button %q", name)
		}
		span := inputSpan{bit: bit, first: 0, last: -1}
		if hasFrames {
			var err error
			span.first, span.last, err = parseRange(frames)
			if err != nil {
				return nil, fmt.Errorf("button %s: %w", name, err)
			}
		}
		script = append(script, span)
	}
	return script, nil
}

func parseRange(s string) (first, last int, err error) {
	from, to, isRange := strings.Cut(s, "-")
	first, err = strconv.Atoi(from)
	if err != nil || first < 0 {
		return 0, 0, fmt.Errorf("bad frame %q", from)
	}
	if !isRange {
		return first, first, nil
	}
	if to == "" {
		return first, -1, nil
	}
	last, err = strconv.Atoi(to)
	if err != nil || last < first {
		return 0, 0, fmt.Errorf("bad frame range %q", s)
	}
	return first, last, nil
}

// mask returns the buttons held on frame.
func (s inputScript) mask(frame int) uint32 {
	var m uint32
	for _, span := range s {
		if frame >= span.first && (span.last < 0 || frame <= span.last) {
			m |= 1 << span.bit
		}
	}
	return m
}

package emu

// Core identification reported to frontends.
const (
	Name    = "emsnes"
	Version = "0.1.0"
)

package main

import (
	libretro "github.com/user-none/eblitui/libretro"
	"github.com/user-none/emsnes/adapter"
)

func init() {
	// The retropad face buttons share the SNES layout, so they map by name.
	libretro.RegisterFactory(&adapter.Factory{}, []libretro.RetropadMapping{
		{RetroID: libretro.JoypadA, BitID: 4},       // A
		{RetroID: libretro.JoypadB, BitID: 5},       // B
		{RetroID: libretro.JoypadX, BitID: 6},       // X
		{RetroID: libretro.JoypadY, BitID: 7},       // Y
		{RetroID: libretro.JoypadL, BitID: 8},       // L
		{RetroID: libretro.JoypadR, BitID: 9},       // R
		{RetroID: libretro.JoypadStart, BitID: 10},  // Start
		{RetroID: libretro.JoypadSelect, BitID: 11}, // Select
	})
}

func main() {}

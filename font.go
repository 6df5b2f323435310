package main

import (
	"bytes"
	"image/color"
	"log"

	text "github.com/hajimehoshi/ebiten/v2/text/v2"
	dark "github.com/thiagokokada/dark-mode-go"
	"golang.org/x/image/font/gofont/goregular"
)

var labelFont, uiFont text.Face

func initFont() {
	src, err := text.NewGoTextFaceSource(bytes.NewReader(goregular.TTF))
	if err != nil {
		log.Fatalf("failed to parse font: %v", err)
	}
	labelFont = &text.GoTextFace{Source: src, Size: gs.LabelFontSize}
	uiFont = &text.GoTextFace{Source: src, Size: 16}
}

// palette is the set of colors the window is drawn with.
type palette struct {
	Background color.Color
	Label      color.Color
	LabelPlate color.Color
	Bar        color.Color
	BarText    color.Color
	AlertBG    color.Color
	AlertText  color.Color
	Shade      color.Color
}

var lightPalette = palette{
	Background: color.RGBA{0xf4, 0xf1, 0xe8, 0xff},
	Label:      color.Black,
	LabelPlate: color.NRGBA{0xff, 0xff, 0xff, 0xb0},
	Bar:        color.RGBA{0xdd, 0xd8, 0xcc, 0xff},
	BarText:    color.Black,
	AlertBG:    color.RGBA{0xff, 0xff, 0xff, 0xff},
	AlertText:  color.Black,
	Shade:      color.NRGBA{0, 0, 0, 0x60},
}

var darkPalette = palette{
	Background: color.RGBA{0x1e, 0x20, 0x24, 0xff},
	Label:      color.White,
	LabelPlate: color.NRGBA{0, 0, 0, 0xa0},
	Bar:        color.RGBA{0x2c, 0x2f, 0x36, 0xff},
	BarText:    color.White,
	AlertBG:    color.RGBA{0x3a, 0x3e, 0x46, 0xff},
	AlertText:  color.White,
	Shade:      color.NRGBA{0, 0, 0, 0x90},
}

// themePalette picks the palette for gs.Theme, asking the desktop when the
// theme is unset.
func themePalette() palette {
	switch gs.Theme {
	case "dark":
		return darkPalette
	case "light":
		return lightPalette
	}
	isDark, err := dark.IsDarkMode()
	if err != nil {
		logDebug("dark mode: %v", err)
		return darkPalette
	}
	if isDark {
		return darkPalette
	}
	return lightPalette
}

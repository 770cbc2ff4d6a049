package theme

import (
	"image/color"
)

// Theme defines the colours of the viewer window.
type Theme struct {
	Name string

	// Window
	Background color.RGBA // Behind the image
	Foreground color.RGBA // Status text

	// Status bar
	StatusBackground color.RGBA
	StatusText       color.RGBA
	StatusWarning    color.RGBA

	// Crop editor
	CropBorder    color.RGBA // Dashes of the crop outline
	CropBorderAlt color.RGBA // Gaps of the crop outline
	CropShade     color.RGBA // Drawn over the image outside the crop
	HandleFill    color.RGBA
	HandleBorder  color.RGBA
}

// Default returns the built-in dark theme used when nothing else is found.
func Default() *Theme {
	return &Theme{
		Name:             "Default",
		Background:       color.RGBA{16, 16, 16, 255},
		Foreground:       color.RGBA{230, 230, 230, 255},
		StatusBackground: color.RGBA{32, 32, 32, 255},
		StatusText:       color.RGBA{230, 230, 230, 255},
		StatusWarning:    color.RGBA{255, 190, 60, 255},
		CropBorder:       color.RGBA{255, 255, 255, 255},
		CropBorderAlt:    color.RGBA{0, 0, 0, 255},
		CropShade:        color.RGBA{0, 0, 0, 128},
		HandleFill:       color.RGBA{255, 255, 255, 255},
		HandleBorder:     color.RGBA{0, 0, 0, 255},
	}
}

package export

import (
	"fmt"
	"image"
	"image/png"
	"io"
	"strings"

	"github.com/chai2010/webp"
	"github.com/disintegration/imaging"
)

// Format is the output encoding.
type Format string

const (
	FormatPNG  Format = "png"
	FormatWebP Format = "webp"
)

// ParseFormat accepts png or webp, case-insensitively. Empty means PNG.
func ParseFormat(s string) (Format, error) {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "", "png":
		return FormatPNG, nil
	case "webp":
		return FormatWebP, nil
	}
	return "", fmt.Errorf("unsupported output format %q", s)
}

// Ext returns the file extension including the dot.
func (f Format) Ext() string {
	if f == FormatWebP {
		return ".webp"
	}
	return ".png"
}

// MIMEType returns the media type of the encoding.
func (f Format) MIMEType() string {
	if f == FormatWebP {
		return "image/webp"
	}
	return "image/png"
}

// Encode writes img to w. Both formats are lossless.
func Encode(w io.Writer, img image.Image, f Format) error {
	switch f {
	case FormatWebP:
		if err := webp.Encode(w, img, &webp.Options{Lossless: true, Quality: 100}); err != nil {
			return fmt.Errorf("encode webp: %w", err)
		}
		return nil
	case FormatPNG, "":
		if err := imaging.Encode(w, img, imaging.PNG, imaging.PNGCompressionLevel(png.BestSpeed)); err != nil {
			return fmt.Errorf("encode png: %w", err)
		}
		return nil
	}
	return fmt.Errorf("unsupported output format %q", f)
}

package overlay

import (
	"fmt"
	"image/color"
	"strings"

	colorful "github.com/lucasb-eyer/go-colorful"
	"golang.org/x/image/colornames"
)

// ParseColor reads an SVG paint value. ok is false for "none" and empty
// values.
func ParseColor(s string) (c color.RGBA, ok bool, err error) {
	s = strings.ToLower(strings.TrimSpace(s))
	switch s {
	case "", "none", "transparent":
		return color.RGBA{}, false, nil
	}
	if strings.HasPrefix(s, "#") {
		cf, err := colorful.Hex(s)
		if err != nil {
			return color.RGBA{}, false, fmt.Errorf("colour %q: %w", s, err)
		}
		r, g, b := cf.RGB255()
		return color.RGBA{R: r, G: g, B: b, A: 255}, true, nil
	}
	if named, found := colornames.Map[s]; found {
		return named, true, nil
	}
	return color.RGBA{}, false, fmt.Errorf("unsupported colour %q", s)
}

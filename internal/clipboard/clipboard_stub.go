//go:build !(linux || freebsd || openbsd || netbsd || dragonfly)

package clipboard

import "errors"

var errUnsupported = errors.New("clipboard operations are not supported on this platform")

func writeKeyImage([]byte, string) error { return errUnsupported }

// WriteText writes text data to the clipboard.
func WriteText(string) error { return errUnsupported }

// Package clipboard places finished key images on the system clipboard.
package clipboard

import (
	"bytes"
	"errors"
	"fmt"

	"github.com/chai2010/webp"
	"github.com/disintegration/imaging"

	"github.com/example/keyshot/internal/export"
)

// ErrEmpty is returned when there is nothing to copy.
var ErrEmpty = errors.New("clipboard: empty key image")

// Copy publishes res as image/png, along with a one-line description of the
// image as text where the platform allows both.
func Copy(res *export.Result) error {
	data, err := pngPayload(res)
	if err != nil {
		return err
	}
	return writeKeyImage(data, Describe(res.Metadata))
}

// Describe is the text form of a key image's identity.
func Describe(md export.Metadata) string {
	return fmt.Sprintf("key image study=%s series=%s sop=%s %dx%d",
		md.StudyID, md.SeriesID, md.ImageID, md.Width, md.Height)
}

// pngPayload returns res as PNG bytes, transcoding WebP exports.
func pngPayload(res *export.Result) ([]byte, error) {
	if res == nil || len(res.Payload) == 0 {
		return nil, ErrEmpty
	}
	if res.Format != export.FormatWebP {
		return res.Payload, nil
	}
	img, err := webp.Decode(bytes.NewReader(res.Payload))
	if err != nil {
		return nil, fmt.Errorf("clipboard: decode webp: %w", err)
	}
	var buf bytes.Buffer
	if err := imaging.Encode(&buf, img, imaging.PNG); err != nil {
		return nil, err
	}
	return buf.Bytes(), nil
}

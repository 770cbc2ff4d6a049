// Package annotation holds the annotation records read by the renderers and
// the store they live in.
package annotation

import (
	"encoding/json"
	"fmt"
	"io"
	"os"
	"strings"

	"github.com/example/keyshot/internal/geom"
)

// Kind identifies an annotation variant.
type Kind string

const (
	KindArrow Kind = "arrow"
	KindText  Kind = "text"
)

// Base style values at zoom 1.
const (
	DefaultLineWidth = 1.5
	DefaultFontSize  = 14
)

// Style is authored at the un-zoomed base scale.
type Style struct {
	LineWidth float64 `json:"lineWidth,omitempty"`
	FontSize  float64 `json:"fontSize,omitempty"`
}

// WithDefaults fills unset style values.
func (s Style) WithDefaults() Style {
	if s.LineWidth <= 0 {
		s.LineWidth = DefaultLineWidth
	}
	if s.FontSize <= 0 {
		s.FontSize = DefaultFontSize
	}
	return s
}

// Inherit fills unset values from base, then from the package defaults.
func (s Style) Inherit(base Style) Style {
	if s.LineWidth <= 0 {
		s.LineWidth = base.LineWidth
	}
	if s.FontSize <= 0 {
		s.FontSize = base.FontSize
	}
	return s.WithDefaults()
}

// Annotation is a marker placed on an image. Points are in world space.
type Annotation struct {
	ID      string       `json:"id"`
	Kind    Kind         `json:"kind"`
	ImageID string       `json:"imageId"`
	Points  []geom.Point `json:"points"`
	Style   Style        `json:"style"`
	Text    string       `json:"text,omitempty"`
	// Preview marks an annotation that is still being placed.
	Preview bool `json:"preview,omitempty"`
}

func (a Annotation) String() string {
	return fmt.Sprintf("%s %s", a.Kind, a.ID)
}

// Document is the on-disk form used by the CLI.
type Document struct {
	StudyID     string       `json:"studyId"`
	SeriesID    string       `json:"seriesId"`
	ImageID     string       `json:"imageId"`
	Annotations []Annotation `json:"annotations"`
}

// Decode reads a Document and checks every annotation has an id and a kind.
func Decode(r io.Reader) (*Document, error) {
	var doc Document
	dec := json.NewDecoder(r)
	if err := dec.Decode(&doc); err != nil {
		return nil, fmt.Errorf("decode annotations: %w", err)
	}
	for i, a := range doc.Annotations {
		if strings.TrimSpace(a.ID) == "" {
			return nil, fmt.Errorf("annotation %d: missing id", i)
		}
		switch a.Kind {
		case KindArrow, KindText:
		default:
			return nil, fmt.Errorf("annotation %s: unknown kind %q", a.ID, a.Kind)
		}
		if a.ImageID == "" {
			doc.Annotations[i].ImageID = doc.ImageID
		}
	}
	return &doc, nil
}

// Load reads a Document from path.
func Load(path string) (*Document, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, err
	}
	defer f.Close()
	return Decode(f)
}

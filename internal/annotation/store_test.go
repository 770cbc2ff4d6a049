package annotation

import (
	"strings"
	"testing"

	"github.com/example/keyshot/internal/geom"
)

func TestMemoryStoreForImageCopies(t *testing.T) {
	s := NewMemoryStore(
		Annotation{ID: "a", Kind: KindArrow, ImageID: "img1", Points: []geom.Point{{X: 1, Y: 2}, {X: 3, Y: 4}}},
		Annotation{ID: "b", Kind: KindText, ImageID: "img2", Text: "hi"},
		Annotation{ID: "c", Kind: KindText, ImageID: "img1", Text: "lesion"},
	)
	got := s.ForImage("img1")
	if len(got) != 2 || got[0].ID != "a" || got[1].ID != "c" {
		t.Fatalf("ForImage returned %v", got)
	}
	got[0].Points[0].X = 99
	again := s.ForImage("img1")
	if again[0].Points[0].X != 1 {
		t.Fatalf("store geometry was mutated through a returned copy")
	}
}

func TestMemoryStoreTextAndHints(t *testing.T) {
	s := NewMemoryStore(Annotation{ID: "t", Kind: KindText, ImageID: "i", Text: "old"})
	if err := s.SetText("t", "new"); err != nil {
		t.Fatalf("SetText: %v", err)
	}
	if txt, ok := s.Text("t"); !ok || txt != "new" {
		t.Fatalf("Text = %q, %v", txt, ok)
	}
	if err := s.SetText("missing", "x"); err == nil {
		t.Fatal("expected error for unknown id")
	}
	if _, ok := s.Hint("t"); ok {
		t.Fatal("unexpected hint before SetHint")
	}
	h := LayoutHint{Key: LayoutKey{Text: "new", RoundedZoom: 100}, Width: 30, Height: 12}
	s.SetHint("t", h)
	if got, ok := s.Hint("t"); !ok || got != h {
		t.Fatalf("Hint = %+v, %v", got, ok)
	}
}

func TestDecodeDefaultsImageID(t *testing.T) {
	doc, err := Decode(strings.NewReader(`{"imageId":"1.2.3","annotations":[{"id":"a","kind":"arrow","points":[{"X":0,"Y":0},{"X":5,"Y":5}]}]}`))
	if err != nil {
		t.Fatalf("Decode: %v", err)
	}
	if doc.Annotations[0].ImageID != "1.2.3" {
		t.Fatalf("ImageID = %q", doc.Annotations[0].ImageID)
	}
}

func TestDecodeRejectsUnknownKind(t *testing.T) {
	_, err := Decode(strings.NewReader(`{"annotations":[{"id":"a","kind":"ellipse"}]}`))
	if err == nil || !strings.Contains(err.Error(), "unknown kind") {
		t.Fatalf("expected unknown kind error, got %v", err)
	}
}

func TestStyleInherit(t *testing.T) {
	base := Style{LineWidth: 3, FontSize: 20}
	if got := (Style{}).Inherit(base); got != base {
		t.Fatalf("unset style = %+v", got)
	}
	if got := (Style{FontSize: 9}).Inherit(base); got != (Style{LineWidth: 3, FontSize: 9}) {
		t.Fatalf("own font size lost: %+v", got)
	}
	if got := (Style{}).Inherit(Style{}); got != (Style{LineWidth: DefaultLineWidth, FontSize: DefaultFontSize}) {
		t.Fatalf("defaults = %+v", got)
	}
}

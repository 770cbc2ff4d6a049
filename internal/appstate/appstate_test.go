package appstate

import (
	"context"
	"errors"
	"image"
	"image/color"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/example/keyshot/internal/annotation"
	"github.com/example/keyshot/internal/engine"
	"github.com/example/keyshot/internal/export"
	"github.com/example/keyshot/internal/geom"
	"github.com/example/keyshot/internal/keyimage"
	"github.com/example/keyshot/internal/theme"
	"github.com/example/keyshot/internal/upload"
)

type stubUploader struct {
	err   error
	calls int
}

func (u *stubUploader) Upload(ctx context.Context, res *export.Result) (map[string]any, error) {
	u.calls++
	if u.err != nil {
		return nil, u.err
	}
	return map[string]any{"id": "ki-1"}, nil
}

func newApp(t *testing.T, up keyimage.Uploader) *AppState {
	t.Helper()
	src := image.NewNRGBA(image.Rect(0, 0, 200, 100))
	for i := 0; i < len(src.Pix); i += 4 {
		src.Pix[i], src.Pix[i+1], src.Pix[i+2], src.Pix[i+3] = 90, 90, 90, 255
	}
	store := annotation.NewMemoryStore(annotation.Annotation{
		ID: "a1", Kind: annotation.KindArrow, ImageID: "1.2.3",
		Points: []geom.Point{{X: 20, Y: 20}, {X: 100, Y: 50}},
	})
	eng := engine.New(src, store, export.Metadata{StudyID: "s", SeriesID: "r", ImageID: "1.2.3"})
	sess := keyimage.New(eng, nil, up)
	if err := sess.Resize(200, 100); err != nil {
		t.Fatal(err)
	}
	a := New(sess, eng, WithSaveDir(t.TempDir()))
	a.now = func() time.Time { return time.Date(2024, 5, 6, 7, 8, 9, 0, time.UTC) }
	return a
}

func TestExportWritesFile(t *testing.T) {
	a := newApp(t, nil)
	st := a.exportKeyImage(context.Background())
	if st.warning {
		t.Fatalf("unexpected warning: %s", st.text)
	}
	path := filepath.Join(a.SaveDir, "keyimage-1.2.3-20240506-070809.png")
	data, err := os.ReadFile(path)
	if err != nil {
		t.Fatalf("export not written: %v", err)
	}
	if len(data) == 0 || !strings.Contains(st.text, "keyimage-1.2.3-20240506-070809.png") {
		t.Fatalf("status %q", st.text)
	}
}

func TestUploadRejectedKeepsExport(t *testing.T) {
	up := &stubUploader{err: &upload.RejectedError{StatusCode: 503, Detail: "busy"}}
	a := newApp(t, up)
	if _, ok := a.ensureExport(context.Background()); !ok {
		t.Fatal("export failed")
	}
	st := a.uploadKeyImage(context.Background())
	if !st.warning || !strings.Contains(st.text, "503") || !strings.Contains(st.text, "busy") {
		t.Fatalf("status %+v", st)
	}
	up.err = nil
	st = a.uploadKeyImage(context.Background())
	if st.warning || st.text != "uploaded ki-1" {
		t.Fatalf("retry status %+v", st)
	}
	if up.calls != 2 {
		t.Fatalf("calls = %d", up.calls)
	}
}

func TestUploadWithoutUploader(t *testing.T) {
	a := newApp(t, nil)
	a.ensureExport(context.Background())
	if st := a.uploadKeyImage(context.Background()); !st.warning {
		t.Fatalf("status %+v", st)
	}
}

func TestEnsureExportFollowsTheView(t *testing.T) {
	a := newApp(t, nil)
	ctx := context.Background()
	if _, ok := a.ensureExport(ctx); !ok {
		t.Fatal("export failed")
	}
	first := a.Session.LastResult()
	if _, ok := a.ensureExport(ctx); !ok || a.Session.LastResult() != first {
		t.Fatal("unchanged view should reuse the export")
	}

	if err := a.Session.SetCrop(geom.Rect{X: 10, Y: 10, W: 50, H: 40}); err != nil {
		t.Fatal(err)
	}
	if _, ok := a.ensureExport(ctx); !ok {
		t.Fatal("export failed")
	}
	cropped := a.Session.LastResult()
	if cropped == first || cropped.Window.W != 50 || cropped.Window.H != 40 {
		t.Fatalf("crop change not re-exported: %+v", cropped.Window)
	}

	a.zoom(zoomStep)
	if _, ok := a.ensureExport(ctx); !ok || a.Session.LastResult() == cropped {
		t.Fatal("camera change not re-exported")
	}
}

func TestCameraActions(t *testing.T) {
	a := newApp(t, nil)
	a.zoom(zoomStep)
	if z := a.Engine.Camera().Zoom; z != zoomStep {
		t.Fatalf("zoom = %g", z)
	}
	for i := 0; i < 40; i++ {
		a.zoom(zoomStep)
	}
	if z := a.Engine.Camera().Zoom; z != maxZoom {
		t.Fatalf("zoom not capped: %g", z)
	}
	a.pan(10, -5)
	if p := a.Engine.Camera().Pan; p != (geom.Point{X: 10, Y: -5}) {
		t.Fatalf("pan = %v", p)
	}
	a.adjustWindowLevel(-300, 4)
	c := a.Engine.Camera()
	if c.Window != 1 || c.Level != initialLevel+4 {
		t.Fatalf("window/level = %g/%g", c.Window, c.Level)
	}
	a.resetCamera()
	if a.Engine.Camera() != (geom.Camera{}) {
		t.Fatalf("camera = %+v", a.Engine.Camera())
	}
}

func TestFileNameSanitises(t *testing.T) {
	got := FileName(export.Metadata{ImageID: "a/b c"}, "x", export.FormatWebP)
	if got != "keyimage-a_b_c-x.webp" {
		t.Fatalf("got %q", got)
	}
	if got := FileName(export.Metadata{}, "x", export.FormatPNG); got != "keyimage-image-x.png" {
		t.Fatalf("got %q", got)
	}
}

func TestComposeDrawsCrop(t *testing.T) {
	th := theme.Default()
	bmp := image.NewRGBA(image.Rect(0, 0, 100, 60))
	for i := 0; i < len(bmp.Pix); i += 4 {
		bmp.Pix[i], bmp.Pix[i+1], bmp.Pix[i+2], bmp.Pix[i+3] = 200, 200, 200, 255
	}
	st := paintState{
		width: 100, height: 60 + statusHeight, theme: th,
		bitmap:  bmp,
		crop:    geom.Rect{X: 20, Y: 20, W: 40, H: 20},
		hasCrop: true,
		status:  "zoom 100%",
	}
	dst := image.NewRGBA(image.Rect(0, 0, st.width, st.height))
	if err := compose(context.Background(), dst, st); err != nil {
		t.Fatal(err)
	}
	inside := dst.RGBAAt(40, 30)
	outside := dst.RGBAAt(5, 5)
	if inside != (color.RGBA{200, 200, 200, 255}) {
		t.Fatalf("inside crop = %v", inside)
	}
	if outside.R >= inside.R {
		t.Fatalf("outside crop not shaded: %v", outside)
	}
	// Top-left handle centred on the corner.
	if got := dst.RGBAAt(20, 20); got != th.HandleFill && got != th.HandleBorder {
		t.Fatalf("handle pixel = %v", got)
	}
	if got := dst.RGBAAt(99, st.height-1); got != th.StatusBackground {
		t.Fatalf("status bar = %v", got)
	}
}

func TestComposeCancelled(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	dst := image.NewRGBA(image.Rect(0, 0, 10, 10+statusHeight))
	err := compose(ctx, dst, paintState{width: 10, height: 10 + statusHeight})
	if !errors.Is(err, context.Canceled) {
		t.Fatalf("err = %v", err)
	}
}

func TestStatusLine(t *testing.T) {
	s := statusLine(geom.Camera{Zoom: 2, Window: 400, Level: 40}, geom.Rect{W: 30, H: 20}, true)
	for _, want := range []string{"zoom 200%", "W 400 L 40", "crop 30x20"} {
		if !strings.Contains(s, want) {
			t.Errorf("%q missing %q", s, want)
		}
	}
}

func TestSnapshotHidesHandlesWhileCreating(t *testing.T) {
	a := newApp(t, nil)
	a.Session.PointerDown(10, 10)
	a.Session.PointerMove(60, 60)
	st := a.snapshot(200, 100+statusHeight)
	if !st.hasCrop || !st.creating {
		t.Fatalf("snapshot %+v", st)
	}
	a.Session.PointerUp(60, 60)
	st = a.snapshot(200, 100+statusHeight)
	if st.creating || st.bitmap == nil || st.overlay == nil {
		t.Fatalf("snapshot after release: creating=%v bitmap=%v", st.creating, st.bitmap != nil)
	}
}

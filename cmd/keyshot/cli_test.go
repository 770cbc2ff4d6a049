package main

import (
	"bytes"
	"encoding/json"
	"errors"
	"flag"
	"image"
	"image/color"
	"image/png"
	"io"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/disintegration/imaging"

	"github.com/example/keyshot/internal/config"
	"github.com/example/keyshot/internal/notify"
)

func testRoot(t *testing.T) (*root, *bytes.Buffer) {
	t.Helper()
	var out bytes.Buffer
	cfg := config.New()
	cfg.SaveDir = t.TempDir()
	return &root{program: "keyshot", stdout: &out, config: cfg, notifier: notify.New(notify.DefaultPreferences())}, &out
}

func writeFixture(t *testing.T) (imgPath, docPath string) {
	t.Helper()
	dir := t.TempDir()
	img := image.NewNRGBA(image.Rect(0, 0, 120, 80))
	for i := 0; i < len(img.Pix); i += 4 {
		img.Pix[i], img.Pix[i+1], img.Pix[i+2], img.Pix[i+3] = 70, 70, 70, 255
	}
	imgPath = filepath.Join(dir, "ct.png")
	if err := imaging.Save(img, imgPath); err != nil {
		t.Fatal(err)
	}
	doc := `{
  "studyId": "1.2.840.1",
  "seriesId": "1.2.840.1.2",
  "imageId": "1.2.840.1.2.3",
  "annotations": [
    {"id": "a1", "kind": "arrow", "points": [{"x": -30, "y": 40}, {"x": 60, "y": 40}]},
    {"id": "t1", "kind": "text", "text": "lesion", "points": [{"x": 60, "y": 20}]}
  ]
}`
	docPath = filepath.Join(dir, "ct.json")
	if err := os.WriteFile(docPath, []byte(doc), 0o644); err != nil {
		t.Fatal(err)
	}
	return imgPath, docPath
}

func TestRootUsage(t *testing.T) {
	r, _ := testRoot(t)
	r.fs = flag.NewFlagSet("keyshot", flag.ContinueOnError)
	err := r.Run(nil)
	var uerr *UsageError
	if !errors.As(err, &uerr) {
		t.Fatalf("expected UsageError, got %v", err)
	}
	if !strings.Contains(uerr.Error(), "export") {
		t.Fatalf("help does not list commands:\n%s", uerr.Error())
	}
}

func TestParseExportRequiresImage(t *testing.T) {
	r, _ := testRoot(t)
	_, err := parseExportCmd(nil, r)
	var uerr *UsageError
	if !errors.As(err, &uerr) {
		t.Fatalf("expected UsageError, got %v", err)
	}
	if !strings.Contains(uerr.Error(), "-crop") {
		t.Fatalf("export help missing flags:\n%s", uerr.Error())
	}
}

func TestParseExportRejectsBadInput(t *testing.T) {
	r, _ := testRoot(t)
	if _, err := parseExportCmd([]string{"-image", "x.png", "-crop", "1,2,3"}, r); err == nil {
		t.Fatal("expected crop error")
	}
	if _, err := parseExportCmd([]string{"-image", "x.png", "-format", "gif"}, r); err == nil {
		t.Fatal("expected format error")
	}
	if _, err := parseExportCmd([]string{"-image", "x.png", "-copy", "-copy-path"}, r); err == nil {
		t.Fatal("expected clipboard conflict")
	}
}

func TestParseRect(t *testing.T) {
	got, err := parseRect(" 10, 20,30.5,40 ")
	if err != nil {
		t.Fatal(err)
	}
	if got.X != 10 || got.Y != 20 || got.W != 30.5 || got.H != 40 {
		t.Fatalf("got %+v", got)
	}
	if _, err := parseRect("a,b,c,d"); err == nil {
		t.Fatal("expected error")
	}
}

func TestExportExpandsForAnnotations(t *testing.T) {
	imgPath, docPath := writeFixture(t)
	r, out := testRoot(t)
	outPath := filepath.Join(t.TempDir(), "key.png")
	cmd, err := parseExportCmd([]string{"-image", imgPath, "-annotations", docPath, "-output", outPath, "-json"}, r)
	if err != nil {
		t.Fatal(err)
	}
	if err := cmd.Run(); err != nil {
		t.Fatalf("Run: %v", err)
	}
	var md struct {
		Path    string `json:"path"`
		ImageID string `json:"imageId"`
		Width   int    `json:"width"`
		Height  int    `json:"height"`
	}
	if err := json.Unmarshal(out.Bytes(), &md); err != nil {
		t.Fatalf("output %q: %v", out.String(), err)
	}
	if md.Path != outPath || md.ImageID != "1.2.840.1.2.3" {
		t.Fatalf("metadata %+v", md)
	}
	if md.Width <= 120 {
		t.Fatalf("width %d: the arrow tail left of the image should widen the export", md.Width)
	}
	f, err := os.Open(outPath)
	if err != nil {
		t.Fatal(err)
	}
	defer f.Close()
	img, err := png.Decode(f)
	if err != nil {
		t.Fatal(err)
	}
	if img.Bounds().Dx() != md.Width || img.Bounds().Dy() != md.Height {
		t.Fatalf("image %v, metadata %dx%d", img.Bounds(), md.Width, md.Height)
	}
}

func TestExportCrop(t *testing.T) {
	imgPath, docPath := writeFixture(t)
	r, out := testRoot(t)
	cmd, err := parseExportCmd([]string{"-image", imgPath, "-annotations", docPath, "-crop", "10,10,50,40", "-format", "webp"}, r)
	if err != nil {
		t.Fatal(err)
	}
	if err := cmd.Run(); err != nil {
		t.Fatalf("Run: %v", err)
	}
	if !strings.Contains(out.String(), "(50x40)") || !strings.Contains(out.String(), ".webp") {
		t.Fatalf("output %q", out.String())
	}
	matches, _ := filepath.Glob(filepath.Join(r.config.SaveDir, "keyimage-1.2.840.1.2.3-*.webp"))
	if len(matches) != 1 {
		t.Fatalf("files %v", matches)
	}
}

func TestExportRejectsTinyCrop(t *testing.T) {
	imgPath, _ := writeFixture(t)
	r, _ := testRoot(t)
	cmd, err := parseExportCmd([]string{"-image", imgPath, "-crop", "0,0,5,5"}, r)
	if err != nil {
		t.Fatal(err)
	}
	if err := cmd.Run(); err == nil {
		t.Fatal("expected invalid crop")
	}
}

func TestUploadCommand(t *testing.T) {
	var fields map[string]string
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, req *http.Request) {
		if err := req.ParseMultipartForm(1 << 20); err != nil {
			http.Error(w, err.Error(), http.StatusBadRequest)
			return
		}
		fields = map[string]string{}
		for k, v := range req.MultipartForm.Value {
			fields[k] = v[0]
		}
		f, hdr, err := req.FormFile("image")
		if err != nil {
			http.Error(w, err.Error(), http.StatusBadRequest)
			return
		}
		defer f.Close()
		io.Copy(io.Discard, f)
		fields["filename"] = hdr.Filename
		w.Header().Set("Content-Type", "application/json")
		io.WriteString(w, `{"id":"ki-9"}`)
	}))
	t.Cleanup(srv.Close)

	dir := t.TempDir()
	path := filepath.Join(dir, "key.png")
	img := image.NewRGBA(image.Rect(0, 0, 8, 6))
	img.Set(1, 1, color.White)
	if err := imaging.Save(img, path); err != nil {
		t.Fatal(err)
	}

	r, out := testRoot(t)
	cmd, err := parseUploadCmd([]string{"-file", path, "-server", srv.URL, "-study", "s", "-series", "r", "-sop", "i"}, r)
	if err != nil {
		t.Fatal(err)
	}
	if err := cmd.Run(); err != nil {
		t.Fatalf("Run: %v", err)
	}
	if fields["study_iuid"] != "s" || fields["series_iuid"] != "r" || fields["sop_iuid"] != "i" || fields["filename"] != "keyimage.png" {
		t.Fatalf("fields %v", fields)
	}
	if !strings.Contains(out.String(), "ki-9") {
		t.Fatalf("output %q", out.String())
	}
}

func TestConfigPrint(t *testing.T) {
	r, out := testRoot(t)
	cmd, err := parseConfigCmd([]string{"print"}, r)
	if err != nil {
		t.Fatal(err)
	}
	if err := cmd.Run(); err != nil {
		t.Fatal(err)
	}
	if !strings.Contains(out.String(), "[export]") || !strings.Contains(out.String(), "padding = 5") {
		t.Fatalf("output:\n%s", out.String())
	}
}

func TestConfigSave(t *testing.T) {
	t.Setenv("HOME", t.TempDir())
	path := filepath.Join(t.TempDir(), "keyshot.rc")
	orig := configPathOverride
	configPathOverride = path
	t.Cleanup(func() { configPathOverride = orig })

	r, _ := testRoot(t)
	r.config.SaveDir = "/srv/keyimages"
	cmd, err := parseConfigCmd([]string{"save"}, r)
	if err != nil {
		t.Fatal(err)
	}
	if err := cmd.Run(); err != nil {
		t.Fatal(err)
	}
	data, err := os.ReadFile(path)
	if err != nil {
		t.Fatal(err)
	}
	if !strings.Contains(string(data), "save_dir = /srv/keyimages") {
		t.Fatalf("saved:\n%s", data)
	}
}

func TestVersion(t *testing.T) {
	r, out := testRoot(t)
	origCommit := commit
	commit = "abc123"
	t.Cleanup(func() { commit = origCommit })
	if err := (&versionCmd{r: r}).Run(); err != nil {
		t.Fatal(err)
	}
	if out.String() != "keyshot version dev (abc123)\n" {
		t.Fatalf("got %q", out.String())
	}
}

func TestConfigThemes(t *testing.T) {
	t.Setenv("HOME", t.TempDir())
	r, out := testRoot(t)
	cmd, err := parseConfigCmd([]string{"themes"}, r)
	if err != nil {
		t.Fatal(err)
	}
	if err := cmd.Run(); err != nil {
		t.Fatal(err)
	}
	if !strings.HasPrefix(out.String(), "dark\nlight\n") {
		t.Fatalf("output %q", out.String())
	}
}

func TestSceneAppliesConfiguredAnnotationStyle(t *testing.T) {
	imgPath, docPath := writeFixture(t)
	r, _ := testRoot(t)
	r.config.Annotation = config.Annotation{FontSize: 22, LineWidth: 3}
	s := sceneFlags{image: imgPath, annotations: docPath, scale: 1, zoom: 1}
	eng, err := s.load(r.config.AnnotationStyle())
	if err != nil {
		t.Fatal(err)
	}
	list := eng.Store().ForImage("1.2.840.1.2.3")
	if len(list) != 2 {
		t.Fatalf("annotations %v", list)
	}
	for _, a := range list {
		if a.Style.FontSize != 22 || a.Style.LineWidth != 3 {
			t.Fatalf("%s style = %+v", a.ID, a.Style)
		}
	}
}

package upload

import (
	"context"
	"errors"
	"io"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/example/keyshot/internal/export"
)

func result() *export.Result {
	return &export.Result{
		Payload:  []byte("\x89PNG fake"),
		Format:   export.FormatPNG,
		Metadata: export.Metadata{StudyID: "1.2.3", SeriesID: "1.2.3.4", ImageID: "1.2.3.4.5"},
	}
}

func TestUploadSendsMultipartForm(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path != DefaultPath {
			t.Errorf("path = %s", r.URL.Path)
		}
		if err := r.ParseMultipartForm(1 << 20); err != nil {
			t.Errorf("parse form: %v", err)
			return
		}
		f, hdr, err := r.FormFile("image")
		if err != nil {
			t.Errorf("image part: %v", err)
			return
		}
		data, _ := io.ReadAll(f)
		if hdr.Filename != "keyimage.png" || string(data) != "\x89PNG fake" {
			t.Errorf("image part %s %q", hdr.Filename, data)
		}
		if r.FormValue("study_iuid") != "1.2.3" || r.FormValue("series_iuid") != "1.2.3.4" || r.FormValue("sop_iuid") != "1.2.3.4.5" {
			t.Errorf("fields %v", r.MultipartForm.Value)
		}
		w.Header().Set("Content-Type", "application/json")
		io.WriteString(w, `{"status":"ok","sop_iuid":"9.9"}`)
	}))
	t.Cleanup(srv.Close)

	c, err := New(srv.URL, "", time.Second)
	if err != nil {
		t.Fatal(err)
	}
	reply, err := c.Upload(context.Background(), result())
	if err != nil {
		t.Fatalf("Upload: %v", err)
	}
	if reply["status"] != "ok" {
		t.Fatalf("reply = %v", reply)
	}
}

func TestUploadRejected(t *testing.T) {
	cases := []struct {
		name   string
		status int
		body   string
		want   string
	}{
		{"json detail", http.StatusBadRequest, `{"detail":"bad study"}`, "bad study"},
		{"json message", http.StatusBadRequest, `{"message":"no space"}`, "no space"},
		{"json without detail", http.StatusConflict, `{"code":3}`, "HTTP 409: Conflict"},
		{"text", http.StatusBadGateway, strings.Repeat("x", 300), strings.Repeat("x", 200)},
		{"empty", http.StatusInternalServerError, "", "HTTP 500: Internal Server Error"},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
				w.WriteHeader(tc.status)
				io.WriteString(w, tc.body)
			}))
			t.Cleanup(srv.Close)
			c, err := New("", srv.URL+"/custom", time.Second)
			if err != nil {
				t.Fatal(err)
			}
			_, err = c.Upload(context.Background(), result())
			var rej *RejectedError
			if !errors.As(err, &rej) {
				t.Fatalf("err = %v", err)
			}
			if rej.StatusCode != tc.status || rej.Detail != tc.want {
				t.Fatalf("rejected = %d %q", rej.StatusCode, rej.Detail)
			}
		})
	}
}

func TestNewResolvesRelativeURL(t *testing.T) {
	c, err := New("https://pacs.example.org/viewer/", "/api/keyimage/upload", 0)
	if err != nil {
		t.Fatal(err)
	}
	if c.URL != "https://pacs.example.org/api/keyimage/upload" {
		t.Fatalf("URL = %s", c.URL)
	}
	if _, err := New("", "", 0); err == nil {
		t.Fatal("expected error without a server")
	}
}

func TestUploadEmptyPayload(t *testing.T) {
	c := &Client{URL: "http://127.0.0.1:1"}
	if _, err := c.Upload(context.Background(), &export.Result{}); !errors.Is(err, ErrNoPayload) {
		t.Fatalf("err = %v", err)
	}
}

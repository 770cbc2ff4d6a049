package appstate

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"image"
	"math"
	"os"
	"path/filepath"
	"strings"

	"github.com/disintegration/imaging"

	"github.com/example/keyshot/internal/clipboard"
	"github.com/example/keyshot/internal/export"
	"github.com/example/keyshot/internal/geom"
	"github.com/example/keyshot/internal/notify"
	"github.com/example/keyshot/internal/upload"
)

const (
	zoomStep = 1.25
	minZoom  = 0.1
	maxZoom  = 16
	panStep  = 32
	// Window/level used when the first contrast drag starts on an image
	// shown with its stored intensities.
	initialWindow = 256
	initialLevel  = 128
)

// exportKeyImage renders the current view and writes it to the save
// directory.
func (a *AppState) exportKeyImage(ctx context.Context) statusEvent {
	res, err := a.Session.StartExport(ctx)
	if err != nil {
		a.Notifier.Failed(notify.EventExport, err)
		return statusEvent{text: "export failed: " + err.Error(), warning: true}
	}
	path, err := a.save(res)
	if err != nil {
		a.Notifier.Failed(notify.EventExport, err)
		return statusEvent{text: "save failed: " + err.Error(), warning: true}
	}
	a.Notifier.Export(path, decodeThumb(res))
	msg := fmt.Sprintf("exported %s (%dx%d)", filepath.Base(path), res.Window.W, res.Window.H)
	if res.Warning != nil {
		return statusEvent{text: msg + " without annotations", warning: true}
	}
	return statusEvent{text: msg}
}

// ensureExport makes sure the result to upload or copy matches the view,
// exporting again when nothing was exported yet or the camera, crop or
// annotations changed since.
func (a *AppState) ensureExport(ctx context.Context) (statusEvent, bool) {
	if a.Session.Current() {
		return statusEvent{}, true
	}
	st := a.exportKeyImage(ctx)
	return st, a.Session.Current()
}

func (a *AppState) uploadKeyImage(ctx context.Context) statusEvent {
	reply, err := a.Session.Upload(ctx)
	if err != nil {
		a.Notifier.Failed(notify.EventUpload, err)
		var rej *upload.RejectedError
		if errors.As(err, &rej) {
			return statusEvent{text: fmt.Sprintf("upload rejected (%d): %s; press U to retry", rej.StatusCode, rej.Detail), warning: true}
		}
		return statusEvent{text: "upload failed: " + err.Error(), warning: true}
	}
	detail := a.Session.LastResult().Metadata.ImageID
	if id, ok := reply["id"]; ok {
		detail = fmt.Sprint(id)
	}
	a.Notifier.Upload(detail)
	return statusEvent{text: "uploaded " + detail}
}

func (a *AppState) copyKeyImage() statusEvent {
	res := a.Session.LastResult()
	if err := clipboard.Copy(res); err != nil {
		a.Notifier.Failed(notify.EventCopy, err)
		return statusEvent{text: "copy failed: " + err.Error(), warning: true}
	}
	a.Notifier.Copy("")
	return statusEvent{text: "key image copied to clipboard"}
}

// save writes res into the save directory and returns the path.
func (a *AppState) save(res *export.Result) (string, error) {
	dir := a.SaveDir
	if dir == "" {
		dir = "."
	}
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return "", err
	}
	path := filepath.Join(dir, FileName(res.Metadata, a.now().Format("20060102-150405"), res.Format))
	out, err := os.Create(path)
	if err != nil {
		return "", err
	}
	if _, err := out.Write(res.Payload); err != nil {
		out.Close()
		return "", err
	}
	return path, out.Close()
}

// FileName names an exported key image after its image id and a timestamp.
func FileName(md export.Metadata, stamp string, f export.Format) string {
	id := strings.Map(func(r rune) rune {
		switch {
		case r >= 'a' && r <= 'z', r >= 'A' && r <= 'Z', r >= '0' && r <= '9', r == '.', r == '-':
			return r
		}
		return '_'
	}, md.ImageID)
	if id == "" {
		id = "image"
	}
	return fmt.Sprintf("keyimage-%s-%s%s", id, stamp, f.Ext())
}

func decodeThumb(res *export.Result) image.Image {
	img, err := imaging.Decode(bytes.NewReader(res.Payload))
	if err != nil {
		return nil
	}
	return img
}

func (a *AppState) zoom(factor float64) {
	c := a.Engine.Camera()
	c.Zoom = math.Max(minZoom, math.Min(maxZoom, c.EffectiveZoom()*factor))
	a.Engine.SetCamera(c)
}

// pan moves the image by a display-space offset.
func (a *AppState) pan(dx, dy float64) {
	g := a.Session.Geometry()
	if !g.Valid() {
		return
	}
	c := a.Engine.Camera()
	c.Pan = c.Pan.Add(geom.Pt(dx*g.ScaleX, dy*g.ScaleY))
	a.Engine.SetCamera(c)
}

// adjustWindowLevel widens the window with horizontal motion and raises the
// level with vertical motion.
func (a *AppState) adjustWindowLevel(dx, dy float64) {
	c := a.Engine.Camera()
	if c.Window <= 0 {
		c.Window, c.Level = initialWindow, initialLevel
	}
	c.Window = math.Max(1, c.Window+dx)
	c.Level += dy
	a.Engine.SetCamera(c)
}

func (a *AppState) resetCamera() {
	a.Engine.SetCamera(geom.Camera{})
}

// Package appstate is the desktop viewer: it shows the engine's surface with
// its annotation overlay, lets the user drag out a crop rectangle and runs
// exports, uploads and clipboard copies from the keyboard.
package appstate

import (
	"context"
	"image"
	"log"
	"sync"
	"time"
	"unicode"

	"golang.org/x/exp/shiny/driver"
	"golang.org/x/exp/shiny/screen"
	"golang.org/x/mobile/event/key"
	"golang.org/x/mobile/event/lifecycle"
	"golang.org/x/mobile/event/mouse"
	"golang.org/x/mobile/event/paint"
	"golang.org/x/mobile/event/size"

	"github.com/example/keyshot/internal/cropedit"
	"github.com/example/keyshot/internal/engine"
	"github.com/example/keyshot/internal/keyimage"
	"github.com/example/keyshot/internal/notify"
	"github.com/example/keyshot/internal/theme"
)

// AppState holds the viewer's collaborators and settings.
type AppState struct {
	Session  *keyimage.Session
	Engine   *engine.Engine
	Theme    *theme.Theme
	Notifier *notify.Notifier
	// SaveDir receives exported key images. Empty means the working directory.
	SaveDir string
	Width   int
	Height  int

	onClose func()
	now     func() time.Time
}

// Option configures an AppState.
type Option func(*AppState)

// WithTheme sets the viewer colours.
func WithTheme(t *theme.Theme) Option { return func(a *AppState) { a.Theme = t } }

// WithNotifier sets where desktop notifications go.
func WithNotifier(n *notify.Notifier) Option { return func(a *AppState) { a.Notifier = n } }

// WithSaveDir sets the export directory.
func WithSaveDir(dir string) Option { return func(a *AppState) { a.SaveDir = dir } }

// WithSize sets the initial window size in pixels.
func WithSize(w, h int) Option { return func(a *AppState) { a.Width, a.Height = w, h } }

// WithOnClose registers a callback invoked when the window closes.
func WithOnClose(fn func()) Option { return func(a *AppState) { a.onClose = fn } }

// New returns a viewer over session, which must be backed by eng.
func New(session *keyimage.Session, eng *engine.Engine, opts ...Option) *AppState {
	a := &AppState{
		Session: session,
		Engine:  eng,
		Theme:   theme.Default(),
		Width:   1024,
		Height:  768 + statusHeight,
		now:     time.Now,
	}
	for _, o := range opts {
		o(a)
	}
	return a
}

// statusEvent carries the outcome of background work back to the UI loop.
type statusEvent struct {
	text    string
	warning bool
}

func (a *AppState) notifyClose() {
	if a.onClose != nil {
		a.onClose()
	}
}

// Run opens the window and blocks until it is closed.
func (a *AppState) Run() { driver.Main(a.Main) }

func (a *AppState) Main(s screen.Screen) {
	width, height := a.Width, a.Height
	w, err := s.NewWindow(&screen.NewWindowOptions{Width: width, Height: height, Title: "KeyShot"})
	if err != nil {
		log.Fatalf("new window: %v", err)
	}
	defer w.Release()
	defer a.notifyClose()

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	var message string
	var warning bool
	var messageUntil time.Time
	say := func(st statusEvent) {
		message, warning = st.text, st.warning
		messageUntil = time.Now().Add(messageDuration)
		if st.warning {
			log.Print(st.text)
		}
	}

	var paintMu sync.Mutex
	var paintCancel context.CancelFunc
	var dropCount int
	paintCh := make(chan paintState, 1)
	go func() {
		for st := range paintCh {
			fctx, fcancel := context.WithCancel(ctx)
			paintMu.Lock()
			paintCancel = fcancel
			paintMu.Unlock()
			drawFrame(fctx, s, w, st)
			paintMu.Lock()
			paintCancel = nil
			if fctx.Err() == nil {
				dropCount = 0
			}
			paintMu.Unlock()
			fcancel()
		}
	}()
	defer close(paintCh)

	background := func(fn func(context.Context) statusEvent) {
		go func() { w.Send(fn(ctx)) }()
	}

	keyboardAction := map[KeyShortcut]func(){}
	register := func(keys KeyboardShortcuts, fn func()) {
		for _, sc := range keys.KeyboardShortcuts() {
			keyboardAction[sc] = fn
		}
	}
	register(shortcutList{{Code: key.CodeReturnEnter}, {Rune: 'e'}}, func() {
		say(a.exportKeyImage(ctx))
	})
	register(shortcutList{{Rune: 'u'}}, func() {
		if st, ok := a.ensureExport(ctx); !ok {
			say(st)
			return
		}
		say(statusEvent{text: "uploading..."})
		background(a.uploadKeyImage)
	})
	register(shortcutList{{Rune: 'c', Modifiers: key.ModControl}}, func() {
		if st, ok := a.ensureExport(ctx); !ok {
			say(st)
			return
		}
		background(func(context.Context) statusEvent { return a.copyKeyImage() })
	})
	register(shortcutList{{Code: key.CodeEscape}}, func() { a.Session.ClearCrop() })
	register(shortcutList{{Rune: '+'}, {Rune: '='}, {Code: key.CodeKeypadPlusSign}}, func() { a.zoom(zoomStep) })
	register(shortcutList{{Rune: '-'}, {Code: key.CodeKeypadHyphenMinus}}, func() { a.zoom(1 / zoomStep) })
	register(shortcutList{{Rune: '0'}}, func() { a.resetCamera() })
	register(shortcutList{{Code: key.CodeLeftArrow}}, func() { a.pan(-panStep, 0) })
	register(shortcutList{{Code: key.CodeRightArrow}}, func() { a.pan(panStep, 0) })
	register(shortcutList{{Code: key.CodeUpArrow}}, func() { a.pan(0, -panStep) })
	register(shortcutList{{Code: key.CodeDownArrow}}, func() { a.pan(0, panStep) })
	closeWindow := func() { w.Send(lifecycle.Event{To: lifecycle.StageDead}) }
	register(shortcutList{{Rune: 'q'}, {Rune: 'w', Modifiers: key.ModControl}}, closeWindow)

	var dragButton mouse.Button
	var dragLast image.Point

	for {
		switch e := w.NextEvent().(type) {
		case statusEvent:
			say(e)
			w.Send(paint.Event{})
		case lifecycle.Event:
			if e.To == lifecycle.StageDead {
				paintMu.Lock()
				if paintCancel != nil {
					paintCancel()
				}
				paintMu.Unlock()
				return
			}
		case size.Event:
			width, height = e.WidthPx, e.HeightPx
			vw, vh := viewSize(width, height)
			if err := a.Session.Resize(float64(vw), float64(vh)); err != nil {
				log.Printf("resize: %v", err)
			}
			w.Send(paint.Event{})
		case paint.Event:
			paintMu.Lock()
			if paintCancel != nil && dropCount < frameDropThreshold {
				paintCancel()
				dropCount++
			}
			paintMu.Unlock()
			st := a.snapshot(width, height)
			st.message, st.warning, st.messageUntil = message, warning, messageUntil
			select {
			case paintCh <- st:
			default:
				<-paintCh
				paintCh <- st
			}
		case mouse.Event:
			p := image.Pt(int(e.X), int(e.Y))
			switch e.Direction {
			case mouse.DirPress:
				dragButton, dragLast = e.Button, p
				if e.Button == mouse.ButtonLeft {
					a.Session.PointerDown(float64(e.X), float64(e.Y))
				}
			case mouse.DirRelease:
				if e.Button == mouse.ButtonLeft {
					a.Session.PointerUp(float64(e.X), float64(e.Y))
				}
				dragButton = mouse.ButtonNone
			case mouse.DirNone:
				vw, vh := viewSize(width, height)
				if !p.In(image.Rect(0, 0, vw, vh)) && dragButton == mouse.ButtonLeft {
					a.Session.PointerLeave()
					dragButton = mouse.ButtonNone
					break
				}
				d := p.Sub(dragLast)
				dragLast = p
				switch dragButton {
				case mouse.ButtonLeft:
					a.Session.PointerMove(float64(e.X), float64(e.Y))
				case mouse.ButtonMiddle:
					a.pan(float64(d.X), float64(d.Y))
				case mouse.ButtonRight:
					a.adjustWindowLevel(float64(d.X), float64(d.Y))
				default:
					continue
				}
			case mouse.DirStep:
				switch e.Button {
				case mouse.ButtonWheelUp:
					a.zoom(zoomStep)
				case mouse.ButtonWheelDown:
					a.zoom(1 / zoomStep)
				}
			}
			w.Send(paint.Event{})
		case key.Event:
			if e.Direction != key.DirPress {
				continue
			}
			if message != "" && time.Now().Before(messageUntil) && e.Code == key.CodeEscape {
				messageUntil = time.Time{}
			}
			ks := KeyShortcut{Rune: unicode.ToLower(e.Rune), Code: e.Code, Modifiers: e.Modifiers}
			if e.Rune > 0 {
				ks.Code = key.CodeUnknown
				ks.Modifiers &^= key.ModShift
			}
			if fn, ok := keyboardAction[ks]; ok {
				fn()
			} else if fn, ok := keyboardAction[KeyShortcut{Code: e.Code}]; ok && e.Modifiers == 0 {
				fn()
			}
			w.Send(paint.Event{})
		case error:
			log.Print(e)
		}
	}
}

// snapshot captures the frame to draw.
func (a *AppState) snapshot(width, height int) paintState {
	st := paintState{width: width, height: height, theme: a.Theme}
	if bmp, err := a.Engine.BitmapSurface(); err == nil {
		st.bitmap = bmp
	}
	if ov, err := a.Engine.VectorOverlay(); err == nil {
		st.overlay = ov
	}
	st.crop, st.hasCrop = a.Session.Crop()
	st.creating = a.Session.Editor().State() == cropedit.Creating
	st.status = statusLine(a.Engine.Camera(), st.crop, st.hasCrop)
	return st
}

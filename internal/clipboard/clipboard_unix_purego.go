//go:build (linux || freebsd || openbsd || netbsd || dragonfly) && !cgo

package clipboard

import (
	"errors"
	"os"
	"sync"

	"github.com/jezek/xgb"
	"github.com/jezek/xgb/xproto"
)

var (
	initOnce     sync.Once
	initErr      error
	errNoDisplay = errors.New("clipboard initialization requires DISPLAY or WAYLAND_DISPLAY")
	backend      *x11Owner
)

func ensureInit() error {
	initOnce.Do(func() {
		if os.Getenv("DISPLAY") == "" && os.Getenv("WAYLAND_DISPLAY") == "" {
			initErr = errNoDisplay
			return
		}
		o := &x11Owner{}
		if err := o.initialize(); err != nil {
			initErr = err
			return
		}
		backend = o
	})
	return initErr
}

func writeKeyImage(png []byte, text string) error {
	if err := ensureInit(); err != nil {
		return err
	}
	return backend.own(png, []byte(text))
}

// WriteText writes text data to the clipboard.
func WriteText(text string) error {
	if err := ensureInit(); err != nil {
		return err
	}
	return backend.own(nil, []byte(text))
}

// x11Owner holds the CLIPBOARD selection and answers conversion requests
// until another client takes it over. Image and text are offered together.
type x11Owner struct {
	conn   *xgb.Conn
	window xproto.Window
	atoms  atomSet

	mu   sync.RWMutex
	png  []byte
	text []byte
}

type atomSet struct {
	clipboard xproto.Atom
	targets   xproto.Atom
	utf8      xproto.Atom
	textPlain xproto.Atom
	png       xproto.Atom
}

func (o *x11Owner) initialize() error {
	conn, err := xgb.NewConn()
	if err != nil {
		return err
	}
	screen := xproto.Setup(conn).DefaultScreen(conn)
	window, err := xproto.NewWindowId(conn)
	if err != nil {
		conn.Close()
		return err
	}
	const eventMask = xproto.EventMaskPropertyChange | xproto.EventMaskStructureNotify
	if err := xproto.CreateWindowChecked(conn, screen.RootDepth, window, screen.Root, 0, 0, 1, 1, 0,
		xproto.WindowClassInputOutput, screen.RootVisual, xproto.CwEventMask, []uint32{eventMask}).Check(); err != nil {
		conn.Close()
		return err
	}
	atoms, err := internAtoms(conn)
	if err != nil {
		xproto.DestroyWindow(conn, window)
		conn.Close()
		return err
	}
	o.conn, o.window, o.atoms = conn, window, atoms
	go o.eventLoop()
	return nil
}

func internAtoms(conn *xgb.Conn) (atomSet, error) {
	names := []string{"CLIPBOARD", "TARGETS", "UTF8_STRING", "text/plain;charset=utf-8", "image/png"}
	got := make([]xproto.Atom, len(names))
	for i, name := range names {
		reply, err := xproto.InternAtom(conn, false, uint16(len(name)), name).Reply()
		if err != nil {
			return atomSet{}, err
		}
		got[i] = reply.Atom
	}
	return atomSet{clipboard: got[0], targets: got[1], utf8: got[2], textPlain: got[3], png: got[4]}, nil
}

func (o *x11Owner) own(png, text []byte) error {
	o.mu.Lock()
	o.png = append([]byte(nil), png...)
	o.text = append([]byte(nil), text...)
	o.mu.Unlock()
	return xproto.SetSelectionOwnerChecked(o.conn, o.window, o.atoms.clipboard, xproto.TimeCurrentTime).Check()
}

func (o *x11Owner) eventLoop() {
	for {
		ev, err := o.conn.WaitForEvent()
		if err != nil {
			return
		}
		switch e := ev.(type) {
		case xproto.SelectionRequestEvent:
			o.answer(e)
		case xproto.SelectionClearEvent:
			o.mu.Lock()
			o.png, o.text = nil, nil
			o.mu.Unlock()
		}
	}
}

func (o *x11Owner) answer(e xproto.SelectionRequestEvent) {
	property := e.Property
	if property == xproto.AtomNone {
		property = e.Target
	}

	o.mu.RLock()
	png, text := o.png, o.text
	o.mu.RUnlock()

	var (
		typ     xproto.Atom
		format  byte = 8
		payload []byte
	)
	switch e.Target {
	case o.atoms.targets:
		targets := []xproto.Atom{o.atoms.targets}
		if len(png) > 0 {
			targets = append(targets, o.atoms.png)
		}
		if len(text) > 0 {
			targets = append(targets, o.atoms.utf8, xproto.AtomString, o.atoms.textPlain)
		}
		payload = make([]byte, len(targets)*4)
		for i, a := range targets {
			xgb.Put32(payload[i*4:], uint32(a))
		}
		typ, format = xproto.AtomAtom, 32
	case o.atoms.png:
		payload, typ = png, o.atoms.png
	case o.atoms.utf8, xproto.AtomString, o.atoms.textPlain:
		payload, typ = text, o.atoms.utf8
	}
	if len(payload) == 0 {
		property = xproto.AtomNone
	}

	if property != xproto.AtomNone {
		length := uint32(len(payload))
		if format == 32 {
			length /= 4
		}
		xproto.ChangeProperty(o.conn, xproto.PropModeReplace, e.Requestor, property, typ, format, length, payload)
	}

	notify := xproto.SelectionNotifyEvent{
		Time:      e.Time,
		Requestor: e.Requestor,
		Selection: e.Selection,
		Target:    e.Target,
		Property:  property,
	}
	_ = xproto.SendEvent(o.conn, false, e.Requestor, 0, string(notify.Bytes()))
}

// Package notify tells the user, through the desktop notification service,
// when a key image was exported, uploaded or copied.
package notify

import (
	"fmt"
	"image"
	"log"
	"os"
	"path/filepath"
	"strings"

	"github.com/disintegration/imaging"

	"github.com/example/keyshot/internal/platform"
)

// Event identifies a notification trigger.
type Event string

const (
	// EventExport fires when a key image has been rendered.
	EventExport Event = "export"
	// EventUpload fires when the archive accepted a key image.
	EventUpload Event = "upload"
	// EventCopy fires when a key image was placed on the clipboard.
	EventCopy Event = "copy"
)

// thumbSize bounds the preview attached to export notifications.
const thumbSize = 256

// send is replaced in tests.
var send = platform.Notify

// EventPreference describes formatting for a notification event.
type EventPreference struct {
	Template     string
	FailTemplate string
}

// Preferences describes notification behaviour loaded from configuration.
type Preferences struct {
	Title  string
	Events map[Event]EventPreference
}

// DefaultPreferences returns the default notification settings.
func DefaultPreferences() Preferences {
	return Preferences{
		Title: platform.AppName,
		Events: map[Event]EventPreference{
			EventExport: {Template: "Exported key image %s", FailTemplate: "Export failed: %s"},
			EventUpload: {Template: "Uploaded key image %s", FailTemplate: "Upload failed: %s"},
			EventCopy:   {Template: "Copied %s to clipboard", FailTemplate: "Copy failed: %s"},
		},
	}
}

// LoadPreferences reads configuration from environment variables.
func LoadPreferences() Preferences {
	prefs := DefaultPreferences()
	if v := strings.TrimSpace(os.Getenv("KEYSHOT_NOTIFY_TITLE")); v != "" {
		prefs.Title = v
	}
	apply := func(key string, event Event) {
		if v := strings.TrimSpace(os.Getenv(key)); v != "" {
			eventPrefs := prefs.Events[event]
			eventPrefs.Template = v
			prefs.Events[event] = eventPrefs
		}
	}
	apply("KEYSHOT_NOTIFY_EXPORT_TEXT", EventExport)
	apply("KEYSHOT_NOTIFY_UPLOAD_TEXT", EventUpload)
	apply("KEYSHOT_NOTIFY_COPY_TEXT", EventCopy)
	return prefs
}

// Notifier sends OS-level notifications based on the configured preferences.
type Notifier struct {
	prefs   Preferences
	enabled map[Event]bool
}

// New creates a new Notifier using the provided preferences.
func New(prefs Preferences) *Notifier {
	cloned := Preferences{Title: prefs.Title, Events: make(map[Event]EventPreference, len(prefs.Events))}
	for k, v := range prefs.Events {
		cloned.Events[k] = v
	}
	return &Notifier{prefs: cloned, enabled: make(map[Event]bool)}
}

// Enable toggles the notifier for the provided event.
func (n *Notifier) Enable(event Event, enabled bool) {
	if n == nil {
		return
	}
	if n.enabled == nil {
		n.enabled = make(map[Event]bool)
	}
	n.enabled[event] = enabled
}

// Export announces a finished export. img, when set, is shown as a
// thumbnail; path names the written file if there is one.
func (n *Notifier) Export(path string, img image.Image) {
	if !n.enabledFor(EventExport) {
		return
	}
	detail := strings.TrimSpace(path)
	if abs, err := filepath.Abs(detail); err == nil && detail != "" {
		detail = abs
	}
	opts := platform.Options{}
	if img != nil {
		if p, cleanup, err := createPreview(img); err != nil {
			log.Printf("notification preview: %v", err)
		} else {
			defer cleanup()
			opts.IconPath = p
		}
	}
	n.dispatch(EventExport, detail, opts)
}

// Upload announces an accepted upload.
func (n *Notifier) Upload(detail string) {
	n.dispatch(EventUpload, detail, platform.Options{})
}

// Copy sends a clipboard notification.
func (n *Notifier) Copy(detail string) {
	if strings.TrimSpace(detail) == "" {
		detail = "key image"
	}
	n.dispatch(EventCopy, detail, platform.Options{})
}

// Failed reports err for event as a critical notification.
func (n *Notifier) Failed(event Event, err error) {
	if err == nil || !n.enabledFor(event) {
		return
	}
	template := strings.TrimSpace(n.prefs.Events[event].FailTemplate)
	if template == "" {
		return
	}
	n.deliver(event, fmt.Sprintf(template, err), platform.Options{Critical: true})
}

func (n *Notifier) enabledFor(event Event) bool {
	if n == nil || n.enabled == nil {
		return false
	}
	return n.enabled[event]
}

func (n *Notifier) dispatch(event Event, detail string, opts platform.Options) {
	if !n.enabledFor(event) {
		return
	}
	template := strings.TrimSpace(n.prefs.Events[event].Template)
	if template == "" {
		return
	}
	body := strings.TrimSpace(fmt.Sprintf(template, strings.TrimSpace(detail)))
	if body == "" {
		return
	}
	n.deliver(event, body, opts)
}

func (n *Notifier) deliver(event Event, body string, opts platform.Options) {
	if err := send(n.prefs.Title, body, opts); err != nil {
		log.Printf("notification %s: %v", event, err)
	}
}

func createPreview(img image.Image) (string, func(), error) {
	f, err := os.CreateTemp("", "keyshot-preview-*.png")
	if err != nil {
		return "", nil, err
	}
	path := f.Name()
	thumb := imaging.Fit(img, thumbSize, thumbSize, imaging.Lanczos)
	if err := imaging.Encode(f, thumb, imaging.PNG); err != nil {
		_ = f.Close()
		_ = os.Remove(path)
		return "", nil, err
	}
	if err := f.Close(); err != nil {
		_ = os.Remove(path)
		return "", nil, err
	}
	cleanup := func() {
		if err := os.Remove(path); err != nil && !os.IsNotExist(err) {
			log.Printf("remove preview: %v", err)
		}
	}
	return path, cleanup, nil
}

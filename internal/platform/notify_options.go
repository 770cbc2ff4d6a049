package platform

// AppName is the application name reported to notification services.
const AppName = "KeyShot"

// Options configures how a notification is displayed on the host platform.
type Options struct {
	// IconPath, when non-empty, points to an image file the notification center
	// should display with the notification if supported by the platform.
	IconPath string
	// Critical marks failures; platforms that support urgency keep them on
	// screen until dismissed.
	Critical bool
}

package export

import "errors"

var (
	// ErrSurfaceUnavailable means the bitmap or the overlay handle is
	// missing. Nothing is produced.
	ErrSurfaceUnavailable = errors.New("render surface unavailable")
	// ErrOverlayRasterization means the overlay could not be drawn. The
	// export still succeeds with the bitmap alone and carries this as a
	// warning.
	ErrOverlayRasterization = errors.New("overlay rasterization failed")
	// ErrInvalidCropGeometry means the crop rectangle cannot be mapped to a
	// usable output window.
	ErrInvalidCropGeometry = errors.New("invalid crop geometry")
	// ErrExportInFlight is returned when an export is requested while
	// another one is still running.
	ErrExportInFlight = errors.New("export already in progress")
)

package colorize

import "errors"

var (
	// ErrPaletteEmpty is returned before any pixel work when the palette has
	// no entries.
	ErrPaletteEmpty = errors.New("colorize: palette is empty")

	// ErrInvalidConfig is returned when a scalar parameter is out of range.
	ErrInvalidConfig = errors.New("colorize: invalid config")

	// ErrDeviceUnavailable is returned by the GPU backend when no compatible
	// adapter or device can be acquired.
	ErrDeviceUnavailable = errors.New("colorize: GPU device unavailable")

	// ErrBufferMapFailed is returned by the GPU backend when a result buffer
	// cannot be read back to host memory. It fails the current image only.
	ErrBufferMapFailed = errors.New("colorize: GPU buffer map failed")
)

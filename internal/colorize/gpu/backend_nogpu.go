//go:build nogpu

package gpu

import (
	"context"
	"fmt"
	"image"

	"github.com/ironsheep/colorizer/internal/colorize"
)

// Backend is unavailable in nogpu builds.
type Backend struct{}

var _ colorize.Colorizer = (*Backend)(nil)

// New always fails with colorize.ErrDeviceUnavailable.
func New() (*Backend, error) {
	return nil, fmt.Errorf("%w: built with nogpu", colorize.ErrDeviceUnavailable)
}

// Name returns "gpu".
func (b *Backend) Name() string { return "gpu" }

// Adapter returns the empty string; no device is ever opened.
func (b *Backend) Adapter() string { return "" }

// History returns nil.
func (b *Backend) History() []State { return nil }

// Close does nothing.
func (b *Backend) Close() {}

// Colorize always fails with colorize.ErrDeviceUnavailable.
func (b *Backend) Colorize(ctx context.Context, src image.Image, cfg colorize.Config) (*colorize.Output, error) {
	return nil, colorize.ErrDeviceUnavailable
}

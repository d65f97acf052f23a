// Package colorize recolors images so they conform to a fixed palette while
// keeping the lightness detail of the source.
//
// The transform runs in three stages:
//
//  1. Match: every pixel is converted to CIE Lab and paired with the nearest
//     palette entry under the improved CIEDE2000 metric. The pixel keeps its
//     own lightness and adopts the entry's a/b chroma. Results are memoized
//     per distinct 8-bit color in a ColorCache, then optionally dithered.
//  2. Table: a summed-area table (integral image) of the Stage-1 result in
//     Lab is built so any rectangular window sum costs four lookups.
//  3. Blend: each pixel takes the window-averaged chroma around it, keeps its
//     original lightness (luminance transfer), and is linearly blended with
//     the original pixel by the configured factor.
//
// # Backends
//
// Pipeline is the CPU implementation. Stages 1 and 3 fan out over disjoint
// row ranges, so the output buffers are written without locks. Stage 2 is a
// barrier: the whole table exists before any Stage-3 row starts.
//
// The gpu subpackage implements the same Colorizer contract with compute
// shaders. Callers pick one backend per run; falling back from GPU to CPU is
// a caller decision.
//
// # Coordinates and Color
//
// Pixel coordinates are 0-based with the origin at the top-left. Images are
// treated as opaque 8-bit sRGB; alpha is ignored on input and set to 255 on
// output. Lab values use L in [0,100] with a D65 white point.
//
// # Error Handling
//
// Failures surface as wrapped sentinel errors (ErrPaletteEmpty,
// ErrInvalidConfig, ErrDeviceUnavailable, ErrBufferMapFailed) that callers
// test with errors.Is. Nothing inside this package retries.
package colorize

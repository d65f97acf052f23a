// Package gpu runs the colorize pipeline as WebGPU compute passes.
//
// A run uploads the source image and palette, matches every pixel on the
// device (pass 1), builds the 2D prefix sums of the matched Lab values with
// a horizontal scan, a transpose, a second scan and a transpose back, and
// finally averages and blends (pass 3). Each pass is submitted on its own
// and waited on with a fence, so the passes never overlap.
//
// Only the a and b channels are summed, in 32-bit floats. A prefix value can
// reach 128*W*H in magnitude, and each of the four lookups behind a window
// average carries about one f32 step at that size. The storage binding
// limit admits at most 2^23 pixels, where prefixes reach 2^30 and the step
// is 128, so a radius-8 average there can differ from the CPU pipeline by
// up to about 1.8 Lab units. On a one-megapixel image the bound is about
// 0.2. Accumulated rounding in the scans comes on top of this estimate,
// which averageErrorBound computes and each run logs at debug level.
//
// Building with the nogpu tag replaces the backend with a stub whose New
// always fails with colorize.ErrDeviceUnavailable.
package gpu

// Package imaging provides the image plumbing shared by the roster pipeline:
// decoding screenshot bytes into RGBA buffers, cropping regions, encoding
// PNG output and sampling colors for match diagnostics.
//
// # Coordinate System
//
// All pixel coordinates in this package are 0-based:
//   - X: horizontal position (0 = leftmost pixel)
//   - Y: vertical position (0 = topmost pixel)
//   - For regions, Min is inclusive (top-left), Max is exclusive (bottom-right)
//
// # Decoding
//
// PNG, JPEG, GIF and WebP are supported. Every decoded image is normalized
// to *image.RGBA so the perceptual hash can read the pixel buffer directly.
//
// # Thread Safety
//
// The ImageCache type is safe for concurrent use. Individual operations are
// stateless and can be called concurrently on different images.
// A cached Screenshot is shared and must not be modified by callers.
package imaging

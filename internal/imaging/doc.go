// Package imaging provides the raster operations behind document rectification.
//
// The package covers every pixel-level step of the pipeline: Canny edge
// detection, Gaussian adaptive thresholding, perspective warping, margin
// cropping and polygon overlays. It also owns image I/O through ImageCache
// and Save. All operations accept any image.Image and return new images
// anchored at the origin; inputs are never modified.
//
// # Coordinate System
//
// All pixel coordinates in this package are 0-based:
//   - X: horizontal position (0 = leftmost pixel)
//   - Y: vertical position (0 = topmost pixel)
//   - Polygons passed to DrawPolygon and Warp use the input image's own
//     coordinate space, including a non-zero Bounds().Min
//
// # Perspective Warps
//
// Warp pulls every output pixel back through the inverse of the transform
// built by QuadToQuad and samples the source bilinearly. The transform is
// composed from two unit-square mappings; collinear corners yield
// ErrSingularTransform.
//
// # Thread Safety
//
// The ImageCache type is safe for concurrent use. Individual image operations
// are stateless and can be called concurrently on different images.
//
// # Error Handling
//
// Functions return errors for invalid inputs such as:
//   - Unsupported Sobel apertures or even threshold block sizes
//   - Crop margins that would consume the whole image
//   - Degenerate warp geometry
//   - File I/O errors during image loading and saving
package imaging

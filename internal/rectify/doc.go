// Package rectify turns a photographed page into a flat, binarised scan.
//
// A Pipeline runs a small state machine over each image:
//
//	Start -> FiducialAttempt -> Rectified
//	                         -> FallbackAttempt -> Rectified
//	                                            -> Failed
//
// The fiducial tier looks for four printed corner markers (towers of nested
// squares) and uses their centres as the page corners. When that fails for any
// reason the fallback tier takes the largest rectangular contour that encloses
// every marker found, retrying with the next-largest candidate a bounded
// number of times.
//
// Corners are turned into a Plan, the page is warped upright, a margin is
// cropped from every side and the result is binarised with an adaptive
// threshold. All pixel work goes through the Vision interface.
//
// Rectify never returns an error. Failures are reported through
// Result.State and Result.Err, and the input image is handed back untouched.
package rectify

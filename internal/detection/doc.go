// Package detection finds fiducial markers and document corners in a contour
// forest.
//
// A fiducial marker is a stack of nested squares printed near each corner of
// a page. After edge detection every printed square produces a pair of
// contours (its outer and inner edge), so a marker shows up as a long chain
// of first-child links in the contour hierarchy.
//
// # Pipeline
//
// The fiducial path runs in three steps:
//
//  1. Grouping: GroupHierarchy walks first-child chains and keeps those with
//     at least MinGroupLength contours.
//  2. Focus points: NewFocusPoint turns a group into a FocusPoint, recording
//     the centroid of the group and the index of its innermost valid
//     quadrilateral (the inner border).
//  3. Corner selection: SelectCorners keeps the focus points that see at least
//     two perpendicular pairs of other focus points and requires exactly four
//     of them, arranged as a rectangle.
//
// The corner whose marker is deepest is the reference corner. Reference and
// OrderCorners together produce the order top-left, top-right, bottom-right,
// bottom-left for an upright page.
//
// # Shape Rules
//
// Classifier holds the angle and length tolerances. Every valid shape is
// convex. Quadrilaterals additionally need all four interior angles within
// AngleTolerance of 90 degrees, and regular shapes need every edge within
// LengthTolerance of the mean edge length.
//
// # Coordinate System
//
// Coordinates follow the image convention: origin at the top-left, X grows to
// the right, Y grows downward. Bearings are measured with atan2(dy, dx), so
// sorting by bearing walks clockwise on screen starting from the left.
package detection

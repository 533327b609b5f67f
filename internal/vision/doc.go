// Package vision provides the image backends behind rectify.Vision.
//
// Native is pure Go and always available. Building with the gocv tag adds an
// OpenCV backend, which needs OpenCV 4 and cgo:
//
//	go build -tags gocv ./...
//
// Backends are looked up by name with New, so configuration can pick one
// without importing build-tagged code.
package vision

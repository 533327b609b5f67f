//go:build gocv

package vision

import (
	"errors"
	"fmt"
	"image"
	"math"

	"gocv.io/x/gocv"

	"github.com/ironsheep/docscan-mcp/internal/contour"
	"github.com/ironsheep/docscan-mcp/internal/geometry"
	"github.com/ironsheep/docscan-mcp/internal/rectify"
)

// OpenCVName selects the OpenCV backend.
const OpenCVName = "opencv"

func init() {
	register(OpenCVName, func() rectify.Vision { return OpenCV{} })
}

// OpenCV runs the pixel work through OpenCV. Every Mat is released before a
// method returns, so the backend holds no native memory between calls.
//
// OpenCV's Canny binding fixes the Sobel aperture at 3; the aperture
// argument of DetectEdges is accepted and ignored.
type OpenCV struct{}

func grayMat(img image.Image) (gocv.Mat, error) {
	if g, ok := img.(*image.Gray); ok && g.Rect.Min == (image.Point{}) {
		return gocv.ImageGrayToMatGray(g)
	}
	bgr, err := gocv.ImageToMatRGB(img)
	if err != nil {
		return gocv.NewMat(), err
	}
	defer bgr.Close()

	gray := gocv.NewMat()
	gocv.CvtColor(bgr, &gray, gocv.ColorBGRToGray)
	return gray, nil
}

func toGray(m gocv.Mat) (*image.Gray, error) {
	img, err := m.ToImage()
	if err != nil {
		return nil, err
	}
	g, ok := img.(*image.Gray)
	if !ok {
		return nil, fmt.Errorf("opencv: expected a single channel result, got %T", img)
	}
	return g, nil
}

func (OpenCV) DetectEdges(img image.Image, low, high, _ int) (*image.Gray, error) {
	src, err := grayMat(img)
	if err != nil {
		return nil, fmt.Errorf("opencv: %w", err)
	}
	defer src.Close()

	edges := gocv.NewMat()
	defer edges.Close()
	gocv.Canny(src, &edges, float32(low), float32(high))
	return toGray(edges)
}

func (OpenCV) ExtractContours(edges *image.Gray) (contour.Forest, error) {
	src, err := gocv.ImageGrayToMatGray(edges)
	if err != nil {
		return contour.Forest{}, fmt.Errorf("opencv: %w", err)
	}
	defer src.Close()

	hierarchy := gocv.NewMat()
	defer hierarchy.Close()
	contours := gocv.FindContoursWithParams(src, &hierarchy, gocv.RetrievalTree, gocv.ChainApproxSimple)
	defer contours.Close()

	n := contours.Size()
	forest := contour.Forest{
		Contours:  make([]geometry.Contour, n),
		Hierarchy: make([]contour.Link, n),
	}
	for i := 0; i < n; i++ {
		forest.Contours[i] = fromPoints(contours.At(i).ToPoints())
		// hierarchy rows are next, previous, first child, parent
		h := hierarchy.GetVeciAt(0, i)
		forest.Hierarchy[i] = contour.Link{
			Next:       int(h[0]),
			Prev:       int(h[1]),
			FirstChild: int(h[2]),
			Parent:     int(h[3]),
		}
	}
	return forest, nil
}

func (OpenCV) Approximate(c geometry.Contour, tolerance float64) geometry.Contour {
	if len(c) < 3 {
		return append(geometry.Contour(nil), c...)
	}
	pv := gocv.NewPointVectorFromPoints(toPoints(c))
	defer pv.Close()
	approx := gocv.ApproxPolyDP(pv, tolerance, true)
	defer approx.Close()
	return fromPoints(approx.ToPoints())
}

// IsConvex uses the float geometry; OpenCV would need integer vertices.
func (OpenCV) IsConvex(c geometry.Contour) bool {
	return geometry.IsConvex(c)
}

func (OpenCV) Contains(c geometry.Contour, p geometry.Point) bool {
	if len(c) < 3 {
		return false
	}
	pv := gocv.NewPointVectorFromPoints(toPoints(c))
	defer pv.Close()
	at := image.Pt(int(math.Round(p.X)), int(math.Round(p.Y)))
	return gocv.PointPolygonTest(pv, at, false) >= 0
}

func (OpenCV) Area(c geometry.Contour) float64 {
	if len(c) < 3 {
		return 0
	}
	pv := gocv.NewPointVectorFromPoints(toPoints(c))
	defer pv.Close()
	return gocv.ContourArea(pv)
}

func (OpenCV) AdaptiveThreshold(img image.Image, blockSize int, c float64) (*image.Gray, error) {
	if blockSize < 3 || blockSize%2 == 0 {
		return nil, fmt.Errorf("opencv: block size %d must be odd and >= 3", blockSize)
	}
	src, err := grayMat(img)
	if err != nil {
		return nil, fmt.Errorf("opencv: %w", err)
	}
	defer src.Close()

	dst := gocv.NewMat()
	defer dst.Close()
	gocv.AdaptiveThreshold(src, &dst, 255, gocv.AdaptiveThresholdGaussian, gocv.ThresholdBinary, blockSize, float32(c))
	return toGray(dst)
}

func (OpenCV) Warp(img image.Image, src, dst [4]geometry.Point, size image.Point) (image.Image, error) {
	if size.X < 1 || size.Y < 1 {
		return nil, fmt.Errorf("opencv: invalid output size %v", size)
	}
	in, err := gocv.ImageToMatRGB(img)
	if err != nil {
		return nil, fmt.Errorf("opencv: %w", err)
	}
	defer in.Close()

	from := gocv.NewPoint2fVectorFromPoints(toPoint2f(src))
	defer from.Close()
	to := gocv.NewPoint2fVectorFromPoints(toPoint2f(dst))
	defer to.Close()

	m := gocv.GetPerspectiveTransform2f(from, to)
	defer m.Close()
	if m.Empty() {
		return nil, errors.New("opencv: singular perspective transform")
	}

	out := gocv.NewMat()
	defer out.Close()
	gocv.WarpPerspective(in, &out, m, size)
	return out.ToImage()
}

func toPoints(c geometry.Contour) []image.Point {
	out := make([]image.Point, len(c))
	for i, p := range c {
		out[i] = image.Pt(int(math.Round(p.X)), int(math.Round(p.Y)))
	}
	return out
}

func fromPoints(pts []image.Point) geometry.Contour {
	out := make(geometry.Contour, len(pts))
	for i, p := range pts {
		out[i] = geometry.Pt(float64(p.X), float64(p.Y))
	}
	return out
}

func toPoint2f(q [4]geometry.Point) []gocv.Point2f {
	out := make([]gocv.Point2f, len(q))
	for i, p := range q {
		out[i] = gocv.Point2f{X: float32(p.X), Y: float32(p.Y)}
	}
	return out
}

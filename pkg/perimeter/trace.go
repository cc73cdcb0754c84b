// Package perimeter traces object boundaries, estimates their curvature
// with a sliding window and partitions them into convex and concave
// regions.
package perimeter

import (
	"gocv.io/x/gocv"

	"separateclumps/internal/cvmat"
	"separateclumps/internal/models"
)

// Trace follows the outer boundary of the first object (in raster order)
// of m and returns the boundary pixels as a closed, ordered sequence
// without a repeated end point.
//
// The sequence starts at the first foreground pixel and runs clockwise on
// screen, so the top edge is walked left to right. Pixels on one-pixel-wide
// parts are visited once per side.
func Trace(m *models.Mask) []models.Point {
	start, ok := firstPixel(m)
	if !ok {
		return nil
	}

	src := cvmat.FromMask(m, 1)
	defer src.Close()
	contours := gocv.FindContours(src, gocv.RetrievalExternal, gocv.ChainApproxNone)
	defer contours.Close()

	for i := 0; i < contours.Size(); i++ {
		pts := cvmat.Points(contours.At(i).ToPoints(), 1)
		for k, p := range pts {
			if p == start {
				return orient(pts, k)
			}
		}
	}
	return []models.Point{start}
}

// firstPixel returns the first foreground pixel in raster order
func firstPixel(m *models.Mask) (models.Point, bool) {
	for i, v := range m.Pix {
		if v {
			return models.Point{Row: i / m.Width, Col: i % m.Width}, true
		}
	}
	return models.Point{}, false
}

// orient rotates a closed contour to begin at index k and reverses it
// when it runs counter-clockwise on screen
func orient(pts []models.Point, k int) []models.Point {
	n := len(pts)
	out := make([]models.Point, n)
	for i := range out {
		out[i] = pts[(k+i)%n]
	}

	// twice the signed area with x to the right and y downwards
	var twice int
	for i := range out {
		a, b := out[i], out[(i+1)%n]
		twice += a.Col*b.Row - b.Col*a.Row
	}
	if twice < 0 {
		for i, j := 1, n-1; i < j; i, j = i+1, j-1 {
			out[i], out[j] = out[j], out[i]
		}
	}
	return out
}

// Length returns the length of a closed contour, counting 1 for edge
// steps and sqrt(2) for diagonal steps.
func Length(contour []models.Point) float64 {
	if len(contour) < 2 {
		return 0
	}
	pv := gocv.NewPointVectorFromPoints(cvmat.ImagePoints(contour))
	defer pv.Close()
	return gocv.ArcLength(pv, true)
}

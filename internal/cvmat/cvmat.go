// Package cvmat moves masks and point lists between the raster models and
// OpenCV matrices.
//
// Masks are written as 8-bit single channel images with foreground 255,
// surrounded by a border of pad background pixels. Points map column to
// x and row to y.
package cvmat

import (
	"image"

	"gocv.io/x/gocv"

	"separateclumps/internal/models"
)

// FromMask copies m into a new CV_8UC1 matrix with pad background pixels
// on every side. The caller owns the returned Mat and must Close it.
func FromMask(m *models.Mask, pad int) gocv.Mat {
	rows, cols := m.Height+2*pad, m.Width+2*pad
	mat := gocv.NewMatWithSize(rows, cols, gocv.MatTypeCV8UC1)
	for r := 0; r < rows; r++ {
		for c := 0; c < cols; c++ {
			var v uint8
			if m.At(r-pad, c-pad) {
				v = 255
			}
			mat.SetUCharAt(r, c, v)
		}
	}
	return mat
}

// ToMask reads a CV_8UC1 matrix back into a mask, dropping pad pixels on
// every side. Any nonzero value is foreground.
func ToMask(mat gocv.Mat, pad int) *models.Mask {
	out := models.NewMask(mat.Cols()-2*pad, mat.Rows()-2*pad)
	for r := 0; r < out.Height; r++ {
		for c := 0; c < out.Width; c++ {
			out.Pix[r*out.Width+c] = mat.GetUCharAt(r+pad, c+pad) != 0
		}
	}
	return out
}

// Points converts OpenCV points of a padded matrix into raster positions
func Points(pts []image.Point, pad int) []models.Point {
	out := make([]models.Point, len(pts))
	for i, p := range pts {
		out[i] = models.Point{Row: p.Y - pad, Col: p.X - pad}
	}
	return out
}

// ImagePoints converts raster positions into OpenCV points
func ImagePoints(pts []models.Point) []image.Point {
	out := make([]image.Point, len(pts))
	for i, p := range pts {
		out[i] = image.Point{X: p.Col, Y: p.Row}
	}
	return out
}

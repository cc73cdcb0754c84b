// Package morphology implements binary mathematical morphology with disk
// structuring elements and the mask smoothing used before perimeter
// analysis. The operators run on OpenCV; masks are padded so that
// positions outside the raster behave as background.
package morphology

import (
	"image"

	"gocv.io/x/gocv"

	"separateclumps/internal/cvmat"
	"separateclumps/internal/models"
)

// ccStatArea is the area column of the connected component statistics
const ccStatArea = 4

// Disk returns the elliptical structuring element of size 2*radius+1.
// Radius is clamped to at least 1; radius 1 is the 4-connected cross.
// The caller must Close the kernel.
func Disk(radius int) gocv.Mat {
	if radius < 1 {
		radius = 1
	}
	size := 2*radius + 1
	return gocv.GetStructuringElement(gocv.MorphEllipse, image.Point{X: size, Y: size})
}

// apply runs one morphological operation with a disk of the given radius.
// The padding is wider than the disk, so the default border handling of
// OpenCV never reaches an object pixel.
func apply(m *models.Mask, op gocv.MorphType, radius int) *models.Mask {
	if radius < 1 {
		radius = 1
	}
	if m.Width == 0 || m.Height == 0 {
		return m.Clone()
	}
	pad := radius + 1

	src := cvmat.FromMask(m, pad)
	defer src.Close()
	kernel := Disk(radius)
	defer kernel.Close()
	dst := gocv.NewMat()
	defer dst.Close()

	gocv.MorphologyEx(src, &dst, op, kernel)
	return cvmat.ToMask(dst, pad)
}

// Erode keeps a pixel when the whole disk around it is foreground.
// Positions outside the raster count as background.
func Erode(m *models.Mask, radius int) *models.Mask {
	return apply(m, gocv.MorphErode, radius)
}

// Dilate sets every pixel within the disk of a foreground pixel
func Dilate(m *models.Mask, radius int) *models.Mask {
	return apply(m, gocv.MorphDilate, radius)
}

// Open is erosion followed by dilation. It removes protrusions and
// bridges narrower than the element while keeping concave corners sharp.
func Open(m *models.Mask, radius int) *models.Mask {
	return apply(m, gocv.MorphOpen, radius)
}

// RemoveSmallObjects drops 8-connected components with fewer than minArea pixels
func RemoveSmallObjects(m *models.Mask, minArea int) *models.Mask {
	if minArea <= 0 || m.Count() == 0 {
		return m.Clone()
	}

	src := cvmat.FromMask(m, 0)
	defer src.Close()
	labels := gocv.NewMat()
	defer labels.Close()
	stats := gocv.NewMat()
	defer stats.Close()
	centroids := gocv.NewMat()
	defer centroids.Close()

	n := gocv.ConnectedComponentsWithStats(src, &labels, &stats, &centroids)
	keep := make([]bool, n)
	for i := 1; i < n; i++ {
		keep[i] = int(stats.GetIntAt(i, ccStatArea)) >= minArea
	}

	out := models.NewMask(m.Width, m.Height)
	for r := 0; r < m.Height; r++ {
		for c := 0; c < m.Width; c++ {
			if m.Pix[r*m.Width+c] && keep[labels.GetIntAt(r, c)] {
				out.Pix[r*m.Width+c] = true
			}
		}
	}
	return out
}

// Smooth regularises an object mask before its boundary is traced:
// an opening with a disk of radius filterSize, then removal of the crumbs
// smaller than minArea the opening may have cut loose.
func Smooth(m *models.Mask, filterSize, minArea int) *models.Mask {
	return RemoveSmallObjects(Open(m, filterSize), minArea)
}

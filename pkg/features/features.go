// Package features measures the shape of labelled objects and decides
// which of them look like clumps of several fused objects.
package features

import (
	"image"
	"math"

	"gocv.io/x/gocv"

	"separateclumps/internal/models"
	"separateclumps/pkg/labeling"
	"separateclumps/pkg/perimeter"
)

// Extract measures every object of a label image. Interior holes are
// filled before measuring. Records are ordered by label; an image
// without foreground yields an empty slice.
func Extract(labels *models.LabelImage) []models.ObjectRecord {
	comps := labeling.Components(labels)
	records := make([]models.ObjectRecord, 0, len(comps))
	for _, comp := range comps {
		// one pixel of padding keeps the traced boundary off the crop edge
		box := comp.Bounds.Pad(1)
		crop := labeling.Crop(labels, comp.Label, box)
		rec := Measure(crop)
		rec.Label = comp.Label
		rec.PixelCount = len(comp.Pixels)
		rec.Bounds = comp.Bounds
		records = append(records, rec)
	}
	return records
}

// Measure computes area, perimeter, solidity and form factor of the
// object in m. The mask should hold one object; holes are filled first.
// Label and Bounds are left for the caller.
func Measure(m *models.Mask) models.ObjectRecord {
	filled := labeling.FillHoles(m)
	area := filled.Count()
	rec := models.ObjectRecord{PixelCount: m.Count(), Area: area}
	if area == 0 {
		return rec
	}

	rec.PerimeterLength = perimeter.Length(perimeter.Trace(filled))
	rec.Solidity = Solidity(filled)
	rec.FormFactor = FormFactor(area, rec.PerimeterLength)
	return rec
}

// FormFactor is max(0, -ln(4*pi*area / (perimeter+1)^2)). It is 0 for
// disks and grows as the outline gets less circular.
func FormFactor(area int, perimeterLength float64) float64 {
	p := perimeterLength + 1
	ff := -math.Log(4 * math.Pi * float64(area) / (p * p))
	if ff < 0 || math.IsNaN(ff) {
		return 0
	}
	return ff
}

// Solidity returns the foreground pixel count of m divided by the area of
// the convex hull of its pixel squares. An empty mask has solidity 0.
func Solidity(m *models.Mask) float64 {
	count := m.Count()
	if count == 0 {
		return 0
	}

	corners := pixelCorners(m)
	pv := gocv.NewPointVectorFromPoints(corners)
	defer pv.Close()
	hull := gocv.NewMat()
	defer hull.Close()
	gocv.ConvexHull(pv, &hull, false, false)
	if hull.Rows() < 3 {
		return 0
	}

	poly := make([]image.Point, hull.Rows())
	for i := range poly {
		poly[i] = corners[hull.GetIntAt(i, 0)]
	}
	hv := gocv.NewPointVectorFromPoints(poly)
	defer hv.Close()

	area := gocv.ContourArea(hv)
	if area <= 0 {
		return 0
	}
	return math.Min(1, float64(count)/area)
}

// pixelCorners returns the corners of the leftmost and rightmost pixel of
// each row as (x, y) points, which is all the hull can touch.
func pixelCorners(m *models.Mask) []image.Point {
	var pts []image.Point
	for r := 0; r < m.Height; r++ {
		first, last := -1, -1
		for c := 0; c < m.Width; c++ {
			if m.Pix[r*m.Width+c] {
				if first < 0 {
					first = c
				}
				last = c
			}
		}
		if first < 0 {
			continue
		}
		pts = append(pts,
			image.Pt(first, r), image.Pt(first, r+1),
			image.Pt(last+1, r), image.Pt(last+1, r+1))
	}
	return pts
}

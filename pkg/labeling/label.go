// Package labeling provides connected-component labelling and the small
// raster utilities every other stage builds on.
//
// All stages use 8-connectivity for foreground pixels. Background pixels
// are treated with the dual 4-connectivity where that matters (hole
// filling), so that a diagonal foreground step never leaks background.
package labeling

import (
	"image/color"

	"gocv.io/x/gocv"

	"separateclumps/internal/cvmat"
	"separateclumps/internal/models"
)

// Label assigns 8-connected component labels to the foreground of m.
// Labels are 1..n, numbered in raster order of each component's first
// pixel, so the result does not depend on the scan order of OpenCV.
//
// Returns the label image and the number of components.
func Label(m *models.Mask) (*models.LabelImage, int) {
	out := models.NewLabelImage(m.Width, m.Height)
	if m.Count() == 0 {
		return out, 0
	}

	src := cvmat.FromMask(m, 0)
	defer src.Close()
	labels := gocv.NewMat()
	defer labels.Close()

	total := gocv.ConnectedComponents(src, &labels)
	remap := make([]int32, total)
	var n int32
	for r := 0; r < m.Height; r++ {
		for c := 0; c < m.Width; c++ {
			l := labels.GetIntAt(r, c)
			if l == 0 {
				continue
			}
			if remap[l] == 0 {
				n++
				remap[l] = n
			}
			out.Labels[r*m.Width+c] = remap[l]
		}
	}
	return out, int(n)
}

// Relabel recomputes connected components of a label image's foreground.
// Distinct input labels that touch are merged; that is intended, since
// objects never share pixels and a cut is realised by clearing pixels.
func Relabel(l *models.LabelImage) (*models.LabelImage, int) {
	return Label(l.Foreground())
}

// Component describes one labelled object
type Component struct {
	Label  int32
	Bounds models.Bounds
	Pixels []models.Point
}

// Components collects the pixels and bounding boxes of every label,
// ordered by label.
func Components(l *models.LabelImage) []Component {
	index := make(map[int32]int)
	var comps []Component
	for r := 0; r < l.Height; r++ {
		for c := 0; c < l.Width; c++ {
			lab := l.Labels[r*l.Width+c]
			if lab == 0 {
				continue
			}
			i, ok := index[lab]
			if !ok {
				i = len(comps)
				index[lab] = i
				comps = append(comps, Component{
					Label:  lab,
					Bounds: models.Bounds{MinRow: r, MinCol: c, MaxRow: r, MaxCol: c},
				})
			}
			comp := &comps[i]
			comp.Pixels = append(comp.Pixels, models.Point{Row: r, Col: c})
			if c < comp.Bounds.MinCol {
				comp.Bounds.MinCol = c
			}
			if c > comp.Bounds.MaxCol {
				comp.Bounds.MaxCol = c
			}
			comp.Bounds.MaxRow = r
		}
	}

	// insertion sort by label keeps this allocation-free for the usual
	// already-sorted case
	for i := 1; i < len(comps); i++ {
		for j := i; j > 0 && comps[j].Label < comps[j-1].Label; j-- {
			comps[j], comps[j-1] = comps[j-1], comps[j]
		}
	}
	return comps
}

// FillHoles returns a copy of m with every background pixel enclosed by
// an outer boundary set to foreground. Background enclosed only through
// diagonal foreground steps counts as a hole.
func FillHoles(m *models.Mask) *models.Mask {
	if m.Count() == 0 {
		return m.Clone()
	}

	src := cvmat.FromMask(m, 1)
	defer src.Close()
	contours := gocv.FindContours(src, gocv.RetrievalExternal, gocv.ChainApproxNone)
	defer contours.Close()

	filled := cvmat.FromMask(models.NewMask(m.Width, m.Height), 1)
	defer filled.Close()
	gocv.DrawContours(&filled, contours, -1, color.RGBA{R: 255, G: 255, B: 255, A: 255}, -1)

	out := cvmat.ToMask(filled, 1)
	for i, v := range m.Pix {
		out.Pix[i] = out.Pix[i] || v
	}
	return out
}

// Crop extracts the pixels carrying label inside box b as a mask whose
// origin is (b.MinRow, b.MinCol). The box may extend past the raster; the
// extra rows and columns are background, which leaves room for morphology
// and boundary tracing.
func Crop(l *models.LabelImage, label int32, b models.Bounds) *models.Mask {
	out := models.NewMask(b.Width(), b.Height())
	for r := 0; r < out.Height; r++ {
		for c := 0; c < out.Width; c++ {
			if l.At(b.MinRow+r, b.MinCol+c) == label {
				out.Pix[r*out.Width+c] = true
			}
		}
	}
	return out
}

// CropIntensity extracts box b of an intensity image; positions outside
// the raster read as zero.
func CropIntensity(im *models.IntensityImage, b models.Bounds) *models.IntensityImage {
	out := models.NewIntensityImage(b.Width(), b.Height())
	for r := 0; r < out.Height; r++ {
		sr := b.MinRow + r
		if sr < 0 || sr >= im.Height {
			continue
		}
		for c := 0; c < out.Width; c++ {
			sc := b.MinCol + c
			if sc < 0 || sc >= im.Width {
				continue
			}
			out.Pix[r*out.Width+c] = im.Pix[sr*im.Width+sc]
		}
	}
	return out
}

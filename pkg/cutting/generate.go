// Package cutting proposes cut lines between concave boundary regions of
// a clump, scores them and picks a conflict-free set of cuts.
package cutting

import (
	"fmt"
	"math"

	"gonum.org/v1/gonum/spatial/r2"
	"gonum.org/v1/gonum/stat"

	"separateclumps/internal/models"
	"separateclumps/pkg/features"
	"separateclumps/pkg/labeling"
	"separateclumps/pkg/perimeter"
)

// DefaultMaxRegionsPerObject bounds the number of concave regions, and so
// the number of region pairs, examined for one object
const DefaultMaxRegionsPerObject = 30

// Params control candidate generation
type Params struct {
	// MaxConcaveRadius is the largest equivalent radius, in pixels, of a
	// concave region that may anchor a cut
	MaxConcaveRadius float64

	// MinConcaveAngle is the smallest equivalent angle, in degrees, of a
	// concave region that may anchor a cut
	MinConcaveAngle float64

	// MinCutArea is the smallest fragment a cut may leave
	MinCutArea int

	// MaxRegionsPerObject caps the concave regions of one object; 0 means
	// no cap
	MaxRegionsPerObject int

	// WindowSize is the curvature window; its half sets the span used
	// for inward normals
	WindowSize int

	LineMode LineMode
	Weights  Weights
}

// Object bundles everything known about one clump. All rasters share the
// same crop origin.
type Object struct {
	Label int32

	// Analysis of the smoothed object's boundary
	Analysis perimeter.Analysis

	// Smoothed is the mask the boundary was traced on
	Smoothed *models.Mask

	// Original is the hole-filled, unsmoothed object
	Original *models.Mask

	// Intensity may be nil, which disables the intensity cost
	Intensity *models.IntensityImage
}

// anchor is a concave region that qualifies as a cut end
type anchor struct {
	region int
	point  models.Point
	normal r2.Vec
}

// Generate proposes every feasible cut between pairs of admissible concave
// regions of obj, in region order. It returns ErrTooManyRegions when the
// object has more concave regions than allowed; the caller should leave
// such objects uncut.
func Generate(obj Object, p Params) ([]models.CutCandidate, error) {
	concave := obj.Analysis.ConcaveRegions()
	if p.MaxRegionsPerObject > 0 && len(concave) > p.MaxRegionsPerObject {
		return nil, fmt.Errorf("%w: object %d has %d concave regions, limit %d",
			models.ErrTooManyRegions, obj.Label, len(concave), p.MaxRegionsPerObject)
	}

	anchors := admissibleAnchors(obj.Analysis, concave, p)
	if len(anchors) < 2 {
		return nil, nil
	}

	area := obj.Original.Count()
	diameter := 2 * math.Sqrt(float64(area)/math.Pi)
	objectMean := meanIntensity(obj.Original, obj.Intensity)

	var candidates []models.CutCandidate
	for i := 0; i < len(anchors); i++ {
		for j := i + 1; j < len(anchors); j++ {
			a, b := anchors[i], anchors[j]
			line := cutLine(obj, a.point, b.point, p.LineMode)
			if line == nil {
				continue
			}

			fragments := split(obj.Original, line)
			if !feasible(fragments, p.MinCutArea) {
				continue
			}

			cand := models.CutCandidate{
				ObjectLabel: obj.Label,
				RegionA:     a.region,
				RegionB:     b.region,
				Line:        line,
			}
			for _, f := range fragments {
				cand.FragmentAreas = append(cand.FragmentAreas, f.Count())
			}
			cand.Cost = models.CostFeatures{
				Length:    r2.Norm(r2.Sub(vec(b.point), vec(a.point))) / diameter,
				Intensity: intensityCost(line, obj.Original, obj.Intensity, objectMean),
				Angle:     angleCost(a, b),
				Fragment:  fragmentCost(fragments),
			}
			cand.Total = p.Weights.Total(cand.Cost)
			candidates = append(candidates, cand)
		}
	}
	return candidates, nil
}

// admissibleAnchors keeps the concave regions that are sharp and tight
// enough and locates their deepest point and inward normal
func admissibleAnchors(a perimeter.Analysis, concave []int, p Params) []anchor {
	minAngle := p.MinConcaveAngle * math.Pi / 180
	h := p.WindowSize / 2
	if h < 1 {
		h = 1
	}
	n := len(a.Points)

	var anchors []anchor
	for _, ri := range concave {
		region := a.Regions[ri]
		if region.EquivalentRadius > p.MaxConcaveRadius || region.EquivalentAngle < minAngle {
			continue
		}

		best := 0
		for k, pt := range region.Points {
			if pt.Curvature < region.Points[best].Curvature {
				best = k
			}
		}
		idx := (region.Start + best) % n
		pt := a.Points[idx].Point
		prev := vec(a.Points[(idx-h+n)%n].Point)
		next := vec(a.Points[(idx+h)%n].Point)
		mid := r2.Scale(0.5, r2.Add(prev, next))

		anchors = append(anchors, anchor{
			region: ri,
			point:  pt,
			normal: r2.Sub(vec(pt), mid),
		})
	}
	return anchors
}

// cutLine rasterises the line between two anchors and rejects it when it
// leaves the smoothed object away from its end points
func cutLine(obj Object, a, b models.Point, mode LineMode) []models.Point {
	var line []models.Point
	switch mode {
	case LineWatershed:
		line = WatershedLine(obj.Smoothed, obj.Intensity, a, b)
	default:
		line = StraightLine(a, b)
	}
	if len(line) == 0 {
		return nil
	}
	for _, q := range line {
		if obj.Smoothed.At(q.Row, q.Col) {
			continue
		}
		if chebyshev(q, a) <= 1 || chebyshev(q, b) <= 1 {
			continue
		}
		return nil
	}
	return line
}

// split clears line from a copy of m and returns the resulting
// 8-connected fragments, ordered by label
func split(m *models.Mask, line []models.Point) []*models.Mask {
	work := m.Clone()
	for _, q := range line {
		if work.In(q.Row, q.Col) {
			work.Set(q.Row, q.Col, false)
		}
	}
	labels, n := labeling.Label(work)
	fragments := make([]*models.Mask, n)
	for i := range fragments {
		fragments[i] = models.NewMask(m.Width, m.Height)
	}
	for i, l := range labels.Labels {
		if l != 0 {
			fragments[l-1].Pix[i] = true
		}
	}
	return fragments
}

// feasible requires at least two fragments, each of at least minArea pixels
func feasible(fragments []*models.Mask, minArea int) bool {
	if len(fragments) < 2 {
		return false
	}
	for _, f := range fragments {
		if f.Count() < minArea {
			return false
		}
	}
	return true
}

// meanIntensity is the mean intensity over the foreground of m
func meanIntensity(m *models.Mask, intensity *models.IntensityImage) float64 {
	if intensity == nil {
		return 0
	}
	var values []float64
	for i, v := range m.Pix {
		if v {
			values = append(values, float64(intensity.Pix[i]))
		}
	}
	if len(values) == 0 {
		return 0
	}
	return stat.Mean(values, nil)
}

// intensityCost is the mean intensity along the line relative to the
// object mean. Bright lines cross object interiors, dark lines follow gaps.
func intensityCost(line []models.Point, m *models.Mask, intensity *models.IntensityImage, objectMean float64) float64 {
	if intensity == nil || objectMean == 0 {
		return 0
	}
	var values []float64
	for _, q := range line {
		if m.At(q.Row, q.Col) {
			values = append(values, float64(intensity.At(q.Row, q.Col)))
		}
	}
	if len(values) == 0 {
		return 0
	}
	return stat.Mean(values, nil) / objectMean
}

// angleCost is the mean angle between the cut direction and each anchor's
// inward normal, over pi. A cut straight across a symmetric neck costs 0.
func angleCost(a, b anchor) float64 {
	dir := r2.Sub(vec(b.point), vec(a.point))
	back := r2.Scale(-1, dir)
	return (deviation(dir, a.normal) + deviation(back, b.normal)) / (2 * math.Pi)
}

// deviation is the angle between u and v; a zero vector deviates by pi/2
func deviation(u, v r2.Vec) float64 {
	if r2.Norm(u) == 0 || r2.Norm(v) == 0 {
		return math.Pi / 2
	}
	return math.Acos(math.Max(-1, math.Min(1, r2.Cos(u, v))))
}

// fragmentCost is the mean concavity (1 - solidity) of the fragments
func fragmentCost(fragments []*models.Mask) float64 {
	if len(fragments) == 0 {
		return 0
	}
	values := make([]float64, len(fragments))
	for i, f := range fragments {
		values[i] = 1 - features.Solidity(f)
	}
	return stat.Mean(values, nil)
}

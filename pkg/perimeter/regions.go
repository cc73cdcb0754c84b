package perimeter

import (
	"separateclumps/internal/models"
)

// DefaultFlatTolerance is the curvature magnitude below which a point is flat
const DefaultFlatTolerance = 1e-6

// Options configure boundary analysis
type Options struct {
	// WindowSize is the number of points in the curvature window (odd)
	WindowSize int

	Method Method

	// FlatTolerance is the curvature magnitude treated as zero
	FlatTolerance float64
}

// Analysis is the result of analysing one object boundary
type Analysis struct {
	Points  []models.PerimeterPoint
	Regions []models.Region
}

// ConcaveRegions returns the indexes of the concave regions
func (a Analysis) ConcaveRegions() []int {
	var idx []int
	for i, r := range a.Regions {
		if r.Sign == models.Concave {
			idx = append(idx, i)
		}
	}
	return idx
}

// Analyze traces the boundary of the object in m, estimates curvature and
// partitions the boundary into regions. m should be hole-filled and hold a
// single object. Boundaries shorter than the window yield an empty analysis.
func Analyze(m *models.Mask, opts Options) Analysis {
	contour := Trace(m)
	curv := Curvature(contour, opts.WindowSize, opts.Method)
	if curv == nil {
		return Analysis{}
	}

	points := make([]models.PerimeterPoint, len(contour))
	for i, p := range contour {
		points[i] = models.PerimeterPoint{Point: p, Curvature: curv[i]}
	}
	return Analysis{
		Points:  points,
		Regions: Partition(points, opts.FlatTolerance),
	}
}

// Partition splits a closed boundary into maximal runs of equal curvature
// sign. Every point belongs to exactly one region.
//
// Points with |curvature| <= flatTol take the sign of the next non-flat
// point along the boundary (cyclically). A boundary with no non-flat point
// is one convex region. The first region starts at a sign change, so a run
// never straddles the start of the returned sequence; Region.Start indexes
// points and may run past the end cyclically.
func Partition(points []models.PerimeterPoint, flatTol float64) []models.Region {
	n := len(points)
	if n == 0 {
		return nil
	}

	signs := make([]models.Convexity, n)
	flat := make([]bool, n)
	anchor := -1
	for i, p := range points {
		switch {
		case p.Curvature > flatTol:
			signs[i] = models.Convex
		case p.Curvature < -flatTol:
			signs[i] = models.Concave
		default:
			flat[i] = true
			continue
		}
		if anchor < 0 {
			anchor = i
		}
	}

	if anchor < 0 {
		all := make([]models.PerimeterPoint, n)
		copy(all, points)
		return []models.Region{models.NewRegion(all, 0, models.Convex)}
	}

	// walk backwards from a non-flat point; last holds the sign of the
	// next non-flat point in forward order
	last := signs[anchor]
	for s := 1; s < n; s++ {
		j := ((anchor-s)%n + n) % n
		if flat[j] {
			signs[j] = last
		} else {
			last = signs[j]
		}
	}

	start := -1
	for i := 0; i < n; i++ {
		if signs[i] != signs[(i-1+n)%n] {
			start = i
			break
		}
	}
	if start < 0 {
		all := make([]models.PerimeterPoint, n)
		copy(all, points)
		return []models.Region{models.NewRegion(all, 0, signs[0])}
	}

	var regions []models.Region
	runStart := start
	var run []models.PerimeterPoint
	for k := 0; k < n; k++ {
		i := (start + k) % n
		if k > 0 && signs[i] != signs[(i-1+n)%n] {
			regions = append(regions, models.NewRegion(run, runStart, signs[(i-1+n)%n]))
			run = nil
			runStart = i
		}
		run = append(run, points[i])
	}
	regions = append(regions, models.NewRegion(run, runStart, signs[(start+n-1)%n]))
	return regions
}

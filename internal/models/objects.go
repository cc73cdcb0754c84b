package models

import "math"

// ObjectRecord holds the shape features of one connected component
type ObjectRecord struct {
	// Label is the component's label in the label image it was measured on
	Label int32

	// PixelCount is the number of pixels carrying the label
	PixelCount int

	// Area is the pixel count after filling interior holes
	Area int

	// PerimeterLength is the length of the traced outer boundary
	// (1 per edge step, sqrt(2) per diagonal step)
	PerimeterLength float64

	// Solidity is Area divided by the area of the convex hull
	Solidity float64

	// FormFactor is max(0, -ln(4*pi*Area / (PerimeterLength+1)^2)).
	// Larger values mean a less circular outline.
	FormFactor float64

	// Bounds is the bounding box of the object's pixels
	Bounds Bounds
}

// Convexity tells whether a boundary run bends outwards or inwards
type Convexity int

const (
	Convex Convexity = iota
	Concave
)

func (c Convexity) String() string {
	if c == Concave {
		return "concave"
	}
	return "convex"
}

// PerimeterPoint is one traced boundary pixel with its curvature estimate.
// Curvature is in radians per boundary point, positive on convex stretches.
type PerimeterPoint struct {
	Point
	Curvature float64
}

// Region is a maximal run of boundary points sharing one curvature sign
type Region struct {
	// Points in boundary order
	Points []PerimeterPoint

	// Start is the index of the first point in the traced boundary
	Start int

	Sign Convexity

	// EquivalentRadius is len(Points) / |sum of curvature|
	EquivalentRadius float64

	// EquivalentAngle is |sum of curvature| in radians
	EquivalentAngle float64
}

// NewRegion builds a region and derives its aggregate descriptors
func NewRegion(points []PerimeterPoint, start int, sign Convexity) Region {
	sum := 0.0
	for _, p := range points {
		sum += p.Curvature
	}
	angle := math.Abs(sum)
	radius := math.Inf(1)
	if angle > 0 {
		radius = float64(len(points)) / angle
	}
	return Region{
		Points:           points,
		Start:            start,
		Sign:             sign,
		EquivalentRadius: radius,
		EquivalentAngle:  angle,
	}
}

// CostFeatures are the individual terms of a cut's cost
type CostFeatures struct {
	// Length is the chord length relative to the object's equivalent diameter
	Length float64

	// Intensity is the mean intensity on the line relative to the object mean
	Intensity float64

	// Angle is the mean deviation from the regions' inward bisectors, over pi
	Angle float64

	// Fragment is the mean (1 - solidity) of the resulting fragments
	Fragment float64
}

// CutCandidate is a feasible cut between two concave regions of one object
type CutCandidate struct {
	ObjectLabel int32

	// RegionA and RegionB index the object's region list
	RegionA int
	RegionB int

	// Line holds the pixels to clear, from region A to region B
	Line []Point

	// FragmentAreas are the pixel counts of the pieces the cut would leave
	FragmentAreas []int

	Cost CostFeatures

	// Total is the weighted cost used for selection
	Total float64
}

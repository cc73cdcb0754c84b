package separation

import (
	"fmt"
	"math"
	"runtime"

	"separateclumps/pkg/cutting"
	"separateclumps/pkg/features"
	"separateclumps/pkg/perimeter"
)

// Params holds every parameter of the separation pipeline.
type Params struct {
	// Passes is the number of cutting passes. Fragments that still look
	// like clumps after a pass are examined again in the next one.
	Passes int

	// Thresholds decide which objects are clump candidates
	Thresholds features.Thresholds

	// FilterSize is the radius of the opening applied before boundary
	// tracing and, once, to the fragments produced by cuts
	FilterSize int

	// WindowSize is the number of boundary points in the curvature window.
	// Must be odd and at least 3.
	WindowSize int

	// CurvatureMethod selects the curvature estimator
	CurvatureMethod perimeter.Method

	// FlatTolerance is the curvature magnitude treated as zero
	FlatTolerance float64

	// MaxConcaveRadius is the largest equivalent radius (pixels) of a
	// concave region that may anchor a cut
	MaxConcaveRadius float64

	// MinConcaveAngle is the smallest equivalent angle (degrees) of a
	// concave region that may anchor a cut
	MinConcaveAngle float64

	// MinCutArea is the smallest fragment a cut may leave behind
	MinCutArea int

	// MaxRegionsPerObject caps the concave regions examined per object.
	// Objects above the cap are left uncut with a warning.
	MaxRegionsPerObject int

	// MaxCutsPerObject limits the cuts accepted for one object in one
	// pass; 0 means as many as the conflict graph allows
	MaxCutsPerObject int

	// LineMode selects straight or intensity-guided cut lines
	LineMode cutting.LineMode

	// DilateCuts thickens cut lines by one pixel before they are applied
	DilateCuts bool

	// Weights scale the cost features
	Weights cutting.Weights

	// Workers is the number of goroutines processing objects in a pass
	Workers int

	// Debug collects per-pass feature, curvature and candidate data
	Debug bool
}

// DefaultParams returns the parameters used when nothing is configured
func DefaultParams() Params {
	return Params{
		Passes: 2,
		Thresholds: features.Thresholds{
			MaxSolidity:   0.92,
			MinFormFactor: 0.07,
			MinArea:       50,
			MaxArea:       5000,
		},
		FilterSize:          1,
		WindowSize:          9,
		CurvatureMethod:     perimeter.Turning,
		FlatTolerance:       perimeter.DefaultFlatTolerance,
		MaxConcaveRadius:    20,
		MinConcaveAngle:     20,
		MinCutArea:          20,
		MaxRegionsPerObject: cutting.DefaultMaxRegionsPerObject,
		MaxCutsPerObject:    1,
		LineMode:            cutting.LineStraight,
		Weights:             cutting.DefaultWeights(),
		Workers:             runtime.NumCPU(),
	}
}

// Validate rejects contradictory or out-of-range parameters
func (p Params) Validate() error {
	invalid := func(format string, args ...any) error {
		return fmt.Errorf("%w: %s", ErrInvalidConfiguration, fmt.Sprintf(format, args...))
	}

	th := p.Thresholds
	switch {
	case p.Passes < 1:
		return invalid("passes must be at least 1, got %d", p.Passes)
	case th.MinArea < 0 || th.MaxArea < 0:
		return invalid("areas must not be negative, got %d and %d", th.MinArea, th.MaxArea)
	case th.MinArea >= th.MaxArea:
		return invalid("minArea %d must be below maxArea %d", th.MinArea, th.MaxArea)
	case th.MaxSolidity < 0 || th.MaxSolidity > 1 || math.IsNaN(th.MaxSolidity):
		return invalid("maxSolidity must lie in [0, 1], got %g", th.MaxSolidity)
	case th.MinFormFactor < 0 || math.IsNaN(th.MinFormFactor):
		return invalid("minFormFactor must not be negative, got %g", th.MinFormFactor)
	case p.FilterSize < 0:
		return invalid("filterSize must not be negative, got %d", p.FilterSize)
	case p.WindowSize < 3 || p.WindowSize%2 == 0:
		return invalid("window size must be odd and at least 3, got %d", p.WindowSize)
	case p.FlatTolerance < 0:
		return invalid("flat tolerance must not be negative, got %g", p.FlatTolerance)
	case p.MaxConcaveRadius <= 0 || math.IsNaN(p.MaxConcaveRadius):
		return invalid("maxConcaveRadius must be positive, got %g", p.MaxConcaveRadius)
	case p.MinConcaveAngle < 0 || p.MinConcaveAngle > 360 || math.IsNaN(p.MinConcaveAngle):
		return invalid("minConcaveAngle must lie in [0, 360], got %g", p.MinConcaveAngle)
	case p.MinCutArea < 0:
		return invalid("minCutArea must not be negative, got %d", p.MinCutArea)
	case p.MaxRegionsPerObject < 0:
		return invalid("maxRegionsPerObject must not be negative, got %d", p.MaxRegionsPerObject)
	case p.MaxCutsPerObject < 0:
		return invalid("maxCutsPerObject must not be negative, got %d", p.MaxCutsPerObject)
	case p.Workers < 0:
		return invalid("workers must not be negative, got %d", p.Workers)
	}

	w := p.Weights
	if w.Length < 0 || w.Intensity < 0 || w.Angle < 0 || w.Fragment < 0 {
		return invalid("cost weights must not be negative, got %+v", w)
	}
	if p.LineMode != cutting.LineStraight && p.LineMode != cutting.LineWatershed {
		return invalid("unknown line mode %v", p.LineMode)
	}
	if p.CurvatureMethod != perimeter.Turning && p.CurvatureMethod != perimeter.CircleFit {
		return invalid("unknown curvature method %v", p.CurvatureMethod)
	}
	return nil
}

func (p Params) cuttingParams() cutting.Params {
	return cutting.Params{
		MaxConcaveRadius:    p.MaxConcaveRadius,
		MinConcaveAngle:     p.MinConcaveAngle,
		MinCutArea:          p.MinCutArea,
		MaxRegionsPerObject: p.MaxRegionsPerObject,
		WindowSize:          p.WindowSize,
		LineMode:            p.LineMode,
		Weights:             p.Weights,
	}
}

func (p Params) perimeterOptions() perimeter.Options {
	return perimeter.Options{
		WindowSize:    p.WindowSize,
		Method:        p.CurvatureMethod,
		FlatTolerance: p.FlatTolerance,
	}
}

package perimeter

import (
	"fmt"
	"math"

	"gonum.org/v1/gonum/floats"
	"gonum.org/v1/gonum/mat"
	"gonum.org/v1/gonum/spatial/r2"

	"separateclumps/internal/models"
)

// Method selects how curvature is estimated inside the sliding window
type Method int

const (
	// Turning uses the signed angle between the incoming and outgoing
	// chords of the window, divided by the half window.
	Turning Method = iota

	// CircleFit fits a least-squares circle to the smoothed window points
	// and reports the step length over the radius, signed like Turning.
	// Each run of equal sign is rescaled to bend by its turning angle.
	CircleFit
)

func (m Method) String() string {
	switch m {
	case Turning:
		return "turning"
	case CircleFit:
		return "circle-fit"
	default:
		return fmt.Sprintf("Method(%d)", int(m))
	}
}

// ParseMethod maps a configuration name onto a Method
func ParseMethod(name string) (Method, error) {
	switch name {
	case "", "turning":
		return Turning, nil
	case "circle-fit", "circlefit":
		return CircleFit, nil
	}
	return Turning, fmt.Errorf("unknown curvature method %q", name)
}

// vec converts a pixel position into a plane vector with x to the right
// and y downwards
func vec(p models.Point) r2.Vec {
	return r2.Vec{X: float64(p.Col), Y: float64(p.Row)}
}

// Curvature estimates the curvature at every point of a closed contour
// with a sliding window of windowSize points (odd, at least 3).
//
// Values are radians per boundary point, so a simple closed contour sums
// to about 2*pi. The sign is normalised so that the sum is positive:
// convex stretches are positive and concave stretches negative, whichever
// direction the contour was traced in.
//
// Contours shorter than the window return nil.
func Curvature(contour []models.Point, windowSize int, method Method) []float64 {
	n := len(contour)
	h := windowSize / 2
	if h < 1 || n < windowSize {
		return nil
	}

	turning := make([]float64, n)
	for i := range contour {
		turning[i] = turningAngle(contour, i, h) / float64(h)
	}

	curv := turning
	if method == CircleFit {
		smoothed := smoothContour(contour, windowSize)
		curv = make([]float64, n)
		for i := range smoothed {
			curv[i] = circleFitCurvature(smoothed, i, h)
		}
		matchTurning(contour, curv, turning)
	}

	if floats.Sum(curv) < 0 {
		floats.Scale(-1, curv)
	}
	return curv
}

// turningAngle is the signed angle between the chords p[i-h]->p[i] and
// p[i]->p[i+h]
func turningAngle(contour []models.Point, i, h int) float64 {
	n := len(contour)
	prev := vec(contour[(i-h+n)%n])
	cur := vec(contour[i])
	next := vec(contour[(i+h)%n])

	in := r2.Sub(cur, prev)
	out := r2.Sub(next, cur)
	if r2.Norm(in) == 0 || r2.Norm(out) == 0 {
		return 0
	}
	return math.Atan2(r2.Cross(in, out), r2.Dot(in, out))
}

// smoothContour replaces every point by the mean of the windowSize points
// centred on it. Fitting circles to the raw staircase of pixel positions
// overestimates curvature severalfold.
func smoothContour(contour []models.Point, windowSize int) []r2.Vec {
	n := len(contour)
	h := windowSize / 2
	out := make([]r2.Vec, n)
	for i := range contour {
		var sum r2.Vec
		for k := -h; k <= h; k++ {
			sum = r2.Add(sum, vec(contour[(i+k+n)%n]))
		}
		out[i] = r2.Scale(1/float64(2*h+1), sum)
	}
	return out
}

// circleFitCurvature fits x²+y²+Dx+Ey+F = 0 to the 2h+1 window points
// around i (algebraic Kasa fit) and returns the advance per point divided
// by the fitted radius. The value is positive when the centre lies to the
// left of the direction of travel, like a positive turning angle.
// Collinear windows yield 0.
func circleFitCurvature(pts []r2.Vec, i, h int) float64 {
	n := len(pts)
	size := 2*h + 1
	origin := pts[i]

	a := mat.NewDense(size, 3, nil)
	b := mat.NewVecDense(size, nil)
	for k := 0; k < size; k++ {
		p := r2.Sub(pts[(i-h+k+n)%n], origin)
		a.Set(k, 0, p.X)
		a.Set(k, 1, p.Y)
		a.Set(k, 2, 1)
		b.SetVec(k, -(p.X*p.X + p.Y*p.Y))
	}

	var sol mat.VecDense
	if err := sol.SolveVec(a, b); err != nil {
		return 0
	}
	d, e, f := sol.AtVec(0), sol.AtVec(1), sol.AtVec(2)
	r2sq := (d*d+e*e)/4 - f
	if r2sq <= 0 || math.IsNaN(r2sq) || math.IsInf(r2sq, 0) {
		return 0
	}

	chord := r2.Sub(pts[(i+h)%n], pts[(i-h+n)%n])
	centre := r2.Vec{X: -d / 2, Y: -e / 2}
	side := r2.Cross(chord, centre)
	if side == 0 {
		return 0
	}
	k := r2.Norm(chord) / float64(2*h) / math.Sqrt(r2sq)
	return math.Copysign(k, side)
}

// matchTurning rescales every run of equal sign in curv so that the run
// bends by the same total angle as the turning estimate over the same
// points. The fit then only decides how the bend is spread along the run,
// and a closed contour keeps its total of 2*pi. Runs whose turning total
// disagrees in sign are left as fitted.
func matchTurning(contour []models.Point, curv, turning []float64) {
	n := len(curv)
	points := make([]models.PerimeterPoint, n)
	for i, p := range contour {
		points[i] = models.PerimeterPoint{Point: p, Curvature: curv[i]}
	}
	for _, r := range Partition(points, DefaultFlatTolerance) {
		fitted, turned := 0.0, 0.0
		for j := range r.Points {
			idx := (r.Start + j) % n
			fitted += curv[idx]
			turned += turning[idx]
		}
		if fitted == 0 || fitted*turned <= 0 {
			continue
		}
		scale := turned / fitted
		for j := range r.Points {
			curv[(r.Start+j)%n] *= scale
		}
	}
}

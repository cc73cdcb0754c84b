package cutting

import (
	"container/heap"
	"fmt"
	"math"

	"gonum.org/v1/gonum/spatial/r2"

	"separateclumps/internal/models"
)

// LineMode selects how the pixels between two cut points are chosen
type LineMode int

const (
	// LineStraight rasterises the chord as a 4-connected digital segment
	LineStraight LineMode = iota

	// LineWatershed follows the least-cost 4-connected path through the
	// object, where dark pixels near the chord are cheap
	LineWatershed
)

func (m LineMode) String() string {
	switch m {
	case LineStraight:
		return "straight"
	case LineWatershed:
		return "watershed"
	default:
		return fmt.Sprintf("LineMode(%d)", int(m))
	}
}

// ParseLineMode maps a configuration name onto a LineMode
func ParseLineMode(name string) (LineMode, error) {
	switch name {
	case "", "straight":
		return LineStraight, nil
	case "watershed":
		return LineWatershed, nil
	}
	return LineStraight, fmt.Errorf("unknown line mode %q", name)
}

// path cost weights for watershed lines
const (
	watershedIntensityWeight = 4.0
	watershedDistanceWeight  = 0.5
)

// StraightLine returns the 4-connected digital segment from a to b,
// both included. Every step moves along one axis, so the line separates
// 8-connected regions when cleared.
func StraightLine(a, b models.Point) []models.Point {
	nr, nc := abs(b.Row-a.Row), abs(b.Col-a.Col)
	sr, sc := sign(b.Row-a.Row), sign(b.Col-a.Col)

	line := make([]models.Point, 0, nr+nc+1)
	p := a
	line = append(line, p)
	for ir, ic := 0, 0; ir < nr || ic < nc; {
		// compare (0.5+ic)/nc with (0.5+ir)/nr without division
		if ir >= nr || (ic < nc && (1+2*ic)*nr < (1+2*ir)*nc) {
			p.Col += sc
			ic++
		} else {
			p.Row += sr
			ir++
		}
		line = append(line, p)
	}
	return line
}

// WatershedLine finds the least-cost 4-connected path from a to b through
// the foreground of m. Entering a pixel costs 1 plus a term growing with
// its normalised intensity and a term growing with its distance from the
// chord a-b. A nil intensity image drops the intensity term. Returns nil
// when b cannot be reached.
func WatershedLine(m *models.Mask, intensity *models.IntensityImage, a, b models.Point) []models.Point {
	if !m.At(a.Row, a.Col) || !m.At(b.Row, b.Col) {
		return nil
	}

	lo, hi := intensityRange(m, intensity)
	chordA, chordB := vec(a), vec(b)

	cost := func(p models.Point) float64 {
		c := 1 + watershedDistanceWeight*distanceToSegment(vec(p), chordA, chordB)
		if intensity != nil && hi > lo {
			v := float64(intensity.At(p.Row, p.Col))
			c += watershedIntensityWeight * (v - lo) / (hi - lo)
		}
		return c
	}

	w := m.Width
	dist := make([]float64, len(m.Pix))
	prev := make([]int, len(m.Pix))
	for i := range dist {
		dist[i] = math.Inf(1)
		prev[i] = -1
	}

	start, goal := a.Row*w+a.Col, b.Row*w+b.Col
	dist[start] = 0
	queue := &pixelQueue{}
	heap.Push(queue, queueItem{index: start})
	done := make([]bool, len(m.Pix))

	for queue.Len() > 0 {
		cur := heap.Pop(queue).(queueItem).index
		if done[cur] {
			continue
		}
		done[cur] = true
		if cur == goal {
			break
		}
		r, c := cur/w, cur%w
		for _, d := range models.Neighbours4 {
			nr, nc := r+d.Row, c+d.Col
			if !m.At(nr, nc) {
				continue
			}
			next := nr*w + nc
			if done[next] {
				continue
			}
			alt := dist[cur] + cost(models.Point{Row: nr, Col: nc})
			if alt < dist[next] {
				dist[next] = alt
				prev[next] = cur
				heap.Push(queue, queueItem{index: next, cost: alt})
			}
		}
	}

	if !done[goal] {
		return nil
	}
	var line []models.Point
	for i := goal; i != -1; i = prev[i] {
		line = append(line, models.Point{Row: i / w, Col: i % w})
	}
	for i, j := 0, len(line)-1; i < j; i, j = i+1, j-1 {
		line[i], line[j] = line[j], line[i]
	}
	return line
}

// queueItem is a pixel index with the path cost it was queued at
type queueItem struct {
	index int
	cost  float64
}

// pixelQueue is a min-heap of queued pixels. A pixel may be queued more
// than once; the caller skips pixels already settled. Ties go to the lower
// index.
type pixelQueue []queueItem

func (q pixelQueue) Len() int { return len(q) }

func (q pixelQueue) Less(i, j int) bool {
	if q[i].cost != q[j].cost {
		return q[i].cost < q[j].cost
	}
	return q[i].index < q[j].index
}

func (q pixelQueue) Swap(i, j int) { q[i], q[j] = q[j], q[i] }

func (q *pixelQueue) Push(x any) { *q = append(*q, x.(queueItem)) }

func (q *pixelQueue) Pop() any {
	old := *q
	x := old[len(old)-1]
	*q = old[:len(old)-1]
	return x
}

// intensityRange returns the smallest and largest intensity over m
func intensityRange(m *models.Mask, intensity *models.IntensityImage) (float64, float64) {
	if intensity == nil {
		return 0, 0
	}
	lo, hi := math.Inf(1), math.Inf(-1)
	for i, v := range m.Pix {
		if !v {
			continue
		}
		x := float64(intensity.Pix[i])
		lo = math.Min(lo, x)
		hi = math.Max(hi, x)
	}
	return lo, hi
}

func vec(p models.Point) r2.Vec {
	return r2.Vec{X: float64(p.Col), Y: float64(p.Row)}
}

// distanceToSegment is the Euclidean distance from p to the segment a-b
func distanceToSegment(p, a, b r2.Vec) float64 {
	ab := r2.Sub(b, a)
	l2 := r2.Norm2(ab)
	if l2 == 0 {
		return r2.Norm(r2.Sub(p, a))
	}
	t := r2.Dot(r2.Sub(p, a), ab) / l2
	t = math.Max(0, math.Min(1, t))
	return r2.Norm(r2.Sub(p, r2.Add(a, r2.Scale(t, ab))))
}

// chebyshev is the chessboard distance between two pixels
func chebyshev(a, b models.Point) int {
	dr, dc := abs(a.Row-b.Row), abs(a.Col-b.Col)
	if dr > dc {
		return dr
	}
	return dc
}

func abs(x int) int {
	if x < 0 {
		return -x
	}
	return x
}

func sign(x int) int {
	switch {
	case x > 0:
		return 1
	case x < 0:
		return -1
	}
	return 0
}

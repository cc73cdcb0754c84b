package cutting

import (
	"sort"

	"gonum.org/v1/gonum/graph/simple"

	"separateclumps/internal/models"
	"separateclumps/pkg/morphology"
)

// Weights scale the cost features of a candidate
type Weights struct {
	Length    float64
	Intensity float64
	Angle     float64
	Fragment  float64
}

// DefaultWeights weighs every cost feature equally
func DefaultWeights() Weights {
	return Weights{Length: 1, Intensity: 1, Angle: 1, Fragment: 1}
}

// Total is the weighted sum of the cost features
func (w Weights) Total(c models.CostFeatures) float64 {
	return w.Length*c.Length + w.Intensity*c.Intensity + w.Angle*c.Angle + w.Fragment*c.Fragment
}

// Select picks a set of candidates of one object in which no concave
// region is used twice. Candidates are taken greedily by increasing Total
// (ties keep input order); accepting one removes its two regions, and with
// them every conflicting candidate. Selection stops once maxCuts cuts are
// accepted; maxCuts <= 0 means no limit.
func Select(candidates []models.CutCandidate, maxCuts int) []models.CutCandidate {
	if len(candidates) == 0 {
		return nil
	}

	// nodes are concave regions, edges are candidate cuts
	g := simple.NewUndirectedGraph()
	node := func(id int) simple.Node {
		n := simple.Node(int64(id))
		if g.Node(n.ID()) == nil {
			g.AddNode(n)
		}
		return n
	}
	for _, c := range candidates {
		a, b := node(c.RegionA), node(c.RegionB)
		if a != b {
			g.SetEdge(g.NewEdge(a, b))
		}
	}

	order := make([]int, len(candidates))
	for i := range order {
		order[i] = i
	}
	sort.SliceStable(order, func(i, j int) bool {
		return candidates[order[i]].Total < candidates[order[j]].Total
	})

	var accepted []models.CutCandidate
	for _, i := range order {
		if maxCuts > 0 && len(accepted) >= maxCuts {
			break
		}
		c := candidates[i]
		a, b := int64(c.RegionA), int64(c.RegionB)
		if g.Node(a) == nil || g.Node(b) == nil || !g.HasEdgeBetween(a, b) {
			continue
		}
		accepted = append(accepted, c)
		g.RemoveNode(a)
		g.RemoveNode(b)
		if g.Edges().Len() == 0 {
			break
		}
	}
	return accepted
}

// CutMask rasterises the lines of the accepted cuts into a width x height
// mask. With dilate set, lines are thickened by a disk of radius 1.
func CutMask(width, height int, cuts []models.CutCandidate, dilate bool) *models.Mask {
	m := models.NewMask(width, height)
	for _, c := range cuts {
		for _, q := range c.Line {
			if m.In(q.Row, q.Col) {
				m.Set(q.Row, q.Col, true)
			}
		}
	}
	if dilate {
		return morphology.Dilate(m, 1)
	}
	return m
}

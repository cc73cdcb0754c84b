package cutting

import (
	"errors"
	"math"
	"testing"

	"separateclumps/internal/models"
	"separateclumps/pkg/labeling"
	"separateclumps/pkg/morphology"
	"separateclumps/pkg/perimeter"
)

// createFusedDisks draws filled disks of one radius into a single mask
func createFusedDisks(width, height, radius int, centres ...models.Point) *models.Mask {
	m := models.NewMask(width, height)
	for _, ctr := range centres {
		for r := ctr.Row - radius; r <= ctr.Row+radius; r++ {
			for c := ctr.Col - radius; c <= ctr.Col+radius; c++ {
				dr, dc := r-ctr.Row, c-ctr.Col
				if dr*dr+dc*dc <= radius*radius && m.In(r, c) {
					m.Set(r, c, true)
				}
			}
		}
	}
	return m
}

// twoDiskObject prepares the object of two disks of radius 10, 14 px apart
func twoDiskObject() Object {
	m := createFusedDisks(45, 31, 10, models.Point{Row: 15, Col: 15}, models.Point{Row: 15, Col: 29})
	filled := labeling.FillHoles(m)
	smoothed := morphology.Smooth(filled, 1, 50)
	return Object{
		Label:    1,
		Analysis: perimeter.Analyze(smoothed, perimeter.Options{WindowSize: 9, FlatTolerance: perimeter.DefaultFlatTolerance}),
		Smoothed: smoothed,
		Original: filled,
	}
}

func defaultParams() Params {
	return Params{
		MaxConcaveRadius:    20,
		MinConcaveAngle:     20,
		MinCutArea:          20,
		MaxRegionsPerObject: DefaultMaxRegionsPerObject,
		WindowSize:          9,
		LineMode:            LineStraight,
		Weights:             DefaultWeights(),
	}
}

// TestStraightLine checks end points and 4-connectivity of digital segments
func TestStraightLine(t *testing.T) {
	tests := []struct {
		a, b models.Point
		want int
	}{
		{models.Point{Row: 0, Col: 0}, models.Point{Row: 0, Col: 3}, 4},
		{models.Point{Row: 5, Col: 2}, models.Point{Row: 1, Col: 2}, 5},
		{models.Point{Row: 0, Col: 0}, models.Point{Row: 2, Col: 2}, 5},
		{models.Point{Row: 3, Col: 7}, models.Point{Row: 0, Col: 1}, 10},
		{models.Point{Row: 4, Col: 4}, models.Point{Row: 4, Col: 4}, 1},
	}
	for _, tt := range tests {
		line := StraightLine(tt.a, tt.b)
		if len(line) != tt.want {
			t.Errorf("%v->%v: expected %d pixels, got %d", tt.a, tt.b, tt.want, len(line))
			continue
		}
		if line[0] != tt.a || line[len(line)-1] != tt.b {
			t.Errorf("%v->%v: line should include both end points, got %v", tt.a, tt.b, line)
		}
		for i := 1; i < len(line); i++ {
			if abs(line[i].Row-line[i-1].Row)+abs(line[i].Col-line[i-1].Col) != 1 {
				t.Errorf("%v->%v: step %d is not 4-connected: %v", tt.a, tt.b, i, line)
				break
			}
		}
	}
}

// TestWatershedLineFollowsDarkValley verifies that the least-cost path
// prefers dark pixels next to the chord
func TestWatershedLineFollowsDarkValley(t *testing.T) {
	m := models.NewMask(7, 7)
	for i := range m.Pix {
		m.Pix[i] = true
	}
	a, b := models.Point{Row: 0, Col: 3}, models.Point{Row: 6, Col: 3}

	plain := WatershedLine(m, nil, a, b)
	if len(plain) != 7 {
		t.Fatalf("Without intensity the path should follow the chord, got %v", plain)
	}

	im := models.NewIntensityImage(7, 7)
	for r := 0; r < 7; r++ {
		for c := 0; c < 7; c++ {
			switch c {
			case 2:
				im.Pix[r*7+c] = 0
			case 3:
				im.Pix[r*7+c] = 1000
			default:
				im.Pix[r*7+c] = 500
			}
		}
	}
	line := WatershedLine(m, im, a, b)
	if len(line) != 9 {
		t.Fatalf("Expected a 9-pixel detour through the dark column, got %v", line)
	}
	for _, q := range line[1 : len(line)-1] {
		if q.Col != 2 {
			t.Errorf("Inner path pixel %v should lie in the dark column", q)
		}
	}

	outside := models.NewMask(7, 7)
	if got := WatershedLine(outside, nil, a, b); got != nil {
		t.Errorf("End points outside the mask should give no line, got %v", got)
	}
}

// TestGenerateTwoDisks checks the single cut through the neck of two fused disks
func TestGenerateTwoDisks(t *testing.T) {
	obj := twoDiskObject()
	candidates, err := Generate(obj, defaultParams())
	if err != nil {
		t.Fatalf("Generate failed: %v", err)
	}
	if len(candidates) != 1 {
		t.Fatalf("Expected one candidate, got %d", len(candidates))
	}

	c := candidates[0]
	for _, q := range c.Line {
		if q.Col != 22 {
			t.Errorf("Cut pixel %v should lie on the neck column 22", q)
		}
	}
	if len(c.FragmentAreas) != 2 || c.FragmentAreas[0] != c.FragmentAreas[1] {
		t.Errorf("Expected two equal fragments, got %v", c.FragmentAreas)
	}
	if c.Cost.Angle > 0.05 {
		t.Errorf("A cut across a symmetric neck should have a small angle cost, got %f", c.Cost.Angle)
	}
	if c.Cost.Length <= 0 || c.Cost.Length >= 1 {
		t.Errorf("Neck chord should be shorter than the equivalent diameter, got %f", c.Cost.Length)
	}
	if c.Cost.Intensity != 0 {
		t.Errorf("Intensity cost should be 0 without an intensity image, got %f", c.Cost.Intensity)
	}
	want := DefaultWeights().Total(c.Cost)
	if math.Abs(c.Total-want) > 1e-12 {
		t.Errorf("Total should be the weighted cost sum, expected %f got %f", want, c.Total)
	}
}

// TestGenerateFilters checks the region filters and the fragment size limit
func TestGenerateFilters(t *testing.T) {
	obj := twoDiskObject()

	tests := []struct {
		name   string
		modify func(*Params)
	}{
		{"angle too small", func(p *Params) { p.MinConcaveAngle = 60 }},
		{"radius too large", func(p *Params) { p.MaxConcaveRadius = 5 }},
		{"fragments too small", func(p *Params) { p.MinCutArea = 300 }},
	}
	for _, tt := range tests {
		p := defaultParams()
		tt.modify(&p)
		candidates, err := Generate(obj, p)
		if err != nil {
			t.Errorf("%s: unexpected error %v", tt.name, err)
		}
		if len(candidates) != 0 {
			t.Errorf("%s: expected no candidates, got %d", tt.name, len(candidates))
		}
	}
}

// TestGenerateRegionCap verifies that objects above the region cap are skipped
func TestGenerateRegionCap(t *testing.T) {
	p := defaultParams()
	p.MaxRegionsPerObject = 1
	_, err := Generate(twoDiskObject(), p)
	if !errors.Is(err, models.ErrTooManyRegions) {
		t.Errorf("Expected ErrTooManyRegions, got %v", err)
	}
}

// TestGenerateIntensityCost checks that a bright neck costs more than a dark one
func TestGenerateIntensityCost(t *testing.T) {
	obj := twoDiskObject()
	im := models.NewIntensityImage(obj.Original.Width, obj.Original.Height)
	for i := range im.Pix {
		im.Pix[i] = 100
	}
	for r := 0; r < im.Height; r++ {
		im.Pix[r*im.Width+22] = 10
	}
	obj.Intensity = im

	candidates, err := Generate(obj, defaultParams())
	if err != nil || len(candidates) != 1 {
		t.Fatalf("Expected one candidate, got %d (%v)", len(candidates), err)
	}
	if c := candidates[0].Cost.Intensity; c <= 0 || c >= 0.2 {
		t.Errorf("A dark neck should have a low intensity cost, got %f", c)
	}
}

// TestSelectGreedy verifies greedy conflict-free selection and the cut limit
func TestSelectGreedy(t *testing.T) {
	candidates := []models.CutCandidate{
		{RegionA: 0, RegionB: 1, Total: 0.5},
		{RegionA: 0, RegionB: 2, Total: 0.3},
		{RegionA: 1, RegionB: 3, Total: 0.4},
		{RegionA: 2, RegionB: 3, Total: 0.9},
	}

	all := Select(candidates, 0)
	if len(all) != 2 {
		t.Fatalf("Expected 2 cuts, got %d", len(all))
	}
	if all[0].RegionB != 2 || all[1].RegionA != 1 || all[1].RegionB != 3 {
		t.Errorf("Unexpected selection %+v", all)
	}

	one := Select(candidates, 1)
	if len(one) != 1 || one[0].Total != 0.3 {
		t.Errorf("Expected only the cheapest cut, got %+v", one)
	}

	if got := Select(nil, 0); got != nil {
		t.Errorf("No candidates should select nothing, got %+v", got)
	}
}

// TestSelectTiesKeepOrder checks that equal costs are resolved by input order
func TestSelectTiesKeepOrder(t *testing.T) {
	candidates := []models.CutCandidate{
		{RegionA: 4, RegionB: 6, Total: 0.5},
		{RegionA: 0, RegionB: 2, Total: 0.5},
	}
	got := Select(candidates, 1)
	if len(got) != 1 || got[0].RegionA != 4 {
		t.Errorf("Expected the first of two equal candidates, got %+v", got)
	}
}

// TestCutMask checks rasterisation with and without dilation
func TestCutMask(t *testing.T) {
	cuts := []models.CutCandidate{{Line: StraightLine(models.Point{Row: 1, Col: 4}, models.Point{Row: 7, Col: 4})}}

	thin := CutMask(9, 9, cuts, false)
	if thin.Count() != 7 {
		t.Errorf("Expected 7 line pixels, got %d", thin.Count())
	}

	thick := CutMask(9, 9, cuts, true)
	// a vertical segment of 7 grows by a column on each side and a pixel at each end
	if thick.Count() != 7*3+2 {
		t.Errorf("Expected 23 pixels after dilation, got %d", thick.Count())
	}
}

// TestParseLineMode checks the configuration names
func TestParseLineMode(t *testing.T) {
	if m, err := ParseLineMode("watershed"); err != nil || m != LineWatershed {
		t.Errorf("Expected watershed mode, got %v (%v)", m, err)
	}
	if m, err := ParseLineMode(""); err != nil || m != LineStraight {
		t.Errorf("Empty name should default to straight, got %v (%v)", m, err)
	}
	if _, err := ParseLineMode("curved"); err == nil {
		t.Errorf("Expected an error for an unknown mode")
	}
}

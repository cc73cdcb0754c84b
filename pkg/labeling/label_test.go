package labeling

import (
	"testing"

	"separateclumps/internal/models"
)

// maskFromRows builds a mask from rows of '#' (foreground) and '.' characters
func maskFromRows(rows ...string) *models.Mask {
	m := models.NewMask(len(rows[0]), len(rows))
	for r, row := range rows {
		for c, ch := range row {
			m.Pix[r*m.Width+c] = ch == '#'
		}
	}
	return m
}

// TestLabelEightConnectivity checks that diagonal neighbours join one component
func TestLabelEightConnectivity(t *testing.T) {
	m := maskFromRows(
		"#....",
		".#...",
		"..#.#",
		"....#",
	)

	labels, n := Label(m)
	if n != 2 {
		t.Fatalf("Expected 2 components, got %d", n)
	}
	if labels.At(0, 0) != 1 || labels.At(2, 2) != 1 {
		t.Errorf("Diagonal chain should carry label 1, got %d and %d", labels.At(0, 0), labels.At(2, 2))
	}
	if labels.At(2, 4) != 2 || labels.At(3, 4) != 2 {
		t.Errorf("Right-hand column should carry label 2")
	}
}

// TestLabelRasterOrder verifies labels follow the raster order of first pixels,
// including for U-shapes whose arms are only joined further down
func TestLabelRasterOrder(t *testing.T) {
	m := maskFromRows(
		"#.#..#",
		"#.#..#",
		"###...",
		"......",
		"..###.",
	)

	labels, n := Label(m)
	if n != 3 {
		t.Fatalf("Expected 3 components, got %d", n)
	}

	tests := []struct {
		row, col int
		want     int32
	}{
		{0, 0, 1}, {0, 2, 1}, {2, 1, 1},
		{0, 5, 2}, {1, 5, 2},
		{4, 2, 3}, {4, 4, 3},
		{3, 3, 0},
	}
	for _, tt := range tests {
		if got := labels.At(tt.row, tt.col); got != tt.want {
			t.Errorf("Label at (%d,%d): expected %d, got %d", tt.row, tt.col, tt.want, got)
		}
	}
}

// TestLabelEmpty makes sure an empty mask yields no components
func TestLabelEmpty(t *testing.T) {
	labels, n := Label(models.NewMask(4, 3))
	if n != 0 {
		t.Errorf("Expected no components, got %d", n)
	}
	if labels.MaxLabel() != 0 {
		t.Errorf("Expected all background labels")
	}
}

// TestComponents checks bounding boxes and pixel lists
func TestComponents(t *testing.T) {
	m := maskFromRows(
		".##..",
		".#...",
		"....#",
	)
	labels, _ := Label(m)
	comps := Components(labels)
	if len(comps) != 2 {
		t.Fatalf("Expected 2 components, got %d", len(comps))
	}

	first := comps[0]
	if first.Label != 1 || len(first.Pixels) != 3 {
		t.Errorf("Unexpected first component: label %d with %d pixels", first.Label, len(first.Pixels))
	}
	want := models.Bounds{MinRow: 0, MinCol: 1, MaxRow: 1, MaxCol: 2}
	if first.Bounds != want {
		t.Errorf("Expected bounds %+v, got %+v", want, first.Bounds)
	}
	if comps[1].Bounds != (models.Bounds{MinRow: 2, MinCol: 4, MaxRow: 2, MaxCol: 4}) {
		t.Errorf("Unexpected bounds for single pixel component: %+v", comps[1].Bounds)
	}
}

// TestFillHoles verifies enclosed background is filled while the outside stays empty
func TestFillHoles(t *testing.T) {
	m := maskFromRows(
		".....",
		".###.",
		".#.#.",
		".###.",
		".....",
	)
	filled := FillHoles(m)
	if !filled.At(2, 2) {
		t.Errorf("Enclosed pixel should be filled")
	}
	if filled.At(0, 0) || filled.At(2, 4) {
		t.Errorf("Outside pixels must stay background")
	}
	if filled.Count() != 9 {
		t.Errorf("Expected 9 pixels after filling, got %d", filled.Count())
	}
	if m.At(2, 2) {
		t.Errorf("FillHoles must not modify its input")
	}
}

// TestFillHolesDiagonalLeak checks that a hole closed only by diagonal steps is
// still a hole, matching the 8-connected foreground convention
func TestFillHolesDiagonalLeak(t *testing.T) {
	m := maskFromRows(
		".....",
		"..#..",
		".#.#.",
		"..#..",
		".....",
	)
	filled := FillHoles(m)
	if !filled.At(2, 2) {
		t.Errorf("Pixel enclosed by a diagonal ring should be filled")
	}
}

// TestCrop checks that a padded crop shifts the origin and keeps only one label
func TestCrop(t *testing.T) {
	m := maskFromRows(
		"##..",
		"#...",
		"...#",
	)
	labels, _ := Label(m)
	comps := Components(labels)
	box := comps[0].Bounds.Pad(2)

	crop := Crop(labels, comps[0].Label, box)
	if crop.Width != 6 || crop.Height != 6 {
		t.Fatalf("Expected 6x6 crop, got %dx%d", crop.Width, crop.Height)
	}
	if crop.Count() != 3 {
		t.Errorf("Expected 3 pixels in crop, got %d", crop.Count())
	}
	if !crop.At(2, 2) || !crop.At(2, 3) || !crop.At(3, 2) {
		t.Errorf("Crop origin should be shifted by the padding")
	}

	other := Crop(labels, comps[1].Label, models.Bounds{MinRow: 0, MinCol: 0, MaxRow: 2, MaxCol: 3})
	if other.Count() != 1 || !other.At(2, 3) {
		t.Errorf("Crop must only hold the requested label")
	}
}

// TestFillHolesObjectAtBorder verifies objects touching the raster edge keep
// their outline and still get their holes filled
func TestFillHolesObjectAtBorder(t *testing.T) {
	m := maskFromRows(
		"###..",
		"#.#..",
		"###..",
		"....#",
	)
	filled := FillHoles(m)
	if filled.Count() != 10 {
		t.Errorf("Expected 10 pixels after filling, got %d", filled.Count())
	}
	if !filled.At(1, 1) || filled.At(1, 3) {
		t.Errorf("Only the enclosed pixel should be filled")
	}
}

// TestRelabel verifies a cleared column splits one object in two
func TestRelabel(t *testing.T) {
	m := maskFromRows(
		"#####",
		"#####",
	)
	labels, _ := Label(m)
	labels.Set(0, 2, 0)
	labels.Set(1, 2, 0)

	relabelled, n := Relabel(labels)
	if n != 2 {
		t.Fatalf("Expected 2 components after the cut, got %d", n)
	}
	if relabelled.At(0, 0) == relabelled.At(0, 4) {
		t.Errorf("Both sides of the cut should carry different labels")
	}
}

package morphology

import (
	"testing"

	"gocv.io/x/gocv"

	"separateclumps/internal/models"
)

// filledRect creates a mask with one filled rectangle
func filledRect(width, height, r0, c0, r1, c1 int) *models.Mask {
	m := models.NewMask(width, height)
	for r := r0; r <= r1; r++ {
		for c := c0; c <= c1; c++ {
			m.Set(r, c, true)
		}
	}
	return m
}

// TestDisk verifies the size of small elliptical elements
func TestDisk(t *testing.T) {
	tests := []struct {
		radius int
		want   int
	}{
		{0, 5}, // clamped to 1
		{1, 5},
		{2, 17},
		{3, 33},
	}
	for _, tt := range tests {
		k := Disk(tt.radius)
		if got := gocv.CountNonZero(k); got != tt.want {
			t.Errorf("Disk(%d): expected %d offsets, got %d", tt.radius, tt.want, got)
		}
		if k.Rows() != 2*max(tt.radius, 1)+1 {
			t.Errorf("Disk(%d): expected %d rows, got %d", tt.radius, 2*max(tt.radius, 1)+1, k.Rows())
		}
		k.Close()
	}
}

// TestErodeDilate checks erosion and dilation of a rectangle with a cross
func TestErodeDilate(t *testing.T) {
	m := filledRect(9, 9, 2, 2, 6, 6)

	eroded := Erode(m, 1)
	if eroded.Count() != 9 {
		t.Errorf("Expected 3x3 core after erosion, got %d pixels", eroded.Count())
	}

	dilated := Dilate(m, 1)
	// 5x5 square grows by one pixel on each side, without the corners
	if dilated.Count() != 25+4*5 {
		t.Errorf("Expected 45 pixels after dilation, got %d", dilated.Count())
	}
}

// TestErodeBorder verifies positions outside the raster act as background
func TestErodeBorder(t *testing.T) {
	m := filledRect(5, 5, 0, 0, 4, 4)
	if got := Erode(m, 1).Count(); got != 9 {
		t.Errorf("Expected the border ring to erode away, got %d pixels", got)
	}
	if got := Open(m, 2).Count(); got == 25 {
		t.Errorf("Opening with radius 2 should round the corners of a full raster")
	}
}

// TestOpenRemovesSpur verifies opening removes a one-pixel spur but keeps the body
func TestOpenRemovesSpur(t *testing.T) {
	m := filledRect(12, 9, 2, 2, 6, 6)
	for c := 7; c <= 10; c++ {
		m.Set(4, c, true)
	}

	opened := Open(m, 1)
	if opened.At(4, 9) {
		t.Errorf("Spur should be removed by opening")
	}
	for r := 2; r <= 6; r++ {
		for c := 3; c <= 5; c++ {
			if !opened.At(r, c) {
				t.Errorf("Body pixel (%d,%d) should survive opening", r, c)
			}
		}
	}
	if m.Count() != 29 {
		t.Errorf("Open must not modify its input")
	}
}

// TestRemoveSmallObjects keeps only components of at least minArea pixels
func TestRemoveSmallObjects(t *testing.T) {
	m := filledRect(10, 10, 0, 0, 2, 2)
	m.Set(8, 8, true)
	m.Set(8, 9, true)

	cleaned := RemoveSmallObjects(m, 3)
	if cleaned.Count() != 9 {
		t.Errorf("Expected 9 pixels after cleaning, got %d", cleaned.Count())
	}
	if cleaned.At(8, 8) {
		t.Errorf("Small component should be removed")
	}

	if kept := RemoveSmallObjects(m, 0); kept.Count() != 11 {
		t.Errorf("minArea 0 should keep everything, got %d", kept.Count())
	}
}

// TestSmoothDropsCrumbs checks that smoothing removes fragments below minArea
func TestSmoothDropsCrumbs(t *testing.T) {
	m := filledRect(20, 12, 2, 2, 9, 9)
	// a small blob connected through a thin neck
	for c := 10; c <= 13; c++ {
		m.Set(5, c, true)
	}
	for r := 4; r <= 6; r++ {
		for c := 14; c <= 16; c++ {
			m.Set(r, c, true)
		}
	}

	smoothed := Smooth(m, 1, 10)
	if smoothed.At(5, 15) {
		t.Errorf("Crumb cut loose by opening should be removed")
	}
	if !smoothed.At(5, 5) {
		t.Errorf("Main body should survive smoothing")
	}
}

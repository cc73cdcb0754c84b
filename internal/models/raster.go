package models

import "fmt"

// Point is a pixel position in image coordinates (row grows downwards)
type Point struct {
	Row int
	Col int
}

// Add returns p shifted by q
func (p Point) Add(q Point) Point {
	return Point{Row: p.Row + q.Row, Col: p.Col + q.Col}
}

// Neighbours4 lists the von Neumann neighbourhood offsets
var Neighbours4 = [4]Point{{-1, 0}, {0, 1}, {1, 0}, {0, -1}}

// Mask is a binary raster in row-major order.
// Stages never mutate a Mask they did not create; they return a new one.
type Mask struct {
	Width  int
	Height int
	Pix    []bool
}

// NewMask allocates an empty mask
func NewMask(width, height int) *Mask {
	return &Mask{Width: width, Height: height, Pix: make([]bool, width*height)}
}

// In reports whether (row, col) lies inside the raster
func (m *Mask) In(row, col int) bool {
	return row >= 0 && col >= 0 && row < m.Height && col < m.Width
}

// At returns the value at (row, col); positions outside the raster are false
func (m *Mask) At(row, col int) bool {
	if !m.In(row, col) {
		return false
	}
	return m.Pix[row*m.Width+col]
}

// Set writes the value at (row, col). Writing outside the raster is a
// programming error and panics.
func (m *Mask) Set(row, col int, v bool) {
	if !m.In(row, col) {
		panic(fmt.Sprintf("mask: set (%d,%d) outside %dx%d", row, col, m.Width, m.Height))
	}
	m.Pix[row*m.Width+col] = v
}

// Count returns the number of foreground pixels
func (m *Mask) Count() int {
	n := 0
	for _, v := range m.Pix {
		if v {
			n++
		}
	}
	return n
}

// Clone returns a deep copy of the mask
func (m *Mask) Clone() *Mask {
	c := &Mask{Width: m.Width, Height: m.Height, Pix: make([]bool, len(m.Pix))}
	copy(c.Pix, m.Pix)
	return c
}

// LabelImage is a raster of object labels. Label 0 is background.
// Labels need not be contiguous once objects have been removed.
type LabelImage struct {
	Width  int
	Height int
	Labels []int32
}

// NewLabelImage allocates an all-background label image
func NewLabelImage(width, height int) *LabelImage {
	return &LabelImage{Width: width, Height: height, Labels: make([]int32, width*height)}
}

// At returns the label at (row, col); positions outside the raster are background
func (l *LabelImage) At(row, col int) int32 {
	if row < 0 || col < 0 || row >= l.Height || col >= l.Width {
		return 0
	}
	return l.Labels[row*l.Width+col]
}

// Set writes a label at (row, col)
func (l *LabelImage) Set(row, col int, label int32) {
	if row < 0 || col < 0 || row >= l.Height || col >= l.Width {
		panic(fmt.Sprintf("labels: set (%d,%d) outside %dx%d", row, col, l.Width, l.Height))
	}
	l.Labels[row*l.Width+col] = label
}

// Foreground converts the label image into a binary mask
func (l *LabelImage) Foreground() *Mask {
	m := NewMask(l.Width, l.Height)
	for i, v := range l.Labels {
		m.Pix[i] = v != 0
	}
	return m
}

// MaxLabel returns the largest label present
func (l *LabelImage) MaxLabel() int32 {
	var max int32
	for _, v := range l.Labels {
		if v > max {
			max = v
		}
	}
	return max
}

// Validate checks that the label buffer matches the dimensions and holds
// no negative labels.
func (l *LabelImage) Validate() error {
	if l.Width < 0 || l.Height < 0 || len(l.Labels) != l.Width*l.Height {
		return fmt.Errorf("%w: label buffer has %d entries for %dx%d", ErrTypeMismatch, len(l.Labels), l.Width, l.Height)
	}
	for i, v := range l.Labels {
		if v < 0 {
			return fmt.Errorf("%w: negative label %d at pixel %d", ErrTypeMismatch, v, i)
		}
	}
	return nil
}

// IntensityImage holds 8- or 16-bit grey values widened to uint16
type IntensityImage struct {
	Width  int
	Height int
	Pix    []uint16
}

// NewIntensityImage allocates a black intensity image
func NewIntensityImage(width, height int) *IntensityImage {
	return &IntensityImage{Width: width, Height: height, Pix: make([]uint16, width*height)}
}

// At returns the intensity at (row, col)
func (im *IntensityImage) At(row, col int) uint16 {
	return im.Pix[row*im.Width+col]
}

// Validate checks the buffer length against the dimensions
func (im *IntensityImage) Validate() error {
	if im.Width < 0 || im.Height < 0 || len(im.Pix) != im.Width*im.Height {
		return fmt.Errorf("%w: intensity buffer has %d entries for %dx%d", ErrTypeMismatch, len(im.Pix), im.Width, im.Height)
	}
	return nil
}

// Bounds is an inclusive bounding box in pixel coordinates
type Bounds struct {
	MinRow, MinCol int
	MaxRow, MaxCol int
}

// Height returns the number of rows covered by the box
func (b Bounds) Height() int { return b.MaxRow - b.MinRow + 1 }

// Width returns the number of columns covered by the box
func (b Bounds) Width() int { return b.MaxCol - b.MinCol + 1 }

// Pad grows the box by n pixels on every side
func (b Bounds) Pad(n int) Bounds {
	return Bounds{MinRow: b.MinRow - n, MinCol: b.MinCol - n, MaxRow: b.MaxRow + n, MaxCol: b.MaxCol + n}
}

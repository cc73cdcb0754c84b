// Package visualization renders the debug payload of a separation run as
// figures: per-object selection feature maps, boundary curvature and the
// candidate and accepted cuts of every pass.
package visualization

import (
	"fmt"
	"image"
	"image/color"
	"image/png"
	"io"
	"math"
	"os"
	"path/filepath"
	"strings"

	"github.com/HugoSmits86/nativewebp"
	"golang.org/x/image/draw"
	"golang.org/x/image/font"
	"golang.org/x/image/font/basicfont"
	"golang.org/x/image/math/fixed"

	"separateclumps/internal/models"
	"separateclumps/pkg/separation"
)

// Feature names accepted by SelectionFigure
const (
	FeatureClump      = "clump"
	FeatureSolidity   = "solidity"
	FeatureFormFactor = "formfactor"
	FeatureArea       = "area"
)

var (
	background   = color.RGBA{A: 255}
	objectGrey   = color.RGBA{R: 90, G: 90, B: 90, A: 255}
	clumpColour  = color.RGBA{R: 240, G: 240, B: 240, A: 255}
	convexColour = color.RGBA{R: 40, G: 200, B: 60, A: 255}
	concaveRed   = color.RGBA{R: 230, G: 40, B: 40, A: 255}
	candidateHue = color.RGBA{R: 240, G: 200, B: 40, A: 255}
	acceptedHue  = color.RGBA{R: 255, G: 0, B: 255, A: 255}
	captionColor = color.RGBA{R: 255, G: 255, B: 255, A: 255}
)

// Viewer renders figures from the debug payload of one Process call
type Viewer struct {
	// debug holds the per-pass diagnostics
	debug *separation.Debug

	// scale is the integer upscaling factor applied to every figure
	scale int
}

// NewViewer creates a viewer. Scale values below 1 are treated as 1.
func NewViewer(debug *separation.Debug, scale int) *Viewer {
	if scale < 1 {
		scale = 1
	}
	return &Viewer{debug: debug, scale: scale}
}

// passDebug returns the diagnostics of a pass (1-based)
func (v *Viewer) passDebug(pass int) (*separation.PassDebug, error) {
	if v.debug == nil {
		return nil, fmt.Errorf("no debug data")
	}
	for i := range v.debug.Passes {
		if v.debug.Passes[i].Pass == pass {
			return &v.debug.Passes[i], nil
		}
	}
	return nil, fmt.Errorf("no debug data for pass %d", pass)
}

// SelectionFigure paints every object of a pass by one of its selection
// features: clump flag, solidity, form factor or area.
func (v *Viewer) SelectionFigure(pass int, feature string) (image.Image, error) {
	pd, err := v.passDebug(pass)
	if err != nil {
		return nil, err
	}

	maxArea := 1
	for _, o := range pd.Objects {
		if o.Record.Area > maxArea {
			maxArea = o.Record.Area
		}
	}

	colours := make(map[int32]color.RGBA, len(pd.Objects))
	for _, o := range pd.Objects {
		var value float64
		switch feature {
		case FeatureClump:
			if o.Clump {
				colours[o.Record.Label] = clumpColour
			} else {
				colours[o.Record.Label] = objectGrey
			}
			continue
		case FeatureSolidity:
			value = o.Record.Solidity
		case FeatureFormFactor:
			value = o.Record.FormFactor
		case FeatureArea:
			value = float64(o.Record.Area) / float64(maxArea)
		default:
			return nil, fmt.Errorf("invalid feature: %s", feature)
		}
		colours[o.Record.Label] = heat(value)
	}

	img := image.NewRGBA(image.Rect(0, 0, pd.Labels.Width, pd.Labels.Height))
	for y := 0; y < pd.Labels.Height; y++ {
		for x := 0; x < pd.Labels.Width; x++ {
			c := background
			if l := pd.Labels.Labels[y*pd.Labels.Width+x]; l != 0 {
				c = colours[l]
			}
			img.SetRGBA(x, y, c)
		}
	}
	return v.finish(img, fmt.Sprintf("pass %d %s", pass, feature)), nil
}

// CurvatureFigure draws the objects of a pass in grey with the analysed
// boundaries on top, convex points in green and concave points in red.
// Brightness grows with the curvature magnitude.
func (v *Viewer) CurvatureFigure(pass int) (image.Image, error) {
	pd, err := v.passDebug(pass)
	if err != nil {
		return nil, err
	}

	img := v.objects(pd)
	for _, o := range pd.Objects {
		maxCurv := 0.0
		for _, p := range o.Points {
			maxCurv = math.Max(maxCurv, math.Abs(p.Curvature))
		}
		for _, p := range o.Points {
			base := convexColour
			if p.Curvature < 0 {
				base = concaveRed
			}
			strength := 0.35
			if maxCurv > 0 {
				strength += 0.65 * math.Abs(p.Curvature) / maxCurv
			}
			setPoint(img, o.Origin, p.Point, scaleColour(base, strength))
		}
	}
	return v.finish(img, fmt.Sprintf("pass %d curvature", pass)), nil
}

// CutFigure draws the objects of a pass with every candidate line in
// yellow and the accepted cuts in magenta.
func (v *Viewer) CutFigure(pass int) (image.Image, error) {
	pd, err := v.passDebug(pass)
	if err != nil {
		return nil, err
	}

	img := v.objects(pd)
	for _, o := range pd.Objects {
		for _, c := range o.Candidates {
			for _, q := range c.Line {
				setPoint(img, o.Origin, q, candidateHue)
			}
		}
		for _, c := range o.Accepted {
			for _, q := range c.Line {
				setPoint(img, o.Origin, q, acceptedHue)
			}
		}
	}
	return v.finish(img, fmt.Sprintf("pass %d cuts", pass)), nil
}

// objects paints clumps light and the other objects dark
func (v *Viewer) objects(pd *separation.PassDebug) *image.RGBA {
	clump := make(map[int32]bool, len(pd.Objects))
	for _, o := range pd.Objects {
		clump[o.Record.Label] = o.Clump
	}
	img := image.NewRGBA(image.Rect(0, 0, pd.Labels.Width, pd.Labels.Height))
	for y := 0; y < pd.Labels.Height; y++ {
		for x := 0; x < pd.Labels.Width; x++ {
			l := pd.Labels.Labels[y*pd.Labels.Width+x]
			switch {
			case l == 0:
				img.SetRGBA(x, y, background)
			case clump[l]:
				img.SetRGBA(x, y, scaleColour(clumpColour, 0.6))
			default:
				img.SetRGBA(x, y, objectGrey)
			}
		}
	}
	return img
}

// finish upscales a figure with nearest-neighbour sampling and writes the
// caption in its top-left corner
func (v *Viewer) finish(img *image.RGBA, caption string) image.Image {
	out := img
	if v.scale > 1 {
		b := img.Bounds()
		out = image.NewRGBA(image.Rect(0, 0, b.Dx()*v.scale, b.Dy()*v.scale))
		draw.NearestNeighbor.Scale(out, out.Bounds(), img, b, draw.Src, nil)
	}

	d := &font.Drawer{
		Dst:  out,
		Src:  image.NewUniform(captionColor),
		Face: basicfont.Face7x13,
		Dot:  fixed.P(2, basicfont.Face7x13.Ascent+1),
	}
	d.DrawString(caption)
	return out
}

// setPoint colours a crop-relative pixel; positions outside are ignored
func setPoint(img *image.RGBA, origin, p models.Point, c color.RGBA) {
	x, y := origin.Col+p.Col, origin.Row+p.Row
	if image.Pt(x, y).In(img.Rect) {
		img.SetRGBA(x, y, c)
	}
}

// heat maps [0,1] onto a blue to red ramp
func heat(value float64) color.RGBA {
	t := math.Max(0, math.Min(1, value))
	return color.RGBA{
		R: uint8(255 * t),
		G: uint8(255 * (1 - math.Abs(2*t-1))),
		B: uint8(255 * (1 - t)),
		A: 255,
	}
}

func scaleColour(c color.RGBA, f float64) color.RGBA {
	f = math.Max(0, math.Min(1, f))
	return color.RGBA{R: uint8(float64(c.R) * f), G: uint8(float64(c.G) * f), B: uint8(float64(c.B) * f), A: 255}
}

// SaveFigure writes a figure as PNG or lossless WebP, chosen by the file
// extension
func (v *Viewer) SaveFigure(img image.Image, filename string) error {
	var encode func(io.Writer, image.Image) error
	switch strings.ToLower(filepath.Ext(filename)) {
	case ".png":
		encode = png.Encode
	case ".webp":
		encode = func(w io.Writer, img image.Image) error {
			return nativewebp.Encode(w, img, nil)
		}
	default:
		return fmt.Errorf("invalid figure format: %s (must be .png or .webp)", filepath.Ext(filename))
	}

	file, err := os.Create(filename)
	if err != nil {
		return err
	}
	defer file.Close()

	if err := encode(file, img); err != nil {
		return fmt.Errorf("error encoding figure: %w", err)
	}
	return nil
}

// SaveAll renders every figure of every pass into outputDir. format is
// "png" or "webp". Returns the written paths.
func (v *Viewer) SaveAll(outputDir, format string) ([]string, error) {
	if v.debug == nil {
		return nil, fmt.Errorf("no debug data")
	}
	if format != "png" && format != "webp" {
		return nil, fmt.Errorf("invalid figure format: %s (must be png or webp)", format)
	}
	if err := os.MkdirAll(outputDir, 0755); err != nil {
		return nil, err
	}

	var written []string
	save := func(img image.Image, name string) error {
		filename := filepath.Join(outputDir, name+"."+format)
		if err := v.SaveFigure(img, filename); err != nil {
			return err
		}
		written = append(written, filename)
		return nil
	}

	for _, pd := range v.debug.Passes {
		for _, feature := range []string{FeatureClump, FeatureSolidity, FeatureFormFactor, FeatureArea} {
			img, err := v.SelectionFigure(pd.Pass, feature)
			if err != nil {
				return written, err
			}
			if err := save(img, fmt.Sprintf("pass%02d_selection_%s", pd.Pass, feature)); err != nil {
				return written, err
			}
		}

		img, err := v.CurvatureFigure(pd.Pass)
		if err != nil {
			return written, err
		}
		if err := save(img, fmt.Sprintf("pass%02d_curvature", pd.Pass)); err != nil {
			return written, err
		}

		img, err = v.CutFigure(pd.Pass)
		if err != nil {
			return written, err
		}
		if err := save(img, fmt.Sprintf("pass%02d_cuts", pd.Pass)); err != nil {
			return written, err
		}
	}
	return written, nil
}

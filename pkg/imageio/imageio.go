// Package imageio reads masks and intensity images from disk and writes
// label images back.
//
// PNG, JPEG and GIF are decoded with the standard library, TIFF and BMP
// with golang.org/x/image. Only grey-level images are accepted.
package imageio

import (
	"fmt"
	"image"
	"image/color"
	_ "image/gif"
	_ "image/jpeg"
	"image/png"
	"io"
	"math"
	"os"
	"path/filepath"
	"strings"

	_ "golang.org/x/image/bmp"
	"golang.org/x/image/tiff"

	"separateclumps/internal/models"
)

// Decode reads an image and converts it to 16-bit grey values.
// Colour images return models.ErrTypeMismatch.
func Decode(r io.Reader) (*image.Gray16, error) {
	img, format, err := image.Decode(r)
	if err != nil {
		return nil, fmt.Errorf("error decoding image: %w", err)
	}
	gray, err := toGray16(img)
	if err != nil {
		return nil, fmt.Errorf("%s image: %w", format, err)
	}
	return gray, nil
}

// toGray16 widens grey images to 16 bits. 8-bit values v become v*257.
func toGray16(img image.Image) (*image.Gray16, error) {
	if g, ok := img.(*image.Gray16); ok && g.Rect.Min == (image.Point{}) {
		return g, nil
	}

	b := img.Bounds()
	out := image.NewGray16(image.Rect(0, 0, b.Dx(), b.Dy()))
	for y := b.Min.Y; y < b.Max.Y; y++ {
		for x := b.Min.X; x < b.Max.X; x++ {
			c := img.At(x, y)
			r, g, bl, _ := c.RGBA()
			if r != g || g != bl {
				return nil, fmt.Errorf("%w: pixel (%d,%d) is not grey", models.ErrTypeMismatch, x, y)
			}
			out.SetGray16(x-b.Min.X, y-b.Min.Y, color.Gray16Model.Convert(c).(color.Gray16))
		}
	}
	return out, nil
}

// readGray16 opens and decodes a grey image file
func readGray16(path string) (*image.Gray16, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("error opening image: %w", err)
	}
	defer f.Close()

	img, err := Decode(f)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", path, err)
	}
	return img, nil
}

// LoadMask reads a mask or label image. Grey values become labels; any
// non-zero value is foreground.
func LoadMask(path string) (*models.LabelImage, error) {
	img, err := readGray16(path)
	if err != nil {
		return nil, err
	}
	return MaskFromGray16(img), nil
}

// MaskFromGray16 converts grey values into labels
func MaskFromGray16(img *image.Gray16) *models.LabelImage {
	b := img.Bounds()
	l := models.NewLabelImage(b.Dx(), b.Dy())
	for y := 0; y < l.Height; y++ {
		for x := 0; x < l.Width; x++ {
			l.Labels[y*l.Width+x] = int32(img.Gray16At(b.Min.X+x, b.Min.Y+y).Y)
		}
	}
	return l
}

// LoadIntensity reads an 8- or 16-bit grey image
func LoadIntensity(path string) (*models.IntensityImage, error) {
	img, err := readGray16(path)
	if err != nil {
		return nil, err
	}
	return IntensityFromGray16(img), nil
}

// IntensityFromGray16 copies grey values into an intensity image
func IntensityFromGray16(img *image.Gray16) *models.IntensityImage {
	b := img.Bounds()
	im := models.NewIntensityImage(b.Dx(), b.Dy())
	for y := 0; y < im.Height; y++ {
		for x := 0; x < im.Width; x++ {
			im.Pix[y*im.Width+x] = img.Gray16At(b.Min.X+x, b.Min.Y+y).Y
		}
	}
	return im
}

// LabelsToGray16 stores labels as 16-bit grey values. Labels above
// 65535 cannot be represented.
func LabelsToGray16(l *models.LabelImage) (*image.Gray16, error) {
	img := image.NewGray16(image.Rect(0, 0, l.Width, l.Height))
	for i, v := range l.Labels {
		if v < 0 || v > math.MaxUint16 {
			return nil, fmt.Errorf("%w: label %d does not fit 16 bits", models.ErrTypeMismatch, v)
		}
		img.SetGray16(i%l.Width, i/l.Width, color.Gray16{Y: uint16(v)})
	}
	return img, nil
}

// SaveLabels writes a label image as a 16-bit grey PNG or TIFF, chosen by
// the file extension
func SaveLabels(path string, l *models.LabelImage) error {
	img, err := LabelsToGray16(l)
	if err != nil {
		return err
	}

	ext := strings.ToLower(filepath.Ext(path))
	if ext != ".png" && ext != ".tif" && ext != ".tiff" {
		return fmt.Errorf("unsupported label image format %q", ext)
	}

	if err := os.MkdirAll(filepath.Dir(path), 0755); err != nil {
		return fmt.Errorf("error creating output directory: %w", err)
	}
	f, err := os.Create(path)
	if err != nil {
		return fmt.Errorf("error creating label image: %w", err)
	}
	defer f.Close()

	if ext == ".png" {
		err = png.Encode(f, img)
	} else {
		err = tiff.Encode(f, img, &tiff.Options{Compression: tiff.Deflate})
	}
	if err != nil {
		return fmt.Errorf("error encoding label image: %w", err)
	}
	return f.Close()
}

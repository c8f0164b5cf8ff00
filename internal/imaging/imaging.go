// Package imaging crops question regions out of page images.
package imaging

import (
	"errors"
	"fmt"
	"image"
	"image/color"
	"image/draw"
	_ "image/jpeg"
	"image/png"
	"math"
	"os"
	"path/filepath"
)

const (
	// WhiteThreshold is the luminance above which a pixel counts as margin.
	WhiteThreshold = 250
	// DefaultPadding is the white border added around a trimmed crop.
	DefaultPadding = 5
)

// ErrEmptyRegion is returned when a crop rectangle misses the image.
var ErrEmptyRegion = errors.New("crop region is empty")

// Region is a rectangle in full-resolution image pixels.
type Region struct {
	X      float64 `json:"x" validate:"gte=0"`
	Y      float64 `json:"y" validate:"gte=0"`
	Width  float64 `json:"width" validate:"gt=0"`
	Height float64 `json:"height" validate:"gt=0"`
}

// Rect converts the region to integer pixel bounds.
func (r Region) Rect() image.Rectangle {
	x0, y0 := int(math.Floor(r.X)), int(math.Floor(r.Y))
	x1, y1 := int(math.Ceil(r.X+r.Width)), int(math.Ceil(r.Y+r.Height))
	return image.Rect(x0, y0, x1, y1)
}

// Scale maps a region measured on a displayed image of size from onto an
// image of size to.
func (r Region) Scale(from, to image.Point) Region {
	if from.X <= 0 || from.Y <= 0 {
		return r
	}
	sx := float64(to.X) / float64(from.X)
	sy := float64(to.Y) / float64(from.Y)
	return Region{X: r.X * sx, Y: r.Y * sy, Width: r.Width * sx, Height: r.Height * sy}
}

// Crop copies the part of img inside rect.
func Crop(img image.Image, rect image.Rectangle) (*image.RGBA, error) {
	rect = rect.Add(img.Bounds().Min).Intersect(img.Bounds())
	if rect.Empty() {
		return nil, ErrEmptyRegion
	}
	out := image.NewRGBA(image.Rect(0, 0, rect.Dx(), rect.Dy()))
	draw.Draw(out, out.Bounds(), img, rect.Min, draw.Src)
	return out, nil
}

// TrimWhitespace drops near-white margins. An all-white image is returned
// unchanged.
func TrimWhitespace(img image.Image, threshold uint8) image.Image {
	b := img.Bounds()
	content := image.Rectangle{}
	for y := b.Min.Y; y < b.Max.Y; y++ {
		for x := b.Min.X; x < b.Max.X; x++ {
			if color.GrayModel.Convert(img.At(x, y)).(color.Gray).Y > threshold {
				continue
			}
			content = content.Union(image.Rect(x, y, x+1, y+1))
		}
	}
	if content.Empty() {
		return img
	}
	out := image.NewRGBA(image.Rect(0, 0, content.Dx(), content.Dy()))
	draw.Draw(out, out.Bounds(), img, content.Min, draw.Src)
	return out
}

// Pad surrounds img with a white border of n pixels.
func Pad(img image.Image, n int) *image.RGBA {
	b := img.Bounds()
	out := image.NewRGBA(image.Rect(0, 0, b.Dx()+2*n, b.Dy()+2*n))
	draw.Draw(out, out.Bounds(), image.White, image.Point{}, draw.Src)
	draw.Draw(out, image.Rect(n, n, n+b.Dx(), n+b.Dy()), img, b.Min, draw.Src)
	return out
}

// Decode reads a PNG or JPEG file.
func Decode(path string) (image.Image, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("open image: %w", err)
	}
	defer f.Close()
	img, _, err := image.Decode(f)
	if err != nil {
		return nil, fmt.Errorf("decode image: %w", err)
	}
	return img, nil
}

// ExtractRegion crops region out of the image at src, trims its margins,
// pads it and writes the result to dst as PNG. When measured is non-zero
// the region was measured on an image of that size and is scaled to the
// actual image first.
func ExtractRegion(src, dst string, region Region, measured image.Point) error {
	img, err := Decode(src)
	if err != nil {
		return err
	}
	if size := img.Bounds().Size(); measured != (image.Point{}) && measured != size {
		region = region.Scale(measured, size)
	}
	cropped, err := Crop(img, region.Rect())
	if err != nil {
		return err
	}
	out := Pad(TrimWhitespace(cropped, WhiteThreshold), DefaultPadding)

	if err := os.MkdirAll(filepath.Dir(dst), 0o755); err != nil {
		return fmt.Errorf("create output dir: %w", err)
	}
	f, err := os.Create(dst)
	if err != nil {
		return fmt.Errorf("create output image: %w", err)
	}
	if err := png.Encode(f, out); err != nil {
		f.Close()
		return fmt.Errorf("encode png: %w", err)
	}
	return f.Close()
}

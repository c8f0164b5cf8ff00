package imaging

import (
	"image"
	"image/color"
	"image/draw"
	"image/png"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// page returns a white w×h image with a black block covering block.
func page(w, h int, block image.Rectangle) *image.RGBA {
	img := image.NewRGBA(image.Rect(0, 0, w, h))
	draw.Draw(img, img.Bounds(), image.White, image.Point{}, draw.Src)
	draw.Draw(img, block, image.Black, image.Point{}, draw.Src)
	return img
}

func TestRegionRect(t *testing.T) {
	r := Region{X: 10.4, Y: 20.6, Width: 5.2, Height: 4}
	assert.Equal(t, image.Rect(10, 20, 16, 25), r.Rect())
}

func TestRegionScale(t *testing.T) {
	r := Region{X: 60, Y: 30, Width: 120, Height: 60}
	got := r.Scale(image.Pt(600, 800), image.Pt(2400, 3200))
	assert.Equal(t, Region{X: 240, Y: 120, Width: 480, Height: 240}, got)
	assert.Equal(t, r, r.Scale(image.Point{}, image.Pt(10, 10)))
}

func TestCrop(t *testing.T) {
	img := page(100, 100, image.Rect(40, 40, 60, 60))

	out, err := Crop(img, image.Rect(30, 30, 70, 200))
	require.NoError(t, err)
	assert.Equal(t, image.Rect(0, 0, 40, 70), out.Bounds())

	_, err = Crop(img, image.Rect(200, 200, 300, 300))
	assert.ErrorIs(t, err, ErrEmptyRegion)
}

func TestTrimAndPad(t *testing.T) {
	img := page(100, 80, image.Rect(20, 10, 50, 30))

	trimmed := TrimWhitespace(img, WhiteThreshold)
	assert.Equal(t, 30, trimmed.Bounds().Dx())
	assert.Equal(t, 20, trimmed.Bounds().Dy())

	padded := Pad(trimmed, DefaultPadding)
	assert.Equal(t, image.Rect(0, 0, 40, 30), padded.Bounds())
	assert.Equal(t, color.RGBA{255, 255, 255, 255}, padded.RGBAAt(0, 0))
	assert.Equal(t, color.RGBA{0, 0, 0, 255}, padded.RGBAAt(5, 5))
}

func TestTrimAllWhite(t *testing.T) {
	img := page(10, 10, image.Rectangle{})
	assert.Equal(t, img.Bounds(), TrimWhitespace(img, WhiteThreshold).Bounds())
}

func TestExtractRegion(t *testing.T) {
	dir := t.TempDir()
	src := filepath.Join(dir, "page.png")
	f, err := os.Create(src)
	require.NoError(t, err)
	require.NoError(t, png.Encode(f, page(200, 200, image.Rect(50, 60, 90, 80))))
	require.NoError(t, f.Close())

	dst := filepath.Join(dir, "extracted", "box_1.png")
	require.NoError(t, ExtractRegion(src, dst, Region{X: 40, Y: 40, Width: 100, Height: 100}, image.Point{}))

	out, err := Decode(dst)
	require.NoError(t, err)
	assert.Equal(t, image.Rect(0, 0, 50, 30), out.Bounds())

	// Same region measured on a half-size rendering of the page.
	scaled := filepath.Join(dir, "extracted", "box_2.png")
	require.NoError(t, ExtractRegion(src, scaled, Region{X: 20, Y: 20, Width: 50, Height: 50}, image.Pt(100, 100)))
	out, err = Decode(scaled)
	require.NoError(t, err)
	assert.Equal(t, image.Rect(0, 0, 50, 30), out.Bounds())

	// A measured size equal to the image size leaves the region alone.
	same := filepath.Join(dir, "extracted", "box_3.png")
	require.NoError(t, ExtractRegion(src, same, Region{X: 40, Y: 40, Width: 100, Height: 100}, image.Pt(200, 200)))
	out, err = Decode(same)
	require.NoError(t, err)
	assert.Equal(t, image.Rect(0, 0, 50, 30), out.Bounds())
}

package manifest

import (
	"bytes"
	"context"
	"fmt"
	"os/exec"
	"path/filepath"
	"strconv"
	"strings"

	"github.com/pavelanni/exambuilder/internal/model"
)

// Image widths of the derived page images.
const (
	PreviewWidth = 600
	ThumbWidth   = 150
)

// Pdftoppm rasterizes pages with poppler's pdftoppm.
type Pdftoppm struct {
	Bin string // defaults to "pdftoppm"
	DPI int    // resolution of the full image, defaults to 300
}

// Rasterize writes <prefix>_full.png, <prefix>_preview.jpg and
// <prefix>_thumb.jpg for one page.
func (r Pdftoppm) Rasterize(ctx context.Context, pdfPath, outDir, prefix string, page int) (model.Page, error) {
	dpi := r.DPI
	if dpi == 0 {
		dpi = 300
	}
	p := strconv.Itoa(page)
	renders := []struct {
		suffix string
		args   []string
	}{
		{"_full", []string{"-png", "-r", strconv.Itoa(dpi)}},
		{"_preview", []string{"-jpeg", "-jpegopt", "quality=90", "-scale-to-x", strconv.Itoa(PreviewWidth), "-scale-to-y", "-1"}},
		{"_thumb", []string{"-jpeg", "-jpegopt", "quality=85", "-scale-to-x", strconv.Itoa(ThumbWidth), "-scale-to-y", "-1"}},
	}
	for _, rd := range renders {
		args := append([]string{"-f", p, "-l", p, "-singlefile"}, rd.args...)
		args = append(args, pdfPath, filepath.Join(outDir, prefix+rd.suffix))
		if err := r.run(ctx, args); err != nil {
			return model.Page{}, err
		}
	}
	return model.Page{
		PageNumber: page,
		Full:       prefix + "_full.png",
		Preview:    prefix + "_preview.jpg",
		Thumb:      prefix + "_thumb.jpg",
	}, nil
}

func (r Pdftoppm) run(ctx context.Context, args []string) error {
	bin := r.Bin
	if bin == "" {
		bin = "pdftoppm"
	}
	var stderr bytes.Buffer
	cmd := exec.CommandContext(ctx, bin, args...)
	cmd.Stderr = &stderr
	if err := cmd.Run(); err != nil {
		return fmt.Errorf("%s: %w: %s", bin, err, strings.TrimSpace(stderr.String()))
	}
	return nil
}

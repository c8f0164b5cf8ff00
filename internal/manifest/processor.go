package manifest

import (
	"context"
	"crypto/sha256"
	"encoding/hex"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"os"
	"path/filepath"
	"time"

	pdflib "github.com/ledongthuc/pdf"

	"github.com/pavelanni/exambuilder/internal/model"
)

// Status messages written to the manifest while processing.
const (
	StatusStarting  = "Starting file processing..."
	StatusCompleted = "Processing completed!"
)

// Rasterizer renders one PDF page into the full, preview and thumbnail
// images named after prefix inside outDir.
type Rasterizer interface {
	Rasterize(ctx context.Context, pdfPath, outDir, prefix string, page int) (model.Page, error)
}

// Job describes one uploaded exam to process. Exactly one of PDFPath and
// SourceURL is set.
type Job struct {
	Slug      string
	PDFPath   string
	SourceURL string
}

// Processor turns uploaded PDFs into page images, updating the manifest
// after every page so pollers see progress.
type Processor struct {
	store     *Store
	raster    Rasterizer
	client    *http.Client
	pageDelay time.Duration
	maxBytes  int64

	countPages func(path string) (int, error)
}

// NewProcessor creates a processor. pageDelay pauses between pages;
// maxBytes limits downloaded PDFs.
func NewProcessor(store *Store, raster Rasterizer, pageDelay time.Duration, maxBytes int64) *Processor {
	return &Processor{
		store:      store,
		raster:     raster,
		client:     &http.Client{Timeout: 2 * time.Minute},
		pageDelay:  pageDelay,
		maxBytes:   maxBytes,
		countPages: CountPages,
	}
}

// Run processes a job. Failures are recorded in the manifest as well as
// returned.
func (p *Processor) Run(ctx context.Context, job Job) error {
	err := p.run(ctx, job)
	if err == nil {
		return nil
	}
	slog.Error("exam processing failed", "slug", job.Slug, "error", err)
	if uerr := p.store.Update(job.Slug, func(m *model.Manifest) error {
		m.Metadata.ProcessingCompleted = false
		m.Metadata.Error = err.Error()
		m.Metadata.ProcessingStatus = "Processing failed: " + err.Error()
		return nil
	}); uerr != nil {
		slog.Error("failed to record processing error", "slug", job.Slug, "error", uerr)
	}
	return err
}

func (p *Processor) run(ctx context.Context, job Job) error {
	dir, err := p.store.ExamDir(job.Slug)
	if err != nil {
		return err
	}

	pdfPath := job.PDFPath
	if pdfPath == "" {
		pdfPath = filepath.Join(dir, job.Slug+".pdf")
		if err := p.download(ctx, job.SourceURL, pdfPath); err != nil {
			return err
		}
	}

	size, sum, err := fileDigest(pdfPath)
	if err != nil {
		return err
	}
	total, err := p.countPages(pdfPath)
	if err != nil {
		return err
	}
	if err := p.store.Update(job.Slug, func(m *model.Manifest) error {
		m.Metadata.FileSizeBytes = size
		m.Metadata.FileSHA256 = sum
		m.Metadata.FileTotalPages = total
		m.Metadata.ProcessingStatus = fmt.Sprintf("PDF loaded: %d pages. Starting image processing...", total)
		return nil
	}); err != nil {
		return err
	}
	slog.Info("processing exam", "slug", job.Slug, "pages", total, "size", size)

	outDir := filepath.Join(dir, imagesDir)
	for n := 1; n <= total; n++ {
		prefix := fmt.Sprintf("%s_page_%03d", job.Slug, n)
		page, err := p.raster.Rasterize(ctx, pdfPath, outDir, prefix, n)
		if err != nil {
			return fmt.Errorf("rasterize page %d: %w", n, err)
		}
		if err := p.store.PutPage(job.Slug, page); err != nil {
			return err
		}
		if err := p.store.Update(job.Slug, func(m *model.Manifest) error {
			m.Metadata.ProcessingPagesComplete = n
			m.Metadata.ProcessingStatus = fmt.Sprintf("Processing image %d of %d...", n, total)
			return nil
		}); err != nil {
			return err
		}
		slog.Debug("page processed", "slug", job.Slug, "page", n, "total", total)

		if p.pageDelay > 0 && n < total {
			select {
			case <-ctx.Done():
				return ctx.Err()
			case <-time.After(p.pageDelay):
			}
		}
	}

	slog.Info("exam processing completed", "slug", job.Slug, "pages", total)
	return p.store.Update(job.Slug, func(m *model.Manifest) error {
		m.Metadata.ProcessingCompleted = true
		m.Metadata.ProcessingStatus = StatusCompleted
		return nil
	})
}

func (p *Processor) download(ctx context.Context, src, dst string) error {
	if src == "" {
		return errors.New("no PDF file or URL given")
	}
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, src, nil)
	if err != nil {
		return fmt.Errorf("build download request: %w", err)
	}
	resp, err := p.client.Do(req)
	if err != nil {
		return fmt.Errorf("download pdf: %w", err)
	}
	defer resp.Body.Close()
	if resp.StatusCode != http.StatusOK {
		return fmt.Errorf("download pdf: unexpected status %s", resp.Status)
	}

	f, err := os.Create(dst)
	if err != nil {
		return fmt.Errorf("create pdf file: %w", err)
	}
	defer f.Close()

	var body io.Reader = resp.Body
	if p.maxBytes > 0 {
		body = io.LimitReader(resp.Body, p.maxBytes+1)
	}
	n, err := io.Copy(f, body)
	if err != nil {
		return fmt.Errorf("write pdf file: %w", err)
	}
	if p.maxBytes > 0 && n > p.maxBytes {
		return fmt.Errorf("downloaded pdf exceeds %d bytes", p.maxBytes)
	}
	return nil
}

// CountPages opens a PDF and returns its page count.
func CountPages(path string) (int, error) {
	f, reader, err := pdflib.Open(path)
	if err != nil {
		return 0, fmt.Errorf("open pdf: %w", err)
	}
	defer f.Close()
	n := reader.NumPage()
	if n == 0 {
		return 0, errors.New("pdf has no pages")
	}
	return n, nil
}

func fileDigest(path string) (int64, string, error) {
	f, err := os.Open(path)
	if err != nil {
		return 0, "", fmt.Errorf("open pdf: %w", err)
	}
	defer f.Close()
	h := sha256.New()
	n, err := io.Copy(h, f)
	if err != nil {
		return 0, "", fmt.Errorf("hash pdf: %w", err)
	}
	return n, hex.EncodeToString(h.Sum(nil)), nil
}

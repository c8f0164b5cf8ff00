package handler

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"net/url"
	"os"
	"path/filepath"
	"strconv"
	"strings"
	"time"

	"github.com/dustin/go-humanize"
	"github.com/go-chi/chi/v5"

	"github.com/pavelanni/exambuilder/internal/manifest"
	"github.com/pavelanni/exambuilder/internal/model"
)

const firstExamYear = 2000

type uploadResponse struct {
	Message   string                 `json:"message"`
	Metadata  model.ManifestMetadata `json:"metadata"`
	SizeHuman string                 `json:"size_human,omitempty"`
}

func (h *Handler) handleExamTypes(w http.ResponseWriter, r *http.Request) {
	catalog, err := h.store.ExamTypes()
	if err != nil {
		writeErr(w, err)
		return
	}
	if catalog == nil {
		writeError(w, http.StatusInternalServerError, "exam types configuration not loaded")
		return
	}
	writeJSON(w, http.StatusOK, catalog)
}

func (h *Handler) handleExamYears(w http.ResponseWriter, r *http.Request) {
	current := h.now().Year()
	years := make([]int, 0, current-firstExamYear+1)
	for y := firstExamYear; y <= current; y++ {
		years = append(years, y)
	}
	writeJSON(w, http.StatusOK, map[string][]int{"years": years})
}

func (h *Handler) handleListExams(w http.ResponseWriter, r *http.Request) {
	exams, err := h.store.ListExams()
	if err != nil {
		writeErr(w, err)
		return
	}
	if exams == nil {
		exams = []model.ExamRecord{}
	}
	writeJSON(w, http.StatusOK, map[string]any{"exams": exams})
}

func (h *Handler) handleUpload(w http.ResponseWriter, r *http.Request) {
	r.Body = http.MaxBytesReader(w, r.Body, h.config.MaxUploadBytes+1<<20)
	if err := r.ParseMultipartForm(32 << 20); err != nil {
		writeError(w, http.StatusBadRequest, "invalid upload: "+err.Error())
		return
	}

	slug := strings.TrimSpace(r.FormValue("slug"))
	if !manifest.ValidSlug(slug) {
		writeError(w, http.StatusBadRequest, "slug must be lowercase letters, digits, '-' or '_'")
		return
	}

	examType := strings.TrimSpace(r.FormValue("exam_type"))
	if examType != "" {
		ok, err := h.store.HasExamType(examType)
		if err != nil {
			writeErr(w, err)
			return
		}
		if !ok {
			writeError(w, http.StatusBadRequest, fmt.Sprintf("unknown exam type %q", examType))
			return
		}
	}

	var year int
	if v := r.FormValue("year"); v != "" {
		y, err := strconv.Atoi(v)
		if err != nil || y < firstExamYear || y > h.now().Year() {
			writeError(w, http.StatusBadRequest, "invalid year")
			return
		}
		year = y
	}

	job := manifest.Job{Slug: slug}
	var size int64
	file, header, err := r.FormFile("file")
	switch {
	case err == nil:
		defer file.Close()
		if !strings.HasSuffix(strings.ToLower(header.Filename), ".pdf") {
			writeError(w, http.StatusBadRequest, "Only PDF files are allowed")
			return
		}
		if header.Size > h.config.MaxUploadBytes {
			writeError(w, http.StatusBadRequest, "File size must be less than "+humanize.Bytes(uint64(h.config.MaxUploadBytes)))
			return
		}
		size = header.Size
	case errors.Is(err, http.ErrMissingFile):
		job.SourceURL = strings.TrimSpace(r.FormValue("pdf_url"))
		if job.SourceURL == "" {
			writeError(w, http.StatusBadRequest, "No file or pdf_url provided")
			return
		}
		u, perr := url.Parse(job.SourceURL)
		if perr != nil || (u.Scheme != "http" && u.Scheme != "https") || !strings.HasSuffix(strings.ToLower(u.Path), ".pdf") {
			writeError(w, http.StatusBadRequest, "URL does not point to a PDF file")
			return
		}
	default:
		writeError(w, http.StatusBadRequest, "invalid file field: "+err.Error())
		return
	}

	meta := model.ManifestMetadata{
		Slug:              slug,
		ExamID:            examType,
		ExamYear:          year,
		FileName:          slug + ".pdf",
		FileOriginalURL:   job.SourceURL,
		FileSizeBytes:     size,
		ProcessingStarted: h.now().UTC().Format(time.RFC3339),
		ProcessingStatus:  manifest.StatusStarting,
	}
	if err := h.manifests.Create(meta); err != nil {
		writeErr(w, err)
		return
	}

	if file != nil {
		dir, _ := h.manifests.ExamDir(slug)
		job.PDFPath = filepath.Join(dir, meta.FileName)
		if err := saveUpload(file, job.PDFPath); err != nil {
			writeErr(w, fmt.Errorf("save upload: %w", err))
			return
		}
	}

	rec := model.ExamRecord{
		Slug:      slug,
		ExamType:  examType,
		Year:      year,
		FileName:  meta.FileName,
		SourceURL: job.SourceURL,
		CreatedAt: h.now(),
	}
	if u := model.UserFromContext(r.Context()); u != nil {
		rec.CreatedBy = u.Username
	}
	if err := h.store.CreateExam(rec); err != nil {
		writeErr(w, err)
		return
	}
	h.outlines.Reset(slug)

	h.jobs.Add(1)
	go func(ctx context.Context) {
		defer h.jobs.Done()
		if err := h.processor.Run(ctx, job); err != nil {
			return
		}
		slog.Info("exam processed", "slug", job.Slug)
	}(context.WithoutCancel(r.Context()))

	m, err := h.manifests.Read(slug)
	if err != nil {
		writeErr(w, err)
		return
	}
	resp := uploadResponse{
		Message:  "File upload started, processing in background",
		Metadata: m.Metadata,
	}
	if size > 0 {
		resp.SizeHuman = humanize.Bytes(uint64(size))
	}
	writeJSON(w, http.StatusAccepted, resp)
}

func saveUpload(src io.Reader, dst string) error {
	f, err := os.Create(dst)
	if err != nil {
		return err
	}
	if _, err := io.Copy(f, src); err != nil {
		f.Close()
		return err
	}
	return f.Close()
}

func (h *Handler) handleManifest(w http.ResponseWriter, r *http.Request) {
	m, err := h.manifests.Read(chi.URLParam(r, "slug"))
	if err != nil {
		writeErr(w, err)
		return
	}
	w.Header().Set("Cache-Control", "no-cache, no-store, must-revalidate")
	writeJSON(w, http.StatusOK, m)
}

// handleManifestRaw returns the manifest file verbatim, for debugging a
// manifest that no longer parses.
func (h *Handler) handleManifestRaw(w http.ResponseWriter, r *http.Request) {
	data, err := h.manifests.Raw(chi.URLParam(r, "slug"))
	if err != nil {
		writeErr(w, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{"raw_content": string(data), "file_size": len(data)})
}

type imageEntry struct {
	manifest.ImageFile
	URL string `json:"url"`
}

type imagesResponse struct {
	Slug       string       `json:"slug"`
	Images     []imageEntry `json:"images"`
	TotalPages int          `json:"total_pages"`
}

func (h *Handler) handleListImages(w http.ResponseWriter, r *http.Request) {
	slug := chi.URLParam(r, "slug")
	files, err := h.manifests.Images(slug)
	if err != nil {
		writeErr(w, err)
		return
	}
	resp := imagesResponse{Slug: slug, Images: make([]imageEntry, 0, len(files))}
	for _, f := range files {
		resp.Images = append(resp.Images, imageEntry{ImageFile: f, URL: manifest.ImageURL(slug, f.Name)})
		if f.Type == manifest.ImageFull {
			resp.TotalPages++
		}
	}
	writeJSON(w, http.StatusOK, resp)
}

func (h *Handler) handleImage(w http.ResponseWriter, r *http.Request) {
	p, err := h.manifests.ImagePath(chi.URLParam(r, "slug"), chi.URLParam(r, "*"))
	if err != nil {
		writeErr(w, err)
		return
	}
	serveAsset(w, r, p)
}

func (h *Handler) handleExtracted(w http.ResponseWriter, r *http.Request) {
	p, err := h.manifests.ExtractedPath(chi.URLParam(r, "slug"), chi.URLParam(r, "*"))
	if err != nil {
		writeErr(w, err)
		return
	}
	serveAsset(w, r, p)
}

func serveAsset(w http.ResponseWriter, r *http.Request, p string) {
	f, err := os.Open(p)
	if err != nil {
		writeError(w, http.StatusNotFound, "image not found")
		return
	}
	defer f.Close()
	st, err := f.Stat()
	if err != nil || st.IsDir() {
		writeError(w, http.StatusNotFound, "image not found")
		return
	}
	http.ServeContent(w, r, st.Name(), st.ModTime(), f)
}

func (h *Handler) handleListExtractions(w http.ResponseWriter, r *http.Request) {
	slug := chi.URLParam(r, "slug")
	exam, err := h.store.GetExam(slug)
	if err != nil {
		writeErr(w, err)
		return
	}
	if exam == nil {
		writeError(w, http.StatusNotFound, "exam not found")
		return
	}
	list, err := h.store.ListExtractions(slug)
	if err != nil {
		writeErr(w, err)
		return
	}
	if list == nil {
		list = []model.Extraction{}
	}
	writeJSON(w, http.StatusOK, map[string]any{"exam": exam, "extractions": list})
}

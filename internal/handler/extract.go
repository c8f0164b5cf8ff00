package handler

import (
	"encoding/json"
	"errors"
	"image"
	"log/slog"
	"net/http"
	"os"
	"path"
	"regexp"
	"strings"

	"github.com/pavelanni/exambuilder/internal/imaging"
	"github.com/pavelanni/exambuilder/internal/manifest"
	"github.com/pavelanni/exambuilder/internal/model"
)

var questionIDPattern = regexp.MustCompile(`^[A-Za-z0-9_-]+$`)

type extractImageRequest struct {
	ExamID          string         `json:"exam_id" validate:"required"`
	QuestionID      string         `json:"question_id" validate:"required,max=100"`
	BoundingBox     imaging.Region `json:"bounding_box" validate:"required"`
	SourceImagePath string         `json:"source_image_path" validate:"required"`
	FullWidth       int            `json:"full_width" validate:"gte=0"`
	FullHeight      int            `json:"full_height" validate:"gte=0"`
}

type extractJSONRequest struct {
	ImageURL   string         `json:"image_url" validate:"required"`
	JSONSchema map[string]any `json:"json_schema" validate:"required"`
}

type extractJSONResponse struct {
	Prompt     string         `json:"prompt"`
	ImageURL   string         `json:"image_url"`
	JSONSchema map[string]any `json:"json_schema"`
	ResultJSON any            `json:"result_json"`
	ModelUsed  string         `json:"model_used"`
}

func (h *Handler) handleExtractQuestionImage(w http.ResponseWriter, r *http.Request) {
	var req extractImageRequest
	if err := h.decode(w, r, &req); err != nil {
		writeError(w, http.StatusBadRequest, err.Error())
		return
	}
	if !questionIDPattern.MatchString(req.QuestionID) {
		writeError(w, http.StatusBadRequest, "question_id may only contain letters, digits, '-' and '_'")
		return
	}

	src, err := h.manifests.ImagePath(req.ExamID, req.SourceImagePath)
	if err != nil {
		writeErr(w, err)
		return
	}
	if _, err := os.Stat(src); err != nil {
		writeError(w, http.StatusNotFound, "source image not found")
		return
	}
	name := req.QuestionID + ".png"
	dst, err := h.manifests.ExtractedPath(req.ExamID, name)
	if err != nil {
		writeErr(w, err)
		return
	}

	measured := image.Pt(req.FullWidth, req.FullHeight)
	if err := imaging.ExtractRegion(src, dst, req.BoundingBox, measured); err != nil {
		if errors.Is(err, imaging.ErrEmptyRegion) {
			writeError(w, http.StatusBadRequest, err.Error())
			return
		}
		writeErr(w, err)
		return
	}
	slog.Info("extracted question image", "exam", req.ExamID, "question", req.QuestionID)
	writeJSON(w, http.StatusOK, map[string]string{"image_url": manifest.ExtractedURL(req.ExamID, name)})
}

// handleExtractJSON runs the image-to-JSON model on an extracted question
// image. Every attempt is recorded, failed ones with their error text.
func (h *Handler) handleExtractJSON(w http.ResponseWriter, r *http.Request) {
	if h.llm == nil {
		writeError(w, http.StatusServiceUnavailable, "extraction model is not configured")
		return
	}
	var req extractJSONRequest
	if err := h.decode(w, r, &req); err != nil {
		writeError(w, http.StatusBadRequest, err.Error())
		return
	}

	slug, name, err := manifest.ParseExtractedURL(req.ImageURL)
	if err != nil {
		writeErr(w, err)
		return
	}
	p, err := h.manifests.ExtractedPath(slug, name)
	if err != nil {
		writeErr(w, err)
		return
	}
	img, err := os.ReadFile(p)
	if err != nil {
		writeError(w, http.StatusNotFound, "image file not found: "+name)
		return
	}

	schema, _ := json.Marshal(req.JSONSchema)
	rec := model.Extraction{
		Slug:       slug,
		QuestionID: strings.TrimSuffix(path.Base(name), path.Ext(name)),
		ImageURL:   req.ImageURL,
		Schema:     string(schema),
		ModelUsed:  h.llm.Model(),
		CreatedAt:  h.now(),
	}

	res, err := h.llm.ExtractJSON(r.Context(), req.ImageURL, img, req.JSONSchema)
	if err != nil {
		slog.Error("extraction failed", "image", req.ImageURL, "error", err)
		rec.Error = err.Error()
		h.recordExtraction(rec)
		writeError(w, http.StatusBadGateway, "Error extracting JSON from image: "+err.Error())
		return
	}

	result, _ := json.Marshal(res.ResultJSON)
	rec.Result = string(result)
	rec.ModelUsed = res.ModelUsed
	h.recordExtraction(rec)

	writeJSON(w, http.StatusOK, extractJSONResponse{
		Prompt:     res.Prompt,
		ImageURL:   res.ImageURL,
		JSONSchema: res.JSONSchema,
		ResultJSON: res.ResultJSON,
		ModelUsed:  res.ModelUsed,
	})
}

func (h *Handler) recordExtraction(rec model.Extraction) {
	if _, err := h.store.AddExtraction(rec); err != nil {
		slog.Error("failed to record extraction", "slug", rec.Slug, "error", err)
	}
}

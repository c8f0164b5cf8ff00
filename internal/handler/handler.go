package handler

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"strings"
	"sync"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-playground/validator/v10"

	"github.com/pavelanni/exambuilder/internal/llm"
	"github.com/pavelanni/exambuilder/internal/manifest"
	"github.com/pavelanni/exambuilder/internal/model"
	"github.com/pavelanni/exambuilder/internal/outline"
	"github.com/pavelanni/exambuilder/internal/results"
	"github.com/pavelanni/exambuilder/internal/store"
)

// Processor turns an uploaded exam into page images.
type Processor interface {
	Run(ctx context.Context, job manifest.Job) error
}

// Extractor turns a question image into schema-shaped JSON.
type Extractor interface {
	ExtractJSON(ctx context.Context, imageURL string, image []byte, schema map[string]any) (*llm.Extraction, error)
	Model() string
}

// Deps are the collaborators of a Handler.
type Deps struct {
	Store     *store.Store
	Manifests *manifest.Store
	Processor Processor
	LLM       Extractor
	Results   *results.Repository
	Outlines  *outline.Registry
	Config    model.ServerConfig
	Now       func() time.Time
}

// Handler holds shared dependencies for HTTP handlers.
type Handler struct {
	store     *store.Store
	manifests *manifest.Store
	processor Processor
	llm       Extractor
	results   *results.Repository
	outlines  *outline.Registry
	config    model.ServerConfig
	validate  *validator.Validate
	now       func() time.Time

	jobs sync.WaitGroup
}

// New creates a new Handler.
func New(d Deps) (*Handler, error) {
	if d.Store == nil || d.Manifests == nil || d.Processor == nil || d.Results == nil {
		return nil, errors.New("handler: store, manifests, processor and results are required")
	}
	if d.Outlines == nil {
		d.Outlines = outline.NewRegistry()
	}
	if d.Now == nil {
		d.Now = time.Now
	}
	return &Handler{
		store:     d.Store,
		manifests: d.Manifests,
		processor: d.Processor,
		llm:       d.LLM,
		results:   d.Results,
		outlines:  d.Outlines,
		config:    d.Config,
		validate:  validator.New(validator.WithRequiredStructEnabled()),
		now:       d.Now,
	}, nil
}

// Routes registers all HTTP routes.
func (h *Handler) Routes(r chi.Router) {
	r.Get("/health", h.handleHealth)
	r.Route("/api/v1", func(r chi.Router) {
		r.Post("/auth/login", h.handleLogin)
		r.Group(func(r chi.Router) {
			r.Use(h.requireAuth)
			r.Post("/auth/logout", h.handleLogout)
			r.Get("/auth/me", h.handleMe)

			r.Route("/admin/users", func(r chi.Router) {
				r.Use(requireRole(model.UserRoleAdmin))
				r.Get("/", h.handleListUsers)
				r.Post("/", h.handleCreateUser)
				r.Put("/{userID}/active", h.handleSetUserActive)
			})

			r.Route("/exams", func(r chi.Router) {
				r.Get("/types", h.handleExamTypes)
				r.Get("/years", h.handleExamYears)
				r.Get("/", h.handleListExams)
				r.Post("/upload", h.handleUpload)
				r.Post("/extract-question-image", h.handleExtractQuestionImage)
				r.Post("/extract-json-from-image", h.handleExtractJSON)
				r.Route("/{slug}", func(r chi.Router) {
					r.Get("/manifest", h.handleManifest)
					r.Get("/manifest/raw", h.handleManifestRaw)
					r.Get("/images", h.handleListImages)
					r.Get("/images/*", h.handleImage)
					r.Get("/extracted/*", h.handleExtracted)
					r.Get("/extractions", h.handleListExtractions)
					r.Route("/outline", h.outlineRoutes)
				})
			})

			r.Route("/results", func(r chi.Router) {
				r.Get("/", h.handleResultsIndex)
				r.Get("/{filename}", h.handleResultFile)
				r.Get("/{filename}/view", h.handleResultView)
				r.Get("/{filename}/questions/{questionID}", h.handleResultQuestion)
			})
		})
	})
}

// Wait blocks until background processing jobs finish or ctx ends.
func (h *Handler) Wait(ctx context.Context) error {
	done := make(chan struct{})
	go func() {
		h.jobs.Wait()
		close(done)
	}()
	select {
	case <-done:
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}

func (h *Handler) handleHealth(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, map[string]string{"status": "healthy"})
}

// path prefixes an absolute application path with the base path.
func (h *Handler) path(p string) string {
	return h.config.BasePath + p
}

func (h *Handler) cookiePath() string {
	if h.config.BasePath != "" {
		return h.config.BasePath + "/"
	}
	return "/"
}

// BasePathMiddleware stores the configured base path in the request context.
func BasePathMiddleware(basePath string) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			ctx := model.ContextWithBasePath(r.Context(), basePath)
			next.ServeHTTP(w, r.WithContext(ctx))
		})
	}
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(v); err != nil {
		slog.Error("encode response", "error", err)
	}
}

func writeError(w http.ResponseWriter, status int, msg string) {
	writeJSON(w, status, map[string]string{"error": msg})
}

// writeErr maps domain errors to status codes.
func writeErr(w http.ResponseWriter, err error) {
	switch {
	case errors.Is(err, manifest.ErrNotFound),
		errors.Is(err, manifest.ErrNoImages),
		errors.Is(err, results.ErrNotFound),
		errors.Is(err, outline.ErrSectionNotFound),
		errors.Is(err, outline.ErrBoxNotFound):
		writeError(w, http.StatusNotFound, err.Error())
	case errors.Is(err, manifest.ErrInvalidSlug),
		errors.Is(err, manifest.ErrInvalidPath),
		errors.Is(err, results.ErrInvalidName),
		errors.Is(err, outline.ErrInvalidKind),
		errors.Is(err, outline.ErrInvalidQuestionNumber),
		errors.Is(err, outline.ErrContextNumber),
		errors.Is(err, outline.ErrDrawingDisabled),
		errors.Is(err, outline.ErrInvalidPage):
		writeError(w, http.StatusBadRequest, err.Error())
	default:
		slog.Error("request failed", "error", err)
		writeError(w, http.StatusInternalServerError, err.Error())
	}
}

// decode reads a JSON body into v and validates its struct tags.
func (h *Handler) decode(w http.ResponseWriter, r *http.Request, v any) error {
	dec := json.NewDecoder(http.MaxBytesReader(w, r.Body, 1<<20))
	if err := dec.Decode(v); err != nil {
		return fmt.Errorf("invalid JSON body: %w", err)
	}
	if err := h.validate.Struct(v); err != nil {
		var verrs validator.ValidationErrors
		if errors.As(err, &verrs) {
			fields := make([]string, len(verrs))
			for i, fe := range verrs {
				fields[i] = fmt.Sprintf("%s failed %q", fe.Field(), fe.Tag())
			}
			return fmt.Errorf("invalid request: %s", strings.Join(fields, ", "))
		}
		return err
	}
	return nil
}

package handler

import (
	"log/slog"
	"net/http"
	"strconv"

	"github.com/go-chi/chi/v5"

	"github.com/pavelanni/exambuilder/internal/handler/views"
	"github.com/pavelanni/exambuilder/internal/model"
	"github.com/pavelanni/exambuilder/internal/outline"
)

type outlineResponse struct {
	model.Snapshot
	Box         *model.BoundingBox  `json:"box,omitempty"`
	Provisional *model.BoundingBox  `json:"provisional,omitempty"`
	Move        *outline.MoveResult `json:"move,omitempty"`
}

type createSectionRequest struct {
	Name     string `json:"name" validate:"max=200"`
	ParentID string `json:"parent_id"`
}

type renameSectionRequest struct {
	Name string `json:"name" validate:"required,max=200"`
}

type kindRequest struct {
	Kind model.BoxKind `json:"kind" validate:"required,oneof=Question Context"`
}

type numberRequest struct {
	Number int `json:"number" validate:"min=1,max=999"`
}

type assignRequest struct {
	SectionID string `json:"section_id" validate:"required"`
}

type enabledRequest struct {
	Enabled bool `json:"enabled"`
}

type pointerRequest struct {
	Page     int     `json:"page" validate:"min=1"`
	ClientX  float64 `json:"client_x"`
	ClientY  float64 `json:"client_y"`
	RectLeft float64 `json:"rect_left"`
	RectTop  float64 `json:"rect_top"`
}

func (p pointerRequest) local() outline.Point {
	return outline.Pointer{ClientX: p.ClientX, ClientY: p.ClientY, RectLeft: p.RectLeft, RectTop: p.RectTop}.Local()
}

type dragRequest struct {
	ID string `json:"id"`
}

type dragEndRequest struct {
	ActiveID string `json:"active_id" validate:"required"`
	OverID   string `json:"over_id"`
}

func (h *Handler) outlineRoutes(r chi.Router) {
	r.Get("/", h.handleOutline)
	r.Get("/view", h.handleOutlineView)
	r.Get("/pages/{page}/overlay.svg", h.handleOverlay)

	r.Post("/sections", h.handleCreateSection)
	r.Post("/sections/new", h.handleAddSectionAndEdit)
	r.Put("/sections/{id}", h.handleRenameSection)
	r.Post("/sections/{id}/toggle", h.handleToggleSection)
	r.Post("/sections/{id}/edit", h.handleStartEditing)
	r.Delete("/edit", h.handleCancelEditing)

	r.Post("/boxes/{id}/kind", h.handleSetKind)
	r.Delete("/boxes/{id}", h.handleDeleteBox)
	r.Post("/boxes/{id}/active", h.handleSetActive)
	r.Put("/boxes/{id}/number", h.handleSetNumber)
	r.Post("/boxes/{id}/assign", h.handleAssign)

	r.Post("/draw/enabled", h.handleDrawEnabled)
	r.Post("/draw/click", h.handleDrawClick)
	r.Post("/draw/move", h.handleDrawMove)

	r.Post("/drag/start", h.handleDragStart)
	r.Post("/drag/over", h.handleDragOver)
	r.Post("/drag/end", h.handleDragEnd)
	r.Post("/drag/cancel", h.handleDragCancel)
}

// withOutline runs fn on the exam's outline. The outline is created from
// the manifest on first use, so exams without a manifest are not found.
func (h *Handler) withOutline(w http.ResponseWriter, r *http.Request, fn func(o *outline.Outline) error) bool {
	slug := chi.URLParam(r, "slug")
	m, err := h.manifests.Read(slug)
	if err != nil {
		writeErr(w, err)
		return false
	}
	if err := h.outlines.Do(slug, m.Metadata.Slug, fn); err != nil {
		writeErr(w, err)
		return false
	}
	return true
}

// mutate applies fn and replies with the resulting snapshot.
func (h *Handler) mutate(w http.ResponseWriter, r *http.Request, fn func(o *outline.Outline, resp *outlineResponse) error) {
	var resp outlineResponse
	ok := h.withOutline(w, r, func(o *outline.Outline) error {
		if err := fn(o, &resp); err != nil {
			return err
		}
		resp.Snapshot = o.Snapshot()
		if p, ok := o.Provisional(); ok {
			resp.Provisional = &p
		}
		return nil
	})
	if ok {
		writeJSON(w, http.StatusOK, resp)
	}
}

// bind decodes a request body before mutating; a bad body ends the request.
func bind[T any](h *Handler, w http.ResponseWriter, r *http.Request) (T, bool) {
	var v T
	if err := h.decode(w, r, &v); err != nil {
		writeError(w, http.StatusBadRequest, err.Error())
		return v, false
	}
	return v, true
}

func (h *Handler) handleOutline(w http.ResponseWriter, r *http.Request) {
	h.mutate(w, r, func(*outline.Outline, *outlineResponse) error { return nil })
}

func (h *Handler) handleOutlineView(w http.ResponseWriter, r *http.Request) {
	var page views.OutlinePage
	ok := h.withOutline(w, r, func(o *outline.Outline) error {
		page = views.NewOutlinePage(o)
		return nil
	})
	if !ok {
		return
	}
	w.Header().Set("Content-Type", "text/html; charset=utf-8")
	if err := views.Outline(page).Render(r.Context(), w); err != nil {
		slog.Error("render error", "error", err)
	}
}

func (h *Handler) handleOverlay(w http.ResponseWriter, r *http.Request) {
	n, err := strconv.Atoi(chi.URLParam(r, "page"))
	if err != nil || n < 1 {
		writeError(w, http.StatusBadRequest, "invalid page number")
		return
	}
	slug := chi.URLParam(r, "slug")
	m, err := h.manifests.Read(slug)
	if err != nil {
		writeErr(w, err)
		return
	}
	var scene outline.Scene
	if err := h.outlines.Do(slug, m.Metadata.Slug, func(o *outline.Outline) error {
		scene = o.Scene(n)
		return nil
	}); err != nil {
		writeErr(w, err)
		return
	}
	// A missing page renders an empty overlay.
	var pg *model.Page
	for i := range m.Pages {
		if m.Pages[i].PageNumber == n {
			pg = &m.Pages[i]
		}
	}
	w.Header().Set("Content-Type", "image/svg+xml")
	w.Header().Set("Cache-Control", "no-cache")
	if err := views.Overlay(slug, pg, scene).Render(r.Context(), w); err != nil {
		slog.Error("render error", "error", err)
	}
}

func (h *Handler) handleCreateSection(w http.ResponseWriter, r *http.Request) {
	req, ok := bind[createSectionRequest](h, w, r)
	if !ok {
		return
	}
	h.mutate(w, r, func(o *outline.Outline, _ *outlineResponse) error {
		_, err := o.CreateSection(req.Name, req.ParentID)
		return err
	})
}

func (h *Handler) handleAddSectionAndEdit(w http.ResponseWriter, r *http.Request) {
	parent := r.URL.Query().Get("parent_id")
	h.mutate(w, r, func(o *outline.Outline, _ *outlineResponse) error {
		_, err := o.AddSectionAndEdit(parent)
		return err
	})
}

func (h *Handler) handleRenameSection(w http.ResponseWriter, r *http.Request) {
	req, ok := bind[renameSectionRequest](h, w, r)
	if !ok {
		return
	}
	id := chi.URLParam(r, "id")
	h.mutate(w, r, func(o *outline.Outline, _ *outlineResponse) error {
		_, err := o.RenameSection(id, req.Name)
		return err
	})
}

func (h *Handler) handleToggleSection(w http.ResponseWriter, r *http.Request) {
	id := chi.URLParam(r, "id")
	h.mutate(w, r, func(o *outline.Outline, _ *outlineResponse) error {
		return o.ToggleExpanded(id)
	})
}

func (h *Handler) handleStartEditing(w http.ResponseWriter, r *http.Request) {
	id := chi.URLParam(r, "id")
	h.mutate(w, r, func(o *outline.Outline, _ *outlineResponse) error {
		return o.StartEditing(id)
	})
}

func (h *Handler) handleCancelEditing(w http.ResponseWriter, r *http.Request) {
	h.mutate(w, r, func(o *outline.Outline, _ *outlineResponse) error {
		o.CancelEditing()
		return nil
	})
}

func (h *Handler) handleSetKind(w http.ResponseWriter, r *http.Request) {
	req, ok := bind[kindRequest](h, w, r)
	if !ok {
		return
	}
	id := chi.URLParam(r, "id")
	h.mutate(w, r, func(o *outline.Outline, _ *outlineResponse) error {
		return o.SetKind(id, req.Kind)
	})
}

func (h *Handler) handleDeleteBox(w http.ResponseWriter, r *http.Request) {
	id := chi.URLParam(r, "id")
	h.mutate(w, r, func(o *outline.Outline, _ *outlineResponse) error {
		return o.DeleteBox(id)
	})
}

func (h *Handler) handleSetActive(w http.ResponseWriter, r *http.Request) {
	id := chi.URLParam(r, "id")
	h.mutate(w, r, func(o *outline.Outline, _ *outlineResponse) error {
		return o.SetActive(id)
	})
}

func (h *Handler) handleSetNumber(w http.ResponseWriter, r *http.Request) {
	req, ok := bind[numberRequest](h, w, r)
	if !ok {
		return
	}
	id := chi.URLParam(r, "id")
	h.mutate(w, r, func(o *outline.Outline, _ *outlineResponse) error {
		return o.SetQuestionNumber(id, req.Number)
	})
}

func (h *Handler) handleAssign(w http.ResponseWriter, r *http.Request) {
	req, ok := bind[assignRequest](h, w, r)
	if !ok {
		return
	}
	id := chi.URLParam(r, "id")
	h.mutate(w, r, func(o *outline.Outline, _ *outlineResponse) error {
		return o.AssignToSection(id, req.SectionID)
	})
}

func (h *Handler) handleDrawEnabled(w http.ResponseWriter, r *http.Request) {
	req, ok := bind[enabledRequest](h, w, r)
	if !ok {
		return
	}
	h.mutate(w, r, func(o *outline.Outline, _ *outlineResponse) error {
		o.SetDrawingEnabled(req.Enabled)
		return nil
	})
}

func (h *Handler) handleDrawClick(w http.ResponseWriter, r *http.Request) {
	req, ok := bind[pointerRequest](h, w, r)
	if !ok {
		return
	}
	h.mutate(w, r, func(o *outline.Outline, resp *outlineResponse) error {
		box, err := o.Click(req.Page, req.local())
		resp.Box = box
		return err
	})
}

func (h *Handler) handleDrawMove(w http.ResponseWriter, r *http.Request) {
	req, ok := bind[pointerRequest](h, w, r)
	if !ok {
		return
	}
	h.mutate(w, r, func(o *outline.Outline, _ *outlineResponse) error {
		o.PointerMove(req.local())
		return nil
	})
}

func (h *Handler) handleDragStart(w http.ResponseWriter, r *http.Request) {
	req, ok := bind[dragRequest](h, w, r)
	if !ok {
		return
	}
	h.mutate(w, r, func(o *outline.Outline, _ *outlineResponse) error {
		o.DragStart(req.ID)
		return nil
	})
}

func (h *Handler) handleDragOver(w http.ResponseWriter, r *http.Request) {
	req, ok := bind[dragRequest](h, w, r)
	if !ok {
		return
	}
	h.mutate(w, r, func(o *outline.Outline, _ *outlineResponse) error {
		o.DragOver(req.ID)
		return nil
	})
}

func (h *Handler) handleDragEnd(w http.ResponseWriter, r *http.Request) {
	req, ok := bind[dragEndRequest](h, w, r)
	if !ok {
		return
	}
	h.mutate(w, r, func(o *outline.Outline, resp *outlineResponse) error {
		res := o.DragEnd(req.ActiveID, req.OverID)
		resp.Move = &res
		return nil
	})
}

func (h *Handler) handleDragCancel(w http.ResponseWriter, r *http.Request) {
	h.mutate(w, r, func(o *outline.Outline, _ *outlineResponse) error {
		o.DragCancel()
		return nil
	})
}

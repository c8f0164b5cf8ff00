package handler

import (
	"encoding/json"
	"log/slog"
	"net/http"

	"github.com/go-chi/chi/v5"

	"github.com/pavelanni/exambuilder/internal/handler/views"
	"github.com/pavelanni/exambuilder/internal/results"
)

type resultsResponse struct {
	*results.Index
	Sort results.SortConfig `json:"sort"`
}

func (h *Handler) handleResultsIndex(w http.ResponseWriter, r *http.Request) {
	cfg, err := results.ParseSort(r.URL.Query().Get("sort"), r.URL.Query().Get("dir"))
	if err != nil {
		writeError(w, http.StatusBadRequest, err.Error())
		return
	}
	idx, err := h.results.Index()
	if err != nil {
		writeErr(w, err)
		return
	}
	idx.Results = results.Sort(idx.Results, cfg)
	if r.URL.Query().Get("format") == "html" {
		w.Header().Set("Content-Type", "text/html; charset=utf-8")
		if err := views.Dashboard(idx, cfg).Render(r.Context(), w); err != nil {
			slog.Error("render error", "error", err)
		}
		return
	}
	writeJSON(w, http.StatusOK, resultsResponse{Index: idx, Sort: cfg})
}

func (h *Handler) handleResultFile(w http.ResponseWriter, r *http.Request) {
	data, err := h.results.File(chi.URLParam(r, "filename"))
	if err != nil {
		writeErr(w, err)
		return
	}
	w.Header().Set("Content-Type", "application/json")
	_, _ = w.Write(data)
}

func (h *Handler) handleResultView(w http.ResponseWriter, r *http.Request) {
	name := chi.URLParam(r, "filename")
	data, err := h.results.File(name)
	if err != nil {
		writeErr(w, err)
		return
	}
	pretty, err := results.Pretty(data)
	if err != nil {
		writeErr(w, err)
		return
	}
	w.Header().Set("Content-Type", "text/html; charset=utf-8")
	if err := views.JSONViewer(name, "", pretty).Render(r.Context(), w); err != nil {
		slog.Error("render error", "error", err)
	}
}

func (h *Handler) handleResultQuestion(w http.ResponseWriter, r *http.Request) {
	name := chi.URLParam(r, "filename")
	qid := chi.URLParam(r, "questionID")
	data, err := h.results.File(name)
	if err != nil {
		writeErr(w, err)
		return
	}
	q, ok := results.FindQuestion(data, qid)
	if !ok {
		writeError(w, http.StatusNotFound, "question "+qid+" not found in "+name)
		return
	}
	if r.URL.Query().Get("format") == "html" {
		raw, _ := json.Marshal(q)
		pretty, err := results.Pretty(raw)
		if err != nil {
			writeErr(w, err)
			return
		}
		w.Header().Set("Content-Type", "text/html; charset=utf-8")
		if err := views.JSONViewer(name, qid, pretty).Render(r.Context(), w); err != nil {
			slog.Error("render error", "error", err)
		}
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{"file": name, "question_id": qid, "question": q})
}

package client

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/pavelanni/exambuilder/internal/model"
)

func TestLoginAndFetchManifest(t *testing.T) {
	mux := http.NewServeMux()
	mux.HandleFunc("POST /api/v1/auth/login", func(w http.ResponseWriter, r *http.Request) {
		http.SetCookie(w, &http.Cookie{Name: "session", Value: "tok"})
		w.WriteHeader(http.StatusNoContent)
	})
	mux.HandleFunc("GET /api/v1/exams/{slug}/manifest", func(w http.ResponseWriter, r *http.Request) {
		if ck, err := r.Cookie("session"); err != nil || ck.Value != "tok" {
			w.WriteHeader(http.StatusUnauthorized)
			return
		}
		if r.PathValue("slug") != "bio" {
			w.WriteHeader(http.StatusNotFound)
			_ = json.NewEncoder(w).Encode(map[string]string{"error": "manifest not found"})
			return
		}
		_ = json.NewEncoder(w).Encode(model.Manifest{
			Metadata: model.ManifestMetadata{Slug: "bio", FileTotalPages: 4},
			Pages:    []model.Page{{PageNumber: 1}},
		})
	})
	srv := httptest.NewServer(mux)
	defer srv.Close()

	c := New(srv.URL + "/")
	ctx := context.Background()

	_, err := c.FetchManifest(ctx, "bio")
	require.Error(t, err)

	require.NoError(t, c.Login(ctx, "admin", "secret"))
	m, err := c.FetchManifest(ctx, "bio")
	require.NoError(t, err)
	assert.Equal(t, 4, m.Metadata.FileTotalPages)
	assert.Len(t, m.Pages, 1)

	_, err = c.FetchManifest(ctx, "chem")
	assert.ErrorIs(t, err, ErrNotFound)
}

func TestUpload(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		require.NoError(t, r.ParseMultipartForm(1<<20))
		assert.Equal(t, "bio", r.FormValue("slug"))
		assert.Equal(t, "2024", r.FormValue("year"))
		f, hdr, err := r.FormFile("file")
		require.NoError(t, err)
		f.Close()
		_ = json.NewEncoder(w).Encode(UploadResponse{
			Message:  "ok",
			Metadata: model.ManifestMetadata{Slug: "bio", FileName: hdr.Filename},
		})
	}))
	defer srv.Close()

	pdf := filepath.Join(t.TempDir(), "bio.pdf")
	require.NoError(t, os.WriteFile(pdf, []byte("%PDF"), 0o644))

	resp, err := New(srv.URL).Upload(context.Background(), UploadRequest{Slug: "bio", Year: 2024, File: pdf})
	require.NoError(t, err)
	assert.Equal(t, "bio.pdf", resp.Metadata.FileName)
}

package handler

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"image"
	"image/draw"
	"image/png"
	"io"
	"mime/multipart"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"golang.org/x/crypto/bcrypt"

	appI18n "github.com/pavelanni/exambuilder/internal/i18n"
	"github.com/pavelanni/exambuilder/internal/llm"
	"github.com/pavelanni/exambuilder/internal/manifest"
	"github.com/pavelanni/exambuilder/internal/model"
	"github.com/pavelanni/exambuilder/internal/outline"
	"github.com/pavelanni/exambuilder/internal/results"
	"github.com/pavelanni/exambuilder/internal/store"
)

type fakeProcessor struct {
	jobs chan manifest.Job
}

func (f *fakeProcessor) Run(_ context.Context, job manifest.Job) error {
	f.jobs <- job
	return nil
}

type fakeExtractor struct {
	err error
}

func (f *fakeExtractor) Model() string { return "fake-vision" }

func (f *fakeExtractor) ExtractJSON(_ context.Context, imageURL string, img []byte, schema map[string]any) (*llm.Extraction, error) {
	if f.err != nil {
		return nil, f.err
	}
	if len(img) == 0 {
		return nil, errors.New("empty image")
	}
	return &llm.Extraction{
		Prompt:     "extract",
		ImageURL:   imageURL,
		JSONSchema: schema,
		ResultJSON: map[string]any{"question": map[string]any{"type": "mcq", "text": "What is ATP?"}},
		ModelUsed:  "fake-vision",
	}, nil
}

type testEnv struct {
	h         *Handler
	router    chi.Router
	store     *store.Store
	manifests *manifest.Store
	proc      *fakeProcessor
	llm       *fakeExtractor
	results   string
	cookie    *http.Cookie
}

func newTestEnv(t *testing.T) *testEnv {
	t.Helper()
	require.NoError(t, appI18n.Init("en"))

	st, err := store.New(":memory:")
	require.NoError(t, err)
	t.Cleanup(func() { st.Close() })

	for _, u := range []struct {
		name string
		role model.UserRole
	}{{"admin", model.UserRoleAdmin}, {"editor", model.UserRoleEditor}} {
		hash, err := bcrypt.GenerateFromPassword([]byte("secret-pass"), bcrypt.MinCost)
		require.NoError(t, err)
		_, err = st.CreateUser(model.User{Username: u.name, PasswordHash: string(hash), Role: u.role, Active: true})
		require.NoError(t, err)
	}

	env := &testEnv{
		store:     st,
		manifests: manifest.NewStore(t.TempDir()),
		proc:      &fakeProcessor{jobs: make(chan manifest.Job, 4)},
		llm:       &fakeExtractor{},
		results:   t.TempDir(),
	}
	env.h, err = New(Deps{
		Store:     st,
		Manifests: env.manifests,
		Processor: env.proc,
		LLM:       env.llm,
		Results:   results.NewRepository(env.results),
		Outlines:  outline.NewRegistry(),
		Config:    model.ServerConfig{MaxUploadBytes: 1 << 20},
		Now:       func() time.Time { return time.Date(2026, 3, 1, 12, 0, 0, 0, time.UTC) },
	})
	require.NoError(t, err)
	env.router = chi.NewRouter()
	env.h.Routes(env.router)
	env.cookie = env.login(t, "admin")
	return env
}

func (e *testEnv) login(t *testing.T, username string) *http.Cookie {
	t.Helper()
	rec := e.do(t, http.MethodPost, "/api/v1/auth/login", map[string]string{"username": username, "password": "secret-pass"}, nil)
	require.Equal(t, http.StatusNoContent, rec.Code, rec.Body.String())
	for _, c := range rec.Result().Cookies() {
		if c.Name == sessionCookieName {
			return c
		}
	}
	t.Fatal("no session cookie set")
	return nil
}

func (e *testEnv) do(t *testing.T, method, path string, body any, cookie *http.Cookie) *httptest.ResponseRecorder {
	t.Helper()
	var rd io.Reader
	if body != nil {
		data, err := json.Marshal(body)
		require.NoError(t, err)
		rd = bytes.NewReader(data)
	}
	req := httptest.NewRequest(method, path, rd)
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}
	if cookie != nil {
		req.AddCookie(cookie)
	}
	rec := httptest.NewRecorder()
	e.router.ServeHTTP(rec, req)
	return rec
}

// api performs an authenticated request as admin.
func (e *testEnv) api(t *testing.T, method, path string, body any) *httptest.ResponseRecorder {
	t.Helper()
	return e.do(t, method, path, body, e.cookie)
}

func decodeBody[T any](t *testing.T, rec *httptest.ResponseRecorder) T {
	t.Helper()
	var v T
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &v), rec.Body.String())
	return v
}

func (e *testEnv) createExam(t *testing.T, slug string) {
	t.Helper()
	require.NoError(t, e.manifests.Create(model.ManifestMetadata{Slug: slug, FileName: slug + ".pdf"}))
	require.NoError(t, e.store.CreateExam(model.ExamRecord{Slug: slug, FileName: slug + ".pdf"}))
}

func TestHealthAndAuth(t *testing.T) {
	env := newTestEnv(t)

	rec := env.do(t, http.MethodGet, "/health", nil, nil)
	assert.Equal(t, http.StatusOK, rec.Code)

	rec = env.do(t, http.MethodGet, "/api/v1/exams/years", nil, nil)
	assert.Equal(t, http.StatusUnauthorized, rec.Code)

	rec = env.do(t, http.MethodPost, "/api/v1/auth/login", map[string]string{"username": "admin", "password": "wrong"}, nil)
	assert.Equal(t, http.StatusUnauthorized, rec.Code)
	assert.Contains(t, rec.Body.String(), "Invalid username or password")

	rec = env.api(t, http.MethodGet, "/api/v1/auth/me", nil)
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, "admin", decodeBody[model.User](t, rec).Username)

	rec = env.api(t, http.MethodPost, "/api/v1/auth/logout", nil)
	assert.Equal(t, http.StatusNoContent, rec.Code)
	rec = env.api(t, http.MethodGet, "/api/v1/auth/me", nil)
	assert.Equal(t, http.StatusUnauthorized, rec.Code)
}

func TestAdminUsers(t *testing.T) {
	env := newTestEnv(t)

	editor := env.login(t, "editor")
	rec := env.do(t, http.MethodGet, "/api/v1/admin/users", nil, editor)
	assert.Equal(t, http.StatusForbidden, rec.Code)

	rec = env.api(t, http.MethodPost, "/api/v1/admin/users", map[string]string{"username": "carol", "password": "longenough"})
	require.Equal(t, http.StatusCreated, rec.Code, rec.Body.String())
	carol := decodeBody[model.User](t, rec)
	assert.Equal(t, model.UserRoleEditor, carol.Role)
	assert.NotContains(t, rec.Body.String(), "password")

	rec = env.api(t, http.MethodPost, "/api/v1/admin/users", map[string]string{"username": "carol", "password": "longenough"})
	assert.Equal(t, http.StatusConflict, rec.Code)

	rec = env.api(t, http.MethodPost, "/api/v1/admin/users", map[string]string{"username": "x", "password": "short"})
	assert.Equal(t, http.StatusBadRequest, rec.Code)

	rec = env.api(t, http.MethodPut, "/api/v1/admin/users/1/active", map[string]bool{"active": false})
	assert.Equal(t, http.StatusBadRequest, rec.Code, "admin cannot disable itself")

	rec = env.do(t, http.MethodPut, "/api/v1/admin/users/2/active", map[string]bool{"active": false}, env.cookie)
	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())
	rec = env.do(t, http.MethodGet, "/api/v1/auth/me", nil, editor)
	assert.Equal(t, http.StatusUnauthorized, rec.Code)
}

func TestExamYears(t *testing.T) {
	env := newTestEnv(t)
	rec := env.api(t, http.MethodGet, "/api/v1/exams/years", nil)
	require.Equal(t, http.StatusOK, rec.Code)
	years := decodeBody[map[string][]int](t, rec)["years"]
	require.Len(t, years, 27)
	assert.Equal(t, 2000, years[0])
	assert.Equal(t, 2026, years[len(years)-1])
}

func TestExamTypes(t *testing.T) {
	env := newTestEnv(t)
	rec := env.api(t, http.MethodGet, "/api/v1/exams/types", nil)
	assert.Equal(t, http.StatusInternalServerError, rec.Code)

	require.NoError(t, env.store.SetExamTypes(model.ExamTypeCatalog{Categories: []model.ExamCategory{
		{ID: "sci", Name: "Science", Exams: []model.ExamType{{ID: "ap_biology", Name: "AP Biology"}}},
	}}))
	rec = env.api(t, http.MethodGet, "/api/v1/exams/types", nil)
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Contains(t, rec.Body.String(), `"exam_id":"ap_biology"`)
}

func multipartUpload(t *testing.T, fields map[string]string, fileName string, content []byte) (*bytes.Buffer, string) {
	t.Helper()
	var buf bytes.Buffer
	mw := multipart.NewWriter(&buf)
	for k, v := range fields {
		require.NoError(t, mw.WriteField(k, v))
	}
	if fileName != "" {
		part, err := mw.CreateFormFile("file", fileName)
		require.NoError(t, err)
		_, err = part.Write(content)
		require.NoError(t, err)
	}
	require.NoError(t, mw.Close())
	return &buf, mw.FormDataContentType()
}

func (e *testEnv) upload(t *testing.T, fields map[string]string, fileName string, content []byte) *httptest.ResponseRecorder {
	t.Helper()
	body, ctype := multipartUpload(t, fields, fileName, content)
	req := httptest.NewRequest(http.MethodPost, "/api/v1/exams/upload", body)
	req.Header.Set("Content-Type", ctype)
	req.AddCookie(e.cookie)
	rec := httptest.NewRecorder()
	e.router.ServeHTTP(rec, req)
	return rec
}

func TestUploadFile(t *testing.T) {
	env := newTestEnv(t)
	pdf := []byte("%PDF-1.4\n% test document\n")

	rec := env.upload(t, map[string]string{"slug": "ap_bio_2024", "year": "2024"}, "exam.pdf", pdf)
	require.Equal(t, http.StatusAccepted, rec.Code, rec.Body.String())
	resp := decodeBody[uploadResponse](t, rec)
	assert.Equal(t, manifest.StatusStarting, resp.Metadata.ProcessingStatus)
	assert.Equal(t, "ap_bio_2024.pdf", resp.Metadata.FileName)
	assert.Equal(t, 2024, resp.Metadata.ExamYear)
	assert.NotEmpty(t, resp.SizeHuman)

	select {
	case job := <-env.proc.jobs:
		assert.Equal(t, "ap_bio_2024", job.Slug)
		data, err := os.ReadFile(job.PDFPath)
		require.NoError(t, err)
		assert.Equal(t, pdf, data)
	case <-time.After(2 * time.Second):
		t.Fatal("processor was not started")
	}
	require.NoError(t, env.h.Wait(context.Background()))

	exam, err := env.store.GetExam("ap_bio_2024")
	require.NoError(t, err)
	require.NotNil(t, exam)
	assert.Equal(t, "admin", exam.CreatedBy)

	rec = env.api(t, http.MethodGet, "/api/v1/exams/ap_bio_2024/manifest", nil)
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, "no-cache, no-store, must-revalidate", rec.Header().Get("Cache-Control"))
}

func TestUploadURL(t *testing.T) {
	env := newTestEnv(t)
	rec := env.upload(t, map[string]string{"slug": "chem", "pdf_url": "https://example.com/chem.pdf"}, "", nil)
	require.Equal(t, http.StatusAccepted, rec.Code, rec.Body.String())
	job := <-env.proc.jobs
	assert.Equal(t, "https://example.com/chem.pdf", job.SourceURL)
	assert.Empty(t, job.PDFPath)
}

func TestUploadValidation(t *testing.T) {
	env := newTestEnv(t)
	require.NoError(t, env.store.SetExamTypes(model.ExamTypeCatalog{Categories: []model.ExamCategory{
		{ID: "sci", Exams: []model.ExamType{{ID: "ap_biology"}}},
	}}))

	tests := []struct {
		name     string
		fields   map[string]string
		file     string
		wantText string
	}{
		{"bad slug", map[string]string{"slug": "../etc"}, "a.pdf", "slug"},
		{"no source", map[string]string{"slug": "bio"}, "", "No file or pdf_url provided"},
		{"not a pdf", map[string]string{"slug": "bio"}, "a.docx", "Only PDF files are allowed"},
		{"url not pdf", map[string]string{"slug": "bio", "pdf_url": "https://example.com/a.html"}, "", "URL does not point to a PDF file"},
		{"unknown type", map[string]string{"slug": "bio", "exam_type": "ap_physics"}, "a.pdf", "unknown exam type"},
		{"bad year", map[string]string{"slug": "bio", "year": "1999"}, "a.pdf", "invalid year"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			rec := env.upload(t, tt.fields, tt.file, []byte("%PDF-1.4"))
			assert.Equal(t, http.StatusBadRequest, rec.Code)
			assert.Contains(t, rec.Body.String(), tt.wantText)
		})
	}
	assert.Empty(t, env.proc.jobs)
}

type snapshotResponse struct {
	model.Snapshot
	Box  *model.BoundingBox `json:"box"`
	Move *struct {
		Rule string `json:"rule"`
	} `json:"move"`
}

func TestOutlineDrawAndMove(t *testing.T) {
	env := newTestEnv(t)
	env.createExam(t, "ap_bio")
	base := "/api/v1/exams/ap_bio/outline"

	rec := env.api(t, http.MethodGet, base, nil)
	require.Equal(t, http.StatusOK, rec.Code)
	snap := decodeBody[snapshotResponse](t, rec)
	require.Len(t, snap.Sections, 1)
	assert.Equal(t, "ap_bio", snap.Sections[0].ID)
	assert.Equal(t, "AP_BIO", snap.Sections[0].Name)

	rec = env.api(t, http.MethodPost, base+"/draw/click", map[string]any{"page": 1, "client_x": 10, "client_y": 10})
	assert.Equal(t, http.StatusBadRequest, rec.Code, "drawing is disabled")

	rec = env.api(t, http.MethodPost, base+"/draw/enabled", map[string]bool{"enabled": true})
	require.Equal(t, http.StatusOK, rec.Code)
	assert.True(t, decodeBody[snapshotResponse](t, rec).Drawing)

	rec = env.api(t, http.MethodPost, base+"/draw/click", map[string]any{"page": 1, "client_x": 110, "client_y": 70, "rect_left": 10, "rect_top": 20})
	require.Equal(t, http.StatusOK, rec.Code)
	rec = env.api(t, http.MethodPost, base+"/draw/click", map[string]any{"page": 1, "client_x": 310, "client_y": 170, "rect_left": 10, "rect_top": 20})
	require.Equal(t, http.StatusOK, rec.Code)
	snap = decodeBody[snapshotResponse](t, rec)
	require.NotNil(t, snap.Box)
	assert.Equal(t, model.BoundingBox{
		ID: snap.Box.ID, PageNumber: 1, X: 100, Y: 50, Width: 200, Height: 100,
		Kind: model.KindQuestion, QuestionNumber: 1, SectionID: "i",
	}, *snap.Box)
	require.Len(t, snap.Sections[0].Children, 1)
	assert.Equal(t, "I", snap.Sections[0].Children[0].Name)
	assert.Equal(t, snap.Box.ID, snap.ActiveBoxID)

	rec = env.api(t, http.MethodGet, base+"/pages/1/overlay.svg", nil)
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, "image/svg+xml", rec.Header().Get("Content-Type"))
	assert.Contains(t, rec.Body.String(), "Question 001")
	assert.Contains(t, rec.Body.String(), "rgba(211, 47, 47, 1)")

	rec = env.api(t, http.MethodPost, base+"/drag/end", map[string]string{"active_id": "ap_bio", "over_id": "i"})
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, "rejected", decodeBody[snapshotResponse](t, rec).Move.Rule)

	rec = env.api(t, http.MethodPost, base+"/drag/end", map[string]string{"active_id": snap.Box.ID, "over_id": "ap_bio"})
	require.Equal(t, http.StatusOK, rec.Code)
	moved := decodeBody[snapshotResponse](t, rec)
	assert.Equal(t, "reassign_to_root", moved.Move.Rule)
	assert.Equal(t, "ap_bio", moved.BoundingBoxes[0].SectionID)

	rec = env.api(t, http.MethodGet, base+"/view", nil)
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Contains(t, rec.Body.String(), "Exam Structure")
	assert.Contains(t, rec.Body.String(), `id="section-i"`)
}

func TestOutlineSectionsAndBoxes(t *testing.T) {
	env := newTestEnv(t)
	env.createExam(t, "bio")
	base := "/api/v1/exams/bio/outline"

	rec := env.api(t, http.MethodPost, base+"/sections", map[string]string{"name": "Part A"})
	require.Equal(t, http.StatusOK, rec.Code)
	snap := decodeBody[snapshotResponse](t, rec)
	assert.Equal(t, "part_a", snap.Sections[0].Children[0].ID)

	rec = env.api(t, http.MethodPost, base+"/sections/new", nil)
	require.Equal(t, http.StatusOK, rec.Code)
	snap = decodeBody[snapshotResponse](t, rec)
	require.NotEmpty(t, snap.EditingSectionID)
	tempID := snap.EditingSectionID

	rec = env.api(t, http.MethodPut, base+"/sections/"+tempID, map[string]string{"name": "Free Response"})
	require.Equal(t, http.StatusOK, rec.Code)
	snap = decodeBody[snapshotResponse](t, rec)
	assert.Empty(t, snap.EditingSectionID)
	assert.Equal(t, "free_response", snap.Sections[0].Children[1].ID)

	rec = env.api(t, http.MethodPost, base+"/sections/missing/toggle", nil)
	assert.Equal(t, http.StatusNotFound, rec.Code)

	env.api(t, http.MethodPost, base+"/draw/enabled", map[string]bool{"enabled": true})
	env.api(t, http.MethodPost, base+"/draw/click", map[string]any{"page": 2, "client_x": 0, "client_y": 0})
	rec = env.api(t, http.MethodPost, base+"/draw/click", map[string]any{"page": 2, "client_x": 50, "client_y": 50})
	box := decodeBody[snapshotResponse](t, rec).Box
	require.NotNil(t, box)
	assert.Equal(t, "part_a", box.SectionID)

	rec = env.api(t, http.MethodPut, base+"/boxes/"+box.ID+"/number", map[string]int{"number": 0})
	assert.Equal(t, http.StatusBadRequest, rec.Code)
	rec = env.api(t, http.MethodPost, base+"/boxes/"+box.ID+"/kind", map[string]string{"kind": "Figure"})
	assert.Equal(t, http.StatusBadRequest, rec.Code)

	rec = env.api(t, http.MethodPost, base+"/boxes/"+box.ID+"/kind", map[string]string{"kind": "Context"})
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Zero(t, decodeBody[snapshotResponse](t, rec).BoundingBoxes[0].QuestionNumber)

	rec = env.api(t, http.MethodPost, base+"/boxes/"+box.ID+"/assign", map[string]string{"section_id": "free_response"})
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, "free_response", decodeBody[snapshotResponse](t, rec).BoundingBoxes[0].SectionID)

	rec = env.api(t, http.MethodDelete, base+"/boxes/"+box.ID, nil)
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Empty(t, decodeBody[snapshotResponse](t, rec).BoundingBoxes)

	rec = env.api(t, http.MethodDelete, base+"/boxes/"+box.ID, nil)
	assert.Equal(t, http.StatusNotFound, rec.Code)
}

func TestOutlineUnknownExam(t *testing.T) {
	env := newTestEnv(t)
	rec := env.api(t, http.MethodGet, "/api/v1/exams/nope/outline", nil)
	assert.Equal(t, http.StatusNotFound, rec.Code)
}

func writePage(t *testing.T, path string) {
	t.Helper()
	img := image.NewRGBA(image.Rect(0, 0, 200, 200))
	draw.Draw(img, img.Bounds(), image.White, image.Point{}, draw.Src)
	draw.Draw(img, image.Rect(50, 60, 90, 80), image.Black, image.Point{}, draw.Src)
	f, err := os.Create(path)
	require.NoError(t, err)
	require.NoError(t, png.Encode(f, img))
	require.NoError(t, f.Close())
}

func TestExtractionFlow(t *testing.T) {
	env := newTestEnv(t)
	env.createExam(t, "bio")
	dir, err := env.manifests.ExamDir("bio")
	require.NoError(t, err)
	writePage(t, filepath.Join(dir, "images", "bio_page_001_full.png"))

	rec := env.api(t, http.MethodPost, "/api/v1/exams/extract-question-image", map[string]any{
		"exam_id":           "bio",
		"question_id":       "box_1",
		"bounding_box":      map[string]float64{"x": 40, "y": 40, "width": 100, "height": 100},
		"source_image_path": "images/bio_page_001_full.png",
		"full_width":        200,
		"full_height":       200,
	})
	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())
	imageURL := decodeBody[map[string]string](t, rec)["image_url"]
	assert.Equal(t, "/api/v1/exams/bio/extracted/box_1.png", imageURL)

	rec = env.api(t, http.MethodGet, imageURL, nil)
	require.Equal(t, http.StatusOK, rec.Code)
	img, err := png.Decode(rec.Body)
	require.NoError(t, err)
	assert.Equal(t, image.Rect(0, 0, 50, 30), img.Bounds())

	schema := map[string]any{"type": "object"}
	rec = env.api(t, http.MethodPost, "/api/v1/exams/extract-json-from-image", map[string]any{"image_url": imageURL, "json_schema": schema})
	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())
	assert.Contains(t, rec.Body.String(), "What is ATP?")

	env.llm.err = errors.New("model overloaded")
	rec = env.api(t, http.MethodPost, "/api/v1/exams/extract-json-from-image", map[string]any{"image_url": imageURL, "json_schema": schema})
	assert.Equal(t, http.StatusBadGateway, rec.Code)
	assert.Contains(t, rec.Body.String(), "model overloaded")

	rec = env.api(t, http.MethodGet, "/api/v1/exams/bio/extractions", nil)
	require.Equal(t, http.StatusOK, rec.Code)
	list := decodeBody[struct {
		Extractions []model.Extraction `json:"extractions"`
	}](t, rec).Extractions
	require.Len(t, list, 2)
	assert.Equal(t, "box_1", list[0].QuestionID)
	assert.Empty(t, list[0].Error)
	assert.Equal(t, "model overloaded", list[1].Error)
}

func TestExtractionRejectsBadInput(t *testing.T) {
	env := newTestEnv(t)
	env.createExam(t, "bio")

	rec := env.api(t, http.MethodPost, "/api/v1/exams/extract-question-image", map[string]any{
		"exam_id":           "bio",
		"question_id":       "../evil",
		"bounding_box":      map[string]float64{"x": 0, "y": 0, "width": 10, "height": 10},
		"source_image_path": "images/p.png",
	})
	assert.Equal(t, http.StatusBadRequest, rec.Code)

	rec = env.api(t, http.MethodPost, "/api/v1/exams/extract-json-from-image", map[string]any{
		"image_url":   "/somewhere/else.png",
		"json_schema": map[string]any{"type": "object"},
	})
	assert.Equal(t, http.StatusBadRequest, rec.Code)
}

func TestImageMissing(t *testing.T) {
	env := newTestEnv(t)
	env.createExam(t, "bio")
	rec := env.api(t, http.MethodGet, "/api/v1/exams/bio/images/missing.png", nil)
	assert.Equal(t, http.StatusNotFound, rec.Code)
}

func TestListImagesAndRawManifest(t *testing.T) {
	env := newTestEnv(t)
	env.createExam(t, "bio")
	dir, err := env.manifests.ExamDir("bio")
	require.NoError(t, err)
	for _, name := range []string{"page_002_full.png", "page_001_thumb.jpg", "page_001_full.png", "page_001_preview.jpg"} {
		require.NoError(t, os.WriteFile(filepath.Join(dir, "images", name), []byte("img"), 0o644))
	}

	rec := env.api(t, http.MethodGet, "/api/v1/exams/bio/images", nil)
	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())
	list := decodeBody[imagesResponse](t, rec)
	assert.Equal(t, "bio", list.Slug)
	assert.Equal(t, 2, list.TotalPages)
	require.Len(t, list.Images, 3)
	assert.Equal(t, "page_001_full.png", list.Images[0].Name)
	assert.Equal(t, manifest.ImageFull, list.Images[0].Type)
	assert.Equal(t, "/api/v1/exams/bio/images/page_001_full.png", list.Images[0].URL)
	assert.Equal(t, manifest.ImageThumb, list.Images[1].Type)

	rec = env.api(t, http.MethodGet, "/api/v1/exams/bio/manifest/raw", nil)
	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())
	raw := decodeBody[struct {
		Content string `json:"raw_content"`
		Size    int    `json:"file_size"`
	}](t, rec)
	assert.Contains(t, raw.Content, `"slug": "bio"`)
	assert.Equal(t, len(raw.Content), raw.Size)

	for _, path := range []string{"/api/v1/exams/chem/images", "/api/v1/exams/chem/manifest/raw"} {
		rec = env.api(t, http.MethodGet, path, nil)
		assert.Equal(t, http.StatusNotFound, rec.Code, path)
	}
	rec = env.do(t, http.MethodGet, "/api/v1/exams/bio/images", nil, nil)
	assert.Equal(t, http.StatusUnauthorized, rec.Code)
}

type resultsBody struct {
	Results []results.Entry    `json:"results"`
	Sort    results.SortConfig `json:"sort"`
}

func TestResultsEndpoints(t *testing.T) {
	env := newTestEnv(t)

	rec := env.api(t, http.MethodGet, "/api/v1/results", nil)
	assert.Equal(t, http.StatusNotFound, rec.Code)

	index := `{"metadata": {"generated_on": "2025-03-01", "author_name": "Ann"},
		"results": [
			{"exam": "bio", "model": "m1", "provider": "openai", "accuracy": 80, "date": "2025-01-01T00:00:00Z", "results": "bio.json"},
			{"exam": "chem", "model": "m2", "provider": "mistral", "accuracy": 95, "date": "2025-02-01T00:00:00Z", "is_best": true, "results": "chem.json"}
		]}`
	require.NoError(t, os.WriteFile(filepath.Join(env.results, "index.json"), []byte(index), 0o644))
	require.NoError(t, os.WriteFile(filepath.Join(env.results, "bio.json"),
		[]byte(`{"questions": [{"id": "q1", "prompt": "<b>cells</b>"}]}`), 0o644))

	rec = env.api(t, http.MethodGet, "/api/v1/results", nil)
	require.Equal(t, http.StatusOK, rec.Code)
	body := decodeBody[resultsBody](t, rec)
	assert.Equal(t, results.DefaultSort, body.Sort)
	assert.Equal(t, "chem", body.Results[0].Exam)

	rec = env.api(t, http.MethodGet, "/api/v1/results?sort=accuracy&dir=asc", nil)
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, "bio", decodeBody[resultsBody](t, rec).Results[0].Exam)

	rec = env.api(t, http.MethodGet, "/api/v1/results?sort=colour", nil)
	assert.Equal(t, http.StatusBadRequest, rec.Code)

	rec = env.api(t, http.MethodGet, "/api/v1/results?format=html", nil)
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Contains(t, rec.Body.String(), "Mistral")
	assert.Contains(t, rec.Body.String(), "95.0%")

	rec = env.api(t, http.MethodGet, "/api/v1/results/bio.json", nil)
	require.Equal(t, http.StatusOK, rec.Code)
	assert.JSONEq(t, `{"questions": [{"id": "q1", "prompt": "<b>cells</b>"}]}`, rec.Body.String())

	rec = env.api(t, http.MethodGet, "/api/v1/results/bio.json/view", nil)
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Contains(t, rec.Body.String(), "&lt;b&gt;cells&lt;/b&gt;")
	assert.NotContains(t, rec.Body.String(), "<b>cells</b>")

	rec = env.api(t, http.MethodGet, "/api/v1/results/bio.json/questions/q1", nil)
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Contains(t, rec.Body.String(), `"question_id":"q1"`)

	rec = env.api(t, http.MethodGet, "/api/v1/results/bio.json/questions/q2", nil)
	assert.Equal(t, http.StatusNotFound, rec.Code)

	for path, want := range map[string]int{
		"/api/v1/results/missing.json":     http.StatusNotFound,
		"/api/v1/results/notes.txt":        http.StatusBadRequest,
		"/api/v1/results/..%2Fsecret.json": http.StatusBadRequest,
	} {
		rec = env.api(t, http.MethodGet, path, nil)
		assert.Equal(t, want, rec.Code, path)
	}
}

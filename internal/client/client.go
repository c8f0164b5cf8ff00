// Package client talks to a running exambuilder server.
package client

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"mime/multipart"
	"net/http"
	"net/url"
	"os"
	"path/filepath"
	"strconv"
	"strings"
	"time"

	"github.com/pavelanni/exambuilder/internal/model"
)

// ErrNotFound is returned for 404 responses.
var ErrNotFound = errors.New("not found")

// Client is an HTTP client for the /api/v1 endpoints.
type Client struct {
	baseURL string
	http    *http.Client
	session string
}

// New creates a client for the server at baseURL.
func New(baseURL string) *Client {
	return &Client{
		baseURL: strings.TrimRight(baseURL, "/"),
		http:    &http.Client{Timeout: 5 * time.Minute},
	}
}

// Login authenticates and keeps the session cookie for later calls.
func (c *Client) Login(ctx context.Context, username, password string) error {
	body, err := json.Marshal(map[string]string{"username": username, "password": password})
	if err != nil {
		return err
	}
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.baseURL+"/api/v1/auth/login", bytes.NewReader(body))
	if err != nil {
		return err
	}
	req.Header.Set("Content-Type", "application/json")
	resp, err := c.http.Do(req)
	if err != nil {
		return fmt.Errorf("login: %w", err)
	}
	defer resp.Body.Close()
	if err := checkStatus(resp); err != nil {
		return fmt.Errorf("login: %w", err)
	}
	for _, ck := range resp.Cookies() {
		if ck.Name == "session" {
			c.session = ck.Value
		}
	}
	if c.session == "" {
		return errors.New("login: no session cookie in response")
	}
	return nil
}

// FetchManifest returns the current manifest of an exam.
func (c *Client) FetchManifest(ctx context.Context, slug string) (*model.Manifest, error) {
	var m model.Manifest
	if err := c.getJSON(ctx, "/api/v1/exams/"+url.PathEscape(slug)+"/manifest", &m); err != nil {
		return nil, fmt.Errorf("fetch manifest: %w", err)
	}
	return &m, nil
}

// UploadRequest describes an exam to upload. Set either File or URL.
type UploadRequest struct {
	Slug     string
	ExamType string
	Year     int
	File     string
	URL      string
}

// UploadResponse is the server's reply to an upload.
type UploadResponse struct {
	Message   string                 `json:"message"`
	Metadata  model.ManifestMetadata `json:"metadata"`
	SizeHuman string                 `json:"size_human,omitempty"`
}

// Upload sends a PDF (or a PDF URL) for processing.
func (c *Client) Upload(ctx context.Context, up UploadRequest) (*UploadResponse, error) {
	var buf bytes.Buffer
	mw := multipart.NewWriter(&buf)
	fields := map[string]string{"slug": up.Slug, "exam_type": up.ExamType, "pdf_url": up.URL}
	if up.Year > 0 {
		fields["year"] = strconv.Itoa(up.Year)
	}
	for k, v := range fields {
		if v == "" {
			continue
		}
		if err := mw.WriteField(k, v); err != nil {
			return nil, err
		}
	}
	if up.File != "" {
		f, err := os.Open(up.File)
		if err != nil {
			return nil, fmt.Errorf("open pdf: %w", err)
		}
		defer f.Close()
		part, err := mw.CreateFormFile("file", filepath.Base(up.File))
		if err != nil {
			return nil, err
		}
		if _, err := io.Copy(part, f); err != nil {
			return nil, fmt.Errorf("read pdf: %w", err)
		}
	}
	if err := mw.Close(); err != nil {
		return nil, err
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.baseURL+"/api/v1/exams/upload", &buf)
	if err != nil {
		return nil, err
	}
	req.Header.Set("Content-Type", mw.FormDataContentType())
	var out UploadResponse
	if err := c.do(req, &out); err != nil {
		return nil, fmt.Errorf("upload: %w", err)
	}
	return &out, nil
}

func (c *Client) getJSON(ctx context.Context, path string, v any) error {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, c.baseURL+path, nil)
	if err != nil {
		return err
	}
	return c.do(req, v)
}

func (c *Client) do(req *http.Request, v any) error {
	if c.session != "" {
		req.AddCookie(&http.Cookie{Name: "session", Value: c.session})
	}
	resp, err := c.http.Do(req)
	if err != nil {
		return err
	}
	defer resp.Body.Close()
	if err := checkStatus(resp); err != nil {
		return err
	}
	if err := json.NewDecoder(resp.Body).Decode(v); err != nil {
		return fmt.Errorf("decode response: %w", err)
	}
	return nil
}

func checkStatus(resp *http.Response) error {
	if resp.StatusCode < 300 {
		return nil
	}
	var body struct {
		Error string `json:"error"`
	}
	_ = json.NewDecoder(io.LimitReader(resp.Body, 64<<10)).Decode(&body)
	if resp.StatusCode == http.StatusNotFound {
		return fmt.Errorf("%w: %s", ErrNotFound, body.Error)
	}
	if body.Error != "" {
		return fmt.Errorf("%s: %s", resp.Status, body.Error)
	}
	return errors.New(resp.Status)
}

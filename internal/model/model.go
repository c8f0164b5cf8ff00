package model

import (
	"context"
	"time"
)

// UserRole represents an operator's access level.
type UserRole string

const (
	// UserRoleEditor can structure exams and run extractions.
	UserRoleEditor UserRole = "editor"
	// UserRoleAdmin can additionally manage operators.
	UserRoleAdmin UserRole = "admin"
)

// User represents an operator of the builder.
type User struct {
	ID           int64     `json:"id"`
	Username     string    `json:"username"`
	DisplayName  string    `json:"display_name"`
	PasswordHash string    `json:"-"`
	Role         UserRole  `json:"role"`
	Active       bool      `json:"active"`
	CreatedAt    time.Time `json:"created_at"`
}

// AuthSession represents an authentication session.
type AuthSession struct {
	ID        string
	UserID    int64
	CreatedAt time.Time
	ExpiresAt time.Time
}

type userCtxKey struct{}

// ContextWithUser stores a user in the request context.
func ContextWithUser(ctx context.Context, u *User) context.Context {
	return context.WithValue(ctx, userCtxKey{}, u)
}

// UserFromContext retrieves the authenticated user from context, or nil.
func UserFromContext(ctx context.Context) *User {
	u, _ := ctx.Value(userCtxKey{}).(*User)
	return u
}

type basePathCtxKey struct{}

// ContextWithBasePath stores the base path prefix in context.
func ContextWithBasePath(ctx context.Context, basePath string) context.Context {
	return context.WithValue(ctx, basePathCtxKey{}, basePath)
}

// BasePathFromContext retrieves the base path from context (empty string if not set).
func BasePathFromContext(ctx context.Context) string {
	bp, _ := ctx.Value(basePathCtxKey{}).(string)
	return bp
}

// BoxKind tells whether a bounding box is a question or supporting context.
type BoxKind string

const (
	KindQuestion BoxKind = "Question"
	KindContext  BoxKind = "Context"
)

// Valid reports whether k is one of the known kinds.
func (k BoxKind) Valid() bool {
	return k == KindQuestion || k == KindContext
}

// BoundingBox is a rectangle drawn on one page image.
// QuestionNumber is zero when unset; context boxes never carry one.
type BoundingBox struct {
	ID             string  `json:"id"`
	PageNumber     int     `json:"pageNumber"`
	X              float64 `json:"x"`
	Y              float64 `json:"y"`
	Width          float64 `json:"width"`
	Height         float64 `json:"height"`
	Kind           BoxKind `json:"type"`
	QuestionNumber int     `json:"questionNumber,omitempty"`
	SectionID      string  `json:"sectionId,omitempty"`
}

// Section is a node in the exam outline. Nodes are never mutated once
// shared; edits rebuild the path from the changed node up to the root.
type Section struct {
	ID       string     `json:"id"`
	Name     string     `json:"name"`
	Children []*Section `json:"children"`
	Expanded bool       `json:"expanded"`
}

// Snapshot is the serialized outline state of one exam.
type Snapshot struct {
	Sections         []*Section    `json:"sections"`
	BoundingBoxes    []BoundingBox `json:"boundingBoxes"`
	ActiveBoxID      string        `json:"activeBoxId,omitempty"`
	EditingSectionID string        `json:"editingSectionId,omitempty"`
	Drawing          bool          `json:"drawing"`
}

// ServerConfig holds runtime parameters set via CLI flags.
type ServerConfig struct {
	DataDir        string // processing root, one directory per exam slug
	ResultsDir     string // evaluation results with index.json
	BasePath       string // URL prefix for sub-path deployments (e.g. "/builder")
	SecureCookies  bool   // Set Secure flag on cookies (disable for local dev)
	MaxUploadBytes int64
	PageDelay      time.Duration // pause between rasterized pages
}

// ExamRecord registers an uploaded exam.
type ExamRecord struct {
	Slug      string    `json:"slug"`
	ExamType  string    `json:"exam_type"`
	Year      int       `json:"year"`
	FileName  string    `json:"file_name"`
	SourceURL string    `json:"source_url,omitempty"`
	CreatedBy string    `json:"created_by,omitempty"`
	CreatedAt time.Time `json:"created_at"`
}

// Extraction records one image-to-JSON extraction attempt.
type Extraction struct {
	ID         int64     `json:"id"`
	Slug       string    `json:"slug"`
	QuestionID string    `json:"question_id"`
	ImageURL   string    `json:"image_url"`
	Schema     string    `json:"json_schema"`
	Result     string    `json:"result_json,omitempty"`
	ModelUsed  string    `json:"model_used"`
	Error      string    `json:"error,omitempty"`
	CreatedAt  time.Time `json:"created_at"`
}

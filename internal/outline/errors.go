package outline

import "errors"

var (
	ErrSectionNotFound       = errors.New("section not found")
	ErrBoxNotFound           = errors.New("bounding box not found")
	ErrInvalidKind           = errors.New("invalid box kind")
	ErrInvalidQuestionNumber = errors.New("question number must be between 1 and 999")
	ErrContextNumber         = errors.New("context boxes do not carry a question number")
	ErrDrawingDisabled       = errors.New("drawing is disabled")
	ErrInvalidPage           = errors.New("page number must be positive")
)

package model

import "time"

// ExtractionExport is the top-level JSON structure for the extraction log export.
type ExtractionExport struct {
	GeneratedAt time.Time    `json:"generated_at"`
	Slug        string       `json:"slug,omitempty"`
	Exams       []ExamExport `json:"exams"`
	Total       int          `json:"total"`
	Failed      int          `json:"failed"`
}

// ExamExport groups one exam's extractions.
type ExamExport struct {
	Exam        ExamRecord   `json:"exam"`
	Extractions []Extraction `json:"extractions"`
}

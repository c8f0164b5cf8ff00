package model

// Manifest is the on-disk processing manifest of one exam.
type Manifest struct {
	Metadata ManifestMetadata `json:"metadata"`
	Pages    []Page           `json:"pages"`
}

// ManifestMetadata describes the uploaded PDF and the processing progress.
type ManifestMetadata struct {
	Slug                    string `json:"slug"`
	ExamID                  string `json:"exam_id"`
	ExamYear                int    `json:"exam_year,omitempty"`
	FileName                string `json:"file_name"`
	FileOriginalURL         string `json:"file_original_url,omitempty"`
	FileSizeBytes           int64  `json:"file_size_bytes"`
	FileTotalPages          int    `json:"file_total_pages"`
	FileSHA256              string `json:"file_sha256,omitempty"`
	ProcessingStarted       string `json:"processing_started"`
	ProcessingCompleted     bool   `json:"processing_completed"`
	ProcessingPagesComplete int    `json:"processing_pages_complete"`
	ProcessingStatus        string `json:"processing_status"`
	Error                   string `json:"error,omitempty"`
	ExamProcessingDir       string `json:"exam_processing_dir"`
}

// Page holds the image file names of one rasterized page.
type Page struct {
	PageNumber int    `json:"page_number"`
	Full       string `json:"full"`
	Preview    string `json:"preview"`
	Thumb      string `json:"thumb"`
}

// ExamTypeCatalog is the exam-type list offered on upload.
type ExamTypeCatalog struct {
	Categories []ExamCategory `json:"categories"`
}

// ExamCategory groups related exam types.
type ExamCategory struct {
	ID    string     `json:"category_id"`
	Name  string     `json:"category_name"`
	Icon  string     `json:"category_icon,omitempty"`
	Exams []ExamType `json:"exams"`
}

// ExamType is a single selectable exam type.
type ExamType struct {
	ID          string `json:"exam_id"`
	Name        string `json:"exam_name"`
	Description string `json:"description,omitempty"`
}

package store

import (
	"fmt"
	"time"

	"github.com/pavelanni/exambuilder/internal/model"
)

// ExportExtractions builds the extraction log. An empty slug exports every
// exam.
func (s *Store) ExportExtractions(slug string) (*model.ExtractionExport, error) {
	var exams []model.ExamRecord
	if slug == "" {
		var err error
		if exams, err = s.ListExams(); err != nil {
			return nil, fmt.Errorf("list exams: %w", err)
		}
	} else {
		exam, err := s.GetExam(slug)
		if err != nil {
			return nil, fmt.Errorf("get exam %s: %w", slug, err)
		}
		if exam == nil {
			return nil, fmt.Errorf("exam %q not found", slug)
		}
		exams = []model.ExamRecord{*exam}
	}

	out := &model.ExtractionExport{
		GeneratedAt: time.Now().UTC(),
		Slug:        slug,
		Exams:       []model.ExamExport{},
	}
	for _, exam := range exams {
		extractions, err := s.ListExtractions(exam.Slug)
		if err != nil {
			return nil, fmt.Errorf("list extractions for %s: %w", exam.Slug, err)
		}
		if extractions == nil {
			extractions = []model.Extraction{}
		}
		for _, e := range extractions {
			out.Total++
			if e.Error != "" {
				out.Failed++
			}
		}
		out.Exams = append(out.Exams, model.ExamExport{Exam: exam, Extractions: extractions})
	}
	return out, nil
}

package outline

import (
	"fmt"
	"slices"

	"github.com/pavelanni/exambuilder/internal/model"
)

const (
	minQuestionNumber = 1
	maxQuestionNumber = 999
)

// SetKind changes a box between Question and Context. A box turning into
// Context loses its number and its section is renumbered; a box turning
// into Question is appended at the end of its section.
func (o *Outline) SetKind(id string, kind model.BoxKind) error {
	if !kind.Valid() {
		return fmt.Errorf("set kind %q: %w", kind, ErrInvalidKind)
	}
	i := o.boxIndex(id)
	if i < 0 {
		return fmt.Errorf("set kind of %q: %w", id, ErrBoxNotFound)
	}
	b := &o.boxes[i]
	if b.Kind == kind {
		return nil
	}
	switch kind {
	case model.KindContext:
		b.Kind = kind
		b.QuestionNumber = 0
		if b.SectionID != "" {
			o.RenumberSection(b.SectionID)
		}
	case model.KindQuestion:
		next := 0
		if b.SectionID != "" {
			next = o.NextQuestionNumber(b.SectionID)
		}
		b.Kind = kind
		b.QuestionNumber = next
	}
	return nil
}

// DeleteBox removes a box and closes the numbering gap it leaves behind.
func (o *Outline) DeleteBox(id string) error {
	i := o.boxIndex(id)
	if i < 0 {
		return fmt.Errorf("delete box %q: %w", id, ErrBoxNotFound)
	}
	section := o.boxes[i].SectionID
	o.boxes = slices.Delete(o.boxes, i, i+1)
	if o.active == id {
		o.active = ""
	}
	if section != "" {
		o.RenumberSection(section)
	}
	return nil
}

// SetActive selects a box. An empty id clears the selection.
func (o *Outline) SetActive(id string) error {
	if id != "" && o.boxIndex(id) < 0 {
		return fmt.Errorf("select box %q: %w", id, ErrBoxNotFound)
	}
	o.active = id
	return nil
}

// SetQuestionNumber overrides a question's number. The override holds
// until the next renumbering of its section.
func (o *Outline) SetQuestionNumber(id string, n int) error {
	if n < minQuestionNumber || n > maxQuestionNumber {
		return ErrInvalidQuestionNumber
	}
	i := o.boxIndex(id)
	if i < 0 {
		return fmt.Errorf("number box %q: %w", id, ErrBoxNotFound)
	}
	if o.boxes[i].Kind != model.KindQuestion {
		return ErrContextNumber
	}
	o.boxes[i].QuestionNumber = n
	return nil
}

// BoxesInSection returns the boxes assigned directly to a section.
func (o *Outline) BoxesInSection(sectionID string) []model.BoundingBox {
	var out []model.BoundingBox
	for _, b := range o.boxes {
		if b.SectionID == sectionID {
			out = append(out, b)
		}
	}
	return out
}

// NextQuestionNumber is one more than the highest question number in the
// section, or 1 for a section without questions.
func (o *Outline) NextQuestionNumber(sectionID string) int {
	highest := 0
	for _, b := range o.boxes {
		if b.SectionID == sectionID && b.Kind == model.KindQuestion {
			highest = max(highest, b.QuestionNumber)
		}
	}
	return highest + 1
}

// questionOrder returns store indexes of the section's questions sorted by
// their current number. Ties keep store order.
func (o *Outline) questionOrder(sectionID string) []int {
	var idx []int
	for i, b := range o.boxes {
		if b.SectionID == sectionID && b.Kind == model.KindQuestion {
			idx = append(idx, i)
		}
	}
	slices.SortStableFunc(idx, func(a, b int) int {
		return o.boxes[a].QuestionNumber - o.boxes[b].QuestionNumber
	})
	return idx
}

// RenumberSection reassigns 1..N to the section's questions in their
// current order. Running it twice changes nothing.
func (o *Outline) RenumberSection(sectionID string) {
	for n, i := range o.questionOrder(sectionID) {
		o.boxes[i].QuestionNumber = n + 1
	}
}

// AssignToSection moves a box into a section. Questions are appended at
// the end of the target; the section they left is renumbered. Assigning a
// box to the section it already belongs to changes nothing.
func (o *Outline) AssignToSection(boxID, sectionID string) error {
	i := o.boxIndex(boxID)
	if i < 0 {
		return fmt.Errorf("assign box %q: %w", boxID, ErrBoxNotFound)
	}
	if !contains(o.root, sectionID) {
		return fmt.Errorf("assign box to %q: %w", sectionID, ErrSectionNotFound)
	}
	old := o.boxes[i].SectionID
	if old == sectionID {
		return nil
	}
	number := 0
	if o.boxes[i].Kind == model.KindQuestion {
		number = o.NextQuestionNumber(sectionID)
	}
	o.boxes[i].SectionID = sectionID
	o.boxes[i].QuestionNumber = number
	if old != "" {
		o.RenumberSection(old)
	}
	return nil
}

package outline

import (
	"fmt"
	"strconv"
	"strings"

	"github.com/pavelanni/exambuilder/internal/model"
)

const (
	defaultSectionName = "Section"
	newSectionName     = "NEW_SECTION"
)

// uniqueID returns base, or base with a numeric suffix when another
// section already uses it. The section named except is ignored.
func (o *Outline) uniqueID(base, except string) string {
	if base == "" {
		base = Slugify(defaultSectionName)
	}
	taken := func(id string) bool {
		return id != except && contains(o.root, id)
	}
	if !taken(base) {
		return base
	}
	for n := 2; ; n++ {
		id := fmt.Sprintf("%s_%d", base, n)
		if !taken(id) {
			return id
		}
	}
}

// CreateSection adds a section under parentID, or under the root when
// parentID is empty. A blank name becomes "Section".
func (o *Outline) CreateSection(name, parentID string) (*model.Section, error) {
	name = strings.TrimSpace(name)
	if name == "" {
		name = defaultSectionName
	}
	if parentID == "" {
		parentID = o.root.ID
	}
	if !contains(o.root, parentID) {
		return nil, fmt.Errorf("create section under %q: %w", parentID, ErrSectionNotFound)
	}
	id := o.uniqueID(Slugify(name), "")
	s := newSection(id, DisplayName(id))
	o.root, _ = appendChild(o.root, parentID, s)
	return s, nil
}

// AddSectionAndEdit appends a placeholder section and points the editing
// pointer at it so the caller can rename it right away.
func (o *Outline) AddSectionAndEdit(parentID string) (*model.Section, error) {
	if parentID == "" {
		parentID = o.root.ID
	}
	if !contains(o.root, parentID) {
		return nil, fmt.Errorf("add section under %q: %w", parentID, ErrSectionNotFound)
	}
	id := o.uniqueID("temp_"+strconv.FormatInt(o.now().UnixMilli(), 10), "")
	s := newSection(id, newSectionName)
	o.root, _ = appendChild(o.root, parentID, s)
	o.editing = id
	return s, nil
}

// StartEditing marks a section as being renamed.
func (o *Outline) StartEditing(id string) error {
	if !contains(o.root, id) {
		return fmt.Errorf("edit section %q: %w", id, ErrSectionNotFound)
	}
	o.editing = id
	return nil
}

// CancelEditing clears the editing pointer.
func (o *Outline) CancelEditing() {
	o.editing = ""
}

// RenameSection re-derives the section id from newName and updates the
// display name in place. Boxes that referenced the old id follow it. The
// root keeps its id; only its display name changes. A blank name leaves
// the section untouched.
func (o *Outline) RenameSection(id, newName string) (*model.Section, error) {
	s := findSection(o.root, id)
	if s == nil {
		return nil, fmt.Errorf("rename section %q: %w", id, ErrSectionNotFound)
	}
	if o.editing == id {
		o.editing = ""
	}
	newName = strings.TrimSpace(newName)
	if newName == "" {
		return s, nil
	}

	newID := id
	if id != o.root.ID {
		newID = o.uniqueID(Slugify(newName), id)
	}
	name := DisplayName(newID)
	if id == o.root.ID {
		if slug := Slugify(newName); slug != "" {
			name = DisplayName(slug)
		}
	}

	var renamed *model.Section
	o.root, _ = rebuild(o.root, id, func(n *model.Section) *model.Section {
		cp := *n
		cp.ID = newID
		cp.Name = name
		renamed = &cp
		return &cp
	})
	if newID != id {
		for i := range o.boxes {
			if o.boxes[i].SectionID == id {
				o.boxes[i].SectionID = newID
			}
		}
	}
	return renamed, nil
}

// ToggleExpanded flips the expand flag of a section at any depth.
func (o *Outline) ToggleExpanded(id string) error {
	var ok bool
	o.root, ok = rebuild(o.root, id, func(n *model.Section) *model.Section {
		cp := *n
		cp.Expanded = !n.Expanded
		return &cp
	})
	if !ok {
		return fmt.Errorf("toggle section %q: %w", id, ErrSectionNotFound)
	}
	return nil
}

// ItemCount is the number of boxes assigned to the section plus the
// number of its direct child sections.
func (o *Outline) ItemCount(id string) int {
	s := findSection(o.root, id)
	if s == nil {
		return 0
	}
	n := len(s.Children)
	for _, b := range o.boxes {
		if b.SectionID == id {
			n++
		}
	}
	return n
}

// SectionPath returns the ids from the root down to id, inclusive.
func (o *Outline) SectionPath(id string) []string {
	var path []string
	var search func(s *model.Section) bool
	search = func(s *model.Section) bool {
		path = append(path, s.ID)
		if s.ID == id {
			return true
		}
		for _, c := range s.Children {
			if search(c) {
				return true
			}
		}
		path = path[:len(path)-1]
		return false
	}
	if !search(o.root) {
		return nil
	}
	return path
}

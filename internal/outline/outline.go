// Package outline holds the exam structuring engine: a section tree kept
// in sync with a flat store of bounding boxes drawn on page images.
//
// An Outline is not safe for concurrent use. Callers serialize access, see
// Registry.
package outline

import (
	"log/slog"
	"slices"
	"time"

	"github.com/google/uuid"

	"github.com/pavelanni/exambuilder/internal/model"
)

// Outline is the structuring state of one exam.
type Outline struct {
	root    *model.Section
	boxes   []model.BoundingBox
	active  string
	editing string
	draw    drawSession
	drag    dragSession

	newBoxID func() string
	now      func() time.Time
	log      *slog.Logger
}

// Option configures an Outline.
type Option func(*Outline)

// WithLogger sets the logger used for diagnostics.
func WithLogger(l *slog.Logger) Option {
	return func(o *Outline) { o.log = l }
}

// WithBoxIDs overrides the bounding box id generator.
func WithBoxIDs(next func() string) Option {
	return func(o *Outline) { o.newBoxID = next }
}

// WithClock overrides the clock used for temporary section ids.
func WithClock(now func() time.Time) Option {
	return func(o *Outline) { o.now = now }
}

// New creates an outline whose root section is derived from the exam slug.
func New(examSlug string, opts ...Option) *Outline {
	id := Slugify(examSlug)
	if id == "" {
		id = "exam"
	}
	o := &Outline{
		root:     newSection(id, DisplayName(id)),
		newBoxID: func() string { return "box_" + uuid.NewString() },
		now:      time.Now,
		log:      slog.Default(),
	}
	for _, opt := range opts {
		opt(o)
	}
	return o
}

// Root returns the root section. The returned tree must not be modified.
func (o *Outline) Root() *model.Section {
	return o.root
}

// Section finds a section anywhere in the tree.
func (o *Outline) Section(id string) (*model.Section, bool) {
	s := findSection(o.root, id)
	return s, s != nil
}

// Boxes returns a copy of the bounding box store in insertion order.
func (o *Outline) Boxes() []model.BoundingBox {
	return slices.Clone(o.boxes)
}

// Box returns the bounding box with the given id.
func (o *Outline) Box(id string) (model.BoundingBox, bool) {
	i := o.boxIndex(id)
	if i < 0 {
		return model.BoundingBox{}, false
	}
	return o.boxes[i], true
}

// ActiveBoxID returns the selected box id, or "" when nothing is selected.
func (o *Outline) ActiveBoxID() string {
	return o.active
}

// EditingSectionID returns the id of the section being renamed, if any.
func (o *Outline) EditingSectionID() string {
	return o.editing
}

// Snapshot returns the serializable state: the tree and the flat box list.
func (o *Outline) Snapshot() model.Snapshot {
	return model.Snapshot{
		Sections:         []*model.Section{o.root},
		BoundingBoxes:    o.Boxes(),
		ActiveBoxID:      o.active,
		EditingSectionID: o.editing,
		Drawing:          o.draw.enabled,
	}
}

func (o *Outline) boxIndex(id string) int {
	return slices.IndexFunc(o.boxes, func(b model.BoundingBox) bool { return b.ID == id })
}

package outline

import (
	"fmt"
	"math"

	"github.com/pavelanni/exambuilder/internal/model"
)

// autoSectionName is the section created when the first box is drawn on an
// outline with no sections below the root.
const autoSectionName = "I"

// Point is a position in image-local coordinates.
type Point struct {
	X float64 `json:"x"`
	Y float64 `json:"y"`
}

// Pointer is a raw pointer event: a client position plus the origin of the
// page image's bounding rectangle.
type Pointer struct {
	ClientX  float64 `json:"client_x"`
	ClientY  float64 `json:"client_y"`
	RectLeft float64 `json:"rect_left"`
	RectTop  float64 `json:"rect_top"`
}

// Local converts the event to image-local coordinates.
func (p Pointer) Local() Point {
	return Point{X: p.ClientX - p.RectLeft, Y: p.ClientY - p.RectTop}
}

// DrawPhase is the state of the two-click drawing machine.
type DrawPhase int

const (
	DrawIdle DrawPhase = iota
	DrawAnchored
)

func (p DrawPhase) String() string {
	if p == DrawAnchored {
		return "anchored"
	}
	return "idle"
}

type drawSession struct {
	enabled     bool
	anchored    bool
	anchor      Point
	provisional model.BoundingBox
}

// SetDrawingEnabled turns drawing on or off. Turning it off discards any
// rectangle in progress.
func (o *Outline) SetDrawingEnabled(enabled bool) {
	o.draw = drawSession{enabled: enabled}
}

// DrawingEnabled reports whether clicks create boxes.
func (o *Outline) DrawingEnabled() bool {
	return o.draw.enabled
}

// DrawPhase returns the current drawing state.
func (o *Outline) DrawPhase() DrawPhase {
	if o.draw.anchored {
		return DrawAnchored
	}
	return DrawIdle
}

// Provisional returns the rectangle being drawn, if any.
func (o *Outline) Provisional() (model.BoundingBox, bool) {
	return o.draw.provisional, o.draw.anchored
}

// Click feeds a click on the given page into the drawing machine. The
// first click anchors a zero-size rectangle; the second commits it and
// returns the new box.
func (o *Outline) Click(page int, p Point) (*model.BoundingBox, error) {
	if !o.draw.enabled {
		return nil, ErrDrawingDisabled
	}
	if !o.draw.anchored {
		if page < 1 {
			return nil, fmt.Errorf("anchor on page %d: %w", page, ErrInvalidPage)
		}
		o.draw.anchored = true
		o.draw.anchor = p
		o.draw.provisional = model.BoundingBox{
			PageNumber: page,
			X:          p.X,
			Y:          p.Y,
			Kind:       model.KindQuestion,
		}
		return nil, nil
	}

	o.PointerMove(p)
	box := o.draw.provisional
	box.ID = o.newBoxID()
	o.draw = drawSession{enabled: true}
	o.commit(&box)
	return &box, nil
}

// PointerMove stretches the rectangle in progress to span the anchor and p.
func (o *Outline) PointerMove(p Point) {
	if !o.draw.anchored {
		return
	}
	a := o.draw.anchor
	o.draw.provisional.X = math.Min(a.X, p.X)
	o.draw.provisional.Y = math.Min(a.Y, p.Y)
	o.draw.provisional.Width = math.Abs(p.X - a.X)
	o.draw.provisional.Height = math.Abs(p.Y - a.Y)
}

// commit stores a freshly drawn box, assigns it a section and selects it.
func (o *Outline) commit(box *model.BoundingBox) {
	section := o.autoSection()
	box.SectionID = section
	box.QuestionNumber = o.NextQuestionNumber(section)
	o.boxes = append(o.boxes, *box)
	o.active = box.ID
}

// autoSection picks the section for a new box: the selected box's
// section, else the first section under the root, else a new section "I".
func (o *Outline) autoSection() string {
	if i := o.boxIndex(o.active); i >= 0 {
		if id := o.boxes[i].SectionID; id != "" && contains(o.root, id) {
			return id
		}
	}
	if len(o.root.Children) > 0 {
		return o.root.Children[0].ID
	}
	s, _ := o.CreateSection(autoSectionName, o.root.ID)
	return s.ID
}

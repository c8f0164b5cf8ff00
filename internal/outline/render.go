package outline

import (
	"fmt"
	"strconv"

	"github.com/pavelanni/exambuilder/internal/model"
)

// RGBA is a stroke colour with fractional alpha.
type RGBA struct {
	R, G, B uint8
	A       float64
}

// CSS formats the colour as a CSS rgba() value.
func (c RGBA) CSS() string {
	return fmt.Sprintf("rgba(%d, %d, %d, %s)", c.R, c.G, c.B, strconv.FormatFloat(c.A, 'f', -1, 64))
}

const (
	activeAlpha   = 1.0
	inactiveAlpha = 0.5
	lineWidth     = 3
)

var (
	questionColor = RGBA{R: 211, G: 47, B: 47}
	contextColor  = RGBA{R: 25, G: 118, B: 210}
)

// Shape is one rectangle to draw over a page image.
type Shape struct {
	BoxID          string        `json:"box_id,omitempty"`
	X              float64       `json:"x"`
	Y              float64       `json:"y"`
	Width          float64       `json:"width"`
	Height         float64       `json:"height"`
	Kind           model.BoxKind `json:"kind"`
	QuestionNumber int           `json:"question_number,omitempty"`
	Stroke         RGBA          `json:"-"`
	LineWidth      float64       `json:"line_width"`
	Active         bool          `json:"active"`
	Provisional    bool          `json:"provisional"`
}

// Label is the text shown at the shape's top-left corner.
func (s Shape) Label() string {
	return KindLabel(s.Kind, s.QuestionNumber, s.Provisional)
}

// KindLabel formats a box label: the kind, plus the zero-padded number for
// numbered questions.
func KindLabel(kind model.BoxKind, number int, provisional bool) string {
	if kind == model.KindQuestion && number > 0 && !provisional {
		return fmt.Sprintf("%s %03d", kind, number)
	}
	return string(kind)
}

// Scene is everything drawn over one page.
type Scene struct {
	Page   int     `json:"page"`
	Shapes []Shape `json:"shapes"`
}

// Scene projects the boxes of a page, and the rectangle in progress if it
// is on that page, into drawable shapes. It does not change the outline.
func (o *Outline) Scene(page int) Scene {
	sc := Scene{Page: page, Shapes: []Shape{}}
	for _, b := range o.boxes {
		if b.PageNumber != page {
			continue
		}
		active := b.ID == o.active
		sc.Shapes = append(sc.Shapes, Shape{
			BoxID:          b.ID,
			X:              b.X,
			Y:              b.Y,
			Width:          b.Width,
			Height:         b.Height,
			Kind:           b.Kind,
			QuestionNumber: b.QuestionNumber,
			Stroke:         strokeFor(b.Kind, active),
			LineWidth:      lineWidth,
			Active:         active,
		})
	}
	if p, ok := o.Provisional(); ok && p.PageNumber == page {
		sc.Shapes = append(sc.Shapes, Shape{
			X:           p.X,
			Y:           p.Y,
			Width:       p.Width,
			Height:      p.Height,
			Kind:        model.KindQuestion,
			Stroke:      strokeFor(model.KindQuestion, true),
			LineWidth:   lineWidth,
			Active:      true,
			Provisional: true,
		})
	}
	return sc
}

func strokeFor(kind model.BoxKind, active bool) RGBA {
	c := questionColor
	if kind == model.KindContext {
		c = contextColor
	}
	c.A = inactiveAlpha
	if active {
		c.A = activeAlpha
	}
	return c
}

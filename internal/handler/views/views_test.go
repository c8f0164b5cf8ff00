package views

import (
	"bytes"
	"context"
	"testing"

	"github.com/a-h/templ"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	appI18n "github.com/pavelanni/exambuilder/internal/i18n"
	"github.com/pavelanni/exambuilder/internal/model"
	"github.com/pavelanni/exambuilder/internal/outline"
	"github.com/pavelanni/exambuilder/internal/results"
)

func render(t *testing.T, c templ.Component) string {
	t.Helper()
	require.NoError(t, appI18n.Init("en"))
	ctx := appI18n.WithLocalizer(context.Background(), appI18n.NewLocalizer("en"))
	var buf bytes.Buffer
	require.NoError(t, c.Render(ctx, &buf))
	return buf.String()
}

func TestOutlineView(t *testing.T) {
	intro := &model.Section{ID: "intro", Name: "<script>alert(1)</script>"}
	root := &model.Section{ID: "exam", Name: "EXAM", Expanded: true, Children: []*model.Section{intro}}
	q := model.BoundingBox{ID: "box_1", PageNumber: 2, Kind: model.KindQuestion, QuestionNumber: 7, SectionID: "exam"}
	stray := model.BoundingBox{ID: "box_9", PageNumber: 4, Kind: model.KindContext, SectionID: "gone"}

	html := render(t, Outline(OutlinePage{
		Root:       root,
		Counts:     map[string]int{"exam": 1, "intro": 0},
		Members:    map[string][]model.BoundingBox{"exam": {q}},
		Unassigned: []model.BoundingBox{stray},
		Active:     "box_1",
		ActivePath: []string{"EXAM"},
		Editing:    "intro",
	}))

	assert.Contains(t, html, "<!doctype html>")
	assert.Contains(t, html, "<title>Exam Structure · Exam Builder</title>")
	assert.Contains(t, html, `<li id="section-exam">`)
	assert.Contains(t, html, `<li id="section-intro" data-editing>`)
	assert.Contains(t, html, "&lt;script&gt;alert(1)&lt;/script&gt;")
	assert.NotContains(t, html, "<script>")
	assert.Contains(t, html, `<li id="box-box_1" data-active>Question 007 <small>Page 2</small></li>`)
	assert.Contains(t, html, `<li id="box-box_9">Context <small>Page 4</small></li>`)
	assert.Contains(t, html, "<small>1 item</small>")
}

func TestOutlineViewCollapsed(t *testing.T) {
	child := &model.Section{ID: "part_a", Name: "PART_A"}
	sec := &model.Section{ID: "part", Name: "PART", Children: []*model.Section{child}}
	root := &model.Section{ID: "exam", Name: "EXAM", Children: []*model.Section{sec}}

	html := render(t, Outline(OutlinePage{Root: root, Counts: map[string]int{}, Members: map[string][]model.BoundingBox{}}))

	// The root always shows its children; a collapsed section hides its own.
	assert.Contains(t, html, `id="section-part"`)
	assert.NotContains(t, html, `id="section-part_a"`)
	assert.NotContains(t, html, `class="path"`)
}

func TestOverlayView(t *testing.T) {
	scene := outline.Scene{Page: 3, Shapes: []outline.Shape{
		{BoxID: "box_1", X: 10, Y: 20, Width: 100, Height: 40.5, Kind: model.KindQuestion, QuestionNumber: 1,
			Stroke: outline.RGBA{R: 211, G: 47, B: 47, A: 1}, LineWidth: 3, Active: true},
		{X: 5, Y: 5, Width: 30, Height: 30, Kind: model.KindQuestion,
			Stroke: outline.RGBA{R: 211, G: 47, B: 47, A: 0.5}, LineWidth: 2, Provisional: true},
	}}

	svg := render(t, Overlay("bio", &model.Page{Full: "images/page_3.png"}, scene))

	assert.Contains(t, svg, `data-page="3"`)
	assert.Contains(t, svg, `<image href="/api/v1/exams/bio/images/page_3.png"`)
	assert.Contains(t, svg, `<g data-box="box_1"><rect x="10" y="20" width="100" height="40.5" fill="none" stroke="rgba(211, 47, 47, 1)" stroke-width="3"></rect>`)
	assert.Contains(t, svg, `stroke-dasharray="6 4"`)
	assert.Contains(t, svg, ">Question 001</text>")

	bare := render(t, Overlay("bio", nil, outline.Scene{Page: 1}))
	assert.NotContains(t, bare, "<image")
}

func TestDashboardView(t *testing.T) {
	idx := &results.Index{
		Metadata: results.IndexMetadata{GeneratedOn: "2024-05-01", AuthorName: "Ops"},
		Results: []results.Entry{
			{Exam: "bio", Model: "large", Provider: "mistral", Accuracy: 95, Score: 19, TotalPossible: 20,
				Time: 65, Date: "2024-05-01T10:00:00Z", IsBest: true, Results: "bio_large.json"},
			{Exam: "bio", Model: "<tiny>", Provider: "openai", Accuracy: 40, Results: "../escape.json"},
		},
	}
	cfg := results.SortConfig{Field: results.SortAccuracy, Direction: results.Desc}

	html := render(t, Dashboard(idx, cfg))

	assert.Contains(t, html, "<tr data-best><td>★</td>")
	assert.Contains(t, html, "Mistral")
	assert.Contains(t, html, "95.0%")
	assert.Contains(t, html, "&lt;tiny&gt;")
	assert.Contains(t, html, " ▼</a>")
	assert.Contains(t, html, `href="/api/v1/results?dir=asc&amp;format=html&amp;sort=accuracy"`)
	assert.Contains(t, html, `href="/api/v1/results/bio_large.json/view"`)
	assert.NotContains(t, html, "escape.json/view")
	assert.Contains(t, html, `style="width:95px;background:`)
}

func TestDashboardViewEmpty(t *testing.T) {
	html := render(t, Dashboard(&results.Index{}, results.SortConfig{Field: results.SortDate, Direction: results.Desc}))
	assert.NotContains(t, html, "<table>")
	assert.NotContains(t, html, `class="meta"`)
}

func TestJSONViewerView(t *testing.T) {
	html := render(t, JSONViewer("bio_large.json", "", `{"a": "<b>cells</b>"}`))
	assert.Contains(t, html, "&lt;b&gt;cells&lt;/b&gt;")
	assert.Contains(t, html, `<a href="/api/v1/results?format=html">← `)

	q := render(t, JSONViewer("bio_large.json", "q3", "{}"))
	assert.Contains(t, q, "q3")
}

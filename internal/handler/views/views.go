// Package views renders the HTML and SVG pages of the builder.
package views

//go:generate templ generate

import (
	"context"
	"fmt"
	"net/url"
	"strconv"

	"github.com/a-h/templ"

	appI18n "github.com/pavelanni/exambuilder/internal/i18n"
	"github.com/pavelanni/exambuilder/internal/model"
	"github.com/pavelanni/exambuilder/internal/outline"
	"github.com/pavelanni/exambuilder/internal/results"
)

// OutlinePage is a read-only copy of an outline taken under its lock.
type OutlinePage struct {
	Root       *model.Section
	Counts     map[string]int
	Members    map[string][]model.BoundingBox
	Unassigned []model.BoundingBox
	Active     string
	ActivePath []string
	Editing    string
}

// NewOutlinePage captures what the outline view shows.
func NewOutlinePage(o *outline.Outline) OutlinePage {
	pg := OutlinePage{
		Root:    o.Root(),
		Counts:  map[string]int{},
		Members: map[string][]model.BoundingBox{},
		Active:  o.ActiveBoxID(),
		Editing: o.EditingSectionID(),
	}
	var visit func(s *model.Section)
	visit = func(s *model.Section) {
		pg.Counts[s.ID] = o.ItemCount(s.ID)
		pg.Members[s.ID] = o.BoxesInSection(s.ID)
		for _, c := range s.Children {
			visit(c)
		}
	}
	visit(pg.Root)
	for _, b := range o.Boxes() {
		if _, ok := pg.Counts[b.SectionID]; !ok {
			pg.Unassigned = append(pg.Unassigned, b)
		}
	}
	if b, ok := o.Box(pg.Active); ok {
		pg.ActivePath = o.SectionPath(b.SectionID)
	}
	return pg
}

func (pg OutlinePage) expanded(s *model.Section) bool {
	return s.Expanded || s.ID == pg.Root.ID
}

func basePath(ctx context.Context) string {
	return model.BasePathFromContext(ctx)
}

func dashboardURL(ctx context.Context) string {
	return basePath(ctx) + "/api/v1/results?format=html"
}

// boxLabel is the localized kind, numbered for questions.
func boxLabel(ctx context.Context, b model.BoundingBox) string {
	kind := appI18n.BoxKind(ctx, b.Kind)
	if b.Kind == model.KindQuestion && b.QuestionNumber > 0 {
		return fmt.Sprintf("%s %03d", kind, b.QuestionNumber)
	}
	return kind
}

func num(f float64) string {
	return strconv.FormatFloat(f, 'f', -1, 64)
}

type column struct {
	field results.SortField
	label string
}

var columns = []column{
	{results.SortStar, "ColumnBest"},
	{results.SortExam, "ColumnExam"},
	{results.SortModel, "ColumnModel"},
	{results.SortProvider, "ColumnProvider"},
	{results.SortAccuracy, "ColumnAccuracy"},
	{results.SortScore, "ColumnScore"},
	{results.SortTime, "ColumnTime"},
	{results.SortDate, "ColumnDate"},
}

// sortURL links a column header to the sort that clicking it produces.
func sortURL(ctx context.Context, cfg results.SortConfig, field results.SortField) string {
	next := cfg.Toggle(field)
	q := url.Values{"format": {"html"}, "sort": {string(next.Field)}, "dir": {string(next.Direction)}}
	return basePath(ctx) + "/api/v1/results?" + q.Encode()
}

func sortMarker(cfg results.SortConfig, field results.SortField) string {
	switch {
	case cfg.Field != field:
		return ""
	case cfg.Direction == results.Desc:
		return " ▼"
	default:
		return " ▲"
	}
}

func resultViewURL(ctx context.Context, e results.Entry) string {
	return basePath(ctx) + "/api/v1/results/" + url.PathEscape(e.Results) + "/view"
}

func accuracyBarStyle(e results.Entry) templ.SafeCSS {
	return templ.SafeCSS(fmt.Sprintf("width:%.0fpx;background:%s", e.Accuracy, results.AccuracyColor(e.Accuracy)))
}

func generatedBy(ctx context.Context, md results.IndexMetadata) string {
	return appI18n.Td(ctx, "GeneratedBy", map[string]any{"Date": md.GeneratedOn, "Author": md.AuthorName})
}

func viewerTitle(ctx context.Context, file, questionID string) string {
	if questionID != "" {
		return appI18n.Td(ctx, "QuestionTitle", map[string]any{"ID": questionID})
	}
	return appI18n.Td(ctx, "JSONViewerTitle", map[string]any{"File": file})
}

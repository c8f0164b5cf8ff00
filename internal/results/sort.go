package results

import (
	"cmp"
	"fmt"
	"slices"
	"strings"
)

// SortField is a dashboard column.
type SortField string

const (
	SortStar     SortField = "star"
	SortExam     SortField = "exam"
	SortModel    SortField = "model"
	SortProvider SortField = "provider"
	SortAccuracy SortField = "accuracy"
	SortScore    SortField = "score"
	SortTime     SortField = "time"
	SortDate     SortField = "date"
)

// Direction is a sort order.
type Direction string

const (
	Asc  Direction = "asc"
	Desc Direction = "desc"
)

// SortConfig is the active sort.
type SortConfig struct {
	Field     SortField `json:"field"`
	Direction Direction `json:"direction"`
}

// DefaultSort shows the newest runs first.
var DefaultSort = SortConfig{Field: SortDate, Direction: Desc}

// ParseSort builds a SortConfig from query values. Empty values fall back
// to DefaultSort.
func ParseSort(field, dir string) (SortConfig, error) {
	if field == "" {
		return DefaultSort, nil
	}
	f := SortField(strings.ToLower(field))
	switch f {
	case SortStar, SortExam, SortModel, SortProvider, SortAccuracy, SortScore, SortTime, SortDate:
	default:
		return SortConfig{}, fmt.Errorf("unknown sort field %q", field)
	}
	d := Direction(strings.ToLower(dir))
	switch d {
	case "":
		d = Asc
	case Asc, Desc:
	default:
		return SortConfig{}, fmt.Errorf("unknown sort direction %q", dir)
	}
	return SortConfig{Field: f, Direction: d}, nil
}

// Toggle returns the config after clicking a column header: the same
// ascending column flips to descending, anything else sorts ascending.
func (c SortConfig) Toggle(field SortField) SortConfig {
	if c.Field == field && c.Direction == Asc {
		return SortConfig{Field: field, Direction: Desc}
	}
	return SortConfig{Field: field, Direction: Asc}
}

// Sort returns a sorted copy of entries. Ascending on the star column puts
// best performers first.
func Sort(entries []Entry, c SortConfig) []Entry {
	out := slices.Clone(entries)
	slices.SortStableFunc(out, func(a, b Entry) int {
		n := compare(a, b, c.Field)
		if c.Direction == Desc {
			return -n
		}
		return n
	})
	return out
}

func compare(a, b Entry, field SortField) int {
	switch field {
	case SortStar:
		return cmp.Compare(boolRank(a.IsBest), boolRank(b.IsBest))
	case SortExam:
		return strings.Compare(a.Exam, b.Exam)
	case SortModel:
		return strings.Compare(a.Model, b.Model)
	case SortProvider:
		return strings.Compare(a.Provider, b.Provider)
	case SortAccuracy:
		return cmp.Compare(a.Accuracy, b.Accuracy)
	case SortScore:
		return cmp.Compare(a.Score, b.Score)
	case SortTime:
		return cmp.Compare(a.Time, b.Time)
	case SortDate:
		ta, okA := a.ParsedDate()
		tb, okB := b.ParsedDate()
		if !okA || !okB {
			return strings.Compare(a.Date, b.Date)
		}
		return ta.Compare(tb)
	}
	return 0
}

func boolRank(best bool) int {
	if best {
		return 0
	}
	return 1
}

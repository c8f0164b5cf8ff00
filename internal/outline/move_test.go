package outline

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/pavelanni/exambuilder/internal/model"
)

func sectionIDs(children []*model.Section) []string {
	ids := make([]string, 0, len(children))
	for _, c := range children {
		ids = append(ids, c.ID)
	}
	return ids
}

func TestClassify(t *testing.T) {
	o := newTestOutline(t)
	_, _ = o.CreateSection("A", "")
	_, _ = o.CreateSection("Deep", "a")
	box := drawBox(t, o, 0, 0)

	tests := []struct {
		id   string
		want ItemType
	}{
		{o.Root().ID, ItemRoot},
		{"a", ItemSection},
		{"deep", ItemSection},
		{box.ID, ItemQuestion},
		{"canvas", ItemUnknown},
		{"", ItemUnknown},
	}
	for _, tt := range tests {
		t.Run(tt.want.String()+"/"+tt.id, func(t *testing.T) {
			assert.Equal(t, tt.want, o.Classify(tt.id))
		})
	}
}

func TestMoveRootRejected(t *testing.T) {
	o := newTestOutline(t)
	_, _ = o.CreateSection("A", "")
	box := drawBox(t, o, 0, 0)
	before := o.Root()

	for _, target := range []string{"a", box.ID, "nowhere"} {
		res := o.Move(before.ID, target)
		assert.Equal(t, RuleRejected, res.Rule)
		assert.Same(t, before, o.Root())
	}
}

func TestMoveSelfIsNoop(t *testing.T) {
	o := newTestOutline(t)
	_, _ = o.CreateSection("A", "")
	before := o.Root()

	assert.Equal(t, RuleNone, o.Move("a", "a").Rule)
	assert.Same(t, before, o.Root())
}

func TestNestSection(t *testing.T) {
	o := newTestOutline(t)
	_, _ = o.CreateSection("A", "")
	_, _ = o.CreateSection("B", "")
	_, _ = o.CreateSection("C", "")

	res := o.Move("c", "a")
	assert.Equal(t, RuleNest, res.Rule)
	assert.Equal(t, []string{"a", "b"}, sectionIDs(o.Root().Children))
	a, _ := o.Section("a")
	assert.Equal(t, []string{"c"}, sectionIDs(a.Children))
	assert.Equal(t, 4, countSections(o.Root()))
}

func TestNestIntoDescendantRejected(t *testing.T) {
	o := newTestOutline(t)
	_, _ = o.CreateSection("B", "")
	_, _ = o.CreateSection("A", "b")
	_, _ = o.CreateSection("Leaf", "a")
	before := o.Root()

	res := o.Move("b", "a")
	assert.Equal(t, RuleRejected, res.Rule)
	assert.Same(t, before, o.Root())

	res = o.Move("b", "leaf")
	assert.Equal(t, RuleRejected, res.Rule)
	assert.Same(t, before, o.Root())
}

func TestPromoteSection(t *testing.T) {
	for _, target := range []string{"root", "unknown"} {
		t.Run(target, func(t *testing.T) {
			o := newTestOutline(t)
			_, _ = o.CreateSection("A", "")
			_, _ = o.CreateSection("B", "a")
			dropOn := o.Root().ID
			if target == "unknown" {
				dropOn = "empty-canvas"
			}

			res := o.Move("b", dropOn)
			assert.Equal(t, RulePromote, res.Rule)
			assert.Equal(t, []string{"a", "b"}, sectionIDs(o.Root().Children))
			a, _ := o.Section("a")
			assert.Empty(t, a.Children)
		})
	}
}

func TestSectionOntoQuestionIsNoop(t *testing.T) {
	o := newTestOutline(t)
	box := drawBox(t, o, 0, 0)
	_, _ = o.CreateSection("B", "")
	before := o.Root()

	assert.Equal(t, RuleNone, o.Move("b", box.ID).Rule)
	assert.Same(t, before, o.Root())
}

func TestQuestionToSection(t *testing.T) {
	o := newTestOutline(t)
	a := drawBox(t, o, 0, 0)
	b := drawBox(t, o, 0, 50)
	c := drawBox(t, o, 0, 100)
	_, _ = o.CreateSection("II", "")
	require.Equal(t, map[string]int{a.ID: 1, b.ID: 2, c.ID: 3}, numbersIn(o, "i"))

	res := o.DragEnd(b.ID, "ii")
	assert.Equal(t, RuleReassign, res.Rule)
	assert.Equal(t, map[string]int{a.ID: 1, c.ID: 2}, numbersIn(o, "i"))
	assert.Equal(t, map[string]int{b.ID: 1}, numbersIn(o, "ii"))
	assert.Len(t, o.Boxes(), 3)
}

func TestQuestionToRoot(t *testing.T) {
	for _, target := range []string{"root", "unknown"} {
		t.Run(target, func(t *testing.T) {
			o := newTestOutline(t)
			a := drawBox(t, o, 0, 0)
			b := drawBox(t, o, 0, 50)
			dropOn := o.Root().ID
			if target == "unknown" {
				dropOn = "gutter"
			}

			res := o.Move(a.ID, dropOn)
			assert.Equal(t, RuleReassignToRoot, res.Rule)
			got, _ := o.Box(a.ID)
			assert.Equal(t, o.Root().ID, got.SectionID)
			assert.Equal(t, 1, got.QuestionNumber)
			assert.Equal(t, map[string]int{b.ID: 1}, numbersIn(o, "i"))
		})
	}
}

func TestReorderWithinSection(t *testing.T) {
	o := newTestOutline(t)
	a := drawBox(t, o, 0, 0)
	b := drawBox(t, o, 0, 50)
	c := drawBox(t, o, 0, 100)
	d := drawBox(t, o, 0, 150)

	res := o.Move(d.ID, b.ID)
	assert.Equal(t, RuleReorder, res.Rule)
	assert.Equal(t, map[string]int{a.ID: 1, d.ID: 2, b.ID: 3, c.ID: 4}, numbersIn(o, "i"))

	res = o.Move(a.ID, c.ID)
	assert.Equal(t, RuleReorder, res.Rule)
	assert.Equal(t, map[string]int{d.ID: 1, b.ID: 2, c.ID: 3, a.ID: 4}, numbersIn(o, "i"))
}

func TestReorderAcrossSectionsIsNoop(t *testing.T) {
	o := newTestOutline(t)
	a := drawBox(t, o, 0, 0)
	_, _ = o.CreateSection("II", "")
	require.NoError(t, o.SetActive(""))
	b := drawBox(t, o, 0, 50)
	require.NoError(t, o.AssignToSection(b.ID, "ii"))

	assert.Equal(t, RuleNone, o.Move(a.ID, b.ID).Rule)
	got, _ := o.Box(a.ID)
	assert.Equal(t, "i", got.SectionID)
}

func TestDragSession(t *testing.T) {
	o := newTestOutline(t)
	_, _ = o.CreateSection("A", "")
	_, _ = o.CreateSection("B", "")

	o.DragStart("b")
	o.DragOver("a")
	active, over := o.Dragging()
	assert.Equal(t, "b", active)
	assert.Equal(t, "a", over)

	before := o.Root()
	res := o.DragEnd("b", "")
	assert.Equal(t, RuleNone, res.Rule)
	assert.Same(t, before, o.Root())
	active, over = o.Dragging()
	assert.Empty(t, active)
	assert.Empty(t, over)

	o.DragStart("b")
	o.DragCancel()
	active, _ = o.Dragging()
	assert.Empty(t, active)

	assert.Equal(t, RuleNest, o.DragEnd("b", "a").Rule)
}

func TestMoveConservesCounts(t *testing.T) {
	o := newTestOutline(t)
	drawBox(t, o, 0, 0)
	drawBox(t, o, 0, 50)
	_, _ = o.CreateSection("II", "")
	_, _ = o.CreateSection("III", "ii")
	drawBox(t, o, 0, 100)

	sections, boxes := countSections(o.Root()), len(o.Boxes())
	ids := []string{o.Root().ID, "i", "ii", "iii", "box_1", "box_2", "box_3", "elsewhere"}
	for _, src := range ids {
		for _, tgt := range ids {
			o.Move(src, tgt)
			require.Equal(t, sections, countSections(o.Root()), "%s -> %s", src, tgt)
			require.Equal(t, boxes, len(o.Boxes()), "%s -> %s", src, tgt)
			for _, id := range []string{"i", "ii", "iii"} {
				s, ok := o.Section(id)
				require.True(t, ok)
				for _, c := range s.Children {
					require.False(t, contains(c, id), "%s became its own descendant", id)
				}
			}
		}
	}
}

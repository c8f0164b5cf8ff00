package outline

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/pavelanni/exambuilder/internal/model"
)

func TestSceneProjectsPage(t *testing.T) {
	o := newTestOutline(t)
	a := drawBox(t, o, 0, 0)
	b := drawBox(t, o, 0, 50)
	require.NoError(t, o.SetKind(a.ID, model.KindContext))

	o.SetDrawingEnabled(true)
	_, err := o.Click(2, Point{X: 5, Y: 5})
	require.NoError(t, err)
	before := o.Snapshot()

	sc := o.Scene(1)
	require.Len(t, sc.Shapes, 2)

	ctx := sc.Shapes[0]
	assert.Equal(t, "Context", ctx.Label())
	assert.Equal(t, "rgba(25, 118, 210, 0.5)", ctx.Stroke.CSS())
	assert.False(t, ctx.Active)

	q := sc.Shapes[1]
	assert.Equal(t, b.ID, q.BoxID)
	assert.Equal(t, "Question 001", q.Label())
	assert.Equal(t, "rgba(211, 47, 47, 1)", q.Stroke.CSS())
	assert.Equal(t, 3.0, q.LineWidth)
	assert.True(t, q.Active)

	page2 := o.Scene(2)
	require.Len(t, page2.Shapes, 1)
	assert.True(t, page2.Shapes[0].Provisional)
	assert.Equal(t, "Question", page2.Shapes[0].Label())
	assert.Equal(t, "rgba(211, 47, 47, 1)", page2.Shapes[0].Stroke.CSS())

	assert.Empty(t, o.Scene(9).Shapes)
	assert.Equal(t, before, o.Snapshot(), "rendering must not change the outline")
}

func TestKindLabel(t *testing.T) {
	assert.Equal(t, "Question 012", KindLabel(model.KindQuestion, 12, false))
	assert.Equal(t, "Question", KindLabel(model.KindQuestion, 0, false))
	assert.Equal(t, "Context", KindLabel(model.KindContext, 3, false))
}

package outline

type dragSession struct {
	active string
	over   string
}

// DragStart records the item being dragged.
func (o *Outline) DragStart(id string) {
	o.drag = dragSession{active: id}
}

// DragOver records the item currently under the pointer; "" means none.
func (o *Outline) DragOver(id string) {
	o.drag.over = id
}

// Dragging returns the ids of the drag in progress.
func (o *Outline) Dragging() (active, over string) {
	return o.drag.active, o.drag.over
}

// DragCancel abandons the drag without moving anything.
func (o *Outline) DragCancel() {
	o.drag = dragSession{}
}

// DragEnd finishes a drag. Dropping on nothing or on the dragged item
// itself changes nothing.
func (o *Outline) DragEnd(activeID, overID string) MoveResult {
	o.drag = dragSession{}
	if overID == "" || activeID == overID {
		return MoveResult{Source: o.Classify(activeID), Target: o.Classify(overID), Rule: RuleNone}
	}
	return o.Move(activeID, overID)
}

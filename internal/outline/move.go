package outline

import (
	"slices"

	"github.com/pavelanni/exambuilder/internal/model"
)

// ItemType classifies a drag source or drop target.
type ItemType int

const (
	ItemUnknown ItemType = iota
	ItemRoot
	ItemSection
	ItemQuestion
)

func (t ItemType) String() string {
	switch t {
	case ItemRoot:
		return "root"
	case ItemSection:
		return "section"
	case ItemQuestion:
		return "question"
	default:
		return "unknown"
	}
}

// MarshalText encodes the type by name.
func (t ItemType) MarshalText() ([]byte, error) {
	return []byte(t.String()), nil
}

// MoveRule names the effect a drop had.
type MoveRule string

const (
	RuleNone           MoveRule = "none"
	RuleRejected       MoveRule = "rejected"
	RuleNest           MoveRule = "nest"
	RulePromote        MoveRule = "promote"
	RuleReassign       MoveRule = "reassign"
	RuleReassignToRoot MoveRule = "reassign_to_root"
	RuleReorder        MoveRule = "reorder"
)

// MoveResult reports what a move did. Rejections are not errors: they
// leave the outline unchanged and carry a reason for diagnostics.
type MoveResult struct {
	Source ItemType `json:"source"`
	Target ItemType `json:"target"`
	Rule   MoveRule `json:"rule"`
	Reason string   `json:"reason,omitempty"`
}

// Classify tells what an id refers to.
func (o *Outline) Classify(id string) ItemType {
	switch {
	case id == "":
		return ItemUnknown
	case id == o.root.ID:
		return ItemRoot
	case contains(o.root, id):
		return ItemSection
	case o.boxIndex(id) >= 0:
		return ItemQuestion
	default:
		return ItemUnknown
	}
}

// Move applies a drop of sourceID onto targetID.
func (o *Outline) Move(sourceID, targetID string) MoveResult {
	res := MoveResult{Source: o.Classify(sourceID), Target: o.Classify(targetID), Rule: RuleNone}
	if sourceID == targetID {
		return res
	}
	if res.Source == ItemRoot {
		return o.reject(res, sourceID, targetID, "root section cannot be moved")
	}

	switch res.Source {
	case ItemSection:
		switch res.Target {
		case ItemSection:
			if contains(findSection(o.root, sourceID), targetID) {
				return o.reject(res, sourceID, targetID, "target is inside the moved section")
			}
			o.reparent(sourceID, targetID)
			res.Rule = RuleNest
		case ItemRoot, ItemUnknown:
			o.reparent(sourceID, o.root.ID)
			res.Rule = RulePromote
		}
	case ItemQuestion:
		switch res.Target {
		case ItemSection:
			_ = o.AssignToSection(sourceID, targetID)
			res.Rule = RuleReassign
		case ItemRoot, ItemUnknown:
			_ = o.AssignToSection(sourceID, o.root.ID)
			res.Rule = RuleReassignToRoot
		case ItemQuestion:
			if o.reorder(sourceID, targetID) {
				res.Rule = RuleReorder
			}
		}
	}
	return res
}

func (o *Outline) reject(res MoveResult, sourceID, targetID, reason string) MoveResult {
	res.Rule = RuleRejected
	res.Reason = reason
	o.log.Debug("move rejected",
		"source", sourceID,
		"source_type", res.Source,
		"target", targetID,
		"target_type", res.Target,
		"reason", reason,
	)
	return res
}

// reparent detaches a section and appends it under parentID.
func (o *Outline) reparent(id, parentID string) {
	root, removed := detach(o.root, id)
	if removed == nil {
		return
	}
	if root, ok := appendChild(root, parentID, removed); ok {
		o.root = root
	}
}

// reorder moves sourceID to targetID's position within the question order
// of the section both belong to, then numbers that section 1..N.
func (o *Outline) reorder(sourceID, targetID string) bool {
	src, tgt := o.boxes[o.boxIndex(sourceID)], o.boxes[o.boxIndex(targetID)]
	if src.SectionID == "" || src.SectionID != tgt.SectionID {
		return false
	}
	if src.Kind != model.KindQuestion || tgt.Kind != model.KindQuestion {
		return false
	}
	order := o.questionOrder(src.SectionID)
	from := slices.IndexFunc(order, func(i int) bool { return o.boxes[i].ID == sourceID })
	to := slices.IndexFunc(order, func(i int) bool { return o.boxes[i].ID == targetID })
	moved := order[from]
	order = slices.Delete(order, from, from+1)
	order = slices.Insert(order, to, moved)
	for n, i := range order {
		o.boxes[i].QuestionNumber = n + 1
	}
	return true
}

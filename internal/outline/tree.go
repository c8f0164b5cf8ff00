package outline

import "github.com/pavelanni/exambuilder/internal/model"

func newSection(id, name string) *model.Section {
	return &model.Section{ID: id, Name: name, Children: []*model.Section{}, Expanded: true}
}

// findSection searches the subtree rooted at s.
func findSection(s *model.Section, id string) *model.Section {
	if s == nil {
		return nil
	}
	if s.ID == id {
		return s
	}
	for _, c := range s.Children {
		if found := findSection(c, id); found != nil {
			return found
		}
	}
	return nil
}

// contains reports whether id is s itself or any descendant of s.
func contains(s *model.Section, id string) bool {
	return findSection(s, id) != nil
}

// rebuild replaces the node id with fn(node) and copies every ancestor on
// the way back up. Siblings and untouched subtrees are shared.
func rebuild(s *model.Section, id string, fn func(*model.Section) *model.Section) (*model.Section, bool) {
	if s.ID == id {
		return fn(s), true
	}
	for i, c := range s.Children {
		nc, ok := rebuild(c, id, fn)
		if !ok {
			continue
		}
		cp := *s
		cp.Children = make([]*model.Section, len(s.Children))
		copy(cp.Children, s.Children)
		cp.Children[i] = nc
		return &cp, true
	}
	return s, false
}

// appendChild returns a new tree with child appended under parentID.
func appendChild(root *model.Section, parentID string, child *model.Section) (*model.Section, bool) {
	return rebuild(root, parentID, func(n *model.Section) *model.Section {
		cp := *n
		cp.Children = make([]*model.Section, 0, len(n.Children)+1)
		cp.Children = append(cp.Children, n.Children...)
		cp.Children = append(cp.Children, child)
		return &cp
	})
}

// detach removes the descendant id from the tree. The root itself is
// never detached. The removed subtree is nil when id was not found.
func detach(s *model.Section, id string) (*model.Section, *model.Section) {
	for i, c := range s.Children {
		if c.ID == id {
			cp := *s
			cp.Children = make([]*model.Section, 0, len(s.Children)-1)
			cp.Children = append(cp.Children, s.Children[:i]...)
			cp.Children = append(cp.Children, s.Children[i+1:]...)
			return &cp, c
		}
		nc, removed := detach(c, id)
		if removed == nil {
			continue
		}
		cp := *s
		cp.Children = make([]*model.Section, len(s.Children))
		copy(cp.Children, s.Children)
		cp.Children[i] = nc
		return &cp, removed
	}
	return s, nil
}

// walk visits every node depth-first, parents before children.
func walk(s *model.Section, depth int, fn func(s *model.Section, depth int)) {
	fn(s, depth)
	for _, c := range s.Children {
		walk(c, depth+1, fn)
	}
}

package service

import (
	"optimart/internal/domain"

	"github.com/google/uuid"
)

// FlattenTree orders categories depth-first: each root immediately followed
// by its children, each child by its own children. The input must already be
// ordered by (sort_order, insertion) across the whole set; grouping is stable,
// so that order survives within every level.
//
// A category whose parent_id does not resolve is an orphan. Orphans (with
// their own subtrees) are appended after all valid roots, keeping their
// relative order among themselves.
func FlattenTree(categories []*domain.Category) []*domain.Category {
	present := make(map[uuid.UUID]bool, len(categories))
	for _, c := range categories {
		present[c.ID] = true
	}

	children := make(map[uuid.UUID][]*domain.Category)
	var roots, orphans []*domain.Category
	for _, c := range categories {
		switch {
		case c.ParentID == nil:
			roots = append(roots, c)
		case present[*c.ParentID]:
			children[*c.ParentID] = append(children[*c.ParentID], c)
		default:
			orphans = append(orphans, c)
		}
	}

	flattened := make([]*domain.Category, 0, len(categories))
	var walk func(*domain.Category)
	walk = func(c *domain.Category) {
		flattened = append(flattened, c)
		for _, child := range children[c.ID] {
			walk(child)
		}
	}

	for _, root := range roots {
		walk(root)
	}
	for _, orphan := range orphans {
		walk(orphan)
	}

	return flattened
}

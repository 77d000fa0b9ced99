package derive

import (
	"fmt"

	"github.com/agentic-research/syncgen/api"
)

// pickedColumns are the child names an object column is displayed by, in
// order of preference.
var pickedColumns = []string{"title", "name"}

// ColumnsNode returns the rendering tree of an entity subset as list
// columns. Object columns, and arrays of objects, collapse to object-pick
// nodes showing a single child.
func (r *Registry) ColumnsNode(entityID, subsetKey string) (api.RenderingNode, error) {
	e, err := r.src.Get(entityID)
	if err != nil {
		return api.RenderingNode{}, err
	}
	if _, ok := e.Subsets[subsetKey]; !ok {
		return api.RenderingNode{}, fmt.Errorf("%w: %s has no subset %s", ErrSubsetNotFound, entityID, subsetKey)
	}
	s, err := r.Lookup(entityID + "Subset" + subsetKey)
	if err != nil {
		return api.RenderingNode{}, err
	}

	root := ToRenderingNode(s, "root")
	for i := range root.Children {
		child := &root.Children[i]
		switch {
		case child.RenderType == api.RenderObject:
			pick(child)
		case child.RenderType == api.RenderArray && child.Element != nil && child.Element.RenderType == api.RenderObject:
			el := *child.Element
			pick(&el)
			child.Element = &el
		}
	}
	return root, nil
}

func pick(n *api.RenderingNode) {
	for _, name := range pickedColumns {
		if _, ok := n.Child(name); ok {
			n.RenderType = api.RenderObjectPick
			n.Config = map[string]string{"picked": name}
			return
		}
	}
}

package entity

import (
	"fmt"
	"strings"

	"github.com/agentic-research/syncgen/api"
)

// PropNodes builds the PropNode forest for a list of field expressions of
// entityID. Plain names select a prop of the entity; dotted names
// ("user.name") descend into the related entity of a relation prop and
// become an object node (to-one) or an array node (to-many). Groups keep
// the order in which their first expression appears.
func (s *Store) PropNodes(entityID string, fieldExprs []string) ([]api.PropNode, error) {
	e, err := s.Get(entityID)
	if err != nil {
		return nil, err
	}

	var order []string
	groups := make(map[string][]string)
	for _, expr := range fieldExprs {
		head, rest, dotted := strings.Cut(expr, ".")
		key := ""
		item := expr
		if dotted {
			key, item = head, rest
		}
		if _, ok := groups[key]; !ok {
			order = append(order, key)
		}
		groups[key] = append(groups[key], item)
	}

	var nodes []api.PropNode
	for _, key := range order {
		if key == "" {
			for _, name := range groups[key] {
				prop, err := plainProp(e, name)
				if err != nil {
					return nil, err
				}
				nodes = append(nodes, api.PropNode{NodeType: api.NodePlain, Prop: &prop})
			}
			continue
		}

		prop, ok := e.Prop(key)
		if !ok || !prop.IsRelation() {
			return nil, fmt.Errorf("%w: %s.%s is not a relation", ErrInvalidFieldExpr, entityID, key)
		}
		children, err := s.PropNodes(prop.With, groups[key])
		if err != nil {
			return nil, fmt.Errorf("%s.%s: %w", entityID, key, err)
		}
		nodeType := api.NodeObject
		if prop.IsToMany() {
			nodeType = api.NodeArray
		}
		nodes = append(nodes, api.PropNode{NodeType: nodeType, Prop: &prop, Children: children})
	}
	return nodes, nil
}

func plainProp(e *api.Entity, name string) (api.Prop, error) {
	if prop, ok := e.Prop(name); ok {
		return prop, nil
	}
	// Foreign key column of a to-one relation, e.g. "user_id" for "user".
	if base, ok := strings.CutSuffix(name, "_id"); ok {
		if rel, ok := e.Prop(base); ok && rel.OwnsJoinColumn() {
			return api.Prop{Name: name, Type: api.PropInteger, Unsigned: true, Nullable: rel.Nullable}, nil
		}
	}
	if name == "uuid" {
		return api.Prop{Name: name, Type: api.PropString, Length: 128}, nil
	}
	return api.Prop{}, fmt.Errorf("%w: %s.%s", ErrInvalidFieldExpr, e.ID, name)
}

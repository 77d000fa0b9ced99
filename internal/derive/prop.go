package derive

import (
	"fmt"

	"github.com/agentic-research/syncgen/api"
)

var textTypeLengths = map[string]int{
	"tinytext":   255,
	"text":       65535,
	"mediumtext": 16777215,
	"longtext":   4294967295,
}

// PropToSchema maps one entity prop to its schema. Relations that do not
// own a join column have no column of their own and yield nil.
func (r *Registry) PropToSchema(p api.Prop) (Schema, error) {
	var s Schema

	switch p.Type {
	case api.PropInteger:
		s = Number{Int: true}
	case api.PropBigInteger:
		s = BigInt{}
	case api.PropText:
		n, ok := textTypeLengths[p.TextType]
		if !ok {
			n = textTypeLengths["text"]
		}
		s = String{Max: n}
	case api.PropString:
		s = String{Max: p.Length}
	case api.PropEnum, api.PropJSON, api.PropVirtual:
		if p.ID == "" {
			return nil, fmt.Errorf("%w: %s prop %s has no schema id", ErrSchemaNotFound, p.Type, p.Name)
		}
		inner, err := r.Lookup(p.ID)
		if err != nil {
			return nil, err
		}
		s = Ref{ID: p.ID, Inner: inner}
	case api.PropFloat, api.PropDouble:
		s = Number{}
	case api.PropDecimal:
		s = String{}
	case api.PropBoolean:
		s = Boolean{}
	case api.PropDate:
		s = String{Length: 10}
	case api.PropTime:
		s = String{Length: 8}
	case api.PropDateTime, api.PropTimestamp:
		s = SQLDateTimeString
	case api.PropUUID:
		s = String{Format: "uuid"}
	case api.PropRelation:
		if !p.OwnsJoinColumn() {
			return nil, nil
		}
		s = Number{Int: true}
	default:
		return nil, fmt.Errorf("%w: %q (prop %s)", ErrUnknownPropKind, p.Type, p.Name)
	}

	if p.Unsigned {
		switch n := s.(type) {
		case Number:
			n.NonNegative = true
			s = n
		case BigInt:
			n.NonNegative = true
			s = n
		}
	}
	if p.Nullable {
		s = Nullable{Inner: s}
	}
	return s, nil
}

// PropNodeToSchema maps a PropNode tree to a schema. Object nodes fold
// their children in order and skip children without a schema.
func (r *Registry) PropNodeToSchema(n api.PropNode) (Schema, error) {
	switch n.NodeType {
	case api.NodePlain:
		if n.Prop == nil {
			return nil, fmt.Errorf("plain prop node without prop")
		}
		return r.PropToSchema(*n.Prop)

	case api.NodeArray:
		if n.Prop == nil {
			return nil, fmt.Errorf("array prop node without prop")
		}
		if len(n.Children) > 0 {
			obj, err := r.PropNodeToSchema(api.PropNode{NodeType: api.NodeObject, Prop: n.Prop, Children: n.Children})
			if err != nil {
				return nil, err
			}
			return Array{Element: obj}, nil
		}
		inner, err := r.PropToSchema(*n.Prop)
		if err != nil {
			return nil, err
		}
		if inner == nil {
			inner = Unknown{}
		}
		var s Schema = Array{Element: inner}
		if n.Prop.Nullable {
			s = Nullable{Inner: s}
		}
		return s, nil

	case api.NodeObject:
		obj := NewObject()
		for _, c := range n.Children {
			if c.Prop == nil {
				return nil, fmt.Errorf("object child without prop")
			}
			s, err := r.PropNodeToSchema(c)
			if err != nil {
				return nil, err
			}
			if s == nil {
				continue
			}
			obj.Set(c.Prop.Name, s)
		}
		if n.Prop != nil && n.Prop.Nullable {
			return Nullable{Inner: *obj}, nil
		}
		return *obj, nil
	}
	return nil, fmt.Errorf("unknown prop node type %q", n.NodeType)
}

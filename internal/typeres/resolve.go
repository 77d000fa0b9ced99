package typeres

import (
	"errors"
	"fmt"
	"strconv"
	"strings"

	sitter "github.com/smacker/go-tree-sitter"

	"github.com/agentic-research/syncgen/api"
)

// ErrUnsupportedNode is returned for type syntax outside the resolvable set.
var ErrUnsupportedNode = errors.New("unsupported type node")

// ResolveTypeNode maps a type syntax node to its TypeDescriptor.
func (f *File) ResolveTypeNode(n *sitter.Node) (api.TypeDescriptor, error) {
	if n == nil {
		return nil, fmt.Errorf("%w: missing type", ErrUnsupportedNode)
	}

	switch n.Type() {
	case "type_annotation", "parenthesized_type", "readonly_type", "constraint":
		inner := namedChildren(n)
		if len(inner) == 0 {
			return nil, f.unsupported(n)
		}
		return f.ResolveTypeNode(inner[len(inner)-1])

	case "predefined_type":
		switch t := f.text(n); t {
		case "any", "unknown", "string", "number", "boolean", "void":
			return api.Primitive(t), nil
		}
		return nil, f.unsupported(n)

	case "literal_type":
		inner := namedChildren(n)
		if len(inner) != 1 {
			return nil, f.unsupported(n)
		}
		return f.ResolveTypeNode(inner[0])

	case "string":
		return api.StringLiteral{Value: unquote(f.text(n))}, nil

	case "number":
		v, err := strconv.ParseFloat(strings.ReplaceAll(f.text(n), "_", ""), 64)
		if err != nil {
			return nil, fmt.Errorf("%w: numeric literal %q: %v", ErrUnsupportedNode, f.text(n), err)
		}
		return api.NumericLiteral{Value: v}, nil

	case "null":
		return api.TypeNull, nil
	case "undefined":
		return api.TypeUndefined, nil
	case "true":
		return api.TypeTrue, nil
	case "false":
		return api.TypeFalse, nil

	case "array_type":
		inner := namedChildren(n)
		if len(inner) != 1 {
			return nil, f.unsupported(n)
		}
		elem, err := f.ResolveTypeNode(inner[0])
		if err != nil {
			return nil, err
		}
		return api.ArrayType{Elements: elem}, nil

	case "object_type":
		return f.resolveObject(n)

	case "type_identifier":
		if f.text(n) == "undefined" {
			return api.TypeUndefined, nil
		}
		return api.RefType{ID: f.text(n)}, nil

	case "nested_type_identifier":
		return api.RefType{ID: f.text(n)}, nil

	case "generic_type":
		name := n.ChildByFieldName("name")
		if name == nil {
			return nil, f.unsupported(n)
		}
		ref := api.RefType{ID: f.text(name)}
		if targs := n.ChildByFieldName("type_arguments"); targs != nil {
			for _, a := range namedChildren(targs) {
				t, err := f.ResolveTypeNode(a)
				if err != nil {
					return nil, err
				}
				ref.Args = append(ref.Args, t)
			}
		}
		return ref, nil

	case "union_type":
		types, err := f.flatten(n, "union_type")
		if err != nil {
			return nil, err
		}
		return api.UnionType{Types: types}, nil

	case "intersection_type":
		types, err := f.flatten(n, "intersection_type")
		if err != nil {
			return nil, err
		}
		return api.IntersectionType{Types: types}, nil

	case "lookup_type":
		inner := namedChildren(n)
		if len(inner) != 2 {
			return nil, f.unsupported(n)
		}
		obj, err := f.ResolveTypeNode(inner[0])
		if err != nil {
			return nil, err
		}
		idx, err := f.ResolveTypeNode(inner[1])
		if err != nil {
			return nil, err
		}
		return api.IndexedAccessType{Object: obj, Index: idx}, nil

	case "tuple_type":
		var elems []api.TypeDescriptor
		for _, c := range namedChildren(n) {
			if c.Type() == "tuple_parameter" || c.Type() == "optional_tuple_parameter" {
				c = c.ChildByFieldName("type")
			}
			t, err := f.ResolveTypeNode(c)
			if err != nil {
				return nil, err
			}
			elems = append(elems, t)
		}
		return api.TupleType{Elements: elems}, nil
	}

	return nil, f.unsupported(n)
}

func (f *File) unsupported(n *sitter.Node) error {
	p := n.StartPoint()
	return fmt.Errorf("%w: %s at %s:%d:%d", ErrUnsupportedNode, n.Type(), f.Path, p.Row+1, p.Column+1)
}

// flatten collects the operands of a left-nested binary type operator.
func (f *File) flatten(n *sitter.Node, kind string) ([]api.TypeDescriptor, error) {
	var out []api.TypeDescriptor
	for _, c := range namedChildren(n) {
		if c.Type() == kind {
			sub, err := f.flatten(c, kind)
			if err != nil {
				return nil, err
			}
			out = append(out, sub...)
			continue
		}
		t, err := f.ResolveTypeNode(c)
		if err != nil {
			return nil, err
		}
		out = append(out, t)
	}
	return out, nil
}

func (f *File) resolveObject(n *sitter.Node) (api.TypeDescriptor, error) {
	obj := api.ObjectType{Props: []api.ApiParam{}}
	for _, m := range namedChildren(n) {
		switch m.Type() {
		case "property_signature":
			name := m.ChildByFieldName("name")
			if name == nil {
				return nil, f.unsupported(m)
			}
			t, err := f.ResolveTypeNode(m.ChildByFieldName("type"))
			if err != nil {
				return nil, err
			}
			obj.Props = append(obj.Props, api.ApiParam{
				Name:     unquote(f.text(name)),
				Type:     t,
				Optional: hasToken(m, "?"),
			})

		case "index_signature":
			keyName := m.ChildByFieldName("name")
			keyType := m.ChildByFieldName("index_type")
			if keyName == nil || keyType == nil {
				return nil, f.unsupported(m)
			}
			kt, err := f.ResolveTypeNode(keyType)
			if err != nil {
				return nil, err
			}
			vt, err := f.ResolveTypeNode(m.ChildByFieldName("type"))
			if err != nil {
				return nil, err
			}
			obj.Props = append(obj.Props, api.ApiParam{
				Name: fmt.Sprintf("[%s: %s]", f.text(keyName), PrintType(kt)),
				Type: vt,
			})

		default:
			return nil, f.unsupported(m)
		}
	}
	return obj, nil
}

func unquote(s string) string {
	if len(s) >= 2 {
		q := s[0]
		if (q == '"' || q == '\'' || q == '`') && s[len(s)-1] == q {
			return s[1 : len(s)-1]
		}
	}
	return s
}

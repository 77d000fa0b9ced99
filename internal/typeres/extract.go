package typeres

import (
	"errors"
	"fmt"
	"strings"

	sitter "github.com/smacker/go-tree-sitter"

	"github.com/agentic-research/syncgen/api"
)

// ErrMissingReturnType is returned when a method declares no return type.
var ErrMissingReturnType = errors.New("method has no return type annotation")

// walkState is the context carried through the depth-first walk. It flows
// from each node to its descendants and then on to the following siblings.
type walkState struct {
	modelName  string
	methodName string
}

var initialWalkState = walkState{modelName: "UnknownModel", methodName: "unknownMethod"}

// ExtractSignatures reads every method declaration of f and returns the
// ones registered in reg, in registration order, extended with their
// declared types.
func ExtractSignatures(f *File, reg *Registry) ([]api.ApiSignature, error) {
	methods, _, err := f.walk(f.Root, initialWalkState)
	if err != nil {
		return nil, err
	}
	if len(methods) == 0 {
		return nil, nil
	}

	byKey := make(map[string]api.ApiSignature, len(methods))
	for _, m := range methods {
		k := declKey(m.ModelName, m.MethodName)
		if _, seen := byKey[k]; !seen {
			byKey[k] = m
		}
	}

	var out []api.ApiSignature
	for _, decl := range reg.Entries() {
		m, ok := byKey[declKey(decl.ModelName, decl.MethodName)]
		if !ok {
			continue
		}
		m.ApiDecl = decl
		reg.markResolved(decl.ModelName, decl.MethodName)
		out = append(out, m)
	}
	return out, nil
}

func (f *File) walk(n *sitter.Node, st walkState) ([]api.ApiSignature, walkState, error) {
	var out []api.ApiSignature

	switch n.Type() {
	case "class_declaration", "abstract_class_declaration":
		if name := n.ChildByFieldName("name"); name != nil {
			st.modelName = strings.TrimSuffix(f.text(name), "Class")
		}
	case "method_definition":
		if name := n.ChildByFieldName("name"); name != nil && name.Type() == "property_identifier" {
			st.methodName = f.text(name)
		}
		sig, err := f.methodSignature(n, st)
		if err != nil {
			return nil, st, err
		}
		out = append(out, sig)
	}

	for i := 0; i < int(n.NamedChildCount()); i++ {
		sigs, next, err := f.walk(n.NamedChild(i), st)
		if err != nil {
			return nil, st, err
		}
		out = append(out, sigs...)
		st = next
	}
	return out, st, nil
}

func (f *File) methodSignature(n *sitter.Node, st walkState) (api.ApiSignature, error) {
	sig := api.ApiSignature{
		ApiDecl:        api.ApiDecl{ModelName: st.modelName, MethodName: st.methodName},
		TypeParameters: []api.TypeParam{},
		Parameters:     []api.ApiParam{},
	}
	where := st.modelName + "." + st.methodName

	if tps := n.ChildByFieldName("type_parameters"); tps != nil {
		for _, tp := range namedChildren(tps) {
			if tp.Type() != "type_parameter" {
				continue
			}
			p := api.TypeParam{ID: f.text(tp.ChildByFieldName("name"))}
			if c := tp.ChildByFieldName("constraint"); c != nil {
				t, err := f.ResolveTypeNode(c)
				if err != nil {
					return sig, fmt.Errorf("%s: type parameter %s: %w", where, p.ID, err)
				}
				p.Constraint = t
			}
			sig.TypeParameters = append(sig.TypeParameters, p)
		}
	}

	if params := n.ChildByFieldName("parameters"); params != nil {
		for i, pn := range namedChildren(params) {
			if pn.Type() != "required_parameter" && pn.Type() != "optional_parameter" {
				continue
			}
			p, err := f.param(pn, i)
			if err != nil {
				return sig, fmt.Errorf("%s: %w", where, err)
			}
			sig.Parameters = append(sig.Parameters, p)
		}
	}

	rt := n.ChildByFieldName("return_type")
	if rt == nil {
		return sig, fmt.Errorf("%w: %s", ErrMissingReturnType, where)
	}
	t, err := f.ResolveTypeNode(rt)
	if err != nil {
		return sig, fmt.Errorf("%s: return type: %w", where, err)
	}
	sig.ReturnType = t
	return sig, nil
}

func (f *File) param(pn *sitter.Node, index int) (api.ApiParam, error) {
	p := api.ApiParam{Name: fmt.Sprintf("nonameAt%d", index)}
	if pat := pn.ChildByFieldName("pattern"); pat != nil && pat.Type() == "identifier" {
		p.Name = f.text(pat)
	}
	value := pn.ChildByFieldName("value")
	if value != nil {
		p.DefaultDef = f.text(value)
	}
	p.Optional = pn.Type() == "optional_parameter" || value != nil

	typ := pn.ChildByFieldName("type")
	if typ == nil {
		return p, fmt.Errorf("%w: parameter %s has no type annotation", ErrUnsupportedNode, p.Name)
	}
	t, err := f.ResolveTypeNode(typ)
	if err != nil {
		return p, fmt.Errorf("parameter %s: %w", p.Name, err)
	}
	p.Type = t
	return p, nil
}

package derive

import (
	"strings"

	"github.com/go-openapi/inflect"

	"github.com/agentic-research/syncgen/api"
)

// ToRenderingNode classifies s into the widget tree a template renders.
// name is the field name; the root of a tree is conventionally "root".
func ToRenderingNode(s Schema, name string) api.RenderingNode {
	node := api.RenderingNode{Name: name, Label: inflect.Camelize(name)}

	switch s := s.(type) {
	case Ref:
		return ToRenderingNode(s.Inner, name)
	case Optional:
		n := ToRenderingNode(s.Inner, name)
		n.Optional = true
		return n
	case Nullable:
		n := ToRenderingNode(s.Inner, name)
		n.Nullable = true
		return n
	case Union:
		if len(s.Options) == 0 {
			node.RenderType = api.RenderStringPlain
			return node
		}
		return ToRenderingNode(s.Options[0], name)
	case Object:
		node.RenderType = api.RenderObject
		node.Children = make([]api.RenderingNode, 0, len(s.Keys))
		for _, k := range s.Keys {
			node.Children = append(node.Children, ToRenderingNode(s.Shape[k], k))
		}
		return node
	case Array:
		if isString(s.Element) && strings.Contains(name, "images") {
			node.RenderType = api.RenderArrayImages
			return node
		}
		el := ToRenderingNode(s.Element, name)
		node.RenderType = api.RenderArray
		node.Element = &el
		return node
	}

	node.RenderType = renderType(name, s)
	return node
}

func isString(s Schema) bool {
	for {
		switch x := s.(type) {
		case String:
			return true
		case Ref:
			s = x.Inner
		default:
			return false
		}
	}
}

func renderType(name string, s Schema) api.RenderType {
	switch s := s.(type) {
	case String:
		switch {
		case strings.Contains(name, "img") || strings.Contains(name, "image"):
			return api.RenderStringImage
		case s.Description == "SQLDateTimeString":
			return api.RenderStringDateTime
		case strings.HasSuffix(name, "date"):
			return api.RenderStringDate
		}
		return api.RenderStringPlain
	case Number, BigInt:
		switch {
		case name == "id":
			return api.RenderNumberID
		case strings.HasSuffix(name, "_id"):
			return api.RenderNumberFkID
		}
		return api.RenderNumberPlain
	case Boolean:
		return api.RenderBoolean
	case Enum:
		return api.RenderEnums
	case Record:
		return api.RenderRecord
	}
	// any, unknown, literal
	return api.RenderStringPlain
}

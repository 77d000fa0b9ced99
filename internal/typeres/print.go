package typeres

import (
	"strconv"
	"strings"

	"github.com/agentic-research/syncgen/api"
)

// PrintType renders a descriptor back into TypeScript type syntax.
func PrintType(t api.TypeDescriptor) string {
	var b strings.Builder
	printType(&b, t)
	return b.String()
}

func printType(b *strings.Builder, t api.TypeDescriptor) {
	switch t := t.(type) {
	case nil:
		b.WriteString("unknown")
	case api.Primitive:
		b.WriteString(string(t))
	case api.StringLiteral:
		b.WriteString(strconv.Quote(t.Value))
	case api.NumericLiteral:
		b.WriteString(strconv.FormatFloat(t.Value, 'f', -1, 64))
	case api.ArrayType:
		switch t.Elements.(type) {
		case api.UnionType, api.IntersectionType:
			b.WriteByte('(')
			printType(b, t.Elements)
			b.WriteByte(')')
		default:
			printType(b, t.Elements)
		}
		b.WriteString("[]")
	case api.ObjectType:
		b.WriteString("{ ")
		for _, p := range t.Props {
			b.WriteString(p.Name)
			if p.Optional {
				b.WriteByte('?')
			}
			b.WriteString(": ")
			printType(b, p.Type)
			b.WriteString("; ")
		}
		b.WriteByte('}')
	case api.RefType:
		b.WriteString(t.ID)
		if len(t.Args) > 0 {
			b.WriteByte('<')
			printList(b, t.Args, ", ")
			b.WriteByte('>')
		}
	case api.UnionType:
		printList(b, t.Types, " | ")
	case api.IntersectionType:
		printList(b, t.Types, " & ")
	case api.IndexedAccessType:
		printType(b, t.Object)
		b.WriteByte('[')
		printType(b, t.Index)
		b.WriteByte(']')
	case api.TupleType:
		b.WriteByte('[')
		printList(b, t.Elements, ", ")
		b.WriteByte(']')
	case api.TypeParam:
		b.WriteString(t.ID)
		if t.Constraint != nil {
			b.WriteString(" extends ")
			printType(b, t.Constraint)
		}
	}
}

func printList(b *strings.Builder, ts []api.TypeDescriptor, sep string) {
	for i, t := range ts {
		if i > 0 {
			b.WriteString(sep)
		}
		printType(b, t)
	}
}

// PrintParams renders a parameter list, e.g. "id: number, opts?: X".
// Defaults are kept so the output is a valid declaration.
func PrintParams(params []api.ApiParam) string {
	parts := make([]string, len(params))
	for i, p := range params {
		s := p.Name
		if p.Optional && p.DefaultDef == "" {
			s += "?"
		}
		s += ": " + PrintType(p.Type)
		if p.DefaultDef != "" {
			s += " = " + p.DefaultDef
		}
		parts[i] = s
	}
	return strings.Join(parts, ", ")
}

// PrintTypeParams renders "<T extends X, U>" or "" when there are none.
func PrintTypeParams(tps []api.TypeParam) string {
	if len(tps) == 0 {
		return ""
	}
	parts := make([]string, len(tps))
	for i, tp := range tps {
		parts[i] = PrintType(tp)
	}
	return "<" + strings.Join(parts, ", ") + ">"
}

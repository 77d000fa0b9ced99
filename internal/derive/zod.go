package derive

import (
	"encoding/json"
	"fmt"
	"regexp"
	"strconv"
	"strings"
)

var identRe = regexp.MustCompile(`^[A-Za-z_$][A-Za-z0-9_$]*$`)

// ZodExpr prints s as a zod schema expression. Refs print as their id.
func ZodExpr(s Schema) string {
	var b strings.Builder
	writeZod(&b, s, 0)
	return b.String()
}

// Refs lists the ids of every Ref reachable from s, in first-seen order.
func Refs(s Schema) []string {
	seen := make(map[string]bool)
	var out []string
	var walk func(Schema)
	walk = func(s Schema) {
		switch s := s.(type) {
		case Ref:
			if !seen[s.ID] {
				seen[s.ID] = true
				out = append(out, s.ID)
			}
		case Object:
			for _, k := range s.Keys {
				walk(s.Shape[k])
			}
		case Array:
			walk(s.Element)
		case Record:
			walk(s.Value)
		case Union:
			for _, o := range s.Options {
				walk(o)
			}
		case Optional:
			walk(s.Inner)
		case Nullable:
			walk(s.Inner)
		}
	}
	walk(s)
	return out
}

func writeZod(b *strings.Builder, s Schema, depth int) {
	switch s := s.(type) {
	case Any:
		b.WriteString("z.any()")
	case Unknown:
		b.WriteString("z.unknown()")
	case String:
		b.WriteString("z.string()")
		if s.Format == "uuid" {
			b.WriteString(".uuid()")
		}
		if s.Length > 0 {
			fmt.Fprintf(b, ".length(%d)", s.Length)
		}
		if s.Min > 0 {
			fmt.Fprintf(b, ".min(%d)", s.Min)
		}
		if s.Max > 0 {
			fmt.Fprintf(b, ".max(%d)", s.Max)
		}
		if s.Pattern != nil {
			fmt.Fprintf(b, ".regex(/%s/)", s.Pattern.String())
		}
		if s.Description != "" {
			fmt.Fprintf(b, ".describe(%s)", strconv.Quote(s.Description))
		}
	case Number:
		b.WriteString("z.number()")
		if s.Int {
			b.WriteString(".int()")
		}
		if s.NonNegative {
			b.WriteString(".nonnegative()")
		}
	case BigInt:
		b.WriteString("z.bigint()")
		if s.NonNegative {
			b.WriteString(".nonnegative()")
		}
	case Boolean:
		b.WriteString("z.boolean()")
	case Enum:
		quoted := make([]string, len(s.Values))
		for i, v := range s.Values {
			quoted[i] = strconv.Quote(v)
		}
		fmt.Fprintf(b, "z.enum([%s])", strings.Join(quoted, ", "))
	case Literal:
		v, _ := json.Marshal(s.Value)
		fmt.Fprintf(b, "z.literal(%s)", v)
	case Object:
		if len(s.Keys) == 0 {
			b.WriteString("z.object({})")
			return
		}
		indent := strings.Repeat("  ", depth+1)
		b.WriteString("z.object({\n")
		for _, k := range s.Keys {
			key := k
			if !identRe.MatchString(k) {
				key = strconv.Quote(k)
			}
			b.WriteString(indent + key + ": ")
			writeZod(b, s.Shape[k], depth+1)
			b.WriteString(",\n")
		}
		b.WriteString(strings.Repeat("  ", depth) + "})")
	case Array:
		b.WriteString("z.array(")
		writeZod(b, s.Element, depth)
		b.WriteString(")")
	case Record:
		b.WriteString("z.record(")
		writeZod(b, s.Value, depth)
		b.WriteString(")")
	case Union:
		b.WriteString("z.union([")
		for i, o := range s.Options {
			if i > 0 {
				b.WriteString(", ")
			}
			writeZod(b, o, depth)
		}
		b.WriteString("])")
	case Optional:
		writeZod(b, s.Inner, depth)
		b.WriteString(".optional()")
	case Nullable:
		writeZod(b, s.Inner, depth)
		b.WriteString(".nullable()")
	case Ref:
		b.WriteString(s.ID)
	}
}

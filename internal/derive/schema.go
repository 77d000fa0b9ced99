// Package derive turns entity field descriptors into runtime-checkable
// schemas and classifies schemas into UI rendering trees.
package derive

import "regexp"

// Schema is a runtime type schema. The set of implementations is closed.
type Schema interface {
	schema()
}

type Any struct{}

type Unknown struct{}

// String constrains a string value. Zero Min, Max and Length are unset.
type String struct {
	Min, Max, Length int
	Pattern          *regexp.Regexp
	// Format is "" or "uuid".
	Format      string
	Description string
}

type Number struct {
	Int         bool
	NonNegative bool
}

type BigInt struct {
	NonNegative bool
}

type Boolean struct{}

type Enum struct {
	Values []string
}

type Literal struct {
	Value any
}

// Object is an ordered set of keyed schemas.
type Object struct {
	Keys  []string
	Shape map[string]Schema
}

type Array struct {
	Element Schema
}

type Record struct {
	Value Schema
}

type Union struct {
	Options []Schema
}

type Optional struct {
	Inner Schema
}

type Nullable struct {
	Inner Schema
}

// Ref is a schema reached through a registered id. It behaves as Inner
// everywhere except when printed, where the id is emitted.
type Ref struct {
	ID    string
	Inner Schema
}

func (Any) schema()      {}
func (Unknown) schema()  {}
func (String) schema()   {}
func (Number) schema()   {}
func (BigInt) schema()   {}
func (Boolean) schema()  {}
func (Enum) schema()     {}
func (Literal) schema()  {}
func (Object) schema()   {}
func (Array) schema()    {}
func (Record) schema()   {}
func (Union) schema()    {}
func (Optional) schema() {}
func (Nullable) schema() {}
func (Ref) schema()      {}

// NewObject builds an Object keeping the order of keys.
func NewObject() *Object {
	return &Object{Shape: make(map[string]Schema)}
}

// Set adds or replaces a key.
func (o *Object) Set(key string, s Schema) {
	if _, ok := o.Shape[key]; !ok {
		o.Keys = append(o.Keys, key)
	}
	o.Shape[key] = s
}

// Partial returns a copy with the named keys made optional.
func (o Object) Partial(keys ...string) Object {
	out := NewObject()
	for _, k := range o.Keys {
		out.Set(k, o.Shape[k])
	}
	for _, k := range keys {
		if s, ok := out.Shape[k]; ok {
			if _, already := s.(Optional); !already {
				out.Shape[k] = Optional{Inner: s}
			}
		}
	}
	return *out
}

// SQLDateTimePattern matches "YYYY-MM-DD" optionally followed by " HH:MM:SS".
var SQLDateTimePattern = regexp.MustCompile(`([0-9]{4}-[0-9]{2}-[0-9]{2}( [0-9]{2}:[0-9]{2}:[0-9]{2})*)$`)

// SQLDateTimeString is the shared schema of datetime and timestamp props.
var SQLDateTimeString = Ref{
	ID: "SQLDateTimeString",
	Inner: String{
		Min:         10,
		Max:         19,
		Pattern:     SQLDateTimePattern,
		Description: "SQLDateTimeString",
	},
}

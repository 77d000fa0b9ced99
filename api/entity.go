package api

import (
	"bytes"
	"encoding/json"
	"fmt"
)

// PropType is the kind tag of an entity field descriptor.
type PropType string

const (
	PropInteger    PropType = "integer"
	PropBigInteger PropType = "bigInteger"
	PropText       PropType = "text"
	PropString     PropType = "string"
	PropEnum       PropType = "enum"
	PropFloat      PropType = "float"
	PropDouble     PropType = "double"
	PropDecimal    PropType = "decimal"
	PropBoolean    PropType = "boolean"
	PropDate       PropType = "date"
	PropTime       PropType = "time"
	PropDateTime   PropType = "datetime"
	PropTimestamp  PropType = "timestamp"
	PropJSON       PropType = "json"
	PropUUID       PropType = "uuid"
	PropVirtual    PropType = "virtual"
	PropRelation   PropType = "relation"
)

// RelationType describes the cardinality of a relation prop.
type RelationType string

const (
	BelongsToOne RelationType = "BelongsToOne"
	OneToOne     RelationType = "OneToOne"
	HasMany      RelationType = "HasMany"
	ManyToMany   RelationType = "ManyToMany"
)

// Prop is one typed attribute of an entity.
// Type selects which of the remaining fields apply.
type Prop struct {
	Name     string   `json:"name"`
	Type     PropType `json:"type"`
	Desc     string   `json:"desc,omitempty"`
	Nullable bool     `json:"nullable,omitempty"`
	// Unsigned applies to numeric kinds.
	Unsigned  bool   `json:"unsigned,omitempty"`
	DBDefault string `json:"dbDefault,omitempty"`

	// string / enum
	Length int `json:"length,omitempty"`
	// text: "tinytext", "text", "mediumtext" or "longtext"
	TextType string `json:"textType,omitempty"`
	// decimal / float / double
	Precision int `json:"precision,omitempty"`
	Scale     int `json:"scale,omitempty"`
	// enum / json / virtual: id of the schema the value is validated against
	ID string `json:"id,omitempty"`

	// relation
	With          string       `json:"with,omitempty"`
	RelationType  RelationType `json:"relationType,omitempty"`
	HasJoinColumn bool         `json:"hasJoinColumn,omitempty"`
	OnUpdate      string       `json:"onUpdate,omitempty"`
	OnDelete      string       `json:"onDelete,omitempty"`
}

// IsRelation reports whether the prop references another entity.
func (p Prop) IsRelation() bool { return p.Type == PropRelation }

// OwnsJoinColumn reports whether a relation prop stores the foreign key on this side.
func (p Prop) OwnsJoinColumn() bool {
	if !p.IsRelation() {
		return false
	}
	return p.RelationType == BelongsToOne || (p.RelationType == OneToOne && p.HasJoinColumn)
}

// IsToMany reports whether a relation prop resolves to a list of rows.
func (p Prop) IsToMany() bool {
	return p.IsRelation() && (p.RelationType == HasMany || p.RelationType == ManyToMany)
}

// Index is a database index declared on an entity.
type Index struct {
	Type    string   `json:"type"`
	Columns []string `json:"columns"`
}

// Label is one key of an enum label set.
type Label struct {
	Key   string
	Label string
}

// EnumLabels is an ordered key→label set. Declaration order is significant:
// generated enums and dropdowns list values in the order they were written.
type EnumLabels []Label

// Keys returns the enum values in declaration order.
func (l EnumLabels) Keys() []string {
	keys := make([]string, len(l))
	for i, lb := range l {
		keys[i] = lb.Key
	}
	return keys
}

// UnmarshalJSON decodes a JSON object while keeping its key order.
func (l *EnumLabels) UnmarshalJSON(b []byte) error {
	dec := json.NewDecoder(bytes.NewReader(b))
	tok, err := dec.Token()
	if err != nil {
		return err
	}
	if d, ok := tok.(json.Delim); !ok || d != '{' {
		return fmt.Errorf("enum labels: expected object, got %v", tok)
	}
	var out EnumLabels
	for dec.More() {
		kt, err := dec.Token()
		if err != nil {
			return err
		}
		key, ok := kt.(string)
		if !ok {
			return fmt.Errorf("enum labels: expected key, got %v", kt)
		}
		var label string
		if err := dec.Decode(&label); err != nil {
			return fmt.Errorf("enum labels: value of %s: %w", key, err)
		}
		out = append(out, Label{Key: key, Label: label})
	}
	*l = out
	return nil
}

// MarshalJSON encodes the labels as a JSON object in declaration order.
func (l EnumLabels) MarshalJSON() ([]byte, error) {
	var buf bytes.Buffer
	buf.WriteByte('{')
	for i, lb := range l {
		if i > 0 {
			buf.WriteByte(',')
		}
		k, _ := json.Marshal(lb.Key)
		v, _ := json.Marshal(lb.Label)
		buf.Write(k)
		buf.WriteByte(':')
		buf.Write(v)
	}
	buf.WriteByte('}')
	return buf.Bytes(), nil
}

// Entity is a named data definition loaded from an *.entity.json file.
type Entity struct {
	ID       string                `json:"id"`
	ParentID string                `json:"parentId,omitempty"`
	Table    string                `json:"table,omitempty"`
	Title    string                `json:"title,omitempty"`
	Props    []Prop                `json:"props"`
	Indexes  []Index               `json:"indexes,omitempty"`
	Subsets  map[string][]string   `json:"subsets,omitempty"`
	Enums    map[string]EnumLabels `json:"enums,omitempty"`
}

// Prop looks up a prop by name.
func (e *Entity) Prop(name string) (Prop, bool) {
	for _, p := range e.Props {
		if p.Name == name {
			return p, true
		}
	}
	return Prop{}, false
}

// NodeType tags a PropNode.
type NodeType string

const (
	NodePlain  NodeType = "plain"
	NodeArray  NodeType = "array"
	NodeObject NodeType = "object"
)

// PropNode is the tree form of a subset's field expressions.
// A plain node wraps exactly one prop; array/object nodes own ordered children.
// The root object node of a subset has no prop.
type PropNode struct {
	NodeType NodeType   `json:"nodeType"`
	Prop     *Prop      `json:"prop,omitempty"`
	Children []PropNode `json:"children,omitempty"`
}

// EntityNames holds the spellings of an entity id used in paths and identifiers.
type EntityNames struct {
	// Fs is the kebab-case directory/file stem, e.g. "brand-item".
	Fs       string `json:"fs"`
	FsPlural string `json:"fsPlural"`
	// Camel is lowerCamelCase, e.g. "brandItem".
	Camel       string `json:"camel"`
	CamelPlural string `json:"camelPlural"`
	// Capital is UpperCamelCase, e.g. "BrandItem".
	Capital       string `json:"capital"`
	CapitalPlural string `json:"capitalPlural"`
	// Upper is SCREAMING_SNAKE, e.g. "BRAND_ITEM".
	Upper string `json:"upper"`
	// Constant is the id of the entity's own enum namespace, e.g. "BRAND_ITEM".
	Constant string `json:"constant"`
}

package api

import "encoding/json"

// TypeDescriptor is the structural type language reconstructed from source
// declarations. The set of implementations is closed: Primitive,
// StringLiteral, NumericLiteral, ArrayType, ObjectType, RefType, UnionType,
// IntersectionType, IndexedAccessType, TupleType and TypeParam.
type TypeDescriptor interface {
	typeDescriptor()
}

// Primitive is an atom of the type language.
type Primitive string

const (
	TypeAny       Primitive = "any"
	TypeUnknown   Primitive = "unknown"
	TypeString    Primitive = "string"
	TypeNumber    Primitive = "number"
	TypeBoolean   Primitive = "boolean"
	TypeUndefined Primitive = "undefined"
	TypeNull      Primitive = "null"
	TypeVoid      Primitive = "void"
	TypeTrue      Primitive = "true"
	TypeFalse     Primitive = "false"
)

type StringLiteral struct {
	Value string
}

type NumericLiteral struct {
	Value float64
}

type ArrayType struct {
	Elements TypeDescriptor
}

// ObjectType is a type literal. Index signatures appear as props whose name
// is the bracketed key expression, e.g. "[key: string]".
type ObjectType struct {
	Props []ApiParam
}

type RefType struct {
	ID   string
	Args []TypeDescriptor
}

type UnionType struct {
	Types []TypeDescriptor
}

type IntersectionType struct {
	Types []TypeDescriptor
}

type IndexedAccessType struct {
	Object TypeDescriptor
	Index  TypeDescriptor
}

type TupleType struct {
	Elements []TypeDescriptor
}

// TypeParam is a generic parameter of a method, e.g. `T extends string`.
type TypeParam struct {
	ID         string
	Constraint TypeDescriptor
}

func (Primitive) typeDescriptor()         {}
func (StringLiteral) typeDescriptor()     {}
func (NumericLiteral) typeDescriptor()    {}
func (ArrayType) typeDescriptor()         {}
func (ObjectType) typeDescriptor()        {}
func (RefType) typeDescriptor()           {}
func (UnionType) typeDescriptor()         {}
func (IntersectionType) typeDescriptor()  {}
func (IndexedAccessType) typeDescriptor() {}
func (TupleType) typeDescriptor()         {}
func (TypeParam) typeDescriptor()         {}

func (t StringLiteral) MarshalJSON() ([]byte, error) {
	return json.Marshal(map[string]any{"t": "string-literal", "value": t.Value})
}

func (t NumericLiteral) MarshalJSON() ([]byte, error) {
	return json.Marshal(map[string]any{"t": "numeric-literal", "value": t.Value})
}

func (t ArrayType) MarshalJSON() ([]byte, error) {
	return json.Marshal(map[string]any{"t": "array", "elementsType": t.Elements})
}

func (t ObjectType) MarshalJSON() ([]byte, error) {
	props := t.Props
	if props == nil {
		props = []ApiParam{}
	}
	return json.Marshal(map[string]any{"t": "object", "props": props})
}

func (t RefType) MarshalJSON() ([]byte, error) {
	m := map[string]any{"t": "ref", "id": t.ID}
	if len(t.Args) > 0 {
		m["args"] = t.Args
	}
	return json.Marshal(m)
}

func (t UnionType) MarshalJSON() ([]byte, error) {
	return json.Marshal(map[string]any{"t": "union", "types": t.Types})
}

func (t IntersectionType) MarshalJSON() ([]byte, error) {
	return json.Marshal(map[string]any{"t": "intersection", "types": t.Types})
}

func (t IndexedAccessType) MarshalJSON() ([]byte, error) {
	return json.Marshal(map[string]any{"t": "indexed-access", "object": t.Object, "index": t.Index})
}

func (t TupleType) MarshalJSON() ([]byte, error) {
	return json.Marshal(map[string]any{"t": "tuple-type", "elements": t.Elements})
}

func (t TypeParam) MarshalJSON() ([]byte, error) {
	m := map[string]any{"t": "type-param", "id": t.ID}
	if t.Constraint != nil {
		m["constraint"] = t.Constraint
	}
	return json.Marshal(m)
}

// ApiParam is a named, typed parameter or object member.
type ApiParam struct {
	Name     string         `json:"name"`
	Type     TypeDescriptor `json:"type"`
	Optional bool           `json:"optional"`
	// DefaultDef is the printable default value expression, if any.
	DefaultDef string `json:"defaultDef,omitempty"`
}

// ApiOptions are the options given to an @api decorator.
type ApiOptions struct {
	HTTPMethod   string   `json:"httpMethod,omitempty"`
	ContentType  string   `json:"contentType,omitempty"`
	Clients      []string `json:"clients,omitempty"`
	Path         string   `json:"path,omitempty"`
	ResourceName string   `json:"resourceName,omitempty"`
	Guards       []string `json:"guards,omitempty"`
	Description  string   `json:"description,omitempty"`
}

// ApiDecl is a registered API method, as recorded by the decorator registry.
type ApiDecl struct {
	ModelName  string     `json:"modelName"`
	MethodName string     `json:"methodName"`
	Path       string     `json:"path"`
	Options    ApiOptions `json:"options"`
}

// ApiSignature is a registered API method extended with the types read from
// its declaration. It is rebuilt from source on every read.
type ApiSignature struct {
	ApiDecl
	TypeParameters []TypeParam    `json:"typeParameters"`
	Parameters     []ApiParam     `json:"parameters"`
	ReturnType     TypeDescriptor `json:"returnType"`
}

package api

// RenderType selects the widget a template renders for a field.
type RenderType string

const (
	RenderObject         RenderType = "object"
	RenderObjectPick     RenderType = "object-pick"
	RenderArray          RenderType = "array"
	RenderArrayImages    RenderType = "array-images"
	RenderStringPlain    RenderType = "string-plain"
	RenderStringDate     RenderType = "string-date"
	RenderStringDateTime RenderType = "string-datetime"
	RenderStringImage    RenderType = "string-image"
	RenderNumberID       RenderType = "number-id"
	RenderNumberFkID     RenderType = "number-fk_id"
	RenderNumberPlain    RenderType = "number-plain"
	RenderBoolean        RenderType = "boolean"
	RenderEnums          RenderType = "enums"
	RenderRecord         RenderType = "record"
)

// RenderingNode is the UI-oriented classification of a schema.
type RenderingNode struct {
	Name       string            `json:"name"`
	Label      string            `json:"label"`
	RenderType RenderType        `json:"renderType"`
	Optional   bool              `json:"optional,omitempty"`
	Nullable   bool              `json:"nullable,omitempty"`
	Children   []RenderingNode   `json:"children,omitempty"`
	Element    *RenderingNode    `json:"element,omitempty"`
	Config     map[string]string `json:"config,omitempty"`
}

// Child returns the direct child with the given name.
func (n *RenderingNode) Child(name string) (*RenderingNode, bool) {
	for i := range n.Children {
		if n.Children[i].Name == name {
			return &n.Children[i], true
		}
	}
	return nil, false
}

package typeres

import (
	"fmt"
	"strings"
	"sync"

	"github.com/go-openapi/inflect"
	sitter "github.com/smacker/go-tree-sitter"
	"github.com/smacker/go-tree-sitter/typescript/typescript"

	"github.com/agentic-research/syncgen/api"
)

// Registry records the API methods declared with the @api decorator.
// It is an explicit value owned by the caller; there is no package-level
// registry.
type Registry struct {
	mu       sync.RWMutex
	entries  []api.ApiDecl
	index    map[string]int
	resolved map[string]bool
}

func NewRegistry() *Registry {
	return &Registry{
		index:    make(map[string]int),
		resolved: make(map[string]bool),
	}
}

func declKey(model, method string) string { return model + "." + method }

// Register adds or replaces a declaration. Registration order is kept.
func (r *Registry) Register(d api.ApiDecl) {
	r.mu.Lock()
	defer r.mu.Unlock()
	k := declKey(d.ModelName, d.MethodName)
	if i, ok := r.index[k]; ok {
		r.entries[i] = d
		return
	}
	r.index[k] = len(r.entries)
	r.entries = append(r.entries, d)
}

// Lookup returns the declaration for model.method.
func (r *Registry) Lookup(model, method string) (api.ApiDecl, bool) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	i, ok := r.index[declKey(model, method)]
	if !ok {
		return api.ApiDecl{}, false
	}
	return r.entries[i], true
}

// Entries returns every declaration in registration order.
func (r *Registry) Entries() []api.ApiDecl {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return append([]api.ApiDecl(nil), r.entries...)
}

func (r *Registry) markResolved(model, method string) {
	r.mu.Lock()
	r.resolved[declKey(model, method)] = true
	r.mu.Unlock()
}

// Unresolved lists declarations no extracted method has matched yet.
func (r *Registry) Unresolved() []api.ApiDecl {
	r.mu.RLock()
	defer r.mu.RUnlock()
	var out []api.ApiDecl
	for _, d := range r.entries {
		if !r.resolved[declKey(d.ModelName, d.MethodName)] {
			out = append(out, d)
		}
	}
	return out
}

const methodQuery = `(method_definition name: (property_identifier) @method) @scope`

// ScanDecorators registers every class method of f decorated with
// @api(...). The path defaults to /<camelModel>/<method>; options are read
// from the decorator's object literal argument.
func (r *Registry) ScanDecorators(f *File) (int, error) {
	q, err := sitter.NewQuery([]byte(methodQuery), typescript.GetLanguage())
	if err != nil {
		return 0, fmt.Errorf("invalid method query: %w", err)
	}
	defer q.Close()

	qc := sitter.NewQueryCursor()
	defer qc.Close()
	qc.Exec(q, f.Root)

	n := 0
	for {
		m, ok := qc.NextMatch()
		if !ok {
			break
		}
		var scope, name *sitter.Node
		for _, c := range m.Captures {
			switch q.CaptureNameForId(c.Index) {
			case "scope":
				scope = c.Node
			case "method":
				name = c.Node
			}
		}
		if scope == nil || name == nil {
			continue
		}
		args, ok := f.apiDecorator(scope)
		if !ok {
			continue
		}
		class := enclosingClass(scope)
		if class == nil {
			continue
		}
		model := strings.TrimSuffix(f.text(class.ChildByFieldName("name")), "Class")
		method := f.text(name)
		opts := f.decoratorOptions(args)

		path := opts.Path
		if path == "" {
			path = "/" + inflect.CamelizeDownFirst(model) + "/" + method
		}
		r.Register(api.ApiDecl{ModelName: model, MethodName: method, Path: path, Options: opts})
		n++
	}
	return n, nil
}

// apiDecorator finds an @api(...) decorator attached to a method. The
// grammar places decorators either inside the method node or as the
// preceding siblings in the class body; both are checked.
func (f *File) apiDecorator(method *sitter.Node) (*sitter.Node, bool) {
	var decorators []*sitter.Node
	for i := 0; i < int(method.NamedChildCount()); i++ {
		if c := method.NamedChild(i); c.Type() == "decorator" {
			decorators = append(decorators, c)
		}
	}
	for s := method.PrevNamedSibling(); s != nil && s.Type() == "decorator"; s = s.PrevNamedSibling() {
		decorators = append(decorators, s)
	}
	for _, d := range decorators {
		call := d.NamedChild(0)
		if call == nil || call.Type() != "call_expression" {
			continue
		}
		fn := call.ChildByFieldName("function")
		if fn == nil || f.text(fn) != "api" {
			continue
		}
		return call.ChildByFieldName("arguments"), true
	}
	return nil, false
}

func enclosingClass(n *sitter.Node) *sitter.Node {
	for p := n.Parent(); p != nil; p = p.Parent() {
		switch p.Type() {
		case "class_declaration", "abstract_class_declaration":
			if p.ChildByFieldName("name") != nil {
				return p
			}
		case "method_definition", "function_declaration":
			return nil
		}
	}
	return nil
}

// decoratorOptions reads the literal properties of the first object
// argument. Non-literal values are ignored.
func (f *File) decoratorOptions(args *sitter.Node) api.ApiOptions {
	var opts api.ApiOptions
	if args == nil {
		return opts
	}
	var obj *sitter.Node
	for _, c := range namedChildren(args) {
		if c.Type() == "object" {
			obj = c
			break
		}
	}
	if obj == nil {
		return opts
	}
	for _, pair := range namedChildren(obj) {
		if pair.Type() != "pair" {
			continue
		}
		key := pair.ChildByFieldName("key")
		val := pair.ChildByFieldName("value")
		if key == nil || val == nil {
			continue
		}
		switch unquote(f.text(key)) {
		case "httpMethod":
			opts.HTTPMethod = f.stringValue(val)
		case "contentType":
			opts.ContentType = f.stringValue(val)
		case "path":
			opts.Path = f.stringValue(val)
		case "resourceName":
			opts.ResourceName = f.stringValue(val)
		case "description":
			opts.Description = f.stringValue(val)
		case "clients":
			opts.Clients = f.stringList(val)
		case "guards":
			opts.Guards = f.stringList(val)
		}
	}
	return opts
}

func (f *File) stringValue(n *sitter.Node) string {
	if n.Type() != "string" && n.Type() != "template_string" {
		return ""
	}
	return unquote(f.text(n))
}

func (f *File) stringList(n *sitter.Node) []string {
	if n.Type() != "array" {
		return nil
	}
	var out []string
	for _, c := range namedChildren(n) {
		if s := f.stringValue(c); s != "" {
			out = append(out, s)
		}
	}
	return out
}

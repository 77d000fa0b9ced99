package render

import (
	"bytes"
	"fmt"
	"strings"
	"text/template"

	"github.com/go-openapi/inflect"

	"github.com/agentic-research/syncgen/api"
	"github.com/agentic-research/syncgen/internal/derive"
	"github.com/agentic-research/syncgen/internal/typeres"
)

// Rendered is the output of a template before import resolution.
// Target and Path together locate the file relative to the app root;
// Target may contain the :target placeholder.
type Rendered struct {
	Target        string
	Path          string
	Body          string
	ImportKeys    []string
	CustomHeaders []string
	PreTemplates  []PreTemplate
}

// PreTemplate is a dependent template rendered after its parent.
type PreTemplate struct {
	Key     api.TemplateKey
	Options api.TemplateOptions
}

// Context is everything a template render may read. Fields other than
// Options, Names and Entity are filled only for the keys that need them.
type Context struct {
	Options api.TemplateOptions
	Names   api.EntityNames
	Entity  *api.Entity

	// service, generated_http
	Signatures []api.ApiSignature
	// view_list, view_list_columns, model
	Columns    *api.RenderingNode
	ListParams *api.RenderingNode
	// view_form
	SaveParams *api.RenderingNode

	// Schemas resolves schema ids for generated and generated_go.
	Schemas *derive.Registry
	// ModulePath reports whether an import key can be resolved.
	HasModule func(key string) bool
}

// Template renders one file kind.
type Template struct {
	Key api.TemplateKey
	// Location returns the target directory and the path below it.
	// componentID selects the enum of view_enums_* templates.
	Location func(names api.EntityNames, componentID string) (target, path string)
	Render   func(c *Context) (*Rendered, error)
}

// templates is the closed template table.
var templates = map[api.TemplateKey]*Template{}

func register(t *Template) {
	templates[t.Key] = t
}

// Lookup returns the template for key.
func Lookup(key api.TemplateKey) (*Template, error) {
	t, ok := templates[key]
	if !ok {
		return nil, fmt.Errorf("%w: %q", ErrUnknownTemplate, key)
	}
	return t, nil
}

// SourceTarget stands for the entity source tree in template targets.
// The renderer substitutes the configured directory for it.
const SourceTarget = ":source"

// targets of the client-side templates
const (
	servicesTarget   = api.TargetPlaceholder + "/src/services"
	componentsTarget = api.TargetPlaceholder + "/src/components"
	pagesTarget      = api.TargetPlaceholder + "/src/pages/admin"
)

var funcs = template.FuncMap{
	"camelize":   inflect.Camelize,
	"camelLower": inflect.CamelizeDownFirst,
	"humanize":   inflect.Humanize,
	"printType":  typeres.PrintType,
	"params":     typeres.PrintParams,
	"typeParams": typeres.PrintTypeParams,
	"zod":        derive.ZodExpr,
	"quote":      func(s string) string { return fmt.Sprintf("%q", s) },
	"join":       strings.Join,
	"lower":      strings.ToLower,
	"upper":      strings.ToUpper,
}

// mustParse compiles a body template. Bodies use {% %} delimiters so that
// TypeScript and JSX braces pass through untouched.
func mustParse(name, body string) *template.Template {
	return template.Must(template.New(name).Delims("{%", "%}").Funcs(funcs).Parse(body))
}

func execute(t *template.Template, data any) (string, error) {
	var buf bytes.Buffer
	if err := t.Execute(&buf, data); err != nil {
		return "", fmt.Errorf("execute template %s: %w", t.Name(), err)
	}
	return strings.TrimSpace(buf.String()) + "\n", nil
}

// fixedLocation returns a Location placing the file at target/pathFn(names).
func fixedLocation(target string, pathFn func(n api.EntityNames) string) func(api.EntityNames, string) (string, string) {
	return func(n api.EntityNames, _ string) (string, string) {
		return target, pathFn(n)
	}
}

package render

import (
	"encoding/json"
	"fmt"
	"regexp"
	"sort"
	"strings"

	"github.com/go-openapi/inflect"

	"github.com/agentic-research/syncgen/api"
	"github.com/agentic-research/syncgen/internal/derive"
)

const zodHeader = `import { z } from "zod";`

func init() {
	register(&Template{
		Key:      api.TemplateEntity,
		Location: fixedLocation(SourceTarget, func(n api.EntityNames) string { return n.Fs + "/" + n.Fs + ".entity.json" }),
		Render:   renderEntity,
	})
	register(&Template{
		Key:      api.TemplateInitGenerated,
		Location: fixedLocation(SourceTarget, generatedPath),
		Render:   renderGenerated,
	})
	register(&Template{
		Key:      api.TemplateGenerated,
		Location: fixedLocation(SourceTarget, generatedPath),
		Render:   renderGenerated,
	})
	register(&Template{
		Key:      api.TemplateInitTypes,
		Location: fixedLocation(SourceTarget, func(n api.EntityNames) string { return n.Fs + "/" + n.Fs + ".types.ts" }),
		Render:   renderInitTypes,
	})
	register(&Template{
		Key:      api.TemplateGeneratedGo,
		Location: fixedLocation(SourceTarget, func(n api.EntityNames) string { return n.Fs + "/" + n.Fs + ".generated.go" }),
		Render:   renderGeneratedGo,
	})
	register(&Template{
		Key:      api.TemplateGeneratedHTTP,
		Location: fixedLocation(SourceTarget, func(n api.EntityNames) string { return n.Fs + "/" + n.Fs + ".generated.http" }),
		Render:   renderGeneratedHTTP,
	})
	register(&Template{
		Key:      api.TemplateModel,
		Location: fixedLocation(SourceTarget, func(n api.EntityNames) string { return n.Fs + "/" + n.Fs + ".model.ts" }),
		Render:   renderModel,
	})
	register(&Template{
		Key:      api.TemplateModelTest,
		Location: fixedLocation(SourceTarget, func(n api.EntityNames) string { return n.Fs + "/" + n.Fs + ".model.test.ts" }),
		Render:   renderModelTest,
	})
	register(&Template{
		Key:      api.TemplateService,
		Location: fixedLocation(servicesTarget, func(n api.EntityNames) string { return n.Fs + "/" + n.Fs + ".service.ts" }),
		Render:   renderService,
	})
}

func generatedPath(n api.EntityNames) string { return n.Fs + "/" + n.Fs + ".generated.ts" }

func located(c *Context, key api.TemplateKey, componentID string) *Rendered {
	target, p := templates[key].Location(c.Names, componentID)
	return &Rendered{Target: target, Path: p}
}

// SeedEntity is the definition a new entity starts from.
func SeedEntity(opts api.TemplateOptions) *api.Entity {
	id := opts.EntityID
	table := opts.Table
	if table == "" {
		table = inflect.Pluralize(inflect.Underscore(id))
	}
	title := opts.Title
	if title == "" {
		title = id
	}
	return &api.Entity{
		ID:       id,
		ParentID: opts.ParentID,
		Table:    table,
		Title:    title,
		Props: []api.Prop{
			{Name: "id", Type: api.PropInteger, Unsigned: true, Desc: "ID"},
			{Name: "created_at", Type: api.PropTimestamp, Desc: "Created at", DBDefault: "CURRENT_TIMESTAMP"},
		},
		Indexes: []api.Index{},
		Subsets: map[string][]string{"A": {"id", "created_at"}},
		Enums: map[string]api.EnumLabels{
			id + "OrderBy":     {{Key: "id-desc", Label: "Newest first"}},
			id + "SearchField": {{Key: "id", Label: "ID"}},
		},
	}
}

func renderEntity(c *Context) (*Rendered, error) {
	e := c.Entity
	if e == nil {
		e = SeedEntity(c.Options)
	}
	b, err := json.MarshalIndent(e, "", "  ")
	if err != nil {
		return nil, fmt.Errorf("encode entity %s: %w", e.ID, err)
	}
	r := located(c, api.TemplateEntity, "")
	r.Body = string(b) + "\n"
	return r, nil
}

var generatedTmpl = mustParse("generated", `
{% range .Enums -%}
export const {% .ID %} = {% zod .Schema %};
export type {% .ID %} = z.infer<typeof {% .ID %}>;
export const {% .ID %}Label = {
{%- range .Labels %}
  {% quote .Key %}: {% quote .Label %},
{%- end %}
};

{% end -%}
// BaseSchema
export const {% .E %}BaseSchema = {% zod .Base %};
export type {% .E %}BaseSchema = z.infer<typeof {% .E %}BaseSchema>;

// BaseListParams
export const {% .E %}BaseListParams = {% zod .ListParams %};
export type {% .E %}BaseListParams = z.infer<typeof {% .E %}BaseListParams>;

// Subsets
export const {% .E %}SubsetKey = {% zod .SubsetKey %};
export type {% .E %}SubsetKey = z.infer<typeof {% .E %}SubsetKey>;
{% range .Subsets %}
export const {% $.E %}Subset{% .Key %} = {% zod .Schema %};
export type {% $.E %}Subset{% .Key %} = z.infer<typeof {% $.E %}Subset{% .Key %}>;
{% end %}
export type {% .E %}SubsetMapping = {
{%- range .Subsets %}
  {% .Key %}: {% $.E %}Subset{% .Key %};
{%- end %}
};
export const {% .E %}SubsetQueries: { [key in {% .E %}SubsetKey]: string[] } = {
{%- range .Subsets %}
  {% .Key %}: [{% range $i, $f := .Fields %}{% if $i %}, {% end %}{% quote $f %}{% end %}],
{%- end %}
};

export type {% .E %}FieldExpr = {% range $i, $f := .FieldExprs %}{% if $i %} | {% end %}{% quote $f %}{% end %};
`)

type enumView struct {
	ID     string
	Schema derive.Schema
	Labels api.EnumLabels
}

type subsetView struct {
	Key    string
	Schema derive.Schema
	Fields []string
}

func subsetKeys(e *api.Entity) []string {
	keys := make([]string, 0, len(e.Subsets))
	for k := range e.Subsets {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	return keys
}

func enumIDs(e *api.Entity) []string {
	ids := make([]string, 0, len(e.Enums))
	for id := range e.Enums {
		ids = append(ids, id)
	}
	sort.Strings(ids)
	return ids
}

func renderGenerated(c *Context) (*Rendered, error) {
	e := c.Entity
	if e == nil {
		return nil, fmt.Errorf("generated: entity %s is not loaded", c.Options.EntityID)
	}
	lookup := func(id string) (derive.Schema, error) { return c.Schemas.Lookup(id) }

	data := struct {
		E          string
		Enums      []enumView
		Base       derive.Schema
		ListParams derive.Schema
		SubsetKey  derive.Schema
		Subsets    []subsetView
		FieldExprs []string
	}{E: e.ID}

	var refs []string
	for _, id := range enumIDs(e) {
		s, err := lookup(id)
		if err != nil {
			return nil, err
		}
		data.Enums = append(data.Enums, enumView{ID: id, Schema: s, Labels: e.Enums[id]})
	}
	var err error
	if data.Base, err = lookup(e.ID + "BaseSchema"); err != nil {
		return nil, err
	}
	if data.ListParams, err = lookup(e.ID + "BaseListParams"); err != nil {
		return nil, err
	}
	if data.SubsetKey, err = lookup(e.ID + "SubsetKey"); err != nil {
		return nil, err
	}
	refs = append(refs, derive.Refs(data.Base)...)
	refs = append(refs, derive.Refs(data.ListParams)...)
	for _, k := range subsetKeys(e) {
		s, err := lookup(e.ID + "Subset" + k)
		if err != nil {
			return nil, err
		}
		refs = append(refs, derive.Refs(s)...)
		data.Subsets = append(data.Subsets, subsetView{Key: k, Schema: s, Fields: e.Subsets[k]})
	}
	for _, p := range e.Props {
		data.FieldExprs = append(data.FieldExprs, p.Name)
	}

	body, err := execute(generatedTmpl, data)
	if err != nil {
		return nil, err
	}
	r := located(c, api.TemplateGenerated, "")
	r.Body = body
	r.ImportKeys = refs
	r.CustomHeaders = []string{zodHeader}
	return r, nil
}

var initTypesTmpl = mustParse("init_types", `
// {% .ID %} - ListParams
export const {% .ID %}ListParams = {% .ID %}BaseListParams;
export type {% .ID %}ListParams = z.infer<typeof {% .ID %}ListParams>;

// {% .ID %} - SaveParams
export const {% .ID %}SaveParams = {% .ID %}BaseSchema.partial({
  id: true,
  created_at: true,
});
export type {% .ID %}SaveParams = z.infer<typeof {% .ID %}SaveParams>;
`)

func renderInitTypes(c *Context) (*Rendered, error) {
	body, err := execute(initTypesTmpl, struct{ ID string }{c.Options.EntityID})
	if err != nil {
		return nil, err
	}
	r := located(c, api.TemplateInitTypes, "")
	r.Body = body
	r.ImportKeys = []string{c.Options.EntityID + "BaseSchema", c.Options.EntityID + "BaseListParams"}
	r.CustomHeaders = []string{zodHeader}
	return r, nil
}

var generatedHTTPTmpl = mustParse("generated_http", `
{% range . -%}
{% .Method %} {{baseUrl}}/api{% .Path %}{% .Query %}
Content-Type: {% .ContentType %}
{% if .Body %}
{% .Body %}
{% end %}
###

{% end -%}
`)

type httpRequest struct {
	Method, Path, Query, ContentType, Body string
}

func renderGeneratedHTTP(c *Context) (*Rendered, error) {
	var reqs []httpRequest
	for _, sig := range c.Signatures {
		req := httpRequest{
			Method:      strings.ToUpper(sig.Options.HTTPMethod),
			Path:        sig.Path,
			ContentType: sig.Options.ContentType,
		}
		if req.Method == "" {
			req.Method = "GET"
		}
		if req.ContentType == "" {
			req.ContentType = "application/json"
		}
		names := make([]string, len(sig.Parameters))
		for i, p := range sig.Parameters {
			names[i] = p.Name
		}
		if req.Method == "GET" {
			if len(names) > 0 {
				req.Query = "?" + strings.Join(names, "=&") + "="
			}
		} else {
			fields := make([]string, len(names))
			for i, n := range names {
				fields[i] = fmt.Sprintf("  %q: null", n)
			}
			req.Body = "{\n" + strings.Join(fields, ",\n") + "\n}"
		}
		reqs = append(reqs, req)
	}
	body, err := execute(generatedHTTPTmpl, reqs)
	if err != nil {
		return nil, err
	}
	r := located(c, api.TemplateGeneratedHTTP, "")
	r.Body = body
	return r, nil
}

var generatedGoTmpl = mustParse("generated_go", `
// Code generated by syncgen. DO NOT EDIT.

package {% .Package %}
{% range .Enums %}
// {% .ID %} values.
const (
{%- range .Consts %}
	{% .Name %} = {% quote .Value %}
{%- end %}
)
{% end %}
{%- range .Structs %}
type {% .Name %} {% .Type %}
{% end %}
`)

type goConst struct{ Name, Value string }

type goEnum struct {
	ID     string
	Consts []goConst
}

type goStruct struct{ Name, Type string }

var nonIdent = regexp.MustCompile(`[^A-Za-z0-9]+`)

func goName(s string) string {
	n := inflect.Camelize(nonIdent.ReplaceAllString(s, "_"))
	switch {
	case n == "Id":
		return "ID"
	case strings.HasSuffix(n, "Id"):
		return strings.TrimSuffix(n, "Id") + "ID"
	}
	return n
}

// goType maps a schema to a Go type expression.
func goType(s derive.Schema, depth int) string {
	switch s := s.(type) {
	case derive.Ref:
		return goType(s.Inner, depth)
	case derive.Optional:
		return goType(derive.Nullable{Inner: s.Inner}, depth)
	case derive.Nullable:
		inner := goType(s.Inner, depth)
		if strings.HasPrefix(inner, "[]") || strings.HasPrefix(inner, "map[") || inner == "any" {
			return inner
		}
		return "*" + inner
	case derive.String, derive.Enum:
		return "string"
	case derive.Number:
		if s.Int {
			return "int64"
		}
		return "float64"
	case derive.BigInt:
		return "string"
	case derive.Boolean:
		return "bool"
	case derive.Array:
		return "[]" + goType(s.Element, depth)
	case derive.Record:
		return "map[string]" + goType(s.Value, depth)
	case derive.Object:
		var b strings.Builder
		b.WriteString("struct {\n")
		for _, k := range s.Keys {
			fmt.Fprintf(&b, "%s%s %s `json:\"%s\"`\n", strings.Repeat("\t", depth+1), goName(k), goType(s.Shape[k], depth+1), k)
		}
		b.WriteString(strings.Repeat("\t", depth) + "}")
		return b.String()
	}
	return "any"
}

func renderGeneratedGo(c *Context) (*Rendered, error) {
	e := c.Entity
	if e == nil {
		return nil, fmt.Errorf("generated_go: entity %s is not loaded", c.Options.EntityID)
	}
	data := struct {
		Package string
		Enums   []goEnum
		Structs []goStruct
	}{Package: strings.ReplaceAll(c.Names.Fs, "-", "")}

	for _, id := range enumIDs(e) {
		en := goEnum{ID: id}
		for _, l := range e.Enums[id] {
			en.Consts = append(en.Consts, goConst{Name: id + goName(l.Key), Value: l.Key})
		}
		data.Enums = append(data.Enums, en)
	}
	ids := []string{e.ID + "BaseSchema"}
	for _, k := range subsetKeys(e) {
		ids = append(ids, e.ID+"Subset"+k)
	}
	for _, id := range ids {
		s, err := c.Schemas.Lookup(id)
		if err != nil {
			return nil, err
		}
		data.Structs = append(data.Structs, goStruct{Name: id, Type: goType(s, 0)})
	}

	body, err := execute(generatedGoTmpl, data)
	if err != nil {
		return nil, err
	}
	r := located(c, api.TemplateGeneratedGo, "")
	r.Body = body
	return r, nil
}

var modelTmpl = mustParse("model", `
/*
  {% .Names.Capital %} Model
*/
class {% .Names.Capital %}ModelClass extends BaseModelClass {
  modelName = "{% .Names.Capital %}";
  listColumns = [{% range $i, $c := .Columns %}{% if $i %}, {% end %}{% quote $c %}{% end %}];

  @api({ httpMethod: "GET", clients: ["axios", "swr"], resourceName: "{% .Names.Capital %}" })
  async findById<T extends {% .E %}SubsetKey>(subset: T, id: number): Promise<{% .E %}SubsetMapping[T]> {
    const { rows } = await this.findMany(subset, { id, num: 1, page: 1 });
    if (rows.length == 0) {
      throw new NotFoundException(` + "`" + `{% .Title %} ID ${id} does not exist` + "`" + `);
    }
    return rows[0];
  }

  @api({ httpMethod: "GET", clients: ["axios", "swr"], resourceName: "{% .Names.CapitalPlural %}" })
  async findMany<T extends {% .E %}SubsetKey>(subset: T, params: {% .E %}ListParams = {}): Promise<ListResult<{% .E %}SubsetMapping[T]>> {
    params = { num: 24, page: 1, ...params };
    const subsetQuery = {% .E %}SubsetQueries[subset];
    const qb = this.getQueryBuilder().from("{% .Table %}");

    if (params.id) {
      qb.whereIn("{% .Table %}.id", asArray(params.id));
    }
{%- if .SearchFields %}
    if (params.search && params.keyword && params.keyword.length > 0) {
{%- range .SearchFields %}
      if (params.search === "{% . %}") {
        qb.where("{% $.Table %}.{% . %}", "like", ` + "`%${params.keyword}%`" + `);
      }
{%- end %}
    }
{%- end %}
{%- if .OrderBys %}
    switch (params.orderBy) {
{%- range .OrderBys %}
      case "{% .Key %}":
        qb.orderBy("{% $.Table %}.{% .Column %}", "{% .Dir %}");
        break;
{%- end %}
      default:
        break;
    }
{%- end %}

    return this.executeSubsetQuery({ subset, qb, params, subsetQuery });
  }

  @api({ httpMethod: "POST" })
  async save(saveParamsArray: {% .E %}SaveParams[]): Promise<number[]> {
    const wdb = this.getDB("w");
    return wdb.transaction(async (trx) => {
      const ids: number[] = [];
      for (const saveParams of saveParamsArray) {
        ids.push(await this.upsert(trx, "{% .Table %}", saveParams));
      }
      return ids;
    });
  }

  @api({ httpMethod: "GET" })
  async del(ids: number[]): Promise<number> {
    const wdb = this.getDB("w");
    await wdb("{% .Table %}").whereIn("{% .Table %}.id", ids).delete();
    return ids.length;
  }
}

export const {% .Names.Capital %}Model = new {% .Names.Capital %}ModelClass();
`)

type orderBy struct{ Key, Column, Dir string }

func renderModel(c *Context) (*Rendered, error) {
	e := c.Entity
	if e == nil {
		return nil, fmt.Errorf("model: entity %s is not loaded", c.Options.EntityID)
	}
	data := struct {
		E            string
		Names        api.EntityNames
		Title        string
		Table        string
		Columns      []string
		SearchFields []string
		OrderBys     []orderBy
	}{E: e.ID, Names: c.Names, Title: e.Title, Table: e.Table}
	if data.Table == "" {
		data.Table = inflect.Pluralize(inflect.Underscore(e.ID))
	}

	if c.Columns != nil {
		for _, col := range c.Columns.Children {
			name := col.Name
			if picked := col.Config["picked"]; picked != "" {
				name += "." + picked
			} else if col.Element != nil && col.Element.Config["picked"] != "" {
				name += "." + col.Element.Config["picked"]
			}
			data.Columns = append(data.Columns, name)
		}
	}
	if c.ListParams != nil {
		if _, ok := c.ListParams.Child("search"); ok {
			data.SearchFields = e.Enums[e.ID+"SearchField"].Keys()
		}
		if _, ok := c.ListParams.Child("orderBy"); ok {
			for _, key := range e.Enums[e.ID+"OrderBy"].Keys() {
				col, dir := key, "asc"
				if i := strings.LastIndex(key, "-"); i > 0 {
					col, dir = key[:i], key[i+1:]
				}
				data.OrderBys = append(data.OrderBys, orderBy{Key: key, Column: col, Dir: dir})
			}
		}
	}

	body, err := execute(modelTmpl, data)
	if err != nil {
		return nil, err
	}
	r := located(c, api.TemplateModel, "")
	r.Body = body
	r.ImportKeys = []string{
		e.ID + "SubsetKey",
		e.ID + "SubsetMapping",
		e.ID + "SubsetQueries",
		e.ID + "ListParams",
		e.ID + "SaveParams",
	}
	r.CustomHeaders = []string{
		`import { BaseModelClass, ListResult, asArray, NotFoundException, api } from "sonamu";`,
	}
	r.PreTemplates = []PreTemplate{{Key: api.TemplateModelTest, Options: c.Options}}
	return r, nil
}

var modelTestTmpl = mustParse("model_test", `
describe("{% .Capital %}Model", () => {
  test("findById", async () => {
    const row = await {% .Capital %}Model.findById("A", 1);
    expect(row.id).toBe(1);
  });

  test("findMany", async () => {
    const { rows } = await {% .Capital %}Model.findMany("A", { num: 10, page: 1 });
    expect(rows.length).toBeLessThanOrEqual(10);
  });
});
`)

func renderModelTest(c *Context) (*Rendered, error) {
	body, err := execute(modelTestTmpl, c.Names)
	if err != nil {
		return nil, err
	}
	r := located(c, api.TemplateModelTest, "")
	r.Body = body
	r.CustomHeaders = []string{
		`import { describe, test, expect } from "vitest";`,
		fmt.Sprintf(`import { %sModel } from "./%s.model";`, c.Names.Capital, c.Names.Fs),
	}
	return r, nil
}

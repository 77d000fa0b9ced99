package render

import (
	"fmt"
	"strings"
	"text/template"

	"github.com/agentic-research/syncgen/api"
	"github.com/agentic-research/syncgen/internal/entity"
	"github.com/agentic-research/syncgen/internal/typeres"
)

func init() {
	register(&Template{
		Key:      api.TemplateViewList,
		Location: fixedLocation(pagesTarget, func(n api.EntityNames) string { return n.FsPlural + "/index.tsx" }),
		Render:   renderViewList,
	})
	register(&Template{
		Key:      api.TemplateViewListColumns,
		Location: fixedLocation(componentsTarget, func(n api.EntityNames) string { return n.Fs + "/" + n.Capital + "ListColumns.tsx" }),
		Render:   renderViewListColumns,
	})
	register(&Template{
		Key:      api.TemplateViewSearchInput,
		Location: fixedLocation(componentsTarget, func(n api.EntityNames) string { return n.Fs + "/" + n.Capital + "SearchInput.tsx" }),
		Render:   simpleView(api.TemplateViewSearchInput, searchInputTmpl),
	})
	register(&Template{
		Key:      api.TemplateViewForm,
		Location: fixedLocation(pagesTarget, func(n api.EntityNames) string { return n.FsPlural + "/form.tsx" }),
		Render:   renderViewForm,
	})
	register(&Template{
		Key:      api.TemplateViewIDAllSelect,
		Location: fixedLocation(componentsTarget, func(n api.EntityNames) string { return n.Fs + "/" + n.Capital + "IdAllSelect.tsx" }),
		Render:   simpleView(api.TemplateViewIDAllSelect, idAllSelectTmpl),
	})
	register(&Template{
		Key:      api.TemplateViewIDAsyncSelect,
		Location: fixedLocation(componentsTarget, func(n api.EntityNames) string { return n.Fs + "/" + n.Capital + "IdAsyncSelect.tsx" }),
		Render:   simpleView(api.TemplateViewIDAsyncSelect, idAsyncSelectTmpl),
	})
	register(&Template{
		Key:      api.TemplateViewEnumsSelect,
		Location: enumLocation("Select"),
		Render:   renderEnumView(api.TemplateViewEnumsSelect, enumsSelectTmpl),
	})
	register(&Template{
		Key:      api.TemplateViewEnumsDropdown,
		Location: enumLocation("Dropdown"),
		Render:   renderEnumView(api.TemplateViewEnumsDropdown, enumsDropdownTmpl),
	})
	register(&Template{
		Key:      api.TemplateViewEnumsButtons,
		Location: enumLocation("ButtonSet"),
		Render:   renderEnumView(api.TemplateViewEnumsButtons, enumsButtonSetTmpl),
	})
}

func enumLocation(suffix string) func(api.EntityNames, string) (string, string) {
	return func(n api.EntityNames, enumID string) (string, string) {
		return componentsTarget, n.Fs + "/" + enumID + suffix + ".tsx"
	}
}

func servicesImport(names api.EntityNames, module string, keys ...string) string {
	return fmt.Sprintf(`import { %s } from "src/services/%s/%s.%s";`, strings.Join(keys, ", "), names.Fs, names.Fs, module)
}

const reactHeader = `import React, { useState } from "react";`

// service

var serviceTmpl = mustParse("service", `
export namespace {% .Names.Capital %}Service {
{%- range .Functions %}
  export async function {% .Name %}{% .TypeParams %}({% .Params %}): {% .ReturnType %} {
    return fetch({
      method: "{% .Method %}",
{%- if .IsGet %}
      url: ` + "`/api{% .Path %}?${qs.stringify({ {% .Args %} })}`" + `,
{%- else %}
      url: "/api{% .Path %}",
      data: { {% .Args %} },
{%- end %}
    });
  }
{% end -%}
}
`)

type serviceFunc struct {
	Name, TypeParams, Params, ReturnType, Method, Path, Args string
	IsGet                                                    bool
}

// builtinTypes are referenced without an import.
var builtinTypes = map[string]bool{
	"Promise": true, "Partial": true, "Required": true, "Readonly": true,
	"Record": true, "Pick": true, "Omit": true, "Array": true, "Date": true,
}

func collectRefs(t api.TypeDescriptor, skip map[string]bool, add func(string)) {
	switch t := t.(type) {
	case api.RefType:
		if !skip[t.ID] && !builtinTypes[t.ID] {
			add(t.ID)
		}
		for _, a := range t.Args {
			collectRefs(a, skip, add)
		}
	case api.ArrayType:
		collectRefs(t.Elements, skip, add)
	case api.ObjectType:
		for _, p := range t.Props {
			collectRefs(p.Type, skip, add)
		}
	case api.UnionType:
		for _, x := range t.Types {
			collectRefs(x, skip, add)
		}
	case api.IntersectionType:
		for _, x := range t.Types {
			collectRefs(x, skip, add)
		}
	case api.IndexedAccessType:
		collectRefs(t.Object, skip, add)
		collectRefs(t.Index, skip, add)
	case api.TupleType:
		for _, x := range t.Elements {
			collectRefs(x, skip, add)
		}
	case api.TypeParam:
		collectRefs(t.Constraint, skip, add)
	}
}

func renderService(c *Context) (*Rendered, error) {
	var fns []serviceFunc
	var keys []string
	seen := make(map[string]bool)
	add := func(id string) {
		if seen[id] {
			return
		}
		seen[id] = true
		if c.HasModule != nil && c.HasModule(id) {
			keys = append(keys, id)
		}
	}

	for _, sig := range c.Signatures {
		skip := make(map[string]bool)
		for _, tp := range sig.TypeParameters {
			skip[tp.ID] = true
		}
		for _, tp := range sig.TypeParameters {
			collectRefs(tp, skip, add)
		}
		args := make([]string, len(sig.Parameters))
		for i, p := range sig.Parameters {
			collectRefs(p.Type, skip, add)
			args[i] = p.Name
		}
		collectRefs(sig.ReturnType, skip, add)

		method := strings.ToUpper(sig.Options.HTTPMethod)
		if method == "" {
			method = "GET"
		}
		fns = append(fns, serviceFunc{
			Name:       sig.MethodName,
			TypeParams: typeres.PrintTypeParams(sig.TypeParameters),
			Params:     typeres.PrintParams(sig.Parameters),
			ReturnType: typeres.PrintType(sig.ReturnType),
			Method:     method,
			Path:       sig.Path,
			Args:       strings.Join(args, ", "),
			IsGet:      method == "GET",
		})
	}

	body, err := execute(serviceTmpl, struct {
		Names     api.EntityNames
		Functions []serviceFunc
	}{c.Names, fns})
	if err != nil {
		return nil, err
	}
	r := located(c, api.TemplateService, "")
	r.Body = body
	r.ImportKeys = keys
	r.CustomHeaders = []string{
		zodHeader,
		`import qs from "qs";`,
		`import { fetch, ListResult } from "../sonamu.shared";`,
	}
	return r, nil
}

// list views

type columnView struct {
	Label string
	Cell  string
}

// cellExpr renders the JSX showing one column of a row.
func cellExpr(n api.RenderingNode) string {
	field := "row." + n.Name
	switch n.RenderType {
	case api.RenderObjectPick:
		return fmt.Sprintf("<>{%s?.%s}</>", field, n.Config["picked"])
	case api.RenderArray:
		if n.Element != nil && n.Element.RenderType == api.RenderObjectPick {
			return fmt.Sprintf(`<>{%s.map((r) => r.%s).join(", ")}</>`, field, n.Element.Config["picked"])
		}
		return fmt.Sprintf(`<>{%s.join(", ")}</>`, field)
	case api.RenderArrayImages:
		return fmt.Sprintf(`<>{%s.map((src) => <img src={src} key={src} />)}</>`, field)
	case api.RenderStringImage:
		return fmt.Sprintf("<img src={%s} />", field)
	case api.RenderStringDate:
		return fmt.Sprintf("<span>{dateF(%s)}</span>", field)
	case api.RenderStringDateTime:
		return fmt.Sprintf("<span>{datetimeF(%s)}</span>", field)
	case api.RenderBoolean:
		return fmt.Sprintf(`<>{%s ? "O" : "X"}</>`, field)
	case api.RenderObject, api.RenderRecord:
		return fmt.Sprintf("<>{JSON.stringify(%s)}</>", field)
	}
	return fmt.Sprintf("<>{%s}</>", field)
}

func columnViews(c *Context) []columnView {
	if c.Columns == nil {
		return nil
	}
	cols := make([]columnView, 0, len(c.Columns.Children))
	for _, ch := range c.Columns.Children {
		cols = append(cols, columnView{Label: ch.Label, Cell: cellExpr(ch)})
	}
	return cols
}

var listColumnsTmpl = mustParse("view_list_columns", `
export const {% .Names.Capital %}ListColumns: {
  label: string;
  tc: (row: {% .E %}SubsetA) => React.ReactNode;
}[] = [
{%- range .Columns %}
  { label: {% quote .Label %}, tc: (row) => {% .Cell %} },
{%- end %}
];
`)

func renderViewListColumns(c *Context) (*Rendered, error) {
	body, err := execute(listColumnsTmpl, struct {
		Names   api.EntityNames
		E       string
		Columns []columnView
	}{c.Names, c.Options.EntityID, columnViews(c)})
	if err != nil {
		return nil, err
	}
	r := located(c, api.TemplateViewListColumns, "")
	r.Body = body
	r.CustomHeaders = []string{
		`import React from "react";`,
		`import { dateF, datetimeF } from "src/services/sonamu.shared";`,
		servicesImport(c.Names, "generated", c.Options.EntityID+"SubsetA"),
	}
	return r, nil
}

var listTmpl = mustParse("view_list", `
export default function {% .Names.CapitalPlural %}List() {
  const [listParams, setListParams] = useState<{% .E %}ListParams>({
    num: 24,
    page: 1,
{%- if .HasSearch %}
    search: "id",
    keyword: "",
{%- end %}
  });
  const { data, error } = {% .Names.Capital %}Service.useFindMany("A", listParams);
  const { rows, total } = data ?? {};

  return (
    <div className="list {% .Names.Fs %}-list">
{%- if .HasSearch %}
      <{% .E %}SearchInput
        input={{ value: listParams.keyword, onChange: (_e, { value }) => setListParams({ ...listParams, keyword: value, page: 1 }) }}
        dropdown={{ value: listParams.search, onChange: (_e, { value }) => setListParams({ ...listParams, search: value }) }}
      />
{%- end %}
{%- if .HasOrderBy %}
      <{% .E %}OrderByDropdown
        value={listParams.orderBy}
        onChange={(_e, { value }) => setListParams({ ...listParams, orderBy: value })}
      />
{%- end %}
      {error && <div className="error">{error.message}</div>}
      <table>
        <thead>
          <tr>
            {{% .Names.Capital %}ListColumns.map((col) => (
              <th key={col.label}>{col.label}</th>
            ))}
          </tr>
        </thead>
        <tbody>
          {rows?.map((row) => (
            <tr key={row.id}>
              {{% .Names.Capital %}ListColumns.map((col) => (
                <td key={col.label}>{col.tc(row)}</td>
              ))}
            </tr>
          ))}
        </tbody>
      </table>
      <div className="total">{total ?? 0}</div>
    </div>
  );
}
`)

func renderViewList(c *Context) (*Rendered, error) {
	e := c.Entity
	if e == nil {
		return nil, fmt.Errorf("view_list: entity %s is not loaded", c.Options.EntityID)
	}
	_, hasSearch := e.Enums[e.ID+"SearchField"]
	_, hasOrderBy := e.Enums[e.ID+"OrderBy"]
	if c.ListParams != nil {
		_, inParams := c.ListParams.Child("search")
		hasSearch = hasSearch && inParams
	}

	body, err := execute(listTmpl, struct {
		Names      api.EntityNames
		E          string
		HasSearch  bool
		HasOrderBy bool
	}{c.Names, e.ID, hasSearch, hasOrderBy})
	if err != nil {
		return nil, err
	}

	r := located(c, api.TemplateViewList, "")
	r.Body = body
	r.CustomHeaders = []string{
		reactHeader,
		servicesImport(c.Names, "service", c.Names.Capital+"Service"),
		servicesImport(c.Names, "types", e.ID+"ListParams"),
		fmt.Sprintf(`import { %sListColumns } from "src/components/%s/%sListColumns";`, c.Names.Capital, c.Names.Fs, c.Names.Capital),
	}
	r.PreTemplates = []PreTemplate{{Key: api.TemplateViewListColumns, Options: c.Options}}
	if hasSearch {
		r.CustomHeaders = append(r.CustomHeaders, fmt.Sprintf(`import { %sSearchInput } from "src/components/%s/%sSearchInput";`, e.ID, c.Names.Fs, e.ID))
		r.PreTemplates = append(r.PreTemplates,
			PreTemplate{Key: api.TemplateViewSearchInput, Options: c.Options},
			PreTemplate{Key: api.TemplateViewEnumsDropdown, Options: withEnum(c.Options, e.ID+"SearchField")},
		)
	}
	if hasOrderBy {
		r.CustomHeaders = append(r.CustomHeaders, fmt.Sprintf(`import { %sOrderByDropdown } from "src/components/%s/%sOrderByDropdown";`, e.ID, c.Names.Fs, e.ID))
		r.PreTemplates = append(r.PreTemplates, PreTemplate{Key: api.TemplateViewEnumsDropdown, Options: withEnum(c.Options, e.ID+"OrderBy")})
	}
	return r, nil
}

func withEnum(opts api.TemplateOptions, enumID string) api.TemplateOptions {
	opts.EnumID = enumID
	return opts
}

// form view

type formField struct {
	Name  string
	Label string
	Input string
}

var formTmpl = mustParse("view_form", `
export default function {% .Names.CapitalPlural %}Form({ id }: { id?: number }) {
  const [form, setForm] = useState<{% .E %}SaveParams>({} as {% .E %}SaveParams);
  const register = (name: keyof {% .E %}SaveParams) => ({
    value: form[name],
    onChange: (_e: unknown, { value }: { value: unknown }) => setForm({ ...form, [name]: value }),
  });

  const handleSubmit = async () => {
    const [savedId] = await {% .Names.Capital %}Service.save([{ ...form, id }]);
    return savedId;
  };

  return (
    <form className="form {% .Names.Fs %}-form" onSubmit={handleSubmit}>
{%- range .Fields %}
      <label>
        {% .Label %}
        {% .Input %}
      </label>
{%- end %}
      <button type="submit">Save</button>
    </form>
  );
}
`)

func renderViewForm(c *Context) (*Rendered, error) {
	e := c.Entity
	if e == nil {
		return nil, fmt.Errorf("view_form: entity %s is not loaded", c.Options.EntityID)
	}
	r := located(c, api.TemplateViewForm, "")
	r.CustomHeaders = []string{
		reactHeader,
		servicesImport(c.Names, "service", c.Names.Capital+"Service"),
		servicesImport(c.Names, "types", e.ID+"SaveParams"),
	}

	var fields []formField
	if c.SaveParams != nil {
		for _, n := range c.SaveParams.Children {
			if n.Name == "id" || n.Name == "created_at" {
				continue
			}
			input, pre, header := formInput(c, e, n)
			fields = append(fields, formField{Name: n.Name, Label: n.Label, Input: input})
			if pre != nil {
				r.PreTemplates = append(r.PreTemplates, *pre)
			}
			if header != "" {
				r.CustomHeaders = append(r.CustomHeaders, header)
			}
		}
	}

	body, err := execute(formTmpl, struct {
		Names  api.EntityNames
		E      string
		Fields []formField
	}{c.Names, e.ID, fields})
	if err != nil {
		return nil, err
	}
	r.Body = body
	return r, nil
}

// formInput picks the input widget of a form field. Foreign keys and enums
// use generated select components, rendered as pre-templates.
func formInput(c *Context, e *api.Entity, n api.RenderingNode) (string, *PreTemplate, string) {
	reg := fmt.Sprintf(`{...register(%q)}`, n.Name)
	switch n.RenderType {
	case api.RenderNumberFkID:
		rel, ok := e.Prop(strings.TrimSuffix(n.Name, "_id"))
		if ok && rel.IsRelation() {
			names := entity.NamesFromID(rel.With)
			header := fmt.Sprintf(`import { %sIdAsyncSelect } from "src/components/%s/%sIdAsyncSelect";`, names.Capital, names.Fs, names.Capital)
			pre := &PreTemplate{Key: api.TemplateViewIDAsyncSelect, Options: api.TemplateOptions{EntityID: rel.With}}
			return fmt.Sprintf("<%sIdAsyncSelect %s />", names.Capital, reg), pre, header
		}
		return fmt.Sprintf(`<input type="number" %s />`, reg), nil, ""
	case api.RenderEnums:
		p, ok := e.Prop(n.Name)
		if ok && p.ID != "" {
			header := fmt.Sprintf(`import { %sSelect } from "src/components/%s/%sSelect";`, p.ID, c.Names.Fs, p.ID)
			pre := &PreTemplate{Key: api.TemplateViewEnumsSelect, Options: withEnum(c.Options, p.ID)}
			return fmt.Sprintf("<%sSelect %s />", p.ID, reg), pre, header
		}
	case api.RenderNumberPlain, api.RenderNumberID:
		return fmt.Sprintf(`<input type="number" %s />`, reg), nil, ""
	case api.RenderBoolean:
		return fmt.Sprintf(`<input type="checkbox" %s />`, reg), nil, ""
	case api.RenderStringDate:
		return fmt.Sprintf(`<input type="date" %s />`, reg), nil, ""
	case api.RenderStringDateTime:
		return fmt.Sprintf(`<input type="datetime-local" %s />`, reg), nil, ""
	case api.RenderStringImage, api.RenderArrayImages:
		return fmt.Sprintf(`<input type="file" accept="image/*" %s />`, reg), nil, ""
	case api.RenderObject, api.RenderRecord, api.RenderArray:
		return fmt.Sprintf("<textarea %s />", reg), nil, ""
	}
	return fmt.Sprintf(`<input type="text" %s />`, reg), nil, ""
}

// simple component views

var searchInputTmpl = mustParse("view_search_input", `
export function {% .Names.Capital %}SearchInput({
  input: { value: inputValue, onChange: inputOnChange },
  dropdown: dropdownProps,
}: {
  input: { value?: string; onChange?: (e: unknown, data: { value: string }) => void };
  dropdown: React.ComponentProps<typeof {% .Names.Capital %}SearchFieldDropdown>;
}) {
  const [keyword, setKeyword] = useState<string>(inputValue ?? "");

  const handleKeyDown = (e: { code: string }) => {
    if (inputOnChange && e.code === "Enter") {
      inputOnChange(e, { value: keyword });
    }
  };

  return (
    <div className="search-input">
      <{% .Names.Capital %}SearchFieldDropdown {...dropdownProps} />
      <input
        placeholder="Search..."
        value={keyword}
        onChange={(e) => setKeyword(e.target.value)}
        onKeyDown={handleKeyDown}
      />
    </div>
  );
}
`)

var idAllSelectTmpl = mustParse("view_id_all_select", `
export function {% .Names.Capital %}IdAllSelect({
  value,
  onChange,
}: {
  value?: number;
  onChange?: (e: unknown, data: { value: number }) => void;
}) {
  const { data } = {% .Names.Capital %}Service.useFindMany("A", { num: 0, page: 1 });
  return (
    <select value={value} onChange={(e) => onChange?.(e, { value: Number(e.target.value) })}>
      {data?.rows.map((row) => (
        <option key={row.id} value={row.id}>
          {row.id}
        </option>
      ))}
    </select>
  );
}
`)

var idAsyncSelectTmpl = mustParse("view_id_async_select", `
export function {% .Names.Capital %}IdAsyncSelect({
  value,
  onChange,
}: {
  value?: number;
  onChange?: (e: unknown, data: { value: number }) => void;
}) {
  const [keyword, setKeyword] = useState("");
  const { data } = {% .Names.Capital %}Service.useFindMany("A", { num: 12, page: 1, search: "id", keyword });
  return (
    <div className="async-select">
      <input value={keyword} onChange={(e) => setKeyword(e.target.value)} />
      <select value={value} onChange={(e) => onChange?.(e, { value: Number(e.target.value) })}>
        {data?.rows.map((row) => (
          <option key={row.id} value={row.id}>
            {row.id}
          </option>
        ))}
      </select>
    </div>
  );
}
`)

func simpleView(key api.TemplateKey, t *template.Template) func(*Context) (*Rendered, error) {
	return func(c *Context) (*Rendered, error) {
		body, err := execute(t, struct{ Names api.EntityNames }{c.Names})
		if err != nil {
			return nil, err
		}
		r := located(c, key, "")
		r.Body = body
		r.CustomHeaders = []string{reactHeader}
		switch key {
		case api.TemplateViewSearchInput:
			r.CustomHeaders = append(r.CustomHeaders, fmt.Sprintf(
				`import { %sSearchFieldDropdown } from "src/components/%s/%sSearchFieldDropdown";`,
				c.Names.Capital, c.Names.Fs, c.Names.Capital))
		default:
			r.CustomHeaders = append(r.CustomHeaders, servicesImport(c.Names, "service", c.Names.Capital+"Service"))
		}
		return r, nil
	}
}

// enum views

func renderEnumView(key api.TemplateKey, t *template.Template) func(*Context) (*Rendered, error) {
	return func(c *Context) (*Rendered, error) {
		id := c.Options.EnumID
		if id == "" {
			return nil, fmt.Errorf("%s: enum id is required", key)
		}
		body, err := execute(t, struct{ ID string }{id})
		if err != nil {
			return nil, err
		}
		r := located(c, key, id)
		r.Body = body
		r.CustomHeaders = []string{reactHeader, servicesImport(c.Names, "generated", id, id+"Label")}
		return r, nil
	}
}

var enumsSelectTmpl = mustParse("view_enums_select", `
export function {% .ID %}Select({
  value,
  onChange,
}: {
  value?: {% .ID %};
  onChange?: (e: unknown, data: { value: {% .ID %} }) => void;
}) {
  return (
    <select value={value} onChange={(e) => onChange?.(e, { value: e.target.value as {% .ID %} })}>
      {{% .ID %}.options.map((key) => (
        <option key={key} value={key}>
          {{% .ID %}Label[key]}
        </option>
      ))}
    </select>
  );
}
`)

var enumsDropdownTmpl = mustParse("view_enums_dropdown", `
export function {% .ID %}Dropdown({
  value,
  onChange,
}: {
  value?: {% .ID %};
  onChange?: (e: unknown, data: { value: {% .ID %} }) => void;
}) {
  const [open, setOpen] = useState(false);
  return (
    <div className="dropdown" onClick={() => setOpen(!open)}>
      <span>{value ? {% .ID %}Label[value] : "-"}</span>
      {open && (
        <ul>
          {{% .ID %}.options.map((key) => (
            <li key={key} onClick={(e) => onChange?.(e, { value: key })}>
              {{% .ID %}Label[key]}
            </li>
          ))}
        </ul>
      )}
    </div>
  );
}
`)

var enumsButtonSetTmpl = mustParse("view_enums_buttonset", `
export function {% .ID %}ButtonSet({
  value,
  onChange,
}: {
  value?: {% .ID %};
  onChange?: (e: unknown, data: { value: {% .ID %} }) => void;
}) {
  return (
    <div className="button-set">
      {{% .ID %}.options.map((key) => (
        <button key={key} className={key === value ? "active" : ""} onClick={(e) => onChange?.(e, { value: key })}>
          {{% .ID %}Label[key]}
        </button>
      ))}
    </div>
  );
}
`)

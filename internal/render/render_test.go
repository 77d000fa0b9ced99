package render

import (
	"context"
	"strings"
	"testing"

	"github.com/go-git/go-billy/v5/memfs"
	"github.com/go-git/go-billy/v5/util"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/agentic-research/syncgen/api"
	"github.com/agentic-research/syncgen/internal/derive"
	"github.com/agentic-research/syncgen/internal/entity"
	"github.com/agentic-research/syncgen/internal/typeres"
)

const sourceRoot = "api/src/application"

const brandJSON = `{
  "id": "Brand",
  "table": "brands",
  "title": "Brand",
  "props": [
    {"name": "id", "type": "integer", "unsigned": true, "desc": "ID"},
    {"name": "name", "type": "string", "length": 64, "desc": "Name"},
    {"name": "user", "type": "relation", "with": "User", "relationType": "BelongsToOne", "nullable": true},
    {"name": "status", "type": "enum", "id": "BrandStatus", "length": 16},
    {"name": "created_at", "type": "timestamp"}
  ],
  "subsets": {"A": ["id", "name", "user.id", "user.title", "status", "created_at"]},
  "enums": {
    "BrandOrderBy": {"id-desc": "Newest"},
    "BrandSearchField": {"id": "ID", "name": "Name"},
    "BrandStatus": {"active": "Active", "hidden": "Hidden"}
  }
}`

const userJSON = `{
  "id": "User",
  "props": [
    {"name": "id", "type": "integer"},
    {"name": "title", "type": "string", "length": 32}
  ],
  "subsets": {"A": ["id", "title"]}
}`

const brandModelTS = `
import { api, BaseModelClass, ListResult } from "sonamu";

class BrandModelClass extends BaseModelClass {
  @api({ httpMethod: "GET" })
  async findById<T extends BrandSubsetKey>(subset: T, id: number): Promise<BrandSubsetMapping[T]> {
    return this.findOne(subset, { id });
  }

  @api({ httpMethod: "POST" })
  async save(spa: BrandSaveParams[]): Promise<number[]> {
    return [];
  }
}

export const BrandModel = new BrandModelClass();
`

func newRenderer(t *testing.T) *Renderer {
	t.Helper()
	bfs := memfs.New()
	require.NoError(t, util.WriteFile(bfs, sourceRoot+"/brand/brand.entity.json", []byte(brandJSON), 0o644))
	require.NoError(t, util.WriteFile(bfs, sourceRoot+"/user/user.entity.json", []byte(userJSON), 0o644))
	require.NoError(t, util.WriteFile(bfs, sourceRoot+"/brand/brand.model.ts", []byte(brandModelTS), 0o644))

	entities := entity.NewStore(bfs, sourceRoot, map[string]string{
		"SQLDateTimeString": "sonamu",
		"ListResult":        "sonamu",
	})
	require.NoError(t, entities.Load(context.Background()))
	return NewRenderer(bfs, sourceRoot, entities, derive.NewRegistry(entities), typeres.NewRegistry())
}

func TestRenderer_InitTypesSeedsEntity(t *testing.T) {
	r := newRenderer(t)

	out, err := r.Render(context.Background(), api.TemplateInitTypes, api.TemplateOptions{EntityID: "Product"})
	require.NoError(t, err)
	require.Len(t, out, 1)

	assert.Equal(t, sourceRoot+"/product/product.types.ts", out[0].Path)
	assert.True(t, strings.HasPrefix(out[0].Code, `import { z } from "zod";`+"\n"))
	assert.Contains(t, out[0].Code, "import { ProductBaseSchema, ProductBaseListParams } from './product.generated'")
	assert.Contains(t, out[0].Code, "export const ProductSaveParams = ProductBaseSchema.partial({")

	_, err = r.entities.Get("Product")
	assert.NoError(t, err, "seed entity should be registered")
}

func TestRenderer_Generated(t *testing.T) {
	r := newRenderer(t)

	out, err := r.Render(context.Background(), api.TemplateGenerated, api.TemplateOptions{EntityID: "Brand"})
	require.NoError(t, err)
	require.Len(t, out, 1)

	code := out[0].Code
	assert.Equal(t, sourceRoot+"/brand/brand.generated.ts", out[0].Path)
	assert.Contains(t, code, "import { SQLDateTimeString } from 'sonamu'")
	assert.NotContains(t, code, "from './brand.generated'", "self imports are dropped")
	assert.Contains(t, code, "export const BrandStatus = z.enum(")
	assert.Contains(t, code, "export const BrandBaseSchema = ")
	assert.Contains(t, code, "export type BrandSubsetMapping = {")
	assert.True(t, strings.HasSuffix(code, ";\n"))
}

func TestRenderer_Service(t *testing.T) {
	r := newRenderer(t)

	out, err := r.Render(context.Background(), api.TemplateService, api.TemplateOptions{EntityID: "Brand"})
	require.NoError(t, err)
	require.Len(t, out, 1)

	assert.Equal(t, ":target/src/services/brand/brand.service.ts", out[0].Path)
	assert.Contains(t, out[0].Code, "findById")
	assert.Contains(t, out[0].Code, "save")
	assert.Contains(t, out[0].Code, "from './brand.types'")
	assert.NotContains(t, out[0].Code, "BrandModelClass")

	_, ok := r.apis.Lookup("BrandModel", "findById")
	assert.True(t, ok)
}

func TestRenderer_ServiceMissingModel(t *testing.T) {
	r := newRenderer(t)

	_, err := r.Render(context.Background(), api.TemplateService, api.TemplateOptions{EntityID: "User"})
	require.Error(t, err)
	assert.Contains(t, err.Error(), "user/user.model.ts")
}

func TestRenderer_ViewListRendersPreTemplates(t *testing.T) {
	r := newRenderer(t)

	out, err := r.Render(context.Background(), api.TemplateViewList, api.TemplateOptions{EntityID: "Brand"})
	require.NoError(t, err)

	paths := make([]string, len(out))
	for i, pc := range out {
		paths[i] = pc.Path
	}
	assert.Equal(t, []string{
		":target/src/pages/admin/brands/index.tsx",
		":target/src/components/brand/BrandListColumns.tsx",
		":target/src/components/brand/BrandSearchInput.tsx",
		":target/src/components/brand/BrandSearchFieldDropdown.tsx",
		":target/src/components/brand/BrandOrderByDropdown.tsx",
	}, paths)
}

func TestRenderer_UnknownTemplate(t *testing.T) {
	r := newRenderer(t)

	_, err := r.Render(context.Background(), "nope", api.TemplateOptions{EntityID: "Brand"})
	assert.ErrorIs(t, err, ErrUnknownTemplate)

	_, _, err = r.TargetAndPath("nope", entity.NamesFromID("Brand"), "")
	assert.ErrorIs(t, err, ErrUnknownTemplate)
}

func TestRenderer_TargetAndPath(t *testing.T) {
	r := newRenderer(t)
	names := entity.NamesFromID("Brand")

	target, p, err := r.TargetAndPath(api.TemplateModel, names, "")
	require.NoError(t, err)
	assert.Equal(t, sourceRoot, target)
	assert.Equal(t, "brand/brand.model.ts", p)

	target, p, err = r.TargetAndPath(api.TemplateViewEnumsSelect, names, "BrandStatus")
	require.NoError(t, err)
	assert.Equal(t, ":target/src/components", target)
	assert.Equal(t, "brand/BrandStatusSelect.tsx", p)
}

func TestResolve(t *testing.T) {
	r := newRenderer(t)

	tests := []struct {
		name     string
		rendered *Rendered
		want     []string
		wantNot  []string
	}{
		{
			name: "groups keys by module",
			rendered: &Rendered{
				Target:     SourceTarget,
				Path:       "brand/brand.types.ts",
				Body:       "export {};\n",
				ImportKeys: []string{"BrandBaseSchema", "BrandBaseListParams", "BrandBaseSchema"},
			},
			want: []string{"import { BrandBaseSchema, BrandBaseListParams } from './brand.generated'"},
		},
		{
			name: "walks up to sibling modules",
			rendered: &Rendered{
				Target:     SourceTarget,
				Path:       "brand/brand.types.ts",
				Body:       "export {};\n",
				ImportKeys: []string{"UserSubsetA"},
			},
			want: []string{"import { UserSubsetA } from '../user/user.generated'"},
		},
		{
			name: "bare modules stay bare",
			rendered: &Rendered{
				Target:     SourceTarget,
				Path:       "brand/brand.generated.ts",
				Body:       "export {};\n",
				ImportKeys: []string{"SQLDateTimeString", "BrandOrderBy"},
			},
			want:    []string{"import { SQLDateTimeString } from 'sonamu'"},
			wantNot: []string{"BrandOrderBy }"},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := r.Resolve(api.TemplateInitTypes, tt.rendered)
			require.NoError(t, err)
			assert.Equal(t, sourceRoot+"/"+tt.rendered.Path, got.Path)
			for _, w := range tt.want {
				assert.Contains(t, got.Code, w)
			}
			for _, w := range tt.wantNot {
				assert.NotContains(t, got.Code, w)
			}
		})
	}
}

func TestResolve_UnknownKey(t *testing.T) {
	r := newRenderer(t)

	_, err := r.Resolve(api.TemplateGenerated, &Rendered{Target: SourceTarget, Path: "x/x.ts", ImportKeys: []string{"Nope"}})
	assert.ErrorIs(t, err, entity.ErrModulePathNotFound)
}

func TestNormalizeWhitespace(t *testing.T) {
	in := "import x;  \n\n\n\nconst a = 1;\t\n\n"
	assert.Equal(t, "import x;\n\nconst a = 1;\n", NormalizeWhitespace(in))
}

func TestLint(t *testing.T) {
	tests := []struct {
		name string
		path string
		src  string
		want []string
	}{
		{"clean", "a.ts", "import { A } from './a';\nexport const b: A = 1;\n", nil},
		{"syntax error", "a.ts", "export const a = 1;\nexport const = ;\n", []string{"line 2: syntax error"}},
		{"unused import", "a.ts", "import { A, B } from './a';\nexport const b = A;\n", []string{"line 1: unused import B"}},
		{"type position counts", "a.ts", "import { A } from './a';\nexport type B = z.infer<typeof A>;\n", nil},
		{"jsx", "a.tsx", "import { Row } from './row';\nexport const x = <Row />;\n", nil},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			diags, err := Lint(tt.path, []byte(tt.src))
			require.NoError(t, err)
			var got []string
			for _, d := range diags {
				got = append(got, d.String())
			}
			assert.Equal(t, tt.want, got)
		})
	}
}

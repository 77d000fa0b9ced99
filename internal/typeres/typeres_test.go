package typeres

import (
	"context"
	"testing"

	sitter "github.com/smacker/go-tree-sitter"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/agentic-research/syncgen/api"
)

func parse(t *testing.T, src string) *File {
	t.Helper()
	f, err := Parse(context.Background(), "test.ts", []byte(src))
	require.NoError(t, err)
	t.Cleanup(f.Close)
	return f
}

// aliasValue returns the type node of the first `type X = ...;` declaration.
func aliasValue(t *testing.T, f *File) *sitter.Node {
	t.Helper()
	for i := 0; i < int(f.Root.NamedChildCount()); i++ {
		n := f.Root.NamedChild(i)
		if n.Type() == "type_alias_declaration" {
			v := n.ChildByFieldName("value")
			require.NotNil(t, v)
			return v
		}
	}
	t.Fatalf("no type alias in %q", f.Source)
	return nil
}

func TestResolveTypeNode(t *testing.T) {
	tests := []struct {
		name string
		src  string
		want api.TypeDescriptor
	}{
		{"string keyword", "string", api.TypeString},
		{"number keyword", "number", api.TypeNumber},
		{"any keyword", "any", api.TypeAny},
		{"void keyword", "void", api.TypeVoid},
		{"boolean keyword", "boolean", api.TypeBoolean},
		{"unknown keyword", "unknown", api.TypeUnknown},
		{"undefined keyword", "undefined", api.TypeUndefined},
		{"string literal", `"asc"`, api.StringLiteral{Value: "asc"}},
		{"numeric literal", "42", api.NumericLiteral{Value: 42}},
		{"null literal", "null", api.TypeNull},
		{"true literal", "true", api.TypeTrue},
		{"false literal", "false", api.TypeFalse},
		{"array", "number[]", api.ArrayType{Elements: api.TypeNumber}},
		{"reference", "BrandSaveParams", api.RefType{ID: "BrandSaveParams"}},
		{"generic", "Promise<ListResult<Brand>>", api.RefType{
			ID:   "Promise",
			Args: []api.TypeDescriptor{api.RefType{ID: "ListResult", Args: []api.TypeDescriptor{api.RefType{ID: "Brand"}}}},
		}},
		{"flattened union", `"a" | "b" | null`, api.UnionType{Types: []api.TypeDescriptor{
			api.StringLiteral{Value: "a"}, api.StringLiteral{Value: "b"}, api.TypeNull,
		}}},
		{"intersection", "A & B", api.IntersectionType{Types: []api.TypeDescriptor{
			api.RefType{ID: "A"}, api.RefType{ID: "B"},
		}}},
		{"indexed access", "BrandSubsetMapping[T]", api.IndexedAccessType{
			Object: api.RefType{ID: "BrandSubsetMapping"}, Index: api.RefType{ID: "T"},
		}},
		{"tuple", "[string, number]", api.TupleType{Elements: []api.TypeDescriptor{api.TypeString, api.TypeNumber}}},
		{"parenthesized", "(string | number)[]", api.ArrayType{Elements: api.UnionType{Types: []api.TypeDescriptor{
			api.TypeString, api.TypeNumber,
		}}}},
		{"object with index signature", "{ id: number; name?: string; [key: string]: unknown }", api.ObjectType{Props: []api.ApiParam{
			{Name: "id", Type: api.TypeNumber},
			{Name: "name", Type: api.TypeString, Optional: true},
			{Name: "[key: string]", Type: api.TypeUnknown},
		}}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			f := parse(t, "type X = "+tt.src+";")
			got, err := f.ResolveTypeNode(aliasValue(t, f))
			require.NoError(t, err)
			assert.Equal(t, tt.want, got)
		})
	}
}

func TestResolveTypeNode_Unsupported(t *testing.T) {
	for _, src := range []string{"(a: number) => string", "keyof Brand", "typeof x"} {
		f := parse(t, "type X = "+src+";")
		_, err := f.ResolveTypeNode(aliasValue(t, f))
		assert.ErrorIs(t, err, ErrUnsupportedNode, src)
	}
}

func TestPrintType(t *testing.T) {
	f := parse(t, `type X = Promise<{ rows: Brand[]; total?: number }> | "x";`)
	ty, err := f.ResolveTypeNode(aliasValue(t, f))
	require.NoError(t, err)
	assert.Equal(t, `Promise<{ rows: Brand[]; total?: number; }> | "x"`, PrintType(ty))
}

const brandModel = `
import { api, BaseModelClass } from "sonamu";

class BrandModelClass extends BaseModelClass {
  @api({ httpMethod: "GET", clients: ["axios", "swr"], resourceName: "Brand" })
  async findById<T extends BrandSubsetKey>(subset: T, id: number): Promise<BrandSubsetMapping[T]> {
    return this.findOne(subset, { id });
  }

  @api({ httpMethod: "POST", path: "/brands/save" })
  async save(spa: BrandSaveParams[], opts?: { force: boolean }, { a }: { a: string } = { a: "x" }): Promise<number[]> {
    return [];
  }

  async helper(): Promise<void> {}
}

export const BrandModel = new BrandModelClass();
`

func TestScanDecorators(t *testing.T) {
	f := parse(t, brandModel)
	reg := NewRegistry()

	n, err := reg.ScanDecorators(f)
	require.NoError(t, err)
	assert.Equal(t, 2, n)

	d, ok := reg.Lookup("BrandModel", "findById")
	require.True(t, ok)
	assert.Equal(t, "/brandModel/findById", d.Path)
	assert.Equal(t, "GET", d.Options.HTTPMethod)
	assert.Equal(t, []string{"axios", "swr"}, d.Options.Clients)
	assert.Equal(t, "Brand", d.Options.ResourceName)

	d, ok = reg.Lookup("BrandModel", "save")
	require.True(t, ok)
	assert.Equal(t, "/brands/save", d.Path)

	_, ok = reg.Lookup("BrandModel", "helper")
	assert.False(t, ok)
}

func TestExtractSignatures(t *testing.T) {
	f := parse(t, brandModel)
	reg := NewRegistry()
	reg.Register(api.ApiDecl{ModelName: "BrandModel", MethodName: "save", Path: "/brand/save"})
	reg.Register(api.ApiDecl{ModelName: "BrandModel", MethodName: "findById", Path: "/brand/findById"})
	reg.Register(api.ApiDecl{ModelName: "BrandModel", MethodName: "ghost", Path: "/brand/ghost"})

	sigs, err := ExtractSignatures(f, reg)
	require.NoError(t, err)
	require.Len(t, sigs, 2)

	// Registration order, not declaration order.
	save := sigs[0]
	assert.Equal(t, "save", save.MethodName)
	assert.Equal(t, "/brand/save", save.Path)
	require.Len(t, save.Parameters, 3)
	assert.Equal(t, api.ApiParam{Name: "spa", Type: api.ArrayType{Elements: api.RefType{ID: "BrandSaveParams"}}}, save.Parameters[0])
	assert.Equal(t, "opts", save.Parameters[1].Name)
	assert.True(t, save.Parameters[1].Optional)
	assert.Equal(t, "nonameAt2", save.Parameters[2].Name)
	assert.True(t, save.Parameters[2].Optional)
	assert.Equal(t, `{ a: "x" }`, save.Parameters[2].DefaultDef)
	assert.Equal(t, api.ArrayType{Elements: api.TypeNumber}, save.ReturnType.(api.RefType).Args[0])

	find := sigs[1]
	assert.Equal(t, []api.TypeParam{{ID: "T", Constraint: api.RefType{ID: "BrandSubsetKey"}}}, find.TypeParameters)
	assert.Equal(t, api.RefType{ID: "Promise", Args: []api.TypeDescriptor{api.IndexedAccessType{
		Object: api.RefType{ID: "BrandSubsetMapping"},
		Index:  api.RefType{ID: "T"},
	}}}, find.ReturnType)

	unresolved := reg.Unresolved()
	require.Len(t, unresolved, 1)
	assert.Equal(t, "ghost", unresolved[0].MethodName)
}

func TestExtractSignatures_MissingReturnType(t *testing.T) {
	f := parse(t, `
class UserModelClass {
  async me(id: number) {
    return id;
  }
}`)
	_, err := ExtractSignatures(f, NewRegistry())
	assert.ErrorIs(t, err, ErrMissingReturnType)
}

func TestExtractSignatures_NothingRegistered(t *testing.T) {
	f := parse(t, brandModel)
	sigs, err := ExtractSignatures(f, NewRegistry())
	require.NoError(t, err)
	assert.Empty(t, sigs)
}

package derive

import (
	"testing"

	"github.com/go-git/go-billy/v5/memfs"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/agentic-research/syncgen/api"
	"github.com/agentic-research/syncgen/internal/entity"
)

func fixtureRegistry(t *testing.T) *Registry {
	t.Helper()
	s := entity.NewStore(memfs.New(), "api/src/application", nil)
	s.Register(&api.Entity{
		ID: "Brand",
		Props: []api.Prop{
			{Name: "id", Type: api.PropInteger, Unsigned: true},
			{Name: "name", Type: api.PropString, Length: 64},
			{Name: "order_by", Type: api.PropEnum, ID: "BrandOrderBy"},
			{Name: "user", Type: api.PropRelation, With: "User", RelationType: api.BelongsToOne, Nullable: true},
			{Name: "tags", Type: api.PropRelation, With: "Tag", RelationType: api.HasMany},
			{Name: "logo_image", Type: api.PropString, Length: 255},
			{Name: "created_at", Type: api.PropTimestamp},
		},
		Subsets: map[string][]string{
			"A": {"id", "name"},
			"B": {"id", "user.id", "user.title", "tags.id", "tags.name", "created_at"},
		},
		Enums: map[string]api.EnumLabels{
			"BrandOrderBy":     {{Key: "id-desc", Label: "Newest"}, {Key: "id-asc", Label: "Oldest"}},
			"BrandSearchField": {{Key: "id", Label: "ID"}},
		},
	})
	s.Register(&api.Entity{
		ID: "User",
		Props: []api.Prop{
			{Name: "id", Type: api.PropInteger},
			{Name: "title", Type: api.PropString, Length: 32},
		},
	})
	s.Register(&api.Entity{
		ID: "Tag",
		Props: []api.Prop{
			{Name: "id", Type: api.PropInteger},
			{Name: "name", Type: api.PropString, Length: 16},
		},
	})
	return NewRegistry(s)
}

func TestPropToSchema_NullableUnsignedInt(t *testing.T) {
	r := NewRegistry(nil)
	s, err := r.PropToSchema(api.Prop{Name: "n", Type: api.PropInteger, Unsigned: true, Nullable: true})
	require.NoError(t, err)

	assert.NoError(t, Validate(s, nil))
	assert.NoError(t, Validate(s, float64(0)))
	assert.NoError(t, Validate(s, int64(7)))

	var verr *ValidationError
	assert.ErrorAs(t, Validate(s, float64(-1)), &verr)
	assert.Error(t, Validate(s, 1.5))
	assert.Error(t, Validate(s, "1"))

	assert.Equal(t, "z.number().int().nonnegative().nullable()", ZodExpr(s))
}

func TestPropToSchema_Kinds(t *testing.T) {
	r := NewRegistry(nil)

	tests := []struct {
		name   string
		prop   api.Prop
		valid  []any
		reject []any
	}{
		{"text", api.Prop{Type: api.PropText, TextType: "tinytext"}, []any{"abc"}, []any{string(make([]byte, 256)), 1.0}},
		{"string", api.Prop{Type: api.PropString, Length: 3}, []any{"abc"}, []any{"abcd"}},
		{"float", api.Prop{Type: api.PropFloat}, []any{1.5}, []any{"1.5"}},
		{"decimal", api.Prop{Type: api.PropDecimal}, []any{"1.50"}, []any{1.5}},
		{"boolean", api.Prop{Type: api.PropBoolean}, []any{true}, []any{"true"}},
		{"date", api.Prop{Type: api.PropDate}, []any{"2024-01-02"}, []any{"2024-1-2"}},
		{"time", api.Prop{Type: api.PropTime}, []any{"10:11:12"}, []any{"10:11"}},
		{"datetime", api.Prop{Type: api.PropDateTime}, []any{"2024-01-02 10:11:12", "2024-01-02"}, []any{"yesterday", "2024-01-02T10:11:12Z"}},
		{"uuid", api.Prop{Type: api.PropUUID}, []any{"6ba7b810-9dad-11d1-80b4-00c04fd430c8"}, []any{"nope"}},
		{"bigint unsigned", api.Prop{Type: api.PropBigInteger, Unsigned: true}, []any{"9007199254740993", 3.0}, []any{"-1", 1.5}},
		{"belongs to one", api.Prop{Type: api.PropRelation, RelationType: api.BelongsToOne}, []any{1.0}, []any{"1"}},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			s, err := r.PropToSchema(tt.prop)
			require.NoError(t, err)
			for _, v := range tt.valid {
				assert.NoError(t, Validate(s, v), "%v", v)
			}
			for _, v := range tt.reject {
				assert.Error(t, Validate(s, v), "%v", v)
			}
		})
	}
}

func TestPropToSchema_Edges(t *testing.T) {
	r := NewRegistry(nil)

	s, err := r.PropToSchema(api.Prop{Name: "tags", Type: api.PropRelation, RelationType: api.HasMany})
	require.NoError(t, err)
	assert.Nil(t, s)

	s, err = r.PropToSchema(api.Prop{Name: "profile", Type: api.PropRelation, RelationType: api.OneToOne, HasJoinColumn: true})
	require.NoError(t, err)
	assert.Equal(t, Number{Int: true}, s)

	_, err = r.PropToSchema(api.Prop{Name: "x", Type: "geometry"})
	assert.ErrorIs(t, err, ErrUnknownPropKind)

	_, err = r.PropToSchema(api.Prop{Name: "meta", Type: api.PropJSON, ID: "BrandMeta"})
	assert.ErrorIs(t, err, ErrSchemaNotFound)

	r.Register("BrandMeta", Record{Value: String{}})
	s, err = r.PropToSchema(api.Prop{Name: "meta", Type: api.PropJSON, ID: "BrandMeta"})
	require.NoError(t, err)
	assert.Equal(t, "BrandMeta", ZodExpr(s))
}

func TestToRenderingNode_Classification(t *testing.T) {
	tests := []struct {
		name   string
		schema Schema
		want   api.RenderType
	}{
		{"id", Number{Int: true}, api.RenderNumberID},
		{"user_id", Number{Int: true}, api.RenderNumberFkID},
		{"price", Number{}, api.RenderNumberPlain},
		{"views", BigInt{}, api.RenderNumberPlain},
		{"logo_img", String{}, api.RenderStringImage},
		{"profile_image", String{}, api.RenderStringImage},
		{"created_at", SQLDateTimeString, api.RenderStringDateTime},
		{"birth_date", String{Length: 10}, api.RenderStringDate},
		{"title", String{}, api.RenderStringPlain},
		{"is_public", Boolean{}, api.RenderBoolean},
		{"status", Enum{Values: []string{"a"}}, api.RenderEnums},
		{"meta", Record{Value: Any{}}, api.RenderRecord},
		{"raw", Unknown{}, api.RenderStringPlain},
		{"kind", Literal{Value: "x"}, api.RenderStringPlain},
		{"images", Array{Element: String{}}, api.RenderArrayImages},
		{"tags", Array{Element: String{}}, api.RenderArray},
		{"either", Union{Options: []Schema{Number{}, String{}}}, api.RenderNumberPlain},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			n := ToRenderingNode(tt.schema, tt.name)
			assert.Equal(t, tt.want, n.RenderType)
			assert.Equal(t, tt.name, n.Name)
		})
	}
}

func TestToRenderingNode_Flags(t *testing.T) {
	n := ToRenderingNode(Optional{Inner: Nullable{Inner: String{}}}, "nickname")
	assert.True(t, n.Optional)
	assert.True(t, n.Nullable)
	assert.Equal(t, "Nickname", n.Label)

	arr := ToRenderingNode(Array{Element: Number{}}, "scores")
	require.NotNil(t, arr.Element)
	assert.Equal(t, api.RenderNumberPlain, arr.Element.RenderType)
}

func TestRegistry_Lookup(t *testing.T) {
	r := fixtureRegistry(t)

	s, err := r.Lookup("BrandOrderBy")
	require.NoError(t, err)
	assert.Equal(t, Enum{Values: []string{"id-desc", "id-asc"}}, s)

	s, err = r.Lookup("BrandSubsetKey")
	require.NoError(t, err)
	assert.Equal(t, Enum{Values: []string{"A", "B"}}, s)

	s, err = r.Lookup("BrandBaseSchema")
	require.NoError(t, err)
	base := s.(Object)
	assert.Equal(t, []string{"id", "name", "order_by", "user_id", "logo_image", "created_at"}, base.Keys)

	s, err = r.Lookup("BrandSaveParams")
	require.NoError(t, err)
	save := s.(Object)
	assert.IsType(t, Optional{}, save.Shape["id"])
	assert.IsType(t, Optional{}, save.Shape["created_at"])
	assert.NoError(t, Validate(save, map[string]any{
		"name": "x", "order_by": "id-asc", "user_id": nil, "logo_image": "a.png",
	}))
	assert.Error(t, Validate(save, map[string]any{"name": "x"}))

	s, err = r.Lookup("BrandListParams")
	require.NoError(t, err)
	assert.NoError(t, Validate(s, map[string]any{}))
	assert.NoError(t, Validate(s, map[string]any{"id": []any{1.0, 2.0}, "orderBy": "id-desc"}))
	assert.Error(t, Validate(s, map[string]any{"orderBy": "name"}))

	_, err = r.Lookup("BrandNope")
	assert.ErrorIs(t, err, ErrSchemaNotFound)
}

func TestSubsetRenderingNode(t *testing.T) {
	r := fixtureRegistry(t)

	s, err := r.Lookup("BrandSubsetA")
	require.NoError(t, err)
	root := ToRenderingNode(s, "root")
	assert.Equal(t, api.RenderObject, root.RenderType)
	require.Len(t, root.Children, 2)
	assert.Equal(t, "id", root.Children[0].Name)
	assert.Equal(t, api.RenderNumberID, root.Children[0].RenderType)
	assert.Equal(t, "name", root.Children[1].Name)
	assert.Equal(t, api.RenderStringPlain, root.Children[1].RenderType)
}

func TestColumnsNode(t *testing.T) {
	r := fixtureRegistry(t)

	root, err := r.ColumnsNode("Brand", "B")
	require.NoError(t, err)
	require.Len(t, root.Children, 4)

	user, ok := root.Child("user")
	require.True(t, ok)
	assert.Equal(t, api.RenderObjectPick, user.RenderType)
	assert.Equal(t, "title", user.Config["picked"])
	assert.True(t, user.Nullable)

	tags, ok := root.Child("tags")
	require.True(t, ok)
	assert.Equal(t, api.RenderArray, tags.RenderType)
	require.NotNil(t, tags.Element)
	assert.Equal(t, api.RenderObjectPick, tags.Element.RenderType)
	assert.Equal(t, "name", tags.Element.Config["picked"])

	created, ok := root.Child("created_at")
	require.True(t, ok)
	assert.Equal(t, api.RenderStringDateTime, created.RenderType)

	_, err = r.ColumnsNode("Brand", "Z")
	assert.ErrorIs(t, err, ErrSubsetNotFound)
}

func TestZodExpr(t *testing.T) {
	r := fixtureRegistry(t)
	s, err := r.Lookup("BrandSubsetA")
	require.NoError(t, err)
	assert.Equal(t, "z.object({\n  id: z.number().int().nonnegative(),\n  name: z.string().max(64),\n})", ZodExpr(s))

	base, err := r.Lookup("BrandBaseSchema")
	require.NoError(t, err)
	assert.Equal(t, []string{"BrandOrderBy", "SQLDateTimeString"}, Refs(base))
}

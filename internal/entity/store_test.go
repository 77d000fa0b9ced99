package entity

import (
	"context"
	"testing"

	"github.com/go-git/go-billy/v5/memfs"
	"github.com/go-git/go-billy/v5/util"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/agentic-research/syncgen/api"
)

const brandJSON = `{
  "id": "Brand",
  "table": "brands",
  "title": "Brand",
  "props": [
    {"name": "id", "type": "integer", "unsigned": true},
    {"name": "name", "type": "string", "length": 64},
    {"name": "user", "type": "relation", "with": "User", "relationType": "BelongsToOne"},
    {"name": "tags", "type": "relation", "with": "Tag", "relationType": "HasMany"},
    {"name": "created_at", "type": "timestamp"}
  ],
  "subsets": {"A": ["id", "name", "user.id", "user.title"]},
  "enums": {
    "BrandOrderBy": {"id-desc": "Newest", "id-asc": "Oldest"},
    "BrandSearchField": {"id": "ID"}
  }
}`

const userJSON = `{
  "id": "User",
  "props": [
    {"name": "id", "type": "integer"},
    {"name": "title", "type": "string", "length": 32},
    {"name": "nickname", "type": "string", "length": 32}
  ]
}`

const tagJSON = `{
  "id": "Tag",
  "props": [
    {"name": "id", "type": "integer"},
    {"name": "name", "type": "string", "length": 16}
  ]
}`

func loadedStore(t *testing.T) *Store {
	t.Helper()
	bfs := memfs.New()
	require.NoError(t, util.WriteFile(bfs, "api/src/application/brand/brand.entity.json", []byte(brandJSON), 0o644))
	require.NoError(t, util.WriteFile(bfs, "api/src/application/user/user.entity.json", []byte(userJSON), 0o644))
	require.NoError(t, util.WriteFile(bfs, "api/src/application/tag/tag.entity.json", []byte(tagJSON), 0o644))

	s := NewStore(bfs, "api/src/application", map[string]string{"SQLDateTimeString": "sonamu"})
	require.NoError(t, s.Load(context.Background()))
	return s
}

func TestStore_Load(t *testing.T) {
	s := loadedStore(t)
	assert.Equal(t, []string{"Brand", "Tag", "User"}, s.IDs())

	brand, err := s.Get("Brand")
	require.NoError(t, err)
	assert.Equal(t, "brands", brand.Table)
	assert.Equal(t, []string{"id-desc", "id-asc"}, brand.Enums["BrandOrderBy"].Keys())

	_, err = s.Get("Nope")
	assert.ErrorIs(t, err, ErrEntityNotFound)
}

func TestStore_ModulePath(t *testing.T) {
	s := loadedStore(t)

	tests := map[string]string{
		"BrandBaseSchema":   "brand/brand.generated",
		"BrandSubsetA":      "brand/brand.generated",
		"BrandOrderBy":      "brand/brand.generated",
		"BrandListParams":   "brand/brand.types",
		"BrandSaveParams":   "brand/brand.types",
		"SQLDateTimeString": "sonamu",
	}
	for key, want := range tests {
		got, err := s.ModulePath(key)
		require.NoError(t, err, key)
		assert.Equal(t, want, got, key)
	}

	_, err := s.ModulePath("Unknown")
	assert.ErrorIs(t, err, ErrModulePathNotFound)
}

func TestNamesFromID(t *testing.T) {
	n := NamesFromID("BrandItem")
	assert.Equal(t, "brand-item", n.Fs)
	assert.Equal(t, "brand-items", n.FsPlural)
	assert.Equal(t, "brandItem", n.Camel)
	assert.Equal(t, "BrandItem", n.Capital)
	assert.Equal(t, "BrandItems", n.CapitalPlural)
	assert.Equal(t, "BRAND_ITEM", n.Upper)
}

func TestPropNodes(t *testing.T) {
	s := loadedStore(t)

	nodes, err := s.PropNodes("Brand", []string{"id", "user.id", "name", "user.title", "tags.name", "user_id"})
	require.NoError(t, err)
	require.Len(t, nodes, 5)

	// Plain props come first as a group, in expression order.
	assert.Equal(t, api.NodePlain, nodes[0].NodeType)
	assert.Equal(t, "id", nodes[0].Prop.Name)
	assert.Equal(t, "name", nodes[1].Prop.Name)
	assert.Equal(t, "user_id", nodes[2].Prop.Name)
	assert.Equal(t, api.PropInteger, nodes[2].Prop.Type)

	user := nodes[3]
	assert.Equal(t, api.NodeObject, user.NodeType)
	assert.Equal(t, "user", user.Prop.Name)
	require.Len(t, user.Children, 2)
	assert.Equal(t, "id", user.Children[0].Prop.Name)
	assert.Equal(t, "title", user.Children[1].Prop.Name)

	tags := nodes[4]
	assert.Equal(t, api.NodeArray, tags.NodeType)
	require.Len(t, tags.Children, 1)
	assert.Equal(t, "name", tags.Children[0].Prop.Name)
}

func TestPropNodes_Invalid(t *testing.T) {
	s := loadedStore(t)

	_, err := s.PropNodes("Brand", []string{"missing"})
	assert.ErrorIs(t, err, ErrInvalidFieldExpr)

	_, err = s.PropNodes("Brand", []string{"name.first"})
	assert.ErrorIs(t, err, ErrInvalidFieldExpr)

	_, err = s.PropNodes("Brand", []string{"user.missing"})
	assert.ErrorIs(t, err, ErrInvalidFieldExpr)
}

func TestStore_Query(t *testing.T) {
	s := loadedStore(t)

	got, err := s.Query(`$.props[?(@.type == 'relation')].name`)
	require.NoError(t, err)
	assert.Equal(t, []any{"user", "tags"}, got)

	_, err = s.Query("$[")
	assert.Error(t, err)
}

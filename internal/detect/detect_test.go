package detect

import (
	"context"
	"testing"

	billy "github.com/go-git/go-billy/v5"
	"github.com/go-git/go-billy/v5/memfs"
	"github.com/go-git/go-billy/v5/util"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/agentic-research/syncgen/api"
)

func writeFiles(t *testing.T, bfs billy.Filesystem, files map[string]string) {
	t.Helper()
	for p, content := range files {
		require.NoError(t, util.WriteFile(bfs, p, []byte(content), 0o644))
	}
}

func newTestDetector(bfs billy.Filesystem) *Detector {
	return NewDetector(bfs, "api", DefaultPatterns("src/application", "dist/application"))
}

func TestSnapshot_EnumeratesClassesSorted(t *testing.T) {
	bfs := memfs.New()
	writeFiles(t, bfs, map[string]string{
		"api/src/application/user/user.entity.json":   `{"id":"User"}`,
		"api/src/application/brand/brand.entity.json": `{"id":"Brand"}`,
		"api/src/application/brand/brand.types.ts":    "export {}",
		"api/src/application/brand/brand.model.ts":    "class BrandModelClass {}",
		"api/dist/application/brand/brand.model.js":   "exports.x = 1",
		"api/src/application/brand/notes.md":          "ignored",
	})

	records, err := newTestDetector(bfs).Snapshot(context.Background())
	require.NoError(t, err)

	var paths []string
	for _, r := range records {
		paths = append(paths, r.Path)
		assert.Len(t, r.Checksum, 40)
	}
	assert.Equal(t, []string{
		"dist/application/brand/brand.model.js",
		"src/application/brand/brand.entity.json",
		"src/application/brand/brand.types.ts",
		"src/application/user/user.entity.json",
	}, paths)
}

func TestSnapshot_Deterministic(t *testing.T) {
	bfs := memfs.New()
	writeFiles(t, bfs, map[string]string{
		"api/src/application/a/a.entity.json":  "1",
		"api/src/application/b/b.enums.ts":     "2",
		"api/src/application/c/c.generated.ts": "3",
	})
	d := newTestDetector(bfs)

	first, err := d.Snapshot(context.Background())
	require.NoError(t, err)
	second, err := d.Snapshot(context.Background())
	require.NoError(t, err)
	assert.Equal(t, first, second)
	assert.Empty(t, Diff(first, second))
}

func TestSnapshot_MissingRoot(t *testing.T) {
	records, err := newTestDetector(memfs.New()).Snapshot(context.Background())
	require.NoError(t, err)
	assert.Empty(t, records)
}

func TestFileChecksum_KnownDigest(t *testing.T) {
	bfs := memfs.New()
	writeFiles(t, bfs, map[string]string{"f": "abc"})
	sum, err := FileChecksum(bfs, "f")
	require.NoError(t, err)
	assert.Equal(t, "a9993e364706816aba3e25717850c26c9cd0d89d", sum)
}

func TestDiff_Symmetric(t *testing.T) {
	a := []api.ChecksumRecord{
		{Path: "x.entity.json", Checksum: "1"},
		{Path: "y.types.ts", Checksum: "2"},
		{Path: "z.enums.ts", Checksum: "3"},
	}
	b := []api.ChecksumRecord{
		{Path: "z.enums.ts", Checksum: "3"},
		{Path: "y.types.ts", Checksum: "changed"},
		{Path: "w.generated.ts", Checksum: "4"},
	}
	want := []string{"w.generated.ts", "x.entity.json", "y.types.ts"}

	assert.Equal(t, want, Diff(a, b))
	assert.Equal(t, want, Diff(b, a))

	reversed := []api.ChecksumRecord{b[2], b[0], b[1]}
	assert.Equal(t, want, Diff(a, reversed))
}

func TestDiff_EmptyPrevious(t *testing.T) {
	cur := []api.ChecksumRecord{{Path: "b", Checksum: "1"}, {Path: "a", Checksum: "2"}}
	assert.Equal(t, []string{"a", "b"}, Diff(cur, nil))
	assert.Empty(t, Diff(nil, nil))
}

func TestClassify(t *testing.T) {
	groups := Classify([]string{
		"src/application/brand/brand.entity.json",
		"src/application/brand/brand.types.ts",
		"src/application/brand/brand.enums.ts",
		"src/application/brand/brand.generated.ts",
		"dist/application/brand/brand.model.js",
		"src/application/brand/README.md",
		"src/application/brand/brand.service.ts",
	})

	assert.Equal(t, map[api.ArtifactClass][]string{
		api.ClassEntity:        {"src/application/brand/brand.entity.json"},
		api.ClassTypes:         {"src/application/brand/brand.types.ts"},
		api.ClassEnums:         {"src/application/brand/brand.enums.ts"},
		api.ClassGenerated:     {"src/application/brand/brand.generated.ts"},
		api.ClassCompiledModel: {"dist/application/brand/brand.model.js"},
	}, groups)
}

func TestEntityIDsFromPaths(t *testing.T) {
	ids := EntityIDsFromPaths([]string{
		"src/application/brand/brand.entity.json",
		"dist/application/brand/brand.model.js",
		"src/application/brand-item/brand-item.entity.json",
		"other/file.ts",
	})
	assert.Equal(t, []string{"Brand", "BrandItem"}, ids)
}

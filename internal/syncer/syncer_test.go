package syncer

import (
	"bytes"
	"context"
	"testing"

	billy "github.com/go-git/go-billy/v5"
	"github.com/go-git/go-billy/v5/memfs"
	"github.com/go-git/go-billy/v5/util"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/agentic-research/syncgen/internal/checksum"
	"github.com/agentic-research/syncgen/internal/config"
	"github.com/agentic-research/syncgen/internal/fsutil"
)

const brandJSON = `{
  "id": "Brand",
  "table": "brands",
  "props": [
    {"name": "id", "type": "integer", "unsigned": true},
    {"name": "name", "type": "string", "length": 64},
    {"name": "created_at", "type": "timestamp"}
  ],
  "subsets": {"A": ["id", "name", "created_at"]},
  "enums": {"BrandOrderBy": {"id-desc": "Newest"}}
}`

const brandModelTS = `
import { api, BaseModelClass } from "sonamu";

class BrandModelClass extends BaseModelClass {
  @api({ httpMethod: "GET" })
  async findById(id: number): Promise<BrandSubsetA> {
    return this.findOne("A", { id });
  }
}

export const BrandModel = new BrandModelClass();
`

const brandTypesTS = `import { z } from "zod";
import { SQLDateTimeString } from "sonamu";

/* BEGIN- Server-side Only */
export const serverOnly = true;
/* END Server-side Only */
export const BrandListParams = z.object({});
`

type fixture struct {
	fs     billy.Filesystem
	cfg    *config.Config
	store  *checksum.JSONStore
	syncer *Syncer
	out    *bytes.Buffer
}

func newFixture(t *testing.T, withModelSource bool) *fixture {
	t.Helper()
	cfg := config.Default()
	bfs := memfs.New()
	write := func(p, content string) {
		require.NoError(t, util.WriteFile(bfs, p, []byte(content), 0o644))
	}
	write("api/src/application/brand/brand.entity.json", brandJSON)
	write("api/src/application/brand/brand.types.ts", brandTypesTS)
	write("api/dist/application/brand/brand.model.js", "exports.BrandModel = {};\n")
	if withModelSource {
		write("api/src/application/brand/brand.model.ts", brandModelTS)
	}

	store := checksum.NewJSONStore(bfs, cfg.ChecksumPath())
	s := New(bfs, cfg, store)
	var out bytes.Buffer
	s.SetOutput(&out)
	return &fixture{fs: bfs, cfg: cfg, store: store, syncer: s, out: &out}
}

func (f *fixture) read(t *testing.T, p string) string {
	t.Helper()
	b, err := util.ReadFile(f.fs, p)
	require.NoError(t, err)
	return string(b)
}

func TestSync_FirstRunProcessesEverything(t *testing.T) {
	f := newFixture(t, true)

	res, err := f.syncer.Sync(context.Background())
	require.NoError(t, err)

	assert.Equal(t, []string{"web"}, res.Shared)
	assert.Equal(t, 2, res.Passes, "generated schemas are synced in a second pass")
	assert.Contains(t, res.Changed, "src/application/brand/brand.entity.json")
	assert.Contains(t, res.Changed, "src/application/brand/brand.generated.ts")
	assert.Contains(t, res.Generated, "api/src/application/brand/brand.generated.ts")
	assert.Contains(t, res.Generated, "web/src/services/brand/brand.service.ts")
	assert.Contains(t, res.Generated, "api/src/application/brand/brand.generated.http")
	assert.Contains(t, res.Copied, "web/src/services/brand/brand.types.ts")
	assert.Contains(t, res.Copied, "web/src/services/brand/brand.generated.ts")

	assert.Equal(t, string(sharedModule), f.read(t, "web/src/services/sonamu.shared.ts"))
	types := f.read(t, "web/src/services/brand/brand.types.ts")
	assert.Contains(t, types, `from "../sonamu.shared"`)
	assert.NotContains(t, types, "serverOnly")

	records, err := f.store.Load(context.Background())
	require.NoError(t, err)
	assert.Len(t, records, 4)
}

func TestSync_Idempotent(t *testing.T) {
	f := newFixture(t, true)
	ctx := context.Background()

	_, err := f.syncer.Sync(ctx)
	require.NoError(t, err)
	written := f.syncer.Writer().Metrics().Written
	f.out.Reset()

	res, err := f.syncer.Sync(ctx)
	require.NoError(t, err)
	assert.True(t, res.UpToDate())
	assert.Empty(t, res.Shared)
	assert.Equal(t, written, f.syncer.Writer().Metrics().Written)
	assert.Contains(t, f.out.String(), "Every files are synced!")
}

func TestSync_ReactsToEdits(t *testing.T) {
	f := newFixture(t, true)
	ctx := context.Background()

	_, err := f.syncer.Sync(ctx)
	require.NoError(t, err)

	require.NoError(t, util.WriteFile(f.fs, "api/src/application/brand/brand.types.ts", []byte("export const X = 1;\n"), 0o644))
	res, err := f.syncer.Sync(ctx)
	require.NoError(t, err)
	assert.Equal(t, 1, res.Passes)
	assert.Equal(t, []string{"src/application/brand/brand.types.ts"}, res.Changed)
	assert.Empty(t, res.Generated)
	assert.Equal(t, "export const X = 1;\n", f.read(t, "web/src/services/brand/brand.types.ts"))
}

func TestSync_FailedBranchDoesNotPersist(t *testing.T) {
	f := newFixture(t, false)
	ctx := context.Background()

	_, err := f.syncer.Sync(ctx)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "brand.model.ts")

	// The other branches still ran.
	assert.True(t, fsutil.Exists(f.fs, "api/src/application/brand/brand.generated.ts"))
	assert.True(t, fsutil.Exists(f.fs, "web/src/services/brand/brand.types.ts"))

	records, err := f.store.Load(ctx)
	require.NoError(t, err)
	assert.Empty(t, records)

	// Once the model source exists the next run succeeds.
	require.NoError(t, util.WriteFile(f.fs, "api/src/application/brand/brand.model.ts", []byte(brandModelTS), 0o644))
	_, err = f.syncer.Sync(ctx)
	require.NoError(t, err)
	assert.True(t, fsutil.Exists(f.fs, "web/src/services/brand/brand.service.ts"))
}

func TestSync_Cancelled(t *testing.T) {
	f := newFixture(t, true)
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	res, err := f.syncer.Sync(ctx)
	assert.ErrorIs(t, err, context.Canceled)
	assert.Empty(t, res.Shared)
	assert.False(t, fsutil.Exists(f.fs, "web/src/services/sonamu.shared.ts"))
}

func TestSync_FailingEntityDoesNotStopSiblings(t *testing.T) {
	f := newFixture(t, true)
	f.cfg.Concurrency = 1
	ctx := context.Background()

	bad := `{"id": "Bad", "table": "bads", "props": [{"name": "id", "type": "integer"}, {"name": "g", "type": "geometry"}]}`
	good := `{"id": "Good", "table": "goods", "props": [{"name": "id", "type": "integer"}, {"name": "name", "type": "string", "length": 32}], "subsets": {"A": ["id", "name"]}, "enums": {"GoodOrderBy": {"id-desc": "Newest"}}}`
	require.NoError(t, util.WriteFile(f.fs, "api/src/application/bad/bad.entity.json", []byte(bad), 0o644))
	require.NoError(t, util.WriteFile(f.fs, "api/src/application/good/good.entity.json", []byte(good), 0o644))

	_, err := f.syncer.Sync(ctx)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "geometry")
	assert.NotErrorIs(t, err, context.Canceled)

	assert.True(t, fsutil.Exists(f.fs, "api/src/application/good/good.generated.ts"))
	assert.True(t, fsutil.Exists(f.fs, "api/src/application/brand/brand.generated.ts"))
	assert.False(t, fsutil.Exists(f.fs, "api/src/application/bad/bad.generated.ts"))

	records, err := f.store.Load(ctx)
	require.NoError(t, err)
	assert.Empty(t, records)
}

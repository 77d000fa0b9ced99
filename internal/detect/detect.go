// Package detect finds artifacts that changed since the last run.
package detect

import (
	"context"
	"crypto/sha1"
	"encoding/hex"
	"fmt"
	"io"
	"io/fs"
	"log/slog"
	"path"
	"regexp"
	"sort"
	"strings"

	"github.com/RoaringBitmap/roaring"
	"github.com/bmatcuk/doublestar"
	billy "github.com/go-git/go-billy/v5"
	"github.com/go-git/go-billy/v5/util"
	"github.com/go-openapi/inflect"
	"golang.org/x/sync/errgroup"

	"github.com/agentic-research/syncgen/api"
)

// Pattern binds an artifact class to the glob enumerating it.
// Glob is relative to the detector root and supports "**".
type Pattern struct {
	Class api.ArtifactClass
	Glob  string
}

// DefaultPatterns returns the class patterns for a source tree and a
// compiled-output tree, both relative to the detector root.
func DefaultPatterns(sourceDir, compiledDir string) []Pattern {
	return []Pattern{
		{Class: api.ClassEntity, Glob: path.Join(sourceDir, "**", "*.entity.json")},
		{Class: api.ClassTypes, Glob: path.Join(sourceDir, "**", "*.types.ts")},
		{Class: api.ClassEnums, Glob: path.Join(sourceDir, "**", "*.enums.ts")},
		{Class: api.ClassGenerated, Glob: path.Join(sourceDir, "**", "*.generated.ts")},
		{Class: api.ClassCompiledModel, Glob: path.Join(compiledDir, "**", "*.model.js")},
	}
}

// Detector snapshots artifact checksums under Root. It never writes.
type Detector struct {
	FS          billy.Filesystem
	Root        string
	Patterns    []Pattern
	Concurrency int
	Logger      *slog.Logger
}

func NewDetector(bfs billy.Filesystem, root string, patterns []Pattern) *Detector {
	return &Detector{
		FS:          bfs,
		Root:        root,
		Patterns:    patterns,
		Concurrency: 8,
		Logger:      slog.Default(),
	}
}

// Snapshot hashes every artifact matching a class pattern. Records are
// sorted by path and paths are relative to Root.
func (d *Detector) Snapshot(ctx context.Context) ([]api.ChecksumRecord, error) {
	paths, err := d.enumerate()
	if err != nil {
		return nil, err
	}

	records := make([]api.ChecksumRecord, len(paths))
	g, ctx := errgroup.WithContext(ctx)
	if d.Concurrency > 0 {
		g.SetLimit(d.Concurrency)
	}
	for i, p := range paths {
		g.Go(func() error {
			if err := ctx.Err(); err != nil {
				return err
			}
			sum, err := FileChecksum(d.FS, path.Join(d.Root, p))
			if err != nil {
				return err
			}
			records[i] = api.ChecksumRecord{Path: p, Checksum: sum}
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return nil, err
	}
	d.Logger.Debug("snapshot taken", "root", d.Root, "files", len(records))
	return records, nil
}

// enumerate walks Root once and returns the sorted, de-duplicated relative
// paths matching any pattern.
func (d *Detector) enumerate() ([]string, error) {
	if _, err := d.FS.Stat(d.Root); err != nil {
		// An API root that does not exist yet has no artifacts.
		return nil, nil
	}

	seen := make(map[string]bool)
	var paths []string
	err := util.Walk(d.FS, d.Root, func(p string, info fs.FileInfo, err error) error {
		if err != nil {
			return err
		}
		if info.IsDir() {
			return nil
		}
		rel := strings.TrimPrefix(strings.TrimPrefix(p, d.Root), "/")
		for _, pat := range d.Patterns {
			ok, err := doublestar.Match(pat.Glob, rel)
			if err != nil {
				return fmt.Errorf("bad pattern %q: %w", pat.Glob, err)
			}
			if ok && !seen[rel] {
				seen[rel] = true
				paths = append(paths, rel)
			}
		}
		return nil
	})
	if err != nil {
		return nil, fmt.Errorf("walk %s: %w", d.Root, err)
	}
	sort.Strings(paths)
	return paths, nil
}

// Checksum returns the hex SHA-1 digest of data.
func Checksum(data []byte) string {
	sum := sha1.Sum(data)
	return hex.EncodeToString(sum[:])
}

// FileChecksum streams name through SHA-1 and returns the hex digest.
func FileChecksum(bfs billy.Basic, name string) (string, error) {
	f, err := bfs.Open(name)
	if err != nil {
		return "", fmt.Errorf("open %s: %w", name, err)
	}
	defer func() { _ = f.Close() }()

	h := sha1.New()
	if _, err := io.Copy(h, f); err != nil {
		return "", fmt.Errorf("hash %s: %w", name, err)
	}
	return hex.EncodeToString(h.Sum(nil)), nil
}

// Diff returns the paths present in exactly one side of the comparison,
// or present in both with different checksums. The result is sorted and
// independent of the order of either input.
func Diff(current, previous []api.ChecksumRecord) []string {
	ids := make(map[api.ChecksumRecord]uint32)
	var byID []string
	intern := func(r api.ChecksumRecord) uint32 {
		if id, ok := ids[r]; ok {
			return id
		}
		id := uint32(len(byID))
		ids[r] = id
		byID = append(byID, r.Path)
		return id
	}

	cur := roaring.New()
	for _, r := range current {
		cur.Add(intern(r))
	}
	prev := roaring.New()
	for _, r := range previous {
		prev.Add(intern(r))
	}

	changed := roaring.Xor(cur, prev)
	seen := make(map[string]bool)
	paths := make([]string, 0, changed.GetCardinality())
	it := changed.Iterator()
	for it.HasNext() {
		p := byID[it.Next()]
		if !seen[p] {
			seen[p] = true
			paths = append(paths, p)
		}
	}
	sort.Strings(paths)
	return paths
}

var classPattern = regexp.MustCompile(`\.(model|types|enums|entity|generated)\.(?:ts|js|json)$`)

// Classify groups paths by artifact class. Paths matching no class are dropped.
func Classify(paths []string) map[api.ArtifactClass][]string {
	groups := make(map[api.ArtifactClass][]string)
	for _, p := range paths {
		m := classPattern.FindStringSubmatch(p)
		if m == nil {
			continue
		}
		class := api.ArtifactClass(m[1])
		groups[class] = append(groups[class], p)
	}
	return groups
}

var entityDirPattern = regexp.MustCompile(`application/(.+)/`)

// EntityIDsFromPaths derives entity ids from artifact paths: the directory
// below "application/" is camelized, e.g. "brand-item" becomes "BrandItem".
// Ids are de-duplicated in first-seen order; paths outside an application
// tree are skipped.
func EntityIDsFromPaths(paths []string) []string {
	seen := make(map[string]bool)
	var ids []string
	for _, p := range paths {
		m := entityDirPattern.FindStringSubmatch(p)
		if m == nil {
			continue
		}
		id := inflect.Camelize(strings.ReplaceAll(m[1], "-", "_"))
		if !seen[id] {
			seen[id] = true
			ids = append(ids, id)
		}
	}
	return ids
}

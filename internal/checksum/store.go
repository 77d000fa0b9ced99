// Package checksum persists artifact checksums between runs.
package checksum

import (
	"context"
	"errors"
	"fmt"
	"io/fs"
	"os"
	"sort"

	billy "github.com/go-git/go-billy/v5"
	"github.com/go-git/go-billy/v5/util"
	"github.com/ohler55/ojg/oj"

	"github.com/agentic-research/syncgen/api"
	"github.com/agentic-research/syncgen/internal/fsutil"
)

// Store loads and saves the snapshot of the previous successful run.
type Store interface {
	// Load returns the stored snapshot. A store that was never saved
	// returns an empty snapshot and no error.
	Load(ctx context.Context) ([]api.ChecksumRecord, error)
	// Save replaces the stored snapshot.
	Save(ctx context.Context, records []api.ChecksumRecord) error
}

// JSONStore keeps the snapshot as a single JSON array in a file.
type JSONStore struct {
	fs   billy.Filesystem
	path string
}

func NewJSONStore(bfs billy.Filesystem, path string) *JSONStore {
	return &JSONStore{fs: bfs, path: path}
}

// Path returns the store file location.
func (s *JSONStore) Path() string { return s.path }

// Load implements Store.
func (s *JSONStore) Load(_ context.Context) ([]api.ChecksumRecord, error) {
	data, err := util.ReadFile(s.fs, s.path)
	if err != nil {
		if errors.Is(err, fs.ErrNotExist) || os.IsNotExist(err) {
			return []api.ChecksumRecord{}, nil
		}
		return nil, fmt.Errorf("read checksums %s: %w", s.path, err)
	}

	parsed, err := oj.Parse(data)
	if err != nil {
		return nil, fmt.Errorf("parse checksums %s: %w", s.path, err)
	}
	list, ok := parsed.([]any)
	if !ok {
		return nil, fmt.Errorf("parse checksums %s: expected array, got %T", s.path, parsed)
	}

	records := make([]api.ChecksumRecord, 0, len(list))
	for i, item := range list {
		m, ok := item.(map[string]any)
		if !ok {
			return nil, fmt.Errorf("parse checksums %s: record %d is %T", s.path, i, item)
		}
		p, _ := m["path"].(string)
		c, _ := m["checksum"].(string)
		if p == "" {
			return nil, fmt.Errorf("parse checksums %s: record %d has no path", s.path, i)
		}
		records = append(records, api.ChecksumRecord{Path: p, Checksum: c})
	}
	return records, nil
}

// Save implements Store. Records are written sorted by path.
func (s *JSONStore) Save(_ context.Context, records []api.ChecksumRecord) error {
	sorted := sortedCopy(records)
	list := make([]any, len(sorted))
	for i, r := range sorted {
		list[i] = map[string]any{"path": r.Path, "checksum": r.Checksum}
	}
	out := oj.JSON(list, &oj.Options{Indent: 2, Sort: true})
	if err := fsutil.WriteFileAtomic(s.fs, s.path, []byte(out+"\n")); err != nil {
		return fmt.Errorf("save checksums: %w", err)
	}
	return nil
}

func sortedCopy(records []api.ChecksumRecord) []api.ChecksumRecord {
	out := append([]api.ChecksumRecord(nil), records...)
	sort.Slice(out, func(i, j int) bool { return out[i].Path < out[j].Path })
	return out
}

var _ Store = (*JSONStore)(nil)

// Package entity loads entity definitions and answers the lookups the
// generators need: entities by id, module paths of import keys, and the
// PropNode trees of field expressions.
package entity

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io/fs"
	"log/slog"
	"path"
	"sort"
	"strings"
	"sync"

	billy "github.com/go-git/go-billy/v5"
	"github.com/go-git/go-billy/v5/util"
	"github.com/ohler55/ojg/jp"
	"github.com/ohler55/ojg/oj"

	"github.com/agentic-research/syncgen/api"
)

var (
	ErrEntityNotFound     = errors.New("entity not found")
	ErrModulePathNotFound = errors.New("module path not found")
	ErrInvalidFieldExpr   = errors.New("invalid field expression")
)

// Store is a JSON-backed entity registry.
type Store struct {
	fs         billy.Filesystem
	sourceRoot string
	logger     *slog.Logger

	mu          sync.RWMutex
	entities    map[string]*api.Entity
	docs        map[string]any // raw documents for JSONPath queries
	modulePaths map[string]string
}

// NewStore creates an empty registry reading from sourceRoot. shared maps
// import keys that are not owned by an entity to their module.
func NewStore(bfs billy.Filesystem, sourceRoot string, shared map[string]string) *Store {
	s := &Store{
		fs:          bfs,
		sourceRoot:  sourceRoot,
		logger:      slog.Default(),
		entities:    make(map[string]*api.Entity),
		docs:        make(map[string]any),
		modulePaths: make(map[string]string),
	}
	for k, v := range shared {
		s.modulePaths[k] = v
	}
	return s
}

// SetLogger replaces the default logger.
func (s *Store) SetLogger(l *slog.Logger) { s.logger = l }

// Load reads every *.entity.json below the source root.
func (s *Store) Load(ctx context.Context) error {
	if _, err := s.fs.Stat(s.sourceRoot); err != nil {
		if errors.Is(err, fs.ErrNotExist) {
			return nil
		}
		return fmt.Errorf("stat %s: %w", s.sourceRoot, err)
	}

	var files []string
	err := util.Walk(s.fs, s.sourceRoot, func(p string, info fs.FileInfo, err error) error {
		if err != nil {
			return err
		}
		if !info.IsDir() && strings.HasSuffix(p, ".entity.json") {
			files = append(files, p)
		}
		return nil
	})
	if err != nil {
		return fmt.Errorf("walk %s: %w", s.sourceRoot, err)
	}
	sort.Strings(files)

	for _, f := range files {
		if err := ctx.Err(); err != nil {
			return err
		}
		if err := s.loadFile(f); err != nil {
			return err
		}
	}
	s.logger.Debug("entities loaded", "count", len(files))
	return nil
}

func (s *Store) loadFile(p string) error {
	content, err := util.ReadFile(s.fs, p)
	if err != nil {
		return fmt.Errorf("read entity %s: %w", p, err)
	}
	var e api.Entity
	if err := json.Unmarshal(content, &e); err != nil {
		return fmt.Errorf("failed to parse entity %s: %w", p, err)
	}
	if e.ID == "" {
		return fmt.Errorf("entity %s: missing id", p)
	}
	doc, err := oj.Parse(content)
	if err != nil {
		return fmt.Errorf("failed to parse entity %s: %w", p, err)
	}
	s.register(&e, doc)
	return nil
}

// Register adds or replaces an entity definition.
func (s *Store) Register(e *api.Entity) {
	var doc any
	if b, err := json.Marshal(e); err == nil {
		doc, _ = oj.Parse(b)
	}
	s.register(e, doc)
}

func (s *Store) register(e *api.Entity, doc any) {
	s.mu.Lock()
	defer s.mu.Unlock()

	s.entities[e.ID] = e
	s.docs[e.ID] = doc

	names := NamesFromID(e.ID)
	generated := path.Join(names.Fs, names.Fs+".generated")
	types := path.Join(names.Fs, names.Fs+".types")

	for _, key := range []string{"BaseSchema", "BaseListParams", "SubsetKey", "SubsetMapping", "SubsetQueries", "FieldExpr"} {
		s.modulePaths[e.ID+key] = generated
	}
	for k := range e.Subsets {
		s.modulePaths[e.ID+"Subset"+k] = generated
	}
	for enumID := range e.Enums {
		s.modulePaths[enumID] = generated
	}
	s.modulePaths[e.ID+"ListParams"] = types
	s.modulePaths[e.ID+"SaveParams"] = types
}

// Get returns the entity with the given id.
func (s *Store) Get(id string) (*api.Entity, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	e, ok := s.entities[id]
	if !ok {
		return nil, fmt.Errorf("%w: %s", ErrEntityNotFound, id)
	}
	return e, nil
}

// IDs returns every registered entity id, sorted.
func (s *Store) IDs() []string {
	s.mu.RLock()
	defer s.mu.RUnlock()
	ids := make([]string, 0, len(s.entities))
	for id := range s.entities {
		ids = append(ids, id)
	}
	sort.Strings(ids)
	return ids
}

// NamesFromID implements the registry lookup of entity spellings.
func (s *Store) NamesFromID(id string) api.EntityNames {
	return NamesFromID(id)
}

// ModulePath returns the module an import key is exported from, e.g.
// "brand/brand.generated" for "BrandBaseSchema".
func (s *Store) ModulePath(key string) (string, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	p, ok := s.modulePaths[key]
	if !ok {
		return "", fmt.Errorf("%w: %s", ErrModulePathNotFound, key)
	}
	return p, nil
}

// Query evaluates a JSONPath expression against every entity document,
// in id order, and returns the concatenated matches.
func (s *Store) Query(expr string) ([]any, error) {
	x, err := jp.ParseString(expr)
	if err != nil {
		return nil, fmt.Errorf("invalid jsonpath '%s': %w", expr, err)
	}
	var out []any
	for _, id := range s.IDs() {
		s.mu.RLock()
		doc := s.docs[id]
		s.mu.RUnlock()
		if doc == nil {
			continue
		}
		out = append(out, x.Get(doc)...)
	}
	return out, nil
}

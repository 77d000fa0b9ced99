package derive

import (
	"errors"
	"fmt"
	"log/slog"
	"sort"
	"strings"
	"sync"

	"github.com/agentic-research/syncgen/api"
)

var (
	ErrSchemaNotFound  = errors.New("schema not found")
	ErrUnknownPropKind = errors.New("unknown prop kind")
	ErrSubsetNotFound  = errors.New("subset not found")
)

// EntitySource is the part of the entity registry the derivation reads.
type EntitySource interface {
	Get(id string) (*api.Entity, error)
	IDs() []string
	PropNodes(entityID string, fieldExprs []string) ([]api.PropNode, error)
}

// Registry resolves schema ids. Schemas derived from entities are cached
// for the lifetime of the registry; a new run gets a new registry.
type Registry struct {
	src    EntitySource
	logger *slog.Logger

	mu    sync.RWMutex
	cache map[string]Schema
}

func NewRegistry(src EntitySource) *Registry {
	r := &Registry{
		src:    src,
		logger: slog.Default(),
		cache:  make(map[string]Schema),
	}
	r.cache[SQLDateTimeString.ID] = SQLDateTimeString.Inner
	return r
}

// SetLogger replaces the default logger.
func (r *Registry) SetLogger(l *slog.Logger) { r.logger = l }

// Register binds id to s, e.g. for json and virtual prop types.
func (r *Registry) Register(id string, s Schema) {
	r.mu.Lock()
	r.cache[id] = s
	r.mu.Unlock()
}

// Lookup returns the schema registered or derivable under id.
func (r *Registry) Lookup(id string) (Schema, error) {
	r.mu.RLock()
	s, ok := r.cache[id]
	r.mu.RUnlock()
	if ok {
		return s, nil
	}

	s, err := r.derive(id)
	if err != nil {
		return nil, err
	}
	r.mu.Lock()
	if prev, ok := r.cache[id]; ok {
		s = prev
	} else {
		r.cache[id] = s
	}
	r.mu.Unlock()
	r.logger.Debug("schema derived", "id", id)
	return s, nil
}

// derive finds the entity owning id and builds the schema.
func (r *Registry) derive(id string) (Schema, error) {
	if r.src == nil {
		return nil, fmt.Errorf("%w: %s", ErrSchemaNotFound, id)
	}
	for _, eid := range r.src.IDs() {
		e, err := r.src.Get(eid)
		if err != nil {
			return nil, err
		}
		if labels, ok := e.Enums[id]; ok {
			return Enum{Values: labels.Keys()}, nil
		}
		suffix, ok := strings.CutPrefix(id, eid)
		if !ok {
			continue
		}
		switch suffix {
		case "BaseSchema":
			return r.baseSchema(e)
		case "BaseListParams", "ListParams":
			return r.listParams(e), nil
		case "SaveParams":
			base, err := r.baseSchema(e)
			if err != nil {
				return nil, err
			}
			return base.Partial("id", "created_at"), nil
		case "SubsetKey":
			keys := make([]string, 0, len(e.Subsets))
			for k := range e.Subsets {
				keys = append(keys, k)
			}
			sort.Strings(keys)
			return Enum{Values: keys}, nil
		}
		if key, ok := strings.CutPrefix(suffix, "Subset"); ok {
			if _, exists := e.Subsets[key]; exists {
				return r.subsetSchema(e, key)
			}
		}
	}
	return nil, fmt.Errorf("%w: %s", ErrSchemaNotFound, id)
}

func (r *Registry) baseSchema(e *api.Entity) (Object, error) {
	obj := NewObject()
	for _, p := range e.Props {
		s, err := r.PropToSchema(p)
		if err != nil {
			return Object{}, fmt.Errorf("%s.%s: %w", e.ID, p.Name, err)
		}
		if s == nil {
			continue
		}
		key := p.Name
		if p.IsRelation() {
			key += "_id"
		}
		obj.Set(key, s)
	}
	return *obj, nil
}

func (r *Registry) listParams(e *api.Entity) Object {
	obj := NewObject()
	obj.Set("num", Optional{Number{Int: true, NonNegative: true}})
	obj.Set("page", Optional{Number{Int: true, NonNegative: true}})
	if labels, ok := e.Enums[e.ID+"SearchField"]; ok {
		obj.Set("search", Optional{Ref{ID: e.ID + "SearchField", Inner: Enum{Values: labels.Keys()}}})
		obj.Set("keyword", Optional{String{}})
	}
	if labels, ok := e.Enums[e.ID+"OrderBy"]; ok {
		obj.Set("orderBy", Optional{Ref{ID: e.ID + "OrderBy", Inner: Enum{Values: labels.Keys()}}})
	}
	obj.Set("queryMode", Optional{Enum{Values: []string{"list", "count", "both"}}})
	obj.Set("id", Optional{Union{Options: []Schema{
		Number{Int: true},
		Array{Element: Number{Int: true}},
	}}})
	return *obj
}

func (r *Registry) subsetSchema(e *api.Entity, key string) (Schema, error) {
	nodes, err := r.src.PropNodes(e.ID, e.Subsets[key])
	if err != nil {
		return nil, fmt.Errorf("subset %s%s: %w", e.ID, key, err)
	}
	return r.PropNodeToSchema(api.PropNode{NodeType: api.NodeObject, Children: nodes})
}

// Package syncer runs sync passes: it detects changed artifacts, executes
// the action bound to each artifact class and persists the snapshot.
package syncer

import (
	"context"
	_ "embed"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"os"
	"path"

	"github.com/fatih/color"
	billy "github.com/go-git/go-billy/v5"
	"golang.org/x/sync/errgroup"

	"github.com/agentic-research/syncgen/api"
	"github.com/agentic-research/syncgen/internal/checksum"
	"github.com/agentic-research/syncgen/internal/config"
	"github.com/agentic-research/syncgen/internal/derive"
	"github.com/agentic-research/syncgen/internal/detect"
	"github.com/agentic-research/syncgen/internal/entity"
	"github.com/agentic-research/syncgen/internal/render"
	"github.com/agentic-research/syncgen/internal/typeres"
	"github.com/agentic-research/syncgen/internal/writer"
)

//go:embed shared/sonamu.shared.ts
var sharedModule []byte

// SharedModulePath is where the shared module lands inside each target.
const SharedModulePath = "src/services/sonamu.shared.ts"

// DefaultMaxPasses bounds the passes of one Sync call.
const DefaultMaxPasses = 5

// Result summarises a Sync call.
type Result struct {
	Passes    int      // passes that found changes
	Changed   []string // changed artifacts, per pass, relative to the API dir
	Generated []string // files written by template actions
	Copied    []string // files written by target sync
	Shared    []string // targets whose shared module was replaced
}

// UpToDate reports whether the call found nothing to do.
func (r *Result) UpToDate() bool { return r.Passes == 0 }

// Syncer keeps build targets in step with the API sources.
type Syncer struct {
	fs        billy.Filesystem
	cfg       *config.Config
	store     checksum.Store
	detector  *detect.Detector
	writer    *writer.Writer
	logger    *slog.Logger
	out       io.Writer
	maxPasses int
}

// New creates a syncer over the app root bfs.
func New(bfs billy.Filesystem, cfg *config.Config, store checksum.Store) *Syncer {
	d := detect.NewDetector(bfs, cfg.APIDir, detect.DefaultPatterns(cfg.SourceDir, cfg.CompiledDir))
	d.Concurrency = cfg.Concurrency
	return &Syncer{
		fs:        bfs,
		cfg:       cfg,
		store:     store,
		detector:  d,
		writer:    writer.New(bfs, cfg),
		logger:    slog.Default(),
		out:       os.Stdout,
		maxPasses: DefaultMaxPasses,
	}
}

// SetLogger replaces the default logger of the syncer and its parts.
func (s *Syncer) SetLogger(l *slog.Logger) {
	s.logger = l
	s.detector.Logger = l
	s.writer.SetLogger(l)
}

// SetOutput redirects status lines. nil silences them.
func (s *Syncer) SetOutput(out io.Writer) {
	s.out = out
	s.writer.SetOutput(out)
}

// SetMaxPasses overrides DefaultMaxPasses.
func (s *Syncer) SetMaxPasses(n int) {
	if n > 0 {
		s.maxPasses = n
	}
}

// Writer exposes the writer, e.g. for its metrics.
func (s *Syncer) Writer() *writer.Writer { return s.writer }

// Pipeline is the per-run stack of registries behind template generation.
// Registries cache what they derive, so every pass builds a new one.
type Pipeline struct {
	Entities  *entity.Store
	Schemas   *derive.Registry
	APIs      *typeres.Registry
	Renderer  *render.Renderer
	Generator *writer.Generator
}

// NewPipeline loads the entity definitions and wires the registries.
func (s *Syncer) NewPipeline(ctx context.Context) (*Pipeline, error) {
	entities := entity.NewStore(s.fs, s.cfg.SourceRoot(), s.cfg.SharedModules)
	entities.SetLogger(s.logger)
	if err := entities.Load(ctx); err != nil {
		return nil, err
	}
	schemas := derive.NewRegistry(entities)
	schemas.SetLogger(s.logger)
	apis := typeres.NewRegistry()

	r := render.NewRenderer(s.fs, s.cfg.SourceRoot(), entities, schemas, apis)
	r.SetLogger(s.logger)
	g := writer.NewGenerator(r, s.writer)
	g.SetLogger(s.logger)

	return &Pipeline{Entities: entities, Schemas: schemas, APIs: apis, Renderer: r, Generator: g}, nil
}

// Sync distributes the shared module, then runs passes until no tracked
// artifact changes or the pass bound is hit. The snapshot is persisted
// only when every action of every pass succeeded.
func (s *Syncer) Sync(ctx context.Context) (*Result, error) {
	res := &Result{}

	shared, err := s.distributeShared(ctx)
	if err != nil {
		return res, err
	}
	res.Shared = shared

	previous, err := s.store.Load(ctx)
	if err != nil {
		return res, fmt.Errorf("load checksums: %w", err)
	}

	var current []api.ChecksumRecord
	for pass := 1; ; pass++ {
		if err := ctx.Err(); err != nil {
			return res, err
		}
		current, err = s.detector.Snapshot(ctx)
		if err != nil {
			return res, err
		}
		changed := detect.Diff(current, previous)
		if len(changed) == 0 {
			break
		}
		if pass > s.maxPasses {
			s.logger.Warn("sync did not settle", "passes", s.maxPasses, "pending", len(changed))
			current = previous
			break
		}

		res.Passes++
		res.Changed = append(res.Changed, changed...)
		s.logger.Info("changed files", "pass", pass, "files", changed)

		if err := s.runActions(ctx, changed, res); err != nil {
			return res, err
		}
		previous = current
	}

	if res.UpToDate() {
		s.banner("Every files are synced!")
	}
	if err := s.store.Save(ctx, current); err != nil {
		return res, fmt.Errorf("save checksums: %w", err)
	}
	return res, nil
}

// runActions executes the action of every class present in changed. The
// branches run in a fixed order and do not stop each other; their errors
// are joined.
func (s *Syncer) runActions(ctx context.Context, changed []string, res *Result) error {
	groups := detect.Classify(changed)

	p, err := s.NewPipeline(ctx)
	if err != nil {
		return err
	}

	var errs []error
	if paths := groups[api.ClassEntity]; len(paths) > 0 {
		written, err := s.generateAll(ctx, p, detect.EntityIDsFromPaths(paths), api.TemplateGenerated)
		res.Generated = append(res.Generated, written...)
		if err != nil {
			errs = append(errs, fmt.Errorf("generate schemas: %w", err))
		}
	}

	var syncPaths []string
	for _, c := range []api.ArtifactClass{api.ClassTypes, api.ClassEnums, api.ClassGenerated} {
		syncPaths = append(syncPaths, groups[c]...)
	}
	if len(syncPaths) > 0 {
		copied, err := s.writer.SyncToTargets(ctx, syncPaths)
		res.Copied = append(res.Copied, copied...)
		if err != nil {
			errs = append(errs, fmt.Errorf("sync files to targets: %w", err))
		}
	}

	if paths := groups[api.ClassCompiledModel]; len(paths) > 0 {
		ids := detect.EntityIDsFromPaths(paths)
		for _, key := range []api.TemplateKey{api.TemplateService, api.TemplateGeneratedHTTP} {
			written, err := s.generateAll(ctx, p, ids, key)
			res.Generated = append(res.Generated, written...)
			if err != nil {
				errs = append(errs, fmt.Errorf("generate %s: %w", key, err))
			}
		}
	}
	return errors.Join(errs...)
}

// generateAll renders key for every entity with overwrite on. Entities are
// independent: a failing one neither cancels nor hides the others, and every
// failure is joined into the returned error.
func (s *Syncer) generateAll(ctx context.Context, p *Pipeline, entityIDs []string, key api.TemplateKey) ([]string, error) {
	written := make([][]string, len(entityIDs))
	errs := make([]error, len(entityIDs))
	var eg errgroup.Group
	eg.SetLimit(s.cfg.Concurrency)
	for i, id := range entityIDs {
		eg.Go(func() error {
			out, err := p.Generator.Generate(ctx, key, api.TemplateOptions{EntityID: id}, api.GenerateOptions{Overwrite: true})
			if err != nil {
				errs[i] = err
				return nil
			}
			written[i] = out
			return nil
		})
	}
	_ = eg.Wait()

	var out []string
	for _, w := range written {
		out = append(out, w...)
	}
	return out, errors.Join(errs...)
}

// distributeShared writes the shared module into every target whose copy
// differs, and returns those targets.
func (s *Syncer) distributeShared(ctx context.Context) ([]string, error) {
	want := detect.Checksum(sharedModule)
	var replaced []string
	for _, target := range s.cfg.Targets {
		dst := path.Join(target, SharedModulePath)
		if got, err := detect.FileChecksum(s.fs, dst); err == nil && got == want {
			continue
		}
		if _, err := s.writer.WriteArtifact(ctx, api.PathAndCode{Path: dst, Code: string(sharedModule)}); err != nil {
			return replaced, fmt.Errorf("distribute shared module: %w", err)
		}
		replaced = append(replaced, target)
	}
	return replaced, nil
}

func (s *Syncer) banner(msg string) {
	if s.out == nil {
		return
	}
	fmt.Fprintln(s.out, color.New(color.FgBlack, color.BgGreen).Sprintf(" %s ", msg))
}

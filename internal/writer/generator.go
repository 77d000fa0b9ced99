package writer

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"path"
	"strings"

	"golang.org/x/sync/errgroup"

	"github.com/agentic-research/syncgen/api"
	"github.com/agentic-research/syncgen/internal/entity"
	"github.com/agentic-research/syncgen/internal/fsutil"
	"github.com/agentic-research/syncgen/internal/render"
)

// ErrAlreadyProcessed is returned when overwrite is off and every
// artifact a generate call would write already exists.
var ErrAlreadyProcessed = errors.New("all files already exist")

// keyGroups expands a template key into the keys rendered with it.
var keyGroups = map[api.TemplateKey][]api.TemplateKey{
	api.TemplateEntity: {api.TemplateEntity, api.TemplateInitGenerated, api.TemplateInitTypes},
}

// Generator renders templates and writes them under the overwrite policy.
type Generator struct {
	renderer *render.Renderer
	writer   *Writer
	logger   *slog.Logger
}

// NewGenerator creates a generator writing through w.
func NewGenerator(r *render.Renderer, w *Writer) *Generator {
	return &Generator{renderer: r, writer: w, logger: slog.Default()}
}

// SetLogger replaces the default logger.
func (g *Generator) SetLogger(l *slog.Logger) { g.logger = l }

// Generate renders key (and its group) and writes the artifacts. Without
// overwrite only the first artifact is checked: when it exists in every
// target the call fails with ErrAlreadyProcessed, otherwise the whole
// group is written, replacing files that already exist.
func (g *Generator) Generate(ctx context.Context, key api.TemplateKey, opts api.TemplateOptions, gopts api.GenerateOptions) ([]string, error) {
	keys, ok := keyGroups[key]
	if !ok {
		keys = []api.TemplateKey{key}
	}

	rendered := make([][]api.PathAndCode, len(keys))
	eg, egctx := errgroup.WithContext(ctx)
	for i, k := range keys {
		eg.Go(func() error {
			out, err := g.renderer.Render(egctx, k, opts)
			if err != nil {
				return err
			}
			rendered[i] = out
			return nil
		})
	}
	if err := eg.Wait(); err != nil {
		return nil, err
	}

	var artifacts []api.PathAndCode
	for _, out := range rendered {
		artifacts = append(artifacts, out...)
	}

	if !gopts.Overwrite && len(artifacts) > 0 && g.allExist(artifacts[0].Path) {
		return nil, fmt.Errorf("%w: %s for %s", ErrAlreadyProcessed, key, opts.EntityID)
	}

	written := make([][]string, len(artifacts))
	eg, egctx = errgroup.WithContext(ctx)
	for i, pc := range artifacts {
		eg.Go(func() error {
			dsts, err := g.writer.WriteArtifact(egctx, pc)
			if err != nil {
				return err
			}
			written[i] = dsts
			return nil
		})
	}
	if err := eg.Wait(); err != nil {
		return nil, err
	}

	var out []string
	for _, dsts := range written {
		out = append(out, dsts...)
	}
	g.logger.Debug("template generated", "key", key, "entity", opts.EntityID, "files", len(out))
	return out, nil
}

func (g *Generator) allExist(p string) bool {
	for _, dst := range ExpandTargets(p, g.writer.cfg.Targets) {
		if !fsutil.Exists(g.writer.fs, dst) {
			return false
		}
	}
	return true
}

// CheckExists reports, for every template, whether its file exists.
// view_enums_* keys are reported per enum as "<key>__<enumID>" (the
// entity's own enum constant excluded), keys whose target holds :target
// per target as "<key>__<target>", the rest under the bare key.
func (g *Generator) CheckExists(entityID string, enumIDs []string) (map[string]bool, error) {
	names := entity.NamesFromID(entityID)
	result := make(map[string]bool)

	for _, key := range api.TemplateKeys {
		if strings.HasPrefix(string(key), "view_enums") {
			for _, id := range enumIDs {
				if id == names.Constant {
					continue
				}
				target, p, err := g.renderer.TargetAndPath(key, names, id)
				if err != nil {
					return nil, err
				}
				result[string(key)+"__"+id] = fsutil.Exists(g.writer.fs, path.Join(target, p))
			}
			continue
		}

		target, p, err := g.renderer.TargetAndPath(key, names, "")
		if err != nil {
			return nil, err
		}
		if strings.Contains(target, api.TargetPlaceholder) {
			for _, t := range g.writer.cfg.Targets {
				dst := path.Join(strings.Replace(target, api.TargetPlaceholder, t, 1), p)
				result[string(key)+"__"+t] = fsutil.Exists(g.writer.fs, dst)
			}
			continue
		}
		result[string(key)] = fsutil.Exists(g.writer.fs, path.Join(target, p))
	}
	return result, nil
}

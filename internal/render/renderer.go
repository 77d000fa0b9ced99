// Package render renders code templates and resolves their imports.
package render

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"path"
	"path/filepath"
	"slices"
	"strings"

	billy "github.com/go-git/go-billy/v5"
	"github.com/go-git/go-billy/v5/util"

	"github.com/agentic-research/syncgen/api"
	"github.com/agentic-research/syncgen/internal/derive"
	"github.com/agentic-research/syncgen/internal/entity"
	"github.com/agentic-research/syncgen/internal/typeres"
)

// ErrUnknownTemplate is returned for a template key outside the table.
var ErrUnknownTemplate = errors.New("unknown template")

// maxPreTemplateDepth bounds pre-template recursion.
const maxPreTemplateDepth = 8

// Renderer renders templates for the entities of one app.
type Renderer struct {
	fs         billy.Filesystem
	sourceRoot string
	entities   *entity.Store
	schemas    *derive.Registry
	apis       *typeres.Registry
	logger     *slog.Logger
}

// NewRenderer creates a renderer. sourceRoot is the entity source tree
// relative to the root of bfs.
func NewRenderer(bfs billy.Filesystem, sourceRoot string, entities *entity.Store, schemas *derive.Registry, apis *typeres.Registry) *Renderer {
	return &Renderer{
		fs:         bfs,
		sourceRoot: sourceRoot,
		entities:   entities,
		schemas:    schemas,
		apis:       apis,
		logger:     slog.Default(),
	}
}

// SetLogger replaces the default logger.
func (r *Renderer) SetLogger(l *slog.Logger) { r.logger = l }

// TargetAndPath locates the file key renders for an entity. componentID
// selects the enum of view_enums_* templates.
func (r *Renderer) TargetAndPath(key api.TemplateKey, names api.EntityNames, componentID string) (string, string, error) {
	t, err := Lookup(key)
	if err != nil {
		return "", "", err
	}
	target, p := t.Location(names, componentID)
	return r.expandTarget(target), p, nil
}

func (r *Renderer) expandTarget(target string) string {
	if rest, ok := strings.CutPrefix(target, SourceTarget); ok {
		return r.sourceRoot + rest
	}
	return target
}

// Render renders key and its pre-templates, returning the main artifact
// first.
func (r *Renderer) Render(ctx context.Context, key api.TemplateKey, opts api.TemplateOptions) ([]api.PathAndCode, error) {
	return r.render(ctx, key, opts, 0)
}

func (r *Renderer) render(ctx context.Context, key api.TemplateKey, opts api.TemplateOptions, depth int) ([]api.PathAndCode, error) {
	if depth > maxPreTemplateDepth {
		return nil, fmt.Errorf("render %s: pre-templates nested deeper than %d", key, maxPreTemplateDepth)
	}
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	t, err := Lookup(key)
	if err != nil {
		return nil, err
	}

	c, err := r.fetchContext(ctx, key, opts)
	if err != nil {
		return nil, fmt.Errorf("render %s for %s: %w", key, opts.EntityID, err)
	}
	rendered, err := t.Render(c)
	if err != nil {
		return nil, fmt.Errorf("render %s for %s: %w", key, opts.EntityID, err)
	}
	resolved, err := r.Resolve(key, rendered)
	if err != nil {
		return nil, err
	}

	out := []api.PathAndCode{resolved}
	for _, pre := range rendered.PreTemplates {
		sub, err := r.render(ctx, pre.Key, pre.Options, depth+1)
		if err != nil {
			return nil, err
		}
		out = append(out, sub...)
	}
	return out, nil
}

// fetchContext gathers the inputs key needs beyond its options.
func (r *Renderer) fetchContext(ctx context.Context, key api.TemplateKey, opts api.TemplateOptions) (*Context, error) {
	switch key {
	case api.TemplateEntity, api.TemplateInitGenerated, api.TemplateInitTypes:
		if _, err := r.entities.Get(opts.EntityID); err != nil {
			r.entities.Register(SeedEntity(opts))
		}
	}

	c := &Context{
		Options: opts,
		Names:   entity.NamesFromID(opts.EntityID),
		Schemas: r.schemas,
		HasModule: func(k string) bool {
			_, err := r.entities.ModulePath(k)
			return err == nil
		},
	}
	if e, err := r.entities.Get(opts.EntityID); err == nil {
		c.Entity = e
	}

	switch key {
	case api.TemplateService, api.TemplateGeneratedHTTP:
		sigs, err := r.ReadSignatures(ctx, opts.EntityID)
		if err != nil {
			return nil, err
		}
		c.Signatures = sigs

	case api.TemplateViewList, api.TemplateViewListColumns, api.TemplateModel:
		columns, err := r.schemas.ColumnsNode(opts.EntityID, "A")
		if err != nil {
			return nil, err
		}
		lp, err := r.schemas.Lookup(opts.EntityID + "ListParams")
		if err != nil {
			return nil, err
		}
		listParams := derive.ToRenderingNode(lp, "root")
		c.Columns = &columns
		c.ListParams = &listParams

	case api.TemplateViewForm:
		sp, err := r.schemas.Lookup(opts.EntityID + "SaveParams")
		if err != nil {
			return nil, err
		}
		saveParams := derive.ToRenderingNode(sp, "root")
		c.SaveParams = &saveParams
	}
	return c, nil
}

// ReadSignatures parses <fs>/<fs>.model.ts of an entity, registers its
// @api methods and returns their signatures.
func (r *Renderer) ReadSignatures(ctx context.Context, entityID string) ([]api.ApiSignature, error) {
	names := entity.NamesFromID(entityID)
	p := path.Join(r.sourceRoot, names.Fs, names.Fs+".model.ts")
	src, err := util.ReadFile(r.fs, p)
	if err != nil {
		return nil, fmt.Errorf("read model %s: %w", p, err)
	}
	f, err := typeres.Parse(ctx, p, src)
	if err != nil {
		return nil, err
	}
	defer f.Close()

	if _, err := r.apis.ScanDecorators(f); err != nil {
		return nil, err
	}
	sigs, err := typeres.ExtractSignatures(f, r.apis)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", p, err)
	}
	r.logger.Debug("signatures read", "file", p, "count", len(sigs))
	return sigs, nil
}

type importDef struct {
	keys []string
	from string
}

// Resolve turns import keys into import statements, prepends them to the
// body and formats the result. Imports of the file itself are dropped.
func (r *Renderer) Resolve(key api.TemplateKey, rendered *Rendered) (api.PathAndCode, error) {
	var defs []*importDef
	for _, k := range rendered.ImportKeys {
		modulePath, err := r.entities.ModulePath(k)
		if err != nil {
			return api.PathAndCode{}, fmt.Errorf("resolve %s: %w", key, err)
		}
		from := modulePath
		if strings.Contains(modulePath, "/") {
			rel, err := filepath.Rel(filepath.FromSlash(path.Dir(rendered.Path)), filepath.FromSlash(modulePath))
			if err != nil {
				return api.PathAndCode{}, fmt.Errorf("resolve %s: %w", key, err)
			}
			from = filepath.ToSlash(rel)
			if !strings.HasPrefix(from, ".") {
				from = "./" + from
			}
		}

		idx := slices.IndexFunc(defs, func(d *importDef) bool { return d.from == from })
		if idx < 0 {
			defs = append(defs, &importDef{keys: []string{k}, from: from})
		} else if !slices.Contains(defs[idx].keys, k) {
			defs[idx].keys = append(defs[idx].keys, k)
		}
	}

	header := append([]string(nil), rendered.CustomHeaders...)
	for _, d := range defs {
		if strings.HasSuffix(rendered.Path, strings.Replace(d.from, "./", "", 1)+".ts") {
			continue
		}
		header = append(header, fmt.Sprintf("import { %s } from '%s'", strings.Join(d.keys, ", "), d.from))
	}

	code := rendered.Body
	if len(header) > 0 {
		code = strings.Join(header, "\n") + "\n\n" + rendered.Body
	}
	if key != api.TemplateGeneratedHTTP {
		code = r.format(rendered.Path, code)
	}

	return api.PathAndCode{
		Path: r.expandTarget(rendered.Target) + "/" + rendered.Path,
		Code: code,
	}, nil
}

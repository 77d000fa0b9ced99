// Package writer fans rendered artifacts and synced sources out to every
// build target, and applies the overwrite policy of template generation.
package writer

import (
	"bytes"
	"context"
	"fmt"
	"io"
	"log/slog"
	"os"
	"path"
	"regexp"
	"runtime"
	"slices"
	"strings"
	"sync"

	"github.com/fatih/color"
	billy "github.com/go-git/go-billy/v5"
	"github.com/go-git/go-billy/v5/util"
	"golang.org/x/sync/errgroup"

	"github.com/agentic-research/syncgen/api"
	"github.com/agentic-research/syncgen/internal/config"
	"github.com/agentic-research/syncgen/internal/fsutil"
)

// Metrics counts the work done by a Writer.
type Metrics struct {
	Written   int   // files whose content changed
	Unchanged int   // writes skipped because the content was identical
	Bytes     int64 // bytes written
}

// Writer writes files below the app root through a billy filesystem.
type Writer struct {
	fs      billy.Filesystem
	cfg     *config.Config
	workers int
	logger  *slog.Logger
	out     io.Writer

	mu      sync.Mutex
	metrics Metrics
}

// New creates a writer for the targets of cfg.
func New(bfs billy.Filesystem, cfg *config.Config) *Writer {
	workers := cfg.Concurrency
	if workers <= 0 {
		workers = runtime.GOMAXPROCS(0)
	}
	return &Writer{
		fs:      bfs,
		cfg:     cfg,
		workers: workers,
		logger:  slog.Default(),
		out:     os.Stdout,
	}
}

// SetLogger replaces the default logger.
func (w *Writer) SetLogger(l *slog.Logger) { w.logger = l }

// SetOutput redirects the GENERATED/COPIED status lines. nil silences them.
func (w *Writer) SetOutput(out io.Writer) { w.out = out }

// Metrics returns a snapshot of the counters.
func (w *Writer) Metrics() Metrics {
	w.mu.Lock()
	defer w.mu.Unlock()
	return w.metrics
}

// ResetMetrics zeroes the counters.
func (w *Writer) ResetMetrics() {
	w.mu.Lock()
	w.metrics = Metrics{}
	w.mu.Unlock()
}

// ExpandTargets substitutes every configured target for the :target
// placeholder in p. Paths without the placeholder expand to themselves.
func ExpandTargets(p string, targets []string) []string {
	if !strings.Contains(p, api.TargetPlaceholder) {
		return []string{p}
	}
	out := make([]string, 0, len(targets))
	for _, t := range targets {
		dst := strings.Replace(p, api.TargetPlaceholder, t, 1)
		if !slices.Contains(out, dst) {
			out = append(out, dst)
		}
	}
	return out
}

// WriteArtifact writes pc to every target and returns the destination
// paths in target order.
func (w *Writer) WriteArtifact(ctx context.Context, pc api.PathAndCode) ([]string, error) {
	dsts := ExpandTargets(pc.Path, w.cfg.Targets)

	eg, ctx := errgroup.WithContext(ctx)
	eg.SetLimit(w.workers)
	for _, dst := range dsts {
		eg.Go(func() error {
			if err := ctx.Err(); err != nil {
				return err
			}
			if err := w.write(dst, []byte(pc.Code)); err != nil {
				return err
			}
			w.status("GENERATED", dst)
			return nil
		})
	}
	if err := eg.Wait(); err != nil {
		return nil, err
	}
	return dsts, nil
}

// write stores data at name unless the file already holds exactly data.
func (w *Writer) write(name string, data []byte) error {
	if existing, err := util.ReadFile(w.fs, name); err == nil && bytes.Equal(existing, data) {
		w.mu.Lock()
		w.metrics.Unchanged++
		w.mu.Unlock()
		return nil
	}
	if err := fsutil.WriteFileAtomic(w.fs, name, data); err != nil {
		return fmt.Errorf("write %s: %w", name, err)
	}
	w.mu.Lock()
	w.metrics.Written++
	w.metrics.Bytes += int64(len(data))
	w.mu.Unlock()
	w.logger.Debug("file written", "path", name, "bytes", len(data))
	return nil
}

func (w *Writer) status(verb, p string) {
	if w.out == nil {
		return
	}
	fmt.Fprintln(w.out, verb, color.BlueString(p))
}

var serverOnlyBlock = regexp.MustCompile(`(?s)/\* BEGIN- Server-side Only \*/.*?/\* END Server-side Only \*/\n*`)

// ShareSource rewrites an API source for a client target: imports of the
// core package point at the shared module and server-only blocks go.
func ShareSource(src string) string {
	src = strings.ReplaceAll(src, `from "sonamu"`, `from "../sonamu.shared"`)
	src = strings.ReplaceAll(src, `from 'sonamu'`, `from '../sonamu.shared'`)
	return serverOnlyBlock.ReplaceAllString(src, "")
}

// SourcePath maps a tracked path (relative to the API dir) to the source
// file it came from: compiled outputs map back to their .ts source.
func (w *Writer) SourcePath(p string) string {
	if rest, ok := strings.CutPrefix(p, w.cfg.CompiledDir+"/"); ok {
		p = path.Join(w.cfg.SourceDir, rest)
		if strings.HasSuffix(p, ".js") {
			p = strings.TrimSuffix(p, ".js") + ".ts"
		}
	}
	return p
}

// TargetPath is where the source file src (relative to the API dir) is
// synced to inside target.
func (w *Writer) TargetPath(target, src string) string {
	rel := strings.TrimPrefix(src, w.cfg.SourceDir+"/")
	return path.Join(target, "src/services", rel)
}

// SyncToTargets copies the given tracked files into every target tree and
// returns the destinations written. Missing sources are skipped.
func (w *Writer) SyncToTargets(ctx context.Context, paths []string) ([]string, error) {
	var srcs []string
	for _, p := range paths {
		if src := w.SourcePath(p); !slices.Contains(srcs, src) {
			srcs = append(srcs, src)
		}
	}

	type copyJob struct{ src, dst string }
	var jobs []copyJob
	for _, target := range w.cfg.Targets {
		for _, src := range srcs {
			jobs = append(jobs, copyJob{src: src, dst: w.TargetPath(target, src)})
		}
	}

	written := make([]string, len(jobs))
	eg, ctx := errgroup.WithContext(ctx)
	eg.SetLimit(w.workers)
	for i, job := range jobs {
		eg.Go(func() error {
			if err := ctx.Err(); err != nil {
				return err
			}
			from := path.Join(w.cfg.APIDir, job.src)
			content, err := util.ReadFile(w.fs, from)
			if err != nil {
				if fsutil.Exists(w.fs, from) {
					return fmt.Errorf("read %s: %w", from, err)
				}
				w.logger.Debug("sync source missing", "path", from)
				return nil
			}
			if err := w.write(job.dst, []byte(ShareSource(string(content)))); err != nil {
				return err
			}
			w.status("COPIED", job.dst)
			written[i] = job.dst
			return nil
		})
	}
	if err := eg.Wait(); err != nil {
		return nil, err
	}
	return slices.DeleteFunc(written, func(s string) bool { return s == "" }), nil
}

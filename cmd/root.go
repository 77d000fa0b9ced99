package cmd

import (
	"context"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"

	billy "github.com/go-git/go-billy/v5"
	"github.com/go-git/go-billy/v5/osfs"
	"github.com/spf13/cobra"

	"github.com/agentic-research/syncgen/internal/checksum"
	"github.com/agentic-research/syncgen/internal/config"
	"github.com/agentic-research/syncgen/internal/syncer"
)

var (
	rootDir    string
	configPath string
	verbose    bool
)

func init() {
	rootCmd.PersistentFlags().StringVarP(&rootDir, "root", "r", ".", "App root containing the API dir and the targets")
	rootCmd.PersistentFlags().StringVarP(&configPath, "config", "c", "", "Path to syncgen.hcl (default <root>/syncgen.hcl)")
	rootCmd.PersistentFlags().BoolVarP(&verbose, "verbose", "v", false, "Debug logging")
}

var rootCmd = &cobra.Command{
	Use:           "syncgen",
	Short:         "Keep generated schemas, services and views in sync with entity definitions",
	SilenceUsage:  true,
	SilenceErrors: true,
}

// env is what every subcommand works with.
type env struct {
	root   string
	fs     billy.Filesystem
	cfg    *config.Config
	logger *slog.Logger
}

func loadEnv() (*env, error) {
	root, err := filepath.Abs(rootDir)
	if err != nil {
		return nil, fmt.Errorf("resolve root: %w", err)
	}
	cfgFile := configPath
	if cfgFile == "" {
		cfgFile = filepath.Join(root, config.DefaultFile)
	}
	cfg, err := config.Load(cfgFile)
	if err != nil {
		return nil, err
	}

	level := slog.LevelInfo
	if verbose {
		level = slog.LevelDebug
	}
	logger := slog.New(slog.NewTextHandler(os.Stderr, &slog.HandlerOptions{Level: level}))
	slog.SetDefault(logger)

	return &env{root: root, fs: osfs.New(root), cfg: cfg, logger: logger}, nil
}

// openStore opens the configured checksum store. close releases it.
func (e *env) openStore() (store checksum.Store, closeFn func() error, err error) {
	switch e.cfg.Store {
	case "sqlite":
		s, err := checksum.NewSQLiteStore(filepath.Join(e.root, filepath.FromSlash(e.cfg.ChecksumPath())))
		if err != nil {
			return nil, nil, err
		}
		return s, s.Close, nil
	default:
		return checksum.NewJSONStore(e.fs, e.cfg.ChecksumPath()), func() error { return nil }, nil
	}
}

func (e *env) newSyncer() (*syncer.Syncer, func() error, error) {
	store, closeFn, err := e.openStore()
	if err != nil {
		return nil, nil, err
	}
	s := syncer.New(e.fs, e.cfg, store)
	s.SetLogger(e.logger)
	return s, closeFn, nil
}

// pipeline builds a one-shot generation pipeline.
func (e *env) pipeline(ctx context.Context) (*syncer.Pipeline, func() error, error) {
	s, closeFn, err := e.newSyncer()
	if err != nil {
		return nil, nil, err
	}
	p, err := s.NewPipeline(ctx)
	if err != nil {
		_ = closeFn()
		return nil, nil, err
	}
	return p, closeFn, nil
}

// Execute runs the root command.
func Execute() {
	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}

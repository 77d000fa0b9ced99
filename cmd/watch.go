package cmd

import (
	"context"
	"os"
	"os/signal"
	"path/filepath"
	"syscall"
	"time"

	"github.com/spf13/cobra"

	"github.com/agentic-research/syncgen/internal/watch"
)

var debounce time.Duration

func init() {
	watchCmd.Flags().DurationVar(&debounce, "debounce", watch.DefaultDebounce, "Quiet period before a sync runs")
	rootCmd.AddCommand(watchCmd)
}

var watchCmd = &cobra.Command{
	Use:   "watch",
	Short: "Sync once, then again whenever the API sources change",
	Args:  cobra.NoArgs,
	RunE: func(cmd *cobra.Command, _ []string) error {
		e, err := loadEnv()
		if err != nil {
			return err
		}
		s, closeFn, err := e.newSyncer()
		if err != nil {
			return err
		}
		defer func() { _ = closeFn() }()

		ctx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt, syscall.SIGTERM)
		defer stop()

		run := func(ctx context.Context) error {
			_, err := s.Sync(ctx)
			return err
		}
		if err := run(ctx); err != nil {
			e.logger.Error("initial sync failed", "error", err)
		}

		w := watch.New([]string{
			filepath.Join(e.root, filepath.FromSlash(e.cfg.SourceRoot())),
			filepath.Join(e.root, filepath.FromSlash(e.cfg.CompiledRoot())),
		}, run)
		w.Debounce = debounce
		w.Logger = e.logger
		return w.Watch(ctx)
	},
}

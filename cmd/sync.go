package cmd

import (
	"fmt"

	"github.com/fatih/color"
	"github.com/spf13/cobra"
)

var maxPasses int

func init() {
	syncCmd.Flags().IntVar(&maxPasses, "max-passes", 0, "Bound on passes per run (default 5)")
	rootCmd.AddCommand(syncCmd)
}

var syncCmd = &cobra.Command{
	Use:   "sync",
	Short: "Run one sync: detect changed artifacts, regenerate and copy to targets",
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
		s.SetMaxPasses(maxPasses)

		res, err := s.Sync(cmd.Context())
		if err != nil {
			return err
		}
		if !res.UpToDate() {
			m := s.Writer().Metrics()
			fmt.Printf("%s %d changed, %d generated, %d copied in %d pass(es); %d written, %d unchanged\n",
				color.New(color.FgGreen).Sprint("SYNCED"),
				len(res.Changed), len(res.Generated), len(res.Copied), res.Passes, m.Written, m.Unchanged)
		}
		return nil
	},
}

package cmd

import (
	"errors"
	"fmt"

	"github.com/fatih/color"
	"github.com/spf13/cobra"

	"github.com/agentic-research/syncgen/api"
	"github.com/agentic-research/syncgen/internal/writer"
)

var (
	genOpts   api.TemplateOptions
	overwrite bool
)

func init() {
	generateCmd.Flags().StringVarP(&genOpts.EntityID, "entity", "e", "", "Entity id, e.g. BrandItem")
	generateCmd.Flags().StringVar(&genOpts.EnumID, "enum", "", "Enum id for view_enums_* templates")
	generateCmd.Flags().StringVar(&genOpts.Title, "title", "", "Title of a new entity")
	generateCmd.Flags().StringVar(&genOpts.Table, "table", "", "Table of a new entity")
	generateCmd.Flags().StringVar(&genOpts.ParentID, "parent", "", "Parent of a new entity")
	generateCmd.Flags().BoolVarP(&overwrite, "overwrite", "f", false, "Overwrite existing files")
	_ = generateCmd.MarkFlagRequired("entity")
	rootCmd.AddCommand(generateCmd)
}

var generateCmd = &cobra.Command{
	Use:   "generate <template>",
	Short: "Render a template (and its dependent templates) for an entity",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		e, err := loadEnv()
		if err != nil {
			return err
		}
		p, closeFn, err := e.pipeline(cmd.Context())
		if err != nil {
			return err
		}
		defer func() { _ = closeFn() }()

		_, err = p.Generator.Generate(cmd.Context(), api.TemplateKey(args[0]), genOpts, api.GenerateOptions{Overwrite: overwrite})
		if errors.Is(err, writer.ErrAlreadyProcessed) {
			fmt.Println(color.New(color.FgYellow).Sprint("SKIPPED"), "every file already exists; use --overwrite to replace them")
			return nil
		}
		return err
	},
}

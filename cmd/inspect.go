package cmd

import (
	"encoding/json"
	"fmt"
	"sort"

	"github.com/fatih/color"
	"github.com/ohler55/ojg/oj"
	"github.com/spf13/cobra"
)

var subsetKey string

func init() {
	columnsCmd.Flags().StringVar(&subsetKey, "subset", "A", "Subset key")
	rootCmd.AddCommand(apisCmd, columnsCmd, existsCmd, queryCmd)
}

func printJSON(v any) error {
	b, err := json.MarshalIndent(v, "", "  ")
	if err != nil {
		return err
	}
	fmt.Println(string(b))
	return nil
}

var apisCmd = &cobra.Command{
	Use:   "apis <entity>",
	Short: "Print the @api signatures of an entity model",
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

		sigs, err := p.Renderer.ReadSignatures(cmd.Context(), args[0])
		if err != nil {
			return err
		}
		for _, d := range p.APIs.Unresolved() {
			e.logger.Warn("decorated method has no signature", "model", d.ModelName, "method", d.MethodName)
		}
		return printJSON(sigs)
	},
}

var columnsCmd = &cobra.Command{
	Use:   "columns <entity>",
	Short: "Print the list-column rendering tree of an entity subset",
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

		node, err := p.Schemas.ColumnsNode(args[0], subsetKey)
		if err != nil {
			return err
		}
		return printJSON(node)
	},
}

var existsCmd = &cobra.Command{
	Use:   "exists <entity>",
	Short: "Report which template outputs already exist for an entity",
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

		ent, err := p.Entities.Get(args[0])
		if err != nil {
			return err
		}
		enumIDs := make([]string, 0, len(ent.Enums))
		for id := range ent.Enums {
			enumIDs = append(enumIDs, id)
		}
		sort.Strings(enumIDs)

		result, err := p.Generator.CheckExists(args[0], enumIDs)
		if err != nil {
			return err
		}
		keys := make([]string, 0, len(result))
		for k := range result {
			keys = append(keys, k)
		}
		sort.Strings(keys)
		for _, k := range keys {
			mark := color.New(color.FgYellow).Sprint("missing")
			if result[k] {
				mark = color.New(color.FgGreen).Sprint("exists")
			}
			fmt.Printf("%-40s %s\n", k, mark)
		}
		return nil
	},
}

var queryCmd = &cobra.Command{
	Use:   "query <jsonpath>",
	Short: "Evaluate a JSONPath expression against every entity definition",
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

		results, err := p.Entities.Query(args[0])
		if err != nil {
			return err
		}
		fmt.Println(oj.JSON(results, &oj.Options{Indent: 2}))
		return nil
	},
}

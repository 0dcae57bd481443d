package main

import (
	"path/filepath"

	"github.com/spf13/cobra"

	"sortdir/internal/classify"
)

type classification struct {
	Name      string `json:"name"`
	Extension string `json:"extension"`
	Category  string `json:"category"`
}

func newClassifyCommand(ctx *commandContext) *cobra.Command {
	var jsonOutput bool

	cmd := &cobra.Command{
		Use:   "classify NAME...",
		Short: "Show which category folder each file name belongs to",
		Args:  cobra.MinimumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := ctx.ensureConfig()
			if err != nil {
				return err
			}
			table, err := cfg.Table()
			if err != nil {
				return err
			}

			results := make([]classification, 0, len(args))
			for _, arg := range args {
				name := filepath.Base(arg)
				results = append(results, classification{
					Name:      arg,
					Extension: classify.Extension(name),
					Category:  table.Classify(name),
				})
			}

			if jsonOutput {
				return writeJSON(cmd, results)
			}
			rows := make([][]string, 0, len(results))
			for _, r := range results {
				ext := r.Extension
				if ext == "" {
					ext = "-"
				}
				rows = append(rows, []string{r.Name, ext, r.Category + "/"})
			}
			_, err = cmd.OutOrStdout().Write([]byte(renderTable([]string{"Name", "Extension", "Folder"}, rows, nil) + "\n"))
			return err
		},
	}
	cmd.Flags().BoolVar(&jsonOutput, "json", false, "Print results as JSON")
	return cmd
}

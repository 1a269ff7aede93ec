package main

import (
	"encoding/json"
	"fmt"
	"strings"

	"github.com/jedib0t/go-pretty/v6/table"
	"github.com/spf13/cobra"

	"github.com/reflib/reflib/internal/bib"
)

func newDirsCmd() *cobra.Command {
	var (
		field  string
		format string
	)

	cmd := &cobra.Command{
		Use:   "dirs",
		Short: "Show the file directories of a library",
		Long:  "Resolve the ordered list of directories searched for files linked in a field, combining the library metadata, the local preferences, and the library file's own location.",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			c, err := loadLibrary()
			if err != nil {
				return err
			}
			fp, err := loadFilePreferences()
			if err != nil {
				return err
			}

			dirs := c.FileDirectories(strings.ToLower(field), fp)
			first, _ := bib.FirstExistingDirectory(dirs)

			switch format {
			case "json":
				return dirsJSON(cmd, dirs, first)
			case "table":
				dirsTable(cmd, dirs, first)
				return nil
			default:
				return fmt.Errorf("invalid format: %s (valid values: table, json)", format)
			}
		},
	}

	cmd.Flags().StringVar(&field, "field", bib.FieldFile, "Field whose directories to resolve")
	cmd.Flags().StringVar(&format, "format", "table", "Output format: table or json")

	return cmd
}

type dirsOutput struct {
	Directories   []string `json:"directories"`
	FirstExisting string   `json:"firstExisting,omitempty"`
}

func dirsJSON(cmd *cobra.Command, dirs []string, first string) error {
	encoder := json.NewEncoder(cmd.OutOrStdout())
	encoder.SetIndent("", "  ")
	return encoder.Encode(dirsOutput{Directories: dirs, FirstExisting: first})
}

func dirsTable(cmd *cobra.Command, dirs []string, first string) {
	t := table.NewWriter()
	t.SetOutputMirror(cmd.OutOrStdout())
	t.SetStyle(table.StyleLight)

	t.AppendHeader(table.Row{"#", "Directory", ""})
	for i, dir := range dirs {
		marker := ""
		if dir == first && first != "" {
			marker = "exists"
			// the marker belongs to the first existing entry only
			first = ""
		}
		t.AppendRow(table.Row{i + 1, dir, marker})
	}
	t.Render()
}

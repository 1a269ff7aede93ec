package main

import (
	"encoding/json"
	"fmt"

	"github.com/jedib0t/go-pretty/v6/table"
	"github.com/spf13/cobra"

	"github.com/reflib/reflib/internal/bib"
	"github.com/reflib/reflib/internal/filelink"
)

func newFilesCmd() *cobra.Command {
	var (
		key    string
		format string
	)

	cmd := &cobra.Command{
		Use:   "files",
		Short: "Locate the files linked from entries",
		Long:  "Parse the file links stored in entries and report where each linked file was found, probing the library's file directories in order.",
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

			dirs := c.FileDirectories(bib.FieldFile, fp)

			entries := c.Database().Entries()
			if key != "" {
				e, ok := c.Database().EntryByKey(key)
				if !ok {
					return fmt.Errorf("entry not found: %s", key)
				}
				entries = []*bib.Entry{e}
			}

			var rows []fileRow
			for _, e := range entries {
				value, ok := e.Field(bib.FieldFile)
				if !ok {
					continue
				}
				for _, link := range filelink.Parse(value) {
					row := fileRow{
						Key:         e.CitationKey(),
						Description: link.Description,
						Path:        link.Path,
					}
					if resolved, found := filelink.Locate(link, dirs); found {
						row.ResolvedPath = resolved
						row.Found = true
					}
					rows = append(rows, row)
				}
			}

			switch format {
			case "json":
				return filesJSON(cmd, rows)
			case "table":
				filesTable(cmd, rows)
				return nil
			default:
				return fmt.Errorf("invalid format: %s (valid values: table, json)", format)
			}
		},
	}

	cmd.Flags().StringVar(&key, "key", "", "Only report the entry with this citation key")
	cmd.Flags().StringVar(&format, "format", "table", "Output format: table or json")

	return cmd
}

type fileRow struct {
	Key          string `json:"key"`
	Description  string `json:"description,omitempty"`
	Path         string `json:"path"`
	ResolvedPath string `json:"resolvedPath,omitempty"`
	Found        bool   `json:"found"`
}

func filesJSON(cmd *cobra.Command, rows []fileRow) error {
	encoder := json.NewEncoder(cmd.OutOrStdout())
	encoder.SetIndent("", "  ")
	return encoder.Encode(rows)
}

func filesTable(cmd *cobra.Command, rows []fileRow) {
	t := table.NewWriter()
	t.SetOutputMirror(cmd.OutOrStdout())
	t.SetStyle(table.StyleLight)

	t.AppendHeader(table.Row{"Key", "Description", "Path", "Located At"})
	for _, row := range rows {
		located := "missing"
		if row.Found {
			located = row.ResolvedPath
		}
		t.AppendRow(table.Row{row.Key, row.Description, row.Path, located})
	}
	t.Render()
}

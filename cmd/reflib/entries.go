package main

import (
	"encoding/json"
	"fmt"
	"os"

	"github.com/jedib0t/go-pretty/v6/table"
	"github.com/mattn/go-runewidth"
	"github.com/spf13/cobra"
	"golang.org/x/term"

	"github.com/reflib/reflib/internal/bib"
)

func newEntriesCmd() *cobra.Command {
	var (
		groupPath string
		format    string
	)

	cmd := &cobra.Command{
		Use:   "entries",
		Short: "List the entries of a library",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			c, err := loadLibrary()
			if err != nil {
				return err
			}

			entries := c.Database().Entries()
			if groupPath != "" {
				root, ok := c.MetaData().GroupsRoot()
				if !ok {
					return fmt.Errorf("library has no groups")
				}
				node, ok := root.ChildByPath(groupPath)
				if !ok {
					return fmt.Errorf("no group at %q", groupPath)
				}
				var matched []*bib.Entry
				for _, e := range entries {
					if node.Matches(e) {
						matched = append(matched, e)
					}
				}
				entries = matched
			}

			switch format {
			case "json":
				return entriesJSON(cmd, entries)
			case "table":
				entriesTable(cmd, entries)
				return nil
			default:
				return fmt.Errorf("invalid format: %s (valid values: table, json)", format)
			}
		},
	}

	cmd.Flags().StringVar(&groupPath, "group", "", "Only list entries matching the group at this path, e.g. \"Research > Methods\"")
	cmd.Flags().StringVar(&format, "format", "table", "Output format: table or json")

	return cmd
}

type entryOutput struct {
	CitationKey string            `json:"citationKey"`
	Type        string            `json:"type"`
	Fields      map[string]string `json:"fields,omitempty"`
}

func entriesJSON(cmd *cobra.Command, entries []*bib.Entry) error {
	output := make([]entryOutput, 0, len(entries))
	for _, e := range entries {
		output = append(output, entryOutput{
			CitationKey: e.CitationKey(),
			Type:        e.Type(),
			Fields:      e.Fields(),
		})
	}

	encoder := json.NewEncoder(cmd.OutOrStdout())
	encoder.SetIndent("", "  ")
	return encoder.Encode(output)
}

func getTerminalWidth() int {
	// Try to get terminal width from stdout
	if width, _, err := term.GetSize(int(os.Stdout.Fd())); err == nil && width > 0 {
		return width
	}
	// Default width if terminal size cannot be determined
	return 80
}

// entryColumnWidths holds the calculated widths for the entry table. Key and
// Type get the room their data needs; Author and Title share the rest.
type entryColumnWidths struct {
	key    int
	typ    int
	author int
	title  int
}

func calculateEntryColumnWidths(termWidth int, entries []*bib.Entry) entryColumnWidths {
	// Reserve space for table borders and padding (roughly 3 chars per column)
	availableWidth := termWidth - 4*3

	maxKeyWidth, maxTypeWidth := 0, 0
	for _, e := range entries {
		if w := runewidth.StringWidth(e.CitationKey()); w > maxKeyWidth {
			maxKeyWidth = w
		}
		if w := runewidth.StringWidth(e.Type()); w > maxTypeWidth {
			maxTypeWidth = w
		}
	}

	widths := entryColumnWidths{key: maxKeyWidth, typ: maxTypeWidth}
	if widths.key < 3 {
		widths.key = 3
	}
	if widths.key > 40 {
		widths.key = 40
	}
	if widths.typ < 4 {
		widths.typ = 4
	}
	if widths.typ > 20 {
		widths.typ = 20
	}

	remaining := availableWidth - widths.key - widths.typ
	widths.author = remaining / 3
	widths.title = remaining - widths.author
	if widths.author < 10 {
		widths.author = 10
	}
	if widths.title < 15 {
		widths.title = 15
	}
	return widths
}

func entriesTable(cmd *cobra.Command, entries []*bib.Entry) {
	t := table.NewWriter()
	t.SetOutputMirror(cmd.OutOrStdout())
	t.SetStyle(table.StyleLight)

	widths := calculateEntryColumnWidths(getTerminalWidth(), entries)

	t.AppendHeader(table.Row{"Key", "Type", "Author", "Title"})
	for _, e := range entries {
		author, _ := e.Field(bib.FieldAuthor)
		title, _ := e.Field(bib.FieldTitle)
		t.AppendRow(table.Row{
			runewidth.Truncate(e.CitationKey(), widths.key, "..."),
			runewidth.Truncate(e.Type(), widths.typ, "..."),
			runewidth.Truncate(author, widths.author, "..."),
			runewidth.Truncate(title, widths.title, "..."),
		})
	}
	t.Render()
}

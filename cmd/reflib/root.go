package main

import (
	"errors"
	"log/slog"
	"os"

	"github.com/spf13/cobra"

	"github.com/reflib/reflib/internal/bib"
	"github.com/reflib/reflib/internal/config"
	"github.com/reflib/reflib/internal/library"
	"github.com/reflib/reflib/internal/prefs"
)

var (
	libraryPath string
	verbose     bool
)

var rootCmd = &cobra.Command{
	Use:   "reflib",
	Short: "reflib - a bibliography library manager",
	Long:  "reflib organizes bibliography entries in library files, arranges them in groups, and resolves the directories that hold linked files.",
	PersistentPreRun: func(_ *cobra.Command, _ []string) {
		level := slog.LevelWarn
		if verbose {
			level = slog.LevelDebug
		}
		slog.SetDefault(slog.New(slog.NewTextHandler(os.Stderr, &slog.HandlerOptions{Level: level})))
	},
}

func init() {
	rootCmd.PersistentFlags().StringVar(&libraryPath, "library", "", "Path to the library file")
	rootCmd.PersistentFlags().BoolVar(&verbose, "verbose", false, "Enable debug logging")

	rootCmd.AddCommand(newDirsCmd())
	rootCmd.AddCommand(newGroupsCmd())
	rootCmd.AddCommand(newEntriesCmd())
	rootCmd.AddCommand(newFilesCmd())
	rootCmd.AddCommand(newSyncCmd())
	rootCmd.AddCommand(newMCPCmd())
}

func loadLibrary() (*bib.Context, error) {
	if libraryPath == "" {
		return nil, errors.New("--library is required")
	}
	return library.Load(libraryPath)
}

func loadFilePreferences() (prefs.FilePreferences, error) {
	return prefs.Load(config.GetPreferencesPath())
}

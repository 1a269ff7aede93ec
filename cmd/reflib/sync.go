package main

import (
	"context"
	"errors"
	"log/slog"

	"github.com/spf13/cobra"

	"github.com/reflib/reflib/internal/config"
	"github.com/reflib/reflib/internal/library"
	"github.com/reflib/reflib/internal/shareddb"
)

func newSyncCmd() *cobra.Command {
	var storePath string

	cmd := &cobra.Command{
		Use:   "sync",
		Short: "Mirror a library into a shared store",
		Long:  "Push a library into the shared SQLite store, pull the store's state back into a library file, or inspect what the store holds.",
	}

	cmd.PersistentFlags().StringVar(&storePath, "store", "", "Path to the shared store (default: under the data directory)")

	push := &cobra.Command{
		Use:   "push",
		Short: "Write the library's entries and metadata into the store",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			c, err := loadLibrary()
			if err != nil {
				return err
			}
			store, err := openStore(storePath)
			if err != nil {
				return err
			}
			defer func() {
				_ = store.Close()
			}()

			ctx := context.Background()
			syncer := shareddb.NewSynchronizer(store, slog.Default())
			if err := syncer.InitialPush(ctx, c); err != nil {
				return err
			}

			count, err := store.EntryCount(ctx)
			if err != nil {
				return err
			}
			cmd.Printf("Pushed %d entries; store now holds %d\n", c.Database().Size(), count)
			return nil
		},
	}

	pull := &cobra.Command{
		Use:   "pull",
		Short: "Rebuild the library file from the store",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			if libraryPath == "" {
				return errors.New("--library is required")
			}
			store, err := openStore(storePath)
			if err != nil {
				return err
			}
			defer func() {
				_ = store.Close()
			}()

			syncer := shareddb.NewSynchronizer(store, slog.Default())
			c, err := syncer.Pull(context.Background())
			if err != nil {
				return err
			}
			if err := library.Save(c, libraryPath); err != nil {
				return err
			}

			cmd.Printf("Pulled %d entries into %s\n", c.Database().Size(), libraryPath)
			return nil
		},
	}

	status := &cobra.Command{
		Use:   "status",
		Short: "Show what the store holds",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			store, err := openStore(storePath)
			if err != nil {
				return err
			}
			defer func() {
				_ = store.Close()
			}()

			ctx := context.Background()
			count, err := store.EntryCount(ctx)
			if err != nil {
				return err
			}
			pairs, err := store.Metadata(ctx)
			if err != nil {
				return err
			}

			cmd.Printf("Entries: %d\n", count)
			for key, value := range pairs {
				cmd.Printf("%s: %s\n", key, value)
			}
			return nil
		},
	}

	cmd.AddCommand(push, pull, status)
	return cmd
}

func openStore(path string) (*shareddb.Store, error) {
	if path == "" {
		path = config.GetSharedStorePath()
	}
	return shareddb.Open(path)
}

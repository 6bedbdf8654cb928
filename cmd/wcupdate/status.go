package main

import (
	"context"
	"fmt"
	"os"

	"github.com/dustin/go-humanize"
	"github.com/fsnotify/fsnotify"
	"github.com/spf13/cobra"

	"github.com/wcupdate/wcupdate/internal/adm"
	"github.com/wcupdate/wcupdate/internal/entries"
	"github.com/wcupdate/wcupdate/internal/logjournal"
)

var statusWatch bool

func init() {
	statusCmd.Flags().BoolVar(&statusWatch, "watch", false, "keep running, reprinting status whenever a log file or admin area changes")
	rootCmd.AddCommand(statusCmd)
}

var statusCmd = &cobra.Command{
	Use:   "status <path>",
	Short: "Report directories left incomplete or holding an unreplayed log",
	Args:  cobra.ExactArgs(1),
	RunE:  runStatus,
}

func runStatus(cmd *cobra.Command, args []string) error {
	root := args[0]
	if err := reportStatus(cmd, root); err != nil {
		return err
	}
	if !statusWatch {
		return nil
	}
	return watchStatus(cmd.Context(), cmd, root)
}

func reportStatus(cmd *cobra.Command, root string) error {
	store, err := entries.NewSQLiteStore(root)
	if err != nil {
		return fmt.Errorf("open entries store: %w", err)
	}
	defer store.Close()

	out := cmd.OutOrStdout()
	return walkAdminDirs(root, func(dir string) error {
		if logjournal.Exists(dir) {
			age := "unknown age"
			if info, err := os.Stat(adm.LogPath(dir)); err == nil {
				age = humanize.Time(info.ModTime())
			}
			fmt.Fprintf(out, "L %s (log written %s)\n", dir, age)
		}
		snapshot, err := store.Read(dir)
		if err != nil {
			return fmt.Errorf("read %s: %w", dir, err)
		}
		if this, ok := snapshot[entries.ThisDir]; ok && this.Incomplete {
			fmt.Fprintf(out, "! %s\n", dir)
		}
		return nil
	})
}

// watchStatus keeps reporting status as the working copy changes, using
// fsnotify on every admin directory walkAdminDirs finds. It runs until ctx
// is cancelled or the watcher errors out.
func watchStatus(ctx context.Context, cmd *cobra.Command, root string) error {
	watcher, err := fsnotify.NewWatcher()
	if err != nil {
		return fmt.Errorf("start watcher: %w", err)
	}
	defer watcher.Close()

	if err := walkAdminDirs(root, func(dir string) error {
		return watcher.Add(dir)
	}); err != nil {
		return fmt.Errorf("watch %s: %w", root, err)
	}

	for {
		select {
		case <-ctx.Done():
			return nil
		case event, ok := <-watcher.Events:
			if !ok {
				return nil
			}
			if event.Op&(fsnotify.Write|fsnotify.Create|fsnotify.Remove|fsnotify.Rename) == 0 {
				continue
			}
			if err := reportStatus(cmd, root); err != nil {
				return err
			}
		case err, ok := <-watcher.Errors:
			if !ok {
				return nil
			}
			return fmt.Errorf("watch %s: %w", root, err)
		}
	}
}

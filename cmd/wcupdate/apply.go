package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"

	"github.com/spf13/cobra"

	"github.com/wcupdate/wcupdate/internal/adm"
	"github.com/wcupdate/wcupdate/internal/config"
	"github.com/wcupdate/wcupdate/internal/deltascript"
	"github.com/wcupdate/wcupdate/internal/entries"
	"github.com/wcupdate/wcupdate/internal/logjournal"
	"github.com/wcupdate/wcupdate/internal/notify"
	"github.com/wcupdate/wcupdate/internal/pristine"
	"github.com/wcupdate/wcupdate/internal/wcedit"
	"github.com/wcupdate/wcupdate/internal/wclog"
)

func init() {
	rootCmd.AddCommand(applyCmd)
}

var applyCmd = &cobra.Command{
	Use:   "apply <path> <delta-script>",
	Short: "Drive an update editor over a working copy from a delta script",
	Args:  cobra.ExactArgs(2),
	RunE:  runApply,
}

func runApply(cmd *cobra.Command, args []string) error {
	path, scriptPath := args[0], args[1]

	lock, err := adm.Acquire(path)
	if err != nil {
		return fmt.Errorf("acquire lock: %w", err)
	}
	defer lock.Release()

	store, err := entries.NewSQLiteStore(path)
	if err != nil {
		return fmt.Errorf("open entries store: %w", err)
	}
	defer store.Close()

	anchor, target, err := wcedit.ResolveAnchorTarget(store, path)
	if err != nil {
		return fmt.Errorf("resolve anchor/target: %w", err)
	}

	cfg, err := config.Load(anchor)
	if err != nil {
		return fmt.Errorf("load config: %w", err)
	}

	ps := pristine.NewFSStore(anchor)
	runner := logjournal.NewRunner(store, wcedit.NewKeywordSource(store))

	ctx := wcedit.NewEditContext(anchor, target)
	ctx.UseCommitTimes = cfg.UseCommitTimes
	ctx.Diff3Cmd = cfg.Diff3Cmd
	ctx.Notify = notify.NewTerminalSink(cmd.OutOrStdout())

	sigCtx, stop := signal.NotifyContext(context.Background(), os.Interrupt)
	defer stop()
	ctx.Cancel = sigCtx.Err

	editor := wcedit.NewEditor(ctx, store, ps, runner, lock)
	logOpts := wclog.DefaultOptions(anchor)
	if cfg.LogPath != "" {
		logOpts.Path = cfg.LogPath
	}
	editor.Logger = wclog.New(logOpts)

	f, err := os.Open(scriptPath)
	if err != nil {
		return fmt.Errorf("open delta script: %w", err)
	}
	defer f.Close()

	if err := deltascript.Run(editor, anchor, f); err != nil {
		return fmt.Errorf("apply delta script: %w", err)
	}
	return nil
}

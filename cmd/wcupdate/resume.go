package main

import (
	"fmt"

	"github.com/charmbracelet/huh"
	"github.com/spf13/cobra"

	"github.com/wcupdate/wcupdate/internal/adm"
	"github.com/wcupdate/wcupdate/internal/entries"
	"github.com/wcupdate/wcupdate/internal/logjournal"
	"github.com/wcupdate/wcupdate/internal/wcedit"
)

func init() {
	resumeCmd.Flags().BoolP("yes", "y", false, "replay without prompting for confirmation")
	rootCmd.AddCommand(resumeCmd)
}

var resumeCmd = &cobra.Command{
	Use:   "resume <path>",
	Short: "Replay any log left behind in every admin directory under path",
	Args:  cobra.ExactArgs(1),
	RunE:  runResume,
}

func runResume(cmd *cobra.Command, args []string) error {
	root := args[0]

	yes, _ := cmd.Flags().GetBool("yes")
	if !yes {
		ok, err := confirmResume(root)
		if err != nil {
			return fmt.Errorf("confirm: %w", err)
		}
		if !ok {
			fmt.Fprintln(cmd.OutOrStdout(), "resume canceled.")
			return nil
		}
	}

	lock, err := adm.Acquire(root)
	if err != nil {
		return fmt.Errorf("acquire lock: %w", err)
	}
	defer lock.Release()

	store, err := entries.NewSQLiteStore(root)
	if err != nil {
		return fmt.Errorf("open entries store: %w", err)
	}
	defer store.Close()

	runner := logjournal.NewRunner(store, wcedit.NewKeywordSource(store))

	out := cmd.OutOrStdout()
	return walkAdminDirs(root, func(dir string) error {
		if !logjournal.Exists(dir) {
			return nil
		}
		conflicts, err := runner.Run(dir)
		if err != nil {
			return fmt.Errorf("replay %s: %w", dir, err)
		}
		for _, c := range conflicts {
			fmt.Fprintf(out, "C %s\n", c.Path)
		}
		fmt.Fprintf(out, "resumed %s\n", dir)
		return nil
	})
}

func confirmResume(root string) (bool, error) {
	var ok bool
	form := huh.NewForm(
		huh.NewGroup(
			huh.NewConfirm().
				Title(fmt.Sprintf("Replay pending logs under %s?", root)).
				Affirmative("Resume").
				Negative("Cancel").
				Value(&ok),
		),
	)
	if err := form.Run(); err != nil {
		if err == huh.ErrUserAborted {
			return false, nil
		}
		return false, err
	}
	return ok, nil
}

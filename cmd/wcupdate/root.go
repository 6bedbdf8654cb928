package main

import (
	"os"
	"path/filepath"

	"github.com/spf13/cobra"

	"github.com/wcupdate/wcupdate/internal/adm"
)

var rootCmd = &cobra.Command{
	Use:           "wcupdate",
	Short:         "Drive a working-copy update editor against a delta script",
	SilenceUsage:  true,
	SilenceErrors: true,
}

// Execute runs the command tree; main only prints whatever error comes
// back and sets the exit code.
func Execute() error {
	return rootCmd.Execute()
}

// walkAdminDirs visits every versioned directory under root (every
// directory carrying an adm.DirName admin area), root first.
func walkAdminDirs(root string, fn func(dir string) error) error {
	return filepath.Walk(root, func(path string, info os.FileInfo, err error) error {
		if err != nil {
			return err
		}
		if !info.IsDir() || info.Name() != adm.DirName {
			return nil
		}
		return fn(filepath.Dir(path))
	})
}

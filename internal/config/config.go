// Package config loads wcupdate's settings: environment variables override
// a single config file (the project-local one when present, otherwise the
// user one), which overrides built-in defaults.
package config

import (
	"os"
	"path/filepath"
	"strings"

	"github.com/spf13/viper"
)

// Config is the resolved set of settings one `wcupdate` invocation runs
// with.
type Config struct {
	// UseCommitTimes mirrors spec.md §3's EditContext.use_commit_times.
	UseCommitTimes bool
	// Diff3Cmd names an external diff3 binary; empty uses the built-in
	// merge3 engine (internal/merge3).
	Diff3Cmd string
	// Color holds the configured color mode ("always", "never" or "auto").
	// It is loaded but not consulted: the terminal notification sink
	// detects color support from the environment on its own.
	Color string
	// LogPath overrides the default <wc-root>/.wcadm/wcupdate.log
	// diagnostic log location; empty keeps the default.
	LogPath string
}

// Load resolves settings for a command rooted at workCopyDir. Precedence,
// highest first: WCUPDATE_* environment variables, one config file, built-in
// defaults. The config file is <workCopyDir>/.wcupdate/config.yaml when it
// exists, otherwise ~/.config/wcupdate/config.yaml; the two files are never
// merged.
func Load(workCopyDir string) (Config, error) {
	v := viper.New()
	v.SetConfigType("yaml")

	v.SetDefault("use-commit-times", false)
	v.SetDefault("diff3", "")
	v.SetDefault("color", "auto")
	v.SetDefault("log-path", "")

	v.SetEnvPrefix("WCUPDATE")
	v.SetEnvKeyReplacer(strings.NewReplacer("-", "_"))
	v.AutomaticEnv()

	configFileSet := false
	if workCopyDir != "" {
		projectPath := filepath.Join(workCopyDir, ".wcupdate", "config.yaml")
		if _, err := os.Stat(projectPath); err == nil {
			v.SetConfigFile(projectPath)
			configFileSet = true
		}
	}
	if !configFileSet {
		if configDir, err := os.UserConfigDir(); err == nil {
			userPath := filepath.Join(configDir, "wcupdate", "config.yaml")
			if _, err := os.Stat(userPath); err == nil {
				v.SetConfigFile(userPath)
				configFileSet = true
			}
		}
	}

	if configFileSet {
		if err := v.ReadInConfig(); err != nil {
			return Config{}, err
		}
	}

	return Config{
		UseCommitTimes: v.GetBool("use-commit-times"),
		Diff3Cmd:       v.GetString("diff3"),
		Color:          v.GetString("color"),
		LogPath:        v.GetString("log-path"),
	}, nil
}

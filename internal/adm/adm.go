// Package adm manages the per-directory administrative area: the on-disk
// layout spec.md §6 calls out ("admin directory `.adm/` per versioned
// directory, containing entries file, prop file, log file, text-base/,
// text-base/tmp/, wcprops/"), plus the working-copy-wide admin lock and
// format stamp that sit alongside it but outside the editor's own scope.
package adm

import (
	"fmt"
	"os"
	"path/filepath"

	"golang.org/x/mod/semver"
)

// DirName is the admin subdirectory name created inside every versioned
// directory of a working copy.
const DirName = ".wcadm"

// FormatFile is the version stamp written at the root admin area. Its
// presence and value let a future on-disk layout change refuse to operate
// on an older working copy instead of silently corrupting it, the same
// role svn's own "format" file plays.
const FormatFile = "format"

// CurrentFormat is the semantic version (interpreted with
// golang.org/x/mod/semver, hence the leading "v") this build writes and
// expects to find in FormatFile.
const CurrentFormat = "v1.0.0"

// Dir returns the admin-area path for a versioned directory.
func Dir(versionedDir string) string {
	return filepath.Join(versionedDir, DirName)
}

// PristineDir returns the pristine text-base area for a versioned directory.
func PristineDir(versionedDir string) string {
	return filepath.Join(Dir(versionedDir), "pristine")
}

// PristineTmpDir returns the staging area for not-yet-installed text-bases.
func PristineTmpDir(versionedDir string) string {
	return filepath.Join(PristineDir(versionedDir), "tmp")
}

// LogPath returns the per-directory journal log file path.
func LogPath(versionedDir string) string {
	return filepath.Join(Dir(versionedDir), "log")
}

// WCPropsDir returns the working-copy-only property area for a directory.
func WCPropsDir(versionedDir string) string {
	return filepath.Join(Dir(versionedDir), "wcprops")
}

// Ensure creates the admin area (and its pristine/tmp/wcprops subdirs) for
// versionedDir if they do not already exist, and stamps/validates the
// format file.
func Ensure(versionedDir string) error {
	for _, d := range []string{Dir(versionedDir), PristineDir(versionedDir), PristineTmpDir(versionedDir), WCPropsDir(versionedDir)} {
		if err := os.MkdirAll(d, 0750); err != nil {
			return fmt.Errorf("adm: create %s: %w", d, err)
		}
	}
	return stampOrCheckFormat(versionedDir)
}

func stampOrCheckFormat(versionedDir string) error {
	path := filepath.Join(Dir(versionedDir), FormatFile)
	data, err := os.ReadFile(path) // #nosec G304 -- versionedDir is the caller's own working copy path
	if err != nil {
		if os.IsNotExist(err) {
			return os.WriteFile(path, []byte(CurrentFormat+"\n"), 0640)
		}
		return fmt.Errorf("adm: read format: %w", err)
	}

	found := trimNL(string(data))
	if !semver.IsValid(found) {
		return fmt.Errorf("adm: %s: unrecognized format stamp %q", path, found)
	}
	if semver.Major(found) != semver.Major(CurrentFormat) {
		return fmt.Errorf("adm: %s: working copy format %s is incompatible with this build (%s)", path, found, CurrentFormat)
	}
	return nil
}

func trimNL(s string) string {
	for len(s) > 0 && (s[len(s)-1] == '\n' || s[len(s)-1] == '\r') {
		s = s[:len(s)-1]
	}
	return s
}

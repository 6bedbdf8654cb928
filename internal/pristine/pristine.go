// Package pristine implements the pristine text-base store: the
// collaborator spec.md §6 names that "opens/closes the pristine text-base
// for a versioned path, in read, write-truncate, or temporary variants".
package pristine

import (
	"fmt"
	"io"
	"os"
	"path/filepath"

	"github.com/wcupdate/wcupdate/internal/adm"
)

// OpenMode selects which variant of the text-base a caller wants.
type OpenMode int

const (
	// ReadOnly opens the existing text-base for reading. A missing
	// text-base is reported as os.ErrNotExist (the editor treats that as
	// "brand-new file", per spec.md §4.5 step 3).
	ReadOnly OpenMode = iota
	// WriteTruncateCreate opens (creating if absent) a fresh temporary
	// text-base for writing, truncating any prior content.
	WriteTruncateCreate
)

// Store is the pristine-store collaborator contract.
type Store interface {
	// TextBasePath derives the on-disk path for file's text-base. If tmp is
	// true, the path is in the staging area instead of the installed
	// location.
	TextBasePath(file string, tmp bool) string

	// OpenTextBase opens file's text-base in the given mode.
	OpenTextBase(file string, mode OpenMode) (io.ReadWriteCloser, error)

	// InstallTemp atomically rotates the temp text-base at tmpPath into
	// the installed text-base location for file (spec.md §6's MV command,
	// applied to the pristine area specifically).
	InstallTemp(file, tmpPath string) error

	// Remove deletes the (installed) text-base for file, if present.
	Remove(file string) error
}

// FSStore is the concrete filesystem-backed Store: plain files under
// <admin>/pristine/ and <admin>/pristine/tmp/, exactly the layout spec.md
// §6 describes.
type FSStore struct {
	root string // working-copy root
}

// NewFSStore returns a pristine Store rooted at a working copy.
func NewFSStore(root string) *FSStore {
	return &FSStore{root: root}
}

func (s *FSStore) TextBasePath(file string, tmp bool) string {
	dir := filepath.Dir(file)
	base := filepath.Base(file)
	if tmp {
		return filepath.Join(adm.PristineTmpDir(dir), base)
	}
	return filepath.Join(adm.PristineDir(dir), base)
}

func (s *FSStore) OpenTextBase(file string, mode OpenMode) (io.ReadWriteCloser, error) {
	switch mode {
	case ReadOnly:
		path := s.TextBasePath(file, false)
		f, err := os.Open(path) // #nosec G304 -- path is derived from the working copy's own admin area
		if err != nil {
			return nil, err // callers check os.IsNotExist themselves
		}
		return f, nil
	case WriteTruncateCreate:
		path := s.TextBasePath(file, true)
		if err := os.MkdirAll(filepath.Dir(path), 0750); err != nil {
			return nil, fmt.Errorf("pristine: mkdir %s: %w", filepath.Dir(path), err)
		}
		f, err := os.OpenFile(path, os.O_CREATE|os.O_TRUNC|os.O_RDWR, 0640) // #nosec G304
		if err != nil {
			return nil, fmt.Errorf("pristine: open temp %s: %w", path, err)
		}
		return f, nil
	default:
		return nil, fmt.Errorf("pristine: unknown open mode %d", mode)
	}
}

func (s *FSStore) InstallTemp(file, tmpPath string) error {
	dst := s.TextBasePath(file, false)
	if err := os.MkdirAll(filepath.Dir(dst), 0750); err != nil {
		return fmt.Errorf("pristine: mkdir %s: %w", filepath.Dir(dst), err)
	}
	if err := os.Rename(tmpPath, dst); err != nil {
		return fmt.Errorf("pristine: install %s: %w", dst, err)
	}
	// Text-bases are read-only on disk once installed: nothing should ever
	// mutate them in place (spec.md invariant, §3).
	return os.Chmod(dst, 0440)
}

func (s *FSStore) Remove(file string) error {
	path := s.TextBasePath(file, false)
	err := os.Remove(path)
	if err != nil && os.IsNotExist(err) {
		return nil
	}
	return err
}

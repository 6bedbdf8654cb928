package wcedit

import (
	"crypto/md5"
	"hash"

	"github.com/wcupdate/wcupdate/internal/props"
)

// FileState is the per-file baton (spec.md §3), allocated on add/open and
// released at close_file.
type FileState struct {
	Path     string
	Basename string
	URL      string
	Added    bool

	// TextChanged is set when apply_textdelta's window stream reaches a
	// clean end-of-stream, including a stream with no windows.
	TextChanged bool
	PropChanged bool
	Props       []props.Change

	// LastChangedDate caches the committed-date entry-prop when the edit
	// opted into use_commit_times, for the final SET_TIMESTAMP command.
	LastChangedDate string

	digest hash.Hash // running MD5 of the reconstructed full-text

	// NewTextBasePath is the temporary new-text-base apply_textdelta wrote
	// to, empty until a text-delta window stream actually ran.
	NewTextBasePath string

	Dir  *DirState
	Bump *BumpInfo
}

func newFileState(path, basename string, dir *DirState, added bool) *FileState {
	return &FileState{Path: path, Basename: basename, Dir: dir, Added: added, digest: md5.New()}
}

package wcedit

import (
	"path/filepath"

	"github.com/wcupdate/wcupdate/internal/props"
)

// DirState is the per-directory baton spec.md §3 describes: allocated on
// open/add, released (in Go, simply dropped) at close_directory.
type DirState struct {
	Path     string
	Basename string
	URL      string
	Parent   *DirState
	Added    bool
	Props    []props.Change
	Bump     *BumpInfo
}

func newDirState(path, basename, url string, parent *DirState, added bool) *DirState {
	return &DirState{Path: path, Basename: basename, URL: url, Parent: parent, Added: added}
}

// BumpInfo is the reference-counted directory-completion tracker (spec.md
// §3). One exists per directory entered, allocated with refCount=1 for the
// directory itself, incremented once per child directory or file entered,
// and decremented at each child's close plus the directory's own close. It
// outlives its DirState because a child's close may run after the parent
// DirState would otherwise have gone out of scope — mirroring spec.md §9's
// instruction to give BumpInfo a parent-owned, not child-owned, lifetime.
type BumpInfo struct {
	parent   *BumpInfo
	refCount int
	path     string
	isRoot   bool
}

func newBumpInfo(path string, parent *BumpInfo) *BumpInfo {
	return &BumpInfo{refCount: 1, path: path, parent: parent}
}

// ref increments the count for one more child (directory or file) entered
// under this BumpInfo's directory.
func (b *BumpInfo) ref() { b.refCount++ }

// bump decrements the ref count for one child (or the directory itself)
// finishing, completing the directory and recursing to the parent once the
// count reaches zero (spec.md §3: "On reaching zero, completion recurses
// upward following parent").
func (b *BumpInfo) bump(e *Editor) error {
	b.refCount--
	if b.refCount > 0 {
		return nil
	}
	if err := e.completeDirectory(b.path, b.isRoot); err != nil {
		return err
	}
	if b.parent != nil {
		return b.parent.bump(e)
	}
	return nil
}

func dirBasename(path string) string {
	b := filepath.Base(path)
	if b == "." || b == string(filepath.Separator) {
		return ""
	}
	return b
}

package wcedit

import (
	"path/filepath"
	"strings"

	"github.com/wcupdate/wcupdate/internal/entries"
)

// ResolveAnchorTarget implements the anchor/target resolver (spec.md §4.10):
// given a user-supplied path p, decides where to root the editor (anchor)
// and what basename, if any, to restrict it to (target).
//
// p with no recorded this-dir entry, whose parent has none either, is a
// bootstrap checkout into a not-yet-versioned directory; there is no parent
// working copy to anchor against, so p is its own anchor with no target
// restriction.
func ResolveAnchorTarget(store entries.Store, p string) (anchor, target string, err error) {
	if p == "" {
		return "", "", nil
	}

	parentDir := filepath.Dir(p)
	if parentDir == "." {
		parentDir = ""
	}
	base := filepath.Base(p)

	pEntries, err := store.Read(p)
	if err != nil {
		return "", "", err
	}
	if _, hasThis := pEntries[entries.ThisDir]; !hasThis {
		parentEntries, err := store.Read(parentDir)
		if err != nil {
			return "", "", err
		}
		if _, hasParentThis := parentEntries[entries.ThisDir]; !hasParentThis {
			return p, "", nil
		}
	}

	isRoot, isDir, err := isWorkingCopyRoot(store, p, parentDir, base)
	if err != nil {
		return "", "", err
	}
	if isRoot && isDir {
		return p, "", nil
	}
	return parentDir, base, nil
}

func isWorkingCopyRoot(store entries.Store, p, parentDir, base string) (isRoot, isDir bool, err error) {
	pEntries, err := store.Read(p)
	if err != nil {
		return false, false, err
	}
	thisEntry, hasThis := pEntries[entries.ThisDir]
	isDir = hasThis && thisEntry.Kind == entries.KindDir

	parentEntries, err := store.Read(parentDir)
	if err != nil {
		return false, false, err
	}
	parentThis, hasParentThis := parentEntries[entries.ThisDir]
	if !hasParentThis {
		// "Absence of a parent entry is a root."
		return true, isDir, nil
	}
	if parentThis.URL == "" {
		return false, false, errEntryMissingURL(parentDir)
	}
	if !hasThis {
		return true, isDir, nil
	}
	if thisEntry.URL != joinURL(parentThis.URL, base) {
		return true, isDir, nil
	}
	return false, isDir, nil
}

func joinURL(base, name string) string {
	return strings.TrimSuffix(base, "/") + "/" + name
}

package wcedit

import (
	"errors"
	"fmt"
	"os"

	"github.com/wcupdate/wcupdate/internal/adm"
	"github.com/wcupdate/wcupdate/internal/entries"
	"github.com/wcupdate/wcupdate/internal/logjournal"
	"github.com/wcupdate/wcupdate/internal/props"
)

// SetTargetRevision implements spec.md §4.1: must precede OpenRoot.
func (e *Editor) SetTargetRevision(rev int64) error {
	if e.Ctx.RootOpened {
		return errObstructed(e.Ctx.Anchor, "set_target_revision called after open_root")
	}
	e.Ctx.TargetRevision = rev
	return nil
}

// OpenRoot implements spec.md §4.1: builds the root DirState. If the edit
// has no target, the root is stamped exactly as an open_directory call on
// itself.
func (e *Editor) OpenRoot(baseRev int64) (*DirState, error) {
	e.Ctx.RootOpened = true

	url, err := e.dirURL(e.Ctx.Anchor)
	if err != nil {
		return nil, err
	}
	if e.Ctx.SwitchURL != "" {
		url = e.Ctx.SwitchURL
	}

	root := newDirState(e.Ctx.Anchor, dirBasename(e.Ctx.Anchor), url, nil, false)
	root.Bump = &BumpInfo{refCount: 1, path: e.Ctx.Anchor, isRoot: true}
	e.Ctx.root = root

	if e.Ctx.Target == "" {
		if err := e.stampDirEntry(root); err != nil {
			return nil, err
		}
	}
	return root, nil
}

func (e *Editor) dirURL(path string) (string, error) {
	snapshot, err := e.Entries.Read(path)
	if err != nil {
		return "", err
	}
	if ent, ok := snapshot[entries.ThisDir]; ok {
		return ent.URL, nil
	}
	return "", nil
}

func (e *Editor) stampDirEntry(dir *DirState) error {
	return e.Entries.Modify(dir.Path, entries.ThisDir, entries.Entry{
		Kind:       entries.KindDir,
		Revision:   e.Ctx.TargetRevision,
		URL:        dir.URL,
		Incomplete: true,
	}, entries.FieldKind|entries.FieldRevision|entries.FieldURL|entries.FieldIncomplete, false)
}

// DeleteEntry implements spec.md §4.2. In-place removal of the working file
// happens inside the log runner (spec.md §7's "all in-place mutation ...
// only inside the log runner"), so a crash between Flush and Run leaves the
// DELETE_ENTRY command on disk for a later run_log to finish — except for
// the one bypass spec.md §4.2 names: a switch whose target is a
// subdirectory is removed from disk immediately, before replay, because the
// subdirectory's own URL no longer matches the switched parent closely
// enough for the log runner to resolve it.
func (e *Editor) DeleteEntry(parent *DirState, basename string, rev int64) error {
	if err := e.Ctx.checkCancelled(joinPath(parent.Path, basename)); err != nil {
		return err
	}
	fullPath := joinPath(parent.Path, basename)

	info, statErr := os.Stat(fullPath)
	if statErr == nil && !info.IsDir() {
		modified, err := e.isTextLocallyModified(fullPath)
		if err != nil {
			return err
		}
		pristineProps, workingProps, err := props.Load(fullPath)
		if err != nil {
			return err
		}
		if modified || props.IsLocallyModified(pristineProps, workingProps) {
			return errObstructed(fullPath, "local modifications")
		}
	}

	isTarget := parent == e.Ctx.root && basename == e.Ctx.Target && e.Ctx.Target != ""
	if isTarget {
		e.Ctx.TargetDeleted = true
	}

	if isTarget && e.Ctx.SwitchURL != "" && statErr == nil && info.IsDir() {
		if err := os.RemoveAll(fullPath); err != nil {
			return fmt.Errorf("wcedit: delete %s: %w", fullPath, err)
		}
	}

	buf := logjournal.NewBuffer(parent.Path)
	buf.DeleteEntry(basename, rev)
	if err := buf.Flush(); err != nil {
		return err
	}
	if _, err := e.Runner.Run(parent.Path); err != nil {
		if errors.Is(err, logjournal.ErrLeftLocalMod) {
			if rmErr := logjournal.Remove(parent.Path); rmErr != nil {
				return fmt.Errorf("wcedit: delete %s: remove partial log: %w", fullPath, rmErr)
			}
			return newErr(KindObstructedUpdate, fullPath, "local modifications", errLeftLocalMod(fullPath, err))
		}
		return fmt.Errorf("wcedit: delete %s: %w", fullPath, err)
	}
	return nil
}

// AddDirectory implements spec.md §4.1's add_directory.
func (e *Editor) AddDirectory(path string, parent *DirState, copyFromURL string, copyFromRev int64) (*DirState, error) {
	if (copyFromURL == "") != (copyFromRev == 0) {
		return nil, fmt.Errorf("wcedit: add_directory %s: copyfrom_path and copyfrom_rev must both be present or both absent", path)
	}
	if copyFromURL != "" {
		return nil, errUnsupported(path, "copyfrom on add_directory")
	}

	basename := dirBasename(path)
	if basename == adm.DirName {
		return nil, errObstructed(path, "basename collides with the administrative directory")
	}
	if fileExists(path) {
		return nil, errObstructed(path, "object already exists on disk")
	}

	parentEntries, err := e.Entries.Read(parent.Path)
	if err != nil {
		return nil, err
	}
	if ent, ok := parentEntries[basename]; ok && ent.Schedule == entries.ScheduleAdd {
		return nil, errObstructed(path, "an entry of this name is already scheduled for addition")
	}

	if err := e.Entries.Modify(parent.Path, basename, entries.Entry{Kind: entries.KindDir, Deleted: false},
		entries.FieldKind|entries.FieldDeleted, false); err != nil {
		return nil, err
	}
	if err := os.MkdirAll(path, 0750); err != nil {
		return nil, fmt.Errorf("wcedit: mkdir %s: %w", path, err)
	}

	url := parent.URL
	if url != "" {
		url = joinURL(url, basename)
	}
	dir := newDirState(path, basename, url, parent, true)
	parent.Bump.ref()
	dir.Bump = newBumpInfo(path, parent.Bump)

	if err := e.stampDirEntry(dir); err != nil {
		return nil, err
	}
	return dir, nil
}

// OpenDirectory implements spec.md §4.1's open_directory.
func (e *Editor) OpenDirectory(path string, parent *DirState, baseRev int64) (*DirState, error) {
	basename := dirBasename(path)
	parentEntries, err := e.Entries.Read(parent.Path)
	if err != nil {
		return nil, err
	}
	if _, ok := parentEntries[basename]; !ok {
		return nil, errEntryNotFound(path, "no such entry in parent")
	}

	url := parent.URL
	if url != "" {
		url = joinURL(url, basename)
	}
	dir := newDirState(path, basename, url, parent, false)
	parent.Bump.ref()
	dir.Bump = newBumpInfo(path, parent.Bump)

	if err := e.stampDirEntry(dir); err != nil {
		return nil, err
	}
	return dir, nil
}

// ChangeDirProp implements spec.md §4.1's change_dir_prop.
func (e *Editor) ChangeDirProp(dir *DirState, name, value string, tombstone bool) {
	dir.Props = append(dir.Props, props.Change{Name: name, Value: value, Tombstone: tombstone})
}

// AddOrOpenFile implements spec.md §4.4. adding distinguishes add_file from
// open_file. It takes no copyfrom arguments, so a file add carries no
// copy source.
func (e *Editor) AddOrOpenFile(path string, parent *DirState, adding bool) (*FileState, error) {
	basename := dirBasename(path)
	if adding && fileExists(path) {
		return nil, errObstructed(path, "object already exists on disk")
	}

	parentEntries, err := e.Entries.Read(parent.Path)
	if err != nil {
		return nil, err
	}
	ent, hasEntry := parentEntries[basename]
	if adding && hasEntry && ent.Schedule == entries.ScheduleAdd {
		return nil, errObstructed(path, "an entry of this name is already scheduled for addition")
	}
	if !adding && !hasEntry {
		return nil, errEntryNotFound(path, "no such entry in parent")
	}

	file := newFileState(path, basename, parent, adding)
	url := parent.URL
	if url != "" {
		url = joinURL(url, basename)
	}
	file.URL = url
	parent.Bump.ref()
	file.Bump = parent.Bump
	return file, nil
}

// AddFile implements spec.md §4.1's add_file.
func (e *Editor) AddFile(path string, parent *DirState) (*FileState, error) {
	return e.AddOrOpenFile(path, parent, true)
}

// OpenFile implements spec.md §4.1's open_file.
func (e *Editor) OpenFile(path string, parent *DirState, baseRev int64) (*FileState, error) {
	return e.AddOrOpenFile(path, parent, false)
}

// ChangeFileProp implements spec.md §4.1's change_file_prop.
func (e *Editor) ChangeFileProp(file *FileState, name, value string, tombstone bool) {
	file.Props = append(file.Props, props.Change{Name: name, Value: value, Tombstone: tombstone})
	file.PropChanged = true
	if e.Ctx.UseCommitTimes && name == entryPropCommitDate && !tombstone {
		file.LastChangedDate = value
	}
}

// CloseEdit implements spec.md §4.1's close_edit. Per spec.md §9's open
// question, this build does not forbid reusing the EditContext afterward;
// it simply leaves root/target_deleted latched, matching the "whether the
// reimplementation should permit reuse is a policy decision" framing.
func (e *Editor) CloseEdit() error {
	if e.Ctx.root == nil {
		return fmt.Errorf("wcedit: close_edit called before open_root")
	}
	return nil
}

package wcedit

import (
	"encoding/hex"
	"fmt"
	"os"
	"strconv"
	"time"

	"github.com/wcupdate/wcupdate/internal/entries"
	"github.com/wcupdate/wcupdate/internal/logjournal"
	"github.com/wcupdate/wcupdate/internal/notify"
	"github.com/wcupdate/wcupdate/internal/props"
)

const propExternals = "svn:externals"

// CloseDirectory implements spec.md §4.3.
func (e *Editor) CloseDirectory(dir *DirState) error {
	if err := e.Ctx.checkCancelled(dir.Path); err != nil {
		return err
	}

	contentState := notify.StateUnchanged
	propState := notify.StateUnchanged

	if len(dir.Props) > 0 {
		regular, entryProps, wcProps := props.Classify(dir.Props, isEntryPropName, isWCPropName)
		buf := logjournal.NewBuffer(dir.Path)

		pristineProps, workingProps, err := props.Load(dir.Path)
		if err != nil {
			return err
		}

		if e.Ctx.Traversal != nil {
			for _, c := range regular {
				if c.Name == propExternals && pristineProps[propExternals] != c.Value {
					e.Ctx.Traversal.Record(dir.Path, pristineProps[propExternals], c.Value)
				}
			}
		}

		propsLocallyModified := props.IsLocallyModified(pristineProps, workingProps)
		if len(regular) > 0 {
			mergedPristine, mergedWorking, state, _ := props.MergeDiffs(pristineProps, workingProps, regular)
			if err := props.Save(dir.Path, mergedPristine, mergedWorking); err != nil {
				return err
			}
			propState = mapPropState(state)
		}

		if !propsLocallyModified {
			buf.ModifyEntry(entries.ThisDir, logjournal.Attr{Name: "prop-time-source", Value: dir.Path})
		}

		for _, c := range entryProps {
			if c.Tombstone {
				continue
			}
			switch c.Name {
			case entryPropLastAuthor:
				buf.ModifyEntry(entries.ThisDir, logjournal.Attr{Name: "committed-author", Value: c.Value})
			case entryPropCommittedRev:
				buf.ModifyEntry(entries.ThisDir, logjournal.Attr{Name: "committed-rev", Value: c.Value})
			case entryPropCommitDate:
				buf.ModifyEntry(entries.ThisDir, logjournal.Attr{Name: "committed-date", Value: c.Value})
			case entryPropUUID:
				buf.ModifyEntry(entries.ThisDir, logjournal.Attr{Name: "uuid", Value: c.Value})
			}
		}

		for _, c := range wcProps {
			buf.ModifyWCProp(dir.Path, c.Name, c.Value, c.Tombstone)
		}

		if err := buf.Flush(); err != nil {
			return err
		}
		if _, err := e.Runner.Run(dir.Path); err != nil {
			return err
		}
	}

	if err := dir.Bump.bump(e); err != nil {
		return err
	}

	if !dir.Added && !(contentState == notify.StateUnchanged && propState == notify.StateUnchanged) {
		e.Ctx.notify(notify.Notification{
			Path:         dir.Path,
			Action:       notify.ActionUpdateUpdate,
			Kind:         notify.NodeDir,
			ContentState: contentState,
			PropState:    propState,
			Revision:     e.Ctx.TargetRevision,
		})
	}
	return nil
}

// completeDirectory implements spec.md §4.8.
func (e *Editor) completeDirectory(path string, isRoot bool) error {
	snapshot, err := e.Entries.Read(path)
	if err != nil {
		return err
	}

	thisEntry, ok := snapshot[entries.ThisDir]
	if !ok {
		return errEntryNotFound(path, "this-dir entry missing at completion")
	}
	thisEntry.Incomplete = false
	snapshot[entries.ThisDir] = thisEntry

	removeIfStale := func(name string, ent entries.Entry) bool {
		if ent.Deleted {
			if name == e.Ctx.Target && e.Ctx.TargetDeleted {
				return false // the deleted tombstone is intentional
			}
			return true
		}
		if ent.Kind == entries.KindDir && ent.Schedule != entries.ScheduleAdd {
			if !fileExists(joinPath(path, name)) {
				e.Ctx.notify(notify.Notification{
					Path:   joinPath(path, name),
					Action: notify.ActionUpdateDelete,
					Kind:   notify.NodeDir,
				})
				return true
			}
		}
		return false
	}

	if isRoot && e.Ctx.Target != "" {
		if ent, ok := snapshot[e.Ctx.Target]; ok && removeIfStale(e.Ctx.Target, ent) {
			e.Entries.Remove(snapshot, e.Ctx.Target)
		}
	} else {
		for name, ent := range snapshot {
			if name == entries.ThisDir {
				continue
			}
			if removeIfStale(name, ent) {
				e.Entries.Remove(snapshot, name)
			}
		}
	}

	if err := e.Entries.Write(path, snapshot); err != nil {
		return err
	}
	e.Ctx.notify(notify.Notification{Path: path, Action: notify.ActionUpdateCompleted, Kind: notify.NodeDir})
	return nil
}

// CloseFile implements spec.md §4.6.
func (e *Editor) CloseFile(file *FileState, expectedChecksum string) error {
	if err := e.Ctx.checkCancelled(file.Path); err != nil {
		return err
	}

	var checksum string
	if file.TextChanged {
		checksum = hex.EncodeToString(file.digest.Sum(nil))
		if expectedChecksum != "" && checksum != expectedChecksum {
			return errChecksumMismatch(file.Path, fmt.Sprintf("reconstructed text MD5 %s does not match declared %s", checksum, expectedChecksum))
		}
	}

	current, err := e.currentEntry(file.Dir.Path, file.Basename)
	if err != nil {
		return err
	}
	oldLabel := "r0"
	if current != nil {
		oldLabel = "r" + strconv.FormatInt(current.Revision, 10)
	}
	newLabel := "r" + strconv.FormatInt(e.Ctx.TargetRevision, 10)

	timestamp := ""
	if e.Ctx.UseCommitTimes && file.LastChangedDate != "" {
		if t, err := time.Parse(time.RFC3339Nano, file.LastChangedDate); err == nil {
			timestamp = strconv.FormatInt(t.UnixNano(), 10)
		}
	}

	result, err := e.installFile(file.Dir.Path, installParams{
		path:            file.Path,
		newRevision:     e.Ctx.TargetRevision,
		newTextBasePath: file.NewTextBasePath,
		checksum:        checksum,
		propChanges:     file.Props,
		isFullProplist:  false,
		newURL:          file.URL,
		isAdd:           file.Added,
		timestamp:       timestamp,
		mineLabel:       ".mine",
		oldLabel:        oldLabel,
		newLabel:        newLabel,
	})
	if err != nil {
		return err
	}

	if err := file.Bump.bump(e); err != nil {
		return err
	}

	if result.ContentState != notify.StateUnchanged || result.PropState != notify.StateUnchanged {
		action := notify.ActionUpdateUpdate
		if file.Added {
			action = notify.ActionUpdateAdd
		}
		e.Ctx.notify(notify.Notification{
			Path:         file.Path,
			Action:       action,
			Kind:         notify.NodeFile,
			ContentState: result.ContentState,
			PropState:    result.PropState,
			Revision:     e.Ctx.TargetRevision,
		})
	}
	return nil
}

func joinPath(dir, name string) string {
	if dir == "" {
		return name
	}
	return dir + string(os.PathSeparator) + name
}

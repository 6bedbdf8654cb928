package wcedit

import (
	"crypto/md5"
	"encoding/hex"
	"fmt"
	"os"
	"path/filepath"
	"strconv"

	"github.com/wcupdate/wcupdate/internal/entries"
	"github.com/wcupdate/wcupdate/internal/logjournal"
	"github.com/wcupdate/wcupdate/internal/notify"
	"github.com/wcupdate/wcupdate/internal/props"
)

func md5Hex(data []byte) string {
	sum := md5.Sum(data)
	return hex.EncodeToString(sum[:])
}

// installParams carries everything install_file (spec.md §4.7) needs to
// stage a single file's log script.
type installParams struct {
	path            string
	newRevision     int64
	newTextBasePath string // "" if no new text-base was produced
	checksum        string // hex MD5 of newTextBasePath's content, if any
	propChanges     []props.Change
	isFullProplist  bool
	newURL          string
	isAdd           bool
	timestamp       string // nanosecond unix string for the final mtime stamp, "" to skip
	mineLabel       string
	oldLabel        string
	newLabel        string
}

// installResult reports the content/prop state install_file produced, for
// the caller to notify with.
type installResult struct {
	ContentState notify.State
	PropState    notify.State
}

// installFile implements spec.md §4.7: the integration core that stages a
// single log script merging a new text-base and property changes into the
// working file, then replays it.
func (e *Editor) installFile(dir string, p installParams) (installResult, error) {
	buf := logjournal.NewBuffer(dir)
	name := filepath.Base(p.path)
	res := installResult{ContentState: notify.StateUnchanged, PropState: notify.StateUnchanged}

	// 1. New file: record its kind and clear any tombstone. No schedule or
	// copyfrom attributes are written.
	if p.isAdd {
		buf.ModifyEntry(name, logjournal.Attr{Name: "kind", Value: "file"}, logjournal.Attr{Name: "deleted", Value: "false"})
	}

	// 2. Place new text-base at the expected temp path if it isn't there already.
	if p.newTextBasePath != "" {
		expected := e.Pristine.TextBasePath(p.path, true)
		if p.newTextBasePath != expected {
			if err := os.Rename(p.newTextBasePath, expected); err != nil {
				return res, fmt.Errorf("wcedit: install %s: stage text-base: %w", p.path, err)
			}
			p.newTextBasePath = expected
		}
	}

	// 3. Property merge.
	regular, entryProps, wcProps := props.Classify(p.propChanges, isEntryPropName, isWCPropName)
	magicChanged := false
	propsLocallyModified := false
	if len(regular) > 0 {
		pristineProps, workingProps, err := props.Load(p.path)
		if err != nil {
			return res, err
		}
		diff := regular
		if p.isFullProplist {
			diff = diffAgainstPristine(pristineProps, regular)
		}
		for _, c := range diff {
			if isMagicPropName(c.Name) {
				magicChanged = true
			}
		}
		propsLocallyModified = props.IsLocallyModified(pristineProps, workingProps)
		mergedPristine, mergedWorking, state, _ := props.MergeDiffs(pristineProps, workingProps, diff)
		if err := props.Save(p.path, mergedPristine, mergedWorking); err != nil {
			return res, err
		}
		res.PropState = mapPropState(state)
	}

	// 4. Entry-props, emitted before textual merging.
	for _, c := range entryProps {
		if c.Tombstone {
			continue
		}
		switch c.Name {
		case entryPropLastAuthor:
			buf.ModifyEntry(name, logjournal.Attr{Name: "committed-author", Value: c.Value})
		case entryPropCommittedRev:
			buf.ModifyEntry(name, logjournal.Attr{Name: "committed-rev", Value: c.Value})
		case entryPropCommitDate:
			buf.ModifyEntry(name, logjournal.Attr{Name: "committed-date", Value: c.Value})
		case entryPropUUID:
			buf.ModifyEntry(name, logjournal.Attr{Name: "uuid", Value: c.Value})
		}
	}

	// 5. Locally-modified check on the working file's content.
	textLocallyModified, err := e.isTextLocallyModified(p.path)
	if err != nil {
		return res, err
	}
	workingExists := fileExists(p.path)
	hasNewBase := p.newTextBasePath != ""

	// 6. Text integration matrix.
	conflictMarkerPath := ""
	switch {
	case !textLocallyModified && hasNewBase:
		buf.CPAndTranslate(p.newTextBasePath, p.path)
		res.ContentState = notify.StateChanged
	case textLocallyModified && hasNewBase && !workingExists:
		buf.CPAndTranslate(p.newTextBasePath, p.path)
		res.ContentState = notify.StateChanged
	case textLocallyModified && hasNewBase && workingExists:
		oldBase := e.Pristine.TextBasePath(p.path, false)
		buf.Merge(p.path, oldBase, p.newTextBasePath, p.mineLabel, p.oldLabel, p.newLabel, e.Ctx.Diff3Cmd)
		conflictMarkerPath = p.path
	case !hasNewBase && magicChanged:
		tmp := p.path + ".wcedit-retranslate"
		buf.CPAndDetranslate(p.path, tmp)
		buf.CPAndTranslate(tmp, p.path)
		res.ContentState = notify.StateChanged
	default:
		// No text step.
	}

	// 7. Revision bump.
	buf.ModifyEntry(name,
		logjournal.Attr{Name: "kind", Value: "file"},
		logjournal.Attr{Name: "revision", Value: strconv.FormatInt(p.newRevision, 10)},
		logjournal.Attr{Name: "deleted", Value: "false"})

	// 8. URL.
	if p.newURL != "" {
		buf.ModifyEntry(name, logjournal.Attr{Name: "url", Value: p.newURL})
	}

	// 9. Timestamps: read back from the working file after whatever text
	// step above has run, using the runner's *-source sentinel (see
	// internal/logjournal's execModifyEntry) so the stamp reflects the
	// install's own effect rather than a value guessed before replay.
	textInstalled := hasNewBase || magicChanged
	if !textLocallyModified && textInstalled {
		buf.ModifyEntry(name, logjournal.Attr{Name: "text-time-source", Value: p.path})
	}
	if len(regular) > 0 && !propsLocallyModified {
		buf.ModifyEntry(name, logjournal.Attr{Name: "prop-time-source", Value: p.path})
	}

	// 10. Text-base rotation.
	if hasNewBase {
		textBasePath := e.Pristine.TextBasePath(p.path, false)
		buf.MV(p.newTextBasePath, textBasePath)
		buf.Readonly(textBasePath)
		buf.ModifyEntry(name, logjournal.Attr{Name: "checksum", Value: p.checksum})
	}

	// 11. Wc-props.
	for _, c := range wcProps {
		buf.ModifyWCProp(p.path, c.Name, c.Value, c.Tombstone)
	}

	// 12. Final mtime, must be last.
	if p.timestamp != "" {
		buf.SetTimestamp(p.path, p.timestamp)
	}

	if err := buf.Flush(); err != nil {
		return res, err
	}
	conflicts, err := e.Runner.Run(dir)
	if err != nil {
		return res, err
	}

	if conflictMarkerPath != "" {
		conflicted := false
		for _, c := range conflicts {
			if c.Path == conflictMarkerPath {
				conflicted = true
			}
		}
		if conflicted {
			res.ContentState = notify.StateConflicted
			if err := e.Entries.Modify(dir, name, entries.Entry{Conflicted: true}, entries.FieldConflicted, false); err != nil {
				return res, err
			}
		} else {
			res.ContentState = notify.StateMerged
		}
	}

	return res, nil
}

func (e *Editor) isTextLocallyModified(path string) (bool, error) {
	if !fileExists(path) {
		return false, nil
	}
	current, err := e.currentEntry(filepath.Dir(path), filepath.Base(path))
	if err != nil {
		return false, err
	}
	if current == nil || current.Checksum == "" {
		return false, nil
	}
	data, err := os.ReadFile(path) // #nosec G304 -- path is the working copy's own tracked file
	if err != nil {
		if os.IsNotExist(err) {
			return false, nil
		}
		return false, err
	}
	return md5Hex(data) != current.Checksum, nil
}

func fileExists(path string) bool {
	_, err := os.Stat(path)
	return err == nil
}

func mapPropState(s props.State) notify.State {
	switch s {
	case props.StateChanged:
		return notify.StateChanged
	case props.StateConflicted:
		return notify.StateConflicted
	default:
		return notify.StateUnchanged
	}
}

// diffAgainstPristine computes new-minus-old when a caller supplied a full
// property list instead of an incremental diff (spec.md §4.7 step 3):
// anything in full not matching pristine becomes a change, and anything in
// pristine missing from full becomes a tombstone.
func diffAgainstPristine(pristineProps map[string]string, full []props.Change) []props.Change {
	fullMap := make(map[string]string, len(full))
	for _, c := range full {
		fullMap[c.Name] = c.Value
	}
	var diff []props.Change
	for name, value := range fullMap {
		if old, ok := pristineProps[name]; !ok || old != value {
			diff = append(diff, props.Change{Name: name, Value: value})
		}
	}
	for name := range pristineProps {
		if _, ok := fullMap[name]; !ok {
			diff = append(diff, props.Change{Name: name, Tombstone: true})
		}
	}
	return diff
}

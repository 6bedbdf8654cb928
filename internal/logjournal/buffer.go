package logjournal

import (
	"bufio"
	"encoding/xml"
	"fmt"
	"os"
	"strconv"

	"github.com/wcupdate/wcupdate/internal/adm"
)

// Buffer accumulates commands for one directory's edit before they are
// flushed to disk, per spec.md §3: "a per-directory append-only command
// buffer flushed to a well-known file".
type Buffer struct {
	Dir      string
	Commands []Command
}

// NewBuffer starts an empty command buffer for a directory.
func NewBuffer(dir string) *Buffer {
	return &Buffer{Dir: dir}
}

func (b *Buffer) append(c Command) { b.Commands = append(b.Commands, c) }

// ModifyEntry appends a MODIFY_ENTRY command for the named entry (empty
// name means "this directory"'s own entry, entries.ThisDir).
func (b *Buffer) ModifyEntry(name string, attrs ...Attr) {
	b.append(newCmd(VerbModifyEntry, append([]Attr{attr("name", name)}, attrs...)...))
}

// ModifyWCProp appends a MODIFY_WCPROP command.
func (b *Buffer) ModifyWCProp(name, propName, value string, tombstone bool) {
	b.append(newCmd(VerbModifyWCProp,
		attr("name", name), attr("propname", propName), attr("value", value),
		attr("tombstone", strconv.FormatBool(tombstone))))
}

// DeleteEntry appends a DELETE_ENTRY command: marks name's entry as a
// deleted tombstone at revision, without removing its row. complete_directory
// is what actually purges stale tombstones later (spec.md §4.8).
func (b *Buffer) DeleteEntry(name string, revision int64) {
	b.append(newCmd(VerbDeleteEntry, attr("name", name), attr("revision", strconv.FormatInt(revision, 10))))
}

// Merge appends a MERGE command: three-way merge workingPath against
// (oldTextBase, newTextBase), with the given conflict labels.
func (b *Buffer) Merge(workingPath, oldTextBase, newTextBase, mineLabel, oldLabel, newLabel, diff3Cmd string) {
	b.append(newCmd(VerbMerge,
		attr("path", workingPath), attr("old", oldTextBase), attr("new", newTextBase),
		attr("mine-label", mineLabel), attr("old-label", oldLabel), attr("new-label", newLabel),
		attr("diff3", diff3Cmd)))
}

// CPAndTranslate appends a CP_AND_TRANSLATE command: copy src to dst,
// expanding keywords and the working eol-style as it goes.
func (b *Buffer) CPAndTranslate(src, dst string) {
	b.append(newCmd(VerbCPAndTranslate, attr("src", src), attr("dst", dst)))
}

// CPAndDetranslate appends a CP_AND_DETRANSLATE command: the reverse of
// CPAndTranslate, used to retranslate a working file in place when a magic
// property changes without new text arriving.
func (b *Buffer) CPAndDetranslate(src, dst string) {
	b.append(newCmd(VerbCPAndDetranslate, attr("src", src), attr("dst", dst)))
}

// MV appends an MV command: atomic rename.
func (b *Buffer) MV(src, dst string) {
	b.append(newCmd(VerbMV, attr("src", src), attr("dst", dst)))
}

// Readonly appends a READONLY command: chmod the path non-writable.
func (b *Buffer) Readonly(path string) {
	b.append(newCmd(VerbReadonly, attr("path", path)))
}

// SetTimestamp appends a SET_TIMESTAMP command. Per spec.md §4.7 step 12
// this must be the final command in the log; callers are responsible for
// calling it last.
func (b *Buffer) SetTimestamp(path, timestamp string) {
	b.append(newCmd(VerbSetTimestamp, attr("path", path), attr("timestamp", timestamp)))
}

// Empty reports whether any commands were accumulated.
func (b *Buffer) Empty() bool { return len(b.Commands) == 0 }

// Flush writes the buffer to the directory's well-known log file,
// overwriting any prior (already-replayed) log. The file exists on disk
// only between Flush and a successful Run (spec.md §3 invariant).
func (b *Buffer) Flush() error {
	if b.Empty() {
		return nil
	}
	path := adm.LogPath(b.Dir)
	f, err := os.Create(path) // #nosec G304 -- path is the working copy's own admin area
	if err != nil {
		return fmt.Errorf("logjournal: flush %s: %w", path, err)
	}
	defer f.Close()

	w := bufio.NewWriter(f)
	for _, c := range b.Commands {
		if err := writeCommand(w, c); err != nil {
			return fmt.Errorf("logjournal: flush %s: %w", path, err)
		}
	}
	if err := w.Flush(); err != nil {
		return fmt.Errorf("logjournal: flush %s: %w", path, err)
	}
	return f.Sync()
}

func writeCommand(w *bufio.Writer, c Command) error {
	start := xml.StartElement{Name: xml.Name{Local: string(c.Verb)}}
	for _, a := range c.Attrs {
		start.Attr = append(start.Attr, xml.Attr{Name: xml.Name{Local: a.Name}, Value: a.Value})
	}
	enc := xml.NewEncoder(w)
	if err := enc.EncodeToken(start); err != nil {
		return err
	}
	if err := enc.EncodeToken(start.End()); err != nil {
		return err
	}
	if err := enc.Flush(); err != nil {
		return err
	}
	_, err := w.WriteString("\n")
	return err
}

// Load reads back the command list written by Flush. A missing log file is
// reported as (nil, nil) — an idempotent replay simply has nothing to do.
func Load(dir string) ([]Command, error) {
	path := adm.LogPath(dir)
	f, err := os.Open(path) // #nosec G304
	if err != nil {
		if os.IsNotExist(err) {
			return nil, nil
		}
		return nil, fmt.Errorf("logjournal: load %s: %w", path, err)
	}
	defer f.Close()

	dec := xml.NewDecoder(f)
	var cmds []Command
	for {
		tok, err := dec.Token()
		if err != nil {
			break // io.EOF or a trailing parse artifact; both end the scan
		}
		start, ok := tok.(xml.StartElement)
		if !ok {
			continue
		}
		cmd := Command{Verb: Verb(start.Name.Local)}
		for _, a := range start.Attr {
			cmd.Attrs = append(cmd.Attrs, Attr{Name: a.Name.Local, Value: a.Value})
		}
		cmds = append(cmds, cmd)
	}
	return cmds, nil
}

// Remove deletes the directory's log file, the final step of a successful
// replay (spec.md §3: "replay deletes it").
func Remove(dir string) error {
	err := os.Remove(adm.LogPath(dir))
	if err != nil && os.IsNotExist(err) {
		return nil
	}
	return err
}

// Exists reports whether dir currently has an un-replayed log file.
func Exists(dir string) bool {
	_, err := os.Stat(adm.LogPath(dir))
	return err == nil
}

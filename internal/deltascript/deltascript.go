// Package deltascript parses the small line-oriented textual format
// spec.md §4.16 defines for driving a wcedit.Editor outside of any real
// network transport, and drives it. One verb per line; "text <<< ... <<<"
// introduces an inline text-delta window whose fully reconstructed content
// is applied as a single window.
package deltascript

import (
	"bufio"
	"fmt"
	"io"
	"path/filepath"
	"strconv"
	"strings"

	"github.com/wcupdate/wcupdate/internal/wcedit"
)

// Run parses script and drives editor through exactly the callbacks it
// describes, in order.
func Run(editor *wcedit.Editor, root string, script io.Reader) error {
	p := &runner{editor: editor, root: root, dirs: map[string]*wcedit.DirState{}, files: map[string]*wcedit.FileState{}}
	return p.run(script)
}

type runner struct {
	editor *wcedit.Editor
	root   string

	stack       []*wcedit.DirState
	dirs        map[string]*wcedit.DirState
	files       map[string]*wcedit.FileState
	currentFile *wcedit.FileState

	lineNo int
}

func (p *runner) run(script io.Reader) error {
	sc := bufio.NewScanner(script)
	sc.Buffer(make([]byte, 64*1024), 1<<20)
	for sc.Scan() {
		p.lineNo++
		line := strings.TrimSpace(sc.Text())
		if line == "" || strings.HasPrefix(line, "#") {
			continue
		}
		fields := strings.Fields(line)
		verb := fields[0]
		args := fields[1:]

		var err error
		switch verb {
		case "target-rev":
			err = p.targetRev(args)
		case "open-root":
			err = p.openRoot()
		case "add-dir":
			err = p.addOrOpenDir(args, true)
		case "open-dir":
			err = p.addOrOpenDir(args, false)
		case "close-dir":
			err = p.closeDir(args)
		case "add-file":
			err = p.addOrOpenFile(args, true)
		case "open-file":
			err = p.addOrOpenFile(args, false)
		case "text":
			err = p.text(args, sc)
		case "close-file":
			err = p.closeFile(args)
		case "delete":
			err = p.delete(args)
		case "prop-set":
			err = p.propSet(args)
		case "prop-del":
			err = p.propDel(args)
		case "close-edit":
			err = p.editor.CloseEdit()
		default:
			err = fmt.Errorf("unknown verb %q", verb)
		}
		if err != nil {
			return fmt.Errorf("deltascript:%d: %s: %w", p.lineNo, line, err)
		}
	}
	return sc.Err()
}

func (p *runner) top() *wcedit.DirState {
	if len(p.stack) == 0 {
		return nil
	}
	return p.stack[len(p.stack)-1]
}

func (p *runner) fullPath(rel string) string {
	if rel == "." {
		return p.root
	}
	return filepath.Join(p.root, rel)
}

func (p *runner) targetRev(args []string) error {
	if len(args) != 1 {
		return fmt.Errorf("target-rev takes exactly one argument")
	}
	rev, err := strconv.ParseInt(args[0], 10, 64)
	if err != nil {
		return err
	}
	return p.editor.SetTargetRevision(rev)
}

func (p *runner) openRoot() error {
	root, err := p.editor.OpenRoot(0)
	if err != nil {
		return err
	}
	p.stack = []*wcedit.DirState{root}
	p.dirs["."] = root
	return nil
}

func (p *runner) addOrOpenDir(args []string, adding bool) error {
	if len(args) != 1 {
		return fmt.Errorf("expected exactly one path argument")
	}
	parent := p.top()
	if parent == nil {
		return fmt.Errorf("no open directory to nest under")
	}
	var dir *wcedit.DirState
	var err error
	if adding {
		dir, err = p.editor.AddDirectory(p.fullPath(args[0]), parent, "", 0)
	} else {
		dir, err = p.editor.OpenDirectory(p.fullPath(args[0]), parent, 0)
	}
	if err != nil {
		return err
	}
	p.stack = append(p.stack, dir)
	p.dirs[args[0]] = dir
	return nil
}

func (p *runner) closeDir(args []string) error {
	if len(args) != 1 {
		return fmt.Errorf("expected exactly one path argument")
	}
	dir, ok := p.dirs[args[0]]
	if !ok {
		return fmt.Errorf("no open directory %q", args[0])
	}
	if err := p.editor.CloseDirectory(dir); err != nil {
		return err
	}
	if len(p.stack) == 0 || p.stack[len(p.stack)-1] != dir {
		return fmt.Errorf("close-dir %q does not match the innermost open directory", args[0])
	}
	p.stack = p.stack[:len(p.stack)-1]
	return nil
}

func (p *runner) addOrOpenFile(args []string, adding bool) error {
	if len(args) != 1 {
		return fmt.Errorf("expected exactly one path argument")
	}
	parent := p.top()
	if parent == nil {
		return fmt.Errorf("no open directory to add the file under")
	}
	var file *wcedit.FileState
	var err error
	if adding {
		file, err = p.editor.AddFile(p.fullPath(args[0]), parent)
	} else {
		file, err = p.editor.OpenFile(p.fullPath(args[0]), parent, 0)
	}
	if err != nil {
		return err
	}
	p.files[args[0]] = file
	p.currentFile = file
	return nil
}

// text handles a "text <<<" line: args is expected to be exactly ["<<<"],
// applying the reconstructed window to whichever file was most recently
// add-file'd or open-file'd.
func (p *runner) text(args []string, sc *bufio.Scanner) error {
	if len(args) != 1 || args[0] != "<<<" {
		return fmt.Errorf(`text must be followed by "<<<"`)
	}
	if p.currentFile == nil {
		return fmt.Errorf("no current file to apply a text delta to")
	}
	file := p.currentFile

	var buf strings.Builder
	for sc.Scan() {
		p.lineNo++
		line := sc.Text()
		if line == "<<<" {
			handler, err := p.editor.ApplyTextdelta(file, "")
			if err != nil {
				return err
			}
			if err := handler(&wcedit.Window{NewData: []byte(buf.String())}); err != nil {
				return err
			}
			return handler(nil)
		}
		buf.WriteString(line)
		buf.WriteByte('\n')
	}
	return fmt.Errorf("unterminated text block (missing closing <<<)")
}

func (p *runner) closeFile(args []string) error {
	if len(args) < 1 || len(args) > 2 {
		return fmt.Errorf("close-file takes a path and an optional checksum")
	}
	file, ok := p.files[args[0]]
	if !ok {
		return fmt.Errorf("no open file %q", args[0])
	}
	checksum := ""
	if len(args) == 2 {
		checksum = args[1]
	}
	if err := p.editor.CloseFile(file, checksum); err != nil {
		return err
	}
	delete(p.files, args[0])
	if p.currentFile == file {
		p.currentFile = nil
	}
	return nil
}

func (p *runner) delete(args []string) error {
	if len(args) != 2 {
		return fmt.Errorf("delete takes a path and a revision")
	}
	parent := p.top()
	if parent == nil {
		return fmt.Errorf("no open directory to delete from")
	}
	rev, err := strconv.ParseInt(args[1], 10, 64)
	if err != nil {
		return err
	}
	return p.editor.DeleteEntry(parent, filepath.Base(args[0]), rev)
}

func (p *runner) propSet(args []string) error {
	if len(args) < 3 {
		return fmt.Errorf("prop-set takes a path, a property name, and a value")
	}
	return p.changeProp(args[0], args[1], strings.Join(args[2:], " "), false)
}

func (p *runner) propDel(args []string) error {
	if len(args) != 2 {
		return fmt.Errorf("prop-del takes a path and a property name")
	}
	return p.changeProp(args[0], args[1], "", true)
}

func (p *runner) changeProp(path, name, value string, tombstone bool) error {
	if file, ok := p.files[path]; ok {
		p.editor.ChangeFileProp(file, name, value, tombstone)
		return nil
	}
	if dir, ok := p.dirs[path]; ok {
		p.editor.ChangeDirProp(dir, name, value, tombstone)
		return nil
	}
	return fmt.Errorf("no open file or directory %q", path)
}

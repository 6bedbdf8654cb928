package wcedit

import (
	"crypto/md5"
	"encoding/base64"
	"encoding/hex"
	"fmt"
	"io"
	"os"

	"github.com/wcupdate/wcupdate/internal/entries"
	"github.com/wcupdate/wcupdate/internal/pristine"
)

// Window is one chunk of reconstructed full-text handed to a WindowHandler.
// A nil *Window marks end-of-stream, matching spec.md §4.5's "w is null"
// convention. Real svndiff-style copy/insert instructions against the
// source stream are not modeled; §4.16's delta script format only ever
// produces whole-content windows, which is sufficient to exercise the
// digest/checksum machinery this pipeline exists for. Several windows in one
// stream are appended in order.
type Window struct {
	NewData []byte
}

// WindowHandler consumes one reconstructed window at a time.
type WindowHandler func(w *Window) error

// ApplyTextdelta implements spec.md §4.5: wires a delta-apply pipeline
// between the file's current text-base and a fresh temporary one, returning
// a handler the driver feeds windows into.
func (e *Editor) ApplyTextdelta(file *FileState, baseChecksum string) (WindowHandler, error) {
	current, err := e.currentEntry(file.Dir.Path, file.Basename)
	if err != nil {
		return nil, err
	}
	if current != nil && current.Checksum != "" {
		if err := e.verifyTextBaseChecksum(file.Path, current.Checksum); err != nil {
			return nil, err
		}
	}
	if baseChecksum != "" {
		if err := e.verifyTextBaseChecksum(file.Path, baseChecksum); err != nil {
			return nil, err
		}
	}

	var src io.Closer
	if rwc, err := e.Pristine.OpenTextBase(file.Path, pristine.ReadOnly); err != nil {
		if !os.IsNotExist(err) {
			return nil, fmt.Errorf("wcedit: open text-base %s: %w", file.Path, err)
		}
		// Brand-new file: no source to diff against, fine.
	} else {
		src = rwc
	}

	dst, err := e.Pristine.OpenTextBase(file.Path, pristine.WriteTruncateCreate)
	if err != nil {
		if src != nil {
			_ = src.Close()
		}
		return nil, fmt.Errorf("wcedit: open temp text-base %s: %w", file.Path, err)
	}
	tmpPath := e.Pristine.TextBasePath(file.Path, true)
	digest := md5.New()

	writer, ok := dst.(io.Writer)
	if !ok {
		return nil, fmt.Errorf("wcedit: pristine store returned a non-writable temp text-base for %s", file.Path)
	}

	cleanup := func(deleteTemp bool) {
		if src != nil {
			if err := src.Close(); err != nil {
				e.warnf("close text-base source", "path", file.Path, "error", err)
			}
		}
		if err := dst.Close(); err != nil {
			e.warnf("close temp text-base", "path", tmpPath, "error", err)
		}
		if deleteTemp {
			if err := os.Remove(tmpPath); err != nil && !os.IsNotExist(err) {
				e.warnf("remove abandoned temp text-base", "path", tmpPath, "error", err)
			}
		}
	}

	inner := func(w *Window) error {
		if _, err := writer.Write(w.NewData); err != nil {
			return err
		}
		digest.Write(w.NewData)
		return nil
	}

	// The returned handler is the "wrapper" spec.md §4.5 step 5 describes:
	// on a clean end-of-stream it closes both streams and marks the file
	// changed; on a mid-stream error it closes both streams, deletes the
	// half-written temp text-base, and propagates the original error
	// rather than any cleanup-path error.
	return func(w *Window) error {
		if w == nil {
			cleanup(false)
			file.TextChanged = true
			file.NewTextBasePath = tmpPath
			file.digest = digest
			return nil
		}
		if err := inner(w); err != nil {
			cleanup(true)
			return err
		}
		return nil
	}, nil
}

func (e *Editor) verifyTextBaseChecksum(path, expected string) error {
	rwc, err := e.Pristine.OpenTextBase(path, pristine.ReadOnly)
	if err != nil {
		if os.IsNotExist(err) {
			return nil // nothing on disk yet to verify against
		}
		return errCorruptTextBase(path, "open text-base for checksum check", err)
	}
	defer rwc.Close()

	data, err := io.ReadAll(rwc)
	if err != nil {
		return errCorruptTextBase(path, "read text-base", err)
	}
	sum := md5.Sum(data)
	hexSum := hex.EncodeToString(sum[:])
	if hexSum == expected {
		return nil
	}
	// Legacy MD5-base64 form, kept for backward compatibility per spec.md §4.5 step 1.
	if base64.StdEncoding.EncodeToString(sum[:]) == expected {
		return nil
	}
	return errCorruptTextBase(path, fmt.Sprintf("text-base checksum mismatch: have %s, want %s", hexSum, expected), nil)
}

func (e *Editor) currentEntry(dir, name string) (*entries.Entry, error) {
	snapshot, err := e.Entries.Read(dir)
	if err != nil {
		return nil, err
	}
	if ent, ok := snapshot[name]; ok {
		return &ent, nil
	}
	return nil, nil
}

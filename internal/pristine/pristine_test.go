package pristine

import (
	"io"
	"os"
	"path/filepath"
	"testing"

	"github.com/wcupdate/wcupdate/internal/adm"
)

func TestWriteInstallRead(t *testing.T) {
	root := t.TempDir()
	if err := adm.Ensure(root); err != nil {
		t.Fatalf("adm.Ensure: %v", err)
	}
	store := NewFSStore(root)
	file := filepath.Join(root, "f.txt")

	tmp, err := store.OpenTextBase(file, WriteTruncateCreate)
	if err != nil {
		t.Fatalf("OpenTextBase(WriteTruncateCreate): %v", err)
	}
	if _, err := tmp.Write([]byte("hello\n")); err != nil {
		t.Fatalf("Write: %v", err)
	}
	if err := tmp.Close(); err != nil {
		t.Fatalf("Close: %v", err)
	}

	tmpPath := store.TextBasePath(file, true)
	if err := store.InstallTemp(file, tmpPath); err != nil {
		t.Fatalf("InstallTemp: %v", err)
	}

	rc, err := store.OpenTextBase(file, ReadOnly)
	if err != nil {
		t.Fatalf("OpenTextBase(ReadOnly): %v", err)
	}
	defer rc.Close()
	data, err := io.ReadAll(rc)
	if err != nil {
		t.Fatalf("ReadAll: %v", err)
	}
	if string(data) != "hello\n" {
		t.Errorf("installed text-base = %q, want %q", data, "hello\n")
	}

	installedPath := store.TextBasePath(file, false)
	info, err := os.Stat(installedPath)
	if err != nil {
		t.Fatalf("Stat: %v", err)
	}
	if info.Mode().Perm()&0222 != 0 {
		t.Errorf("installed text-base mode = %v, want read-only", info.Mode())
	}
}

func TestOpenMissingTextBaseIsNotExist(t *testing.T) {
	root := t.TempDir()
	store := NewFSStore(root)
	_, err := store.OpenTextBase(filepath.Join(root, "missing.txt"), ReadOnly)
	if !os.IsNotExist(err) {
		t.Fatalf("OpenTextBase on missing file: err = %v, want os.IsNotExist", err)
	}
}

func TestRemove(t *testing.T) {
	root := t.TempDir()
	if err := adm.Ensure(root); err != nil {
		t.Fatalf("adm.Ensure: %v", err)
	}
	store := NewFSStore(root)
	file := filepath.Join(root, "f.txt")

	tmp, err := store.OpenTextBase(file, WriteTruncateCreate)
	if err != nil {
		t.Fatalf("OpenTextBase: %v", err)
	}
	tmp.Close()
	if err := store.InstallTemp(file, store.TextBasePath(file, true)); err != nil {
		t.Fatalf("InstallTemp: %v", err)
	}

	if err := store.Remove(file); err != nil {
		t.Fatalf("Remove: %v", err)
	}
	if _, err := os.Stat(store.TextBasePath(file, false)); !os.IsNotExist(err) {
		t.Errorf("text-base still present after Remove")
	}

	if err := store.Remove(file); err != nil {
		t.Errorf("Remove on already-gone file: %v, want nil", err)
	}
}

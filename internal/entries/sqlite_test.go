package entries

import "testing"

func TestSQLiteStoreWriteRead(t *testing.T) {
	root := t.TempDir()
	store, err := NewSQLiteStore(root)
	if err != nil {
		t.Fatalf("NewSQLiteStore: %v", err)
	}
	defer store.Close()

	snapshot := map[string]Entry{
		ThisDir: {Kind: KindDir, Revision: 5, URL: "https://svn/repo/trunk"},
		"f.txt": {Kind: KindFile, Revision: 5, URL: "https://svn/repo/trunk/f.txt", Checksum: "abc123"},
	}
	if err := store.Write(root, snapshot); err != nil {
		t.Fatalf("Write: %v", err)
	}

	got, err := store.Read(root)
	if err != nil {
		t.Fatalf("Read: %v", err)
	}
	if len(got) != 2 {
		t.Fatalf("Read returned %d entries, want 2", len(got))
	}
	if got["f.txt"].Checksum != "abc123" || got["f.txt"].Revision != 5 {
		t.Errorf("f.txt entry = %+v", got["f.txt"])
	}
	if got[ThisDir].Kind != KindDir {
		t.Errorf("this-dir entry = %+v, want KindDir", got[ThisDir])
	}
}

func TestSQLiteStoreModifyPartialMask(t *testing.T) {
	root := t.TempDir()
	store, err := NewSQLiteStore(root)
	if err != nil {
		t.Fatalf("NewSQLiteStore: %v", err)
	}
	defer store.Close()

	if err := store.Write(root, map[string]Entry{
		"f.txt": {Kind: KindFile, Revision: 3, URL: "u"},
	}); err != nil {
		t.Fatalf("Write: %v", err)
	}

	if err := store.Modify(root, "f.txt", Entry{Revision: 9}, FieldRevision, false); err != nil {
		t.Fatalf("Modify: %v", err)
	}

	got, err := store.Read(root)
	if err != nil {
		t.Fatalf("Read: %v", err)
	}
	entry := got["f.txt"]
	if entry.Revision != 9 {
		t.Errorf("Revision = %d, want 9", entry.Revision)
	}
	if entry.URL != "u" {
		t.Errorf("URL = %q, want unchanged %q", entry.URL, "u")
	}
}

func TestSQLiteStoreModifyCreatesAbsentEntry(t *testing.T) {
	root := t.TempDir()
	store, err := NewSQLiteStore(root)
	if err != nil {
		t.Fatalf("NewSQLiteStore: %v", err)
	}
	defer store.Close()

	if err := store.Modify(root, "new.txt", Entry{Revision: 1, Kind: KindFile}, FieldRevision|FieldKind, true); err != nil {
		t.Fatalf("Modify: %v", err)
	}

	got, err := store.Read(root)
	if err != nil {
		t.Fatalf("Read: %v", err)
	}
	if got["new.txt"].Revision != 1 {
		t.Errorf("new.txt = %+v, want revision 1", got["new.txt"])
	}
}

func TestSQLiteStoreRemove(t *testing.T) {
	root := t.TempDir()
	store, err := NewSQLiteStore(root)
	if err != nil {
		t.Fatalf("NewSQLiteStore: %v", err)
	}
	defer store.Close()

	snapshot := map[string]Entry{"gone.txt": {Kind: KindFile, Revision: 1}}
	store.Remove(snapshot, "gone.txt")
	if len(snapshot) != 0 {
		t.Errorf("Remove: snapshot = %v, want empty", snapshot)
	}
}

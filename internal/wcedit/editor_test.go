package wcedit

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/wcupdate/wcupdate/internal/adm"
	"github.com/wcupdate/wcupdate/internal/entries"
	"github.com/wcupdate/wcupdate/internal/logjournal"
	"github.com/wcupdate/wcupdate/internal/notify"
	"github.com/wcupdate/wcupdate/internal/pristine"
)

// newTestEditor wires an Editor over a MemStore and a real filesystem
// pristine store rooted at root, mirroring what the CLI driver builds for
// one edit (spec.md §5).
func newTestEditor(t *testing.T, root string) (*Editor, *entries.MemStore, *notify.CollectingSink) {
	t.Helper()
	if err := adm.Ensure(root); err != nil {
		t.Fatalf("adm.Ensure: %v", err)
	}
	store := entries.NewMemStore()
	ps := pristine.NewFSStore(root)
	runner := logjournal.NewRunner(store, NewKeywordSource(store))

	ctx := NewEditContext(root, "")
	sink := &notify.CollectingSink{}
	ctx.Notify = sink

	editor := NewEditor(ctx, store, ps, runner, nil)
	return editor, store, sink
}

// TestFreshCheckoutSingleFile exercises spec.md's S1 scenario: a fresh
// checkout adding one file.
func TestFreshCheckoutSingleFile(t *testing.T) {
	root := t.TempDir()
	editor, store, _ := newTestEditor(t, root)

	if err := editor.SetTargetRevision(7); err != nil {
		t.Fatalf("SetTargetRevision: %v", err)
	}
	rootDir, err := editor.OpenRoot(0)
	if err != nil {
		t.Fatalf("OpenRoot: %v", err)
	}

	helloPath := filepath.Join(root, "hello.txt")
	file, err := editor.AddFile(helloPath, rootDir)
	if err != nil {
		t.Fatalf("AddFile: %v", err)
	}

	handler, err := editor.ApplyTextdelta(file, "")
	if err != nil {
		t.Fatalf("ApplyTextdelta: %v", err)
	}
	if err := handler(&Window{NewData: []byte("hi\n")}); err != nil {
		t.Fatalf("handler window: %v", err)
	}
	if err := handler(nil); err != nil {
		t.Fatalf("handler eof: %v", err)
	}

	const expectedChecksum = "764efa883dda1e11db47671c4a3bbd9e"
	if err := editor.CloseFile(file, expectedChecksum); err != nil {
		t.Fatalf("CloseFile: %v", err)
	}
	if err := editor.CloseDirectory(rootDir); err != nil {
		t.Fatalf("CloseDirectory: %v", err)
	}
	if err := editor.CloseEdit(); err != nil {
		t.Fatalf("CloseEdit: %v", err)
	}

	data, err := os.ReadFile(helloPath)
	if err != nil {
		t.Fatalf("read hello.txt: %v", err)
	}
	if string(data) != "hi\n" {
		t.Fatalf("hello.txt content = %q, want %q", data, "hi\n")
	}

	snapshot, err := store.Read(root)
	if err != nil {
		t.Fatalf("Read: %v", err)
	}
	ent, ok := snapshot["hello.txt"]
	if !ok {
		t.Fatalf("no entry recorded for hello.txt")
	}
	if ent.Revision != 7 {
		t.Errorf("hello.txt revision = %d, want 7", ent.Revision)
	}
	if ent.Checksum != expectedChecksum {
		t.Errorf("hello.txt checksum = %q, want %q", ent.Checksum, expectedChecksum)
	}
	if ent.Deleted {
		t.Errorf("hello.txt unexpectedly marked deleted")
	}

	thisDir, ok := snapshot[entries.ThisDir]
	if !ok {
		t.Fatalf("no this-dir entry recorded for root")
	}
	if thisDir.Incomplete {
		t.Errorf("root entry still marked incomplete after close")
	}
}

// TestDeleteEntryTombstonesThenPurges exercises spec.md §4.8's rule that
// delete_entry marks a tombstone, and complete_directory is what actually
// removes it, except when it is the root/target pair with TargetDeleted set.
func TestDeleteEntryTombstonesThenPurges(t *testing.T) {
	root := t.TempDir()
	editor, store, _ := newTestEditor(t, root)

	if err := store.Write(root, map[string]entries.Entry{
		entries.ThisDir: {Kind: entries.KindDir, Revision: 5, URL: "file:///repo/proj"},
		"gone.txt":      {Kind: entries.KindFile, Revision: 5, URL: "file:///repo/proj/gone.txt"},
	}); err != nil {
		t.Fatalf("seed Write: %v", err)
	}
	if err := os.WriteFile(filepath.Join(root, "gone.txt"), []byte("bye\n"), 0640); err != nil {
		t.Fatalf("seed file: %v", err)
	}

	if err := editor.SetTargetRevision(10); err != nil {
		t.Fatalf("SetTargetRevision: %v", err)
	}
	rootDir, err := editor.OpenRoot(5)
	if err != nil {
		t.Fatalf("OpenRoot: %v", err)
	}

	if err := editor.DeleteEntry(rootDir, "gone.txt", 10); err != nil {
		t.Fatalf("DeleteEntry: %v", err)
	}

	mid, err := store.Read(root)
	if err != nil {
		t.Fatalf("Read after delete: %v", err)
	}
	goneEnt, ok := mid["gone.txt"]
	if !ok {
		t.Fatalf("gone.txt row removed immediately; want tombstone retained until complete_directory")
	}
	if !goneEnt.Deleted {
		t.Errorf("gone.txt not marked deleted after delete_entry")
	}
	if goneEnt.Revision != 10 {
		t.Errorf("gone.txt revision = %d, want 10", goneEnt.Revision)
	}

	if err := editor.CloseDirectory(rootDir); err != nil {
		t.Fatalf("CloseDirectory: %v", err)
	}

	final, err := store.Read(root)
	if err != nil {
		t.Fatalf("Read after close: %v", err)
	}
	if _, ok := final["gone.txt"]; ok {
		t.Errorf("gone.txt tombstone survived complete_directory, want purged")
	}
}

// TestTargetDeletionSurvivesCloseEdit exercises spec.md's S5 scenario: a
// single-target edit whose target is delete_entry'd must latch
// TargetDeleted, remove the target from disk, and leave a tombstone at the
// new target revision that complete_directory does not purge.
func TestTargetDeletionSurvivesCloseEdit(t *testing.T) {
	root := t.TempDir()
	editor, store, _ := newTestEditor(t, root)
	editor.Ctx.Target = "gone"

	if err := store.Write(root, map[string]entries.Entry{
		entries.ThisDir: {Kind: entries.KindDir, Revision: 5, URL: "file:///repo/proj"},
		"gone":          {Kind: entries.KindFile, Revision: 5, URL: "file:///repo/proj/gone"},
	}); err != nil {
		t.Fatalf("seed Write: %v", err)
	}
	if err := os.WriteFile(filepath.Join(root, "gone"), []byte("bye\n"), 0640); err != nil {
		t.Fatalf("seed file: %v", err)
	}

	if err := editor.SetTargetRevision(10); err != nil {
		t.Fatalf("SetTargetRevision: %v", err)
	}
	rootDir, err := editor.OpenRoot(5)
	if err != nil {
		t.Fatalf("OpenRoot: %v", err)
	}
	if err := editor.DeleteEntry(rootDir, "gone", 10); err != nil {
		t.Fatalf("DeleteEntry: %v", err)
	}
	if !editor.Ctx.TargetDeleted {
		t.Fatalf("TargetDeleted not latched after delete_entry(target)")
	}
	if err := editor.CloseDirectory(rootDir); err != nil {
		t.Fatalf("CloseDirectory: %v", err)
	}
	if err := editor.CloseEdit(); err != nil {
		t.Fatalf("CloseEdit: %v", err)
	}

	if _, err := os.Stat(filepath.Join(root, "gone")); !os.IsNotExist(err) {
		t.Errorf("proj/gone still present on disk after close_edit, err=%v", err)
	}

	final, err := store.Read(root)
	if err != nil {
		t.Fatalf("Read after close: %v", err)
	}
	goneEnt, ok := final["gone"]
	if !ok {
		t.Fatalf("gone tombstone purged by complete_directory, want it retained for the deleted target")
	}
	if !goneEnt.Deleted || goneEnt.Revision != 10 {
		t.Errorf("gone = %+v, want Deleted=true Revision=10", goneEnt)
	}
	thisDir := final[entries.ThisDir]
	if thisDir.Incomplete {
		t.Errorf("root entry still marked incomplete after close")
	}
}

// TestDeleteEntrySwitchTargetSubdirRemovedBeforeReplay exercises the one
// pre-replay removal spec.md §4.2 actually calls for: a switch edit whose
// target is a subdirectory is removed from disk immediately, bypassing the
// post-switch URL mismatch, while the log still records the DELETE_ENTRY so
// the tombstone lands the same way a file deletion's does.
func TestDeleteEntrySwitchTargetSubdirRemovedBeforeReplay(t *testing.T) {
	root := t.TempDir()
	editor, store, _ := newTestEditor(t, root)
	editor.Ctx.Target = "gone"
	editor.Ctx.SwitchURL = "file:///repo/other"

	subdir := filepath.Join(root, "gone")
	if err := os.MkdirAll(subdir, 0750); err != nil {
		t.Fatalf("seed subdir: %v", err)
	}
	if err := store.Write(root, map[string]entries.Entry{
		entries.ThisDir: {Kind: entries.KindDir, Revision: 5, URL: "file:///repo/proj"},
		"gone":          {Kind: entries.KindDir, Revision: 5, URL: "file:///repo/proj/gone"},
	}); err != nil {
		t.Fatalf("seed Write: %v", err)
	}
	if err := store.Write(subdir, map[string]entries.Entry{
		entries.ThisDir: {Kind: entries.KindDir, Revision: 5, URL: "file:///repo/proj/gone"},
	}); err != nil {
		t.Fatalf("seed subdir Write: %v", err)
	}

	if err := editor.SetTargetRevision(10); err != nil {
		t.Fatalf("SetTargetRevision: %v", err)
	}
	rootDir, err := editor.OpenRoot(5)
	if err != nil {
		t.Fatalf("OpenRoot: %v", err)
	}
	if err := editor.DeleteEntry(rootDir, "gone", 10); err != nil {
		t.Fatalf("DeleteEntry: %v", err)
	}

	if _, err := os.Stat(subdir); !os.IsNotExist(err) {
		t.Errorf("proj/gone still present immediately after delete_entry, want removed pre-replay, err=%v", err)
	}
	if logjournal.Exists(root) {
		t.Errorf("log file still present after DeleteEntry's own replay")
	}

	final, err := store.Read(root)
	if err != nil {
		t.Fatalf("Read after delete: %v", err)
	}
	goneEnt, ok := final["gone"]
	if !ok {
		t.Fatalf("gone tombstone missing after delete_entry")
	}
	if !goneEnt.Deleted || goneEnt.Revision != 10 {
		t.Errorf("gone = %+v, want Deleted=true Revision=10", goneEnt)
	}
}

// TestAnchorTargetResolution exercises spec.md §4.10/S6: a path that is
// itself a working-copy root (its recorded URL does not extend its
// parent's) resolves to anchor=path, target="".
func TestAnchorTargetResolution(t *testing.T) {
	store := entries.NewMemStore()

	if err := store.Write("wc", map[string]entries.Entry{
		entries.ThisDir: {Kind: entries.KindDir, URL: "file:///repo/wc"},
		"foo":           {Kind: entries.KindDir, URL: "file:///repo/wc/foo"},
	}); err != nil {
		t.Fatalf("seed wc: %v", err)
	}
	if err := store.Write(filepath.Join("wc", "foo"), map[string]entries.Entry{
		entries.ThisDir: {Kind: entries.KindDir, URL: "file:///repo/wc/foo"},
		"bar":           {Kind: entries.KindFile, URL: "file:///repo/wc/foo/bar"},
	}); err != nil {
		t.Fatalf("seed wc/foo: %v", err)
	}

	anchor, target, err := ResolveAnchorTarget(store, filepath.Join("wc", "foo", "bar"))
	if err != nil {
		t.Fatalf("ResolveAnchorTarget: %v", err)
	}
	if anchor != filepath.Join("wc", "foo") || target != "bar" {
		t.Errorf("anchor/target = %q/%q, want %q/%q", anchor, target, filepath.Join("wc", "foo"), "bar")
	}

	if err := store.Write(filepath.Join("wc", "foo"), map[string]entries.Entry{
		entries.ThisDir: {Kind: entries.KindDir, URL: "file:///switched/elsewhere"},
	}); err != nil {
		t.Fatalf("re-seed wc/foo: %v", err)
	}
	anchor, target, err = ResolveAnchorTarget(store, filepath.Join("wc", "foo"))
	if err != nil {
		t.Fatalf("ResolveAnchorTarget (diverging URL): %v", err)
	}
	if anchor != filepath.Join("wc", "foo") || target != "" {
		t.Errorf("anchor/target = %q/%q, want %q/%q (diverging URL makes foo its own root)",
			anchor, target, filepath.Join("wc", "foo"), "")
	}
}

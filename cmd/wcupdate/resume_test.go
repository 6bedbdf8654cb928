package main

import (
	"bytes"
	"strings"
	"testing"

	"github.com/wcupdate/wcupdate/internal/adm"
	"github.com/wcupdate/wcupdate/internal/entries"
	"github.com/wcupdate/wcupdate/internal/logjournal"
)

func TestRunResumeReplaysPendingLog(t *testing.T) {
	root := t.TempDir()
	if err := adm.Ensure(root); err != nil {
		t.Fatalf("adm.Ensure: %v", err)
	}

	store, err := entries.NewSQLiteStore(root)
	if err != nil {
		t.Fatalf("NewSQLiteStore: %v", err)
	}

	snapshot := map[string]entries.Entry{
		entries.ThisDir: {Kind: entries.KindDir},
	}
	if err := store.Write(root, snapshot); err != nil {
		t.Fatalf("Write: %v", err)
	}
	store.Close()

	buf := logjournal.NewBuffer(root)
	buf.ModifyEntry(entries.ThisDir, logjournal.Attr{Name: "revision", Value: "9"})
	if err := buf.Flush(); err != nil {
		t.Fatalf("Flush: %v", err)
	}
	if !logjournal.Exists(root) {
		t.Fatalf("expected pending log after Flush")
	}

	if err := resumeCmd.Flags().Set("yes", "true"); err != nil {
		t.Fatalf("set yes flag: %v", err)
	}
	defer resumeCmd.Flags().Set("yes", "false")

	var out bytes.Buffer
	resumeCmd.SetOut(&out)

	if err := runResume(resumeCmd, []string{root}); err != nil {
		t.Fatalf("runResume: %v", err)
	}

	if logjournal.Exists(root) {
		t.Errorf("log still pending after resume")
	}
	if !strings.Contains(out.String(), "resumed "+root) {
		t.Errorf("runResume output %q does not mention resumed %s", out.String(), root)
	}

	store2, err := entries.NewSQLiteStore(root)
	if err != nil {
		t.Fatalf("reopen store: %v", err)
	}
	defer store2.Close()
	got, err := store2.Read(root)
	if err != nil {
		t.Fatalf("Read: %v", err)
	}
	if got[entries.ThisDir].Revision != 9 {
		t.Errorf("this-dir revision = %d, want 9", got[entries.ThisDir].Revision)
	}
}

func TestRunResumeNoopWithoutPendingLog(t *testing.T) {
	root := t.TempDir()
	if err := adm.Ensure(root); err != nil {
		t.Fatalf("adm.Ensure: %v", err)
	}

	store, err := entries.NewSQLiteStore(root)
	if err != nil {
		t.Fatalf("NewSQLiteStore: %v", err)
	}
	if err := store.Write(root, map[string]entries.Entry{entries.ThisDir: {Kind: entries.KindDir}}); err != nil {
		t.Fatalf("Write: %v", err)
	}
	store.Close()

	if err := resumeCmd.Flags().Set("yes", "true"); err != nil {
		t.Fatalf("set yes flag: %v", err)
	}
	defer resumeCmd.Flags().Set("yes", "false")

	var out bytes.Buffer
	resumeCmd.SetOut(&out)

	if err := runResume(resumeCmd, []string{root}); err != nil {
		t.Fatalf("runResume: %v", err)
	}
	if out.Len() != 0 {
		t.Errorf("runResume output = %q, want empty when nothing is pending", out.String())
	}
}

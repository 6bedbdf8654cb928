package main

import (
	"bytes"
	"os"
	"path/filepath"
	"testing"

	"github.com/spf13/cobra"
)

const freshCheckoutDeltaScript = `
target-rev 7
open-root
add-file hello.txt
text <<<
hi
<<<
close-file hello.txt 764efa883dda1e11db47671c4a3bbd9e
close-dir .
close-edit
`

func TestRunApplyFreshCheckout(t *testing.T) {
	wc := t.TempDir()
	scriptPath := filepath.Join(t.TempDir(), "s1.deltascript")
	if err := os.WriteFile(scriptPath, []byte(freshCheckoutDeltaScript), 0640); err != nil {
		t.Fatalf("WriteFile: %v", err)
	}

	cmd := &cobra.Command{}
	var out bytes.Buffer
	cmd.SetOut(&out)

	if err := runApply(cmd, []string{wc, scriptPath}); err != nil {
		t.Fatalf("runApply: %v", err)
	}

	data, err := os.ReadFile(filepath.Join(wc, "hello.txt"))
	if err != nil {
		t.Fatalf("read hello.txt: %v", err)
	}
	if string(data) != "hi\n" {
		t.Errorf("hello.txt = %q, want %q", data, "hi\n")
	}
}

func TestRunApplyRejectsUnknownVerb(t *testing.T) {
	wc := t.TempDir()
	scriptPath := filepath.Join(t.TempDir(), "bad.deltascript")
	if err := os.WriteFile(scriptPath, []byte("frobnicate foo\n"), 0640); err != nil {
		t.Fatalf("WriteFile: %v", err)
	}

	cmd := &cobra.Command{}
	cmd.SetOut(&bytes.Buffer{})

	if err := runApply(cmd, []string{wc, scriptPath}); err == nil {
		t.Fatalf("runApply: want error for an unknown verb, got nil")
	}
}

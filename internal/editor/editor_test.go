package editor

import (
	"os"
	"path/filepath"
	"strings"
	"testing"
)

func TestCreateRefusesNonEmptyFile(t *testing.T) {
	dir := t.TempDir()
	e := New(dir)
	path := filepath.Join(dir, "existing.txt")
	if err := os.WriteFile(path, []byte("hello"), 0o644); err != nil {
		t.Fatalf("seed file: %v", err)
	}

	_, err := e.Execute(Action{Command: CmdCreate, Path: "existing.txt", FileText: "overwrite"})
	if err == nil {
		t.Fatalf("expected create to refuse a non-empty file")
	}
}

func TestWriteThenViewRoundTrip(t *testing.T) {
	dir := t.TempDir()
	e := New(dir)

	if _, err := e.Execute(Action{Command: CmdWrite, Path: "f.txt", FileText: "line1\nline2\n"}); err != nil {
		t.Fatalf("write: %v", err)
	}

	res, err := e.Execute(Action{Command: CmdView, Path: "f.txt"})
	if err != nil {
		t.Fatalf("view: %v", err)
	}
	if !strings.Contains(res.Output, "line1") || !strings.Contains(res.Output, "line2") {
		t.Fatalf("expected view output to contain both lines, got %q", res.Output)
	}
}

func TestStrReplaceRoundTrip(t *testing.T) {
	dir := t.TempDir()
	e := New(dir)

	if _, err := e.Execute(Action{Command: CmdWrite, Path: "f.txt", FileText: "alpha beta alpha"}); err != nil {
		t.Fatalf("write: %v", err)
	}

	if _, err := e.Execute(Action{Command: CmdStrReplace, Path: "f.txt", OldStr: "alpha", NewStr: "gamma"}); err != nil {
		t.Fatalf("str_replace A->B: %v", err)
	}
	if _, err := e.Execute(Action{Command: CmdStrReplace, Path: "f.txt", OldStr: "gamma", NewStr: "alpha"}); err != nil {
		t.Fatalf("str_replace B->A: %v", err)
	}

	got, err := os.ReadFile(filepath.Join(dir, "f.txt"))
	if err != nil {
		t.Fatalf("ReadFile: %v", err)
	}
	if string(got) != "alpha beta alpha" {
		t.Fatalf("expected original content restored, got %q", got)
	}
}

func TestStrReplaceMissingOldStrIsWarningNotError(t *testing.T) {
	dir := t.TempDir()
	e := New(dir)
	if _, err := e.Execute(Action{Command: CmdWrite, Path: "f.txt", FileText: "hello"}); err != nil {
		t.Fatalf("write: %v", err)
	}

	res, err := e.Execute(Action{Command: CmdStrReplace, Path: "f.txt", OldStr: "absent", NewStr: "x"})
	if err != nil {
		t.Fatalf("expected no error, got %v", err)
	}
	if !strings.Contains(res.Output, "No replacement") {
		t.Fatalf("expected a warning message, got %q", res.Output)
	}
}

func TestFindContentReturnsLineNumbers(t *testing.T) {
	dir := t.TempDir()
	e := New(dir)
	if _, err := e.Execute(Action{Command: CmdWrite, Path: "f.txt", FileText: "foo\nbar\nfoobar\n"}); err != nil {
		t.Fatalf("write: %v", err)
	}

	res, err := e.Execute(Action{Command: CmdFindContent, Path: "f.txt", Regex: "foo"})
	if err != nil {
		t.Fatalf("find_content: %v", err)
	}
	if !strings.Contains(res.Output, "Line 1:") || !strings.Contains(res.Output, "Line 3:") {
		t.Fatalf("expected matches on lines 1 and 3, got %q", res.Output)
	}
}

func TestFindFileSortedGlob(t *testing.T) {
	dir := t.TempDir()
	e := New(dir)
	for _, name := range []string{"b.go", "a.go", "c.txt"} {
		if err := os.WriteFile(filepath.Join(dir, name), []byte(""), 0o644); err != nil {
			t.Fatalf("seed %s: %v", name, err)
		}
	}

	res, err := e.Execute(Action{Command: CmdFindFile, Path: ".", Glob: "*.go"})
	if err != nil {
		t.Fatalf("find_file: %v", err)
	}
	idxA := strings.Index(res.Output, "a.go")
	idxB := strings.Index(res.Output, "b.go")
	if idxA == -1 || idxB == -1 || idxA > idxB {
		t.Fatalf("expected a.go before b.go, got %q", res.Output)
	}
	if strings.Contains(res.Output, "c.txt") {
		t.Fatalf("expected c.txt excluded by glob, got %q", res.Output)
	}
}

func TestViewDirRequiresDirectory(t *testing.T) {
	dir := t.TempDir()
	e := New(dir)
	if err := os.WriteFile(filepath.Join(dir, "f.txt"), []byte("x"), 0o644); err != nil {
		t.Fatalf("seed: %v", err)
	}

	if _, err := e.Execute(Action{Command: CmdViewDir, Path: "f.txt"}); err == nil {
		t.Fatalf("expected view_dir on a file to be rejected")
	}
}

func TestViewNonexistentPathIsError(t *testing.T) {
	dir := t.TempDir()
	e := New(dir)
	if _, err := e.Execute(Action{Command: CmdView, Path: "missing.txt"}); err == nil {
		t.Fatalf("expected view of a missing path to be rejected")
	}
}

package node

import (
	"os"
	"path/filepath"
	"testing"
)

func TestResolveWithinRootRejectsAbsolutePaths(t *testing.T) {
	root := t.TempDir()

	if _, err := resolveWithinRoot(root, "/etc/passwd"); err == nil {
		t.Error("expected PathEscape error for absolute path")
	} else if toolErr, ok := err.(*ToolError); !ok || toolErr.Kind != ErrPathEscape {
		t.Errorf("expected PathEscape kind, got %v", err)
	}
}

func TestResolveWithinRootRejectsDotDotEscape(t *testing.T) {
	root := t.TempDir()

	if _, err := resolveWithinRoot(root, "../etc/passwd"); err == nil {
		t.Error("expected PathEscape error for .. escape")
	} else if toolErr, ok := err.(*ToolError); !ok || toolErr.Kind != ErrPathEscape {
		t.Errorf("expected PathEscape kind, got %v", err)
	}
}

func TestResolveWithinRootAllowsNested(t *testing.T) {
	root := t.TempDir()
	if err := os.MkdirAll(filepath.Join(root, "a", "b"), 0o755); err != nil {
		t.Fatal(err)
	}

	resolved, err := resolveWithinRoot(root, "a/b")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	expected, _ := filepath.Abs(filepath.Join(root, "a", "b"))
	if resolved != expected {
		t.Errorf("expected %q, got %q", expected, resolved)
	}
}

func TestResolveWithinRootEmptyMeansRoot(t *testing.T) {
	root := t.TempDir()

	resolved, err := resolveWithinRoot(root, "")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	expected, _ := filepath.Abs(root)
	if resolved != expected {
		t.Errorf("expected %q, got %q", expected, resolved)
	}
}

func TestListFilesIsDeterministic(t *testing.T) {
	root := t.TempDir()
	mustWrite(t, filepath.Join(root, "b.txt"), "b")
	mustWrite(t, filepath.Join(root, "a.txt"), "a")
	if err := os.MkdirAll(filepath.Join(root, "sub"), 0o755); err != nil {
		t.Fatal(err)
	}
	mustWrite(t, filepath.Join(root, "sub", "c.txt"), "c")

	first, err := listFiles(root, root, true, "", false)
	if err != nil {
		t.Fatal(err)
	}
	second, err := listFiles(root, root, true, "", false)
	if err != nil {
		t.Fatal(err)
	}

	if len(first) != len(second) {
		t.Fatalf("non-deterministic entry count: %d vs %d", len(first), len(second))
	}
	for i := range first {
		if first[i].RelativePath != second[i].RelativePath {
			t.Errorf("order mismatch at %d: %q vs %q", i, first[i].RelativePath, second[i].RelativePath)
		}
	}

	for i := 1; i < len(first); i++ {
		if first[i-1].RelativePath >= first[i].RelativePath {
			t.Errorf("entries not lexicographically sorted: %q >= %q", first[i-1].RelativePath, first[i].RelativePath)
		}
	}
}

func TestListFilesSkipsEscapingSymlinks(t *testing.T) {
	root := t.TempDir()
	outside := t.TempDir()
	mustWrite(t, filepath.Join(outside, "secret.txt"), "secret")

	if err := os.Symlink(filepath.Join(outside, "secret.txt"), filepath.Join(root, "escape.txt")); err != nil {
		t.Skipf("symlinks unsupported in this environment: %v", err)
	}

	entries, err := listFiles(root, root, false, "", false)
	if err != nil {
		t.Fatal(err)
	}
	for _, entry := range entries {
		if entry.RelativePath == "escape.txt" {
			t.Error("escaping symlink should not be followed/listed as a regular entry")
		}
	}
}

func TestListFilesAppliesFilterToDirectoriesToo(t *testing.T) {
	root := t.TempDir()
	if err := os.MkdirAll(filepath.Join(root, "keep"), 0o755); err != nil {
		t.Fatal(err)
	}
	if err := os.MkdirAll(filepath.Join(root, "skip"), 0o755); err != nil {
		t.Fatal(err)
	}
	mustWrite(t, filepath.Join(root, "keep", "a.txt"), "a")
	mustWrite(t, filepath.Join(root, "skip", "keep"), "nested file named keep")

	entries, err := listFiles(root, root, true, "keep", false)
	if err != nil {
		t.Fatal(err)
	}

	for _, entry := range entries {
		base := filepath.Base(entry.RelativePath)
		if base != "keep" {
			t.Errorf("expected every listed entry's basename to match the filter, got %q", entry.RelativePath)
		}
	}

	var sawKeepDir, sawNestedFile bool
	for _, entry := range entries {
		switch entry.RelativePath {
		case "keep":
			sawKeepDir = true
		case "skip/keep":
			sawNestedFile = true
		}
		if entry.RelativePath == "skip" {
			t.Error("directory 'skip' does not match the filter and should not be listed")
		}
	}
	if !sawKeepDir {
		t.Error("expected the matching directory 'keep' to be listed")
	}
	if !sawNestedFile {
		t.Error("expected recursion into the non-matching directory 'skip' to still surface its matching child")
	}
}

func mustWrite(t *testing.T, path, content string) {
	t.Helper()
	if err := os.WriteFile(path, []byte(content), 0o644); err != nil {
		t.Fatal(err)
	}
}

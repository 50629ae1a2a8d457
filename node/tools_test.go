package node

import (
	"context"
	"encoding/base64"
	"os"
	"path/filepath"
	"testing"
)

func newTestContext(t *testing.T, allowed []string) RootContext {
	t.Helper()
	root := t.TempDir()
	cfg := Config{
		NodeID:          "test-node",
		RootDir:         root,
		AllowedCommands: allowed,
		SyncTargets:     map[string]string{},
		Tags:            []string{"test"},
	}
	return NewRootContext(cfg)
}

func TestWriteThenReadRoundTrip(t *testing.T) {
	rc := newTestContext(t, nil)

	writeResult, err := rc.WriteFile(WriteFileRequest{Path: "hello.txt", Content: "hello world"})
	if err != nil {
		t.Fatalf("WriteFile failed: %v", err)
	}

	readResult, err := rc.ReadFile(ReadFileRequest{Path: "hello.txt"})
	if err != nil {
		t.Fatalf("ReadFile failed: %v", err)
	}

	if readResult.Content != "hello world" {
		t.Errorf("expected content %q, got %q", "hello world", readResult.Content)
	}
	if readResult.SHA256 != writeResult.SHA256 {
		t.Errorf("hash mismatch: write=%q read=%q", writeResult.SHA256, readResult.SHA256)
	}
}

func TestWriteFileWithoutOverwriteFailsOnExisting(t *testing.T) {
	rc := newTestContext(t, nil)

	if _, err := rc.WriteFile(WriteFileRequest{Path: "f.txt", Content: "v1"}); err != nil {
		t.Fatalf("first write failed: %v", err)
	}

	_, err := rc.WriteFile(WriteFileRequest{Path: "f.txt", Content: "v2"})
	toolErr, ok := err.(*ToolError)
	if !ok || toolErr.Kind != ErrAlreadyExists {
		t.Fatalf("expected AlreadyExists, got %v", err)
	}
}

func TestWriteFileOverwriteCreatesBackup(t *testing.T) {
	rc := newTestContext(t, nil)

	if _, err := rc.WriteFile(WriteFileRequest{Path: "f.txt", Content: "old"}); err != nil {
		t.Fatalf("first write failed: %v", err)
	}
	result, err := rc.WriteFile(WriteFileRequest{Path: "f.txt", Content: "new", Overwrite: true})
	if err != nil {
		t.Fatalf("overwrite failed: %v", err)
	}
	if result.BackupPath == "" {
		t.Fatal("expected a backup path on overwrite")
	}

	backupContent, err := os.ReadFile(filepath.Join(rc.Config.RootDir, result.BackupPath))
	if err != nil {
		t.Fatalf("reading backup failed: %v", err)
	}
	if string(backupContent) != "old" {
		t.Errorf("expected backup to contain %q, got %q", "old", string(backupContent))
	}

	current, err := rc.ReadFile(ReadFileRequest{Path: "f.txt"})
	if err != nil {
		t.Fatalf("reading current failed: %v", err)
	}
	if current.Content != "new" {
		t.Errorf("expected current content %q, got %q", "new", current.Content)
	}
}

func TestWriteFileTooLarge(t *testing.T) {
	rc := newTestContext(t, nil)
	big := make([]byte, maxWriteBytes+1)

	_, err := rc.WriteFile(WriteFileRequest{Path: "big.bin", Content: string(big)})
	toolErr, ok := err.(*ToolError)
	if !ok || toolErr.Kind != ErrTooLarge {
		t.Fatalf("expected TooLarge, got %v", err)
	}

	if _, statErr := os.Stat(filepath.Join(rc.Config.RootDir, "big.bin")); statErr == nil {
		t.Error("file should not have been created on TooLarge failure")
	}
}

func TestExecuteCommandNotOnAllowList(t *testing.T) {
	rc := newTestContext(t, []string{"echo"})

	_, err := rc.ExecuteCommand(context.Background(), CommandRequest{Argv: []string{"rm", "-rf", "/"}})
	toolErr, ok := err.(*ToolError)
	if !ok || toolErr.Kind != ErrCommandNotAllowed {
		t.Fatalf("expected CommandNotAllowed, got %v", err)
	}
}

func TestExecuteCommandSuccess(t *testing.T) {
	rc := newTestContext(t, []string{"echo"})

	result, err := rc.ExecuteCommand(context.Background(), CommandRequest{Argv: []string{"echo", "hi"}})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if result.ExitCode != 0 {
		t.Errorf("expected exit code 0, got %d", result.ExitCode)
	}
	if result.Stdout != "hi\n" {
		t.Errorf("expected stdout %q, got %q", "hi\n", result.Stdout)
	}
}

func TestExecuteCommandTimeout(t *testing.T) {
	rc := newTestContext(t, []string{"sleep"})

	result, err := rc.ExecuteCommand(context.Background(), CommandRequest{
		Argv:           []string{"sleep", "10"},
		TimeoutSeconds: 1,
	})
	toolErr, ok := err.(*ToolError)
	if !ok || toolErr.Kind != ErrTimeout {
		t.Fatalf("expected Timeout, got %v", err)
	}
	if result.ExitCode != signalExitSentinel {
		t.Errorf("expected sentinel exit code %d, got %d", signalExitSentinel, result.ExitCode)
	}
}

func TestSyncFilesMirrorIsIdempotent(t *testing.T) {
	root := t.TempDir()
	targetDir := t.TempDir()
	cfg := Config{
		NodeID:      "test-node",
		RootDir:     root,
		SyncTargets: map[string]string{"replica": targetDir},
	}
	rc := NewRootContext(cfg)

	if err := os.MkdirAll(filepath.Join(root, "data"), 0o755); err != nil {
		t.Fatal(err)
	}
	mustWrite(t, filepath.Join(root, "data", "a.txt"), "a")
	mustWrite(t, filepath.Join(root, "data", "b.txt"), "b")

	first, err := rc.SyncFiles(SyncRequest{SourcePath: "data", TargetName: "replica", Strategy: string(SyncMirror)})
	if err != nil {
		t.Fatalf("first sync failed: %v", err)
	}
	if first.FilesCopied != 2 {
		t.Errorf("expected 2 files copied, got %d", first.FilesCopied)
	}

	second, err := rc.SyncFiles(SyncRequest{SourcePath: "data", TargetName: "replica", Strategy: string(SyncMirror)})
	if err != nil {
		t.Fatalf("second sync failed: %v", err)
	}
	if second.FilesCopied != 2 {
		t.Errorf("mirror re-sync should still report the same converged file count, got %d", second.FilesCopied)
	}
}

func TestWriteFileDeleteRemovesExistingFile(t *testing.T) {
	rc := newTestContext(t, nil)

	if _, err := rc.WriteFile(WriteFileRequest{Path: "gone.txt", Content: "v1"}); err != nil {
		t.Fatalf("write failed: %v", err)
	}

	if _, err := rc.WriteFile(WriteFileRequest{Path: "gone.txt", Delete: true}); err != nil {
		t.Fatalf("delete failed: %v", err)
	}

	if _, err := rc.ReadFile(ReadFileRequest{Path: "gone.txt"}); err == nil {
		t.Error("expected the deleted file to no longer be readable")
	}
}

func TestWriteFileDeleteIsIdempotentOnAbsentPath(t *testing.T) {
	rc := newTestContext(t, nil)

	if _, err := rc.WriteFile(WriteFileRequest{Path: "never-existed.txt", Delete: true}); err != nil {
		t.Errorf("expected deleting an absent file to succeed, got %v", err)
	}
}

func TestReadFileRejectsInvalidUTF8WithDefaultEncoding(t *testing.T) {
	rc := newTestContext(t, nil)

	if err := os.WriteFile(filepath.Join(rc.Config.RootDir, "binary.dat"), []byte{0xff, 0xfe, 0x00, 0x01}, 0o644); err != nil {
		t.Fatalf("seeding binary file failed: %v", err)
	}

	_, err := rc.ReadFile(ReadFileRequest{Path: "binary.dat"})
	toolErr, ok := err.(*ToolError)
	if !ok || toolErr.Kind != ErrEncodingError {
		t.Fatalf("expected EncodingError for invalid utf-8, got %v", err)
	}
}

func TestReadFileBinaryEncodingSurvivesInvalidUTF8(t *testing.T) {
	rc := newTestContext(t, nil)

	raw := []byte{0xff, 0xfe, 0x00, 0x01}
	if err := os.WriteFile(filepath.Join(rc.Config.RootDir, "binary.dat"), raw, 0o644); err != nil {
		t.Fatalf("seeding binary file failed: %v", err)
	}

	result, err := rc.ReadFile(ReadFileRequest{Path: "binary.dat", Encoding: "binary"})
	if err != nil {
		t.Fatalf("unexpected error reading with binary encoding: %v", err)
	}
	decoded, err := base64.StdEncoding.DecodeString(result.Content)
	if err != nil {
		t.Fatalf("expected base64 content, got undecodable %q: %v", result.Content, err)
	}
	if string(decoded) != string(raw) {
		t.Errorf("expected round-tripped bytes %v, got %v", raw, decoded)
	}
}

func TestGetNodeInfoDoesNotMutate(t *testing.T) {
	rc := newTestContext(t, nil)

	first := rc.GetNodeInfo()
	second := rc.GetNodeInfo()

	if first.NodeID != second.NodeID {
		t.Errorf("node_id should be stable across calls: %q vs %q", first.NodeID, second.NodeID)
	}
}

package vault

import (
	"context"
	"os"
	"path/filepath"
	"strings"
	"testing"
)

func TestFileSystemVault_Layout(t *testing.T) {
	root := filepath.Join(t.TempDir(), "backups")
	v, err := NewFileSystemVault("test", root)
	if err != nil {
		t.Fatalf("NewFileSystemVault() error = %v", err)
	}

	key := "2024-01-15/abc/report.pdf.age"
	if err := v.Put(context.Background(), key, strings.NewReader("data"), 4); err != nil {
		t.Fatalf("Put() error = %v", err)
	}

	got, err := os.ReadFile(filepath.Join(root, "2024-01-15", "abc", "report.pdf.age"))
	if err != nil {
		t.Fatalf("object not at expected path: %v", err)
	}
	if string(got) != "data" {
		t.Errorf("object content = %q", got)
	}
}

func TestFileSystemVault_FailedPutLeavesNothing(t *testing.T) {
	root := t.TempDir()
	v, err := NewFileSystemVault("test", root)
	if err != nil {
		t.Fatal(err)
	}

	if err := v.Put(context.Background(), "a/b.txt", strings.NewReader("short"), 99); err == nil {
		t.Fatal("Put() error = nil, want size mismatch")
	}

	keys, err := v.List(context.Background(), "")
	if err != nil {
		t.Fatal(err)
	}
	if len(keys) != 0 {
		t.Errorf("List() = %v, want empty", keys)
	}
}

func TestFileSystemVault_ValidateSetupNotDirectory(t *testing.T) {
	root := t.TempDir()
	v, err := NewFileSystemVault("test", root)
	if err != nil {
		t.Fatal(err)
	}
	if err := os.RemoveAll(root); err != nil {
		t.Fatal(err)
	}
	if err := os.WriteFile(root, []byte("x"), 0644); err != nil {
		t.Fatal(err)
	}

	if err := v.ValidateSetup(context.Background()); err == nil {
		t.Error("ValidateSetup() error = nil, want error")
	}
}

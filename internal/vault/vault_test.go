package vault

import (
	"bytes"
	"context"
	"errors"
	"strings"
	"testing"

	"sift-go/internal/sift"
)

// vaultContract runs the behaviour every Vault must share.
func vaultContract(t *testing.T, newVault func(t *testing.T) sift.Vault) {
	ctx := context.Background()

	t.Run("put and get", func(t *testing.T) {
		tests := []struct {
			name    string
			key     string
			content string
		}{
			{name: "simple", key: "2024-01-15/abc/notes.txt", content: "hello world"},
			{name: "empty", key: "2024-01-15/e3b0/empty.txt", content: ""},
			{name: "large", key: "2024-01-15/def/big.bin", content: strings.Repeat("x", 100000)},
		}
		v := newVault(t)
		for _, tt := range tests {
			t.Run(tt.name, func(t *testing.T) {
				if err := v.Put(ctx, tt.key, strings.NewReader(tt.content), int64(len(tt.content))); err != nil {
					t.Fatalf("Put() error = %v", err)
				}
				var buf bytes.Buffer
				if err := v.Get(ctx, tt.key, &buf); err != nil {
					t.Fatalf("Get() error = %v", err)
				}
				if buf.String() != tt.content {
					t.Errorf("Get() returned %d bytes, want %d", buf.Len(), len(tt.content))
				}
			})
		}
	})

	t.Run("size mismatch", func(t *testing.T) {
		v := newVault(t)
		if err := v.Put(ctx, "a/b/c.txt", strings.NewReader("hello"), 100); err == nil {
			t.Error("Put() with wrong size error = nil, want error")
		}
	})

	t.Run("put twice is safe", func(t *testing.T) {
		v := newVault(t)
		for i := 0; i < 2; i++ {
			if err := v.Put(ctx, "a/b/c.txt", strings.NewReader("same"), 4); err != nil {
				t.Fatalf("Put() #%d error = %v", i+1, err)
			}
		}
	})

	t.Run("missing key", func(t *testing.T) {
		v := newVault(t)
		var buf bytes.Buffer
		if err := v.Get(ctx, "no/such/key", &buf); !errors.Is(err, sift.ErrNotFound) {
			t.Errorf("Get() error = %v, want ErrNotFound", err)
		}
	})

	t.Run("rejects escaping keys", func(t *testing.T) {
		v := newVault(t)
		for _, key := range []string{"", "/etc/passwd", "../outside", "a/../../b", "a//b"} {
			if err := v.Put(ctx, key, strings.NewReader("x"), 1); err == nil {
				t.Errorf("Put(%q) error = nil, want error", key)
			}
		}
	})

	t.Run("list by prefix", func(t *testing.T) {
		v := newVault(t)
		for _, key := range []string{"2024-01-16/b/y.txt", "2024-01-15/a/x.txt", "2024-02-01/c/z.txt"} {
			if err := v.Put(ctx, key, strings.NewReader("d"), 1); err != nil {
				t.Fatal(err)
			}
		}
		keys, err := v.List(ctx, "2024-01")
		if err != nil {
			t.Fatalf("List() error = %v", err)
		}
		want := []string{"2024-01-15/a/x.txt", "2024-01-16/b/y.txt"}
		if strings.Join(keys, ",") != strings.Join(want, ",") {
			t.Errorf("List() = %v, want %v", keys, want)
		}
	})

	t.Run("validate setup", func(t *testing.T) {
		if err := newVault(t).ValidateSetup(ctx); err != nil {
			t.Errorf("ValidateSetup() error = %v", err)
		}
	})
}

func TestMemoryVault(t *testing.T) {
	vaultContract(t, func(*testing.T) sift.Vault { return NewMemoryVault("test") })
}

func TestFileSystemVault(t *testing.T) {
	vaultContract(t, func(t *testing.T) sift.Vault {
		v, err := NewFileSystemVault("test", t.TempDir())
		if err != nil {
			t.Fatalf("NewFileSystemVault() error = %v", err)
		}
		return v
	})
}

func TestValidateKey(t *testing.T) {
	tests := []struct {
		key     string
		wantErr bool
	}{
		{key: "2024-01-15/abc/file.txt"},
		{key: "file.txt"},
		{key: "", wantErr: true},
		{key: "/abs", wantErr: true},
		{key: "..", wantErr: true},
		{key: "../x", wantErr: true},
		{key: "a/./b", wantErr: true},
		{key: `a\b`, wantErr: true},
	}
	for _, tt := range tests {
		if err := validateKey(tt.key); (err != nil) != tt.wantErr {
			t.Errorf("validateKey(%q) error = %v, wantErr %v", tt.key, err, tt.wantErr)
		}
	}
}

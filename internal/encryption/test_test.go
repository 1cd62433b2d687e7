package encryption

import (
	"bytes"
	"testing"
)

func TestTestEncryptor_RoundTrip(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name  string
		input []byte
	}{
		{name: "simple text", input: []byte("hello world")},
		{name: "empty", input: []byte{}},
		{name: "binary data", input: []byte{0x00, 0xff, 0x5a, 0xfe}},
		{name: "large data", input: bytes.Repeat([]byte("abcdef"), 10000)},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()

			e := NewTestEncryptor()
			var encrypted bytes.Buffer
			if err := e.Encrypt(bytes.NewReader(tt.input), &encrypted); err != nil {
				t.Fatalf("Encrypt() error = %v", err)
			}
			if !bytes.HasPrefix(encrypted.Bytes(), testHeader) {
				t.Error("encrypted output does not start with test header")
			}
			if len(tt.input) > 4 && bytes.Contains(encrypted.Bytes(), tt.input) {
				t.Error("encrypted output contains the plaintext")
			}

			ctx, err := e.Unlock("any-passphrase")
			if err != nil {
				t.Fatalf("Unlock() error = %v", err)
			}
			var decrypted bytes.Buffer
			if err := ctx.Decrypt(bytes.NewReader(encrypted.Bytes()), &decrypted); err != nil {
				t.Fatalf("Decrypt() error = %v", err)
			}
			if !bytes.Equal(decrypted.Bytes(), tt.input) {
				t.Errorf("round-trip got %d bytes, want %d", decrypted.Len(), len(tt.input))
			}
		})
	}
}

func TestTestEncryptor_Deterministic(t *testing.T) {
	t.Parallel()

	e := NewTestEncryptor()
	var a, b bytes.Buffer
	if err := e.Encrypt(bytes.NewReader([]byte("same")), &a); err != nil {
		t.Fatal(err)
	}
	if err := e.Encrypt(bytes.NewReader([]byte("same")), &b); err != nil {
		t.Fatal(err)
	}
	if !bytes.Equal(a.Bytes(), b.Bytes()) {
		t.Error("same input produced different output")
	}
}

func TestTestDecryptionContext_RejectsBadInput(t *testing.T) {
	t.Parallel()

	for name, data := range map[string][]byte{
		"wrong header":     []byte("NOT_VALID_HEADER_data"),
		"truncated header": []byte("SIF"),
		"empty":            nil,
	} {
		var out bytes.Buffer
		if err := (&TestDecryptionContext{}).Decrypt(bytes.NewReader(data), &out); err == nil {
			t.Errorf("%s: Decrypt() error = nil, want error", name)
		}
	}
}

func TestNewEncryptorFromConfig(t *testing.T) {
	t.Parallel()

	if _, err := NewEncryptorFromConfig(configWithType("age")); err != nil {
		t.Errorf("age: error = %v", err)
	}
	if e, err := NewEncryptorFromConfig(configWithType("test")); err != nil {
		t.Errorf("test: error = %v", err)
	} else if _, ok := e.(*TestEncryptor); !ok {
		t.Errorf("test: got %T, want *TestEncryptor", e)
	}
	if _, err := NewEncryptorFromConfig(configWithType("rot13")); err == nil {
		t.Error("unknown type: error = nil, want error")
	}
}

package encryption

import (
	"bufio"
	"bytes"
	"fmt"
	"io"

	"sift-go/internal/sift"
)

// testHeader marks output of TestEncryptor.
var testHeader = []byte("SIFTENC\x00")

const testMask = 0x5a

// TestEncryptor is a deterministic stand-in for tests. It writes a fixed
// header and masks every byte, so ciphertext never contains the plaintext
// and decrypting is trivial. It provides no secrecy.
type TestEncryptor struct {
	setupCalled bool
}

var _ sift.Encryptor = (*TestEncryptor)(nil)

func NewTestEncryptor() *TestEncryptor {
	return &TestEncryptor{}
}

func (e *TestEncryptor) Setup(passphrase string) error {
	e.setupCalled = true
	return nil
}

func (e *TestEncryptor) Encrypt(r io.Reader, w io.Writer) error {
	if _, err := w.Write(testHeader); err != nil {
		return fmt.Errorf("writing test header: %w", err)
	}
	return mask(r, w)
}

func (e *TestEncryptor) Unlock(passphrase string) (sift.DecryptionContext, error) {
	return &TestDecryptionContext{}, nil
}

func (e *TestEncryptor) IsConfigured() bool { return true }

// TestDecryptionContext reverses TestEncryptor.
type TestDecryptionContext struct{}

var _ sift.DecryptionContext = (*TestDecryptionContext)(nil)

func (c *TestDecryptionContext) Decrypt(r io.Reader, w io.Writer) error {
	header := make([]byte, len(testHeader))
	if _, err := io.ReadFull(r, header); err != nil {
		return fmt.Errorf("reading test header: %w", err)
	}
	if !bytes.Equal(header, testHeader) {
		return fmt.Errorf("invalid test encryption header")
	}
	return mask(r, w)
}

func mask(r io.Reader, w io.Writer) error {
	br := bufio.NewReader(r)
	bw := bufio.NewWriter(w)
	for {
		b, err := br.ReadByte()
		if err == io.EOF {
			break
		}
		if err != nil {
			return fmt.Errorf("reading data: %w", err)
		}
		if err := bw.WriteByte(b ^ testMask); err != nil {
			return fmt.Errorf("writing data: %w", err)
		}
	}
	return bw.Flush()
}

package encryption

import (
	"bytes"
	"fmt"
	"io"

	"visitnotes/internal/visit"
)

// plainHeader marks data "encrypted" by PlainEncryptor.
var plainHeader = []byte("VNPLAIN\x00")

// PlainEncryptor prefixes a fixed header instead of encrypting. It is for
// tests and local development only: stored audio is readable by anyone with
// access to the vault.
type PlainEncryptor struct {
	setupCalled bool
}

var _ visit.Encryptor = (*PlainEncryptor)(nil)

func NewPlainEncryptor() *PlainEncryptor {
	return &PlainEncryptor{}
}

func (e *PlainEncryptor) Setup(string) error {
	e.setupCalled = true
	return nil
}

func (e *PlainEncryptor) Encrypt(r io.Reader, w io.Writer) error {
	if _, err := w.Write(plainHeader); err != nil {
		return fmt.Errorf("writing header: %w", err)
	}
	if _, err := io.Copy(w, r); err != nil {
		return fmt.Errorf("copying audio: %w", err)
	}
	return nil
}

func (e *PlainEncryptor) Unlock(string) (visit.DecryptionContext, error) {
	return plainDecryptionContext{}, nil
}

func (e *PlainEncryptor) IsConfigured() bool { return true }

type plainDecryptionContext struct{}

func (plainDecryptionContext) Decrypt(r io.Reader, w io.Writer) error {
	header := make([]byte, len(plainHeader))
	if _, err := io.ReadFull(r, header); err != nil {
		return fmt.Errorf("reading header: %w", err)
	}
	if !bytes.Equal(header, plainHeader) {
		return fmt.Errorf("invalid plain encryption header")
	}
	if _, err := io.Copy(w, r); err != nil {
		return fmt.Errorf("copying audio: %w", err)
	}
	return nil
}

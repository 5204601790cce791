package encryption

import (
	"bytes"
	"errors"
	"os"
	"path/filepath"
	"testing"

	"visitnotes/internal/config"
	"visitnotes/internal/visit"
)

func newTestAgeEncryptor(t *testing.T) *AgeEncryptor {
	t.Helper()
	dir := t.TempDir()
	return NewAgeEncryptor(config.EncryptionConfig{
		PublicKeyPath:  filepath.Join(dir, "keys", "visitnotes.pub"),
		PrivateKeyPath: filepath.Join(dir, "keys", "visitnotes.key"),
	})
}

func TestAgeEncryptor_Setup(t *testing.T) {
	t.Parallel()

	t.Run("configures keys", func(t *testing.T) {
		e := newTestAgeEncryptor(t)
		if e.IsConfigured() {
			t.Fatal("IsConfigured() = true before Setup, want false")
		}
		if err := e.Setup("passphrase"); err != nil {
			t.Fatalf("Setup() error = %v", err)
		}
		if !e.IsConfigured() {
			t.Error("IsConfigured() = false after Setup, want true")
		}

		info, err := os.Stat(e.privateKeyPath)
		if err != nil {
			t.Fatalf("Stat() error = %v", err)
		}
		if perm := info.Mode().Perm(); perm != 0600 {
			t.Errorf("private key mode = %o, want 600", perm)
		}
	})

	t.Run("refuses to replace keys", func(t *testing.T) {
		e := newTestAgeEncryptor(t)
		if err := e.Setup("passphrase"); err != nil {
			t.Fatalf("Setup() error = %v", err)
		}
		if err := e.Setup("other"); !errors.Is(err, visit.ErrAlreadyExists) {
			t.Errorf("second Setup() error = %v, want ErrAlreadyExists", err)
		}
	})

	t.Run("rejects empty passphrase", func(t *testing.T) {
		e := newTestAgeEncryptor(t)
		if err := e.Setup(""); !errors.Is(err, visit.ErrInvalidInput) {
			t.Errorf("Setup() error = %v, want ErrInvalidInput", err)
		}
	})
}

func TestAgeEncryptor_RoundTrip(t *testing.T) {
	t.Parallel()

	e := newTestAgeEncryptor(t)
	if err := e.Setup("passphrase"); err != nil {
		t.Fatalf("Setup() error = %v", err)
	}

	tests := []struct {
		name  string
		input []byte
	}{
		{name: "empty", input: []byte{}},
		{name: "binary", input: []byte{0x00, 0xff, 0x01, 0xfe}},
		{name: "large", input: bytes.Repeat([]byte("RIFFWAVE"), 20000)},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			var ct bytes.Buffer
			if err := e.Encrypt(bytes.NewReader(tt.input), &ct); err != nil {
				t.Fatalf("Encrypt() error = %v", err)
			}
			if len(tt.input) > 0 && bytes.Contains(ct.Bytes(), tt.input) {
				t.Error("ciphertext contains plaintext")
			}

			// A fresh encryptor reads the keys from disk.
			dec, err := NewAgeEncryptor(config.EncryptionConfig{
				PublicKeyPath:  e.publicKeyPath,
				PrivateKeyPath: e.privateKeyPath,
			}).Unlock("passphrase")
			if err != nil {
				t.Fatalf("Unlock() error = %v", err)
			}

			var pt bytes.Buffer
			if err := dec.Decrypt(&ct, &pt); err != nil {
				t.Fatalf("Decrypt() error = %v", err)
			}
			if !bytes.Equal(pt.Bytes(), tt.input) {
				t.Errorf("round trip mismatch: got %d bytes, want %d", pt.Len(), len(tt.input))
			}
		})
	}
}

func TestAgeEncryptor_Unlock_WrongPassphrase(t *testing.T) {
	t.Parallel()

	e := newTestAgeEncryptor(t)
	if err := e.Setup("right"); err != nil {
		t.Fatalf("Setup() error = %v", err)
	}
	if _, err := e.Unlock("wrong"); !errors.Is(err, ErrWrongPassphrase) {
		t.Errorf("Unlock() error = %v, want ErrWrongPassphrase", err)
	}
}

func TestAgeEncryptor_Encrypt_NotConfigured(t *testing.T) {
	t.Parallel()

	e := newTestAgeEncryptor(t)
	if err := e.Encrypt(bytes.NewReader([]byte("x")), &bytes.Buffer{}); err == nil {
		t.Error("Encrypt() error = nil without keys")
	}
}

func TestPlainEncryptor(t *testing.T) {
	t.Parallel()

	e := NewPlainEncryptor()
	if err := e.Setup("ignored"); err != nil {
		t.Fatalf("Setup() error = %v", err)
	}
	if !e.setupCalled {
		t.Error("Setup() not recorded")
	}

	var ct bytes.Buffer
	if err := e.Encrypt(bytes.NewReader([]byte("audio")), &ct); err != nil {
		t.Fatalf("Encrypt() error = %v", err)
	}
	if !bytes.HasPrefix(ct.Bytes(), plainHeader) {
		t.Errorf("ciphertext = %q, want header prefix", ct.Bytes())
	}

	dec, _ := e.Unlock("")
	var pt bytes.Buffer
	if err := dec.Decrypt(&ct, &pt); err != nil {
		t.Fatalf("Decrypt() error = %v", err)
	}
	if pt.String() != "audio" {
		t.Errorf("Decrypt() = %q, want %q", pt.String(), "audio")
	}

	if err := dec.Decrypt(bytes.NewReader([]byte("not-a-header-at-all")), &bytes.Buffer{}); err == nil {
		t.Error("Decrypt() of foreign data error = nil")
	}
}

func TestNewEncryptorFromConfig(t *testing.T) {
	t.Parallel()

	for _, typ := range []string{"", "age", "plain"} {
		if _, err := NewEncryptorFromConfig(config.EncryptionConfig{Type: typ}); err != nil {
			t.Errorf("NewEncryptorFromConfig(%q) error = %v", typ, err)
		}
	}
	if _, err := NewEncryptorFromConfig(config.EncryptionConfig{Type: "rot13"}); err == nil {
		t.Error("NewEncryptorFromConfig(rot13) error = nil")
	}
}

package testutil

import (
	"visitnotes/internal/encryption"
	"visitnotes/internal/visit"
)

// NewTestEncryptor creates an encryptor that only frames data.
func NewTestEncryptor() visit.Encryptor {
	return encryption.NewPlainEncryptor()
}

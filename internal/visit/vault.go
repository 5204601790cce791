package visit

import "io"

// AudioVault stores uploaded audio blobs. All operations stream through
// io.Reader/io.Writer.
type AudioVault interface {
	// Put stores the blob under key. size is the number of bytes that will
	// be read from r.
	Put(key string, r io.Reader, size int64) error

	// Get writes the blob stored under key to w.
	Get(key string, w io.Writer) error

	// Delete removes the blob. Deleting a missing key is not an error.
	Delete(key string) error

	// ValidateSetup verifies that the vault is accessible and properly configured.
	ValidateSetup() error
}

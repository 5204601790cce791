package testutil

import "strings"

// StubHasher "hashes" by prefixing. Fast and deterministic for tests.
type StubHasher struct{}

func (StubHasher) Hash(password string) (string, error) {
	return "hashed:" + password, nil
}

func (StubHasher) Verify(hash, password string) bool {
	return strings.TrimPrefix(hash, "hashed:") == password && strings.HasPrefix(hash, "hashed:")
}

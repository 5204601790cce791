package testutil

import (
	"testing"

	"visitnotes/internal/analysis"
	"visitnotes/internal/vault"
	"visitnotes/internal/visit"
)

// TestService bundles a Service with the fakes behind it.
type TestService struct {
	*visit.Service
	DB          visit.Database
	Vault       *vault.MemoryVault
	Transcriber *analysis.FakeTranscriber
	Summarizer  *analysis.FakeSummarizer
	Clock       *StubClock
}

// NewTestService creates a Service over an in-memory database and vault
// with fake AI providers.
func NewTestService(t *testing.T) *TestService {
	t.Helper()
	ts := &TestService{
		DB:          NewTestDatabase(t),
		Vault:       NewTestVault(),
		Transcriber: &analysis.FakeTranscriber{},
		Summarizer:  &analysis.FakeSummarizer{},
		Clock:       FixedClock(),
	}
	ts.Service = visit.NewService(ts.DB, ts.Vault, NewTestEncryptor(), ts.Transcriber, ts.Summarizer,
		StubHasher{}, visit.NewNopLogger(), ts.Clock, NewStubIDGenerator())
	return ts
}

package app

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"
)

const sessionFileName = "session"

// sessionFile stores the CLI's login token under the base directory.
type sessionFile struct {
	path string
}

func newSessionFile(baseDir string) *sessionFile {
	return &sessionFile{path: filepath.Join(baseDir, sessionFileName)}
}

// Read returns the saved token, or "" when not logged in.
func (s *sessionFile) Read() (string, error) {
	data, err := os.ReadFile(s.path)
	if errors.Is(err, os.ErrNotExist) {
		return "", nil
	}
	if err != nil {
		return "", fmt.Errorf("reading session: %w", err)
	}
	return strings.TrimSpace(string(data)), nil
}

func (s *sessionFile) Write(token string) error {
	if err := os.MkdirAll(filepath.Dir(s.path), 0700); err != nil {
		return fmt.Errorf("creating session directory: %w", err)
	}
	if err := os.WriteFile(s.path, []byte(token+"\n"), 0600); err != nil {
		return fmt.Errorf("writing session: %w", err)
	}
	return nil
}

func (s *sessionFile) Remove() error {
	if err := os.Remove(s.path); err != nil && !errors.Is(err, os.ErrNotExist) {
		return fmt.Errorf("removing session: %w", err)
	}
	return nil
}

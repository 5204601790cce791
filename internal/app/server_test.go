package app

import (
	"bytes"
	"context"
	"errors"
	"testing"
	"time"

	"visitnotes/internal/config"
	"visitnotes/internal/visit"
)

func testServerConfig(t *testing.T) *config.Config {
	t.Helper()
	cfg := config.NewConfig("server-1", t.TempDir())
	cfg.Database.Type = "memory"
	cfg.Vault.Type = "memory"
	cfg.Encryption.Type = "plain"
	cfg.Transcription.Type = "fake"
	cfg.Summarizer.Type = "fake"
	cfg.Server.Addr = "127.0.0.1:0"
	return cfg
}

func TestNewServerApp(t *testing.T) {
	t.Run("wires memory backends", func(t *testing.T) {
		a, err := NewServerApp(context.Background(), testServerConfig(t), "test", ServerOptions{WithProviders: true})
		if err != nil {
			t.Fatalf("NewServerApp() error = %v", err)
		}
		defer a.Close()

		_, err = a.ListAudio("nobody@example.com")
		if !errors.Is(err, visit.ErrNotFound) {
			t.Errorf("ListAudio() error = %v, want ErrNotFound", err)
		}
		var buf bytes.Buffer
		if err := a.ExportAudio("nobody@example.com", "x", "", &buf); !errors.Is(err, visit.ErrNotFound) {
			t.Errorf("ExportAudio() error = %v, want ErrNotFound", err)
		}
	})

	t.Run("missing age keys", func(t *testing.T) {
		cfg := testServerConfig(t)
		cfg.Encryption.Type = "age"
		if _, err := NewServerApp(context.Background(), cfg, "test", ServerOptions{}); err == nil {
			t.Error("NewServerApp() error = nil, want missing keys error")
		}
	})

	t.Run("unknown vault type", func(t *testing.T) {
		cfg := testServerConfig(t)
		cfg.Vault.Type = "tape"
		if _, err := NewServerApp(context.Background(), cfg, "test", ServerOptions{}); err == nil {
			t.Error("NewServerApp() error = nil, want error")
		}
	})
}

func TestServerApp_ServeStopsOnCancel(t *testing.T) {
	a, err := NewServerApp(context.Background(), testServerConfig(t), "serve", ServerOptions{WithProviders: true})
	if err != nil {
		t.Fatalf("NewServerApp() error = %v", err)
	}
	defer a.Close()

	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan error, 1)
	go func() { done <- a.Serve(ctx, "") }()

	time.Sleep(50 * time.Millisecond)
	cancel()

	select {
	case err := <-done:
		if err != nil {
			t.Errorf("Serve() error = %v", err)
		}
	case <-time.After(5 * time.Second):
		t.Fatal("Serve() did not return after cancel")
	}
}

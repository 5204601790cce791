package app

import (
	"context"
	"fmt"
	"io"
	"os"
	"time"

	"visitnotes/internal/analysis"
	"visitnotes/internal/auth"
	"visitnotes/internal/config"
	"visitnotes/internal/database"
	"visitnotes/internal/encryption"
	"visitnotes/internal/model"
	"visitnotes/internal/server"
	"visitnotes/internal/vault"
	"visitnotes/internal/visit"
)

// ServerApp owns the server-side dependencies: database, audio vault,
// encryptor and AI providers. It backs `visitnotes serve` and the audio
// administration commands. The caller must call Close when done.
type ServerApp struct {
	cfg       *config.Config
	run       *Run
	db        visit.Database
	vault     visit.AudioVault
	encryptor visit.Encryptor
	service   *visit.Service
	logger    *slogAdapter
	logFile   io.Closer
}

// ServerOptions selects what NewServerApp wires.
type ServerOptions struct {
	Verbose bool
	// WithProviders builds the transcriber and summarizer. Commands that
	// only read stored data leave it off so no API keys are needed.
	WithProviders bool
}

// NewServerApp creates a fully wired ServerApp from the given config.
// command identifies the CLI command being run.
func NewServerApp(ctx context.Context, cfg *config.Config, command string, opts ServerOptions) (*ServerApp, error) {
	run := NewRun(command, time.Now())
	logger, logFile, err := newLogger(LogOptions{Dir: cfg.LogDir, RunID: run.ID, Verbose: opts.Verbose, Stderr: os.Stderr})
	if err != nil {
		return nil, fmt.Errorf("creating logger: %w", err)
	}

	a := &ServerApp{cfg: cfg, run: run, logger: &slogAdapter{l: logger}, logFile: logFile}
	if err := a.wire(ctx, opts); err != nil {
		a.Close()
		return nil, err
	}
	a.logger.Debug("server app ready", "command", command)
	return a, nil
}

func (a *ServerApp) wire(ctx context.Context, opts ServerOptions) error {
	db, err := database.NewDatabaseFromConfig(a.cfg.Database)
	if err != nil {
		return fmt.Errorf("creating database: %w", err)
	}
	a.db = db
	if err := db.Migrate(); err != nil {
		return fmt.Errorf("migrating database: %w", err)
	}

	v, err := vault.NewVaultFromConfig(ctx, a.cfg.Vault)
	if err != nil {
		return fmt.Errorf("creating vault: %w", err)
	}
	if err := v.ValidateSetup(); err != nil {
		return fmt.Errorf("validating vault: %w", err)
	}
	a.vault = v

	enc, err := encryption.NewEncryptorFromConfig(a.cfg.Encryption)
	if err != nil {
		return fmt.Errorf("creating encryptor: %w", err)
	}
	if !enc.IsConfigured() {
		return fmt.Errorf("encryption keys not found: run `visitnotes config init` first")
	}
	a.encryptor = enc

	var transcriber visit.Transcriber
	var summarizer visit.Summarizer
	if opts.WithProviders {
		if transcriber, err = analysis.NewTranscriberFromConfig(a.cfg.Transcription); err != nil {
			return fmt.Errorf("creating transcriber: %w", err)
		}
		if summarizer, err = analysis.NewSummarizerFromConfig(a.cfg.Summarizer); err != nil {
			return fmt.Errorf("creating summarizer: %w", err)
		}
	}

	a.service = visit.NewService(db, v, enc, transcriber, summarizer,
		auth.NewBcryptHasher(0), a.logger, visit.RealClock{}, visit.UUIDGenerator{})
	if hours := a.cfg.Server.SessionTTLHours; hours > 0 {
		a.service.SetSessionTTL(time.Duration(hours) * time.Hour)
	}
	return nil
}

// Serve runs the HTTP API on addr until ctx is cancelled. An empty addr uses
// the configured one.
func (a *ServerApp) Serve(ctx context.Context, addr string) error {
	if addr == "" {
		addr = a.cfg.Server.Addr
	}
	srv := server.New(a.service, a.logger, server.Options{SecureCookies: a.cfg.Server.SecureCookies})
	return srv.ListenAndServe(ctx, addr)
}

// ListAudio returns the stored recordings of the user with the given email.
func (a *ServerApp) ListAudio(email string) ([]*model.AudioUpload, error) {
	user, err := a.service.FindUserByEmail(email)
	if err != nil {
		return nil, err
	}
	return a.service.ListAudio(user.ID)
}

// ExportAudio decrypts one stored recording into w. The passphrase unlocks
// the private key.
func (a *ServerApp) ExportAudio(email, uploadID, passphrase string, w io.Writer) error {
	user, err := a.service.FindUserByEmail(email)
	if err != nil {
		return err
	}
	dec, err := a.encryptor.Unlock(passphrase)
	if err != nil {
		return fmt.Errorf("unlocking private key: %w", err)
	}
	return a.service.ReadAudio(user.ID, uploadID, dec, w)
}

// Close closes the database and the log file.
func (a *ServerApp) Close() error {
	var firstErr error
	if a.db != nil {
		if err := a.db.Close(); err != nil {
			firstErr = fmt.Errorf("closing database: %w", err)
		}
	}
	if a.logger != nil {
		a.logger.Debug("run finished", "command", a.run.Command, "elapsed", a.run.Elapsed(time.Now()).String())
	}
	if a.logFile != nil {
		a.logFile.Close()
	}
	return firstErr
}

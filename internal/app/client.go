package app

import (
	"context"
	"fmt"
	"io"
	"mime"
	"os"
	"path/filepath"
	"strings"
	"sync"
	"time"

	"visitnotes/internal/config"
	"visitnotes/internal/kv"
	"visitnotes/internal/model"
	"visitnotes/internal/notesync"
	"visitnotes/internal/remote"
)

// ClientApp is the CLI side: it talks to the server over HTTP and keeps
// analyses in the on-device store through one sync engine per appointment.
// The caller must call Close when done.
type ClientApp struct {
	cfg     *config.Config
	run     *Run
	store   kv.Store
	remote  *remote.HTTPStore
	session *sessionFile
	logger  *slogAdapter
	logFile io.Closer

	mu      sync.Mutex
	engines map[string]*notesync.Engine
}

// ClientOptions controls client logging.
type ClientOptions struct {
	// Verbose mirrors log lines, including debug, to stderr.
	Verbose bool
}

// NewClientApp creates a fully wired ClientApp from the given config.
func NewClientApp(cfg *config.Config, command string, opts ClientOptions) (*ClientApp, error) {
	run := NewRun(command, time.Now())
	logOpts := LogOptions{Dir: cfg.LogDir, RunID: run.ID, Verbose: opts.Verbose}
	if opts.Verbose {
		logOpts.Stderr = os.Stderr
	}
	logger, logFile, err := newLogger(logOpts)
	if err != nil {
		return nil, fmt.Errorf("creating logger: %w", err)
	}

	store, err := kv.NewStoreFromConfig(cfg.Local)
	if err != nil {
		logFile.Close()
		return nil, fmt.Errorf("creating local store: %w", err)
	}

	session := newSessionFile(cfg.BaseDir)
	token, err := session.Read()
	if err != nil {
		store.Close()
		logFile.Close()
		return nil, err
	}

	timeout := time.Duration(cfg.Client.TimeoutSeconds) * time.Second
	return &ClientApp{
		cfg:     cfg,
		run:     run,
		store:   store,
		remote:  remote.NewHTTPStore(cfg.Client.ServerURL, token, timeout),
		session: session,
		logger:  &slogAdapter{l: logger},
		logFile: logFile,
		engines: make(map[string]*notesync.Engine),
	}, nil
}

// LoggedIn reports whether a session token is saved.
func (a *ClientApp) LoggedIn() bool {
	token, _ := a.session.Read()
	return token != ""
}

// Register creates an account on the server.
func (a *ClientApp) Register(ctx context.Context, email, password string) error {
	if err := a.remote.Register(ctx, email, password); err != nil {
		return fmt.Errorf("registering: %w", err)
	}
	a.logger.Info("registered", "email", email)
	return nil
}

// Login signs in and saves the session token for later commands.
func (a *ClientApp) Login(ctx context.Context, email, password string) error {
	token, err := a.remote.Login(ctx, email, password)
	if err != nil {
		return fmt.Errorf("logging in: %w", err)
	}
	if err := a.session.Write(token); err != nil {
		return err
	}
	a.logger.Info("logged in", "email", email)
	return nil
}

// Logout invalidates the session on the server and forgets it locally. The
// local token is removed even when the server cannot be reached.
func (a *ClientApp) Logout(ctx context.Context) error {
	if err := a.remote.Logout(ctx); err != nil {
		a.logger.Warn("server logout failed", "error", err)
	}
	return a.session.Remove()
}

// Me returns the signed-in user.
func (a *ClientApp) Me(ctx context.Context) (*model.User, error) {
	return a.remote.Me(ctx)
}

func (a *ClientApp) ListAppointments(ctx context.Context) ([]*model.Appointment, error) {
	return a.remote.ListAppointments(ctx)
}

func (a *ClientApp) CreateAppointment(ctx context.Context, req remote.AppointmentRequest) (*model.Appointment, error) {
	return a.remote.CreateAppointment(ctx, req)
}

// engine returns the sync engine of an appointment, creating it on first use.
func (a *ClientApp) engine(appointmentID string) *notesync.Engine {
	a.mu.Lock()
	defer a.mu.Unlock()
	e, ok := a.engines[appointmentID]
	if !ok {
		e = notesync.NewEngine(appointmentID, a.store, a.remote, a.logger, nil)
		a.engines[appointmentID] = e
	}
	return e
}

// RecordResult is the outcome of Record.
type RecordResult struct {
	Record model.AnalysisRecord
	Save   notesync.SaveResult
}

// Record sends the audio file at path to the server for analysis and saves
// the result as the appointment's next recording.
func (a *ClientApp) Record(ctx context.Context, appointmentID, path string) (*RecordResult, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("opening audio: %w", err)
	}
	defer f.Close()

	e := a.engine(appointmentID)
	// Load first so the next id accounts for recordings made elsewhere.
	e.Load(ctx)

	res, err := a.remote.ProcessAudio(ctx, appointmentID, filepath.Base(path), audioMimeType(path), f)
	if err != nil {
		return nil, fmt.Errorf("processing audio: %w", err)
	}

	rec := model.AnalysisRecord{
		ID:          e.NextID(),
		Timestamp:   res.ProcessedAt,
		Transcript:  res.Transcript,
		Summary:     res.Summary,
		KeyPoints:   res.KeyPoints,
		Questions:   res.Questions,
		ActionItems: res.ActionItems,
	}
	if rec.Timestamp.IsZero() {
		rec.Timestamp = time.Now().UTC()
	}
	saved := e.Save(ctx, rec)
	e.Wait()
	return &RecordResult{Record: rec, Save: saved}, nil
}

// ListAnalyses merges the server and local analyses of an appointment and
// waits for the follow-up sync to finish.
func (a *ClientApp) ListAnalyses(ctx context.Context, appointmentID string) []model.AnalysisRecord {
	e := a.engine(appointmentID)
	recs := e.Load(ctx)
	e.Wait()
	return recs
}

func (a *ClientApp) Status(ctx context.Context, appointmentID string) notesync.Status {
	return a.engine(appointmentID).Status(ctx)
}

// DeleteAnalysis removes one analysis. It reports whether the server
// confirmed; otherwise the delete is retried on a later load.
func (a *ClientApp) DeleteAnalysis(ctx context.Context, appointmentID string, id int) bool {
	return a.engine(appointmentID).Delete(ctx, id)
}

func (a *ClientApp) ClearAnalyses(ctx context.Context, appointmentID string) {
	a.engine(appointmentID).ClearAll(ctx)
}

// Close waits for background sync and closes the local store and log file.
func (a *ClientApp) Close() error {
	a.mu.Lock()
	engines := make([]*notesync.Engine, 0, len(a.engines))
	for _, e := range a.engines {
		engines = append(engines, e)
	}
	a.mu.Unlock()
	for _, e := range engines {
		e.Wait()
	}

	var firstErr error
	if err := a.store.Close(); err != nil {
		firstErr = fmt.Errorf("closing local store: %w", err)
	}
	a.logger.Debug("run finished", "command", a.run.Command, "elapsed", a.run.Elapsed(time.Now()).String())
	if a.logFile != nil {
		a.logFile.Close()
	}
	return firstErr
}

var audioTypes = map[string]string{
	".mp3":  "audio/mpeg",
	".mpga": "audio/mpeg",
	".mpeg": "audio/mpeg",
	".m4a":  "audio/mp4",
	".mp4":  "audio/mp4",
	".wav":  "audio/wav",
	".webm": "audio/webm",
	".ogg":  "audio/ogg",
	".flac": "audio/flac",
}

// audioMimeType guesses an audio media type from the file extension.
func audioMimeType(path string) string {
	ext := strings.ToLower(filepath.Ext(path))
	if t, ok := audioTypes[ext]; ok {
		return t
	}
	if t := mime.TypeByExtension(ext); t != "" {
		return t
	}
	return "application/octet-stream"
}

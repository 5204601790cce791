package visit

import (
	"fmt"
	"strings"
	"time"

	"visitnotes/internal/model"
)

// DefaultSessionTTL is how long a login token stays valid.
const DefaultSessionTTL = 7 * 24 * time.Hour

// Service is the server-side orchestration layer. Every operation on
// appointments, profiles and analyses is scoped to the authenticated user.
type Service struct {
	database    Database
	vault       AudioVault
	encryptor   Encryptor
	transcriber Transcriber
	summarizer  Summarizer
	hasher      PasswordHasher
	logger      Logger
	clock       Clock
	idgen       IDGenerator
	sessionTTL  time.Duration
}

// NewService creates a new Service with the provided dependencies.
func NewService(database Database, vault AudioVault, encryptor Encryptor, transcriber Transcriber, summarizer Summarizer, hasher PasswordHasher, logger Logger, clock Clock, idgen IDGenerator) *Service {
	return &Service{
		database:    database,
		vault:       vault,
		encryptor:   encryptor,
		transcriber: transcriber,
		summarizer:  summarizer,
		hasher:      hasher,
		logger:      logger,
		clock:       clock,
		idgen:       idgen,
		sessionTTL:  DefaultSessionTTL,
	}
}

// SetSessionTTL changes the lifetime of tokens issued by Login.
func (s *Service) SetSessionTTL(d time.Duration) {
	if d > 0 {
		s.sessionTTL = d
	}
}

func normalizeEmail(email string) string {
	return strings.ToLower(strings.TrimSpace(email))
}

// Register creates an account.
func (s *Service) Register(email, password string) (*model.User, error) {
	email = normalizeEmail(email)
	if email == "" || password == "" {
		return nil, fmt.Errorf("%w: email and password are required", ErrInvalidInput)
	}

	existing, err := s.database.FindUserByEmail(email)
	if err != nil {
		return nil, fmt.Errorf("checking for existing user: %w", err)
	}
	if existing != nil {
		return nil, fmt.Errorf("%w: user already exists", ErrAlreadyExists)
	}

	hash, err := s.hasher.Hash(password)
	if err != nil {
		return nil, fmt.Errorf("hashing password: %w", err)
	}

	user := &model.User{
		ID:           s.idgen.New(),
		Email:        email,
		PasswordHash: hash,
		CreatedAt:    s.clock.Now().UTC(),
	}
	if err := s.database.CreateUser(user); err != nil {
		return nil, fmt.Errorf("creating user: %w", err)
	}

	s.logger.Info("user registered", "user", user.ID)
	return user, nil
}

// Login verifies credentials and issues a session token.
func (s *Service) Login(email, password string) (*model.Session, error) {
	user, err := s.database.FindUserByEmail(normalizeEmail(email))
	if err != nil {
		return nil, fmt.Errorf("finding user: %w", err)
	}
	if user == nil || !s.hasher.Verify(user.PasswordHash, password) {
		return nil, ErrInvalidCredentials
	}

	now := s.clock.Now().UTC()
	session := &model.Session{
		Token:     s.idgen.New(),
		UserID:    user.ID,
		CreatedAt: now,
		ExpiresAt: now.Add(s.sessionTTL),
	}
	if err := s.database.CreateSession(session); err != nil {
		return nil, fmt.Errorf("creating session: %w", err)
	}

	s.logger.Info("user logged in", "user", user.ID)
	return session, nil
}

// Authenticate resolves a session token to its user. Expired sessions are
// removed.
func (s *Service) Authenticate(token string) (*model.User, error) {
	if token == "" {
		return nil, ErrUnauthorized
	}

	session, err := s.database.FindSession(token)
	if err != nil {
		return nil, fmt.Errorf("finding session: %w", err)
	}
	if session == nil {
		return nil, ErrUnauthorized
	}

	if !s.clock.Now().Before(session.ExpiresAt) {
		if err := s.database.DeleteSession(token); err != nil {
			s.logger.Warn("removing expired session failed", "error", err)
		}
		return nil, ErrUnauthorized
	}

	user, err := s.database.FindUserByID(session.UserID)
	if err != nil {
		return nil, fmt.Errorf("finding user: %w", err)
	}
	if user == nil {
		return nil, ErrUnauthorized
	}
	return user, nil
}

// FindUserByEmail looks up an account for administrative commands.
func (s *Service) FindUserByEmail(email string) (*model.User, error) {
	user, err := s.database.FindUserByEmail(normalizeEmail(email))
	if err != nil {
		return nil, fmt.Errorf("finding user: %w", err)
	}
	if user == nil {
		return nil, fmt.Errorf("%w: user %s", ErrNotFound, email)
	}
	return user, nil
}

// Logout invalidates a session token.
func (s *Service) Logout(token string) error {
	if err := s.database.DeleteSession(token); err != nil {
		return fmt.Errorf("deleting session: %w", err)
	}
	return nil
}

package database

import (
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/mattn/go-sqlite3"

	"visitnotes/internal/database/migrations"
	"visitnotes/internal/model"
	"visitnotes/internal/visit"
)

// SQLiteDatabase implements the visit.Database interface using SQLite.
type SQLiteDatabase struct {
	db   *sql.DB
	path string
}

// NewSQLiteDatabase creates a new SQLite database connection.
// path can be a file path or ":memory:" for in-memory database.
func NewSQLiteDatabase(path string) (*SQLiteDatabase, error) {
	db, err := OpenConnection(path)
	if err != nil {
		return nil, err
	}
	return &SQLiteDatabase{db: db, path: path}, nil
}

// NewSQLiteDatabaseFromDB wraps an existing database connection.
// The caller is responsible for ensuring the connection is properly configured.
func NewSQLiteDatabaseFromDB(db *sql.DB) *SQLiteDatabase {
	return &SQLiteDatabase{db: db}
}

// OpenConnection opens and configures a SQLite database connection with appropriate PRAGMAs.
// path can be a file path or ":memory:" for in-memory database.
func OpenConnection(path string) (*sql.DB, error) {
	db, err := sql.Open("sqlite3", path)
	if err != nil {
		return nil, fmt.Errorf("failed to open database: %w", err)
	}

	// One connection: ":memory:" databases are per connection, and SQLite
	// allows a single writer anyway.
	db.SetMaxOpenConns(1)

	// Enable foreign key constraints (SQLite default is OFF for backward compatibility)
	if _, err := db.Exec("PRAGMA foreign_keys = ON"); err != nil {
		db.Close()
		return nil, fmt.Errorf("failed to enable foreign keys: %w", err)
	}

	if _, err := db.Exec("PRAGMA busy_timeout = 5000"); err != nil {
		db.Close()
		return nil, fmt.Errorf("failed to set busy timeout: %w", err)
	}

	return db, nil
}

func isUniqueViolation(err error) bool {
	var sqliteErr sqlite3.Error
	if errors.As(err, &sqliteErr) {
		return sqliteErr.ExtendedCode == sqlite3.ErrConstraintUnique ||
			sqliteErr.ExtendedCode == sqlite3.ErrConstraintPrimaryKey
	}
	return false
}

// User operations

func (s *SQLiteDatabase) CreateUser(user *model.User) error {
	_, err := s.db.Exec(
		"INSERT INTO users (id, email, password_hash, created_at) VALUES (?, ?, ?, ?)",
		user.ID, user.Email, user.PasswordHash, user.CreatedAt.UTC(),
	)
	if err != nil {
		if isUniqueViolation(err) {
			return fmt.Errorf("creating user %s: %w", user.Email, visit.ErrAlreadyExists)
		}
		return fmt.Errorf("creating user: %w", err)
	}
	return nil
}

func (s *SQLiteDatabase) findUser(query string, arg any) (*model.User, error) {
	var u model.User
	err := s.db.QueryRow(query, arg).Scan(&u.ID, &u.Email, &u.PasswordHash, &u.CreatedAt)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, nil // Not found
		}
		return nil, err
	}
	return &u, nil
}

func (s *SQLiteDatabase) FindUserByEmail(email string) (*model.User, error) {
	u, err := s.findUser("SELECT id, email, password_hash, created_at FROM users WHERE email = ?", email)
	if err != nil {
		return nil, fmt.Errorf("finding user by email: %w", err)
	}
	return u, nil
}

func (s *SQLiteDatabase) FindUserByID(id string) (*model.User, error) {
	u, err := s.findUser("SELECT id, email, password_hash, created_at FROM users WHERE id = ?", id)
	if err != nil {
		return nil, fmt.Errorf("finding user by id: %w", err)
	}
	return u, nil
}

// Session operations

func (s *SQLiteDatabase) CreateSession(session *model.Session) error {
	_, err := s.db.Exec(
		"INSERT INTO sessions (token, user_id, created_at, expires_at) VALUES (?, ?, ?, ?)",
		session.Token, session.UserID, session.CreatedAt.UTC(), session.ExpiresAt.UTC(),
	)
	if err != nil {
		return fmt.Errorf("creating session: %w", err)
	}
	return nil
}

func (s *SQLiteDatabase) FindSession(token string) (*model.Session, error) {
	var sess model.Session
	err := s.db.QueryRow(
		"SELECT token, user_id, created_at, expires_at FROM sessions WHERE token = ?", token,
	).Scan(&sess.Token, &sess.UserID, &sess.CreatedAt, &sess.ExpiresAt)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, nil // Not found
		}
		return nil, fmt.Errorf("finding session: %w", err)
	}
	return &sess, nil
}

func (s *SQLiteDatabase) DeleteSession(token string) error {
	if _, err := s.db.Exec("DELETE FROM sessions WHERE token = ?", token); err != nil {
		return fmt.Errorf("deleting session: %w", err)
	}
	return nil
}

// Appointment operations

const appointmentColumns = "id, user_id, doctor, date, reason, goal, symptoms, created_at"

type rowScanner interface {
	Scan(dest ...any) error
}

func scanAppointment(row rowScanner) (*model.Appointment, error) {
	var a model.Appointment
	if err := row.Scan(&a.ID, &a.UserID, &a.Doctor, &a.Date, &a.Reason, &a.Goal, &a.Symptoms, &a.CreatedAt); err != nil {
		return nil, err
	}
	return &a, nil
}

func (s *SQLiteDatabase) CreateAppointment(appt *model.Appointment) error {
	_, err := s.db.Exec(
		"INSERT INTO appointments ("+appointmentColumns+") VALUES (?, ?, ?, ?, ?, ?, ?, ?)",
		appt.ID, appt.UserID, appt.Doctor, appt.Date.UTC(), appt.Reason, appt.Goal, appt.Symptoms, appt.CreatedAt.UTC(),
	)
	if err != nil {
		return fmt.Errorf("creating appointment: %w", err)
	}
	return nil
}

func (s *SQLiteDatabase) FindAppointment(userID, id string) (*model.Appointment, error) {
	row := s.db.QueryRow("SELECT "+appointmentColumns+" FROM appointments WHERE id = ? AND user_id = ?", id, userID)
	a, err := scanAppointment(row)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, nil // Not found
		}
		return nil, fmt.Errorf("finding appointment: %w", err)
	}
	return a, nil
}

func (s *SQLiteDatabase) ListAppointments(userID string) ([]*model.Appointment, error) {
	rows, err := s.db.Query("SELECT "+appointmentColumns+" FROM appointments WHERE user_id = ? ORDER BY date, created_at", userID)
	if err != nil {
		return nil, fmt.Errorf("listing appointments: %w", err)
	}
	defer rows.Close()

	appts := []*model.Appointment{}
	for rows.Next() {
		a, err := scanAppointment(rows)
		if err != nil {
			return nil, fmt.Errorf("scanning appointment: %w", err)
		}
		appts = append(appts, a)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterating appointments: %w", err)
	}
	return appts, nil
}

func (s *SQLiteDatabase) DeleteAppointment(userID, id string) (bool, error) {
	res, err := s.db.Exec("DELETE FROM appointments WHERE id = ? AND user_id = ?", id, userID)
	if err != nil {
		return false, fmt.Errorf("deleting appointment: %w", err)
	}
	n, err := res.RowsAffected()
	if err != nil {
		return false, fmt.Errorf("checking deleted appointment: %w", err)
	}
	return n > 0, nil
}

// Profile operations

func (s *SQLiteDatabase) FindProfile(userID string) (*model.Profile, error) {
	var data []byte
	err := s.db.QueryRow("SELECT data FROM medical_profiles WHERE user_id = ?", userID).Scan(&data)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, nil // Not found
		}
		return nil, fmt.Errorf("finding profile: %w", err)
	}

	var p model.Profile
	if err := json.Unmarshal(data, &p); err != nil {
		return nil, fmt.Errorf("decoding profile: %w", err)
	}
	p.UserID = userID
	return &p, nil
}

func (s *SQLiteDatabase) SaveProfile(profile *model.Profile) error {
	data, err := json.Marshal(profile)
	if err != nil {
		return fmt.Errorf("encoding profile: %w", err)
	}
	_, err = s.db.Exec(`
		INSERT INTO medical_profiles (user_id, data, updated_at) VALUES (?, ?, ?)
		ON CONFLICT(user_id) DO UPDATE SET data = excluded.data, updated_at = excluded.updated_at`,
		profile.UserID, data, profile.UpdatedAt.UTC(),
	)
	if err != nil {
		return fmt.Errorf("saving profile: %w", err)
	}
	return nil
}

// Analysis operations

func (s *SQLiteDatabase) UpsertAnalysis(userID, appointmentID string, rec model.AnalysisRecord, now time.Time) (bool, error) {
	data, err := json.Marshal(rec)
	if err != nil {
		return false, fmt.Errorf("encoding analysis: %w", err)
	}

	tx, err := s.db.Begin()
	if err != nil {
		return false, fmt.Errorf("starting transaction: %w", err)
	}
	defer tx.Rollback()

	res, err := tx.Exec(
		"UPDATE analyses SET data = ?, updated_at = ? WHERE appointment_id = ? AND analysis_id = ? AND user_id = ?",
		data, now.UTC(), appointmentID, rec.ID, userID,
	)
	if err != nil {
		return false, fmt.Errorf("updating analysis: %w", err)
	}
	n, err := res.RowsAffected()
	if err != nil {
		return false, fmt.Errorf("checking updated analysis: %w", err)
	}

	created := n == 0
	if created {
		_, err = tx.Exec(
			"INSERT INTO analyses (appointment_id, analysis_id, user_id, data, created_at, updated_at) VALUES (?, ?, ?, ?, ?, ?)",
			appointmentID, rec.ID, userID, data, now.UTC(), now.UTC(),
		)
		if err != nil {
			if isUniqueViolation(err) {
				return false, fmt.Errorf("inserting analysis %d: %w", rec.ID, visit.ErrAlreadyExists)
			}
			return false, fmt.Errorf("inserting analysis: %w", err)
		}
	}

	if err := tx.Commit(); err != nil {
		return false, fmt.Errorf("committing analysis: %w", err)
	}
	return created, nil
}

func (s *SQLiteDatabase) ListAnalyses(userID, appointmentID string) ([]model.AnalysisRecord, error) {
	rows, err := s.db.Query(
		"SELECT data FROM analyses WHERE appointment_id = ? AND user_id = ? ORDER BY analysis_id",
		appointmentID, userID,
	)
	if err != nil {
		return nil, fmt.Errorf("listing analyses: %w", err)
	}
	defer rows.Close()

	recs := []model.AnalysisRecord{}
	for rows.Next() {
		var data []byte
		if err := rows.Scan(&data); err != nil {
			return nil, fmt.Errorf("scanning analysis: %w", err)
		}
		var rec model.AnalysisRecord
		if err := json.Unmarshal(data, &rec); err != nil {
			return nil, fmt.Errorf("decoding analysis: %w", err)
		}
		recs = append(recs, rec.Normalized())
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterating analyses: %w", err)
	}
	return recs, nil
}

func (s *SQLiteDatabase) DeleteAnalysis(userID, appointmentID string, id int) (bool, error) {
	res, err := s.db.Exec(
		"DELETE FROM analyses WHERE appointment_id = ? AND analysis_id = ? AND user_id = ?",
		appointmentID, id, userID,
	)
	if err != nil {
		return false, fmt.Errorf("deleting analysis: %w", err)
	}
	n, err := res.RowsAffected()
	if err != nil {
		return false, fmt.Errorf("checking deleted analysis: %w", err)
	}
	return n > 0, nil
}

func (s *SQLiteDatabase) ListRecentAnalyses(userID string, limit int) ([]*model.RecentAnalysis, error) {
	rows, err := s.db.Query(`
		SELECT an.data, an.created_at, ap.id, ap.doctor, ap.date, ap.reason
		FROM analyses an
		JOIN appointments ap ON ap.id = an.appointment_id
		WHERE an.user_id = ?
		ORDER BY an.created_at DESC, an.analysis_id DESC
		LIMIT ?`, userID, limit)
	if err != nil {
		return nil, fmt.Errorf("listing recent analyses: %w", err)
	}
	defer rows.Close()

	recs := []*model.RecentAnalysis{}
	for rows.Next() {
		var data []byte
		var r model.RecentAnalysis
		if err := rows.Scan(&data, &r.CreatedAt, &r.Appointment.ID, &r.Appointment.Doctor, &r.Appointment.Date, &r.Appointment.Reason); err != nil {
			return nil, fmt.Errorf("scanning recent analysis: %w", err)
		}
		if err := json.Unmarshal(data, &r.AnalysisRecord); err != nil {
			return nil, fmt.Errorf("decoding recent analysis: %w", err)
		}
		r.AnalysisRecord = r.AnalysisRecord.Normalized()
		recs = append(recs, &r)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterating recent analyses: %w", err)
	}
	return recs, nil
}

// Audio operations

func (s *SQLiteDatabase) CreateAudioUpload(upload *model.AudioUpload) error {
	var appointmentID sql.NullString
	if upload.AppointmentID != "" {
		appointmentID = sql.NullString{String: upload.AppointmentID, Valid: true}
	}
	_, err := s.db.Exec(
		"INSERT INTO audio_uploads (id, user_id, appointment_id, vault_key, mime_type, size, created_at) VALUES (?, ?, ?, ?, ?, ?, ?)",
		upload.ID, upload.UserID, appointmentID, upload.VaultKey, upload.MimeType, upload.Size, upload.CreatedAt.UTC(),
	)
	if err != nil {
		return fmt.Errorf("creating audio upload: %w", err)
	}
	return nil
}

const audioColumns = "id, user_id, appointment_id, vault_key, mime_type, size, created_at"

func scanAudioUpload(row rowScanner) (*model.AudioUpload, error) {
	var u model.AudioUpload
	var appointmentID sql.NullString
	if err := row.Scan(&u.ID, &u.UserID, &appointmentID, &u.VaultKey, &u.MimeType, &u.Size, &u.CreatedAt); err != nil {
		return nil, err
	}
	u.AppointmentID = appointmentID.String
	return &u, nil
}

func (s *SQLiteDatabase) FindAudioUpload(userID, id string) (*model.AudioUpload, error) {
	row := s.db.QueryRow("SELECT "+audioColumns+" FROM audio_uploads WHERE id = ? AND user_id = ?", id, userID)
	u, err := scanAudioUpload(row)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, nil // Not found
		}
		return nil, fmt.Errorf("finding audio upload: %w", err)
	}
	return u, nil
}

func (s *SQLiteDatabase) ListAudioUploads(userID string) ([]*model.AudioUpload, error) {
	rows, err := s.db.Query("SELECT "+audioColumns+" FROM audio_uploads WHERE user_id = ? ORDER BY created_at DESC, id", userID)
	if err != nil {
		return nil, fmt.Errorf("listing audio uploads: %w", err)
	}
	defer rows.Close()

	uploads := []*model.AudioUpload{}
	for rows.Next() {
		u, err := scanAudioUpload(rows)
		if err != nil {
			return nil, fmt.Errorf("scanning audio upload: %w", err)
		}
		uploads = append(uploads, u)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterating audio uploads: %w", err)
	}
	return uploads, nil
}

// Path returns the database file path (or ":memory:" for in-memory databases).
func (s *SQLiteDatabase) Path() string {
	return s.path
}

// Migrate applies pending server migrations.
func (s *SQLiteDatabase) Migrate() error {
	return migrations.MigrateUp(s.db, migrations.Server)
}

// CheckMigrations verifies the database schema is up-to-date.
func (s *SQLiteDatabase) CheckMigrations() error {
	return migrations.CheckDBMigrationStatus(s.db, migrations.Server)
}

// Close closes the database connection.
func (s *SQLiteDatabase) Close() error {
	if s.db != nil {
		return s.db.Close()
	}
	return nil
}

// Compile-time check that SQLiteDatabase implements visit.Database interface
var _ visit.Database = (*SQLiteDatabase)(nil)

package visit

import (
	"time"

	"visitnotes/internal/model"
)

// Database provides persistence for the server domain.
// Find methods return nil, nil when the row does not exist. Methods scoped by
// userID never touch rows owned by another user.
type Database interface {
	// Users

	// CreateUser inserts a user. Returns an error wrapping ErrAlreadyExists
	// when the email is taken.
	CreateUser(user *model.User) error
	FindUserByEmail(email string) (*model.User, error)
	FindUserByID(id string) (*model.User, error)

	// Sessions

	CreateSession(session *model.Session) error
	FindSession(token string) (*model.Session, error)
	DeleteSession(token string) error

	// Appointments

	CreateAppointment(appt *model.Appointment) error
	FindAppointment(userID, id string) (*model.Appointment, error)
	// ListAppointments returns the user's appointments ordered by date.
	ListAppointments(userID string) ([]*model.Appointment, error)
	// DeleteAppointment removes the appointment and its analyses.
	// It reports whether a row was deleted.
	DeleteAppointment(userID, id string) (bool, error)

	// Profiles

	FindProfile(userID string) (*model.Profile, error)
	SaveProfile(profile *model.Profile) error

	// Analyses

	// UpsertAnalysis stores rec under (appointmentID, rec.ID), replacing any
	// existing payload. It reports whether a new row was created.
	UpsertAnalysis(userID, appointmentID string, rec model.AnalysisRecord, now time.Time) (bool, error)
	// ListAnalyses returns the appointment's analyses ordered by id.
	ListAnalyses(userID, appointmentID string) ([]model.AnalysisRecord, error)
	DeleteAnalysis(userID, appointmentID string, id int) (bool, error)
	// ListRecentAnalyses returns the user's newest analyses across all
	// appointments, at most limit of them.
	ListRecentAnalyses(userID string, limit int) ([]*model.RecentAnalysis, error)

	// Audio

	CreateAudioUpload(upload *model.AudioUpload) error
	FindAudioUpload(userID, id string) (*model.AudioUpload, error)
	// ListAudioUploads returns the user's uploads, newest first.
	ListAudioUploads(userID string) ([]*model.AudioUpload, error)

	// Migrate applies pending schema migrations.
	Migrate() error
	// CheckMigrations verifies the schema is at the latest version.
	CheckMigrations() error

	Close() error
}

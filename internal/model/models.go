package model

import "time"

// Source identifies which copy of an analysis record a merge selected.
// It is computed on read and never persisted.
type Source string

const (
	SourceServer     Source = "server"
	SourceLocal      Source = "local"
	SourceLocalNewer Source = "local-newer"
)

// AnalysisRecord is one AI transcription and summary result for a single
// recording within an appointment.
type AnalysisRecord struct {
	ID          int       `json:"id"`        // recording number, unique per appointment
	Timestamp   time.Time `json:"timestamp"` // creation time, never mutated
	Transcript  string    `json:"transcript"`
	Summary     string    `json:"summary"`
	KeyPoints   []string  `json:"keyPoints"`
	Questions   []string  `json:"questions"`
	ActionItems []string  `json:"actionItems"`

	Source Source `json:"-"`
}

// Normalized returns a copy with nil string lists replaced by empty ones and
// the source cleared, so the record encodes the same way everywhere.
func (r AnalysisRecord) Normalized() AnalysisRecord {
	r.KeyPoints = nonNil(r.KeyPoints)
	r.Questions = nonNil(r.Questions)
	r.ActionItems = nonNil(r.ActionItems)
	r.Source = ""
	return r
}

func nonNil(s []string) []string {
	if s == nil {
		return []string{}
	}
	return s
}

// User is a registered account.
type User struct {
	ID           string    `json:"id"`
	Email        string    `json:"email"`
	PasswordHash string    `json:"-"`
	CreatedAt    time.Time `json:"createdAt"`
}

// Session is an opaque bearer token issued at login.
type Session struct {
	Token     string    `json:"token"`
	UserID    string    `json:"userId"`
	CreatedAt time.Time `json:"createdAt"`
	ExpiresAt time.Time `json:"expiresAt"`
}

// Appointment is a scheduled doctor visit owned by a user.
type Appointment struct {
	ID        string    `json:"id"`
	UserID    string    `json:"userId"`
	Doctor    string    `json:"doctor"`
	Date      time.Time `json:"date"`
	Reason    string    `json:"reason"`
	Goal      string    `json:"goal"`
	Symptoms  string    `json:"symptoms"`
	CreatedAt time.Time `json:"createdAt"`
}

// Profile is a user's medical profile. HeightWeight and EmergencyContact are
// the legacy combined forms of the separate fields.
type Profile struct {
	UserID                string    `json:"userId"`
	Name                  string    `json:"name"`
	DOB                   string    `json:"dob"`
	BloodType             string    `json:"bloodType"`
	HeightWeight          string    `json:"heightWeight"`
	EmergencyContact      string    `json:"emergencyContact"`
	Height                string    `json:"height"`
	Weight                string    `json:"weight"`
	EmergencyContactName  string    `json:"emergencyContactName"`
	EmergencyContactPhone string    `json:"emergencyContactPhone"`
	Conditions            string    `json:"conditions"`
	Medications           string    `json:"medications"`
	Allergies             string    `json:"allergies"`
	Surgeries             string    `json:"surgeries"`
	Doctors               string    `json:"doctors"`
	Insurance             string    `json:"insurance"`
	Vaccines              string    `json:"vaccines"`
	UpdatedAt             time.Time `json:"updatedAt"`
}

// AppointmentSummary is the subset of an appointment shown next to an analysis
// in cross-appointment listings.
type AppointmentSummary struct {
	ID     string    `json:"id"`
	Doctor string    `json:"doctor"`
	Date   time.Time `json:"date"`
	Reason string    `json:"reason"`
}

// RecentAnalysis pairs a stored analysis with its appointment.
type RecentAnalysis struct {
	AnalysisRecord
	Appointment AppointmentSummary `json:"appointment"`
	CreatedAt   time.Time          `json:"createdAt"`
}

// AudioUpload records an encrypted audio blob kept in the audio vault.
type AudioUpload struct {
	ID            string
	UserID        string
	AppointmentID string
	VaultKey      string
	MimeType      string
	Size          int64 // plaintext size in bytes
	CreatedAt     time.Time
}

// AnalysisResult is the output of processing one recording.
type AnalysisResult struct {
	Transcript  string    `json:"transcript"`
	Summary     string    `json:"summary"`
	KeyPoints   []string  `json:"keyPoints"`
	Questions   []string  `json:"questions"`
	ActionItems []string  `json:"actionItems"`
	ProcessedAt time.Time `json:"processedAt"`
}

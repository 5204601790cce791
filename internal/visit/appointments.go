package visit

import (
	"fmt"
	"strings"
	"time"

	"visitnotes/internal/model"
)

// AppointmentInput carries the caller-supplied fields of a new appointment.
type AppointmentInput struct {
	Doctor   string
	Date     time.Time
	Reason   string
	Goal     string
	Symptoms string
}

var dateLayouts = []string{
	time.RFC3339Nano,
	"2006-01-02T15:04:05",
	"2006-01-02T15:04",
	"2006-01-02",
}

// ParseDate accepts RFC 3339 timestamps, datetime-local values and plain
// dates. Values without a zone are interpreted as UTC.
func ParseDate(s string) (time.Time, error) {
	s = strings.TrimSpace(s)
	for _, layout := range dateLayouts {
		if t, err := time.Parse(layout, s); err == nil {
			return t.UTC(), nil
		}
	}
	return time.Time{}, fmt.Errorf("%w: unrecognized date %q", ErrInvalidInput, s)
}

// CreateAppointment stores a new appointment for the user.
func (s *Service) CreateAppointment(userID string, in AppointmentInput) (*model.Appointment, error) {
	doctor := strings.TrimSpace(in.Doctor)
	if doctor == "" {
		return nil, fmt.Errorf("%w: doctor is required", ErrInvalidInput)
	}
	if in.Date.IsZero() {
		return nil, fmt.Errorf("%w: date is required", ErrInvalidInput)
	}

	appt := &model.Appointment{
		ID:        s.idgen.New(),
		UserID:    userID,
		Doctor:    doctor,
		Date:      in.Date.UTC(),
		Reason:    in.Reason,
		Goal:      in.Goal,
		Symptoms:  in.Symptoms,
		CreatedAt: s.clock.Now().UTC(),
	}
	if err := s.database.CreateAppointment(appt); err != nil {
		return nil, fmt.Errorf("creating appointment: %w", err)
	}

	s.logger.Info("appointment created", "user", userID, "appointment", appt.ID)
	return appt, nil
}

// ListAppointments returns the user's appointments in date order.
func (s *Service) ListAppointments(userID string) ([]*model.Appointment, error) {
	appts, err := s.database.ListAppointments(userID)
	if err != nil {
		return nil, fmt.Errorf("listing appointments: %w", err)
	}
	return appts, nil
}

// GetAppointment returns one of the user's appointments.
func (s *Service) GetAppointment(userID, id string) (*model.Appointment, error) {
	appt, err := s.database.FindAppointment(userID, id)
	if err != nil {
		return nil, fmt.Errorf("finding appointment: %w", err)
	}
	if appt == nil {
		return nil, fmt.Errorf("%w: appointment %s", ErrNotFound, id)
	}
	return appt, nil
}

// DeleteAppointment removes the appointment together with its analyses.
func (s *Service) DeleteAppointment(userID, id string) error {
	deleted, err := s.database.DeleteAppointment(userID, id)
	if err != nil {
		return fmt.Errorf("deleting appointment: %w", err)
	}
	if !deleted {
		return fmt.Errorf("%w: appointment %s", ErrNotFound, id)
	}
	s.logger.Info("appointment deleted", "user", userID, "appointment", id)
	return nil
}

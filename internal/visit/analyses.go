package visit

import (
	"fmt"

	"visitnotes/internal/model"
)

// DefaultRecentLimit bounds ListRecentAnalyses when no limit is given.
const DefaultRecentLimit = 50

// SaveAnalysis stores rec under the user's appointment, replacing any record
// with the same id. It reports whether the record was new.
func (s *Service) SaveAnalysis(userID, appointmentID string, rec model.AnalysisRecord) (bool, error) {
	if rec.ID < 1 {
		return false, fmt.Errorf("%w: analysis id must be positive", ErrInvalidInput)
	}
	if _, err := s.GetAppointment(userID, appointmentID); err != nil {
		return false, err
	}

	now := s.clock.Now().UTC()
	if rec.Timestamp.IsZero() {
		rec.Timestamp = now
	}

	created, err := s.database.UpsertAnalysis(userID, appointmentID, rec.Normalized(), now)
	if err != nil {
		return false, fmt.Errorf("saving analysis: %w", err)
	}

	if created {
		s.logger.Info("analysis saved", "user", userID, "appointment", appointmentID, "id", rec.ID)
	} else {
		s.logger.Info("analysis updated", "user", userID, "appointment", appointmentID, "id", rec.ID)
	}
	return created, nil
}

// ListAnalyses returns the appointment's analyses in id order.
func (s *Service) ListAnalyses(userID, appointmentID string) ([]model.AnalysisRecord, error) {
	if _, err := s.GetAppointment(userID, appointmentID); err != nil {
		return nil, err
	}
	recs, err := s.database.ListAnalyses(userID, appointmentID)
	if err != nil {
		return nil, fmt.Errorf("listing analyses: %w", err)
	}
	return recs, nil
}

// DeleteAnalysis removes one analysis of the user's appointment.
func (s *Service) DeleteAnalysis(userID, appointmentID string, id int) error {
	if _, err := s.GetAppointment(userID, appointmentID); err != nil {
		return err
	}
	deleted, err := s.database.DeleteAnalysis(userID, appointmentID, id)
	if err != nil {
		return fmt.Errorf("deleting analysis: %w", err)
	}
	if !deleted {
		return fmt.Errorf("%w: analysis %d", ErrNotFound, id)
	}
	s.logger.Info("analysis deleted", "user", userID, "appointment", appointmentID, "id", id)
	return nil
}

// ListRecentAnalyses returns the user's newest analyses across appointments.
func (s *Service) ListRecentAnalyses(userID string, limit int) ([]*model.RecentAnalysis, error) {
	if limit <= 0 {
		limit = DefaultRecentLimit
	}
	recs, err := s.database.ListRecentAnalyses(userID, limit)
	if err != nil {
		return nil, fmt.Errorf("listing recent analyses: %w", err)
	}
	return recs, nil
}

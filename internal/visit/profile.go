package visit

import (
	"fmt"
	"strings"

	"visitnotes/internal/model"
)

// GetProfile returns the user's medical profile, or an empty one if none has
// been saved. Separate height/weight and emergency contact fields are filled
// from the legacy combined fields when missing.
func (s *Service) GetProfile(userID string) (*model.Profile, error) {
	p, err := s.database.FindProfile(userID)
	if err != nil {
		return nil, fmt.Errorf("finding profile: %w", err)
	}
	if p == nil {
		return &model.Profile{UserID: userID}, nil
	}
	splitLegacyFields(p)
	return p, nil
}

// SaveProfile stores p as the user's profile, composing the legacy combined
// fields from the separate ones.
func (s *Service) SaveProfile(userID string, p model.Profile) (*model.Profile, error) {
	p.UserID = userID
	p.UpdatedAt = s.clock.Now().UTC()
	joinLegacyFields(&p)

	if err := s.database.SaveProfile(&p); err != nil {
		return nil, fmt.Errorf("saving profile: %w", err)
	}
	s.logger.Info("profile saved", "user", userID)
	return &p, nil
}

func joinLegacyFields(p *model.Profile) {
	if p.Height != "" || p.Weight != "" {
		p.HeightWeight = joinNonEmpty(", ", p.Height, p.Weight)
	}
	if p.EmergencyContactName != "" || p.EmergencyContactPhone != "" {
		p.EmergencyContact = joinNonEmpty(" - ", p.EmergencyContactName, p.EmergencyContactPhone)
	}
}

func splitLegacyFields(p *model.Profile) {
	if p.HeightWeight != "" && p.Height == "" && p.Weight == "" {
		parts := strings.SplitN(p.HeightWeight, ",", 2)
		p.Height = strings.TrimSpace(parts[0])
		if len(parts) == 2 {
			p.Weight = strings.TrimSpace(parts[1])
		}
	}
	if p.EmergencyContact != "" && p.EmergencyContactName == "" && p.EmergencyContactPhone == "" {
		parts := strings.SplitN(p.EmergencyContact, " - ", 2)
		p.EmergencyContactName = strings.TrimSpace(parts[0])
		if len(parts) == 2 {
			p.EmergencyContactPhone = strings.TrimSpace(parts[1])
		}
	}
}

func joinNonEmpty(sep string, parts ...string) string {
	kept := make([]string, 0, len(parts))
	for _, part := range parts {
		if part = strings.TrimSpace(part); part != "" {
			kept = append(kept, part)
		}
	}
	return strings.Join(kept, sep)
}

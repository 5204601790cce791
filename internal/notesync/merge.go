package notesync

import (
	"sort"
	"time"

	"visitnotes/internal/model"
)

// MergeKind classifies how one record id was resolved.
type MergeKind int

const (
	// ServerOnly: the id exists only on the server.
	ServerOnly MergeKind = iota
	// LocalOnly: the id exists only locally.
	LocalOnly
	// ServerWins: both sides have the id and the server copy is not older.
	ServerWins
	// LocalWins: both sides have the id and the local copy is strictly newer.
	LocalWins
	// Suppressed: the server copy was deleted on this device and must not
	// come back.
	Suppressed
)

func (k MergeKind) String() string {
	switch k {
	case ServerOnly:
		return "server-only"
	case LocalOnly:
		return "local-only"
	case ServerWins:
		return "server-wins"
	case LocalWins:
		return "local-wins"
	case Suppressed:
		return "suppressed"
	default:
		return "unknown"
	}
}

// MergeOutcome is the resolution of one record id. Record holds the chosen
// copy with Source set; it is the server copy for Suppressed outcomes.
type MergeOutcome struct {
	Kind   MergeKind
	ID     int
	Record model.AnalysisRecord
}

// Merge reconciles the server and local record sets of one appointment.
//
// tombstones maps deleted ids to their deletion time. A server copy whose
// timestamp is not after the deletion time is suppressed; a later one was
// created afresh elsewhere and is kept. clearedAt, when set, suppresses server
// copies created no later than it that have no local counterpart.
//
// Outcomes are returned in ascending id order.
func Merge(remote, local []model.AnalysisRecord, tombstones map[int]time.Time, clearedAt *time.Time) []MergeOutcome {
	byID := make(map[int]MergeOutcome, len(remote)+len(local))

	for _, rec := range local {
		rec.Source = model.SourceLocal
		byID[rec.ID] = MergeOutcome{Kind: LocalOnly, ID: rec.ID, Record: rec}
	}

	for _, rec := range remote {
		rec.Source = model.SourceServer
		existing, inLocal := byID[rec.ID]

		if !inLocal {
			if deletedAt, ok := tombstones[rec.ID]; ok && !rec.Timestamp.After(deletedAt) {
				byID[rec.ID] = MergeOutcome{Kind: Suppressed, ID: rec.ID, Record: rec}
				continue
			}
			if clearedAt != nil && !rec.Timestamp.After(*clearedAt) {
				byID[rec.ID] = MergeOutcome{Kind: Suppressed, ID: rec.ID, Record: rec}
				continue
			}
			byID[rec.ID] = MergeOutcome{Kind: ServerOnly, ID: rec.ID, Record: rec}
			continue
		}

		if existing.Record.Timestamp.After(rec.Timestamp) {
			existing.Kind = LocalWins
			existing.Record.Source = model.SourceLocalNewer
			byID[rec.ID] = existing
			continue
		}
		byID[rec.ID] = MergeOutcome{Kind: ServerWins, ID: rec.ID, Record: rec}
	}

	outcomes := make([]MergeOutcome, 0, len(byID))
	for _, o := range byID {
		outcomes = append(outcomes, o)
	}
	sort.Slice(outcomes, func(i, j int) bool { return outcomes[i].ID < outcomes[j].ID })
	return outcomes
}

package report

import (
	"sort"
	"time"

	"github.com/google/uuid"

	"github.com/dermtriage/dermtriage/internal/domain/identity"
)

// PatientGroup is the doctor-console view of one patient: the profile, every
// report of theirs visible to the doctor in most-recent-first order, and two
// derived summaries. Groups are recomputed from scratch on every snapshot
// and are never persisted.
type PatientGroup struct {
	Patient     *identity.PatientProfile `json:"patient"`
	Reports     []*Report                `json:"reports"`
	LastUpdate  time.Time                `json:"last_update"`
	UnreadCount int                      `json:"unread_count"`
}

// ProfileLookup resolves a patient id to a profile. A false return drops the
// patient's reports from the result.
type ProfileLookup func(patientID uuid.UUID) (*identity.PatientProfile, bool)

// BuildPatientGroups partitions reports by patient and produces the sorted
// console view. It is pure: no I/O, deterministic output for a given input.
//
// Within a group, reports sort by CreatedAt descending with ID as the
// tie-break, so repeated runs over the same snapshot never reorder equal
// timestamps. Groups themselves sort by the newest report's CreatedAt
// descending, newest activity first.
//
// Reports whose patient id does not resolve are silently filtered. That is a
// policy against dangling references, not an error.
func BuildPatientGroups(reports []*Report, lookup ProfileLookup) []*PatientGroup {
	byPatient := make(map[uuid.UUID][]*Report)
	for _, r := range reports {
		byPatient[r.PatientID] = append(byPatient[r.PatientID], r)
	}

	groups := make([]*PatientGroup, 0, len(byPatient))
	for patientID, rs := range byPatient {
		profile, ok := lookup(patientID)
		if !ok || profile == nil {
			continue
		}

		sorted := make([]*Report, len(rs))
		copy(sorted, rs)
		sort.SliceStable(sorted, func(i, j int) bool {
			if !sorted[i].CreatedAt.Equal(sorted[j].CreatedAt) {
				return sorted[i].CreatedAt.After(sorted[j].CreatedAt)
			}
			return sorted[i].ID.String() < sorted[j].ID.String()
		})

		unread := 0
		for _, r := range sorted {
			if r.Status == StatusPendingDoctorReview {
				unread++
			}
		}

		groups = append(groups, &PatientGroup{
			Patient:     profile,
			Reports:     sorted,
			LastUpdate:  sorted[0].CreatedAt,
			UnreadCount: unread,
		})
	}

	sort.SliceStable(groups, func(i, j int) bool {
		if !groups[i].LastUpdate.Equal(groups[j].LastUpdate) {
			return groups[i].LastUpdate.After(groups[j].LastUpdate)
		}
		return groups[i].Patient.ID.String() < groups[j].Patient.ID.String()
	})
	return groups
}

package report

import (
	"time"

	"github.com/google/uuid"

	"github.com/dermtriage/dermtriage/internal/platform/ai"
)

// Report statuses. The lifecycle is linear: a report is created awaiting the
// patient's routing action, moves into a doctor's review queue exactly once,
// and ends in one of three decision states. Decision states are terminal;
// there is no reopen transition.
const (
	StatusPendingPatientInput = "pending-patient-input"
	StatusPendingDoctorReview = "pending-doctor-review"
	StatusDoctorApproved      = "doctor-approved"
	StatusDoctorModified      = "doctor-modified"
	StatusRejected            = "rejected"
)

var validStatuses = map[string]bool{
	StatusPendingPatientInput: true,
	StatusPendingDoctorReview: true,
	StatusDoctorApproved:      true,
	StatusDoctorModified:      true,
	StatusRejected:            true,
}

var validDecisions = map[string]bool{
	StatusDoctorApproved: true,
	StatusDoctorModified: true,
	StatusRejected:       true,
}

// IsValidStatus reports whether s names a lifecycle state.
func IsValidStatus(s string) bool { return validStatuses[s] }

// IsDecision reports whether s is a terminal doctor decision.
func IsDecision(s string) bool { return validDecisions[s] }

// Report is one AI triage analysis owned by a patient and, once routed,
// assigned to a single doctor.
type Report struct {
	ID          uuid.UUID           `db:"id" json:"id"`
	PatientID   uuid.UUID           `db:"patient_id" json:"patient_id"`
	DoctorID    *uuid.UUID          `db:"doctor_id" json:"doctor_id,omitempty"`
	Status      string              `db:"status" json:"status"`
	Symptoms    string              `db:"symptoms" json:"symptoms"`
	PhotoID     *string             `db:"photo_id" json:"photo_id,omitempty"`
	AIReport    ai.StructuredReport `db:"ai_report" json:"ai_report"`
	DoctorNotes *string             `db:"doctor_notes" json:"doctor_notes,omitempty"`
	CreatedAt   time.Time           `db:"created_at" json:"created_at"`
	UpdatedAt   time.Time           `db:"updated_at" json:"updated_at"`
}

// Decided reports whether the report has reached a terminal decision state.
func (r *Report) Decided() bool { return validDecisions[r.Status] }

// AssignedTo reports whether the given doctor is the report's assigned
// reviewer.
func (r *Report) AssignedTo(doctorID uuid.UUID) bool {
	return r.DoctorID != nil && *r.DoctorID == doctorID
}

package report

import (
	"context"

	"github.com/google/uuid"
)

// Repository persists reports. Route and Decide are conditional writes: the
// status precondition is part of the UPDATE itself so concurrent transition
// attempts cannot both succeed. They return false, without error, when the
// precondition did not hold at write time.
type Repository interface {
	Create(ctx context.Context, r *Report) error
	GetByID(ctx context.Context, id uuid.UUID) (*Report, error)
	ListByPatient(ctx context.Context, patientID uuid.UUID) ([]*Report, error)
	ListByDoctor(ctx context.Context, doctorID uuid.UUID) ([]*Report, error)
	Route(ctx context.Context, id, doctorID uuid.UUID) (bool, error)
	Decide(ctx context.Context, id, doctorID uuid.UUID, decision, notes string) (bool, error)
	UpdateNotes(ctx context.Context, id uuid.UUID, notes string) error
}

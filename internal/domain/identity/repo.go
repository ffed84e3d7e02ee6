package identity

import (
	"context"

	"github.com/google/uuid"
)

// PatientRepository persists patient profiles.
type PatientRepository interface {
	Create(ctx context.Context, p *PatientProfile) error
	GetByID(ctx context.Context, id uuid.UUID) (*PatientProfile, error)
	GetByIDs(ctx context.Context, ids []uuid.UUID) ([]*PatientProfile, error)
	Update(ctx context.Context, p *PatientProfile) error
	List(ctx context.Context, limit, offset int) ([]*PatientProfile, int, error)
	Delete(ctx context.Context, id uuid.UUID) error
}

// DoctorRepository persists doctor profiles.
type DoctorRepository interface {
	Create(ctx context.Context, d *DoctorProfile) error
	GetByID(ctx context.Context, id uuid.UUID) (*DoctorProfile, error)
	Update(ctx context.Context, d *DoctorProfile) error
	List(ctx context.Context, verifiedOnly bool, limit, offset int) ([]*DoctorProfile, int, error)
	Delete(ctx context.Context, id uuid.UUID) error
}

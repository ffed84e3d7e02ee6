package identity

import (
	"context"
	"fmt"

	"github.com/google/uuid"
)

type Service struct {
	patients PatientRepository
	doctors  DoctorRepository
}

func NewService(patients PatientRepository, doctors DoctorRepository) *Service {
	return &Service{patients: patients, doctors: doctors}
}

var validGenders = map[string]bool{
	"male":   true,
	"female": true,
	"other":  true,
}

// -- Patient --

func (s *Service) CreatePatient(ctx context.Context, p *PatientProfile) error {
	if p.FullName == "" {
		return fmt.Errorf("full_name is required")
	}
	if p.Gender != nil && !validGenders[*p.Gender] {
		return fmt.Errorf("invalid gender: %s", *p.Gender)
	}
	return s.patients.Create(ctx, p)
}

func (s *Service) GetPatient(ctx context.Context, id uuid.UUID) (*PatientProfile, error) {
	return s.patients.GetByID(ctx, id)
}

func (s *Service) GetPatients(ctx context.Context, ids []uuid.UUID) ([]*PatientProfile, error) {
	return s.patients.GetByIDs(ctx, ids)
}

func (s *Service) UpdatePatient(ctx context.Context, p *PatientProfile) error {
	if p.FullName == "" {
		return fmt.Errorf("full_name is required")
	}
	if p.Gender != nil && !validGenders[*p.Gender] {
		return fmt.Errorf("invalid gender: %s", *p.Gender)
	}
	return s.patients.Update(ctx, p)
}

func (s *Service) ListPatients(ctx context.Context, limit, offset int) ([]*PatientProfile, int, error) {
	return s.patients.List(ctx, limit, offset)
}

func (s *Service) DeletePatient(ctx context.Context, id uuid.UUID) error {
	return s.patients.Delete(ctx, id)
}

// -- Doctor --

func (s *Service) CreateDoctor(ctx context.Context, d *DoctorProfile) error {
	if d.FullName == "" {
		return fmt.Errorf("full_name is required")
	}
	if d.LicenseNumber == "" {
		return fmt.Errorf("license_number is required")
	}
	// New doctors always start unverified. Verification is an explicit admin step.
	d.Verified = false
	return s.doctors.Create(ctx, d)
}

func (s *Service) GetDoctor(ctx context.Context, id uuid.UUID) (*DoctorProfile, error) {
	return s.doctors.GetByID(ctx, id)
}

func (s *Service) UpdateDoctor(ctx context.Context, d *DoctorProfile) error {
	if d.FullName == "" {
		return fmt.Errorf("full_name is required")
	}
	if d.LicenseNumber == "" {
		return fmt.Errorf("license_number is required")
	}
	current, err := s.doctors.GetByID(ctx, d.ID)
	if err != nil {
		return err
	}
	// Profile updates cannot flip the verified flag.
	d.Verified = current.Verified
	return s.doctors.Update(ctx, d)
}

// SetDoctorVerified flips the verification flag. Admin only, enforced at the handler.
func (s *Service) SetDoctorVerified(ctx context.Context, id uuid.UUID, verified bool) (*DoctorProfile, error) {
	d, err := s.doctors.GetByID(ctx, id)
	if err != nil {
		return nil, err
	}
	d.Verified = verified
	if err := s.doctors.Update(ctx, d); err != nil {
		return nil, err
	}
	return d, nil
}

func (s *Service) ListDoctors(ctx context.Context, verifiedOnly bool, limit, offset int) ([]*DoctorProfile, int, error) {
	return s.doctors.List(ctx, verifiedOnly, limit, offset)
}

func (s *Service) DeleteDoctor(ctx context.Context, id uuid.UUID) error {
	return s.doctors.Delete(ctx, id)
}

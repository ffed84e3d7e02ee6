package identity

import (
	"time"

	"github.com/google/uuid"
)

// PatientProfile maps to the patient_profile table. The row id doubles as the
// identity provider subject for the patient's account.
type PatientProfile struct {
	ID                uuid.UUID  `db:"id" json:"id"`
	FullName          string     `db:"full_name" json:"full_name"`
	Email             *string    `db:"email" json:"email,omitempty"`
	Phone             *string    `db:"phone" json:"phone,omitempty"`
	BirthDate         *time.Time `db:"birth_date" json:"birth_date,omitempty"`
	Gender            *string    `db:"gender" json:"gender,omitempty"`
	Region            *string    `db:"region" json:"region,omitempty"`
	SkinTone          *string    `db:"skin_tone" json:"skin_tone,omitempty"`
	PreferredLanguage *string    `db:"preferred_language" json:"preferred_language,omitempty"`
	CreatedAt         time.Time  `db:"created_at" json:"created_at"`
	UpdatedAt         time.Time  `db:"updated_at" json:"updated_at"`
}

// Age returns the patient's age in whole years at the given time, or 0 when
// no birth date is on file.
func (p *PatientProfile) Age(now time.Time) int {
	if p.BirthDate == nil {
		return 0
	}
	years := now.Year() - p.BirthDate.Year()
	anniversary := p.BirthDate.AddDate(years, 0, 0)
	if anniversary.After(now) {
		years--
	}
	if years < 0 {
		return 0
	}
	return years
}

// DoctorProfile maps to the doctor_profile table. Only verified doctors may
// receive routed reports.
type DoctorProfile struct {
	ID            uuid.UUID `db:"id" json:"id"`
	FullName      string    `db:"full_name" json:"full_name"`
	Email         *string   `db:"email" json:"email,omitempty"`
	Phone         *string   `db:"phone" json:"phone,omitempty"`
	Specialty     *string   `db:"specialty" json:"specialty,omitempty"`
	LicenseNumber string    `db:"license_number" json:"license_number"`
	Verified      bool      `db:"verified" json:"verified"`
	CreatedAt     time.Time `db:"created_at" json:"created_at"`
	UpdatedAt     time.Time `db:"updated_at" json:"updated_at"`
}

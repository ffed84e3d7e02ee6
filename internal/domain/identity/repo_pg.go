package identity

import (
	"context"
	"fmt"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
)

// -- Patient Repository --

type patientRepoPG struct {
	pool *pgxpool.Pool
}

func NewPatientRepo(pool *pgxpool.Pool) PatientRepository {
	return &patientRepoPG{pool: pool}
}

const patientCols = `id, full_name, email, phone, birth_date, gender, region, skin_tone,
	preferred_language, created_at, updated_at`

func (r *patientRepoPG) Create(ctx context.Context, p *PatientProfile) error {
	if p.ID == uuid.Nil {
		p.ID = uuid.New()
	}
	return r.pool.QueryRow(ctx, `
		INSERT INTO patient_profile (
			id, full_name, email, phone, birth_date, gender, region, skin_tone, preferred_language
		) VALUES ($1,$2,$3,$4,$5,$6,$7,$8,$9)
		RETURNING created_at, updated_at`,
		p.ID, p.FullName, p.Email, p.Phone, p.BirthDate, p.Gender, p.Region, p.SkinTone, p.PreferredLanguage,
	).Scan(&p.CreatedAt, &p.UpdatedAt)
}

func (r *patientRepoPG) GetByID(ctx context.Context, id uuid.UUID) (*PatientProfile, error) {
	return scanPatient(r.pool.QueryRow(ctx, `SELECT `+patientCols+` FROM patient_profile WHERE id = $1`, id))
}

func (r *patientRepoPG) GetByIDs(ctx context.Context, ids []uuid.UUID) ([]*PatientProfile, error) {
	if len(ids) == 0 {
		return nil, nil
	}
	rows, err := r.pool.Query(ctx, `SELECT `+patientCols+` FROM patient_profile WHERE id = ANY($1)`, ids)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var patients []*PatientProfile
	for rows.Next() {
		p, err := scanPatientRows(rows)
		if err != nil {
			return nil, err
		}
		patients = append(patients, p)
	}
	return patients, rows.Err()
}

func (r *patientRepoPG) Update(ctx context.Context, p *PatientProfile) error {
	_, err := r.pool.Exec(ctx, `
		UPDATE patient_profile SET
			full_name=$2, email=$3, phone=$4, birth_date=$5, gender=$6, region=$7,
			skin_tone=$8, preferred_language=$9, updated_at=NOW()
		WHERE id = $1`,
		p.ID, p.FullName, p.Email, p.Phone, p.BirthDate, p.Gender, p.Region, p.SkinTone, p.PreferredLanguage,
	)
	return err
}

func (r *patientRepoPG) List(ctx context.Context, limit, offset int) ([]*PatientProfile, int, error) {
	var total int
	if err := r.pool.QueryRow(ctx, `SELECT COUNT(*) FROM patient_profile`).Scan(&total); err != nil {
		return nil, 0, err
	}
	rows, err := r.pool.Query(ctx, `SELECT `+patientCols+` FROM patient_profile ORDER BY full_name LIMIT $1 OFFSET $2`, limit, offset)
	if err != nil {
		return nil, 0, err
	}
	defer rows.Close()

	var patients []*PatientProfile
	for rows.Next() {
		p, err := scanPatientRows(rows)
		if err != nil {
			return nil, 0, err
		}
		patients = append(patients, p)
	}
	return patients, total, rows.Err()
}

func (r *patientRepoPG) Delete(ctx context.Context, id uuid.UUID) error {
	_, err := r.pool.Exec(ctx, `DELETE FROM patient_profile WHERE id = $1`, id)
	return err
}

func scanPatient(row pgx.Row) (*PatientProfile, error) {
	var p PatientProfile
	err := row.Scan(
		&p.ID, &p.FullName, &p.Email, &p.Phone, &p.BirthDate, &p.Gender, &p.Region, &p.SkinTone,
		&p.PreferredLanguage, &p.CreatedAt, &p.UpdatedAt,
	)
	if err != nil {
		return nil, err
	}
	return &p, nil
}

func scanPatientRows(rows pgx.Rows) (*PatientProfile, error) {
	var p PatientProfile
	err := rows.Scan(
		&p.ID, &p.FullName, &p.Email, &p.Phone, &p.BirthDate, &p.Gender, &p.Region, &p.SkinTone,
		&p.PreferredLanguage, &p.CreatedAt, &p.UpdatedAt,
	)
	if err != nil {
		return nil, err
	}
	return &p, nil
}

// -- Doctor Repository --

type doctorRepoPG struct {
	pool *pgxpool.Pool
}

func NewDoctorRepo(pool *pgxpool.Pool) DoctorRepository {
	return &doctorRepoPG{pool: pool}
}

const doctorCols = `id, full_name, email, phone, specialty, license_number, verified, created_at, updated_at`

func (r *doctorRepoPG) Create(ctx context.Context, d *DoctorProfile) error {
	if d.ID == uuid.Nil {
		d.ID = uuid.New()
	}
	return r.pool.QueryRow(ctx, `
		INSERT INTO doctor_profile (id, full_name, email, phone, specialty, license_number, verified)
		VALUES ($1,$2,$3,$4,$5,$6,$7)
		RETURNING created_at, updated_at`,
		d.ID, d.FullName, d.Email, d.Phone, d.Specialty, d.LicenseNumber, d.Verified,
	).Scan(&d.CreatedAt, &d.UpdatedAt)
}

func (r *doctorRepoPG) GetByID(ctx context.Context, id uuid.UUID) (*DoctorProfile, error) {
	return scanDoctor(r.pool.QueryRow(ctx, `SELECT `+doctorCols+` FROM doctor_profile WHERE id = $1`, id))
}

func (r *doctorRepoPG) Update(ctx context.Context, d *DoctorProfile) error {
	_, err := r.pool.Exec(ctx, `
		UPDATE doctor_profile SET
			full_name=$2, email=$3, phone=$4, specialty=$5, license_number=$6, verified=$7, updated_at=NOW()
		WHERE id = $1`,
		d.ID, d.FullName, d.Email, d.Phone, d.Specialty, d.LicenseNumber, d.Verified,
	)
	return err
}

func (r *doctorRepoPG) List(ctx context.Context, verifiedOnly bool, limit, offset int) ([]*DoctorProfile, int, error) {
	where := ""
	if verifiedOnly {
		where = ` WHERE verified`
	}

	var total int
	if err := r.pool.QueryRow(ctx, `SELECT COUNT(*) FROM doctor_profile`+where).Scan(&total); err != nil {
		return nil, 0, err
	}
	rows, err := r.pool.Query(ctx,
		fmt.Sprintf(`SELECT %s FROM doctor_profile%s ORDER BY full_name LIMIT $1 OFFSET $2`, doctorCols, where),
		limit, offset)
	if err != nil {
		return nil, 0, err
	}
	defer rows.Close()

	var doctors []*DoctorProfile
	for rows.Next() {
		d, err := scanDoctorRows(rows)
		if err != nil {
			return nil, 0, err
		}
		doctors = append(doctors, d)
	}
	return doctors, total, rows.Err()
}

func (r *doctorRepoPG) Delete(ctx context.Context, id uuid.UUID) error {
	_, err := r.pool.Exec(ctx, `DELETE FROM doctor_profile WHERE id = $1`, id)
	return err
}

func scanDoctor(row pgx.Row) (*DoctorProfile, error) {
	var d DoctorProfile
	err := row.Scan(
		&d.ID, &d.FullName, &d.Email, &d.Phone, &d.Specialty, &d.LicenseNumber, &d.Verified,
		&d.CreatedAt, &d.UpdatedAt,
	)
	if err != nil {
		return nil, err
	}
	return &d, nil
}

func scanDoctorRows(rows pgx.Rows) (*DoctorProfile, error) {
	var d DoctorProfile
	err := rows.Scan(
		&d.ID, &d.FullName, &d.Email, &d.Phone, &d.Specialty, &d.LicenseNumber, &d.Verified,
		&d.CreatedAt, &d.UpdatedAt,
	)
	if err != nil {
		return nil, err
	}
	return &d, nil
}

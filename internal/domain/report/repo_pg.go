package report

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/dermtriage/dermtriage/internal/platform/ai"
)

type repoPG struct {
	pool *pgxpool.Pool
}

func NewRepo(pool *pgxpool.Pool) Repository {
	return &repoPG{pool: pool}
}

const reportCols = `id, patient_id, doctor_id, status, symptoms, photo_id, ai_report, doctor_notes, created_at, updated_at`

func (r *repoPG) Create(ctx context.Context, rep *Report) error {
	if rep.ID == uuid.Nil {
		rep.ID = uuid.New()
	}
	payload, err := json.Marshal(rep.AIReport)
	if err != nil {
		return fmt.Errorf("report create: marshal ai_report: %w", err)
	}
	return r.pool.QueryRow(ctx, `
		INSERT INTO report (id, patient_id, doctor_id, status, symptoms, photo_id, ai_report, doctor_notes)
		VALUES ($1,$2,$3,$4,$5,$6,$7,$8)
		RETURNING created_at, updated_at`,
		rep.ID, rep.PatientID, rep.DoctorID, rep.Status, rep.Symptoms, rep.PhotoID, payload, rep.DoctorNotes,
	).Scan(&rep.CreatedAt, &rep.UpdatedAt)
}

func (r *repoPG) GetByID(ctx context.Context, id uuid.UUID) (*Report, error) {
	rep, err := scanReport(r.pool.QueryRow(ctx, `SELECT `+reportCols+` FROM report WHERE id = $1`, id))
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, ErrNotFound
	}
	return rep, err
}

func (r *repoPG) ListByPatient(ctx context.Context, patientID uuid.UUID) ([]*Report, error) {
	return r.list(ctx, `SELECT `+reportCols+` FROM report WHERE patient_id = $1 ORDER BY created_at DESC, id`, patientID)
}

func (r *repoPG) ListByDoctor(ctx context.Context, doctorID uuid.UUID) ([]*Report, error) {
	return r.list(ctx, `SELECT `+reportCols+` FROM report WHERE doctor_id = $1 ORDER BY created_at DESC, id`, doctorID)
}

func (r *repoPG) list(ctx context.Context, sql string, arg any) ([]*Report, error) {
	rows, err := r.pool.Query(ctx, sql, arg)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var reports []*Report
	for rows.Next() {
		rep, err := scanReportRows(rows)
		if err != nil {
			return nil, err
		}
		reports = append(reports, rep)
	}
	return reports, rows.Err()
}

// Route assigns the doctor and advances the status in one conditional write.
// The WHERE clause carries the state precondition, so when two routing
// attempts race only one row update succeeds.
func (r *repoPG) Route(ctx context.Context, id, doctorID uuid.UUID) (bool, error) {
	tag, err := r.pool.Exec(ctx, `
		UPDATE report SET doctor_id=$2, status=$3, updated_at=NOW()
		WHERE id = $1 AND status = $4`,
		id, doctorID, StatusPendingDoctorReview, StatusPendingPatientInput,
	)
	if err != nil {
		return false, err
	}
	return tag.RowsAffected() == 1, nil
}

// Decide writes the terminal decision. Both the status precondition and the
// assigned-doctor check are in the WHERE clause.
func (r *repoPG) Decide(ctx context.Context, id, doctorID uuid.UUID, decision, notes string) (bool, error) {
	tag, err := r.pool.Exec(ctx, `
		UPDATE report SET status=$3, doctor_notes=$4, updated_at=NOW()
		WHERE id = $1 AND doctor_id = $2 AND status = $5`,
		id, doctorID, decision, notes, StatusPendingDoctorReview,
	)
	if err != nil {
		return false, err
	}
	return tag.RowsAffected() == 1, nil
}

func (r *repoPG) UpdateNotes(ctx context.Context, id uuid.UUID, notes string) error {
	tag, err := r.pool.Exec(ctx, `UPDATE report SET doctor_notes=$2, updated_at=NOW() WHERE id = $1`, id, notes)
	if err != nil {
		return err
	}
	if tag.RowsAffected() == 0 {
		return ErrNotFound
	}
	return nil
}

func scanReport(row pgx.Row) (*Report, error) {
	var rep Report
	var payload []byte
	err := row.Scan(
		&rep.ID, &rep.PatientID, &rep.DoctorID, &rep.Status, &rep.Symptoms, &rep.PhotoID,
		&payload, &rep.DoctorNotes, &rep.CreatedAt, &rep.UpdatedAt,
	)
	if err != nil {
		return nil, err
	}
	if err := unmarshalAIReport(payload, &rep.AIReport); err != nil {
		return nil, err
	}
	return &rep, nil
}

func scanReportRows(rows pgx.Rows) (*Report, error) {
	var rep Report
	var payload []byte
	err := rows.Scan(
		&rep.ID, &rep.PatientID, &rep.DoctorID, &rep.Status, &rep.Symptoms, &rep.PhotoID,
		&payload, &rep.DoctorNotes, &rep.CreatedAt, &rep.UpdatedAt,
	)
	if err != nil {
		return nil, err
	}
	if err := unmarshalAIReport(payload, &rep.AIReport); err != nil {
		return nil, err
	}
	return &rep, nil
}

func unmarshalAIReport(payload []byte, out *ai.StructuredReport) error {
	if len(payload) == 0 {
		return nil
	}
	if err := json.Unmarshal(payload, out); err != nil {
		return fmt.Errorf("report scan: unmarshal ai_report: %w", err)
	}
	return nil
}

package report

import (
	"context"
	"fmt"
	"io"
	"time"

	"github.com/google/uuid"
	"github.com/rs/zerolog"

	"github.com/dermtriage/dermtriage/internal/domain/identity"
	"github.com/dermtriage/dermtriage/internal/platform/ai"
	"github.com/dermtriage/dermtriage/internal/platform/blobstore"
	"github.com/dermtriage/dermtriage/internal/platform/livefeed"
	"github.com/dermtriage/dermtriage/internal/platform/notification"
)

// ProfileDirectory is the slice of the identity service the report workflow
// needs. identity.Service satisfies it.
type ProfileDirectory interface {
	GetPatient(ctx context.Context, id uuid.UUID) (*identity.PatientProfile, error)
	GetPatients(ctx context.Context, ids []uuid.UUID) ([]*identity.PatientProfile, error)
	GetDoctor(ctx context.Context, id uuid.UUID) (*identity.DoctorProfile, error)
}

type Service struct {
	repo      Repository
	profiles  ProfileDirectory
	generator ai.Generator
	photos    blobstore.PhotoStore
	feed      livefeed.Publisher
	notifier  *notification.Notifier
	logger    zerolog.Logger
}

func NewService(
	repo Repository,
	profiles ProfileDirectory,
	generator ai.Generator,
	photos blobstore.PhotoStore,
	feed livefeed.Publisher,
	notifier *notification.Notifier,
	logger zerolog.Logger,
) *Service {
	if feed == nil {
		feed = livefeed.NopPublisher{}
	}
	return &Service{
		repo:      repo,
		profiles:  profiles,
		generator: generator,
		photos:    photos,
		feed:      feed,
		notifier:  notifier,
		logger:    logger,
	}
}

// Create runs the triage flow for one patient submission: resolve the
// patient's demographics, fetch the uploaded photo, ask the model for a
// structured report, and only then persist. Generation is a prerequisite
// value, not a step to roll back: if it fails, nothing is written and the
// failure is surfaced to the patient to retry the whole action.
func (s *Service) Create(ctx context.Context, patientID uuid.UUID, photoID, symptoms string) (*Report, error) {
	if symptoms == "" {
		return nil, fmt.Errorf("symptoms description is required")
	}
	if photoID == "" {
		return nil, fmt.Errorf("photo_id is required")
	}

	patient, err := s.profiles.GetPatient(ctx, patientID)
	if err != nil {
		return nil, fmt.Errorf("resolving patient: %w", err)
	}

	content, meta, err := s.photos.Download(ctx, photoID)
	if err != nil {
		return nil, fmt.Errorf("fetching photo: %w", err)
	}
	defer content.Close()
	if meta.PatientID != patientID.String() {
		return nil, fmt.Errorf("photo %s does not belong to patient", photoID)
	}
	image, err := io.ReadAll(content)
	if err != nil {
		return nil, fmt.Errorf("reading photo: %w", err)
	}

	in := ai.GenerateInput{
		Image:            image,
		ImageContentType: meta.ContentType,
		Symptoms:         symptoms,
		Age:              patient.Age(time.Now()),
	}
	if patient.Gender != nil {
		in.Gender = *patient.Gender
	}
	if patient.Region != nil {
		in.Region = *patient.Region
	}
	if patient.SkinTone != nil {
		in.SkinTone = *patient.SkinTone
	}

	structured, err := s.generator.Generate(ctx, in)
	if err != nil {
		return nil, fmt.Errorf("generating report: %w", err)
	}

	rep := &Report{
		PatientID: patientID,
		Status:    StatusPendingPatientInput,
		Symptoms:  symptoms,
		PhotoID:   &photoID,
		AIReport:  *structured,
	}
	if err := s.repo.Create(ctx, rep); err != nil {
		return nil, fmt.Errorf("persisting report: %w", err)
	}

	s.publish(ctx, livefeed.EventReportCreated, rep, livefeed.PatientTopic(patientID.String()))
	return rep, nil
}

func (s *Service) Get(ctx context.Context, id uuid.UUID) (*Report, error) {
	return s.repo.GetByID(ctx, id)
}

// ListByPatient returns the patient's reports, newest first.
func (s *Service) ListByPatient(ctx context.Context, patientID uuid.UUID) ([]*Report, error) {
	return s.repo.ListByPatient(ctx, patientID)
}

// ListByDoctor returns the doctor's visible reports, newest first.
func (s *Service) ListByDoctor(ctx context.Context, doctorID uuid.UUID) ([]*Report, error) {
	return s.repo.ListByDoctor(ctx, doctorID)
}

// RouteToDoctor assigns a verified doctor and moves the report into their
// review queue. Legal only from pending-patient-input; the status check is
// enforced by the conditional write, so a lost race surfaces as
// ErrInvalidState rather than a double assignment.
func (s *Service) RouteToDoctor(ctx context.Context, reportID, doctorID uuid.UUID) (*Report, error) {
	rep, err := s.repo.GetByID(ctx, reportID)
	if err != nil {
		return nil, err
	}
	if rep.Status != StatusPendingPatientInput {
		return nil, ErrInvalidState
	}

	doctor, err := s.profiles.GetDoctor(ctx, doctorID)
	if err != nil {
		return nil, fmt.Errorf("resolving doctor: %w", err)
	}
	if !doctor.Verified {
		return nil, fmt.Errorf("doctor %s is not verified", doctorID)
	}

	updated, err := s.repo.Route(ctx, reportID, doctorID)
	if err != nil {
		return nil, err
	}
	if !updated {
		return nil, ErrInvalidState
	}

	rep, err = s.repo.GetByID(ctx, reportID)
	if err != nil {
		return nil, err
	}

	s.publish(ctx, livefeed.EventReportRouted, rep,
		livefeed.DoctorTopic(doctorID.String()),
		livefeed.PatientTopic(rep.PatientID.String()))
	s.notifyRouted(ctx, doctor, rep)
	return rep, nil
}

// Decide writes the doctor's terminal disposition. Legal only from
// pending-doctor-review, and only by the assigned doctor.
func (s *Service) Decide(ctx context.Context, reportID, actorID uuid.UUID, decision, notes string) (*Report, error) {
	if !IsDecision(decision) {
		return nil, fmt.Errorf("invalid decision: %s", decision)
	}

	rep, err := s.repo.GetByID(ctx, reportID)
	if err != nil {
		return nil, err
	}
	if rep.Status == StatusPendingPatientInput {
		return nil, ErrInvalidState
	}
	if !rep.AssignedTo(actorID) {
		return nil, ErrNotAssigned
	}
	if rep.Status != StatusPendingDoctorReview {
		return nil, ErrInvalidState
	}

	updated, err := s.repo.Decide(ctx, reportID, actorID, decision, notes)
	if err != nil {
		return nil, err
	}
	if !updated {
		return nil, ErrInvalidState
	}

	rep, err = s.repo.GetByID(ctx, reportID)
	if err != nil {
		return nil, err
	}

	s.publish(ctx, livefeed.EventReportDecided, rep,
		livefeed.DoctorTopic(actorID.String()),
		livefeed.PatientTopic(rep.PatientID.String()))
	s.notifyDecided(ctx, rep, decision)
	return rep, nil
}

// AmendNotes revises the doctor's notes without touching the status. It is a
// deliberate post-decision affordance, distinct from the decision itself,
// and idempotent: re-submitting the same notes is a no-op in effect.
func (s *Service) AmendNotes(ctx context.Context, reportID, actorID uuid.UUID, notes string) (*Report, error) {
	rep, err := s.repo.GetByID(ctx, reportID)
	if err != nil {
		return nil, err
	}
	if !rep.AssignedTo(actorID) {
		return nil, ErrNotAssigned
	}
	if rep.Status != StatusPendingDoctorReview && !rep.Decided() {
		return nil, ErrInvalidState
	}

	if err := s.repo.UpdateNotes(ctx, reportID, notes); err != nil {
		return nil, err
	}
	rep.DoctorNotes = &notes
	return rep, nil
}

// Translate renders the report's prose fields in the target language via the
// model. The stored report is never mutated; translation is a derived view.
func (s *Service) Translate(ctx context.Context, reportID uuid.UUID, language string) (*ai.TranslatedReport, error) {
	if language == "" {
		return nil, fmt.Errorf("language is required")
	}
	rep, err := s.repo.GetByID(ctx, reportID)
	if err != nil {
		return nil, err
	}
	return s.generator.Translate(ctx, &rep.AIReport, language)
}

// ConsoleGroups builds the doctor console view: the doctor's reports grouped
// per patient with unread counts, newest activity first. Patient ids that do
// not resolve to a profile are logged and dropped.
func (s *Service) ConsoleGroups(ctx context.Context, doctorID uuid.UUID) ([]*PatientGroup, error) {
	reports, err := s.repo.ListByDoctor(ctx, doctorID)
	if err != nil {
		return nil, err
	}
	if len(reports) == 0 {
		return []*PatientGroup{}, nil
	}

	seen := make(map[uuid.UUID]bool)
	var ids []uuid.UUID
	for _, r := range reports {
		if !seen[r.PatientID] {
			seen[r.PatientID] = true
			ids = append(ids, r.PatientID)
		}
	}

	profiles, err := s.profiles.GetPatients(ctx, ids)
	if err != nil {
		return nil, fmt.Errorf("resolving patients: %w", err)
	}
	byID := make(map[uuid.UUID]*identity.PatientProfile, len(profiles))
	for _, p := range profiles {
		byID[p.ID] = p
	}

	for id := range seen {
		if byID[id] == nil {
			s.logger.Warn().Str("patient_id", id.String()).Msg("dropping reports with unresolved patient profile")
		}
	}

	groups := BuildPatientGroups(reports, func(id uuid.UUID) (*identity.PatientProfile, bool) {
		p, ok := byID[id]
		return p, ok
	})
	return groups, nil
}

func (s *Service) publish(ctx context.Context, eventType string, rep *Report, topics ...string) {
	for _, topic := range topics {
		event := livefeed.Event{
			Type:      eventType,
			Topic:     topic,
			ReportID:  rep.ID.String(),
			PatientID: rep.PatientID.String(),
			Status:    rep.Status,
			Timestamp: time.Now().UTC(),
		}
		if err := s.feed.Publish(ctx, event); err != nil {
			s.logger.Warn().Err(err).Str("topic", topic).Msg("live feed publish failed")
		}
	}
}

func (s *Service) notifyRouted(ctx context.Context, doctor *identity.DoctorProfile, rep *Report) {
	if s.notifier == nil {
		return
	}
	patientName := "a patient"
	if p, err := s.profiles.GetPatient(ctx, rep.PatientID); err == nil {
		patientName = p.FullName
	}
	s.notifier.ReportRouted(ctx, recipientForDoctor(doctor), patientName)
}

func (s *Service) notifyDecided(ctx context.Context, rep *Report, decision string) {
	if s.notifier == nil {
		return
	}
	patient, err := s.profiles.GetPatient(ctx, rep.PatientID)
	if err != nil {
		s.logger.Warn().Err(err).Str("patient_id", rep.PatientID.String()).Msg("skipping decision notification")
		return
	}
	s.notifier.ReportDecided(ctx, recipientForPatient(patient), decision)
}

func recipientForDoctor(d *identity.DoctorProfile) notification.Recipient {
	r := notification.Recipient{Name: d.FullName}
	if d.Email != nil {
		r.Email = *d.Email
	}
	if d.Phone != nil {
		r.Phone = *d.Phone
	}
	return r
}

func recipientForPatient(p *identity.PatientProfile) notification.Recipient {
	r := notification.Recipient{Name: p.FullName}
	if p.Email != nil {
		r.Email = *p.Email
	}
	if p.Phone != nil {
		r.Phone = *p.Phone
	}
	return r
}

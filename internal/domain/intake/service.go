package intake

import (
	"context"
	"errors"
	"strings"
	"time"

	"github.com/google/uuid"

	"msk-care-coordination/internal/domain/audit"
	"msk-care-coordination/internal/domain/consent"
	"msk-care-coordination/internal/domain/pathway"
)

var (
	ErrInvalidInput   = errors.New("invalid input")
	ErrNotFound       = errors.New("not found")
	ErrConsentMissing = errors.New("consent missing")
)

// ConsentChecker gates intake creation on a currently granted consent.
type ConsentChecker interface {
	IsGranted(ctx context.Context, patientID string, t consent.Type) (bool, error)
}

// SessionLookup exposes the owning patient of a triage session without
// importing the triage service surface.
type SessionLookup interface {
	PatientOf(ctx context.Context, sessionID string) (string, error)
}

type Service struct {
	repo     Repository
	consents ConsentChecker
	sessions SessionLookup
	audit    audit.Sink
	now      func() time.Time
}

func NewService(repo Repository, consents ConsentChecker, sessions SessionLookup, sink audit.Sink) *Service {
	return &Service{
		repo:     repo,
		consents: consents,
		sessions: sessions,
		audit:    sink,
		now:      time.Now,
	}
}

type CreateInput struct {
	PatientID       string
	TriageSessionID string
	Discipline      pathway.Discipline
	Answers         map[string]string
	Summary         string
}

func (s *Service) Create(ctx context.Context, in CreateInput) (IntakeSummary, error) {
	patientID := strings.TrimSpace(in.PatientID)
	sessionID := strings.TrimSpace(in.TriageSessionID)

	if patientID == "" || sessionID == "" {
		return IntakeSummary{}, ErrInvalidInput
	}
	if !pathway.ValidDiscipline(in.Discipline) {
		return IntakeSummary{}, ErrInvalidInput
	}

	// The session must exist and belong to this patient.
	owner, err := s.sessions.PatientOf(ctx, sessionID)
	if err != nil {
		return IntakeSummary{}, ErrNotFound
	}
	if owner != patientID {
		return IntakeSummary{}, ErrInvalidInput
	}

	granted, err := s.consents.IsGranted(ctx, patientID, consent.TypeShareIntake)
	if err != nil {
		return IntakeSummary{}, err
	}
	if !granted {
		return IntakeSummary{}, ErrConsentMissing
	}

	answers := make(map[string]string, len(in.Answers))
	for k, v := range in.Answers {
		answers[k] = v
	}

	summary := IntakeSummary{
		ID:              uuid.NewString(),
		PatientID:       patientID,
		TriageSessionID: sessionID,
		Discipline:      in.Discipline,
		Answers:         answers,
		Summary:         strings.TrimSpace(in.Summary),
		CompletedAt:     s.now(),
	}

	if err := s.repo.Create(ctx, summary); err != nil {
		return IntakeSummary{}, err
	}

	_ = s.audit.Record(ctx, audit.Entry{
		UserID:     patientID,
		UserRole:   "patient",
		Action:     "intake.completed",
		Resource:   "intake_summary",
		ResourceID: summary.ID,
		Details:    string(summary.Discipline),
	})

	return summary, nil
}

func (s *Service) GetByID(ctx context.Context, id string) (IntakeSummary, error) {
	id = strings.TrimSpace(id)
	if id == "" {
		return IntakeSummary{}, ErrInvalidInput
	}
	sum, err := s.repo.GetByID(ctx, id)
	if err != nil {
		return IntakeSummary{}, ErrNotFound
	}
	return sum, nil
}

func (s *Service) ListByPatient(ctx context.Context, patientID string) ([]IntakeSummary, error) {
	patientID = strings.TrimSpace(patientID)
	if patientID == "" {
		return nil, ErrInvalidInput
	}
	return s.repo.ListByPatient(ctx, patientID)
}

// PatientOf exposes the owning patient of a summary for cross-domain checks.
func (s *Service) PatientOf(ctx context.Context, id string) (string, error) {
	sum, err := s.GetByID(ctx, id)
	if err != nil {
		return "", err
	}
	return sum.PatientID, nil
}

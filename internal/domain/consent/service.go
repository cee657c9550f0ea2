package consent

import (
	"context"
	"errors"
	"strings"
	"time"

	"github.com/google/uuid"

	"msk-care-coordination/internal/domain/audit"
)

var (
	ErrInvalidInput = errors.New("invalid input")
)

type Service struct {
	repo  Repository
	audit audit.Sink
	now   func() time.Time
}

func NewService(repo Repository, sink audit.Sink) *Service {
	return &Service{
		repo:  repo,
		audit: sink,
		now:   time.Now,
	}
}

type RecordInput struct {
	PatientID   string
	Type        Type
	Granted     bool
	Description string
}

// Record appends a grant or revocation to the ledger.
func (s *Service) Record(ctx context.Context, actorID string, in RecordInput) (Consent, error) {
	patientID := strings.TrimSpace(in.PatientID)
	if patientID == "" || strings.TrimSpace(actorID) == "" {
		return Consent{}, ErrInvalidInput
	}
	if !validType(in.Type) {
		return Consent{}, ErrInvalidInput
	}

	now := s.now()
	c := Consent{
		ID:          uuid.NewString(),
		PatientID:   patientID,
		Type:        in.Type,
		Granted:     in.Granted,
		Description: strings.TrimSpace(in.Description),
		RecordedAt:  now,
	}

	if err := s.repo.Append(ctx, c); err != nil {
		return Consent{}, err
	}

	action := "consent.granted"
	if !in.Granted {
		action = "consent.revoked"
	}
	_ = s.audit.Record(ctx, audit.Entry{
		UserID:     actorID,
		UserRole:   "patient",
		Action:     action,
		Resource:   "consent",
		ResourceID: c.ID,
		Details:    string(c.Type),
	})

	return c, nil
}

// IsGranted reports whether the patient currently holds a granted consent of
// the given type: the latest record for that type wins.
func (s *Service) IsGranted(ctx context.Context, patientID string, t Type) (bool, error) {
	patientID = strings.TrimSpace(patientID)
	if patientID == "" || !validType(t) {
		return false, ErrInvalidInput
	}

	items, err := s.repo.ListByPatient(ctx, patientID)
	if err != nil {
		return false, err
	}

	// Repositories return records in append order, so on equal timestamps
	// the later record still supersedes.
	var latest Consent
	found := false
	for _, c := range items {
		if c.Type != t {
			continue
		}
		if !found || !c.RecordedAt.Before(latest.RecordedAt) {
			latest = c
			found = true
		}
	}

	return found && latest.Granted, nil
}

func (s *Service) History(ctx context.Context, patientID string) ([]Consent, error) {
	patientID = strings.TrimSpace(patientID)
	if patientID == "" {
		return nil, ErrInvalidInput
	}
	return s.repo.ListByPatient(ctx, patientID)
}

func validType(t Type) bool {
	switch t {
	case TypeDataProcessing, TypeShareIntake, TypeShareTreatmentPlan, TypeCareExecution:
		return true
	default:
		return false
	}
}

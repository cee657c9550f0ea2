package plans

import (
	"context"
	"errors"
	"strings"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"msk-care-coordination/internal/domain/audit"
	"msk-care-coordination/internal/domain/consent"
	"msk-care-coordination/internal/domain/pathway"
)

var (
	ErrInvalidInput      = errors.New("invalid input")
	ErrNotFound          = errors.New("not found")
	ErrConsentMissing    = errors.New("consent missing")
	ErrInvalidTransition = errors.New("invalid transition")
)

// ConsentChecker gates plan creation on a currently granted consent.
type ConsentChecker interface {
	IsGranted(ctx context.Context, patientID string, t consent.Type) (bool, error)
}

// IntakeLookup exposes the owning patient of an intake summary.
type IntakeLookup interface {
	PatientOf(ctx context.Context, intakeID string) (string, error)
}

type Service struct {
	repo     Repository
	consents ConsentChecker
	intakes  IntakeLookup
	audit    audit.Sink
	log      *zap.Logger
	now      func() time.Time
}

func NewService(repo Repository, consents ConsentChecker, intakes IntakeLookup, sink audit.Sink, log *zap.Logger) *Service {
	return &Service{
		repo:     repo,
		consents: consents,
		intakes:  intakes,
		audit:    sink,
		log:      log,
		now:      time.Now,
	}
}

type CreateInput struct {
	PatientID         string
	IntakeSummaryID   string
	Goals             []string
	Disciplines       []pathway.Discipline
	EstimatedSessions int
	Declarable        bool
}

func (s *Service) Create(ctx context.Context, coordinatorID string, in CreateInput) (TreatmentPlan, error) {
	patientID := strings.TrimSpace(in.PatientID)
	intakeID := strings.TrimSpace(in.IntakeSummaryID)
	coordinatorID = strings.TrimSpace(coordinatorID)

	if patientID == "" || intakeID == "" || coordinatorID == "" {
		return TreatmentPlan{}, ErrInvalidInput
	}
	if len(in.Goals) == 0 || len(in.Disciplines) == 0 || in.EstimatedSessions <= 0 {
		return TreatmentPlan{}, ErrInvalidInput
	}
	for _, d := range in.Disciplines {
		if !pathway.ValidDiscipline(d) {
			return TreatmentPlan{}, ErrInvalidInput
		}
	}

	// An intake summary of a different patient is a fatal validation error,
	// never retried.
	owner, err := s.intakes.PatientOf(ctx, intakeID)
	if err != nil {
		return TreatmentPlan{}, ErrNotFound
	}
	if owner != patientID {
		return TreatmentPlan{}, ErrInvalidInput
	}

	granted, err := s.consents.IsGranted(ctx, patientID, consent.TypeShareTreatmentPlan)
	if err != nil {
		return TreatmentPlan{}, err
	}
	if !granted {
		return TreatmentPlan{}, ErrConsentMissing
	}

	now := s.now()
	p := TreatmentPlan{
		ID:                uuid.NewString(),
		PatientID:         patientID,
		CoordinatorID:     coordinatorID,
		IntakeSummaryID:   intakeID,
		Goals:             append([]string{}, in.Goals...),
		Disciplines:       append([]pathway.Discipline{}, in.Disciplines...),
		EstimatedSessions: in.EstimatedSessions,
		Declarable:        in.Declarable,
		Status:            StatusDraft,
		CreatedAt:         now,
		UpdatedAt:         now,
	}

	if err := s.repo.Create(ctx, p); err != nil {
		return TreatmentPlan{}, err
	}

	_ = s.audit.Record(ctx, audit.Entry{
		UserID:     coordinatorID,
		UserRole:   "coordinator",
		Action:     "treatment_plan.created",
		Resource:   "treatment_plan",
		ResourceID: p.ID,
	})

	return p, nil
}

func (s *Service) GetByID(ctx context.Context, id string) (TreatmentPlan, error) {
	id = strings.TrimSpace(id)
	if id == "" {
		return TreatmentPlan{}, ErrInvalidInput
	}
	p, err := s.repo.GetByID(ctx, id)
	if err != nil {
		return TreatmentPlan{}, ErrNotFound
	}
	return p, nil
}

func (s *Service) ListByPatient(ctx context.Context, patientID string) ([]TreatmentPlan, error) {
	patientID = strings.TrimSpace(patientID)
	if patientID == "" {
		return nil, ErrInvalidInput
	}
	return s.repo.ListByPatient(ctx, patientID)
}

// Submit moves a draft to pending_consent.
func (s *Service) Submit(ctx context.Context, actorID, planID string) (TreatmentPlan, error) {
	return s.transition(ctx, actorID, planID, "treatment_plan.submitted", func(p *TreatmentPlan) error {
		switch p.Status {
		case StatusDraft:
			p.Status = StatusPendingConsent
			return nil
		case StatusPendingConsent, StatusApproved, StatusActive, StatusCompleted:
			return ErrInvalidTransition
		default:
			return ErrInvalidTransition
		}
	})
}

// Approve moves a pending_consent plan to approved and records the insurer
// decision.
func (s *Service) Approve(ctx context.Context, actorID, planID string, insurerApproved bool) (TreatmentPlan, error) {
	return s.transition(ctx, actorID, planID, "treatment_plan.approved", func(p *TreatmentPlan) error {
		switch p.Status {
		case StatusPendingConsent:
			p.Status = StatusApproved
			p.InsurerApproved = insurerApproved
			return nil
		case StatusDraft, StatusApproved, StatusActive, StatusCompleted:
			return ErrInvalidTransition
		default:
			return ErrInvalidTransition
		}
	})
}

// MarkActive is invoked by the broker the instant a care request is
// accepted. Any pre-active status may jump straight to active (a plan does
// not need an explicit approval step before a provider accepts). Calling it
// again while already active is a no-op, not an error.
func (s *Service) MarkActive(ctx context.Context, planID, winningRequestID string) (TreatmentPlan, error) {
	planID = strings.TrimSpace(planID)
	winningRequestID = strings.TrimSpace(winningRequestID)
	if planID == "" || winningRequestID == "" {
		return TreatmentPlan{}, ErrInvalidInput
	}

	p, err := s.GetByID(ctx, planID)
	if err != nil {
		return TreatmentPlan{}, err
	}

	switch p.Status {
	case StatusActive:
		// Idempotent no-op.
		return p, nil
	case StatusCompleted:
		return TreatmentPlan{}, ErrInvalidTransition
	case StatusDraft, StatusPendingConsent, StatusApproved:
		// fall through to activate
	default:
		return TreatmentPlan{}, ErrInvalidTransition
	}

	p.Status = StatusActive
	p.WinningRequestID = &winningRequestID
	p.UpdatedAt = s.now()

	if err := s.repo.Update(ctx, p); err != nil {
		return TreatmentPlan{}, err
	}

	s.log.Info("treatment plan activated",
		zap.String("plan_id", p.ID),
		zap.String("winning_request_id", winningRequestID),
	)
	_ = s.audit.Record(ctx, audit.Entry{
		UserID:     p.CoordinatorID,
		UserRole:   "coordinator",
		Action:     "treatment_plan.activated",
		Resource:   "treatment_plan",
		ResourceID: p.ID,
		Details:    "winning_request=" + winningRequestID,
	})

	return p, nil
}

// Complete closes an active plan.
func (s *Service) Complete(ctx context.Context, actorID, planID string) (TreatmentPlan, error) {
	return s.transition(ctx, actorID, planID, "treatment_plan.completed", func(p *TreatmentPlan) error {
		switch p.Status {
		case StatusActive:
			p.Status = StatusCompleted
			return nil
		case StatusDraft, StatusPendingConsent, StatusApproved, StatusCompleted:
			return ErrInvalidTransition
		default:
			return ErrInvalidTransition
		}
	})
}

// Activate adapts MarkActive to the broker's gateway interface.
func (s *Service) Activate(ctx context.Context, planID, winningRequestID string) error {
	_, err := s.MarkActive(ctx, planID, winningRequestID)
	return err
}

// PatientOf exposes the owning patient of a plan.
func (s *Service) PatientOf(ctx context.Context, planID string) (string, error) {
	p, err := s.GetByID(ctx, planID)
	if err != nil {
		return "", err
	}
	return p.PatientID, nil
}

// IsAssigned reports whether the plan already has a winning care request.
func (s *Service) IsAssigned(ctx context.Context, planID string) (bool, error) {
	p, err := s.GetByID(ctx, planID)
	if err != nil {
		return false, err
	}
	return p.WinningRequestID != nil || p.Status == StatusActive || p.Status == StatusCompleted, nil
}

func (s *Service) transition(ctx context.Context, actorID, planID, action string, apply func(*TreatmentPlan) error) (TreatmentPlan, error) {
	actorID = strings.TrimSpace(actorID)
	if actorID == "" {
		return TreatmentPlan{}, ErrInvalidInput
	}

	p, err := s.GetByID(ctx, planID)
	if err != nil {
		return TreatmentPlan{}, err
	}

	if err := apply(&p); err != nil {
		return TreatmentPlan{}, err
	}
	p.UpdatedAt = s.now()

	if err := s.repo.Update(ctx, p); err != nil {
		return TreatmentPlan{}, err
	}

	_ = s.audit.Record(ctx, audit.Entry{
		UserID:     actorID,
		UserRole:   "coordinator",
		Action:     action,
		Resource:   "treatment_plan",
		ResourceID: p.ID,
		Details:    "status=" + string(p.Status),
	})

	return p, nil
}

package carerequests

import (
	"context"
	"errors"
	"strings"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"msk-care-coordination/internal/domain/audit"
	"msk-care-coordination/internal/domain/pathway"
	"msk-care-coordination/internal/ports/notify"
)

var (
	ErrInvalidInput      = errors.New("invalid input")
	ErrNotFound          = errors.New("not found")
	ErrInvalidTransition = errors.New("invalid transition")
	// ErrRaceLost reports an accept that arrived after another provider
	// already won. Distinct from a decline: the provider is told the slot
	// is gone, not that they were rejected.
	ErrRaceLost = errors.New("race lost")
	// ErrConflict is a transient storage-level collision; the broker retries
	// it internally before surfacing.
	ErrConflict = errors.New("concurrency conflict")
)

// resolveRetries bounds the internal retry loop on ErrConflict.
const resolveRetries = 3

// PlanGateway is what the broker needs from the treatment-plan service.
type PlanGateway interface {
	PatientOf(ctx context.Context, planID string) (string, error)
	IsAssigned(ctx context.Context, planID string) (bool, error)
	Activate(ctx context.Context, planID, winningRequestID string) error
}

// ProviderLookup resolves provider display names.
type ProviderLookup interface {
	NameOf(ctx context.Context, providerID string) (string, error)
}

// Broker broadcasts a treatment plan to candidate providers and resolves the
// first-acceptance-wins race.
type Broker struct {
	repo      Repository
	plans     PlanGateway
	providers ProviderLookup
	notifier  notify.Notifier
	audit     audit.Sink
	log       *zap.Logger
	now       func() time.Time
}

func NewBroker(repo Repository, plans PlanGateway, providers ProviderLookup, notifier notify.Notifier, sink audit.Sink, log *zap.Logger) *Broker {
	return &Broker{
		repo:      repo,
		plans:     plans,
		providers: providers,
		notifier:  notifier,
		audit:     sink,
		log:       log,
		now:       time.Now,
	}
}

// Broadcast fans one pending care request out to every listed provider. It
// picks no winner; that happens in Respond.
func (b *Broker) Broadcast(ctx context.Context, coordinatorID, planID string, providerIDs []string, discipline pathway.Discipline) ([]CareRequest, error) {
	coordinatorID = strings.TrimSpace(coordinatorID)
	planID = strings.TrimSpace(planID)

	if coordinatorID == "" || planID == "" || len(providerIDs) == 0 {
		return nil, ErrInvalidInput
	}
	if !pathway.ValidDiscipline(discipline) {
		return nil, ErrInvalidInput
	}

	patientID, err := b.plans.PatientOf(ctx, planID)
	if err != nil {
		return nil, ErrNotFound
	}
	assigned, err := b.plans.IsAssigned(ctx, planID)
	if err != nil {
		return nil, err
	}
	if assigned {
		return nil, ErrInvalidTransition
	}

	// Resolve every provider before creating anything: a bad ID must fail
	// the whole broadcast, not leave a partial fan-out behind.
	type candidate struct {
		id   string
		name string
	}
	candidates := make([]candidate, 0, len(providerIDs))
	for _, providerID := range providerIDs {
		providerID = strings.TrimSpace(providerID)
		if providerID == "" {
			return nil, ErrInvalidInput
		}
		name, err := b.providers.NameOf(ctx, providerID)
		if err != nil {
			return nil, ErrInvalidInput
		}
		candidates = append(candidates, candidate{id: providerID, name: name})
	}

	now := b.now()
	out := make([]CareRequest, 0, len(candidates))
	for _, c := range candidates {
		cr := CareRequest{
			ID:              uuid.NewString(),
			TreatmentPlanID: planID,
			PatientID:       patientID,
			ProviderID:      c.id,
			ProviderName:    c.name,
			Discipline:      discipline,
			Status:          StatusPending,
			SentAt:          now,
		}
		if err := b.repo.Create(ctx, cr); err != nil {
			return nil, err
		}

		_ = b.audit.Record(ctx, audit.Entry{
			UserID:     coordinatorID,
			UserRole:   "coordinator",
			Action:     "care_request.sent",
			Resource:   "care_request",
			ResourceID: cr.ID,
			Details:    "provider=" + c.id + " status=" + string(cr.Status),
		})
		b.notifier.Notify(ctx, notify.EventCareRequestSent, map[string]string{
			"care_request_id": cr.ID,
			"provider_id":     c.id,
			"plan_id":         planID,
		})

		out = append(out, cr)
	}

	b.log.Info("care requests broadcast",
		zap.String("plan_id", planID),
		zap.Int("providers", len(out)),
	)
	return out, nil
}

// Respond is the single operation through which a provider answers a
// request. Accept runs the atomic first-acceptance-wins resolution; losing
// the race returns ErrRaceLost with the request withdrawn, also on a retry
// after the race already withdrew it. A request that resolved on its own
// (accepted or declined) returns ErrInvalidTransition with no side effects.
func (b *Broker) Respond(ctx context.Context, providerID, requestID string, decision Decision, appointmentDate *time.Time) (CareRequest, error) {
	providerID = strings.TrimSpace(providerID)
	requestID = strings.TrimSpace(requestID)
	if providerID == "" || requestID == "" {
		return CareRequest{}, ErrInvalidInput
	}

	cr, err := b.repo.GetByID(ctx, requestID)
	if err != nil {
		return CareRequest{}, ErrNotFound
	}
	if cr.ProviderID != providerID {
		return CareRequest{}, ErrInvalidInput
	}

	switch decision {
	case DecisionAccept:
		return b.accept(ctx, cr, appointmentDate)
	case DecisionDecline:
		return b.decline(ctx, cr)
	default:
		return CareRequest{}, ErrInvalidInput
	}
}

func (b *Broker) accept(ctx context.Context, cr CareRequest, appointmentDate *time.Time) (CareRequest, error) {
	respondedAt := b.now()

	var (
		outcome ResolveOutcome
		err     error
	)
	for attempt := 0; attempt < resolveRetries; attempt++ {
		outcome, err = b.repo.Resolve(ctx, cr.ID, respondedAt, appointmentDate)
		if errors.Is(err, ErrConflict) {
			b.log.Warn("resolve conflict, retrying",
				zap.String("care_request_id", cr.ID),
				zap.Int("attempt", attempt+1),
			)
			continue
		}
		break
	}
	if err != nil {
		if errors.Is(err, ErrConflict) {
			// Retries exhausted: report the transient failure, never drop it.
			_ = b.audit.Record(ctx, audit.Entry{
				UserID:     cr.ProviderID,
				UserRole:   "provider",
				Action:     "care_request.accept_conflict",
				Resource:   "care_request",
				ResourceID: cr.ID,
				Details:    "resolve retries exhausted",
			})
		}
		return CareRequest{}, err
	}

	if !outcome.Won {
		// Another provider already holds the slot. The request ends
		// withdrawn, not declined, and the caller learns it lost the race.
		_ = b.audit.Record(ctx, audit.Entry{
			UserID:     cr.ProviderID,
			UserRole:   "provider",
			Action:     "care_request.race_lost",
			Resource:   "care_request",
			ResourceID: cr.ID,
			Details:    "status=" + string(outcome.Request.Status),
		})
		return outcome.Request, ErrRaceLost
	}

	if err := b.plans.Activate(ctx, cr.TreatmentPlanID, cr.ID); err != nil {
		// The accept itself is durable; activation is idempotent and a
		// failure here must be visible, not swallowed.
		b.log.Error("plan activation failed after accept",
			zap.String("plan_id", cr.TreatmentPlanID),
			zap.String("care_request_id", cr.ID),
			zap.Error(err),
		)
		_ = b.audit.Record(ctx, audit.Entry{
			UserID:     cr.ProviderID,
			UserRole:   "provider",
			Action:     "care_request.activation_failed",
			Resource:   "treatment_plan",
			ResourceID: cr.TreatmentPlanID,
			Details:    err.Error(),
		})
		return CareRequest{}, err
	}

	_ = b.audit.Record(ctx, audit.Entry{
		UserID:     cr.ProviderID,
		UserRole:   "provider",
		Action:     "care_request.accepted",
		Resource:   "care_request",
		ResourceID: cr.ID,
		Details:    "status=" + string(StatusAccepted),
	})
	for _, w := range outcome.Withdrawn {
		_ = b.audit.Record(ctx, audit.Entry{
			UserID:     cr.ProviderID,
			UserRole:   "provider",
			Action:     "care_request.withdrawn",
			Resource:   "care_request",
			ResourceID: w.ID,
			Details:    "status=" + string(StatusWithdrawn),
		})
		b.notifier.Notify(ctx, notify.EventCareRequestWithdrawn, map[string]string{
			"care_request_id": w.ID,
			"provider_id":     w.ProviderID,
			"plan_id":         w.TreatmentPlanID,
		})
	}
	b.notifier.Notify(ctx, notify.EventCareRequestAccepted, map[string]string{
		"care_request_id": outcome.Request.ID,
		"provider_id":     cr.ProviderID,
		"plan_id":         cr.TreatmentPlanID,
	})

	b.log.Info("care request accepted",
		zap.String("care_request_id", cr.ID),
		zap.String("plan_id", cr.TreatmentPlanID),
		zap.String("provider_id", cr.ProviderID),
		zap.Int("withdrawn", len(outcome.Withdrawn)),
	)
	return outcome.Request, nil
}

func (b *Broker) decline(ctx context.Context, cr CareRequest) (CareRequest, error) {
	declined, err := b.repo.Decline(ctx, cr.ID, b.now())
	if err != nil {
		return CareRequest{}, err
	}

	_ = b.audit.Record(ctx, audit.Entry{
		UserID:     cr.ProviderID,
		UserRole:   "provider",
		Action:     "care_request.declined",
		Resource:   "care_request",
		ResourceID: cr.ID,
		Details:    "status=" + string(StatusDeclined),
	})
	return declined, nil
}

func (b *Broker) ListByPlan(ctx context.Context, planID string) ([]CareRequest, error) {
	planID = strings.TrimSpace(planID)
	if planID == "" {
		return nil, ErrInvalidInput
	}
	return b.repo.ListByPlan(ctx, planID)
}

func (b *Broker) ListByProvider(ctx context.Context, providerID string) ([]CareRequest, error) {
	providerID = strings.TrimSpace(providerID)
	if providerID == "" {
		return nil, ErrInvalidInput
	}
	return b.repo.ListByProvider(ctx, providerID)
}

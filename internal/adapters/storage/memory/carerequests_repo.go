package memory

import (
	"context"
	"errors"
	"sync"
	"time"

	"msk-care-coordination/internal/domain/carerequests"
)

// careRequestsRepo guards all requests with a single mutex, so Resolve sees
// and mutates every sibling of a plan in one critical section. That is the
// whole first-acceptance-wins guarantee for the in-memory store.
type careRequestsRepo struct {
	mu   sync.Mutex
	byID map[string]carerequests.CareRequest
}

func NewCareRequestsRepo() carerequests.Repository {
	return &careRequestsRepo{byID: make(map[string]carerequests.CareRequest)}
}

func (r *careRequestsRepo) Create(ctx context.Context, cr carerequests.CareRequest) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	if cr.ID == "" {
		return errors.New("care request id required")
	}
	if _, exists := r.byID[cr.ID]; exists {
		return errors.New("care request already exists")
	}
	r.byID[cr.ID] = cr
	return nil
}

func (r *careRequestsRepo) GetByID(ctx context.Context, id string) (carerequests.CareRequest, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	cr, ok := r.byID[id]
	if !ok {
		return carerequests.CareRequest{}, carerequests.ErrNotFound
	}
	return cr, nil
}

func (r *careRequestsRepo) ListByPlan(ctx context.Context, treatmentPlanID string) ([]carerequests.CareRequest, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	out := make([]carerequests.CareRequest, 0)
	for _, cr := range r.byID {
		if cr.TreatmentPlanID == treatmentPlanID {
			out = append(out, cr)
		}
	}
	return out, nil
}

func (r *careRequestsRepo) ListByProvider(ctx context.Context, providerID string) ([]carerequests.CareRequest, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	out := make([]carerequests.CareRequest, 0)
	for _, cr := range r.byID {
		if cr.ProviderID == providerID {
			out = append(out, cr)
		}
	}
	return out, nil
}

func (r *careRequestsRepo) Resolve(ctx context.Context, requestID string, respondedAt time.Time, appointmentDate *time.Time) (carerequests.ResolveOutcome, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	cr, ok := r.byID[requestID]
	if !ok {
		return carerequests.ResolveOutcome{}, carerequests.ErrNotFound
	}

	// A sibling already accepted means this request lost the race: it ends
	// withdrawn, never accepted. A request the race already withdrew is
	// reported as lost again without being re-processed.
	for id, sibling := range r.byID {
		if id == requestID || sibling.TreatmentPlanID != cr.TreatmentPlanID {
			continue
		}
		if sibling.Status == carerequests.StatusAccepted {
			switch cr.Status {
			case carerequests.StatusPending:
				cr.Status = carerequests.StatusWithdrawn
				cr.RespondedAt = &respondedAt
				r.byID[requestID] = cr
				return carerequests.ResolveOutcome{Won: false, Request: cr}, nil
			case carerequests.StatusWithdrawn:
				return carerequests.ResolveOutcome{Won: false, Request: cr}, nil
			default:
				return carerequests.ResolveOutcome{}, carerequests.ErrInvalidTransition
			}
		}
	}

	if cr.Status != carerequests.StatusPending {
		return carerequests.ResolveOutcome{}, carerequests.ErrInvalidTransition
	}

	cr.Status = carerequests.StatusAccepted
	cr.RespondedAt = &respondedAt
	cr.AppointmentDate = appointmentDate
	r.byID[requestID] = cr

	withdrawn := make([]carerequests.CareRequest, 0)
	for id, sibling := range r.byID {
		if id == requestID || sibling.TreatmentPlanID != cr.TreatmentPlanID {
			continue
		}
		if sibling.Status == carerequests.StatusPending {
			sibling.Status = carerequests.StatusWithdrawn
			r.byID[id] = sibling
			withdrawn = append(withdrawn, sibling)
		}
	}

	return carerequests.ResolveOutcome{Won: true, Request: cr, Withdrawn: withdrawn}, nil
}

func (r *careRequestsRepo) Decline(ctx context.Context, requestID string, respondedAt time.Time) (carerequests.CareRequest, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	cr, ok := r.byID[requestID]
	if !ok {
		return carerequests.CareRequest{}, carerequests.ErrNotFound
	}
	if cr.Status != carerequests.StatusPending {
		return carerequests.CareRequest{}, carerequests.ErrInvalidTransition
	}

	cr.Status = carerequests.StatusDeclined
	cr.RespondedAt = &respondedAt
	r.byID[requestID] = cr
	return cr, nil
}

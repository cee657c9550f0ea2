package carerequests

import (
	"context"
	"time"
)

// Outcome of an atomic accept attempt.
type ResolveOutcome struct {
	// Won reports whether this request became the plan's accepted request.
	Won bool
	// Request is the request after the attempt: accepted on a win,
	// withdrawn on a lost race.
	Request CareRequest
	// Withdrawn holds the sibling requests retired by a win.
	Withdrawn []CareRequest
}

// Repository persists care requests. Resolve and Decline carry the
// transition checks; check and write must share the store's isolation or
// the double-accept race returns.
type Repository interface {
	Create(ctx context.Context, cr CareRequest) error
	GetByID(ctx context.Context, id string) (CareRequest, error)
	ListByPlan(ctx context.Context, treatmentPlanID string) ([]CareRequest, error)
	ListByProvider(ctx context.Context, providerID string) ([]CareRequest, error)

	// Resolve is the critical section of the first-acceptance-wins protocol.
	// As one atomic, serializable operation scoped to the request's plan it
	// must:
	//   - if the request is pending and no sibling is accepted: mark it
	//     accepted and every pending sibling withdrawn, and report Won=true;
	//   - if a sibling is already accepted: report Won=false, withdrawing the
	//     request first if it was still pending (an already-withdrawn loser is
	//     reported as-is, never re-processed);
	//   - otherwise (the request itself already resolved) fail with
	//     ErrInvalidTransition.
	// Implementations may fail with ErrConflict under contention; callers
	// retry.
	Resolve(ctx context.Context, requestID string, respondedAt time.Time, appointmentDate *time.Time) (ResolveOutcome, error)

	// Decline atomically moves a pending request to declined. Sibling
	// requests are untouched.
	Decline(ctx context.Context, requestID string, respondedAt time.Time) (CareRequest, error)
}

package memory

import (
	"context"
	"errors"
	"sync"

	"msk-care-coordination/internal/domain/consent"
)

// consentsRepo keeps the ledger as a slice: append-only by construction, and
// append order doubles as the tie-breaker for equal timestamps.
type consentsRepo struct {
	mu    sync.RWMutex
	items []consent.Consent
}

func NewConsentsRepo() consent.Repository {
	return &consentsRepo{items: make([]consent.Consent, 0)}
}

func (r *consentsRepo) Append(ctx context.Context, c consent.Consent) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	if c.ID == "" {
		return errors.New("consent id required")
	}
	r.items = append(r.items, c)
	return nil
}

func (r *consentsRepo) ListByPatient(ctx context.Context, patientID string) ([]consent.Consent, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	out := make([]consent.Consent, 0)
	for _, c := range r.items {
		if c.PatientID == patientID {
			out = append(out, c)
		}
	}
	return out, nil
}

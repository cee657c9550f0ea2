package memory

import (
	"context"
	"sync"

	"msk-care-coordination/internal/domain/pathway"
	"msk-care-coordination/internal/domain/providers"
)

// providersRepo serves static reference data seeded at wiring time.
type providersRepo struct {
	mu   sync.RWMutex
	byID map[string]providers.Provider
}

func NewProvidersRepo(seed []providers.Provider) providers.Repository {
	byID := make(map[string]providers.Provider, len(seed))
	for _, p := range seed {
		byID[p.ID] = p
	}
	return &providersRepo{byID: byID}
}

func (r *providersRepo) GetByID(ctx context.Context, id string) (providers.Provider, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	p, ok := r.byID[id]
	if !ok {
		return providers.Provider{}, ErrNotFound
	}
	return p, nil
}

func (r *providersRepo) ListByDiscipline(ctx context.Context, d pathway.Discipline) ([]providers.Provider, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	out := make([]providers.Provider, 0)
	for _, p := range r.byID {
		if p.Discipline == d {
			out = append(out, p)
		}
	}
	return out, nil
}

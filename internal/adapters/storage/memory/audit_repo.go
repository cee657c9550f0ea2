package memory

import (
	"context"
	"errors"
	"sync"

	"msk-care-coordination/internal/domain/audit"
)

type auditRepo struct {
	mu    sync.RWMutex
	items []audit.Entry
}

func NewAuditRepo() audit.Repository {
	return &auditRepo{items: make([]audit.Entry, 0)}
}

func (r *auditRepo) Append(ctx context.Context, e audit.Entry) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	if e.ID == "" {
		return errors.New("audit entry id required")
	}
	r.items = append(r.items, e)
	return nil
}

func (r *auditRepo) ListByResource(ctx context.Context, resource, resourceID string) ([]audit.Entry, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	out := make([]audit.Entry, 0)
	for _, e := range r.items {
		if e.Resource == resource && e.ResourceID == resourceID {
			out = append(out, e)
		}
	}
	return out, nil
}

func (r *auditRepo) ListByUser(ctx context.Context, userID string) ([]audit.Entry, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	out := make([]audit.Entry, 0)
	for _, e := range r.items {
		if e.UserID == userID {
			out = append(out, e)
		}
	}
	return out, nil
}

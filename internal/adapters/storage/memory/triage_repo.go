package memory

import (
	"context"
	"errors"
	"sync"

	"msk-care-coordination/internal/domain/triage"
)

type triageRepo struct {
	mu   sync.RWMutex
	byID map[string]triage.Session
}

func NewTriageRepo() triage.Repository {
	return &triageRepo{byID: make(map[string]triage.Session)}
}

func (r *triageRepo) Create(ctx context.Context, s triage.Session) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	if s.ID == "" {
		return errors.New("session id required")
	}
	if _, exists := r.byID[s.ID]; exists {
		return errors.New("session already exists")
	}
	r.byID[s.ID] = s
	return nil
}

func (r *triageRepo) GetByID(ctx context.Context, id string) (triage.Session, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	s, ok := r.byID[id]
	if !ok {
		return triage.Session{}, ErrNotFound
	}
	return s, nil
}

func (r *triageRepo) ListByPatient(ctx context.Context, patientID string) ([]triage.Session, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	out := make([]triage.Session, 0)
	for _, s := range r.byID {
		if s.PatientID == patientID {
			out = append(out, s)
		}
	}
	return out, nil
}

func (r *triageRepo) Update(ctx context.Context, s triage.Session) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	if _, ok := r.byID[s.ID]; !ok {
		return ErrNotFound
	}
	r.byID[s.ID] = s
	return nil
}

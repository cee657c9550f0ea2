package memory

import (
	"context"
	"errors"
	"sync"

	"msk-care-coordination/internal/domain/intake"
)

type intakeRepo struct {
	mu   sync.RWMutex
	byID map[string]intake.IntakeSummary
}

func NewIntakeRepo() intake.Repository {
	return &intakeRepo{byID: make(map[string]intake.IntakeSummary)}
}

func (r *intakeRepo) Create(ctx context.Context, s intake.IntakeSummary) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	if s.ID == "" {
		return errors.New("intake id required")
	}
	if _, exists := r.byID[s.ID]; exists {
		return errors.New("intake already exists")
	}
	r.byID[s.ID] = s
	return nil
}

func (r *intakeRepo) GetByID(ctx context.Context, id string) (intake.IntakeSummary, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	s, ok := r.byID[id]
	if !ok {
		return intake.IntakeSummary{}, ErrNotFound
	}
	return s, nil
}

func (r *intakeRepo) ListByPatient(ctx context.Context, patientID string) ([]intake.IntakeSummary, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	out := make([]intake.IntakeSummary, 0)
	for _, s := range r.byID {
		if s.PatientID == patientID {
			out = append(out, s)
		}
	}
	return out, nil
}

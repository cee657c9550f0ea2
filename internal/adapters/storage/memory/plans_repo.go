package memory

import (
	"context"
	"errors"
	"sync"

	"msk-care-coordination/internal/domain/plans"
)

type plansRepo struct {
	mu   sync.RWMutex
	byID map[string]plans.TreatmentPlan
}

func NewPlansRepo() plans.Repository {
	return &plansRepo{byID: make(map[string]plans.TreatmentPlan)}
}

func (r *plansRepo) Create(ctx context.Context, p plans.TreatmentPlan) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	if p.ID == "" {
		return errors.New("plan id required")
	}
	if _, exists := r.byID[p.ID]; exists {
		return errors.New("plan already exists")
	}
	r.byID[p.ID] = p
	return nil
}

func (r *plansRepo) GetByID(ctx context.Context, id string) (plans.TreatmentPlan, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	p, ok := r.byID[id]
	if !ok {
		return plans.TreatmentPlan{}, ErrNotFound
	}
	return p, nil
}

func (r *plansRepo) ListByPatient(ctx context.Context, patientID string) ([]plans.TreatmentPlan, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	out := make([]plans.TreatmentPlan, 0)
	for _, p := range r.byID {
		if p.PatientID == patientID {
			out = append(out, p)
		}
	}
	return out, nil
}

func (r *plansRepo) Update(ctx context.Context, p plans.TreatmentPlan) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	if _, ok := r.byID[p.ID]; !ok {
		return ErrNotFound
	}
	r.byID[p.ID] = p
	return nil
}

package plans

import "context"

type Repository interface {
	Create(ctx context.Context, p TreatmentPlan) error
	GetByID(ctx context.Context, id string) (TreatmentPlan, error)
	ListByPatient(ctx context.Context, patientID string) ([]TreatmentPlan, error)
	Update(ctx context.Context, p TreatmentPlan) error
}

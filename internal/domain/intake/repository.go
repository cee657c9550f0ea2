package intake

import "context"

type Repository interface {
	Create(ctx context.Context, s IntakeSummary) error
	GetByID(ctx context.Context, id string) (IntakeSummary, error)
	ListByPatient(ctx context.Context, patientID string) ([]IntakeSummary, error)
}

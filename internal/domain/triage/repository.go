package triage

import "context"

type Repository interface {
	Create(ctx context.Context, s Session) error
	GetByID(ctx context.Context, id string) (Session, error)
	ListByPatient(ctx context.Context, patientID string) ([]Session, error)
	// Update exists solely for pathway decisions; everything else on a
	// completed session is immutable.
	Update(ctx context.Context, s Session) error
}

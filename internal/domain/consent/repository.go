package consent

import "context"

// Repository is append-only: there is no update or delete.
type Repository interface {
	Append(ctx context.Context, c Consent) error
	ListByPatient(ctx context.Context, patientID string) ([]Consent, error)
}

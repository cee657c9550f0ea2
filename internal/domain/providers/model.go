package providers

import "msk-care-coordination/internal/domain/pathway"

// Provider is static reference data: the core reads it, never writes it.
type Provider struct {
	ID                 string
	Name               string
	Discipline         pathway.Discipline
	Insurers           []string
	AcceptsNewPatients bool
}

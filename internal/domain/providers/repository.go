package providers

import (
	"context"

	"msk-care-coordination/internal/domain/pathway"
)

type Repository interface {
	GetByID(ctx context.Context, id string) (Provider, error)
	ListByDiscipline(ctx context.Context, d pathway.Discipline) ([]Provider, error)
}

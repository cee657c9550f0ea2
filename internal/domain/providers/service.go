package providers

import (
	"context"
	"errors"
	"strings"

	"msk-care-coordination/internal/domain/pathway"
)

var (
	ErrInvalidInput = errors.New("invalid input")
	ErrNotFound     = errors.New("not found")
)

type Service struct {
	repo Repository
}

func NewService(repo Repository) *Service {
	return &Service{repo: repo}
}

func (s *Service) GetByID(ctx context.Context, id string) (Provider, error) {
	id = strings.TrimSpace(id)
	if id == "" {
		return Provider{}, ErrInvalidInput
	}
	p, err := s.repo.GetByID(ctx, id)
	if err != nil {
		return Provider{}, ErrNotFound
	}
	return p, nil
}

// Candidates returns providers of a discipline that take new patients and,
// when an insurer is given, work with that insurer.
func (s *Service) Candidates(ctx context.Context, d pathway.Discipline, insurer string) ([]Provider, error) {
	if !pathway.ValidDiscipline(d) {
		return nil, ErrInvalidInput
	}

	items, err := s.repo.ListByDiscipline(ctx, d)
	if err != nil {
		return nil, err
	}

	insurer = strings.TrimSpace(insurer)
	out := make([]Provider, 0, len(items))
	for _, p := range items {
		if !p.AcceptsNewPatients {
			continue
		}
		if insurer != "" && !worksWith(p, insurer) {
			continue
		}
		out = append(out, p)
	}
	return out, nil
}

// NameOf lets the broker resolve a provider name without depending on the
// full service surface.
func (s *Service) NameOf(ctx context.Context, id string) (string, error) {
	p, err := s.GetByID(ctx, id)
	if err != nil {
		return "", err
	}
	return p.Name, nil
}

func worksWith(p Provider, insurer string) bool {
	for _, ins := range p.Insurers {
		if strings.EqualFold(ins, insurer) {
			return true
		}
	}
	return false
}

package patients

import (
	"context"
	"errors"
	"strings"
	"time"

	"github.com/google/uuid"

	"msk-care-coordination/internal/domain/audit"
)

var (
	ErrInvalidInput = errors.New("invalid input")
	ErrNotFound     = errors.New("not found")
)

type Service struct {
	repo  Repository
	audit audit.Sink
	now   func() time.Time
}

func NewService(repo Repository, sink audit.Sink) *Service {
	return &Service{
		repo:  repo,
		audit: sink,
		now:   time.Now,
	}
}

type RegisterInput struct {
	FirstName string
	LastName  string
	Email     string
	BirthDate *time.Time
	Insurer   string
}

func (s *Service) Register(ctx context.Context, in RegisterInput) (Patient, error) {
	first := strings.TrimSpace(in.FirstName)
	last := strings.TrimSpace(in.LastName)
	email := strings.TrimSpace(in.Email)

	if first == "" || last == "" || email == "" {
		return Patient{}, ErrInvalidInput
	}

	p := Patient{
		ID:        uuid.NewString(),
		FirstName: first,
		LastName:  last,
		Email:     email,
		BirthDate: in.BirthDate,
		Insurer:   strings.TrimSpace(in.Insurer),
		CreatedAt: s.now(),
	}

	if err := s.repo.Create(ctx, p); err != nil {
		return Patient{}, err
	}

	_ = s.audit.Record(ctx, audit.Entry{
		UserID:     p.ID,
		UserRole:   "patient",
		Action:     "patient.registered",
		Resource:   "patient",
		ResourceID: p.ID,
	})

	return p, nil
}

func (s *Service) GetByID(ctx context.Context, id string) (Patient, error) {
	id = strings.TrimSpace(id)
	if id == "" {
		return Patient{}, ErrInvalidInput
	}
	p, err := s.repo.GetByID(ctx, id)
	if err != nil {
		return Patient{}, ErrNotFound
	}
	return p, nil
}

// Exists is used by other domains to validate patient references without
// importing the full service surface.
func (s *Service) Exists(ctx context.Context, id string) (bool, error) {
	_, err := s.GetByID(ctx, id)
	if err != nil {
		if errors.Is(err, ErrNotFound) {
			return false, nil
		}
		return false, err
	}
	return true, nil
}

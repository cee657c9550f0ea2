package audit

import (
	"context"
	"errors"
	"strings"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"
)

var (
	ErrInvalidInput = errors.New("invalid input")
)

// Sink is what the other services depend on. Injecting the sink (rather than
// calling a global) keeps the whole pipeline testable without real I/O.
type Sink interface {
	Record(ctx context.Context, e Entry) error
}

type Service struct {
	repo Repository
	log  *zap.Logger
	now  func() time.Time
}

func NewService(repo Repository, log *zap.Logger) *Service {
	return &Service{
		repo: repo,
		log:  log,
		now:  time.Now,
	}
}

// Record appends an entry, filling ID and RecordedAt. Append failures are
// logged as well as returned: an audit write must never vanish silently.
func (s *Service) Record(ctx context.Context, e Entry) error {
	if strings.TrimSpace(e.Action) == "" || strings.TrimSpace(e.Resource) == "" {
		return ErrInvalidInput
	}

	if e.ID == "" {
		e.ID = uuid.NewString()
	}
	if e.RecordedAt.IsZero() {
		e.RecordedAt = s.now()
	}

	if err := s.repo.Append(ctx, e); err != nil {
		s.log.Error("audit append failed",
			zap.String("action", e.Action),
			zap.String("resource", e.Resource),
			zap.String("resource_id", e.ResourceID),
			zap.Error(err),
		)
		return err
	}
	return nil
}

func (s *Service) ListByResource(ctx context.Context, resource, resourceID string) ([]Entry, error) {
	resource = strings.TrimSpace(resource)
	resourceID = strings.TrimSpace(resourceID)
	if resource == "" || resourceID == "" {
		return nil, ErrInvalidInput
	}
	return s.repo.ListByResource(ctx, resource, resourceID)
}

func (s *Service) ListByUser(ctx context.Context, userID string) ([]Entry, error) {
	userID = strings.TrimSpace(userID)
	if userID == "" {
		return nil, ErrInvalidInput
	}
	return s.repo.ListByUser(ctx, userID)
}

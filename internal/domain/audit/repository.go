package audit

import "context"

type Repository interface {
	Append(ctx context.Context, e Entry) error
	ListByResource(ctx context.Context, resource, resourceID string) ([]Entry, error)
	ListByUser(ctx context.Context, userID string) ([]Entry, error)
}

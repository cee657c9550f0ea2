package postgres

import (
	"context"
	"database/sql"
	"strings"

	"msk-care-coordination/internal/domain/audit"
)

type AuditRepo struct {
	db *sql.DB
}

func NewAuditRepo(db *sql.DB) *AuditRepo {
	return &AuditRepo{db: db}
}

func (r *AuditRepo) Append(ctx context.Context, e audit.Entry) error {
	_, err := r.db.ExecContext(ctx, `
		INSERT INTO audit_entries (
			id, user_id, user_role, action, resource, resource_id, details, recorded_at
		) VALUES ($1,$2,$3,$4,$5,$6,$7,$8)
	`,
		e.ID,
		e.UserID,
		e.UserRole,
		e.Action,
		e.Resource,
		e.ResourceID,
		e.Details,
		e.RecordedAt,
	)
	return err
}

func (r *AuditRepo) ListByResource(ctx context.Context, resource, resourceID string) ([]audit.Entry, error) {
	resource = strings.TrimSpace(resource)
	resourceID = strings.TrimSpace(resourceID)
	if resource == "" || resourceID == "" {
		return nil, nil
	}

	return r.list(ctx, `
		SELECT id, user_id, user_role, action, resource, resource_id, details, recorded_at
		FROM audit_entries
		WHERE resource = $1 AND resource_id = $2
		ORDER BY recorded_at ASC
	`, resource, resourceID)
}

func (r *AuditRepo) ListByUser(ctx context.Context, userID string) ([]audit.Entry, error) {
	userID = strings.TrimSpace(userID)
	if userID == "" {
		return nil, nil
	}

	return r.list(ctx, `
		SELECT id, user_id, user_role, action, resource, resource_id, details, recorded_at
		FROM audit_entries
		WHERE user_id = $1
		ORDER BY recorded_at ASC
	`, userID)
}

func (r *AuditRepo) list(ctx context.Context, query string, args ...any) ([]audit.Entry, error) {
	rows, err := r.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	out := make([]audit.Entry, 0)
	for rows.Next() {
		var e audit.Entry
		if err := rows.Scan(
			&e.ID,
			&e.UserID,
			&e.UserRole,
			&e.Action,
			&e.Resource,
			&e.ResourceID,
			&e.Details,
			&e.RecordedAt,
		); err != nil {
			return nil, err
		}
		out = append(out, e)
	}

	return out, rows.Err()
}

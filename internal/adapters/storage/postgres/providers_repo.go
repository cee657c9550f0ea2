package postgres

import (
	"context"
	"database/sql"
	"encoding/json"
	"strings"

	"msk-care-coordination/internal/domain/pathway"
	"msk-care-coordination/internal/domain/providers"
)

// ProvidersRepo keeps insurers as a jsonb document for the same reason the
// plans repo does: the stdlib pgx driver has no []string scan path.
type ProvidersRepo struct {
	db *sql.DB
}

func NewProvidersRepo(db *sql.DB) *ProvidersRepo {
	return &ProvidersRepo{db: db}
}

func (r *ProvidersRepo) GetByID(ctx context.Context, id string) (providers.Provider, error) {
	id = strings.TrimSpace(id)
	if id == "" {
		return providers.Provider{}, ErrNotFound
	}

	row := r.db.QueryRowContext(ctx, `
		SELECT id, name, discipline, insurers, accepts_new_patients
		FROM providers
		WHERE id = $1
	`, id)

	p, err := scanProvider(row.Scan)
	if err == sql.ErrNoRows {
		return providers.Provider{}, ErrNotFound
	}
	return p, err
}

func (r *ProvidersRepo) ListByDiscipline(ctx context.Context, d pathway.Discipline) ([]providers.Provider, error) {
	rows, err := r.db.QueryContext(ctx, `
		SELECT id, name, discipline, insurers, accepts_new_patients
		FROM providers
		WHERE discipline = $1
		ORDER BY name ASC
	`, string(d))
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	out := make([]providers.Provider, 0)
	for rows.Next() {
		p, err := scanProvider(rows.Scan)
		if err != nil {
			return nil, err
		}
		out = append(out, p)
	}

	return out, rows.Err()
}

func scanProvider(scan func(dest ...any) error) (providers.Provider, error) {
	var p providers.Provider
	var discipline string
	var insurers []byte

	if err := scan(
		&p.ID,
		&p.Name,
		&discipline,
		&insurers,
		&p.AcceptsNewPatients,
	); err != nil {
		return providers.Provider{}, err
	}

	p.Discipline = pathway.Discipline(discipline)
	p.Insurers = make([]string, 0)
	if err := json.Unmarshal(insurers, &p.Insurers); err != nil {
		return providers.Provider{}, err
	}

	return p, nil
}

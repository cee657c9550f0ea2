package postgres

import (
	"context"
	"database/sql"
	"strings"

	"msk-care-coordination/internal/domain/consent"
)

type ConsentsRepo struct {
	db *sql.DB
}

func NewConsentsRepo(db *sql.DB) *ConsentsRepo {
	return &ConsentsRepo{db: db}
}

func (r *ConsentsRepo) Append(ctx context.Context, c consent.Consent) error {
	_, err := r.db.ExecContext(ctx, `
		INSERT INTO consents (
			id, patient_id, consent_type, granted, description, recorded_at
		) VALUES ($1,$2,$3,$4,$5,$6)
	`,
		c.ID,
		c.PatientID,
		string(c.Type),
		c.Granted,
		c.Description,
		c.RecordedAt,
	)
	return err
}

// ListByPatient returns the ledger in append order: recorded_at first, the
// serial insert position as tie-breaker. Latest-wins resolution upstream
// relies on that order.
func (r *ConsentsRepo) ListByPatient(ctx context.Context, patientID string) ([]consent.Consent, error) {
	patientID = strings.TrimSpace(patientID)
	if patientID == "" {
		return nil, nil
	}

	rows, err := r.db.QueryContext(ctx, `
		SELECT id, patient_id, consent_type, granted, description, recorded_at
		FROM consents
		WHERE patient_id = $1
		ORDER BY recorded_at ASC, seq ASC
	`, patientID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	out := make([]consent.Consent, 0)
	for rows.Next() {
		var c consent.Consent
		var consentType string

		if err := rows.Scan(
			&c.ID,
			&c.PatientID,
			&consentType,
			&c.Granted,
			&c.Description,
			&c.RecordedAt,
		); err != nil {
			return nil, err
		}

		c.Type = consent.Type(consentType)
		out = append(out, c)
	}

	return out, rows.Err()
}

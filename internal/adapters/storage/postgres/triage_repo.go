package postgres

import (
	"context"
	"database/sql"
	"encoding/json"
	"strings"

	"msk-care-coordination/internal/domain/pathway"
	"msk-care-coordination/internal/domain/triage"
)

// TriageRepo stores completed sessions. Answers, red flags and pathways are
// JSONB documents: they are read back whole, never queried field by field.
type TriageRepo struct {
	db *sql.DB
}

func NewTriageRepo(db *sql.DB) *TriageRepo {
	return &TriageRepo{db: db}
}

func (r *TriageRepo) Create(ctx context.Context, s triage.Session) error {
	answers, err := json.Marshal(s.Answers)
	if err != nil {
		return err
	}
	redFlags, err := json.Marshal(s.RedFlags)
	if err != nil {
		return err
	}
	pathways, err := json.Marshal(s.CarePathways)
	if err != nil {
		return err
	}

	_, err = r.db.ExecContext(ctx, `
		INSERT INTO triage_sessions (
			id, patient_id, answers, red_flags, has_red_flags, care_pathways, completed_at
		) VALUES ($1,$2,$3,$4,$5,$6,$7)
	`,
		s.ID,
		s.PatientID,
		answers,
		redFlags,
		s.HasRedFlags,
		pathways,
		s.CompletedAt,
	)
	return err
}

func (r *TriageRepo) GetByID(ctx context.Context, id string) (triage.Session, error) {
	id = strings.TrimSpace(id)
	if id == "" {
		return triage.Session{}, ErrNotFound
	}

	row := r.db.QueryRowContext(ctx, `
		SELECT id, patient_id, answers, red_flags, has_red_flags, care_pathways, completed_at
		FROM triage_sessions
		WHERE id = $1
	`, id)

	s, err := scanSession(row.Scan)
	if err == sql.ErrNoRows {
		return triage.Session{}, ErrNotFound
	}
	return s, err
}

func (r *TriageRepo) ListByPatient(ctx context.Context, patientID string) ([]triage.Session, error) {
	patientID = strings.TrimSpace(patientID)
	if patientID == "" {
		return nil, nil
	}

	rows, err := r.db.QueryContext(ctx, `
		SELECT id, patient_id, answers, red_flags, has_red_flags, care_pathways, completed_at
		FROM triage_sessions
		WHERE patient_id = $1
		ORDER BY completed_at ASC
	`, patientID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	out := make([]triage.Session, 0)
	for rows.Next() {
		s, err := scanSession(rows.Scan)
		if err != nil {
			return nil, err
		}
		out = append(out, s)
	}

	return out, rows.Err()
}

func (r *TriageRepo) Update(ctx context.Context, s triage.Session) error {
	pathways, err := json.Marshal(s.CarePathways)
	if err != nil {
		return err
	}

	res, err := r.db.ExecContext(ctx, `
		UPDATE triage_sessions
		SET care_pathways = $2
		WHERE id = $1
	`, s.ID, pathways)
	if err != nil {
		return err
	}
	n, _ := res.RowsAffected()
	if n == 0 {
		return ErrNotFound
	}
	return nil
}

func scanSession(scan func(dest ...any) error) (triage.Session, error) {
	var s triage.Session
	var answers, redFlags, pathways []byte

	if err := scan(
		&s.ID,
		&s.PatientID,
		&answers,
		&redFlags,
		&s.HasRedFlags,
		&pathways,
		&s.CompletedAt,
	); err != nil {
		return triage.Session{}, err
	}

	if err := json.Unmarshal(answers, &s.Answers); err != nil {
		return triage.Session{}, err
	}
	if err := json.Unmarshal(redFlags, &s.RedFlags); err != nil {
		return triage.Session{}, err
	}
	s.CarePathways = make([]pathway.CarePathway, 0)
	if err := json.Unmarshal(pathways, &s.CarePathways); err != nil {
		return triage.Session{}, err
	}

	return s, nil
}

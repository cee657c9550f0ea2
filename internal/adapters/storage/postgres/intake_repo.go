package postgres

import (
	"context"
	"database/sql"
	"encoding/json"
	"strings"

	"msk-care-coordination/internal/domain/intake"
	"msk-care-coordination/internal/domain/pathway"
)

type IntakeRepo struct {
	db *sql.DB
}

func NewIntakeRepo(db *sql.DB) *IntakeRepo {
	return &IntakeRepo{db: db}
}

func (r *IntakeRepo) Create(ctx context.Context, s intake.IntakeSummary) error {
	answers, err := json.Marshal(s.Answers)
	if err != nil {
		return err
	}

	_, err = r.db.ExecContext(ctx, `
		INSERT INTO intake_summaries (
			id, patient_id, triage_session_id, discipline, answers, summary, completed_at
		) VALUES ($1,$2,$3,$4,$5,$6,$7)
	`,
		s.ID,
		s.PatientID,
		s.TriageSessionID,
		string(s.Discipline),
		answers,
		s.Summary,
		s.CompletedAt,
	)
	return err
}

func (r *IntakeRepo) GetByID(ctx context.Context, id string) (intake.IntakeSummary, error) {
	id = strings.TrimSpace(id)
	if id == "" {
		return intake.IntakeSummary{}, ErrNotFound
	}

	row := r.db.QueryRowContext(ctx, `
		SELECT id, patient_id, triage_session_id, discipline, answers, summary, completed_at
		FROM intake_summaries
		WHERE id = $1
	`, id)

	s, err := scanIntake(row.Scan)
	if err == sql.ErrNoRows {
		return intake.IntakeSummary{}, ErrNotFound
	}
	return s, err
}

func (r *IntakeRepo) ListByPatient(ctx context.Context, patientID string) ([]intake.IntakeSummary, error) {
	patientID = strings.TrimSpace(patientID)
	if patientID == "" {
		return nil, nil
	}

	rows, err := r.db.QueryContext(ctx, `
		SELECT id, patient_id, triage_session_id, discipline, answers, summary, completed_at
		FROM intake_summaries
		WHERE patient_id = $1
		ORDER BY completed_at ASC
	`, patientID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	out := make([]intake.IntakeSummary, 0)
	for rows.Next() {
		s, err := scanIntake(rows.Scan)
		if err != nil {
			return nil, err
		}
		out = append(out, s)
	}

	return out, rows.Err()
}

func scanIntake(scan func(dest ...any) error) (intake.IntakeSummary, error) {
	var s intake.IntakeSummary
	var discipline string
	var answers []byte

	if err := scan(
		&s.ID,
		&s.PatientID,
		&s.TriageSessionID,
		&discipline,
		&answers,
		&s.Summary,
		&s.CompletedAt,
	); err != nil {
		return intake.IntakeSummary{}, err
	}

	s.Discipline = pathway.Discipline(discipline)
	if err := json.Unmarshal(answers, &s.Answers); err != nil {
		return intake.IntakeSummary{}, err
	}

	return s, nil
}

package postgres

import (
	"context"
	"database/sql"
	"encoding/json"
	"strings"

	"msk-care-coordination/internal/domain/pathway"
	"msk-care-coordination/internal/domain/plans"
)

// PlansRepo stores goals and disciplines as jsonb documents; the stdlib pgx
// driver cannot scan Postgres arrays into []string.
type PlansRepo struct {
	db *sql.DB
}

func NewPlansRepo(db *sql.DB) *PlansRepo {
	return &PlansRepo{db: db}
}

func (r *PlansRepo) Create(ctx context.Context, p plans.TreatmentPlan) error {
	goals, err := json.Marshal(p.Goals)
	if err != nil {
		return err
	}
	disciplines, err := json.Marshal(p.Disciplines)
	if err != nil {
		return err
	}

	_, err = r.db.ExecContext(ctx, `
		INSERT INTO treatment_plans (
			id, patient_id, coordinator_id, intake_summary_id,
			goals, disciplines, estimated_sessions,
			insurer_approved, declarable, winning_request_id, status,
			created_at, updated_at
		) VALUES ($1,$2,$3,$4,$5,$6,$7,$8,$9,$10,$11,$12,$13)
	`,
		p.ID,
		p.PatientID,
		p.CoordinatorID,
		p.IntakeSummaryID,
		goals,
		disciplines,
		p.EstimatedSessions,
		p.InsurerApproved,
		p.Declarable,
		toNullString(p.WinningRequestID),
		string(p.Status),
		p.CreatedAt,
		p.UpdatedAt,
	)
	return err
}

func (r *PlansRepo) Update(ctx context.Context, p plans.TreatmentPlan) error {
	goals, err := json.Marshal(p.Goals)
	if err != nil {
		return err
	}
	disciplines, err := json.Marshal(p.Disciplines)
	if err != nil {
		return err
	}

	res, err := r.db.ExecContext(ctx, `
		UPDATE treatment_plans
		SET
			goals = $2,
			disciplines = $3,
			estimated_sessions = $4,
			insurer_approved = $5,
			declarable = $6,
			winning_request_id = $7,
			status = $8,
			updated_at = $9
		WHERE id = $1
	`,
		p.ID,
		goals,
		disciplines,
		p.EstimatedSessions,
		p.InsurerApproved,
		p.Declarable,
		toNullString(p.WinningRequestID),
		string(p.Status),
		p.UpdatedAt,
	)
	if err != nil {
		return err
	}
	n, _ := res.RowsAffected()
	if n == 0 {
		return ErrNotFound
	}
	return nil
}

func (r *PlansRepo) GetByID(ctx context.Context, id string) (plans.TreatmentPlan, error) {
	id = strings.TrimSpace(id)
	if id == "" {
		return plans.TreatmentPlan{}, ErrNotFound
	}

	row := r.db.QueryRowContext(ctx, `
		SELECT
			id, patient_id, coordinator_id, intake_summary_id,
			goals, disciplines, estimated_sessions,
			insurer_approved, declarable, winning_request_id, status,
			created_at, updated_at
		FROM treatment_plans
		WHERE id = $1
	`, id)

	p, err := scanPlan(row.Scan)
	if err == sql.ErrNoRows {
		return plans.TreatmentPlan{}, ErrNotFound
	}
	return p, err
}

func (r *PlansRepo) ListByPatient(ctx context.Context, patientID string) ([]plans.TreatmentPlan, error) {
	patientID = strings.TrimSpace(patientID)
	if patientID == "" {
		return nil, nil
	}

	rows, err := r.db.QueryContext(ctx, `
		SELECT
			id, patient_id, coordinator_id, intake_summary_id,
			goals, disciplines, estimated_sessions,
			insurer_approved, declarable, winning_request_id, status,
			created_at, updated_at
		FROM treatment_plans
		WHERE patient_id = $1
		ORDER BY created_at ASC
	`, patientID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	out := make([]plans.TreatmentPlan, 0)
	for rows.Next() {
		p, err := scanPlan(rows.Scan)
		if err != nil {
			return nil, err
		}
		out = append(out, p)
	}

	return out, rows.Err()
}

func scanPlan(scan func(dest ...any) error) (plans.TreatmentPlan, error) {
	var p plans.TreatmentPlan
	var goals, disciplines []byte
	var winningRequestID sql.NullString
	var status string

	if err := scan(
		&p.ID,
		&p.PatientID,
		&p.CoordinatorID,
		&p.IntakeSummaryID,
		&goals,
		&disciplines,
		&p.EstimatedSessions,
		&p.InsurerApproved,
		&p.Declarable,
		&winningRequestID,
		&status,
		&p.CreatedAt,
		&p.UpdatedAt,
	); err != nil {
		return plans.TreatmentPlan{}, err
	}

	p.Status = plans.Status(status)
	p.Goals = make([]string, 0)
	if err := json.Unmarshal(goals, &p.Goals); err != nil {
		return plans.TreatmentPlan{}, err
	}
	p.Disciplines = make([]pathway.Discipline, 0)
	if err := json.Unmarshal(disciplines, &p.Disciplines); err != nil {
		return plans.TreatmentPlan{}, err
	}
	if winningRequestID.Valid {
		s := winningRequestID.String
		p.WinningRequestID = &s
	}

	return p, nil
}

func toNullString(s *string) sql.NullString {
	if s == nil {
		return sql.NullString{Valid: false}
	}
	return sql.NullString{String: *s, Valid: true}
}

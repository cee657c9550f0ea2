package postgres

import (
	"context"
	"database/sql"
	"errors"
	"strings"
	"time"

	"github.com/jackc/pgx/v5/pgconn"

	"msk-care-coordination/internal/domain/carerequests"
	"msk-care-coordination/internal/domain/pathway"
)

type CareRequestsRepo struct {
	db *sql.DB
}

func NewCareRequestsRepo(db *sql.DB) *CareRequestsRepo {
	return &CareRequestsRepo{db: db}
}

func (r *CareRequestsRepo) Create(ctx context.Context, cr carerequests.CareRequest) error {
	_, err := r.db.ExecContext(ctx, `
		INSERT INTO care_requests (
			id, treatment_plan_id, patient_id, provider_id, provider_name,
			discipline, status, sent_at, responded_at, appointment_date
		) VALUES ($1,$2,$3,$4,$5,$6,$7,$8,$9,$10)
	`,
		cr.ID,
		cr.TreatmentPlanID,
		cr.PatientID,
		cr.ProviderID,
		cr.ProviderName,
		string(cr.Discipline),
		string(cr.Status),
		cr.SentAt,
		toNullTime(cr.RespondedAt),
		toNullTime(cr.AppointmentDate),
	)
	return err
}

func (r *CareRequestsRepo) GetByID(ctx context.Context, id string) (carerequests.CareRequest, error) {
	id = strings.TrimSpace(id)
	if id == "" {
		return carerequests.CareRequest{}, carerequests.ErrNotFound
	}

	row := r.db.QueryRowContext(ctx, `
		SELECT
			id, treatment_plan_id, patient_id, provider_id, provider_name,
			discipline, status, sent_at, responded_at, appointment_date
		FROM care_requests
		WHERE id = $1
	`, id)

	cr, err := scanCareRequest(row.Scan)
	if err == sql.ErrNoRows {
		return carerequests.CareRequest{}, carerequests.ErrNotFound
	}
	return cr, err
}

func (r *CareRequestsRepo) ListByPlan(ctx context.Context, treatmentPlanID string) ([]carerequests.CareRequest, error) {
	treatmentPlanID = strings.TrimSpace(treatmentPlanID)
	if treatmentPlanID == "" {
		return nil, nil
	}

	return r.list(ctx, `
		SELECT
			id, treatment_plan_id, patient_id, provider_id, provider_name,
			discipline, status, sent_at, responded_at, appointment_date
		FROM care_requests
		WHERE treatment_plan_id = $1
		ORDER BY sent_at ASC
	`, treatmentPlanID)
}

func (r *CareRequestsRepo) ListByProvider(ctx context.Context, providerID string) ([]carerequests.CareRequest, error) {
	providerID = strings.TrimSpace(providerID)
	if providerID == "" {
		return nil, nil
	}

	return r.list(ctx, `
		SELECT
			id, treatment_plan_id, patient_id, provider_id, provider_name,
			discipline, status, sent_at, responded_at, appointment_date
		FROM care_requests
		WHERE provider_id = $1
		ORDER BY sent_at ASC
	`, providerID)
}

// Resolve runs the first-acceptance-wins critical section inside one
// transaction. Locking every sibling row of the plan (ordered by id, so
// concurrent resolvers queue instead of deadlocking) serializes all accepts
// for that plan; the winner's check and writes then happen with no gap a
// rival accept could slip into.
func (r *CareRequestsRepo) Resolve(ctx context.Context, requestID string, respondedAt time.Time, appointmentDate *time.Time) (carerequests.ResolveOutcome, error) {
	requestID = strings.TrimSpace(requestID)
	if requestID == "" {
		return carerequests.ResolveOutcome{}, carerequests.ErrNotFound
	}

	tx, err := r.db.BeginTx(ctx, nil)
	if err != nil {
		return carerequests.ResolveOutcome{}, mapConflict(err)
	}
	defer func() { _ = tx.Rollback() }()

	var planID string
	err = tx.QueryRowContext(ctx, `
		SELECT treatment_plan_id FROM care_requests WHERE id = $1
	`, requestID).Scan(&planID)
	if err == sql.ErrNoRows {
		return carerequests.ResolveOutcome{}, carerequests.ErrNotFound
	}
	if err != nil {
		return carerequests.ResolveOutcome{}, mapConflict(err)
	}

	rows, err := tx.QueryContext(ctx, `
		SELECT
			id, treatment_plan_id, patient_id, provider_id, provider_name,
			discipline, status, sent_at, responded_at, appointment_date
		FROM care_requests
		WHERE treatment_plan_id = $1
		ORDER BY id ASC
		FOR UPDATE
	`, planID)
	if err != nil {
		return carerequests.ResolveOutcome{}, mapConflict(err)
	}

	var target carerequests.CareRequest
	var siblings []carerequests.CareRequest
	var acceptedSibling bool
	for rows.Next() {
		cr, err := scanCareRequest(rows.Scan)
		if err != nil {
			rows.Close()
			return carerequests.ResolveOutcome{}, err
		}
		if cr.ID == requestID {
			target = cr
			continue
		}
		if cr.Status == carerequests.StatusAccepted {
			acceptedSibling = true
		}
		siblings = append(siblings, cr)
	}
	rows.Close()
	if err := rows.Err(); err != nil {
		return carerequests.ResolveOutcome{}, mapConflict(err)
	}

	if acceptedSibling {
		switch target.Status {
		case carerequests.StatusPending:
			target.Status = carerequests.StatusWithdrawn
			target.RespondedAt = &respondedAt
			if err := r.updateStatus(ctx, tx, target); err != nil {
				return carerequests.ResolveOutcome{}, mapConflict(err)
			}
			if err := tx.Commit(); err != nil {
				return carerequests.ResolveOutcome{}, mapConflict(err)
			}
			return carerequests.ResolveOutcome{Won: false, Request: target}, nil
		case carerequests.StatusWithdrawn:
			return carerequests.ResolveOutcome{Won: false, Request: target}, nil
		default:
			return carerequests.ResolveOutcome{}, carerequests.ErrInvalidTransition
		}
	}

	if target.Status != carerequests.StatusPending {
		return carerequests.ResolveOutcome{}, carerequests.ErrInvalidTransition
	}

	target.Status = carerequests.StatusAccepted
	target.RespondedAt = &respondedAt
	target.AppointmentDate = appointmentDate
	if err := r.updateStatus(ctx, tx, target); err != nil {
		return carerequests.ResolveOutcome{}, mapConflict(err)
	}

	withdrawn := make([]carerequests.CareRequest, 0)
	for _, sibling := range siblings {
		if sibling.Status != carerequests.StatusPending {
			continue
		}
		sibling.Status = carerequests.StatusWithdrawn
		if err := r.updateStatus(ctx, tx, sibling); err != nil {
			return carerequests.ResolveOutcome{}, mapConflict(err)
		}
		withdrawn = append(withdrawn, sibling)
	}

	if err := tx.Commit(); err != nil {
		return carerequests.ResolveOutcome{}, mapConflict(err)
	}

	return carerequests.ResolveOutcome{Won: true, Request: target, Withdrawn: withdrawn}, nil
}

func (r *CareRequestsRepo) Decline(ctx context.Context, requestID string, respondedAt time.Time) (carerequests.CareRequest, error) {
	requestID = strings.TrimSpace(requestID)
	if requestID == "" {
		return carerequests.CareRequest{}, carerequests.ErrNotFound
	}

	tx, err := r.db.BeginTx(ctx, nil)
	if err != nil {
		return carerequests.CareRequest{}, mapConflict(err)
	}
	defer func() { _ = tx.Rollback() }()

	row := tx.QueryRowContext(ctx, `
		SELECT
			id, treatment_plan_id, patient_id, provider_id, provider_name,
			discipline, status, sent_at, responded_at, appointment_date
		FROM care_requests
		WHERE id = $1
		FOR UPDATE
	`, requestID)

	cr, err := scanCareRequest(row.Scan)
	if err == sql.ErrNoRows {
		return carerequests.CareRequest{}, carerequests.ErrNotFound
	}
	if err != nil {
		return carerequests.CareRequest{}, mapConflict(err)
	}
	if cr.Status != carerequests.StatusPending {
		return carerequests.CareRequest{}, carerequests.ErrInvalidTransition
	}

	cr.Status = carerequests.StatusDeclined
	cr.RespondedAt = &respondedAt
	if err := r.updateStatus(ctx, tx, cr); err != nil {
		return carerequests.CareRequest{}, mapConflict(err)
	}
	if err := tx.Commit(); err != nil {
		return carerequests.CareRequest{}, mapConflict(err)
	}

	return cr, nil
}

func (r *CareRequestsRepo) updateStatus(ctx context.Context, tx *sql.Tx, cr carerequests.CareRequest) error {
	_, err := tx.ExecContext(ctx, `
		UPDATE care_requests
		SET status = $2, responded_at = $3, appointment_date = $4
		WHERE id = $1
	`,
		cr.ID,
		string(cr.Status),
		toNullTime(cr.RespondedAt),
		toNullTime(cr.AppointmentDate),
	)
	return err
}

func (r *CareRequestsRepo) list(ctx context.Context, query string, args ...any) ([]carerequests.CareRequest, error) {
	rows, err := r.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	out := make([]carerequests.CareRequest, 0)
	for rows.Next() {
		cr, err := scanCareRequest(rows.Scan)
		if err != nil {
			return nil, err
		}
		out = append(out, cr)
	}

	return out, rows.Err()
}

func scanCareRequest(scan func(dest ...any) error) (carerequests.CareRequest, error) {
	var cr carerequests.CareRequest
	var discipline, status string
	var respondedAt, appointmentDate sql.NullTime

	if err := scan(
		&cr.ID,
		&cr.TreatmentPlanID,
		&cr.PatientID,
		&cr.ProviderID,
		&cr.ProviderName,
		&discipline,
		&status,
		&cr.SentAt,
		&respondedAt,
		&appointmentDate,
	); err != nil {
		return carerequests.CareRequest{}, err
	}

	cr.Discipline = pathway.Discipline(discipline)
	cr.Status = carerequests.Status(status)
	cr.RespondedAt = fromNullTime(respondedAt)
	cr.AppointmentDate = fromNullTime(appointmentDate)
	return cr, nil
}

// mapConflict turns Postgres serialization and deadlock failures into the
// domain's retryable conflict; everything else passes through.
func mapConflict(err error) error {
	var pgErr *pgconn.PgError
	if errors.As(err, &pgErr) {
		switch pgErr.Code {
		case "40001", "40P01":
			return carerequests.ErrConflict
		}
	}
	return err
}

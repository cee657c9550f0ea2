package postgres

import (
	"context"
	"database/sql"
	"strings"

	"msk-care-coordination/internal/domain/patients"
)

type PatientsRepo struct {
	db *sql.DB
}

func NewPatientsRepo(db *sql.DB) *PatientsRepo {
	return &PatientsRepo{db: db}
}

func (r *PatientsRepo) Create(ctx context.Context, p patients.Patient) error {
	_, err := r.db.ExecContext(ctx, `
		INSERT INTO patients (
			id, first_name, last_name, email, birth_date, insurer, created_at
		) VALUES ($1,$2,$3,$4,$5,$6,$7)
	`,
		p.ID,
		p.FirstName,
		p.LastName,
		p.Email,
		toNullTime(p.BirthDate),
		p.Insurer,
		p.CreatedAt,
	)
	return err
}

func (r *PatientsRepo) GetByID(ctx context.Context, id string) (patients.Patient, error) {
	id = strings.TrimSpace(id)
	if id == "" {
		return patients.Patient{}, ErrNotFound
	}

	row := r.db.QueryRowContext(ctx, `
		SELECT id, first_name, last_name, email, birth_date, insurer, created_at
		FROM patients
		WHERE id = $1
	`, id)

	var p patients.Patient
	var birthDate sql.NullTime

	if err := row.Scan(
		&p.ID,
		&p.FirstName,
		&p.LastName,
		&p.Email,
		&birthDate,
		&p.Insurer,
		&p.CreatedAt,
	); err != nil {
		if err == sql.ErrNoRows {
			return patients.Patient{}, ErrNotFound
		}
		return patients.Patient{}, err
	}

	p.BirthDate = fromNullTime(birthDate)
	return p, nil
}

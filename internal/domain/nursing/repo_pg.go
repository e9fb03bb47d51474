package nursing

import (
	"context"
	"errors"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/medicore/hms/internal/platform/db"
)

type queryable interface {
	Query(ctx context.Context, sql string, args ...interface{}) (pgx.Rows, error)
	QueryRow(ctx context.Context, sql string, args ...interface{}) pgx.Row
	Exec(ctx context.Context, sql string, args ...interface{}) (pgconn.CommandTag, error)
}

type medicationRepoPG struct{ pool *pgxpool.Pool }

func NewMedicationRepoPG(pool *pgxpool.Pool) MedicationRepository {
	return &medicationRepoPG{pool: pool}
}

func (r *medicationRepoPG) conn(ctx context.Context) queryable {
	if tx := db.TxFromContext(ctx); tx != nil {
		return tx
	}
	return r.pool
}

const medicationCols = `id, case_id, medication, dose, route, status,
	scheduled_at, given_at, given_by, created_at`

func scanRecord(row pgx.Row) (*MedicationRecord, error) {
	var m MedicationRecord
	err := row.Scan(&m.ID, &m.CaseID, &m.Medication, &m.Dose, &m.Route, &m.Status,
		&m.ScheduledAt, &m.GivenAt, &m.GivenBy, &m.CreatedAt)
	if err != nil {
		return nil, err
	}
	return &m, nil
}

func (r *medicationRepoPG) Create(ctx context.Context, m *MedicationRecord) error {
	m.ID = uuid.New()
	_, err := r.conn(ctx).Exec(ctx, `
		INSERT INTO medication_records (id, case_id, medication, dose, route, status, scheduled_at)
		VALUES ($1,$2,$3,$4,$5,$6,$7)`,
		m.ID, m.CaseID, m.Medication, m.Dose, m.Route, m.Status, m.ScheduledAt)
	return err
}

func (r *medicationRepoPG) GetByID(ctx context.Context, id uuid.UUID) (*MedicationRecord, error) {
	m, err := scanRecord(r.conn(ctx).QueryRow(ctx,
		`SELECT `+medicationCols+` FROM medication_records WHERE id = $1`, id))
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, ErrRecordNotFound
	}
	return m, err
}

func (r *medicationRepoPG) Update(ctx context.Context, m *MedicationRecord) error {
	_, err := r.conn(ctx).Exec(ctx, `
		UPDATE medication_records SET status=$2, scheduled_at=$3, given_at=$4, given_by=$5
		WHERE id = $1`,
		m.ID, m.Status, m.ScheduledAt, m.GivenAt, m.GivenBy)
	return err
}

func (r *medicationRepoPG) ListByCase(ctx context.Context, caseID uuid.UUID) ([]*MedicationRecord, error) {
	rows, err := r.conn(ctx).Query(ctx, `
		SELECT `+medicationCols+` FROM medication_records
		WHERE case_id = $1 ORDER BY scheduled_at`, caseID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var out []*MedicationRecord
	for rows.Next() {
		m, err := scanRecord(rows)
		if err != nil {
			return nil, err
		}
		out = append(out, m)
	}
	return out, rows.Err()
}

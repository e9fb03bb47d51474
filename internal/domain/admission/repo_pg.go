package admission

import (
	"context"
	"errors"
	"fmt"

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

type caseRepoPG struct{ pool *pgxpool.Pool }

func NewCaseRepoPG(pool *pgxpool.Pool) CaseRepository { return &caseRepoPG{pool: pool} }

func (r *caseRepoPG) conn(ctx context.Context) queryable {
	if tx := db.TxFromContext(ctx); tx != nil {
		return tx
	}
	return r.pool
}

const caseCols = `id, case_number, hospital_id, patient_id, doctor_id, status,
	bed_id, bed_assigned_at, has_insurance, insurer_id, insurance_status,
	admitted_at, discharged_at, created_at, updated_at`

func scanCase(row pgx.Row) (*Case, error) {
	var c Case
	err := row.Scan(&c.ID, &c.CaseNumber, &c.HospitalID, &c.PatientID, &c.DoctorID, &c.Status,
		&c.BedID, &c.BedAssignedAt, &c.HasInsurance, &c.InsurerID, &c.InsuranceStatus,
		&c.AdmittedAt, &c.DischargedAt, &c.CreatedAt, &c.UpdatedAt)
	if err != nil {
		return nil, err
	}
	return &c, nil
}

func (r *caseRepoPG) Create(ctx context.Context, c *Case) error {
	c.ID = uuid.New()
	_, err := r.conn(ctx).Exec(ctx, `
		INSERT INTO cases (id, case_number, hospital_id, patient_id, doctor_id, status,
			bed_id, bed_assigned_at, has_insurance, insurer_id, insurance_status,
			admitted_at, discharged_at)
		VALUES ($1,$2,$3,$4,$5,$6,$7,$8,$9,$10,$11,$12,$13)`,
		c.ID, c.CaseNumber, c.HospitalID, c.PatientID, c.DoctorID, c.Status,
		c.BedID, c.BedAssignedAt, c.HasInsurance, c.InsurerID, c.InsuranceStatus,
		c.AdmittedAt, c.DischargedAt)
	return err
}

func (r *caseRepoPG) GetByID(ctx context.Context, id uuid.UUID) (*Case, error) {
	c, err := scanCase(r.conn(ctx).QueryRow(ctx,
		`SELECT `+caseCols+` FROM cases WHERE id = $1`, id))
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, ErrCaseNotFound
	}
	return c, err
}

func (r *caseRepoPG) Update(ctx context.Context, c *Case) error {
	_, err := r.conn(ctx).Exec(ctx, `
		UPDATE cases SET status=$2, bed_id=$3, bed_assigned_at=$4,
			has_insurance=$5, insurer_id=$6, insurance_status=$7,
			discharged_at=$8, updated_at=NOW()
		WHERE id = $1`,
		c.ID, c.Status, c.BedID, c.BedAssignedAt,
		c.HasInsurance, c.InsurerID, c.InsuranceStatus,
		c.DischargedAt)
	return err
}

func (r *caseRepoPG) ListByHospital(ctx context.Context, hospitalID uuid.UUID, status CaseStatus, limit, offset int) ([]*Case, int, error) {
	q := r.conn(ctx)

	where := `hospital_id = $1`
	args := []interface{}{hospitalID}
	if status != "" {
		where += ` AND status = $2`
		args = append(args, status)
	}

	var total int
	if err := q.QueryRow(ctx, `SELECT COUNT(*) FROM cases WHERE `+where, args...).Scan(&total); err != nil {
		return nil, 0, err
	}

	args = append(args, limit, offset)
	rows, err := q.Query(ctx, fmt.Sprintf(`
		SELECT %s FROM cases WHERE %s
		ORDER BY admitted_at DESC LIMIT $%d OFFSET $%d`,
		caseCols, where, len(args)-1, len(args)), args...)
	if err != nil {
		return nil, 0, err
	}
	defer rows.Close()

	var out []*Case
	for rows.Next() {
		c, err := scanCase(rows)
		if err != nil {
			return nil, 0, err
		}
		out = append(out, c)
	}
	return out, total, rows.Err()
}

func (r *caseRepoPG) ListOccupied(ctx context.Context) ([]*Case, error) {
	rows, err := r.conn(ctx).Query(ctx, `
		SELECT `+caseCols+` FROM cases
		WHERE status = $1 AND bed_id IS NOT NULL
		ORDER BY admitted_at`, CaseActive)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var out []*Case
	for rows.Next() {
		c, err := scanCase(rows)
		if err != nil {
			return nil, err
		}
		out = append(out, c)
	}
	return out, rows.Err()
}

func (r *caseRepoPG) NextCaseNumber(ctx context.Context) (string, error) {
	var n int64
	if err := r.conn(ctx).QueryRow(ctx, `SELECT nextval('case_number_seq')`).Scan(&n); err != nil {
		return "", err
	}
	return fmt.Sprintf("CASE-%06d", n), nil
}

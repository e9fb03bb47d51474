package billing

import (
	"context"
	"errors"
	"fmt"
	"time"

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

type billRepoPG struct{ pool *pgxpool.Pool }

func NewBillRepoPG(pool *pgxpool.Pool) BillRepository { return &billRepoPG{pool: pool} }

func (r *billRepoPG) conn(ctx context.Context) queryable {
	if tx := db.TxFromContext(ctx); tx != nil {
		return tx
	}
	return r.pool
}

const billCols = `id, case_id, hospital_id, patient_id, doctor_id, invoice_number,
	gross, net, paid, outstanding, status, payment_mode,
	discount_type, discount_value, discount_amount, discount_reason, discount_applied_by, discount_applied_at,
	is_live, last_billed_at, created_at, updated_at`

func scanBill(row pgx.Row) (*Bill, error) {
	var b Bill
	var dType, dReason, dAppliedBy *string
	var dValue, dAmount *float64
	var dAppliedAt *time.Time
	err := row.Scan(&b.ID, &b.CaseID, &b.HospitalID, &b.PatientID, &b.DoctorID, &b.InvoiceNumber,
		&b.Gross, &b.Net, &b.Paid, &b.Outstanding, &b.Status, &b.PaymentMode,
		&dType, &dValue, &dAmount, &dReason, &dAppliedBy, &dAppliedAt,
		&b.IsLive, &b.LastBilledAt, &b.CreatedAt, &b.UpdatedAt)
	if err != nil {
		return nil, err
	}
	if dType != nil {
		b.Discount = &Discount{Type: DiscountType(*dType)}
		if dValue != nil {
			b.Discount.Value = *dValue
		}
		if dAmount != nil {
			b.Discount.Amount = *dAmount
		}
		if dReason != nil {
			b.Discount.Reason = *dReason
		}
		if dAppliedBy != nil {
			b.Discount.AppliedBy = *dAppliedBy
		}
		if dAppliedAt != nil {
			b.Discount.AppliedAt = *dAppliedAt
		}
	}
	return &b, nil
}

func (r *billRepoPG) loadChildren(ctx context.Context, b *Bill) error {
	q := r.conn(ctx)

	rows, err := q.Query(ctx, `
		SELECT id, bill_id, service_id, category, details, quantity, rate, amount, recurring, billed_date, created_at
		FROM bill_items WHERE bill_id = $1 ORDER BY created_at, id`, b.ID)
	if err != nil {
		return err
	}
	defer rows.Close()
	for rows.Next() {
		var it ServiceLineItem
		if err := rows.Scan(&it.ID, &it.BillID, &it.ServiceID, &it.Category, &it.Details,
			&it.Quantity, &it.Rate, &it.Amount, &it.Recurring, &it.BilledDate, &it.CreatedAt); err != nil {
			return err
		}
		b.Items = append(b.Items, &it)
	}
	if err := rows.Err(); err != nil {
		return err
	}

	prows, err := q.Query(ctx, `
		SELECT id, bill_id, amount, mode, reference, received_by, paid_at
		FROM bill_payments WHERE bill_id = $1 ORDER BY paid_at, id`, b.ID)
	if err != nil {
		return err
	}
	defer prows.Close()
	for prows.Next() {
		var p Payment
		if err := prows.Scan(&p.ID, &p.BillID, &p.Amount, &p.Mode, &p.Reference, &p.ReceivedBy, &p.PaidAt); err != nil {
			return err
		}
		b.Payments = append(b.Payments, &p)
	}
	return prows.Err()
}

func (r *billRepoPG) getBill(ctx context.Context, where string, arg interface{}, forUpdate bool) (*Bill, error) {
	sql := `SELECT ` + billCols + ` FROM bills WHERE ` + where + ` = $1`
	if forUpdate {
		sql += ` FOR UPDATE`
	}
	b, err := scanBill(r.conn(ctx).QueryRow(ctx, sql, arg))
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, ErrBillNotFound
	}
	if err != nil {
		return nil, err
	}
	if err := r.loadChildren(ctx, b); err != nil {
		return nil, err
	}
	return b, nil
}

func (r *billRepoPG) GetByID(ctx context.Context, id uuid.UUID) (*Bill, error) {
	return r.getBill(ctx, "id", id, false)
}

func (r *billRepoPG) GetByCase(ctx context.Context, caseID uuid.UUID) (*Bill, error) {
	return r.getBill(ctx, "case_id", caseID, false)
}

// WithCase runs fn against the case's bill under a row lock. Writers to the
// same case serialize here. When two transactions race to create the first
// bill for a case, the loser hits the unique index on case_id; one retry then
// finds and locks the winner's row. The retry only applies when WithCase owns
// the transaction: joined to a caller's transaction the failed insert has
// already aborted it, so the violation surfaces to the caller instead.
func (r *billRepoPG) WithCase(ctx context.Context, caseID uuid.UUID, fn func(ctx context.Context, b *Bill) (*Bill, error)) (*Bill, error) {
	bill, err := r.withCaseOnce(ctx, caseID, fn)
	if isUniqueViolation(err) && db.TxFromContext(ctx) == nil {
		return r.withCaseOnce(ctx, caseID, fn)
	}
	return bill, err
}

func (r *billRepoPG) withCaseOnce(ctx context.Context, caseID uuid.UUID, fn func(ctx context.Context, b *Bill) (*Bill, error)) (*Bill, error) {
	var result *Bill
	err := db.WithTx(ctx, r.pool, func(ctx context.Context) error {
		bill, err := r.getBill(ctx, "case_id", caseID, true)
		if err != nil && !errors.Is(err, ErrBillNotFound) {
			return err
		}
		if errors.Is(err, ErrBillNotFound) {
			bill = nil
		}

		existed := bill != nil
		before := snapshotItemIDs(bill)

		updated, err := fn(ctx, bill)
		if err != nil {
			return err
		}

		if err := r.persist(ctx, updated, existed, before); err != nil {
			return err
		}
		result = updated
		return nil
	})
	if err != nil {
		return nil, err
	}
	return result, nil
}

func (r *billRepoPG) WithBill(ctx context.Context, billID uuid.UUID, fn func(ctx context.Context, b *Bill) (*Bill, error)) (*Bill, error) {
	var result *Bill
	err := db.WithTx(ctx, r.pool, func(ctx context.Context) error {
		bill, err := r.getBill(ctx, "id", billID, true)
		if err != nil {
			return err
		}

		before := snapshotItemIDs(bill)
		updated, err := fn(ctx, bill)
		if err != nil {
			return err
		}

		if err := r.persist(ctx, updated, true, before); err != nil {
			return err
		}
		result = updated
		return nil
	})
	if err != nil {
		return nil, err
	}
	return result, nil
}

func snapshotItemIDs(b *Bill) map[uuid.UUID]bool {
	ids := make(map[uuid.UUID]bool)
	if b == nil {
		return ids
	}
	for _, it := range b.Items {
		ids[it.ID] = true
	}
	return ids
}

// persist writes the bill row and reconciles its children against the
// in-memory state: new items and payments are inserted, surviving items are
// updated, and items dropped by fn are deleted.
func (r *billRepoPG) persist(ctx context.Context, b *Bill, existed bool, before map[uuid.UUID]bool) error {
	q := r.conn(ctx)

	var dType, dReason, dAppliedBy *string
	var dValue, dAmount *float64
	var dAppliedAt interface{}
	if b.Discount != nil {
		t := string(b.Discount.Type)
		dType = &t
		dValue = &b.Discount.Value
		dAmount = &b.Discount.Amount
		dReason = &b.Discount.Reason
		dAppliedBy = &b.Discount.AppliedBy
		dAppliedAt = b.Discount.AppliedAt
	}

	if !existed {
		_, err := q.Exec(ctx, `
			INSERT INTO bills (id, case_id, hospital_id, patient_id, doctor_id, invoice_number,
				gross, net, paid, outstanding, status, payment_mode,
				discount_type, discount_value, discount_amount, discount_reason, discount_applied_by, discount_applied_at,
				is_live, last_billed_at)
			VALUES ($1,$2,$3,$4,$5,$6,$7,$8,$9,$10,$11,$12,$13,$14,$15,$16,$17,$18,$19,$20)`,
			b.ID, b.CaseID, b.HospitalID, b.PatientID, b.DoctorID, b.InvoiceNumber,
			b.Gross, b.Net, b.Paid, b.Outstanding, b.Status, b.PaymentMode,
			dType, dValue, dAmount, dReason, dAppliedBy, dAppliedAt,
			b.IsLive, b.LastBilledAt)
		if err != nil {
			return err
		}
	} else {
		_, err := q.Exec(ctx, `
			UPDATE bills SET gross=$2, net=$3, paid=$4, outstanding=$5, status=$6, payment_mode=$7,
				discount_type=$8, discount_value=$9, discount_amount=$10, discount_reason=$11,
				discount_applied_by=$12, discount_applied_at=$13,
				is_live=$14, last_billed_at=$15, updated_at=NOW()
			WHERE id = $1`,
			b.ID, b.Gross, b.Net, b.Paid, b.Outstanding, b.Status, b.PaymentMode,
			dType, dValue, dAmount, dReason, dAppliedBy, dAppliedAt,
			b.IsLive, b.LastBilledAt)
		if err != nil {
			return err
		}
	}

	kept := make(map[uuid.UUID]bool, len(b.Items))
	for _, it := range b.Items {
		if it.ID == uuid.Nil {
			it.ID = uuid.New()
			it.BillID = b.ID
			_, err := q.Exec(ctx, `
				INSERT INTO bill_items (id, bill_id, service_id, category, details, quantity, rate, amount, recurring, billed_date)
				VALUES ($1,$2,$3,$4,$5,$6,$7,$8,$9,$10)`,
				it.ID, it.BillID, it.ServiceID, it.Category, it.Details,
				it.Quantity, it.Rate, it.Amount, it.Recurring, it.BilledDate)
			if err != nil {
				return err
			}
		} else {
			_, err := q.Exec(ctx, `
				UPDATE bill_items SET category=$2, details=$3, quantity=$4, rate=$5, amount=$6
				WHERE id = $1`,
				it.ID, it.Category, it.Details, it.Quantity, it.Rate, it.Amount)
			if err != nil {
				return err
			}
		}
		kept[it.ID] = true
	}
	for id := range before {
		if !kept[id] {
			if _, err := q.Exec(ctx, `DELETE FROM bill_items WHERE id = $1`, id); err != nil {
				return err
			}
		}
	}

	for _, p := range b.Payments {
		if p.ID != uuid.Nil {
			continue
		}
		p.ID = uuid.New()
		p.BillID = b.ID
		_, err := q.Exec(ctx, `
			INSERT INTO bill_payments (id, bill_id, amount, mode, reference, received_by, paid_at)
			VALUES ($1,$2,$3,$4,$5,$6,$7)`,
			p.ID, p.BillID, p.Amount, p.Mode, p.Reference, p.ReceivedBy, p.PaidAt)
		if err != nil {
			return err
		}
	}

	return nil
}

func (r *billRepoPG) ListByHospital(ctx context.Context, hospitalID uuid.UUID, limit, offset int) ([]*Bill, int, error) {
	q := r.conn(ctx)
	var total int
	if err := q.QueryRow(ctx, `SELECT COUNT(*) FROM bills WHERE hospital_id = $1`, hospitalID).Scan(&total); err != nil {
		return nil, 0, err
	}

	rows, err := q.Query(ctx, `
		SELECT `+billCols+` FROM bills
		WHERE hospital_id = $1 ORDER BY created_at DESC LIMIT $2 OFFSET $3`,
		hospitalID, limit, offset)
	if err != nil {
		return nil, 0, err
	}
	defer rows.Close()

	var out []*Bill
	for rows.Next() {
		b, err := scanBill(rows)
		if err != nil {
			return nil, 0, err
		}
		out = append(out, b)
	}
	if err := rows.Err(); err != nil {
		return nil, 0, err
	}

	for _, b := range out {
		if err := r.loadChildren(ctx, b); err != nil {
			return nil, 0, err
		}
	}
	return out, total, nil
}

func (r *billRepoPG) NextInvoiceNumber(ctx context.Context) (string, error) {
	var n int64
	if err := r.conn(ctx).QueryRow(ctx, `SELECT nextval('invoice_number_seq')`).Scan(&n); err != nil {
		return "", err
	}
	return fmt.Sprintf("INV-%06d", n), nil
}

func isUniqueViolation(err error) bool {
	var pgErr *pgconn.PgError
	return errors.As(err, &pgErr) && pgErr.Code == "23505"
}

package billing

import (
	"context"
	"errors"

	"github.com/google/uuid"
)

var ErrBillNotFound = errors.New("bill not found")

// CaseRef carries the identifying fields a bill inherits from its case when
// it is first created.
type CaseRef struct {
	HospitalID uuid.UUID
	PatientID  uuid.UUID
	DoctorID   *uuid.UUID
}

// BillRepository stores bills with their lines, discount and payments.
//
// WithCase and WithBill are the mutation points: each loads the bill with a
// row lock inside a transaction, hands it to fn, and persists whatever fn
// returns. Concurrent writers to the same case serialize on the lock, so fn
// always sees the latest committed state. WithCase passes nil when no bill
// exists yet, letting the caller create one lazily; WithBill fails with
// ErrBillNotFound instead.
type BillRepository interface {
	WithCase(ctx context.Context, caseID uuid.UUID, fn func(ctx context.Context, b *Bill) (*Bill, error)) (*Bill, error)
	WithBill(ctx context.Context, billID uuid.UUID, fn func(ctx context.Context, b *Bill) (*Bill, error)) (*Bill, error)
	GetByCase(ctx context.Context, caseID uuid.UUID) (*Bill, error)
	GetByID(ctx context.Context, id uuid.UUID) (*Bill, error)
	ListByHospital(ctx context.Context, hospitalID uuid.UUID, limit, offset int) ([]*Bill, int, error)
	// NextInvoiceNumber draws a new number from the hospital-wide invoice
	// sequence.
	NextInvoiceNumber(ctx context.Context) (string, error)
}

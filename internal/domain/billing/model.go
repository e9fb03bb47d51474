package billing

import (
	"time"

	"github.com/google/uuid"
)

type BillStatus string

const (
	StatusUnpaid BillStatus = "unpaid"
	StatusPaid   BillStatus = "paid"
)

type DiscountType string

const (
	DiscountPercentage DiscountType = "percentage"
	DiscountFlat       DiscountType = "flat"
)

// Discount is the single concession on a bill. Applying a new discount
// replaces the previous one; discounts never stack.
type Discount struct {
	Type      DiscountType `json:"type"`
	Value     float64      `json:"value"`
	Amount    float64      `json:"amount"`
	Reason    string       `json:"reason,omitempty"`
	AppliedBy string       `json:"applied_by,omitempty"`
	AppliedAt time.Time    `json:"applied_at"`
}

// ServiceLineItem is one priced line on a bill. Recurring lines carry a
// BilledDate; the pair (category, billed date) identifies a recurring line,
// so merging the same day twice is a no-op.
type ServiceLineItem struct {
	ID         uuid.UUID  `json:"id"`
	BillID     uuid.UUID  `json:"bill_id"`
	ServiceID  *uuid.UUID `json:"service_id,omitempty"`
	Category   string     `json:"category"`
	Details    string     `json:"details,omitempty"`
	Quantity   float64    `json:"quantity"`
	Rate       float64    `json:"rate"`
	Amount     float64    `json:"amount"`
	Recurring  bool       `json:"recurring"`
	BilledDate *time.Time `json:"billed_date,omitempty"`
	CreatedAt  time.Time  `json:"created_at"`
}

// Payment is one receipt against a bill. The payment list is append-only.
type Payment struct {
	ID         uuid.UUID `json:"id"`
	BillID     uuid.UUID `json:"bill_id"`
	Amount     float64   `json:"amount"`
	Mode       string    `json:"mode"`
	Reference  string    `json:"reference,omitempty"`
	ReceivedBy string    `json:"received_by,omitempty"`
	PaidAt     time.Time `json:"paid_at"`
}

// Bill is the single financial ledger for a case. Every monetary total is
// derived from the line items, discount and payments; stored totals are a
// cache of Recompute's output, never hand-edited.
type Bill struct {
	ID            uuid.UUID  `json:"id"`
	CaseID        uuid.UUID  `json:"case_id"`
	HospitalID    uuid.UUID  `json:"hospital_id"`
	PatientID     uuid.UUID  `json:"patient_id"`
	DoctorID      *uuid.UUID `json:"doctor_id,omitempty"`
	InvoiceNumber string     `json:"invoice_number"`

	Items    []*ServiceLineItem `json:"items"`
	Discount *Discount          `json:"discount,omitempty"`
	Payments []*Payment         `json:"payments"`

	Gross       float64    `json:"gross"`
	Net         float64    `json:"net"`
	Paid        float64    `json:"paid"`
	Outstanding float64    `json:"outstanding"`
	Status      BillStatus `json:"status"`
	PaymentMode string     `json:"payment_mode,omitempty"`

	// IsLive marks a bill still accumulating recurring charges. Discharge
	// flips it off so the daily cycle and the terminal stay charge can
	// never both bill the same stay.
	IsLive       bool       `json:"is_live"`
	LastBilledAt *time.Time `json:"last_billed_at,omitempty"`

	CreatedAt time.Time `json:"created_at"`
	UpdatedAt time.Time `json:"updated_at"`
}

// Recompute rederives every total from the bill's lines, discount and
// payments. Gross is the sum of line amounts, the discount is clamped to
// [0, gross], net subtracts it, and the bill is paid exactly when nothing
// remains outstanding.
func (b *Bill) Recompute() {
	var gross float64
	for _, it := range b.Items {
		it.Amount = it.Rate * it.Quantity
		gross += it.Amount
	}
	b.Gross = gross

	var discount float64
	if b.Discount != nil {
		switch b.Discount.Type {
		case DiscountPercentage:
			discount = gross * b.Discount.Value / 100
		case DiscountFlat:
			discount = b.Discount.Value
		}
		if discount < 0 {
			discount = 0
		}
		if discount > gross {
			discount = gross
		}
		b.Discount.Amount = discount
	}
	b.Net = gross - discount

	var paid float64
	for _, p := range b.Payments {
		paid += p.Amount
	}
	b.Paid = paid
	b.Outstanding = b.Net - paid

	if b.Outstanding <= 0 {
		b.Status = StatusPaid
	} else {
		b.Status = StatusUnpaid
	}
}

// FindRecurring returns the recurring line for a category on a given day, or
// nil. Comparison is by calendar date.
func (b *Bill) FindRecurring(category string, day time.Time) *ServiceLineItem {
	for _, it := range b.Items {
		if !it.Recurring || it.BilledDate == nil || it.Category != category {
			continue
		}
		if sameDate(*it.BilledDate, day) {
			return it
		}
	}
	return nil
}

func sameDate(a, b time.Time) bool {
	ay, am, ad := a.Date()
	by, bm, bd := b.Date()
	return ay == by && am == bm && ad == bd
}

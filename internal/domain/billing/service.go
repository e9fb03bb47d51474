package billing

import (
	"context"
	"fmt"
	"time"

	"github.com/google/uuid"

	"github.com/medicore/hms/internal/domain/catalog"
)

// Service owns every mutation of the bill ledger. Charges from clinical
// workflows, walk-in invoices, edits, discounts, payments and insurance
// repricing all funnel through here so totals are always recomputed in one
// place.
type Service struct {
	bills BillRepository
	rates catalog.Resolver
}

func NewService(bills BillRepository, rates catalog.Resolver) *Service {
	return &Service{bills: bills, rates: rates}
}

func (s *Service) GetBill(ctx context.Context, id uuid.UUID) (*Bill, error) {
	return s.bills.GetByID(ctx, id)
}

func (s *Service) GetBillForCase(ctx context.Context, caseID uuid.UUID) (*Bill, error) {
	return s.bills.GetByCase(ctx, caseID)
}

func (s *Service) ListBills(ctx context.Context, hospitalID uuid.UUID, limit, offset int) ([]*Bill, int, error) {
	return s.bills.ListByHospital(ctx, hospitalID, limit, offset)
}

// MergeCharges appends line items to the case's bill, creating the bill on
// first contact. An invoice number is drawn exactly once, at creation.
// Recurring items already present for their (category, billed date) are
// silently skipped, which makes re-delivery of the same charge a no-op.
func (s *Service) MergeCharges(ctx context.Context, caseID uuid.UUID, ref CaseRef, items []*ServiceLineItem) (*Bill, error) {
	return s.bills.WithCase(ctx, caseID, func(ctx context.Context, bill *Bill) (*Bill, error) {
		if bill == nil {
			created, err := newBill(ctx, s.bills, caseID, ref)
			if err != nil {
				return nil, err
			}
			bill = created
		}

		for _, it := range items {
			if it.Recurring && it.BilledDate != nil && bill.FindRecurring(it.Category, *it.BilledDate) != nil {
				continue
			}
			it.BillID = bill.ID
			bill.Items = append(bill.Items, it)
		}

		bill.Recompute()
		return bill, nil
	})
}

// EnsureBill creates the case's bill if it does not exist yet. Bed assignment
// calls this so the invoice number is drawn at admission and discharge always
// has a bill to close, even before the first charge lands.
func (s *Service) EnsureBill(ctx context.Context, caseID uuid.UUID, ref CaseRef) (*Bill, error) {
	return s.MergeCharges(ctx, caseID, ref, nil)
}

// CreateWalkIn opens a bill for a case from explicit line items, resolving
// the rate for any item that does not carry one.
func (s *Service) CreateWalkIn(ctx context.Context, caseID uuid.UUID, ref CaseRef, payer catalog.PayerContext, items []*ServiceLineItem) (*Bill, error) {
	if len(items) == 0 {
		return nil, fmt.Errorf("at least one line item is required")
	}
	for _, it := range items {
		if err := validateItem(it); err != nil {
			return nil, err
		}
		if it.Rate == 0 {
			rate, err := s.rates.Resolve(ctx, ref.HospitalID, it.Category, payer, nil)
			if err != nil {
				return nil, fmt.Errorf("price %q: %w", it.Category, err)
			}
			it.Rate = rate
		}
	}
	return s.MergeCharges(ctx, caseID, ref, items)
}

// ReplaceServices swaps the bill's entire line set for the given items and
// recomputes. Used by the invoice edit screen.
func (s *Service) ReplaceServices(ctx context.Context, billID uuid.UUID, items []*ServiceLineItem) (*Bill, error) {
	for _, it := range items {
		if err := validateItem(it); err != nil {
			return nil, err
		}
	}
	return s.bills.WithBill(ctx, billID, func(ctx context.Context, bill *Bill) (*Bill, error) {
		bill.Items = nil
		for _, it := range items {
			it.BillID = bill.ID
			bill.Items = append(bill.Items, it)
		}
		bill.Recompute()
		return bill, nil
	})
}

// AddExpense appends a single ad hoc line to an existing bill.
func (s *Service) AddExpense(ctx context.Context, billID uuid.UUID, item *ServiceLineItem) (*Bill, error) {
	if err := validateItem(item); err != nil {
		return nil, err
	}
	return s.bills.WithBill(ctx, billID, func(ctx context.Context, bill *Bill) (*Bill, error) {
		item.BillID = bill.ID
		bill.Items = append(bill.Items, item)
		bill.Recompute()
		return bill, nil
	})
}

// ApplyDiscount sets the bill's discount, replacing any previous one. The
// effective amount is clamped during recompute so a discount can never push
// net below zero.
func (s *Service) ApplyDiscount(ctx context.Context, billID uuid.UUID, d Discount) (*Bill, error) {
	switch d.Type {
	case DiscountPercentage:
		if d.Value < 0 || d.Value > 100 {
			return nil, fmt.Errorf("percentage discount must be between 0 and 100")
		}
	case DiscountFlat:
		if d.Value < 0 {
			return nil, fmt.Errorf("flat discount must not be negative")
		}
	default:
		return nil, fmt.Errorf("unknown discount type %q", d.Type)
	}

	return s.bills.WithBill(ctx, billID, func(ctx context.Context, bill *Bill) (*Bill, error) {
		if d.AppliedAt.IsZero() {
			d.AppliedAt = time.Now()
		}
		bill.Discount = &d
		bill.Recompute()
		return bill, nil
	})
}

// AddPayment records a receipt against the bill. Payments only accumulate;
// the bill flips to paid when they cover the net amount.
func (s *Service) AddPayment(ctx context.Context, billID uuid.UUID, p *Payment) (*Bill, error) {
	if p.Amount <= 0 {
		return nil, fmt.Errorf("payment amount must be positive")
	}
	if p.Mode == "" {
		return nil, fmt.Errorf("payment mode is required")
	}

	return s.bills.WithBill(ctx, billID, func(ctx context.Context, bill *Bill) (*Bill, error) {
		if p.PaidAt.IsZero() {
			p.PaidAt = time.Now()
		}
		p.BillID = bill.ID
		bill.Payments = append(bill.Payments, p)
		bill.PaymentMode = p.Mode
		bill.Recompute()
		return bill, nil
	})
}

// RecalculateForInsuranceChange reprices the case's existing lines against
// the payer's effective rate table. Lines whose category is absent from the
// table keep their current rate, so running this twice with the same payer
// changes nothing. Returns the net total before and after.
func (s *Service) RecalculateForInsuranceChange(ctx context.Context, caseID uuid.UUID, hospitalID uuid.UUID, payer catalog.PayerContext) (float64, float64, error) {
	rateMap, err := s.rates.RateMap(ctx, hospitalID, payer)
	if err != nil {
		return 0, 0, fmt.Errorf("build rate map: %w", err)
	}

	var before float64
	bill, err := s.bills.WithCase(ctx, caseID, func(ctx context.Context, bill *Bill) (*Bill, error) {
		if bill == nil {
			return nil, ErrBillNotFound
		}
		before = bill.Net
		for _, it := range bill.Items {
			if rate, ok := rateMap[it.Category]; ok {
				it.Rate = rate
			}
		}
		bill.Recompute()
		return bill, nil
	})
	if err != nil {
		return 0, 0, err
	}
	return before, bill.Net, nil
}

// SetLive flips recurring accumulation for the case's bill.
func (s *Service) SetLive(ctx context.Context, caseID uuid.UUID, live bool) (*Bill, error) {
	return s.bills.WithCase(ctx, caseID, func(ctx context.Context, bill *Bill) (*Bill, error) {
		if bill == nil {
			return nil, ErrBillNotFound
		}
		bill.IsLive = live
		return bill, nil
	})
}

// newBill builds a fresh live bill for a case, drawing its invoice number.
// Called from inside a WithCase closure so creation shares the caller's
// transaction.
func newBill(ctx context.Context, bills BillRepository, caseID uuid.UUID, ref CaseRef) (*Bill, error) {
	inv, err := bills.NextInvoiceNumber(ctx)
	if err != nil {
		return nil, fmt.Errorf("allocate invoice number: %w", err)
	}
	return &Bill{
		ID:            uuid.New(),
		CaseID:        caseID,
		HospitalID:    ref.HospitalID,
		PatientID:     ref.PatientID,
		DoctorID:      ref.DoctorID,
		InvoiceNumber: inv,
		Status:        StatusUnpaid,
		IsLive:        true,
	}, nil
}

func validateItem(it *ServiceLineItem) error {
	if it.Category == "" {
		return fmt.Errorf("line item category is required")
	}
	if it.Quantity <= 0 {
		return fmt.Errorf("line item quantity must be positive")
	}
	if it.Rate < 0 {
		return fmt.Errorf("line item rate must not be negative")
	}
	return nil
}

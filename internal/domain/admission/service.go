package admission

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"

	"github.com/medicore/hms/internal/domain/billing"
	"github.com/medicore/hms/internal/domain/catalog"
	"github.com/medicore/hms/internal/platform/db"
)

// Biller is the slice of the billing service admission depends on.
type Biller interface {
	EnsureBill(ctx context.Context, caseID uuid.UUID, ref billing.CaseRef) (*billing.Bill, error)
	MergeCharges(ctx context.Context, caseID uuid.UUID, ref billing.CaseRef, items []*billing.ServiceLineItem) (*billing.Bill, error)
	SetLive(ctx context.Context, caseID uuid.UUID, live bool) (*billing.Bill, error)
	RecalculateForInsuranceChange(ctx context.Context, caseID uuid.UUID, hospitalID uuid.UUID, payer catalog.PayerContext) (float64, float64, error)
}

type Service struct {
	cases   CaseRepository
	beds    catalog.RoomRepository
	biller  Biller
	charges *billing.ChargeBuilder
	tx      db.TxRunner
}

func NewService(cases CaseRepository, beds catalog.RoomRepository, biller Biller, charges *billing.ChargeBuilder, tx db.TxRunner) *Service {
	return &Service{cases: cases, beds: beds, biller: biller, charges: charges, tx: tx}
}

func (s *Service) GetCase(ctx context.Context, id uuid.UUID) (*Case, error) {
	return s.cases.GetByID(ctx, id)
}

func (s *Service) ListCases(ctx context.Context, hospitalID uuid.UUID, status CaseStatus, limit, offset int) ([]*Case, int, error) {
	return s.cases.ListByHospital(ctx, hospitalID, status, limit, offset)
}

// OpenCase registers a new case. Insurance starts pending when an insurer is
// named, so insurer rates never apply before approval.
func (s *Service) OpenCase(ctx context.Context, c *Case) error {
	if c.HospitalID == uuid.Nil || c.PatientID == uuid.Nil {
		return fmt.Errorf("hospital_id and patient_id are required")
	}

	num, err := s.cases.NextCaseNumber(ctx)
	if err != nil {
		return fmt.Errorf("allocate case number: %w", err)
	}
	c.CaseNumber = num
	c.Status = CaseActive
	if c.AdmittedAt.IsZero() {
		c.AdmittedAt = time.Now()
	}
	c.HasInsurance = c.InsurerID != nil
	if c.HasInsurance {
		if c.InsuranceStatus == "" || c.InsuranceStatus == catalog.ApprovalNone {
			c.InsuranceStatus = catalog.ApprovalPending
		}
	} else {
		c.InsuranceStatus = catalog.ApprovalNone
	}

	return s.cases.Create(ctx, c)
}

// AssignBed puts the case in a bed, marks the bed occupied, and makes sure a
// live bill exists so the nightly cycle has something to charge. All inside
// one transaction.
func (s *Service) AssignBed(ctx context.Context, caseID, bedID uuid.UUID) (*Case, error) {
	var result *Case
	err := s.tx.WithTx(ctx, func(ctx context.Context) error {
		c, err := s.cases.GetByID(ctx, caseID)
		if err != nil {
			return err
		}
		if c.Status != CaseActive {
			return ErrCaseNotActive
		}
		if c.BedID != nil {
			return ErrBedAlreadyAssigned
		}

		bed, err := s.beds.GetBed(ctx, bedID)
		if err != nil {
			return fmt.Errorf("load bed: %w", err)
		}
		if bed.Occupied {
			return ErrBedOccupied
		}

		if err := s.beds.SetBedOccupied(ctx, bedID, true); err != nil {
			return fmt.Errorf("occupy bed: %w", err)
		}

		now := time.Now()
		c.BedID = &bedID
		c.BedAssignedAt = &now
		if err := s.cases.Update(ctx, c); err != nil {
			return err
		}

		if _, err := s.biller.EnsureBill(ctx, c.ID, caseRef(c)); err != nil {
			return fmt.Errorf("ensure bill: %w", err)
		}

		result = c
		return nil
	})
	if err != nil {
		return nil, err
	}
	return result, nil
}

// Discharge closes the case. When a bed was held, the whole stay is billed
// as one terminal charge from the bed's configured rate, the bill stops
// accumulating daily lines, and the bed is freed. Charge and status change
// commit together or not at all.
func (s *Service) Discharge(ctx context.Context, caseID uuid.UUID, at time.Time) (*Case, error) {
	if at.IsZero() {
		at = time.Now()
	}

	var result *Case
	err := s.tx.WithTx(ctx, func(ctx context.Context) error {
		c, err := s.cases.GetByID(ctx, caseID)
		if err != nil {
			return err
		}
		if c.Status != CaseActive {
			return ErrCaseNotActive
		}
		if at.Before(c.AdmittedAt) {
			return billing.ErrDateInconsistency
		}

		if c.BedID != nil {
			bed, err := s.beds.GetBed(ctx, *c.BedID)
			if err != nil {
				return fmt.Errorf("load bed: %w", err)
			}

			assignedAt := c.AdmittedAt
			if c.BedAssignedAt != nil {
				assignedAt = *c.BedAssignedAt
			}
			item, err := s.charges.BedCharge(bed, assignedAt, at)
			if err != nil {
				return err
			}
			if _, err := s.biller.MergeCharges(ctx, c.ID, caseRef(c), []*billing.ServiceLineItem{item}); err != nil {
				return fmt.Errorf("bill stay: %w", err)
			}

			if err := s.beds.SetBedOccupied(ctx, *c.BedID, false); err != nil {
				return fmt.Errorf("free bed: %w", err)
			}
			c.BedID = nil
			c.BedAssignedAt = nil
		}

		// Stop recurring accumulation. A case that never had a bill has
		// nothing to close.
		if _, err := s.biller.SetLive(ctx, c.ID, false); err != nil && !errors.Is(err, billing.ErrBillNotFound) {
			return err
		}

		c.Status = CaseDischarged
		c.DischargedAt = &at
		if err := s.cases.Update(ctx, c); err != nil {
			return err
		}
		result = c
		return nil
	})
	if err != nil {
		return nil, err
	}
	return result, nil
}

// SetInsuranceStatus moves the case's claim through its lifecycle and
// reprices the existing bill against the now-effective rate table. Returns
// the bill's net total before and after.
func (s *Service) SetInsuranceStatus(ctx context.Context, caseID uuid.UUID, status catalog.ApprovalStatus, insurerID *uuid.UUID) (*Case, float64, float64, error) {
	switch status {
	case catalog.ApprovalNone, catalog.ApprovalPending, catalog.ApprovalApproved, catalog.ApprovalRejected:
	default:
		return nil, 0, 0, fmt.Errorf("unknown insurance status %q", status)
	}

	var (
		result         *Case
		oldNet, newNet float64
	)
	err := s.tx.WithTx(ctx, func(ctx context.Context) error {
		c, err := s.cases.GetByID(ctx, caseID)
		if err != nil {
			return err
		}

		if insurerID != nil {
			c.InsurerID = insurerID
		}
		c.InsuranceStatus = status
		c.HasInsurance = c.InsurerID != nil && status != catalog.ApprovalNone
		if err := s.cases.Update(ctx, c); err != nil {
			return err
		}

		oldNet, newNet, err = s.biller.RecalculateForInsuranceChange(ctx, c.ID, c.HospitalID, c.Payer())
		if errors.Is(err, billing.ErrBillNotFound) {
			// No bill yet; future charges will pick up the new rates.
			oldNet, newNet = 0, 0
		} else if err != nil {
			return err
		}

		result = c
		return nil
	})
	if err != nil {
		return nil, 0, 0, err
	}
	return result, oldNet, newNet, nil
}

// FindOccupied implements the occupancy listing the daily charge cycle
// consumes.
func (s *Service) FindOccupied(ctx context.Context) ([]*billing.Occupancy, error) {
	cases, err := s.cases.ListOccupied(ctx)
	if err != nil {
		return nil, fmt.Errorf("list occupied cases: %w", err)
	}

	out := make([]*billing.Occupancy, 0, len(cases))
	for _, c := range cases {
		if c.BedID == nil {
			continue
		}
		bed, err := s.beds.GetBed(ctx, *c.BedID)
		if err != nil {
			return nil, fmt.Errorf("load bed for case %s: %w", c.CaseNumber, err)
		}
		assignedAt := c.AdmittedAt
		if c.BedAssignedAt != nil {
			assignedAt = *c.BedAssignedAt
		}
		out = append(out, &billing.Occupancy{
			CaseID:        c.ID,
			Ref:           caseRef(c),
			Payer:         c.Payer(),
			Bed:           bed,
			BedAssignedAt: assignedAt,
		})
	}
	return out, nil
}

func caseRef(c *Case) billing.CaseRef {
	return billing.CaseRef{HospitalID: c.HospitalID, PatientID: c.PatientID, DoctorID: c.DoctorID}
}

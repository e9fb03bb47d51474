package nursing

import (
	"context"
	"fmt"
	"time"

	"github.com/google/uuid"

	"github.com/medicore/hms/internal/domain/admission"
	"github.com/medicore/hms/internal/domain/billing"
	"github.com/medicore/hms/internal/platform/db"
)

// CaseDirectory looks up the case a medication record belongs to.
type CaseDirectory interface {
	GetCase(ctx context.Context, id uuid.UUID) (*admission.Case, error)
}

// Biller is the slice of the billing service nursing depends on.
type Biller interface {
	MergeCharges(ctx context.Context, caseID uuid.UUID, ref billing.CaseRef, items []*billing.ServiceLineItem) (*billing.Bill, error)
}

type Service struct {
	records MedicationRepository
	cases   CaseDirectory
	biller  Biller
	charges *billing.ChargeBuilder
	tx      db.TxRunner
}

func NewService(records MedicationRepository, cases CaseDirectory, biller Biller, charges *billing.ChargeBuilder, tx db.TxRunner) *Service {
	return &Service{records: records, cases: cases, biller: biller, charges: charges, tx: tx}
}

func (s *Service) Get(ctx context.Context, id uuid.UUID) (*MedicationRecord, error) {
	return s.records.GetByID(ctx, id)
}

func (s *Service) ListByCase(ctx context.Context, caseID uuid.UUID) ([]*MedicationRecord, error) {
	return s.records.ListByCase(ctx, caseID)
}

// Schedule puts a dose on the medication plan. Nothing is billed yet.
func (s *Service) Schedule(ctx context.Context, r *MedicationRecord) error {
	if r.CaseID == uuid.Nil || r.Medication == "" {
		return fmt.Errorf("case_id and medication are required")
	}

	cs, err := s.cases.GetCase(ctx, r.CaseID)
	if err != nil {
		return err
	}
	if cs.Status != admission.CaseActive {
		return admission.ErrCaseNotActive
	}

	r.Status = MedicationScheduled
	if r.ScheduledAt.IsZero() {
		r.ScheduledAt = time.Now()
	}
	return s.records.Create(ctx, r)
}

// MarkGiven records the administration and bills the dose in the same
// transaction. A record can only go from scheduled to given, so a dose is
// never billed twice.
func (s *Service) MarkGiven(ctx context.Context, id uuid.UUID, givenBy string) (*MedicationRecord, error) {
	var result *MedicationRecord
	err := s.tx.WithTx(ctx, func(ctx context.Context) error {
		r, err := s.records.GetByID(ctx, id)
		if err != nil {
			return err
		}
		if r.Status != MedicationScheduled {
			return ErrNotScheduled
		}

		cs, err := s.cases.GetCase(ctx, r.CaseID)
		if err != nil {
			return err
		}

		item, err := s.charges.MedicationCharge(ctx, cs.HospitalID, cs.Payer(), r.Medication)
		if err != nil {
			return err
		}
		ref := billing.CaseRef{HospitalID: cs.HospitalID, PatientID: cs.PatientID, DoctorID: cs.DoctorID}
		if _, err := s.biller.MergeCharges(ctx, r.CaseID, ref, []*billing.ServiceLineItem{item}); err != nil {
			return fmt.Errorf("bill medication: %w", err)
		}

		now := time.Now()
		r.Status = MedicationGiven
		r.GivenAt = &now
		r.GivenBy = givenBy
		if err := s.records.Update(ctx, r); err != nil {
			return err
		}
		result = r
		return nil
	})
	if err != nil {
		return nil, err
	}
	return result, nil
}

// Reschedule moves a pending dose to a new time without billing.
func (s *Service) Reschedule(ctx context.Context, id uuid.UUID, at time.Time) (*MedicationRecord, error) {
	r, err := s.records.GetByID(ctx, id)
	if err != nil {
		return nil, err
	}
	if r.Status != MedicationScheduled {
		return nil, ErrNotScheduled
	}

	r.ScheduledAt = at
	if err := s.records.Update(ctx, r); err != nil {
		return nil, err
	}
	return r, nil
}

// Skip marks a pending dose as not given. Skipped doses are never billed.
func (s *Service) Skip(ctx context.Context, id uuid.UUID) (*MedicationRecord, error) {
	r, err := s.records.GetByID(ctx, id)
	if err != nil {
		return nil, err
	}
	if r.Status != MedicationScheduled {
		return nil, ErrNotScheduled
	}

	r.Status = MedicationSkipped
	if err := s.records.Update(ctx, r); err != nil {
		return nil, err
	}
	return r, nil
}

package consultation

import (
	"context"
	"fmt"
	"time"

	"github.com/google/uuid"

	"github.com/medicore/hms/internal/domain/admission"
	"github.com/medicore/hms/internal/domain/billing"
	"github.com/medicore/hms/internal/domain/catalog"
	"github.com/medicore/hms/internal/platform/db"
)

// CaseDirectory looks up the case a consultation belongs to. Implemented by
// the admission service.
type CaseDirectory interface {
	GetCase(ctx context.Context, id uuid.UUID) (*admission.Case, error)
}

// Biller is the slice of the billing service consultations depend on.
type Biller interface {
	MergeCharges(ctx context.Context, caseID uuid.UUID, ref billing.CaseRef, items []*billing.ServiceLineItem) (*billing.Bill, error)
}

type Service struct {
	consultations ConsultationRepository
	cases         CaseDirectory
	doctors       catalog.DoctorRepository
	biller        Biller
	charges       *billing.ChargeBuilder
	tx            db.TxRunner
}

func NewService(consultations ConsultationRepository, cases CaseDirectory, doctors catalog.DoctorRepository, biller Biller, charges *billing.ChargeBuilder, tx db.TxRunner) *Service {
	return &Service{
		consultations: consultations,
		cases:         cases,
		doctors:       doctors,
		biller:        biller,
		charges:       charges,
		tx:            tx,
	}
}

func (s *Service) Get(ctx context.Context, id uuid.UUID) (*Consultation, error) {
	return s.consultations.GetByID(ctx, id)
}

func (s *Service) ListByCase(ctx context.Context, caseID uuid.UUID) ([]*Consultation, error) {
	return s.consultations.ListByCase(ctx, caseID)
}

// Schedule opens a consultation. Nothing is billed until completion.
func (s *Service) Schedule(ctx context.Context, c *Consultation) error {
	if c.CaseID == uuid.Nil || c.DoctorID == uuid.Nil {
		return fmt.Errorf("case_id and doctor_id are required")
	}

	cs, err := s.cases.GetCase(ctx, c.CaseID)
	if err != nil {
		return err
	}
	if cs.Status != admission.CaseActive {
		return admission.ErrCaseNotActive
	}

	if c.Kind == "" {
		c.Kind = KindStandard
	}
	c.Status = StatusOpen
	return s.consultations.Create(ctx, c)
}

// Refer opens a follow-up consultation with another doctor, linked back to
// the originating one. The referral stays free until its own completion.
func (s *Service) Refer(ctx context.Context, fromID, doctorID uuid.UUID, departmentID *uuid.UUID, notes string) (*Consultation, error) {
	from, err := s.consultations.GetByID(ctx, fromID)
	if err != nil {
		return nil, err
	}

	referral := &Consultation{
		CaseID:       from.CaseID,
		DoctorID:     doctorID,
		DepartmentID: departmentID,
		Kind:         KindReferral,
		Notes:        notes,
		ReferredFrom: &from.ID,
	}
	if err := s.Schedule(ctx, referral); err != nil {
		return nil, err
	}
	return referral, nil
}

// Complete closes the consultation and puts its charge on the case's bill in
// the same transaction: either both happen or neither does. Completing an
// already completed consultation fails, so a consultation can never be
// charged twice.
func (s *Service) Complete(ctx context.Context, id uuid.UUID) (*Consultation, error) {
	var result *Consultation
	err := s.tx.WithTx(ctx, func(ctx context.Context) error {
		c, err := s.consultations.GetByID(ctx, id)
		if err != nil {
			return err
		}
		if c.Status == StatusCompleted {
			return ErrAlreadyCompleted
		}

		cs, err := s.cases.GetCase(ctx, c.CaseID)
		if err != nil {
			return err
		}

		doctor, err := s.doctors.GetByID(ctx, c.DoctorID)
		if err != nil {
			return fmt.Errorf("load doctor: %w", err)
		}

		item, err := s.charges.ConsultationCharge(ctx, cs.HospitalID, cs.Payer(), c.DepartmentID, doctor.Name)
		if err != nil {
			return err
		}
		ref := billing.CaseRef{HospitalID: cs.HospitalID, PatientID: cs.PatientID, DoctorID: cs.DoctorID}
		if _, err := s.biller.MergeCharges(ctx, c.CaseID, ref, []*billing.ServiceLineItem{item}); err != nil {
			return fmt.Errorf("bill consultation: %w", err)
		}

		now := time.Now()
		c.Status = StatusCompleted
		c.CompletedAt = &now
		if err := s.consultations.Update(ctx, c); err != nil {
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

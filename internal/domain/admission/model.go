package admission

import (
	"errors"
	"time"

	"github.com/google/uuid"

	"github.com/medicore/hms/internal/domain/catalog"
)

var (
	ErrCaseNotFound       = errors.New("case not found")
	ErrCaseNotActive      = errors.New("case is not active")
	ErrBedOccupied        = errors.New("bed is already occupied")
	ErrBedAlreadyAssigned = errors.New("case already has a bed assigned")
)

type CaseStatus string

const (
	CaseActive     CaseStatus = "active"
	CaseDischarged CaseStatus = "discharged"
)

// Case is one patient journey through the hospital, from admission or
// walk-in registration to discharge. All charges for the journey land on the
// case's single bill.
type Case struct {
	ID         uuid.UUID  `json:"id"`
	CaseNumber string     `json:"case_number"`
	HospitalID uuid.UUID  `json:"hospital_id"`
	PatientID  uuid.UUID  `json:"patient_id"`
	DoctorID   *uuid.UUID `json:"doctor_id,omitempty"`
	Status     CaseStatus `json:"status"`

	BedID         *uuid.UUID `json:"bed_id,omitempty"`
	BedAssignedAt *time.Time `json:"bed_assigned_at,omitempty"`

	HasInsurance    bool                   `json:"has_insurance"`
	InsurerID       *uuid.UUID             `json:"insurer_id,omitempty"`
	InsuranceStatus catalog.ApprovalStatus `json:"insurance_status"`

	AdmittedAt   time.Time  `json:"admitted_at"`
	DischargedAt *time.Time `json:"discharged_at,omitempty"`

	CreatedAt time.Time `json:"created_at"`
	UpdatedAt time.Time `json:"updated_at"`
}

// Payer derives the pricing context from the case's insurance standing.
func (c *Case) Payer() catalog.PayerContext {
	return catalog.PayerContext{
		HasInsurance: c.HasInsurance,
		Status:       c.InsuranceStatus,
		InsurerID:    c.InsurerID,
	}
}

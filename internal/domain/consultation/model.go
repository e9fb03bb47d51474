package consultation

import (
	"errors"
	"time"

	"github.com/google/uuid"
)

var (
	ErrConsultationNotFound = errors.New("consultation not found")
	ErrAlreadyCompleted     = errors.New("consultation already completed")
)

type Status string

const (
	StatusOpen      Status = "open"
	StatusCompleted Status = "completed"
)

type Kind string

const (
	KindStandard Kind = "standard"
	KindReferral Kind = "referral"
)

// Consultation is one doctor visit within a case. A consultation is billed
// exactly once, at completion; open consultations, including internal
// referrals that never happen, cost nothing.
type Consultation struct {
	ID           uuid.UUID  `json:"id"`
	CaseID       uuid.UUID  `json:"case_id"`
	DoctorID     uuid.UUID  `json:"doctor_id"`
	DepartmentID *uuid.UUID `json:"department_id,omitempty"`
	Kind         Kind       `json:"kind"`
	Status       Status     `json:"status"`
	Notes        string     `json:"notes,omitempty"`

	// ReferredFrom links a referral back to the consultation that spawned
	// it.
	ReferredFrom *uuid.UUID `json:"referred_from,omitempty"`

	CreatedAt   time.Time  `json:"created_at"`
	CompletedAt *time.Time `json:"completed_at,omitempty"`
}

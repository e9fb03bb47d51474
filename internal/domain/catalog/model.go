package catalog

import (
	"errors"
	"time"

	"github.com/google/uuid"
)

// ErrRateNotFound is returned when no rate card covers a charge category for
// the requesting hospital, in any scope.
var ErrRateNotFound = errors.New("no rate configured for category")

type Hospital struct {
	ID        uuid.UUID `json:"id"`
	Name      string    `json:"name"`
	Address   string    `json:"address,omitempty"`
	Phone     string    `json:"phone,omitempty"`
	CreatedAt time.Time `json:"created_at"`
	UpdatedAt time.Time `json:"updated_at"`
}

type Department struct {
	ID         uuid.UUID `json:"id"`
	HospitalID uuid.UUID `json:"hospital_id"`
	Name       string    `json:"name"`
	CreatedAt  time.Time `json:"created_at"`
}

type Doctor struct {
	ID           uuid.UUID  `json:"id"`
	HospitalID   uuid.UUID  `json:"hospital_id"`
	DepartmentID *uuid.UUID `json:"department_id,omitempty"`
	Name         string     `json:"name"`
	Specialty    string     `json:"specialty,omitempty"`
	CreatedAt    time.Time  `json:"created_at"`
}

type Patient struct {
	ID         uuid.UUID  `json:"id"`
	HospitalID uuid.UUID  `json:"hospital_id"`
	Name       string     `json:"name"`
	Phone      string     `json:"phone,omitempty"`
	Gender     string     `json:"gender,omitempty"`
	BirthDate  *time.Time `json:"birth_date,omitempty"`
	CreatedAt  time.Time  `json:"created_at"`
	UpdatedAt  time.Time  `json:"updated_at"`
}

type Insurer struct {
	ID        uuid.UUID `json:"id"`
	Name      string    `json:"name"`
	Code      string    `json:"code,omitempty"`
	CreatedAt time.Time `json:"created_at"`
}

// RateScope distinguishes a hospital's default price list from an
// insurer-negotiated one.
type RateScope string

const (
	ScopeHospital RateScope = "hospital"
	ScopeInsurer  RateScope = "insurer"
)

// RateCard prices one charge category. DepartmentID narrows the card to a
// single department; a nil DepartmentID card applies hospital-wide within its
// scope. Insurer-scope cards must carry an InsurerID.
type RateCard struct {
	ID           uuid.UUID  `json:"id"`
	HospitalID   uuid.UUID  `json:"hospital_id"`
	Scope        RateScope  `json:"scope"`
	InsurerID    *uuid.UUID `json:"insurer_id,omitempty"`
	Category     string     `json:"category"`
	DepartmentID *uuid.UUID `json:"department_id,omitempty"`
	Rate         float64    `json:"rate"`
	CreatedAt    time.Time  `json:"created_at"`
	UpdatedAt    time.Time  `json:"updated_at"`
}

// Room groups beds. The room name doubles as the charge category for daily
// occupancy billing, so renaming a room changes how its charges appear on
// bills.
type Room struct {
	ID         uuid.UUID `json:"id"`
	HospitalID uuid.UUID `json:"hospital_id"`
	Name       string    `json:"name"`
	CreatedAt  time.Time `json:"created_at"`
}

type Bed struct {
	ID        uuid.UUID `json:"id"`
	RoomID    uuid.UUID `json:"room_id"`
	Number    string    `json:"number"`
	DailyRate float64   `json:"daily_rate"`
	Occupied  bool      `json:"occupied"`
	CreatedAt time.Time `json:"created_at"`

	// RoomName is populated on reads that join the room, not stored on the
	// beds table itself.
	RoomName string `json:"room_name,omitempty"`
}

// ApprovalStatus tracks where an insurance claim stands for a case.
type ApprovalStatus string

const (
	ApprovalNone     ApprovalStatus = "none"
	ApprovalPending  ApprovalStatus = "pending"
	ApprovalApproved ApprovalStatus = "approved"
	ApprovalRejected ApprovalStatus = "rejected"
)

// PayerContext describes who ultimately pays for a case's charges. Insurer
// pricing only applies once the claim is approved; pending and rejected
// claims bill at hospital rates.
type PayerContext struct {
	HasInsurance bool
	Status       ApprovalStatus
	InsurerID    *uuid.UUID
}

// InsurerActive reports whether insurer-negotiated rates should be used.
func (p PayerContext) InsurerActive() bool {
	return p.HasInsurance && p.Status == ApprovalApproved && p.InsurerID != nil
}

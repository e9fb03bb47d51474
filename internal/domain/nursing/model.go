package nursing

import (
	"errors"
	"time"

	"github.com/google/uuid"
)

var (
	ErrRecordNotFound = errors.New("medication record not found")
	ErrNotScheduled   = errors.New("medication record is not scheduled")
)

type MedicationStatus string

const (
	MedicationScheduled MedicationStatus = "scheduled"
	MedicationGiven     MedicationStatus = "given"
	MedicationSkipped   MedicationStatus = "skipped"
)

// MedicationRecord is one planned administration on the medication schedule.
// A record is billed exactly once, when the dose is actually given; skipped
// or rescheduled doses cost nothing.
type MedicationRecord struct {
	ID         uuid.UUID        `json:"id"`
	CaseID     uuid.UUID        `json:"case_id"`
	Medication string           `json:"medication"`
	Dose       string           `json:"dose,omitempty"`
	Route      string           `json:"route,omitempty"`
	Status     MedicationStatus `json:"status"`

	ScheduledAt time.Time  `json:"scheduled_at"`
	GivenAt     *time.Time `json:"given_at,omitempty"`
	GivenBy     string     `json:"given_by,omitempty"`

	CreatedAt time.Time `json:"created_at"`
}

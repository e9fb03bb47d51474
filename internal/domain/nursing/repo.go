package nursing

import (
	"context"

	"github.com/google/uuid"
)

type MedicationRepository interface {
	Create(ctx context.Context, r *MedicationRecord) error
	GetByID(ctx context.Context, id uuid.UUID) (*MedicationRecord, error)
	Update(ctx context.Context, r *MedicationRecord) error
	ListByCase(ctx context.Context, caseID uuid.UUID) ([]*MedicationRecord, error)
}

package admission

import (
	"context"

	"github.com/google/uuid"
)

type CaseRepository interface {
	Create(ctx context.Context, c *Case) error
	GetByID(ctx context.Context, id uuid.UUID) (*Case, error)
	Update(ctx context.Context, c *Case) error
	ListByHospital(ctx context.Context, hospitalID uuid.UUID, status CaseStatus, limit, offset int) ([]*Case, int, error)
	// ListOccupied returns active cases currently holding a bed, across all
	// hospitals. The nightly charge cycle iterates this.
	ListOccupied(ctx context.Context) ([]*Case, error)
	// NextCaseNumber draws a new number from the case sequence.
	NextCaseNumber(ctx context.Context) (string, error)
}

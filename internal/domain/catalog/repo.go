package catalog

import (
	"context"

	"github.com/google/uuid"
)

type HospitalRepository interface {
	Create(ctx context.Context, h *Hospital) error
	GetByID(ctx context.Context, id uuid.UUID) (*Hospital, error)
	List(ctx context.Context, limit, offset int) ([]*Hospital, int, error)
}

type DepartmentRepository interface {
	Create(ctx context.Context, d *Department) error
	GetByID(ctx context.Context, id uuid.UUID) (*Department, error)
	ListByHospital(ctx context.Context, hospitalID uuid.UUID) ([]*Department, error)
}

type DoctorRepository interface {
	Create(ctx context.Context, d *Doctor) error
	GetByID(ctx context.Context, id uuid.UUID) (*Doctor, error)
	ListByHospital(ctx context.Context, hospitalID uuid.UUID, limit, offset int) ([]*Doctor, int, error)
}

type PatientRepository interface {
	Create(ctx context.Context, p *Patient) error
	GetByID(ctx context.Context, id uuid.UUID) (*Patient, error)
	Update(ctx context.Context, p *Patient) error
	ListByHospital(ctx context.Context, hospitalID uuid.UUID, limit, offset int) ([]*Patient, int, error)
}

type InsurerRepository interface {
	Create(ctx context.Context, i *Insurer) error
	GetByID(ctx context.Context, id uuid.UUID) (*Insurer, error)
	List(ctx context.Context) ([]*Insurer, error)
}

type RateCardRepository interface {
	Create(ctx context.Context, rc *RateCard) error
	Update(ctx context.Context, rc *RateCard) error
	Delete(ctx context.Context, id uuid.UUID) error
	GetByID(ctx context.Context, id uuid.UUID) (*RateCard, error)
	// ListByCategory returns every card pricing the category for the
	// hospital, across both scopes.
	ListByCategory(ctx context.Context, hospitalID uuid.UUID, category string) ([]*RateCard, error)
	// ListAllByHospital returns every card for the hospital, unpaginated.
	// Used to build the rate map for insurance re-resolution.
	ListAllByHospital(ctx context.Context, hospitalID uuid.UUID) ([]*RateCard, error)
	ListByHospital(ctx context.Context, hospitalID uuid.UUID, limit, offset int) ([]*RateCard, int, error)
}

type RoomRepository interface {
	CreateRoom(ctx context.Context, r *Room) error
	GetRoom(ctx context.Context, id uuid.UUID) (*Room, error)
	ListRooms(ctx context.Context, hospitalID uuid.UUID) ([]*Room, error)
	CreateBed(ctx context.Context, b *Bed) error
	// GetBed joins the room so that Bed.RoomName is populated.
	GetBed(ctx context.Context, id uuid.UUID) (*Bed, error)
	ListBeds(ctx context.Context, roomID uuid.UUID) ([]*Bed, error)
	SetBedOccupied(ctx context.Context, id uuid.UUID, occupied bool) error
}

package billing

import (
	"context"
	"errors"
	"fmt"
	"math"
	"time"

	"github.com/google/uuid"

	"github.com/medicore/hms/internal/domain/catalog"
)

// Charge categories produced by clinical workflows.
const (
	CategoryConsultation = "Doctor Consultation"
	CategoryMedication   = "Medication"
	CategoryRoomStay     = "Room Charges"
)

// ErrDateInconsistency is returned when a discharge timestamp precedes the
// admission it closes.
var ErrDateInconsistency = errors.New("discharge date precedes admission date")

// ChargeBuilder turns clinical events into priced line items. All pricing
// goes through the rate resolver; the builder itself never knows a price,
// except for the bed's own configured rate used as a last resort when no
// catalog entry covers the room.
type ChargeBuilder struct {
	rates catalog.Resolver
}

func NewChargeBuilder(rates catalog.Resolver) *ChargeBuilder {
	return &ChargeBuilder{rates: rates}
}

// ConsultationCharge prices a completed consultation. The consultation's
// department narrows the lookup so specialist departments can carry their own
// consultation fee.
func (b *ChargeBuilder) ConsultationCharge(ctx context.Context, hospitalID uuid.UUID, payer catalog.PayerContext, departmentID *uuid.UUID, doctorName string) (*ServiceLineItem, error) {
	rate, err := b.rates.Resolve(ctx, hospitalID, CategoryConsultation, payer, departmentID)
	if err != nil {
		return nil, fmt.Errorf("price consultation: %w", err)
	}
	return &ServiceLineItem{
		Category: CategoryConsultation,
		Details:  doctorName,
		Quantity: 1,
		Rate:     rate,
	}, nil
}

// MedicationCharge prices one administered dose.
func (b *ChargeBuilder) MedicationCharge(ctx context.Context, hospitalID uuid.UUID, payer catalog.PayerContext, medication string) (*ServiceLineItem, error) {
	rate, err := b.rates.Resolve(ctx, hospitalID, CategoryMedication, payer, nil)
	if err != nil {
		return nil, fmt.Errorf("price medication: %w", err)
	}
	return &ServiceLineItem{
		Category: CategoryMedication,
		Details:  medication,
		Quantity: 1,
		Rate:     rate,
	}, nil
}

// DailyRoomCharge prices one calendar day of occupancy for the nightly
// cycle. The room's name is the charge category. The bed's configured daily
// rate applies only when no rate card in any scope covers the room; an
// existing catalog entry always wins.
func (b *ChargeBuilder) DailyRoomCharge(ctx context.Context, hospitalID uuid.UUID, payer catalog.PayerContext, bed *catalog.Bed, day time.Time) (*ServiceLineItem, error) {
	if bed.RoomName == "" {
		return nil, fmt.Errorf("bed %s has no room name", bed.ID)
	}

	rate, err := b.rates.Resolve(ctx, hospitalID, bed.RoomName, payer, nil)
	if errors.Is(err, catalog.ErrRateNotFound) {
		rate = bed.DailyRate
	} else if err != nil {
		return nil, fmt.Errorf("price room %q: %w", bed.RoomName, err)
	}

	d := truncateToDate(day)
	return &ServiceLineItem{
		Category:   bed.RoomName,
		Details:    "Bed " + bed.Number,
		Quantity:   1,
		Rate:       rate,
		Recurring:  true,
		BilledDate: &d,
	}, nil
}

// BedCharge prices a whole stay at discharge from the bed's configured daily
// rate. Days are counted by ceiling of elapsed time, one day minimum, so a
// three-hour stay still bills a day.
func (b *ChargeBuilder) BedCharge(bed *catalog.Bed, admittedAt, dischargedAt time.Time) (*ServiceLineItem, error) {
	elapsed := dischargedAt.Sub(admittedAt)
	if elapsed < 0 {
		return nil, ErrDateInconsistency
	}

	days := math.Ceil(elapsed.Hours() / 24)
	if days < 1 {
		days = 1
	}

	return &ServiceLineItem{
		Category: CategoryRoomStay,
		Details:  "Bed " + bed.Number,
		Quantity: days,
		Rate:     bed.DailyRate,
	}, nil
}

func truncateToDate(t time.Time) time.Time {
	y, m, d := t.Date()
	return time.Date(y, m, d, 0, 0, 0, 0, t.Location())
}

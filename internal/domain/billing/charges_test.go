package billing

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/google/uuid"

	"github.com/medicore/hms/internal/domain/catalog"
)

// mockResolver serves rates from two in-memory tables, mirroring the
// hospital/insurer scope split.
type mockResolver struct {
	hospitalRates map[string]float64
	insurerRates  map[string]float64
	err           error
}

func (m *mockResolver) Resolve(ctx context.Context, hospitalID uuid.UUID, category string, payer catalog.PayerContext, departmentID *uuid.UUID) (float64, error) {
	if m.err != nil {
		return 0, m.err
	}
	if payer.InsurerActive() {
		if r, ok := m.insurerRates[category]; ok {
			return r, nil
		}
	}
	if r, ok := m.hospitalRates[category]; ok {
		return r, nil
	}
	return 0, catalog.ErrRateNotFound
}

func (m *mockResolver) RateMap(ctx context.Context, hospitalID uuid.UUID, payer catalog.PayerContext) (map[string]float64, error) {
	if m.err != nil {
		return nil, m.err
	}
	if payer.InsurerActive() {
		return m.insurerRates, nil
	}
	return m.hospitalRates, nil
}

func testBed() *catalog.Bed {
	return &catalog.Bed{
		ID:        uuid.New(),
		RoomID:    uuid.New(),
		Number:    "12A",
		DailyRate: 1500,
		RoomName:  "General Ward",
	}
}

func TestConsultationCharge(t *testing.T) {
	cb := NewChargeBuilder(&mockResolver{hospitalRates: map[string]float64{
		CategoryConsultation: 500,
	}})

	item, err := cb.ConsultationCharge(context.Background(), uuid.New(), catalog.PayerContext{}, nil, "Dr. Rao")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if item.Category != CategoryConsultation || item.Quantity != 1 || item.Rate != 500 {
		t.Errorf("unexpected item: %+v", item)
	}
	if item.Details != "Dr. Rao" {
		t.Errorf("expected doctor name in details, got %q", item.Details)
	}
}

func TestConsultationCharge_NoRate(t *testing.T) {
	cb := NewChargeBuilder(&mockResolver{})
	_, err := cb.ConsultationCharge(context.Background(), uuid.New(), catalog.PayerContext{}, nil, "Dr. Rao")
	if !errors.Is(err, catalog.ErrRateNotFound) {
		t.Fatalf("expected ErrRateNotFound, got %v", err)
	}
}

func TestMedicationCharge(t *testing.T) {
	cb := NewChargeBuilder(&mockResolver{hospitalRates: map[string]float64{
		CategoryMedication: 100,
	}})

	item, err := cb.MedicationCharge(context.Background(), uuid.New(), catalog.PayerContext{}, "Paracetamol 500mg")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if item.Rate != 100 || item.Quantity != 1 || item.Details != "Paracetamol 500mg" {
		t.Errorf("unexpected item: %+v", item)
	}
}

func TestDailyRoomCharge_CatalogRateWins(t *testing.T) {
	cb := NewChargeBuilder(&mockResolver{hospitalRates: map[string]float64{
		"General Ward": 2000,
	}})
	day := time.Date(2026, 3, 14, 9, 30, 0, 0, time.UTC)

	item, err := cb.DailyRoomCharge(context.Background(), uuid.New(), catalog.PayerContext{}, testBed(), day)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if item.Rate != 2000 {
		t.Errorf("catalog rate must beat the bed's configured rate, got %.2f", item.Rate)
	}
	if !item.Recurring || item.BilledDate == nil {
		t.Fatal("expected a recurring line with a billed date")
	}
	if !item.BilledDate.Equal(time.Date(2026, 3, 14, 0, 0, 0, 0, time.UTC)) {
		t.Errorf("billed date must truncate to midnight, got %v", item.BilledDate)
	}
}

func TestDailyRoomCharge_BedRateFallback(t *testing.T) {
	cb := NewChargeBuilder(&mockResolver{})
	item, err := cb.DailyRoomCharge(context.Background(), uuid.New(), catalog.PayerContext{}, testBed(), time.Now())
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if item.Rate != 1500 {
		t.Errorf("expected bed fallback rate 1500, got %.2f", item.Rate)
	}
}

func TestBedCharge_DayCounting(t *testing.T) {
	cb := NewChargeBuilder(&mockResolver{})
	bed := testBed()
	admitted := time.Date(2026, 3, 10, 14, 0, 0, 0, time.UTC)

	tests := []struct {
		name       string
		discharged time.Time
		wantDays   float64
	}{
		{"three hour stay bills one day", admitted.Add(3 * time.Hour), 1},
		{"exactly 24 hours bills one day", admitted.Add(24 * time.Hour), 1},
		{"25 hours bills two days", admitted.Add(25 * time.Hour), 2},
		{"zero elapsed bills one day", admitted, 1},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			item, err := cb.BedCharge(bed, admitted, tt.discharged)
			if err != nil {
				t.Fatalf("unexpected error: %v", err)
			}
			if item.Quantity != tt.wantDays {
				t.Errorf("expected %.0f days, got %.0f", tt.wantDays, item.Quantity)
			}
			if item.Rate != bed.DailyRate {
				t.Errorf("stay charge uses the bed's configured rate, got %.2f", item.Rate)
			}
			if item.Category != CategoryRoomStay {
				t.Errorf("unexpected category %q", item.Category)
			}
		})
	}
}

func TestBedCharge_DischargeBeforeAdmission(t *testing.T) {
	cb := NewChargeBuilder(&mockResolver{})
	admitted := time.Now()
	_, err := cb.BedCharge(testBed(), admitted, admitted.Add(-time.Hour))
	if !errors.Is(err, ErrDateInconsistency) {
		t.Fatalf("expected ErrDateInconsistency, got %v", err)
	}
}

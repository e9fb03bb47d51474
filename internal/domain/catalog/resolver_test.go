package catalog

import (
	"context"
	"errors"
	"testing"

	"github.com/google/uuid"
)

type mockRateCardRepo struct {
	cards []*RateCard
}

func (m *mockRateCardRepo) Create(ctx context.Context, rc *RateCard) error {
	rc.ID = uuid.New()
	m.cards = append(m.cards, rc)
	return nil
}

func (m *mockRateCardRepo) Update(ctx context.Context, rc *RateCard) error { return nil }
func (m *mockRateCardRepo) Delete(ctx context.Context, id uuid.UUID) error { return nil }

func (m *mockRateCardRepo) GetByID(ctx context.Context, id uuid.UUID) (*RateCard, error) {
	for _, rc := range m.cards {
		if rc.ID == id {
			return rc, nil
		}
	}
	return nil, errors.New("not found")
}

func (m *mockRateCardRepo) ListByCategory(ctx context.Context, hospitalID uuid.UUID, category string) ([]*RateCard, error) {
	var out []*RateCard
	for _, rc := range m.cards {
		if rc.HospitalID == hospitalID && rc.Category == category {
			out = append(out, rc)
		}
	}
	return out, nil
}

func (m *mockRateCardRepo) ListAllByHospital(ctx context.Context, hospitalID uuid.UUID) ([]*RateCard, error) {
	var out []*RateCard
	for _, rc := range m.cards {
		if rc.HospitalID == hospitalID {
			out = append(out, rc)
		}
	}
	return out, nil
}

func (m *mockRateCardRepo) ListByHospital(ctx context.Context, hospitalID uuid.UUID, limit, offset int) ([]*RateCard, int, error) {
	all, _ := m.ListAllByHospital(ctx, hospitalID)
	return all, len(all), nil
}

func card(hospital uuid.UUID, scope RateScope, insurer, dept *uuid.UUID, category string, rate float64) *RateCard {
	return &RateCard{
		ID:           uuid.New(),
		HospitalID:   hospital,
		Scope:        scope,
		InsurerID:    insurer,
		Category:     category,
		DepartmentID: dept,
		Rate:         rate,
	}
}

func TestResolve_Precedence(t *testing.T) {
	hospital := uuid.New()
	insurer := uuid.New()
	dept := uuid.New()
	otherDept := uuid.New()

	repo := &mockRateCardRepo{cards: []*RateCard{
		card(hospital, ScopeHospital, nil, nil, "Doctor Consultation", 500),
		card(hospital, ScopeHospital, nil, &dept, "Doctor Consultation", 800),
		card(hospital, ScopeInsurer, &insurer, nil, "Doctor Consultation", 400),
		card(hospital, ScopeInsurer, &insurer, &dept, "Doctor Consultation", 650),
	}}
	svc := NewRatesService(repo)
	ctx := context.Background()

	approved := PayerContext{HasInsurance: true, Status: ApprovalApproved, InsurerID: &insurer}
	cash := PayerContext{}

	tests := []struct {
		name  string
		payer PayerContext
		dept  *uuid.UUID
		want  float64
	}{
		{"insurer department card wins", approved, &dept, 650},
		{"insurer wide card when department has none", approved, &otherDept, 400},
		{"insurer wide card without department", approved, nil, 400},
		{"hospital department card for cash payer", cash, &dept, 800},
		{"hospital wide card for cash payer", cash, nil, 500},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := svc.Resolve(ctx, hospital, "Doctor Consultation", tt.payer, tt.dept)
			if err != nil {
				t.Fatalf("unexpected error: %v", err)
			}
			if got != tt.want {
				t.Errorf("expected %.0f, got %.0f", tt.want, got)
			}
		})
	}
}

func TestResolve_PendingInsuranceUsesHospitalRates(t *testing.T) {
	hospital := uuid.New()
	insurer := uuid.New()
	repo := &mockRateCardRepo{cards: []*RateCard{
		card(hospital, ScopeHospital, nil, nil, "Medication", 100),
		card(hospital, ScopeInsurer, &insurer, nil, "Medication", 60),
	}}
	svc := NewRatesService(repo)

	pending := PayerContext{HasInsurance: true, Status: ApprovalPending, InsurerID: &insurer}
	got, err := svc.Resolve(context.Background(), hospital, "Medication", pending, nil)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if got != 100 {
		t.Errorf("pending claim must bill hospital rate 100, got %.0f", got)
	}
}

func TestResolve_InsurerFallsBackToHospital(t *testing.T) {
	hospital := uuid.New()
	insurer := uuid.New()
	repo := &mockRateCardRepo{cards: []*RateCard{
		card(hospital, ScopeHospital, nil, nil, "X-Ray", 700),
	}}
	svc := NewRatesService(repo)

	approved := PayerContext{HasInsurance: true, Status: ApprovalApproved, InsurerID: &insurer}
	got, err := svc.Resolve(context.Background(), hospital, "X-Ray", approved, nil)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if got != 700 {
		t.Errorf("expected hospital fallback 700, got %.0f", got)
	}
}

func TestResolve_NotFound(t *testing.T) {
	svc := NewRatesService(&mockRateCardRepo{})
	_, err := svc.Resolve(context.Background(), uuid.New(), "CT Scan", PayerContext{}, nil)
	if !errors.Is(err, ErrRateNotFound) {
		t.Fatalf("expected ErrRateNotFound, got %v", err)
	}
}

func TestRateMap_ScopeSelection(t *testing.T) {
	hospital := uuid.New()
	insurer := uuid.New()
	otherInsurer := uuid.New()
	dept := uuid.New()

	repo := &mockRateCardRepo{cards: []*RateCard{
		card(hospital, ScopeHospital, nil, nil, "Doctor Consultation", 500),
		card(hospital, ScopeHospital, nil, nil, "Medication", 100),
		card(hospital, ScopeInsurer, &insurer, nil, "Doctor Consultation", 400),
		card(hospital, ScopeInsurer, &insurer, &dept, "Surgery", 9000),
		card(hospital, ScopeInsurer, &otherInsurer, nil, "Medication", 10),
	}}
	svc := NewRatesService(repo)
	ctx := context.Background()

	approved := PayerContext{HasInsurance: true, Status: ApprovalApproved, InsurerID: &insurer}
	rates, err := svc.RateMap(ctx, hospital, approved)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if len(rates) != 2 {
		t.Fatalf("expected 2 insurer categories, got %v", rates)
	}
	if rates["Doctor Consultation"] != 400 {
		t.Errorf("expected insurer consultation rate 400, got %.0f", rates["Doctor Consultation"])
	}
	if rates["Surgery"] != 9000 {
		t.Errorf("expected department surgery card 9000, got %.0f", rates["Surgery"])
	}
	if _, ok := rates["Medication"]; ok {
		t.Error("other insurer's card must not leak into the map")
	}

	cashRates, err := svc.RateMap(ctx, hospital, PayerContext{})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if cashRates["Doctor Consultation"] != 500 || cashRates["Medication"] != 100 {
		t.Errorf("expected hospital scope map, got %v", cashRates)
	}
}

func TestRateMap_WideCardBeatsDepartmentCard(t *testing.T) {
	hospital := uuid.New()
	dept := uuid.New()
	repo := &mockRateCardRepo{cards: []*RateCard{
		card(hospital, ScopeHospital, nil, &dept, "Doctor Consultation", 800),
		card(hospital, ScopeHospital, nil, nil, "Doctor Consultation", 500),
	}}
	svc := NewRatesService(repo)

	rates, err := svc.RateMap(context.Background(), hospital, PayerContext{})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if rates["Doctor Consultation"] != 500 {
		t.Errorf("wide card should win in the map, got %.0f", rates["Doctor Consultation"])
	}
}

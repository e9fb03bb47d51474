package admission

import (
	"context"
	"errors"
	"fmt"
	"testing"
	"time"

	"github.com/google/uuid"

	"github.com/medicore/hms/internal/domain/billing"
	"github.com/medicore/hms/internal/domain/catalog"
)

type passthroughTx struct{}

func (passthroughTx) WithTx(ctx context.Context, fn func(ctx context.Context) error) error {
	return fn(ctx)
}

type stubResolver struct {
	rates map[string]float64
}

func (s *stubResolver) Resolve(ctx context.Context, hospitalID uuid.UUID, category string, payer catalog.PayerContext, departmentID *uuid.UUID) (float64, error) {
	if r, ok := s.rates[category]; ok {
		return r, nil
	}
	return 0, catalog.ErrRateNotFound
}

func (s *stubResolver) RateMap(ctx context.Context, hospitalID uuid.UUID, payer catalog.PayerContext) (map[string]float64, error) {
	return s.rates, nil
}

type mockCaseRepo struct {
	cases   map[uuid.UUID]*Case
	caseSeq int
}

func newMockCaseRepo() *mockCaseRepo {
	return &mockCaseRepo{cases: make(map[uuid.UUID]*Case)}
}

func (m *mockCaseRepo) Create(ctx context.Context, c *Case) error {
	c.ID = uuid.New()
	m.cases[c.ID] = c
	return nil
}

func (m *mockCaseRepo) GetByID(ctx context.Context, id uuid.UUID) (*Case, error) {
	c, ok := m.cases[id]
	if !ok {
		return nil, ErrCaseNotFound
	}
	return c, nil
}

func (m *mockCaseRepo) Update(ctx context.Context, c *Case) error {
	if _, ok := m.cases[c.ID]; !ok {
		return ErrCaseNotFound
	}
	m.cases[c.ID] = c
	return nil
}

func (m *mockCaseRepo) ListByHospital(ctx context.Context, hospitalID uuid.UUID, status CaseStatus, limit, offset int) ([]*Case, int, error) {
	var out []*Case
	for _, c := range m.cases {
		if c.HospitalID == hospitalID && (status == "" || c.Status == status) {
			out = append(out, c)
		}
	}
	return out, len(out), nil
}

func (m *mockCaseRepo) ListOccupied(ctx context.Context) ([]*Case, error) {
	var out []*Case
	for _, c := range m.cases {
		if c.Status == CaseActive && c.BedID != nil {
			out = append(out, c)
		}
	}
	return out, nil
}

func (m *mockCaseRepo) NextCaseNumber(ctx context.Context) (string, error) {
	m.caseSeq++
	return fmt.Sprintf("CASE-%06d", m.caseSeq), nil
}

type mockRoomRepo struct {
	beds map[uuid.UUID]*catalog.Bed
}

func newMockRoomRepo() *mockRoomRepo {
	return &mockRoomRepo{beds: make(map[uuid.UUID]*catalog.Bed)}
}

func (m *mockRoomRepo) CreateRoom(ctx context.Context, r *catalog.Room) error { return nil }
func (m *mockRoomRepo) GetRoom(ctx context.Context, id uuid.UUID) (*catalog.Room, error) {
	return nil, errors.New("not implemented")
}
func (m *mockRoomRepo) ListRooms(ctx context.Context, hospitalID uuid.UUID) ([]*catalog.Room, error) {
	return nil, nil
}

func (m *mockRoomRepo) CreateBed(ctx context.Context, b *catalog.Bed) error {
	b.ID = uuid.New()
	m.beds[b.ID] = b
	return nil
}

func (m *mockRoomRepo) GetBed(ctx context.Context, id uuid.UUID) (*catalog.Bed, error) {
	b, ok := m.beds[id]
	if !ok {
		return nil, errors.New("bed not found")
	}
	return b, nil
}

func (m *mockRoomRepo) ListBeds(ctx context.Context, roomID uuid.UUID) ([]*catalog.Bed, error) {
	return nil, nil
}

func (m *mockRoomRepo) SetBedOccupied(ctx context.Context, id uuid.UUID, occupied bool) error {
	b, ok := m.beds[id]
	if !ok {
		return errors.New("bed not found")
	}
	b.Occupied = occupied
	return nil
}

type mockBiller struct {
	bills    map[uuid.UUID]*billing.Bill
	mergeErr error

	mergedItems []*billing.ServiceLineItem
	lastPayer   catalog.PayerContext
	recalcCalls int
}

func newMockBiller() *mockBiller {
	return &mockBiller{bills: make(map[uuid.UUID]*billing.Bill)}
}

func (m *mockBiller) EnsureBill(ctx context.Context, caseID uuid.UUID, ref billing.CaseRef) (*billing.Bill, error) {
	if b, ok := m.bills[caseID]; ok {
		return b, nil
	}
	b := &billing.Bill{ID: uuid.New(), CaseID: caseID, HospitalID: ref.HospitalID, IsLive: true}
	m.bills[caseID] = b
	return b, nil
}

func (m *mockBiller) MergeCharges(ctx context.Context, caseID uuid.UUID, ref billing.CaseRef, items []*billing.ServiceLineItem) (*billing.Bill, error) {
	if m.mergeErr != nil {
		return nil, m.mergeErr
	}
	b, _ := m.EnsureBill(ctx, caseID, ref)
	b.Items = append(b.Items, items...)
	m.mergedItems = append(m.mergedItems, items...)
	b.Recompute()
	return b, nil
}

func (m *mockBiller) SetLive(ctx context.Context, caseID uuid.UUID, live bool) (*billing.Bill, error) {
	b, ok := m.bills[caseID]
	if !ok {
		return nil, billing.ErrBillNotFound
	}
	b.IsLive = live
	return b, nil
}

func (m *mockBiller) RecalculateForInsuranceChange(ctx context.Context, caseID uuid.UUID, hospitalID uuid.UUID, payer catalog.PayerContext) (float64, float64, error) {
	m.recalcCalls++
	m.lastPayer = payer
	if _, ok := m.bills[caseID]; !ok {
		return 0, 0, billing.ErrBillNotFound
	}
	return 1000, 900, nil
}

func newTestService(cases *mockCaseRepo, rooms *mockRoomRepo, biller *mockBiller) *Service {
	charges := billing.NewChargeBuilder(&stubResolver{rates: map[string]float64{"General Ward": 2000}})
	return NewService(cases, rooms, biller, charges, passthroughTx{})
}

func addBed(t *testing.T, rooms *mockRoomRepo, dailyRate float64) *catalog.Bed {
	t.Helper()
	bed := &catalog.Bed{RoomID: uuid.New(), Number: "7B", DailyRate: dailyRate, RoomName: "General Ward"}
	if err := rooms.CreateBed(context.Background(), bed); err != nil {
		t.Fatalf("create bed: %v", err)
	}
	return bed
}

func openTestCase(t *testing.T, svc *Service, insurerID *uuid.UUID) *Case {
	t.Helper()
	c := &Case{HospitalID: uuid.New(), PatientID: uuid.New(), InsurerID: insurerID}
	if err := svc.OpenCase(context.Background(), c); err != nil {
		t.Fatalf("open case: %v", err)
	}
	return c
}

func TestOpenCase_Defaults(t *testing.T) {
	svc := newTestService(newMockCaseRepo(), newMockRoomRepo(), newMockBiller())

	c := openTestCase(t, svc, nil)
	if c.CaseNumber != "CASE-000001" {
		t.Errorf("expected first case number, got %q", c.CaseNumber)
	}
	if c.Status != CaseActive {
		t.Errorf("expected active, got %s", c.Status)
	}
	if c.HasInsurance || c.InsuranceStatus != catalog.ApprovalNone {
		t.Errorf("cash case must have no insurance, got %v %s", c.HasInsurance, c.InsuranceStatus)
	}
	if c.AdmittedAt.IsZero() {
		t.Error("admitted_at must default to now")
	}
}

func TestOpenCase_InsuranceStartsPending(t *testing.T) {
	svc := newTestService(newMockCaseRepo(), newMockRoomRepo(), newMockBiller())
	insurer := uuid.New()

	c := openTestCase(t, svc, &insurer)
	if !c.HasInsurance || c.InsuranceStatus != catalog.ApprovalPending {
		t.Errorf("insured case must start pending, got %v %s", c.HasInsurance, c.InsuranceStatus)
	}
	if c.Payer().InsurerActive() {
		t.Error("pending insurance must not activate insurer rates")
	}
}

func TestAssignBed(t *testing.T) {
	cases := newMockCaseRepo()
	rooms := newMockRoomRepo()
	biller := newMockBiller()
	svc := newTestService(cases, rooms, biller)

	c := openTestCase(t, svc, nil)
	bed := addBed(t, rooms, 1500)

	updated, err := svc.AssignBed(context.Background(), c.ID, bed.ID)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if updated.BedID == nil || *updated.BedID != bed.ID || updated.BedAssignedAt == nil {
		t.Error("case must record the bed and assignment time")
	}
	if !bed.Occupied {
		t.Error("bed must be marked occupied")
	}
	if b, ok := biller.bills[c.ID]; !ok || !b.IsLive {
		t.Error("bed assignment must ensure a live bill")
	}
}

func TestAssignBed_Conflicts(t *testing.T) {
	cases := newMockCaseRepo()
	rooms := newMockRoomRepo()
	svc := newTestService(cases, rooms, newMockBiller())

	c := openTestCase(t, svc, nil)
	bed := addBed(t, rooms, 1500)

	if _, err := svc.AssignBed(context.Background(), c.ID, bed.ID); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	other := openTestCase(t, svc, nil)
	if _, err := svc.AssignBed(context.Background(), other.ID, bed.ID); !errors.Is(err, ErrBedOccupied) {
		t.Errorf("expected ErrBedOccupied, got %v", err)
	}

	bed2 := addBed(t, rooms, 1500)
	if _, err := svc.AssignBed(context.Background(), c.ID, bed2.ID); !errors.Is(err, ErrBedAlreadyAssigned) {
		t.Errorf("expected ErrBedAlreadyAssigned, got %v", err)
	}
}

func TestDischarge_BillsStayAndFreesBed(t *testing.T) {
	cases := newMockCaseRepo()
	rooms := newMockRoomRepo()
	biller := newMockBiller()
	svc := newTestService(cases, rooms, biller)

	c := openTestCase(t, svc, nil)
	bed := addBed(t, rooms, 1500)
	if _, err := svc.AssignBed(context.Background(), c.ID, bed.ID); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	// 2.5 days in the bed bills 3.
	at := c.BedAssignedAt.Add(60 * time.Hour)
	updated, err := svc.Discharge(context.Background(), c.ID, at)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	if updated.Status != CaseDischarged || updated.DischargedAt == nil {
		t.Error("case must be discharged with a timestamp")
	}
	if updated.BedID != nil {
		t.Error("discharged case must release its bed reference")
	}
	if bed.Occupied {
		t.Error("bed must be freed")
	}

	if len(biller.mergedItems) != 1 {
		t.Fatalf("expected one stay charge, got %d", len(biller.mergedItems))
	}
	item := biller.mergedItems[0]
	if item.Category != billing.CategoryRoomStay || item.Quantity != 3 || item.Rate != 1500 {
		t.Errorf("unexpected stay charge: %+v", item)
	}
	if biller.bills[c.ID].IsLive {
		t.Error("bill must stop accumulating after discharge")
	}
}

func TestDischarge_DateBeforeAdmissionAborts(t *testing.T) {
	cases := newMockCaseRepo()
	rooms := newMockRoomRepo()
	svc := newTestService(cases, rooms, newMockBiller())

	c := openTestCase(t, svc, nil)
	_, err := svc.Discharge(context.Background(), c.ID, c.AdmittedAt.Add(-time.Hour))
	if !errors.Is(err, billing.ErrDateInconsistency) {
		t.Fatalf("expected ErrDateInconsistency, got %v", err)
	}
	got, _ := cases.GetByID(context.Background(), c.ID)
	if got.Status != CaseActive {
		t.Error("failed discharge must leave the case active")
	}
}

func TestDischarge_ChargeFailureLeavesCaseActive(t *testing.T) {
	cases := newMockCaseRepo()
	rooms := newMockRoomRepo()
	biller := newMockBiller()
	svc := newTestService(cases, rooms, biller)

	c := openTestCase(t, svc, nil)
	bed := addBed(t, rooms, 1500)
	if _, err := svc.AssignBed(context.Background(), c.ID, bed.ID); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	biller.mergeErr = errors.New("billing unavailable")
	_, err := svc.Discharge(context.Background(), c.ID, time.Now().Add(time.Hour))
	if err == nil {
		t.Fatal("expected discharge to fail when the stay cannot be billed")
	}
	got, _ := cases.GetByID(context.Background(), c.ID)
	if got.Status != CaseActive {
		t.Error("case must stay active when the stay charge fails")
	}
}

func TestDischarge_WithoutBed(t *testing.T) {
	cases := newMockCaseRepo()
	biller := newMockBiller()
	svc := newTestService(cases, newMockRoomRepo(), biller)

	c := openTestCase(t, svc, nil)
	updated, err := svc.Discharge(context.Background(), c.ID, time.Now())
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if updated.Status != CaseDischarged {
		t.Errorf("expected discharged, got %s", updated.Status)
	}
	if len(biller.mergedItems) != 0 {
		t.Error("walk-in discharge must not bill a stay")
	}
}

func TestSetInsuranceStatus_Reprices(t *testing.T) {
	cases := newMockCaseRepo()
	biller := newMockBiller()
	svc := newTestService(cases, newMockRoomRepo(), biller)
	insurer := uuid.New()

	c := openTestCase(t, svc, &insurer)
	biller.EnsureBill(context.Background(), c.ID, billing.CaseRef{HospitalID: c.HospitalID, PatientID: c.PatientID})

	updated, oldNet, newNet, err := svc.SetInsuranceStatus(context.Background(), c.ID, catalog.ApprovalApproved, nil)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if updated.InsuranceStatus != catalog.ApprovalApproved {
		t.Errorf("expected approved, got %s", updated.InsuranceStatus)
	}
	if biller.recalcCalls != 1 {
		t.Errorf("expected one repricing call, got %d", biller.recalcCalls)
	}
	if !biller.lastPayer.InsurerActive() {
		t.Error("repricing must see the approved payer context")
	}
	if oldNet != 1000 || newNet != 900 {
		t.Errorf("expected totals 1000 -> 900, got %.2f -> %.2f", oldNet, newNet)
	}
}

func TestSetInsuranceStatus_NoBillIsFine(t *testing.T) {
	svc := newTestService(newMockCaseRepo(), newMockRoomRepo(), newMockBiller())
	insurer := uuid.New()
	c := openTestCase(t, svc, &insurer)

	_, oldNet, newNet, err := svc.SetInsuranceStatus(context.Background(), c.ID, catalog.ApprovalApproved, nil)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if oldNet != 0 || newNet != 0 {
		t.Errorf("expected zero totals without a bill, got %.2f %.2f", oldNet, newNet)
	}
}

func TestSetInsuranceStatus_RejectsUnknown(t *testing.T) {
	svc := newTestService(newMockCaseRepo(), newMockRoomRepo(), newMockBiller())
	c := openTestCase(t, svc, nil)
	if _, _, _, err := svc.SetInsuranceStatus(context.Background(), c.ID, "maybe", nil); err == nil {
		t.Fatal("expected error for unknown status")
	}
}

func TestFindOccupied(t *testing.T) {
	cases := newMockCaseRepo()
	rooms := newMockRoomRepo()
	svc := newTestService(cases, rooms, newMockBiller())

	occupied := openTestCase(t, svc, nil)
	bed := addBed(t, rooms, 1500)
	if _, err := svc.AssignBed(context.Background(), occupied.ID, bed.ID); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	openTestCase(t, svc, nil) // no bed

	occs, err := svc.FindOccupied(context.Background())
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if len(occs) != 1 {
		t.Fatalf("expected 1 occupancy, got %d", len(occs))
	}
	occ := occs[0]
	if occ.CaseID != occupied.ID || occ.Bed.ID != bed.ID {
		t.Errorf("unexpected occupancy: %+v", occ)
	}
	if occ.Ref.HospitalID != occupied.HospitalID {
		t.Error("occupancy must carry the case's hospital")
	}
}

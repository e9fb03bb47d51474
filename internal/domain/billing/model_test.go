package billing

import (
	"testing"
	"time"
)

func TestRecompute_Totals(t *testing.T) {
	b := &Bill{
		Items: []*ServiceLineItem{
			{Category: CategoryConsultation, Quantity: 1, Rate: 500},
			{Category: CategoryMedication, Quantity: 3, Rate: 100},
			{Category: "General Ward", Quantity: 2, Rate: 2000},
		},
	}
	b.Recompute()

	if b.Gross != 4800 {
		t.Errorf("expected gross 4800, got %.2f", b.Gross)
	}
	if b.Net != 4800 {
		t.Errorf("expected net 4800 without discount, got %.2f", b.Net)
	}
	if b.Outstanding != 4800 {
		t.Errorf("expected outstanding 4800, got %.2f", b.Outstanding)
	}
	if b.Status != StatusUnpaid {
		t.Errorf("expected unpaid, got %s", b.Status)
	}
	if b.Items[1].Amount != 300 {
		t.Errorf("expected line amount 300, got %.2f", b.Items[1].Amount)
	}
}

func TestRecompute_PercentageDiscount(t *testing.T) {
	b := &Bill{
		Items:    []*ServiceLineItem{{Category: "Surgery", Quantity: 1, Rate: 10000}},
		Discount: &Discount{Type: DiscountPercentage, Value: 10},
	}
	b.Recompute()

	if b.Discount.Amount != 1000 {
		t.Errorf("expected discount amount 1000, got %.2f", b.Discount.Amount)
	}
	if b.Net != 9000 {
		t.Errorf("expected net 9000, got %.2f", b.Net)
	}
}

func TestRecompute_FlatDiscountClampedToGross(t *testing.T) {
	b := &Bill{
		Items:    []*ServiceLineItem{{Category: CategoryMedication, Quantity: 1, Rate: 200}},
		Discount: &Discount{Type: DiscountFlat, Value: 500},
	}
	b.Recompute()

	if b.Discount.Amount != 200 {
		t.Errorf("discount must clamp to gross 200, got %.2f", b.Discount.Amount)
	}
	if b.Net != 0 {
		t.Errorf("expected net 0, got %.2f", b.Net)
	}
	if b.Status != StatusPaid {
		t.Errorf("zero net with zero payments is paid, got %s", b.Status)
	}
}

func TestRecompute_NegativeDiscountIgnored(t *testing.T) {
	b := &Bill{
		Items:    []*ServiceLineItem{{Category: CategoryMedication, Quantity: 1, Rate: 200}},
		Discount: &Discount{Type: DiscountFlat, Value: -50},
	}
	b.Recompute()

	if b.Discount.Amount != 0 {
		t.Errorf("negative discount must clamp to 0, got %.2f", b.Discount.Amount)
	}
	if b.Net != 200 {
		t.Errorf("expected net 200, got %.2f", b.Net)
	}
}

func TestRecompute_PaymentsDriveStatus(t *testing.T) {
	b := &Bill{
		Items: []*ServiceLineItem{{Category: CategoryConsultation, Quantity: 1, Rate: 500}},
		Payments: []*Payment{
			{Amount: 300, Mode: "cash"},
		},
	}
	b.Recompute()
	if b.Outstanding != 200 || b.Status != StatusUnpaid {
		t.Errorf("expected outstanding 200 unpaid, got %.2f %s", b.Outstanding, b.Status)
	}

	b.Payments = append(b.Payments, &Payment{Amount: 200, Mode: "card"})
	b.Recompute()
	if b.Outstanding != 0 || b.Status != StatusPaid {
		t.Errorf("expected outstanding 0 paid, got %.2f %s", b.Outstanding, b.Status)
	}

	// Overpayment still reads as paid, with negative outstanding preserved.
	b.Payments = append(b.Payments, &Payment{Amount: 100, Mode: "cash"})
	b.Recompute()
	if b.Outstanding != -100 || b.Status != StatusPaid {
		t.Errorf("expected outstanding -100 paid, got %.2f %s", b.Outstanding, b.Status)
	}
}

func TestFindRecurring_MatchesByDate(t *testing.T) {
	day := time.Date(2026, 3, 14, 0, 0, 0, 0, time.UTC)
	other := day.AddDate(0, 0, 1)
	b := &Bill{
		Items: []*ServiceLineItem{
			{Category: "General Ward", Recurring: true, BilledDate: &day},
			{Category: CategoryMedication, Quantity: 1, Rate: 100},
		},
	}

	if b.FindRecurring("General Ward", day) == nil {
		t.Error("expected to find recurring line for billed day")
	}
	if b.FindRecurring("General Ward", other) != nil {
		t.Error("must not match a different day")
	}
	if b.FindRecurring("ICU", day) != nil {
		t.Error("must not match a different category")
	}
	// Same calendar date at a different clock time still matches.
	if b.FindRecurring("General Ward", day.Add(15*time.Hour)) == nil {
		t.Error("expected match on same calendar date")
	}
}

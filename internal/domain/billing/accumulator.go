package billing

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/rs/zerolog"

	"github.com/medicore/hms/internal/domain/catalog"
)

// Occupancy describes one admitted patient currently holding a bed.
type Occupancy struct {
	CaseID        uuid.UUID
	Ref           CaseRef
	Payer         catalog.PayerContext
	Bed           *catalog.Bed
	BedAssignedAt time.Time
}

// OccupancyFinder lists current occupancies. Implemented by the admission
// service.
type OccupancyFinder interface {
	FindOccupied(ctx context.Context) ([]*Occupancy, error)
}

// RunReport summarizes one daily billing cycle. Cases counts cases that got
// at least one new line; Skipped counts days that could not be billed.
type RunReport struct {
	RanAt      time.Time `json:"ran_at"`
	Cases      int       `json:"cases"`
	DaysBilled int       `json:"days_billed"`
	Skipped    int       `json:"skipped"`
}

// Accumulator is the nightly recurring charge cycle. For every occupied bed
// it walks the calendar days from the bill's watermark through yesterday and
// adds one room charge per fully elapsed day; the run day itself is billed by
// the next run. Each day is merged in its own transaction, so a day that
// cannot be priced is logged and skipped while the walk continues, and
// re-running the cycle on the same day adds nothing.
type Accumulator struct {
	bills     BillRepository
	occupancy OccupancyFinder
	charges   *ChargeBuilder
	loc       *time.Location
	clock     func() time.Time
	logger    zerolog.Logger
}

func NewAccumulator(bills BillRepository, occupancy OccupancyFinder, charges *ChargeBuilder, loc *time.Location, logger zerolog.Logger) *Accumulator {
	return &Accumulator{
		bills:     bills,
		occupancy: occupancy,
		charges:   charges,
		loc:       loc,
		clock:     time.Now,
		logger:    logger,
	}
}

func (a *Accumulator) Run(ctx context.Context) (RunReport, error) {
	now := a.clock().In(a.loc)
	endDay := truncateToDate(now).AddDate(0, 0, -1)
	report := RunReport{RanAt: now}

	occupancies, err := a.occupancy.FindOccupied(ctx)
	if err != nil {
		return report, fmt.Errorf("list occupied beds: %w", err)
	}

	for _, occ := range occupancies {
		billed, skipped := a.chargeCase(ctx, occ, endDay)
		report.DaysBilled += billed
		report.Skipped += skipped
		if billed > 0 {
			report.Cases++
		}
	}

	a.logger.Info().
		Int("cases", report.Cases).
		Int("days_billed", report.DaysBilled).
		Int("skipped", report.Skipped).
		Msg("daily charge cycle finished")
	return report, nil
}

// chargeCase bills every unbilled occupancy day through endDay for one case,
// one transaction per day. A failing day does not stop the later days; its
// charge is picked up by a later run only if the watermark has not passed it.
func (a *Accumulator) chargeCase(ctx context.Context, occ *Occupancy, endDay time.Time) (billed, skipped int) {
	start := truncateToDate(occ.BedAssignedAt.In(a.loc))

	bill, err := a.bills.GetByCase(ctx, occ.CaseID)
	switch {
	case errors.Is(err, ErrBillNotFound):
		// First charge will create the bill.
	case err != nil:
		a.logger.Error().Err(err).
			Str("case_id", occ.CaseID.String()).
			Msg("daily charge cycle could not load bill")
		return 0, 1
	default:
		if !bill.IsLive {
			return 0, 0
		}
		if bill.LastBilledAt != nil {
			next := truncateToDate(bill.LastBilledAt.In(a.loc)).AddDate(0, 0, 1)
			if next.After(start) {
				start = next
			}
		}
	}

	for day := start; !day.After(endDay); day = day.AddDate(0, 0, 1) {
		added, err := a.chargeDay(ctx, occ, day)
		if err != nil {
			a.logger.Error().Err(err).
				Str("case_id", occ.CaseID.String()).
				Str("day", day.Format("2006-01-02")).
				Msg("daily charge cycle skipped day")
			skipped++
			continue
		}
		if added {
			billed++
		}
	}
	return billed, skipped
}

// chargeDay merges one day's room charge atomically, creating the bill on
// the first charge and moving the watermark with the merge.
func (a *Accumulator) chargeDay(ctx context.Context, occ *Occupancy, day time.Time) (bool, error) {
	item, err := a.charges.DailyRoomCharge(ctx, occ.Ref.HospitalID, occ.Payer, occ.Bed, day)
	if err != nil {
		return false, err
	}

	added := false
	_, err = a.bills.WithCase(ctx, occ.CaseID, func(ctx context.Context, bill *Bill) (*Bill, error) {
		if bill == nil {
			created, err := newBill(ctx, a.bills, occ.CaseID, occ.Ref)
			if err != nil {
				return nil, err
			}
			bill = created
		}
		if !bill.IsLive {
			return bill, nil
		}

		if bill.FindRecurring(item.Category, day) == nil {
			item.BillID = bill.ID
			bill.Items = append(bill.Items, item)
			added = true
		}
		if bill.LastBilledAt == nil || day.After(*bill.LastBilledAt) {
			d := day
			bill.LastBilledAt = &d
		}
		bill.Recompute()
		return bill, nil
	})
	if err != nil {
		return false, err
	}
	return added, nil
}

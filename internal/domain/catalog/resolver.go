package catalog

import (
	"context"
	"fmt"

	"github.com/google/uuid"
)

// Resolver answers the question "what does this category cost for this
// payer". It is the single pricing authority; charge builders never look up
// rates themselves.
type Resolver interface {
	// Resolve returns the unit rate for a charge category. departmentID,
	// when set, lets a department-specific card win over a hospital-wide
	// one.
	Resolve(ctx context.Context, hospitalID uuid.UUID, category string, payer PayerContext, departmentID *uuid.UUID) (float64, error)
	// RateMap returns the category-to-rate table effective for the payer,
	// used to reprice an existing bill when insurance standing changes.
	// Categories without an applicable card are absent from the map.
	RateMap(ctx context.Context, hospitalID uuid.UUID, payer PayerContext) (map[string]float64, error)
}

// RatesService resolves rates from the rate card repository.
type RatesService struct {
	rates RateCardRepository
}

func NewRatesService(rates RateCardRepository) *RatesService {
	return &RatesService{rates: rates}
}

func (s *RatesService) Resolve(ctx context.Context, hospitalID uuid.UUID, category string, payer PayerContext, departmentID *uuid.UUID) (float64, error) {
	cards, err := s.rates.ListByCategory(ctx, hospitalID, category)
	if err != nil {
		return 0, fmt.Errorf("list rate cards for %q: %w", category, err)
	}
	return pickRate(cards, payer, departmentID)
}

// pickRate applies rate precedence over the candidate cards. Insurer cards
// beat hospital cards when insurer pricing is active, and within a scope a
// department-specific card beats a hospital-wide one. Hospital cards remain
// the fallback when the insurer has no card for the category.
func pickRate(cards []*RateCard, payer PayerContext, departmentID *uuid.UUID) (float64, error) {
	if payer.InsurerActive() {
		if rc := bestInScope(cards, ScopeInsurer, payer.InsurerID, departmentID); rc != nil {
			return rc.Rate, nil
		}
	}
	if rc := bestInScope(cards, ScopeHospital, nil, departmentID); rc != nil {
		return rc.Rate, nil
	}
	return 0, ErrRateNotFound
}

func bestInScope(cards []*RateCard, scope RateScope, insurerID, departmentID *uuid.UUID) *RateCard {
	var wide *RateCard
	for _, rc := range cards {
		if rc.Scope != scope {
			continue
		}
		if scope == ScopeInsurer {
			if rc.InsurerID == nil || insurerID == nil || *rc.InsurerID != *insurerID {
				continue
			}
		}
		if rc.DepartmentID != nil {
			if departmentID != nil && *rc.DepartmentID == *departmentID {
				return rc
			}
			continue
		}
		if wide == nil {
			wide = rc
		}
	}
	return wide
}

// RateMap builds the effective price table for a payer. Only the payer's own
// scope contributes: an approved insurer maps exactly the categories that
// insurer has cards for, so categories the insurer never priced keep their
// existing line rates when a bill is repriced.
func (s *RatesService) RateMap(ctx context.Context, hospitalID uuid.UUID, payer PayerContext) (map[string]float64, error) {
	cards, err := s.rates.ListAllByHospital(ctx, hospitalID)
	if err != nil {
		return nil, fmt.Errorf("list rate cards: %w", err)
	}

	scope := ScopeHospital
	if payer.InsurerActive() {
		scope = ScopeInsurer
	}

	rates := make(map[string]float64)
	for _, rc := range cards {
		if rc.Scope != scope {
			continue
		}
		if scope == ScopeInsurer && (rc.InsurerID == nil || *rc.InsurerID != *payer.InsurerID) {
			continue
		}
		// Department-agnostic cards win; a department-specific card only
		// fills the slot when no wide card exists for the category.
		if rc.DepartmentID == nil {
			rates[rc.Category] = rc.Rate
		} else if _, ok := rates[rc.Category]; !ok {
			rates[rc.Category] = rc.Rate
		}
	}
	return rates, nil
}

// Package report aggregates period statistics over the settlement store.
package report

import (
	"context"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"

	"github.com/janiosantos/siscom-settlement/pkg/models"
	"github.com/janiosantos/siscom-settlement/pkg/reconcile"
	"github.com/janiosantos/siscom-settlement/pkg/store"
)

// PeriodReport summarizes slip activity and reconciliation for one
// profile/scope over a date range.
type PeriodReport struct {
	ProfileID uuid.UUID
	Scope     models.Scope
	From, To  time.Time

	SlipsIssued     int
	SlipsPaid       int
	SlipsOpen       int
	SlipsOverdue    int
	SlipsCancelled  int
	SlipsWrittenOff int

	IssuedValue decimal.Decimal
	PaidValue   decimal.Decimal

	Reconciliation *reconcile.Stats
}

// Facade builds period reports. It only reads; all state transitions
// happen elsewhere.
type Facade struct {
	store  store.Store
	engine *reconcile.Engine
}

// New creates a facade.
func New(st store.Store, engine *reconcile.Engine) *Facade {
	return &Facade{store: st, engine: engine}
}

// Build aggregates the period. Overdue is derived from the due date at
// asOf, the same way the slip model presents it.
func (f *Facade) Build(ctx context.Context, profileID uuid.UUID, scope models.Scope, from, to, asOf time.Time) (*PeriodReport, error) {
	slips, err := f.store.ListBankSlips(ctx, profileID, from, to)
	if err != nil {
		return nil, fmt.Errorf("listing slips: %w", err)
	}

	r := &PeriodReport{
		ProfileID:   profileID,
		Scope:       scope,
		From:        from,
		To:          to,
		SlipsIssued: len(slips),
		IssuedValue: decimal.Zero,
		PaidValue:   decimal.Zero,
	}
	for _, s := range slips {
		r.IssuedValue = r.IssuedValue.Add(s.Value)
		switch s.Status {
		case models.SlipPaid:
			r.SlipsPaid++
			r.PaidValue = r.PaidValue.Add(s.PaidValue)
		case models.SlipCancelled:
			r.SlipsCancelled++
		case models.SlipWrittenOff:
			r.SlipsWrittenOff++
		default:
			if s.Overdue(asOf) {
				r.SlipsOverdue++
			} else {
				r.SlipsOpen++
			}
		}
	}

	stats, err := f.engine.Statistics(ctx, scope, from, to)
	if err != nil {
		return nil, fmt.Errorf("reconciliation statistics: %w", err)
	}
	r.Reconciliation = stats
	return r, nil
}

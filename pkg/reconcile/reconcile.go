// Package reconcile matches bank-statement lines against internally
// recorded PIX transfers and bank slips. It is intentionally isolated
// from any UI/CLI so that both the command-line runner and the payment
// module's service layer reuse the same engine.
//
// The engine owns exactly two mutations: creating ReconciliationMatch
// records and flipping StatementLine.Reconciled. Slip and transfer
// business state belongs to return processing, never to this package.
package reconcile

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/charmbracelet/log"
	"github.com/google/uuid"
	"github.com/shopspring/decimal"

	"github.com/janiosantos/siscom-settlement/pkg/models"
	"github.com/janiosantos/siscom-settlement/pkg/store"
)

// Tolerance is the monetary slack allowed on automatic matches. Banks
// round debit and credit postings differently, so exactly one cent of
// difference still matches; anything wider never matches automatically.
var Tolerance = decimal.New(1, -2)

var (
	// ErrAlreadyReconciled rejects a manual match on a line that
	// already has one. Reconciliation is terminal per line.
	ErrAlreadyReconciled = errors.New("reconcile: line already reconciled")
	// ErrTargetNotFound rejects a manual match whose PIX/boleto id
	// does not exist.
	ErrTargetNotFound = errors.New("reconcile: target not found")
	// ErrAlreadyMatched rejects a match whose target is referenced by
	// another match already.
	ErrAlreadyMatched = errors.New("reconcile: target already matched")
)

// Engine runs automatic and operator-directed reconciliation against
// the settlement store. The caller serializes runs per scope; within a
// run the store's CreateMatch atomicity prevents double-crediting.
type Engine struct {
	store  store.Store
	logger *log.Logger
}

// New creates an engine.
func New(st store.Store, logger *log.Logger) *Engine {
	return &Engine{store: st, logger: logger}
}

// Summary aggregates one automatic run for audit logging.
type Summary struct {
	Examined      int
	MatchedPix    int
	MatchedBoleto int
	Pending       int
	Matches       []*models.ReconciliationMatch
}

// Automatic tries to match every unreconciled line in scope and range,
// date-ascending. Per line, in order: a document that looks like an
// end-to-end id resolves against PIX transfers, a purely numeric
// document resolves against slips by nosso número, anything else stays
// pending — ambiguous lines are never guessed. Re-running over the same
// range is idempotent: reconciled lines are simply skipped.
func (e *Engine) Automatic(ctx context.Context, scope models.Scope, from, to time.Time) (*Summary, error) {
	lines, err := e.store.ListUnreconciled(ctx, scope, from, to)
	if err != nil {
		return nil, fmt.Errorf("listing unreconciled lines: %w", err)
	}

	summary := &Summary{Examined: len(lines)}
	for _, line := range lines {
		match, err := e.tryMatch(ctx, line)
		if err != nil {
			return nil, err
		}
		if match == nil {
			summary.Pending++
			continue
		}
		if err := e.store.CreateMatch(ctx, match); err != nil {
			// A concurrent run or an earlier line claimed the same
			// target; this line stays pending for manual review.
			if errors.Is(err, store.ErrTargetMatched) || errors.Is(err, store.ErrLineReconciled) {
				e.logger.Warn("match conflict, leaving line pending", "line", line.ID, "target", match.TargetID, "error", err)
				summary.Pending++
				continue
			}
			return nil, fmt.Errorf("creating match for line %s: %w", line.ID, err)
		}
		switch match.Type {
		case models.MatchPix:
			summary.MatchedPix++
		case models.MatchBoleto:
			summary.MatchedBoleto++
		}
		summary.Matches = append(summary.Matches, match)
		e.logger.Info("line reconciled", "line", line.ID, "type", match.Type, "target", match.TargetID, "difference", match.Difference)
	}
	return summary, nil
}

// tryMatch applies the candidate-key strategies and returns nil when no
// unambiguous candidate is found within tolerance.
func (e *Engine) tryMatch(ctx context.Context, line *models.StatementLine) (*models.ReconciliationMatch, error) {
	switch {
	case looksLikeEndToEnd(line.Document):
		pix, err := e.store.PixTransferByE2E(ctx, line.Document)
		if errors.Is(err, store.ErrNotFound) {
			return nil, nil
		}
		if err != nil {
			return nil, fmt.Errorf("pix lookup for line %s: %w", line.ID, err)
		}
		if !withinTolerance(line.Amount, pix.Value) {
			return nil, nil
		}
		return newMatch(line, models.MatchPix, pix.ID, pix.Value, true, ""), nil

	case isNumeric(line.Document):
		// Numbers are sequential per profile; the line's account scope
		// keeps one profile's titles from claiming another's payments.
		slip, err := e.store.BankSlipByNossoNumero(ctx, line.Scope, line.Document)
		if errors.Is(err, store.ErrNotFound) {
			return nil, nil
		}
		if err != nil {
			return nil, fmt.Errorf("slip lookup for line %s: %w", line.ID, err)
		}
		if !withinTolerance(line.Amount, slip.Value) {
			return nil, nil
		}
		return newMatch(line, models.MatchBoleto, slip.ID, slip.Value, true, ""), nil
	}
	return nil, nil
}

// Manual records an operator-directed match, bypassing the lookup
// strategies and the tolerance. The signed difference is stored even
// when non-zero: the operator accepts the discrepancy, the engine does
// not zero it.
func (e *Engine) Manual(ctx context.Context, lineID uuid.UUID, matchType models.MatchType, targetID uuid.UUID, note string) (*models.ReconciliationMatch, error) {
	line, err := e.store.StatementLineByID(ctx, lineID)
	if err != nil {
		return nil, fmt.Errorf("loading line %s: %w", lineID, err)
	}
	if line.Reconciled {
		return nil, ErrAlreadyReconciled
	}

	var systemValue decimal.Decimal
	switch matchType {
	case models.MatchPix:
		pix, err := e.store.PixTransferByID(ctx, targetID)
		if errors.Is(err, store.ErrNotFound) {
			return nil, ErrTargetNotFound
		}
		if err != nil {
			return nil, fmt.Errorf("loading pix %s: %w", targetID, err)
		}
		systemValue = pix.Value
	case models.MatchBoleto:
		slip, err := e.store.BankSlipByID(ctx, targetID)
		if errors.Is(err, store.ErrNotFound) {
			return nil, ErrTargetNotFound
		}
		if err != nil {
			return nil, fmt.Errorf("loading slip %s: %w", targetID, err)
		}
		systemValue = slip.Value
	default:
		return nil, fmt.Errorf("reconcile: unknown match type %q", matchType)
	}

	match := newMatch(line, matchType, targetID, systemValue, false, note)
	if err := e.store.CreateMatch(ctx, match); err != nil {
		switch {
		case errors.Is(err, store.ErrLineReconciled):
			return nil, ErrAlreadyReconciled
		case errors.Is(err, store.ErrTargetMatched):
			return nil, ErrAlreadyMatched
		default:
			return nil, fmt.Errorf("creating match: %w", err)
		}
	}
	e.logger.Info("manual match recorded", "line", lineID, "type", matchType, "target", targetID, "difference", match.Difference)
	return match, nil
}

// ListPending returns the unreconciled lines in scope and range,
// date-ascending. The same listing feeds the operator UI and the
// automatic run, so both see candidates in the same order.
func (e *Engine) ListPending(ctx context.Context, scope models.Scope, from, to time.Time) ([]*models.StatementLine, error) {
	return e.store.ListUnreconciled(ctx, scope, from, to)
}

// Stats is the aggregate view of a scope and period. Pure aggregation,
// no side effects.
type Stats struct {
	Total           int
	Reconciled      int
	Pending         int
	Rate            float64 // reconciled over total, 0..1
	ReconciledValue decimal.Decimal
	PendingValue    decimal.Decimal
}

// Statistics aggregates every statement line in scope and range.
func (e *Engine) Statistics(ctx context.Context, scope models.Scope, from, to time.Time) (*Stats, error) {
	lines, err := e.store.ListStatementLines(ctx, scope, from, to)
	if err != nil {
		return nil, fmt.Errorf("listing lines: %w", err)
	}
	stats := &Stats{
		ReconciledValue: decimal.Zero,
		PendingValue:    decimal.Zero,
		Total:           len(lines),
	}
	for _, l := range lines {
		if l.Reconciled {
			stats.Reconciled++
			stats.ReconciledValue = stats.ReconciledValue.Add(l.Amount)
		} else {
			stats.Pending++
			stats.PendingValue = stats.PendingValue.Add(l.Amount)
		}
	}
	if stats.Total > 0 {
		stats.Rate = float64(stats.Reconciled) / float64(stats.Total)
	}
	return stats, nil
}

func newMatch(line *models.StatementLine, t models.MatchType, targetID uuid.UUID, systemValue decimal.Decimal, automatic bool, note string) *models.ReconciliationMatch {
	return &models.ReconciliationMatch{
		ID:             uuid.New(),
		LineID:         line.ID,
		Type:           t,
		TargetID:       targetID,
		SystemValue:    systemValue,
		StatementValue: line.Amount,
		Difference:     line.Amount.Sub(systemValue),
		Automatic:      automatic,
		Note:           note,
		CreatedAt:      time.Now().UTC(),
	}
}

func withinTolerance(statement, system decimal.Decimal) bool {
	return statement.Sub(system).Abs().LessThanOrEqual(Tolerance)
}

// looksLikeEndToEnd follows the PSP convention that end-to-end ids open
// with 'E' followed by the issuer's ISPB digits.
func looksLikeEndToEnd(document string) bool {
	return len(document) >= 9 && document[0] == 'E' && isNumeric(document[1:9])
}

func isNumeric(s string) bool {
	if s == "" {
		return false
	}
	for _, c := range s {
		if c < '0' || c > '9' {
			return false
		}
	}
	return true
}

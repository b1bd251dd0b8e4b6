// Package service drives the batch side of the settlement pipeline:
// processing bank return files and applying their settlement events to
// the slips on record.
package service

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/charmbracelet/log"

	"github.com/janiosantos/siscom-settlement/pkg/cnab"
	"github.com/janiosantos/siscom-settlement/pkg/models"
	"github.com/janiosantos/siscom-settlement/pkg/store"
)

// Layout identifies which CNAB layout a return file uses.
type Layout string

const (
	Layout240 Layout = "cnab240"
	Layout400 Layout = "cnab400"
)

// DetectLayout inspects the first non-empty line's width.
func DetectLayout(data []byte) (Layout, error) {
	for _, line := range strings.Split(strings.ReplaceAll(string(data), "\r\n", "\n"), "\n") {
		switch len(line) {
		case 0:
			continue
		case cnab.RecordLength240:
			return Layout240, nil
		case cnab.RecordLength400:
			return Layout400, nil
		default:
			return "", fmt.Errorf("service: first record is %d columns, not a known layout", len(line))
		}
	}
	return "", fmt.Errorf("service: empty return file")
}

// ReturnSummary reports what a return batch did.
type ReturnSummary struct {
	Layout    Layout
	Events    []cnab.SettlementEvent
	Paid      int      // slips settled by this batch
	Skipped   int      // paid events whose slip was already settled
	Ignored   int      // known non-settlement occurrences
	Unknown   int      // occurrence codes outside the modeled set
	NotFound  []string // nosso números with no slip on record
	Ambiguous []string // narrowed nosso números matching multiple slips
	Errors    []cnab.LineError
}

// Processor applies return files to the settlement store. It owns the
// OPEN/REGISTERED → PAID transition; the reconciliation engine only
// links statement lines to slips this processor already settled.
type Processor struct {
	store  store.Store
	logger *log.Logger
}

// NewProcessor creates a processor.
func NewProcessor(st store.Store, logger *log.Logger) *Processor {
	return &Processor{store: st, logger: logger}
}

// ProcessReturn parses a return file, then settles each paid title.
// scope is the bank account the return belongs to (the zero Scope
// settles across all profiles). Decode failures and unknown occurrence
// codes are carried in the summary rather than aborting: return batches
// routinely mix valid and truncated lines, and the caller wants the
// partial result.
func (p *Processor) ProcessReturn(ctx context.Context, scope models.Scope, data []byte) (*ReturnSummary, error) {
	layout, err := DetectLayout(data)
	if err != nil {
		return nil, err
	}

	var events []cnab.SettlementEvent
	var lineErrs []cnab.LineError
	if layout == Layout240 {
		events, lineErrs = cnab.ParseRetorno240(string(data))
	} else {
		events, lineErrs = cnab.ParseRetorno400(string(data))
	}

	summary := &ReturnSummary{Layout: layout, Events: events, Errors: lineErrs}
	for _, ev := range lineErrs {
		p.logger.Warn("return line skipped", "line", ev.Line, "error", ev.Err)
	}

	for _, ev := range events {
		switch ev.Kind {
		case cnab.EventPaid:
			p.applyPayment(ctx, scope, ev, layout, summary)
		case cnab.EventUnknown:
			summary.Unknown++
			p.logger.Warn("unknown occurrence code", "code", ev.Occurrence, "nossoNumero", ev.NossoNumero, "line", ev.Line)
		default:
			summary.Ignored++
			p.logger.Debug("occurrence ignored", "kind", ev.Kind, "nossoNumero", ev.NossoNumero, "line", ev.Line)
		}
	}
	return summary, nil
}

// applyPayment finds the slip for a paid event and settles it. Exact
// nosso número lookup first; the legacy 400 layout carries a narrowed
// number, so it falls back to suffix matching. An ambiguous suffix is
// never guessed at: it goes to the summary for manual review.
func (p *Processor) applyPayment(ctx context.Context, scope models.Scope, ev cnab.SettlementEvent, layout Layout, summary *ReturnSummary) {
	slip, err := p.store.BankSlipByNossoNumero(ctx, scope, ev.NossoNumero)
	if errors.Is(err, store.ErrNotFound) && layout == Layout400 {
		slip, err = p.store.BankSlipByNossoNumeroSuffix(ctx, scope, ev.NossoNumero)
	}
	if errors.Is(err, store.ErrAmbiguousNossoNumero) {
		summary.Ambiguous = append(summary.Ambiguous, ev.NossoNumero)
		p.logger.Warn("paid title matches multiple slips", "nossoNumero", ev.NossoNumero, "line", ev.Line)
		return
	}
	if errors.Is(err, store.ErrNotFound) {
		summary.NotFound = append(summary.NotFound, ev.NossoNumero)
		p.logger.Warn("paid title has no slip on record", "nossoNumero", ev.NossoNumero, "line", ev.Line)
		return
	}
	if err != nil {
		summary.NotFound = append(summary.NotFound, ev.NossoNumero)
		p.logger.Error("slip lookup failed", "nossoNumero", ev.NossoNumero, "error", err)
		return
	}

	err = p.store.UpdateBankSlipStatus(ctx, slip.ID, models.SlipPaid, ev.PaidValue, ev.PaidDate)
	if errors.Is(err, store.ErrInvalidTransition) {
		// Re-processing the same batch is allowed; an already settled
		// slip just doesn't settle twice.
		summary.Skipped++
		p.logger.Debug("slip already settled", "nossoNumero", ev.NossoNumero)
		return
	}
	if err != nil {
		p.logger.Error("settling slip failed", "nossoNumero", ev.NossoNumero, "error", err)
		return
	}
	summary.Paid++
	p.logger.Info("slip settled", "nossoNumero", ev.NossoNumero, "value", ev.PaidValue, "date", ev.PaidDate.Format("2006-01-02"))
}

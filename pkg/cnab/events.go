package cnab

import (
	"fmt"
	"time"

	"github.com/shopspring/decimal"
)

// EventKind classifies what a return-file occurrence did to a title.
type EventKind int

const (
	// EventPaid is occurrence "06", liquidação: the payer settled the slip.
	EventPaid EventKind = iota
	// EventConfirmed is occurrence "02": the bank accepted the registration.
	EventConfirmed
	// EventRejected is occurrence "03": the bank refused the registration.
	EventRejected
	// EventWrittenOff is occurrence "09", baixa: the title left the portfolio.
	EventWrittenOff
	// EventProtested is occurrence "19": protest was carried out.
	EventProtested
	// EventUnknown is any occurrence code this decoder does not model.
	// The raw code is kept so the caller can log or alert on it instead
	// of the codec dropping the record.
	EventUnknown
)

func (k EventKind) String() string {
	switch k {
	case EventPaid:
		return "paid"
	case EventConfirmed:
		return "confirmed"
	case EventRejected:
		return "rejected"
	case EventWrittenOff:
		return "written_off"
	case EventProtested:
		return "protested"
	default:
		return "unknown"
	}
}

// kindForOccurrence is the closed occurrence-code table shared by both
// layouts. New bank codes fall through to EventUnknown rather than
// crashing the decoder.
func kindForOccurrence(code string) EventKind {
	switch code {
	case "06":
		return EventPaid
	case "02":
		return EventConfirmed
	case "03":
		return EventRejected
	case "09":
		return EventWrittenOff
	case "19":
		return EventProtested
	default:
		return EventUnknown
	}
}

// SettlementEvent is one decoded occurrence from a return file.
// PaidValue and PaidDate are only meaningful for EventPaid.
type SettlementEvent struct {
	Kind        EventKind
	Occurrence  string // raw bank code, kept even for known kinds
	NossoNumero string
	PaidValue   decimal.Decimal
	PaidDate    time.Time
	Line        int // 1-based line number in the return file
}

// LineError records a return-file line that could not be decoded. Return
// batches routinely mix valid records with truncated trailing lines, so
// these accumulate alongside the parsed events instead of aborting.
type LineError struct {
	Line int
	Err  error
}

func (e LineError) Error() string {
	return fmt.Sprintf("line %d: %v", e.Line, e.Err)
}

package models

import (
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
)

// MatchType tells which kind of internal record a statement line was
// matched against.
type MatchType string

const (
	MatchPix    MatchType = "PIX"
	MatchBoleto MatchType = "BOLETO"
)

// ReconciliationMatch links one statement line to exactly one internal
// payment record. TargetID references a PixTransfer or a BankSlip
// depending on Type, never both. At most one match exists per statement
// line, and a given target may be referenced by at most one match, so a
// payment can never be credited twice.
type ReconciliationMatch struct {
	ID             uuid.UUID
	LineID         uuid.UUID
	Type           MatchType
	TargetID       uuid.UUID
	SystemValue    decimal.Decimal
	StatementValue decimal.Decimal
	Difference     decimal.Decimal // statement minus system, signed
	Automatic      bool
	Note           string
	CreatedAt      time.Time
}

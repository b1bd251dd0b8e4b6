package models

import (
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
)

// Direction is the side of a statement line.
type Direction string

const (
	Credit Direction = "CREDIT"
	Debit  Direction = "DEBIT"
)

// Scope identifies the bank account a statement line belongs to.
type Scope struct {
	BankCode string
	Agency   string
	Account  string
}

// StatementLine is one line of a bank statement (extrato) as ingested
// from a CSV/XLS export. The Document field carries whatever the bank put
// there: sometimes an E2E id, sometimes a nosso número substring; the
// bank does not type-tag it.
//
// Reconciled is terminal: once set (together with MatchID) there is no
// un-reconciliation path.
type StatementLine struct {
	ID          uuid.UUID
	Scope       Scope
	Date        time.Time
	Description string
	Document    string
	Amount      decimal.Decimal // signed: debits negative
	Direction   Direction
	Balance     decimal.Decimal // running balance when the export has one
	HasBalance  bool
	Reconciled  bool
	MatchID     uuid.UUID
}

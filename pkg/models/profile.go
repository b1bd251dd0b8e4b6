package models

import (
	"github.com/google/uuid"
	"github.com/shopspring/decimal"
)

// BankAccountProfile holds the bank agreement a slip is issued under:
// account identification plus the economic terms (interest, penalty,
// protest) that get embedded into every slip and remittance file.
//
// Profiles are immutable once a slip references them. Changing economic
// terms requires a new profile, otherwise already-issued slips would
// carry a fee basis that no longer matches their barcode.
type BankAccountProfile struct {
	ID              uuid.UUID
	BankCode        string // 3 digits, e.g. "341"
	BankName        string
	Agency          string
	AgencyDigit     string
	Account         string
	AccountDigit    string
	Wallet          string // carteira
	Agreement       string // convênio/contrato with the bank
	PayeeName       string // cedente
	PayeeDocument   string // CNPJ
	PayeeAddress    string
	MonthlyInterest decimal.Decimal // percent per month
	PenaltyRate     decimal.Decimal // percent, charged once after due date
	ProtestDays     int
	Active          bool
}

// DailyInterest returns the per-day interest rate used by the remittance
// layouts (monthly rate over 30 days).
func (p *BankAccountProfile) DailyInterest() decimal.Decimal {
	return p.MonthlyInterest.Div(decimal.NewFromInt(30))
}

// Scope returns the statement scope this profile settles under.
func (p *BankAccountProfile) Scope() Scope {
	return Scope{BankCode: p.BankCode, Agency: p.Agency, Account: p.Account}
}

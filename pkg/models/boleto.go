package models

import (
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
)

// SlipStatus is the lifecycle state of a bank slip.
type SlipStatus string

const (
	SlipOpen       SlipStatus = "OPEN"
	SlipRegistered SlipStatus = "REGISTERED"
	SlipPaid       SlipStatus = "PAID"
	SlipOverdue    SlipStatus = "OVERDUE"
	SlipCancelled  SlipStatus = "CANCELLED"
	SlipWrittenOff SlipStatus = "WRITTEN_OFF"
)

// CanTransitionTo reports whether s may move to next. Transitions are
// monotonic: a paid, cancelled or written-off slip never goes back.
// OPEN↔OVERDUE is not listed here because overdue is derived from the due
// date, not stored as an authoritative state change.
func (s SlipStatus) CanTransitionTo(next SlipStatus) bool {
	switch s {
	case SlipOpen:
		return next == SlipRegistered || next == SlipPaid || next == SlipCancelled || next == SlipWrittenOff
	case SlipRegistered:
		return next == SlipPaid || next == SlipCancelled || next == SlipWrittenOff
	default:
		return false
	}
}

// BankSlip is a boleto issued under a BankAccountProfile.
type BankSlip struct {
	ID             uuid.UUID
	ProfileID      uuid.UUID
	NossoNumero    string // bank-scoped sequential number, never reused
	DocumentNumber string // external document reference
	Value          decimal.Decimal
	DueDate        time.Time
	IssueDate      time.Time
	PayerName      string
	PayerDocument  string // CPF (11 digits) or CNPJ (14 digits)
	PayerAddress   string
	PayerCity      string
	PayerState     string
	PayerZip       string
	Instructions   string
	Barcode        string // 44 numeric digits
	DigitableLine  string // 47 numeric digits
	Status         SlipStatus
	PaidValue      decimal.Decimal
	PaidDate       time.Time
}

// Overdue reports whether the slip should be presented as overdue at the
// given reference date. Derived, never persisted as a status.
func (b *BankSlip) Overdue(ref time.Time) bool {
	if b.Status != SlipOpen && b.Status != SlipRegistered {
		return false
	}
	return ref.After(b.DueDate)
}

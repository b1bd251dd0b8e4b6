package models

import (
	"testing"
	"time"

	"github.com/shopspring/decimal"
)

func TestSlipStatusTransitions(t *testing.T) {
	allowed := []struct {
		from, to SlipStatus
	}{
		{SlipOpen, SlipRegistered},
		{SlipOpen, SlipPaid},
		{SlipOpen, SlipCancelled},
		{SlipRegistered, SlipPaid},
		{SlipRegistered, SlipWrittenOff},
	}
	for _, tc := range allowed {
		if !tc.from.CanTransitionTo(tc.to) {
			t.Errorf("%s -> %s should be allowed", tc.from, tc.to)
		}
	}

	denied := []struct {
		from, to SlipStatus
	}{
		{SlipPaid, SlipOpen},
		{SlipPaid, SlipCancelled},
		{SlipCancelled, SlipPaid},
		{SlipWrittenOff, SlipOpen},
		{SlipRegistered, SlipOpen},
	}
	for _, tc := range denied {
		if tc.from.CanTransitionTo(tc.to) {
			t.Errorf("%s -> %s should be denied", tc.from, tc.to)
		}
	}
}

func TestSlipOverdueIsDerived(t *testing.T) {
	due := time.Date(2024, 2, 10, 0, 0, 0, 0, time.UTC)
	slip := &BankSlip{Value: decimal.RequireFromString("100.00"), DueDate: due, Status: SlipOpen}

	if slip.Overdue(due) {
		t.Error("A slip is not overdue on its own due date")
	}
	after := due.AddDate(0, 0, 1)
	if !slip.Overdue(after) {
		t.Error("An open slip past its due date is overdue")
	}

	slip.Status = SlipPaid
	if slip.Overdue(after) {
		t.Error("A paid slip is never overdue")
	}
}

package models

import (
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
)

// PixStatus is the lifecycle state of a PIX transfer.
type PixStatus string

const (
	PixPending PixStatus = "PENDING"
	PixSettled PixStatus = "SETTLED"
	PixFailed  PixStatus = "FAILED"
)

// PixTransfer is an instant payment recorded by the payment module. It is
// created pending and settles exactly once, receiving its end-to-end id
// from the PSP notification. Settled transfers are immutable except for
// reconciliation back-references.
type PixTransfer struct {
	ID        uuid.UUID
	KeyRef    string // PIX key the payment was addressed to
	Value     decimal.Decimal
	EndToEnd  string // E2E id, empty until settled
	Status    PixStatus
	SettledAt time.Time
}

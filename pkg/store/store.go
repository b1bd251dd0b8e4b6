// Package store defines the settlement persistence boundary. The ERP's
// ORM layer sits behind this interface; the in-memory implementation
// here backs tests and the CLI.
package store

import (
	"context"
	"errors"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"

	"github.com/janiosantos/siscom-settlement/pkg/models"
)

var (
	// ErrNotFound is returned when a profile, slip, transfer or
	// statement line does not exist.
	ErrNotFound = errors.New("store: not found")
	// ErrProfileImmutable is returned when updating a profile that
	// issued slips already reference. Economic terms are frozen into
	// those slips; a new profile must be created instead.
	ErrProfileImmutable = errors.New("store: profile referenced by slips is immutable")
	// ErrLineReconciled is returned when creating a match for a
	// statement line that already has one. Reconciliation is terminal.
	ErrLineReconciled = errors.New("store: statement line already reconciled")
	// ErrTargetMatched is returned when the slip or transfer is already
	// referenced by another match. One match per target, so a payment
	// is never credited twice.
	ErrTargetMatched = errors.New("store: target already matched")
	// ErrInvalidTransition is returned when a slip status update
	// violates the monotonic lifecycle.
	ErrInvalidTransition = errors.New("store: invalid slip status transition")
	// ErrAmbiguousNossoNumero is returned when a narrowed nosso número
	// fragment matches more than one slip. The caller routes these to
	// manual review instead of guessing.
	ErrAmbiguousNossoNumero = errors.New("store: nosso número fragment matches multiple slips")
)

// Store is the keyed settlement store the pipeline runs against. All
// methods execute within the caller-provided transaction scope; in
// particular CreateMatch persists the match and flips the line's
// reconciled flag as one atomic unit.
type Store interface {
	SaveProfile(ctx context.Context, p *models.BankAccountProfile) error
	ProfileByID(ctx context.Context, id uuid.UUID) (*models.BankAccountProfile, error)

	// NextNossoNumero atomically reserves the next sequential number
	// for a profile. Reserved numbers are never reused, even when slip
	// creation fails downstream.
	NextNossoNumero(ctx context.Context, profileID uuid.UUID) (int64, error)

	SaveBankSlip(ctx context.Context, s *models.BankSlip) error
	BankSlipByID(ctx context.Context, id uuid.UUID) (*models.BankSlip, error)
	// BankSlipByNossoNumero finds a slip by its canonical number.
	// Numbers are sequential per profile, so the zero scope would
	// collide across profiles; callers pass the account scope they are
	// settling against and the zero Scope means "any".
	BankSlipByNossoNumero(ctx context.Context, scope models.Scope, nossoNumero string) (*models.BankSlip, error)
	// BankSlipByNossoNumeroSuffix finds the slip whose nosso número
	// ends in the given digits. Legacy return layouts carry only the
	// least significant digits of the canonical number, so exact
	// lookup gets this as a documented fallback, never as silent
	// equality. More than one candidate is ErrAmbiguousNossoNumero.
	BankSlipByNossoNumeroSuffix(ctx context.Context, scope models.Scope, fragment string) (*models.BankSlip, error)
	UpdateBankSlipStatus(ctx context.Context, id uuid.UUID, status models.SlipStatus, paidValue decimal.Decimal, paidDate time.Time) error
	// ListBankSlips returns slips issued in the period, issue-date
	// ascending, for remittance batches and reporting.
	ListBankSlips(ctx context.Context, profileID uuid.UUID, from, to time.Time) ([]*models.BankSlip, error)

	SavePixTransfer(ctx context.Context, t *models.PixTransfer) error
	PixTransferByID(ctx context.Context, id uuid.UUID) (*models.PixTransfer, error)
	PixTransferByE2E(ctx context.Context, endToEnd string) (*models.PixTransfer, error)

	SaveStatementLine(ctx context.Context, l *models.StatementLine) error
	StatementLineByID(ctx context.Context, id uuid.UUID) (*models.StatementLine, error)
	ListStatementLines(ctx context.Context, scope models.Scope, from, to time.Time) ([]*models.StatementLine, error)
	ListUnreconciled(ctx context.Context, scope models.Scope, from, to time.Time) ([]*models.StatementLine, error)

	CreateMatch(ctx context.Context, m *models.ReconciliationMatch) error
}

package store

import (
	"context"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/janiosantos/siscom-settlement/pkg/models"
)

func newProfile() *models.BankAccountProfile {
	return &models.BankAccountProfile{
		ID:       uuid.New(),
		BankCode: "341",
		Agency:   "1234",
		Account:  "67890",
		Active:   true,
	}
}

func newSlip(profileID uuid.UUID, nossoNumero string) *models.BankSlip {
	return &models.BankSlip{
		ID:          uuid.New(),
		ProfileID:   profileID,
		NossoNumero: nossoNumero,
		Value:       decimal.RequireFromString("100.00"),
		IssueDate:   time.Date(2024, 1, 10, 0, 0, 0, 0, time.UTC),
		DueDate:     time.Date(2024, 2, 10, 0, 0, 0, 0, time.UTC),
		Status:      models.SlipOpen,
	}
}

func newLine(scope models.Scope, document string, amount string) *models.StatementLine {
	return &models.StatementLine{
		ID:        uuid.New(),
		Scope:     scope,
		Date:      time.Date(2024, 2, 8, 0, 0, 0, 0, time.UTC),
		Document:  document,
		Amount:    decimal.RequireFromString(amount),
		Direction: models.Credit,
	}
}

func TestNextNossoNumeroSequence(t *testing.T) {
	ctx := context.Background()
	m := NewMemory()
	profile := newProfile()
	require.NoError(t, m.SaveProfile(ctx, profile))

	for want := int64(1); want <= 3; want++ {
		got, err := m.NextNossoNumero(ctx, profile.ID)
		require.NoError(t, err)
		assert.Equal(t, want, got)
	}

	_, err := m.NextNossoNumero(ctx, uuid.New())
	assert.ErrorIs(t, err, ErrNotFound)
}

func TestNextNossoNumeroNeverReused(t *testing.T) {
	ctx := context.Background()
	m := NewMemory()
	profile := newProfile()
	require.NoError(t, m.SaveProfile(ctx, profile))

	first, err := m.NextNossoNumero(ctx, profile.ID)
	require.NoError(t, err)

	// No slip is ever saved for the reserved number; the counter still
	// moves forward on the next reservation.
	second, err := m.NextNossoNumero(ctx, profile.ID)
	require.NoError(t, err)
	assert.Equal(t, first+1, second)
}

func TestProfileImmutableOnceReferenced(t *testing.T) {
	ctx := context.Background()
	m := NewMemory()
	profile := newProfile()
	require.NoError(t, m.SaveProfile(ctx, profile))

	// Updating before any slip references it is fine.
	profile.BankName = "BANCO ITAU SA"
	require.NoError(t, m.SaveProfile(ctx, profile))

	require.NoError(t, m.SaveBankSlip(ctx, newSlip(profile.ID, "00000000001")))

	profile.MonthlyInterest = decimal.RequireFromString("3.00")
	assert.ErrorIs(t, m.SaveProfile(ctx, profile), ErrProfileImmutable)
}

func TestUpdateBankSlipStatusTransitions(t *testing.T) {
	ctx := context.Background()
	m := NewMemory()
	profile := newProfile()
	require.NoError(t, m.SaveProfile(ctx, profile))
	slip := newSlip(profile.ID, "00000000001")
	require.NoError(t, m.SaveBankSlip(ctx, slip))

	paidDate := time.Date(2024, 2, 8, 0, 0, 0, 0, time.UTC)
	paid := decimal.RequireFromString("100.00")
	require.NoError(t, m.UpdateBankSlipStatus(ctx, slip.ID, models.SlipPaid, paid, paidDate))

	got, err := m.BankSlipByID(ctx, slip.ID)
	require.NoError(t, err)
	assert.Equal(t, models.SlipPaid, got.Status)
	assert.True(t, got.PaidValue.Equal(paid))
	assert.True(t, got.PaidDate.Equal(paidDate))

	// Paid is terminal.
	err = m.UpdateBankSlipStatus(ctx, slip.ID, models.SlipCancelled, decimal.Zero, time.Time{})
	assert.ErrorIs(t, err, ErrInvalidTransition)
}

func TestBankSlipLookups(t *testing.T) {
	ctx := context.Background()
	m := NewMemory()
	profile := newProfile()
	require.NoError(t, m.SaveProfile(ctx, profile))
	slip := newSlip(profile.ID, "00000000123")
	require.NoError(t, m.SaveBankSlip(ctx, slip))
	scope := profile.Scope()

	exact, err := m.BankSlipByNossoNumero(ctx, scope, "00000000123")
	require.NoError(t, err)
	assert.Equal(t, slip.ID, exact.ID)

	_, err = m.BankSlipByNossoNumero(ctx, scope, "00000123")
	assert.ErrorIs(t, err, ErrNotFound)

	suffix, err := m.BankSlipByNossoNumeroSuffix(ctx, scope, "00000123")
	require.NoError(t, err)
	assert.Equal(t, slip.ID, suffix.ID)

	// The zero scope matches any profile.
	unscoped, err := m.BankSlipByNossoNumero(ctx, models.Scope{}, "00000000123")
	require.NoError(t, err)
	assert.Equal(t, slip.ID, unscoped.ID)
}

func TestBankSlipSuffixLookupIsExact(t *testing.T) {
	ctx := context.Background()
	m := NewMemory()
	profile := newProfile()
	require.NoError(t, m.SaveProfile(ctx, profile))
	scope := profile.Scope()

	// "00000123" is a suffix of the first number but only a substring of
	// the second. The narrowed legacy number keeps the least significant
	// digits, so only the suffix slip may match, on every run.
	suffixSlip := newSlip(profile.ID, "00000000123")
	middleSlip := newSlip(profile.ID, "00000012345")
	require.NoError(t, m.SaveBankSlip(ctx, suffixSlip))
	require.NoError(t, m.SaveBankSlip(ctx, middleSlip))

	for i := 0; i < 50; i++ {
		got, err := m.BankSlipByNossoNumeroSuffix(ctx, scope, "00000123")
		require.NoError(t, err)
		require.Equal(t, suffixSlip.ID, got.ID)
	}
}

func TestBankSlipSuffixLookupAmbiguous(t *testing.T) {
	ctx := context.Background()
	m := NewMemory()
	profile := newProfile()
	require.NoError(t, m.SaveProfile(ctx, profile))
	scope := profile.Scope()

	require.NoError(t, m.SaveBankSlip(ctx, newSlip(profile.ID, "00100000123")))
	require.NoError(t, m.SaveBankSlip(ctx, newSlip(profile.ID, "00200000123")))

	_, err := m.BankSlipByNossoNumeroSuffix(ctx, scope, "00000123")
	assert.ErrorIs(t, err, ErrAmbiguousNossoNumero)

	_, err = m.BankSlipByNossoNumeroSuffix(ctx, scope, "99999999")
	assert.ErrorIs(t, err, ErrNotFound)
}

func TestBankSlipLookupsScopedToProfile(t *testing.T) {
	ctx := context.Background()
	m := NewMemory()

	itau := newProfile()
	bb := &models.BankAccountProfile{
		ID:       uuid.New(),
		BankCode: "001",
		Agency:   "9999",
		Account:  "11111",
		Active:   true,
	}
	require.NoError(t, m.SaveProfile(ctx, itau))
	require.NoError(t, m.SaveProfile(ctx, bb))

	// Sequential numbering restarts per profile, so the same nosso
	// número exists under both accounts.
	itauSlip := newSlip(itau.ID, "00000000001")
	bbSlip := newSlip(bb.ID, "00000000001")
	require.NoError(t, m.SaveBankSlip(ctx, itauSlip))
	require.NoError(t, m.SaveBankSlip(ctx, bbSlip))

	got, err := m.BankSlipByNossoNumero(ctx, itau.Scope(), "00000000001")
	require.NoError(t, err)
	assert.Equal(t, itauSlip.ID, got.ID)

	got, err = m.BankSlipByNossoNumero(ctx, bb.Scope(), "00000000001")
	require.NoError(t, err)
	assert.Equal(t, bbSlip.ID, got.ID)

	got, err = m.BankSlipByNossoNumeroSuffix(ctx, bb.Scope(), "00000001")
	require.NoError(t, err)
	assert.Equal(t, bbSlip.ID, got.ID)
}

func TestListBankSlipsOrderedAndFiltered(t *testing.T) {
	ctx := context.Background()
	m := NewMemory()
	profile := newProfile()
	require.NoError(t, m.SaveProfile(ctx, profile))

	late := newSlip(profile.ID, "00000000002")
	late.IssueDate = time.Date(2024, 1, 20, 0, 0, 0, 0, time.UTC)
	early := newSlip(profile.ID, "00000000001")
	early.IssueDate = time.Date(2024, 1, 5, 0, 0, 0, 0, time.UTC)
	require.NoError(t, m.SaveBankSlip(ctx, late))
	require.NoError(t, m.SaveBankSlip(ctx, early))

	all, err := m.ListBankSlips(ctx, profile.ID, time.Time{}, time.Time{})
	require.NoError(t, err)
	require.Len(t, all, 2)
	assert.Equal(t, early.ID, all[0].ID)
	assert.Equal(t, late.ID, all[1].ID)

	from := time.Date(2024, 1, 10, 0, 0, 0, 0, time.UTC)
	filtered, err := m.ListBankSlips(ctx, profile.ID, from, time.Time{})
	require.NoError(t, err)
	require.Len(t, filtered, 1)
	assert.Equal(t, late.ID, filtered[0].ID)
}

func TestCreateMatchFlipsLineAtomically(t *testing.T) {
	ctx := context.Background()
	m := NewMemory()
	scope := models.Scope{BankCode: "341", Agency: "1234", Account: "67890"}
	line := newLine(scope, "00000000123", "100.00")
	require.NoError(t, m.SaveStatementLine(ctx, line))

	match := &models.ReconciliationMatch{
		ID:       uuid.New(),
		LineID:   line.ID,
		Type:     models.MatchBoleto,
		TargetID: uuid.New(),
	}
	require.NoError(t, m.CreateMatch(ctx, match))

	got, err := m.StatementLineByID(ctx, line.ID)
	require.NoError(t, err)
	assert.True(t, got.Reconciled)
	assert.Equal(t, match.ID, got.MatchID)
}

func TestCreateMatchRejectsReconciledLine(t *testing.T) {
	ctx := context.Background()
	m := NewMemory()
	scope := models.Scope{BankCode: "341"}
	line := newLine(scope, "00000000123", "100.00")
	require.NoError(t, m.SaveStatementLine(ctx, line))

	first := &models.ReconciliationMatch{ID: uuid.New(), LineID: line.ID, TargetID: uuid.New()}
	require.NoError(t, m.CreateMatch(ctx, first))

	second := &models.ReconciliationMatch{ID: uuid.New(), LineID: line.ID, TargetID: uuid.New()}
	assert.ErrorIs(t, m.CreateMatch(ctx, second), ErrLineReconciled)
}

func TestCreateMatchRejectsMatchedTarget(t *testing.T) {
	ctx := context.Background()
	m := NewMemory()
	scope := models.Scope{BankCode: "341"}
	lineA := newLine(scope, "00000000123", "100.00")
	lineB := newLine(scope, "00000000123", "100.00")
	require.NoError(t, m.SaveStatementLine(ctx, lineA))
	require.NoError(t, m.SaveStatementLine(ctx, lineB))

	target := uuid.New()
	require.NoError(t, m.CreateMatch(ctx, &models.ReconciliationMatch{ID: uuid.New(), LineID: lineA.ID, TargetID: target}))

	err := m.CreateMatch(ctx, &models.ReconciliationMatch{ID: uuid.New(), LineID: lineB.ID, TargetID: target})
	assert.ErrorIs(t, err, ErrTargetMatched)

	// The second line must remain pending after the rejected match.
	got, err := m.StatementLineByID(ctx, lineB.ID)
	require.NoError(t, err)
	assert.False(t, got.Reconciled)
}

func TestListUnreconciledScopesAndOrders(t *testing.T) {
	ctx := context.Background()
	m := NewMemory()
	scope := models.Scope{BankCode: "341", Agency: "1234", Account: "67890"}
	other := models.Scope{BankCode: "001", Agency: "9999", Account: "11111"}

	late := newLine(scope, "A", "10.00")
	late.Date = time.Date(2024, 2, 9, 0, 0, 0, 0, time.UTC)
	early := newLine(scope, "B", "20.00")
	early.Date = time.Date(2024, 2, 7, 0, 0, 0, 0, time.UTC)
	elsewhere := newLine(other, "C", "30.00")
	require.NoError(t, m.SaveStatementLine(ctx, late))
	require.NoError(t, m.SaveStatementLine(ctx, early))
	require.NoError(t, m.SaveStatementLine(ctx, elsewhere))

	lines, err := m.ListUnreconciled(ctx, scope, time.Time{}, time.Time{})
	require.NoError(t, err)
	require.Len(t, lines, 2)
	assert.Equal(t, early.ID, lines[0].ID)
	assert.Equal(t, late.ID, lines[1].ID)

	require.NoError(t, m.CreateMatch(ctx, &models.ReconciliationMatch{ID: uuid.New(), LineID: early.ID, TargetID: uuid.New()}))

	lines, err = m.ListUnreconciled(ctx, scope, time.Time{}, time.Time{})
	require.NoError(t, err)
	require.Len(t, lines, 1)
	assert.Equal(t, late.ID, lines[0].ID)
}

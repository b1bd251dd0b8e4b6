package boleto

import (
	"context"
	"io"
	"testing"
	"time"

	"github.com/charmbracelet/log"
	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/janiosantos/siscom-settlement/pkg/models"
	"github.com/janiosantos/siscom-settlement/pkg/store"
)

func issuerFixture(t *testing.T, active bool) (*Issuer, *store.Memory, *models.BankAccountProfile) {
	t.Helper()
	st := store.NewMemory()
	profile := &models.BankAccountProfile{
		ID:            uuid.New(),
		BankCode:      "341",
		BankName:      "BANCO ITAU SA",
		Agency:        "1234",
		AgencyDigit:   "5",
		Account:       "67890",
		AccountDigit:  "1",
		Wallet:        "109",
		PayeeName:     "COMERCIAL SISCOM LTDA",
		PayeeDocument: "12345678000190",
		Active:        active,
	}
	require.NoError(t, st.SaveProfile(context.Background(), profile))
	return NewIssuer(st, log.New(io.Discard)), st, profile
}

func issueRequest() IssueRequest {
	return IssueRequest{
		DocumentNumber: "NF-1042",
		Value:          decimal.RequireFromString("150.50"),
		DueDate:        time.Date(2024, 2, 10, 0, 0, 0, 0, time.UTC),
		IssueDate:      time.Date(2024, 1, 11, 0, 0, 0, 0, time.UTC),
		PayerName:      "JOAO DA SILVA",
		PayerDocument:  "12345678909",
	}
}

func TestIssueCreatesOpenSlip(t *testing.T) {
	ctx := context.Background()
	issuer, st, profile := issuerFixture(t, true)

	slip, err := issuer.Issue(ctx, profile.ID, issueRequest())
	require.NoError(t, err)

	assert.Equal(t, "00000000001", slip.NossoNumero)
	assert.Equal(t, models.SlipOpen, slip.Status)
	assert.Len(t, slip.Barcode, 44)
	assert.Len(t, slip.DigitableLine, 47)
	assert.Contains(t, slip.Barcode, slip.NossoNumero)

	saved, err := st.BankSlipByNossoNumero(ctx, profile.Scope(), "00000000001")
	require.NoError(t, err)
	assert.Equal(t, slip.ID, saved.ID)
}

func TestIssueAllocatesSequentialNumbers(t *testing.T) {
	ctx := context.Background()
	issuer, _, profile := issuerFixture(t, true)

	first, err := issuer.Issue(ctx, profile.ID, issueRequest())
	require.NoError(t, err)
	second, err := issuer.Issue(ctx, profile.ID, issueRequest())
	require.NoError(t, err)

	assert.Equal(t, "00000000001", first.NossoNumero)
	assert.Equal(t, "00000000002", second.NossoNumero)
}

func TestIssueRejectsInactiveProfile(t *testing.T) {
	ctx := context.Background()
	issuer, _, profile := issuerFixture(t, false)

	_, err := issuer.Issue(ctx, profile.ID, issueRequest())
	assert.ErrorIs(t, err, ErrProfileInactive)
}

func TestIssueUnknownProfile(t *testing.T) {
	ctx := context.Background()
	issuer, _, _ := issuerFixture(t, true)

	_, err := issuer.Issue(ctx, uuid.New(), issueRequest())
	assert.ErrorIs(t, err, store.ErrNotFound)
}

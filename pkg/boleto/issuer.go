package boleto

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/charmbracelet/log"
	"github.com/google/uuid"
	"github.com/shopspring/decimal"

	"github.com/janiosantos/siscom-settlement/pkg/models"
	"github.com/janiosantos/siscom-settlement/pkg/store"
)

// ErrProfileInactive rejects issuing against a deactivated profile.
var ErrProfileInactive = errors.New("boleto: bank account profile is inactive")

// NossoNumeroWidth is the canonical width of the sequential number as
// stored on the slip and embedded in the barcode free field.
const NossoNumeroWidth = 11

// Issuer creates slips under a bank account profile.
type Issuer struct {
	store  store.Store
	logger *log.Logger
}

// NewIssuer creates an issuer.
func NewIssuer(st store.Store, logger *log.Logger) *Issuer {
	return &Issuer{store: st, logger: logger}
}

// IssueRequest carries the title data for one slip.
type IssueRequest struct {
	DocumentNumber string
	Value          decimal.Decimal
	DueDate        time.Time
	IssueDate      time.Time
	PayerName      string
	PayerDocument  string
	PayerAddress   string
	PayerCity      string
	PayerState     string
	PayerZip       string
	Instructions   string
}

// Issue allocates the next nosso número for the profile, computes the
// barcode and digitable line, and persists the slip as OPEN. The number
// reservation happens first and is never rolled back: a failure further
// down leaves a gap in the sequence rather than ever reusing a number.
func (i *Issuer) Issue(ctx context.Context, profileID uuid.UUID, req IssueRequest) (*models.BankSlip, error) {
	profile, err := i.store.ProfileByID(ctx, profileID)
	if err != nil {
		return nil, fmt.Errorf("loading profile %s: %w", profileID, err)
	}
	if !profile.Active {
		return nil, ErrProfileInactive
	}

	seq, err := i.store.NextNossoNumero(ctx, profileID)
	if err != nil {
		return nil, fmt.Errorf("reserving nosso número: %w", err)
	}
	nossoNumero := fmt.Sprintf("%0*d", NossoNumeroWidth, seq)

	barcode, err := Barcode(profile.BankCode, profile.Agency, profile.Wallet, profile.Account, nossoNumero, req.Value, req.DueDate)
	if err != nil {
		return nil, err
	}
	line, err := DigitableLine(barcode)
	if err != nil {
		return nil, err
	}

	slip := &models.BankSlip{
		ID:             uuid.New(),
		ProfileID:      profileID,
		NossoNumero:    nossoNumero,
		DocumentNumber: req.DocumentNumber,
		Value:          req.Value,
		DueDate:        req.DueDate,
		IssueDate:      req.IssueDate,
		PayerName:      req.PayerName,
		PayerDocument:  req.PayerDocument,
		PayerAddress:   req.PayerAddress,
		PayerCity:      req.PayerCity,
		PayerState:     req.PayerState,
		PayerZip:       req.PayerZip,
		Instructions:   req.Instructions,
		Barcode:        barcode,
		DigitableLine:  line,
		Status:         models.SlipOpen,
	}
	if err := i.store.SaveBankSlip(ctx, slip); err != nil {
		return nil, fmt.Errorf("saving slip %s: %w", nossoNumero, err)
	}

	i.logger.Info("slip issued", "nossoNumero", nossoNumero, "value", req.Value, "due", req.DueDate.Format("2006-01-02"))
	return slip, nil
}

package cnab

import (
	"fmt"
	"strings"
	"time"

	"github.com/shopspring/decimal"

	"github.com/janiosantos/siscom-settlement/pkg/fixedwidth"
	"github.com/janiosantos/siscom-settlement/pkg/models"
)

// RecordLength400 is the column width of every legacy CNAB 400 record.
const RecordLength400 = 400

// NossoNumeroWidth400 is how many digits of the nosso número the legacy
// detail record carries. Longer numbers keep their least significant
// digits, which is why return matching needs the suffix fallback.
const NossoNumeroWidth400 = 8

var header400 = fixedwidth.NewLayout(RecordLength400,
	fixedwidth.Field{Name: "record", Width: 1, Kind: fixedwidth.TextLeft},
	fixedwidth.Field{Name: "remessaCode", Width: 1, Kind: fixedwidth.NumericZeroPad},
	fixedwidth.Field{Name: "literalRemessa", Width: 7, Kind: fixedwidth.TextLeft},
	fixedwidth.Field{Name: "service", Width: 2, Kind: fixedwidth.TextLeft},
	fixedwidth.Field{Name: "literalService", Width: 15, Kind: fixedwidth.TextLeftTruncate},
	fixedwidth.Field{Name: "agency", Width: 4, Kind: fixedwidth.NumericZeroPad},
	fixedwidth.Field{Name: "zeros", Width: 2, Kind: fixedwidth.NumericZeroPad},
	fixedwidth.Field{Name: "account", Width: 5, Kind: fixedwidth.NumericZeroPad},
	fixedwidth.Field{Name: "accountDV", Width: 1, Kind: fixedwidth.TextLeft},
	fixedwidth.Field{Name: "filler1", Width: 8, Kind: fixedwidth.TextLeft},
	fixedwidth.Field{Name: "payeeName", Width: 30, Kind: fixedwidth.TextLeftTruncate},
	fixedwidth.Field{Name: "bank", Width: 3, Kind: fixedwidth.NumericZeroPad},
	fixedwidth.Field{Name: "bankName", Width: 15, Kind: fixedwidth.TextLeftTruncate},
	fixedwidth.Field{Name: "genDate", Width: 6, Kind: fixedwidth.DateDDMMYY},
	fixedwidth.Field{Name: "filler2", Width: 10, Kind: fixedwidth.TextLeft},
	fixedwidth.Field{Name: "remessaNumber", Width: 7, Kind: fixedwidth.NumericZeroPad},
	fixedwidth.Field{Name: "filler3", Width: 277, Kind: fixedwidth.TextLeft},
	fixedwidth.Field{Name: "sequence", Width: 6, Kind: fixedwidth.NumericZeroPad},
)

var detail400 = fixedwidth.NewLayout(RecordLength400,
	fixedwidth.Field{Name: "record", Width: 1, Kind: fixedwidth.TextLeft},
	fixedwidth.Field{Name: "inscription", Width: 2, Kind: fixedwidth.NumericZeroPad},
	fixedwidth.Field{Name: "document", Width: 14, Kind: fixedwidth.NumericZeroPad},
	fixedwidth.Field{Name: "agency", Width: 4, Kind: fixedwidth.NumericZeroPad},
	fixedwidth.Field{Name: "zeros", Width: 2, Kind: fixedwidth.NumericZeroPad},
	fixedwidth.Field{Name: "account", Width: 5, Kind: fixedwidth.NumericZeroPad},
	fixedwidth.Field{Name: "accountDV", Width: 1, Kind: fixedwidth.TextLeft},
	fixedwidth.Field{Name: "filler1", Width: 4, Kind: fixedwidth.TextLeft},
	fixedwidth.Field{Name: "instruction", Width: 4, Kind: fixedwidth.NumericZeroPad},
	fixedwidth.Field{Name: "companyUse", Width: 25, Kind: fixedwidth.TextLeftTruncate},
	fixedwidth.Field{Name: "nossoNumero", Width: 8, Kind: fixedwidth.NumericZeroPad},
	fixedwidth.Field{Name: "currencyQty", Width: 13, Kind: fixedwidth.NumericZeroPad},
	fixedwidth.Field{Name: "walletNumber", Width: 3, Kind: fixedwidth.NumericZeroPad},
	fixedwidth.Field{Name: "bankUse", Width: 21, Kind: fixedwidth.TextLeftTruncate},
	fixedwidth.Field{Name: "wallet", Width: 1, Kind: fixedwidth.TextLeft},
	fixedwidth.Field{Name: "occurrence", Width: 2, Kind: fixedwidth.TextLeft},
	fixedwidth.Field{Name: "documentNumber", Width: 10, Kind: fixedwidth.TextLeftTruncate},
	fixedwidth.Field{Name: "dueDate", Width: 6, Kind: fixedwidth.DateDDMMYY},
	fixedwidth.Field{Name: "value", Width: 13, Kind: fixedwidth.DecimalImplicit, Scale: 2},
	fixedwidth.Field{Name: "bank", Width: 3, Kind: fixedwidth.NumericZeroPad},
	fixedwidth.Field{Name: "chargeAgency", Width: 5, Kind: fixedwidth.NumericZeroPad},
	fixedwidth.Field{Name: "species", Width: 2, Kind: fixedwidth.NumericZeroPad},
	fixedwidth.Field{Name: "accept", Width: 1, Kind: fixedwidth.TextLeft},
	fixedwidth.Field{Name: "issueDate", Width: 6, Kind: fixedwidth.DateDDMMYY},
	fixedwidth.Field{Name: "instruction1", Width: 2, Kind: fixedwidth.NumericZeroPad},
	fixedwidth.Field{Name: "instruction2", Width: 2, Kind: fixedwidth.NumericZeroPad},
	fixedwidth.Field{Name: "interestDaily", Width: 13, Kind: fixedwidth.DecimalImplicit, Scale: 2},
	fixedwidth.Field{Name: "discountDate", Width: 6, Kind: fixedwidth.DateDDMMYY},
	fixedwidth.Field{Name: "discountValue", Width: 13, Kind: fixedwidth.DecimalImplicit, Scale: 2},
	fixedwidth.Field{Name: "iof", Width: 13, Kind: fixedwidth.DecimalImplicit, Scale: 2},
	fixedwidth.Field{Name: "rebate", Width: 13, Kind: fixedwidth.DecimalImplicit, Scale: 2},
	fixedwidth.Field{Name: "payerInscription", Width: 2, Kind: fixedwidth.NumericZeroPad},
	fixedwidth.Field{Name: "payerDocument", Width: 14, Kind: fixedwidth.NumericZeroPad},
	fixedwidth.Field{Name: "payerName", Width: 30, Kind: fixedwidth.TextLeftTruncate},
	fixedwidth.Field{Name: "filler2", Width: 10, Kind: fixedwidth.TextLeft},
	fixedwidth.Field{Name: "payerAddress", Width: 40, Kind: fixedwidth.TextLeftTruncate},
	fixedwidth.Field{Name: "payerDistrict", Width: 12, Kind: fixedwidth.TextLeftTruncate},
	fixedwidth.Field{Name: "payerZip", Width: 8, Kind: fixedwidth.NumericZeroPad},
	fixedwidth.Field{Name: "payerCity", Width: 15, Kind: fixedwidth.TextLeftTruncate},
	fixedwidth.Field{Name: "payerState", Width: 2, Kind: fixedwidth.TextLeft},
	fixedwidth.Field{Name: "guarantorName", Width: 30, Kind: fixedwidth.TextLeftTruncate},
	fixedwidth.Field{Name: "filler3", Width: 4, Kind: fixedwidth.TextLeft},
	fixedwidth.Field{Name: "penaltyDate", Width: 6, Kind: fixedwidth.DateDDMMYY},
	fixedwidth.Field{Name: "protestDays", Width: 2, Kind: fixedwidth.NumericZeroPad},
	fixedwidth.Field{Name: "filler4", Width: 1, Kind: fixedwidth.TextLeft},
	fixedwidth.Field{Name: "sequence", Width: 6, Kind: fixedwidth.NumericZeroPad},
)

var trailer400 = fixedwidth.NewLayout(RecordLength400,
	fixedwidth.Field{Name: "record", Width: 1, Kind: fixedwidth.TextLeft},
	fixedwidth.Field{Name: "filler1", Width: 393, Kind: fixedwidth.TextLeft},
	fixedwidth.Field{Name: "sequence", Width: 6, Kind: fixedwidth.NumericZeroPad},
)

var retornoDetail400 = fixedwidth.NewLayout(RecordLength400,
	fixedwidth.Field{Name: "record", Width: 1, Kind: fixedwidth.TextLeft},
	fixedwidth.Field{Name: "inscription", Width: 2, Kind: fixedwidth.NumericZeroPad},
	fixedwidth.Field{Name: "document", Width: 14, Kind: fixedwidth.NumericZeroPad},
	fixedwidth.Field{Name: "agency", Width: 4, Kind: fixedwidth.NumericZeroPad},
	fixedwidth.Field{Name: "zeros", Width: 2, Kind: fixedwidth.NumericZeroPad},
	fixedwidth.Field{Name: "account", Width: 5, Kind: fixedwidth.NumericZeroPad},
	fixedwidth.Field{Name: "accountDV", Width: 1, Kind: fixedwidth.TextLeft},
	fixedwidth.Field{Name: "filler1", Width: 8, Kind: fixedwidth.TextLeft},
	fixedwidth.Field{Name: "companyUse", Width: 25, Kind: fixedwidth.TextLeftTruncate},
	fixedwidth.Field{Name: "nossoNumero", Width: 8, Kind: fixedwidth.NumericZeroPad},
	fixedwidth.Field{Name: "filler2", Width: 12, Kind: fixedwidth.TextLeft},
	fixedwidth.Field{Name: "walletNumber", Width: 3, Kind: fixedwidth.NumericZeroPad},
	fixedwidth.Field{Name: "nossoNumeroConfirm", Width: 8, Kind: fixedwidth.NumericZeroPad},
	fixedwidth.Field{Name: "filler3", Width: 14, Kind: fixedwidth.TextLeft},
	fixedwidth.Field{Name: "wallet", Width: 1, Kind: fixedwidth.TextLeft},
	fixedwidth.Field{Name: "occurrence", Width: 2, Kind: fixedwidth.TextLeft},
	fixedwidth.Field{Name: "occurrenceDate", Width: 6, Kind: fixedwidth.DateDDMMYY},
	fixedwidth.Field{Name: "documentNumber", Width: 10, Kind: fixedwidth.TextLeftTruncate},
	fixedwidth.Field{Name: "dueDate", Width: 6, Kind: fixedwidth.DateDDMMYY},
	fixedwidth.Field{Name: "value", Width: 13, Kind: fixedwidth.DecimalImplicit, Scale: 2},
	fixedwidth.Field{Name: "bank", Width: 3, Kind: fixedwidth.NumericZeroPad},
	fixedwidth.Field{Name: "chargeAgency", Width: 5, Kind: fixedwidth.NumericZeroPad},
	fixedwidth.Field{Name: "species", Width: 2, Kind: fixedwidth.NumericZeroPad},
	fixedwidth.Field{Name: "tariff", Width: 13, Kind: fixedwidth.DecimalImplicit, Scale: 2},
	fixedwidth.Field{Name: "filler4", Width: 26, Kind: fixedwidth.TextLeft},
	fixedwidth.Field{Name: "iof", Width: 13, Kind: fixedwidth.DecimalImplicit, Scale: 2},
	fixedwidth.Field{Name: "rebate", Width: 13, Kind: fixedwidth.DecimalImplicit, Scale: 2},
	fixedwidth.Field{Name: "discount", Width: 13, Kind: fixedwidth.DecimalImplicit, Scale: 2},
	fixedwidth.Field{Name: "paidValue", Width: 13, Kind: fixedwidth.DecimalImplicit, Scale: 2},
	fixedwidth.Field{Name: "interest", Width: 13, Kind: fixedwidth.DecimalImplicit, Scale: 2},
	fixedwidth.Field{Name: "otherCredits", Width: 13, Kind: fixedwidth.DecimalImplicit, Scale: 2},
	fixedwidth.Field{Name: "filler5", Width: 122, Kind: fixedwidth.TextLeft},
	fixedwidth.Field{Name: "sequence", Width: 6, Kind: fixedwidth.NumericZeroPad},
)

// nossoNumero400 narrows a canonical nosso número to the legacy field
// width, keeping the least significant digits.
func nossoNumero400(nossoNumero string) string {
	d := onlyDigits(nossoNumero)
	if len(d) > NossoNumeroWidth400 {
		return d[len(d)-NossoNumeroWidth400:]
	}
	return d
}

// BuildRemessa400 assembles a legacy single-segment remittance: header,
// one detail record per slip with payer data inline, and the trailer.
// Same purity contract as the 240 builder.
func BuildRemessa400(profile *models.BankAccountProfile, slips []*models.BankSlip, sequence int, generatedAt time.Time) (string, error) {
	lines := make([]string, 0, 2+len(slips))

	header, err := header400.Encode(map[string]any{
		"record":         "0",
		"remessaCode":    1,
		"literalRemessa": "REMESSA",
		"service":        "01",
		"literalService": "COBRANCA",
		"agency":         profile.Agency,
		"zeros":          0,
		"account":        lastDigits(profile.Account, 5),
		"accountDV":      profile.AccountDigit,
		"filler1":        "",
		"payeeName":      profile.PayeeName,
		"bank":           profile.BankCode,
		"bankName":       profile.BankName,
		"genDate":        generatedAt,
		"filler2":        "",
		"remessaNumber":  sequence,
		"filler3":        "",
		"sequence":       1,
	})
	if err != nil {
		return "", fmt.Errorf("header: %w", err)
	}
	lines = append(lines, header)

	for i, slip := range slips {
		detail, err := detail400.Encode(map[string]any{
			"record":           "1",
			"inscription":      2,
			"document":         onlyDigits(profile.PayeeDocument),
			"agency":           profile.Agency,
			"zeros":            0,
			"account":          lastDigits(profile.Account, 5),
			"accountDV":        profile.AccountDigit,
			"filler1":          "",
			"instruction":      0,
			"companyUse":       slip.DocumentNumber,
			"nossoNumero":      nossoNumero400(slip.NossoNumero),
			"currencyQty":      0,
			"walletNumber":     profile.Wallet,
			"bankUse":          "",
			"wallet":           "I",
			"occurrence":       "01",
			"documentNumber":   slip.DocumentNumber,
			"dueDate":          slip.DueDate,
			"value":            slip.Value,
			"bank":             profile.BankCode,
			"chargeAgency":     0,
			"species":          1,
			"accept":           "N",
			"issueDate":        slip.IssueDate,
			"instruction1":     0,
			"instruction2":     0,
			"interestDaily":    dailyInterestValue(profile, slip),
			"discountDate":     time.Time{},
			"discountValue":    decimal.Zero,
			"iof":              decimal.Zero,
			"rebate":           decimal.Zero,
			"payerInscription": inscriptionTypeFor(slip.PayerDocument),
			"payerDocument":    onlyDigits(slip.PayerDocument),
			"payerName":        slip.PayerName,
			"filler2":          "",
			"payerAddress":     slip.PayerAddress,
			"payerDistrict":    "",
			"payerZip":         onlyDigits(slip.PayerZip),
			"payerCity":        slip.PayerCity,
			"payerState":       slip.PayerState,
			"guarantorName":    "",
			"filler3":          "",
			"penaltyDate":      slip.DueDate.AddDate(0, 0, 1),
			"protestDays":      profile.ProtestDays,
			"filler4":          "",
			"sequence":         i + 2,
		})
		if err != nil {
			return "", fmt.Errorf("detail for %s: %w", slip.NossoNumero, err)
		}
		lines = append(lines, detail)
	}

	trailer, err := trailer400.Encode(map[string]any{
		"record":   "9",
		"filler1":  "",
		"sequence": len(slips) + 2,
	})
	if err != nil {
		return "", fmt.Errorf("trailer: %w", err)
	}
	lines = append(lines, trailer)

	return strings.Join(lines, "\r\n"), nil
}

func lastDigits(s string, n int) string {
	d := onlyDigits(s)
	if len(d) > n {
		return d[len(d)-n:]
	}
	return d
}

// ParseRetorno400 decodes a legacy return batch. Only record-type '1'
// details carry occurrences; the header and trailer are structural.
// Error handling matches ParseRetorno240: bad lines accumulate, the
// batch never aborts.
func ParseRetorno400(text string) ([]SettlementEvent, []LineError) {
	var events []SettlementEvent
	var errs []LineError

	for i, line := range splitLines(text) {
		n := i + 1
		if line == "" {
			continue
		}
		if len(line) != RecordLength400 {
			errs = append(errs, LineError{Line: n, Err: fmt.Errorf("line is %d columns, want %d", len(line), RecordLength400)})
			continue
		}
		if line[0] != '1' {
			continue
		}
		values, err := retornoDetail400.Decode(line)
		if err != nil {
			errs = append(errs, LineError{Line: n, Err: err})
			continue
		}
		code := values.String("occurrence")
		events = append(events, SettlementEvent{
			Kind:        kindForOccurrence(code),
			Occurrence:  code,
			NossoNumero: values.Digits("nossoNumero"),
			PaidValue:   values.Decimal("paidValue"),
			PaidDate:    values.Date("occurrenceDate"),
			Line:        n,
		})
	}
	return events, errs
}

// Package cnab builds remittance files and parses return files in the
// Febraban CNAB 240 cobrança layout and the legacy CNAB 400 layout. All
// functions are pure: the same inputs always produce the same bytes, so
// a remittance can be regenerated for audit.
package cnab

import (
	"fmt"
	"strings"
	"time"

	"github.com/shopspring/decimal"

	"github.com/janiosantos/siscom-settlement/pkg/fixedwidth"
	"github.com/janiosantos/siscom-settlement/pkg/models"
)

const (
	// RecordLength240 is the column width of every CNAB 240 record.
	RecordLength240 = 240
	// LayoutVersion240 is the Febraban layout version stamped on the
	// file header.
	LayoutVersion240 = "103"
)

var headerArquivo240 = fixedwidth.NewLayout(RecordLength240,
	fixedwidth.Field{Name: "bank", Width: 3, Kind: fixedwidth.NumericZeroPad},
	fixedwidth.Field{Name: "lot", Width: 4, Kind: fixedwidth.NumericZeroPad},
	fixedwidth.Field{Name: "record", Width: 1, Kind: fixedwidth.TextLeft},
	fixedwidth.Field{Name: "filler1", Width: 9, Kind: fixedwidth.TextLeft},
	fixedwidth.Field{Name: "inscription", Width: 1, Kind: fixedwidth.NumericZeroPad},
	fixedwidth.Field{Name: "document", Width: 14, Kind: fixedwidth.NumericZeroPad},
	fixedwidth.Field{Name: "agreement", Width: 20, Kind: fixedwidth.TextLeftTruncate},
	fixedwidth.Field{Name: "agency", Width: 5, Kind: fixedwidth.NumericZeroPad},
	fixedwidth.Field{Name: "agencyDV", Width: 1, Kind: fixedwidth.TextLeft},
	fixedwidth.Field{Name: "account", Width: 12, Kind: fixedwidth.NumericZeroPad},
	fixedwidth.Field{Name: "accountDV", Width: 1, Kind: fixedwidth.TextLeft},
	fixedwidth.Field{Name: "dv", Width: 1, Kind: fixedwidth.TextLeft},
	fixedwidth.Field{Name: "payeeName", Width: 30, Kind: fixedwidth.TextLeftTruncate},
	fixedwidth.Field{Name: "bankName", Width: 30, Kind: fixedwidth.TextLeftTruncate},
	fixedwidth.Field{Name: "filler2", Width: 10, Kind: fixedwidth.TextLeft},
	fixedwidth.Field{Name: "remessaCode", Width: 1, Kind: fixedwidth.NumericZeroPad},
	fixedwidth.Field{Name: "genDate", Width: 8, Kind: fixedwidth.DateDDMMYYYY},
	fixedwidth.Field{Name: "genTime", Width: 6, Kind: fixedwidth.NumericZeroPad},
	fixedwidth.Field{Name: "sequence", Width: 6, Kind: fixedwidth.NumericZeroPad},
	fixedwidth.Field{Name: "layout", Width: 3, Kind: fixedwidth.TextLeft},
	fixedwidth.Field{Name: "density", Width: 5, Kind: fixedwidth.NumericZeroPad},
	fixedwidth.Field{Name: "filler3", Width: 69, Kind: fixedwidth.TextLeft},
)

var headerLote240 = fixedwidth.NewLayout(RecordLength240,
	fixedwidth.Field{Name: "bank", Width: 3, Kind: fixedwidth.NumericZeroPad},
	fixedwidth.Field{Name: "lot", Width: 4, Kind: fixedwidth.NumericZeroPad},
	fixedwidth.Field{Name: "record", Width: 1, Kind: fixedwidth.TextLeft},
	fixedwidth.Field{Name: "operation", Width: 1, Kind: fixedwidth.TextLeft},
	fixedwidth.Field{Name: "service", Width: 2, Kind: fixedwidth.TextLeft},
	fixedwidth.Field{Name: "filler1", Width: 2, Kind: fixedwidth.TextLeft},
	fixedwidth.Field{Name: "layout", Width: 3, Kind: fixedwidth.TextLeft},
	fixedwidth.Field{Name: "filler2", Width: 1, Kind: fixedwidth.TextLeft},
	fixedwidth.Field{Name: "inscription", Width: 1, Kind: fixedwidth.NumericZeroPad},
	fixedwidth.Field{Name: "document", Width: 15, Kind: fixedwidth.NumericZeroPad},
	fixedwidth.Field{Name: "agreement", Width: 20, Kind: fixedwidth.TextLeftTruncate},
	fixedwidth.Field{Name: "agency", Width: 5, Kind: fixedwidth.NumericZeroPad},
	fixedwidth.Field{Name: "agencyDV", Width: 1, Kind: fixedwidth.TextLeft},
	fixedwidth.Field{Name: "account", Width: 12, Kind: fixedwidth.NumericZeroPad},
	fixedwidth.Field{Name: "accountDV", Width: 1, Kind: fixedwidth.TextLeft},
	fixedwidth.Field{Name: "dv", Width: 1, Kind: fixedwidth.TextLeft},
	fixedwidth.Field{Name: "payeeName", Width: 30, Kind: fixedwidth.TextLeftTruncate},
	fixedwidth.Field{Name: "message1", Width: 40, Kind: fixedwidth.TextLeftTruncate},
	fixedwidth.Field{Name: "message2", Width: 40, Kind: fixedwidth.TextLeftTruncate},
	fixedwidth.Field{Name: "remessaNumber", Width: 8, Kind: fixedwidth.NumericZeroPad},
	fixedwidth.Field{Name: "recordDate", Width: 8, Kind: fixedwidth.DateDDMMYYYY},
	fixedwidth.Field{Name: "filler3", Width: 41, Kind: fixedwidth.TextLeft},
)

var segmentP240 = fixedwidth.NewLayout(RecordLength240,
	fixedwidth.Field{Name: "bank", Width: 3, Kind: fixedwidth.NumericZeroPad},
	fixedwidth.Field{Name: "lot", Width: 4, Kind: fixedwidth.NumericZeroPad},
	fixedwidth.Field{Name: "record", Width: 1, Kind: fixedwidth.TextLeft},
	fixedwidth.Field{Name: "sequence", Width: 5, Kind: fixedwidth.NumericZeroPad},
	fixedwidth.Field{Name: "segment", Width: 1, Kind: fixedwidth.TextLeft},
	fixedwidth.Field{Name: "filler1", Width: 1, Kind: fixedwidth.TextLeft},
	fixedwidth.Field{Name: "movement", Width: 2, Kind: fixedwidth.TextLeft},
	fixedwidth.Field{Name: "agency", Width: 5, Kind: fixedwidth.NumericZeroPad},
	fixedwidth.Field{Name: "agencyDV", Width: 1, Kind: fixedwidth.TextLeft},
	fixedwidth.Field{Name: "account", Width: 12, Kind: fixedwidth.NumericZeroPad},
	fixedwidth.Field{Name: "accountDV", Width: 1, Kind: fixedwidth.TextLeft},
	fixedwidth.Field{Name: "dv", Width: 1, Kind: fixedwidth.TextLeft},
	fixedwidth.Field{Name: "nossoNumero", Width: 20, Kind: fixedwidth.TextLeft},
	fixedwidth.Field{Name: "wallet", Width: 1, Kind: fixedwidth.NumericZeroPad},
	fixedwidth.Field{Name: "registration", Width: 1, Kind: fixedwidth.NumericZeroPad},
	fixedwidth.Field{Name: "docKind", Width: 1, Kind: fixedwidth.NumericZeroPad},
	fixedwidth.Field{Name: "issueControl", Width: 1, Kind: fixedwidth.NumericZeroPad},
	fixedwidth.Field{Name: "distribution", Width: 1, Kind: fixedwidth.NumericZeroPad},
	fixedwidth.Field{Name: "documentNumber", Width: 15, Kind: fixedwidth.TextLeftTruncate},
	fixedwidth.Field{Name: "dueDate", Width: 8, Kind: fixedwidth.DateDDMMYYYY},
	fixedwidth.Field{Name: "value", Width: 15, Kind: fixedwidth.DecimalImplicit, Scale: 2},
	fixedwidth.Field{Name: "chargeAgency", Width: 5, Kind: fixedwidth.NumericZeroPad},
	fixedwidth.Field{Name: "chargeAgencyDV", Width: 1, Kind: fixedwidth.TextLeft},
	fixedwidth.Field{Name: "species", Width: 2, Kind: fixedwidth.NumericZeroPad},
	fixedwidth.Field{Name: "accept", Width: 1, Kind: fixedwidth.TextLeft},
	fixedwidth.Field{Name: "issueDate", Width: 8, Kind: fixedwidth.DateDDMMYYYY},
	fixedwidth.Field{Name: "interestCode", Width: 1, Kind: fixedwidth.NumericZeroPad},
	fixedwidth.Field{Name: "interestDate", Width: 8, Kind: fixedwidth.DateDDMMYYYY},
	fixedwidth.Field{Name: "interestDaily", Width: 15, Kind: fixedwidth.DecimalImplicit, Scale: 2},
	fixedwidth.Field{Name: "discountCode", Width: 1, Kind: fixedwidth.NumericZeroPad},
	fixedwidth.Field{Name: "discountDate", Width: 8, Kind: fixedwidth.DateDDMMYYYY},
	fixedwidth.Field{Name: "discountValue", Width: 15, Kind: fixedwidth.DecimalImplicit, Scale: 2},
	fixedwidth.Field{Name: "iof", Width: 15, Kind: fixedwidth.DecimalImplicit, Scale: 2},
	fixedwidth.Field{Name: "rebate", Width: 15, Kind: fixedwidth.DecimalImplicit, Scale: 2},
	fixedwidth.Field{Name: "companyUse", Width: 25, Kind: fixedwidth.TextLeftTruncate},
	fixedwidth.Field{Name: "protestCode", Width: 1, Kind: fixedwidth.NumericZeroPad},
	fixedwidth.Field{Name: "protestDays", Width: 2, Kind: fixedwidth.NumericZeroPad},
	fixedwidth.Field{Name: "writeOffCode", Width: 1, Kind: fixedwidth.NumericZeroPad},
	fixedwidth.Field{Name: "writeOffDays", Width: 3, Kind: fixedwidth.NumericZeroPad},
	fixedwidth.Field{Name: "currency", Width: 2, Kind: fixedwidth.NumericZeroPad},
	fixedwidth.Field{Name: "contract", Width: 10, Kind: fixedwidth.NumericZeroPad},
	fixedwidth.Field{Name: "freeUse", Width: 1, Kind: fixedwidth.TextLeft},
)

var segmentQ240 = fixedwidth.NewLayout(RecordLength240,
	fixedwidth.Field{Name: "bank", Width: 3, Kind: fixedwidth.NumericZeroPad},
	fixedwidth.Field{Name: "lot", Width: 4, Kind: fixedwidth.NumericZeroPad},
	fixedwidth.Field{Name: "record", Width: 1, Kind: fixedwidth.TextLeft},
	fixedwidth.Field{Name: "sequence", Width: 5, Kind: fixedwidth.NumericZeroPad},
	fixedwidth.Field{Name: "segment", Width: 1, Kind: fixedwidth.TextLeft},
	fixedwidth.Field{Name: "filler1", Width: 1, Kind: fixedwidth.TextLeft},
	fixedwidth.Field{Name: "movement", Width: 2, Kind: fixedwidth.TextLeft},
	fixedwidth.Field{Name: "payerInscription", Width: 1, Kind: fixedwidth.NumericZeroPad},
	fixedwidth.Field{Name: "payerDocument", Width: 15, Kind: fixedwidth.NumericZeroPad},
	fixedwidth.Field{Name: "payerName", Width: 40, Kind: fixedwidth.TextLeftTruncate},
	fixedwidth.Field{Name: "payerAddress", Width: 40, Kind: fixedwidth.TextLeftTruncate},
	fixedwidth.Field{Name: "payerDistrict", Width: 15, Kind: fixedwidth.TextLeftTruncate},
	fixedwidth.Field{Name: "payerZip", Width: 5, Kind: fixedwidth.NumericZeroPad},
	fixedwidth.Field{Name: "payerZipSuffix", Width: 3, Kind: fixedwidth.NumericZeroPad},
	fixedwidth.Field{Name: "payerCity", Width: 15, Kind: fixedwidth.TextLeftTruncate},
	fixedwidth.Field{Name: "payerState", Width: 2, Kind: fixedwidth.TextLeft},
	fixedwidth.Field{Name: "guarantorInscription", Width: 1, Kind: fixedwidth.NumericZeroPad},
	fixedwidth.Field{Name: "guarantorDocument", Width: 15, Kind: fixedwidth.NumericZeroPad},
	fixedwidth.Field{Name: "guarantorName", Width: 40, Kind: fixedwidth.TextLeftTruncate},
	fixedwidth.Field{Name: "correspondingBank", Width: 3, Kind: fixedwidth.NumericZeroPad},
	fixedwidth.Field{Name: "correspondingNossoNumero", Width: 20, Kind: fixedwidth.TextLeft},
	fixedwidth.Field{Name: "filler2", Width: 8, Kind: fixedwidth.TextLeft},
)

var segmentR240 = fixedwidth.NewLayout(RecordLength240,
	fixedwidth.Field{Name: "bank", Width: 3, Kind: fixedwidth.NumericZeroPad},
	fixedwidth.Field{Name: "lot", Width: 4, Kind: fixedwidth.NumericZeroPad},
	fixedwidth.Field{Name: "record", Width: 1, Kind: fixedwidth.TextLeft},
	fixedwidth.Field{Name: "sequence", Width: 5, Kind: fixedwidth.NumericZeroPad},
	fixedwidth.Field{Name: "segment", Width: 1, Kind: fixedwidth.TextLeft},
	fixedwidth.Field{Name: "filler1", Width: 1, Kind: fixedwidth.TextLeft},
	fixedwidth.Field{Name: "movement", Width: 2, Kind: fixedwidth.TextLeft},
	fixedwidth.Field{Name: "discount2Code", Width: 1, Kind: fixedwidth.NumericZeroPad},
	fixedwidth.Field{Name: "discount2Date", Width: 8, Kind: fixedwidth.DateDDMMYYYY},
	fixedwidth.Field{Name: "discount2Value", Width: 15, Kind: fixedwidth.DecimalImplicit, Scale: 2},
	fixedwidth.Field{Name: "discount3Code", Width: 1, Kind: fixedwidth.NumericZeroPad},
	fixedwidth.Field{Name: "discount3Date", Width: 8, Kind: fixedwidth.DateDDMMYYYY},
	fixedwidth.Field{Name: "discount3Value", Width: 15, Kind: fixedwidth.DecimalImplicit, Scale: 2},
	fixedwidth.Field{Name: "penaltyCode", Width: 1, Kind: fixedwidth.NumericZeroPad},
	fixedwidth.Field{Name: "penaltyDate", Width: 8, Kind: fixedwidth.DateDDMMYYYY},
	fixedwidth.Field{Name: "penaltyRate", Width: 15, Kind: fixedwidth.DecimalImplicit, Scale: 2},
	fixedwidth.Field{Name: "payerInfo", Width: 10, Kind: fixedwidth.TextLeftTruncate},
	fixedwidth.Field{Name: "message3", Width: 40, Kind: fixedwidth.TextLeftTruncate},
	fixedwidth.Field{Name: "message4", Width: 40, Kind: fixedwidth.TextLeftTruncate},
	fixedwidth.Field{Name: "filler2", Width: 61, Kind: fixedwidth.TextLeft},
)

var segmentT240 = fixedwidth.NewLayout(RecordLength240,
	fixedwidth.Field{Name: "bank", Width: 3, Kind: fixedwidth.NumericZeroPad},
	fixedwidth.Field{Name: "lot", Width: 4, Kind: fixedwidth.NumericZeroPad},
	fixedwidth.Field{Name: "record", Width: 1, Kind: fixedwidth.TextLeft},
	fixedwidth.Field{Name: "sequence", Width: 5, Kind: fixedwidth.NumericZeroPad},
	fixedwidth.Field{Name: "segment", Width: 1, Kind: fixedwidth.TextLeft},
	fixedwidth.Field{Name: "filler1", Width: 1, Kind: fixedwidth.TextLeft},
	fixedwidth.Field{Name: "occurrence", Width: 2, Kind: fixedwidth.TextLeft},
	fixedwidth.Field{Name: "agency", Width: 5, Kind: fixedwidth.NumericZeroPad},
	fixedwidth.Field{Name: "agencyDV", Width: 1, Kind: fixedwidth.TextLeft},
	fixedwidth.Field{Name: "account", Width: 12, Kind: fixedwidth.NumericZeroPad},
	fixedwidth.Field{Name: "accountDV", Width: 1, Kind: fixedwidth.TextLeft},
	fixedwidth.Field{Name: "dv", Width: 1, Kind: fixedwidth.TextLeft},
	fixedwidth.Field{Name: "nossoNumero", Width: 20, Kind: fixedwidth.TextLeft},
	fixedwidth.Field{Name: "wallet", Width: 1, Kind: fixedwidth.NumericZeroPad},
	fixedwidth.Field{Name: "documentNumber", Width: 15, Kind: fixedwidth.TextLeftTruncate},
	fixedwidth.Field{Name: "dueDate", Width: 8, Kind: fixedwidth.DateDDMMYYYY},
	fixedwidth.Field{Name: "value", Width: 15, Kind: fixedwidth.DecimalImplicit, Scale: 2},
	fixedwidth.Field{Name: "paymentDate", Width: 8, Kind: fixedwidth.DateDDMMYYYY},
	fixedwidth.Field{Name: "paidValue", Width: 15, Kind: fixedwidth.DecimalImplicit, Scale: 2},
	fixedwidth.Field{Name: "receivingBank", Width: 3, Kind: fixedwidth.NumericZeroPad},
	fixedwidth.Field{Name: "receivingAgency", Width: 5, Kind: fixedwidth.NumericZeroPad},
	fixedwidth.Field{Name: "receivingAgencyDV", Width: 1, Kind: fixedwidth.TextLeft},
	fixedwidth.Field{Name: "companyUse", Width: 20, Kind: fixedwidth.TextLeftTruncate},
	fixedwidth.Field{Name: "filler2", Width: 92, Kind: fixedwidth.TextLeft},
)

var trailerLote240 = fixedwidth.NewLayout(RecordLength240,
	fixedwidth.Field{Name: "bank", Width: 3, Kind: fixedwidth.NumericZeroPad},
	fixedwidth.Field{Name: "lot", Width: 4, Kind: fixedwidth.NumericZeroPad},
	fixedwidth.Field{Name: "record", Width: 1, Kind: fixedwidth.TextLeft},
	fixedwidth.Field{Name: "filler1", Width: 9, Kind: fixedwidth.TextLeft},
	fixedwidth.Field{Name: "recordCount", Width: 6, Kind: fixedwidth.NumericZeroPad},
	fixedwidth.Field{Name: "titleCount", Width: 6, Kind: fixedwidth.NumericZeroPad},
	fixedwidth.Field{Name: "titleValue", Width: 17, Kind: fixedwidth.DecimalImplicit, Scale: 2},
	fixedwidth.Field{Name: "filler2", Width: 194, Kind: fixedwidth.TextLeft},
)

var trailerArquivo240 = fixedwidth.NewLayout(RecordLength240,
	fixedwidth.Field{Name: "bank", Width: 3, Kind: fixedwidth.NumericZeroPad},
	fixedwidth.Field{Name: "lot", Width: 4, Kind: fixedwidth.NumericZeroPad},
	fixedwidth.Field{Name: "record", Width: 1, Kind: fixedwidth.TextLeft},
	fixedwidth.Field{Name: "filler1", Width: 9, Kind: fixedwidth.TextLeft},
	fixedwidth.Field{Name: "lotCount", Width: 6, Kind: fixedwidth.NumericZeroPad},
	fixedwidth.Field{Name: "recordCount", Width: 6, Kind: fixedwidth.NumericZeroPad},
	fixedwidth.Field{Name: "filler2", Width: 211, Kind: fixedwidth.TextLeft},
)

// inscriptionTypeFor derives the Febraban inscription type from the
// document length: 11 digits is a CPF (1), 14 a CNPJ (2). The layout has
// no separate type field on input, so length is the convention.
func inscriptionTypeFor(document string) int {
	if len(onlyDigits(document)) == 11 {
		return 1
	}
	return 2
}

func onlyDigits(s string) string {
	var b strings.Builder
	for _, c := range s {
		if c >= '0' && c <= '9' {
			b.WriteRune(c)
		}
	}
	return b.String()
}

// BuildRemessa240 assembles a complete cobrança remittance batch: file
// header, one lot of P/Q/R segments per slip, and the two trailers,
// joined with CRLF. generatedAt is caller-supplied so regenerating the
// file for audit yields identical bytes; the file sequence number is
// likewise reserved by the caller beforehand.
func BuildRemessa240(profile *models.BankAccountProfile, slips []*models.BankSlip, sequence int, generatedAt time.Time) (string, error) {
	lines := make([]string, 0, 4+3*len(slips))

	header, err := headerArquivo240.Encode(map[string]any{
		"bank":        profile.BankCode,
		"lot":         0,
		"record":      "0",
		"filler1":     "",
		"inscription": 2,
		"document":    onlyDigits(profile.PayeeDocument),
		"agreement":   profile.Agreement,
		"agency":      profile.Agency,
		"agencyDV":    profile.AgencyDigit,
		"account":     profile.Account,
		"accountDV":   profile.AccountDigit,
		"dv":          "",
		"payeeName":   profile.PayeeName,
		"bankName":    profile.BankName,
		"filler2":     "",
		"remessaCode": 1,
		"genDate":     generatedAt,
		"genTime":     generatedAt.Format("150405"),
		"sequence":    sequence,
		"layout":      LayoutVersion240,
		"density":     0,
		"filler3":     "",
	})
	if err != nil {
		return "", fmt.Errorf("header arquivo: %w", err)
	}
	lines = append(lines, header)

	lotHeader, err := headerLote240.Encode(map[string]any{
		"bank":          profile.BankCode,
		"lot":           1,
		"record":        "1",
		"operation":     "R",
		"service":       "01",
		"filler1":       "",
		"layout":        "030",
		"filler2":       "",
		"inscription":   2,
		"document":      onlyDigits(profile.PayeeDocument),
		"agreement":     profile.Agreement,
		"agency":        profile.Agency,
		"agencyDV":      profile.AgencyDigit,
		"account":       profile.Account,
		"accountDV":     profile.AccountDigit,
		"dv":            "",
		"payeeName":     profile.PayeeName,
		"message1":      "",
		"message2":      "",
		"remessaNumber": sequence,
		"recordDate":    generatedAt,
		"filler3":       "",
	})
	if err != nil {
		return "", fmt.Errorf("header lote: %w", err)
	}
	lines = append(lines, lotHeader)

	total := decimal.Zero
	seq := 0
	for _, slip := range slips {
		total = total.Add(slip.Value)

		seq++
		p, err := segmentP240.Encode(map[string]any{
			"bank":           profile.BankCode,
			"lot":            1,
			"record":         "3",
			"sequence":       seq,
			"segment":        "P",
			"filler1":        "",
			"movement":       "01",
			"agency":         profile.Agency,
			"agencyDV":       profile.AgencyDigit,
			"account":        profile.Account,
			"accountDV":      profile.AccountDigit,
			"dv":             "",
			"nossoNumero":    slip.NossoNumero,
			"wallet":         walletCode(profile),
			"registration":   1,
			"docKind":        1,
			"issueControl":   2,
			"distribution":   2,
			"documentNumber": slip.DocumentNumber,
			"dueDate":        slip.DueDate,
			"value":          slip.Value,
			"chargeAgency":   0,
			"chargeAgencyDV": "",
			"species":        2, // duplicata mercantil
			"accept":         "N",
			"issueDate":      slip.IssueDate,
			"interestCode":   1, // valor por dia
			"interestDate":   slip.DueDate.AddDate(0, 0, 1),
			"interestDaily":  dailyInterestValue(profile, slip),
			"discountCode":   0,
			"discountDate":   time.Time{},
			"discountValue":  decimal.Zero,
			"iof":            decimal.Zero,
			"rebate":         decimal.Zero,
			"companyUse":     "",
			"protestCode":    protestCode(profile),
			"protestDays":    profile.ProtestDays,
			"writeOffCode":   0,
			"writeOffDays":   0,
			"currency":       9, // real
			"contract":       0,
			"freeUse":        "",
		})
		if err != nil {
			return "", fmt.Errorf("segment P for %s: %w", slip.NossoNumero, err)
		}
		lines = append(lines, p)

		seq++
		q, err := segmentQ240.Encode(map[string]any{
			"bank":                     profile.BankCode,
			"lot":                      1,
			"record":                   "3",
			"sequence":                 seq,
			"segment":                  "Q",
			"filler1":                  "",
			"movement":                 "01",
			"payerInscription":         inscriptionTypeFor(slip.PayerDocument),
			"payerDocument":            onlyDigits(slip.PayerDocument),
			"payerName":                slip.PayerName,
			"payerAddress":             slip.PayerAddress,
			"payerDistrict":            "",
			"payerZip":                 zipPrefix(slip.PayerZip),
			"payerZipSuffix":           zipSuffix(slip.PayerZip),
			"payerCity":                slip.PayerCity,
			"payerState":               slip.PayerState,
			"guarantorInscription":     0,
			"guarantorDocument":        0,
			"guarantorName":            "",
			"correspondingBank":        0,
			"correspondingNossoNumero": "",
			"filler2":                  "",
		})
		if err != nil {
			return "", fmt.Errorf("segment Q for %s: %w", slip.NossoNumero, err)
		}
		lines = append(lines, q)

		seq++
		r, err := segmentR240.Encode(map[string]any{
			"bank":           profile.BankCode,
			"lot":            1,
			"record":         "3",
			"sequence":       seq,
			"segment":        "R",
			"filler1":        "",
			"movement":       "01",
			"discount2Code":  0,
			"discount2Date":  time.Time{},
			"discount2Value": decimal.Zero,
			"discount3Code":  0,
			"discount3Date":  time.Time{},
			"discount3Value": decimal.Zero,
			"penaltyCode":    2, // percentage
			"penaltyDate":    slip.DueDate.AddDate(0, 0, 1),
			"penaltyRate":    profile.PenaltyRate,
			"payerInfo":      "",
			"message3":       "",
			"message4":       "",
			"filler2":        "",
		})
		if err != nil {
			return "", fmt.Errorf("segment R for %s: %w", slip.NossoNumero, err)
		}
		lines = append(lines, r)
	}

	lotTrailer, err := trailerLote240.Encode(map[string]any{
		"bank":        profile.BankCode,
		"lot":         1,
		"record":      "5",
		"filler1":     "",
		"recordCount": 3*len(slips) + 2,
		"titleCount":  len(slips),
		"titleValue":  total,
		"filler2":     "",
	})
	if err != nil {
		return "", fmt.Errorf("trailer lote: %w", err)
	}
	lines = append(lines, lotTrailer)

	fileTrailer, err := trailerArquivo240.Encode(map[string]any{
		"bank":        profile.BankCode,
		"lot":         9999,
		"record":      "9",
		"filler1":     "",
		"lotCount":    1,
		"recordCount": len(lines) + 1,
		"filler2":     "",
	})
	if err != nil {
		return "", fmt.Errorf("trailer arquivo: %w", err)
	}
	lines = append(lines, fileTrailer)

	return strings.Join(lines, "\r\n"), nil
}

// dailyInterestValue is the monetary interest charged per day of delay:
// the profile's monthly rate over 30, applied to the slip value.
func dailyInterestValue(profile *models.BankAccountProfile, slip *models.BankSlip) decimal.Decimal {
	return slip.Value.Mul(profile.DailyInterest()).Div(decimal.NewFromInt(100)).Round(2)
}

// walletCode narrows a multi-digit carteira ("109", "112") to the
// one-digit code the P segment expects; the leading digit carries the
// cobrança modality.
func walletCode(profile *models.BankAccountProfile) string {
	d := onlyDigits(profile.Wallet)
	if d == "" {
		return "1"
	}
	return d[:1]
}

func protestCode(profile *models.BankAccountProfile) int {
	if profile.ProtestDays > 0 {
		return 1 // protestar dias corridos
	}
	return 3 // não protestar
}

func zipPrefix(zip string) string {
	d := onlyDigits(zip)
	if len(d) >= 5 {
		return d[:5]
	}
	return "0"
}

func zipSuffix(zip string) string {
	d := onlyDigits(zip)
	if len(d) >= 8 {
		return d[5:8]
	}
	return "0"
}

// ParseRetorno240 decodes a return batch. Only type-'3' segment-'T'
// records carry settlement data; everything else is structural and
// skipped. Lines that are not exactly 240 columns, or whose fields do
// not decode, are reported in the error list with their 1-based line
// number while the rest of the batch still parses.
func ParseRetorno240(text string) ([]SettlementEvent, []LineError) {
	var events []SettlementEvent
	var errs []LineError

	for i, line := range splitLines(text) {
		n := i + 1
		if line == "" {
			continue
		}
		if len(line) != RecordLength240 {
			errs = append(errs, LineError{Line: n, Err: fmt.Errorf("line is %d columns, want %d", len(line), RecordLength240)})
			continue
		}
		if line[7] != '3' || line[13] != 'T' {
			continue
		}
		values, err := segmentT240.Decode(line)
		if err != nil {
			errs = append(errs, LineError{Line: n, Err: err})
			continue
		}
		code := values.String("occurrence")
		events = append(events, SettlementEvent{
			Kind:        kindForOccurrence(code),
			Occurrence:  code,
			NossoNumero: values.String("nossoNumero"),
			PaidValue:   values.Decimal("paidValue"),
			PaidDate:    values.Date("paymentDate"),
			Line:        n,
		})
	}
	return events, errs
}

// splitLines tolerates CRLF and bare LF terminators.
func splitLines(text string) []string {
	return strings.Split(strings.ReplaceAll(text, "\r\n", "\n"), "\n")
}

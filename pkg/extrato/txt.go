package extrato

import (
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"

	"github.com/janiosantos/siscom-settlement/pkg/models"
)

// parseTXT reads the semicolon export: date;description;document;amount,
// with the document column optional (three-column exports leave it
// empty). Bad rows are logged and skipped, matching how banks pad these
// files with headers and balance lines.
func (p *Parser) parseTXT(data []byte) ([]*models.StatementLine, error) {
	var lines []*models.StatementLine

	for _, row := range strings.Split(string(data), "\n") {
		row = strings.TrimRight(row, "\r")
		if strings.TrimSpace(row) == "" {
			continue
		}

		fields := strings.Split(row, ";")
		if len(fields) < 3 {
			p.logger.Debug("row has too few columns", "row", row)
			continue
		}

		date, err := time.Parse("02/01/2006", strings.TrimSpace(fields[0]))
		if err != nil {
			p.logger.Debug("error parsing date", "row", row, "error", err)
			continue
		}

		description := strings.TrimSpace(fields[1])
		document := ""
		amountField := fields[2]
		if len(fields) >= 4 {
			document = strings.TrimSpace(fields[2])
			amountField = fields[3]
		}

		amount, err := parseBrazilianAmount(amountField)
		if err != nil {
			p.logger.Debug("error parsing amount", "row", row, "error", err)
			continue
		}

		lines = append(lines, newLine(date, description, document, amount))
	}

	return lines, nil
}

// parseBrazilianAmount handles "1.234,56" and "-287,00" style values.
func parseBrazilianAmount(s string) (decimal.Decimal, error) {
	s = strings.TrimSpace(s)
	s = strings.ReplaceAll(s, "R$", "")
	s = strings.ReplaceAll(s, ".", "")
	s = strings.ReplaceAll(s, ",", ".")
	return decimal.NewFromString(strings.TrimSpace(s))
}

func newLine(date time.Time, description, document string, amount decimal.Decimal) *models.StatementLine {
	direction := models.Credit
	if amount.IsNegative() {
		direction = models.Debit
	}
	return &models.StatementLine{
		ID:          uuid.New(),
		Date:        date,
		Description: description,
		Document:    document,
		Amount:      amount,
		Direction:   direction,
	}
}

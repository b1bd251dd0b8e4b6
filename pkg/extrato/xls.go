package extrato

import (
	"bytes"
	"fmt"
	"strings"
	"time"

	"github.com/extrame/xls"

	"github.com/janiosantos/siscom-settlement/pkg/models"
)

// parseXLS reads the legacy XLS export. The workbook carries report
// headers before the "lançamentos" marker; rows follow as
// date / description / document / value.
func (p *Parser) parseXLS(data []byte) ([]*models.StatementLine, error) {
	workbook, err := xls.OpenReader(bytes.NewReader(data), "cp1252")
	if err != nil {
		return nil, fmt.Errorf("extrato: opening workbook: %w", err)
	}

	rows := workbook.ReadAllCells(10000)
	if len(rows) == 0 {
		return nil, fmt.Errorf("extrato: no data found in sheet")
	}

	var lines []*models.StatementLine
	var inEntries bool

	for _, row := range rows {
		if len(row) == 0 {
			continue
		}
		if row[0] == "lançamentos" {
			inEntries = true
			continue
		}
		if !inEntries || len(row) < 4 {
			continue
		}
		// Skip the column header and balance rows inside the section.
		if row[0] == "data" || strings.HasPrefix(row[1], "SALDO") {
			continue
		}

		date, err := time.Parse("02/01/2006", strings.TrimSpace(row[0]))
		if err != nil {
			continue
		}
		amount, err := parseBrazilianAmount(row[3])
		if err != nil {
			p.logger.Debug("error parsing amount", "row", row[3], "error", err)
			continue
		}

		lines = append(lines, newLine(date, strings.TrimSpace(row[1]), strings.TrimSpace(row[2]), amount))
	}

	return lines, nil
}

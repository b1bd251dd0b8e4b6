package report

import (
	"encoding/csv"
	"fmt"
	"io"
	"strings"
)

// WriteCSV writes the period report as a semicolon CSV with Brazilian
// money formatting, one metric per row.
func WriteCSV(w io.Writer, r *PeriodReport) error {
	cw := csv.NewWriter(w)
	cw.Comma = ';'

	rows := [][]string{
		{"indicador", "valor"},
		{"periodo_inicio", r.From.Format("02/01/2006")},
		{"periodo_fim", r.To.Format("02/01/2006")},
		{"boletos_emitidos", fmt.Sprintf("%d", r.SlipsIssued)},
		{"boletos_pagos", fmt.Sprintf("%d", r.SlipsPaid)},
		{"boletos_abertos", fmt.Sprintf("%d", r.SlipsOpen)},
		{"boletos_vencidos", fmt.Sprintf("%d", r.SlipsOverdue)},
		{"boletos_cancelados", fmt.Sprintf("%d", r.SlipsCancelled)},
		{"boletos_baixados", fmt.Sprintf("%d", r.SlipsWrittenOff)},
		{"valor_emitido", money(r.IssuedValue.StringFixed(2))},
		{"valor_pago", money(r.PaidValue.StringFixed(2))},
	}
	if r.Reconciliation != nil {
		rows = append(rows,
			[]string{"extrato_linhas", fmt.Sprintf("%d", r.Reconciliation.Total)},
			[]string{"extrato_conciliadas", fmt.Sprintf("%d", r.Reconciliation.Reconciled)},
			[]string{"extrato_pendentes", fmt.Sprintf("%d", r.Reconciliation.Pending)},
			[]string{"taxa_conciliacao", fmt.Sprintf("%.2f%%", r.Reconciliation.Rate*100)},
			[]string{"valor_conciliado", money(r.Reconciliation.ReconciledValue.StringFixed(2))},
			[]string{"valor_pendente", money(r.Reconciliation.PendingValue.StringFixed(2))},
		)
	}

	for _, row := range rows {
		if err := cw.Write(row); err != nil {
			return fmt.Errorf("report: writing row: %w", err)
		}
	}
	cw.Flush()
	return cw.Error()
}

func money(fixed string) string {
	return "R$ " + strings.ReplaceAll(fixed, ".", ",")
}

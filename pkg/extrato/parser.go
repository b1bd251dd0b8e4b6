// Package extrato ingests bank statement exports (semicolon TXT/CSV and
// legacy XLS) into the statement-line shape the reconciliation engine
// consumes.
package extrato

import (
	"fmt"
	"strings"

	"github.com/charmbracelet/log"

	"github.com/janiosantos/siscom-settlement/pkg/models"
)

// FileType is the detected statement export format.
type FileType string

const (
	ExtratoTXT FileType = "extrato_txt"
	ExtratoXLS FileType = "extrato_xls"
)

// Parser turns raw statement exports into statement lines.
type Parser struct {
	logger *log.Logger
}

// New creates a parser.
func New(logger *log.Logger) *Parser {
	return &Parser{logger: logger}
}

// ProcessBytes detects the export format by filename and parses it.
// Lines come back without a scope; the importer stamps it.
func (p *Parser) ProcessBytes(data []byte, filename string) ([]*models.StatementLine, error) {
	fileType := detectType(filename)
	p.logger.Debug("detected file type", "type", fileType, "filename", filename)

	switch fileType {
	case ExtratoTXT:
		return p.parseTXT(data)
	case ExtratoXLS:
		return p.parseXLS(data)
	default:
		return nil, fmt.Errorf("extrato: unknown file type for %q", filename)
	}
}

func detectType(filename string) FileType {
	lower := strings.ToLower(filename)
	switch {
	case strings.HasSuffix(lower, ".txt"), strings.HasSuffix(lower, ".csv"):
		return ExtratoTXT
	case strings.HasSuffix(lower, ".xls"):
		return ExtratoXLS
	}
	return ""
}

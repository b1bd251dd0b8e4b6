package extrato

import (
	"context"
	"fmt"

	"github.com/charmbracelet/log"

	"github.com/janiosantos/siscom-settlement/pkg/models"
	"github.com/janiosantos/siscom-settlement/pkg/store"
)

// Importer persists parsed statement lines under an account scope.
type Importer struct {
	parser *Parser
	store  store.Store
	logger *log.Logger
}

// NewImporter creates an importer.
func NewImporter(st store.Store, logger *log.Logger) *Importer {
	return &Importer{parser: New(logger), store: st, logger: logger}
}

// Import parses the file and saves every line with the given scope.
// Returns how many lines were stored.
func (i *Importer) Import(ctx context.Context, data []byte, filename string, scope models.Scope) (int, error) {
	lines, err := i.parser.ProcessBytes(data, filename)
	if err != nil {
		return 0, err
	}

	saved := 0
	for _, line := range lines {
		line.Scope = scope
		if err := i.store.SaveStatementLine(ctx, line); err != nil {
			return saved, fmt.Errorf("saving line of %s: %w", line.Date.Format("2006-01-02"), err)
		}
		saved++
	}

	i.logger.Info("statement imported", "file", filename, "lines", saved)
	return saved, nil
}

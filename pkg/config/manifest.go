package config

import (
	"fmt"
	"os"
	"time"

	"github.com/shopspring/decimal"
	"gopkg.in/yaml.v3"

	"github.com/janiosantos/siscom-settlement/pkg/boleto"
)

// TitleSpec is one title to issue, as written in a remittance manifest.
type TitleSpec struct {
	DocumentNumber string `yaml:"document_number"`
	Value          string `yaml:"value"`
	DueDate        string `yaml:"due_date"`   // DD/MM/YYYY
	IssueDate      string `yaml:"issue_date"` // DD/MM/YYYY, defaults to 30 days before due
	PayerName      string `yaml:"payer_name"`
	PayerDocument  string `yaml:"payer_document"`
	PayerAddress   string `yaml:"payer_address"`
	PayerCity      string `yaml:"payer_city"`
	PayerState     string `yaml:"payer_state"`
	PayerZip       string `yaml:"payer_zip"`
	Instructions   string `yaml:"instructions"`
}

// RemessaManifest describes one remittance batch: which profile issues
// it, the caller-reserved file sequence, and the titles.
type RemessaManifest struct {
	ProfileID string      `yaml:"profile_id"`
	Sequence  int         `yaml:"sequence"`
	Titles    []TitleSpec `yaml:"titles"`
}

// LoadManifest reads a remittance manifest from a YAML file.
func LoadManifest(path string) (*RemessaManifest, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("config: reading manifest: %w", err)
	}
	var m RemessaManifest
	if err := yaml.Unmarshal(data, &m); err != nil {
		return nil, fmt.Errorf("config: parsing manifest: %w", err)
	}
	if len(m.Titles) == 0 {
		return nil, fmt.Errorf("config: manifest has no titles")
	}
	return &m, nil
}

// IssueRequest converts a title spec, validating value and dates.
func (t TitleSpec) IssueRequest() (boleto.IssueRequest, error) {
	value, err := decimal.NewFromString(t.Value)
	if err != nil {
		return boleto.IssueRequest{}, fmt.Errorf("config: title %s value %q: %w", t.DocumentNumber, t.Value, err)
	}
	due, err := time.Parse("02/01/2006", t.DueDate)
	if err != nil {
		return boleto.IssueRequest{}, fmt.Errorf("config: title %s due_date %q: %w", t.DocumentNumber, t.DueDate, err)
	}
	issue := due.AddDate(0, 0, -30)
	if t.IssueDate != "" {
		issue, err = time.Parse("02/01/2006", t.IssueDate)
		if err != nil {
			return boleto.IssueRequest{}, fmt.Errorf("config: title %s issue_date %q: %w", t.DocumentNumber, t.IssueDate, err)
		}
	}
	return boleto.IssueRequest{
		DocumentNumber: t.DocumentNumber,
		Value:          value,
		DueDate:        due,
		IssueDate:      issue,
		PayerName:      t.PayerName,
		PayerDocument:  t.PayerDocument,
		PayerAddress:   t.PayerAddress,
		PayerCity:      t.PayerCity,
		PayerState:     t.PayerState,
		PayerZip:       t.PayerZip,
		Instructions:   t.Instructions,
	}, nil
}

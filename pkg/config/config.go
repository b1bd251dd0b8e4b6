// Package config loads the settlement configuration: bank account
// profiles with their economic terms, the default statement scope, and
// runtime options. A .env file is honored first, then the YAML config
// file, then SETTLEMENT_* environment overrides.
package config

import (
	"fmt"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"github.com/spf13/viper"
	"github.com/subosito/gotenv"

	"github.com/janiosantos/siscom-settlement/pkg/models"
)

// ProfileConfig mirrors one bank account profile as written in the
// config file. Economic terms live here because a profile is immutable
// once slips reference it: operators roll a new profile entry instead
// of editing one in place.
type ProfileConfig struct {
	ID              string `mapstructure:"id"`
	BankCode        string `mapstructure:"bank_code"`
	BankName        string `mapstructure:"bank_name"`
	Agency          string `mapstructure:"agency"`
	AgencyDigit     string `mapstructure:"agency_digit"`
	Account         string `mapstructure:"account"`
	AccountDigit    string `mapstructure:"account_digit"`
	Wallet          string `mapstructure:"wallet"`
	Agreement       string `mapstructure:"agreement"`
	PayeeName       string `mapstructure:"payee_name"`
	PayeeDocument   string `mapstructure:"payee_document"`
	PayeeAddress    string `mapstructure:"payee_address"`
	MonthlyInterest string `mapstructure:"monthly_interest"`
	PenaltyRate     string `mapstructure:"penalty_rate"`
	ProtestDays     int    `mapstructure:"protest_days"`
	Active          bool   `mapstructure:"active"`
}

// ScopeConfig is the default bank/agency/account statement scope.
type ScopeConfig struct {
	BankCode string `mapstructure:"bank_code"`
	Agency   string `mapstructure:"agency"`
	Account  string `mapstructure:"account"`
}

// Config is the full settlement configuration.
type Config struct {
	LogLevel   string          `mapstructure:"log_level"`
	OutputPath string          `mapstructure:"output_path"`
	Scope      ScopeConfig     `mapstructure:"scope"`
	Profiles   []ProfileConfig `mapstructure:"profiles"`
}

// Load reads the configuration. path may be empty, in which case
// settlement.yaml in the working directory is used.
func Load(path string) (*Config, error) {
	// Missing .env is fine; it only exists in dev setups.
	_ = gotenv.Load()

	v := viper.New()
	if path != "" {
		v.SetConfigFile(path)
	} else {
		v.SetConfigName("settlement")
		v.SetConfigType("yaml")
		v.AddConfigPath(".")
	}
	v.SetEnvPrefix("SETTLEMENT")
	v.AutomaticEnv()
	v.SetDefault("log_level", "info")

	if err := v.ReadInConfig(); err != nil {
		return nil, fmt.Errorf("config: reading %s: %w", v.ConfigFileUsed(), err)
	}

	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return nil, fmt.Errorf("config: parsing: %w", err)
	}
	return &cfg, nil
}

// ModelScope converts the configured scope.
func (c *Config) ModelScope() models.Scope {
	return models.Scope{
		BankCode: c.Scope.BankCode,
		Agency:   c.Scope.Agency,
		Account:  c.Scope.Account,
	}
}

// Profile converts a config entry into the domain profile, validating
// the id and the decimal rates.
func (p ProfileConfig) Profile() (*models.BankAccountProfile, error) {
	id, err := uuid.Parse(p.ID)
	if err != nil {
		return nil, fmt.Errorf("config: profile id %q: %w", p.ID, err)
	}
	interest, err := decimal.NewFromString(p.MonthlyInterest)
	if err != nil {
		return nil, fmt.Errorf("config: monthly_interest %q: %w", p.MonthlyInterest, err)
	}
	penalty, err := decimal.NewFromString(p.PenaltyRate)
	if err != nil {
		return nil, fmt.Errorf("config: penalty_rate %q: %w", p.PenaltyRate, err)
	}
	return &models.BankAccountProfile{
		ID:              id,
		BankCode:        p.BankCode,
		BankName:        p.BankName,
		Agency:          p.Agency,
		AgencyDigit:     p.AgencyDigit,
		Account:         p.Account,
		AccountDigit:    p.AccountDigit,
		Wallet:          p.Wallet,
		Agreement:       p.Agreement,
		PayeeName:       p.PayeeName,
		PayeeDocument:   p.PayeeDocument,
		PayeeAddress:    p.PayeeAddress,
		MonthlyInterest: interest,
		PenaltyRate:     penalty,
		ProtestDays:     p.ProtestDays,
		Active:          p.Active,
	}, nil
}

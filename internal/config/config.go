package config

import (
	"fmt"
	"os"
	"time"

	"github.com/shopspring/decimal"
	"golang.org/x/crypto/bcrypt"
	"gopkg.in/yaml.v3"

	"github.com/bankline-dev/bankline/internal/ledger"
	"github.com/bankline-dev/bankline/internal/money"
)

// FileName is the config file at the root of a bankline home directory.
const FileName = "bankline.yaml"

// Storage backends.
const (
	BackendCSV      = "csv"
	BackendPostgres = "postgres"
)

// Config represents the top-level bankline.yaml configuration.
type Config struct {
	Bank     BankConfig     `yaml:"bank"`
	Storage  StorageConfig  `yaml:"storage"`
	Policy   PolicyConfig   `yaml:"policy"`
	Security SecurityConfig `yaml:"security"`
	Logging  LoggingConfig  `yaml:"logging"`
}

// BankConfig identifies the institution in statements.
type BankConfig struct {
	Name string `yaml:"name"`
}

// StorageConfig selects where accounts and records live.
type StorageConfig struct {
	Backend string `yaml:"backend"`       // "csv" or "postgres"
	DataDir string `yaml:"data_dir"`      // relative to the home dir, csv only
	DSN     string `yaml:"dsn,omitempty"` // postgres only
}

// PolicyConfig holds the business rules. Money and rates are strings so they
// survive YAML without float rounding.
type PolicyConfig struct {
	MinimumBalance      string `yaml:"minimum_balance"`
	MonthlyInterestRate string `yaml:"monthly_interest_rate"`
	InactivityDays      int    `yaml:"inactivity_days"`
	// MaxPinAttempts is nil when unset; an explicit 0 disables lockout.
	MaxPinAttempts *int `yaml:"max_pin_attempts,omitempty"`
	StatementSize  int  `yaml:"statement_size"`
}

// SecurityConfig controls credential hashing.
type SecurityConfig struct {
	PinHashCost int `yaml:"pin_hash_cost"`
}

// LoggingConfig controls the zap logger.
type LoggingConfig struct {
	Level  string `yaml:"level"`  // debug, info, warn, error
	Format string `yaml:"format"` // json or console
}

// Load reads a bankline.yaml file from disk.
func Load(path string) (*Config, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("reading config: %w", err)
	}
	var cfg Config
	if err := yaml.Unmarshal(data, &cfg); err != nil {
		return nil, fmt.Errorf("parsing config: %w", err)
	}
	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("invalid config %s: %w", path, err)
	}
	return &cfg, nil
}

// Save writes a Config to a YAML file.
func Save(path string, cfg *Config) error {
	data, err := yaml.Marshal(cfg)
	if err != nil {
		return fmt.Errorf("marshaling config: %w", err)
	}
	if err := os.WriteFile(path, data, 0o644); err != nil {
		return fmt.Errorf("writing config: %w", err)
	}
	return nil
}

// Default returns a Config with the standard rules and CSV storage.
func Default(bankName string) *Config {
	p := ledger.DefaultPolicy()
	return &Config{
		Bank: BankConfig{Name: bankName},
		Storage: StorageConfig{
			Backend: BackendCSV,
			DataDir: "data",
		},
		Policy: PolicyConfig{
			MinimumBalance:      p.MinimumBalance.String(),
			MonthlyInterestRate: p.MonthlyInterestRate.String(),
			InactivityDays:      int(p.InactivityPeriod / (24 * time.Hour)),
			MaxPinAttempts:      &p.MaxPinAttempts,
			StatementSize:       5,
		},
		Security: SecurityConfig{PinHashCost: bcrypt.DefaultCost},
		Logging: LoggingConfig{
			Level:  "info",
			Format: "console",
		},
	}
}

// Validate checks the fields that cannot be caught at use time.
func (c *Config) Validate() error {
	switch c.Storage.Backend {
	case BackendCSV:
		if c.Storage.DataDir == "" {
			return fmt.Errorf("storage.data_dir is required for the csv backend")
		}
	case BackendPostgres:
		if c.Storage.DSN == "" {
			return fmt.Errorf("storage.dsn is required for the postgres backend")
		}
	default:
		return fmt.Errorf("storage.backend %q must be %q or %q", c.Storage.Backend, BackendCSV, BackendPostgres)
	}
	if c.Security.PinHashCost != 0 &&
		(c.Security.PinHashCost < bcrypt.MinCost || c.Security.PinHashCost > bcrypt.MaxCost) {
		return fmt.Errorf("security.pin_hash_cost %d out of range %d..%d", c.Security.PinHashCost, bcrypt.MinCost, bcrypt.MaxCost)
	}
	if c.Policy.StatementSize < 0 {
		return fmt.Errorf("policy.statement_size must not be negative")
	}
	_, err := c.LedgerPolicy()
	return err
}

// LedgerPolicy parses the policy section. Empty fields keep the defaults.
func (c *Config) LedgerPolicy() (ledger.Policy, error) {
	p := ledger.DefaultPolicy()

	if s := c.Policy.MinimumBalance; s != "" {
		m, err := money.Parse(s)
		if err != nil {
			return ledger.Policy{}, fmt.Errorf("policy.minimum_balance: %w", err)
		}
		if m.IsNegative() {
			return ledger.Policy{}, fmt.Errorf("policy.minimum_balance %s must not be negative", m)
		}
		p.MinimumBalance = m
	}
	if s := c.Policy.MonthlyInterestRate; s != "" {
		r, err := decimal.NewFromString(s)
		if err != nil {
			return ledger.Policy{}, fmt.Errorf("policy.monthly_interest_rate %q: %w", s, err)
		}
		if r.IsNegative() {
			return ledger.Policy{}, fmt.Errorf("policy.monthly_interest_rate %s must not be negative", r)
		}
		p.MonthlyInterestRate = r
	}
	switch {
	case c.Policy.InactivityDays < 0:
		return ledger.Policy{}, fmt.Errorf("policy.inactivity_days must not be negative")
	case c.Policy.InactivityDays > 0:
		p.InactivityPeriod = time.Duration(c.Policy.InactivityDays) * 24 * time.Hour
	}
	if n := c.Policy.MaxPinAttempts; n != nil {
		if *n < 0 {
			return ledger.Policy{}, fmt.Errorf("policy.max_pin_attempts must not be negative")
		}
		p.MaxPinAttempts = *n
	}
	return p, nil
}

// PinCost returns the bcrypt cost, defaulting when unset.
func (c *Config) PinCost() int {
	if c.Security.PinHashCost == 0 {
		return bcrypt.DefaultCost
	}
	return c.Security.PinHashCost
}

package config

import (
	"fmt"
	"os"
	"strings"
	"time"

	"github.com/ilyakaznacheev/cleanenv"
	"github.com/shopspring/decimal"
	"gopkg.in/yaml.v3"

	"account-ledger/internal/credential"
	"account-ledger/internal/domain"
)

const (
	StoreDriverPostgres = "postgres"
	StoreDriverMemory   = "memory"
)

type Config struct {
	DBHost     string `env:"DB_HOST" env-default:"localhost"`
	DBPort     string `env:"DB_PORT" env-default:"5432"`
	DBUser     string `env:"DB_USER" env-default:"postgres"`
	DBPassword string `env:"DB_PASSWORD" env-default:"password"`
	DBName     string `env:"DB_NAME" env-default:"account_ledger"`
	DBSSLMode  string `env:"DB_SSLMODE" env-default:"disable"`

	DBConnectAttempts int           `env:"DB_CONNECT_ATTEMPTS" env-default:"5"`
	DBConnectInterval time.Duration `env:"DB_CONNECT_INTERVAL" env-default:"2s"`

	ServerPort  string `env:"SERVER_PORT" env-default:"8080"`
	StoreDriver string `env:"STORE_DRIVER" env-default:"postgres"`
	AutoMigrate bool   `env:"AUTO_MIGRATE" env-default:"true"`

	PinHasher  string        `env:"PIN_HASHER" env-default:"sha256"`
	BcryptCost int           `env:"BCRYPT_COST" env-default:"10"`
	JWTSecret  string        `env:"JWT_SECRET"`
	TokenTTL   time.Duration `env:"TOKEN_TTL" env-default:"15m"`

	PolicyFile string `env:"LEDGER_POLICY_FILE"`
}

// Load reads the configuration from the environment.
func Load() (*Config, error) {
	var cfg Config
	if err := cleanenv.ReadEnv(&cfg); err != nil {
		return nil, fmt.Errorf("read env: %w", err)
	}
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return &cfg, nil
}

func (c *Config) Validate() error {
	switch c.StoreDriver {
	case StoreDriverPostgres, StoreDriverMemory:
	default:
		return fmt.Errorf("STORE_DRIVER must be %q or %q, got %q", StoreDriverPostgres, StoreDriverMemory, c.StoreDriver)
	}
	switch c.PinHasher {
	case "", credential.KindBcrypt, credential.KindSHA256:
	default:
		return fmt.Errorf("PIN_HASHER must be %q or %q, got %q", credential.KindBcrypt, credential.KindSHA256, c.PinHasher)
	}
	// Tokens signed with a guessable key can be forged for any account.
	if strings.TrimSpace(c.JWTSecret) == "" {
		return fmt.Errorf("JWT_SECRET must be set")
	}
	if c.TokenTTL <= 0 {
		return fmt.Errorf("TOKEN_TTL must be positive")
	}
	return nil
}

// GetDBConnectionString builds the lib/pq key=value DSN.
func (c *Config) GetDBConnectionString() string {
	sslMode := c.DBSSLMode
	if sslMode == "" {
		sslMode = "disable"
	}
	return fmt.Sprintf("host=%s port=%s user=%s password=%s dbname=%s sslmode=%s",
		c.DBHost, c.DBPort, c.DBUser, c.DBPassword, c.DBName, sslMode)
}

// policyFile mirrors the YAML layout. Money is written as strings so no
// float parsing happens on the way in.
type policyFile struct {
	DailyLimit            string `yaml:"daily_limit"`
	Fee                   string `yaml:"fee"`
	FeeThreshold          string `yaml:"fee_threshold"`
	PinLength             int    `yaml:"pin_length"`
	HistoryLimit          int    `yaml:"history_limit"`
	MaxAllocationAttempts int    `yaml:"max_allocation_attempts"`
	Timezone              string `yaml:"timezone"`
}

// Policy returns the ledger rules, overlaying PolicyFile on the defaults
// when one is configured.
func (c *Config) Policy() (domain.Policy, error) {
	if c.PolicyFile == "" {
		return domain.DefaultPolicy(), nil
	}
	data, err := os.ReadFile(c.PolicyFile)
	if err != nil {
		return domain.Policy{}, fmt.Errorf("read policy file: %w", err)
	}
	return ParsePolicy(data)
}

// ParsePolicy decodes a YAML policy document. Omitted keys keep their defaults.
func ParsePolicy(data []byte) (domain.Policy, error) {
	var raw policyFile
	if err := yaml.Unmarshal(data, &raw); err != nil {
		return domain.Policy{}, fmt.Errorf("parse policy file: %w", err)
	}

	policy := domain.DefaultPolicy()

	for _, field := range []struct {
		name  string
		value string
		dst   *decimal.Decimal
	}{
		{"daily_limit", raw.DailyLimit, &policy.DailyLimit},
		{"fee", raw.Fee, &policy.Fee},
		{"fee_threshold", raw.FeeThreshold, &policy.FeeThreshold},
	} {
		if strings.TrimSpace(field.value) == "" {
			continue
		}
		d, err := decimal.NewFromString(strings.TrimSpace(field.value))
		if err != nil {
			return domain.Policy{}, fmt.Errorf("%s: %w", field.name, err)
		}
		if d.IsNegative() {
			return domain.Policy{}, fmt.Errorf("%s must not be negative", field.name)
		}
		*field.dst = d
	}

	if raw.PinLength != 0 {
		policy.PinLength = raw.PinLength
	}
	if raw.HistoryLimit != 0 {
		policy.HistoryLimit = raw.HistoryLimit
	}
	if raw.MaxAllocationAttempts != 0 {
		policy.MaxAllocationAttempts = raw.MaxAllocationAttempts
	}
	if raw.PinLength < 0 || raw.HistoryLimit < 0 || raw.MaxAllocationAttempts < 0 {
		return domain.Policy{}, fmt.Errorf("pin_length, history_limit and max_allocation_attempts must be positive")
	}

	if raw.Timezone != "" {
		loc, err := time.LoadLocation(raw.Timezone)
		if err != nil {
			return domain.Policy{}, fmt.Errorf("timezone: %w", err)
		}
		policy.Location = loc
	}

	return policy, nil
}

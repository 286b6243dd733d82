// Package config loads service configuration from environment variables,
// with an optional .env file for local development.
package config

import (
	"strings"

	"github.com/spf13/viper"
)

// Config holds all configuration for the service. Empty DatabaseURL selects
// the in-memory store, empty SettlementBaseURL the in-process settlement
// adapter, and empty KafkaBrokers the log-backed event publisher.
type Config struct {
	ServerPort string `mapstructure:"SERVER_PORT"`

	DatabaseURL string `mapstructure:"DATABASE_URL"`

	BankCode string `mapstructure:"BANK_CODE"`
	BankName string `mapstructure:"BANK_NAME"`

	SettlementBaseURL      string `mapstructure:"SETTLEMENT_BASE_URL"`
	SettlementTokenURL     string `mapstructure:"SETTLEMENT_TOKEN_URL"`
	SettlementClientID     string `mapstructure:"SETTLEMENT_CLIENT_ID"`
	SettlementClientSecret string `mapstructure:"SETTLEMENT_CLIENT_SECRET"`
	SettlementConsentID    string `mapstructure:"SETTLEMENT_CONSENT_ID"`
	SettlementScope        string `mapstructure:"SETTLEMENT_SCOPE"`
	SettlementResourceEnv  string `mapstructure:"SETTLEMENT_RESOURCE_ENV"`

	KafkaBrokers       string `mapstructure:"KAFKA_BROKERS"`
	TransferEventTopic string `mapstructure:"TRANSFER_EVENT_TOPIC"`
}

// Load reads configuration from the environment and an optional .env file
// in path (defaults to the working directory when empty).
func Load(path string) (Config, error) {
	v := viper.New()

	if path == "" {
		path = "."
	}
	v.AddConfigPath(path)
	v.SetConfigName(".env")
	v.SetConfigType("env")

	v.AutomaticEnv()
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))

	v.SetDefault("SERVER_PORT", "8080")
	v.SetDefault("DATABASE_URL", "")
	v.SetDefault("BANK_CODE", "00061")
	v.SetDefault("BANK_NAME", "MyBank")
	v.SetDefault("SETTLEMENT_BASE_URL", "")
	v.SetDefault("SETTLEMENT_TOKEN_URL", "")
	v.SetDefault("SETTLEMENT_CLIENT_ID", "")
	v.SetDefault("SETTLEMENT_CLIENT_SECRET", "")
	v.SetDefault("SETTLEMENT_CONSENT_ID", "")
	v.SetDefault("SETTLEMENT_SCOPE", "account")
	v.SetDefault("SETTLEMENT_RESOURCE_ENV", "sandbox")
	v.SetDefault("KAFKA_BROKERS", "")
	v.SetDefault("TRANSFER_EVENT_TOPIC", "mybank.transfer_updates")

	for _, key := range []string{
		"SERVER_PORT", "DATABASE_URL", "BANK_CODE", "BANK_NAME",
		"SETTLEMENT_BASE_URL", "SETTLEMENT_TOKEN_URL", "SETTLEMENT_CLIENT_ID",
		"SETTLEMENT_CLIENT_SECRET", "SETTLEMENT_CONSENT_ID", "SETTLEMENT_SCOPE",
		"SETTLEMENT_RESOURCE_ENV", "KAFKA_BROKERS", "TRANSFER_EVENT_TOPIC",
	} {
		_ = v.BindEnv(key)
	}

	// The .env file is optional; only unexpected read errors matter.
	if err := v.ReadInConfig(); err != nil {
		if _, ok := err.(viper.ConfigFileNotFoundError); !ok {
			return Config{}, err
		}
	}

	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return Config{}, err
	}

	cfg.BankCode = strings.TrimSpace(cfg.BankCode)
	if cfg.BankName == "" {
		cfg.BankName = "MyBank"
	}
	return cfg, nil
}

// KafkaBrokerList splits the comma-separated broker setting.
func (c Config) KafkaBrokerList() []string {
	if strings.TrimSpace(c.KafkaBrokers) == "" {
		return nil
	}
	parts := strings.Split(c.KafkaBrokers, ",")
	out := make([]string, 0, len(parts))
	for _, p := range parts {
		if p = strings.TrimSpace(p); p != "" {
			out = append(out, p)
		}
	}
	return out
}

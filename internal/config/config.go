package config

import (
	"fmt"
	"strings"
	"time"

	"github.com/spf13/viper"
)

type HTTPConfig struct {
	Host        string
	Port        int
	CORSOrigins []string
}

type DBConfig struct {
	DSN             string
	MaxOpenConns    int
	MaxIdleConns    int
	ConnMaxLifetime time.Duration
}

type AuthConfig struct {
	AccessSecret string
}

// PipeConfig describes how one pipe product is located in the catalog.
type PipeConfig struct {
	SKU        string
	SKUPattern string
	NameHint   string
}

type LedgerConfig struct {
	MinWellCost float64
	SteelPipe   PipeConfig
	PlasticPipe PipeConfig
}

// DocumentConfig points the quote renderer at a UTF-8 TrueType font. An
// empty FontPath falls back to the built-in Helvetica, which covers cp1252
// only: quotes with Cyrillic client or product names are refused until a
// font is configured.
type DocumentConfig struct {
	FontPath string
}

type Config struct {
	Environment string
	HTTP        HTTPConfig
	DB          DBConfig
	Auth        AuthConfig
	Ledger      LedgerConfig
	Documents   DocumentConfig
}

func Load() (*Config, error) {
	v := viper.New()
	v.SetConfigName("app")
	v.SetConfigType("env")
	v.AddConfigPath(".")
	v.AddConfigPath("./config")
	v.AddConfigPath("./deploy")
	v.AddConfigPath("./internal/config")
	v.AutomaticEnv()

	_ = v.ReadInConfig()

	return fromViper(v)
}

func fromViper(v *viper.Viper) (*Config, error) {
	cfg := &Config{
		Environment: v.GetString("APP_ENV"),
		HTTP: HTTPConfig{
			Host:        v.GetString("HTTP_HOST"),
			Port:        v.GetInt("HTTP_PORT"),
			CORSOrigins: parseList(v.GetString("CORS_ORIGINS")),
		},
		DB: DBConfig{
			DSN:             v.GetString("DB_DSN"),
			MaxOpenConns:    v.GetInt("DB_MAX_OPEN_CONNS"),
			MaxIdleConns:    v.GetInt("DB_MAX_IDLE_CONNS"),
			ConnMaxLifetime: v.GetDuration("DB_CONN_MAX_LIFETIME"),
		},
		Auth: AuthConfig{
			AccessSecret: v.GetString("JWT_ACCESS_SECRET"),
		},
		Ledger: LedgerConfig{
			MinWellCost: v.GetFloat64("LEDGER_MIN_WELL_COST"),
			SteelPipe: PipeConfig{
				SKU:        v.GetString("LEDGER_STEEL_PIPE_SKU"),
				SKUPattern: v.GetString("LEDGER_STEEL_PIPE_PATTERN"),
				NameHint:   v.GetString("LEDGER_STEEL_PIPE_NAME"),
			},
			PlasticPipe: PipeConfig{
				SKU:        v.GetString("LEDGER_PLASTIC_PIPE_SKU"),
				SKUPattern: v.GetString("LEDGER_PLASTIC_PIPE_PATTERN"),
				NameHint:   v.GetString("LEDGER_PLASTIC_PIPE_NAME"),
			},
		},
		Documents: DocumentConfig{
			FontPath: v.GetString("PDF_FONT_PATH"),
		},
	}

	applyDefaults(cfg, v)

	if err := validate(cfg); err != nil {
		return nil, err
	}
	return cfg, nil
}

func applyDefaults(cfg *Config, v *viper.Viper) {
	if cfg.Environment == "" {
		cfg.Environment = "development"
	}
	if cfg.HTTP.Host == "" {
		cfg.HTTP.Host = "0.0.0.0"
	}
	if cfg.HTTP.Port == 0 {
		cfg.HTTP.Port = 7090
	}
	if len(cfg.HTTP.CORSOrigins) == 0 {
		cfg.HTTP.CORSOrigins = []string{"http://localhost:3000"}
	}
	if cfg.DB.MaxOpenConns == 0 {
		cfg.DB.MaxOpenConns = 25
	}
	if cfg.DB.MaxIdleConns == 0 {
		cfg.DB.MaxIdleConns = 5
	}
	if cfg.DB.ConnMaxLifetime == 0 {
		cfg.DB.ConnMaxLifetime = 30 * time.Minute
	}
	if !v.IsSet("LEDGER_MIN_WELL_COST") {
		cfg.Ledger.MinWellCost = 75000
	}
	setPipeDefaults(&cfg.Ledger.SteelPipe, "PIPE_STEEL_133_ST20", "STEEL", "сталь")
	setPipeDefaults(&cfg.Ledger.PlasticPipe, "PIPE_PLASTIC_110_6_1", "PLASTIC", "пластик")
}

func setPipeDefaults(p *PipeConfig, sku, pattern, name string) {
	if p.SKU == "" {
		p.SKU = sku
	}
	if p.SKUPattern == "" {
		p.SKUPattern = pattern
	}
	if p.NameHint == "" {
		p.NameHint = name
	}
}

func validate(cfg *Config) error {
	if cfg.DB.DSN == "" {
		return fmt.Errorf("DB_DSN is required")
	}
	if cfg.Auth.AccessSecret == "" {
		return fmt.Errorf("JWT_ACCESS_SECRET is required")
	}
	if cfg.Ledger.MinWellCost < 0 {
		return fmt.Errorf("LEDGER_MIN_WELL_COST must not be negative")
	}
	return nil
}

func parseList(raw string) []string {
	raw = strings.TrimSpace(raw)
	if raw == "" {
		return nil
	}
	items := strings.Split(raw, ",")
	result := make([]string, 0, len(items))
	for _, item := range items {
		item = strings.TrimSpace(item)
		if item != "" {
			result = append(result, item)
		}
	}
	return result
}

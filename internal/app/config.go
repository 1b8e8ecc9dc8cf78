package app

import (
	"fmt"
	"os"
	"strings"
	"time"

	"gopkg.in/yaml.v3"

	"github.com/hieunguyenzzz/meraki-erpnext-sub001/internal/clients/erpnext"
	"github.com/hieunguyenzzz/meraki-erpnext-sub001/internal/pkg/envutil"
	"github.com/hieunguyenzzz/meraki-erpnext-sub001/internal/pkg/logger"
)

type Config struct {
	Port        string
	Environment string
	Version     string

	ERPNext erpnext.Config
}

// fileConfig is the optional YAML overlay named by CONFIG_FILE. Environment
// variables always win over file values.
type fileConfig struct {
	Port        string `yaml:"port"`
	Environment string `yaml:"environment"`
	ERPNext     struct {
		BaseURL    string `yaml:"base_url"`
		APIKey     string `yaml:"api_key"`
		APISecret  string `yaml:"api_secret"`
		TimeoutSec int    `yaml:"timeout_seconds"`
		MaxRetries int    `yaml:"max_retries"`
	} `yaml:"erpnext"`
}

func LoadConfig(log *logger.Logger) (Config, error) {
	cfg := Config{
		Port:        "8080",
		Environment: "development",
		Version:     "dev",
		ERPNext: erpnext.Config{
			Timeout:    30 * time.Second,
			MaxRetries: 3,
		},
	}

	if path := strings.TrimSpace(os.Getenv("CONFIG_FILE")); path != "" {
		raw, err := os.ReadFile(path)
		if err != nil {
			return cfg, fmt.Errorf("read config file: %w", err)
		}
		var fc fileConfig
		if err := yaml.Unmarshal(raw, &fc); err != nil {
			return cfg, fmt.Errorf("parse config file: %w", err)
		}
		if fc.Port != "" {
			cfg.Port = fc.Port
		}
		if fc.Environment != "" {
			cfg.Environment = fc.Environment
		}
		if fc.ERPNext.BaseURL != "" {
			cfg.ERPNext.BaseURL = fc.ERPNext.BaseURL
		}
		if fc.ERPNext.APIKey != "" {
			cfg.ERPNext.APIKey = fc.ERPNext.APIKey
		}
		if fc.ERPNext.APISecret != "" {
			cfg.ERPNext.APISecret = fc.ERPNext.APISecret
		}
		if fc.ERPNext.TimeoutSec > 0 {
			cfg.ERPNext.Timeout = time.Duration(fc.ERPNext.TimeoutSec) * time.Second
		}
		if fc.ERPNext.MaxRetries > 0 {
			cfg.ERPNext.MaxRetries = fc.ERPNext.MaxRetries
		}
		log.Info("config file loaded", "path", path)
	}

	cfg.Port = envutil.Str("PORT", cfg.Port)
	cfg.Environment = envutil.Str("APP_ENV", cfg.Environment)
	cfg.Version = envutil.Str("APP_VERSION", cfg.Version)

	env := erpnext.ConfigFromEnv()
	if env.BaseURL != "" {
		cfg.ERPNext.BaseURL = env.BaseURL
	}
	if env.APIKey != "" {
		cfg.ERPNext.APIKey = env.APIKey
	}
	if env.APISecret != "" {
		cfg.ERPNext.APISecret = env.APISecret
	}
	if os.Getenv("ERPNEXT_TIMEOUT") != "" {
		cfg.ERPNext.Timeout = env.Timeout
	}
	if os.Getenv("ERPNEXT_MAX_RETRIES") != "" {
		cfg.ERPNext.MaxRetries = env.MaxRetries
	}

	return cfg, nil
}

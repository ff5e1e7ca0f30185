// Package config provides configuration management for mfynab.
// Non-secret settings come from a YAML file; credentials come from
// environment variables, optionally loaded from a .env file.
package config

import (
	"fmt"
	"os"
	"strings"

	"github.com/joho/godotenv"
	"gopkg.in/yaml.v3"

	"github.com/mfynab/mfynab/pkg/importer"
)

// Config represents the application configuration.
type Config struct {
	Profile      string
	YNAB         YNABConfig
	MoneyForward MoneyForwardConfig
	DataDir      string
	Accounts     []importer.AccountMapping
}

// YNABConfig represents YNAB API configuration.
type YNABConfig struct {
	BudgetName  string
	AccessToken string
}

// MoneyForwardConfig represents MoneyForward portal configuration.
type MoneyForwardConfig struct {
	Username string
	Password string
	BaseURL  string
	Months   int
}

// fileConfig is the YAML shape of one configuration profile.
type fileConfig struct {
	YNABBudget          string                    `yaml:"ynab_budget"`
	DataDir             string                    `yaml:"data_dir"`
	MoneyForwardBaseURL string                    `yaml:"money_forward_base_url"`
	Months              int                       `yaml:"months"`
	Accounts            []importer.AccountMapping `yaml:"accounts"`
}

// Load loads configuration from a YAML file and the environment.
// The file must contain exactly one top-level profile. A .env file is loaded
// from the current directory if available; a custom path can be given.
func Load(configPath string, envPath ...string) (*Config, error) {
	if len(envPath) > 0 && envPath[0] != "" {
		if err := godotenv.Load(envPath[0]); err != nil {
			return nil, fmt.Errorf("failed to load .env file: %w", err)
		}
	} else {
		// Try to load .env from current directory (ignore error if not found)
		_ = godotenv.Load()
	}

	data, err := os.ReadFile(configPath)
	if err != nil {
		return nil, fmt.Errorf("failed to read config file: %w", err)
	}

	var profiles map[string]fileConfig
	if err := yaml.Unmarshal(data, &profiles); err != nil {
		return nil, fmt.Errorf("failed to parse YAML: %w", err)
	}
	if len(profiles) != 1 {
		return nil, fmt.Errorf("config file must contain exactly one profile, found %d", len(profiles))
	}

	var profile string
	var file fileConfig
	for name, fc := range profiles {
		profile = name
		file = fc
	}

	dataDir := file.DataDir
	if dataDir == "" {
		dataDir = "./data"
	}

	config := &Config{
		Profile: profile,
		YNAB: YNABConfig{
			BudgetName:  file.YNABBudget,
			AccessToken: os.Getenv("YNAB_ACCESS_TOKEN"),
		},
		MoneyForward: MoneyForwardConfig{
			Username: os.Getenv("MONEYFORWARD_USERNAME"),
			Password: os.Getenv("MONEYFORWARD_PASSWORD"),
			BaseURL:  file.MoneyForwardBaseURL,
			Months:   file.Months,
		},
		DataDir:  dataDir,
		Accounts: file.Accounts,
	}

	return config, nil
}

// Validate validates the configuration.
// It checks if all required fields are set.
func (c *Config) Validate(required ...[]string) error {
	var missing []string

	for _, path := range required {
		if len(path) == 0 {
			continue
		}

		var value string
		switch path[0] {
		case "ynab":
			if len(path) < 2 {
				continue
			}
			switch path[1] {
			case "budget":
				value = c.YNAB.BudgetName
			case "accessToken":
				value = c.YNAB.AccessToken
			}
		case "moneyforward":
			if len(path) < 2 {
				continue
			}
			switch path[1] {
			case "username":
				value = c.MoneyForward.Username
			case "password":
				value = c.MoneyForward.Password
			}
		case "accounts":
			if len(c.Accounts) > 0 {
				value = "set"
			}
		}

		if value == "" {
			missing = append(missing, strings.Join(path, "."))
		}
	}

	if len(missing) > 0 {
		return fmt.Errorf("missing required configuration: %v\nPlease check your config file and environment variables", missing)
	}

	return nil
}

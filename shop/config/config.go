// Package config holds the shop bot configuration. It embeds the core configuration
// and adds storage, database, spreadsheet and seed sections.
package config

import (
	"fmt"
	"strings"

	coreconfig "github.com/m3rciful/shopbot/core/config"
	coredatabase "github.com/m3rciful/shopbot/core/database"
	"github.com/m3rciful/shopbot/shop/sheets"
)

const (
	// StorageFile keeps the document in a JSON file.
	StorageFile = "file"
	// StoragePostgres keeps the document in the bot_config table.
	StoragePostgres = "postgres"

	// DefaultStoragePath is used when storage.path is empty.
	DefaultStoragePath = "config.json"
	// DefaultSheetsRPS limits public export fetches.
	DefaultSheetsRPS = 2.0
)

// StorageConfig selects the document backend.
type StorageConfig struct {
	Driver string `yaml:"driver" envconfig:"STORAGE_DRIVER"`
	Path   string `yaml:"path" envconfig:"STORAGE_PATH"`
}

// SheetsConfig points the importer at a spreadsheet.
type SheetsConfig struct {
	SpreadsheetID   string       `yaml:"spreadsheet_id" envconfig:"SHEETS_SPREADSHEET_ID"`
	Tabs            []sheets.Tab `yaml:"tabs"`
	CredentialsFile string       `yaml:"credentials_file" envconfig:"GOOGLE_APPLICATION_CREDENTIALS"`
	CredentialsJSON string       `yaml:"credentials_json" envconfig:"SHEETS_CREDENTIALS_JSON"`
	// RPS caps public export requests per second; 0 -> default.
	RPS float64 `yaml:"rps" envconfig:"SHEETS_RPS"`
	// Fetchers bounds concurrent tab fetches during an import; 0 -> default.
	Fetchers int `yaml:"fetchers" envconfig:"SHEETS_FETCHERS"`
}

// UseAPI reports whether service account credentials are configured.
func (s SheetsConfig) UseAPI() bool {
	return strings.TrimSpace(s.CredentialsFile) != "" || strings.TrimSpace(s.CredentialsJSON) != ""
}

// SeedConfig is written as the initial document when none exists yet.
type SeedConfig struct {
	SuperUserIDs []int64 `yaml:"super_user_ids" envconfig:"SUPER_USER_IDS"`
	Welcome      string  `yaml:"welcome" envconfig:"WELCOME_TEXT"`
}

// Config is the complete shop bot configuration.
type Config struct {
	coreconfig.Config `yaml:",inline"`

	Storage  StorageConfig       `yaml:"storage"`
	Database coredatabase.Config `yaml:"database"`
	Sheets   SheetsConfig        `yaml:"sheets"`
	Seed     SeedConfig          `yaml:"seed"`
}

// CoreConfig exposes the embedded core configuration.
func (c *Config) CoreConfig() *coreconfig.Config {
	if c == nil {
		return nil
	}
	return &c.Config
}

// Load reads the YAML file at path, overlays the environment and normalizes the result.
func Load(path string) (*Config, error) {
	var cfg Config
	if err := coreconfig.Decode(path, &cfg); err != nil {
		return nil, err
	}
	if err := Normalize(&cfg); err != nil {
		return nil, err
	}
	return &cfg, nil
}

// Normalize validates the shop sections and applies defaults.
func Normalize(cfg *Config) error {
	if cfg == nil {
		return fmt.Errorf("nil config")
	}
	if err := coreconfig.Normalize(&cfg.Config); err != nil {
		return err
	}

	driver := strings.ToLower(strings.TrimSpace(cfg.Storage.Driver))
	if driver == "" {
		driver = StorageFile
	}
	switch driver {
	case StorageFile:
		if strings.TrimSpace(cfg.Storage.Path) == "" {
			cfg.Storage.Path = DefaultStoragePath
		}
	case StoragePostgres:
		if strings.TrimSpace(cfg.Database.Host) == "" || strings.TrimSpace(cfg.Database.Name) == "" {
			return fmt.Errorf("database.host and database.name are required when storage.driver is 'postgres'")
		}
	default:
		return fmt.Errorf("invalid storage.driver %q; allowed: file, postgres", cfg.Storage.Driver)
	}
	cfg.Storage.Driver = driver

	if cfg.Sheets.RPS < 0 {
		return fmt.Errorf("sheets.rps must be >= 0")
	}
	if cfg.Sheets.RPS == 0 {
		cfg.Sheets.RPS = DefaultSheetsRPS
	}
	if cfg.Sheets.Fetchers < 0 {
		return fmt.Errorf("sheets.fetchers must be >= 0")
	}
	cfg.Sheets.SpreadsheetID = strings.TrimSpace(cfg.Sheets.SpreadsheetID)

	for _, id := range cfg.Seed.SuperUserIDs {
		if id <= 0 {
			return fmt.Errorf("seed.super_user_ids must hold positive ids, got %d", id)
		}
	}
	return nil
}

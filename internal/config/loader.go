package config

import (
	"errors"
	"fmt"
	"path/filepath"
	"strings"

	"github.com/brokercursor/brokercursor/internal/db"

	"github.com/spf13/viper"
)

// Config is the explicit application configuration passed into component
// constructors. Nothing reads ambient global state.
type Config struct {
	Database db.Config
	Paths    Paths
	Import   ImportSettings
	LogLevel string
}

// Paths holds the inbox and archive locations the pipelines operate on.
type Paths struct {
	Inbox   string
	Archive string
}

// ImportSettings bounds what the import pipeline will pick up.
type ImportSettings struct {
	MaxFileSizeMB       int
	SupportedExtensions []string
}

// Default returns the configuration used when no config file or environment
// overrides are present.
func Default() Config {
	return Config{
		Database: db.DefaultConfig(),
		Paths: Paths{
			Inbox:   "data/inbox",
			Archive: "data/archive",
		},
		Import: ImportSettings{
			MaxFileSizeMB:       50,
			SupportedExtensions: []string{".html", ".htm", ".txt", ".md", ".xlsx"},
		},
		LogLevel: "info",
	}
}

// Load reads config.yaml from configPath and applies environment overrides
// with the BROKER_ prefix (BROKER_DATABASE_HOST and so on).
func Load(configPath string) (Config, error) {
	cfg := Default()

	v := viper.New()
	v.SetConfigName("config")
	v.SetConfigType("yaml")
	v.AddConfigPath(configPath)
	v.AutomaticEnv()
	v.SetEnvPrefix("BROKER")
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))

	v.BindEnv("database.host")
	v.BindEnv("database.port")
	v.BindEnv("database.user")
	v.BindEnv("database.password")
	v.BindEnv("database.dbname")
	v.BindEnv("database.sslmode")
	v.BindEnv("paths.inbox")
	v.BindEnv("paths.archive")
	v.BindEnv("import.max_file_size_mb")
	v.BindEnv("log_level")

	if err := v.ReadInConfig(); err != nil {
		var notFound viper.ConfigFileNotFoundError
		if !errors.As(err, &notFound) {
			return cfg, fmt.Errorf("failed to read config file: %w", err)
		}
		// No config.yaml; defaults plus env overrides apply.
	}

	if v.IsSet("database.host") {
		cfg.Database.Host = v.GetString("database.host")
	}
	if v.IsSet("database.port") {
		cfg.Database.Port = v.GetInt("database.port")
	}
	if v.IsSet("database.user") {
		cfg.Database.User = v.GetString("database.user")
	}
	if v.IsSet("database.password") {
		cfg.Database.Password = v.GetString("database.password")
	}
	if v.IsSet("database.dbname") {
		cfg.Database.DBName = v.GetString("database.dbname")
	}
	if v.IsSet("database.sslmode") {
		cfg.Database.SSLMode = v.GetString("database.sslmode")
	}
	if v.IsSet("paths.inbox") {
		cfg.Paths.Inbox = v.GetString("paths.inbox")
	}
	if v.IsSet("paths.archive") {
		cfg.Paths.Archive = v.GetString("paths.archive")
	}
	if v.IsSet("import.max_file_size_mb") {
		cfg.Import.MaxFileSizeMB = v.GetInt("import.max_file_size_mb")
	}
	if v.IsSet("import.supported_extensions") {
		cfg.Import.SupportedExtensions = v.GetStringSlice("import.supported_extensions")
	}
	if v.IsSet("log_level") {
		cfg.LogLevel = v.GetString("log_level")
	}

	return cfg, nil
}

// Archive subtree names; each import classification relocates files into its
// own directory for traceability.
const (
	ArchiveImported           = "imported"
	ArchiveExactDuplicates    = "exact_duplicates"
	ArchiveConflicts          = "conflicts"
	ArchiveSemanticDuplicates = "semantic_duplicates"
)

// ArchiveDir resolves the directory for one classification.
func (p Paths) ArchiveDir(classification string) string {
	return filepath.Join(p.Archive, classification)
}

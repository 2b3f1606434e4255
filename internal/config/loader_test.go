package config

import (
	"os"
	"path/filepath"
	"testing"
)

func TestDefaults(t *testing.T) {
	cfg := Default()
	if cfg.Paths.Inbox != "data/inbox" || cfg.Paths.Archive != "data/archive" {
		t.Errorf("paths = %+v", cfg.Paths)
	}
	if cfg.Import.MaxFileSizeMB != 50 {
		t.Errorf("max file size = %d", cfg.Import.MaxFileSizeMB)
	}
	if len(cfg.Import.SupportedExtensions) == 0 {
		t.Error("no supported extensions")
	}
	if cfg.LogLevel != "info" {
		t.Errorf("log level = %q", cfg.LogLevel)
	}
}

func TestLoadWithoutConfigFile(t *testing.T) {
	cfg, err := Load(t.TempDir())
	if err != nil {
		t.Fatalf("Load() error = %v", err)
	}
	if cfg.Database.DBName != Default().Database.DBName {
		t.Errorf("dbname = %q, want default", cfg.Database.DBName)
	}
}

func TestLoadAppliesEnvOverrides(t *testing.T) {
	t.Setenv("BROKER_DATABASE_HOST", "db.internal")
	t.Setenv("BROKER_PATHS_INBOX", "/srv/inbox")
	t.Setenv("BROKER_LOG_LEVEL", "debug")

	cfg, err := Load(t.TempDir())
	if err != nil {
		t.Fatalf("Load() error = %v", err)
	}
	if cfg.Database.Host != "db.internal" {
		t.Errorf("host = %q, want db.internal", cfg.Database.Host)
	}
	if cfg.Paths.Inbox != "/srv/inbox" {
		t.Errorf("inbox = %q, want /srv/inbox", cfg.Paths.Inbox)
	}
	if cfg.LogLevel != "debug" {
		t.Errorf("log level = %q, want debug", cfg.LogLevel)
	}
}

func TestLoadReadsConfigFile(t *testing.T) {
	dir := t.TempDir()
	yaml := `database:
  host: filehost
  port: 5433
paths:
  inbox: from-file/inbox
import:
  max_file_size_mb: 10
`
	if err := os.WriteFile(filepath.Join(dir, "config.yaml"), []byte(yaml), 0o644); err != nil {
		t.Fatal(err)
	}

	cfg, err := Load(dir)
	if err != nil {
		t.Fatalf("Load() error = %v", err)
	}
	if cfg.Database.Host != "filehost" || cfg.Database.Port != 5433 {
		t.Errorf("database = %+v", cfg.Database)
	}
	if cfg.Paths.Inbox != "from-file/inbox" {
		t.Errorf("inbox = %q", cfg.Paths.Inbox)
	}
	if cfg.Import.MaxFileSizeMB != 10 {
		t.Errorf("max file size = %d", cfg.Import.MaxFileSizeMB)
	}
	// Unset keys keep their defaults.
	if cfg.Paths.Archive != "data/archive" {
		t.Errorf("archive = %q, want default", cfg.Paths.Archive)
	}
}

func TestArchiveDir(t *testing.T) {
	p := Paths{Archive: "/data/archive"}
	if got := p.ArchiveDir(ArchiveConflicts); got != filepath.Join("/data/archive", "conflicts") {
		t.Errorf("ArchiveDir = %q", got)
	}
}

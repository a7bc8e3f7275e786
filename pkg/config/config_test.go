package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"
)

func TestLoadDefaults(t *testing.T) {
	cfg, err := Load("")
	if err != nil {
		t.Fatalf("Load: %v", err)
	}
	if cfg.Server.Port != 8080 {
		t.Errorf("Server.Port = %d, want 8080", cfg.Server.Port)
	}
	if cfg.Index.Q != 3 {
		t.Errorf("Index.Q = %d, want 3", cfg.Index.Q)
	}
	if cfg.Index.Scoring != "affine_gaps" {
		t.Errorf("Index.Scoring = %q, want affine_gaps", cfg.Index.Scoring)
	}
	if cfg.Index.DefaultK != 5 {
		t.Errorf("Index.DefaultK = %d, want 5", cfg.Index.DefaultK)
	}
}

func TestLoadFromFile(t *testing.T) {
	path := filepath.Join(t.TempDir(), "test.yaml")
	content := `
server:
  port: 9999
index:
  q: 4
  scoring: levenshtein
  source: csv
  csvPath: /data/catalog.csv
  refreshInterval: 1h
geofence:
  enabled: true
  channels:
    channel-1: /data/fences/downtown.txt
`
	if err := os.WriteFile(path, []byte(content), 0o644); err != nil {
		t.Fatal(err)
	}
	cfg, err := Load(path)
	if err != nil {
		t.Fatalf("Load: %v", err)
	}
	if cfg.Server.Port != 9999 {
		t.Errorf("Server.Port = %d, want 9999", cfg.Server.Port)
	}
	if cfg.Index.Q != 4 || cfg.Index.Scoring != "levenshtein" {
		t.Errorf("Index = %+v", cfg.Index)
	}
	if cfg.Index.RefreshInterval != time.Hour {
		t.Errorf("RefreshInterval = %v, want 1h", cfg.Index.RefreshInterval)
	}
	if !cfg.Geofence.Enabled || cfg.Geofence.Channels["channel-1"] != "/data/fences/downtown.txt" {
		t.Errorf("Geofence = %+v", cfg.Geofence)
	}
	// Fields absent from the file keep their defaults.
	if cfg.Postgres.Port != 5432 {
		t.Errorf("Postgres.Port = %d, want default 5432", cfg.Postgres.Port)
	}
}

func TestLoadMissingFile(t *testing.T) {
	if _, err := Load(filepath.Join(t.TempDir(), "absent.yaml")); err == nil {
		t.Error("expected error for missing config file")
	}
}

func TestEnvOverrides(t *testing.T) {
	t.Setenv("PS_SERVER_PORT", "7070")
	t.Setenv("PS_INDEX_SCORING", "needleman_wunsch")
	t.Setenv("PS_KAFKA_BROKERS", "k1:9092,k2:9092")
	cfg, err := Load("")
	if err != nil {
		t.Fatalf("Load: %v", err)
	}
	if cfg.Server.Port != 7070 {
		t.Errorf("Server.Port = %d, want 7070", cfg.Server.Port)
	}
	if cfg.Index.Scoring != "needleman_wunsch" {
		t.Errorf("Index.Scoring = %q", cfg.Index.Scoring)
	}
	if len(cfg.Kafka.Brokers) != 2 || cfg.Kafka.Brokers[1] != "k2:9092" {
		t.Errorf("Kafka.Brokers = %v", cfg.Kafka.Brokers)
	}
}

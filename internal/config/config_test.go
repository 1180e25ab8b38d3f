package config

import "testing"

func TestValidate_InvalidPort(t *testing.T) {
	cfg := Config{
		HTTP: HTTPConfig{Port: 0},
		Database: DatabaseConfig{
			Addrs: []string{"localhost:6379"},
		},
		Storage: StorageConfig{KeyPrefix: "mdx:"},
	}

	err := cfg.Validate()
	if err == nil {
		t.Fatal("expected error for invalid port")
	}
}

func TestValidate_MissingDatabaseAddrs(t *testing.T) {
	cfg := Config{
		HTTP: HTTPConfig{Port: 8080},
		Database: DatabaseConfig{
			Addrs: []string{},
		},
		Storage: StorageConfig{KeyPrefix: "mdx:"},
	}

	err := cfg.Validate()
	if err == nil {
		t.Fatal("expected error for missing database addrs")
	}
}

func TestValidate_BadKeyPrefix(t *testing.T) {
	cfg := Config{
		HTTP: HTTPConfig{Port: 8080},
		Database: DatabaseConfig{
			Addrs: []string{"localhost:6379"},
		},
		Storage: StorageConfig{KeyPrefix: "mdx"},
	}

	err := cfg.Validate()
	if err == nil {
		t.Fatal("expected error for key prefix without trailing colon")
	}

	expected := `storage.key_prefix must end with ":", got "mdx"`
	if err.Error() != expected {
		t.Errorf("unexpected error message:\ngot:  %q\nwant: %q", err.Error(), expected)
	}
}

func TestApplyDefaults(t *testing.T) {
	cfg := Config{}
	cfg.ApplyDefaults()

	if cfg.HTTP.ReadTimeoutSec != 10 {
		t.Errorf("expected ReadTimeoutSec=10, got %d", cfg.HTTP.ReadTimeoutSec)
	}
	if cfg.HTTP.WriteTimeoutSec != 10 {
		t.Errorf("expected WriteTimeoutSec=10, got %d", cfg.HTTP.WriteTimeoutSec)
	}
	if cfg.HTTP.ShutdownSec != 10 {
		t.Errorf("expected ShutdownSec=10, got %d", cfg.HTTP.ShutdownSec)
	}
	if cfg.Database.ReadinessTimeout != 10 {
		t.Errorf("expected ReadinessTimeout=10, got %d", cfg.Database.ReadinessTimeout)
	}
	if cfg.Search.MaxDepth != 25 {
		t.Errorf("expected MaxDepth=25, got %d", cfg.Search.MaxDepth)
	}
	if cfg.Search.ResourceTimeoutSec != 10 {
		t.Errorf("expected ResourceTimeoutSec=10, got %d", cfg.Search.ResourceTimeoutSec)
	}
	if cfg.Storage.KeyPrefix != "mdx:" {
		t.Errorf("expected KeyPrefix='mdx:', got %q", cfg.Storage.KeyPrefix)
	}
}

func TestApplyDefaults_NoOverride(t *testing.T) {
	cfg := Config{
		HTTP:     HTTPConfig{ReadTimeoutSec: 30, WriteTimeoutSec: 60, ShutdownSec: 5},
		Database: DatabaseConfig{ReadinessTimeout: 15},
		Search:   SearchConfig{MaxDepth: 5, ResourceTimeoutSec: 3},
		Storage:  StorageConfig{KeyPrefix: "custom:"},
	}
	cfg.ApplyDefaults()

	if cfg.HTTP.ReadTimeoutSec != 30 {
		t.Errorf("expected ReadTimeoutSec=30, got %d", cfg.HTTP.ReadTimeoutSec)
	}
	if cfg.HTTP.WriteTimeoutSec != 60 {
		t.Errorf("expected WriteTimeoutSec=60, got %d", cfg.HTTP.WriteTimeoutSec)
	}
	if cfg.Search.MaxDepth != 5 {
		t.Errorf("expected MaxDepth=5, got %d", cfg.Search.MaxDepth)
	}
	if cfg.Storage.KeyPrefix != "custom:" {
		t.Errorf("expected KeyPrefix='custom:', got %q", cfg.Storage.KeyPrefix)
	}
}

package config

import (
	"testing"
)

func validConfig() Config {
	cfg := Config{}
	cfg.HTTP.Port = 8080
	cfg.Database.Addrs = []string{"localhost:6379"}
	cfg.Embedding.Model = "labse"
	cfg.Embedding.Dimensions = 768
	cfg.Catalog.BaseURL = "https://stepik.org/api"
	cfg.ApplyDefaults()
	return cfg
}

func TestApplyDefaults(t *testing.T) {
	cfg := validConfig()

	if cfg.Database.Driver != "valkey" {
		t.Errorf("driver = %q", cfg.Database.Driver)
	}
	if cfg.Search.TopK != 100 {
		t.Errorf("top_k = %d", cfg.Search.TopK)
	}
	if cfg.Search.MaxDirect != 5 {
		t.Errorf("max_direct = %d", cfg.Search.MaxDirect)
	}
	if cfg.Selector.Attempts != 3 {
		t.Errorf("attempts = %d", cfg.Selector.Attempts)
	}
	if cfg.Selector.TimeoutSec != 30 {
		t.Errorf("timeout = %d", cfg.Selector.TimeoutSec)
	}
	if cfg.Catalog.BatchSize != 100 {
		t.Errorf("batch_size = %d", cfg.Catalog.BatchSize)
	}
	if cfg.Embedding.Workers != 1 {
		t.Errorf("workers = %d", cfg.Embedding.Workers)
	}
	if !cfg.DatabaseRequired() {
		t.Error("database must be required by default")
	}
}

func TestApplyDefaults_CapsBatchSize(t *testing.T) {
	cfg := validConfig()
	cfg.Catalog.BatchSize = 500
	cfg.ApplyDefaults()
	if cfg.Catalog.BatchSize != 100 {
		t.Errorf("batch_size = %d, want capped at 100", cfg.Catalog.BatchSize)
	}
}

func TestValidate(t *testing.T) {
	cases := []struct {
		name   string
		mutate func(*Config)
		ok     bool
	}{
		{"valid", func(c *Config) {}, true},
		{"bad port", func(c *Config) { c.HTTP.Port = 0 }, false},
		{"no addrs", func(c *Config) { c.Database.Addrs = nil }, false},
		{"no model", func(c *Config) { c.Embedding.Model = "" }, false},
		{"zero dims", func(c *Config) { c.Embedding.Dimensions = 0 }, false},
		{"no catalog", func(c *Config) { c.Catalog.BaseURL = "" }, false},
		{"score above one", func(c *Config) { c.Search.MinScore = 1.5 }, false},
	}

	for _, c := range cases {
		t.Run(c.name, func(t *testing.T) {
			cfg := validConfig()
			c.mutate(&cfg)
			err := cfg.Validate()
			if c.ok && err != nil {
				t.Errorf("unexpected error: %v", err)
			}
			if !c.ok && err == nil {
				t.Error("expected validation error")
			}
		})
	}
}

func TestExpandEnvVars(t *testing.T) {
	t.Setenv("COURSEMAP_TEST_VAR", "hello")

	cases := []struct {
		in, want string
	}{
		{"value: ${COURSEMAP_TEST_VAR}", "value: hello"},
		{"value: ${COURSEMAP_TEST_MISSING:-fallback}", "value: fallback"},
		{"value: ${COURSEMAP_TEST_VAR:-fallback}", "value: hello"},
		{"value: ${COURSEMAP_TEST_MISSING}", "value: "},
		{"plain", "plain"},
	}

	for _, c := range cases {
		if got := string(expandEnvVars([]byte(c.in))); got != c.want {
			t.Errorf("expand(%q) = %q, want %q", c.in, got, c.want)
		}
	}
}

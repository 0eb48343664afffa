package config

import (
	"testing"
	"time"
)

func TestGetEnv(t *testing.T) {
	tests := []struct {
		name         string
		key          string
		defaultValue string
		envValue     string
		shouldSet    bool
		want         string
	}{
		{
			name:         "returns environment variable when set",
			key:          "TEST_VAR",
			defaultValue: "default",
			envValue:     "custom",
			shouldSet:    true,
			want:         "custom",
		},
		{
			name:         "returns default when environment variable not set",
			key:          "TEST_VAR_MISSING",
			defaultValue: "default",
			shouldSet:    false,
			want:         "default",
		},
		{
			name:         "returns default when environment variable is empty string",
			key:          "TEST_VAR_EMPTY",
			defaultValue: "default",
			envValue:     "",
			shouldSet:    true,
			want:         "default",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if tt.shouldSet {
				t.Setenv(tt.key, tt.envValue)
			}

			got := getEnv(tt.key, tt.defaultValue)
			if got != tt.want {
				t.Errorf("getEnv() = %v, want %v", got, tt.want)
			}
		})
	}
}

func TestGetEnvAsInt(t *testing.T) {
	tests := []struct {
		name         string
		envValue     string
		shouldSet    bool
		defaultValue int
		want         int
	}{
		{name: "valid integer", envValue: "200", shouldSet: true, defaultValue: 100, want: 200},
		{name: "unset", shouldSet: false, defaultValue: 100, want: 100},
		{name: "not a number", envValue: "abc", shouldSet: true, defaultValue: 100, want: 100},
		{name: "negative", envValue: "-3", shouldSet: true, defaultValue: 100, want: -3},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if tt.shouldSet {
				t.Setenv("TEST_INT_VAR", tt.envValue)
			}

			if got := getEnvAsInt("TEST_INT_VAR", tt.defaultValue); got != tt.want {
				t.Errorf("getEnvAsInt() = %v, want %v", got, tt.want)
			}
		})
	}
}

func TestGetEnvAsFloatBoolDuration(t *testing.T) {
	t.Setenv("TEST_FLOAT", "2.5")
	t.Setenv("TEST_BOOL", "true")
	t.Setenv("TEST_DURATION", "90s")
	t.Setenv("TEST_BAD", "nope")

	if got := getEnvAsFloat("TEST_FLOAT", 1); got != 2.5 {
		t.Errorf("getEnvAsFloat() = %v, want 2.5", got)
	}

	if got := getEnvAsFloat("TEST_BAD", 1); got != 1 {
		t.Errorf("getEnvAsFloat() = %v, want default 1", got)
	}

	if got := getEnvAsBool("TEST_BOOL", false); !got {
		t.Error("getEnvAsBool() = false, want true")
	}

	if got := getEnvAsBool("TEST_BAD", true); !got {
		t.Error("getEnvAsBool() = false, want default true")
	}

	if got := getEnvAsDuration("TEST_DURATION", time.Second); got != 90*time.Second {
		t.Errorf("getEnvAsDuration() = %v, want 90s", got)
	}
}

func TestLoad_Defaults(t *testing.T) {
	cfg, err := Load()
	if err != nil {
		t.Fatalf("Load() error = %v", err)
	}

	if cfg.SimilarityTopK != 5 {
		t.Errorf("SimilarityTopK = %d, want 5", cfg.SimilarityTopK)
	}

	if cfg.SimilarityStrategy != "exact" {
		t.Errorf("SimilarityStrategy = %q, want exact", cfg.SimilarityStrategy)
	}

	if cfg.CatalogSource != CatalogSourcePostgres {
		t.Errorf("CatalogSource = %q, want postgres", cfg.CatalogSource)
	}

	if !cfg.HasSink(SinkPostgres) || cfg.HasSink(SinkCSV) {
		t.Errorf("ExportSinks = %v, want [postgres]", cfg.ExportSinks)
	}

	if cfg.Port != "8080" {
		t.Errorf("Port = %q, want 8080", cfg.Port)
	}

	if err := cfg.RequireAPIKey(); err == nil {
		t.Error("RequireAPIKey() error = nil, want error when API_KEY unset")
	}
}

func TestLoad_Overrides(t *testing.T) {
	t.Setenv("API_KEY", "test-api-key")
	t.Setenv("SIMILARITY_TOP_K", "10")
	t.Setenv("SIMILARITY_STRATEGY", "Blocked")
	t.Setenv("CATALOG_SOURCE", "csv")
	t.Setenv("EXPORT_SINKS", "postgres, CSV ,")
	t.Setenv("EMBEDDING_PROVIDER", "OpenAI")

	cfg, err := Load()
	if err != nil {
		t.Fatalf("Load() error = %v", err)
	}

	if cfg.SimilarityTopK != 10 {
		t.Errorf("SimilarityTopK = %d, want 10", cfg.SimilarityTopK)
	}

	if cfg.SimilarityStrategy != "blocked" {
		t.Errorf("SimilarityStrategy = %q, want blocked", cfg.SimilarityStrategy)
	}

	if cfg.CatalogSource != CatalogSourceCSV {
		t.Errorf("CatalogSource = %q, want csv", cfg.CatalogSource)
	}

	if !cfg.HasSink(SinkPostgres) || !cfg.HasSink(SinkCSV) || len(cfg.ExportSinks) != 2 {
		t.Errorf("ExportSinks = %v, want [postgres csv]", cfg.ExportSinks)
	}

	if cfg.EmbeddingProvider != "openai" {
		t.Errorf("EmbeddingProvider = %q, want openai", cfg.EmbeddingProvider)
	}

	if err := cfg.RequireAPIKey(); err != nil {
		t.Errorf("RequireAPIKey() error = %v, want nil", err)
	}
}

func TestLoad_ValidationErrors(t *testing.T) {
	tests := []struct {
		name  string
		key   string
		value string
	}{
		{name: "top k zero", key: "SIMILARITY_TOP_K", value: "0"},
		{name: "unknown strategy", key: "SIMILARITY_STRATEGY", value: "annoy"},
		{name: "block size negative", key: "SIMILARITY_BLOCK_SIZE", value: "-1"},
		{name: "batch size zero", key: "EMBEDDING_BATCH_SIZE", value: "0"},
		{name: "unknown catalog source", key: "CATALOG_SOURCE", value: "neo4j"},
		{name: "unknown sink", key: "EXPORT_SINKS", value: "postgres,parquet"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Setenv(tt.key, tt.value)

			if _, err := Load(); err == nil {
				t.Errorf("Load() error = nil, want error for %s=%s", tt.key, tt.value)
			}
		})
	}
}

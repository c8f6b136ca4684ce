package config

import (
	"testing"
	"time"
)

func TestS3ConfigIsConfigured(t *testing.T) {
	t.Run("empty config is not configured", func(t *testing.T) {
		if (S3Config{}).IsConfigured() {
			t.Fatal("expected IsConfigured=false for empty config")
		}
	})

	t.Run("required fields set is configured", func(t *testing.T) {
		cfg := S3Config{
			Endpoint:        "http://localhost:9000",
			Region:          "us-east-1",
			Bucket:          "meals",
			AccessKeyID:     "key",
			SecretAccessKey: "secret",
		}
		if !cfg.IsConfigured() {
			t.Fatal("expected IsConfigured=true when all required fields are set")
		}
	})
}

func TestS3ConfigMissingRequired(t *testing.T) {
	missing := (S3Config{Endpoint: "http://localhost:9000", Bucket: "meals"}).MissingRequired()

	want := []string{"S3_REGION", "S3_ACCESS_KEY_ID", "S3_SECRET_ACCESS_KEY"}
	if len(missing) != len(want) {
		t.Fatalf("expected %d missing fields, got %d (%v)", len(want), len(missing), missing)
	}
	for i := range want {
		if missing[i] != want[i] {
			t.Fatalf("expected missing[%d]=%s, got %s", i, want[i], missing[i])
		}
	}
}

func TestS3ConfigDiagnostics(t *testing.T) {
	tests := []struct {
		name      string
		cfg       S3Config
		wantLevel string
		wantCode  string
	}{
		{"not configured", S3Config{}, "INFO", "s3_not_configured"},
		{"partial config", S3Config{Endpoint: "http://localhost:9000"}, "WARN", "s3_partial_config"},
		{"ready", S3Config{
			Endpoint:        "http://localhost:9000",
			Region:          "us-east-1",
			Bucket:          "meals",
			AccessKeyID:     "key",
			SecretAccessKey: "secret",
		}, "INFO", "s3_ready"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			level, code, _ := tt.cfg.Diagnostics()
			if level != tt.wantLevel || code != tt.wantCode {
				t.Fatalf("expected %s/%s, got %s/%s", tt.wantLevel, tt.wantCode, level, code)
			}
		})
	}
}

func TestLoadDefaults(t *testing.T) {
	for _, key := range []string{"APP_ENV", "PORT", "BACKEND_BASE_URL", "CATALOG_MODE", "CATALOG_BATCH_SIZE", "CATALOG_BATCH_DELAY_MS", "BLOB_MODE", "DATABASE_URL", "DATABASE_URL_POOLED", "DATABASE_URL_DIRECT"} {
		t.Setenv(key, "")
	}

	cfg := Load()
	if cfg.Env != "local" || cfg.Port != 5000 {
		t.Fatalf("unexpected env/port: %s/%d", cfg.Env, cfg.Port)
	}
	if cfg.BackendBaseURL != "http://localhost:5000" {
		t.Fatalf("unexpected backend url %q", cfg.BackendBaseURL)
	}
	if cfg.Catalog.Mode != CatalogModeBoth || !cfg.Catalog.UsesLocal() || !cfg.Catalog.UsesRemote() {
		t.Fatalf("unexpected catalog mode %q", cfg.Catalog.Mode)
	}
	if cfg.Catalog.BatchSize != 5 || cfg.Catalog.BatchDelay != 500*time.Millisecond {
		t.Fatalf("unexpected batch settings: %d %v", cfg.Catalog.BatchSize, cfg.Catalog.BatchDelay)
	}
	if cfg.Blob.Mode != BlobModeLocal {
		t.Fatalf("expected local blob mode, got %s", cfg.Blob.Mode)
	}
	if cfg.DatabaseURL != "" {
		t.Fatalf("expected empty database url, got %q", cfg.DatabaseURL)
	}
}

func TestLoadOverrides(t *testing.T) {
	t.Setenv("APP_ENV", "local")
	t.Setenv("BACKEND_BASE_URL", "http://meals.internal:9000/")
	t.Setenv("CATALOG_MODE", "REMOTE")
	t.Setenv("CATALOG_BATCH_SIZE", "0")
	t.Setenv("CATALOG_BATCH_DELAY_MS", "20")
	t.Setenv("BLOB_MODE", "bogus")
	t.Setenv("DATABASE_URL", "postgres://plain")
	t.Setenv("DATABASE_URL_POOLED", "postgres://pooled")

	cfg := Load()
	if cfg.BackendBaseURL != "http://meals.internal:9000" {
		t.Fatalf("expected trailing slash trimmed, got %q", cfg.BackendBaseURL)
	}
	if cfg.Catalog.Mode != CatalogModeRemote || cfg.Catalog.UsesLocal() {
		t.Fatalf("expected remote catalog mode, got %q", cfg.Catalog.Mode)
	}
	if cfg.Catalog.BatchSize != 5 {
		t.Fatalf("expected non-positive batch size to fall back to 5, got %d", cfg.Catalog.BatchSize)
	}
	if cfg.Catalog.BatchDelay != 20*time.Millisecond {
		t.Fatalf("expected 20ms delay, got %v", cfg.Catalog.BatchDelay)
	}
	if cfg.Blob.Mode != BlobModeLocal {
		t.Fatalf("expected unknown blob mode to fall back to local, got %s", cfg.Blob.Mode)
	}
	if cfg.DatabaseURL != "postgres://pooled" {
		t.Fatalf("expected pooled url to win, got %q", cfg.DatabaseURL)
	}
}

func TestParseCORSOrigins(t *testing.T) {
	if got := parseCORSOrigins("", "prod"); got != nil {
		t.Fatalf("expected nil origins in prod, got %v", got)
	}
	got := parseCORSOrigins(" https://a.example , ,https://b.example", "prod")
	if len(got) != 2 || got[0] != "https://a.example" || got[1] != "https://b.example" {
		t.Fatalf("unexpected origins %v", got)
	}
}

func TestIsProduction(t *testing.T) {
	tests := []struct {
		env  string
		want bool
	}{
		{"local", false},
		{"", false},
		{"dev", false},
		{"prod", true},
		{"production", true},
		{"staging", true},
		{" Production ", true},
	}
	for _, tt := range tests {
		cfg := &Config{Env: tt.env}
		if got := cfg.IsProduction(); got != tt.want {
			t.Errorf("IsProduction(%q) = %v, want %v", tt.env, got, tt.want)
		}
	}
}

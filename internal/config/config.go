package config

import (
	"fmt"
	"log"
	"os"
	"strconv"
	"strings"
	"time"
)

const (
	BlobModeLocal = "local"
	BlobModeS3    = "s3"
	BlobModeAuto  = "auto"
)

const (
	CatalogModeLocal  = "local"
	CatalogModeRemote = "remote"
	CatalogModeBoth   = "both"
)

const DefaultCatalogBaseURL = "https://www.themealdb.com/api/json/v1/1"

type S3Config struct {
	Endpoint          string
	Region            string
	Bucket            string
	AccessKeyID       string
	SecretAccessKey   string
	PublicBaseURL     string
	PresignTTLSeconds int
}

func (c S3Config) MissingRequired() []string {
	required := []struct{ key, val string }{
		{"S3_ENDPOINT", c.Endpoint},
		{"S3_REGION", c.Region},
		{"S3_BUCKET", c.Bucket},
		{"S3_ACCESS_KEY_ID", c.AccessKeyID},
		{"S3_SECRET_ACCESS_KEY", c.SecretAccessKey},
	}
	missing := make([]string, 0, len(required))
	for _, r := range required {
		if strings.TrimSpace(r.val) == "" {
			missing = append(missing, r.key)
		}
	}
	return missing
}

func (c S3Config) IsConfigured() bool {
	return len(c.MissingRequired()) == 0
}

func (c S3Config) Diagnostics() (level string, code string, msg string) {
	missing := c.MissingRequired()
	if len(missing) == 5 && strings.TrimSpace(c.PublicBaseURL) == "" {
		return "INFO", "s3_not_configured", "not configured (all empty)"
	}
	if len(missing) > 0 {
		return "WARN", "s3_partial_config", fmt.Sprintf("partial config, missing=%v", missing)
	}
	return "INFO", "s3_ready", "ready"
}

// DiagnosticsSummary returns a summary for logging (no secrets)
func (c S3Config) DiagnosticsSummary() string {
	secrets := "not set"
	if strings.TrimSpace(c.AccessKeyID) != "" && strings.TrimSpace(c.SecretAccessKey) != "" {
		secrets = "set"
	}
	return fmt.Sprintf("endpoint=%s region=%s bucket=%s public_base_url=%s presign_ttl=%ds credentials=%s",
		nonEmptyOrDash(c.Endpoint),
		nonEmptyOrDash(c.Region),
		nonEmptyOrDash(c.Bucket),
		nonEmptyOrDash(c.PublicBaseURL),
		c.PresignTTLSeconds,
		secrets,
	)
}

func nonEmptyOrDash(v string) string {
	v = strings.TrimSpace(v)
	if v == "" {
		return "-"
	}
	return v
}

type BlobConfig struct {
	Mode     string // local|s3|auto
	LocalDir string
	S3       S3Config
}

// CatalogConfig describes the dish sources used while browsing.
type CatalogConfig struct {
	Mode       string // local|remote|both
	BaseURL    string
	BatchSize  int
	BatchDelay time.Duration
	CacheKey   string
}

func (c CatalogConfig) UsesRemote() bool {
	return c.Mode == CatalogModeRemote || c.Mode == CatalogModeBoth
}

func (c CatalogConfig) UsesLocal() bool {
	return c.Mode == CatalogModeLocal || c.Mode == CatalogModeBoth
}

// Config содержит конфигурацию приложения
type Config struct {
	Env      string // local | staging | prod
	Port     int
	LogLevel string
	LogFile  string

	// Database
	DatabaseURL       string // runtime connection (resolved: pooled > url > direct)
	DatabaseURLRaw    string // DATABASE_URL as set
	DatabaseURLPooled string
	DatabaseURLDirect string // for migrations / DDL (may be empty)

	// CORS
	CORSAllowedOrigins   []string
	CORSAllowCredentials bool

	// Rate Limiting
	RateLimitRPS   int
	RateLimitBurst int

	Blob BlobConfig

	// Reports
	ReportsPrefix string

	// Authentication
	AuthRequired  bool
	JWTSecret     string
	JWTIssuer     string
	JWTTTLMinutes int

	// Planner client
	BackendBaseURL string
	BackendToken   string
	Catalog        CatalogConfig

	// Migrations
	RunMigrationsOnStartup bool
}

// IsProduction reports whether Env names a deployed environment. Dev-only
// endpoints are disabled and startup checks are fatal there.
func (c *Config) IsProduction() bool {
	switch strings.ToLower(strings.TrimSpace(c.Env)) {
	case "prod", "production", "staging":
		return true
	}
	return false
}

// Load загружает конфигурацию из переменных окружения
func Load() *Config {
	env := os.Getenv("APP_ENV")
	if env == "" {
		env = "local"
	}

	port := envInt("PORT", 5000)

	logLevel := strings.ToLower(strings.TrimSpace(os.Getenv("LOG_LEVEL")))
	if logLevel == "" {
		logLevel = "debug"
	}

	// Priority: DATABASE_URL_POOLED > DATABASE_URL > DATABASE_URL_DIRECT
	dbDirect := strings.TrimSpace(os.Getenv("DATABASE_URL_DIRECT"))
	dbRaw := strings.TrimSpace(os.Getenv("DATABASE_URL"))
	dbPooled := strings.TrimSpace(os.Getenv("DATABASE_URL_POOLED"))
	runtimeDB := firstNonEmpty(dbPooled, dbRaw, dbDirect)

	s3PresignTTL := envInt("S3_PRESIGN_TTL_SECONDS", 900)
	if s3PresignTTL <= 0 {
		s3PresignTTL = 900
	}

	blobDir := strings.TrimSpace(os.Getenv("BLOB_LOCAL_DIR"))
	if blobDir == "" {
		blobDir = ".data"
	}

	jwtSecret := os.Getenv("JWT_SECRET")
	if jwtSecret == "" {
		jwtSecret = "change_me"
	}
	if jwtSecret == "change_me" && env != "local" {
		log.Println("WARNING: JWT_SECRET is set to 'change_me' in non-local environment!")
	}
	jwtIssuer := os.Getenv("JWT_ISSUER")
	if jwtIssuer == "" {
		jwtIssuer = "meal-planner"
	}

	backendURL := strings.TrimRight(strings.TrimSpace(os.Getenv("BACKEND_BASE_URL")), "/")
	if backendURL == "" {
		backendURL = "http://localhost:5000"
	}

	catalogURL := strings.TrimRight(strings.TrimSpace(os.Getenv("CATALOG_BASE_URL")), "/")
	if catalogURL == "" {
		catalogURL = DefaultCatalogBaseURL
	}
	batchSize := envInt("CATALOG_BATCH_SIZE", 5)
	if batchSize <= 0 {
		batchSize = 5
	}
	batchDelay := envDuration("CATALOG_BATCH_DELAY_MS", 500*time.Millisecond, time.Millisecond)
	if batchDelay < 0 {
		batchDelay = 0
	}
	cacheKey := strings.TrimSpace(os.Getenv("CATALOG_CACHE_KEY"))
	if cacheKey == "" {
		cacheKey = "catalog/cache.json"
	}

	reportsPrefix := strings.Trim(strings.TrimSpace(os.Getenv("REPORTS_PREFIX")), "/")
	if reportsPrefix == "" {
		reportsPrefix = "reports"
	}

	return &Config{
		Env:      env,
		Port:     port,
		LogLevel: logLevel,
		LogFile:  strings.TrimSpace(os.Getenv("LOG_FILE")),

		DatabaseURL:       runtimeDB,
		DatabaseURLRaw:    dbRaw,
		DatabaseURLPooled: dbPooled,
		DatabaseURLDirect: dbDirect,

		CORSAllowedOrigins:   parseCORSOrigins(os.Getenv("CORS_ALLOWED_ORIGINS"), env),
		CORSAllowCredentials: parseBoolEnv("CORS_ALLOW_CREDENTIALS"),

		RateLimitRPS:   envInt("RATE_LIMIT_RPS", 0),
		RateLimitBurst: envInt("RATE_LIMIT_BURST", 0),

		Blob: BlobConfig{
			Mode:     parseMode("BLOB_MODE", BlobModeLocal, BlobModeLocal, BlobModeS3, BlobModeAuto),
			LocalDir: blobDir,
			S3: S3Config{
				Endpoint:          strings.TrimSpace(os.Getenv("S3_ENDPOINT")),
				Region:            strings.TrimSpace(os.Getenv("S3_REGION")),
				Bucket:            strings.TrimSpace(os.Getenv("S3_BUCKET")),
				AccessKeyID:       strings.TrimSpace(os.Getenv("S3_ACCESS_KEY_ID")),
				SecretAccessKey:   strings.TrimSpace(os.Getenv("S3_SECRET_ACCESS_KEY")),
				PublicBaseURL:     strings.TrimSpace(os.Getenv("S3_PUBLIC_BASE_URL")),
				PresignTTLSeconds: s3PresignTTL,
			},
		},

		ReportsPrefix: reportsPrefix,

		AuthRequired:  parseBoolEnv("AUTH_REQUIRED"),
		JWTSecret:     jwtSecret,
		JWTIssuer:     jwtIssuer,
		JWTTTLMinutes: envInt("JWT_TTL_MINUTES", 10080),

		BackendBaseURL: backendURL,
		BackendToken:   strings.TrimSpace(os.Getenv("BACKEND_TOKEN")),
		Catalog: CatalogConfig{
			Mode:       parseMode("CATALOG_MODE", CatalogModeBoth, CatalogModeLocal, CatalogModeRemote, CatalogModeBoth),
			BaseURL:    catalogURL,
			BatchSize:  batchSize,
			BatchDelay: batchDelay,
			CacheKey:   cacheKey,
		},

		RunMigrationsOnStartup: parseBoolEnv("RUN_MIGRATIONS_ON_STARTUP"),
	}
}

// parseCORSOrigins parses CORS_ALLOWED_ORIGINS env var.
// In local mode, defaults to localhost origins if empty.
func parseCORSOrigins(raw, env string) []string {
	raw = strings.TrimSpace(raw)
	if raw == "" {
		if env == "local" {
			return []string{"http://localhost:3000", "http://localhost:5173"}
		}
		return nil // prod: deny by default
	}

	parts := strings.Split(raw, ",")
	origins := make([]string, 0, len(parts))
	for _, p := range parts {
		p = strings.TrimSpace(p)
		if p != "" {
			origins = append(origins, p)
		}
	}
	return origins
}

// parseMode reads an enum env var; unknown values fall back to defaultVal.
func parseMode(key, defaultVal string, allowed ...string) string {
	mode := strings.ToLower(strings.TrimSpace(os.Getenv(key)))
	if mode == "" {
		return defaultVal
	}
	for _, a := range allowed {
		if mode == a {
			return mode
		}
	}
	log.Printf("WARNING: unknown %s=%q, fallback to %s", key, mode, defaultVal)
	return defaultVal
}

func firstNonEmpty(values ...string) string {
	for _, v := range values {
		if v = strings.TrimSpace(v); v != "" {
			return v
		}
	}
	return ""
}

// envInt reads an int env var with a default value.
func envInt(key string, defaultVal int) int {
	s := os.Getenv(key)
	if s == "" {
		return defaultVal
	}
	v, err := strconv.Atoi(s)
	if err != nil {
		return defaultVal
	}
	return v
}

// envDuration reads an integer env var expressed in unit.
func envDuration(key string, defaultVal, unit time.Duration) time.Duration {
	s := strings.TrimSpace(os.Getenv(key))
	if s == "" {
		return defaultVal
	}
	v, err := strconv.Atoi(s)
	if err != nil {
		return defaultVal
	}
	return time.Duration(v) * unit
}

func parseBoolEnv(key string) bool {
	v := strings.ToLower(strings.TrimSpace(os.Getenv(key)))
	return v == "1" || v == "true" || v == "yes" || v == "on"
}

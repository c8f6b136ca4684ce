package main

import (
	"fmt"
	"log"
	"strings"

	_ "github.com/joho/godotenv/autoload"
	"go.uber.org/zap"

	"github.com/fdg312/meal-planner/internal/config"
	"github.com/fdg312/meal-planner/internal/dbmigrate"
	"github.com/fdg312/meal-planner/internal/httpserver"
	"github.com/fdg312/meal-planner/internal/logger"
)

func main() {
	cfg := config.Load()

	zl, err := logger.New(cfg.Env, cfg.LogLevel, cfg.LogFile)
	if err != nil {
		log.Fatalf("FATAL logger: %v", err)
	}
	defer logger.Close(zl)
	restore := zap.RedirectStdLog(zl)
	defer restore()

	printStartupBanner(zl, cfg)

	if cfg.RunMigrationsOnStartup {
		sel, err := dbmigrate.SelectDatabaseURL(cfg, true)
		if err != nil {
			zl.Fatal("startup migrations", zap.Error(err))
		}

		zl.Info("startup migrations", zap.String("command", "up"), zap.String("using", sel.Source))
		if err := dbmigrate.Run("up", sel.URL, ""); err != nil {
			zl.Fatal("startup migrations failed", zap.Error(err))
		}
		zl.Info("startup migrations completed")
	}

	validateProductionConfig(zl, cfg)

	server := httpserver.New(cfg)
	defer server.Close()

	if err := server.Start(); err != nil {
		zl.Error("server stopped", zap.Error(err))
	}
}

// printStartupBanner logs a one-time summary of the resolved configuration.
// Secrets are reported only as "set" / "not set".
func printStartupBanner(zl *zap.Logger, cfg *config.Config) {
	zl.Info("meal planner api",
		zap.String("env", cfg.Env),
		zap.Int("port", cfg.Port),
		zap.String("log_level", cfg.LogLevel),
	)
	zl.Info("database",
		zap.String("runtime_url", describeDBURL(cfg.DatabaseURL, cfg.DatabaseURLPooled)),
		zap.String("pooled", setOrNot(cfg.DatabaseURLPooled)),
		zap.String("direct", setOrNot(cfg.DatabaseURLDirect)),
		zap.Bool("migrations_on_startup", cfg.RunMigrationsOnStartup),
	)
	zl.Info("auth",
		zap.Bool("auth_required", cfg.AuthRequired),
		zap.String("jwt_secret", secretStatus(cfg.JWTSecret, "change_me")),
		zap.String("jwt_issuer", cfg.JWTIssuer),
	)
	zl.Info("http",
		zap.Strings("cors_origins", cfg.CORSAllowedOrigins),
		zap.Int("rate_limit_rps", cfg.RateLimitRPS),
		zap.Int("rate_limit_burst", cfg.RateLimitBurst),
	)
}

// validateProductionConfig performs fatal checks that only matter in non-local envs.
func validateProductionConfig(zl *zap.Logger, cfg *config.Config) {
	if !cfg.IsProduction() {
		return
	}

	if cfg.AuthRequired && cfg.JWTSecret == "change_me" {
		zl.Fatal("JWT_SECRET must not be 'change_me' with AUTH_REQUIRED=1", zap.String("env", cfg.Env))
	}
	if cfg.DatabaseURL == "" {
		zl.Fatal("no DATABASE_URL configured", zap.String("env", cfg.Env))
	}
}

func setOrNot(v string) string {
	if strings.TrimSpace(v) == "" {
		return "not set"
	}
	return "set"
}

func secretStatus(v, insecureDefault string) string {
	v = strings.TrimSpace(v)
	if v == "" {
		return "not set"
	}
	if v == insecureDefault {
		return fmt.Sprintf("set (DEFAULT, insecure '%s')", insecureDefault)
	}
	return "set (custom)"
}

func describeDBURL(runtime, pooled string) string {
	if runtime == "" {
		return "not set (will use in-memory storage)"
	}
	if pooled != "" && runtime == pooled {
		return "set (via DATABASE_URL_POOLED)"
	}
	return "set"
}

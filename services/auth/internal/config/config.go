package config

import (
	"fmt"
	"os"
	"time"

	pkgconfig "github.com/complyhub/platform/pkg/config"
	"github.com/complyhub/platform/pkg/db"
	"github.com/complyhub/platform/services/auth/internal/service"
)

type Config struct {
	AuthAddr    string
	DBDriver    string
	DatabaseURL string
	LogLevel    string

	JWTSecret     []byte
	RefreshSecret []byte
	AccessTTL     time.Duration
	RefreshTTL    time.Duration

	SessionTTL        time.Duration
	RevocableSessions bool
	LoginScope        service.LoginScope
	EmbedPermissions  bool
	BcryptCost        int
	SweepInterval     time.Duration

	KafkaBrokers    []string
	KafkaAuditTopic string

	ESURL        string
	ESUser       string
	ESPassword   string
	ESAuditIndex string
}

func Load() *Config {
	pkgconfig.LoadDotEnv(os.Getenv("ENV_FILE"))

	return &Config{
		AuthAddr:    pkgconfig.EnvDefault("AUTH_ADDR", ":3001"),
		DBDriver:    pkgconfig.EnvDefault("DB_DRIVER", db.DriverPgx),
		DatabaseURL: pkgconfig.MustNonEmpty(os.Getenv("DATABASE_URL"), "DATABASE_URL"),
		LogLevel:    pkgconfig.EnvDefault("LOG_LEVEL", "info"),

		JWTSecret:     []byte(pkgconfig.MustNonEmpty(os.Getenv("JWT_SECRET"), "JWT_SECRET")),
		RefreshSecret: []byte(pkgconfig.MustNonEmpty(os.Getenv("JWT_REFRESH_SECRET"), "JWT_REFRESH_SECRET")),
		AccessTTL:     pkgconfig.EnvDurationDefault("JWT_ACCESS_TTL", 24*time.Hour),
		RefreshTTL:    pkgconfig.EnvDurationDefault("JWT_REFRESH_TTL", 7*24*time.Hour),

		SessionTTL:        pkgconfig.EnvDurationDefault("SESSION_TTL", 24*time.Hour),
		RevocableSessions: pkgconfig.EnvBoolDefault("REVOCABLE_SESSIONS", true),
		LoginScope:        service.LoginScope(pkgconfig.EnvDefault("LOGIN_SCOPE", string(service.ScopeGlobal))),
		EmbedPermissions:  pkgconfig.EnvBoolDefault("EMBED_PERMISSIONS", true),
		BcryptCost:        pkgconfig.EnvIntDefault("BCRYPT_COST", 10),
		SweepInterval:     pkgconfig.EnvDurationDefault("SESSION_SWEEP_INTERVAL", 10*time.Minute),

		KafkaBrokers:    pkgconfig.CSV(os.Getenv("KAFKA_BROKERS")),
		KafkaAuditTopic: pkgconfig.EnvDefault("KAFKA_AUDIT_TOPIC", "auth_events"),

		ESURL:        os.Getenv("ES_URL"),
		ESUser:       os.Getenv("ES_USER"),
		ESPassword:   os.Getenv("ES_PASSWORD"),
		ESAuditIndex: pkgconfig.EnvDefault("ES_AUDIT_INDEX", "auth-audit"),
	}
}

// Validate rejects combinations the service cannot run with.
func (c *Config) Validate() error {
	switch c.LoginScope {
	case service.ScopeGlobal, service.ScopeTenant:
	default:
		return fmt.Errorf("LOGIN_SCOPE must be %q or %q, got %q", service.ScopeGlobal, service.ScopeTenant, c.LoginScope)
	}
	switch c.DBDriver {
	case db.DriverPgx, db.DriverPQ, db.DriverSQLite:
	default:
		return fmt.Errorf("unknown DB_DRIVER %q", c.DBDriver)
	}
	if c.AccessTTL <= 0 || c.RefreshTTL <= 0 || c.SessionTTL <= 0 {
		return fmt.Errorf("token and session lifetimes must be positive")
	}
	return nil
}

func (c *Config) Policy() service.Policy {
	return service.Policy{
		SessionTTL:        c.SessionTTL,
		RevocableSessions: c.RevocableSessions,
		LoginScope:        c.LoginScope,
		EmbedPermissions:  c.EmbedPermissions,
		BcryptCost:        c.BcryptCost,
	}
}

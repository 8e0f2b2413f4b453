package config

import (
	"errors"
	"fmt"
	"os"
	"time"

	pkgconfig "github.com/complyhub/platform/pkg/config"
)

type VerifyMode string

const (
	VerifyRemote VerifyMode = "remote"
	VerifyLocal  VerifyMode = "local"
)

type Config struct {
	ListenAddr string
	AuthURL    string
	// Services maps a resource service name to its base URL.
	Services map[string]string

	VerifyMode        VerifyMode
	VerifyTimeout     time.Duration
	JWTSecret         []byte
	RevocableSessions bool
	LogLevel          string
}

var serviceDefaults = map[string]struct{ env, url string }{
	"policy":       {"POLICY_SERVICE_URL", "http://policy-service:3002"},
	"document":     {"DOCUMENT_SERVICE_URL", "http://document-service:3003"},
	"audit":        {"AUDIT_SERVICE_URL", "http://audit-service:3004"},
	"capa":         {"CAPA_SERVICE_URL", "http://capa-service:3005"},
	"risk":         {"RISK_SERVICE_URL", "http://risk-service:3006"},
	"analytics":    {"ANALYTICS_SERVICE_URL", "http://analytics-service:3007"},
	"notification": {"NOTIFICATION_SERVICE_URL", "http://notification-service:3008"},
}

func Load() *Config {
	pkgconfig.LoadDotEnv(os.Getenv("ENV_FILE"))

	services := make(map[string]string, len(serviceDefaults))
	for name, d := range serviceDefaults {
		services[name] = pkgconfig.EnvDefault(d.env, d.url)
	}

	return &Config{
		ListenAddr:        pkgconfig.EnvDefault("GATEWAY_ADDR", ":3000"),
		AuthURL:           pkgconfig.MustNonEmpty(os.Getenv("AUTH_URL"), "AUTH_URL"),
		Services:          services,
		VerifyMode:        VerifyMode(pkgconfig.EnvDefault("VERIFY_MODE", string(VerifyRemote))),
		VerifyTimeout:     pkgconfig.EnvDurationDefault("VERIFY_TIMEOUT", 5*time.Second),
		JWTSecret:         []byte(os.Getenv("JWT_SECRET")),
		RevocableSessions: pkgconfig.EnvBoolDefault("REVOCABLE_SESSIONS", true),
		LogLevel:          pkgconfig.EnvDefault("LOG_LEVEL", "info"),
	}
}

// Validate refuses local verification whenever sessions are revocable: a
// gateway that only checks signatures would keep accepting logged out tokens.
func (c *Config) Validate() error {
	switch c.VerifyMode {
	case VerifyRemote:
		return nil
	case VerifyLocal:
		if c.RevocableSessions {
			return errors.New("VERIFY_MODE=local requires REVOCABLE_SESSIONS=false")
		}
		if len(c.JWTSecret) == 0 {
			return errors.New("VERIFY_MODE=local requires JWT_SECRET")
		}
		return nil
	default:
		return fmt.Errorf("VERIFY_MODE must be %q or %q, got %q", VerifyRemote, VerifyLocal, c.VerifyMode)
	}
}

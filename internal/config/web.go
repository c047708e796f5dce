// AngelaMos | 2026
// web.go

package config

import (
	"fmt"
	"sync"
	"time"
)

type WebConfig struct {
	App       AppConfig       `koanf:"app"`
	Server    ServerConfig    `koanf:"server"`
	Backend   BackendConfig   `koanf:"backend"`
	Session   SessionConfig   `koanf:"session"`
	AuthLimit AuthLimitConfig `koanf:"auth_limit"`
	Business  BusinessConfig  `koanf:"business"`
	Log       LogConfig       `koanf:"log"`
}

// BackendConfig is not validated at load time. A missing or malformed value
// leaves the web app running in a not-configured state.
type BackendConfig struct {
	URL     string `koanf:"url"`
	AnonKey string `koanf:"anon_key"`
}

type SessionConfig struct {
	CookieName     string        `koanf:"cookie_name"`
	HashKey        string        `koanf:"hash_key"`
	BlockKey       string        `koanf:"block_key"`
	CSRFKey        string        `koanf:"csrf_key"`
	Secure         bool          `koanf:"secure"`
	MaxAge         time.Duration `koanf:"max_age"`
	IdleTimeout    time.Duration `koanf:"idle_timeout"`
	TrustedOrigins []string      `koanf:"trusted_origins"`
}

type AuthLimitConfig struct {
	Requests int           `koanf:"requests"`
	Window   time.Duration `koanf:"window"`
}

type BusinessConfig struct {
	Name  string `koanf:"name"`
	Phone string `koanf:"phone"`
	Email string `koanf:"email"`
}

var (
	webCfg  *WebConfig
	webOnce sync.Once
)

func LoadWeb(configPath string) (*WebConfig, error) {
	var loadErr error

	webOnce.Do(func() {
		out := &WebConfig{}
		if err := loadInto(out, webDefaults, webEnvKeys, configPath); err != nil {
			loadErr = err
			return
		}

		if err := validateWeb(out); err != nil {
			loadErr = fmt.Errorf("validate web config: %w", err)
			return
		}

		webCfg = out
	})

	if loadErr != nil {
		return nil, loadErr
	}

	return webCfg, nil
}

var webDefaults = map[string]any{
	"app.name":        "Tailorbook",
	"app.version":     "1.0.0",
	"app.environment": "development",

	"server.host":             "0.0.0.0",
	"server.port":             3000,
	"server.read_timeout":     "30s",
	"server.write_timeout":    "0s",
	"server.idle_timeout":     "120s",
	"server.shutdown_timeout": "15s",

	"session.cookie_name":  "tailorbook_session",
	"session.secure":       false,
	"session.max_age":      "168h",
	"session.idle_timeout": "2h",

	"auth_limit.requests": 10,
	"auth_limit.window":   "1m",

	"business.name":  "Bespoke Tailoring Studio",
	"business.phone": "+91 98765 43210",
	"business.email": "hello@tailorbook.example",

	"log.level":  "info",
	"log.format": "text",
}

var webEnvKeys = map[string]string{
	"BACKEND_URL":          "backend.url",
	"BACKEND_ANON_KEY":     "backend.anon_key",
	"ENVIRONMENT":          "app.environment",
	"HOST":                 "server.host",
	"PORT":                 "server.port",
	"LOG_LEVEL":            "log.level",
	"LOG_FORMAT":           "log.format",
	"SESSION_HASH_KEY":     "session.hash_key",
	"SESSION_BLOCK_KEY":    "session.block_key",
	"SESSION_CSRF_KEY":     "session.csrf_key",
	"SESSION_SECURE":       "session.secure",
	"SESSION_IDLE_TIMEOUT": "session.idle_timeout",
	"AUTH_LIMIT_REQUESTS":  "auth_limit.requests",
	"AUTH_LIMIT_WINDOW":    "auth_limit.window",
}

func validateWeb(c *WebConfig) error {
	if len(c.Session.HashKey) < 32 {
		return fmt.Errorf("SESSION_HASH_KEY must be at least 32 bytes")
	}

	switch len(c.Session.BlockKey) {
	case 0, 16, 24, 32:
	default:
		return fmt.Errorf("SESSION_BLOCK_KEY must be 16, 24 or 32 bytes")
	}

	if len(c.Session.CSRFKey) != 32 {
		return fmt.Errorf("SESSION_CSRF_KEY must be exactly 32 bytes")
	}

	if c.App.Environment == "production" && !c.Session.Secure {
		return fmt.Errorf("SESSION_SECURE must be true in production")
	}

	if c.Server.ReadTimeout <= 0 {
		return fmt.Errorf("server.read_timeout must be positive")
	}

	if c.AuthLimit.Requests <= 0 || c.AuthLimit.Window <= 0 {
		return fmt.Errorf("auth_limit requests and window must be positive")
	}

	return nil
}

func (c *WebConfig) IsProduction() bool {
	return c.App.Environment == "production"
}

// Package config loads server settings from SCOLARITE_* environment variables
// and an optional .env file.
package config

import (
	"errors"
	"fmt"
	"os"
	"strings"
	"time"

	"github.com/joho/godotenv"
	"github.com/spf13/viper"
)

// EnvPrefix prefixes every environment variable read by Load.
const EnvPrefix = "SCOLARITE"

// Config is the resolved server configuration.
type Config struct {
	Env            string
	Addr           string
	APIBaseURL     string
	DBPath         string
	Secret         string
	LocalStore     string // sqlite or redis
	RedisAddr      string
	EmailProvider  string // resend, sendgrid or noop
	ResendKey      string
	SendGridKey    string
	EmailFrom      string
	ContactTo      string
	GoogleClientID string
	RenderWait     time.Duration
	ViewTTL        time.Duration
	BackendTimeout time.Duration // 0 means no timeout
	RateLimit      int           // form posts per minute per client IP
}

// IsProduction reports whether the server runs in production.
func (c Config) IsProduction() bool {
	return c.Env == "production"
}

var (
	ErrSecretRequired   = errors.New("SCOLARITE_SECRET must be set in production")
	ErrUnknownStore     = errors.New("unknown local store")
	ErrUnknownProvider  = errors.New("unknown email provider")
	ErrAPIBaseURLNeeded = errors.New("SCOLARITE_API_BASE_URL must be set")
)

// devSecret is only ever used outside production.
const devSecret = "scolarite-development-secret-do-not-use"

func defaults(v *viper.Viper) {
	v.SetDefault("env", "development")
	v.SetDefault("addr", ":8080")
	v.SetDefault("api_base_url", "http://localhost:5000")
	v.SetDefault("db_path", "scolarite.db")
	v.SetDefault("secret", "")
	v.SetDefault("local_store", "sqlite")
	v.SetDefault("redis_addr", "localhost:6379")
	v.SetDefault("email_provider", "")
	v.SetDefault("resend_key", "")
	v.SetDefault("sendgrid_key", "")
	v.SetDefault("email_from", "Scolarité <noreply@scolarite.local>")
	v.SetDefault("contact_to", "scolarite@scolarite.local")
	v.SetDefault("google_client_id", "")
	v.SetDefault("render_wait", 2*time.Second)
	v.SetDefault("view_ttl", 30*time.Minute)
	v.SetDefault("backend_timeout", time.Duration(0))
	v.SetDefault("rate_limit", 30)
}

// Load reads the .env file named by dotenvPath when it exists, then the environment.
// PRE: none
// POST: returns a validated Config, or an error naming the first invalid setting
func Load(dotenvPath string) (Config, error) {
	if dotenvPath != "" {
		if _, err := os.Stat(dotenvPath); err == nil {
			if err := godotenv.Load(dotenvPath); err != nil {
				return Config{}, fmt.Errorf("load %s: %w", dotenvPath, err)
			}
		} else if !os.IsNotExist(err) {
			return Config{}, fmt.Errorf("stat %s: %w", dotenvPath, err)
		}
	}

	v := viper.New()
	v.SetTypeByDefaultValue(true)
	defaults(v)
	v.SetEnvPrefix(EnvPrefix)
	v.AutomaticEnv()

	cfg := Config{
		Env:            strings.ToLower(v.GetString("env")),
		Addr:           v.GetString("addr"),
		APIBaseURL:     strings.TrimRight(v.GetString("api_base_url"), "/"),
		DBPath:         v.GetString("db_path"),
		Secret:         v.GetString("secret"),
		LocalStore:     strings.ToLower(v.GetString("local_store")),
		RedisAddr:      v.GetString("redis_addr"),
		EmailProvider:  strings.ToLower(v.GetString("email_provider")),
		ResendKey:      v.GetString("resend_key"),
		SendGridKey:    v.GetString("sendgrid_key"),
		EmailFrom:      v.GetString("email_from"),
		ContactTo:      v.GetString("contact_to"),
		GoogleClientID: v.GetString("google_client_id"),
		RenderWait:     v.GetDuration("render_wait"),
		ViewTTL:        v.GetDuration("view_ttl"),
		BackendTimeout: v.GetDuration("backend_timeout"),
		RateLimit:      v.GetInt("rate_limit"),
	}
	return cfg, cfg.resolve()
}

// resolve fills derived defaults and validates.
func (c *Config) resolve() error {
	if c.Secret == "" {
		if c.IsProduction() {
			return ErrSecretRequired
		}
		c.Secret = devSecret
	}
	if c.APIBaseURL == "" {
		return ErrAPIBaseURLNeeded
	}
	switch c.LocalStore {
	case "sqlite", "redis":
	default:
		return fmt.Errorf("%w: %q", ErrUnknownStore, c.LocalStore)
	}
	if c.EmailProvider == "" {
		switch {
		case c.ResendKey != "":
			c.EmailProvider = "resend"
		case c.SendGridKey != "":
			c.EmailProvider = "sendgrid"
		default:
			c.EmailProvider = "noop"
		}
	}
	switch c.EmailProvider {
	case "resend", "sendgrid", "noop":
	default:
		return fmt.Errorf("%w: %q", ErrUnknownProvider, c.EmailProvider)
	}
	if c.RenderWait <= 0 {
		c.RenderWait = 2 * time.Second
	}
	if c.ViewTTL <= 0 {
		c.ViewTTL = 30 * time.Minute
	}
	if c.RateLimit <= 0 {
		c.RateLimit = 30
	}
	return nil
}

package config

import (
	"fmt"
	"strings"

	"github.com/spf13/viper"
)

type Config struct {
	Port          string   `mapstructure:"PORT"`
	Env           string   `mapstructure:"ENV"`
	DatabaseURL   string   `mapstructure:"DATABASE_URL"`
	DBMaxConns    int32    `mapstructure:"DB_MAX_CONNS"`
	DBMinConns    int32    `mapstructure:"DB_MIN_CONNS"`
	JWTSecret     string   `mapstructure:"JWT_SECRET"`
	JWTIssuer     string   `mapstructure:"JWT_ISSUER"`
	JWTAudience   string   `mapstructure:"JWT_AUDIENCE"`
	CORSOrigins   []string `mapstructure:"CORS_ORIGINS"`
	MigrationsDir string   `mapstructure:"MIGRATIONS_DIR"`
}

func Load() (*Config, error) {
	v := viper.New()
	v.SetConfigFile(".env")
	v.AutomaticEnv()

	// Defaults
	v.SetDefault("PORT", "8000")
	v.SetDefault("ENV", "development")
	v.SetDefault("DB_MAX_CONNS", 20)
	v.SetDefault("DB_MIN_CONNS", 5)
	v.SetDefault("CORS_ORIGINS", "http://localhost:3000")
	v.SetDefault("MIGRATIONS_DIR", "./migrations")

	// Bind env vars explicitly so Unmarshal picks them up
	v.BindEnv("PORT")
	v.BindEnv("ENV")
	v.BindEnv("DATABASE_URL")
	v.BindEnv("DB_MAX_CONNS")
	v.BindEnv("DB_MIN_CONNS")
	v.BindEnv("JWT_SECRET")
	v.BindEnv("JWT_ISSUER")
	v.BindEnv("JWT_AUDIENCE")
	v.BindEnv("CORS_ORIGINS")
	v.BindEnv("MIGRATIONS_DIR")

	// Try reading .env, but don't fail if missing
	_ = v.ReadInConfig()

	cfg := &Config{}
	if err := v.Unmarshal(cfg); err != nil {
		return nil, fmt.Errorf("unmarshal config: %w", err)
	}

	if cfg.CORSOrigins == nil {
		origins := v.GetString("CORS_ORIGINS")
		if origins != "" {
			cfg.CORSOrigins = strings.Split(origins, ",")
		}
	}

	if cfg.DatabaseURL == "" {
		return nil, fmt.Errorf("DATABASE_URL is required")
	}

	return cfg, nil
}

func (c *Config) IsDev() bool { return c.Env == "development" }

// Validate checks that the configuration is safe to run. Outside
// development the JWT secret must be set so that real authentication is
// enforced; DevAuthMiddleware grants admin to everyone and must never be
// reachable in production.
func (c *Config) Validate() error {
	if !c.IsDev() && c.JWTSecret == "" {
		return fmt.Errorf("JWT_SECRET is required when ENV=%q; refusing to start without authentication", c.Env)
	}
	if c.DBMinConns > c.DBMaxConns {
		return fmt.Errorf("DB_MIN_CONNS (%d) must not exceed DB_MAX_CONNS (%d)", c.DBMinConns, c.DBMaxConns)
	}
	return nil
}

package config

import (
	"fmt"
	"strings"
	"time"

	"github.com/joho/godotenv"
	"github.com/kelseyhightower/envconfig"
)

type Config struct {
	DatabaseURL    string        `envconfig:"DATABASE_URL" required:"true"`
	HTTPPort       string        `envconfig:"HTTP_PORT" default:"3001"`
	JWTSecret      string        `envconfig:"JWT_SECRET" required:"true"`
	JWTExpiresIn   time.Duration `envconfig:"JWT_EXPIRES_IN" default:"24h"`
	LoginFailDelay time.Duration `envconfig:"LOGIN_FAIL_DELAY" default:"1s"`
	LogLevel       string        `envconfig:"LOG_LEVEL" default:"info"`
	CORSOrigins    []string      `envconfig:"CORS_ORIGINS" default:"*"`
	MaxOpenConns   int           `envconfig:"DB_MAX_OPEN_CONNS" default:"10"`
	MaxIdleConns   int           `envconfig:"DB_MAX_IDLE_CONNS" default:"5"`
	AdminName      string        `envconfig:"ADMIN_NAME" default:"Администратор"`
	AdminPIN       string        `envconfig:"ADMIN_PIN"`
}

// Load reads an optional .env file and then the process environment.
func Load() (*Config, error) {
	_ = godotenv.Load()
	var cfg Config
	if err := envconfig.Process("", &cfg); err != nil {
		return nil, fmt.Errorf("load config: %w", err)
	}
	if cfg.DatabaseURL == "" {
		return nil, fmt.Errorf("load config: DATABASE_URL is empty")
	}
	if len(cfg.JWTSecret) < 16 {
		return nil, fmt.Errorf("load config: JWT_SECRET must be at least 16 bytes")
	}
	if cfg.MaxOpenConns < 1 {
		return nil, fmt.Errorf("load config: DB_MAX_OPEN_CONNS must be positive")
	}
	for i, o := range cfg.CORSOrigins {
		cfg.CORSOrigins[i] = strings.TrimSpace(o)
	}
	return &cfg, nil
}

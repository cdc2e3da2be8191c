// Package config reads the runtime settings of the API server and rtctl from
// the environment, after filling unset variables from a local .env file.
package config

import (
	"bufio"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/caarlos0/env/v11"
)

// Config holds every setting read from the environment.
type Config struct {
	HTTPAddr string `env:"HTTP_ADDR" envDefault:":8081"`

	DBDriver      string `env:"DB_DRIVER"       envDefault:"postgres"`
	DBDSN         string `env:"DB_DSN"`
	DBAutoMigrate bool   `env:"DB_AUTO_MIGRATE" envDefault:"true"`

	JWTSecret     string        `env:"JWT_SECRET"     envDefault:"dev-insecure-secret-change"`
	JWTIssuer     string        `env:"JWT_ISSUER"     envDefault:"RTMultiTenant"`
	JWTAudience   string        `env:"JWT_AUDIENCE"   envDefault:"RTMultiTenantUsers"`
	JWTExpiration time.Duration `env:"JWT_EXPIRATION" envDefault:"120m"`
	RefreshTTL    time.Duration `env:"REFRESH_TTL"    envDefault:"720h"`
	ResetTTL      time.Duration `env:"RESET_TTL"      envDefault:"2h"`

	UploadBase      string `env:"UPLOAD_BASE"       envDefault:"uploads"`
	UploadMaxBytes  int64  `env:"UPLOAD_MAX_BYTES"  envDefault:"5242880"`
	PicMaxDimension int    `env:"PIC_MAX_DIMENSION" envDefault:"1024"`

	CORSOrigins []string `env:"CORS_ORIGINS" envDefault:"http://localhost:4200" envSeparator:","`

	SMTPHost     string `env:"SMTP_HOST"`
	SMTPPort     int    `env:"SMTP_PORT"     envDefault:"587"`
	SMTPUser     string `env:"SMTP_USER"`
	SMTPPassword string `env:"SMTP_PASSWORD"`
	SMTPFrom     string `env:"SMTP_FROM"`
	ResetURLBase string `env:"RESET_URL_BASE"`
}

// SMTPConfigured reports whether reset links can be mailed.
func (c Config) SMTPConfigured() bool {
	return c.SMTPHost != "" && c.SMTPFrom != ""
}

// Load reads ./.env (when present) and parses the environment into a Config.
func Load() (Config, error) {
	LoadDotEnv(".env")
	var cfg Config
	if err := env.Parse(&cfg); err != nil {
		return Config{}, fmt.Errorf("parse env: %w", err)
	}
	cfg.DBDriver = strings.ToLower(strings.TrimSpace(cfg.DBDriver))
	switch cfg.DBDriver {
	case "postgres", "sqlite":
	default:
		return Config{}, fmt.Errorf("unsupported DB_DRIVER %q", cfg.DBDriver)
	}
	if cfg.DBDSN == "" {
		if cfg.DBDriver == "postgres" {
			return Config{}, fmt.Errorf("DB_DSN is not set; postgres requires a DSN")
		}
		cfg.DBDSN = "rt06.db"
	}
	return cfg, nil
}

// LoadDotEnv loads key=value pairs from path into the environment without
// overwriting variables that are already set. Lines starting with # are ignored.
func LoadDotEnv(path string) {
	f, err := os.Open(filepath.Clean(path))
	if err != nil {
		return
	}
	defer f.Close()
	scanner := bufio.NewScanner(f)
	for scanner.Scan() {
		line := strings.TrimSpace(scanner.Text())
		if line == "" || strings.HasPrefix(line, "#") {
			continue
		}
		line = strings.TrimPrefix(line, "export ")
		eq := strings.IndexByte(line, '=')
		if eq <= 0 {
			continue
		}
		key := strings.TrimSpace(line[:eq])
		val := strings.Trim(strings.TrimSpace(line[eq+1:]), `"'`)
		if _, exists := os.LookupEnv(key); !exists {
			_ = os.Setenv(key, val)
		}
	}
}

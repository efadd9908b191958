package config

import (
	"errors"
	"fmt"
	"io/fs"
	"os"
	"strconv"
	"time"

	"github.com/joho/godotenv"
)

// Config is the process configuration read from the environment.
type Config struct {
	Addr    string
	TLSCert string
	TLSKey  string

	Store       string // memory, sqlite or postgres
	SQLitePath  string
	DatabaseURL string

	TokenKey string

	LogLevel  string
	LogFormat string

	RateLimit float64 // requests per second per IP
	RateBurst int

	Workers    int
	RunTimeout time.Duration
}

// Load reads .env style files (missing files are skipped) and then the
// environment. Variables already set in the environment win.
func Load(files ...string) (Config, error) {
	if len(files) == 0 {
		files = []string{".env"}
	}
	for _, f := range files {
		if err := godotenv.Load(f); err != nil && !errors.Is(err, fs.ErrNotExist) {
			return Config{}, fmt.Errorf("load %s: %w", f, err)
		}
	}
	return FromEnv()
}

// FromEnv builds a Config from environment variables only.
func FromEnv() (Config, error) {
	c := Config{
		Addr:        getenv("ADDR", ":8443"),
		TLSCert:     os.Getenv("TLS_CERT"),
		TLSKey:      os.Getenv("TLS_KEY"),
		Store:       getenv("STORE", "sqlite"),
		SQLitePath:  getenv("SQLITE_PATH", "data/dam_results.db"),
		DatabaseURL: os.Getenv("DATABASE_URL"),
		TokenKey:    os.Getenv("TOKEN_KEY"),
		LogLevel:    getenv("LOG_LEVEL", "info"),
		LogFormat:   getenv("LOG_FORMAT", "text"),
	}

	var err error
	if c.RateLimit, err = getFloat("RATE_LIMIT", 1); err != nil {
		return Config{}, err
	}
	if c.RateBurst, err = getInt("RATE_BURST", 3); err != nil {
		return Config{}, err
	}
	if c.Workers, err = getInt("WORKERS", 4); err != nil {
		return Config{}, err
	}
	if c.RunTimeout, err = getDuration("RUN_TIMEOUT", 2*time.Minute); err != nil {
		return Config{}, err
	}
	return c, c.Validate()
}

// Validate checks combinations that cannot work at runtime.
func (c Config) Validate() error {
	switch c.Store {
	case "memory", "sqlite", "postgres":
	default:
		return fmt.Errorf("STORE: unsupported backend %q", c.Store)
	}
	if c.Store == "sqlite" && c.SQLitePath == "" {
		return errors.New("SQLITE_PATH is required for the sqlite store")
	}
	if c.Workers < 1 {
		return fmt.Errorf("WORKERS must be positive, got %d", c.Workers)
	}
	if c.RateLimit <= 0 || c.RateBurst < 1 {
		return fmt.Errorf("RATE_LIMIT/RATE_BURST must be positive")
	}
	return nil
}

// DSN returns the data source for the configured store.
func (c Config) DSN() string {
	switch c.Store {
	case "postgres":
		return c.DatabaseURL
	case "sqlite":
		return c.SQLitePath
	default:
		return ""
	}
}

func getenv(key, def string) string {
	if v, ok := os.LookupEnv(key); ok && v != "" {
		return v
	}
	return def
}

func getInt(key string, def int) (int, error) {
	v := os.Getenv(key)
	if v == "" {
		return def, nil
	}
	n, err := strconv.Atoi(v)
	if err != nil {
		return 0, fmt.Errorf("%s: %w", key, err)
	}
	return n, nil
}

func getFloat(key string, def float64) (float64, error) {
	v := os.Getenv(key)
	if v == "" {
		return def, nil
	}
	f, err := strconv.ParseFloat(v, 64)
	if err != nil {
		return 0, fmt.Errorf("%s: %w", key, err)
	}
	return f, nil
}

func getDuration(key string, def time.Duration) (time.Duration, error) {
	v := os.Getenv(key)
	if v == "" {
		return def, nil
	}
	d, err := time.ParseDuration(v)
	if err != nil {
		return 0, fmt.Errorf("%s: %w", key, err)
	}
	return d, nil
}

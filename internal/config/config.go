package config

import (
	"crypto/rand"
	"encoding/hex"
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"

	"gopkg.in/yaml.v3"
)

// DefaultCategories is the allow-list of category names users may pick.
var DefaultCategories = []string{
	"Work",
	"Personal",
	"Projects",
	"Learning",
	"Health",
	"Travel",
}

type Config struct {
	Port          int           `yaml:"port"`
	BaseURL       string        `yaml:"base_url"`
	DBDriver      string        `yaml:"db_driver"`
	DBDSN         string        `yaml:"db_dsn"`
	JWTSecret     string        `yaml:"jwt_secret"`
	RedisAddr     string        `yaml:"redis_addr"`
	RedisChannel  string        `yaml:"redis_channel"`
	LogMode       string        `yaml:"log_mode"`
	LogRedact     bool          `yaml:"log_redact"`
	LogHashSalt   string        `yaml:"log_hash_salt"`
	Categories    []string      `yaml:"categories"`
	GenerateDelay time.Duration `yaml:"generate_delay"`
	CacheTTL      time.Duration `yaml:"cache_ttl"`
	CacheSize     int           `yaml:"cache_size"`

	// GeneratedSecret is set when no JWT secret was configured and one was generated.
	GeneratedSecret bool `yaml:"-"`
}

func Default() Config {
	return Config{
		Port:          2025,
		DBDriver:      "sqlite",
		DBDSN:         "./data/notes.db",
		RedisChannel:  "dashboard-stale",
		LogMode:       "dev",
		LogRedact:     true,
		Categories:    append([]string(nil), DefaultCategories...),
		GenerateDelay: 300 * time.Millisecond,
		CacheTTL:      time.Minute,
		CacheSize:     150,
	}
}

// Load builds the configuration from defaults, then the optional YAML file at
// path, then environment variables.
func Load(path string) (Config, error) {
	cfg := Default()

	if path != "" {
		data, err := os.ReadFile(path)
		if err != nil {
			return cfg, fmt.Errorf("failed to read config: %w", err)
		}
		if err := yaml.Unmarshal(data, &cfg); err != nil {
			return cfg, fmt.Errorf("failed to parse config: %w", err)
		}
	}

	if err := applyEnv(&cfg); err != nil {
		return cfg, err
	}

	if cfg.BaseURL == "" {
		cfg.BaseURL = fmt.Sprintf("http://localhost:%d", cfg.Port)
	}
	if len(cfg.Categories) == 0 {
		cfg.Categories = append([]string(nil), DefaultCategories...)
	}
	if cfg.JWTSecret == "" {
		secretBytes := make([]byte, 32)
		if _, err := rand.Read(secretBytes); err != nil {
			return cfg, fmt.Errorf("failed to generate JWT secret: %w", err)
		}
		cfg.JWTSecret = hex.EncodeToString(secretBytes)
		cfg.GeneratedSecret = true
	}
	return cfg, nil
}

func applyEnv(cfg *Config) error {
	if v, ok := lookup("PORT"); ok {
		port, err := strconv.Atoi(v)
		if err != nil {
			return fmt.Errorf("invalid PORT %q: %w", v, err)
		}
		cfg.Port = port
	}
	if v, ok := lookup("BASE_URL"); ok {
		cfg.BaseURL = strings.TrimRight(v, "/")
	}
	if v, ok := lookup("DB_DRIVER"); ok {
		cfg.DBDriver = v
	}
	if v, ok := lookup("DB_DSN"); ok {
		cfg.DBDSN = v
	}
	if v, ok := lookup("JWT_SECRET"); ok {
		cfg.JWTSecret = v
	}
	if v, ok := lookup("REDIS_ADDR"); ok {
		cfg.RedisAddr = v
	}
	if v, ok := lookup("REDIS_CHANNEL"); ok {
		cfg.RedisChannel = v
	}
	if v, ok := lookup("LOG_MODE"); ok {
		cfg.LogMode = v
	}
	if v, ok := lookup("LOG_HASH_SALT"); ok {
		cfg.LogHashSalt = v
	}
	if v, ok := lookup("LOG_REDACTION_ENABLED"); ok {
		switch strings.ToLower(v) {
		case "0", "false", "no", "off":
			cfg.LogRedact = false
		default:
			cfg.LogRedact = true
		}
	}
	if v, ok := lookup("GENERATE_DELAY_MS"); ok {
		ms, err := strconv.Atoi(v)
		if err != nil || ms < 0 {
			return fmt.Errorf("invalid GENERATE_DELAY_MS %q", v)
		}
		cfg.GenerateDelay = time.Duration(ms) * time.Millisecond
	}
	if v, ok := lookup("CACHE_TTL_SECONDS"); ok {
		secs, err := strconv.Atoi(v)
		if err != nil || secs < 0 {
			return fmt.Errorf("invalid CACHE_TTL_SECONDS %q", v)
		}
		cfg.CacheTTL = time.Duration(secs) * time.Second
	}
	return nil
}

func lookup(key string) (string, bool) {
	v, ok := os.LookupEnv(key)
	if !ok {
		return "", false
	}
	v = strings.TrimSpace(v)
	return v, v != ""
}

package config

import (
	"errors"
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/joho/godotenv"
	"gopkg.in/yaml.v3"
)

type AppConfig struct {
	Name string `yaml:"name"`
	Port string `yaml:"port"`
	Env  string `yaml:"env"`
}

type LogConfig struct {
	Level  string `yaml:"level"`
	Pretty bool   `yaml:"pretty"`
}

type BackendConfig struct {
	BaseURL string        `yaml:"base_url"`
	Timeout time.Duration `yaml:"timeout"`
}

type SessionConfig struct {
	// Driver is one of "file", "sqlite" or "postgres".
	Driver     string        `yaml:"driver"`
	Dir        string        `yaml:"dir"`
	SQLitePath string        `yaml:"sqlite_path"`
	Secret     string        `yaml:"secret"`
	CookieName string        `yaml:"cookie_name"`
	CookieTTL  time.Duration `yaml:"cookie_ttl"`
}

type PostgresConfig struct {
	Host            string        `yaml:"host"`
	Port            string        `yaml:"port"`
	User            string        `yaml:"user"`
	Password        string        `yaml:"password"`
	DBName          string        `yaml:"dbname"`
	SSLMode         string        `yaml:"sslmode"`
	MaxConns        int32         `yaml:"max_conns"`
	MinConns        int32         `yaml:"min_conns"`
	MaxConnLifetime time.Duration `yaml:"max_conn_lifetime"`
}

type OrderConfig struct {
	PriceDebounce time.Duration `yaml:"price_debounce"`
}

type NotificationsConfig struct {
	PollInterval time.Duration `yaml:"poll_interval"`
}

// CompanyConfig is printed on generated contracts.
type CompanyConfig struct {
	Name    string `yaml:"name"`
	Address string `yaml:"address"`
	Phone   string `yaml:"phone"`
}

type Config struct {
	App           AppConfig           `yaml:"app"`
	Log           LogConfig           `yaml:"log"`
	Backend       BackendConfig       `yaml:"backend"`
	Session       SessionConfig       `yaml:"session"`
	Postgres      PostgresConfig      `yaml:"postgres"`
	Order         OrderConfig         `yaml:"order"`
	Notifications NotificationsConfig `yaml:"notifications"`
	Company       CompanyConfig       `yaml:"company"`
}

func defaults() *Config {
	cfg := &Config{}
	cfg.App.Name = "admin-console"
	cfg.App.Port = "8080"
	cfg.App.Env = "development"
	cfg.Log.Level = "info"
	cfg.Log.Pretty = true
	cfg.Backend.BaseURL = "http://localhost:9090"
	cfg.Backend.Timeout = 15 * time.Second
	cfg.Session.Driver = "file"
	cfg.Session.Dir = "var/sessions"
	cfg.Session.SQLitePath = "var/sessions.db"
	cfg.Session.Secret = "dev-session-secret-please-change"
	cfg.Session.CookieName = "console_session"
	cfg.Session.CookieTTL = 12 * time.Hour
	cfg.Postgres.Port = "5432"
	cfg.Postgres.SSLMode = "disable"
	cfg.Postgres.MaxConns = 5
	cfg.Postgres.MinConns = 1
	cfg.Postgres.MaxConnLifetime = time.Hour
	cfg.Order.PriceDebounce = 500 * time.Millisecond
	cfg.Notifications.PollInterval = 30 * time.Second
	cfg.Company.Name = "Rental Company"
	return cfg
}

// NewConfig builds the configuration from defaults, an optional YAML file
// (CONFIG_PATH) and environment variables, in that order of precedence.
// A .env file in the working directory is loaded first when present.
func NewConfig() (*Config, error) {
	if err := godotenv.Load(); err != nil && !errors.Is(err, os.ErrNotExist) {
		return nil, fmt.Errorf("failed to load .env: %w", err)
	}

	cfg := defaults()

	if path := os.Getenv("CONFIG_PATH"); path != "" {
		if err := loadFile(path, cfg); err != nil {
			return nil, err
		}
	}

	if err := applyEnv(cfg); err != nil {
		return nil, err
	}

	if err := cfg.Validate(); err != nil {
		return nil, err
	}

	return cfg, nil
}

func loadFile(path string, cfg *Config) error {
	file, err := os.Open(path)
	if err != nil {
		return fmt.Errorf("failed to open config file: %w", err)
	}
	defer file.Close()

	if err := yaml.NewDecoder(file).Decode(cfg); err != nil {
		return fmt.Errorf("invalid config file %s: %w", path, err)
	}
	return nil
}

func applyEnv(cfg *Config) error {
	setString(&cfg.App.Port, "APP_PORT")
	setString(&cfg.App.Env, "APP_ENV")
	setString(&cfg.Log.Level, "LOG_LEVEL")
	setString(&cfg.Backend.BaseURL, "BACKEND_BASE_URL")
	setString(&cfg.Session.Driver, "SESSION_DRIVER")
	setString(&cfg.Session.Dir, "SESSION_DIR")
	setString(&cfg.Session.SQLitePath, "SESSION_SQLITE_PATH")
	setString(&cfg.Session.Secret, "SESSION_SECRET")
	setString(&cfg.Session.CookieName, "SESSION_COOKIE_NAME")
	setString(&cfg.Postgres.Host, "DB_HOST")
	setString(&cfg.Postgres.Port, "DB_PORT")
	setString(&cfg.Postgres.User, "DB_USER")
	setString(&cfg.Postgres.Password, "DB_PASSWORD")
	setString(&cfg.Postgres.DBName, "DB_NAME")
	setString(&cfg.Postgres.SSLMode, "DB_SSLMODE")
	setString(&cfg.Company.Name, "COMPANY_NAME")
	setString(&cfg.Company.Address, "COMPANY_ADDRESS")
	setString(&cfg.Company.Phone, "COMPANY_PHONE")

	if v := os.Getenv("LOG_PRETTY"); v != "" {
		b, err := strconv.ParseBool(v)
		if err != nil {
			return fmt.Errorf("invalid LOG_PRETTY %q: %w", v, err)
		}
		cfg.Log.Pretty = b
	}

	durations := []struct {
		key string
		dst *time.Duration
	}{
		{"BACKEND_TIMEOUT", &cfg.Backend.Timeout},
		{"SESSION_COOKIE_TTL", &cfg.Session.CookieTTL},
		{"ORDER_PRICE_DEBOUNCE", &cfg.Order.PriceDebounce},
		{"NOTIFICATIONS_POLL_INTERVAL", &cfg.Notifications.PollInterval},
		{"DB_MAX_CONN_LIFETIME", &cfg.Postgres.MaxConnLifetime},
	}
	for _, d := range durations {
		v := os.Getenv(d.key)
		if v == "" {
			continue
		}
		parsed, err := time.ParseDuration(v)
		if err != nil {
			return fmt.Errorf("invalid %s %q: %w", d.key, v, err)
		}
		*d.dst = parsed
	}

	return nil
}

func setString(dst *string, key string) {
	if v := os.Getenv(key); v != "" {
		*dst = v
	}
}

func (c *Config) Validate() error {
	if strings.TrimSpace(c.Backend.BaseURL) == "" {
		return errors.New("backend base url is required")
	}
	if c.Backend.Timeout <= 0 {
		return errors.New("backend timeout must be positive")
	}
	if c.Order.PriceDebounce <= 0 {
		return errors.New("order price debounce must be positive")
	}
	if c.Notifications.PollInterval <= 0 {
		return errors.New("notifications poll interval must be positive")
	}
	switch c.Session.Driver {
	case "file", "sqlite":
	case "postgres":
		if c.Postgres.Host == "" || c.Postgres.User == "" || c.Postgres.DBName == "" {
			return errors.New("postgres session driver requires DB_HOST, DB_USER and DB_NAME")
		}
	default:
		return fmt.Errorf("unknown session driver %q", c.Session.Driver)
	}
	if c.Session.Secret == "" {
		return errors.New("session secret is required")
	}
	return nil
}

func (c *Config) IsProduction() bool {
	return c.App.Env == "production"
}

package config

import (
	"errors"
	"fmt"
	"net"
	"net/url"
	"os"
	"strconv"
	"strings"
	"time"

	"genecross/api/internal/cross"
	"genecross/api/internal/rows"
	"genecross/api/internal/store"
)

type Config struct {
	Port string

	TelegramBotToken string
	WebhookURL       string

	CrossServiceURL string
	CrossTimeout    time.Duration
	EditMode        rows.Mode

	HistoryDriver    store.Dialect // empty disables history
	DatabaseURL      string
	SQLitePath       string
	HistoryRetention time.Duration // 0 keeps everything

	ArchiveDriver    string // "", fs, s3, memory
	ArchiveDir       string
	ArchiveBucket    string
	ArchiveRegion    string
	ArchiveEndpoint  string
	ArchivePathStyle bool
	ArchiveAccessKey string
	ArchiveSecretKey string

	LogLevel  string
	LogFormat string
}

func getEnv(k, def string) string {
	if v := strings.TrimSpace(os.Getenv(k)); v != "" {
		return v
	}
	return def
}

// Load reads the environment. Malformed values are reported; missing required
// ones are left to Validate.
func Load() (*Config, error) {
	cfg := &Config{
		Port: getEnv("PORT", "8080"),

		TelegramBotToken: getEnv("TELEGRAM_BOT_TOKEN", ""),
		WebhookURL:       getEnv("WEBHOOK_URL", ""),

		CrossServiceURL: getEnv("CROSS_SERVICE_URL", cross.DefaultURL),

		SQLitePath: getEnv("SQLITE_PATH", "genecross.db"),

		ArchiveDriver:    strings.ToLower(getEnv("ARCHIVE_DRIVER", "")),
		ArchiveDir:       getEnv("ARCHIVE_DIR", "./exports"),
		ArchiveBucket:    getEnv("ARCHIVE_S3_BUCKET", ""),
		ArchiveRegion:    getEnv("ARCHIVE_S3_REGION", ""),
		ArchiveEndpoint:  getEnv("ARCHIVE_S3_ENDPOINT", ""),
		ArchivePathStyle: strings.EqualFold(getEnv("ARCHIVE_S3_PATH_STYLE", ""), "true"),
		ArchiveAccessKey: getEnv("ARCHIVE_S3_ACCESS_KEY", ""),
		ArchiveSecretKey: getEnv("ARCHIVE_S3_SECRET_KEY", ""),

		LogLevel:  getEnv("LOG_LEVEL", "info"),
		LogFormat: getEnv("LOG_FORMAT", "json"),
	}

	mode, err := rows.ParseMode(getEnv("EDIT_MODE", string(rows.ModeStructured)))
	if err != nil {
		return nil, fmt.Errorf("EDIT_MODE: %w", err)
	}
	cfg.EditMode = mode

	if v := getEnv("CROSS_TIMEOUT", ""); v != "" {
		d, err := parseDuration(v)
		if err != nil {
			return nil, fmt.Errorf("CROSS_TIMEOUT: %w", err)
		}
		cfg.CrossTimeout = d
	}

	if v := getEnv("HISTORY_RETENTION", ""); v != "" {
		d, err := parseDuration(v)
		if err != nil {
			return nil, fmt.Errorf("HISTORY_RETENTION: %w", err)
		}
		cfg.HistoryRetention = d
	}

	if v := getEnv("HISTORY_DRIVER", ""); v != "" {
		d, err := store.ParseDialect(v)
		if err != nil {
			return nil, fmt.Errorf("HISTORY_DRIVER: %w", err)
		}
		cfg.HistoryDriver = d
	}
	if cfg.HistoryDriver == store.Postgres {
		cfg.DatabaseURL = resolveDSN()
	}
	return cfg, nil
}

// parseDuration accepts Go durations ("15s", "720h") and plain seconds ("15").
func parseDuration(v string) (time.Duration, error) {
	if n, err := strconv.Atoi(v); err == nil {
		if n < 0 {
			return 0, fmt.Errorf("negative timeout %d", n)
		}
		return time.Duration(n) * time.Second, nil
	}
	d, err := time.ParseDuration(v)
	if err != nil {
		return 0, err
	}
	if d < 0 {
		return 0, fmt.Errorf("negative timeout %s", v)
	}
	return d, nil
}

// Validate checks what the bot needs to start.
func (c *Config) Validate() error {
	var errs []error
	if c.TelegramBotToken == "" {
		errs = append(errs, errors.New("missing required env TELEGRAM_BOT_TOKEN"))
	}
	errs = append(errs, c.ValidateBackends())
	return errors.Join(errs...)
}

// ValidateBackends checks the cross endpoint and the optional history and
// archive settings.
func (c *Config) ValidateBackends() error {
	var errs []error
	if u, err := url.Parse(c.CrossServiceURL); err != nil || u.Scheme == "" || u.Host == "" {
		errs = append(errs, fmt.Errorf("CROSS_SERVICE_URL %q is not an absolute url", c.CrossServiceURL))
	}
	switch c.HistoryDriver {
	case "":
	case store.Postgres:
		if c.DatabaseURL == "" {
			errs = append(errs, errors.New("database DSN is empty: set DATABASE_URL or POSTGRES_* env vars"))
		}
	case store.SQLite:
		if c.SQLitePath == "" {
			errs = append(errs, errors.New("SQLITE_PATH is empty"))
		}
	default:
		errs = append(errs, fmt.Errorf("unknown HISTORY_DRIVER %q", c.HistoryDriver))
	}
	switch c.ArchiveDriver {
	case "", "fs", "memory":
	case "s3":
		if c.ArchiveBucket == "" {
			errs = append(errs, errors.New("ARCHIVE_S3_BUCKET required for s3 archive"))
		}
		if (c.ArchiveAccessKey == "") != (c.ArchiveSecretKey == "") {
			errs = append(errs, errors.New("ARCHIVE_S3_ACCESS_KEY and ARCHIVE_S3_SECRET_KEY must be set together"))
		}
	default:
		errs = append(errs, fmt.Errorf("unknown ARCHIVE_DRIVER %q", c.ArchiveDriver))
	}
	return errors.Join(errs...)
}

// HistoryDSN is the data source for the configured history driver.
func (c *Config) HistoryDSN() string {
	if c.HistoryDriver == store.SQLite {
		return c.SQLitePath
	}
	return c.DatabaseURL
}

func resolveDSN() string {
	if v := getEnv("DATABASE_URL", ""); v != "" {
		return v
	}
	u := &url.URL{
		Scheme:   "postgres",
		User:     url.UserPassword(getEnv("POSTGRES_USER", "genecross"), os.Getenv("POSTGRES_PASSWORD")),
		Host:     net.JoinHostPort(getEnv("PGHOST", "db"), getEnv("PGPORT", "5432")),
		Path:     "/" + getEnv("POSTGRES_DB", "genecross"),
		RawQuery: "sslmode=disable",
	}
	return u.String()
}

// SafeDSNSummary drops the password from a postgres url for logging.
func SafeDSNSummary(dsn string) string {
	u, err := url.Parse(dsn)
	if err != nil || u.Host == "" {
		return "dsn: " + dsn
	}
	host, port := u.Host, ""
	if h, p, err := net.SplitHostPort(u.Host); err == nil {
		host, port = h, p
	}
	db := strings.TrimPrefix(u.Path, "/")
	user := u.User.Username()
	if port == "" {
		return fmt.Sprintf("host=%s db=%s user=%s", host, db, user)
	}
	return fmt.Sprintf("host=%s port=%s db=%s user=%s", host, port, db, user)
}

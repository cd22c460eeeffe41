package config

import (
	"fmt"
	"time"

	"github.com/caarlos0/env/v6"
)

// StorageDriver selects the record repository backend.
type StorageDriver string

const (
	DriverFile   StorageDriver = "file"
	DriverSQLite StorageDriver = "sqlite"
)

// Config is read from the environment by New.
type Config struct {
	TelegramBotToken string `env:"TELEGRAM_BOT_TOKEN,required,notEmpty"`
	AdminUserID      int64  `env:"ADMIN_USER"`

	// Storage
	StorageDriver StorageDriver `env:"STORAGE_DRIVER" envDefault:"file"`
	DataFilePath  string        `env:"DATA_FILE_PATH" envDefault:"data/users.json"`
	SQLitePath    string        `env:"SQLITE_PATH" envDefault:"data/users.db"`

	// Daily notifications
	DailySchedule     string `env:"DAILY_SCHEDULE" envDefault:"0 12 * * *"`
	TZOffsetHours     int    `env:"TZ_OFFSET_HOURS" envDefault:"3"`
	MilestoneImageURL string `env:"MILESTONE_IMAGE_URL" envDefault:"https://i.imgur.com/0Z8FQkM.png"`

	// Ops endpoint, disabled when empty
	MetricsAddr string `env:"METRICS_ADDR"`
}

// New parses the process environment. A missing bot token is an error.
func New() (*Config, error) {
	cfg := &Config{}
	if err := env.Parse(cfg); err != nil {
		return nil, fmt.Errorf("failed to parse config: %w", err)
	}
	if cfg.TZOffsetHours < -12 || cfg.TZOffsetHours > 14 {
		return nil, fmt.Errorf("TZ_OFFSET_HOURS out of range: %d", cfg.TZOffsetHours)
	}
	switch cfg.StorageDriver {
	case DriverFile, DriverSQLite:
	default:
		return nil, fmt.Errorf("unknown STORAGE_DRIVER %q", cfg.StorageDriver)
	}
	return cfg, nil
}

// Location is the fixed zone the daily schedule is evaluated in.
func (c *Config) Location() *time.Location {
	return time.FixedZone(fmt.Sprintf("UTC%+d", c.TZOffsetHours), c.TZOffsetHours*3600)
}

package config

import (
	"bytes"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"os"
	"strings"
	"time"

	"github.com/joho/godotenv"
)

var (
	ErrMissingToken   = errors.New("telegram token is empty (set BOT_TOKEN)")
	ErrMissingChannel = errors.New("telegram channel is empty (set CHANNEL_ID)")
)

// Env variable names understood by ApplyEnv.
const (
	EnvBotToken       = "BOT_TOKEN"
	EnvChannelID      = "CHANNEL_ID"
	EnvChannelName    = "CHANNEL_NAME"
	EnvAPIURL         = "TELEGRAM_API_URL"
	EnvPostType       = "POST_TYPE"
	EnvPostNumber     = "POST_NUMBER"
	EnvPostsFile      = "POSTS_FILE"
	EnvPublicationLog = "PUBLICATION_LOG"
	EnvStorageDriver  = "STORAGE_DRIVER"
	EnvLogLevel       = "LOG_LEVEL"
	EnvLogChat        = "LOG_CHAT_ID"
	EnvSchedule       = "SCHEDULE"
	EnvTimezone       = "SCHEDULE_TIMEZONE"
)

// Load builds a Config from defaults, the optional config file at path and
// the environment (getenv; nil means os.Getenv).
func Load(path string, getenv func(string) string) (Config, error) {
	cfg := Default()
	if strings.TrimSpace(path) != "" {
		if err := parseFile(path, &cfg); err != nil {
			return Config{}, fmt.Errorf("config %s: %w", path, err)
		}
	}
	if getenv == nil {
		getenv = os.Getenv
	}
	ApplyEnv(&cfg, getenv)
	return cfg, nil
}

// LoadDotEnv loads KEY=VALUE pairs from the given files into the process
// environment without overriding variables that are already set. A missing
// default ".env" is not an error; explicitly named files must exist.
func LoadDotEnv(files ...string) error {
	if len(files) == 0 {
		if _, err := os.Stat(".env"); err != nil {
			return nil
		}
		return godotenv.Load()
	}
	return godotenv.Load(files...)
}

func parseFile(path string, cfg *Config) error {
	b, err := os.ReadFile(path)
	if err != nil {
		return err
	}
	jb, _, err := CoerceToJSON(path, b)
	if err != nil {
		return err
	}

	dec := json.NewDecoder(bytes.NewReader(jb))
	dec.DisallowUnknownFields()
	if err := dec.Decode(cfg); err != nil {
		return err
	}
	// reject trailing tokens (e.g. concatenated JSON)
	if err := dec.Decode(&struct{}{}); err != io.EOF {
		if err == nil {
			return fmt.Errorf("invalid config: trailing data")
		}
		return err
	}
	return nil
}

// ApplyEnv overlays non-empty environment variables onto cfg.
func ApplyEnv(cfg *Config, getenv func(string) string) {
	set := func(dst *string, key string) {
		if v := strings.TrimSpace(getenv(key)); v != "" {
			*dst = v
		}
	}
	set(&cfg.Telegram.Token, EnvBotToken)
	set(&cfg.Telegram.ChannelID, EnvChannelID)
	set(&cfg.Telegram.ChannelName, EnvChannelName)
	set(&cfg.Telegram.APIURL, EnvAPIURL)
	set(&cfg.Posts.Type, EnvPostType)
	set(&cfg.Posts.Number, EnvPostNumber)
	set(&cfg.Posts.File, EnvPostsFile)
	set(&cfg.Storage.Path, EnvPublicationLog)
	set(&cfg.Storage.Driver, EnvStorageDriver)
	set(&cfg.Logging.Level, EnvLogLevel)
	set(&cfg.Schedule.Spec, EnvSchedule)
	set(&cfg.Schedule.Timezone, EnvTimezone)
	if v := strings.TrimSpace(getenv(EnvLogChat)); v != "" {
		cfg.Logging.Telegram.Chat = v
		cfg.Logging.Telegram.Enabled = true
	}
}

// Validate checks settings shared by every command.
func (c Config) Validate() error {
	if strings.TrimSpace(c.Posts.File) == "" {
		return fmt.Errorf("posts.file is required")
	}
	switch strings.ToLower(strings.TrimSpace(c.Storage.Driver)) {
	case "", "none", "file", "json", "sqlite", "sqlite3", "postgres", "postgresql":
	default:
		return fmt.Errorf("storage.driver: unknown driver %q", c.Storage.Driver)
	}
	if _, err := c.BusyTimeout(); err != nil {
		return err
	}
	if _, err := Duration("telegram.send_timeout", c.Telegram.SendTimeout, 0); err != nil {
		return err
	}
	if c.Logging.Telegram.RatePerSec < 0 {
		return fmt.Errorf("logging.telegram.rate_per_sec must be >= 0")
	}
	if tz := strings.TrimSpace(c.Schedule.Timezone); tz != "" {
		if _, err := time.LoadLocation(tz); err != nil {
			return fmt.Errorf("schedule.timezone: invalid %q: %w", tz, err)
		}
	}
	return nil
}

// ValidatePublish additionally requires the credentials needed to send.
func (c Config) ValidatePublish() error {
	if err := c.Validate(); err != nil {
		return err
	}
	if strings.TrimSpace(c.Telegram.Token) == "" {
		return ErrMissingToken
	}
	if strings.TrimSpace(c.Telegram.ChannelID) == "" {
		return ErrMissingChannel
	}
	return nil
}

// Location returns the schedule timezone (local time if unset or invalid).
func (c Config) Location() *time.Location {
	tz := strings.TrimSpace(c.Schedule.Timezone)
	if tz == "" {
		return time.Local
	}
	loc, err := time.LoadLocation(tz)
	if err != nil {
		return time.Local
	}
	return loc
}

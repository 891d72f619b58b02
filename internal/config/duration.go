package config

import (
	"fmt"
	"strings"
	"time"
)

// Duration parses the duration setting named field. Empty and zero values
// yield def; negative values are rejected.
func Duration(field, raw string, def time.Duration) (time.Duration, error) {
	s := strings.TrimSpace(raw)
	if s == "" {
		return def, nil
	}
	d, err := time.ParseDuration(s)
	if err != nil {
		return 0, fmt.Errorf("%s: invalid duration %q: %w", field, raw, err)
	}
	switch {
	case d < 0:
		return 0, fmt.Errorf("%s: duration must be >= 0, got %s", field, d)
	case d == 0:
		return def, nil
	}
	return d, nil
}

// SendTimeout bounds one Bot API send (default 30s).
func (c Config) SendTimeout() time.Duration {
	d, err := Duration("telegram.send_timeout", c.Telegram.SendTimeout, 30*time.Second)
	if err != nil {
		return 30 * time.Second
	}
	return d
}

// BusyTimeout is how long sqlite waits on a locked database (default 1s).
func (c Config) BusyTimeout() (time.Duration, error) {
	return Duration("storage.busy_timeout", c.Storage.BusyTimeout, time.Second)
}

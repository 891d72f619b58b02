package logx

import (
	"errors"
	"fmt"
	"io"
	"os"
	"strings"
	"time"

	"github.com/rs/zerolog"

	"channelposter/internal/transport"
)

type Config struct {
	Level    string
	Console  bool
	File     FileConfig
	Telegram TelegramConfig
}

type FileConfig struct {
	Enabled bool
	// Path defaults to ./poster.log.
	Path string
}

// TelegramConfig routes log lines at or above MinLevel to an operator chat.
type TelegramConfig struct {
	Enabled    bool
	Chat       string
	MinLevel   string
	RatePerSec int
}

// drainTimeout bounds how long Close waits for queued Telegram lines.
const drainTimeout = 5 * time.Second

// Service owns the sinks behind the loggers it hands out.
type Service struct {
	file *os.File
	tg   *telegramSink
}

// New opens the configured sinks and returns the service plus its root
// logger. sender may be nil when the Telegram sink is disabled. Sink setup
// problems are reported on stderr and never fail startup.
func New(cfg Config, sender transport.Sender) (*Service, Logger) {
	s := &Service{}
	var writers []io.Writer

	if cfg.Console {
		writers = append(writers, consoleWriter(os.Stderr))
	}
	if cfg.File.Enabled {
		path := strings.TrimSpace(cfg.File.Path)
		if path == "" {
			path = "./poster.log"
		}
		f, err := os.OpenFile(path, os.O_CREATE|os.O_APPEND|os.O_WRONLY, 0o644)
		if err != nil {
			fmt.Fprintf(os.Stderr, "logx: open log file %q: %v\n", path, err)
		} else {
			s.file = f
			writers = append(writers, zerolog.SyncWriter(f))
		}
	}
	if cfg.Telegram.Enabled {
		chat := strings.TrimSpace(cfg.Telegram.Chat)
		switch {
		case chat == "":
			fmt.Fprintln(os.Stderr, "logx: telegram logging enabled but no log chat is set")
		case sender == nil:
			fmt.Fprintln(os.Stderr, "logx: telegram logging needs a bot; sink disabled")
		default:
			s.tg = newTelegramSink(sender, chat, parseLevel(cfg.Telegram.MinLevel, zerolog.WarnLevel), cfg.Telegram.RatePerSec)
			writers = append(writers, s.tg)
		}
	}
	if len(writers) == 0 {
		writers = append(writers, consoleWriter(os.Stderr))
	}

	return s, build(zerolog.New(zerolog.MultiLevelWriter(writers...)), cfg.Level)
}

// Close drains the Telegram queue (bounded by drainTimeout) and closes the
// log file. Lines logged afterwards are dropped by the Telegram sink.
func (s *Service) Close() error {
	var err error
	if s.tg != nil {
		err = s.tg.close(drainTimeout)
	}
	if s.file != nil {
		err = errors.Join(err, s.file.Close())
		s.file = nil
	}
	return err
}

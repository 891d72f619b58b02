package app

import (
	"strings"

	"channelposter/internal/config"
	"channelposter/internal/storage"
	logx "channelposter/pkg/logx"
)

// mapStorageConfig turns config strings into a storage.Config.
// It reports enabled=false for the "none" driver.
func mapStorageConfig(cfg config.Config) (storage.Config, bool, error) {
	sc := cfg.Storage
	driver := strings.ToLower(strings.TrimSpace(sc.Driver))
	if driver == "none" {
		return storage.Config{}, false, nil
	}
	if driver == "" || driver == "json" {
		driver = "file"
	}
	busy, err := cfg.BusyTimeout()
	if err != nil {
		return storage.Config{}, false, err
	}
	return storage.Config{Driver: driver, Path: strings.TrimSpace(sc.Path), BusyTimeout: busy}, true, nil
}

func mapLogConfig(cfg config.Config) logx.Config {
	return logx.Config{
		Level:   cfg.Logging.Level,
		Console: cfg.Logging.Console,
		File: logx.FileConfig{
			Enabled: cfg.Logging.File.Enabled,
			Path:    cfg.Logging.File.Path,
		},
		Telegram: logx.TelegramConfig{
			Enabled:    cfg.Logging.Telegram.Enabled,
			Chat:       cfg.Logging.Telegram.Chat,
			MinLevel:   cfg.Logging.Telegram.MinLevel,
			RatePerSec: cfg.Logging.Telegram.RatePerSec,
		},
	}
}

package config

// Config is the poster's runtime configuration. It is built once at startup
// (defaults, then the optional config file, then environment, then flags) and
// passed by value into the pipeline.
type Config struct {
	Telegram TelegramConfig `json:"telegram"`
	Posts    PostsConfig    `json:"posts"`
	Storage  StorageConfig  `json:"storage"`
	Logging  LoggingConfig  `json:"logging"`
	Schedule ScheduleConfig `json:"schedule"`
}

type TelegramConfig struct {
	Token string `json:"token"`
	// ChannelID is where posts go: a numeric chat id or "@username".
	ChannelID string `json:"channel_id"`
	// ChannelName is the fixed identifier written to the publication log.
	ChannelName string `json:"channel_name"`
	// APIURL overrides the Bot API endpoint (default https://api.telegram.org).
	APIURL string `json:"api_url,omitempty"`
	// SendTimeout is a Go duration string (e.g. "30s").
	SendTimeout string `json:"send_timeout,omitempty"`
}

// PostsConfig selects the catalog and the post to publish.
//
// Number is kept raw: non-numeric or out-of-range values fall back to
// type/random selection instead of failing.
type PostsConfig struct {
	File   string `json:"file"`
	Type   string `json:"type"`
	Number string `json:"number,omitempty"`
}

// StorageConfig controls where publication log entries go.
//
// Example:
//
//	"storage": { "driver": "sqlite", "path": "./poster.db" }
type StorageConfig struct {
	Driver      string `json:"driver"`
	Path        string `json:"path"`
	BusyTimeout string `json:"busy_timeout,omitempty"` // Go duration string (sqlite)
}

type LoggingConfig struct {
	Level    string          `json:"level"`
	Console  bool            `json:"console"`
	File     LoggingFile     `json:"file"`
	Telegram LoggingTelegram `json:"telegram"`
}

type LoggingFile struct {
	Enabled bool   `json:"enabled"`
	Path    string `json:"path"`
}

type LoggingTelegram struct {
	Enabled    bool   `json:"enabled"`
	Chat       string `json:"chat"`
	MinLevel   string `json:"min_level"`
	RatePerSec int    `json:"rate_per_sec"`
}

// ScheduleConfig drives `poster run`.
//
// Spec accepts cron ("0 9 * * *", "@daily"), a Go duration ("6h") or HH:MM
// ("02:30" = every 2h30m).
type ScheduleConfig struct {
	Spec         string `json:"spec"`
	Timezone     string `json:"timezone,omitempty"`
	WatchCatalog bool   `json:"watch_catalog"`
}

const (
	DefaultPostsFile   = "posts/preset_posts.json"
	DefaultPostType    = "regular"
	DefaultLogFile     = "publication_log.json"
	DefaultChannelName = "@CiBLofficial"
	DefaultSendTimeout = "30s"
)

// Default returns the baseline configuration.
func Default() Config {
	return Config{
		Telegram: TelegramConfig{
			ChannelName: DefaultChannelName,
			SendTimeout: DefaultSendTimeout,
		},
		Posts: PostsConfig{
			File: DefaultPostsFile,
			Type: DefaultPostType,
		},
		Storage: StorageConfig{
			Driver: "file",
			Path:   DefaultLogFile,
		},
		Logging: LoggingConfig{
			Level:   "info",
			Console: true,
			Telegram: LoggingTelegram{
				MinLevel:   "error",
				RatePerSec: 1,
			},
		},
		Schedule: ScheduleConfig{
			WatchCatalog: true,
		},
	}
}

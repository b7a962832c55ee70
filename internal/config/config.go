package config

import (
	"time"

	"github.com/kelseyhightower/envconfig"
)

// Config holds application configuration loaded from environment variables.
type Config struct {
	BotToken      string        `envconfig:"BOT_TOKEN" required:"true"`
	DataPath      string        `envconfig:"DATA_PATH" default:"./data/rvm.csv"`
	DBPath        string        `envconfig:"DB_PATH" default:"./data/rvmbot.db"`
	DefaultTZ     string        `envconfig:"DEFAULT_TZ" default:"Asia/Singapore"`
	LogLevel      string        `envconfig:"LOG_LEVEL" default:"info"` // debug|info|warn|error
	LogFile       string        `envconfig:"LOG_FILE"`                 // empty: stderr only
	HTTPAddr      string        `envconfig:"HTTP_ADDR" default:":8080"`
	SchedInterval time.Duration `envconfig:"SCHED_INTERVAL" default:"1m"` // reminder scan period
}

// Load reads environment variables into Config.
func Load() (Config, error) {
	var cfg Config
	if err := envconfig.Process("", &cfg); err != nil {
		return cfg, err
	}
	return cfg, nil
}

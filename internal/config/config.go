package config

import (
	"os"
	"time"

	"gopkg.in/yaml.v3"
)

type Config struct {
	Server struct {
		Port string `yaml:"port"`
	} `yaml:"server"`
	Redis struct {
		Addr     string `yaml:"addr"`
		Password string `yaml:"password"`
		DB       int    `yaml:"db"`
		TTL      string `yaml:"ttl"`
	} `yaml:"redis"`
	Postgres struct {
		URL string `yaml:"url"`
	} `yaml:"postgres"`
	Quiz struct {
		TTL string `yaml:"ttl"`
		// QuestionTime is the per-question countdown in seconds.
		QuestionTime int `yaml:"question_time"`
		// Shuffle randomizes question and option order per attempt.
		Shuffle *bool `yaml:"shuffle"`
	} `yaml:"quiz"`
	Telegram struct {
		BotToken  string `yaml:"bot_token"`
		MaxAge    string `yaml:"max_age"`
		DevUserID int64  `yaml:"dev_user_id"`
	} `yaml:"telegram"`
	RateLimit struct {
		// SubmitPerMinute caps result submissions per user.
		SubmitPerMinute int `yaml:"submit_per_minute"`
		Burst           int `yaml:"burst"`
	} `yaml:"rate_limit"`
	Client struct {
		APIURL string `yaml:"api_url"`
	} `yaml:"client"`
	Log Log `yaml:"log"`
}

type Log struct {
	Level      string `yaml:"level"`
	File       string `yaml:"file"`
	MaxSizeMB  int    `yaml:"max_size_mb"`
	MaxBackups int    `yaml:"max_backups"`
	MaxAgeDays int    `yaml:"max_age_days"`
}

// Load reads YAML config from path and applies environment overrides.
// A missing file yields the defaults.
func Load(path string) (Config, error) {
	cfg := Config{}
	data, err := os.ReadFile(path)
	if err != nil && !os.IsNotExist(err) {
		return cfg, err
	}
	if len(data) > 0 {
		if err := yaml.Unmarshal(data, &cfg); err != nil {
			return cfg, err
		}
	}
	cfg.applyEnv()
	return cfg, nil
}

func (c *Config) applyEnv() {
	if v := os.Getenv("TELEGRAM_BOT_TOKEN"); v != "" {
		c.Telegram.BotToken = v
	}
	if v := os.Getenv("QUIZ_API_URL"); v != "" {
		c.Client.APIURL = v
	}
	if v := os.Getenv("DATABASE_URL"); v != "" {
		c.Postgres.URL = v
	}
	if v := os.Getenv("REDIS_ADDR"); v != "" {
		c.Redis.Addr = v
	}
}

// QuestionTime is the per-question budget, 30 seconds unless configured.
func (c Config) QuestionTime() int {
	if c.Quiz.QuestionTime <= 0 {
		return 30
	}
	return c.Quiz.QuestionTime
}

// ShuffleEnabled defaults to true.
func (c Config) ShuffleEnabled() bool {
	return c.Quiz.Shuffle == nil || *c.Quiz.Shuffle
}

// DevUserID is the identity used without a bot token.
func (c Config) DevUserID() int64 {
	if c.Telegram.DevUserID == 0 {
		return 12345
	}
	return c.Telegram.DevUserID
}

// TTLDuration parses a duration string or returns the fallback if empty.
func TTLDuration(raw string, fallback time.Duration) time.Duration {
	if raw == "" {
		return fallback
	}
	if d, err := time.ParseDuration(raw); err == nil {
		return d
	}
	return fallback
}

package config

import (
	"errors"
	"fmt"
	"io/fs"
	"os"
	"time"

	"daily-riddle-bot/internal/domain"
	"github.com/go-playground/validator/v10"
	"github.com/joho/godotenv"
	"gopkg.in/yaml.v3"
)

type Config struct {
	Server struct {
		Port            string `yaml:"port"`
		ShutdownTimeout string `yaml:"shutdown_timeout"`
	} `yaml:"server"`
	Discord struct {
		Token          string `yaml:"token" validate:"required"`
		GuildID        string `yaml:"guild_id"`
		ChannelID      string `yaml:"channel_id" validate:"required"`
		AdminChannelID string `yaml:"admin_channel_id"`
		// MessagesPerSecond limits outbound sends.
		MessagesPerSecond float64 `yaml:"messages_per_second"`
	} `yaml:"discord"`
	Schedule struct {
		PostAt    string `yaml:"post_at"`
		RevealAt  string `yaml:"reveal_at"`
		StartDate string `yaml:"start_date"`
		Policy    string `yaml:"policy" validate:"omitempty,oneof=day_index random"`
	} `yaml:"schedule"`
	Storage struct {
		Driver           string `yaml:"driver" validate:"omitempty,oneof=json memory redis postgres"`
		QuestionsFile    string `yaml:"questions_file"`
		ScoresFile       string `yaml:"scores_file"`
		RejectDuplicates *bool  `yaml:"reject_duplicates"`
	} `yaml:"storage"`
	Redis struct {
		Addr     string `yaml:"addr"`
		Password string `yaml:"password"`
		DB       int    `yaml:"db"`
		Prefix   string `yaml:"prefix"`
	} `yaml:"redis"`
	Postgres struct {
		URL string `yaml:"url"`
	} `yaml:"postgres"`
	Log struct {
		Level      string `yaml:"level"`
		Path       string `yaml:"path"`
		MaxSizeMB  int    `yaml:"max_size_mb"`
		MaxBackups int    `yaml:"max_backups"`
		MaxAgeDays int    `yaml:"max_age_days"`
		Compress   bool   `yaml:"compress"`
	} `yaml:"log"`
}

// Load reads YAML config from path, then .env, then environment overrides.
// A missing config file is not an error; everything can come from the environment.
func Load(path string) (Config, error) {
	cfg := Config{}
	data, err := os.ReadFile(path)
	switch {
	case errors.Is(err, fs.ErrNotExist):
	case err != nil:
		return cfg, err
	default:
		if err := yaml.Unmarshal(data, &cfg); err != nil {
			return cfg, err
		}
	}

	// .env is optional
	_ = godotenv.Load()
	applyEnv(&cfg)
	applyDefaults(&cfg)

	if err := validator.New().Struct(cfg.Schedule); err != nil {
		return cfg, fmt.Errorf("schedule config: %w", err)
	}
	if err := validator.New().Struct(cfg.Storage); err != nil {
		return cfg, fmt.Errorf("storage config: %w", err)
	}
	return cfg, nil
}

// ValidateDiscord checks the settings required to connect to the gateway.
func (c Config) ValidateDiscord() error {
	if err := validator.New().Struct(c.Discord); err != nil {
		return fmt.Errorf("discord config: %w", err)
	}
	return nil
}

func applyEnv(cfg *Config) {
	override(&cfg.Discord.Token, "DISCORD_BOT_TOKEN")
	override(&cfg.Discord.ChannelID, "DISCORD_CHANNEL_ID")
	override(&cfg.Discord.AdminChannelID, "DISCORD_ADMIN_CHANNEL_ID")
	override(&cfg.Discord.GuildID, "DISCORD_GUILD_ID")
	override(&cfg.Schedule.StartDate, "QUEUE_START_DATE")
	override(&cfg.Server.Port, "PORT")
	override(&cfg.Postgres.URL, "DATABASE_URL")
	override(&cfg.Redis.Addr, "REDIS_ADDR")
}

func override(dst *string, key string) {
	if v, ok := os.LookupEnv(key); ok && v != "" {
		*dst = v
	}
}

func applyDefaults(cfg *Config) {
	if cfg.Schedule.PostAt == "" {
		cfg.Schedule.PostAt = "00:00"
	}
	if cfg.Schedule.RevealAt == "" {
		cfg.Schedule.RevealAt = "23:00"
	}
	if cfg.Schedule.Policy == "" {
		cfg.Schedule.Policy = "day_index"
	}
	if cfg.Storage.Driver == "" {
		cfg.Storage.Driver = "json"
	}
	if cfg.Storage.QuestionsFile == "" {
		cfg.Storage.QuestionsFile = "submitted_questions.json"
	}
	if cfg.Storage.ScoresFile == "" {
		cfg.Storage.ScoresFile = "scores.json"
	}
	if cfg.Discord.AdminChannelID == "" {
		cfg.Discord.AdminChannelID = cfg.Discord.ChannelID
	}
}

// RejectDuplicates defaults to true.
func (c Config) RejectDuplicates() bool {
	if c.Storage.RejectDuplicates == nil {
		return true
	}
	return *c.Storage.RejectDuplicates
}

// StartDate parses the queue anchor. The day-index policy needs a fixed anchor
// so the same date selects the same question across restarts.
func (c Config) StartDate() (domain.Date, error) {
	if c.Schedule.StartDate == "" {
		if c.Schedule.Policy == "random" {
			return domain.Date{}, nil
		}
		return domain.Date{}, errors.New("schedule config: start_date is required for the day_index policy")
	}
	d, err := domain.ParseDate(c.Schedule.StartDate)
	if err != nil {
		return domain.Date{}, fmt.Errorf("start_date: %w", err)
	}
	return d, nil
}

// Times parses the daily post and reveal times.
func (c Config) Times() (post, reveal domain.TimeOfDay, err error) {
	if post, err = domain.ParseTimeOfDay(c.Schedule.PostAt); err != nil {
		return
	}
	reveal, err = domain.ParseTimeOfDay(c.Schedule.RevealAt)
	return
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

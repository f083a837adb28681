package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"daily-riddle-bot/internal/domain"
)

func TestLoadAppliesEnvOverridesAndDefaults(t *testing.T) {
	path := filepath.Join(t.TempDir(), "config.yaml")
	body := []byte(`
discord:
  token: from-file
  channel_id: "111"
schedule:
  start_date: "2025-01-01"
storage:
  driver: memory
`)
	if err := os.WriteFile(path, body, 0o644); err != nil {
		t.Fatalf("write config: %v", err)
	}
	t.Setenv("DISCORD_BOT_TOKEN", "from-env")

	cfg, err := Load(path)
	if err != nil {
		t.Fatalf("load: %v", err)
	}
	if cfg.Discord.Token != "from-env" {
		t.Fatalf("expected env token, got %q", cfg.Discord.Token)
	}
	if cfg.Discord.AdminChannelID != "111" {
		t.Fatalf("expected admin channel to default to channel, got %q", cfg.Discord.AdminChannelID)
	}
	if cfg.Schedule.RevealAt != "23:00" || cfg.Schedule.Policy != "day_index" {
		t.Fatalf("unexpected schedule defaults: %+v", cfg.Schedule)
	}
	if !cfg.RejectDuplicates() {
		t.Fatalf("expected duplicate rejection on by default")
	}
	if err := cfg.ValidateDiscord(); err != nil {
		t.Fatalf("validate discord: %v", err)
	}

	start, err := cfg.StartDate()
	if err != nil {
		t.Fatalf("start date: %v", err)
	}
	if start != (domain.Date{Year: 2025, Month: time.January, Day: 1}) {
		t.Fatalf("unexpected start date %v", start)
	}
}

func TestLoadRejectsUnknownDriver(t *testing.T) {
	path := filepath.Join(t.TempDir(), "config.yaml")
	if err := os.WriteFile(path, []byte("storage:\n  driver: sqlite\n"), 0o644); err != nil {
		t.Fatalf("write config: %v", err)
	}
	if _, err := Load(path); err == nil {
		t.Fatalf("expected validation error for unknown driver")
	}
}

func TestValidateDiscordRequiresToken(t *testing.T) {
	t.Setenv("DISCORD_BOT_TOKEN", "")
	cfg, err := Load(filepath.Join(t.TempDir(), "missing.yaml"))
	if err != nil {
		t.Fatalf("load without file: %v", err)
	}
	if err := cfg.ValidateDiscord(); err == nil {
		t.Fatalf("expected missing token to fail validation")
	}
}

func TestStartDateRequiredForDayIndex(t *testing.T) {
	var cfg Config
	cfg.Schedule.Policy = "day_index"
	if _, err := cfg.StartDate(); err == nil {
		t.Fatalf("expected missing start_date to fail for day_index")
	}

	cfg.Schedule.StartDate = "2025-01-01"
	first, err := cfg.StartDate()
	if err != nil {
		t.Fatalf("start date: %v", err)
	}
	again, err := cfg.StartDate()
	if err != nil || again != first {
		t.Fatalf("expected a stable anchor, got %v then %v (%v)", first, again, err)
	}

	cfg.Schedule.StartDate = "01/01/2025"
	if _, err := cfg.StartDate(); err == nil {
		t.Fatalf("expected malformed start_date to fail")
	}

	cfg.Schedule.Policy = "random"
	cfg.Schedule.StartDate = ""
	if _, err := cfg.StartDate(); err != nil {
		t.Fatalf("random policy does not need an anchor: %v", err)
	}
}

func TestTTLDuration(t *testing.T) {
	if got := TTLDuration("", time.Second); got != time.Second {
		t.Fatalf("expected fallback, got %v", got)
	}
	if got := TTLDuration("2m", time.Second); got != 2*time.Minute {
		t.Fatalf("expected 2m, got %v", got)
	}
	if got := TTLDuration("nope", time.Second); got != time.Second {
		t.Fatalf("expected fallback on bad input, got %v", got)
	}
}

package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"
)

func TestLoad(t *testing.T) {
	raw := `
telegram:
  token: abc123
source:
  path: bank.xlsx
  cache_ttl: 5m
sqlite:
  path: scores.db
quiz:
  max_questions: 10
  answer_delay: 2s
  leaderboard_size: 5
`
	path := filepath.Join(t.TempDir(), "config.yaml")
	if err := os.WriteFile(path, []byte(raw), 0o600); err != nil {
		t.Fatalf("write config: %v", err)
	}

	cfg, err := Load(path)
	if err != nil {
		t.Fatalf("load: %v", err)
	}
	if cfg.Telegram.Token != "abc123" {
		t.Fatalf("token not loaded: %q", cfg.Telegram.Token)
	}
	if cfg.Source.Path != "bank.xlsx" {
		t.Fatalf("source path not loaded: %q", cfg.Source.Path)
	}
	if cfg.Quiz.MaxQuestions != 10 || cfg.Quiz.LeaderboardSize != 5 {
		t.Fatalf("quiz section not loaded: %+v", cfg.Quiz)
	}
	if d := Duration(cfg.Quiz.AnswerDelay, time.Second); d != 2*time.Second {
		t.Fatalf("answer delay not parsed: %v", d)
	}
}

func TestDurationFallback(t *testing.T) {
	if d := Duration("", time.Minute); d != time.Minute {
		t.Fatalf("empty must fall back, got %v", d)
	}
	if d := Duration("not-a-duration", time.Minute); d != time.Minute {
		t.Fatalf("invalid must fall back, got %v", d)
	}
	if d := Duration("1500ms", time.Minute); d != 1500*time.Millisecond {
		t.Fatalf("valid must parse, got %v", d)
	}
}

package config

import (
	"testing"
	"time"
)

func TestLoadDefaults(t *testing.T) {
	t.Setenv("TWITCH_CHANNELS", "")
	t.Setenv("CHAT_BATCH_SIZE", "")
	t.Setenv("CHAT_FLUSH_INTERVAL", "")
	cfg, err := Load()
	if err != nil {
		t.Fatalf("Load() error: %v", err)
	}
	if cfg.DBDsn == "" {
		t.Errorf("expected default DB DSN, got empty")
	}
	if cfg.ChainOrder != 2 {
		t.Errorf("ChainOrder = %d, want 2", cfg.ChainOrder)
	}
	if cfg.SampleCount != 4 {
		t.Errorf("SampleCount = %d, want 4", cfg.SampleCount)
	}
	if cfg.BatchSize != 256 || cfg.FlushInterval != 10*time.Second {
		t.Errorf("batching defaults = %d/%v, want 256/10s", cfg.BatchSize, cfg.FlushInterval)
	}
}

func TestLoadChannelList(t *testing.T) {
	t.Setenv("TWITCH_CHANNELS", "Foo, bar ,,BAZ")
	cfg, err := Load()
	if err != nil {
		t.Fatalf("Load() error: %v", err)
	}
	want := []string{"foo", "bar", "baz"}
	if len(cfg.TwitchChannels) != len(want) {
		t.Fatalf("TwitchChannels = %v, want %v", cfg.TwitchChannels, want)
	}
	for i := range want {
		if cfg.TwitchChannels[i] != want[i] {
			t.Errorf("channel %d = %q, want %q", i, cfg.TwitchChannels[i], want[i])
		}
	}
}

func TestLoadRejectsBadFlushInterval(t *testing.T) {
	t.Setenv("CHAT_FLUSH_INTERVAL", "soon")
	if _, err := Load(); err == nil {
		t.Errorf("expected error for unparseable CHAT_FLUSH_INTERVAL")
	}
}

func TestValidateChatReady(t *testing.T) {
	t.Setenv("TWITCH_CHANNELS", "chan")
	t.Setenv("TWITCH_BOT_USERNAME", "bot")
	t.Setenv("TWITCH_OAUTH_TOKEN", "oauth:token")
	cfg, _ := Load()
	if err := cfg.ValidateChatReady(); err != nil {
		t.Errorf("expected valid chat config, got %v", err)
	}
	t.Setenv("TWITCH_OAUTH_TOKEN", "")
	cfg, _ = Load()
	if err := cfg.ValidateChatReady(); err == nil {
		t.Errorf("expected error when missing twitch envs")
	}
}

func TestValidateCollectorReady(t *testing.T) {
	t.Setenv("TWITCH_CHANNELS", "")
	cfg, _ := Load()
	if err := cfg.ValidateCollectorReady(); err == nil {
		t.Errorf("expected error with no channels configured")
	}
	t.Setenv("TWITCH_CHANNELS", "chan")
	cfg, _ = Load()
	if err := cfg.ValidateCollectorReady(); err != nil {
		t.Errorf("expected collector-ready config, got %v", err)
	}
}

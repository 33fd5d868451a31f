package config

import (
	"testing"
	"time"
)

func TestLoadDefaults(t *testing.T) {
	cfg, err := Load()
	if err != nil {
		t.Fatalf("Load() error = %v", err)
	}

	if cfg.Service.Name != "tgsync" {
		t.Errorf("service name = %q", cfg.Service.Name)
	}
	if cfg.Postgres.DSN() == "" {
		t.Error("empty postgres DSN")
	}
	if cfg.Redis.Addr() != "localhost:6379" {
		t.Errorf("redis addr = %q", cfg.Redis.Addr())
	}
	if cfg.Telegram.CodeTimeout != 60*time.Second {
		t.Errorf("code timeout = %v, want 60s", cfg.Telegram.CodeTimeout)
	}
	if cfg.Sync.MessageSyncCron != "*/5 * * * *" {
		t.Errorf("cron = %q", cfg.Sync.MessageSyncCron)
	}
	if cfg.Kafka.AlarmTopic != "ops.alarms" {
		t.Errorf("alarm topic = %q", cfg.Kafka.AlarmTopic)
	}
}

func TestLoadOverrides(t *testing.T) {
	t.Setenv("LOGIN_CODE_TIMEOUT", "90s")
	t.Setenv("REDIS_DB", "3")
	t.Setenv("KAFKA_BROKERS", "k1:9092,k2:9092")
	t.Setenv("MESSAGE_SYNC_ON_START", "true")

	cfg, err := Load()
	if err != nil {
		t.Fatalf("Load() error = %v", err)
	}

	if cfg.Telegram.CodeTimeout != 90*time.Second {
		t.Errorf("code timeout = %v, want 90s", cfg.Telegram.CodeTimeout)
	}
	if cfg.Redis.DB != 3 {
		t.Errorf("redis db = %d, want 3", cfg.Redis.DB)
	}
	if len(cfg.Kafka.Brokers) != 2 {
		t.Errorf("brokers = %v", cfg.Kafka.Brokers)
	}
	if !cfg.Sync.MessageSyncOnStart {
		t.Error("MESSAGE_SYNC_ON_START not parsed")
	}
}

func TestLoadInvalidValues(t *testing.T) {
	tests := []struct {
		name  string
		key   string
		value string
	}{
		{"bad redis db", "REDIS_DB", "not-a-number"},
		{"bad code timeout", "LOGIN_CODE_TIMEOUT", "soon"},
		{"bad sync on start", "MESSAGE_SYNC_ON_START", "maybe"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Setenv(tt.key, tt.value)
			if _, err := Load(); err == nil {
				t.Errorf("Load() with %s=%q should fail", tt.key, tt.value)
			}
		})
	}
}

func TestValidate(t *testing.T) {
	cfg, err := Load()
	if err != nil {
		t.Fatalf("Load() error = %v", err)
	}

	cfg.Telegram.SessionDir = ""
	if err := cfg.Validate(); err == nil {
		t.Error("Validate() with empty session dir should fail")
	}

	cfg.Telegram.SessionDir = "./sessions"
	cfg.Kafka.Brokers = nil
	if err := cfg.Validate(); err == nil {
		t.Error("Validate() with no kafka brokers should fail")
	}
}

package main

import (
	"context"
	"testing"
	"time"

	"exgate/internal/config"
)

func testConfig() config.Config {
	return config.Config{
		Server: config.ServerConfig{ListenAddr: "127.0.0.1:0", Whitelist: "127.0.0.1"},
		Exchange: config.ExchangeConfig{
			APIKey:       "k",
			APISecret:    "s",
			RestBaseURL:  "http://127.0.0.1:1",
			RecvWindowMs: 5000,
		},
	}
}

func TestRunStopsOnCancel(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan error, 1)
	go func() { done <- run(ctx, testConfig()) }()

	time.Sleep(50 * time.Millisecond)
	cancel()
	select {
	case err := <-done:
		if err != nil {
			t.Fatalf("run() error = %v", err)
		}
	case <-time.After(5 * time.Second):
		t.Fatalf("run() did not return after cancel")
	}
}

func TestRunRejectsBadWhitelist(t *testing.T) {
	cfg := testConfig()
	cfg.Server.Whitelist = "localhost"
	if err := run(context.Background(), cfg); err == nil {
		t.Fatalf("run() error = nil, want whitelist error")
	}
}

func TestBuildAlertManagerDisabled(t *testing.T) {
	if m := buildAlertManager(testConfig()); m != nil {
		t.Fatalf("buildAlertManager() = %+v, want nil when telegram disabled", m)
	}
}

func TestBuildAlertManagerEnabled(t *testing.T) {
	cfg := testConfig()
	cfg.Observability.Telegram = config.TelegramConfig{
		Enabled:    true,
		BotToken:   "tok",
		ChatID:     "1",
		APIBaseURL: "http://127.0.0.1:1",
		TimeoutSec: 1,
	}
	m := buildAlertManager(cfg)
	if m == nil {
		t.Fatalf("buildAlertManager() = nil, want manager")
	}
	ctx, cancel := context.WithTimeout(context.Background(), time.Second)
	defer cancel()
	if err := m.Close(ctx); err != nil {
		t.Fatalf("Close() error = %v", err)
	}
}

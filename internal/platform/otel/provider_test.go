package otel_test

import (
	"context"
	"testing"

	"github.com/swehq/corona-game/internal/platform/otel"
)

func TestLoadConfigDefaults(t *testing.T) {
	t.Setenv("CORONA_GAME_OTEL_ENDPOINT", "")
	t.Setenv("CORONA_GAME_OTEL_ENABLED", "")

	cfg, err := otel.LoadConfig()
	if err != nil {
		t.Fatalf("load config: %v", err)
	}
	if cfg.Endpoint != "" || cfg.Enabled != "" {
		t.Fatalf("config = %+v, want empty", cfg)
	}
}

func TestLoadConfigReadsPrefixedVariables(t *testing.T) {
	t.Setenv("CORONA_GAME_OTEL_ENDPOINT", "http://collector:4318")
	t.Setenv("CORONA_GAME_OTEL_ENABLED", "FALSE")

	cfg, err := otel.LoadConfig()
	if err != nil {
		t.Fatalf("load config: %v", err)
	}
	if cfg.Endpoint != "http://collector:4318" || cfg.Enabled != "FALSE" {
		t.Fatalf("config = %+v", cfg)
	}
	shutdown, err := otel.SetupWithConfig(context.Background(), "validator", cfg)
	if err != nil {
		t.Fatalf("setup: %v", err)
	}
	if err := shutdown(context.Background()); err != nil {
		t.Fatalf("shutdown error: %v", err)
	}
}

func TestSetup_NoopWhenEndpointEmpty(t *testing.T) {
	t.Setenv("CORONA_GAME_OTEL_ENDPOINT", "")
	t.Setenv("CORONA_GAME_OTEL_ENABLED", "")

	shutdown, err := otel.Setup(context.Background(), "test-service")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if err := shutdown(context.Background()); err != nil {
		t.Fatalf("shutdown error: %v", err)
	}
}

func TestSetup_NoopWhenExplicitlyDisabled(t *testing.T) {
	t.Setenv("CORONA_GAME_OTEL_ENDPOINT", "http://localhost:4318")
	t.Setenv("CORONA_GAME_OTEL_ENABLED", "false")

	shutdown, err := otel.Setup(context.Background(), "test-service")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if err := shutdown(context.Background()); err != nil {
		t.Fatalf("shutdown error: %v", err)
	}
}

func TestSetupWithConfig_CreatesProvider(t *testing.T) {
	// Non-routable address so no export happens.
	shutdown, err := otel.SetupWithConfig(context.Background(), "validator", otel.Config{
		Endpoint: "http://192.0.2.1:4318",
	})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if err := shutdown(context.Background()); err != nil {
		t.Fatalf("shutdown error: %v", err)
	}
}

func TestSetup_NoopShutdownIgnoresCancelledContext(t *testing.T) {
	t.Setenv("CORONA_GAME_OTEL_ENDPOINT", "")
	t.Setenv("CORONA_GAME_OTEL_ENABLED", "")

	shutdown, err := otel.Setup(context.Background(), "noop-test")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	if err := shutdown(ctx); err != nil {
		t.Fatalf("noop shutdown should not error: %v", err)
	}
}

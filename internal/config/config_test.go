package config

import (
	"os"
	"path/filepath"
	"testing"
)

func writeConfig(t *testing.T, content string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "config.yaml")
	if err := os.WriteFile(path, []byte(content), 0644); err != nil {
		t.Fatalf("failed to write config: %v", err)
	}
	return path
}

func TestLoadAppliesDefaults(t *testing.T) {
	path := writeConfig(t, `
app:
  name: smashcourt
  environment: test
  port: 8080
database:
  driver: sqlite
  filename: test.db
`)

	cfg, err := Load(path)
	if err != nil {
		t.Fatalf("Load returned error: %v", err)
	}
	if cfg.Booking.DailyCapHours != 2 || cfg.Booking.WeeklyCapHours != 10 || cfg.Booking.CutoffHour != 18 {
		t.Fatalf("booking defaults not applied: %+v", cfg.Booking)
	}
}

func TestLoadSecretsFromEnvironment(t *testing.T) {
	t.Setenv("APP_SECRET_KEY", "topsecret")

	path := writeConfig(t, `
app:
  name: smashcourt
  port: 8080
database:
  driver: sqlite
  filename: test.db
`)

	cfg, err := Load(path)
	if err != nil {
		t.Fatalf("Load returned error: %v", err)
	}
	if cfg.App.SecretKey != "topsecret" {
		t.Fatalf("secret key = %q, want env value", cfg.App.SecretKey)
	}
}

func TestValidateRejectsUnknownDriver(t *testing.T) {
	path := writeConfig(t, `
app:
  name: smashcourt
  port: 8080
database:
  driver: postgres
  filename: test.db
`)

	if _, err := Load(path); err == nil {
		t.Fatal("expected error for unsupported driver")
	}
}

func TestValidateRequiresPort(t *testing.T) {
	path := writeConfig(t, `
app:
  name: smashcourt
database:
  driver: sqlite
  filename: test.db
`)

	if _, err := Load(path); err == nil {
		t.Fatal("expected error for missing port")
	}
}

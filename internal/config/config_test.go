package config

import (
	"bytes"
	"errors"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"
	_ "time/tzdata"

	appLog "bstt/internal/log"
)

func TestLoadCreatesTemplate(t *testing.T) {
	path := filepath.Join(t.TempDir(), "nested", "config.yaml")

	cfg, err := Load(path)
	if !errors.Is(err, ErrCreated) {
		t.Fatalf("expected ErrCreated, got %v", err)
	}
	if cfg == nil || cfg.Cookie != PlaceholderCookie {
		t.Fatalf("expected default config with placeholder cookie, got %+v", cfg)
	}

	info, err := os.Stat(path)
	if err != nil {
		t.Fatalf("template not written: %v", err)
	}
	if perm := info.Mode().Perm(); perm != 0o600 {
		t.Fatalf("expected 0600 perms, got %o", perm)
	}

	// Loading the untouched template must reject the placeholder.
	if _, err := Load(path); !errors.Is(err, ErrPlaceholderCookie) {
		t.Fatalf("expected ErrPlaceholderCookie on reload, got %v", err)
	}
}

func TestLoadNormalizesDefaults(t *testing.T) {
	path := filepath.Join(t.TempDir(), "config.yaml")
	if err := os.WriteFile(path, []byte("cookie: \"session=abc\"\nwindow_days: -3\n"), 0o600); err != nil {
		t.Fatal(err)
	}

	cfg, err := Load(path)
	if err != nil {
		t.Fatalf("Load: %v", err)
	}
	if cfg.Cookie != "session=abc" {
		t.Errorf("cookie = %q", cfg.Cookie)
	}
	if cfg.WindowDays != DefaultWindowDays {
		t.Errorf("window_days = %d, want %d", cfg.WindowDays, DefaultWindowDays)
	}
	if cfg.Endpoint != DefaultEndpoint {
		t.Errorf("endpoint = %q", cfg.Endpoint)
	}
	if cfg.Refresh != DefaultRefresh || cfg.Tick != DefaultTick {
		t.Errorf("refresh/tick = %q/%q", cfg.Refresh, cfg.Tick)
	}
	if !cfg.HasCampus() {
		t.Error("expected campus source to be enabled")
	}
}

func TestLoadICSOnlyAllowsPlaceholder(t *testing.T) {
	path := filepath.Join(t.TempDir(), "config.yaml")
	body := "cookie: YourCookieHere\nics:\n  - id: uni\n    url: https://example.com/cal.ics\n"
	if err := os.WriteFile(path, []byte(body), 0o600); err != nil {
		t.Fatal(err)
	}

	cfg, err := Load(path)
	if err != nil {
		t.Fatalf("Load: %v", err)
	}
	if cfg.HasCampus() {
		t.Error("placeholder cookie must not enable the campus source")
	}
	if len(cfg.ICS) != 1 || cfg.ICS[0].ID != "uni" {
		t.Fatalf("unexpected ics: %+v", cfg.ICS)
	}
}

func TestLoadRejectsBadYAML(t *testing.T) {
	path := filepath.Join(t.TempDir(), "config.yaml")
	if err := os.WriteFile(path, []byte("cookie: [unterminated"), 0o600); err != nil {
		t.Fatal(err)
	}
	if _, err := Load(path); err == nil {
		t.Fatal("expected YAML error")
	}
}

func TestLocation(t *testing.T) {
	tests := []struct {
		tz   string
		want string
	}{
		{"", time.Local.String()},
		{"Europe/London", "Europe/London"},
		{"Not/AZone", time.Local.String()},
	}
	for _, tt := range tests {
		c := &Config{Timezone: tt.tz}
		if got := c.Location().String(); got != tt.want {
			t.Errorf("Location(%q) = %q, want %q", tt.tz, got, tt.want)
		}
	}
}

func TestLocationResolvedOnce(t *testing.T) {
	var buf bytes.Buffer
	appLog.SetOutput(&buf)
	t.Cleanup(func() { appLog.SetOutput(os.Stderr) })

	path := filepath.Join(t.TempDir(), "config.yaml")
	if err := os.WriteFile(path, []byte("cookie: \"session=abc\"\ntimezone: Not/AZone\n"), 0o600); err != nil {
		t.Fatal(err)
	}
	cfg, err := Load(path)
	if err != nil {
		t.Fatalf("Load: %v", err)
	}
	for i := 0; i < 3; i++ {
		if got := cfg.Location(); got != time.Local {
			t.Fatalf("Location() = %v, want Local", got)
		}
	}
	if n := strings.Count(buf.String(), "failed to load timezone"); n != 1 {
		t.Fatalf("expected the zone to be resolved once, logged %d times", n)
	}

	// Changing Timezone re-resolves.
	cfg.Timezone = "Europe/London"
	if got := cfg.Location().String(); got != "Europe/London" {
		t.Fatalf("Location() after change = %q", got)
	}
}

func TestSaveRoundTrip(t *testing.T) {
	path := filepath.Join(t.TempDir(), "config.yaml")
	cfg := DefaultConfig()
	cfg.Cookie = "session=xyz"
	cfg.Timezone = "Europe/London"
	if err := cfg.Save(path); err != nil {
		t.Fatalf("Save: %v", err)
	}

	got, err := Load(path)
	if err != nil {
		t.Fatalf("Load: %v", err)
	}
	if got.Cookie != "session=xyz" || got.Timezone != "Europe/London" {
		t.Fatalf("unexpected config after round trip: %+v", got)
	}
}

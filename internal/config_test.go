package internal

import (
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	pkgconfig "github.com/starford/tactica/pkg/config"
)

func TestAuthConfig_DisabledMode(t *testing.T) {
	cfg := AuthConfig{Mode: "disabled", Token: ""}
	if err := cfg.Validate(); err != nil {
		t.Fatalf("disabled mode should pass: %v", err)
	}
	if cfg.AuthEnabled() {
		t.Error("disabled mode should not be enabled")
	}
}

func TestAuthConfig_EmptyModeDefaultsDisabled(t *testing.T) {
	cfg := AuthConfig{Mode: "", Token: ""}
	if err := cfg.Validate(); err != nil {
		t.Fatalf("empty mode should default to disabled: %v", err)
	}
	if cfg.Mode != AuthModeDisabled {
		t.Errorf("mode = %q, want %q", cfg.Mode, AuthModeDisabled)
	}
}

func TestAuthConfig_TokenModeValid(t *testing.T) {
	cfg := AuthConfig{Mode: "token", Token: "mysecret"}
	if err := cfg.Validate(); err != nil {
		t.Fatalf("token mode with token should pass: %v", err)
	}
	if !cfg.AuthEnabled() {
		t.Error("token mode should be enabled")
	}
}

func TestAuthConfig_TokenModeEmptyToken(t *testing.T) {
	cfg := AuthConfig{Mode: "token", Token: ""}
	err := cfg.Validate()
	if err == nil {
		t.Fatal("token mode with empty token should fail")
	}
	if !strings.Contains(err.Error(), "token is empty") {
		t.Errorf("unexpected error: %v", err)
	}
}

func TestAuthConfig_InvalidMode(t *testing.T) {
	cfg := AuthConfig{Mode: "magic", Token: "x"}
	if err := cfg.Validate(); err == nil {
		t.Fatal("invalid mode should fail validation")
	}
}

func TestDefaultConfig_Valid(t *testing.T) {
	cfg := NewDefaultConfig()
	if err := cfg.Validate(); err != nil {
		t.Fatalf("default config should be valid: %v", err)
	}
	s := cfg.Editor.Settings()
	if s.Timeline.DefaultClipSpan != 25 || s.Compositor.FadeDuration != 0.5 || s.AutosaveDelay != 2*time.Second {
		t.Errorf("settings = %+v", s)
	}
}

func TestFullConfig_AuthValidationCalled(t *testing.T) {
	cfg := NewDefaultConfig()
	cfg.Auth.Mode = "token"
	cfg.Auth.Token = ""
	if err := cfg.Validate(); err == nil {
		t.Fatal("full config validate should catch auth error")
	}
}

func TestStorageConfig(t *testing.T) {
	tests := []struct {
		name    string
		cfg     StorageConfig
		wantErr bool
	}{
		{"empty backend defaults to sqlite", StorageConfig{SQLitePath: "x.db"}, false},
		{"sqlite needs a path", StorageConfig{Backend: BackendSQLite}, true},
		{"fs needs a dir", StorageConfig{Backend: BackendFS, SQLitePath: "x.db"}, true},
		{"fs", StorageConfig{Backend: BackendFS, SessionsDir: "./s"}, false},
		{"unknown backend", StorageConfig{Backend: "s3", SQLitePath: "x.db"}, true},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := tt.cfg.Validate()
			if (err != nil) != tt.wantErr {
				t.Errorf("Validate() error = %v, wantErr %v", err, tt.wantErr)
			}
		})
	}
}

func TestEditorConfig_Invalid(t *testing.T) {
	cfg := NewDefaultConfig()
	cfg.Editor.SmoothOpacity = 1.5
	if err := cfg.Validate(); err == nil {
		t.Error("smoothing factor above 1 should fail")
	}

	cfg = NewDefaultConfig()
	cfg.Editor.DefaultClipSpan = 0.5
	if err := cfg.Validate(); err == nil {
		t.Error("default clip span below the minimum clip duration should fail")
	}
}

func TestLoadYAML(t *testing.T) {
	t.Setenv("TACTICA_TEST_TOKEN", "s3cret")
	path := filepath.Join(t.TempDir(), "config.yaml")
	data := `
app:
  log_level: debug
  http:
    port: 9090
    event_throttle: 1s
storage:
  backend: fs
  sessions_dir: ./data
auth:
  mode: token
  token: ${TACTICA_TEST_TOKEN}
editor:
  autosave_delay: 500ms
`
	if err := os.WriteFile(path, []byte(data), 0o644); err != nil {
		t.Fatal(err)
	}
	cfg := NewDefaultConfig()
	if err := pkgconfig.Load(path, cfg); err != nil {
		t.Fatalf("Load: %v", err)
	}
	if cfg.App.HTTP.Port != 9090 || cfg.App.HTTP.EventThrottle != time.Second {
		t.Errorf("http = %+v", cfg.App.HTTP)
	}
	if cfg.Auth.Token != "s3cret" || !cfg.Auth.AuthEnabled() {
		t.Errorf("auth = %+v", cfg.Auth)
	}
	if cfg.Storage.Backend != BackendFS || cfg.Editor.AutosaveDelay != 500*time.Millisecond {
		t.Errorf("storage = %+v, editor delay = %v", cfg.Storage, cfg.Editor.AutosaveDelay)
	}
	// Unset keys keep their defaults.
	if cfg.Editor.CanvasWidth != 1920 {
		t.Errorf("canvas width = %d", cfg.Editor.CanvasWidth)
	}
}

func TestLoadOptional_MissingFileKeepsDefaults(t *testing.T) {
	cfg := NewDefaultConfig()
	if err := pkgconfig.LoadOptional(filepath.Join(t.TempDir(), "absent.yaml"), cfg); err != nil {
		t.Fatalf("LoadOptional: %v", err)
	}
	if cfg.App.HTTP.Port != 8080 || cfg.Storage.Backend != BackendSQLite {
		t.Errorf("defaults not kept: %+v %+v", cfg.App.HTTP, cfg.Storage)
	}
}

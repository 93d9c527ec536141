package internal

import (
	"fmt"
	"log/slog"
	"time"

	validation "github.com/go-ozzo/ozzo-validation/v4"

	"github.com/starford/tactica/internal/compositor"
	"github.com/starford/tactica/internal/studio"
	"github.com/starford/tactica/internal/timeline"
)

// Auth modes.
const (
	AuthModeDisabled = "disabled"
	AuthModeToken    = "token"
)

// Storage backends.
const (
	BackendSQLite = "sqlite"
	BackendFS     = "fs"
)

// Config represents the application configuration.
type Config struct {
	App     ApplicationConfig `yaml:"app"`
	Storage StorageConfig     `yaml:"storage"`
	Auth    AuthConfig        `yaml:"auth"`
	Editor  EditorConfig      `yaml:"editor"`
}

// Validate validates the configuration.
func (c *Config) Validate() error {
	if err := c.App.Validate(); err != nil {
		return err
	}
	if err := c.Storage.Validate(); err != nil {
		return err
	}
	if err := c.Auth.Validate(); err != nil {
		return err
	}
	return c.Editor.Validate()
}

// ApplicationConfig holds application-level configuration.
type ApplicationConfig struct {
	LogLevel slog.Level `yaml:"log_level"`
	HTTP     HTTPConfig `yaml:"http"`
}

// Validate validates the application configuration.
func (c *ApplicationConfig) Validate() error {
	return c.HTTP.Validate()
}

// HTTPConfig holds HTTP server configuration.
type HTTPConfig struct {
	Port int `yaml:"port"`
	// EventThrottle bounds how often timeline.changed is pushed per session.
	EventThrottle time.Duration `yaml:"event_throttle"`
}

// Address returns HTTP server address.
func (c *HTTPConfig) Address() string {
	return fmt.Sprintf(":%d", c.Port)
}

// Validate validates the HTTP configuration.
func (c *HTTPConfig) Validate() error {
	return validation.ValidateStruct(c,
		validation.Field(&c.Port, validation.Required, validation.Min(1), validation.Max(65535)),
		validation.Field(&c.EventThrottle, validation.Min(time.Duration(0))),
	)
}

// StorageConfig selects where sessions are persisted.
//
// Backend controls the persistence gateway:
//   - "sqlite" (default): a single SQLite database at SQLitePath.
//   - "fs": one YAML document per session under SessionsDir, watched for
//     external edits.
type StorageConfig struct {
	Backend     string `yaml:"backend"`
	SQLitePath  string `yaml:"sqlite_path"`
	SessionsDir string `yaml:"sessions_dir"`
}

// Validate validates the storage configuration.
func (c *StorageConfig) Validate() error {
	if c.Backend == "" {
		c.Backend = BackendSQLite
	}
	return validation.ValidateStruct(c,
		validation.Field(&c.Backend, validation.Required, validation.In(BackendSQLite, BackendFS)),
		validation.Field(&c.SQLitePath, validation.When(c.Backend == BackendSQLite, validation.Required)),
		validation.Field(&c.SessionsDir, validation.When(c.Backend == BackendFS, validation.Required)),
	)
}

// AuthConfig holds authentication configuration.
//
// Mode controls how authentication is enforced:
//   - "disabled" (default): no authentication required, suitable for local dev.
//   - "token": Bearer token authentication; Token must be non-empty.
type AuthConfig struct {
	Mode  string `yaml:"mode"`
	Token string `yaml:"token"`
}

// Validate validates the auth configuration.
func (c *AuthConfig) Validate() error {
	if c.Mode == "" {
		c.Mode = AuthModeDisabled
	}
	if err := validation.ValidateStruct(c,
		validation.Field(&c.Mode, validation.Required, validation.In(AuthModeDisabled, AuthModeToken)),
	); err != nil {
		return err
	}
	if c.Mode == AuthModeToken && c.Token == "" {
		return fmt.Errorf("auth: mode is %q but token is empty", AuthModeToken)
	}
	return nil
}

// AuthEnabled returns true when authentication is active.
func (c *AuthConfig) AuthEnabled() bool {
	return c.Mode == AuthModeToken
}

// EditorConfig holds the editing and rendering defaults.
type EditorConfig struct {
	AutosaveDelay         time.Duration `yaml:"autosave_delay"`
	DefaultClipSpan       float64       `yaml:"default_clip_span"`
	DefaultClipType       string        `yaml:"default_clip_type"`
	MinClipDuration       float64       `yaml:"min_clip_duration"`
	MinAnnotationDuration float64       `yaml:"min_annotation_duration"`
	AnnotationSpan        float64       `yaml:"annotation_span"`
	PauseSceneDuration    float64       `yaml:"pause_scene_duration"`
	FadeDuration          float64       `yaml:"fade_duration"`
	VisibilityMargin      float64       `yaml:"visibility_margin"`
	SmoothTransform       float64       `yaml:"smooth_transform"`
	SmoothOpacity         float64       `yaml:"smooth_opacity"`
	FontSize              float64       `yaml:"font_size"`
	CanvasWidth           int           `yaml:"canvas_width"`
	CanvasHeight          int           `yaml:"canvas_height"`
	TrackWidth            float64       `yaml:"track_width"`
}

// Validate validates the editor configuration.
func (c *EditorConfig) Validate() error {
	return validation.ValidateStruct(c,
		validation.Field(&c.AutosaveDelay, validation.Required, validation.Min(time.Millisecond)),
		validation.Field(&c.DefaultClipSpan, validation.Required, validation.Min(c.MinClipDuration)),
		validation.Field(&c.DefaultClipType, validation.Required),
		validation.Field(&c.MinClipDuration, validation.Required, validation.Min(0.0)),
		validation.Field(&c.MinAnnotationDuration, validation.Required, validation.Min(0.0)),
		validation.Field(&c.AnnotationSpan, validation.Required, validation.Min(c.MinAnnotationDuration)),
		validation.Field(&c.PauseSceneDuration, validation.Min(0.0)),
		validation.Field(&c.FadeDuration, validation.Min(0.0)),
		validation.Field(&c.VisibilityMargin, validation.Min(0.0)),
		validation.Field(&c.SmoothTransform, validation.Required, validation.Min(0.0), validation.Max(1.0)),
		validation.Field(&c.SmoothOpacity, validation.Required, validation.Min(0.0), validation.Max(1.0)),
		validation.Field(&c.FontSize, validation.Required, validation.Min(1.0)),
		validation.Field(&c.CanvasWidth, validation.Required, validation.Min(1)),
		validation.Field(&c.CanvasHeight, validation.Required, validation.Min(1)),
		validation.Field(&c.TrackWidth, validation.Required, validation.Min(1.0)),
	)
}

// Settings converts the editor configuration into studio settings.
func (c *EditorConfig) Settings() studio.Settings {
	s := studio.DefaultSettings()
	s.Timeline = timeline.Options{
		MinClipDuration:       c.MinClipDuration,
		MinAnnotationDuration: c.MinAnnotationDuration,
		DefaultClipSpan:       c.DefaultClipSpan,
		DefaultClipType:       c.DefaultClipType,
	}
	s.Compositor = compositor.Settings{
		VisibilityMargin: c.VisibilityMargin,
		FadeDuration:     c.FadeDuration,
		MinOpacity:       s.Compositor.MinOpacity,
		SmoothTransform:  c.SmoothTransform,
		SmoothOpacity:    c.SmoothOpacity,
	}
	s.AutosaveDelay = c.AutosaveDelay
	s.AnnotationSpan = c.AnnotationSpan
	s.PauseSceneDuration = c.PauseSceneDuration
	s.FontSize = c.FontSize
	s.CanvasWidth = c.CanvasWidth
	s.CanvasHeight = c.CanvasHeight
	s.TrackWidth = c.TrackWidth
	return s
}

// NewDefaultConfig returns a new Config with sensible default values.
func NewDefaultConfig() *Config {
	def := studio.DefaultSettings()
	return &Config{
		App: ApplicationConfig{
			LogLevel: slog.LevelInfo,
			HTTP: HTTPConfig{
				Port:          8080,
				EventThrottle: 250 * time.Millisecond,
			},
		},
		Storage: StorageConfig{
			Backend:     BackendSQLite,
			SQLitePath:  "./tactica.db",
			SessionsDir: "./sessions",
		},
		Auth: AuthConfig{
			Mode: AuthModeDisabled,
		},
		Editor: EditorConfig{
			AutosaveDelay:         def.AutosaveDelay,
			DefaultClipSpan:       def.Timeline.DefaultClipSpan,
			DefaultClipType:       def.Timeline.DefaultClipType,
			MinClipDuration:       def.Timeline.MinClipDuration,
			MinAnnotationDuration: def.Timeline.MinAnnotationDuration,
			AnnotationSpan:        def.AnnotationSpan,
			PauseSceneDuration:    def.PauseSceneDuration,
			FadeDuration:          def.Compositor.FadeDuration,
			VisibilityMargin:      def.Compositor.VisibilityMargin,
			SmoothTransform:       def.Compositor.SmoothTransform,
			SmoothOpacity:         def.Compositor.SmoothOpacity,
			FontSize:              def.FontSize,
			CanvasWidth:           def.CanvasWidth,
			CanvasHeight:          def.CanvasHeight,
			TrackWidth:            def.TrackWidth,
		},
	}
}

package internal

import (
	"fmt"
	"log/slog"
	"time"

	validation "github.com/go-ozzo/ozzo-validation/v4"

	"github.com/starford/folio/internal/search"
	"github.com/starford/folio/internal/store"
	"github.com/starford/folio/internal/tagging"
)

// Auth modes.
const (
	AuthModeDisabled = "disabled"
	AuthModeToken    = "token"
)

// Config represents the application configuration.
type Config struct {
	App      ApplicationConfig `yaml:"app"`
	Database DatabaseConfig    `yaml:"database"`
	Tags     TagsConfig        `yaml:"tags"`
	Search   SearchConfig      `yaml:"search"`
	Import   ImportConfig      `yaml:"import"`
	Events   EventsConfig      `yaml:"events"`
	Auth     AuthConfig        `yaml:"auth"`
}

// Validate validates the configuration.
func (c *Config) Validate() error {
	for _, v := range []validation.Validatable{&c.App, &c.Database, &c.Tags, &c.Search, &c.Import, &c.Auth} {
		if err := v.Validate(); err != nil {
			return err
		}
	}
	return nil
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
	Port            int           `yaml:"port"`
	ShutdownTimeout time.Duration `yaml:"shutdown_timeout"`
}

// Address returns HTTP server address.
func (c *HTTPConfig) Address() string {
	return fmt.Sprintf(":%d", c.Port)
}

// Validate validates the HTTP configuration.
func (c *HTTPConfig) Validate() error {
	return validation.ValidateStruct(c,
		validation.Field(&c.Port, validation.Required, validation.Min(1), validation.Max(65535)),
		validation.Field(&c.ShutdownTimeout, validation.Min(time.Duration(0))),
	)
}

// DatabaseConfig selects the store backend. Driver is "sqlite3" (DSN is a
// file path) or "pgx" (DSN is a Postgres connection string).
type DatabaseConfig struct {
	Driver       string `yaml:"driver"`
	DSN          string `yaml:"dsn"`
	MaxOpenConns int    `yaml:"max_open_conns"`
}

// Validate validates the database configuration.
func (c *DatabaseConfig) Validate() error {
	return validation.ValidateStruct(c,
		validation.Field(&c.Driver, validation.Required, validation.In(store.DriverSQLite, store.DriverPostgres)),
		validation.Field(&c.DSN, validation.Required),
		validation.Field(&c.MaxOpenConns, validation.Min(0)),
	)
}

// StoreConfig converts to the store package's config.
func (c *DatabaseConfig) StoreConfig() store.Config {
	return store.Config{Driver: c.Driver, DSN: c.DSN, MaxOpenConns: c.MaxOpenConns}
}

// TagsConfig holds tag field limits.
type TagsConfig struct {
	MaxLength int `yaml:"max_length"`
}

// Validate validates the tags configuration.
func (c *TagsConfig) Validate() error {
	return validation.ValidateStruct(c,
		validation.Field(&c.MaxLength, validation.Required, validation.Min(1)),
	)
}

// SearchConfig holds paging and memoization settings. A negative Orphans
// disables orphan absorption.
type SearchConfig struct {
	PageSize        int `yaml:"page_size"`
	Orphans         int `yaml:"orphans"`
	CommentPageSize int `yaml:"comment_page_size"`
	CacheSize       int `yaml:"cache_size"`
}

// Validate validates the search configuration.
func (c *SearchConfig) Validate() error {
	return validation.ValidateStruct(c,
		validation.Field(&c.PageSize, validation.Required, validation.Min(1)),
		validation.Field(&c.CommentPageSize, validation.Required, validation.Min(1)),
		validation.Field(&c.CacheSize, validation.Required, validation.Min(1)),
	)
}

// Options converts to search.Options.
func (c *SearchConfig) Options() search.Options {
	return search.Options{
		PageSize:        c.PageSize,
		Orphans:         c.Orphans,
		CommentPageSize: c.CommentPageSize,
		CacheSize:       c.CacheSize,
	}
}

// ImportConfig configures the Markdown drop folder. An empty Path disables
// importing.
type ImportConfig struct {
	Path          string `yaml:"path"`
	DefaultAuthor string `yaml:"default_author"`
}

// Enabled reports whether an import folder is configured.
func (c *ImportConfig) Enabled() bool { return c.Path != "" }

// Validate validates the import configuration.
func (c *ImportConfig) Validate() error {
	return validation.ValidateStruct(c,
		validation.Field(&c.DefaultAuthor, validation.When(c.Enabled(), validation.Required)),
	)
}

// EventsConfig tunes the SSE broker.
type EventsConfig struct {
	TagsThrottle time.Duration `yaml:"tags_throttle"`
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

// NewDefaultConfig returns a new Config with sensible default values.
func NewDefaultConfig() *Config {
	return &Config{
		App: ApplicationConfig{
			LogLevel: slog.LevelInfo,
			HTTP: HTTPConfig{
				Port:            8080,
				ShutdownTimeout: 10 * time.Second,
			},
		},
		Database: DatabaseConfig{
			Driver: store.DriverSQLite,
			DSN:    "./folio.db",
		},
		Tags: TagsConfig{
			MaxLength: tagging.DefaultMaxLength,
		},
		Search: SearchConfig{
			PageSize:        search.DefaultPageSize,
			Orphans:         search.DefaultOrphans,
			CommentPageSize: search.DefaultCommentPageSize,
			CacheSize:       search.DefaultCacheSize,
		},
		Import: ImportConfig{
			DefaultAuthor: "import",
		},
		Events: EventsConfig{
			TagsThrottle: 2 * time.Second,
		},
		Auth: AuthConfig{
			Mode: AuthModeDisabled,
		},
	}
}

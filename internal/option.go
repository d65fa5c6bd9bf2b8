package internal

// Mode selects which surface Run serves.
type Mode int

const (
	// ModeServe runs the HTTP API, event stream and importer.
	ModeServe Mode = iota
	// ModeMCP serves the MCP tools over stdio.
	ModeMCP
)

// Option is a functional option for configuring the application.
type Option func(*application)

type application struct {
	config *Config
	mode   Mode
}

// WithConfig sets the application configuration.
func WithConfig(cfg *Config) Option {
	return func(a *application) {
		a.config = cfg
	}
}

// WithMode selects the surface to run. The default is ModeServe.
func WithMode(m Mode) Option {
	return func(a *application) {
		a.mode = m
	}
}

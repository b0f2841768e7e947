package templateconfig

import "context"

// Store persists the singleton statutory configuration.
type Store interface {
	// Find returns the live configuration or sentinel.ErrNotFound when the
	// regulator has not supplied one yet.
	Find(ctx context.Context) (*Config, error)

	// Save upserts the singleton row, bumping its version.
	Save(ctx context.Context, cfg *Config) error
}

package templateconfig

import (
	"context"
	"errors"
	"log/slog"

	"golang.org/x/sync/singleflight"

	"rentledger/internal/audit"
	dErrors "rentledger/pkg/domain-errors"
	"rentledger/pkg/platform/sentinel"
	strutil "rentledger/pkg/platform/strings"
	"rentledger/pkg/requestcontext"
)

// Cache is the optional read-through cache seam.
type Cache interface {
	Get(ctx context.Context) (*Config, bool)
	Set(ctx context.Context, cfg *Config)
	Invalidate(ctx context.Context)
}

// AuditPublisher records regulator configuration changes.
type AuditPublisher interface {
	Emit(ctx context.Context, event audit.Event) error
}

// Resolver serves the statutory configuration to proposal handling. Concurrent
// resolves collapse onto one store read via singleflight; a cache sits in
// front when configured.
type Resolver struct {
	store  Store
	cache  Cache
	logger *slog.Logger
	auditP AuditPublisher
	group  singleflight.Group
}

type Option func(*Resolver)

func WithCache(cache Cache) Option {
	return func(r *Resolver) { r.cache = cache }
}

func WithLogger(logger *slog.Logger) Option {
	return func(r *Resolver) { r.logger = logger }
}

func WithAuditPublisher(publisher AuditPublisher) Option {
	return func(r *Resolver) { r.auditP = publisher }
}

func NewResolver(store Store, opts ...Option) *Resolver {
	r := &Resolver{store: store, logger: slog.Default()}
	for _, opt := range opts {
		opt(r)
	}
	return r
}

// Resolve returns the live configuration snapshot. Every numeric bound on the
// snapshot is inclusive. Fails with CodeConfigMissing when the regulator has
// not supplied a configuration; callers cannot recover from that.
func (r *Resolver) Resolve(ctx context.Context) (*Config, error) {
	if r.cache != nil {
		if cfg, ok := r.cache.Get(ctx); ok {
			return cfg, nil
		}
	}

	result, err, _ := r.group.Do("template-config", func() (interface{}, error) {
		return r.store.Find(ctx)
	})
	if err != nil {
		if errors.Is(err, sentinel.ErrNotFound) {
			return nil, dErrors.New(dErrors.CodeConfigMissing, "no statutory template configuration exists")
		}
		return nil, dErrors.Wrap(err, dErrors.CodeInternal, "failed to resolve template configuration")
	}

	cfg := result.(*Config)
	if r.cache != nil {
		r.cache.Set(ctx, cfg)
	}
	return cfg, nil
}

// Put replaces the singleton configuration. Regulator surface only. Existing
// agreements keep the snapshot they were proposed under.
func (r *Resolver) Put(ctx context.Context, cfg *Config) (*Config, error) {
	cfg.StandardTerms = strutil.DedupeAndTrim(cfg.StandardTerms)
	if err := cfg.Validate(); err != nil {
		return nil, err
	}

	if err := r.store.Save(ctx, cfg); err != nil {
		return nil, dErrors.Wrap(err, dErrors.CodeInternal, "failed to save template configuration")
	}
	if r.cache != nil {
		r.cache.Invalidate(ctx)
	}

	r.logger.InfoContext(ctx, "template configuration updated",
		"version", cfg.Version,
		"tax_rate", cfg.TaxRate.String(),
		"request_id", requestcontext.RequestID(ctx),
		"log_type", "audit",
	)
	if r.auditP != nil {
		if err := r.auditP.Emit(ctx, audit.Event{
			Action:  audit.ActionConfigUpdated,
			ActorID: requestcontext.Actor(ctx).String(),
			Detail:  "statutory template configuration replaced",
		}); err != nil {
			return nil, err
		}
	}
	return cfg, nil
}

package authorizer

import (
	"context"
	"log/slog"
	"time"

	"github.com/go-training/implicit-oauth/pkg/cookie"
	"github.com/go-training/implicit-oauth/pkg/core"

	"go.opentelemetry.io/otel/trace"
)

const defaultSaveTimeout = 5 * time.Second

// Option configures an Authorizer.
type Option func(*options)

type options struct {
	ctx         context.Context
	vault       core.Vault
	tokenStore  core.TokenStore
	cookies     cookie.Storage
	logger      *slog.Logger
	tracer      trace.Tracer
	completion  CompletionHandler
	saveTimeout time.Duration
}

func newOptions(opts ...Option) *options {
	o := &options{
		ctx:         context.Background(),
		saveTimeout: defaultSaveTimeout,
	}
	for _, opt := range opts {
		opt(o)
	}
	return o
}

// WithContext sets the parent context used for token persistence and tracing.
func WithContext(ctx context.Context) Option {
	return func(o *options) {
		if ctx != nil {
			o.ctx = ctx
		}
	}
}

// WithVault persists issued tokens into v.
func WithVault(v core.Vault) Option {
	return func(o *options) {
		o.vault = v
	}
}

// WithTokenStore persists issued tokens into s under the client's namespace.
// WithVault takes precedence when both are given.
func WithTokenStore(s core.TokenStore) Option {
	return func(o *options) {
		o.tokenStore = s
	}
}

// WithCookieStorage sets the cookie storage cleaned at construction.
// cookie.Shared() is used by default.
func WithCookieStorage(s cookie.Storage) Option {
	return func(o *options) {
		o.cookies = s
	}
}

// WithLogger sets the logger; the attempt id is attached to it.
func WithLogger(l *slog.Logger) Option {
	return func(o *options) {
		o.logger = l
	}
}

// WithTracer sets the tracer used for the finalization span.
func WithTracer(t trace.Tracer) Option {
	return func(o *options) {
		o.tracer = t
	}
}

// WithCompletion registers the completion handler at construction.
func WithCompletion(h CompletionHandler) Option {
	return func(o *options) {
		o.completion = h
	}
}

// WithSaveTimeout bounds how long token persistence may take.
func WithSaveTimeout(d time.Duration) Option {
	return func(o *options) {
		if d > 0 {
			o.saveTimeout = d
		}
	}
}

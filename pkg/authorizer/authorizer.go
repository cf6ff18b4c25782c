// Package authorizer drives a single OAuth 2.0 implicit-grant attempt.
//
// An Authorizer builds the authorization URL from a configuration, waits for
// the hosting surface to report either a cancellation or the redirect it
// reached, and delivers exactly one result to its completion handler. Issued
// tokens are persisted in a core.Vault before the handler runs.
package authorizer

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net/url"
	"strings"
	"sync"
	"time"
	"unicode"

	"github.com/go-training/implicit-oauth/pkg/cookie"
	"github.com/go-training/implicit-oauth/pkg/core"
	"github.com/go-training/implicit-oauth/pkg/logger"
	"github.com/go-training/implicit-oauth/pkg/redirect"
	"github.com/go-training/implicit-oauth/pkg/store"
	"github.com/go-training/implicit-oauth/pkg/telemetry"

	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"
)

// Authorization request parameter names.
const (
	ParamClientID     = "client_id"
	ParamRedirectURI  = "redirect_uri"
	ParamVersion      = "v"
	ParamResponseType = "response_type"

	responseTypeToken = "token"
)

// CompletionHandler receives the outcome of an attempt. Exactly one of
// accessToken and err is non-zero.
type CompletionHandler func(accessToken string, err error)

// Delegate is the event sink a hosting surface reports to.
type Delegate interface {
	// UserDidCancel reports that the user aborted authorization.
	UserDidCancel()
	// DidReachRedirectURL reports the redirect URL the surface navigated to.
	DidReachRedirectURL(u *url.URL)
}

// Result is the terminal value of an attempt.
type Result struct {
	AccessToken string
	Err         error
}

var _ Delegate = (*Authorizer)(nil)

// Authorizer owns one authorization attempt. It is safe for concurrent use;
// only the first terminal event is honored.
type Authorizer struct {
	authURL     *url.URL
	redirectURL *url.URL
	attemptID   string

	ctx         context.Context
	vault       core.Vault
	logger      *slog.Logger
	tracer      trace.Tracer
	saveTimeout time.Duration

	mu        sync.Mutex
	finalized bool
	handler   CompletionHandler
	result    Result
	decided   chan struct{}
	done      chan struct{}
}

// New validates cfg, builds the authorization request and clears cookies
// scoped to the authorization host. No Authorizer is returned on error.
func New(cfg core.Configuration, opts ...Option) (*Authorizer, error) {
	authURL, redirectURL, err := buildURLs(cfg)
	if err != nil {
		return nil, err
	}

	o := newOptions(opts...)
	a := newAuthorizer(authURL, redirectURL, cfg.Client.ID, o)

	storage := o.cookies
	if storage == nil {
		storage = cookie.Shared()
	}
	cookie.NewJanitor(storage).CleanupURL(authURL)

	a.logger.Debug("authorization attempt created",
		"auth_host", authURL.Host,
		"redirect_url", redirectURL.String(),
	)
	return a, nil
}

// NewWithURLs creates an Authorizer from prebuilt URLs. The client id used for
// the token namespace is read from the authorization URL. Cookies are left
// untouched.
func NewWithURLs(authURL, redirectURL *url.URL, opts ...Option) (*Authorizer, error) {
	if authURL == nil || authURL.Scheme == "" || authURL.Host == "" {
		return nil, &ConfigurationError{Field: "authorization_url", Err: errors.New("must be an absolute URL")}
	}
	if redirectURL == nil || redirectURL.Scheme == "" {
		return nil, &ConfigurationError{Field: ParamRedirectURI, Err: errors.New("must have a scheme")}
	}

	o := newOptions(opts...)
	clientID := authURL.Query().Get(ParamClientID)
	return newAuthorizer(cloneURL(authURL), cloneURL(redirectURL), clientID, o), nil
}

func newAuthorizer(authURL, redirectURL *url.URL, clientID string, o *options) *Authorizer {
	attemptID := core.NewAttemptID()

	vault := o.vault
	if vault == nil {
		backend := o.tokenStore
		if backend == nil {
			backend = store.NewMemoryStore()
		}
		vault = store.NewVault(backend, clientID)
	}

	l := o.logger
	if l == nil {
		l = slog.Default()
	}
	tracer := o.tracer
	if tracer == nil {
		tracer = telemetry.Tracer()
	}

	return &Authorizer{
		authURL:     authURL,
		redirectURL: redirectURL,
		attemptID:   attemptID,
		ctx:         core.WithAttemptID(o.ctx, attemptID),
		vault:       vault,
		logger:      l.With("attempt_id", attemptID),
		tracer:      tracer,
		saveTimeout: o.saveTimeout,
		handler:     o.completion,
		decided:     make(chan struct{}),
		done:        make(chan struct{}),
	}
}

func buildURLs(cfg core.Configuration) (*url.URL, *url.URL, error) {
	clientID := cfg.Client.ID
	if clientID == "" {
		return nil, nil, &ConfigurationError{Field: ParamClientID, Err: errors.New("must not be empty")}
	}
	if strings.IndexFunc(clientID, unicode.IsControl) >= 0 {
		return nil, nil, &ConfigurationError{Field: ParamClientID, Err: errors.New("contains control characters")}
	}

	redirectURL, err := url.Parse(cfg.Client.RedirectURL)
	if err != nil {
		return nil, nil, &ConfigurationError{Field: ParamRedirectURI, Err: err}
	}
	if redirectURL.Scheme == "" {
		return nil, nil, &ConfigurationError{Field: ParamRedirectURI, Err: errors.New("must have a scheme")}
	}
	if redirectURL.Host == "" && redirectURL.Opaque == "" {
		return nil, nil, &ConfigurationError{Field: ParamRedirectURI, Err: errors.New("must have a host")}
	}

	base, err := url.Parse(cfg.Server.OAuthBaseURL)
	if err != nil {
		return nil, nil, &ConfigurationError{Field: "oauth_base_url", Err: err}
	}
	if base.Scheme == "" || base.Host == "" {
		return nil, nil, &ConfigurationError{Field: "oauth_base_url", Err: errors.New("must be an absolute URL")}
	}

	q := url.Values{}
	q.Set(ParamClientID, clientID)
	q.Set(ParamRedirectURI, cfg.Client.RedirectURL)
	q.Set(ParamVersion, cfg.Version)
	q.Set(ParamResponseType, responseTypeToken)

	authURL := cloneURL(base)
	authURL.RawQuery = q.Encode()
	authURL.Fragment = ""

	// The serialized request must round-trip through the URL parser.
	parsed, err := url.Parse(authURL.String())
	if err != nil {
		return nil, nil, &ConfigurationError{Field: "authorization_url", Err: err}
	}
	return parsed, redirectURL, nil
}

func cloneURL(u *url.URL) *url.URL {
	c := *u
	if u.User != nil {
		user := *u.User
		c.User = &user
	}
	return &c
}

// AuthorizationURL returns a copy of the URL the hosting surface should open.
func (a *Authorizer) AuthorizationURL() *url.URL {
	return cloneURL(a.authURL)
}

// RedirectURL returns a copy of the redirect URL the attempt expects.
func (a *Authorizer) RedirectURL() *url.URL {
	return cloneURL(a.redirectURL)
}

// AttemptID identifies this attempt in logs and traces.
func (a *Authorizer) AttemptID() string {
	return a.attemptID
}

// Vault returns the vault issued tokens are saved into.
func (a *Authorizer) Vault() core.Vault {
	return a.vault
}

// SetCompletionHandler registers h as the single recipient of the result.
func (a *Authorizer) SetCompletionHandler(h CompletionHandler) error {
	a.mu.Lock()
	defer a.mu.Unlock()

	if a.finalized {
		return ErrFinalized
	}
	if a.handler != nil {
		return ErrCompletionRegistered
	}
	a.handler = h
	return nil
}

// Done is closed once the attempt is finalized and the handler has returned.
func (a *Authorizer) Done() <-chan struct{} {
	return a.done
}

// Result returns the terminal result and whether it has been decided.
func (a *Authorizer) Result() (Result, bool) {
	select {
	case <-a.decided:
	default:
		return Result{}, false
	}
	a.mu.Lock()
	defer a.mu.Unlock()
	return a.result, true
}

// Wait blocks until the result is decided. If ctx ends first, the attempt
// is cancelled and its result returned. Wait does not wait for the completion
// handler, so the handler itself may call it; use Done to wait for the handler.
func (a *Authorizer) Wait(ctx context.Context) (string, error) {
	select {
	case <-a.decided:
	case <-ctx.Done():
		a.UserDidCancel()
		<-a.decided
	}
	res, _ := a.Result()
	return res.AccessToken, res.Err
}

// UserDidCancel finalizes the attempt with ErrUserCancelled.
func (a *Authorizer) UserDidCancel() {
	a.finalize(func(ctx context.Context) Result {
		return Result{Err: ErrUserCancelled}
	})
}

// DidReachRedirectURL parses u and finalizes the attempt with the token or
// error it carries.
func (a *Authorizer) DidReachRedirectURL(u *url.URL) {
	a.finalize(func(ctx context.Context) Result {
		return a.resolve(ctx, u)
	})
}

func (a *Authorizer) resolve(ctx context.Context, u *url.URL) Result {
	if !redirect.Matches(a.redirectURL, u) {
		a.logger.Warn("redirect does not match expected redirect url")
		return Result{Err: ErrMalformedRedirect}
	}

	params := redirect.Parse(a.redirectURL, u)
	if reason, ok := params.Get(redirect.ErrorParam); ok {
		desc, _ := params.Get(redirect.ErrorDescriptionParam)
		return Result{Err: &DeclinedError{Reason: reason, Description: desc}}
	}

	token, ok := params.Get(redirect.AccessTokenParam)
	if !ok || token == "" {
		return Result{Err: ErrMalformedRedirect}
	}

	saveCtx, cancel := context.WithTimeout(ctx, a.saveTimeout)
	defer cancel()
	if err := a.vault.Save(saveCtx, token); err != nil {
		a.logger.Error("failed to persist access token", "error", err)
		return Result{Err: fmt.Errorf("%w: %w", ErrTokenNotPersisted, err)}
	}
	a.logger.Debug("access token persisted", "access_token", logger.Mask(token))
	return Result{AccessToken: token}
}

// finalize runs decide for the first terminal event only. The finalized flag
// is set before decide and the handler run, so re-entrant events are no-ops;
// the handler slot is cleared after the handler returns.
func (a *Authorizer) finalize(decide func(ctx context.Context) Result) {
	a.mu.Lock()
	if a.finalized {
		a.mu.Unlock()
		a.logger.Debug("ignoring event for finalized attempt")
		return
	}
	a.finalized = true
	a.mu.Unlock()

	ctx, span := a.tracer.Start(a.ctx, "authorizer.finalize",
		trace.WithAttributes(attribute.String("oauth.attempt_id", a.attemptID)),
	)
	res := a.safeDecide(ctx, decide)
	a.record(ctx, span, res)
	span.End()

	a.mu.Lock()
	a.result = res
	handler := a.handler
	a.mu.Unlock()
	close(a.decided)

	a.deliver(handler, res)

	a.mu.Lock()
	a.handler = nil
	a.mu.Unlock()
	close(a.done)
}

func (a *Authorizer) safeDecide(ctx context.Context, decide func(ctx context.Context) Result) (res Result) {
	defer func() {
		if r := recover(); r != nil {
			a.logger.Error("panic while finalizing authorization", "panic", r)
			res = Result{Err: fmt.Errorf("%w: %v", ErrMalformedRedirect, r)}
		}
	}()
	return decide(ctx)
}

func (a *Authorizer) deliver(handler CompletionHandler, res Result) {
	if handler == nil {
		return
	}
	defer func() {
		if r := recover(); r != nil {
			a.logger.Error("completion handler panicked", "panic", r)
		}
	}()
	handler(res.AccessToken, res.Err)
}

func (a *Authorizer) record(ctx context.Context, span trace.Span, res Result) {
	outcome := Outcome(res.Err)
	attrs := []attribute.KeyValue{attribute.String("oauth.outcome", outcome)}

	var declined *DeclinedError
	if errors.As(res.Err, &declined) {
		attrs = append(attrs, attribute.String("oauth.error_code", declined.Code()))
	}
	telemetry.AddAttributes(ctx, attrs...)

	if res.Err != nil {
		span.SetStatus(codes.Error, outcome)
		a.logger.Info("authorization finished", "outcome", outcome, "error", res.Err)
		return
	}
	span.SetStatus(codes.Ok, outcome)
	a.logger.Info("authorization finished", "outcome", outcome)
}

// Outcome names the kind of result err represents.
func Outcome(err error) string {
	switch {
	case err == nil:
		return "success"
	case errors.Is(err, ErrUserCancelled):
		return "cancelled"
	case errors.Is(err, ErrServerDeclined):
		return "declined"
	case errors.Is(err, ErrTokenNotPersisted):
		return "not_persisted"
	case errors.Is(err, ErrMalformedRedirect):
		return "malformed_redirect"
	default:
		return "error"
	}
}

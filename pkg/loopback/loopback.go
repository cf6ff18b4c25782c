// Package loopback captures the authorization redirect on a local HTTP server
// and reports it to an authorizer.Delegate.
//
// Query-form redirects are delivered as they arrive. Fragment-form redirects
// never reach the server, so the callback page posts location.hash back to a
// relay endpoint and the redirect is rebuilt from it.
package loopback

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"html/template"
	"io"
	"log/slog"
	"net"
	"net/http"
	"net/url"
	"path"
	"strings"
	"time"

	"github.com/go-training/implicit-oauth/pkg/authorizer"
	"github.com/go-training/implicit-oauth/pkg/logger"

	ginslog "github.com/gin-contrib/slog"
	"github.com/gin-gonic/gin"
)

const (
	// RelayHeader must accompany fragment relay requests. Browsers cannot
	// attach it cross-origin without a preflight, which this server never
	// answers.
	RelayHeader = "X-Implicit-OAuth-Relay"

	maxFragmentBytes = 64 << 10
	shutdownTimeout  = 5 * time.Second
)

var relayPage = template.Must(template.New("relay").Parse(`<!DOCTYPE html>
<html>
<head><meta charset="utf-8"><title>Authorization</title></head>
<body>
<h1>Completing authorization</h1>
<p id="status">Please wait...</p>
<script>
(function () {
  var fragment = window.location.hash.replace(/^#/, "");
  var headers = {"Content-Type": "text/plain"};
  headers[{{.Header}}] = "1";
  fetch({{.Path}}, {method: "POST", headers: headers, body: fragment})
    .then(function () {
      history.replaceState(null, "", window.location.pathname);
      document.getElementById("status").textContent = "You can now close this window and return to the application.";
    })
    .catch(function () {
      document.getElementById("status").textContent = "Authorization could not be completed.";
    });
})();
</script>
</body>
</html>
`))

const donePage = `<!DOCTYPE html>
<html>
<body>
<h1>%s</h1>
<p>You can now close this window and return to the application.</p>
<script>window.close();</script>
</body>
</html>
`

// Server serves the redirect URL of one authorization attempt.
type Server struct {
	delegate     authorizer.Delegate
	redirectURL  *url.URL
	addr         string
	callbackPath string
	fragmentPath string
	cancelPath   string
	logger       *slog.Logger
	engine       *gin.Engine
}

// Option configures a Server.
type Option func(*Server)

// WithAddr overrides the listen address derived from the redirect URL.
func WithAddr(addr string) Option {
	return func(s *Server) {
		s.addr = addr
	}
}

// WithLogger sets the logger.
func WithLogger(l *slog.Logger) Option {
	return func(s *Server) {
		if l != nil {
			s.logger = l
		}
	}
}

// New creates a server for redirectURL that reports to delegate.
// The redirect URL must use http and name a host and port to listen on.
func New(redirectURL *url.URL, delegate authorizer.Delegate, opts ...Option) (*Server, error) {
	if redirectURL == nil || redirectURL.Scheme != "http" || redirectURL.Host == "" {
		return nil, errors.New("loopback redirect url must be an http url with a host")
	}
	if delegate == nil {
		return nil, errors.New("loopback server needs a delegate")
	}

	callbackPath := redirectURL.Path
	if callbackPath == "" {
		callbackPath = "/"
	}
	s := &Server{
		delegate:     delegate,
		redirectURL:  redirectURL,
		addr:         redirectURL.Host,
		callbackPath: callbackPath,
		fragmentPath: path.Join(callbackPath, "fragment"),
		cancelPath:   path.Join(callbackPath, "cancel"),
		logger:       slog.Default(),
	}
	for _, opt := range opts {
		opt(s)
	}

	if gin.Mode() == gin.DebugMode {
		gin.SetMode(gin.ReleaseMode)
	}
	s.engine = gin.New()
	s.engine.Use(gin.Recovery(), ginslog.SetLogger(
		ginslog.WithLogger(func(*gin.Context, *slog.Logger) *slog.Logger {
			return s.logger
		}),
		ginslog.WithContext(redactQuery),
	))
	s.engine.GET(s.callbackPath, s.handleCallback)
	s.engine.POST(s.fragmentPath, s.handleFragment)
	s.engine.GET(s.cancelPath, s.handleCancel)
	return s, nil
}

// Handler returns the HTTP handler serving the callback routes.
func (s *Server) Handler() http.Handler {
	return s.engine
}

// CancelURL returns the URL that cancels the attempt when opened.
func (s *Server) CancelURL() *url.URL {
	u := *s.redirectURL
	u.Path = s.cancelPath
	u.RawQuery = ""
	u.Fragment = ""
	return &u
}

// Run listens on the server address until ctx is done.
func (s *Server) Run(ctx context.Context) error {
	ln, err := net.Listen("tcp", s.addr)
	if err != nil {
		return fmt.Errorf("failed to listen on %s: %w", s.addr, err)
	}

	srv := &http.Server{
		Handler:      s.engine,
		ReadTimeout:  10 * time.Second,
		WriteTimeout: 10 * time.Second,
		IdleTimeout:  60 * time.Second,
	}
	s.logger.Info("waiting for authorization callback", "addr", ln.Addr().String())

	errCh := make(chan error, 1)
	go func() {
		errCh <- srv.Serve(ln)
	}()

	select {
	case <-ctx.Done():
		shutdownCtx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
		defer cancel()
		return srv.Shutdown(shutdownCtx)
	case err := <-errCh:
		if errors.Is(err, http.ErrServerClosed) {
			return nil
		}
		return err
	}
}

// redactQuery masks the raw query of a request record; on the callback route
// it carries the access token.
func redactQuery(_ *gin.Context, r *slog.Record) *slog.Record {
	out := slog.NewRecord(r.Time, r.Level, r.Message, r.PC)
	r.Attrs(func(a slog.Attr) bool {
		if a.Key == "query" {
			a = slog.String(a.Key, logger.Mask(a.Value.String()))
		}
		out.AddAttrs(a)
		return true
	})
	return &out
}

func (s *Server) handleCallback(c *gin.Context) {
	if c.Request.URL.RawQuery == "" {
		var buf bytes.Buffer
		err := relayPage.Execute(&buf, struct {
			Path   string
			Header string
		}{Path: s.fragmentPath, Header: RelayHeader})
		if err != nil {
			s.logger.Error("failed to render relay page", "error", err)
			c.Status(http.StatusInternalServerError)
			return
		}
		c.Data(http.StatusOK, "text/html; charset=utf-8", buf.Bytes())
		return
	}

	u := *s.redirectURL
	u.RawQuery = c.Request.URL.RawQuery
	u.Fragment = ""
	s.delegate.DidReachRedirectURL(&u)
	s.done(c, "Authorization received")
}

func (s *Server) handleFragment(c *gin.Context) {
	if c.GetHeader(RelayHeader) == "" {
		c.Status(http.StatusForbidden)
		return
	}

	body, err := io.ReadAll(io.LimitReader(c.Request.Body, maxFragmentBytes+1))
	if err != nil {
		c.Status(http.StatusBadRequest)
		return
	}
	if len(body) > maxFragmentBytes {
		c.Status(http.StatusRequestEntityTooLarge)
		return
	}

	fragment := strings.TrimPrefix(string(body), "#")
	u, err := url.Parse(s.redirectURL.String() + "#" + fragment)
	if err != nil {
		s.logger.Warn("relayed fragment is not a valid url fragment", "error", err)
		u = &url.URL{Scheme: s.redirectURL.Scheme, Host: s.redirectURL.Host, Path: s.redirectURL.Path}
	}
	s.delegate.DidReachRedirectURL(u)
	c.Status(http.StatusNoContent)
}

func (s *Server) handleCancel(c *gin.Context) {
	s.delegate.UserDidCancel()
	s.done(c, "Authorization cancelled")
}

func (s *Server) done(c *gin.Context, title string) {
	c.Data(http.StatusOK, "text/html; charset=utf-8", []byte(fmt.Sprintf(donePage, template.HTMLEscapeString(title))))
}

// Package server serves the triage web interface. Each browser gets its own
// workspace session, keyed by a signed cookie.
package server

import (
	"context"
	"embed"
	"errors"
	"fmt"
	"html/template"
	"net"
	"net/http"
	"time"

	"github.com/jamesainslie/triage/pkg/session"
	"github.com/jamesainslie/triage/pkg/triage/config"
	"github.com/jamesainslie/triage/pkg/triage/logging"
	"github.com/jamesainslie/triage/pkg/triage/types"
)

//go:embed templates/*.html
var templateFS embed.FS

const shutdownTimeout = 5 * time.Second

// Options configures a Server.
type Options struct {
	// Addr is the listen address, e.g. "127.0.0.1:4567".
	Addr string

	// Registry holds the workspace sessions. Required.
	Registry *session.Registry

	// Secret signs session cookies. Empty generates a random secret.
	Secret string

	// CookieName defaults to config.DefaultSessionCookie.
	CookieName string

	// DefaultRoot pre-fills the folder form.
	DefaultRoot string

	// Extensions is the image allow-list used for statistics.
	Extensions []string

	// OnRootsChanged is called after a session activates or clears a root,
	// with the distinct roots now active.
	OnRootsChanged func(roots []string)
}

// Server is the HTTP front end over a session registry.
type Server struct {
	addr        string
	registry    *session.Registry
	signer      *signer
	cookieName  string
	defaultRoot string
	extensions  []string
	onRoots     func([]string)
	tmpl        *template.Template
	logger      *logging.Logger
}

// New builds a Server from opts.
func New(opts Options) (*Server, error) {
	if opts.Registry == nil {
		return nil, errors.New("server: registry is required")
	}

	sign, generated, err := newSigner(opts.Secret)
	if err != nil {
		return nil, err
	}

	tmpl, err := template.New("").Funcs(template.FuncMap{
		"humanBytes": types.FormatSize,
	}).ParseFS(templateFS, "templates/*.html")
	if err != nil {
		return nil, fmt.Errorf("parsing templates: %w", err)
	}

	srv := &Server{
		addr:        opts.Addr,
		registry:    opts.Registry,
		signer:      sign,
		cookieName:  opts.CookieName,
		defaultRoot: opts.DefaultRoot,
		extensions:  opts.Extensions,
		onRoots:     opts.OnRootsChanged,
		tmpl:        tmpl,
		logger:      logging.Get("server"),
	}
	if srv.addr == "" {
		srv.addr = config.DefaultAddr
	}
	if srv.cookieName == "" {
		srv.cookieName = config.DefaultSessionCookie
	}
	if generated {
		srv.logger.Warn("no session secret configured, sessions will not survive a restart")
	}
	return srv, nil
}

// Handler returns the routed handler wrapped in request logging.
func (srv *Server) Handler() http.Handler {
	mux := http.NewServeMux()

	mux.HandleFunc("GET /{$}", srv.handleIndex)
	mux.HandleFunc("GET /image_file", srv.handleImageFile)
	mux.HandleFunc("POST /classify", srv.handleClassify)
	mux.HandleFunc("POST /skip", srv.handleSkip)
	mux.HandleFunc("POST /undo", srv.handleUndo)
	mux.HandleFunc("POST /reconcile", srv.handleReconcile)

	mux.HandleFunc("GET /api/view", srv.handleAPIView)
	mux.HandleFunc("POST /api/classify", srv.handleAPIClassify)
	mux.HandleFunc("POST /api/skip", srv.handleAPISkip)
	mux.HandleFunc("POST /api/undo", srv.handleAPIUndo)
	mux.HandleFunc("POST /api/reconcile", srv.handleAPIReconcile)

	mux.HandleFunc("GET /healthz", func(w http.ResponseWriter, _ *http.Request) {
		w.Header().Set("Content-Type", "text/plain; charset=utf-8")
		_, _ = w.Write([]byte("ok\n"))
	})

	return srv.withLogging(mux)
}

// Run listens on the configured address until ctx is cancelled, then shuts
// down gracefully and persists every live session.
func (srv *Server) Run(ctx context.Context) error {
	ln, err := net.Listen("tcp", srv.addr)
	if err != nil {
		return fmt.Errorf("listening on %s: %w", srv.addr, err)
	}
	return srv.Serve(ctx, ln)
}

// Serve is Run on an existing listener.
func (srv *Server) Serve(ctx context.Context, ln net.Listener) error {
	httpServer := &http.Server{
		Handler:           srv.Handler(),
		ReadHeaderTimeout: 10 * time.Second,
	}

	errCh := make(chan error, 1)
	go func() {
		srv.logger.Info("listening", "addr", ln.Addr().String())
		errCh <- httpServer.Serve(ln)
	}()

	select {
	case err := <-errCh:
		if errors.Is(err, http.ErrServerClosed) {
			err = nil
		}
		return errors.Join(err, srv.registry.SaveAll())

	case <-ctx.Done():
		srv.logger.Info("shutting down")
		shutdownCtx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
		defer cancel()

		err := httpServer.Shutdown(shutdownCtx)
		<-errCh
		return errors.Join(err, srv.registry.SaveAll())
	}
}

func (srv *Server) rootsChanged() {
	if srv.onRoots != nil {
		srv.onRoots(srv.registry.Roots())
	}
}

// Package web serves the desk grid and its booking dialogs as server-rendered HTML.
package web

import (
	"context"
	"embed"
	"errors"
	"html/template"
	"net/http"
	"time"

	"github.com/rs/zerolog"
	"github.com/rs/zerolog/hlog"

	"deskbook/internal/booking"
	"deskbook/internal/calendar"
	"deskbook/internal/models"
)

//go:embed templates/*.html
var templateFS embed.FS

var pageTemplate = template.Must(template.ParseFS(templateFS, "templates/index.html"))

// Directory is the read side of the desk cache.
type Directory interface {
	Desks() []models.Desk
	RefreshedAt() time.Time
	LastError() error
}

// Options configures the HTTP surface.
type Options struct {
	Addr              string
	ReadTimeout       time.Duration
	WriteTimeout      time.Duration
	CookieName        string
	SecureCookie      bool
	RequestsPerMinute int
	Burst             int
	// TrustForwardedFor rate limits by X-Forwarded-For instead of the peer address.
	TrustForwardedFor bool
}

// Server is the deskbook web UI.
type Server struct {
	opts      Options
	workflow  *booking.Workflow
	directory Directory
	sessions  *booking.SessionStore
	clock     calendar.Clock
	limiter   *limiterStore
	logger    *zerolog.Logger
	server    *http.Server
}

// NewServer wires the routes and middleware.
func NewServer(
	opts Options,
	workflow *booking.Workflow,
	directory Directory,
	sessions *booking.SessionStore,
	clock calendar.Clock,
	logger *zerolog.Logger,
) *Server {
	if opts.CookieName == "" {
		opts.CookieName = "deskbook_session"
	}
	s := &Server{
		opts:      opts,
		workflow:  workflow,
		directory: directory,
		sessions:  sessions,
		clock:     clock,
		limiter:   newLimiterStore(opts.RequestsPerMinute, opts.Burst),
		logger:    logger,
	}
	s.limiter.trustForwarded = opts.TrustForwardedFor

	mux := http.NewServeMux()
	mux.HandleFunc("GET /{$}", s.handleIndex)
	mux.HandleFunc("POST /select", s.handleSelect)
	mux.HandleFunc("POST /booking/confirm", s.handleConfirmBooking)
	mux.HandleFunc("POST /cancellation/confirm", s.handleConfirmCancel)
	mux.HandleFunc("POST /dismiss", s.handleDismiss)
	mux.HandleFunc("GET /export.xlsx", s.handleExport)

	var handler http.Handler = mux
	handler = s.withSession(handler)
	handler = s.limiter.middleware(handler)
	handler = hlog.AccessHandler(func(r *http.Request, status, size int, duration time.Duration) {
		hlog.FromRequest(r).Debug().
			Str("method", r.Method).
			Stringer("url", r.URL).
			Int("status", status).
			Int("size", size).
			Dur("duration", duration).
			Msg("request")
	})(handler)
	handler = hlog.RemoteAddrHandler("ip")(handler)
	handler = hlog.NewHandler(*logger)(handler)

	s.server = &http.Server{
		Addr:              opts.Addr,
		Handler:           handler,
		ReadHeaderTimeout: 5 * time.Second,
		ReadTimeout:       opts.ReadTimeout,
		WriteTimeout:      opts.WriteTimeout,
	}
	return s
}

// Handler returns the root handler, for tests.
func (s *Server) Handler() http.Handler { return s.server.Handler }

// CleanupLimiters drops per-client rate limiters idle for longer than idle.
func (s *Server) CleanupLimiters(idle time.Duration) int {
	return s.limiter.cleanup(idle)
}

// Start serves until ctx is done.
func (s *Server) Start(ctx context.Context) error {
	go func() {
		<-ctx.Done()
		ctxShutdown, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		_ = s.server.Shutdown(ctxShutdown)
	}()

	s.logger.Info().Str("addr", s.server.Addr).Msg("Desk booking UI listening")
	if err := s.server.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
		return err
	}
	return nil
}

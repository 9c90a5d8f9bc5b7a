package deskservice

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"strconv"
	"time"

	"github.com/rs/zerolog"
	"github.com/rs/zerolog/hlog"

	"deskbook/internal/models"
)

// BookRequest is the body of POST /desks/book.
type BookRequest struct {
	ID           models.DeskID `json:"id"`
	EmployeeName string        `json:"employee_name"`
	Date         string        `json:"date"`
}

// CancelRequest is the body of DELETE /desks/{id}.
type CancelRequest struct {
	Date string `json:"date"`
}

// Response is returned by the mutating endpoints.
type Response struct {
	Success bool   `json:"success"`
	Error   string `json:"error,omitempty"`
}

// HTTPServer exposes Store over the booking service API.
type HTTPServer struct {
	store  *Store
	apiKey string
	logger *zerolog.Logger
	server *http.Server
}

// NewHTTPServer wires the routes. An empty apiKey disables key checks.
func NewHTTPServer(addr, apiKey string, store *Store, logger *zerolog.Logger) *HTTPServer {
	s := &HTTPServer{store: store, apiKey: apiKey, logger: logger}

	mux := http.NewServeMux()
	mux.HandleFunc("GET /desks", s.handleListDesks)
	mux.HandleFunc("POST /desks/book", s.handleBook)
	mux.HandleFunc("DELETE /desks/{id}", s.handleCancel)
	mux.HandleFunc("GET /healthz", func(w http.ResponseWriter, _ *http.Request) {
		w.WriteHeader(http.StatusOK)
		_, _ = w.Write([]byte("ok"))
	})

	var handler http.Handler = mux
	handler = s.withAPIKey(handler)
	handler = hlog.AccessHandler(func(r *http.Request, status, size int, duration time.Duration) {
		hlog.FromRequest(r).Debug().
			Str("method", r.Method).
			Stringer("url", r.URL).
			Int("status", status).
			Dur("duration", duration).
			Msg("request")
	})(handler)
	handler = hlog.NewHandler(*logger)(handler)

	s.server = &http.Server{
		Addr:              addr,
		Handler:           handler,
		ReadHeaderTimeout: 5 * time.Second,
	}
	return s
}

// Handler returns the root handler, for tests.
func (s *HTTPServer) Handler() http.Handler { return s.server.Handler }

// Start serves until ctx is done.
func (s *HTTPServer) Start(ctx context.Context) error {
	go func() {
		<-ctx.Done()
		ctxShutdown, cancel := context.WithTimeout(context.Background(), 3*time.Second)
		defer cancel()
		_ = s.server.Shutdown(ctxShutdown)
	}()

	s.logger.Info().Str("addr", s.server.Addr).Msg("Desk booking service listening")
	if err := s.server.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
		return err
	}
	return nil
}

func (s *HTTPServer) withAPIKey(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if s.apiKey != "" && r.URL.Path != "/healthz" && r.Header.Get("X-Api-Key") != s.apiKey {
			writeError(w, http.StatusUnauthorized, "invalid api key")
			return
		}
		next.ServeHTTP(w, r)
	})
}

// handleListDesks returns every active desk with its booking map.
// GET /desks
func (s *HTTPServer) handleListDesks(w http.ResponseWriter, r *http.Request) {
	desks, err := s.store.ListDesks(r.Context())
	if err != nil {
		hlog.FromRequest(r).Error().Err(err).Msg("list desks")
		writeError(w, http.StatusInternalServerError, "internal error")
		return
	}
	writeJSON(w, http.StatusOK, desks)
}

// handleBook creates or overwrites a booking.
// POST /desks/book
func (s *HTTPServer) handleBook(w http.ResponseWriter, r *http.Request) {
	var req BookRequest
	decoder := json.NewDecoder(r.Body)
	decoder.DisallowUnknownFields()
	if err := decoder.Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid JSON body")
		return
	}

	deskID, err := strconv.ParseInt(req.ID.String(), 10, 64)
	if err != nil {
		writeError(w, http.StatusBadRequest, "invalid desk id")
		return
	}

	if err := s.store.Book(r.Context(), deskID, req.EmployeeName, req.Date); err != nil {
		s.writeStoreError(w, r, err)
		return
	}

	hlog.FromRequest(r).Info().Int64("desk_id", deskID).Str("date", req.Date).Msg("Desk booked")
	writeJSON(w, http.StatusOK, Response{Success: true})
}

// handleCancel removes a booking.
// DELETE /desks/{id}
func (s *HTTPServer) handleCancel(w http.ResponseWriter, r *http.Request) {
	deskID, err := strconv.ParseInt(r.PathValue("id"), 10, 64)
	if err != nil {
		writeError(w, http.StatusBadRequest, "invalid desk id")
		return
	}

	var req CancelRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid JSON body")
		return
	}

	if err := s.store.Cancel(r.Context(), deskID, req.Date); err != nil {
		s.writeStoreError(w, r, err)
		return
	}

	hlog.FromRequest(r).Info().Int64("desk_id", deskID).Str("date", req.Date).Msg("Booking cancelled")
	writeJSON(w, http.StatusOK, Response{Success: true})
}

func (s *HTTPServer) writeStoreError(w http.ResponseWriter, r *http.Request, err error) {
	switch {
	case errors.Is(err, ErrDeskNotFound):
		writeError(w, http.StatusNotFound, err.Error())
	case errors.Is(err, ErrInvalidDate), errors.Is(err, ErrEmptyName):
		writeError(w, http.StatusBadRequest, err.Error())
	default:
		hlog.FromRequest(r).Error().Err(err).Msg("store error")
		writeError(w, http.StatusInternalServerError, "internal error")
	}
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}

func writeError(w http.ResponseWriter, status int, msg string) {
	writeJSON(w, status, Response{Success: false, Error: msg})
}

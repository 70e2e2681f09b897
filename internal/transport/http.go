package transport

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/rpggio/notebox/internal/codec"
	"github.com/rpggio/notebox/internal/storage"
)

// MaxImportBytes caps the size of an uploaded import document.
const MaxImportBytes = 16 << 20

// Transfer exports and imports one collection.
type Transfer interface {
	Export() ([]byte, error)
	Import(ctx context.Context, data []byte) (codec.Result, error)
}

// Config wires HTTP handlers.
type Config struct {
	// MCP serves the MCP endpoint; nil leaves /mcp unrouted.
	MCP         http.Handler
	Collections map[string]Transfer
	Logger      *slog.Logger
	Now         func() time.Time
}

// Server wires HTTP handlers.
type Server struct {
	collections map[string]Transfer
	logger      *slog.Logger
	now         func() time.Time
}

// NewServer creates an HTTP server router with middleware.
func NewServer(cfg Config) *chi.Mux {
	srv := &Server{
		collections: cfg.Collections,
		logger:      cfg.Logger,
		now:         cfg.Now,
	}
	if srv.now == nil {
		srv.now = time.Now
	}

	r := chi.NewRouter()
	r.Use(middleware.Recoverer)
	r.Use(SessionMiddleware)
	r.Use(srv.logRequests)

	r.Get("/health", srv.handleHealth)
	if cfg.MCP != nil {
		r.Handle("/mcp", cfg.MCP)
		r.Handle("/mcp/*", cfg.MCP)
	}
	r.Route("/collections/{name}", func(r chi.Router) {
		r.Get("/export", srv.handleExport)
		r.Post("/import", srv.handleImport)
	})

	return r
}

func (s *Server) handleHealth(w http.ResponseWriter, _ *http.Request) {
	w.WriteHeader(http.StatusOK)
	_, _ = w.Write([]byte("ok"))
}

func (s *Server) handleExport(w http.ResponseWriter, r *http.Request) {
	name := chi.URLParam(r, "name")
	transfer, ok := s.collections[name]
	if !ok {
		writeJSON(w, http.StatusNotFound, errorBody{Error: fmt.Sprintf("unknown collection %q", name)})
		return
	}

	data, err := transfer.Export()
	if err != nil {
		s.logError(r, "export failed", err)
		writeJSON(w, http.StatusInternalServerError, errorBody{Error: err.Error()})
		return
	}

	w.Header().Set("Content-Type", "application/json")
	w.Header().Set("Content-Disposition", fmt.Sprintf("attachment; filename=%q", codec.FileName(name, s.now())))
	w.WriteHeader(http.StatusOK)
	_, _ = w.Write(data)
}

func (s *Server) handleImport(w http.ResponseWriter, r *http.Request) {
	name := chi.URLParam(r, "name")
	transfer, ok := s.collections[name]
	if !ok {
		writeJSON(w, http.StatusNotFound, errorBody{Error: fmt.Sprintf("unknown collection %q", name)})
		return
	}

	data, err := io.ReadAll(http.MaxBytesReader(w, r.Body, MaxImportBytes))
	if err != nil {
		writeJSON(w, http.StatusRequestEntityTooLarge, codec.Result{Message: fmt.Sprintf("reading upload: %v", err)})
		return
	}

	res, err := transfer.Import(r.Context(), data)
	if err != nil {
		s.logError(r, "import failed", err)
		writeJSON(w, importStatus(err), res)
		return
	}
	writeJSON(w, http.StatusOK, res)
}

func importStatus(err error) int {
	switch {
	case errors.Is(err, codec.ErrInvalidFormat), errors.Is(err, codec.ErrNoValidRecords):
		return http.StatusBadRequest
	case errors.Is(err, storage.ErrQuotaExceeded):
		return http.StatusInsufficientStorage
	default:
		return http.StatusInternalServerError
	}
}

func (s *Server) logRequests(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if s.logger == nil {
			next.ServeHTTP(w, r)
			return
		}
		ww := middleware.NewWrapResponseWriter(w, r.ProtoMajor)
		start := time.Now()
		next.ServeHTTP(ww, r)
		sessionID, _ := SessionIDFromContext(r.Context())
		s.logger.Debug("http request", "method", r.Method, "path", r.URL.Path,
			"status", ww.Status(), "duration", time.Since(start), "session_id", sessionID)
	})
}

func (s *Server) logError(r *http.Request, msg string, err error) {
	if s.logger != nil {
		s.logger.Warn(msg, "path", r.URL.Path, "error", err)
	}
}

package web

import (
	"context"
	"net/http"
	"time"

	"github.com/google/uuid"

	"songpreview/internal/config"
	"songpreview/internal/logger"
	"songpreview/internal/viewmodel"
)

const requestIDHeader = "X-Request-ID"

type Server struct {
	ctx    context.Context
	model  *viewmodel.Model
	config config.Config
	logger *logger.Logger
}

func NewServer(ctx context.Context, model *viewmodel.Model, cfg config.Config, log *logger.Logger) *Server {
	return &Server{
		ctx:    ctx,
		model:  model,
		config: cfg,
		logger: log,
	}
}

func (s *Server) Router() http.Handler {
	mux := http.NewServeMux()

	// API endpoints
	mux.HandleFunc("/api/state", s.handleState)
	mux.HandleFunc("/api/search", s.handleSearch)
	mux.HandleFunc("/api/top", s.handleTop)
	mux.HandleFunc("/api/select", s.handleSelect)
	mux.HandleFunc("/api/resume", s.handleResume)
	mux.HandleFunc("/ws", s.handleWebSocket)

	return s.loggingMiddleware(mux)
}

// loggingMiddleware tags every request with an ID, reusing the caller's
// X-Request-ID when present.
func (s *Server) loggingMiddleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		id := r.Header.Get(requestIDHeader)
		if id == "" {
			id = uuid.NewString()
		}
		w.Header().Set(requestIDHeader, id)

		start := time.Now()
		next.ServeHTTP(w, r)
		s.logger.Debug("%s %s %s (%s)", id, r.Method, r.URL.Path, time.Since(start).Round(time.Microsecond))
	})
}

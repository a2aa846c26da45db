package server

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net"
	"net/http"
	"strconv"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/goccy/go-json"

	"github.com/jpalmerr/fsmpoller/internal/store"
)

const (
	// sseWriteTimeout bounds a single SSE write so that slow or gone
	// clients cannot pin a handler goroutine. Must not exceed shutdownTimeout.
	sseWriteTimeout = 5 * time.Second

	shutdownTimeout = 5 * time.Second

	// defaultLimit is the page size of /api/transitions without ?limit.
	defaultLimit = 100

	defaultTitle = "fsmpoller"
)

// Server serves the watch API.
//
// Routes:
//   - GET /healthz: liveness probe
//   - GET /api/states: current state of every endpoint
//   - GET /api/transitions: recorded transitions, newest first
//   - GET /api/sse: Server-Sent Events stream of new transitions
type Server struct {
	store      store.Store
	port       int
	title      string
	logger     *slog.Logger
	router     chi.Router
	httpServer *http.Server
}

// NewServer creates a new HTTP [Server]. The server is not started until
// [Server.Start] is called. An empty title defaults to "fsmpoller".
func NewServer(st store.Store, port int, title string, logger *slog.Logger) *Server {
	if title == "" {
		title = defaultTitle
	}
	s := &Server{
		store:  st,
		port:   port,
		title:  title,
		logger: logger,
	}
	s.router = s.routes()
	return s
}

func (s *Server) routes() chi.Router {
	r := chi.NewRouter()
	r.Use(middleware.RequestID)
	r.Use(middleware.RealIP)
	r.Use(middleware.Recoverer)

	r.Get("/healthz", s.handleHealth)
	r.Route("/api", func(r chi.Router) {
		r.Get("/states", s.handleStates)
		r.Get("/transitions", s.handleTransitions)
		r.Get("/sse", s.handleSSE)
	})
	return r
}

// Handler returns the server's router.
func (s *Server) Handler() http.Handler {
	return s.router
}

// Start begins serving HTTP requests in a background goroutine.
//
// Start returns once the listener is bound. The server shuts down
// gracefully when ctx is cancelled. Returns an error if the port cannot be
// bound.
func (s *Server) Start(ctx context.Context) error {
	ln, err := net.Listen("tcp", fmt.Sprintf(":%d", s.port))
	if err != nil {
		return fmt.Errorf("failed to bind to port %d: %w", s.port, err)
	}

	s.httpServer = &http.Server{
		Handler:           s.router,
		ReadHeaderTimeout: 10 * time.Second,
		// request contexts derive from ctx so SSE handlers end on shutdown
		BaseContext: func(_ net.Listener) context.Context {
			return ctx
		},
	}

	go func() {
		if err := s.httpServer.Serve(ln); err != nil && !errors.Is(err, http.ErrServerClosed) {
			s.logger.Error("http server error", "error", err)
		}
	}()

	go func() {
		<-ctx.Done()
		shutdownCtx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
		defer cancel()
		if err := s.httpServer.Shutdown(shutdownCtx); err != nil {
			s.logger.Error("http server shutdown error", "error", err)
		}
	}()

	s.logger.Info("http server listening", "port", s.port)
	return nil
}

func (s *Server) handleHealth(w http.ResponseWriter, _ *http.Request) {
	s.writeJSON(w, http.StatusOK, map[string]string{
		"status": "ok",
		"title":  s.title,
	})
}

func (s *Server) handleStates(w http.ResponseWriter, _ *http.Request) {
	s.writeJSON(w, http.StatusOK, s.store.States())
}

// handleTransitions supports ?endpoint=<name> and ?limit=<n>.
func (s *Server) handleTransitions(w http.ResponseWriter, r *http.Request) {
	limit := defaultLimit
	if raw := r.URL.Query().Get("limit"); raw != "" {
		n, err := strconv.Atoi(raw)
		if err != nil || n < 1 {
			s.writeJSON(w, http.StatusBadRequest, map[string]string{
				"error": "limit must be a positive integer",
			})
			return
		}
		limit = n
	}

	transitions := s.store.Transitions(r.URL.Query().Get("endpoint"), limit)
	if transitions == nil {
		transitions = []store.Transition{}
	}
	s.writeJSON(w, http.StatusOK, transitions)
}

func (s *Server) writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.Header().Set("Cache-Control", "no-cache")
	w.WriteHeader(status)

	if err := json.NewEncoder(w).Encode(v); err != nil {
		s.logger.Error("failed to encode response", "error", err)
	}
}

// handleSSE streams transitions via Server-Sent Events.
//
// The current states are sent first as "state" events, then every new
// transition as a "transition" event. Writes carry a deadline so a blocked
// client cannot keep the handler from noticing shutdown.
func (s *Server) handleSSE(w http.ResponseWriter, r *http.Request) {
	if _, ok := w.(http.Flusher); !ok {
		http.Error(w, "SSE not supported", http.StatusInternalServerError)
		return
	}

	rc := http.NewResponseController(w)
	deadlinesSupported := true

	send := func(event string, v any) error {
		data, err := json.Marshal(v)
		if err != nil {
			s.logger.Error("failed to encode sse event", "event", event, "error", err)
			return nil
		}

		if deadlinesSupported {
			if err := rc.SetWriteDeadline(time.Now().Add(sseWriteTimeout)); err != nil {
				s.logger.Warn("sse write deadlines not supported", "error", err)
				deadlinesSupported = false
			}
		}

		if _, err := fmt.Fprintf(w, "event: %s\ndata: %s\n\n", event, data); err != nil {
			return err
		}
		return rc.Flush()
	}

	w.Header().Set("Content-Type", "text/event-stream")
	w.Header().Set("Cache-Control", "no-cache")
	w.Header().Set("Connection", "keep-alive")
	w.Header().Set("Access-Control-Allow-Origin", "*")

	ch := s.store.Subscribe()
	defer s.store.Unsubscribe(ch)

	for _, state := range s.store.States() {
		if err := send("state", state); err != nil {
			return
		}
	}

	for {
		select {
		case t, ok := <-ch:
			if !ok {
				return
			}
			if err := send("transition", t); err != nil {
				return
			}

		case <-r.Context().Done():
			// fires on client disconnect and on server shutdown
			return
		}
	}
}

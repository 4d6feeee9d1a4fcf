package api

import (
	"bufio"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net"
	"net/http"
	"strconv"
	"time"

	"cosmossdk.io/log"
	"github.com/gorilla/mux"

	"github.com/openalpha/yield-vault/api/bot"
	"github.com/openalpha/yield-vault/api/engine"
	"github.com/openalpha/yield-vault/api/handlers"
	"github.com/openalpha/yield-vault/api/middleware"
	"github.com/openalpha/yield-vault/api/websocket"
	"github.com/openalpha/yield-vault/metrics"
)

// Server represents the API server
type Server struct {
	httpServer *http.Server
	config     *Config
	router     *mux.Router

	engine  *engine.Engine
	hub     *websocket.Hub
	bot     *bot.Bot
	metrics *metrics.Collector

	rateLimiter *middleware.RateLimiter

	cancel context.CancelFunc
	logger log.Logger
}

// NewServer builds the engine, websocket hub and keeper bot described by
// config and mounts their routes
func NewServer(config *Config, logger log.Logger) (*Server, error) {
	if config == nil {
		config = DefaultConfig()
	}
	if err := config.Validate(); err != nil {
		return nil, fmt.Errorf("invalid config: %w", err)
	}

	engineConfig, err := config.EngineConfig()
	if err != nil {
		return nil, err
	}
	e, err := engine.New(engineConfig, logger)
	if err != nil {
		return nil, fmt.Errorf("start engine: %w", err)
	}

	collector := metrics.GetCollector()
	s := &Server{
		config:  config,
		engine:  e,
		hub:     websocket.NewHub(e.Journal(), &config.WebSocket, logger, collector),
		metrics: collector,
		logger:  logger.With("module", "api"),
	}
	if !config.Server.DisableRateLimit {
		s.rateLimiter = middleware.NewRateLimiter(&config.RateLimit, collector)
	}

	if config.Keeper.Enabled {
		s.bot = bot.New(e, config.Keeper.Account, collector, logger)
		if err := s.bot.Register(config.Keeper.Schedule); err != nil {
			return nil, err
		}
	}

	e.Subscribe(s.hub.Publish)
	e.Subscribe(s.recordEntries)
	s.recordEntries(nil)

	s.router = s.routes()
	return s, nil
}

// Engine returns the hosted vault engine
func (s *Server) Engine() *engine.Engine { return s.engine }

// Handler returns the HTTP handler with the middleware chain applied:
// CORS -> metrics -> rate limit -> routes
func (s *Server) Handler() http.Handler {
	return corsMiddleware(s.router)
}

func (s *Server) routes() *mux.Router {
	r := mux.NewRouter()
	r.Use(s.metricsMiddleware)
	if s.rateLimiter != nil {
		r.Use(middleware.RateLimitMiddleware(s.rateLimiter))
	}

	r.HandleFunc("/health", s.handleHealth).Methods(http.MethodGet)
	r.HandleFunc("/v1/health", s.handleHealth).Methods(http.MethodGet)
	r.Handle("/metrics", metrics.Handler()).Methods(http.MethodGet)
	r.HandleFunc("/ws", s.hub.ServeWS)

	handlers.NewVaultHandler(s.engine).Register(r.PathPrefix("/v1/vault").Subrouter())
	if s.config.Simulation.Enabled {
		handlers.NewSimulationHandler(s.engine).Register(r.PathPrefix("/v1/sim").Subrouter())
	}
	return r
}

// Start starts the hub and keeper bot, then serves until Stop
func (s *Server) Start() error {
	ctx, cancel := context.WithCancel(context.Background())
	s.cancel = cancel
	go s.hub.Run(ctx)
	if s.bot != nil {
		s.bot.Start()
	}

	addr := fmt.Sprintf("%s:%d", s.config.Server.Host, s.config.Server.Port)
	s.httpServer = &http.Server{
		Addr:         addr,
		Handler:      s.Handler(),
		ReadTimeout:  s.config.Server.ReadTimeout,
		WriteTimeout: s.config.Server.WriteTimeout,
	}

	s.logger.Info("API server starting",
		"addr", addr,
		"simulation", s.config.Simulation.Enabled,
		"keeper_bot", s.bot != nil,
		"rate_limit", s.rateLimiter != nil,
	)
	if err := s.httpServer.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
		return err
	}
	return nil
}

// Stop gracefully shuts down the server
func (s *Server) Stop(ctx context.Context) error {
	if s.bot != nil {
		s.bot.Stop()
	}
	if s.rateLimiter != nil {
		s.rateLimiter.Stop()
	}
	if s.cancel != nil {
		s.cancel()
	}
	if s.httpServer == nil {
		return nil
	}
	return s.httpServer.Shutdown(ctx)
}

// recordEntries counts events and refreshes the pool gauges
func (s *Server) recordEntries(entries []engine.Entry) {
	for _, entry := range entries {
		s.metrics.RecordEvent(entry.Type)
	}
	pool, err := s.engine.Pool()
	if err != nil {
		s.logger.Error("pool metrics", "error", err)
		return
	}
	s.metrics.UpdatePool(pool)
}

// handleHealth handles health check requests
func (s *Server) handleHealth(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, map[string]interface{}{
		"status":     "healthy",
		"timestamp":  time.Now().Unix(),
		"height":     s.engine.Height(),
		"block_time": s.engine.BlockTime(),
		"last_seq":   s.engine.Journal().Latest(),
		"ws_clients": s.hub.GetClientCount(),
		"simulation": s.config.Simulation.Enabled,
	})
}

func writeJSON(w http.ResponseWriter, status int, data interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(data)
}

func corsMiddleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Access-Control-Allow-Origin", "*")
		w.Header().Set("Access-Control-Allow-Methods", "GET, POST, OPTIONS")
		w.Header().Set("Access-Control-Allow-Headers", "Content-Type, Authorization")

		if r.Method == http.MethodOptions {
			w.WriteHeader(http.StatusOK)
			return
		}

		next.ServeHTTP(w, r)
	})
}

// metricsMiddleware records request counts and latency by route template
func (s *Server) metricsMiddleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		timer := metrics.NewTimer()
		rec := &statusRecorder{ResponseWriter: w, status: http.StatusOK}
		next.ServeHTTP(rec, r)

		path := r.URL.Path
		if route := mux.CurrentRoute(r); route != nil {
			if tpl, err := route.GetPathTemplate(); err == nil {
				path = tpl
			}
		}
		s.metrics.RecordAPIRequest(r.Method, path, strconv.Itoa(rec.status), timer.ElapsedMs())
	})
}

type statusRecorder struct {
	http.ResponseWriter
	status int
}

func (r *statusRecorder) WriteHeader(status int) {
	r.status = status
	r.ResponseWriter.WriteHeader(status)
}

// Hijack lets the websocket upgrade take over the connection
func (r *statusRecorder) Hijack() (net.Conn, *bufio.ReadWriter, error) {
	hj, ok := r.ResponseWriter.(http.Hijacker)
	if !ok {
		return nil, nil, fmt.Errorf("response writer does not support hijacking")
	}
	r.status = http.StatusSwitchingProtocols
	return hj.Hijack()
}

package rpc

import (
	"context"
	"net"
	"net/http"
	"os"
	"strconv"
	"time"

	"connectrpc.com/connect"
	"connectrpc.com/otelconnect"
	"github.com/Cogwheel-Validator/spectra-swap-router/swaprouter/config"
	"github.com/Cogwheel-Validator/spectra-swap-router/swaprouter/settlement"
	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/go-chi/httprate"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/rs/zerolog"
	"golang.org/x/net/http2"
	"golang.org/x/net/http2/h2c"
)

var Logger zerolog.Logger

func init() {
	out := zerolog.ConsoleWriter{Out: os.Stderr, TimeFormat: time.RFC3339}
	Logger = zerolog.New(out).With().Timestamp().Str("component", "rpc").Logger()
}

// SetLogger allows setting a custom logger
func SetLogger(l zerolog.Logger) {
	Logger = l
}

// ServerConfig holds configuration for the RPC server
type ServerConfig struct {
	Address               string
	AllowedOrigins        []string
	EnableMetrics         bool
	RatePerMinute         *int
	MaxConcurrentRequests *int
	RequestTimeout        time.Duration
	OTelConfig            *OTelConfig
}

// DefaultServerConfig returns a default server configuration
func DefaultServerConfig() *ServerConfig {
	rateLimit := 300
	concurrent := 100
	return &ServerConfig{
		Address:               "localhost:8080",
		AllowedOrigins:        []string{"http://localhost:3000", "http://localhost:8080"},
		EnableMetrics:         true,
		RatePerMinute:         &rateLimit,
		MaxConcurrentRequests: &concurrent,
		RequestTimeout:        30 * time.Second,
		OTelConfig:            DefaultOTelConfig(),
	}
}

// ServerConfigFromRPC maps the loaded service config onto server settings.
func ServerConfigFromRPC(c *config.RPCConfig) *ServerConfig {
	rate := c.RatePerMinute
	concurrent := c.MaxConcurrentRequests
	return &ServerConfig{
		Address:               net.JoinHostPort(c.Host, strconv.Itoa(c.Port)),
		AllowedOrigins:        c.AllowedOrigins,
		EnableMetrics:         c.EnableMetrics,
		RatePerMinute:         &rate,
		MaxConcurrentRequests: &concurrent,
		RequestTimeout:        time.Duration(c.RequestTimeoutSeconds) * time.Second,
		OTelConfig:            OTelConfigFromRPC(c),
	}
}

// Server wraps the HTTP server and provides lifecycle management
type Server struct {
	config       *ServerConfig
	httpServer   *http.Server
	handler      http.Handler
	hub          *settlement.Hub
	otelShutdown func(context.Context) error
}

// NewServer creates the RPC server. hub may be nil, the settlement stream is
// then not mounted.
func NewServer(
	ctx context.Context,
	cfg *ServerConfig,
	svc *RouterService,
	hub *settlement.Hub,
) (*Server, error) {
	if cfg == nil {
		cfg = DefaultServerConfig()
	}
	if cfg.RequestTimeout <= 0 {
		cfg.RequestTimeout = 30 * time.Second
	}

	var otelShutdown func(context.Context) error
	if cfg.OTelConfig.Enabled() {
		shutdown, err := NewOTelSDK(ctx, cfg.OTelConfig)
		if err != nil {
			Logger.Error().Err(err).Msg("Failed to initialize OpenTelemetry")
			// keep serving without telemetry
		} else {
			otelShutdown = shutdown
		}
	}

	mux := chi.NewMux()
	mux.Use(zerologMiddleware)
	mux.Use(zerologRecoverer)
	mux.Use(middleware.RequestID)
	mux.Use(middleware.RealIP)

	connectOpts := []connect.HandlerOption{
		connect.WithRecover(recoverHandler),
		connect.WithInterceptors(loggingInterceptor(), noCacheInterceptor(), validationInterceptor()),
	}
	if cfg.OTelConfig != nil && cfg.OTelConfig.EnableTracing {
		otelInterceptor, err := otelconnect.NewInterceptor()
		if err != nil {
			Logger.Warn().Err(err).Msg("Failed to create OTEL interceptor, continuing without it")
		} else {
			connectOpts = append(connectOpts, connect.WithInterceptors(otelInterceptor))
		}
	}

	// request/response routes
	mux.Group(func(r chi.Router) {
		r.Use(middleware.Compress(5))
		r.Use(middleware.Timeout(cfg.RequestTimeout))
		if cfg.RatePerMinute != nil && *cfg.RatePerMinute > 0 {
			r.Use(httprate.LimitByIP(*cfg.RatePerMinute, time.Minute))
		}
		if cfg.MaxConcurrentRequests != nil && *cfg.MaxConcurrentRequests > 0 {
			r.Use(middleware.Throttle(*cfg.MaxConcurrentRequests))
		}

		path, handler := svc.Handler(connectOpts...)
		r.Handle(path+"*", handler)

		r.Get("/server/health", func(w http.ResponseWriter, r *http.Request) {
			w.Header().Set("Content-Type", "application/json")
			w.WriteHeader(http.StatusOK)
			_, _ = w.Write([]byte(`{"status":"healthy","service":"swaprouter"}`))
		})
		r.Get("/server/ready", func(w http.ResponseWriter, r *http.Request) {
			if _, err := svc.network.RouterConfig(); err != nil {
				w.Header().Set("Content-Type", "application/json")
				w.WriteHeader(http.StatusServiceUnavailable)
				_, _ = w.Write([]byte(`{"status":"not ready"}`))
				return
			}
			w.Header().Set("Content-Type", "application/json")
			w.WriteHeader(http.StatusOK)
			_, _ = w.Write([]byte(`{"status":"ready"}`))
		})

		if cfg.EnableMetrics || (cfg.OTelConfig != nil && cfg.OTelConfig.UsePrometheus) {
			r.Handle("/server/metrics", promhttp.Handler())
		}
	})

	// long-lived connections stay out of the timeout and compression group
	if hub != nil {
		mux.Handle(StreamPath, newStreamHandler(hub, svc.resolve, cfg.AllowedOrigins))
	}

	handler := newCORSHandler(cfg.AllowedOrigins, mux)

	httpServer := &http.Server{
		Addr:              cfg.Address,
		Handler:           h2c.NewHandler(handler, &http2.Server{}),
		ReadHeaderTimeout: 5 * time.Second,
		ReadTimeout:       30 * time.Second,
		IdleTimeout:       120 * time.Second,
	}

	return &Server{
		config:       cfg,
		httpServer:   httpServer,
		handler:      handler,
		hub:          hub,
		otelShutdown: otelShutdown,
	}, nil
}

// Handler exposes the routed handler, mainly for httptest servers.
func (s *Server) Handler() http.Handler {
	return s.handler
}

// Start begins serving RPC requests without TLS
func (s *Server) Start() error {
	s.logServerInfo("http")
	return s.httpServer.ListenAndServe()
}

// StartTLS begins serving RPC requests with TLS
func (s *Server) StartTLS(certFile, keyFile string) error {
	s.logServerInfo("https")
	return s.httpServer.ListenAndServeTLS(certFile, keyFile)
}

func (s *Server) logServerInfo(protocol string) {
	Logger.Info().
		Str("address", s.config.Address).
		Str("protocol", protocol).
		Msg("Swap router RPC server starting")

	Logger.Info().Msg("Available endpoints:")
	Logger.Info().Msg("\tRPC: /" + ServiceName + "/*")
	Logger.Info().Msg("\tHealth: /server/health")
	Logger.Info().Msg("\tReady: /server/ready")
	if s.hub != nil {
		Logger.Info().Msg("\tSettlements: " + StreamPath)
	}
	if s.config.EnableMetrics || (s.config.OTelConfig != nil && s.config.OTelConfig.UsePrometheus) {
		Logger.Info().Msg("\tMetrics: /server/metrics")
	}
}

// Shutdown stops accepting requests, closes open settlement streams and
// flushes telemetry.
func (s *Server) Shutdown(ctx context.Context) error {
	Logger.Info().Msg("Shutting down RPC server...")

	// hijacked websocket connections are not tracked by http.Server
	if s.hub != nil {
		s.hub.Close()
	}
	if err := s.httpServer.Shutdown(ctx); err != nil {
		Logger.Error().Err(err).Msg("Error shutting down HTTP server")
	}

	if s.otelShutdown != nil {
		if err := s.otelShutdown(ctx); err != nil {
			Logger.Error().Err(err).Msg("Error shutting down OpenTelemetry")
			return err
		}
	}

	Logger.Info().Msg("Server shutdown complete")
	return nil
}

package server

import (
	"context"
	"errors"
	"fmt"
	"net"
	"net/http"
	"strconv"
	"time"

	"github.com/labstack/echo/v4"
	"github.com/labstack/echo/v4/middleware"
	"go.uber.org/zap"
	"golang.org/x/time/rate"

	"github.com/spigell/insurance-advisor/internal/ai"
	"github.com/spigell/insurance-advisor/internal/catalog"
	"github.com/spigell/insurance-advisor/internal/claims"
	"github.com/spigell/insurance-advisor/internal/document"
	"github.com/spigell/insurance-advisor/internal/fraud"
	"github.com/spigell/insurance-advisor/internal/recommend"
	"github.com/spigell/insurance-advisor/internal/session"
)

const defaultShutdownTimeout = 10 * time.Second

type Config struct {
	Host            string        `mapstructure:"host"`
	Port            int           `mapstructure:"port"`
	ShutdownTimeout time.Duration `mapstructure:"shutdown-timeout"`
	// RateLimit is requests per second per client IP. Zero disables limiting.
	RateLimit float64 `mapstructure:"rate-limit"`
}

func (c Config) Address() string {
	return net.JoinHostPort(c.Host, strconv.Itoa(c.Port))
}

// Deps are the collaborators behind the HTTP API. Assistant and Fraud are
// optional; their endpoints answer 503 when unset.
type Deps struct {
	Catalog     *catalog.Catalog
	Recommender *recommend.Service
	Sessions    session.Store
	Extractor   *document.Extractor
	Assistant   ai.Assistant
	Fraud       *fraud.Model
	Claims      *claims.Book
	Logger      *zap.Logger
}

type Server struct {
	cfg    Config
	deps   Deps
	echo   *echo.Echo
	logger *zap.Logger
}

func New(cfg Config, deps Deps) (*Server, error) {
	if deps.Catalog == nil {
		return nil, errors.New("plan catalog is required")
	}
	if deps.Sessions == nil {
		return nil, errors.New("session store is required")
	}
	if deps.Recommender == nil {
		deps.Recommender = recommend.NewService(deps.Catalog, deps.Logger)
	}
	if deps.Extractor == nil {
		deps.Extractor = document.NewExtractor(0)
	}
	if deps.Claims == nil {
		deps.Claims = claims.Builtin()
	}
	if deps.Logger == nil {
		deps.Logger = zap.NewNop()
	}
	if cfg.ShutdownTimeout <= 0 {
		cfg.ShutdownTimeout = defaultShutdownTimeout
	}

	s := &Server{cfg: cfg, deps: deps, logger: deps.Logger}

	e := echo.New()
	e.HideBanner = true
	e.HidePort = true

	e.Use(middleware.Recover())
	e.Use(requestLogger(s.logger))
	if cfg.RateLimit > 0 {
		e.Use(middleware.RateLimiter(middleware.NewRateLimiterMemoryStore(rate.Limit(cfg.RateLimit))))
	}

	s.echo = e
	s.routes()

	return s, nil
}

func (s *Server) routes() {
	e := s.echo

	e.GET("/health", s.health)
	e.GET("/plans", s.listPlans)
	e.POST("/recommendations", s.recommend)

	e.POST("/sessions", s.createSession)
	e.GET("/sessions/:id", s.getSession)
	e.DELETE("/sessions/:id/history", s.clearHistory)
	e.POST("/sessions/:id/document", s.uploadDocument)
	e.POST("/sessions/:id/summary", s.summarize)
	e.POST("/sessions/:id/chat", s.chat)
	e.GET("/sessions/:id/chat/ws", s.chatWebSocket)

	e.POST("/fraud/detect", s.detectFraud)
	e.GET("/claims/guide", s.claimGuide)
}

// Handler exposes the router, mainly for tests.
func (s *Server) Handler() http.Handler {
	return s.echo
}

// Run serves until ctx is cancelled, then shuts down gracefully.
func (s *Server) Run(ctx context.Context) error {
	errCh := make(chan error, 1)
	go func() {
		s.logger.Info("http server listening", zap.String("address", s.cfg.Address()))
		if err := s.echo.Start(s.cfg.Address()); err != nil && !errors.Is(err, http.ErrServerClosed) {
			errCh <- err
		}
		close(errCh)
	}()

	select {
	case err, ok := <-errCh:
		if ok {
			return fmt.Errorf("http server: %w", err)
		}
		return nil
	case <-ctx.Done():
	}

	s.logger.Info("shutting down http server", zap.Duration("timeout", s.cfg.ShutdownTimeout))

	shutdownCtx, cancel := context.WithTimeout(context.Background(), s.cfg.ShutdownTimeout)
	defer cancel()

	if err := s.echo.Shutdown(shutdownCtx); err != nil {
		return fmt.Errorf("shutdown http server: %w", err)
	}
	return nil
}

func requestLogger(logger *zap.Logger) echo.MiddlewareFunc {
	return middleware.RequestLoggerWithConfig(middleware.RequestLoggerConfig{
		LogMethod:    true,
		LogURI:       true,
		LogStatus:    true,
		LogLatency:   true,
		LogRemoteIP:  true,
		LogRequestID: true,
		LogError:     true,
		LogValuesFunc: func(_ echo.Context, v middleware.RequestLoggerValues) error {
			fields := []zap.Field{
				zap.String("method", v.Method),
				zap.String("uri", v.URI),
				zap.Int("status", v.Status),
				zap.Duration("latency", v.Latency),
				zap.String("remote_ip", v.RemoteIP),
			}
			if v.Error != nil {
				fields = append(fields, zap.Error(v.Error))
			}

			switch {
			case v.Status >= http.StatusInternalServerError:
				logger.Error("http request", fields...)
			case v.Status >= http.StatusBadRequest:
				logger.Warn("http request", fields...)
			default:
				logger.Debug("http request", fields...)
			}
			return nil
		},
	})
}

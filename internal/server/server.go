package server

import (
	"context"
	"fmt"
	"log/slog"
	"net/http"
	"time"

	"github.com/gorilla/websocket"
	"github.com/labstack/echo/v4"
	"github.com/labstack/echo/v4/middleware"
	goredis "github.com/redis/go-redis/v9"

	"github.com/wherepulse/wherepulse/internal/broadcast"
	"github.com/wherepulse/wherepulse/internal/config"
	"github.com/wherepulse/wherepulse/internal/coordination"
	"github.com/wherepulse/wherepulse/internal/domain"
	"github.com/wherepulse/wherepulse/internal/presence"
)

const (
	perIPConnectionLimit     = 50
	connectionRatePerSecond  = 10.0
	connectionRateBurst      = 10
	disconnectCleanupTimeout = 2 * time.Second
	clientIdentityCookieName = "wherepulse_client"
)

// Presence widgets embed on arbitrary third-party pages, so any origin
// may connect; the origin itself is what scopes the subscription.
var upgrader = websocket.Upgrader{
	ReadBufferSize:  1024,
	WriteBufferSize: 1024,
	CheckOrigin:     func(r *http.Request) bool { return true },
}

type Server struct {
	echo        *echo.Echo
	config      *config.Config
	writer      *presence.Writer
	broadcaster *broadcast.Broadcaster
	registry    *coordination.InstanceRegistry
	store       domain.PresenceStore
	redisClient *goredis.Client
	limits      *ConnectionLimits
	startTime   time.Time
}

func New(cfg *config.Config, writer *presence.Writer, broadcaster *broadcast.Broadcaster, registry *coordination.InstanceRegistry, store domain.PresenceStore, redisClient *goredis.Client) *Server {
	e := echo.New()
	e.HideBanner = true
	e.HidePort = true

	e.Use(middleware.Logger())
	e.Use(middleware.Recover())

	srv := &Server{
		echo:        e,
		config:      cfg,
		writer:      writer,
		broadcaster: broadcaster,
		registry:    registry,
		store:       store,
		redisClient: redisClient,
		limits:      NewConnectionLimits(cfg.MaxConnections, perIPConnectionLimit, connectionRatePerSecond, connectionRateBurst),
		startTime:   time.Now(),
	}

	srv.registerRoutes()
	return srv
}

func (s *Server) Start() error {
	slog.Info("Starting server", "port", s.config.Port)
	return s.echo.Start(fmt.Sprintf(":%s", s.config.Port))
}

func (s *Server) Shutdown(ctx context.Context) error {
	return s.echo.Shutdown(ctx)
}

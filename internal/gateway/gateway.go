// Package gateway is the public entry point. It rejects malformed requests
// and forwards the rest to the shareit server.
package gateway

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"net/url"
	"strings"
	"time"

	"shareit/internal/config"
	"shareit/internal/models"

	"github.com/labstack/echo/v4"
	"github.com/labstack/echo/v4/middleware"
	"github.com/rs/zerolog"
)

type Gateway struct {
	cfg    config.GatewayConfig
	auth   config.APIAuthConfig
	echo   *echo.Echo
	proxy  echo.MiddlewareFunc
	now    func() time.Time
	logger *zerolog.Logger
}

func New(cfg config.GatewayConfig, auth config.APIAuthConfig, logger *zerolog.Logger) (*Gateway, error) {
	target, err := url.Parse(cfg.ServerURL)
	if err != nil || target.Scheme == "" || target.Host == "" {
		return nil, fmt.Errorf("invalid gateway server_url %q", cfg.ServerURL)
	}
	if cfg.DefaultPageSize <= 0 {
		cfg.DefaultPageSize = models.DefaultGatewayPageSize
	}
	if logger == nil {
		nop := zerolog.Nop()
		logger = &nop
	}

	g := &Gateway{
		cfg:    cfg,
		auth:   auth,
		echo:   echo.New(),
		now:    time.Now,
		logger: logger,
	}
	g.proxy = middleware.ProxyWithConfig(middleware.ProxyConfig{
		Balancer: middleware.NewRoundRobinBalancer([]*middleware.ProxyTarget{{Name: "server", URL: target}}),
	})

	g.echo.HideBanner = true
	g.echo.HidePort = true
	g.echo.Use(middleware.Recover())
	g.echo.Use(middleware.RequestID())
	g.echo.Use(g.requestLogger())
	g.routes()
	return g, nil
}

func (g *Gateway) routes() {
	e := g.echo
	e.GET("/healthz", func(c echo.Context) error {
		return c.JSON(http.StatusOK, map[string]string{"status": "ok"})
	})

	e.POST("/users", forwarded, g.validateUserCreate, g.forward)
	e.GET("/users", forwarded, g.forward)
	e.GET("/users/:id", forwarded, g.validatePathID, g.forward)
	e.PATCH("/users/:id", forwarded, g.validatePathID, g.validateUserPatch, g.forward)
	e.DELETE("/users/:id", forwarded, g.validatePathID, g.forward)

	e.POST("/items", forwarded, g.requireUser, g.validateItemCreate, g.forward)
	e.GET("/items", forwarded, g.requireUser, g.validatePage, g.forward)
	e.GET("/items/search", forwarded, g.validatePage, g.validateSearch, g.forward)
	e.GET("/items/:id", forwarded, g.requireUser, g.validatePathID, g.forward)
	e.PATCH("/items/:id", forwarded, g.requireUser, g.validatePathID, g.forward)
	e.DELETE("/items/:id", forwarded, g.requireUser, g.validatePathID, g.forward)
	e.POST("/items/:id/comment", forwarded, g.requireUser, g.validatePathID, g.validateComment, g.forward)

	e.POST("/bookings", forwarded, g.requireUser, g.validateBooking, g.forward)
	e.GET("/bookings", forwarded, g.requireUser, g.validateState, g.validatePage, g.forward)
	e.GET("/bookings/owner", forwarded, g.requireUser, g.validateState, g.validatePage, g.forward)
	e.GET("/bookings/owner/export", forwarded, g.requireUser, g.validateState, g.forward)
	e.GET("/bookings/:id", forwarded, g.requireUser, g.validatePathID, g.forward)
	e.PATCH("/bookings/:id", forwarded, g.requireUser, g.validatePathID, g.validateApproval, g.forward)

	e.POST("/requests", forwarded, g.requireUser, g.validateRequest, g.forward)
	e.GET("/requests", forwarded, g.requireUser, g.forward)
	e.GET("/requests/all", forwarded, g.requireUser, g.validatePage, g.forward)
	e.GET("/requests/:id", forwarded, g.requireUser, g.validatePathID, g.forward)
}

// forwarded is the terminal handler behind the proxy middleware and is never reached.
func forwarded(c echo.Context) error {
	return echo.NewHTTPError(http.StatusBadGateway, "request was not forwarded")
}

// forward adds the service credentials and hands the request to the proxy.
func (g *Gateway) forward(next echo.HandlerFunc) echo.HandlerFunc {
	proxied := g.proxy(next)
	return func(c echo.Context) error {
		req := c.Request()
		if g.cfg.APIKey != "" {
			req.Header.Set(headerOrDefault(g.auth.HeaderAPIKey, "x-api-key"), g.cfg.APIKey)
			req.Header.Set(headerOrDefault(g.auth.HeaderExtra, "x-api-extra"), g.cfg.APIExtra)
		}
		return proxied(c)
	}
}

func headerOrDefault(h, def string) string {
	if h = strings.TrimSpace(h); h != "" {
		return h
	}
	return def
}

func (g *Gateway) requestLogger() echo.MiddlewareFunc {
	return middleware.RequestLoggerWithConfig(middleware.RequestLoggerConfig{
		LogMethod:    true,
		LogURI:       true,
		LogStatus:    true,
		LogLatency:   true,
		LogRequestID: true,
		LogError:     true,
		LogValuesFunc: func(_ echo.Context, v middleware.RequestLoggerValues) error {
			event := g.logger.Info()
			if v.Error != nil {
				event = g.logger.Warn().Err(v.Error)
			}
			event.
				Str("request_id", v.RequestID).
				Str("method", v.Method).
				Str("uri", v.URI).
				Int("status", v.Status).
				Dur("duration", v.Latency).
				Msg("gateway request")
			return nil
		},
	})
}

// Handler exposes the router, mainly for tests.
func (g *Gateway) Handler() http.Handler {
	return g.echo
}

func (g *Gateway) Start() error {
	addr := fmt.Sprintf(":%d", g.cfg.Port)
	g.logger.Info().Str("addr", addr).Str("server_url", g.cfg.ServerURL).Msg("Gateway listening")
	if err := g.echo.Start(addr); err != nil && !errors.Is(err, http.ErrServerClosed) {
		return err
	}
	return nil
}

func (g *Gateway) Shutdown(ctx context.Context) error {
	return g.echo.Shutdown(ctx)
}

// Package http binds the redirect instrumentation to Echo and serves a small
// demo storefront that exercises it.
package http

import (
	"context"
	"fmt"
	"net/http"
	"time"

	"github.com/fyrsmithlabs/debugredirect/internal/hooks"
	"github.com/fyrsmithlabs/debugredirect/internal/logging"
	"github.com/fyrsmithlabs/debugredirect/internal/telemetry"
	"github.com/google/uuid"
	"github.com/labstack/echo/v4"
	"github.com/labstack/echo/v4/middleware"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"go.uber.org/zap"
)

// Storefront paths.
const (
	PathHome      = "/"
	PathCart      = "/checkout/cart"
	PathLogin     = "/customer/account/login"
	PathLoginPost = "/customer/account/loginPost"
	PathAdmin     = "/admin/dashboard"
	PathProduct   = "/catalog/product/view/:id"
)

// SessionCookie marks a logged-in customer.
const SessionCookie = "customer_session"

// Server serves the demo storefront.
type Server struct {
	echo    *echo.Echo
	binding *Binding
	logger  *logging.Logger
	config  *Config
}

// Config holds HTTP server configuration.
type Config struct {
	Host string
	Port int
}

// NewServer creates a storefront whose requests run through registry's
// extension points. tel may be nil, in which case the global providers are
// used.
func NewServer(registry *hooks.Registry, logger *logging.Logger, cfg *Config, tel *telemetry.Telemetry) (*Server, error) {
	if registry == nil {
		return nil, fmt.Errorf("hook registry cannot be nil")
	}
	if logger == nil {
		return nil, fmt.Errorf("logger is required for request tracking and debugging")
	}
	if cfg == nil {
		cfg = &Config{
			Host: "localhost",
			Port: 9090,
		}
	}

	e := echo.New()
	e.HideBanner = true
	e.HidePort = true

	s := &Server{
		echo:    e,
		binding: NewBinding(e, registry),
		logger:  logger,
		config:  cfg,
	}

	e.Use(middleware.Recover())
	e.Use(middleware.RequestIDWithConfig(middleware.RequestIDConfig{
		Generator: uuid.NewString,
	}))
	e.Use(TracingMiddleware(tel.Tracer(httpInstrumentationName)))
	e.Use(NewHTTPMetrics(tel.MeterProvider(), logger.Underlying()).MetricsMiddleware())
	e.Use(s.accessLog)
	e.Use(s.binding.Middleware())

	s.registerRoutes()

	return s, nil
}

func (s *Server) accessLog(next echo.HandlerFunc) echo.HandlerFunc {
	return func(c echo.Context) error {
		start := time.Now()
		err := next(c)

		s.logger.Info(c.Request().Context(), "http request",
			zap.String("method", c.Request().Method),
			zap.String("uri", c.Request().RequestURI),
			zap.Int("status", c.Response().Status),
			zap.Duration("duration", time.Since(start)),
		)

		return err
	}
}

func (s *Server) registerRoutes() {
	s.route(http.MethodGet, PathHome, "cms_index_index", s.handleHome)
	s.route(http.MethodGet, PathCart, "checkout_cart_index", s.handleCart)
	s.route(http.MethodGet, PathLogin, "customer_account_login", s.handleLogin)
	s.route(http.MethodPost, PathLoginPost, "customer_account_loginPost", s.handleLoginPost)
	s.route(http.MethodGet, PathAdmin, "", s.handleAdmin)
	s.route(http.MethodGet, PathProduct, "catalog_product_view", s.handleProduct)

	s.echo.GET("/health", s.handleHealth)
	s.echo.GET("/metrics", echo.WrapHandler(promhttp.Handler()))
}

func (s *Server) route(method, path, name string, h echo.HandlerFunc) {
	r := s.echo.Add(method, path, h)
	if name != "" {
		r.Name = name
	}
}

// Handler returns the server's http.Handler.
func (s *Server) Handler() http.Handler {
	return s.echo
}

// Binding returns the binding handlers use for explicit redirects.
func (s *Server) Binding() *Binding {
	return s.binding
}

// PageResponse is the body of the storefront pages.
type PageResponse struct {
	Page string `json:"page"`
}

// ProductResponse is the response body for GET /catalog/product/view/:id.
type ProductResponse struct {
	ID string `json:"id"`
}

// HealthResponse is the response body for GET /health.
type HealthResponse struct {
	Status string `json:"status"`
}

func (s *Server) handleHome(c echo.Context) error {
	return c.JSON(http.StatusOK, PageResponse{Page: "home"})
}

// handleCart sends anonymous customers to the login page.
func (s *Server) handleCart(c echo.Context) error {
	if !loggedIn(c) {
		return s.binding.Redirect(c, http.StatusFound, PathLogin)
	}
	return c.JSON(http.StatusOK, PageResponse{Page: "cart"})
}

func (s *Server) handleLogin(c echo.Context) error {
	return c.JSON(http.StatusOK, PageResponse{Page: "login"})
}

// handleLoginPost starts a session and returns the customer to the cart.
// The redirect is written directly, so only before_send_response sees it.
func (s *Server) handleLoginPost(c echo.Context) error {
	if c.FormValue("login") == "" || c.FormValue("password") == "" {
		return echo.NewHTTPError(http.StatusBadRequest, "login and password are required")
	}
	c.SetCookie(&http.Cookie{
		Name:     SessionCookie,
		Value:    uuid.NewString(),
		Path:     "/",
		HttpOnly: true,
	})
	return c.Redirect(http.StatusSeeOther, PathCart)
}

func (s *Server) handleAdmin(c echo.Context) error {
	if !loggedIn(c) {
		return s.binding.Redirect(c, http.StatusFound, PathLogin)
	}
	return c.JSON(http.StatusOK, PageResponse{Page: "admin"})
}

func (s *Server) handleProduct(c echo.Context) error {
	return c.JSON(http.StatusOK, ProductResponse{ID: c.Param("id")})
}

func (s *Server) handleHealth(c echo.Context) error {
	return c.JSON(http.StatusOK, HealthResponse{Status: "ok"})
}

func loggedIn(c echo.Context) bool {
	cookie, err := c.Cookie(SessionCookie)
	return err == nil && cookie.Value != ""
}

// Start starts the HTTP server.
func (s *Server) Start() error {
	addr := fmt.Sprintf("%s:%d", s.config.Host, s.config.Port)
	s.logger.Info(context.Background(), "starting http server", zap.String("addr", addr))
	return s.echo.Start(addr)
}

// Shutdown gracefully shuts down the server.
func (s *Server) Shutdown(ctx context.Context) error {
	s.logger.Info(ctx, "shutting down http server")
	return s.echo.Shutdown(ctx)
}

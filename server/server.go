// Package server exposes personas, special nodes, systems, execution and
// live editor sessions over HTTP.
package server

import (
	"context"
	"errors"
	"time"

	"github.com/go-playground/validator/v10"
	"github.com/gofiber/fiber/v3"
	"github.com/meikuraledutech/flowgraph"
	"github.com/meikuraledutech/flowgraph/canvas"
	"github.com/meikuraledutech/flowgraph/runner"
	"github.com/meikuraledutech/flowgraph/session"
	"github.com/prometheus/client_golang/prometheus"
	"go.uber.org/zap"
)

// Server wires a store, a runner and a session manager to a fiber app.
type Server struct {
	app      *fiber.App
	store    flowgraph.Store
	runner   flowgraph.Runner
	sessions *session.Manager
	logger   *zap.Logger
	metrics  *Metrics
	validate *validator.Validate
}

type Config struct {
	ReadTimeout  time.Duration
	WriteTimeout time.Duration
}

// New builds the app and registers every route. A nil registry gets a
// fresh private one.
func New(store flowgraph.Store, run flowgraph.Runner, sessions *session.Manager, cfg Config, reg *prometheus.Registry, logger *zap.Logger) *Server {
	if reg == nil {
		reg = prometheus.NewRegistry()
	}
	s := &Server{
		app: fiber.New(fiber.Config{
			ReadTimeout:  cfg.ReadTimeout,
			WriteTimeout: cfg.WriteTimeout,
		}),
		store:    store,
		runner:   run,
		sessions: sessions,
		logger:   logger.With(zap.String("component", "server")),
		metrics:  NewMetrics(reg, sessions.Len),
		validate: validator.New(),
	}

	s.app.Use(s.observe)
	s.app.Get("/health", func(c fiber.Ctx) error {
		return c.JSON(fiber.Map{"status": "healthy", "service": "flowgraph"})
	})
	s.app.Get("/metrics", s.metrics.Handler(reg))

	api := s.app.Group("/api")
	s.catalogRoutes(api)
	s.systemRoutes(api)
	s.sessionRoutes(api)
	return s
}

// App returns the underlying fiber app, mainly for app.Test.
func (s *Server) App() *fiber.App { return s.app }

func (s *Server) Listen(addr string) error {
	s.logger.Info("listening", zap.String("addr", addr))
	return s.app.Listen(addr, fiber.ListenConfig{DisableStartupMessage: true})
}

func (s *Server) Shutdown(ctx context.Context) error {
	return s.app.ShutdownWithContext(ctx)
}

// observe logs and counts every request.
func (s *Server) observe(c fiber.Ctx) error {
	start := time.Now()
	err := c.Next()
	status := c.Response().StatusCode()
	if err != nil {
		var fe *fiber.Error
		if errors.As(err, &fe) {
			status = fe.Code
		} else {
			status = fiber.StatusInternalServerError
		}
	}
	route := c.Route().Path
	elapsed := time.Since(start)

	s.metrics.observeRequest(c.Method(), route, status, elapsed)
	s.logger.Debug("request",
		zap.String("method", c.Method()),
		zap.String("path", c.Path()),
		zap.Int("status", status),
		zap.Duration("elapsed", elapsed),
	)
	return err
}

// fail writes {"error": ...} with the status err maps to.
func (s *Server) fail(c fiber.Ctx, err error) error {
	status := statusFor(err)
	if status == fiber.StatusInternalServerError {
		s.logger.Error("request failed", zap.String("path", c.Path()), zap.Error(err))
	}
	return c.Status(status).JSON(fiber.Map{"error": err.Error()})
}

func statusFor(err error) int {
	switch {
	case errors.Is(err, flowgraph.ErrPersonaNotFound),
		errors.Is(err, flowgraph.ErrSystemNotFound),
		errors.Is(err, session.ErrNotFound),
		errors.Is(err, session.ErrClosed),
		errors.Is(err, canvas.ErrNodeNotFound),
		errors.Is(err, canvas.ErrEdgeNotFound):
		return fiber.StatusNotFound
	case errors.Is(err, flowgraph.ErrPersonaExists),
		errors.Is(err, flowgraph.ErrSystemExists),
		errors.Is(err, session.ErrBusy),
		errors.Is(err, session.ErrStale):
		return fiber.StatusConflict
	case errors.Is(err, flowgraph.ErrInvalidGraph),
		session.IsValidation(err):
		return fiber.StatusUnprocessableEntity
	case errors.Is(err, errInvalidBody),
		errors.Is(err, canvas.ErrUnknownCommand),
		errors.Is(err, canvas.ErrInvalidCommand),
		errors.Is(err, runner.ErrNoNodes),
		errors.Is(err, runner.ErrNoTasks):
		return fiber.StatusBadRequest
	case errors.As(err, new(validator.ValidationErrors)):
		return fiber.StatusBadRequest
	}
	return fiber.StatusInternalServerError
}

var errInvalidBody = errors.New("invalid body")

// bind decodes the JSON body into v and validates its struct tags.
func (s *Server) bind(c fiber.Ctx, v any) error {
	if err := c.Bind().JSON(v); err != nil {
		return errInvalidBody
	}
	return s.validate.Struct(v)
}

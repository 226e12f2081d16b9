package http

import (
	"context"
	"net/http"

	"github.com/labstack/echo/v4"
	"github.com/labstack/echo/v4/middleware"
	handlers "github.com/wekeepgrowing/stripe-cpq-connector/internal/adapter/handler/http"
	"github.com/wekeepgrowing/stripe-cpq-connector/internal/config"
	"github.com/wekeepgrowing/stripe-cpq-connector/internal/middleware/auth"
	pkgErrors "github.com/wekeepgrowing/stripe-cpq-connector/pkg/errors"
	"github.com/wekeepgrowing/stripe-cpq-connector/pkg/logger"
	"go.uber.org/zap"
)

type Server struct {
	config      *config.Config
	logger      *zap.Logger
	echo        *echo.Echo
	translation handlers.TranslationUsecase
	connections auth.ConnectionLookup
}

func NewServer(cfg *config.Config, log *zap.Logger, translation handlers.TranslationUsecase, connections auth.ConnectionLookup) *Server {
	e := echo.New()
	e.HideBanner = true
	e.HidePort = true

	logger.WithEchoLogger(e, log)
	e.HTTPErrorHandler = errorHandler(log)

	e.Use(middleware.Recover())
	e.Use(middleware.RequestID())
	e.Use(logger.NewEchoRequestLogger(log))

	s := &Server{
		config:      cfg,
		logger:      log,
		echo:        e,
		translation: translation,
		connections: connections,
	}
	s.setupRoutes()
	return s
}

func (s *Server) Start() error {
	addr := s.config.Server.HTTP.Address()
	s.logger.Info("Starting HTTP server", zap.String("address", addr))

	if err := s.echo.Start(addr); err != nil && err != http.ErrServerClosed {
		return err
	}
	return nil
}

func (s *Server) Shutdown(ctx context.Context) error {
	return s.echo.Shutdown(ctx)
}

// Handler exposes the router for in-process tests
func (s *Server) Handler() http.Handler {
	return s.echo
}

func (s *Server) setupRoutes() {
	s.echo.GET("/health", func(c echo.Context) error {
		return c.JSON(http.StatusOK, map[string]string{
			"status":  "healthy",
			"service": s.config.Service.Name,
		})
	})

	jwtConfig := auth.JWTConfig{
		Secret:      s.config.Service.JWTSecret,
		Logger:      s.logger,
		Connections: s.connections,
		SkipPaths:   []string{"/health"},
	}

	v1 := s.echo.Group("/api/v1", auth.JWTMiddleware(jwtConfig))
	handlers.NewTranslateHandler(s.translation, s.logger).RegisterRoutes(v1)
}

// errorHandler renders errors no handler answered in the API's {error, code} shape
func errorHandler(log *zap.Logger) echo.HTTPErrorHandler {
	return func(err error, c echo.Context) {
		if c.Response().Committed {
			return
		}

		var httpErr *echo.HTTPError
		if pkgErrors.As(err, &httpErr) {
			if body, ok := httpErr.Message.(echo.Map); ok {
				if err := c.JSON(httpErr.Code, body); err != nil {
					log.Error("Failed to write error response", zap.Error(err))
				}
				return
			}
		}

		appErr := pkgErrors.FromHTTPError(err)
		code := pkgErrors.CodeOf(appErr)
		message := appErr.Error()
		var coded *pkgErrors.AppError
		if pkgErrors.As(appErr, &coded) {
			message = coded.Message()
		}
		if code == pkgErrors.ErrInternal {
			pkgErrors.LogError(log, err, "Unhandled request error", zap.String("path", c.Path()))
			message = "Internal error"
		}

		if err := c.JSON(pkgErrors.ToHTTPStatus(code), echo.Map{
			"error": message,
			"code":  code,
		}); err != nil {
			log.Error("Failed to write error response", zap.Error(err))
		}
	}
}

// routes.go - Route and middleware registration
package api

import (
	"net/http"
	"strings"
	"time"

	"github.com/labstack/echo/v4"
	"github.com/labstack/echo/v4/middleware"
	"go.uber.org/zap"

	"github.com/format-smormat/backend/internal/config"
)

// Dependencies holds all handler dependencies
type Dependencies struct {
	Store         RecordStore
	Intake        Intake
	Logger        *zap.Logger
	Version       string
	MaxUploadSize int64
}

// Handlers holds all handler instances
type Handlers struct {
	Health    HealthHandler
	Convert   ConvertHandler
	Records   RecordHandler
	WebSocket *WebSocketHandler
}

// NewHandlers creates all handler instances
func NewHandlers(deps *Dependencies) *Handlers {
	return &Handlers{
		Health:    NewHealthHandler(deps.Version, deps.Store),
		Convert:   NewConvertHandler(deps.Intake, deps.Logger),
		Records:   NewRecordHandler(deps.Store),
		WebSocket: NewWebSocketHandler(deps.Store, deps.Intake, deps.MaxUploadSize, deps.Logger),
	}
}

// RegisterRoutes registers all API routes with the Echo instance
func RegisterRoutes(e *echo.Echo, handlers *Handlers) {
	apiGroup := e.Group("/api")

	apiGroup.GET("/health", handlers.Health.HandleHealth)

	apiGroup.POST("/convert", handlers.Convert.HandleConvert)
	apiGroup.POST("/convert/json", handlers.Convert.HandleConvertJSON)

	recordGroup := apiGroup.Group("/records")
	recordGroup.GET("", handlers.Records.HandleListRecords)
	recordGroup.DELETE("", handlers.Records.HandleClearRecords)
	recordGroup.GET("/msgpack", handlers.Records.HandleListRecordsMsgpack)
	recordGroup.GET("/:id", handlers.Records.HandleGetRecord)
	recordGroup.DELETE("/:id", handlers.Records.HandleDeleteRecord)
	recordGroup.GET("/:id/status", handlers.Records.HandleRecordStatusStream)
	recordGroup.GET("/:id/preview", handlers.Records.HandlePreview)
	recordGroup.GET("/:id/download", handlers.Records.HandleDownload)

	apiGroup.GET("/ws/records", handlers.WebSocket.HandleWebSocket)
}

// SetupMiddleware configures the error handler and common middleware
func SetupMiddleware(e *echo.Echo, cfg *config.AppConfig, logger *zap.Logger) {
	e.HTTPErrorHandler = ErrorHandler

	if cfg.Advanced.EnableRequestLogging {
		e.Use(RequestLogger(logger))
	}

	e.Use(middleware.RecoverWithConfig(middleware.RecoverConfig{
		StackSize: 4 << 10,
		LogErrorFunc: func(c echo.Context, err error, stack []byte) error {
			logger.Error("handler panicked",
				zap.String("uri", c.Request().RequestURI),
				zap.Error(err),
				zap.ByteString("stack", stack))
			return err
		},
	}))

	if cfg.Advanced.EnableCompression {
		e.Use(middleware.GzipWithConfig(middleware.GzipConfig{
			Level:   cfg.Advanced.CompressionLevel,
			Skipper: isStreaming,
		}))
	}

	if cfg.Server.BodyLimit != "" {
		e.Use(middleware.BodyLimit(cfg.Server.BodyLimit))
	}

	if cfg.Server.EnableCORS {
		e.Use(middleware.CORSWithConfig(middleware.CORSConfig{
			AllowOrigins:  cfg.Server.Origins(),
			AllowMethods:  []string{http.MethodGet, http.MethodPost, http.MethodDelete, http.MethodOptions},
			AllowHeaders:  []string{echo.HeaderOrigin, echo.HeaderContentType, echo.HeaderAccept},
			ExposeHeaders: []string{echo.HeaderContentDisposition},
		}))
	}
}

// RequestLogger writes one zap line per request. Health checks, status
// streams and websocket upgrades are skipped.
func RequestLogger(logger *zap.Logger) echo.MiddlewareFunc {
	log := logger.Named("http")
	return middleware.RequestLoggerWithConfig(middleware.RequestLoggerConfig{
		Skipper: func(c echo.Context) bool {
			return c.Request().URL.Path == "/api/health" || isStreaming(c)
		},
		LogMethod:   true,
		LogURI:      true,
		LogStatus:   true,
		LogLatency:  true,
		LogRemoteIP: true,
		LogError:    true,
		HandleError: true,
		LogValuesFunc: func(c echo.Context, v middleware.RequestLoggerValues) error {
			fields := []zap.Field{
				zap.String("method", v.Method),
				zap.String("uri", v.URI),
				zap.Int("status", v.Status),
				zap.Duration("latency", v.Latency.Round(time.Microsecond)),
				zap.String("remote", v.RemoteIP),
			}
			if v.Error != nil {
				log.Warn("request failed", append(fields, zap.Error(v.Error))...)
				return nil
			}
			log.Info("request", fields...)
			return nil
		},
	})
}

func isStreaming(c echo.Context) bool {
	path := c.Request().URL.Path
	return strings.HasSuffix(path, "/status") ||
		strings.HasPrefix(path, "/api/ws/") ||
		c.Request().Header.Get(echo.HeaderAccept) == "text/event-stream"
}

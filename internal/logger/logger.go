// Package logger configures the process-wide zap logger and the per-request
// access log middleware.
package logger

import (
	"time"

	"github.com/labstack/echo/v4"
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
)

// LogConfig holds logger configuration
type LogConfig struct {
	Level       string
	Environment string
	ServiceName string
}

var log = zap.NewNop()

// InitLogger builds the global logger.  Production gets JSON with ISO8601
// timestamps, everything else the colored development console encoder.
func InitLogger(config *LogConfig) error {
	level, err := zapcore.ParseLevel(config.Level)
	if err != nil {
		level = zapcore.InfoLevel
	}

	fields := zap.Fields(
		zap.String("service", config.ServiceName),
		zap.String("environment", config.Environment),
	)
	var built *zap.Logger
	if config.Environment == "production" {
		prodConfig := zap.NewProductionConfig()
		prodConfig.Level = zap.NewAtomicLevelAt(level)
		prodConfig.EncoderConfig.TimeKey = "timestamp"
		prodConfig.EncoderConfig.EncodeTime = zapcore.ISO8601TimeEncoder
		built, err = prodConfig.Build(fields)
	} else {
		devConfig := zap.NewDevelopmentConfig()
		devConfig.Level = zap.NewAtomicLevelAt(level)
		devConfig.EncoderConfig.EncodeLevel = zapcore.CapitalColorLevelEncoder
		built, err = devConfig.Build(fields)
	}
	if err != nil {
		return err
	}

	log = built
	zap.ReplaceGlobals(log)
	return nil
}

// GetLogger returns the global logger instance, a no-op logger before
// InitLogger ran.
func GetLogger() *zap.Logger {
	return log
}

// Middleware logs one line per request and stores a request-scoped logger
// under "logger".  It expects the request id middleware to run first.
func Middleware() echo.MiddlewareFunc {
	return func(next echo.HandlerFunc) echo.HandlerFunc {
		return func(c echo.Context) error {
			start := time.Now()

			requestID := c.Response().Header().Get(echo.HeaderXRequestID)
			ctxLogger := log.With(zap.String("request_id", requestID))
			c.Set("logger", ctxLogger)

			err := next(c)
			if err != nil {
				// Let echo write the response now so the status below is final.
				c.Error(err)
			}

			fields := []zap.Field{
				zap.String("method", c.Request().Method),
				zap.String("path", c.Request().URL.Path),
				zap.Int("status", c.Response().Status),
				zap.Duration("latency", time.Since(start)),
				zap.String("ip", c.RealIP()),
			}
			// Identity fields are filled in by later middleware.
			if tenant, ok := c.Get("tenant_code").(string); ok && tenant != "" {
				fields = append(fields, zap.String("tenant", tenant))
			}
			if uid, ok := c.Get("user_id").(int64); ok {
				fields = append(fields, zap.Int64("user_id", uid))
			}
			ctxLogger.Info("HTTP Request", fields...)
			return nil
		}
	}
}

package logging

import (
	"io"
	"os"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"

	"github.com/trustrail/trustrail/internal/config"
)

// Setup initializes the global logger based on configuration
func Setup(cfg *config.LoggingConfig, env string) {
	level, err := zerolog.ParseLevel(cfg.Level)
	if err != nil {
		level = zerolog.InfoLevel
	}
	zerolog.SetGlobalLevel(level)

	zerolog.TimeFieldFormat = time.RFC3339Nano

	var output io.Writer
	if cfg.Format == "json" || env == "production" {
		output = os.Stdout
	} else {
		// Pretty console output for development
		output = zerolog.ConsoleWriter{
			Out:        os.Stdout,
			TimeFormat: "15:04:05",
			NoColor:    false,
		}
	}

	log.Logger = zerolog.New(output).
		With().
		Timestamp().
		Str("service", "trustrail").
		Logger()
}

// NewLogger creates a new logger with additional context
func NewLogger(component string) zerolog.Logger {
	return log.Logger.With().Str("component", component).Logger()
}

// RequestLogger is a Gin middleware for structured request logging
func RequestLogger() gin.HandlerFunc {
	return func(c *gin.Context) {
		start := time.Now()
		path := c.Request.URL.Path
		raw := c.Request.URL.RawQuery

		c.Next()

		latency := time.Since(start)
		requestID, _ := c.Get("request_id")
		reqIDStr, _ := requestID.(string)

		event := log.Info()
		if c.Writer.Status() >= 500 {
			event = log.Error()
		} else if c.Writer.Status() >= 400 {
			event = log.Warn()
		}

		event.
			Str("request_id", reqIDStr).
			Str("method", c.Request.Method).
			Str("path", path).
			Str("query", raw).
			Int("status", c.Writer.Status()).
			Dur("latency", latency).
			Str("client_ip", c.ClientIP()).
			Str("user_agent", c.Request.UserAgent()).
			Int("body_size", c.Writer.Size()).
			Msg("HTTP request")
	}
}

// LogReviewCreated logs a review submission, original or update
func LogReviewCreated(reviewID, userID, businessID string, isUpdate bool, updateNumber int) {
	log.Info().
		Str("review_id", reviewID).
		Str("user_id", userID).
		Str("business_id", businessID).
		Bool("is_update", isUpdate).
		Int("update_number", updateNumber).
		Msg("Review created")
}

// LogProofEvent logs a proof lifecycle event on a review
func LogProofEvent(reviewID, adminID, action string) {
	event := log.Info().
		Str("review_id", reviewID).
		Str("action", action)
	if adminID != "" {
		event = event.Str("admin_id", adminID)
	}
	event.Msg("Proof event")
}

// LogIdentityEvent logs an identity lifecycle event on a user
func LogIdentityEvent(userID, adminID, action string) {
	log.Info().
		Str("user_id", userID).
		Str("admin_id", adminID).
		Str("action", action).
		Msg("Identity event")
}

// LogError logs an error with context
func LogError(err error, requestID, component, operation string) {
	log.Error().
		Err(err).
		Str("request_id", requestID).
		Str("component", component).
		Str("operation", operation).
		Msg("Error occurred")
}

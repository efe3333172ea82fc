package main

import (
	"encoding/json"
	"html/template"
	"log/slog"
	"strings"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"

	"github.com/hkxuan/folio/internal/content"
	"github.com/hkxuan/folio/internal/logging"
)

const (
	requestIDHeader = "X-Request-ID"
	renderModeKey   = "renderMode"
)

// requestID tags every request with an id, reusing the caller's if sent.
func requestID() gin.HandlerFunc {
	return func(c *gin.Context) {
		id := c.GetHeader(requestIDHeader)
		if _, err := uuid.Parse(id); err != nil {
			id = uuid.NewString()
		}
		c.Set(requestIDHeader, id)
		c.Header(requestIDHeader, id)
		c.Next()
	}
}

// requestLogger logs one line per request and puts a request-scoped logger
// in the request context.
func requestLogger(logger *slog.Logger) gin.HandlerFunc {
	return func(c *gin.Context) {
		start := time.Now()
		reqLog := logger.With("request_id", c.GetString(requestIDHeader))
		c.Request = c.Request.WithContext(logging.WithLogger(c.Request.Context(), reqLog))

		c.Next()

		status := c.Writer.Status()
		level := slog.LevelInfo
		switch {
		case status >= 500:
			level = slog.LevelError
		case strings.HasPrefix(c.Request.URL.Path, "/static/"),
			strings.HasPrefix(c.Request.URL.Path, "/models"):
			level = slog.LevelDebug
		}
		reqLog.Log(c.Request.Context(), level, "Request.",
			"method", c.Request.Method,
			"path", c.Request.URL.Path,
			"status", status,
			"latency", time.Since(start),
		)
	}
}

// requestLog is the logger requestLogger attached to c's request.
func requestLog(c *gin.Context) *slog.Logger {
	return logging.FromContext(c.Request.Context())
}

var templateFuncs = template.FuncMap{
	// json embeds a value in a <script> block or data attribute.
	"json": func(v any) (template.JS, error) {
		b, err := json.Marshal(v)
		return template.JS(b), err
	},
	"accent": func(g content.SkillGroup) string { return g.Accent() },
	"join":   strings.Join,
}

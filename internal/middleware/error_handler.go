package middleware

import (
	"io"
	"net/http"
	"time"

	"github.com/candelento/balanza/internal/apierror"

	"github.com/gin-gonic/gin"
	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"
)

// ErrorHandler turns errors attached with c.Error into a generic 502. The
// gateway only ever fails talking to something upstream; details stay in the
// log.
func ErrorHandler() gin.HandlerFunc {
	return func(c *gin.Context) {
		c.Next()

		if len(c.Errors) == 0 || c.Writer.Written() {
			return
		}
		log.Error().
			Str("request_id", c.GetString(RequestIDKey)).
			Str("upstream_path", c.Request.URL.Path).
			Strs("errors", c.Errors.Errors()).
			Msg("gateway error")

		c.AbortWithStatusJSON(http.StatusBadGateway, apierror.New("Servidor no disponible"))
	}
}

// Recovery converts panics into 500 responses without leaking the stack.
func Recovery() gin.HandlerFunc {
	return gin.CustomRecoveryWithWriter(io.Discard, func(c *gin.Context, recovered any) {
		log.Error().
			Str("request_id", c.GetString(RequestIDKey)).
			Str("path", c.Request.URL.Path).
			Interface("panic", recovered).
			Msg("gateway panic")
		c.AbortWithStatusJSON(http.StatusInternalServerError, apierror.New("Error interno del servidor"))
	})
}

// Logger logs each request with its cache outcome. Cache hits are logged at
// debug so a busy front end does not flood the log.
func Logger() gin.HandlerFunc {
	return func(c *gin.Context) {
		start := time.Now()
		c.Next()

		cache := c.Writer.Header().Get("X-Cache")
		level := zerolog.InfoLevel
		switch {
		case c.Writer.Status() >= http.StatusInternalServerError:
			level = zerolog.WarnLevel
		case cache == "HIT":
			level = zerolog.DebugLevel
		}
		log.WithLevel(level).
			Str("request_id", c.GetString(RequestIDKey)).
			Str("method", c.Request.Method).
			Str("path", c.Request.URL.Path).
			Int("status", c.Writer.Status()).
			Str("cache", cache).
			Int("bytes", c.Writer.Size()).
			Dur("latency", time.Since(start)).
			Msg("request")
	}
}

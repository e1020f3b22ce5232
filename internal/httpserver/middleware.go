package httpserver

import (
	"errors"
	"net/http"
	"strings"
	"time"

	"buildmart/internal/service/session"
	"github.com/gin-gonic/gin"
	"go.uber.org/zap"
)

const (
	sessionHeader = "X-Session-ID"
	sessionCtxKey = "session"
)

// requestLogger writes one structured line per request.
func requestLogger(logger *zap.Logger) gin.HandlerFunc {
	return func(c *gin.Context) {
		start := time.Now()
		c.Next()

		fields := []zap.Field{
			zap.String("method", c.Request.Method),
			zap.String("path", c.Request.URL.Path),
			zap.Int("status", c.Writer.Status()),
			zap.Duration("latency", time.Since(start)),
			zap.String("client_ip", c.ClientIP()),
		}
		if id := c.GetHeader(sessionHeader); id != "" {
			fields = append(fields, zap.String("session_id", id))
		}
		if len(c.Errors) > 0 {
			fields = append(fields, zap.String("errors", c.Errors.String()))
		}
		switch status := c.Writer.Status(); {
		case status >= http.StatusInternalServerError:
			logger.Error("http request", fields...)
		case status >= http.StatusBadRequest:
			logger.Warn("http request", fields...)
		default:
			logger.Info("http request", fields...)
		}
	}
}

// sessionMiddleware resolves the X-Session-ID header to a live session,
// reopening sessions this process no longer holds.
func sessionMiddleware(sessions SessionService) gin.HandlerFunc {
	return func(c *gin.Context) {
		sessionID := strings.TrimSpace(c.GetHeader(sessionHeader))
		if sessionID == "" {
			c.AbortWithStatusJSON(http.StatusUnauthorized, gin.H{"error": "session required"})
			return
		}
		s, err := sessions.Resume(c.Request.Context(), sessionID)
		if err != nil {
			if errors.Is(err, session.ErrNotFound) {
				c.AbortWithStatusJSON(http.StatusNotFound, gin.H{"error": "session not found"})
				return
			}
			c.AbortWithStatusJSON(http.StatusInternalServerError, gin.H{"error": "failed to load session"})
			return
		}
		c.Header(sessionHeader, s.ID)
		c.Set(sessionCtxKey, s)
		c.Next()
	}
}

func currentSession(c *gin.Context) *session.Session {
	v, ok := c.Get(sessionCtxKey)
	if !ok {
		return nil
	}
	s, _ := v.(*session.Session)
	return s
}

// rateLimit rejects clients over their per-IP budget. A nil limiter allows everything.
func rateLimit(limiter Limiter) gin.HandlerFunc {
	return func(c *gin.Context) {
		if limiter != nil && !limiter.Allow(c.ClientIP()) {
			c.AbortWithStatusJSON(http.StatusTooManyRequests, gin.H{"error": "too many requests"})
			return
		}
		c.Next()
	}
}

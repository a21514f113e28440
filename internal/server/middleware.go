package server

import (
	"fmt"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/spigell/resume-matcher/internal/auth"
	"github.com/spigell/resume-matcher/internal/logger"
)

const (
	HeaderRequestID   = "X-Request-ID"
	HeaderUserID      = "X-User-ID"
	HeaderUserRole    = "X-User-Role"
	HeaderCollegeCode = "X-College-Code"

	ctxRequestID = "request_id"
	ctxLogger    = "logger"
	ctxPrincipal = "principal"
)

func requestIDMiddleware() gin.HandlerFunc {
	return func(c *gin.Context) {
		id := c.GetHeader(HeaderRequestID)
		if id == "" {
			id = uuid.NewString()
		}
		c.Set(ctxRequestID, id)
		c.Header(HeaderRequestID, id)
		c.Next()
	}
}

func loggerMiddleware(base *zap.Logger) gin.HandlerFunc {
	return func(c *gin.Context) {
		start := time.Now()
		l := base.With(zap.String("request_id", requestID(c)))
		c.Set(ctxLogger, l)

		c.Next()

		l.Info("request",
			zap.String("method", c.Request.Method),
			zap.String("path", c.FullPath()),
			zap.Int("status", c.Writer.Status()),
			zap.Int64("duration_ms", time.Since(start).Milliseconds()),
		)
	}
}

func recoverMiddleware() gin.HandlerFunc {
	return func(c *gin.Context) {
		defer func() {
			if r := recover(); r != nil {
				loggerFrom(c).Error("panic recovered", zap.Any("panic", r), zap.Stack("stack"))
				respondError(c, newAPIError(http.StatusInternalServerError, fmt.Sprintf("panic: %v", r)))
			}
		}()
		c.Next()
	}
}

// principalMiddleware reads the caller identity set by the upstream gateway.
func principalMiddleware() gin.HandlerFunc {
	return func(c *gin.Context) {
		p, err := auth.New(c.GetHeader(HeaderUserID), c.GetHeader(HeaderUserRole), c.GetHeader(HeaderCollegeCode))
		if err != nil {
			respondError(c, err)
			return
		}
		c.Set(ctxPrincipal, p)
		c.Set(ctxLogger, logger.WithFields(loggerFrom(c), logger.StringFields(
			logger.StringField{Key: logger.FieldUserID, Value: p.UserID},
			logger.StringField{Key: "role", Value: string(p.Role)},
		)...))
		c.Next()
	}
}

func requestID(c *gin.Context) string {
	return c.GetString(ctxRequestID)
}

func loggerFrom(c *gin.Context) *zap.Logger {
	if v, ok := c.Get(ctxLogger); ok {
		if l, ok := v.(*zap.Logger); ok {
			return l
		}
	}
	return zap.NewNop()
}

func principalFrom(c *gin.Context) auth.Principal {
	v, _ := c.Get(ctxPrincipal)
	p, _ := v.(auth.Principal)
	return p
}

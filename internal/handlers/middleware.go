package handlers

import (
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"

	"github.com/prephub/quiz-service/internal/utils"
)

// SetupMiddleware installs the shared middleware chain. Order matters: the
// request ID must exist before the context logger tags it, and the context
// logger must run before any handler that calls utils.GetContextLogger.
func SetupMiddleware(router *gin.Engine, logger utils.Logger) {
	router.Use(
		RequestIDMiddleware(),
		CORSMiddleware(),
		gin.Recovery(),
		utils.ContextLogger(logger),
		utils.LoggerMiddleware(logger),
		SecurityMiddleware(),
	)
}

// RequestIDMiddleware propagates the caller's X-Request-ID or mints one, and
// echoes it on the response so clients can correlate logs.
func RequestIDMiddleware() gin.HandlerFunc {
	return func(c *gin.Context) {
		requestID := c.GetHeader("X-Request-ID")
		if requestID == "" {
			requestID = uuid.NewString()
		}
		c.Set("request_id", requestID)
		c.Header("X-Request-ID", requestID)
		c.Next()
	}
}

var securityHeaders = map[string]string{
	"X-Content-Type-Options":    "nosniff",
	"X-Frame-Options":           "DENY",
	"X-XSS-Protection":          "1; mode=block",
	"Strict-Transport-Security": "max-age=31536000; includeSubDomains",
	"Referrer-Policy":           "strict-origin-when-cross-origin",
}

// SecurityMiddleware sets the standard response hardening headers.
func SecurityMiddleware() gin.HandlerFunc {
	return func(c *gin.Context) {
		for header, value := range securityHeaders {
			c.Header(header, value)
		}
		c.Next()
	}
}

// CORSMiddleware answers preflight requests and opens the API to browser
// clients. The token in the Authorization header is the actual gate.
func CORSMiddleware() gin.HandlerFunc {
	return func(c *gin.Context) {
		c.Header("Access-Control-Allow-Origin", "*")
		c.Header("Access-Control-Allow-Methods", "GET, POST, PUT, DELETE, OPTIONS")
		c.Header("Access-Control-Allow-Headers", "Content-Type, Authorization, X-Request-ID")
		c.Header("Access-Control-Expose-Headers", "Content-Length, X-Request-ID")
		c.Header("Access-Control-Max-Age", "43200")

		if c.Request.Method == http.MethodOptions {
			c.AbortWithStatus(http.StatusNoContent)
			return
		}
		c.Next()
	}
}

package httpserver

import (
	"context"
	"crypto/subtle"
	"errors"
	"net/http"
	"strconv"
	"strings"
	"time"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"
	"golang.org/x/crypto/bcrypt"

	"customer-portal/internal/client"
	"customer-portal/internal/handler"
	"customer-portal/internal/service/auth"
	"customer-portal/pkg/logger"
	"customer-portal/pkg/metrics"
	"customer-portal/pkg/trace"
)

// TraceMiddleware propagates or creates the request trace id.
func TraceMiddleware() gin.HandlerFunc {
	return func(c *gin.Context) {
		traceID := c.GetHeader(trace.HeaderName)
		if traceID == "" {
			traceID = trace.GenerateTraceID()
		}
		c.Request = c.Request.WithContext(trace.WithContext(c.Request.Context(), traceID))
		c.Header(trace.HeaderName, traceID)
		c.Next()
	}
}

// MetricsMiddleware records request latency by route template.
func MetricsMiddleware() gin.HandlerFunc {
	return func(c *gin.Context) {
		start := time.Now()
		c.Next()

		path := c.FullPath()
		if path == "" {
			path = "unmatched"
		}
		metrics.RecordHTTPRequestDuration(c.Request.Method, path, strconv.Itoa(c.Writer.Status()), time.Since(start))
	}
}

type Authenticator interface {
	Authenticate(ctx context.Context, token string) (string, error)
	Refresh(ctx context.Context, refreshToken string) (*client.Session, string, error)
}

// SessionMiddleware resolves the session cookie (or a Bearer token) to a
// customer id and stores it under handler.CustomerIDKey. An expired cookie
// session is renewed with the refresh cookie and both cookies are rewritten.
func SessionMiddleware(authn Authenticator, cookies handler.CookieSettings, log *zap.Logger) gin.HandlerFunc {
	return func(c *gin.Context) {
		ctx := c.Request.Context()
		token, _ := c.Cookie(cookies.Name)
		fromCookie := token != ""
		if !fromCookie {
			token = auth.ExtractBearerToken(c.Request)
		}
		refreshToken := ""
		if cookies.RefreshName != "" {
			refreshToken, _ = c.Cookie(cookies.RefreshName)
		}
		if token == "" && refreshToken == "" {
			c.AbortWithStatusJSON(http.StatusUnauthorized, gin.H{"error": "missing token"})
			return
		}

		var (
			customerID string
			err        error
		)
		if token != "" {
			customerID, err = authn.Authenticate(ctx, token)
		} else {
			// the access cookie outlived its max-age
			err = auth.ErrSessionExpired
		}

		if errors.Is(err, auth.ErrSessionExpired) && (fromCookie || token == "") && refreshToken != "" {
			var session *client.Session
			session, customerID, err = authn.Refresh(ctx, refreshToken)
			if err == nil {
				cookies.WriteSession(c, session)
			} else if errors.Is(err, auth.ErrUnauthenticated) {
				cookies.ClearSession(c)
			}
		}

		if err != nil {
			if errors.Is(err, auth.ErrUnauthenticated) || errors.Is(err, auth.ErrNoCustomer) || errors.Is(err, auth.ErrSessionExpired) {
				c.AbortWithStatusJSON(http.StatusUnauthorized, gin.H{"error": "invalid token"})
				return
			}
			logger.WithTrace(ctx, log).Error("Session lookup failed", zap.Error(err))
			c.AbortWithStatusJSON(http.StatusInternalServerError, gin.H{"error": "session lookup failed"})
			return
		}

		c.Set(handler.CustomerIDKey, customerID)
		c.Next()
	}
}

// SecretMiddleware requires header to match secret. secret may be a bcrypt
// hash; an empty secret rejects every request.
func SecretMiddleware(header, secret string) gin.HandlerFunc {
	return func(c *gin.Context) {
		if !checkSecret(c.GetHeader(header), secret) {
			c.AbortWithStatusJSON(http.StatusUnauthorized, gin.H{"error": "Unauthorized"})
			return
		}
		c.Next()
	}
}

func checkSecret(given, secret string) bool {
	if secret == "" || given == "" {
		return false
	}
	if strings.HasPrefix(secret, "$2") {
		return bcrypt.CompareHashAndPassword([]byte(secret), []byte(given)) == nil
	}
	return subtle.ConstantTimeCompare([]byte(given), []byte(secret)) == 1
}

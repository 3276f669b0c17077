package handler

import (
	"context"
	"errors"
	"net/http"
	"net/url"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"

	"customer-portal/internal/client"
	"customer-portal/internal/service/auth"
	"customer-portal/pkg/logger"
)

const (
	verifierCookie = "portal-pkce"
	// magic links stay valid for one hour on the auth backend
	verifierMaxAge = 3600
	loginPath      = "/login"
)

type AuthService interface {
	StartLogin(ctx context.Context, email, next string) (string, error)
	CompleteLogin(ctx context.Context, code, verifier string) (*client.Session, error)
}

// CookieSettings controls the session cookies written after login. The
// access token lives in Name, the refresh token in RefreshName.
type CookieSettings struct {
	Name          string
	RefreshName   string
	RefreshMaxAge int
	Secure        bool
}

// WriteSession stores both tokens of session.
func (s CookieSettings) WriteSession(c *gin.Context, session *client.Session) {
	maxAge := session.ExpiresIn
	if maxAge <= 0 {
		maxAge = 3600
	}
	s.set(c, s.Name, session.AccessToken, maxAge, "/")
	if s.RefreshName != "" && session.RefreshToken != "" {
		s.set(c, s.RefreshName, session.RefreshToken, s.RefreshMaxAge, "/")
	}
}

// ClearSession expires both session cookies.
func (s CookieSettings) ClearSession(c *gin.Context) {
	s.set(c, s.Name, "", -1, "/")
	if s.RefreshName != "" {
		s.set(c, s.RefreshName, "", -1, "/")
	}
}

func (s CookieSettings) set(c *gin.Context, name, value string, maxAge int, path string) {
	c.SetSameSite(http.SameSiteLaxMode)
	c.SetCookie(name, value, maxAge, path, "", s.Secure, true)
}

type AuthHandler struct {
	auth    AuthService
	cookies CookieSettings
	logger  *zap.Logger
}

func NewAuthHandler(auth AuthService, cookies CookieSettings, logger *zap.Logger) *AuthHandler {
	return &AuthHandler{auth: auth, cookies: cookies, logger: logger}
}

// MagicLink handles POST /auth/magic-link {email, next?}
func (h *AuthHandler) MagicLink(c *gin.Context) {
	var req struct {
		Email string `json:"email" binding:"required"`
		Next  string `json:"next"`
	}
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "email required"})
		return
	}

	verifier, err := h.auth.StartLogin(c.Request.Context(), req.Email, req.Next)
	if errors.Is(err, auth.ErrInvalidEmail) {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}
	if err != nil {
		logger.WithTrace(c.Request.Context(), h.logger).Error("Failed to send magic link", zap.Error(err))
		c.JSON(http.StatusBadGateway, gin.H{"error": "failed to send login link"})
		return
	}

	h.cookies.set(c, verifierCookie, verifier, verifierMaxAge, "/auth")
	c.JSON(http.StatusOK, gin.H{"status": "sent"})
}

// Callback handles GET /auth/callback?code=&next=&error=
func (h *AuthHandler) Callback(c *gin.Context) {
	if e := c.Query("error"); e != "" {
		c.Redirect(http.StatusFound, loginPath+"?error="+url.QueryEscape(e))
		return
	}

	next := auth.SafeNext(c.Query("next"))
	code := c.Query("code")
	if code == "" {
		c.Redirect(http.StatusFound, next)
		return
	}

	verifier, _ := c.Cookie(verifierCookie)
	h.cookies.set(c, verifierCookie, "", -1, "/auth")

	session, err := h.auth.CompleteLogin(c.Request.Context(), code, verifier)
	if err != nil {
		logger.WithTrace(c.Request.Context(), h.logger).Warn("Code exchange failed", zap.Error(err))
		c.Redirect(http.StatusFound, loginPath+"?error="+url.QueryEscape("exchange_failed"))
		return
	}

	h.cookies.WriteSession(c, session)
	c.Redirect(http.StatusFound, next)
}

// Logout handles POST /auth/logout
func (h *AuthHandler) Logout(c *gin.Context) {
	h.cookies.ClearSession(c)
	c.JSON(http.StatusOK, gin.H{"status": "logged_out"})
}

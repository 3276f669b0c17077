package client

import (
	"context"
	"fmt"
	"net/url"
	"strings"
	"time"

	"github.com/go-resty/resty/v2"

	"customer-portal/config"
	"customer-portal/pkg/circuitbreaker"
)

const (
	providerGoTrue  = "supabase_auth"
	providerStorage = "supabase_storage"
)

// SupabaseClient talks to the hosted auth (GoTrue) and storage APIs.
type SupabaseClient struct {
	rc      *resty.Client
	cfg     config.SupabaseConfig
	breaker *circuitbreaker.CircuitBreaker
}

func NewSupabaseClient(cfg config.SupabaseConfig, breaker *circuitbreaker.CircuitBreaker) *SupabaseClient {
	rc := newRestClient(strings.TrimRight(cfg.URL, "/"), cfg.Timeout).
		SetHeader("apikey", cfg.AnonKey)
	return &SupabaseClient{rc: rc, cfg: cfg, breaker: breaker}
}

// Session is the token pair GoTrue issues after a successful code exchange.
type Session struct {
	AccessToken  string `json:"access_token"`
	RefreshToken string `json:"refresh_token"`
	ExpiresIn    int    `json:"expires_in"`
	TokenType    string `json:"token_type"`
	User         struct {
		ID    string `json:"id"`
		Email string `json:"email"`
	} `json:"user"`
}

type gotrueError struct {
	Error            string `json:"error"`
	ErrorDescription string `json:"error_description"`
	Msg              string `json:"msg"`
	Message          string `json:"message"`
}

func (e gotrueError) text(fallback string) string {
	for _, s := range []string{e.ErrorDescription, e.Msg, e.Message, e.Error} {
		if s != "" {
			return s
		}
	}
	return fallback
}

// SendMagicLink asks GoTrue to e-mail a PKCE magic link that redirects to redirectTo.
func (c *SupabaseClient) SendMagicLink(ctx context.Context, email, redirectTo, codeChallenge string) error {
	return call(ctx, c.breaker, providerGoTrue, "otp", func(ctx context.Context) error {
		var errOut gotrueError
		resp, err := c.rc.R().
			SetContext(ctx).
			SetQueryParam("redirect_to", redirectTo).
			SetBody(map[string]any{
				"email":                 email,
				"create_user":           false,
				"code_challenge":        codeChallenge,
				"code_challenge_method": "s256",
			}).
			SetError(&errOut).
			Post("/auth/v1/otp")
		if err != nil {
			return fmt.Errorf("gotrue otp request failed: %w", err)
		}
		if resp.IsError() {
			return &ProviderError{Provider: providerGoTrue, Status: resp.StatusCode(), Message: errOut.text("magic link request failed")}
		}
		return nil
	})
}

// ExchangeCode trades the callback code and the PKCE verifier for a session.
func (c *SupabaseClient) ExchangeCode(ctx context.Context, code, verifier string) (*Session, error) {
	return c.token(ctx, "pkce", map[string]string{
		"auth_code":     code,
		"code_verifier": verifier,
	}, "code exchange failed")
}

// RefreshSession trades a refresh token for a new session. GoTrue rotates the
// refresh token, so the returned one replaces the old.
func (c *SupabaseClient) RefreshSession(ctx context.Context, refreshToken string) (*Session, error) {
	return c.token(ctx, "refresh_token", map[string]string{
		"refresh_token": refreshToken,
	}, "session refresh failed")
}

func (c *SupabaseClient) token(ctx context.Context, grant string, body map[string]string, fallback string) (*Session, error) {
	var session Session
	err := call(ctx, c.breaker, providerGoTrue, "token_"+grant, func(ctx context.Context) error {
		var errOut gotrueError
		resp, err := c.rc.R().
			SetContext(ctx).
			SetQueryParam("grant_type", grant).
			SetBody(body).
			SetResult(&session).
			SetError(&errOut).
			Post("/auth/v1/token")
		if err != nil {
			return fmt.Errorf("gotrue token request failed: %w", err)
		}
		if resp.IsError() {
			return &ProviderError{Provider: providerGoTrue, Status: resp.StatusCode(), Message: errOut.text(fallback)}
		}
		return nil
	})
	if err != nil {
		return nil, err
	}
	return &session, nil
}

// SignURL returns an absolute download URL for bucket/path valid for ttl.
func (c *SupabaseClient) SignURL(ctx context.Context, bucket, path string, ttl time.Duration) (string, error) {
	if c.cfg.ServiceRoleKey == "" {
		return "", ErrNotConfigured
	}

	var signed string
	err := call(ctx, c.breaker, providerStorage, "sign", func(ctx context.Context) error {
		var (
			out struct {
				SignedURL string `json:"signedURL"`
			}
			errOut gotrueError
		)
		resp, err := c.rc.R().
			SetContext(ctx).
			SetAuthToken(c.cfg.ServiceRoleKey).
			SetHeader("apikey", c.cfg.ServiceRoleKey).
			SetBody(map[string]int{"expiresIn": int(ttl.Seconds())}).
			SetResult(&out).
			SetError(&errOut).
			Post("/storage/v1/object/sign/" + url.PathEscape(bucket) + "/" + escapeObjectPath(path))
		if err != nil {
			return fmt.Errorf("storage sign request failed: %w", err)
		}
		if resp.IsError() || out.SignedURL == "" {
			return &ProviderError{Provider: providerStorage, Status: resp.StatusCode(), Message: errOut.text("signing failed")}
		}
		signed = strings.TrimRight(c.cfg.URL, "/") + "/storage/v1" + out.SignedURL
		return nil
	})
	return signed, err
}

func escapeObjectPath(p string) string {
	parts := strings.Split(strings.TrimLeft(p, "/"), "/")
	for i, part := range parts {
		parts[i] = url.PathEscape(part)
	}
	return strings.Join(parts, "/")
}

package auth

import (
	"context"
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"customer-portal/internal/client"
	"customer-portal/internal/repository"
)

const (
	testSecret = "super-secret-jwt-token-with-at-least-32-characters"
	userID     = "0b6c7f2e-8d0a-4a5f-9a51-6f3b1c2d4e5f"
	customerID = "6f1c2a9e-3b7d-4c55-9a0e-2d8f1b6c4e21"
)

func mintToken(t *testing.T, secret string, claims jwt.MapClaims) string {
	t.Helper()
	token := jwt.NewWithClaims(jwt.SigningMethodHS256, claims)
	s, err := token.SignedString([]byte(secret))
	require.NoError(t, err)
	return s
}

func validClaims() jwt.MapClaims {
	return jwt.MapClaims{
		"sub":   userID,
		"email": "anna@example.de",
		"aud":   "authenticated",
		"role":  "authenticated",
		"exp":   time.Now().Add(time.Hour).Unix(),
	}
}

type fakeIDP struct {
	email, redirect, challenge string
	session                    *client.Session
	err                        error
	refreshed                  string
}

func (f *fakeIDP) SendMagicLink(ctx context.Context, email, redirectTo, codeChallenge string) error {
	f.email, f.redirect, f.challenge = email, redirectTo, codeChallenge
	return f.err
}

func (f *fakeIDP) ExchangeCode(ctx context.Context, code, verifier string) (*client.Session, error) {
	if f.err != nil {
		return nil, f.err
	}
	return f.session, nil
}

func (f *fakeIDP) RefreshSession(ctx context.Context, refreshToken string) (*client.Session, error) {
	f.refreshed = refreshToken
	if f.err != nil {
		return nil, f.err
	}
	return f.session, nil
}

type fakeCustomers map[string]string

func (f fakeCustomers) FindIDByUserID(ctx context.Context, id string) (string, error) {
	c, ok := f[id]
	if !ok {
		return "", repository.ErrNotFound
	}
	return c, nil
}

func newTestService(idp *fakeIDP) *Service {
	return NewService(idp, fakeCustomers{userID: customerID}, NewTokenVerifier(testSecret), "https://portal.bee-doo.de/", zap.NewNop())
}

func TestVerify(t *testing.T) {
	v := NewTokenVerifier(testSecret)

	claims, err := v.Verify(mintToken(t, testSecret, validClaims()))
	require.NoError(t, err)
	assert.Equal(t, userID, claims.Subject)
	assert.Equal(t, "anna@example.de", claims.Email)

	expired := validClaims()
	expired["exp"] = time.Now().Add(-time.Minute).Unix()
	_, err = v.Verify(mintToken(t, testSecret, expired))
	assert.ErrorIs(t, err, ErrUnauthenticated)
	assert.ErrorIs(t, err, ErrSessionExpired)

	_, err = v.Verify(mintToken(t, "another-secret", expired))
	assert.NotErrorIs(t, err, ErrSessionExpired)

	wrongAud := validClaims()
	wrongAud["aud"] = "anon"
	_, err = v.Verify(mintToken(t, testSecret, wrongAud))
	assert.ErrorIs(t, err, ErrUnauthenticated)
	assert.NotErrorIs(t, err, ErrSessionExpired)

	noExp := validClaims()
	delete(noExp, "exp")
	_, err = v.Verify(mintToken(t, testSecret, noExp))
	assert.ErrorIs(t, err, ErrUnauthenticated)

	_, err = v.Verify(mintToken(t, "another-secret", validClaims()))
	assert.ErrorIs(t, err, ErrUnauthenticated)

	_, err = v.Verify("")
	assert.ErrorIs(t, err, ErrUnauthenticated)
}

func TestExtractBearerToken(t *testing.T) {
	r := httptest.NewRequest("GET", "/", nil)
	assert.Empty(t, ExtractBearerToken(r))

	r.Header.Set("Authorization", "Bearer abc.def")
	assert.Equal(t, "abc.def", ExtractBearerToken(r))

	r.Header.Set("Authorization", "Basic abc")
	assert.Empty(t, ExtractBearerToken(r))
}

func TestPKCE(t *testing.T) {
	v, err := NewCodeVerifier()
	require.NoError(t, err)
	assert.Len(t, v, 43)

	// RFC 7636 appendix B
	assert.Equal(t, "E9Melhoa2OwvFrEMTJguCHaoeK1t8URWbuGJSstw-cM",
		CodeChallenge("dBjftJeZ4CVP-mB92K27uhbUJU1p1r_wW1gFWFOEjXk"))
}

func TestStartLogin(t *testing.T) {
	idp := &fakeIDP{}
	svc := newTestService(idp)

	verifier, err := svc.StartLogin(context.Background(), " anna@example.de ", "/portal/documents")
	require.NoError(t, err)
	assert.Equal(t, "anna@example.de", idp.email)
	assert.Equal(t, "https://portal.bee-doo.de/auth/callback?next=%2Fportal%2Fdocuments", idp.redirect)
	assert.Equal(t, CodeChallenge(verifier), idp.challenge)

	_, err = svc.StartLogin(context.Background(), "", "")
	assert.ErrorIs(t, err, ErrInvalidEmail)
	_, err = svc.StartLogin(context.Background(), "not-an-email", "")
	assert.ErrorIs(t, err, ErrInvalidEmail)

	_, err = svc.StartLogin(context.Background(), "anna@example.de", "https://evil.example")
	require.NoError(t, err)
	assert.Equal(t, "https://portal.bee-doo.de/auth/callback", idp.redirect)

	idp.err = errors.New("rate limited")
	_, err = svc.StartLogin(context.Background(), "anna@example.de", "")
	assert.Error(t, err)
}

func TestCompleteLogin(t *testing.T) {
	token := mintToken(t, testSecret, validClaims())
	idp := &fakeIDP{session: &client.Session{AccessToken: token}}
	svc := newTestService(idp)

	session, err := svc.CompleteLogin(context.Background(), "code", "verifier")
	require.NoError(t, err)
	assert.Equal(t, token, session.AccessToken)

	_, err = svc.CompleteLogin(context.Background(), "", "verifier")
	assert.ErrorIs(t, err, ErrUnauthenticated)

	idp.session = &client.Session{AccessToken: "garbage"}
	_, err = svc.CompleteLogin(context.Background(), "code", "verifier")
	assert.ErrorIs(t, err, ErrUnauthenticated)
}

func TestAuthenticate(t *testing.T) {
	svc := newTestService(&fakeIDP{})

	id, err := svc.Authenticate(context.Background(), mintToken(t, testSecret, validClaims()))
	require.NoError(t, err)
	assert.Equal(t, customerID, id)

	other := validClaims()
	other["sub"] = "9a9a9a9a-0000-4000-8000-000000000000"
	_, err = svc.Authenticate(context.Background(), mintToken(t, testSecret, other))
	assert.ErrorIs(t, err, ErrNoCustomer)

	notUUID := validClaims()
	notUUID["sub"] = "service_role"
	_, err = svc.Authenticate(context.Background(), mintToken(t, testSecret, notUUID))
	assert.ErrorIs(t, err, ErrUnauthenticated)
}

func TestRefresh(t *testing.T) {
	idp := &fakeIDP{session: &client.Session{
		AccessToken:  mintToken(t, testSecret, validClaims()),
		RefreshToken: "r2",
		ExpiresIn:    3600,
	}}
	svc := newTestService(idp)

	session, id, err := svc.Refresh(context.Background(), "r1")
	require.NoError(t, err)
	assert.Equal(t, "r1", idp.refreshed)
	assert.Equal(t, customerID, id)
	assert.Equal(t, "r2", session.RefreshToken)

	_, _, err = svc.Refresh(context.Background(), "")
	assert.ErrorIs(t, err, ErrUnauthenticated)

	idp.err = &client.ProviderError{Provider: "supabase_auth", Status: http.StatusBadRequest, Message: "Invalid Refresh Token"}
	_, _, err = svc.Refresh(context.Background(), "used")
	assert.ErrorIs(t, err, ErrUnauthenticated)

	idp.err = &client.ProviderError{Provider: "supabase_auth", Status: http.StatusBadGateway, Message: "upstream"}
	_, _, err = svc.Refresh(context.Background(), "r1")
	require.Error(t, err)
	assert.NotErrorIs(t, err, ErrUnauthenticated)
}

func TestSafeNext(t *testing.T) {
	cases := map[string]string{
		"":                     DefaultNext,
		"/portal/documents":    "/portal/documents",
		"/portal?tab=referral": "/portal?tab=referral",
		"//evil.example":       DefaultNext,
		"https://evil.example": DefaultNext,
		`/\evil.example`:       DefaultNext,
		"portal":               DefaultNext,
	}
	for in, want := range cases {
		assert.Equal(t, want, SafeNext(in), in)
	}
}

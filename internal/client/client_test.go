package client

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"customer-portal/config"
	"customer-portal/pkg/circuitbreaker"
)

func testBreaker() *circuitbreaker.CircuitBreaker {
	return circuitbreaker.NewCircuitBreaker("test", circuitbreaker.Config{
		FailureThreshold:    2,
		SuccessThreshold:    1,
		Timeout:             time.Minute,
		HalfOpenMaxRequests: 1,
	})
}

func twilioConfig(baseURL string) config.TwilioConfig {
	return config.TwilioConfig{
		AccountSID: "AC123",
		AuthToken:  "secret",
		From:       "whatsapp:+14155238886",
		BaseURL:    baseURL,
		Timeout:    time.Second,
	}
}

func TestTwilioSend(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "/2010-04-01/Accounts/AC123/Messages.json", r.URL.Path)
		user, pass, ok := r.BasicAuth()
		assert.True(t, ok)
		assert.Equal(t, "AC123", user)
		assert.Equal(t, "secret", pass)
		require.NoError(t, r.ParseForm())
		assert.Equal(t, "whatsapp:+495251123456", r.PostForm.Get("To"))
		assert.Equal(t, "whatsapp:+14155238886", r.PostForm.Get("From"))
		assert.Equal(t, "Hallo", r.PostForm.Get("Body"))

		w.Header().Set("Content-Type", "application/json")
		w.WriteHeader(http.StatusCreated)
		_, _ = w.Write([]byte(`{"sid":"SM1"}`))
	}))
	defer srv.Close()

	sid, err := NewTwilioClient(twilioConfig(srv.URL), testBreaker()).
		Send(context.Background(), "whatsapp:+495251123456", "Hallo")
	require.NoError(t, err)
	assert.Equal(t, "SM1", sid)
}

func TestTwilioRejectionDoesNotTripBreaker(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		w.WriteHeader(http.StatusBadRequest)
		_, _ = w.Write([]byte(`{"code":21211,"message":"Invalid 'To' Phone Number"}`))
	}))
	defer srv.Close()

	cb := testBreaker()
	c := NewTwilioClient(twilioConfig(srv.URL), cb)
	for i := 0; i < 3; i++ {
		_, err := c.Send(context.Background(), "whatsapp:+49", "x")
		var perr *ProviderError
		require.ErrorAs(t, err, &perr)
		assert.Equal(t, http.StatusBadRequest, perr.StatusCode())
		assert.Contains(t, err.Error(), "Invalid 'To' Phone Number")
	}
	assert.Equal(t, circuitbreaker.StateClosed, cb.GetState())
}

func TestTwilioOutageOpensBreaker(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusServiceUnavailable)
	}))
	defer srv.Close()

	c := NewTwilioClient(twilioConfig(srv.URL), testBreaker())
	_, err := c.Send(context.Background(), "a", "b")
	assert.ErrorContains(t, err, "Twilio error")
	_, _ = c.Send(context.Background(), "a", "b")
	_, err = c.Send(context.Background(), "a", "b")
	assert.ErrorIs(t, err, circuitbreaker.ErrCircuitBreakerOpen)
}

func TestTwilioNotConfigured(t *testing.T) {
	_, err := NewTwilioClient(config.TwilioConfig{BaseURL: "http://unused"}, testBreaker()).
		Send(context.Background(), "a", "b")
	assert.ErrorIs(t, err, ErrNotConfigured)
}

func TestStarFilter(t *testing.T) {
	assert.Equal(t, "5,4", StarFilter(4))
	assert.Equal(t, "5", StarFilter(5))
	assert.Equal(t, "5,4,3,2,1", StarFilter(0))
}

func TestTrustpilotFetchMapsReviews(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "/v1/business-units/bu-1/reviews", r.URL.Path)
		assert.Equal(t, "key", r.Header.Get("apikey"))
		q := r.URL.Query()
		assert.Equal(t, "5,4", q.Get("stars"))
		assert.Equal(t, "createdat.desc", q.Get("orderBy"))
		assert.Equal(t, "16", q.Get("perPage"))
		assert.Equal(t, "de", q.Get("language"))

		w.Header().Set("Content-Type", "application/json")
		_ = json.NewEncoder(w).Encode(map[string]any{
			"totalNumberOfReviews": 321,
			"reviews": []map[string]any{
				{
					"id": "r1", "stars": 5, "title": "Top", "text": "Alles gut",
					"consumer":     map[string]any{"displayName": "Jana", "countryCode": "DE"},
					"createdAt":    "2026-10-01T10:00:00Z",
					"companyReply": map[string]any{"text": "Danke!"},
				},
				{"id": "r2", "stars": 4, "consumer": map[string]any{}, "createdAt": "2026-09-01T10:00:00Z"},
			},
		})
	}))
	defer srv.Close()

	c := NewTrustpilotClient(config.TrustpilotConfig{
		APIKey: "key", BusinessUnitID: "bu-1", BaseURL: srv.URL, Language: "de", Timeout: time.Second,
	}, testBreaker())

	page, err := c.FetchReviews(context.Background(), 4, 16)
	require.NoError(t, err)
	assert.Equal(t, 321, page.Total)
	require.Len(t, page.Reviews, 2)

	first := page.Reviews[0]
	assert.Equal(t, "Jana", first.AuthorName)
	assert.Equal(t, "DE", *first.AuthorLocation)
	assert.Equal(t, "Danke!", *first.Response)

	second := page.Reviews[1]
	assert.Equal(t, "Anonym", second.AuthorName)
	assert.Nil(t, second.AuthorLocation)
	assert.Nil(t, second.Response)
	assert.Nil(t, second.Title)
}

func TestTrustpilotError(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusInternalServerError)
	}))
	defer srv.Close()

	c := NewTrustpilotClient(config.TrustpilotConfig{
		APIKey: "key", BusinessUnitID: "bu-1", BaseURL: srv.URL, Timeout: time.Second,
	}, testBreaker())
	_, err := c.FetchReviews(context.Background(), 4, 16)
	var perr *ProviderError
	require.True(t, errors.As(err, &perr))
	assert.Equal(t, "Trustpilot API 500", perr.Message)
}

func TestSupabaseExchangeAndSign(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		switch r.URL.Path {
		case "/auth/v1/token":
			assert.Equal(t, "pkce", r.URL.Query().Get("grant_type"))
			var body map[string]string
			require.NoError(t, json.NewDecoder(r.Body).Decode(&body))
			assert.Equal(t, "code-1", body["auth_code"])
			assert.Equal(t, "verifier-1", body["code_verifier"])
			_, _ = w.Write([]byte(`{"access_token":"at","refresh_token":"rt","expires_in":3600,"user":{"id":"u1"}}`))
		case "/storage/v1/object/sign/project-documents/p1/Vertrag 1.pdf":
			assert.Equal(t, "Bearer service", r.Header.Get("Authorization"))
			var body map[string]int
			require.NoError(t, json.NewDecoder(r.Body).Decode(&body))
			assert.Equal(t, 3600, body["expiresIn"])
			_, _ = w.Write([]byte(`{"signedURL":"/object/sign/project-documents/p1/Vertrag%201.pdf?token=t"}`))
		default:
			w.WriteHeader(http.StatusNotFound)
		}
	}))
	defer srv.Close()

	c := NewSupabaseClient(config.SupabaseConfig{
		URL: srv.URL, AnonKey: "anon", ServiceRoleKey: "service", Timeout: time.Second,
	}, testBreaker())

	session, err := c.ExchangeCode(context.Background(), "code-1", "verifier-1")
	require.NoError(t, err)
	assert.Equal(t, "at", session.AccessToken)
	assert.Equal(t, "u1", session.User.ID)

	signed, err := c.SignURL(context.Background(), "project-documents", "p1/Vertrag 1.pdf", time.Hour)
	require.NoError(t, err)
	assert.Equal(t, srv.URL+"/storage/v1/object/sign/project-documents/p1/Vertrag%201.pdf?token=t", signed)
}

func TestSupabaseMagicLinkError(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "/auth/v1/otp", r.URL.Path)
		assert.Equal(t, "https://portal.example/auth/callback", r.URL.Query().Get("redirect_to"))
		w.Header().Set("Content-Type", "application/json")
		w.WriteHeader(http.StatusTooManyRequests)
		_, _ = w.Write([]byte(`{"msg":"For security purposes, you can only request this once every 60 seconds"}`))
	}))
	defer srv.Close()

	c := NewSupabaseClient(config.SupabaseConfig{URL: srv.URL, Timeout: time.Second}, testBreaker())
	err := c.SendMagicLink(context.Background(), "a@example.com", "https://portal.example/auth/callback", "challenge")
	assert.ErrorContains(t, err, "once every 60 seconds")
}

func TestSupabaseRefreshSession(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "/auth/v1/token", r.URL.Path)
		assert.Equal(t, "refresh_token", r.URL.Query().Get("grant_type"))
		assert.Equal(t, "anon", r.Header.Get("apikey"))
		var body map[string]string
		require.NoError(t, json.NewDecoder(r.Body).Decode(&body))

		w.Header().Set("Content-Type", "application/json")
		if body["refresh_token"] != "rt-1" {
			w.WriteHeader(http.StatusBadRequest)
			_, _ = w.Write([]byte(`{"error":"invalid_grant","error_description":"Invalid Refresh Token: Already Used"}`))
			return
		}
		_, _ = w.Write([]byte(`{"access_token":"at-2","refresh_token":"rt-2","expires_in":3600}`))
	}))
	defer srv.Close()

	c := NewSupabaseClient(config.SupabaseConfig{URL: srv.URL, AnonKey: "anon", Timeout: time.Second}, testBreaker())

	session, err := c.RefreshSession(context.Background(), "rt-1")
	require.NoError(t, err)
	assert.Equal(t, "at-2", session.AccessToken)
	assert.Equal(t, "rt-2", session.RefreshToken)
	assert.Equal(t, 3600, session.ExpiresIn)

	_, err = c.RefreshSession(context.Background(), "rt-1-used")
	var perr *ProviderError
	require.True(t, errors.As(err, &perr))
	assert.Equal(t, http.StatusBadRequest, perr.Status)
	assert.Equal(t, "Invalid Refresh Token: Already Used", perr.Message)
	assert.False(t, perr.Retryable())
}

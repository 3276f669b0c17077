package client

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"strconv"
	"time"

	"github.com/go-resty/resty/v2"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"

	"customer-portal/pkg/circuitbreaker"
	"customer-portal/pkg/metrics"
	"customer-portal/pkg/otel"
)

// ErrNotConfigured is returned when a provider's credentials are missing.
var ErrNotConfigured = errors.New("provider credentials not configured")

// ProviderError is a non-2xx answer from a third-party API.
type ProviderError struct {
	Provider string
	Status   int
	Message  string
}

func (e *ProviderError) Error() string {
	return fmt.Sprintf("%s: %s (HTTP %d)", e.Provider, e.Message, e.Status)
}

// StatusCode lets util.ClassifyError tell rejections from outages.
func (e *ProviderError) StatusCode() int {
	return e.Status
}

// Retryable is true for 5xx and 429.
func (e *ProviderError) Retryable() bool {
	return e.Status >= 500 || e.Status == http.StatusTooManyRequests
}

func newRestClient(baseURL string, timeout time.Duration) *resty.Client {
	return resty.New().
		SetBaseURL(baseURL).
		SetTimeout(timeout).
		SetHeader("Accept", "application/json")
}

// call runs fn behind the breaker with a client span and a latency sample.
// Rejections (4xx other than 429) are returned to the caller but do not
// count against the breaker.
func call(ctx context.Context, cb *circuitbreaker.CircuitBreaker, provider, operation string, fn func(ctx context.Context) error) error {
	ctx, span := otel.ClientSpan(ctx, provider, operation)
	defer span.End()

	start := time.Now()
	var rejected error
	err := cb.Execute(func() error {
		err := fn(ctx)
		var perr *ProviderError
		if errors.As(err, &perr) && !perr.Retryable() {
			rejected = err
			return nil
		}
		return err
	})
	if err == nil {
		err = rejected
	}

	status := "ok"
	if err != nil {
		status = "error"
		var perr *ProviderError
		if errors.As(err, &perr) {
			status = strconv.Itoa(perr.Status)
			span.SetAttributes(attribute.Int("http.response.status_code", perr.Status))
		} else if errors.Is(err, circuitbreaker.ErrCircuitBreakerOpen) {
			status = "circuit_open"
		}
		span.RecordError(err)
		span.SetStatus(codes.Error, err.Error())
	}
	metrics.RecordProviderCallLatency(provider, status, time.Since(start))
	return err
}

package client

import (
	"context"
	"fmt"
	"strconv"
	"strings"
	"time"

	"github.com/go-resty/resty/v2"

	"customer-portal/config"
	"customer-portal/internal/model"
	"customer-portal/pkg/circuitbreaker"
)

const providerTrustpilot = "trustpilot"

// TrustpilotClient reads public business-unit reviews.
type TrustpilotClient struct {
	rc      *resty.Client
	cfg     config.TrustpilotConfig
	breaker *circuitbreaker.CircuitBreaker
}

func NewTrustpilotClient(cfg config.TrustpilotConfig, breaker *circuitbreaker.CircuitBreaker) *TrustpilotClient {
	rc := newRestClient(cfg.BaseURL, cfg.Timeout).
		SetHeader("apikey", cfg.APIKey)
	return &TrustpilotClient{rc: rc, cfg: cfg, breaker: breaker}
}

// Configured is false when reviews must come from the demo set.
func (c *TrustpilotClient) Configured() bool {
	return c.cfg.Configured()
}

// ReviewPage is one page of provider reviews mapped to cache rows.
type ReviewPage struct {
	Reviews []model.CachedReview
	Total   int
}

type tpReviewsResponse struct {
	Reviews              []tpReview `json:"reviews"`
	TotalNumberOfReviews int        `json:"totalNumberOfReviews"`
}

type tpReview struct {
	ID       string `json:"id"`
	Stars    int    `json:"stars"`
	Title    string `json:"title"`
	Text     string `json:"text"`
	Consumer struct {
		DisplayName string `json:"displayName"`
		CountryCode string `json:"countryCode"`
	} `json:"consumer"`
	CreatedAt    time.Time `json:"createdAt"`
	CompanyReply *struct {
		Text string `json:"text"`
	} `json:"companyReply"`
}

type tpError struct {
	Message string `json:"message"`
}

// StarFilter lists the star values >= minStars, highest first ("5,4").
func StarFilter(minStars int) string {
	var stars []string
	for s := 5; s >= 1; s-- {
		if s >= minStars {
			stars = append(stars, strconv.Itoa(s))
		}
	}
	return strings.Join(stars, ",")
}

// FetchReviews returns the newest reviews with at least minStars stars.
func (c *TrustpilotClient) FetchReviews(ctx context.Context, minStars, perPage int) (*ReviewPage, error) {
	if !c.Configured() {
		return nil, ErrNotConfigured
	}

	var page *ReviewPage
	err := call(ctx, c.breaker, providerTrustpilot, "reviews", func(ctx context.Context) error {
		var (
			out    tpReviewsResponse
			errOut tpError
		)
		resp, err := c.rc.R().
			SetContext(ctx).
			SetPathParam("unit", c.cfg.BusinessUnitID).
			SetQueryParams(map[string]string{
				"stars":    StarFilter(minStars),
				"orderBy":  "createdat.desc",
				"perPage":  strconv.Itoa(perPage),
				"language": c.cfg.Language,
			}).
			SetResult(&out).
			SetError(&errOut).
			Get("/v1/business-units/{unit}/reviews")
		if err != nil {
			return fmt.Errorf("trustpilot request failed: %w", err)
		}
		if resp.IsError() {
			msg := errOut.Message
			if msg == "" {
				msg = "Trustpilot API " + strconv.Itoa(resp.StatusCode())
			}
			return &ProviderError{Provider: providerTrustpilot, Status: resp.StatusCode(), Message: msg}
		}
		page = &ReviewPage{Reviews: mapReviews(out.Reviews), Total: out.TotalNumberOfReviews}
		return nil
	})
	if err != nil {
		return nil, err
	}
	return page, nil
}

func mapReviews(in []tpReview) []model.CachedReview {
	out := make([]model.CachedReview, 0, len(in))
	for _, r := range in {
		row := model.CachedReview{
			ID:          r.ID,
			Stars:       r.Stars,
			Title:       nonEmpty(r.Title),
			Text:        nonEmpty(r.Text),
			AuthorName:  r.Consumer.DisplayName,
			CreatedAtTP: r.CreatedAt,
			IsVisible:   true,
		}
		if row.AuthorName == "" {
			row.AuthorName = "Anonym"
		}
		row.AuthorLocation = nonEmpty(r.Consumer.CountryCode)
		if r.CompanyReply != nil {
			row.Response = nonEmpty(r.CompanyReply.Text)
		}
		out = append(out, row)
	}
	return out
}

func nonEmpty(s string) *string {
	if s == "" {
		return nil
	}
	return &s
}

// CreatorSync - Creator Video Analytics Reconciliation
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/creatorsync

/*
client.go - Analytics API Client

FetchWindow walks the creator video analytics endpoint page by page using the
opaque next_page_token and returns every row in receipt order. Rows are not
deduplicated here.

Request parameters:
  - start_date, end_date (YYYY-MM-DD)
  - page_size, sort_field, sort_order, account_type
  - page_token (omitted on the first page)

Response envelope:

	{"code": 0, "message": "ok", "data": {"rows": [...], "next_page_token": "..."}}

Failure handling per page:
  - HTTP 429 or code 429: ErrRateLimited, returned immediately
  - HTTP 5xx, code >= 500, transport errors: retried with exponential backoff
  - other HTTP 4xx or non-zero code: *APIError, returned immediately
  - undecodable body or missing data.rows: *UnexpectedResponseShapeError
*/

//nolint:staticcheck // File documentation, not package doc
package sync

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strconv"
	"strings"
	"time"

	"github.com/goccy/go-json"
	gobreaker "github.com/sony/gobreaker/v2"
	"golang.org/x/time/rate"

	"github.com/tomtom215/creatorsync/internal/config"
	"github.com/tomtom215/creatorsync/internal/logging"
	"github.com/tomtom215/creatorsync/internal/metrics"
	"github.com/tomtom215/creatorsync/internal/models"
)

const (
	dateLayout      = "2006-01-02"
	maxResponseSize = 32 << 20
	// maxPages guards against an API that keeps returning the same token.
	maxPages = 10000
)

// Account identifies whose analytics a request reads.
type Account struct {
	BrandID     int64
	AccessToken string
	AccountType string
}

// Fetcher fetches every raw row of one reporting window.
type Fetcher interface {
	FetchWindow(ctx context.Context, account Account, start, end time.Time) ([]models.RawRow, error)
}

// Ensure Client implements Fetcher
var _ Fetcher = (*Client)(nil)

// Client provides access to the analytics API.
type Client struct {
	endpoint   string
	cfg        config.AnalyticsConfig
	httpClient *http.Client
	limiter    *rate.Limiter
	breaker    *gobreaker.CircuitBreaker[*page]
	wait       func(ctx context.Context, d time.Duration) error
}

type page struct {
	Rows          []models.RawRow
	NextPageToken string
}

type envelope struct {
	Code    *int          `json:"code"`
	Message string        `json:"message"`
	Data    *envelopeData `json:"data"`
}

type envelopeData struct {
	Rows          []models.RawRow `json:"rows"`
	NextPageToken *string         `json:"next_page_token"`
}

// NewClient creates an analytics client. Pacing uses RequestsPerSecond and
// Burst; a non-positive rate disables pacing.
func NewClient(cfg *config.AnalyticsConfig) *Client {
	c := &Client{
		endpoint: strings.TrimSuffix(cfg.BaseURL, "/") + "/" + strings.TrimPrefix(cfg.VideosPath, "/"),
		cfg:      *cfg,
		httpClient: &http.Client{
			Timeout: cfg.Timeout,
		},
		wait: sleepContext,
	}
	if c.cfg.RetryAttempts < 1 {
		c.cfg.RetryAttempts = 1
	}
	if cfg.RequestsPerSecond > 0 {
		burst := cfg.Burst
		if burst < 1 {
			burst = 1
		}
		c.limiter = rate.NewLimiter(rate.Limit(cfg.RequestsPerSecond), burst)
	}
	if cfg.CircuitBreakerEnabled {
		c.breaker = newPageBreaker("analytics-api")
	}
	return c
}

// sleepContext waits for d or until ctx is done.
func sleepContext(ctx context.Context, d time.Duration) error {
	if d <= 0 {
		return ctx.Err()
	}
	timer := time.NewTimer(d)
	defer timer.Stop()
	select {
	case <-timer.C:
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}

// FetchWindow returns all rows for [start, end], pages concatenated in the
// order they were received.
func (c *Client) FetchWindow(ctx context.Context, account Account, start, end time.Time) ([]models.RawRow, error) {
	log := logging.Ctx(ctx)

	base := url.Values{}
	base.Set("start_date", start.UTC().Format(dateLayout))
	base.Set("end_date", end.UTC().Format(dateLayout))
	base.Set("page_size", strconv.Itoa(c.cfg.PageSize))
	if c.cfg.SortField != "" {
		base.Set("sort_field", c.cfg.SortField)
	}
	if c.cfg.SortOrder != "" {
		base.Set("sort_order", c.cfg.SortOrder)
	}
	accountType := account.AccountType
	if accountType == "" {
		accountType = c.cfg.AccountType
	}
	if accountType != "" {
		base.Set("account_type", accountType)
	}

	var rows []models.RawRow
	token := ""
	for pageNum := 1; ; pageNum++ {
		if pageNum > maxPages {
			return nil, fmt.Errorf("pagination exceeded %d pages", maxPages)
		}

		q := cloneValues(base)
		if token != "" {
			q.Set("page_token", token)
		}

		p, err := c.fetchPageWithRetry(ctx, account, q)
		if err != nil {
			return nil, fmt.Errorf("fetch page %d (%s..%s): %w",
				pageNum, base.Get("start_date"), base.Get("end_date"), err)
		}
		rows = append(rows, p.Rows...)

		log.Debug().
			Int("page", pageNum).
			Int("page_rows", len(p.Rows)).
			Int("total_rows", len(rows)).
			Msg("Fetched analytics page")

		if p.NextPageToken == "" {
			break
		}
		token = p.NextPageToken
	}

	return rows, nil
}

func cloneValues(v url.Values) url.Values {
	out := make(url.Values, len(v)+1)
	for k, vals := range v {
		out[k] = append([]string(nil), vals...)
	}
	return out
}

// fetchPageWithRetry retries transient failures with delays of
// base * 2^(attempt-1). Rate limits and client errors return at once.
func (c *Client) fetchPageWithRetry(ctx context.Context, account Account, q url.Values) (*page, error) {
	var err error
	for attempt := 1; attempt <= c.cfg.RetryAttempts; attempt++ {
		if ctx.Err() != nil {
			return nil, ctx.Err()
		}

		if c.limiter != nil {
			if werr := c.limiter.Wait(ctx); werr != nil {
				return nil, werr
			}
		}

		var p *page
		p, err = c.executePage(ctx, account, q)
		if err == nil {
			return p, nil
		}
		if !isRetryable(err) {
			return nil, err
		}

		if attempt < c.cfg.RetryAttempts {
			delay := c.cfg.RetryBaseDelay << (attempt - 1)
			logging.Ctx(ctx).Warn().Err(err).
				Int("attempt", attempt).
				Int("max_attempts", c.cfg.RetryAttempts).
				Dur("delay", delay).
				Msg("Retrying analytics page")
			metrics.AnalyticsRetries.Inc()
			if werr := c.wait(ctx, delay); werr != nil {
				return nil, werr
			}
		}
	}
	return nil, fmt.Errorf("max retry attempts reached: %w", err)
}

func (c *Client) executePage(ctx context.Context, account Account, q url.Values) (*page, error) {
	if c.breaker == nil {
		return c.fetchPage(ctx, account, q)
	}
	return executeWithBreaker(c.breaker, func() (*page, error) {
		return c.fetchPage(ctx, account, q)
	})
}

func (c *Client) fetchPage(ctx context.Context, account Account, q url.Values) (*page, error) {
	start := time.Now()
	p, result, err := c.doFetchPage(ctx, account, q)
	metrics.RecordAnalyticsRequest(result, time.Since(start))
	return p, err
}

func (c *Client) doFetchPage(ctx context.Context, account Account, q url.Values) (*page, string, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, c.endpoint+"?"+q.Encode(), http.NoBody)
	if err != nil {
		return nil, "client_error", fmt.Errorf("build request: %w", err)
	}
	token := account.AccessToken
	if token == "" {
		token = c.cfg.AccessToken
	}
	if token != "" {
		req.Header.Set("Authorization", "Bearer "+token)
	}
	req.Header.Set("Accept", "application/json")

	resp, err := c.httpClient.Do(req)
	if err != nil {
		if ctx.Err() != nil {
			return nil, "network_error", ctx.Err()
		}
		return nil, "network_error", &NetworkError{Err: err}
	}
	defer func() { _ = resp.Body.Close() }()

	body, err := io.ReadAll(io.LimitReader(resp.Body, maxResponseSize))
	if err != nil {
		return nil, "network_error", &NetworkError{Err: fmt.Errorf("read body: %w", err)}
	}

	switch {
	case resp.StatusCode == http.StatusTooManyRequests:
		return nil, "rate_limited", ErrRateLimited
	case resp.StatusCode >= 500:
		return nil, "server_error", &ServerError{StatusCode: resp.StatusCode, Message: truncateSample(body)}
	case resp.StatusCode >= 400:
		return nil, "client_error", &APIError{StatusCode: resp.StatusCode, Message: truncateSample(body)}
	}

	var env envelope
	if err := decodeEnvelope(body, &env); err != nil {
		return nil, "bad_shape", c.shapeError(ctx, resp.StatusCode, "decode envelope: "+err.Error(), body)
	}

	if env.Code != nil && *env.Code != 0 {
		code := *env.Code
		switch {
		case code == http.StatusTooManyRequests:
			return nil, "rate_limited", ErrRateLimited
		case code >= 500:
			return nil, "server_error", &ServerError{StatusCode: resp.StatusCode, Code: code, Message: env.Message}
		default:
			return nil, "client_error", &APIError{StatusCode: resp.StatusCode, Code: code, Message: env.Message}
		}
	}

	if env.Data == nil || env.Data.Rows == nil {
		return nil, "bad_shape", c.shapeError(ctx, resp.StatusCode, "missing data.rows", body)
	}

	p := &page{Rows: env.Data.Rows}
	if env.Data.NextPageToken != nil {
		p.NextPageToken = *env.Data.NextPageToken
	}
	return p, "ok", nil
}

// decodeEnvelope keeps row numbers as json.Number. Video ids are 19 digit
// integers and do not survive a float64 round trip.
func decodeEnvelope(body []byte, env *envelope) error {
	dec := json.NewDecoder(bytes.NewReader(body))
	dec.UseNumber()
	return dec.Decode(env)
}

func (c *Client) shapeError(ctx context.Context, status int, reason string, body []byte) error {
	sample := truncateSample(body)
	logging.Ctx(ctx).Error().
		Int("status", status).
		Str("reason", reason).
		Str("sample", sample).
		Msg("Unexpected analytics response shape")
	return &UnexpectedResponseShapeError{StatusCode: status, Reason: reason, Sample: sample}
}

// IsRateLimited reports whether err carries ErrRateLimited.
func IsRateLimited(err error) bool {
	return errors.Is(err, ErrRateLimited)
}

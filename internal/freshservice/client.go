// Package freshservice is the FreshService requester directory client.
//
// It lists every requester page by page and overwrites custom fields on a
// single requester. Outbound calls pass through a request-rate ceiling and a
// circuit breaker; list pages are additionally spaced by a fixed pause.
//
// Import Path: lakesync.dev/lakesync/internal/freshservice
package freshservice

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"strconv"
	"strings"
	"time"

	"github.com/sony/gobreaker"
	"go.uber.org/zap"
	"golang.org/x/time/rate"

	"lakesync.dev/lakesync/internal/metrics"
	"lakesync.dev/lakesync/internal/pkg/logger"
	"lakesync.dev/lakesync/internal/reconcile"
)

const (
	// MaxPageSize is the largest per_page FreshService accepts.
	MaxPageSize = 100

	DefaultPageDelay = 200 * time.Millisecond
	DefaultTimeout   = 30 * time.Second

	maxResponseBody = 8 << 20

	opListRequesters  = "list_requesters"
	opUpdateRequester = "update_requester"
)

// StatusError is a non-success HTTP response from FreshService.
type StatusError struct {
	Op         string
	StatusCode int
	Body       string
}

func (e *StatusError) Error() string {
	return fmt.Sprintf("freshservice %s: status %d: %s", e.Op, e.StatusCode, e.Body)
}

// Config configures a Client.
type Config struct {
	BaseURL   string
	APIKey    string
	PageSize  int
	PageDelay time.Duration
	Timeout   time.Duration
	// RequestsPerMinute caps outbound calls; 0 means no ceiling.
	RequestsPerMinute int
	// BreakerFailures is the consecutive failure count that opens the
	// breaker; 0 disables it.
	BreakerFailures uint32
	BreakerTimeout  time.Duration
}

// Client implements reconcile.TargetDirectory against the FreshService v2 API.
type Client struct {
	baseURL   string
	apiKey    string
	pageSize  int
	pageDelay time.Duration
	http      *http.Client
	limiter   *rate.Limiter
	breaker   *gobreaker.CircuitBreaker
	sleep     func(context.Context, time.Duration)
}

var _ reconcile.TargetDirectory = (*Client)(nil)

// Option customizes a Client.
type Option func(*Client)

// WithHTTPClient replaces the underlying HTTP client.
func WithHTTPClient(hc *http.Client) Option {
	return func(c *Client) { c.http = hc }
}

// WithSleep replaces the inter-page pause, mainly for tests.
func WithSleep(sleep func(context.Context, time.Duration)) Option {
	return func(c *Client) { c.sleep = sleep }
}

// NewClient creates a Client. Zero values in cfg fall back to defaults.
func NewClient(cfg Config, opts ...Option) (*Client, error) {
	base := strings.TrimRight(strings.TrimSpace(cfg.BaseURL), "/")
	if base == "" {
		return nil, errors.New("freshservice base URL is required")
	}
	if cfg.APIKey == "" {
		return nil, errors.New("freshservice API key is required")
	}

	pageSize := cfg.PageSize
	if pageSize <= 0 || pageSize > MaxPageSize {
		pageSize = MaxPageSize
	}
	timeout := cfg.Timeout
	if timeout <= 0 {
		timeout = DefaultTimeout
	}

	limiter := rate.NewLimiter(rate.Inf, 1)
	if cfg.RequestsPerMinute > 0 {
		limiter = rate.NewLimiter(rate.Every(time.Minute/time.Duration(cfg.RequestsPerMinute)), 1)
	}

	c := &Client{
		baseURL:   base,
		apiKey:    cfg.APIKey,
		pageSize:  pageSize,
		pageDelay: cfg.PageDelay,
		http:      &http.Client{Timeout: timeout},
		limiter:   limiter,
		breaker:   newBreaker(cfg.BreakerFailures, cfg.BreakerTimeout),
		sleep:     reconcile.SleepContext,
	}
	for _, opt := range opts {
		opt(c)
	}
	return c, nil
}

func newBreaker(failures uint32, timeout time.Duration) *gobreaker.CircuitBreaker {
	if failures == 0 {
		return nil
	}
	return gobreaker.NewCircuitBreaker(gobreaker.Settings{
		Name:        "freshservice",
		MaxRequests: 1,
		Timeout:     timeout,
		ReadyToTrip: func(counts gobreaker.Counts) bool {
			return counts.ConsecutiveFailures >= failures
		},
		OnStateChange: func(name string, from, to gobreaker.State) {
			logger.Warn("circuit breaker state changed",
				zap.String("breaker", name),
				zap.String("from", from.String()),
				zap.String("to", to.String()),
			)
		},
	})
}

// FetchAll returns every requester in retrieval order.
//
// Paging stops on an empty page or once the accumulated count reaches the
// reported total. When no total is reported a short page ends the listing.
// Any failed page aborts the whole fetch.
func (c *Client) FetchAll(ctx context.Context) ([]reconcile.TargetRecord, error) {
	var all []reconcile.TargetRecord

	for page := 1; ; page++ {
		if page > 1 {
			c.sleep(ctx, c.pageDelay)
		}

		logger.Debug("fetching requesters page", zap.Int("page", page))
		url := fmt.Sprintf("%s/api/v2/requesters?page=%d&per_page=%d", c.baseURL, page, c.pageSize)
		status, body, err := c.do(ctx, opListRequesters, http.MethodGet, url, nil)
		if err != nil {
			logger.Error("requester page fetch failed", zap.Int("page", page), zap.Error(err))
			return nil, fmt.Errorf("fetch requesters page %d: %w", page, err)
		}
		if !success(status) {
			err := &StatusError{Op: opListRequesters, StatusCode: status, Body: string(body)}
			logger.Error("requester page fetch failed", zap.Int("page", page), zap.Error(err))
			return nil, fmt.Errorf("fetch requesters page %d: %w", page, err)
		}

		result, err := decodePage(body)
		if err != nil {
			return nil, fmt.Errorf("decode requesters page %d: %w", page, err)
		}
		if len(result.Requesters) == 0 {
			break
		}
		for _, r := range result.Requesters {
			all = append(all, r.record())
		}

		if result.Total > 0 {
			if len(all) >= result.Total {
				break
			}
		} else if len(result.Requesters) < c.pageSize {
			break
		}
	}

	logger.Info("retrieved requesters from FreshService", zap.Int("count", len(all)))
	return all, nil
}

// UpdateCustomFields overwrites the supplied custom fields on one requester.
// Null values are left out of the payload. It never returns an error: any
// failure is logged and reported as false.
func (c *Client) UpdateCustomFields(ctx context.Context, id int64, fields reconcile.CustomFields) bool {
	payload, err := json.Marshal(updateRequest{CustomFields: fields.Compact()})
	if err != nil {
		logger.Error("encode requester update", zap.Int64("requester_id", id), zap.Error(err))
		return false
	}

	url := c.baseURL + "/api/v2/requesters/" + strconv.FormatInt(id, 10)
	status, body, err := c.do(ctx, opUpdateRequester, http.MethodPut, url, payload)
	if err != nil {
		logger.Error("error updating requester", zap.Int64("requester_id", id), zap.Error(err))
		return false
	}
	if !success(status) {
		logger.Warn("failed to update requester",
			zap.Int64("requester_id", id),
			zap.Int("status", status),
			zap.String("body", string(body)),
		)
		return false
	}

	logger.Debug("updated requester", zap.Int64("requester_id", id))
	return true
}

// do sends one request through the limiter and breaker. Transport errors,
// 429 and 5xx count against the breaker; other statuses are returned as is.
func (c *Client) do(ctx context.Context, op, method, url string, body []byte) (int, []byte, error) {
	if err := c.limiter.Wait(ctx); err != nil {
		metrics.ObserveFreshServiceRequest(op, "rate_limited")
		return 0, nil, fmt.Errorf("rate limiter: %w", err)
	}

	call := func() (interface{}, error) {
		return c.roundTrip(ctx, op, method, url, body)
	}

	var (
		out interface{}
		err error
	)
	if c.breaker != nil {
		out, err = c.breaker.Execute(call)
	} else {
		out, err = call()
	}

	resp, _ := out.(*response)
	switch {
	case resp != nil:
		metrics.ObserveFreshServiceRequest(op, strconv.Itoa(resp.status))
	case errors.Is(err, gobreaker.ErrOpenState), errors.Is(err, gobreaker.ErrTooManyRequests):
		metrics.ObserveFreshServiceRequest(op, "breaker_open")
	default:
		metrics.ObserveFreshServiceRequest(op, "error")
	}

	if resp != nil {
		var statusErr *StatusError
		if errors.As(err, &statusErr) {
			// Surface server-side failures as statuses, not transport errors.
			return resp.status, resp.body, nil
		}
	}
	if err != nil {
		return 0, nil, err
	}
	return resp.status, resp.body, nil
}

type response struct {
	status int
	body   []byte
}

func (c *Client) roundTrip(ctx context.Context, op, method, url string, body []byte) (*response, error) {
	var reader io.Reader
	if body != nil {
		reader = bytes.NewReader(body)
	}
	req, err := http.NewRequestWithContext(ctx, method, url, reader)
	if err != nil {
		return nil, fmt.Errorf("create request: %w", err)
	}
	req.SetBasicAuth(c.apiKey, "X")
	req.Header.Set("Accept", "application/json")
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}

	httpResp, err := c.http.Do(req)
	if err != nil {
		return nil, err
	}
	defer httpResp.Body.Close()

	data, err := io.ReadAll(io.LimitReader(httpResp.Body, maxResponseBody))
	if err != nil {
		return nil, fmt.Errorf("read response: %w", err)
	}

	resp := &response{status: httpResp.StatusCode, body: data}
	if httpResp.StatusCode == http.StatusTooManyRequests || httpResp.StatusCode >= http.StatusInternalServerError {
		return resp, &StatusError{Op: op, StatusCode: httpResp.StatusCode, Body: string(data)}
	}
	return resp, nil
}

func success(status int) bool {
	return status >= 200 && status < 300
}

package codeforces

import (
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
	"github.com/vytor/cftracker/internal/logger"
	"github.com/vytor/cftracker/internal/metrics"
	"golang.org/x/time/rate"
)

const (
	DefaultBaseURL = "https://codeforces.com/api"
	breakerName    = "codeforces-api"
	maxBodyBytes   = 64 << 20
)

// Options configures a Client. Zero values fall back to the defaults.
type Options struct {
	BaseURL      string
	CallInterval time.Duration
	Timeout      time.Duration
	// BreakerThreshold is the number of consecutive failures that opens the breaker.
	BreakerThreshold uint32
	// BreakerTimeout is how long the breaker stays open before probing again.
	BreakerTimeout time.Duration
	HTTPClient     *http.Client
}

func (o Options) withDefaults() Options {
	if o.BaseURL == "" {
		o.BaseURL = DefaultBaseURL
	}
	o.BaseURL = strings.TrimRight(o.BaseURL, "/")
	if o.CallInterval <= 0 {
		o.CallInterval = 2 * time.Second
	}
	if o.Timeout <= 0 {
		o.Timeout = 15 * time.Second
	}
	if o.BreakerThreshold == 0 {
		o.BreakerThreshold = 5
	}
	if o.BreakerTimeout <= 0 {
		o.BreakerTimeout = time.Minute
	}
	if o.HTTPClient == nil {
		o.HTTPClient = &http.Client{Timeout: o.Timeout}
	}
	return o
}

type Client struct {
	baseURL    string
	httpClient *http.Client
	limiter    *rate.Limiter
	cb         *gobreaker.CircuitBreaker[json.RawMessage]
	log        *logger.Logger
}

type envelope struct {
	Status  string          `json:"status"`
	Comment string          `json:"comment"`
	Result  json.RawMessage `json:"result"`
}

// New builds a client whose calls share one limiter and one circuit breaker.
func New(opts Options) *Client {
	opts = opts.withDefaults()
	log := logger.Default().WithPrefix("codeforces")

	metrics.CircuitBreakerState.WithLabelValues(breakerName).Set(0)

	cb := gobreaker.NewCircuitBreaker[json.RawMessage](gobreaker.Settings{
		Name:        breakerName,
		MaxRequests: 1,
		Timeout:     opts.BreakerTimeout,
		ReadyToTrip: func(counts gobreaker.Counts) bool {
			return counts.ConsecutiveFailures >= opts.BreakerThreshold
		},
		IsSuccessful: func(err error) bool {
			// unknown handles and caller cancellations say nothing about the platform's health
			return err == nil || errors.Is(err, ErrHandleNotFound) ||
				errors.Is(err, context.Canceled) || errors.Is(err, context.DeadlineExceeded)
		},
		OnStateChange: func(name string, from, to gobreaker.State) {
			log.Warn("circuit breaker %s: %s -> %s", name, from, to)
			metrics.CircuitBreakerState.WithLabelValues(name).Set(stateToFloat(to))
			metrics.CircuitBreakerTransitions.WithLabelValues(name, from.String(), to.String()).Inc()
		},
	})

	return &Client{
		baseURL:    opts.BaseURL,
		httpClient: opts.HTTPClient,
		limiter:    rate.NewLimiter(rate.Every(opts.CallInterval), 1),
		cb:         cb,
		log:        log,
	}
}

func stateToFloat(state gobreaker.State) float64 {
	switch state {
	case gobreaker.StateClosed:
		return 0
	case gobreaker.StateHalfOpen:
		return 1
	case gobreaker.StateOpen:
		return 2
	default:
		return -1
	}
}

// UserInfo fetches the profile of one handle.
func (c *Client) UserInfo(ctx context.Context, handle string) (*User, error) {
	if err := checkHandle(handle); err != nil {
		return nil, err
	}
	var users []User
	if err := c.call(ctx, "user.info", url.Values{"handles": {handle}}, &users); err != nil {
		return nil, err
	}
	if len(users) == 0 {
		return nil, &APIError{Method: "user.info", StatusCode: http.StatusOK, Comment: "empty result", Kind: ErrHandleNotFound}
	}
	return &users[0], nil
}

// UserRating fetches the full rating history of a handle, oldest first.
func (c *Client) UserRating(ctx context.Context, handle string) ([]RatingChange, error) {
	if err := checkHandle(handle); err != nil {
		return nil, err
	}
	changes := []RatingChange{}
	if err := c.call(ctx, "user.rating", url.Values{"handle": {handle}}, &changes); err != nil {
		return nil, err
	}
	return changes, nil
}

// UserStatus fetches a handle's submissions, newest first. count <= 0
// fetches all of them.
func (c *Client) UserStatus(ctx context.Context, handle string, count int) ([]Submission, error) {
	if err := checkHandle(handle); err != nil {
		return nil, err
	}
	params := url.Values{"handle": {handle}}
	if count > 0 {
		params.Set("from", "1")
		params.Set("count", strconv.Itoa(count))
	}
	subs := []Submission{}
	if err := c.call(ctx, "user.status", params, &subs); err != nil {
		return nil, err
	}
	return subs, nil
}

func checkHandle(handle string) error {
	if strings.TrimSpace(handle) == "" {
		return fmt.Errorf("empty handle: %w", ErrHandleNotFound)
	}
	return nil
}

// call waits for the limiter, runs the request through the breaker and
// decodes the envelope result into out.
func (c *Client) call(ctx context.Context, method string, params url.Values, out any) error {
	log := logger.FromContext(ctx).WithPrefix("codeforces").WithField("method", method)

	if err := c.limiter.Wait(ctx); err != nil {
		log.Debug("limiter wait aborted: %v", err)
		return err
	}

	start := time.Now()
	raw, err := c.cb.Execute(func() (json.RawMessage, error) {
		return c.do(ctx, method, params)
	})
	metrics.RemoteRequestDuration.WithLabelValues(method).Observe(time.Since(start).Seconds())

	if errors.Is(err, gobreaker.ErrOpenState) || errors.Is(err, gobreaker.ErrTooManyRequests) {
		metrics.RemoteRequests.WithLabelValues(method, "rejected").Inc()
		log.Warn("request rejected by circuit breaker")
		return fmt.Errorf("%w: circuit breaker %v", ErrUnavailable, err)
	}
	if err != nil {
		metrics.RemoteRequests.WithLabelValues(method, outcome(err)).Inc()
		log.Warn("request failed: %v", err)
		return err
	}
	metrics.RemoteRequests.WithLabelValues(method, "ok").Inc()

	if err := json.Unmarshal(raw, out); err != nil {
		log.Error("failed to decode %s result: %v", method, err)
		return fmt.Errorf("decode %s result: %w", method, err)
	}
	log.Debug("request completed in %v", time.Since(start))
	return nil
}

func outcome(err error) string {
	switch {
	case errors.Is(err, ErrHandleNotFound):
		return "not_found"
	case errors.Is(err, ErrRateLimited):
		return "rate_limited"
	case errors.Is(err, ErrUnavailable):
		return "unavailable"
	default:
		return "error"
	}
}

func (c *Client) do(ctx context.Context, method string, params url.Values) (json.RawMessage, error) {
	endpoint := c.baseURL + "/" + method + "?" + params.Encode()

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, endpoint, nil)
	if err != nil {
		return nil, err
	}
	req.Header.Set("Accept", "application/json")

	resp, err := c.httpClient.Do(req)
	if err != nil {
		if ctxErr := ctx.Err(); ctxErr != nil {
			return nil, ctxErr
		}
		return nil, fmt.Errorf("%w: %v", ErrUnavailable, err)
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(io.LimitReader(resp.Body, maxBodyBytes))
	if err != nil {
		return nil, fmt.Errorf("%w: read body: %v", ErrUnavailable, err)
	}

	var env envelope
	if err := json.Unmarshal(body, &env); err != nil {
		comment := strings.TrimSpace(string(body))
		if len(comment) > 200 {
			comment = comment[:200]
		}
		return nil, &APIError{Method: method, StatusCode: resp.StatusCode, Comment: comment, Kind: classify(resp.StatusCode, "")}
	}

	if resp.StatusCode != http.StatusOK || env.Status != "OK" {
		return nil, &APIError{Method: method, StatusCode: resp.StatusCode, Comment: env.Comment, Kind: classify(resp.StatusCode, env.Comment)}
	}
	return env.Result, nil
}

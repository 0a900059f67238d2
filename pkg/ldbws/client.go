package ldbws

import (
	"context"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strconv"
	"strings"
	"time"

	"github.com/cenkalti/backoff/v4"
	"github.com/rs/zerolog/log"
)

const (
	DefaultBaseURL        = "https://api1.raildata.org.uk/1010-live-departure-board-dep1_2/LDBWS/api/20220120"
	DefaultUserAgent      = "railcommute/1.0.0"
	DefaultRequestTimeout = 30 * time.Second
	DefaultMaxRetries     = 3
	DefaultBackoffUnit    = time.Second
)

// Client talks to the Live Departure Boards gateway on the Rail Data Marketplace
type Client struct {
	APIKey    string
	BaseURL   string
	UserAgent string

	HTTPClient     *http.Client
	RequestTimeout time.Duration

	// Attempt k (0 indexed) waits BackoffUnit * 2^k before the next attempt
	MaxRetries  int
	BackoffUnit time.Duration

	// Timer is used for the waits between attempts, nil uses a real timer
	Timer backoff.Timer
}

func NewClient(apiKey string) *Client {
	return &Client{
		APIKey:         apiKey,
		BaseURL:        DefaultBaseURL,
		UserAgent:      DefaultUserAgent,
		HTTPClient:     &http.Client{},
		RequestTimeout: DefaultRequestTimeout,
		MaxRetries:     DefaultMaxRetries,
		BackoffUnit:    DefaultBackoffUnit,
	}
}

// FetchDepartureBoard returns the raw departure board for origin, filtered to trains calling at destination
func (c *Client) FetchDepartureBoard(ctx context.Context, origin string, destination string, timeWindow int, maxRows int) ([]byte, error) {
	log.Debug().
		Str("origin", origin).
		Str("destination", destination).
		Int("timewindow", timeWindow).
		Int("rows", maxRows).
		Msg("Fetching departure board")

	params := url.Values{}
	if destination != "" {
		params.Set("filterCrs", strings.ToUpper(destination))
	}
	params.Set("timeWindow", strconv.Itoa(timeWindow))
	params.Set("numRows", strconv.Itoa(maxRows))

	return c.request(ctx, fmt.Sprintf("GetDepBoardWithDetails/%s", strings.ToUpper(origin)), params)
}

func (c *Client) GetDepartureBoard(ctx context.Context, origin string, destination string, timeWindow int, maxRows int) (*Board, error) {
	raw, err := c.FetchDepartureBoard(ctx, origin, destination, timeWindow, maxRows)
	if err != nil {
		log.Error().Err(err).Str("origin", origin).Str("destination", destination).Msg("Failed to get departure board")
		return nil, err
	}

	board, err := ParseBoard(raw)
	if err != nil {
		return nil, newError(ErrAPI, MessageUnavailable, 0, err)
	}

	return board, nil
}

func (c *Client) newBackOff(ctx context.Context) backoff.BackOffContext {
	exponential := &backoff.ExponentialBackOff{
		InitialInterval:     c.BackoffUnit,
		RandomizationFactor: 0,
		Multiplier:          2,
		MaxInterval:         c.BackoffUnit << c.MaxRetries,
		MaxElapsedTime:      0,
		Stop:                backoff.Stop,
		Clock:               backoff.SystemClock,
	}
	exponential.Reset()

	return backoff.WithContext(backoff.WithMaxRetries(exponential, uint64(c.MaxRetries)), ctx)
}

func (c *Client) request(ctx context.Context, endpoint string, params url.Values) ([]byte, error) {
	requestURL := fmt.Sprintf("%s/%s", c.BaseURL, endpoint)
	if len(params) > 0 {
		requestURL = fmt.Sprintf("%s?%s", requestURL, params.Encode())
	}

	attempt := 0
	operation := func() ([]byte, error) {
		attempt++
		return c.attempt(ctx, requestURL)
	}
	notify := func(err error, wait time.Duration) {
		log.Warn().
			Err(err).
			Str("endpoint", endpoint).
			Int("attempt", attempt).
			Int("maxretries", c.MaxRetries).
			Dur("wait", wait).
			Msg("Rail API request failed, retrying")
	}

	body, err := backoff.RetryNotifyWithTimerAndData(operation, c.newBackOff(ctx), notify, c.Timer)
	if err == nil {
		return body, nil
	}

	if _, ok := err.(*Error); !ok {
		err = newError(ErrAPI, MessageNetwork, 0, err)
	}
	log.Error().Err(err).Str("endpoint", endpoint).Int("attempts", attempt).Msg("Rail API request failed")

	return nil, err
}

// attempt makes a single request. Errors that should not be retried are wrapped with backoff.Permanent.
func (c *Client) attempt(ctx context.Context, requestURL string) ([]byte, error) {
	attemptCtx, cancel := context.WithTimeout(ctx, c.RequestTimeout)
	defer cancel()

	req, err := http.NewRequestWithContext(attemptCtx, http.MethodGet, requestURL, nil)
	if err != nil {
		return nil, backoff.Permanent(newError(ErrAPI, MessageUnavailable, 0, err))
	}
	req.Header.Set("x-apikey", c.APIKey)
	req.Header.Set("User-Agent", c.UserAgent)
	req.Header.Set("Accept", "application/json")

	resp, err := c.HTTPClient.Do(req)
	if err != nil {
		if ctx.Err() != nil {
			return nil, backoff.Permanent(newError(ErrAPI, MessageNetwork, 0, ctx.Err()))
		}

		return nil, newError(ErrAPI, MessageNetwork, 0, err)
	}
	defer resp.Body.Close()

	log.Debug().Str("url", req.URL.Path).Int("status", resp.StatusCode).Msg("Rail API request")

	switch {
	case resp.StatusCode == http.StatusUnauthorized || resp.StatusCode == http.StatusForbidden:
		return nil, backoff.Permanent(newError(ErrAuthentication, MessageAuthentication, resp.StatusCode, nil))
	case resp.StatusCode == http.StatusNotFound:
		return nil, backoff.Permanent(newError(ErrInvalidStation, MessageInvalidStation, resp.StatusCode, nil))
	case resp.StatusCode == http.StatusTooManyRequests:
		return nil, newError(ErrRateLimit, MessageRateLimit, resp.StatusCode, nil)
	case resp.StatusCode >= http.StatusInternalServerError:
		return nil, newError(ErrAPI, MessageUnavailable, resp.StatusCode, nil)
	case resp.StatusCode < 200 || resp.StatusCode > 299:
		return nil, backoff.Permanent(newError(ErrAPI, MessageUnavailable, resp.StatusCode, nil))
	}

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, newError(ErrAPI, MessageNetwork, 0, err)
	}

	return body, nil
}

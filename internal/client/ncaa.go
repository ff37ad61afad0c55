package client

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"math/rand"
	"net/http"
	"strconv"
	"strings"
	"sync"
	"time"

	"github.com/rs/zerolog/log"

	"github.com/bowenaidan/fantasy-hoops/internal/metrics"
	"github.com/bowenaidan/fantasy-hoops/internal/models"
)

const (
	scoreboardPath = "scoreboard/basketball-men/d1/%s/all-conf"
	rankingsPath   = "rankings/basketball-men/d1/associated-press"

	maxBackoff = 30 * time.Second
)

// ErrNotFound is returned when the API has no resource at the requested path
var ErrNotFound = errors.New("resource not found")

// Options configures a Client
type Options struct {
	BaseURL string
	Timeout time.Duration

	// MinRequestInterval spaces consecutive requests; the public host allows 5 per second
	MinRequestInterval time.Duration

	MaxRetries int
	RetryDelay time.Duration
}

// Client is the NCAA public API client
type Client struct {
	baseURL    string
	httpClient *http.Client
	maxRetries int
	retryDelay time.Duration

	// Request spacing
	minInterval time.Duration
	mu          sync.Mutex
	nextSlot    time.Time

	rankingsCache Cache
	rankingsTTL   time.Duration
}

// NewClient creates a new NCAA API client
func NewClient(opts Options) *Client {
	if opts.RetryDelay <= 0 {
		opts.RetryDelay = 1 * time.Second
	}
	if opts.Timeout <= 0 {
		opts.Timeout = 30 * time.Second
	}

	return &Client{
		baseURL:     strings.TrimRight(opts.BaseURL, "/"),
		maxRetries:  opts.MaxRetries,
		retryDelay:  opts.RetryDelay,
		minInterval: opts.MinRequestInterval,
		httpClient: &http.Client{
			Timeout: opts.Timeout,
			Transport: &http.Transport{
				MaxIdleConns:        10,
				MaxIdleConnsPerHost: 5,
				IdleConnTimeout:     90 * time.Second,
			},
		},
	}
}

// WithRankingsCache caches AP poll lookups for ttl
func (c *Client) WithRankingsCache(cache Cache, ttl time.Duration) *Client {
	c.rankingsCache = cache
	c.rankingsTTL = ttl
	return c
}

// Scoreboard fetches the games of one day. isoDate uses the yyyy/mm/dd form.
// Games the API reports without two named sides are dropped.
func (c *Client) Scoreboard(ctx context.Context, isoDate string) ([]*models.Game, error) {
	body, err := c.get(ctx, "scoreboard", fmt.Sprintf(scoreboardPath, isoDate))
	if err != nil {
		return nil, fmt.Errorf("failed to fetch scoreboard for %s: %w", isoDate, err)
	}

	var resp models.ScoreboardResponse
	if err := json.Unmarshal(body, &resp); err != nil {
		return nil, fmt.Errorf("failed to unmarshal scoreboard: %w", err)
	}

	games := make([]*models.Game, 0, len(resp.Games))
	for i := range resp.Games {
		game, ok := resp.Games[i].Input().ToGame()
		if !ok {
			log.Debug().
				Str("date", isoDate).
				Int("index", i).
				Msg("Skipping scoreboard entry without two teams")
			continue
		}
		games = append(games, game)
	}

	return games, nil
}

// Rankings fetches the current AP poll as normalized team name -> rank
func (c *Client) Rankings(ctx context.Context) (map[string]int, error) {
	const cacheKey = "rankings:ap"

	if c.rankingsCache != nil {
		var cached map[string]int
		found, err := c.rankingsCache.GetJSON(ctx, cacheKey, &cached)
		if err != nil {
			log.Warn().Err(err).Msg("Rankings cache read failed")
		} else if found {
			return cached, nil
		}
	}

	body, err := c.get(ctx, "rankings", rankingsPath)
	if err != nil {
		return nil, fmt.Errorf("failed to fetch rankings: %w", err)
	}

	entries, err := models.ParseRankings(body)
	if err != nil {
		return nil, fmt.Errorf("failed to parse rankings: %w", err)
	}
	ranks := models.RankMap(entries)

	if c.rankingsCache != nil && len(ranks) > 0 {
		if err := c.rankingsCache.SetJSON(ctx, cacheKey, ranks, c.rankingsTTL); err != nil {
			log.Warn().Err(err).Msg("Rankings cache write failed")
		}
	}

	return ranks, nil
}

// get performs a GET request with request spacing and retry logic.
// Network errors, 429 and 5xx are retried with exponential backoff that honors Retry-After.
func (c *Client) get(ctx context.Context, endpoint, path string) ([]byte, error) {
	url := fmt.Sprintf("%s/%s", c.baseURL, path)

	var lastErr error
	for attempt := 0; attempt <= c.maxRetries; attempt++ {
		if err := c.waitTurn(ctx); err != nil {
			return nil, err
		}

		body, retryAfter, err := c.do(ctx, endpoint, url, attempt)
		if err == nil {
			return body, nil
		}
		lastErr = err

		var retryable *retryableError
		if !errors.As(err, &retryable) || attempt == c.maxRetries {
			return nil, err
		}

		backoff := c.backoff(attempt, retryAfter)
		metrics.RecordAPIRetry(endpoint)
		log.Info().
			Str("url", url).
			Int("attempt", attempt+1).
			Dur("backoff", backoff).
			Err(err).
			Msg("Retrying API request after backoff")

		select {
		case <-ctx.Done():
			return nil, ctx.Err()
		case <-time.After(backoff):
		}
	}

	return nil, lastErr
}

// retryableError marks failures worth another attempt
type retryableError struct {
	err error
}

func (e *retryableError) Error() string { return e.err.Error() }
func (e *retryableError) Unwrap() error { return e.err }

func (c *Client) do(ctx context.Context, endpoint, url string, attempt int) ([]byte, time.Duration, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, url, nil)
	if err != nil {
		return nil, 0, fmt.Errorf("failed to create request: %w", err)
	}
	req.Header.Set("Accept", "application/json")
	req.Header.Set("User-Agent", "fantasy-hoops/1.0")

	log.Debug().
		Str("url", url).
		Int("attempt", attempt+1).
		Msg("Making API request")

	start := time.Now()
	resp, err := c.httpClient.Do(req)
	if err != nil {
		metrics.RecordAPICall(endpoint, "network_error", time.Since(start).Seconds())
		if ctx.Err() != nil {
			return nil, 0, ctx.Err()
		}
		return nil, 0, &retryableError{fmt.Errorf("API request failed: %w", err)}
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(resp.Body)
	metrics.RecordAPICall(endpoint, strconv.Itoa(resp.StatusCode), time.Since(start).Seconds())
	if err != nil {
		return nil, 0, &retryableError{fmt.Errorf("failed to read response body: %w", err)}
	}

	switch {
	case resp.StatusCode == http.StatusOK:
		log.Debug().
			Str("url", url).
			Int("size", len(body)).
			Msg("API request successful")
		return body, 0, nil

	case resp.StatusCode == http.StatusTooManyRequests || resp.StatusCode >= 500:
		return nil, parseRetryAfter(resp.Header.Get("Retry-After")),
			&retryableError{fmt.Errorf("API returned retryable status %d", resp.StatusCode)}

	case resp.StatusCode == http.StatusNotFound:
		return nil, 0, fmt.Errorf("%w: %s", ErrNotFound, url)

	default:
		return nil, 0, fmt.Errorf("API returned status %d: %s", resp.StatusCode, truncate(body, 200))
	}
}

// waitTurn blocks until the next request slot is free
func (c *Client) waitTurn(ctx context.Context) error {
	if c.minInterval <= 0 {
		return nil
	}

	c.mu.Lock()
	now := time.Now()
	slot := c.nextSlot
	if slot.Before(now) {
		slot = now
	}
	c.nextSlot = slot.Add(c.minInterval)
	c.mu.Unlock()

	wait := time.Until(slot)
	if wait <= 0 {
		return nil
	}
	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-time.After(wait):
		return nil
	}
}

// backoff returns the delay before retry number attempt+1: retryDelay doubled per
// attempt, replaced by Retry-After when the server sent one, capped at maxBackoff,
// plus up to 250ms of jitter
func (c *Client) backoff(attempt int, retryAfter time.Duration) time.Duration {
	delay := c.retryDelay * time.Duration(1<<uint(attempt))
	if retryAfter > 0 {
		delay = retryAfter
	}
	if delay > maxBackoff {
		delay = maxBackoff
	}
	return delay + time.Duration(rand.Int63n(int64(250*time.Millisecond)))
}

func parseRetryAfter(v string) time.Duration {
	v = strings.TrimSpace(v)
	if v == "" {
		return 0
	}
	if secs, err := strconv.Atoi(v); err == nil && secs > 0 {
		return time.Duration(secs) * time.Second
	}
	if when, err := http.ParseTime(v); err == nil {
		if d := time.Until(when); d > 0 {
			return d
		}
	}
	return 0
}

func truncate(body []byte, n int) string {
	if len(body) <= n {
		return string(body)
	}
	return string(body[:n]) + "..."
}

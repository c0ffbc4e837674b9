package mangadex

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"net/url"
	"strconv"
	"time"

	"golang.org/x/time/rate"
)

const (
	DefaultBaseURL = "https://api.mangadex.org"

	// Rate limiting: MangaDex allows 5 requests per second
	rateLimit = 5
	rateBurst = 10

	// Retry configuration
	maxRetries   = 5
	initialDelay = 1 * time.Second
	maxDelay     = 32 * time.Second
)

// MangaDexClient handles API requests with rate limiting and retry logic
type MangaDexClient struct {
	baseURL     string
	apiKey      string
	httpClient  *http.Client
	rateLimiter *rate.Limiter
	logger      *slog.Logger

	maxRetries   int
	initialDelay time.Duration
}

// Option customises a MangaDexClient.
type Option func(*MangaDexClient)

// WithHTTPClient replaces the default http client.
func WithHTTPClient(hc *http.Client) Option {
	return func(c *MangaDexClient) { c.httpClient = hc }
}

// WithRetryPolicy overrides the retry count and the first backoff delay.
func WithRetryPolicy(retries int, delay time.Duration) Option {
	return func(c *MangaDexClient) {
		c.maxRetries = retries
		c.initialDelay = delay
	}
}

// WithRateLimit overrides the requests-per-second budget.
func WithRateLimit(perSecond float64, burst int) Option {
	return func(c *MangaDexClient) {
		c.rateLimiter = rate.NewLimiter(rate.Limit(perSecond), burst)
	}
}

// WithLogger sets the structured logger used for retry diagnostics.
func WithLogger(l *slog.Logger) Option {
	return func(c *MangaDexClient) { c.logger = l }
}

// NewClient creates a new MangaDex API client. An empty baseURL selects the public API.
func NewClient(baseURL, apiKey string, opts ...Option) *MangaDexClient {
	if baseURL == "" {
		baseURL = DefaultBaseURL
	}
	c := &MangaDexClient{
		baseURL:     baseURL,
		apiKey:      apiKey,
		rateLimiter: rate.NewLimiter(rate.Limit(rateLimit), rateBurst),
		httpClient: &http.Client{
			Timeout: 30 * time.Second,
			Transport: &http.Transport{
				MaxIdleConns:        100,
				MaxIdleConnsPerHost: 10,
				IdleConnTimeout:     90 * time.Second,
			},
		},
		logger:       slog.Default(),
		maxRetries:   maxRetries,
		initialDelay: initialDelay,
	}
	for _, opt := range opts {
		opt(c)
	}
	return c
}

// GetMangaList searches manga with pagination and filters
func (c *MangaDexClient) GetMangaList(ctx context.Context, params url.Values) (*MangaListResponse, error) {
	// Add required includes for complete metadata
	if !params.Has("includes[]") {
		params.Add("includes[]", "author")
		params.Add("includes[]", "cover_art")
	}

	var response MangaListResponse
	if err := c.doRequest(ctx, http.MethodGet, "/manga", params, &response); err != nil {
		return nil, fmt.Errorf("failed to fetch manga list: %w", err)
	}
	return &response, nil
}

// GetManga fetches a single manga with its author and cover relationships
func (c *MangaDexClient) GetManga(ctx context.Context, id string) (*MangaResponse, error) {
	params := url.Values{}
	params.Add("includes[]", "author")
	params.Add("includes[]", "cover_art")

	var response MangaResponse
	if err := c.doRequest(ctx, http.MethodGet, "/manga/"+url.PathEscape(id), params, &response); err != nil {
		return nil, fmt.Errorf("failed to fetch manga %s: %w", id, err)
	}
	return &response, nil
}

// GetCovers lists cover art, one entry per edition cover
func (c *MangaDexClient) GetCovers(ctx context.Context, params url.Values) (*CoverListResponse, error) {
	if !params.Has("order[volume]") {
		params.Add("order[volume]", "asc")
	}

	var response CoverListResponse
	if err := c.doRequest(ctx, http.MethodGet, "/cover", params, &response); err != nil {
		return nil, fmt.Errorf("failed to fetch covers: %w", err)
	}
	return &response, nil
}

// doRequest performs an HTTP request with rate limiting and retry logic
func (c *MangaDexClient) doRequest(ctx context.Context, method, endpoint string, params url.Values, result interface{}) error {
	fullURL := c.baseURL + endpoint
	if len(params) > 0 {
		fullURL += "?" + params.Encode()
	}

	var lastErr error
	delay := c.initialDelay

	for attempt := 0; attempt <= c.maxRetries; attempt++ {
		if err := c.rateLimiter.Wait(ctx); err != nil {
			return fmt.Errorf("rate limiter error: %w", err)
		}

		retry, wait, err := c.attempt(ctx, method, fullURL, result)
		if err == nil {
			return nil
		}
		lastErr = err
		if !retry || attempt == c.maxRetries {
			break
		}
		if wait > 0 {
			delay = wait
		}

		c.logger.Warn("mangadex_request_retry",
			slog.String("endpoint", endpoint),
			slog.Int("attempt", attempt+1),
			slog.Int("max_retries", c.maxRetries),
			slog.Duration("delay", delay),
			slog.Any("error", err),
		)

		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-time.After(delay):
		}
		delay = minDuration(delay*2, maxDelay)
	}

	return fmt.Errorf("request failed: %w", lastErr)
}

// attempt runs one request. It reports whether the failure is retryable and
// the server-requested wait, if any.
func (c *MangaDexClient) attempt(ctx context.Context, method, fullURL string, result interface{}) (bool, time.Duration, error) {
	req, err := http.NewRequestWithContext(ctx, method, fullURL, nil)
	if err != nil {
		return false, 0, fmt.Errorf("failed to create request: %w", err)
	}

	req.Header.Set("User-Agent", "MangaKo/1.0")
	if c.apiKey != "" {
		req.Header.Set("Authorization", "Bearer "+c.apiKey)
	}

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return ctx.Err() == nil, 0, err
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		bodyBytes, _ := io.ReadAll(io.LimitReader(resp.Body, 4096))
		httpErr := fmt.Errorf("HTTP %d: %s", resp.StatusCode, string(bodyBytes))

		var wait time.Duration
		if retryAfter := resp.Header.Get("Retry-After"); retryAfter != "" {
			if secs, err := strconv.Atoi(retryAfter); err == nil {
				wait = time.Duration(secs) * time.Second
			}
		}
		return shouldRetry(resp.StatusCode), wait, httpErr
	}

	if err := json.NewDecoder(resp.Body).Decode(result); err != nil {
		return false, 0, fmt.Errorf("failed to parse response: %w", err)
	}
	return false, 0, nil
}

// shouldRetry determines if an HTTP status code warrants a retry
func shouldRetry(statusCode int) bool {
	return statusCode == http.StatusTooManyRequests || // 429
		statusCode >= 500 // 500-504
}

// minDuration returns the smaller of two durations
func minDuration(a, b time.Duration) time.Duration {
	if a < b {
		return a
	}
	return b
}

// BuildSearchParams creates the query for a title search page
func BuildSearchParams(title string, limit, offset int) url.Values {
	params := url.Values{}
	params.Add("title", title)
	params.Add("limit", strconv.Itoa(limit))
	params.Add("offset", strconv.Itoa(offset))
	params.Add("includes[]", "author")
	params.Add("includes[]", "cover_art")
	return params
}

// BuildCoverParams creates the query for a manga's cover listing
func BuildCoverParams(mangaID, locale string, limit, offset int) url.Values {
	params := url.Values{}
	params.Add("manga[]", mangaID)
	params.Add("limit", strconv.Itoa(limit))
	params.Add("offset", strconv.Itoa(offset))
	if locale != "" {
		params.Add("locales[]", locale)
	}
	params.Add("order[volume]", "asc")
	return params
}

package pos

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"log"
	"net/http"
	"net/url"
	"strconv"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/storefront/backend/internal/domain"
	"go.opentelemetry.io/contrib/instrumentation/net/http/otelhttp"
	"golang.org/x/time/rate"
)

const userAgent = "Storefront/1.0"

// DefaultMaxPages bounds how many pages a list fetch follows
const DefaultMaxPages = 50

// Config holds everything needed to talk to the POS
type Config struct {
	BaseURL      string
	ClientID     string
	ClientSecret string
	RestaurantID string
	LocationID   string

	Timeout           time.Duration
	TokenSafetyMargin time.Duration
	RateLimit         float64 // requests per second, 0 disables pacing
	RateBurst         int
	MaxPages          int
	Retry             RetryConfig

	// Tokens overrides the client-credentials exchange against BaseURL
	Tokens domain.TokenProvider
}

// Client handles communication with the POS API
type Client struct {
	httpClient   *http.Client
	baseURL      string
	restaurantID string
	locationID   string
	rateLimiter  *rate.Limiter
	auth         domain.TokenProvider
	retry        *Executor
	maxPages     int
	debug        bool
}

// NewClient creates a new POS API client
func NewClient(cfg Config) *Client {
	timeout := cfg.Timeout
	if timeout <= 0 {
		timeout = 10 * time.Second
	}
	maxPages := cfg.MaxPages
	if maxPages <= 0 {
		maxPages = DefaultMaxPages
	}

	limit := rate.Inf
	if cfg.RateLimit > 0 {
		limit = rate.Limit(cfg.RateLimit)
	}
	burst := cfg.RateBurst
	if burst <= 0 {
		burst = 5
	}

	httpClient := &http.Client{
		Timeout:   timeout,
		Transport: otelhttp.NewTransport(http.DefaultTransport),
	}
	baseURL := strings.TrimSuffix(cfg.BaseURL, "/")

	tokens := cfg.Tokens
	if tokens == nil {
		tokens = NewAuthenticator(httpClient, baseURL, cfg.ClientID, cfg.ClientSecret, NewTokenCache(), cfg.TokenSafetyMargin)
	}

	return &Client{
		httpClient:   httpClient,
		baseURL:      baseURL,
		restaurantID: cfg.RestaurantID,
		locationID:   cfg.LocationID,
		rateLimiter:  rate.NewLimiter(limit, burst),
		auth:         tokens,
		retry:        NewExecutor(cfg.Retry),
		maxPages:     maxPages,
	}
}

// SetDebug enables logging of raw error bodies
func (c *Client) SetDebug(debug bool) {
	c.debug = debug
}

// Authenticate makes sure a valid token is cached, retrying transient failures
func (c *Client) Authenticate(ctx context.Context) error {
	return c.retry.Do(ctx, "Authenticate", func(ctx context.Context) error {
		_, err := c.auth.Token(ctx)
		return err
	})
}

// GetShiftStatus reports whether the POS is accepting orders
func (c *Client) GetShiftStatus(ctx context.Context) (*domain.ShiftStatus, error) {
	const op = "GetShiftStatus"

	var dto shiftStatusDTO
	err := c.retry.Do(ctx, op, func(ctx context.Context) error {
		dto = shiftStatusDTO{}
		return c.getJSON(ctx, op, "/api/shiftstatus", "", &dto)
	})
	if err != nil {
		return nil, err
	}

	return mapShiftStatus(dto), nil
}

// GetInventory returns the stock state of every tracked product
func (c *Client) GetInventory(ctx context.Context) ([]domain.InventoryItem, error) {
	const op = "GetInventory"

	dtos, err := fetchAll(ctx, c, op, func(ctx context.Context, cursor string) ([]inventoryItemDTO, string, error) {
		var env inventoryEnvelope
		if err := c.getJSON(ctx, op, "/api/inventory", cursor, &env); err != nil {
			return nil, "", err
		}
		return env.Items, env.NextCursor, nil
	})
	if err != nil {
		return nil, err
	}

	log.Printf("[POS] Loaded %d inventory items", len(dtos))
	return mapInventory(dtos), nil
}

// GetProducts returns every product on the POS menu
func (c *Client) GetProducts(ctx context.Context) ([]domain.Product, error) {
	const op = "GetProducts"

	dtos, err := fetchAll(ctx, c, op, func(ctx context.Context, cursor string) ([]productDTO, string, error) {
		var env productsEnvelope
		if err := c.getJSON(ctx, op, "/api/products", cursor, &env); err != nil {
			return nil, "", err
		}
		return env.Products, env.NextCursor, nil
	})
	if err != nil {
		return nil, err
	}

	log.Printf("[POS] Loaded %d products", len(dtos))
	return mapProducts(dtos), nil
}

// fetchAll follows next_cursor until the last page and returns the combined
// list. Every page is retried on its own.
func fetchAll[T any](ctx context.Context, c *Client, op string, fetch func(ctx context.Context, cursor string) ([]T, string, error)) ([]T, error) {
	var all []T
	cursor := ""

	for page := 0; page < c.maxPages; page++ {
		var items []T
		var next string
		err := c.retry.Do(ctx, op, func(ctx context.Context) error {
			var err error
			items, next, err = fetch(ctx, cursor)
			return err
		})
		if err != nil {
			return nil, err
		}

		all = append(all, items...)
		if next == "" {
			return all, nil
		}
		if next == cursor {
			return nil, &domain.APIError{Op: op, Err: fmt.Errorf("%w: pagination cursor %q repeated", domain.ErrPOSUnavailable, next)}
		}
		cursor = next
	}

	return nil, &domain.APIError{Op: op, Err: fmt.Errorf("%w: more than %d pages", domain.ErrPOSUnavailable, c.maxPages)}
}

// getJSON performs one authenticated GET and decodes a 2xx body into out
func (c *Client) getJSON(ctx context.Context, op, path, cursor string, out interface{}) error {
	if err := c.rateLimiter.Wait(ctx); err != nil {
		return fmt.Errorf("rate limiter error: %w", err)
	}

	token, err := c.auth.Token(ctx)
	if err != nil {
		return err
	}

	reqURL := c.baseURL + path
	if cursor != "" {
		reqURL += "?" + url.Values{"cursor": {cursor}}.Encode()
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, reqURL, nil)
	if err != nil {
		return fmt.Errorf("failed to create request: %w", err)
	}
	req.Header.Set("Authorization", "Bearer "+token)
	req.Header.Set("Accept", "application/json")
	req.Header.Set("User-Agent", userAgent)
	req.Header.Set("X-Request-ID", uuid.NewString())
	if c.restaurantID != "" {
		req.Header.Set("X-Restaurant-ID", c.restaurantID)
	}
	if c.locationID != "" {
		req.Header.Set("X-Location-ID", c.locationID)
	}

	requestedAt := time.Now()
	resp, err := c.httpClient.Do(req)
	if err != nil {
		return &domain.APIError{Op: op, Err: fmt.Errorf("%w: %v", domain.ErrPOSUnavailable, err)}
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return &domain.APIError{Op: op, StatusCode: resp.StatusCode, Err: fmt.Errorf("%w: %v", domain.ErrPOSUnavailable, err)}
	}

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		if c.debug {
			log.Printf("[POS] %s error - Status: %d, Body: %s", op, resp.StatusCode, string(body))
		}
		return classifyStatus(op, resp, requestedAt)
	}

	if err := json.Unmarshal(body, out); err != nil {
		return &domain.APIError{Op: op, StatusCode: resp.StatusCode, Err: fmt.Errorf("%w: failed to decode response: %v", domain.ErrPOSUnavailable, err)}
	}

	return nil
}

// classifyStatus turns a non-2xx response into an APIError carrying the
// sentinel that decides retry behaviour
func classifyStatus(op string, resp *http.Response, now time.Time) error {
	apiErr := &domain.APIError{Op: op, StatusCode: resp.StatusCode}

	switch code := resp.StatusCode; {
	case code == http.StatusUnauthorized || code == http.StatusForbidden:
		apiErr.Err = domain.ErrAuthentication
	case code == http.StatusTooManyRequests:
		apiErr.Err = domain.ErrRateLimited
		apiErr.RetryAfter = parseRetryAfter(resp.Header.Get("Retry-After"), now)
	case code == http.StatusRequestTimeout:
		apiErr.Err = domain.ErrPOSUnavailable
	case code >= 400 && code < 500:
		apiErr.Err = domain.ErrBadRequest
	default:
		apiErr.Err = domain.ErrPOSUnavailable
	}

	return apiErr
}

// parseRetryAfter accepts delta-seconds or an HTTP date
func parseRetryAfter(value string, now time.Time) time.Duration {
	value = strings.TrimSpace(value)
	if value == "" {
		return domain.DefaultRetryAfter
	}
	if secs, err := strconv.Atoi(value); err == nil && secs >= 0 {
		return time.Duration(secs) * time.Second
	}
	if at, err := http.ParseTime(value); err == nil {
		if d := at.Sub(now); d > 0 {
			return d
		}
		return 0
	}
	return domain.DefaultRetryAfter
}

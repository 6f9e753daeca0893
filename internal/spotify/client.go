package spotify

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/roach88/playscript/internal/catalog"
)

// DefaultBaseURL is the Web API root.
const DefaultBaseURL = "https://api.spotify.com/v1"

// DefaultMarket is the market used for track and album lookups.
const DefaultMarket = "GB"

// Client is a Spotify Web API client.
//
// The *http.Client passed to NewClient is expected to add authorization,
// typically one returned by HTTPClient.
type Client struct {
	httpClient *http.Client
	baseURL    string
	market     string
	pageLimit  int
	logger     *slog.Logger
}

// ClientOption configures a Client.
type ClientOption func(*Client)

// WithBaseURL points the client at another API root (tests use httptest).
func WithBaseURL(u string) ClientOption {
	return func(c *Client) {
		c.baseURL = strings.TrimRight(u, "/")
	}
}

// WithMarket sets the market for lookups. Default: DefaultMarket.
func WithMarket(market string) ClientOption {
	return func(c *Client) {
		if market != "" {
			c.market = market
		}
	}
}

// WithConcurrency bounds concurrent page fetches. Default: 4.
func WithConcurrency(n int) ClientOption {
	return func(c *Client) {
		if n > 0 {
			c.pageLimit = n
		}
	}
}

// WithLogger sets the request logger.
func WithLogger(l *slog.Logger) ClientOption {
	return func(c *Client) {
		if l != nil {
			c.logger = l
		}
	}
}

// NewClient creates a client. A nil httpClient uses a plain client with a
// 30 second timeout.
func NewClient(httpClient *http.Client, opts ...ClientOption) *Client {
	if httpClient == nil {
		httpClient = &http.Client{Timeout: 30 * time.Second}
	}
	c := &Client{
		httpClient: httpClient,
		baseURL:    DefaultBaseURL,
		market:     DefaultMarket,
		pageLimit:  4,
		logger:     slog.New(slog.NewTextHandler(io.Discard, nil)),
	}
	for _, opt := range opts {
		opt(c)
	}
	return c
}

// APIError is a non-2xx response from the Web API.
type APIError struct {
	Status  int
	Message string
	Reason  string
}

func (e *APIError) Error() string {
	if e.Reason != "" {
		return fmt.Sprintf("spotify: HTTP %d: %s (%s)", e.Status, e.Message, e.Reason)
	}
	return fmt.Sprintf("spotify: HTTP %d: %s", e.Status, e.Message)
}

// Unwrap maps 404 responses to catalog.ErrNotFound.
func (e *APIError) Unwrap() error {
	if e.Status == http.StatusNotFound && e.Reason != reasonNoActiveDevice {
		return catalog.ErrNotFound
	}
	return nil
}

const reasonNoActiveDevice = "NO_ACTIVE_DEVICE"

// do sends a request and decodes a JSON body into out when out is non-nil.
func (c *Client) do(ctx context.Context, method, path string, query url.Values, out any) error {
	u := c.baseURL + path
	if len(query) > 0 {
		u += "?" + query.Encode()
	}
	req, err := http.NewRequestWithContext(ctx, method, u, nil)
	if err != nil {
		return err
	}
	req.Header.Set("Accept", "application/json")

	start := time.Now()
	resp, err := c.httpClient.Do(req)
	if err != nil {
		return fmt.Errorf("spotify: %s %s: %w", method, path, err)
	}
	defer resp.Body.Close()
	c.logger.Debug("spotify request", "method", method, "path", path, "status", resp.StatusCode, "elapsed", time.Since(start))

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		return decodeError(resp)
	}
	if out == nil || resp.StatusCode == http.StatusNoContent {
		return nil
	}
	if err := json.NewDecoder(resp.Body).Decode(out); err != nil {
		return fmt.Errorf("spotify: decode %s: %w", path, err)
	}
	return nil
}

func decodeError(resp *http.Response) error {
	apiErr := &APIError{Status: resp.StatusCode, Message: resp.Status}
	var body struct {
		Error struct {
			Status  int    `json:"status"`
			Message string `json:"message"`
			Reason  string `json:"reason"`
		} `json:"error"`
	}
	data, _ := io.ReadAll(io.LimitReader(resp.Body, 64<<10))
	if err := json.Unmarshal(data, &body); err == nil && body.Error.Message != "" {
		apiErr.Message = body.Error.Message
		apiErr.Reason = body.Error.Reason
	}
	return apiErr
}

// bareID strips a "spotify:<type>:" prefix.
func bareID(uri string) string {
	if i := strings.LastIndexByte(uri, ':'); i >= 0 {
		return uri[i+1:]
	}
	return uri
}

package api

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	nethttp "net/http"
	"net/url"
	"strconv"
	"strings"
	"sync"
	"time"

	"github.com/hashicorp/go-retryablehttp"

	"github.com/nexx/mediacenter/internal/config"
	"github.com/nexx/mediacenter/internal/constants"
	"github.com/nexx/mediacenter/internal/http"
	"github.com/nexx/mediacenter/internal/logging"
	"github.com/nexx/mediacenter/internal/ratelimit"
)

// retryLogger adapts the component logger to retryablehttp.LeveledLogger.
type retryLogger struct {
	log *logging.Logger
}

func (l retryLogger) Error(msg string, keysAndValues ...interface{}) {
	l.log.Error().Fields(keysAndValues).Msg(msg)
}

func (l retryLogger) Info(msg string, keysAndValues ...interface{}) {}

func (l retryLogger) Debug(msg string, keysAndValues ...interface{}) {
	l.log.Debug().Fields(keysAndValues).Msg(msg)
}

func (l retryLogger) Warn(msg string, keysAndValues ...interface{}) {
	l.log.Warn().Fields(keysAndValues).Msg(msg)
}

// RequestOption adjusts an outgoing request.
type RequestOption func(*nethttp.Request)

// FolderPassword unlocks a password-required folder.
func FolderPassword(pw string) RequestOption {
	return func(r *nethttp.Request) {
		if pw != "" {
			r.Header.Set("X-Folder-Password", pw)
		}
	}
}

// SharePassword opens a password-protected share link.
func SharePassword(pw string) RequestOption {
	return func(r *nethttp.Request) {
		if pw != "" {
			r.Header.Set("X-Share-Password", pw)
		}
	}
}

// Client talks to the Media Center API.
type Client struct {
	// retrying is used for PUT and DELETE, single for everything else.
	retrying       *retryablehttp.Client
	single         *retryablehttp.Client
	transferClient *nethttp.Client

	config  *config.Config
	baseURL string
	token   string
	limiter *ratelimit.LimiterStore
	logger  *logging.Logger

	mu       sync.RWMutex
	language func() string
}

// NewClient creates a client from cfg. Retries are off unless
// max_retries is set, and then only apply to PUT and DELETE. Reads are
// sent once; the caller re-triggers a failed listing.
func NewClient(cfg *config.Config) (*Client, error) {
	if err := cfg.ValidateForConnection(); err != nil {
		return nil, err
	}
	base, err := url.Parse(strings.TrimSpace(cfg.APIURL))
	if err != nil || base.Scheme == "" || base.Host == "" {
		return nil, fmt.Errorf("invalid api_url %q", cfg.APIURL)
	}

	httpClient, err := http.ConfigureHTTPClient(cfg)
	if err != nil {
		return nil, fmt.Errorf("failed to configure HTTP client: %w", err)
	}
	transferClient, err := http.CreateTransferClient(cfg)
	if err != nil {
		return nil, fmt.Errorf("failed to configure transfer client: %w", err)
	}

	logger := logging.NewLogger("api")
	newRetryClient := func(max int) *retryablehttp.Client {
		rc := retryablehttp.NewClient()
		rc.HTTPClient = httpClient
		rc.RetryMax = max
		rc.RetryWaitMin = constants.RetryWaitMin
		rc.RetryWaitMax = constants.RetryWaitMax
		rc.Logger = retryLogger{log: logger}
		// Hand the final response back instead of a generic "giving up" error.
		rc.ErrorHandler = retryablehttp.PassthroughErrorHandler
		return rc
	}

	return &Client{
		retrying:       newRetryClient(cfg.MaxRetries),
		single:         newRetryClient(0),
		transferClient: transferClient,
		config:         cfg,
		baseURL:        strings.TrimSuffix(base.String(), "/"),
		token:          cfg.Token,
		limiter:        ratelimit.GlobalStore(),
		logger:         logger,
	}, nil
}

// GetConfig returns the configuration used by this client.
func (c *Client) GetConfig() *config.Config {
	return c.config
}

// SetLanguageSource sets where the Accept-Language header comes from.
func (c *Client) SetLanguageSource(fn func() string) {
	c.mu.Lock()
	c.language = fn
	c.mu.Unlock()
}

func (c *Client) acceptLanguage() string {
	c.mu.RLock()
	fn := c.language
	c.mu.RUnlock()
	if fn == nil {
		return ""
	}
	return fn()
}

// retryable reports whether the transport may resend method on failure.
func retryable(method string) bool {
	switch method {
	case nethttp.MethodPut, nethttp.MethodDelete:
		return true
	}
	return false
}

// wait blocks on the limiter for the request's throttle scope.
func (c *Client) wait(ctx context.Context, method, path string) (*ratelimit.RateLimiter, error) {
	limiter, scope := c.limiter.ForRequest(c.baseURL, c.token, method, path)
	if err := limiter.Wait(ctx); err != nil {
		return nil, fmt.Errorf("rate limiter (%s) cancelled: %w", scope, err)
	}
	return limiter, nil
}

func (c *Client) decorate(req *nethttp.Request, opts []RequestOption) {
	req.Header.Set("Authorization", "Bearer "+c.token)
	req.Header.Set("Accept", "application/json")
	if lang := c.acceptLanguage(); lang != "" {
		req.Header.Set("Accept-Language", lang)
	}
	for _, opt := range opts {
		opt(req)
	}
}

// doRequest sends a JSON request and returns the response of any status.
func (c *Client) doRequest(ctx context.Context, method, path string, query url.Values, body interface{}, opts ...RequestOption) (*nethttp.Response, error) {
	limiter, err := c.wait(ctx, method, path)
	if err != nil {
		return nil, err
	}

	var reqBody io.Reader
	if body != nil {
		jsonData, err := json.Marshal(body)
		if err != nil {
			return nil, fmt.Errorf("failed to marshal request body: %w", err)
		}
		reqBody = bytes.NewReader(jsonData)
	}

	target := c.baseURL + path
	if len(query) > 0 {
		target += "?" + query.Encode()
	}
	req, err := retryablehttp.NewRequestWithContext(ctx, method, target, reqBody)
	if err != nil {
		return nil, fmt.Errorf("failed to create request: %w", err)
	}
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}
	c.decorate(req.Request, opts)

	client := c.single
	if retryable(method) {
		client = c.retrying
	}

	resp, err := client.Do(req)
	if err != nil {
		if ctx.Err() == nil {
			c.logger.Error().Err(err).Str("method", method).Str("path", path).Msg("API call failed")
		}
		return nil, fmt.Errorf("request failed: %w", err)
	}
	c.observe(limiter, resp)
	return resp, nil
}

// observe pauses the limiter when the server throttles us.
func (c *Client) observe(limiter *ratelimit.RateLimiter, resp *nethttp.Response) {
	if resp.StatusCode != nethttp.StatusTooManyRequests {
		return
	}
	cooldown := ratelimit.DefaultCooldown
	if s := resp.Header.Get("Retry-After"); s != "" {
		if secs, err := strconv.Atoi(s); err == nil && secs > 0 {
			cooldown = time.Duration(secs) * time.Second
		}
	}
	c.logger.Warn().
		Str("method", resp.Request.Method).
		Str("path", resp.Request.URL.Path).
		Dur("cooldown", cooldown).
		Msg("Throttled by server")
	limiter.Cooldown(cooldown)
}

// call sends a request, turns non-2xx into *StatusError and decodes the
// body into out when out is not nil.
func (c *Client) call(ctx context.Context, method, path string, query url.Values, body, out interface{}, opts ...RequestOption) error {
	resp, err := c.doRequest(ctx, method, path, query, body, opts...)
	if err != nil {
		return err
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		return newStatusError(resp)
	}
	if out == nil {
		_, _ = io.Copy(io.Discard, resp.Body)
		return nil
	}
	if err := decodeJSON(resp.Body, out); err != nil {
		return malformed(method+" "+path, err)
	}
	return nil
}

// decodeJSON rejects unknown trailing data after the value.
func decodeJSON(r io.Reader, out interface{}) error {
	dec := json.NewDecoder(r)
	if err := dec.Decode(out); err != nil {
		return err
	}
	if dec.More() {
		return fmt.Errorf("unexpected data after JSON value")
	}
	return nil
}

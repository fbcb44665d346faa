package httpclient

import (
	"context"
	"crypto/tls"
	"crypto/x509"
	"fmt"
	"io"
	"net"
	"net/http"
	"net/url"
	"os"
	"strings"
	"time"

	"golang.org/x/net/proxy"
	"letterboxd-capture/internal/config"
	"letterboxd-capture/pkg/logger"
	"letterboxd-capture/pkg/retry"
)

const (
	DefaultUserAgent = "Mozilla/5.0 (Windows NT 10.0; Win64; x64) AppleWebKit/537.36 (KHTML, like Gecko) Chrome/120.0.0.0 Safari/537.36"
	DefaultTimeout   = 25 * time.Second
)

// defaultHeaders are sent with every request unless overridden per call
var defaultHeaders = map[string]string{
	"Accept":          "text/html,application/xhtml+xml,application/xml;q=0.9,*/*;q=0.8",
	"Accept-Language": "en-US,en;q=0.5",
}

// StatusError is returned when the server answers with a non-200 status
type StatusError struct {
	URL        string
	StatusCode int
	Status     string
}

func (e *StatusError) Error() string {
	return fmt.Sprintf("HTTP %d: %s", e.StatusCode, e.Status)
}

// Client represents HTTP client with proxy and retry support
type Client struct {
	httpClient *http.Client
	config     *config.ProxyConfig
	userAgent  string
	headers    map[string]string
	retry      int
	timeout    time.Duration
}

// NewClient creates a new HTTP client with configuration
func NewClient(cfg *config.ProxyConfig) *Client {
	timeout := time.Duration(cfg.Timeout) * time.Second
	if timeout == 0 {
		timeout = DefaultTimeout
	}

	client := &Client{
		config:    cfg,
		userAgent: DefaultUserAgent,
		headers:   make(map[string]string, len(defaultHeaders)),
		retry:     cfg.Retry,
		timeout:   timeout,
	}
	for k, v := range defaultHeaders {
		client.headers[k] = v
	}

	client.httpClient = client.buildHTTPClient()
	return client
}

// buildHTTPClient builds HTTP client with proxy and TLS configuration
func (c *Client) buildHTTPClient() *http.Client {
	transport := &http.Transport{
		DialContext: (&net.Dialer{
			Timeout:   30 * time.Second,
			KeepAlive: 30 * time.Second,
		}).DialContext,
		ForceAttemptHTTP2:     true,
		MaxIdleConns:          10,
		MaxIdleConnsPerHost:   2,
		IdleConnTimeout:       90 * time.Second,
		TLSHandshakeTimeout:   10 * time.Second,
		ExpectContinueTimeout: 1 * time.Second,
	}

	tlsConfig := &tls.Config{MinVersion: tls.VersionTLS12}
	if c.config.CACertFile != "" {
		if pool, err := loadCertPool(c.config.CACertFile); err == nil {
			tlsConfig.RootCAs = pool
		} else {
			logger.Warn("Ignoring CA cert file: %v", err)
		}
	}
	transport.TLSClientConfig = tlsConfig

	if c.config.Switch && c.config.Proxy != "" {
		if err := c.applyProxy(transport); err != nil {
			logger.Warn("Proxy disabled: %v", err)
		}
	}

	return &http.Client{
		Timeout:   c.timeout,
		Transport: transport,
		CheckRedirect: func(req *http.Request, via []*http.Request) error {
			if len(via) >= 10 {
				return fmt.Errorf("stopped after 10 redirects")
			}
			// Copy important headers from original request to redirect
			originalReq := via[0]
			for _, header := range []string{"User-Agent", "Accept", "Accept-Language", "Referer"} {
				if value := originalReq.Header.Get(header); value != "" {
					req.Header.Set(header, value)
				}
			}
			return nil
		},
	}
}

// applyProxy wires an HTTP or SOCKS5 proxy into transport
func (c *Client) applyProxy(transport *http.Transport) error {
	proxyURL, err := c.parseProxy()
	if err != nil {
		return fmt.Errorf("invalid proxy %q: %w", c.config.Proxy, err)
	}

	switch strings.ToLower(proxyURL.Scheme) {
	case "socks5", "socks5h":
		dialer, err := proxy.FromURL(proxyURL, proxy.Direct)
		if err != nil {
			return fmt.Errorf("socks5 dialer: %w", err)
		}
		if cd, ok := dialer.(proxy.ContextDialer); ok {
			transport.DialContext = cd.DialContext
		} else {
			transport.DialContext = func(ctx context.Context, network, addr string) (net.Conn, error) {
				return dialer.Dial(network, addr)
			}
		}
	default:
		transport.Proxy = http.ProxyURL(proxyURL)
	}
	return nil
}

// parseProxy parses proxy configuration
func (c *Client) parseProxy() (*url.URL, error) {
	proxyStr := c.config.Proxy
	if !strings.Contains(proxyStr, "://") {
		scheme := c.config.Type
		if scheme == "" {
			scheme = "http"
		}
		proxyStr = scheme + "://" + proxyStr
	}
	return url.Parse(proxyStr)
}

func loadCertPool(path string) (*x509.CertPool, error) {
	pem, err := os.ReadFile(path)
	if err != nil {
		return nil, err
	}
	pool, err := x509.SystemCertPool()
	if err != nil || pool == nil {
		pool = x509.NewCertPool()
	}
	if !pool.AppendCertsFromPEM(pem) {
		return nil, fmt.Errorf("no certificates found in %s", path)
	}
	return pool, nil
}

// normalizeURL normalizes URL by adding protocol if missing
func (c *Client) normalizeURL(rawURL string) string {
	if strings.HasPrefix(rawURL, "//") {
		return "https:" + rawURL
	}
	if !strings.Contains(rawURL, "://") {
		return "https://" + rawURL
	}
	return rawURL
}

// retryConfig maps proxy.retry onto the retry package
func (c *Client) retryConfig(url string) *retry.Config {
	cfg := retry.NetworkConfig(c.retry)
	cfg.OnRetry = func(attempt int, err error) {
		logger.Debug("Request to %s failed (attempt %d/%d): %v", url, attempt, cfg.MaxAttempts, err)
	}
	return cfg
}

// Get performs HTTP GET request with retry. The caller closes the body.
func (c *Client) Get(ctx context.Context, url string, headers map[string]string) (*http.Response, error) {
	normalizedURL := c.normalizeURL(url)

	var resp *http.Response
	err := retry.Do(ctx, func(ctx context.Context) error {
		r, err := c.do(ctx, http.MethodGet, normalizedURL, headers)
		if err != nil {
			return err
		}
		resp = r
		return nil
	}, c.retryConfig(normalizedURL))
	if err != nil {
		return nil, err
	}
	return resp, nil
}

// GetBytes gets response body as bytes; any status other than 200 is an error
func (c *Client) GetBytes(ctx context.Context, url string, headers map[string]string) ([]byte, error) {
	normalizedURL := c.normalizeURL(url)

	var body []byte
	err := retry.Do(ctx, func(ctx context.Context) error {
		resp, err := c.do(ctx, http.MethodGet, normalizedURL, headers)
		if err != nil {
			return err
		}
		defer resp.Body.Close()

		if resp.StatusCode != http.StatusOK {
			io.Copy(io.Discard, resp.Body)
			return &StatusError{URL: normalizedURL, StatusCode: resp.StatusCode, Status: resp.Status}
		}

		data, err := io.ReadAll(resp.Body)
		if err != nil {
			return fmt.Errorf("failed to read body: %w", err)
		}
		body = data
		return nil
	}, c.retryConfig(normalizedURL))
	if err != nil {
		return nil, err
	}
	return body, nil
}

// GetString gets response body as string
func (c *Client) GetString(ctx context.Context, url string, headers map[string]string) (string, error) {
	data, err := c.GetBytes(ctx, url, headers)
	if err != nil {
		return "", err
	}
	return string(data), nil
}

// do sends a single request with the default and per-call headers
func (c *Client) do(ctx context.Context, method, url string, headers map[string]string) (*http.Response, error) {
	req, err := http.NewRequestWithContext(ctx, method, url, nil)
	if err != nil {
		return nil, err
	}

	req.Header.Set("User-Agent", c.userAgent)
	for key, value := range c.headers {
		req.Header.Set(key, value)
	}
	for key, value := range headers {
		req.Header.Set(key, value)
	}

	return c.httpClient.Do(req)
}

// SetUserAgent sets custom user agent
func (c *Client) SetUserAgent(ua string) {
	if ua != "" {
		c.userAgent = ua
	}
}

// SetHeader sets a header sent with every request, e.g. Referer
func (c *Client) SetHeader(key, value string) {
	c.headers[key] = value
}

// Close closes idle connections
func (c *Client) Close() error {
	c.httpClient.CloseIdleConnections()
	return nil
}

package transport

import (
	"context"
	"crypto/tls"
	"errors"
	"fmt"
	"log"
	"math/rand/v2"
	"net"
	"net/http"
	"time"

	"github.com/gocolly/colly"
	"github.com/gocolly/colly/extensions"
)

// Fetcher retrieves the body of a page. Implementations return *GoneError
// for pages that no longer exist and *TransientError when every attempt
// failed.
type Fetcher interface {
	Fetch(ctx context.Context, url string) ([]byte, error)
}

// FetcherFunc adapts a function to the Fetcher interface.
type FetcherFunc func(ctx context.Context, url string) ([]byte, error)

// Fetch calls f(ctx, url).
func (f FetcherFunc) Fetch(ctx context.Context, url string) ([]byte, error) {
	return f(ctx, url)
}

// Range is a closed interval of durations a random wait is drawn from.
type Range struct {
	Min time.Duration
	Max time.Duration
}

// Random returns a duration drawn uniformly from the range.
func (r Range) Random() time.Duration {
	if r.Max <= r.Min {
		return r.Min
	}
	return r.Min + rand.N(r.Max-r.Min)
}

// Config holds the request layer settings.
type Config struct {
	// Timeout bounds a single request.
	Timeout time.Duration
	// Proxy is an optional upstream proxy URL (http, https or socks5).
	Proxy string
	// MaxAttempts bounds how many times a URL is requested.
	MaxAttempts int
	// Delay is the pause after every request.
	Delay Range
	// Backoff is the pause between failed attempts. It should be wider
	// than Delay.
	Backoff Range
	// InsecureTLS disables certificate verification.
	InsecureTLS bool
}

// DefaultConfig returns the request settings used against the target site.
func DefaultConfig() Config {
	return Config{
		Timeout:     10 * time.Second,
		MaxAttempts: 3,
		Delay:       Range{Min: 2 * time.Second, Max: 5 * time.Second},
		Backoff:     Range{Min: 10 * time.Second, Max: 30 * time.Second},
		InsecureTLS: true,
	}
}

// Validate checks the configuration for values the client cannot use.
func (c Config) Validate() error {
	if c.Timeout <= 0 {
		return errors.New("timeout must be positive")
	}
	if c.MaxAttempts < 1 {
		return errors.New("max attempts must be at least 1")
	}
	if c.Delay.Min < 0 || c.Delay.Max < c.Delay.Min {
		return fmt.Errorf("invalid delay range %v..%v", c.Delay.Min, c.Delay.Max)
	}
	if c.Backoff.Min < 0 || c.Backoff.Max < c.Backoff.Min {
		return fmt.Errorf("invalid backoff range %v..%v", c.Backoff.Min, c.Backoff.Max)
	}
	return nil
}

// Client fetches pages one at a time through a colly collector. The
// collector holds the proxy, TLS and pacing settings; each attempt runs on
// a clone so callbacks never leak between requests.
type Client struct {
	base   *colly.Collector
	config Config
	logger *log.Logger
	sleep  func(ctx context.Context, d time.Duration) error
}

// NewClient creates a client from config. The logger receives retry
// warnings.
func NewClient(config Config, logger *log.Logger) (*Client, error) {
	if err := config.Validate(); err != nil {
		return nil, fmt.Errorf("invalid transport config: %w", err)
	}
	if logger == nil {
		logger = log.Default()
	}

	collector := colly.NewCollector(
		colly.AllowURLRevisit(),
		colly.DetectCharset(),
	)

	collector.WithTransport(&http.Transport{
		DialContext: (&net.Dialer{
			Timeout:   config.Timeout,
			KeepAlive: 30 * time.Second,
		}).DialContext,
		TLSClientConfig:       &tls.Config{InsecureSkipVerify: config.InsecureTLS},
		TLSHandshakeTimeout:   config.Timeout,
		ResponseHeaderTimeout: config.Timeout,
		IdleConnTimeout:       90 * time.Second,
		MaxIdleConns:          10,
	})
	collector.SetRequestTimeout(config.Timeout)

	// SetProxy patches the transport installed above, so it must come
	// after WithTransport.
	if config.Proxy != "" {
		if err := collector.SetProxy(config.Proxy); err != nil {
			return nil, fmt.Errorf("invalid proxy %q: %w", config.Proxy, err)
		}
	}

	err := collector.Limit(&colly.LimitRule{
		DomainGlob:  "*",
		Parallelism: 1,
		Delay:       config.Delay.Min,
		RandomDelay: config.Delay.Max - config.Delay.Min,
	})
	if err != nil {
		return nil, fmt.Errorf("failed to set request limit: %w", err)
	}

	return &Client{
		base:   collector,
		config: config,
		logger: logger,
		sleep:  sleepContext,
	}, nil
}

// Fetch requests url until it succeeds or the attempt bound is reached. A
// 404 stops immediately with *GoneError.
func (c *Client) Fetch(ctx context.Context, url string) ([]byte, error) {
	var lastErr error
	var lastStatus int

	for attempt := 1; attempt <= c.config.MaxAttempts; attempt++ {
		if err := ctx.Err(); err != nil {
			return nil, err
		}

		body, status, err := c.attempt(url)
		if err == nil {
			return body, nil
		}

		if status == http.StatusNotFound {
			return nil, &GoneError{URL: url}
		}

		lastErr = err
		lastStatus = status

		if attempt < c.config.MaxAttempts {
			wait := c.config.Backoff.Random()
			c.logger.Printf("WARN: Attempt %d/%d for %s failed: %v (retrying in %v)",
				attempt, c.config.MaxAttempts, url, err, wait.Round(time.Millisecond))
			if err := c.sleep(ctx, wait); err != nil {
				return nil, err
			}
		}
	}

	return nil, &TransientError{
		URL:        url,
		Attempts:   c.config.MaxAttempts,
		StatusCode: lastStatus,
		Err:        lastErr,
	}
}

// attempt performs a single request and returns the body, the HTTP status
// (0 when no response arrived) and the error colly reported.
func (c *Client) attempt(url string) ([]byte, int, error) {
	collector := c.base.Clone()
	extensions.RandomUserAgent(collector)

	var body []byte
	var status int

	collector.OnRequest(func(r *colly.Request) {
		for key, value := range randomHeaders() {
			r.Headers.Set(key, value)
		}
	})
	collector.OnResponse(func(r *colly.Response) {
		status = r.StatusCode
		body = r.Body
	})
	collector.OnError(func(r *colly.Response, _ error) {
		if r != nil {
			status = r.StatusCode
		}
	})

	if err := collector.Visit(url); err != nil {
		return nil, status, err
	}
	return body, status, nil
}

// sleepContext waits for d or until ctx is done.
func sleepContext(ctx context.Context, d time.Duration) error {
	if d <= 0 {
		return nil
	}
	timer := time.NewTimer(d)
	defer timer.Stop()

	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-timer.C:
		return nil
	}
}

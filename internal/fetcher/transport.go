package fetcher

import (
	"net/http"
	"time"

	"golang.org/x/time/rate"
)

const (
	// UserAgent identifies the daemon to image hosts and APIs
	UserAgent = "reverieDaemon/1.0"

	_defaultTimeout = 10 * time.Second
	_defaultRate    = 8
)

// ClientOptions configures the shared outbound HTTP client
type ClientOptions struct {
	Timeout time.Duration
	// RatePerSecond caps outbound requests; zero or less disables limiting
	RatePerSecond float64
	UserAgent     string
}

// DefaultClientOptions returns the settings used when no configuration is supplied
func DefaultClientOptions() ClientOptions {
	return ClientOptions{
		Timeout:       _defaultTimeout,
		RatePerSecond: _defaultRate,
		UserAgent:     UserAgent,
	}
}

// limitedTransport stamps a User-Agent on every request and waits on a token bucket
type limitedTransport struct {
	base      http.RoundTripper
	limiter   *rate.Limiter
	userAgent string
}

// RoundTrip implements http.RoundTripper
func (t *limitedTransport) RoundTrip(req *http.Request) (*http.Response, error) {
	if t.limiter != nil {
		if err := t.limiter.Wait(req.Context()); err != nil {
			return nil, err
		}
	}

	// RoundTrippers must not modify the caller's request
	clone := req.Clone(req.Context())
	if clone.Header.Get("User-Agent") == "" {
		clone.Header.Set("User-Agent", t.userAgent)
	}
	return t.base.RoundTrip(clone)
}

// NewClient builds the http.Client shared by the fetcher and the providers
func NewClient(opts ClientOptions) *http.Client {
	if opts.Timeout <= 0 {
		opts.Timeout = _defaultTimeout
	}
	if opts.UserAgent == "" {
		opts.UserAgent = UserAgent
	}

	var limiter *rate.Limiter
	if opts.RatePerSecond > 0 {
		burst := int(opts.RatePerSecond)
		if burst < 1 {
			burst = 1
		}
		limiter = rate.NewLimiter(rate.Limit(opts.RatePerSecond), burst)
	}

	return &http.Client{
		Timeout: opts.Timeout, // Essential to prevent blocking the daemon
		Transport: &limitedTransport{
			base:      http.DefaultTransport,
			limiter:   limiter,
			userAgent: opts.UserAgent,
		},
	}
}

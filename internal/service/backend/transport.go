package backend

import (
	"context"
	"fmt"
	"net/http"

	"golang.org/x/time/rate"
)

// Transport sends one outbound request. It replaces any ambient, process-wide
// HTTP hook: components that need the network take a Transport explicitly.
type Transport interface {
	Send(ctx context.Context, req *http.Request) (*http.Response, error)
}

// TransportFunc adapts a function to Transport.
type TransportFunc func(ctx context.Context, req *http.Request) (*http.Response, error)

// Send calls f.
func (f TransportFunc) Send(ctx context.Context, req *http.Request) (*http.Response, error) {
	return f(ctx, req)
}

// HTTPTransport sends requests with an *http.Client.
type HTTPTransport struct {
	client *http.Client
}

// NewHTTPTransport wraps client; nil selects http.DefaultClient.
func NewHTTPTransport(client *http.Client) *HTTPTransport {
	if client == nil {
		client = http.DefaultClient
	}
	return &HTTPTransport{client: client}
}

// Send issues req bound to ctx.
func (t *HTTPTransport) Send(ctx context.Context, req *http.Request) (*http.Response, error) {
	return t.client.Do(req.WithContext(ctx))
}

// RateLimitedTransport delays requests so that next never sees more than the
// configured rate. It never drops or retries.
type RateLimitedTransport struct {
	next    Transport
	limiter *rate.Limiter
}

// NewRateLimitedTransport limits next to perSecond requests with the given burst.
func NewRateLimitedTransport(next Transport, perSecond float64, burst int) *RateLimitedTransport {
	if burst < 1 {
		burst = 1
	}
	return &RateLimitedTransport{
		next:    next,
		limiter: rate.NewLimiter(rate.Limit(perSecond), burst),
	}
}

// Send waits for a token, then forwards req.
func (t *RateLimitedTransport) Send(ctx context.Context, req *http.Request) (*http.Response, error) {
	if err := t.limiter.Wait(ctx); err != nil {
		return nil, fmt.Errorf("rate limit wait: %w", err)
	}
	return t.next.Send(ctx, req)
}

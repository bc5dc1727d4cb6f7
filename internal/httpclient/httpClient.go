// Package httpclient is the single gateway for repository traffic: a shared
// token-bucket limiter, bounded retries on 5xx and per-attempt spans.
package httpclient

import (
	"context"
	"errors"
	"fmt"
	"io"
	"net/http"
	"time"

	"go.opentelemetry.io/contrib/instrumentation/net/http/otelhttp"
	"go.opentelemetry.io/otel/attribute"
	"golang.org/x/time/rate"

	"github.com/meza/mod-reconciler/internal/perf"
)

type Doer interface {
	Do(request *http.Request) (*http.Response, error)
}

// RetryConfig bounds the re-sends of a request answered with a 5xx. Each
// re-send waits Interval and takes a fresh limiter token.
type RetryConfig struct {
	MaxRetries int
	Interval   time.Duration
}

func DefaultRetryConfig() RetryConfig {
	return RetryConfig{MaxRetries: 3, Interval: time.Second}
}

func NoRetries() *RetryConfig {
	return &RetryConfig{}
}

// RLHTTPClient is shared by every repository adapter so that one limiter
// governs the whole run. A nil RetryConfig means DefaultRetryConfig.
type RLHTTPClient struct {
	http        *http.Client
	Ratelimiter *rate.Limiter
	RetryConfig *RetryConfig
}

func NewRLClient(limiter *rate.Limiter) *RLHTTPClient {
	return &RLHTTPClient{
		http:        &http.Client{Transport: otelhttp.NewTransport(http.DefaultTransport)},
		Ratelimiter: limiter,
	}
}

func (client *RLHTTPClient) policy() RetryConfig {
	if client.RetryConfig == nil {
		return DefaultRetryConfig()
	}
	return *client.RetryConfig
}

// Do sends the request, re-sending it while the server answers 5xx and
// retries remain. The last response is returned as is, even a 5xx; only
// limiter refusals and transport failures become errors.
func (client *RLHTTPClient) Do(request *http.Request) (*http.Response, error) {
	target := request.URL.String()
	ctx, span := perf.StartSpan(request.Context(), "net.http.request",
		perf.WithAttributes(
			attribute.String("url", target),
			attribute.String("method", request.Method),
			attribute.String("host", request.URL.Host),
		),
	)
	defer span.End()

	policy := client.policy()
	for attempt := 0; ; attempt++ {
		span.SetAttributes(attribute.Int("attempts", attempt+1))

		response, err := client.send(ctx, request, attempt)
		if err != nil {
			span.SetAttributes(attribute.Bool("success", false), attribute.String("error_type", fmt.Sprintf("%T", err)))
			return nil, err
		}

		if !isServerError(response.StatusCode) || attempt >= policy.MaxRetries {
			span.SetAttributes(attribute.Bool("success", !isServerError(response.StatusCode)), attribute.Int("status", response.StatusCode))
			return response, nil
		}

		if err := discard(response.Body); err != nil {
			span.AddEvent("discard_failed", attribute.String("error", err.Error()))
		}
		pause(ctx, policy.Interval)
	}
}

// send performs one attempt: a limiter token, then the round trip.
func (client *RLHTTPClient) send(ctx context.Context, request *http.Request, attempt int) (*http.Response, error) {
	target := request.URL.String()
	ctx, span := perf.StartSpan(ctx, "net.http.request.attempt",
		perf.WithAttributes(attribute.Int("attempt", attempt), attribute.String("url", target)),
	)
	defer span.End()

	if err := client.admit(ctx, attempt, target); err != nil {
		span.SetAttributes(attribute.Bool("success", false))
		return nil, &RateLimitExceededError{URL: target, Err: wrapTimeout(err)}
	}

	outgoing, err := rewind(ctx, request, attempt)
	if err != nil {
		return nil, &TransportError{URL: target, Err: err}
	}

	response, err := client.http.Do(outgoing)
	if err != nil {
		span.SetAttributes(attribute.Bool("success", false))
		return nil, &TransportError{URL: target, Err: wrapTimeout(err)}
	}

	span.SetAttributes(
		attribute.Bool("success", !isServerError(response.StatusCode)),
		attribute.Int("status", response.StatusCode),
	)
	return response, nil
}

func (client *RLHTTPClient) admit(ctx context.Context, attempt int, target string) error {
	_, span := perf.StartSpan(ctx, "net.http.ratelimit.wait",
		perf.WithAttributes(attribute.Int("attempt", attempt), attribute.String("url", target)),
	)
	defer span.End()

	if client.Ratelimiter == nil {
		return nil
	}
	return client.Ratelimiter.Wait(ctx)
}

// rewind binds the request to the attempt context. Re-sends get a fresh
// body from GetBody since the previous attempt consumed it.
func rewind(ctx context.Context, request *http.Request, attempt int) (*http.Request, error) {
	outgoing := request.WithContext(ctx)
	if attempt == 0 || request.GetBody == nil {
		return outgoing, nil
	}

	body, err := request.GetBody()
	if err != nil {
		return nil, err
	}
	outgoing.Body = body
	return outgoing, nil
}

func isServerError(status int) bool {
	return status >= 500 && status <= 599
}

func pause(ctx context.Context, interval time.Duration) {
	if interval <= 0 {
		return
	}
	timer := time.NewTimer(interval)
	defer timer.Stop()
	select {
	case <-ctx.Done():
	case <-timer.C:
	}
}

// discard drains and closes a body that will not be handed to the caller,
// so the connection can be reused.
func discard(body io.ReadCloser) error {
	if body == nil {
		return nil
	}
	_, readErr := io.Copy(io.Discard, body)
	return errors.Join(readErr, body.Close())
}

package httpclient

import (
	"context"
	"errors"
	"io"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"golang.org/x/time/rate"

	"github.com/meza/mod-reconciler/internal/perf"
)

type roundTripFunc func(*http.Request) (*http.Response, error)

func (fn roundTripFunc) RoundTrip(req *http.Request) (*http.Response, error) {
	return fn(req)
}

// body records whether it was read and closed.
type body struct {
	r        *strings.Reader
	readErr  error
	closeErr error
	read     bool
	closed   bool
}

func newBody(payload string) *body {
	return &body{r: strings.NewReader(payload)}
}

func (b *body) Read(p []byte) (int, error) {
	if b.readErr != nil {
		return 0, b.readErr
	}
	n, err := b.r.Read(p)
	b.read = b.read || n > 0
	return n, err
}

func (b *body) Close() error {
	b.closed = true
	return b.closeErr
}

// scripted answers the n-th round trip with responses[n].
type scripted struct {
	responses []*http.Response
	calls     int
}

func (s *scripted) RoundTrip(*http.Request) (*http.Response, error) {
	if s.calls >= len(s.responses) {
		return nil, errors.New("unexpected extra request")
	}
	response := s.responses[s.calls]
	s.calls++
	return response, nil
}

func status(code int, b io.ReadCloser) *http.Response {
	return &http.Response{StatusCode: code, Body: b, Header: make(http.Header)}
}

func clientWith(transport http.RoundTripper, retry *RetryConfig) *RLHTTPClient {
	client := NewRLClient(rate.NewLimiter(rate.Inf, 0))
	client.RetryConfig = retry
	if transport != nil {
		client.http = &http.Client{Transport: transport}
	}
	return client
}

func get(t *testing.T, url string) *http.Request {
	t.Helper()
	req, err := http.NewRequest(http.MethodGet, url, nil)
	require.NoError(t, err)
	return req
}

func countingServer(t *testing.T, codes ...int) (*httptest.Server, *atomic.Int32) {
	t.Helper()
	var hits atomic.Int32
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		n := int(hits.Add(1))
		code := http.StatusOK
		if n <= len(codes) {
			code = codes[n-1]
		}
		w.WriteHeader(code)
	}))
	t.Cleanup(server.Close)
	return server, &hits
}

func doTimes(t *testing.T, client *RLHTTPClient, url string, times int) time.Duration {
	t.Helper()
	start := time.Now()
	for range times {
		resp, err := client.Do(get(t, url))
		require.NoError(t, err)
		require.Equal(t, http.StatusOK, resp.StatusCode)
		require.NoError(t, resp.Body.Close())
	}
	return time.Since(start)
}

func TestLimiterSpacesRequests(t *testing.T) {
	server, _ := countingServer(t)
	client := NewRLClient(rate.NewLimiter(1, 1))
	client.RetryConfig = NoRetries()

	assert.GreaterOrEqual(t, doTimes(t, client, server.URL, 3), 2*time.Second)
}

func TestUnlimitedAndNilLimitersDoNotWait(t *testing.T) {
	server, hits := countingServer(t)

	for _, limiter := range []*rate.Limiter{rate.NewLimiter(rate.Inf, 0), nil} {
		client := NewRLClient(limiter)
		client.RetryConfig = NoRetries()
		assert.Less(t, doTimes(t, client, server.URL, 5), time.Second)
	}
	assert.Equal(t, int32(10), hits.Load())
}

func TestServerErrorsAreRetriedWithInterval(t *testing.T) {
	server, hits := countingServer(t, http.StatusInternalServerError, http.StatusBadGateway)
	client := NewRLClient(rate.NewLimiter(rate.Inf, 0))
	client.RetryConfig = &RetryConfig{MaxRetries: 3, Interval: 150 * time.Millisecond}

	start := time.Now()
	resp, err := client.Do(get(t, server.URL))

	require.NoError(t, err)
	defer resp.Body.Close()
	assert.Equal(t, http.StatusOK, resp.StatusCode)
	assert.Equal(t, int32(3), hits.Load())
	assert.GreaterOrEqual(t, time.Since(start), 300*time.Millisecond)
}

func TestExhaustedRetriesReturnTheLastResponse(t *testing.T) {
	server, hits := countingServer(t, 503, 503, 503, 503, 503)
	client := NewRLClient(rate.NewLimiter(rate.Inf, 0))
	client.RetryConfig = &RetryConfig{MaxRetries: 3, Interval: time.Millisecond}

	resp, err := client.Do(get(t, server.URL))

	require.NoError(t, err)
	defer resp.Body.Close()
	assert.Equal(t, http.StatusServiceUnavailable, resp.StatusCode)
	assert.Equal(t, int32(4), hits.Load())
}

func TestClientErrorsAreNotRetried(t *testing.T) {
	server, hits := countingServer(t, http.StatusNotFound)
	client := NewRLClient(rate.NewLimiter(rate.Inf, 0))
	client.RetryConfig = &RetryConfig{MaxRetries: 3, Interval: time.Second}

	start := time.Now()
	resp, err := client.Do(get(t, server.URL))

	require.NoError(t, err)
	defer resp.Body.Close()
	assert.Equal(t, http.StatusNotFound, resp.StatusCode)
	assert.Equal(t, int32(1), hits.Load())
	assert.Less(t, time.Since(start), time.Second)
}

func TestRetriedBodiesAreDrainedAndClosed(t *testing.T) {
	first, second, final := newBody("oops"), newBody("still oops"), newBody("ok")
	transport := &scripted{responses: []*http.Response{status(500, first), status(502, second), status(200, final)}}

	resp, err := clientWith(transport, &RetryConfig{MaxRetries: 2}).Do(get(t, "https://example.com/retry"))

	require.NoError(t, err)
	assert.Equal(t, http.StatusOK, resp.StatusCode)
	assert.Equal(t, 3, transport.calls)
	for _, b := range []*body{first, second} {
		assert.True(t, b.read)
		assert.True(t, b.closed)
	}
	assert.False(t, final.closed)
}

func TestRetryContinuesWhenDrainFails(t *testing.T) {
	broken := &body{r: strings.NewReader(""), readErr: errors.New("read failed")}
	transport := &scripted{responses: []*http.Response{status(500, broken), status(200, newBody("ok"))}}

	resp, err := clientWith(transport, &RetryConfig{MaxRetries: 1}).Do(get(t, "https://example.com"))

	require.NoError(t, err)
	assert.Equal(t, http.StatusOK, resp.StatusCode)
	assert.True(t, broken.closed)
}

func TestRetriesReplayTheRequestBody(t *testing.T) {
	var bodies []string
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		payload, _ := io.ReadAll(r.Body)
		bodies = append(bodies, string(payload))
		if len(bodies) == 1 {
			w.WriteHeader(http.StatusBadGateway)
		}
	}))
	t.Cleanup(server.Close)

	client := NewRLClient(rate.NewLimiter(rate.Inf, 0))
	client.RetryConfig = &RetryConfig{MaxRetries: 1}
	req, err := http.NewRequest(http.MethodPost, server.URL, strings.NewReader(`{"fingerprints":[1]}`))
	require.NoError(t, err)

	resp, err := client.Do(req)

	require.NoError(t, err)
	defer resp.Body.Close()
	assert.Equal(t, http.StatusOK, resp.StatusCode)
	assert.Equal(t, []string{`{"fingerprints":[1]}`, `{"fingerprints":[1]}`}, bodies)
}

func TestBodyRewindFailureIsATransportError(t *testing.T) {
	transport := &scripted{responses: []*http.Response{status(500, newBody(""))}}
	rewindErr := errors.New("cannot rewind")
	req, err := http.NewRequest(http.MethodPost, "https://example.com", strings.NewReader("x"))
	require.NoError(t, err)
	req.GetBody = func() (io.ReadCloser, error) { return nil, rewindErr }

	resp, err := clientWith(transport, &RetryConfig{MaxRetries: 1}).Do(req)

	assert.Nil(t, resp)
	var transportErr *TransportError
	assert.ErrorAs(t, err, &transportErr)
	assert.ErrorIs(t, err, rewindErr)
}

func TestTransportFailuresAreNotRetried(t *testing.T) {
	calls := 0
	cause := errors.New("connection reset")
	client := clientWith(roundTripFunc(func(*http.Request) (*http.Response, error) {
		calls++
		return nil, cause
	}), &RetryConfig{MaxRetries: 3, Interval: time.Second})

	resp, err := client.Do(get(t, "https://example.com"))

	assert.Nil(t, resp)
	var transportErr *TransportError
	require.ErrorAs(t, err, &transportErr)
	assert.Equal(t, "https://example.com", transportErr.URL)
	assert.ErrorIs(t, err, cause)
	assert.Equal(t, 1, calls)
}

func TestTransportDeadlineIsATimeout(t *testing.T) {
	client := clientWith(roundTripFunc(func(*http.Request) (*http.Response, error) {
		return nil, context.DeadlineExceeded
	}), NoRetries())

	_, err := client.Do(get(t, "https://example.com"))

	var transportErr *TransportError
	var timeoutErr *TimeoutError
	assert.ErrorAs(t, err, &transportErr)
	assert.ErrorAs(t, err, &timeoutErr)
}

func TestLimiterRefusals(t *testing.T) {
	t.Run("zero burst never admits", func(t *testing.T) {
		client := NewRLClient(rate.NewLimiter(1, 0))
		client.RetryConfig = NoRetries()

		resp, err := client.Do(get(t, "https://example.com/x"))

		assert.Nil(t, resp)
		var limitErr *RateLimitExceededError
		require.ErrorAs(t, err, &limitErr)
		assert.Equal(t, "https://example.com/x", limitErr.URL)
	})

	t.Run("expired deadline is a timeout", func(t *testing.T) {
		ctx, cancel := context.WithDeadline(context.Background(), time.Now().Add(-time.Second))
		defer cancel()
		req, err := http.NewRequestWithContext(ctx, http.MethodGet, "https://example.com", nil)
		require.NoError(t, err)

		_, err = clientWith(nil, NoRetries()).Do(req)

		var limitErr *RateLimitExceededError
		var timeoutErr *TimeoutError
		assert.ErrorAs(t, err, &limitErr)
		assert.ErrorAs(t, err, &timeoutErr)
	})

	t.Run("cancel while waiting", func(t *testing.T) {
		calls := 0
		client := clientWith(roundTripFunc(func(*http.Request) (*http.Response, error) {
			calls++
			return status(200, newBody("")), nil
		}), NoRetries())
		client.Ratelimiter = rate.NewLimiter(rate.Every(time.Hour), 1)

		first, err := client.Do(get(t, "https://example.com"))
		require.NoError(t, err)
		require.NoError(t, first.Body.Close())

		ctx, cancel := context.WithCancel(context.Background())
		time.AfterFunc(20*time.Millisecond, cancel)
		req, err := http.NewRequestWithContext(ctx, http.MethodGet, "https://example.com", nil)
		require.NoError(t, err)

		_, err = client.Do(req)

		var limitErr *RateLimitExceededError
		assert.ErrorAs(t, err, &limitErr)
		assert.Equal(t, 1, calls)
	})
}

func TestEachAttemptIsTraced(t *testing.T) {
	perf.Reset()
	t.Cleanup(perf.Reset)
	require.NoError(t, perf.Init(perf.Config{Enabled: true}))

	transport := &scripted{responses: []*http.Response{status(500, newBody("a")), status(200, newBody("b"))}}
	resp, err := clientWith(transport, &RetryConfig{MaxRetries: 2}).Do(get(t, "https://example.com/spans"))
	require.NoError(t, err)
	require.NoError(t, resp.Body.Close())

	names := map[string]int{}
	for _, span := range perf.MustGetSpans() {
		names[span.Name]++
	}
	assert.Equal(t, 2, names["net.http.request.attempt"])
	assert.Equal(t, 2, names["net.http.ratelimit.wait"])

	request, ok := perf.FindSpanByName(perf.MustGetSpans(), "net.http.request")
	require.True(t, ok)
	assert.Equal(t, int64(2), request.Attributes["attempts"])
	assert.Equal(t, int64(http.StatusOK), request.Attributes["status"])
	assert.Equal(t, true, request.Attributes["success"])
}

func TestRetryPolicy(t *testing.T) {
	client := &RLHTTPClient{}
	assert.Equal(t, RetryConfig{MaxRetries: 3, Interval: time.Second}, client.policy())

	client.RetryConfig = &RetryConfig{MaxRetries: 5, Interval: 2 * time.Second}
	assert.Equal(t, RetryConfig{MaxRetries: 5, Interval: 2 * time.Second}, client.policy())

	assert.Equal(t, RetryConfig{}, *NoRetries())
}

func TestDiscard(t *testing.T) {
	assert.NoError(t, discard(nil))

	readErr, closeErr := errors.New("read failed"), errors.New("close failed")
	b := &body{r: strings.NewReader(""), readErr: readErr, closeErr: closeErr}
	err := discard(b)

	assert.ErrorIs(t, err, readErr)
	assert.ErrorIs(t, err, closeErr)
	assert.True(t, b.closed)
}

func TestErrorMessages(t *testing.T) {
	t.Setenv("MMM_TEST", "true")

	assert.Contains(t, (&RateLimitExceededError{URL: "u"}).Error(), "error.rate_limit_exceeded")
	assert.Equal(t, "request to u failed", (&TransportError{URL: "u"}).Error())
	assert.Equal(t, "request to u failed: boom", (&TransportError{URL: "u", Err: errors.New("boom")}).Error())
	assert.Equal(t, "download request failed with status 500", (&DownloadError{URL: "u", StatusCode: 500}).Error())
	assert.Equal(t, "failed to download file: boom", (&DownloadError{URL: "u", Err: errors.New("boom")}).Error())
}

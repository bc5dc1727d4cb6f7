// Package testutil holds shared test helpers.
package testutil

import (
	"errors"
	"fmt"
	"net/http"
	"net/url"
	"slices"
	"sync"

	"github.com/meza/mod-reconciler/internal/httpclient"
)

// HostRewriteDoer sends every request to one test server, whatever host the
// caller addressed. The original URLs are kept so tests can assert which
// repository a call was meant for.
type HostRewriteDoer struct {
	target *url.URL
	next   httpclient.Doer

	mu   sync.Mutex
	seen []string
}

func NewHostRewriteDoer(serverURL string, next httpclient.Doer) (*HostRewriteDoer, error) {
	if next == nil {
		return nil, errors.New("host rewrite: next doer is nil")
	}
	target, err := url.Parse(serverURL)
	if err != nil {
		return nil, fmt.Errorf("host rewrite: %w", err)
	}
	if target.Scheme == "" || target.Host == "" {
		return nil, fmt.Errorf("host rewrite: %q needs a scheme and host", serverURL)
	}
	return &HostRewriteDoer{target: target, next: next}, nil
}

func MustNewHostRewriteDoer(serverURL string, next httpclient.Doer) *HostRewriteDoer {
	doer, err := NewHostRewriteDoer(serverURL, next)
	if err != nil {
		panic(err)
	}
	return doer
}

func (d *HostRewriteDoer) Do(req *http.Request) (*http.Response, error) {
	d.mu.Lock()
	d.seen = append(d.seen, req.URL.String())
	d.mu.Unlock()

	redirected := req.Clone(req.Context())
	redirected.URL.Scheme, redirected.URL.Host = d.target.Scheme, d.target.Host
	redirected.Host = d.target.Host
	return d.next.Do(redirected)
}

func (d *HostRewriteDoer) Calls() int {
	d.mu.Lock()
	defer d.mu.Unlock()
	return len(d.seen)
}

// Requests lists the URLs callers asked for, before rewriting, in order.
func (d *HostRewriteDoer) Requests() []string {
	d.mu.Lock()
	defer d.mu.Unlock()
	return slices.Clone(d.seen)
}

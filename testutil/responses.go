package testutil

import (
	"encoding/json"
	"net/http"
	"strings"
	"testing"
)

func WriteJSON(t *testing.T, w http.ResponseWriter, payload any) {
	t.Helper()
	if err := json.NewEncoder(w).Encode(payload); err != nil {
		t.Fatalf("encode response: %v", err)
	}
}

func WriteString(t *testing.T, w http.ResponseWriter, payload string) {
	t.Helper()
	if _, err := w.Write([]byte(payload)); err != nil {
		t.Fatalf("write response: %v", err)
	}
}

// StaticDoer answers every request with Response and Err, untouched.
type StaticDoer struct {
	Response *http.Response
	Err      error
}

func (d StaticDoer) Do(*http.Request) (*http.Response, error) {
	return d.Response, d.Err
}

// Body is a response body whose Close returns closeErr.
func Body(payload string, closeErr error) *ClosingBody {
	return &ClosingBody{Reader: strings.NewReader(payload), closeErr: closeErr}
}

type ClosingBody struct {
	*strings.Reader
	closeErr error
}

func (b *ClosingBody) Close() error {
	return b.closeErr
}

package transport_test

import (
	"context"
	"errors"
	"io"
	"net/http"
	"net/http/httptest"
	"sync/atomic"
	"testing"

	"github.com/mapflow/geoproc/transport"
)

func TestHTTP_SendAttachesToken(t *testing.T) {
	var gotToken, gotContentType, gotBody string
	ts := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		gotToken = r.URL.Query().Get("token")
		gotContentType = r.Header.Get("Content-Type")
		b, _ := io.ReadAll(r.Body)
		gotBody = string(b)
		_, _ = w.Write([]byte(`{"ok": true}`))
	}))
	defer ts.Close()

	tr := transport.NewHTTP(transport.WithTokenProvider(transport.StaticToken("sekrit")))
	resp, err := tr.Send(context.Background(), http.MethodPost, ts.URL+"/jobs", []byte("f=json&points=3"))
	if err != nil {
		t.Fatalf("Send: %v", err)
	}
	if string(resp) != `{"ok": true}` {
		t.Errorf("body = %q", resp)
	}
	if gotToken != "sekrit" {
		t.Errorf("token = %q, want %q", gotToken, "sekrit")
	}
	if gotContentType != "application/x-www-form-urlencoded" {
		t.Errorf("Content-Type = %q", gotContentType)
	}
	if gotBody != "f=json&points=3" {
		t.Errorf("body sent = %q", gotBody)
	}
}

func TestHTTP_EmptyTokenOmitted(t *testing.T) {
	var hadToken bool
	ts := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		_, hadToken = r.URL.Query()["token"]
		_, _ = w.Write([]byte(`{}`))
	}))
	defer ts.Close()

	tr := transport.NewHTTP()
	if _, err := tr.Send(context.Background(), http.MethodGet, ts.URL, nil); err != nil {
		t.Fatalf("Send: %v", err)
	}
	if hadToken {
		t.Error("token parameter sent despite empty credential")
	}
}

func TestHTTP_NonSuccessStatusIsFailure(t *testing.T) {
	ts := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		http.Error(w, "gateway melted", http.StatusBadGateway)
	}))
	defer ts.Close()

	tr := transport.NewHTTP()
	if _, err := tr.Send(context.Background(), http.MethodGet, ts.URL, nil); err == nil {
		t.Fatal("expected error for 502 response")
	}
}

func TestHTTP_TokenProviderFailure(t *testing.T) {
	boom := errors.New("vault sealed")
	tr := transport.NewHTTP(transport.WithTokenProvider(failingTokens{err: boom}))
	_, err := tr.Send(context.Background(), http.MethodGet, "http://unused.example", nil)
	if !errors.Is(err, boom) {
		t.Fatalf("err = %v, want wrapped %v", err, boom)
	}
}

type failingTokens struct{ err error }

func (f failingTokens) CurrentCredential(context.Context) (string, error) { return "", f.err }

func TestHTTP_BreakerOpensAfterFailures(t *testing.T) {
	var hits atomic.Int64
	ts := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		hits.Add(1)
		http.Error(w, "down", http.StatusInternalServerError)
	}))
	defer ts.Close()

	tr := transport.NewHTTP(transport.WithBreaker("test"))
	for k := 0; k < 10; k++ {
		_, _ = tr.Send(context.Background(), http.MethodGet, ts.URL, nil)
	}

	// Once the breaker opens, requests fail fast without reaching the
	// server, so the hit count stays below the attempt count.
	if got := hits.Load(); got >= 10 {
		t.Errorf("server hits = %d, want < 10 (breaker never opened)", got)
	}
}

func TestHTTP_RateLimitHonorsContext(t *testing.T) {
	tr := transport.NewHTTP(transport.WithRateLimit(0.001, 1))

	ctx, cancel := context.WithCancel(context.Background())

	// First request consumes the single burst slot.
	ts := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		_, _ = w.Write([]byte(`{}`))
	}))
	defer ts.Close()
	if _, err := tr.Send(ctx, http.MethodGet, ts.URL, nil); err != nil {
		t.Fatalf("first Send: %v", err)
	}

	cancel()
	if _, err := tr.Send(ctx, http.MethodGet, ts.URL, nil); err == nil {
		t.Fatal("expected rate limit wait to fail on cancelled context")
	}
}

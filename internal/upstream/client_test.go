package upstream

import (
	"context"
	"errors"
	"io"
	"net/http"
	"net/http/httptest"
	"net/url"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/park285/transfer-gateway/internal/httperror"
	"github.com/park285/transfer-gateway/internal/logging"
)

type recordingObserver struct {
	mu       sync.Mutex
	outcomes []Outcome
}

func (r *recordingObserver) ObserveUpstream(o Outcome) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.outcomes = append(r.outcomes, o)
}

func (r *recordingObserver) all() []Outcome {
	r.mu.Lock()
	defer r.mu.Unlock()
	return append([]Outcome(nil), r.outcomes...)
}

func newTestClient(t *testing.T, baseURL string, cfg Config, obs ...Observer) *Client {
	t.Helper()
	cfg.BaseURL = baseURL
	c, err := New(cfg, logging.Discard(), obs...)
	if err != nil {
		t.Fatalf("new client: %v", err)
	}
	return c
}

func TestNewRejectsInvalidBaseURL(t *testing.T) {
	t.Parallel()

	for _, base := range []string{"", "not a url", "/relative"} {
		if _, err := New(Config{BaseURL: base}, logging.Discard()); err == nil {
			t.Fatalf("expected error for %q", base)
		}
	}
}

func TestDoForwardsRequest(t *testing.T) {
	t.Parallel()

	var gotPath, gotQuery, gotAuth, gotBody, gotMethod string
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		gotMethod = r.Method
		gotPath = r.URL.Path
		gotQuery = r.URL.RawQuery
		gotAuth = r.Header.Get("Authorization")
		b, _ := io.ReadAll(r.Body)
		gotBody = string(b)
		w.Header().Set("Content-Type", "application/json")
		w.WriteHeader(http.StatusCreated)
		_, _ = w.Write([]byte(`{"id":7}`))
	}))
	t.Cleanup(srv.Close)

	obs := &recordingObserver{}
	c := newTestClient(t, srv.URL+"/prod/", Config{}, obs)

	resp, err := c.Do(context.Background(), Request{
		Method: http.MethodPost,
		Path:   "/articles",
		Query:  url.Values{"locale": {"es"}},
		Header: http.Header{"Authorization": {"Bearer abc"}},
		Body:   strings.NewReader(`{"title":"x"}`),
	})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if resp.StatusCode != http.StatusCreated || !resp.OK() {
		t.Fatalf("unexpected status: %d", resp.StatusCode)
	}
	if gotMethod != http.MethodPost || gotPath != "/prod/articles" || gotQuery != "locale=es" {
		t.Fatalf("unexpected request: %s %s?%s", gotMethod, gotPath, gotQuery)
	}
	if gotAuth != "Bearer abc" || gotBody != `{"title":"x"}` {
		t.Fatalf("unexpected auth/body: %q %q", gotAuth, gotBody)
	}

	var decoded map[string]int
	if err := resp.JSON(&decoded); err != nil || decoded["id"] != 7 {
		t.Fatalf("unexpected json: %v %v", decoded, err)
	}

	outcomes := obs.all()
	if len(outcomes) != 1 || outcomes[0].StatusCode != http.StatusCreated || outcomes[0].Failed() {
		t.Fatalf("unexpected outcomes: %+v", outcomes)
	}
}

func TestDoTimeout(t *testing.T) {
	t.Parallel()

	release := make(chan struct{})
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		select {
		case <-release:
		case <-r.Context().Done():
		}
	}))
	t.Cleanup(func() {
		close(release)
		srv.Close()
	})

	obs := &recordingObserver{}
	c := newTestClient(t, srv.URL, Config{Timeout: time.Second}, obs)

	_, err := c.Do(context.Background(), Request{Path: "/slow", Timeout: 50 * time.Millisecond})
	if !errors.Is(err, context.DeadlineExceeded) {
		t.Fatalf("expected deadline exceeded, got %v", err)
	}
	if got := httperror.FromError(err); got.Details != httperror.DetailTimeout {
		t.Fatalf("unexpected mapping: %+v", got)
	}
	if outcomes := obs.all(); len(outcomes) != 1 || !outcomes[0].Failed() {
		t.Fatalf("timeout must be observed as failure: %+v", outcomes)
	}
}

func TestDoUnreachable(t *testing.T) {
	t.Parallel()

	srv := httptest.NewServer(http.NotFoundHandler())
	base := srv.URL
	srv.Close()

	obs := &recordingObserver{}
	c := newTestClient(t, base, Config{}, obs)

	_, err := c.Do(context.Background(), Request{Path: "/transfers"})
	if !errors.Is(err, httperror.ErrBackendUnreachable) {
		t.Fatalf("expected unreachable, got %v", err)
	}
	if outcomes := obs.all(); len(outcomes) != 1 || outcomes[0].StatusCode != 0 || !outcomes[0].Failed() {
		t.Fatalf("unexpected outcomes: %+v", outcomes)
	}
}

func TestDoResponseTooLarge(t *testing.T) {
	t.Parallel()

	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		_, _ = w.Write([]byte(strings.Repeat("x", 64)))
	}))
	t.Cleanup(srv.Close)

	c := newTestClient(t, srv.URL, Config{MaxBodyBytes: 16})
	_, err := c.Do(context.Background(), Request{Path: "/big"})
	if !errors.Is(err, ErrResponseTooLarge) || !errors.Is(err, httperror.ErrInvalidResponse) {
		t.Fatalf("expected too large error, got %v", err)
	}
}

func TestDoServerErrorIsObservedFailure(t *testing.T) {
	t.Parallel()

	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		w.WriteHeader(http.StatusBadGateway)
	}))
	t.Cleanup(srv.Close)

	obs := &recordingObserver{}
	c := newTestClient(t, srv.URL, Config{}, obs)

	resp, err := c.Do(context.Background(), Request{Path: "/x"})
	if err != nil {
		t.Fatalf("5xx is a response, not an error: %v", err)
	}
	if resp.StatusCode != http.StatusBadGateway {
		t.Fatalf("unexpected status: %d", resp.StatusCode)
	}
	if outcomes := obs.all(); len(outcomes) != 1 || !outcomes[0].Failed() {
		t.Fatalf("5xx must be a failure: %+v", outcomes)
	}
}

func TestDoCallerCancelIsNotObserved(t *testing.T) {
	t.Parallel()

	started := make(chan struct{})
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		close(started)
		<-r.Context().Done()
	}))
	t.Cleanup(srv.Close)

	obs := &recordingObserver{}
	c := newTestClient(t, srv.URL, Config{}, obs)

	ctx, cancel := context.WithCancel(context.Background())
	go func() {
		<-started
		cancel()
	}()

	if _, err := c.Do(ctx, Request{Path: "/x"}); !errors.Is(err, context.Canceled) {
		t.Fatalf("expected canceled, got %v", err)
	}
	if outcomes := obs.all(); len(outcomes) != 0 {
		t.Fatalf("caller cancel must not be observed: %+v", outcomes)
	}
}

func TestProbe(t *testing.T) {
	t.Parallel()

	healthy := true
	var mu sync.Mutex
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		mu.Lock()
		defer mu.Unlock()
		if r.URL.Path != "/health" {
			t.Errorf("unexpected probe path: %s", r.URL.Path)
		}
		if !healthy {
			w.WriteHeader(http.StatusServiceUnavailable)
		}
	}))
	t.Cleanup(srv.Close)

	c := newTestClient(t, srv.URL, Config{})
	if err := c.Probe(context.Background()); err != nil {
		t.Fatalf("unexpected probe error: %v", err)
	}

	mu.Lock()
	healthy = false
	mu.Unlock()
	if err := c.Probe(context.Background()); err == nil {
		t.Fatalf("expected probe error on 503")
	}
}

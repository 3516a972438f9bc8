package provider

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/sony/gobreaker"
	"github.com/xela07ax/runnerdeck/internal/domain"
)

func TestDoDistinguishesStatusFromTransport(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusForbidden)
		fmt.Fprint(w, `{"message":"rate limited"}`)
	}))
	defer srv.Close()

	c := newTestClient(t)

	// Статус >= 400 — не ошибка Do: апстрим жив и ответил
	resp, err := c.Do(context.Background(), Call{URL: srv.URL})
	if err != nil {
		t.Fatalf("4xx must not be a transport error: %v", err)
	}
	var statusErr *domain.StatusError
	if !errors.As(resp.Err(), &statusErr) || statusErr.StatusCode != http.StatusForbidden {
		t.Fatalf("want StatusError 403, got %v", resp.Err())
	}

	// Закрытый порт — транспортный сбой
	srv.Close()
	_, err = c.Do(context.Background(), Call{URL: srv.URL})
	var transportErr *domain.TransportError
	if !errors.As(err, &transportErr) {
		t.Fatalf("want TransportError, got %v", err)
	}
}

func TestStatusErrorBodyTruncated(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusInternalServerError)
		fmt.Fprint(w, strings.Repeat("x", 4096))
	}))
	defer srv.Close()

	c := newTestClient(t)
	resp, err := c.Do(context.Background(), Call{URL: srv.URL})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	var statusErr *domain.StatusError
	if !errors.As(resp.Err(), &statusErr) {
		t.Fatalf("want StatusError, got %v", resp.Err())
	}
	if len(statusErr.Body) > 256 {
		t.Fatalf("body in error must be truncated to 256, got %d", len(statusErr.Body))
	}
}

func TestCircuitBreakerOpensOnTransportFailuresOnly(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusInternalServerError)
	}))
	defer srv.Close()

	c := newTestClient(t)

	// Десять подряд 5xx не должны разомкнуть цепь: апстрим отвечает
	for i := 0; i < 10; i++ {
		if _, err := c.Do(context.Background(), Call{URL: srv.URL}); err != nil {
			t.Fatalf("call %d: %v", i, err)
		}
	}
	if state := c.cb.State(); state != gobreaker.StateClosed {
		t.Fatalf("breaker state after 5xx streak = %s, want closed", state)
	}

	// Теперь реальные транспортные сбои — цепь должна разомкнуться
	srv.Close()
	for i := 0; i < 10; i++ {
		c.Do(context.Background(), Call{URL: srv.URL, Timeout: 200 * time.Millisecond})
	}
	if state := c.cb.State(); state != gobreaker.StateOpen {
		t.Fatalf("breaker state after transport failures = %s, want open", state)
	}
}

func TestDoDefaultsToGET(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.Method != http.MethodGet {
			t.Errorf("method = %s, want GET", r.Method)
		}
		if got := r.Header.Get("Authorization"); got != "Bearer tok" {
			t.Errorf("Authorization = %q", got)
		}
		if got := r.Header.Get("Accept"); got != "application/vnd.github+json" {
			t.Errorf("Accept = %q", got)
		}
	}))
	defer srv.Close()

	c := newTestClient(t)
	_, err := c.Do(context.Background(), Call{
		URL:     srv.URL,
		Auth:    BearerAuth{Token: "tok"},
		Headers: map[string]string{"Accept": "application/vnd.github+json"},
	})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
}

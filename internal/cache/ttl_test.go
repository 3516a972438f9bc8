package cache

import (
	"encoding/json"
	"errors"
	"testing"
	"time"

	"go.uber.org/zap"
)

func newTestCache(ttl time.Duration) (*TTL, *time.Time) {
	c := New(ttl, nil, zap.NewNop())
	current := time.Unix(1700000000, 0)
	c.now = func() time.Time { return current }
	return c, &current
}

func payload(values ...string) []json.RawMessage {
	out := make([]json.RawMessage, 0, len(values))
	for _, v := range values {
		out = append(out, json.RawMessage(v))
	}
	return out
}

func TestGetOrComputeSingleComputeWithinWindow(t *testing.T) {
	c, _ := newTestCache(30 * time.Second)

	calls := 0
	compute := func() ([]json.RawMessage, error) {
		calls++
		return payload(`{"id":1}`), nil
	}

	key := Key("GET", "https://api.example.com/runners")
	for i := 0; i < 5; i++ {
		got, err := c.GetOrCompute(key, compute)
		if err != nil {
			t.Fatalf("unexpected error: %v", err)
		}
		if len(got) != 1 || string(got[0]) != `{"id":1}` {
			t.Fatalf("unexpected payload: %v", got)
		}
	}

	if calls != 1 {
		t.Fatalf("compute called %d times, want 1", calls)
	}
}

func TestGetOrComputeRecomputesAfterExpiry(t *testing.T) {
	c, now := newTestCache(30 * time.Second)

	calls := 0
	compute := func() ([]json.RawMessage, error) {
		calls++
		return payload(`1`), nil
	}

	key := Key("GET", "https://api.example.com/runners")
	c.GetOrCompute(key, compute)

	// Ровно на границе TTL запись уже мертва
	*now = now.Add(30 * time.Second)
	c.GetOrCompute(key, compute)

	if calls != 2 {
		t.Fatalf("compute called %d times, want 2", calls)
	}
}

func TestGetOrComputeDoesNotRefreshOnRead(t *testing.T) {
	c, now := newTestCache(30 * time.Second)

	calls := 0
	compute := func() ([]json.RawMessage, error) {
		calls++
		return payload(`1`), nil
	}

	key := Key("GET", "https://api.example.com/runners")
	c.GetOrCompute(key, compute)

	// Чтения внутри окна не продлевают жизнь записи
	*now = now.Add(20 * time.Second)
	c.GetOrCompute(key, compute)
	*now = now.Add(15 * time.Second) // 35s от захвата
	c.GetOrCompute(key, compute)

	if calls != 2 {
		t.Fatalf("compute called %d times, want 2", calls)
	}
}

func TestGetOrComputeNeverCachesErrors(t *testing.T) {
	c, _ := newTestCache(30 * time.Second)

	calls := 0
	failing := func() ([]json.RawMessage, error) {
		calls++
		return nil, errors.New("upstream down")
	}

	key := Key("GET", "https://api.example.com/runners")
	if _, err := c.GetOrCompute(key, failing); err == nil {
		t.Fatal("expected error")
	}
	if _, err := c.GetOrCompute(key, failing); err == nil {
		t.Fatal("expected error on second call too")
	}
	if calls != 2 {
		t.Fatalf("compute called %d times, want 2 (errors must not be cached)", calls)
	}

	// После ошибки успешный результат встает в кэш как обычно
	c.GetOrCompute(key, func() ([]json.RawMessage, error) { return payload(`1`), nil })
	got, err := c.GetOrCompute(key, failing)
	if err != nil || len(got) != 1 {
		t.Fatalf("expected cached success, got %v, %v", got, err)
	}
}

func TestKeysAreIndependent(t *testing.T) {
	c, _ := newTestCache(30 * time.Second)

	c.GetOrCompute(Key("GET", "https://a"), func() ([]json.RawMessage, error) { return payload(`"a"`), nil })
	c.GetOrCompute(Key("GET", "https://b"), func() ([]json.RawMessage, error) { return payload(`"b"`), nil })

	got, _ := c.GetOrCompute(Key("GET", "https://a"), func() ([]json.RawMessage, error) {
		t.Fatal("compute must not run for live key")
		return nil, nil
	})
	if string(got[0]) != `"a"` {
		t.Fatalf("key collision: got %s", got[0])
	}
}

func TestClearDropsEverything(t *testing.T) {
	c, _ := newTestCache(time.Hour)

	calls := 0
	compute := func() ([]json.RawMessage, error) {
		calls++
		return payload(`1`), nil
	}

	c.GetOrCompute(Key("GET", "https://a"), compute)
	c.GetOrCompute(Key("GET", "https://b"), compute)

	c.Clear()
	c.Clear() // Повторный сброс — no-op, не паника

	c.GetOrCompute(Key("GET", "https://a"), compute)
	c.GetOrCompute(Key("GET", "https://b"), compute)

	if calls != 4 {
		t.Fatalf("compute called %d times, want 4", calls)
	}
}

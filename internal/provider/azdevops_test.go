package provider

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/xela07ax/runnerdeck/internal/cache"
	"github.com/xela07ax/runnerdeck/internal/domain"
	"github.com/xela07ax/runnerdeck/internal/infra"
	"go.uber.org/zap"
)

func newTestADO(t *testing.T, baseURL string) *AzureDevOps {
	t.Helper()
	cfg := infra.ProvidersConfig{
		ListTimeout:   5 * time.Second,
		DetailTimeout: 2 * time.Second,
		RatePerSecond: 1000,
		RateBurst:     1000,
	}
	ttl := cache.New(30*time.Second, nil, zap.NewNop())
	return NewAzureDevOps(baseURL, cfg, newTestClient(t), ttl, zap.NewNop())
}

func TestNormalizeADOAgentDefaults(t *testing.T) {
	// Листинг может опускать status и enabled целиком
	r, err := normalizeADOAgent(json.RawMessage(`{"id":11,"name":"agent-11"}`))
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	if r.Status != domain.RunnerOffline {
		t.Fatalf("missing status must default to offline, got %s", r.Status)
	}
	if r.Enabled == nil || *r.Enabled {
		t.Fatal("missing enabled must default to false")
	}
	if r.Busy {
		t.Fatal("listing never knows busy, must be false")
	}
	if r.Type != domain.TypeSelfHosted {
		t.Fatalf("type = %s, want self-hosted", r.Type)
	}
}

func TestNormalizeADOAgentExplicitFields(t *testing.T) {
	r, err := normalizeADOAgent(json.RawMessage(`{"id":12,"name":"agent-12","status":"online","enabled":true}`))
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if r.Status != domain.RunnerOnline {
		t.Fatalf("status = %s, want online", r.Status)
	}
	if r.Enabled == nil || !*r.Enabled {
		t.Fatal("explicit enabled=true lost in normalization")
	}
}

func TestPoolAgentsUnwrapsValueEnvelope(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path != "/myorg/_apis/distributedtask/pools/9/agents" {
			t.Errorf("unexpected path %s", r.URL.Path)
		}
		if got := r.URL.Query().Get("api-version"); got != "7.0" {
			t.Errorf("api-version = %s, want 7.0", got)
		}
		fmt.Fprint(w, `{"count":2,"value":[{"id":1,"name":"a","status":"online","enabled":true},{"id":2,"name":"b"}]}`)
	}))
	defer srv.Close()

	a := newTestADO(t, srv.URL)
	agents, err := a.PoolAgents(context.Background(), "myorg", "pat", 9)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if len(agents) != 2 {
		t.Fatalf("got %d agents, want 2", len(agents))
	}
	if agents[0].Status != domain.RunnerOnline || agents[1].Status != domain.RunnerOffline {
		t.Fatalf("statuses: %s, %s", agents[0].Status, agents[1].Status)
	}
}

func TestAgentBusyFollowsAssignedRequest(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if got := r.URL.Query().Get("includeAssignedRequest"); got != "true" {
			t.Errorf("includeAssignedRequest = %s, want true", got)
		}
		switch r.URL.Path {
		case "/myorg/_apis/distributedtask/pools/9/agents/1":
			fmt.Fprint(w, `{"id":1,"assignedRequest":{"requestId":555}}`)
		default:
			fmt.Fprint(w, `{"id":2}`)
		}
	}))
	defer srv.Close()

	a := newTestADO(t, srv.URL)

	busy, err := a.AgentBusy(context.Background(), "myorg", "pat", 9, 1)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if !busy {
		t.Fatal("agent with assignedRequest must be busy")
	}

	busy, err = a.AgentBusy(context.Background(), "myorg", "pat", 9, 2)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if busy {
		t.Fatal("agent without assignedRequest must be idle")
	}
}

func TestAgentBusyBypassesCache(t *testing.T) {
	hits := 0
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		hits++
		fmt.Fprint(w, `{"id":1}`)
	}))
	defer srv.Close()

	a := newTestADO(t, srv.URL)
	for i := 0; i < 3; i++ {
		if _, err := a.AgentBusy(context.Background(), "myorg", "pat", 9, 1); err != nil {
			t.Fatalf("unexpected error: %v", err)
		}
	}
	if hits != 3 {
		t.Fatalf("upstream hit %d times, want 3 (busy must always be fresh)", hits)
	}
}

func TestVerify(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path != "/deadorg/_apis/projects" && r.URL.Path != "/liveorg/_apis/projects" {
			t.Errorf("unexpected path %s", r.URL.Path)
		}
		user, pass, ok := r.BasicAuth()
		if !ok || user != "" || pass != "pat" {
			t.Errorf("PAT must go as basic password with empty username, got %q/%q", user, pass)
		}
		if r.URL.Path == "/deadorg/_apis/projects" {
			w.WriteHeader(http.StatusUnauthorized)
			return
		}
		fmt.Fprint(w, `{"count":0,"value":[]}`)
	}))
	defer srv.Close()

	a := newTestADO(t, srv.URL)

	if err := a.Verify(context.Background(), "liveorg", "pat"); err != nil {
		t.Fatalf("live org must verify: %v", err)
	}

	err := a.Verify(context.Background(), "deadorg", "pat")
	if err == nil {
		t.Fatal("dead org must fail verification")
	}
	var statusErr *domain.StatusError
	if !errors.As(err, &statusErr) || statusErr.StatusCode != http.StatusUnauthorized {
		t.Fatalf("want StatusError 401, got %v", err)
	}
}

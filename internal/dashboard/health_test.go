package dashboard

import (
	"context"
	"fmt"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/xela07ax/runnerdeck/internal/cache"
	"github.com/xela07ax/runnerdeck/internal/domain"
	"github.com/xela07ax/runnerdeck/internal/provider"
	"go.uber.org/zap"
)

func newComposerFor(t *testing.T, store *fakeStore, baseURL string) *Composer {
	t.Helper()
	cfg := testProvidersConfig()
	logger := zap.NewNop()
	ttl := cache.New(30*time.Second, nil, logger)

	github := provider.NewGitHub(baseURL, cfg, provider.NewClient("github", cfg, nil, logger), ttl, logger)
	jira := provider.NewJira(cfg, provider.NewClient("jira", cfg, nil, logger), logger)
	ado := provider.NewAzureDevOps(baseURL, cfg, provider.NewClient("azure-devops", cfg, nil, logger), ttl, logger)

	return NewComposer(store, plainDecryptor{}, github, jira, ado, logger)
}

func TestComposeUnconfiguredProvidersMakeNoNetworkCalls(t *testing.T) {
	hits := 0
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		hits++
	}))
	defer srv.Close()

	store := &fakeStore{settings: map[string]string{}}
	report := newComposerFor(t, store, srv.URL).Compose(context.Background())

	if report.GitHub.Status != domain.HealthNotConfigured {
		t.Fatalf("github = %s, want not_configured", report.GitHub.Status)
	}
	if report.Jira.Status != domain.HealthNotConfigured {
		t.Fatalf("jira = %s, want not_configured", report.Jira.Status)
	}
	if report.AzureDevOps == nil || len(report.AzureDevOps) != 0 {
		t.Fatalf("azure_devops must be empty slice, got %v", report.AzureDevOps)
	}
	if hits != 0 {
		t.Fatalf("unconfigured providers made %d network calls, want 0", hits)
	}
}

func TestComposeSurvivesSettingsLoadFailure(t *testing.T) {
	store := &fakeStore{settingsErr: fmt.Errorf("connection refused")}
	report := newComposerFor(t, store, "http://127.0.0.1:0").Compose(context.Background())

	// Отчет не фейлится: все провайдеры честно not_configured
	if report.GitHub.Status != domain.HealthNotConfigured {
		t.Fatalf("github = %s, want not_configured", report.GitHub.Status)
	}
	if report.Jira.Status != domain.HealthNotConfigured {
		t.Fatalf("jira = %s, want not_configured", report.Jira.Status)
	}
}

func TestComposeJiraStates(t *testing.T) {
	run := func(t *testing.T, body string, code int) domain.ProviderHealth {
		srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			if r.URL.Path != "/status" {
				t.Errorf("unexpected path %s", r.URL.Path)
			}
			w.WriteHeader(code)
			fmt.Fprint(w, body)
		}))
		defer srv.Close()

		store := &fakeStore{settings: map[string]string{
			domain.SettingJiraBaseURL: srv.URL,
			domain.SettingJiraEmail:   "ops@example.com",
			domain.SettingJiraToken:   "tok",
		}}
		return newComposerFor(t, store, "http://127.0.0.1:0").Compose(context.Background()).Jira
	}

	t.Run("running", func(t *testing.T) {
		h := run(t, `{"state":"RUNNING"}`, http.StatusOK)
		if h.Status != domain.HealthOK {
			t.Fatalf("status = %s (%s), want ok", h.Status, h.Reason)
		}
	})

	t.Run("maintenance", func(t *testing.T) {
		h := run(t, `{"state":"MAINTENANCE"}`, http.StatusOK)
		if h.Status != domain.HealthError {
			t.Fatalf("status = %s, want error", h.Status)
		}
		if h.Reason != "State: MAINTENANCE" {
			t.Fatalf("reason = %q", h.Reason)
		}
	})

	t.Run("down", func(t *testing.T) {
		h := run(t, ``, http.StatusServiceUnavailable)
		if h.Status != domain.HealthError {
			t.Fatalf("status = %s, want error", h.Status)
		}
	})
}

func TestComposeADOPerOrganization(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		switch r.URL.Path {
		case "/live/_apis/projects":
			fmt.Fprint(w, `{"count":1,"value":[{"name":"P"}]}`)
		case "/dead/_apis/projects":
			w.WriteHeader(http.StatusUnauthorized)
		default:
			t.Errorf("unexpected path %s", r.URL.Path)
		}
	}))
	defer srv.Close()

	store := &fakeStore{
		adoConfigs: []domain.ADOConfig{
			{ID: 1, Organization: "live", EncryptedPAT: "pat"},
			{ID: 2, Organization: "dead", EncryptedPAT: "pat"},
			{ID: 3, Organization: "blank", EncryptedPAT: ""},
		},
	}
	report := newComposerFor(t, store, srv.URL).Compose(context.Background())

	if len(report.AzureDevOps) != 3 {
		t.Fatalf("got %d org statuses, want 3", len(report.AzureDevOps))
	}
	if got := report.AzureDevOps[0]; got.Status != domain.HealthOK {
		t.Fatalf("live org = %s, want ok", got.Status)
	}
	if got := report.AzureDevOps[1]; got.Status != domain.HealthError || got.Reason == "" {
		t.Fatalf("dead org = %+v, want error with reason", got)
	}
	if got := report.AzureDevOps[2]; got.Status != domain.HealthNotConfigured {
		t.Fatalf("blank org = %s, want not_configured", got.Status)
	}
}

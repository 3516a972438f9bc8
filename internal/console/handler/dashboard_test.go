package handler

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/xela07ax/runnerdeck/internal/domain"
	"github.com/xela07ax/runnerdeck/internal/provider"
)

type stubBuilder struct {
	github *domain.GitHubDashboard
	ado    *domain.ADODashboard
}

func (s *stubBuilder) BuildGitHubDashboard(ctx context.Context) *domain.GitHubDashboard {
	return s.github
}

func (s *stubBuilder) BuildADODashboard(ctx context.Context) *domain.ADODashboard {
	return s.ado
}

type stubJira struct {
	called bool
}

func (s *stubJira) StatusDetail(ctx context.Context, creds provider.JiraCreds) map[string]provider.ServiceStatus {
	s.called = true
	return map[string]provider.ServiceStatus{
		"jira":       {State: json.RawMessage(`{"state":"RUNNING"}`)},
		"confluence": {Error: "Connection failed"},
	}
}

type stubConfig struct {
	settings map[string]string
}

func (s *stubConfig) GetConfig(ctx context.Context) (map[string]string, error) {
	return s.settings, nil
}

type passthroughDec struct{}

func (passthroughDec) Decrypt(encoded string) (string, error) { return encoded, nil }

func TestGetGitHubDashboardAlways200(t *testing.T) {
	// Даже полностью сломанная конфигурация — это 200 с маркером внутри
	builder := &stubBuilder{github: &domain.GitHubDashboard{Error: "organization has not been configured"}}
	h := NewDashboardHandler(builder, &stubJira{}, &stubConfig{}, passthroughDec{})

	rec := httptest.NewRecorder()
	h.GetGitHubDashboard(rec, httptest.NewRequest(http.MethodGet, "/api/dashboard-data", nil))

	if rec.Code != http.StatusOK {
		t.Fatalf("status = %d, want 200", rec.Code)
	}
	var body domain.GitHubDashboard
	if err := json.Unmarshal(rec.Body.Bytes(), &body); err != nil {
		t.Fatalf("bad body: %v", err)
	}
	if body.Error == "" {
		t.Fatal("error marker lost in transit")
	}
}

func TestGetJiraConfluenceStatusIncompleteConfig(t *testing.T) {
	jira := &stubJira{}
	h := NewDashboardHandler(&stubBuilder{}, jira, &stubConfig{settings: map[string]string{}}, passthroughDec{})

	rec := httptest.NewRecorder()
	h.GetJiraConfluenceStatus(rec, httptest.NewRequest(http.MethodGet, "/api/jira-confluence", nil))

	if rec.Code != http.StatusBadRequest {
		t.Fatalf("status = %d, want 400", rec.Code)
	}
	var body map[string]string
	json.Unmarshal(rec.Body.Bytes(), &body)
	if body["error"] != "Configuration is incomplete." {
		t.Fatalf("body = %v", body)
	}
	if jira.called {
		t.Fatal("probe must not run without full configuration")
	}
}

func TestGetJiraConfluenceStatusConfigured(t *testing.T) {
	jira := &stubJira{}
	cfg := &stubConfig{settings: map[string]string{
		domain.SettingJiraBaseURL: "https://jira.example.com",
		domain.SettingJiraEmail:   "ops@example.com",
		domain.SettingJiraToken:   "tok",
	}}
	h := NewDashboardHandler(&stubBuilder{}, jira, cfg, passthroughDec{})

	rec := httptest.NewRecorder()
	h.GetJiraConfluenceStatus(rec, httptest.NewRequest(http.MethodGet, "/api/jira-confluence", nil))

	if rec.Code != http.StatusOK {
		t.Fatalf("status = %d, want 200", rec.Code)
	}
	if !jira.called {
		t.Fatal("probe must run for complete configuration")
	}

	var body map[string]provider.ServiceStatus
	if err := json.Unmarshal(rec.Body.Bytes(), &body); err != nil {
		t.Fatalf("bad body: %v", err)
	}
	if body["confluence"].Error == "" {
		t.Fatal("per-service error must survive serialization")
	}
}

package handler

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/xela07ax/runnerdeck/internal/domain"
)

type stubComposer struct {
	report *domain.HealthReport
}

func (s *stubComposer) Compose(ctx context.Context) *domain.HealthReport {
	return s.report
}

func TestGetHealthAlways200(t *testing.T) {
	// Все провайдеры лежат — статус HTTP все равно 200, деградация в теле
	composer := &stubComposer{report: &domain.HealthReport{
		GitHub:      domain.ProviderHealth{Status: domain.HealthError, Reason: "Bad credentials"},
		Jira:        domain.ProviderHealth{Status: domain.HealthNotConfigured},
		AzureDevOps: []domain.ADOOrgHealth{{Organization: "myorg", Status: domain.HealthError, Reason: "Connection failed or invalid token"}},
	}}
	h := NewSystemHandler(composer, "1.2.3")

	rec := httptest.NewRecorder()
	h.GetHealth(rec, httptest.NewRequest(http.MethodGet, "/health", nil))

	if rec.Code != http.StatusOK {
		t.Fatalf("status = %d, want 200", rec.Code)
	}

	var body domain.HealthReport
	if err := json.Unmarshal(rec.Body.Bytes(), &body); err != nil {
		t.Fatalf("bad body: %v", err)
	}
	if body.GitHub.Status != domain.HealthError || body.Jira.Status != domain.HealthNotConfigured {
		t.Fatalf("report mangled: %+v", body)
	}
	if len(body.AzureDevOps) != 1 || body.AzureDevOps[0].Organization != "myorg" {
		t.Fatalf("ado section mangled: %+v", body.AzureDevOps)
	}
}

func TestGetVersion(t *testing.T) {
	h := NewSystemHandler(&stubComposer{report: &domain.HealthReport{}}, "2024.09.01")

	rec := httptest.NewRecorder()
	h.GetVersion(rec, httptest.NewRequest(http.MethodGet, "/version", nil))

	if rec.Code != http.StatusOK {
		t.Fatalf("status = %d, want 200", rec.Code)
	}
	var body map[string]string
	json.Unmarshal(rec.Body.Bytes(), &body)
	if body["version"] != "2024.09.01" {
		t.Fatalf("version = %q", body["version"])
	}
}

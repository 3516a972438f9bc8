package handler

import (
	"context"
	"encoding/json"
	"net/http"

	"github.com/xela07ax/runnerdeck/internal/domain"
	"github.com/xela07ax/runnerdeck/internal/provider"
)

// DashboardBuilder Описываем, что нам нужно от агрегатора
type DashboardBuilder interface {
	BuildGitHubDashboard(ctx context.Context) *domain.GitHubDashboard
	BuildADODashboard(ctx context.Context) *domain.ADODashboard
}

// JiraProbe — детальная проба Jira/Confluence для отдельной страницы статуса.
type JiraProbe interface {
	StatusDetail(ctx context.Context, creds provider.JiraCreds) map[string]provider.ServiceStatus
}

// JiraCredsSource разрешает креды лениво, на момент запроса.
type JiraCredsSource interface {
	GetConfig(ctx context.Context) (map[string]string, error)
}

type DashboardHandler struct {
	builder DashboardBuilder
	jira    JiraProbe
	config  JiraCredsSource
	dec     provider.Decryptor
}

func NewDashboardHandler(builder DashboardBuilder, jira JiraProbe, config JiraCredsSource, dec provider.Decryptor) *DashboardHandler {
	return &DashboardHandler{builder: builder, jira: jira, config: config, dec: dec}
}

// GetGitHubDashboard GET /api/dashboard-data
// Агрегатор не фейлится целиком: ответ всегда 200, ошибки — внутри payload'а.
func (h *DashboardHandler) GetGitHubDashboard(w http.ResponseWriter, r *http.Request) {
	data := h.builder.BuildGitHubDashboard(r.Context())

	w.Header().Set("Content-Type", "application/json")
	json.NewEncoder(w).Encode(data)
}

// GetADODashboard GET /api/azure-devops/dashboard-data
func (h *DashboardHandler) GetADODashboard(w http.ResponseWriter, r *http.Request) {
	data := h.builder.BuildADODashboard(r.Context())

	w.Header().Set("Content-Type", "application/json")
	json.NewEncoder(w).Encode(data)
}

// GetJiraConfluenceStatus GET /api/jira-confluence
func (h *DashboardHandler) GetJiraConfluenceStatus(w http.ResponseWriter, r *http.Request) {
	settings, err := h.config.GetConfig(r.Context())
	if err != nil {
		http.Error(w, "Failed to load configuration", http.StatusInternalServerError)
		return
	}

	creds, err := provider.JiraCredsFromSettings(settings, h.dec)
	if err != nil {
		w.Header().Set("Content-Type", "application/json")
		w.WriteHeader(http.StatusBadRequest)
		json.NewEncoder(w).Encode(map[string]string{"error": "Configuration is incomplete."})
		return
	}

	w.Header().Set("Content-Type", "application/json")
	json.NewEncoder(w).Encode(h.jira.StatusDetail(r.Context(), creds))
}

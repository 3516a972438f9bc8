package handler

import (
	"encoding/json"
	"errors"
	"net/http"

	"github.com/xela07ax/runnerdeck/internal/console/service"
	"github.com/xela07ax/runnerdeck/internal/domain"
)

type SettingsHandler struct {
	service *service.SettingsService
}

func NewSettingsHandler(s *service.SettingsService) *SettingsHandler {
	return &SettingsHandler{service: s}
}

// GetSettings GET /api/settings — проекция без секретов.
func (h *SettingsHandler) GetSettings(w http.ResponseWriter, r *http.Request) {
	view, err := h.service.GetSettings(r.Context())
	if err != nil {
		http.Error(w, "Failed to load settings", http.StatusInternalServerError)
		return
	}

	w.Header().Set("Content-Type", "application/json")
	json.NewEncoder(w).Encode(view)
}

// SaveGitHub PUT /api/settings/github
func (h *SettingsHandler) SaveGitHub(w http.ResponseWriter, r *http.Request) {
	var req struct {
		Organization string `json:"organization"`
		APIToken     string `json:"api_token"`
	}
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		http.Error(w, "bad request", http.StatusBadRequest)
		return
	}

	if err := h.service.SaveGitHub(r.Context(), req.Organization, req.APIToken); err != nil {
		writeServiceError(w, err)
		return
	}

	json.NewEncoder(w).Encode(map[string]string{"message": "GitHub settings have been saved"})
}

// SaveJira PUT /api/settings/jira
func (h *SettingsHandler) SaveJira(w http.ResponseWriter, r *http.Request) {
	var req struct {
		BaseURL  string `json:"jira_base_url"`
		Email    string `json:"jira_email"`
		APIToken string `json:"jira_api_token"`
	}
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		http.Error(w, "bad request", http.StatusBadRequest)
		return
	}

	if err := h.service.SaveJira(r.Context(), req.BaseURL, req.Email, req.APIToken); err != nil {
		writeServiceError(w, err)
		return
	}

	json.NewEncoder(w).Encode(map[string]string{"message": "Jira & Confluence settings have been saved"})
}

// ListRunnerGroups GET /api/runner-groups — доступные группы организации
// (включая синтетическую org-hosted) и уже наблюдаемые.
func (h *SettingsHandler) ListRunnerGroups(w http.ResponseWriter, r *http.Request) {
	selection, err := h.service.ListRunnerGroups(r.Context())
	if err != nil {
		if errors.Is(err, domain.ErrNotConfigured) {
			http.Error(w, "Organization name is missing", http.StatusBadRequest)
			return
		}
		http.Error(w, "Unable to fetch groups from GitHub API", http.StatusInternalServerError)
		return
	}

	w.Header().Set("Content-Type", "application/json")
	json.NewEncoder(w).Encode(selection)
}

// SaveRunnerGroups POST /api/runner-groups
func (h *SettingsHandler) SaveRunnerGroups(w http.ResponseWriter, r *http.Request) {
	var req struct {
		Groups []domain.MonitoredGroup `json:"groups"`
	}
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		http.Error(w, "bad request", http.StatusBadRequest)
		return
	}

	if err := h.service.SaveRunnerGroups(r.Context(), req.Groups); err != nil {
		http.Error(w, "Unable to save groups", http.StatusInternalServerError)
		return
	}

	json.NewEncoder(w).Encode(map[string]string{"message": "Data has been saved"})
}

// writeServiceError маппит ошибки сервисного слоя в HTTP-статусы.
func writeServiceError(w http.ResponseWriter, err error) {
	switch {
	case errors.Is(err, service.ErrValidation):
		http.Error(w, err.Error(), http.StatusBadRequest)
	case errors.Is(err, service.ErrDuplicate):
		http.Error(w, err.Error(), http.StatusConflict)
	default:
		http.Error(w, "internal error", http.StatusInternalServerError)
	}
}

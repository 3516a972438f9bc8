package handler

import (
	"encoding/json"
	"errors"
	"net/http"
	"strconv"

	"github.com/go-chi/chi/v5"
	"github.com/xela07ax/runnerdeck/internal/console/service"
	"github.com/xela07ax/runnerdeck/internal/domain"
	"github.com/xela07ax/runnerdeck/internal/repository/postgres"
)

type ADOHandler struct {
	service *service.SettingsService
}

func NewADOHandler(s *service.SettingsService) *ADOHandler {
	return &ADOHandler{service: s}
}

func configIDFromURL(r *http.Request) (int64, error) {
	return strconv.ParseInt(chi.URLParam(r, "id"), 10, 64)
}

// ListOrgs GET /api/azure-devops
func (h *ADOHandler) ListOrgs(w http.ResponseWriter, r *http.Request) {
	configs, err := h.service.ListADOOrgs(r.Context())
	if err != nil {
		http.Error(w, "Failed to load configurations", http.StatusInternalServerError)
		return
	}

	w.Header().Set("Content-Type", "application/json")
	json.NewEncoder(w).Encode(configs)
}

// AddOrg POST /api/azure-devops
func (h *ADOHandler) AddOrg(w http.ResponseWriter, r *http.Request) {
	var req struct {
		OrganizationName string `json:"organization_name"`
		PATToken         string `json:"pat_token"`
	}
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		http.Error(w, "bad request", http.StatusBadRequest)
		return
	}

	id, err := h.service.AddADOOrg(r.Context(), req.OrganizationName, req.PATToken)
	if err != nil {
		writeServiceError(w, err)
		return
	}

	w.WriteHeader(http.StatusCreated)
	json.NewEncoder(w).Encode(map[string]interface{}{"id": id, "message": "Organization has been added"})
}

// UpdatePAT PUT /api/azure-devops/{id}
func (h *ADOHandler) UpdatePAT(w http.ResponseWriter, r *http.Request) {
	id, err := configIDFromURL(r)
	if err != nil {
		http.Error(w, "invalid config id", http.StatusBadRequest)
		return
	}

	var req struct {
		PATToken string `json:"pat_token"`
	}
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		http.Error(w, "bad request", http.StatusBadRequest)
		return
	}

	if err := h.service.UpdateADOPAT(r.Context(), id, req.PATToken); err != nil {
		if errors.Is(err, postgres.ErrNotFound) {
			http.Error(w, "Configuration not found", http.StatusNotFound)
			return
		}
		writeServiceError(w, err)
		return
	}

	json.NewEncoder(w).Encode(map[string]string{"message": "PAT token has been updated"})
}

// DeleteOrg DELETE /api/azure-devops/{id}
func (h *ADOHandler) DeleteOrg(w http.ResponseWriter, r *http.Request) {
	id, err := configIDFromURL(r)
	if err != nil {
		http.Error(w, "invalid config id", http.StatusBadRequest)
		return
	}

	if err := h.service.DeleteADOOrg(r.Context(), id); err != nil {
		if errors.Is(err, postgres.ErrNotFound) {
			http.Error(w, "Configuration not found", http.StatusNotFound)
			return
		}
		http.Error(w, "Failed to delete configuration", http.StatusInternalServerError)
		return
	}

	json.NewEncoder(w).Encode(map[string]string{"message": "Configuration deleted"})
}

// ListPools GET /api/azure-devops/{id}/pools
func (h *ADOHandler) ListPools(w http.ResponseWriter, r *http.Request) {
	id, err := configIDFromURL(r)
	if err != nil {
		http.Error(w, "invalid config id", http.StatusBadRequest)
		return
	}

	selection, err := h.service.ListADOPools(r.Context(), id)
	if err != nil {
		if errors.Is(err, postgres.ErrNotFound) {
			http.Error(w, "Configuration not found", http.StatusNotFound)
			return
		}
		http.Error(w, "Failed to fetch agent pools", http.StatusInternalServerError)
		return
	}

	w.Header().Set("Content-Type", "application/json")
	json.NewEncoder(w).Encode(selection)
}

// SavePools POST /api/azure-devops/{id}/pools
func (h *ADOHandler) SavePools(w http.ResponseWriter, r *http.Request) {
	id, err := configIDFromURL(r)
	if err != nil {
		http.Error(w, "invalid config id", http.StatusBadRequest)
		return
	}

	var req struct {
		Pools []domain.ADOPool `json:"pools"`
	}
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		http.Error(w, "bad request", http.StatusBadRequest)
		return
	}

	if err := h.service.SaveADOPools(r.Context(), id, req.Pools); err != nil {
		http.Error(w, "Failed to save pools", http.StatusInternalServerError)
		return
	}

	json.NewEncoder(w).Encode(map[string]string{"message": "Monitored agent pools have been updated"})
}

// Verify POST /api/azure-devops/{id}/verify — проверка соединения.
func (h *ADOHandler) Verify(w http.ResponseWriter, r *http.Request) {
	id, err := configIDFromURL(r)
	if err != nil {
		http.Error(w, "invalid config id", http.StatusBadRequest)
		return
	}

	w.Header().Set("Content-Type", "application/json")
	if err := h.service.VerifyADO(r.Context(), id); err != nil {
		if errors.Is(err, postgres.ErrNotFound) {
			http.Error(w, "Configuration not found", http.StatusNotFound)
			return
		}
		w.WriteHeader(http.StatusBadRequest)
		json.NewEncoder(w).Encode(map[string]string{"status": "error", "message": err.Error()})
		return
	}

	json.NewEncoder(w).Encode(map[string]string{"status": "success", "message": "Connection successful!"})
}

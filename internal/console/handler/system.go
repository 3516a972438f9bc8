package handler

import (
	"context"
	"encoding/json"
	"net/http"

	"github.com/xela07ax/runnerdeck/internal/domain"
)

// HealthComposer — что нам нужно от health-композера
type HealthComposer interface {
	Compose(ctx context.Context) *domain.HealthReport
}

type SystemHandler struct {
	health  HealthComposer
	version string
}

func NewSystemHandler(health HealthComposer, version string) *SystemHandler {
	return &SystemHandler{health: health, version: version}
}

// GetHealth GET /health — композитный отчет, всегда 200:
// состояние провайдеров внутри документа, а не в HTTP-статусе.
func (h *SystemHandler) GetHealth(w http.ResponseWriter, r *http.Request) {
	report := h.health.Compose(r.Context())

	w.Header().Set("Content-Type", "application/json")
	json.NewEncoder(w).Encode(report)
}

// GetVersion GET /version
func (h *SystemHandler) GetVersion(w http.ResponseWriter, r *http.Request) {
	w.Header().Set("Content-Type", "application/json")
	json.NewEncoder(w).Encode(map[string]string{"version": h.version})
}

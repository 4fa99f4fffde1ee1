package handler

import (
	"encoding/json"
	"net/http"
	"strconv"

	"github.com/xela07ax/atelier-gate/internal/audit"
	"github.com/xela07ax/atelier-gate/internal/console/service"
	"github.com/xela07ax/atelier-gate/internal/infra/auth"
)

type AuditHandler struct {
	service *service.AuditService
}

func NewAuditHandler(s *service.AuditService) *AuditHandler {
	return &AuditHandler{service: s}
}

// GetEntries возвращает журнал аудита студии с поддержкой фильтрации
// GET /v1/audit?outcome=denied&limit=50
func (h *AuditHandler) GetEntries(w http.ResponseWriter, r *http.Request) {
	claims := auth.ClaimsFrom(r.Context())
	if claims == nil {
		http.Error(w, "Unauthorized", http.StatusUnauthorized)
		return
	}

	outcome := audit.Outcome(r.URL.Query().Get("outcome"))
	limit, _ := strconv.Atoi(r.URL.Query().Get("limit"))

	entries, err := h.service.FetchEntries(r.Context(), claims.StudioID, outcome, limit)
	if err != nil {
		http.Error(w, "Failed to fetch audit entries", http.StatusInternalServerError)
		return
	}

	w.Header().Set("Content-Type", "application/json")
	json.NewEncoder(w).Encode(entries)
}

// GetOverview возвращает сводку для дашборда
// GET /api/v1/overview
func (h *AuditHandler) GetOverview(w http.ResponseWriter, r *http.Request) {
	claims := auth.ClaimsFrom(r.Context())
	if claims == nil {
		http.Error(w, "Unauthorized", http.StatusUnauthorized)
		return
	}

	overview, err := h.service.GetOverview(r.Context(), claims.StudioID)
	if err != nil {
		http.Error(w, "Failed to fetch overview", http.StatusInternalServerError)
		return
	}

	w.Header().Set("Content-Type", "application/json")
	json.NewEncoder(w).Encode(overview)
}

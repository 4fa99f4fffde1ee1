package handler

import (
	"encoding/json"
	"net/http"

	"github.com/go-chi/chi/v5"

	"github.com/xela07ax/atelier-gate/internal/console/service"
	"github.com/xela07ax/atelier-gate/internal/domain"
)

type PolicyHandler struct {
	service *service.PolicyService
}

func NewPolicyHandler(s *service.PolicyService) *PolicyHandler {
	return &PolicyHandler{service: s}
}

// List возвращает все guardrail-политики для админки
func (h *PolicyHandler) List(w http.ResponseWriter, r *http.Request) {
	policies, err := h.service.GetAll(r.Context())
	if err != nil {
		http.Error(w, "Failed to fetch policies", http.StatusInternalServerError)
		return
	}

	w.Header().Set("Content-Type", "application/json")
	json.NewEncoder(w).Encode(policies)
}

// Upsert сохраняет политику студии целиком и инициирует инвалидацию кэша
// PUT /v1/policies/{studioID}
func (h *PolicyHandler) Upsert(w http.ResponseWriter, r *http.Request) {
	studioID := chi.URLParam(r, "studioID")
	if studioID == "" {
		http.Error(w, "studio ID is required", http.StatusBadRequest)
		return
	}

	var p domain.StudioPolicy
	if err := json.NewDecoder(r.Body).Decode(&p); err != nil {
		http.Error(w, "Invalid request body", http.StatusBadRequest)
		return
	}
	p.StudioID = studioID

	if err := h.service.Upsert(r.Context(), &p); err != nil {
		http.Error(w, err.Error(), http.StatusInternalServerError)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

// Lock мгновенно блокирует студию (экстренный рубильник)
func (h *PolicyHandler) Lock(w http.ResponseWriter, r *http.Request) {
	h.toggleLock(w, r, true)
}

// Unlock снимает блокировку
func (h *PolicyHandler) Unlock(w http.ResponseWriter, r *http.Request) {
	h.toggleLock(w, r, false)
}

func (h *PolicyHandler) toggleLock(w http.ResponseWriter, r *http.Request, lock bool) {
	studioID := chi.URLParam(r, "studioID")
	if studioID == "" {
		http.Error(w, "studio ID is required", http.StatusBadRequest)
		return
	}

	// Ждем завершения и БД, и Redis-сигнала, чтобы гарантировать блокировку
	var err error
	if lock {
		err = h.service.LockStudio(r.Context(), studioID)
	} else {
		err = h.service.UnlockStudio(r.Context(), studioID)
	}
	if err != nil {
		http.Error(w, err.Error(), http.StatusInternalServerError)
		return
	}

	w.WriteHeader(http.StatusNoContent)
}

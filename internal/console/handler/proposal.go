package handler

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"

	"github.com/go-chi/chi/v5"

	"github.com/xela07ax/atelier-gate/internal/domain"
	"github.com/xela07ax/atelier-gate/internal/infra/auth"
)

// ProposalService описывает, что хендлеру нужно от сервиса
type ProposalService interface {
	GetProposal(ctx context.Context, id string) (*domain.Proposal, error)
	GetProposals(ctx context.Context, studioID, status string) ([]*domain.Proposal, error)
	DecideProposal(ctx context.Context, studioID, id string, approved bool, reviewerID, comment string) error
}

type ProposalHandler struct {
	service ProposalService
}

func NewProposalHandler(s ProposalService) *ProposalHandler {
	return &ProposalHandler{service: s}
}

func (h *ProposalHandler) GetDetails(w http.ResponseWriter, r *http.Request) {
	id := chi.URLParam(r, "id")

	p, err := h.service.GetProposal(r.Context(), id)
	if err != nil {
		if errors.Is(err, domain.ErrNotFound) {
			http.Error(w, "proposal not found", http.StatusNotFound)
			return
		}
		http.Error(w, err.Error(), http.StatusInternalServerError)
		return
	}

	// Изоляция тенантов: оператор видит только заявки своей студии
	claims := auth.ClaimsFrom(r.Context())
	if claims == nil || claims.StudioID != p.StudioID {
		http.Error(w, "proposal not found", http.StatusNotFound)
		return
	}

	w.Header().Set("Content-Type", "application/json")
	json.NewEncoder(w).Encode(p)
}

func (h *ProposalHandler) List(w http.ResponseWriter, r *http.Request) {
	claims := auth.ClaimsFrom(r.Context())
	if claims == nil {
		http.Error(w, "Unauthorized", http.StatusUnauthorized)
		return
	}

	status := r.URL.Query().Get("status") // Достаем из ?status=...
	if status == "" {
		status = "PENDING" // Дефолт для очереди решений
	}

	list, err := h.service.GetProposals(r.Context(), claims.StudioID, status)
	if err != nil {
		http.Error(w, err.Error(), http.StatusInternalServerError)
		return
	}

	w.Header().Set("Content-Type", "application/json")
	json.NewEncoder(w).Encode(list)
}

type DecideRequest struct {
	Approved bool   `json:"approved"`
	Comment  string `json:"comment"`
}

func (h *ProposalHandler) Decide(w http.ResponseWriter, r *http.Request) {
	id := chi.URLParam(r, "id")

	var req DecideRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		http.Error(w, "invalid request body", http.StatusBadRequest)
		return
	}

	// ReviewerID — авторизованный оператор из проверенного токена
	claims := auth.ClaimsFrom(r.Context())
	if claims == nil {
		http.Error(w, "Unauthorized", http.StatusUnauthorized)
		return
	}

	err := h.service.DecideProposal(r.Context(), claims.StudioID, id, req.Approved, claims.UserID, req.Comment)
	if err != nil {
		switch {
		case errors.Is(err, domain.ErrNotFound):
			http.Error(w, "proposal not found", http.StatusNotFound)
		case errors.Is(err, domain.ErrAlreadyProcessed):
			http.Error(w, "proposal already processed", http.StatusConflict)
		default:
			http.Error(w, err.Error(), http.StatusInternalServerError)
		}
		return
	}

	w.WriteHeader(http.StatusAccepted)
}

package engine

import (
	"encoding/json"
	"io"
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/xela07ax/atelier-gate/internal/domain"
	"github.com/xela07ax/atelier-gate/internal/infra/auth"
)

// HandleExecute — HTTP-обертка над Handle.
// POST /v1/execute?tool=client.update, тело — args инструмента.
func (g *Gateway) HandleExecute(w http.ResponseWriter, r *http.Request) {
	claims := auth.ClaimsFrom(r.Context())
	if claims == nil {
		http.Error(w, "Unauthorized", http.StatusUnauthorized)
		return
	}

	toolName := r.URL.Query().Get("tool")
	if toolName == "" {
		http.Error(w, "tool query param is required", http.StatusBadRequest)
		return
	}

	body, err := io.ReadAll(r.Body)
	if err != nil {
		http.Error(w, "failed to read body", http.StatusInternalServerError)
		return
	}
	defer r.Body.Close()

	call := claims.CallCtx(r.Header.Get("X-Session-ID"))
	resp := g.Handle(r.Context(), call, toolName, body)
	writeResponse(w, resp)
}

// HandleApprove — HTTP-вход исполнения одобренного Proposal.
// POST /v1/proposals/{id}/approve
func (g *Gateway) HandleApprove(w http.ResponseWriter, r *http.Request) {
	claims := auth.ClaimsFrom(r.Context())
	if claims == nil {
		http.Error(w, "Unauthorized", http.StatusUnauthorized)
		return
	}

	proposalID := chi.URLParam(r, "id")
	if proposalID == "" {
		http.Error(w, "proposal id is required", http.StatusBadRequest)
		return
	}

	approver := claims.CallCtx("")
	resp := g.Approve(r.Context(), proposalID, approver)
	writeResponse(w, resp)
}

// writeResponse мапит тег ответа в HTTP-статус. Внутренние детали ошибок
// наружу не отдаем — в Response уже только безопасное резюме.
func writeResponse(w http.ResponseWriter, resp domain.Response) {
	w.Header().Set("Content-Type", "application/json")
	switch resp.Type {
	case domain.ResponseSuccess:
		w.WriteHeader(http.StatusOK)
	case domain.ResponseApprovalRequired:
		w.WriteHeader(http.StatusAccepted)
	case domain.ResponseDenied:
		w.WriteHeader(http.StatusForbidden)
	default:
		w.WriteHeader(http.StatusInternalServerError)
	}
	json.NewEncoder(w).Encode(resp)
}

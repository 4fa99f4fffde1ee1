package domain

// Overview — агрегированная сводка для консоли оператора.
type Overview struct {
	PendingProposals int64 `json:"pending_proposals"` // Ждут решения (HITL)

	// Срез по audit trail за последний час
	ExecutedActions int64   `json:"executed_actions"`
	DeniedActions   int64   `json:"denied_actions"`
	FailedActions   int64   `json:"failed_actions"`
	P95LatencyMs    float64 `json:"p95_latency_ms"`
}

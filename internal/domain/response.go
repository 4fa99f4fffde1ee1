package domain

// ResponseType — исчерпывающий и взаимоисключающий набор исходов вызова.
// Один вызов инструмента дает ровно один Response.
type ResponseType string

const (
	ResponseSuccess          ResponseType = "success"
	ResponseApprovalRequired ResponseType = "approval_required"
	ResponseDenied           ResponseType = "denied"
	ResponseError            ResponseType = "error"
)

// Response — значение, возвращаемое вызывающему слою оркестрации.
// Конструкторы тотальны и не имеют побочных эффектов: маппинг внутреннего
// решения во внешнюю форму тестируется независимо от всего остального.
type Response struct {
	Type      ResponseType `json:"type"`
	Message   string       `json:"message"`
	Payload   interface{}  `json:"payload,omitempty"`
	Proposals []Proposal   `json:"proposals,omitempty"`
	Reason    string       `json:"reason,omitempty"`
}

func Success(payload interface{}, message string) Response {
	return Response{Type: ResponseSuccess, Payload: payload, Message: message}
}

func ApprovalRequired(proposals []Proposal, message string) Response {
	return Response{Type: ResponseApprovalRequired, Proposals: proposals, Message: message}
}

func Denied(reason string) Response {
	return Response{Type: ResponseDenied, Reason: reason, Message: "action denied by studio guardrails"}
}

// ErrorResponse несет только безопасное резюме — внутренние детали
// исключений наружу не протекают.
func ErrorResponse(message string) Response {
	return Response{Type: ResponseError, Message: message}
}

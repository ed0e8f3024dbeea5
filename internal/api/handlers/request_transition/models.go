package request_transition

// RequestTransitionRequest HTTP request model
type RequestTransitionRequest struct {
	// TargetStatus статус в клиентском словаре (confirmed, completed, cancelled...)
	TargetStatus string `json:"targetStatus"`
}

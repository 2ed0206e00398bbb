package response_models

type ChatResponse struct {
	Message string `json:"message"`
}

type ChatErrorResponse struct {
	Error string `json:"error"`
}

type ChatHistoryMessage struct {
	ID      int64  `json:"id"`
	Type    string `json:"type"`
	Content string `json:"content"`
}

type ChatHistoryResponse struct {
	SessionID string               `json:"session_id"`
	Messages  []ChatHistoryMessage `json:"messages"`
}

package dto

import "datatalk-backend/internal/model"

type ChatRequest struct {
	SessionID string `json:"sessionId" binding:"required"`
	Message   string `json:"message" binding:"required"`
}

type ChatResponse struct {
	SessionID             string             `json:"sessionId"`
	Answer                string             `json:"answer"`
	Charts                []*model.ChartSpec `json:"charts"`
	Insights              []model.Insight    `json:"insights"`
	RequiresClarification bool               `json:"requiresClarification"`
	// ErrorCode is a fixed code such as "analysis_failed", never raw error text.
	ErrorCode             string             `json:"errorCode,omitempty"`
}

type HistoryResponse struct {
	SessionID string              `json:"sessionId"`
	Messages  []model.ChatMessage `json:"messages"`
}

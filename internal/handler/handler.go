// Package handler holds the per-intent strategies that turn a classified
// question into an answer, charts and insights.
package handler

import (
	"context"

	"datatalk-backend/internal/llm"
	"datatalk-backend/internal/model"
)

// Context is everything a handler may read to answer one question.
type Context struct {
	Question  string
	Intent    model.AnalysisIntent
	Table     model.Table
	Summary   model.DataSummary
	Retrieved model.RetrievedContext
	History   []model.ChatMessage
	SessionID string
}

// Response is the normalized handler output. A non-empty Error is a failure
// the handler already understood; an empty Answer without Error is a fault.
type Response struct {
	Answer                string             `json:"answer"`
	Charts                []*model.ChartSpec `json:"charts,omitempty"`
	Insights              []model.Insight    `json:"insights,omitempty"`
	Error                 string             `json:"error,omitempty"`
	RequiresClarification bool               `json:"requiresClarification,omitempty"`
}

type Handler interface {
	Name() string
	CanHandle(intent model.AnalysisIntent) bool
	Handle(ctx context.Context, hctx *Context) (*Response, error)
}

func toInsights(texts []string) []model.Insight {
	out := make([]model.Insight, 0, len(texts))
	for _, t := range texts {
		if t == "" {
			continue
		}
		out = append(out, model.Insight{ID: len(out) + 1, Text: t})
	}
	return out
}

// Defaults returns the standard handler set in dispatch order. Order matters:
// the first handler whose CanHandle accepts an intent serves it.
func Defaults(client llm.Client) []Handler {
	return []Handler{
		NewConversationalHandler(client),
		NewDataOpsHandler(),
		NewCorrelationHandler(client),
		NewAnalyticalHandler(client),
		NewGeneralHandler(client),
	}
}

package handler

import (
	"context"
	"fmt"

	"datatalk-backend/internal/llm"
	"datatalk-backend/internal/model"
)

type conversationalHandler struct {
	llm llm.Client
}

func NewConversationalHandler(client llm.Client) Handler {
	return &conversationalHandler{llm: client}
}

func (h *conversationalHandler) Name() string { return "conversational" }

func (h *conversationalHandler) CanHandle(intent model.AnalysisIntent) bool {
	return intent.Type == model.IntentConversational
}

func (h *conversationalHandler) Handle(ctx context.Context, hctx *Context) (*Response, error) {
	answer, err := h.llm.Generate(ctx, llm.Request{
		System: fmt.Sprintf("You are a friendly assistant for exploring a dataset with %d rows and %d columns. "+
			"Keep replies short and offer to analyse the data.", hctx.Summary.RowCount, hctx.Summary.ColumnCount),
		History: hctx.History,
		Prompt:  hctx.Question,
	})
	if err != nil {
		return nil, fmt.Errorf("conversational reply: %w", err)
	}
	return &Response{Answer: answer}, nil
}

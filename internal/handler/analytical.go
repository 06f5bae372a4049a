package handler

import (
	"context"

	"datatalk-backend/internal/llm"
	"datatalk-backend/internal/model"
)

var analyticalGuidance = map[model.IntentType]string{
	model.IntentTrend:      "The user asks about change over time: prefer a line or area chart with a date column on x.",
	model.IntentComparison: "The user compares groups: prefer a bar chart with the compared category on x.",
	model.IntentAnalytical: "Aggregate where useful and pick the chart type that best fits the data.",
}

type analyticalHandler struct {
	llm llm.Client
}

func NewAnalyticalHandler(client llm.Client) Handler {
	return &analyticalHandler{llm: client}
}

func (h *analyticalHandler) Name() string { return "analytical" }

func (h *analyticalHandler) CanHandle(intent model.AnalysisIntent) bool {
	switch intent.Type {
	case model.IntentAnalytical, model.IntentComparison, model.IntentTrend:
		return true
	}
	return false
}

func (h *analyticalHandler) Handle(ctx context.Context, hctx *Context) (*Response, error) {
	return analyse(ctx, h.llm, hctx, analyticalGuidance[hctx.Intent.Type], false)
}

// generalHandler covers custom requests and anything not more specific.
type generalHandler struct {
	llm llm.Client
}

func NewGeneralHandler(client llm.Client) Handler {
	return &generalHandler{llm: client}
}

func (h *generalHandler) Name() string { return "general" }

func (h *generalHandler) CanHandle(intent model.AnalysisIntent) bool {
	return intent.Type == model.IntentCustom || intent.Type == model.IntentGeneral
}

func (h *generalHandler) Handle(ctx context.Context, hctx *Context) (*Response, error) {
	guidance := ""
	if hctx.Intent.CustomRequest != "" && hctx.Intent.CustomRequest != hctx.Question {
		guidance = "Specific request: " + hctx.Intent.CustomRequest
	}
	return analyse(ctx, h.llm, hctx, guidance, true)
}

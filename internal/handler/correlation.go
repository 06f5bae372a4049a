package handler

import (
	"context"
	"fmt"
	"math"
	"strings"

	"github.com/rs/zerolog/log"

	"datatalk-backend/internal/dataset"
	"datatalk-backend/internal/llm"
	"datatalk-backend/internal/model"
)

const maxCorrelationInsights = 3

type correlationHandler struct {
	llm llm.Client
}

func NewCorrelationHandler(client llm.Client) Handler {
	return &correlationHandler{llm: client}
}

func (h *correlationHandler) Name() string { return "correlation" }

func (h *correlationHandler) CanHandle(intent model.AnalysisIntent) bool {
	return intent.Type == model.IntentCorrelation
}

func (h *correlationHandler) Handle(ctx context.Context, hctx *Context) (*Response, error) {
	numeric := hctx.Summary.NumericColumns
	if len(numeric) < 2 {
		return &Response{Error: "Correlation analysis needs at least two numeric columns."}, nil
	}
	target := correlationTarget(hctx)
	correlations := dataset.Correlations(hctx.Table, target, numeric)
	if len(correlations) == 0 {
		return &Response{Error: fmt.Sprintf("Not enough paired numeric values to correlate with %s.", target)}, nil
	}

	data := make([]model.Row, 0, len(correlations))
	insights := make([]string, 0, maxCorrelationInsights)
	for i, c := range correlations {
		data = append(data, model.Row{
			"variable":    model.String(c.Variable),
			"correlation": model.Number(math.Round(c.R*1000) / 1000),
		})
		if i < maxCorrelationInsights {
			insights = append(insights, describeCorrelation(target, c))
		}
	}
	chart := &model.ChartSpec{
		Type:       model.ChartBar,
		Title:      fmt.Sprintf("Correlation with %s", target),
		X:          "variable",
		Y:          "correlation",
		Data:       data,
		KeyInsight: insights[0],
	}

	answer, err := h.narrate(ctx, hctx, target, correlations)
	if err != nil {
		if ctx.Err() != nil {
			return nil, ctx.Err()
		}
		log.Warn().Err(err).Str("target", target).Msg("Correlation narration failed, using summary text")
		answer = fmt.Sprintf("I compared %s with %d numeric columns. %s.", target, len(correlations), insights[0])
	}
	return &Response{
		Answer:   answer,
		Charts:   []*model.ChartSpec{chart},
		Insights: toInsights(insights),
	}, nil
}

// correlationTarget is the first numeric column the question mentions, or the
// first numeric column of the dataset.
func correlationTarget(hctx *Context) string {
	numeric := make(map[string]bool, len(hctx.Summary.NumericColumns))
	for _, c := range hctx.Summary.NumericColumns {
		numeric[c] = true
	}
	for _, c := range hctx.Retrieved.MentionedColumns {
		if numeric[c] {
			return c
		}
	}
	return hctx.Summary.NumericColumns[0]
}

func describeCorrelation(target string, c dataset.Correlation) string {
	strength := "weak"
	switch abs := math.Abs(c.R); {
	case abs >= 0.7:
		strength = "strong"
	case abs >= 0.4:
		strength = "moderate"
	}
	direction := "positive"
	if c.R < 0 {
		direction = "negative"
	}
	return fmt.Sprintf("%s has a %s %s correlation with %s (r = %.2f)", c.Variable, strength, direction, target, c.R)
}

func (h *correlationHandler) narrate(ctx context.Context, hctx *Context, target string, correlations []dataset.Correlation) (string, error) {
	var b strings.Builder
	fmt.Fprintf(&b, "Question: %s\nPearson correlations with %s:\n", hctx.Question, target)
	for _, c := range correlations {
		fmt.Fprintf(&b, "- %s: r=%.3f (n=%d)\n", c.Variable, c.R, c.N)
	}
	b.WriteString("Explain the most important relationships in two or three sentences. Correlation is not causation.")
	return h.llm.Generate(ctx, llm.Request{Prompt: b.String()})
}

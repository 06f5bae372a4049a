package intent

import (
	"context"
	"fmt"
	"strings"

	"github.com/rs/zerolog/log"

	"datatalk-backend/internal/llm"
	"datatalk-backend/internal/model"
)

const historyTurnsForPrompt = 6

// LLMClassifier asks the language model for a structured intent and falls
// back to the keyword heuristic when the model fails or answers nonsense.
type LLMClassifier struct {
	llm      llm.Client
	fallback *HeuristicClassifier
}

func NewLLMClassifier(client llm.Client) *LLMClassifier {
	return &LLMClassifier{llm: client, fallback: NewHeuristicClassifier()}
}

type classification struct {
	Type                  string  `json:"type"`
	Confidence            float64 `json:"confidence"`
	RequiresClarification bool    `json:"requiresClarification"`
	CustomRequest         string  `json:"customRequest"`
}

func (c *LLMClassifier) ClassifyIntent(ctx context.Context, question string, history []model.ChatMessage, summary model.DataSummary) (model.AnalysisIntent, error) {
	raw, err := c.llm.Generate(ctx, llm.Request{
		System: classifierInstructions,
		Prompt: buildClassifierPrompt(question, history, summary),
		JSON:   true,
	})
	if err != nil {
		if ctx.Err() != nil {
			return model.AnalysisIntent{}, ctx.Err()
		}
		log.Warn().Err(err).Msg("Intent classification via LLM failed, using heuristic")
		return c.fallback.ClassifyIntent(ctx, question, history, summary)
	}

	var parsed classification
	if err := llm.DecodeJSON(raw, &parsed); err != nil {
		log.Warn().Err(err).Str("raw", raw).Msg("Unparseable intent classification, using heuristic")
		return c.fallback.ClassifyIntent(ctx, question, history, summary)
	}

	intentType := model.IntentType(strings.ToLower(strings.TrimSpace(parsed.Type)))
	if !intentType.Known() {
		log.Warn().Str("type", parsed.Type).Msg("Unknown intent type from LLM, using heuristic")
		return c.fallback.ClassifyIntent(ctx, question, history, summary)
	}

	result := model.AnalysisIntent{
		Type:                  intentType,
		Confidence:            clamp01(parsed.Confidence),
		RequiresClarification: parsed.RequiresClarification,
		CustomRequest:         parsed.CustomRequest,
		OriginalQuestion:      question,
	}
	log.Info().
		Str("intent", string(result.Type)).
		Float64("confidence", result.Confidence).
		Bool("requires_clarification", result.RequiresClarification).
		Msg("Intent classified")
	return result, nil
}

func clamp01(v float64) float64 {
	switch {
	case v < 0:
		return 0
	case v > 1:
		return 1
	}
	return v
}

const classifierInstructions = `You classify questions about an uploaded tabular dataset.
Respond ONLY with a JSON object:
{"type": one of "conversational","analytical","comparison","trend","correlation","data_ops","custom","general",
 "confidence": number between 0 and 1,
 "requiresClarification": boolean,
 "customRequest": string or ""}`

func buildClassifierPrompt(question string, history []model.ChatMessage, summary model.DataSummary) string {
	var b strings.Builder
	b.WriteString("Dataset columns:\n")
	b.WriteString(DescribeSummary(summary))
	if len(history) > 0 {
		b.WriteString("\nRecent conversation:\n")
		start := len(history) - historyTurnsForPrompt
		if start < 0 {
			start = 0
		}
		for _, turn := range history[start:] {
			fmt.Fprintf(&b, "%s: %s\n", turn.Role, turn.Content)
		}
	}
	fmt.Fprintf(&b, "\nQuestion: %q\n", question)
	return b.String()
}

// DescribeSummary renders a compact column listing for prompts.
func DescribeSummary(summary model.DataSummary) string {
	var b strings.Builder
	fmt.Fprintf(&b, "%d rows, %d columns\n", summary.RowCount, summary.ColumnCount)
	for _, c := range summary.Columns {
		fmt.Fprintf(&b, "- %s (%s)", c.Name, c.Type)
		if len(c.SampleValues) > 0 {
			samples := make([]string, 0, len(c.SampleValues))
			for _, v := range c.SampleValues {
				samples = append(samples, v.String())
			}
			fmt.Fprintf(&b, " e.g. %s", strings.Join(samples, ", "))
		}
		b.WriteString("\n")
	}
	return b.String()
}

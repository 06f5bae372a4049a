// Package intent classifies user questions, rewrites references to earlier
// turns and gathers the dataset context a handler needs.
package intent

import (
	"context"
	"regexp"
	"strings"

	"github.com/rs/zerolog/log"

	"datatalk-backend/internal/column"
	"datatalk-backend/internal/model"
)

type Classifier interface {
	ClassifyIntent(ctx context.Context, question string, history []model.ChatMessage, summary model.DataSummary) (model.AnalysisIntent, error)
}

type rule struct {
	intent     model.IntentType
	confidence float64
	patterns   []string
}

var (
	greetingRegex = regexp.MustCompile(`^(hi|hello|hey|good (morning|afternoon|evening))\b`)
	smallTalk     = []string{"thank", "thanks", "bye", "goodbye", "see you", "how are you", "who are you", "what can you do"}
)

// Checked in order; the first rule with a matching pattern wins.
var rules = []rule{
	{model.IntentCorrelation, 0.8, []string{"correlat", "relationship between", "related to", "affects", "impact of", "influence"}},
	{model.IntentDataOps, 0.85, []string{
		"how many rows", "how many columns", "number of rows", "number of columns", "row count",
		"column names", "list columns", "list the columns", "what columns", "which columns",
		"missing values", "null values", "empty values", "distinct values", "unique values", "schema",
	}},
	{model.IntentTrend, 0.75, []string{"trend", "over time", "monthly", "weekly", "yearly", "per month", "per year", "by month", "by year", "growth", "timeline", "seasonal"}},
	{model.IntentComparison, 0.75, []string{"compare", "comparison", " vs ", " vs. ", "versus", "difference between"}},
	{model.IntentAnalytical, 0.65, []string{
		"average", "mean", "total", "sum of", "top ", "highest", "lowest", "most", "least",
		"distribution", "breakdown", "share", "percentage", "chart", "plot", "graph", "visuali", "show me", "by ",
	}},
}

// HeuristicClassifier classifies by keyword rules. It never fails and is the
// fallback when the language model is unavailable.
type HeuristicClassifier struct{}

func NewHeuristicClassifier() *HeuristicClassifier {
	return &HeuristicClassifier{}
}

func (HeuristicClassifier) ClassifyIntent(_ context.Context, question string, _ []model.ChatMessage, summary model.DataSummary) (model.AnalysisIntent, error) {
	return Heuristic(question, summary), nil
}

// Heuristic classifies question by keyword rules. Mentioning a dataset column
// raises confidence in analytical intents.
func Heuristic(question string, summary model.DataSummary) model.AnalysisIntent {
	q := strings.ToLower(strings.TrimSpace(question))
	result := model.AnalysisIntent{OriginalQuestion: question}

	if q == "" {
		result.Type = model.IntentGeneral
		result.Confidence = 0.2
		result.RequiresClarification = true
		return result
	}

	if isSmallTalk(q) {
		result.Type = model.IntentConversational
		result.Confidence = 0.9
		return result
	}

	padded := " " + q + " "
	for _, r := range rules {
		for _, p := range r.patterns {
			if strings.Contains(padded, p) {
				result.Type = r.intent
				result.Confidence = r.confidence
				if r.intent != model.IntentDataOps && mentionsColumn(question, summary) {
					result.Confidence += 0.1
				}
				log.Debug().Str("intent", string(r.intent)).Str("pattern", p).Msg("Heuristic intent match")
				return result
			}
		}
	}

	result.Type = model.IntentCustom
	result.Confidence = 0.5
	result.CustomRequest = question
	return result
}

func isSmallTalk(q string) bool {
	if len(strings.Fields(q)) > 6 {
		return false
	}
	if greetingRegex.MatchString(q) {
		return true
	}
	for _, p := range smallTalk {
		if strings.Contains(q, p) {
			return true
		}
	}
	return false
}

func mentionsColumn(question string, summary model.DataSummary) bool {
	names := make([]string, 0, len(summary.Columns))
	for _, c := range summary.Columns {
		names = append(names, c.Name)
	}
	return len(column.Mentioned(question, names)) > 0
}

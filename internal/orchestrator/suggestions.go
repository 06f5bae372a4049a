package orchestrator

import (
	"fmt"
	"regexp"
	"strings"

	"datatalk-backend/internal/model"
)

const maxSuggestions = 4

// Suggestions derives example questions from the dataset's column types.
func Suggestions(summary model.DataSummary) []string {
	out := make([]string, 0, maxSuggestions)
	numeric := summary.NumericColumns
	dates := summary.DateColumns
	categories := summary.CategoricalColumns()

	if len(numeric) > 0 && len(categories) > 0 {
		out = append(out, fmt.Sprintf("Show total %s by %s", numeric[0], categories[0]))
	}
	if len(numeric) > 0 && len(dates) > 0 {
		out = append(out, fmt.Sprintf("How has %s changed over %s?", numeric[0], dates[0]))
	}
	if len(numeric) > 1 {
		out = append(out, fmt.Sprintf("What correlates with %s?", numeric[0]))
	}
	if len(categories) > 1 {
		out = append(out, fmt.Sprintf("Compare %s across %s", categories[1], categories[0]))
	}
	if len(out) < maxSuggestions {
		out = append(out, "How many rows and columns does the dataset have?")
	}
	return out
}

func formatSuggestions(suggestions []string) string {
	var b strings.Builder
	for _, s := range suggestions {
		fmt.Fprintf(&b, "\n- %s", s)
	}
	return b.String()
}

var (
	greetingPattern = regexp.MustCompile(`(?i)\b(hi|hello|hey)\b`)
	thanksPattern   = regexp.MustCompile(`(?i)\bthank`)
	byePattern      = regexp.MustCompile(`(?i)\b(bye|goodbye)\b`)
)

// scriptedReply answers small talk without any model.
func scriptedReply(question string) string {
	switch {
	case greetingPattern.MatchString(question):
		return "Hello! I'm ready to help you explore your data. Ask me about totals, trends or comparisons."
	case thanksPattern.MatchString(question):
		return "You're welcome! Let me know if you want to dig deeper into the data."
	case byePattern.MatchString(question):
		return "Goodbye! Come back any time you want to explore your data."
	default:
		return "I'm here to help you analyse your dataset. Try asking about totals, trends or comparisons."
	}
}

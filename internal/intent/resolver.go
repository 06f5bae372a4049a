package intent

import (
	"context"
	"fmt"
	"strings"

	"github.com/rs/zerolog/log"

	"datatalk-backend/internal/llm"
	"datatalk-backend/internal/model"
)

type ReferenceResolver interface {
	ResolveContextReferences(ctx context.Context, question string, history []model.ChatMessage) (string, error)
}

var deicticWords = map[string]bool{
	"it": true, "its": true, "that": true, "this": true, "those": true, "these": true,
	"them": true, "they": true, "same": true, "previous": true, "above": true,
	"instead": true, "again": true, "there": true,
}

// HasReference reports whether question contains a pronoun or deictic word
// that probably points at an earlier turn.
func HasReference(question string) bool {
	for _, w := range strings.FieldsFunc(strings.ToLower(question), func(r rune) bool {
		return !(r >= 'a' && r <= 'z' || r == '\'')
	}) {
		if deicticWords[strings.TrimSuffix(w, "'s")] {
			return true
		}
	}
	return false
}

type llmReferenceResolver struct {
	llm llm.Client
}

func NewLLMReferenceResolver(client llm.Client) ReferenceResolver {
	return &llmReferenceResolver{llm: client}
}

// ResolveContextReferences rewrites question into a standalone question. On any
// failure the original question is returned together with the error.
func (r *llmReferenceResolver) ResolveContextReferences(ctx context.Context, question string, history []model.ChatMessage) (string, error) {
	if len(history) == 0 || !HasReference(question) {
		return question, nil
	}

	var b strings.Builder
	start := len(history) - historyTurnsForPrompt
	if start < 0 {
		start = 0
	}
	for _, turn := range history[start:] {
		fmt.Fprintf(&b, "%s: %s\n", turn.Role, turn.Content)
	}
	fmt.Fprintf(&b, "\nFollow-up question: %q\nStandalone question:", question)

	rewritten, err := r.llm.Generate(ctx, llm.Request{
		System: "Rewrite the follow-up question so it can be understood without the conversation. " +
			"Replace pronouns and references with what they refer to. Reply with the rewritten question only.",
		Prompt: b.String(),
	})
	if err != nil {
		return question, fmt.Errorf("resolve references: %w", err)
	}
	rewritten = strings.Trim(strings.TrimSpace(rewritten), `"`)
	if rewritten == "" {
		return question, fmt.Errorf("resolve references: %w", llm.ErrEmptyResponse)
	}
	log.Debug().Str("original", question).Str("rewritten", rewritten).Msg("Resolved context references")
	return rewritten, nil
}

package model

import "time"

type IntentType string

const (
	IntentConversational IntentType = "conversational"
	IntentAnalytical     IntentType = "analytical"
	IntentComparison     IntentType = "comparison"
	IntentTrend          IntentType = "trend"
	IntentCorrelation    IntentType = "correlation"
	IntentDataOps        IntentType = "data_ops"
	IntentCustom         IntentType = "custom"
	IntentGeneral        IntentType = "general"
)

var knownIntents = map[IntentType]bool{
	IntentConversational: true,
	IntentAnalytical:     true,
	IntentComparison:     true,
	IntentTrend:          true,
	IntentCorrelation:    true,
	IntentDataOps:        true,
	IntentCustom:         true,
	IntentGeneral:        true,
}

func (t IntentType) Known() bool { return knownIntents[t] }

// AnalysisIntent is the classified intent of a user message. Confidence is
// advisory; RequiresClarification is honoured regardless of it.
type AnalysisIntent struct {
	Type                  IntentType `json:"type"`
	Confidence            float64    `json:"confidence"`
	RequiresClarification bool       `json:"requiresClarification,omitempty"`
	CustomRequest         string     `json:"customRequest,omitempty"`
	OriginalQuestion      string     `json:"originalQuestion,omitempty"`
}

const (
	RoleUser      = "user"
	RoleAssistant = "assistant"
)

type ChatMessage struct {
	Role      string    `json:"role"`
	Content   string    `json:"content"`
	CreatedAt time.Time `json:"createdAt"`
}

// RetrievedContext is what the context retriever found relevant to a question.
type RetrievedContext struct {
	RelevantRows     []Row    `json:"relevantRows,omitempty"`
	MentionedColumns []string `json:"mentionedColumns,omitempty"`
	PastQueries      []string `json:"pastQueries,omitempty"`
}

// Insight is a short observation attached to an answer.
type Insight struct {
	ID   int    `json:"id"`
	Text string `json:"text"`
}

package intent

import (
	"context"
	"sort"
	"strings"
	"unicode"

	"github.com/rs/zerolog/log"

	"datatalk-backend/config"
	"datatalk-backend/internal/column"
	"datatalk-backend/internal/model"
)

type Retriever interface {
	RetrieveContext(ctx context.Context, question string, table model.Table, summary model.DataSummary, history []model.ChatMessage, sessionID string) (model.RetrievedContext, error)
}

// QuerySearcher finds earlier questions of a session that resemble text.
type QuerySearcher interface {
	SearchQueries(ctx context.Context, sessionID, text string, limit int) ([]string, error)
}

var stopwords = map[string]bool{
	"the": true, "and": true, "for": true, "what": true, "which": true, "who": true, "how": true,
	"are": true, "was": true, "were": true, "with": true, "from": true, "that": true, "this": true,
	"show": true, "give": true, "tell": true, "about": true, "does": true, "did": true, "have": true,
	"many": true, "much": true, "all": true, "each": true, "per": true, "by": true, "me": true,
}

// Keywords lower-cases text and returns its distinct words of three or more
// letters that are not stopwords, in order of appearance.
func Keywords(text string) []string {
	seen := make(map[string]bool)
	out := make([]string, 0)
	for _, w := range strings.FieldsFunc(strings.ToLower(text), func(r rune) bool {
		return !unicode.IsLetter(r) && !unicode.IsDigit(r)
	}) {
		if len(w) < 3 || stopwords[w] || seen[w] {
			continue
		}
		seen[w] = true
		out = append(out, w)
	}
	return out
}

type contextRetriever struct {
	searcher    QuerySearcher
	chunkSize   int
	topChunks   int
	pastQueries int
}

// NewContextRetriever ranks row chunks by keyword overlap with the question.
// searcher may be nil, in which case past queries come from the chat history.
func NewContextRetriever(cfg *config.Config, searcher QuerySearcher) Retriever {
	r := &contextRetriever{
		searcher:    searcher,
		chunkSize:   cfg.Retrieval.ChunkSize,
		topChunks:   cfg.Retrieval.TopChunks,
		pastQueries: cfg.Retrieval.PastQueries,
	}
	if r.chunkSize <= 0 {
		r.chunkSize = 20
	}
	if r.topChunks <= 0 {
		r.topChunks = 3
	}
	if r.pastQueries <= 0 {
		r.pastQueries = 5
	}
	return r
}

func (r *contextRetriever) RetrieveContext(ctx context.Context, question string, table model.Table, summary model.DataSummary, history []model.ChatMessage, sessionID string) (model.RetrievedContext, error) {
	if err := ctx.Err(); err != nil {
		return model.RetrievedContext{}, err
	}
	keywords := Keywords(question)

	result := model.RetrievedContext{
		RelevantRows:     r.relevantRows(table, keywords),
		MentionedColumns: column.Mentioned(question, table.ColumnNames()),
		PastQueries:      r.pastQueriesFor(ctx, question, history, sessionID),
	}
	log.Debug().
		Str("session_id", sessionID).
		Int("relevant_rows", len(result.RelevantRows)).
		Strs("mentioned_columns", result.MentionedColumns).
		Int("past_queries", len(result.PastQueries)).
		Msg("Context retrieved")
	return result, ctx.Err()
}

type scoredChunk struct {
	index int
	score int
	rows  []model.Row
}

func (r *contextRetriever) relevantRows(table model.Table, keywords []string) []model.Row {
	if len(keywords) == 0 || len(table.Rows) == 0 {
		return nil
	}
	columns := table.ColumnNames()

	chunks := make([]scoredChunk, 0, len(table.Rows)/r.chunkSize+1)
	for start, idx := 0, 0; start < len(table.Rows); start, idx = start+r.chunkSize, idx+1 {
		end := start + r.chunkSize
		if end > len(table.Rows) {
			end = len(table.Rows)
		}
		chunk := scoredChunk{index: idx, rows: table.Rows[start:end]}
		for _, row := range chunk.rows {
			chunk.score += rowScore(row, columns, keywords)
		}
		if chunk.score > 0 {
			chunks = append(chunks, chunk)
		}
	}
	sort.SliceStable(chunks, func(i, j int) bool { return chunks[i].score > chunks[j].score })
	if len(chunks) > r.topChunks {
		chunks = chunks[:r.topChunks]
	}
	// Keep dataset order inside the result.
	sort.SliceStable(chunks, func(i, j int) bool { return chunks[i].index < chunks[j].index })

	out := make([]model.Row, 0, len(chunks)*r.chunkSize)
	for _, c := range chunks {
		out = append(out, c.rows...)
	}
	return out
}

func rowScore(row model.Row, columns []string, keywords []string) int {
	score := 0
	for _, col := range columns {
		cell := strings.ToLower(row[col].String())
		if cell == "" {
			continue
		}
		for _, k := range keywords {
			if strings.Contains(cell, k) {
				score++
			}
		}
	}
	return score
}

func (r *contextRetriever) pastQueriesFor(ctx context.Context, question string, history []model.ChatMessage, sessionID string) []string {
	if r.searcher != nil && sessionID != "" {
		found, err := r.searcher.SearchQueries(ctx, sessionID, question, r.pastQueries)
		if err == nil {
			return found
		}
		log.Warn().Err(err).Str("session_id", sessionID).Msg("Query history search failed, using chat history")
	}

	out := make([]string, 0, r.pastQueries)
	seen := map[string]bool{strings.TrimSpace(question): true}
	for i := len(history) - 1; i >= 0 && len(out) < r.pastQueries; i-- {
		turn := history[i]
		content := strings.TrimSpace(turn.Content)
		if turn.Role != model.RoleUser || content == "" || seen[content] {
			continue
		}
		seen[content] = true
		out = append(out, content)
	}
	return out
}

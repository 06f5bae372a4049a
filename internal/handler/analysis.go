package handler

import (
	"context"
	"encoding/json"
	"fmt"
	"strings"

	"github.com/rs/zerolog/log"

	"datatalk-backend/internal/intent"
	"datatalk-backend/internal/llm"
	"datatalk-backend/internal/model"
)

const (
	maxPromptRows   = 20
	maxAnswerCharts = 4
)

type analysisReply struct {
	Answer   string       `json:"answer"`
	Charts   []chartReply `json:"charts"`
	Insights []string     `json:"insights"`
}

type chartReply struct {
	Type       string `json:"type"`
	Title      string `json:"title"`
	X          string `json:"x"`
	Y          string `json:"y"`
	Y2         string `json:"y2"`
	Y2Series   string `json:"y2Series"`
	Aggregate  string `json:"aggregate"`
	KeyInsight string `json:"keyInsight"`
}

const analysisInstructions = `You analyse an uploaded tabular dataset and answer the user's question.
Respond ONLY with a JSON object:
{"answer": string,
 "charts": [{"type": "line"|"bar"|"scatter"|"pie"|"area", "title": string, "x": column, "y": column,
             "y2": optional column, "aggregate": "sum"|"mean"|"count"|"none", "keyInsight": string}],
 "insights": [string]}
Use only column names from the dataset. Leave "charts" empty when a chart would not help.`

// analyse runs one structured generation. When freeform is set, a reply that
// is not JSON is accepted as the plain answer.
func analyse(ctx context.Context, client llm.Client, hctx *Context, guidance string, freeform bool) (*Response, error) {
	raw, err := client.Generate(ctx, llm.Request{
		System:  analysisInstructions,
		History: hctx.History,
		Prompt:  buildAnalysisPrompt(hctx, guidance),
		JSON:    !freeform,
	})
	if err != nil {
		return nil, fmt.Errorf("analysis generation: %w", err)
	}

	var reply analysisReply
	if err := llm.DecodeJSON(raw, &reply); err != nil {
		if !freeform {
			return nil, err
		}
		log.Debug().Msg("Free-form reply is not JSON, using it as the answer")
		return &Response{Answer: strings.TrimSpace(raw)}, nil
	}

	return &Response{
		Answer:   strings.TrimSpace(reply.Answer),
		Charts:   toCharts(reply.Charts),
		Insights: toInsights(reply.Insights),
	}, nil
}

func toCharts(replies []chartReply) []*model.ChartSpec {
	charts := make([]*model.ChartSpec, 0, len(replies))
	for _, c := range replies {
		chartType := model.ChartType(strings.ToLower(c.Type))
		if !chartType.Valid() || c.X == "" || c.Y == "" {
			log.Warn().Str("type", c.Type).Str("x", c.X).Str("y", c.Y).Msg("Ignoring malformed chart from model")
			continue
		}
		charts = append(charts, &model.ChartSpec{
			Type:       chartType,
			Title:      c.Title,
			X:          c.X,
			Y:          c.Y,
			Y2:         c.Y2,
			Y2Series:   c.Y2Series,
			Aggregate:  model.AggregateFunc(strings.ToLower(c.Aggregate)),
			KeyInsight: c.KeyInsight,
		})
		if len(charts) == maxAnswerCharts {
			break
		}
	}
	return charts
}

func buildAnalysisPrompt(hctx *Context, guidance string) string {
	var b strings.Builder
	b.WriteString("Dataset:\n")
	b.WriteString(intent.DescribeSummary(hctx.Summary))

	rows := hctx.Retrieved.RelevantRows
	label := "Rows relevant to the question"
	if len(rows) == 0 {
		rows = hctx.Table.Rows
		label = "First rows"
	}
	if len(rows) > maxPromptRows {
		rows = rows[:maxPromptRows]
	}
	if len(rows) > 0 {
		if sample, err := json.Marshal(rows); err == nil {
			fmt.Fprintf(&b, "\n%s:\n%s\n", label, sample)
		}
	}
	if cols := hctx.Retrieved.MentionedColumns; len(cols) > 0 {
		fmt.Fprintf(&b, "\nColumns mentioned: %s\n", strings.Join(cols, ", "))
	}
	if past := hctx.Retrieved.PastQueries; len(past) > 0 {
		fmt.Fprintf(&b, "\nEarlier questions in this session: %s\n", strings.Join(past, " | "))
	}
	if guidance != "" {
		fmt.Fprintf(&b, "\n%s\n", guidance)
	}
	fmt.Fprintf(&b, "\nQuestion: %s\n", hctx.Question)
	return b.String()
}

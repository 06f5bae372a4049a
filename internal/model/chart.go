package model

type ChartType string

const (
	ChartLine    ChartType = "line"
	ChartBar     ChartType = "bar"
	ChartScatter ChartType = "scatter"
	ChartPie     ChartType = "pie"
	ChartArea    ChartType = "area"
)

func (t ChartType) Valid() bool {
	switch t {
	case ChartLine, ChartBar, ChartScatter, ChartPie, ChartArea:
		return true
	}
	return false
}

type AggregateFunc string

const (
	AggregateSum   AggregateFunc = "sum"
	AggregateMean  AggregateFunc = "mean"
	AggregateCount AggregateFunc = "count"
	AggregateNone  AggregateFunc = "none"
)

// ChartSpec is a declarative chart. X, Y and Y2 hold the resolved column names
// once the spec has been processed, so processing the same spec twice is stable.
type ChartSpec struct {
	Type       ChartType     `json:"type"`
	Title      string        `json:"title,omitempty"`
	X          string        `json:"x"`
	Y          string        `json:"y"`
	Y2         string        `json:"y2,omitempty"`
	Y2Series   string        `json:"y2Series,omitempty"`
	Aggregate  AggregateFunc `json:"aggregate,omitempty"`
	Data       []Row         `json:"data,omitempty"`
	KeyInsight string        `json:"keyInsight,omitempty"`
}

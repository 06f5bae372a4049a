package model

type FilterKind string

const (
	FilterCategorical FilterKind = "categorical"
	FilterDate        FilterKind = "date"
	FilterNumeric     FilterKind = "numeric"
)

type FilterOption struct {
	Value string `json:"value"`
	Count int    `json:"count"`
}

// DateRange bounds are inclusive and formatted as 2006-01-02.
type DateRange struct {
	Min string `json:"min"`
	Max string `json:"max"`
}

type NumericRange struct {
	Min float64 `json:"min"`
	Max float64 `json:"max"`
}

// FilterDefinition describes how one column can be filtered. Exactly one of
// Options, DateRange or NumericRange is set, matching Type.
type FilterDefinition struct {
	Key          string         `json:"key"`
	Label        string         `json:"label"`
	Type         FilterKind     `json:"type"`
	Options      []FilterOption `json:"options,omitempty"`
	DateRange    *DateRange     `json:"dateRange,omitempty"`
	NumericRange *NumericRange  `json:"numericRange,omitempty"`
}

// FilterSelection is the client's active choice for one column.
type FilterSelection struct {
	Type   FilterKind `json:"type" yaml:"type"`
	Values []string   `json:"values,omitempty" yaml:"values,omitempty"`
	Start  string     `json:"start,omitempty" yaml:"start,omitempty"`
	End    string     `json:"end,omitempty" yaml:"end,omitempty"`
	Min    *float64   `json:"min,omitempty" yaml:"min,omitempty"`
	Max    *float64   `json:"max,omitempty" yaml:"max,omitempty"`
}

// ActiveFilterSelection maps column key to selection. A missing key means no constraint.
type ActiveFilterSelection map[string]FilterSelection

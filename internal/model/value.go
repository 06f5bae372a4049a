package model

import (
	"encoding/json"
	"math"
	"strconv"
	"strings"
	"time"
)

type ValueKind int

const (
	KindNull ValueKind = iota
	KindString
	KindNumber
	KindDate
)

func (k ValueKind) String() string {
	switch k {
	case KindString:
		return "string"
	case KindNumber:
		return "number"
	case KindDate:
		return "date"
	default:
		return "null"
	}
}

// Value is a single dataset cell. Rows are schema-on-read, so the same column
// may hold different kinds from row to row.
type Value struct {
	kind ValueKind
	str  string
	num  float64
	date time.Time
}

func Null() Value { return Value{} }

func String(s string) Value { return Value{kind: KindString, str: s} }

func Number(f float64) Value { return Value{kind: KindNumber, num: f} }

func Date(t time.Time) Value { return Value{kind: KindDate, date: t} }

func (v Value) Kind() ValueKind { return v.kind }

func (v Value) IsNull() bool { return v.kind == KindNull }

// IsEmpty reports null values and blank strings.
func (v Value) IsEmpty() bool {
	switch v.kind {
	case KindNull:
		return true
	case KindString:
		return strings.TrimSpace(v.str) == ""
	case KindNumber:
		return math.IsNaN(v.num)
	}
	return false
}

// Raw returns the underlying string for string values.
func (v Value) Raw() (string, bool) {
	return v.str, v.kind == KindString
}

// Float returns the underlying number for number values. No coercion happens here.
func (v Value) Float() (float64, bool) {
	return v.num, v.kind == KindNumber
}

// Time returns the underlying time for date values.
func (v Value) Time() (time.Time, bool) {
	return v.date, v.kind == KindDate
}

// String is the stringified form used for grouping keys and lexicographic ordering.
func (v Value) String() string {
	switch v.kind {
	case KindString:
		return v.str
	case KindNumber:
		return strconv.FormatFloat(v.num, 'f', -1, 64)
	case KindDate:
		return v.date.Format(time.RFC3339)
	default:
		return ""
	}
}

func (v Value) MarshalJSON() ([]byte, error) {
	switch v.kind {
	case KindString:
		return json.Marshal(v.str)
	case KindNumber:
		if math.IsNaN(v.num) || math.IsInf(v.num, 0) {
			return []byte("null"), nil
		}
		return json.Marshal(v.num)
	case KindDate:
		return json.Marshal(v.date.Format(time.RFC3339))
	default:
		return []byte("null"), nil
	}
}

func (v *Value) UnmarshalJSON(data []byte) error {
	var raw interface{}
	dec := json.NewDecoder(strings.NewReader(string(data)))
	dec.UseNumber()
	if err := dec.Decode(&raw); err != nil {
		return err
	}
	*v = FromInterface(raw)
	return nil
}

// FromInterface converts a decoded JSON scalar into a Value. Nested objects and
// arrays are kept as their JSON text.
func FromInterface(raw interface{}) Value {
	switch t := raw.(type) {
	case nil:
		return Null()
	case string:
		return String(t)
	case json.Number:
		f, err := t.Float64()
		if err != nil {
			return String(t.String())
		}
		return Number(f)
	case float64:
		return Number(t)
	case float32:
		return Number(float64(t))
	case int:
		return Number(float64(t))
	case int64:
		return Number(float64(t))
	case bool:
		return String(strconv.FormatBool(t))
	case time.Time:
		return Date(t)
	case Value:
		return t
	default:
		b, err := json.Marshal(t)
		if err != nil {
			return Null()
		}
		return String(string(b))
	}
}

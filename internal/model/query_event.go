package model

import "time"

// QueryEvent records one answered question. It travels over Kafka and is
// indexed into the query history.
type QueryEvent struct {
	ID            string    `json:"id"`
	SessionID     string    `json:"session_id"`
	Question      string    `json:"question"`
	ChartCount    int       `json:"chart_count"`
	Clarification bool      `json:"clarification"`
	Timestamp     time.Time `json:"@timestamp"`
}

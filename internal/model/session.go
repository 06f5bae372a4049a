package model

import "time"

// Session binds an uploaded dataset to its chat history.
type Session struct {
	ID        string        `json:"id"`
	Name      string        `json:"name"`
	Table     Table         `json:"table"`
	Summary   DataSummary   `json:"summary"`
	History   []ChatMessage `json:"history"`
	CreatedAt time.Time     `json:"createdAt"`
	UpdatedAt time.Time     `json:"updatedAt"`
}

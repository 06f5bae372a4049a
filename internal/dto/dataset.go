package dto

import "datatalk-backend/internal/model"

type CreateDatasetRequest struct {
	Name    string                   `json:"name"`
	Columns []string                 `json:"columns,omitempty"`
	Rows    []map[string]interface{} `json:"rows" binding:"required"`
}

type DatasetResponse struct {
	SessionID string                   `json:"sessionId"`
	Name      string                   `json:"name"`
	Summary   model.DataSummary        `json:"summary"`
	Filters   []model.FilterDefinition `json:"filters,omitempty"`
}

type ChartRequest struct {
	Chart   model.ChartSpec             `json:"chart" binding:"required"`
	Filters model.ActiveFilterSelection `json:"filters,omitempty"`
}

type RowsRequest struct {
	Filters model.ActiveFilterSelection `json:"filters,omitempty"`
	Limit   int                         `json:"limit,omitempty"`
}

type RowsResponse struct {
	Total int         `json:"total"`
	Rows  []model.Row `json:"rows"`
}

package dto

import "datatalk-backend/internal/model"

type CreateDashboardRequest struct {
	Name      string `json:"name" binding:"required"`
	SessionID string `json:"sessionId,omitempty"`
}

type AddChartRequest struct {
	Chart model.ChartSpec `json:"chart" binding:"required"`
}

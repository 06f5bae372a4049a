package repository

import (
	"context"
	"errors"

	"datatalk-backend/internal/model"
)

var ErrDashboardNotFound = errors.New("dashboard not found")

type DashboardRepository interface {
	CreateDashboard(ctx context.Context, dashboard *model.Dashboard) error
	AddChart(ctx context.Context, dashboardID string, spec model.ChartSpec) (*model.DashboardChart, error)
	GetDashboard(ctx context.Context, dashboardID string) (*model.Dashboard, error)
}

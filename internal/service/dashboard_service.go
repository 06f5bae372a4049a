package service

import (
	"context"
	"strings"

	"github.com/google/uuid"
	"github.com/rs/zerolog/log"

	"datatalk-backend/internal/dto"
	"datatalk-backend/internal/model"
	"datatalk-backend/internal/repository"
)

type DashboardService interface {
	CreateDashboard(ctx context.Context, req dto.CreateDashboardRequest) (*model.Dashboard, error)
	AddChart(ctx context.Context, dashboardID string, req dto.AddChartRequest) (*model.DashboardChart, error)
	GetDashboard(ctx context.Context, dashboardID string) (*model.Dashboard, error)
}

type dashboardService struct {
	repo repository.DashboardRepository
}

// NewDashboardService accepts a nil repository; every call then fails with
// ErrDashboardsDisabled.
func NewDashboardService(repo repository.DashboardRepository) DashboardService {
	return &dashboardService{repo: repo}
}

func (s *dashboardService) CreateDashboard(ctx context.Context, req dto.CreateDashboardRequest) (*model.Dashboard, error) {
	if s.repo == nil {
		return nil, ErrDashboardsDisabled
	}
	dashboard := &model.Dashboard{
		ID:        uuid.NewString(),
		Name:      strings.TrimSpace(req.Name),
		SessionID: req.SessionID,
		Charts:    []model.DashboardChart{},
	}
	if err := s.repo.CreateDashboard(ctx, dashboard); err != nil {
		return nil, err
	}
	log.Info().Str("dashboard_id", dashboard.ID).Msg("Dashboard created")
	return dashboard, nil
}

// AddChart stores a chart as the caller last saw it, data included.
func (s *dashboardService) AddChart(ctx context.Context, dashboardID string, req dto.AddChartRequest) (*model.DashboardChart, error) {
	if s.repo == nil {
		return nil, ErrDashboardsDisabled
	}
	return s.repo.AddChart(ctx, dashboardID, req.Chart)
}

func (s *dashboardService) GetDashboard(ctx context.Context, dashboardID string) (*model.Dashboard, error) {
	if s.repo == nil {
		return nil, ErrDashboardsDisabled
	}
	return s.repo.GetDashboard(ctx, dashboardID)
}

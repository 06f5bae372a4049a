// Package dashboard stores saved dashboards in MySQL through gorm.
package dashboard

import (
	"context"
	"errors"
	"fmt"

	"github.com/rs/zerolog/log"
	"go.uber.org/fx"
	"gorm.io/driver/mysql"
	"gorm.io/gorm"
	"gorm.io/gorm/logger"

	"datatalk-backend/config"
	"datatalk-backend/internal/model"
	"datatalk-backend/internal/repository"
)

type gormDashboardRepository struct {
	db *gorm.DB
}

// NewDashboardRepository opens MySQL and migrates the dashboard tables. It
// returns a nil repository when no DSN is configured.
func NewDashboardRepository(lc fx.Lifecycle, cfg *config.Config) (repository.DashboardRepository, error) {
	if cfg.Dashboard.DSN == "" {
		log.Info().Msg("Dashboard DSN not configured, dashboards disabled")
		return nil, nil
	}
	db, err := gorm.Open(mysql.Open(cfg.Dashboard.DSN), &gorm.Config{
		Logger: logger.Default.LogMode(logger.Silent),
	})
	if err != nil {
		log.Error().Err(err).Msg("Failed to connect to dashboard database")
		return nil, fmt.Errorf("open dashboard database: %w", err)
	}
	if err := db.AutoMigrate(&model.Dashboard{}, &model.DashboardChart{}); err != nil {
		return nil, fmt.Errorf("migrate dashboard tables: %w", err)
	}
	sqlDB, err := db.DB()
	if err != nil {
		return nil, err
	}
	lc.Append(fx.Hook{
		OnStop: func(ctx context.Context) error {
			log.Info().Msg("Closing dashboard database...")
			return sqlDB.Close()
		},
	})
	log.Info().Msg("Dashboard database ready")
	return newGormDashboardRepository(db), nil
}

func newGormDashboardRepository(db *gorm.DB) *gormDashboardRepository {
	return &gormDashboardRepository{db: db}
}

func (r *gormDashboardRepository) CreateDashboard(ctx context.Context, dashboard *model.Dashboard) error {
	if err := r.db.WithContext(ctx).Create(dashboard).Error; err != nil {
		log.Error().Err(err).Str("dashboard_id", dashboard.ID).Msg("Failed to create dashboard")
		return fmt.Errorf("create dashboard: %w", err)
	}
	return nil
}

// AddChart appends spec after the dashboard's current last chart.
func (r *gormDashboardRepository) AddChart(ctx context.Context, dashboardID string, spec model.ChartSpec) (*model.DashboardChart, error) {
	chart := &model.DashboardChart{DashboardID: dashboardID, Spec: spec}
	err := r.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		var dashboard model.Dashboard
		if err := tx.Select("id").First(&dashboard, "id = ?", dashboardID).Error; err != nil {
			return err
		}
		var count int64
		if err := tx.Model(&model.DashboardChart{}).Where("dashboard_id = ?", dashboardID).Count(&count).Error; err != nil {
			return err
		}
		chart.Position = int(count)
		if err := tx.Create(chart).Error; err != nil {
			return err
		}
		return tx.Model(&dashboard).Update("updated_at", chart.CreatedAt).Error
	})
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, repository.ErrDashboardNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("add dashboard chart: %w", err)
	}
	return chart, nil
}

func (r *gormDashboardRepository) GetDashboard(ctx context.Context, dashboardID string) (*model.Dashboard, error) {
	var dashboard model.Dashboard
	err := r.db.WithContext(ctx).
		Preload("Charts", func(db *gorm.DB) *gorm.DB { return db.Order("position") }).
		First(&dashboard, "id = ?", dashboardID).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, repository.ErrDashboardNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("get dashboard: %w", err)
	}
	return &dashboard, nil
}

package dashboard

import (
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/fx/fxtest"
	"gorm.io/driver/mysql"
	"gorm.io/gorm"

	"datatalk-backend/config"
	"datatalk-backend/internal/model"
)

func dryRunDB(t *testing.T) *gorm.DB {
	t.Helper()
	db, err := gorm.Open(mysql.New(mysql.Config{
		DSN:                       "user:pass@tcp(127.0.0.1:3306)/dashboards?parseTime=true",
		SkipInitializeWithVersion: true,
	}), &gorm.Config{DryRun: true, DisableAutomaticPing: true})
	require.NoError(t, err)
	return db
}

func TestCreateDashboardStatement(t *testing.T) {
	db := dryRunDB(t)
	stmt := db.Create(&model.Dashboard{ID: "d1", Name: "Sales"}).Statement

	sql := stmt.SQL.String()
	assert.Contains(t, sql, "INSERT INTO `dashboards`")
	assert.Contains(t, stmt.Vars, "Sales")
}

func TestChartSpecIsSerializedAsJSON(t *testing.T) {
	db := dryRunDB(t)
	stmt := db.Create(&model.DashboardChart{DashboardID: "d1", Spec: model.ChartSpec{Type: model.ChartBar, X: "region", Y: "units"}}).Statement

	assert.Contains(t, stmt.SQL.String(), "INSERT INTO `dashboard_charts`")
	found := false
	for _, v := range stmt.Vars {
		if s, ok := v.(string); ok && strings.HasPrefix(s, "{") {
			assert.Contains(t, s, `"x":"region"`)
			found = true
		}
	}
	assert.True(t, found, "chart spec should be bound as a JSON string")
}

func TestNewDashboardRepository_DisabledWithoutDSN(t *testing.T) {
	repo, err := NewDashboardRepository(fxtest.NewLifecycle(t), &config.Config{})
	require.NoError(t, err)
	assert.Nil(t, repo)
}

package controller

import (
	"net/http"

	"github.com/gin-gonic/gin"

	"datatalk-backend/internal/dto"
	"datatalk-backend/internal/model"
	"datatalk-backend/internal/service"
)

type DashboardController struct {
	dashboardService service.DashboardService
}

func NewDashboardController(dashboardService service.DashboardService) *DashboardController {
	return &DashboardController{
		dashboardService: dashboardService,
	}
}

func RegisterDashboardRoutes(router *gin.Engine, controller *DashboardController) {
	v1 := router.Group("/api/v1/dashboards")
	{
		v1.POST("", controller.CreateDashboard)
		v1.GET("/:id", controller.GetDashboard)
		v1.POST("/:id/charts", controller.AddChart)
	}
}

// CreateDashboard godoc
// @Summary      Create a dashboard
// @Tags         dashboards
// @Accept       json
// @Produce      json
// @Param        request body dto.CreateDashboardRequest true "Dashboard name and optional source session"
// @Success      201 {object} model.Dashboard
// @Failure      400 {object} model.Response "Invalid request body"
// @Failure      503 {object} model.Response "Dashboards are not configured"
// @Router       /api/v1/dashboards [post]
func (c *DashboardController) CreateDashboard(ctx *gin.Context) {
	var req dto.CreateDashboardRequest
	if err := ctx.ShouldBindJSON(&req); err != nil {
		ctx.JSON(http.StatusBadRequest, model.NewResponse("Invalid request body: "+err.Error(), nil))
		return
	}
	dashboard, err := c.dashboardService.CreateDashboard(ctx.Request.Context(), req)
	if err != nil {
		respondError(ctx, err, "create dashboard")
		return
	}
	ctx.JSON(http.StatusCreated, dashboard)
}

// GetDashboard godoc
// @Summary      Get a dashboard with its charts
// @Tags         dashboards
// @Produce      json
// @Param        id path string true "Dashboard ID"
// @Success      200 {object} model.Dashboard
// @Failure      404 {object} model.Response "Dashboard not found"
// @Failure      503 {object} model.Response "Dashboards are not configured"
// @Router       /api/v1/dashboards/{id} [get]
func (c *DashboardController) GetDashboard(ctx *gin.Context) {
	dashboard, err := c.dashboardService.GetDashboard(ctx.Request.Context(), ctx.Param("id"))
	if err != nil {
		respondError(ctx, err, "get dashboard")
		return
	}
	ctx.JSON(http.StatusOK, dashboard)
}

// AddChart godoc
// @Summary      Pin a chart to a dashboard
// @Tags         dashboards
// @Accept       json
// @Produce      json
// @Param        id      path  string               true  "Dashboard ID"
// @Param        request body  dto.AddChartRequest  true  "Chart to pin"
// @Success      201 {object} model.DashboardChart
// @Failure      400 {object} model.Response "Invalid request body"
// @Failure      404 {object} model.Response "Dashboard not found"
// @Router       /api/v1/dashboards/{id}/charts [post]
func (c *DashboardController) AddChart(ctx *gin.Context) {
	var req dto.AddChartRequest
	if err := ctx.ShouldBindJSON(&req); err != nil {
		ctx.JSON(http.StatusBadRequest, model.NewResponse("Invalid request body: "+err.Error(), nil))
		return
	}
	chart, err := c.dashboardService.AddChart(ctx.Request.Context(), ctx.Param("id"), req)
	if err != nil {
		respondError(ctx, err, "add dashboard chart")
		return
	}
	ctx.JSON(http.StatusCreated, chart)
}

package controller

import (
	"net/http"
	"strings"

	"github.com/gin-gonic/gin"
	"github.com/rs/zerolog/log"

	"datatalk-backend/internal/dto"
	"datatalk-backend/internal/filter"
	"datatalk-backend/internal/model"
	"datatalk-backend/internal/service"
)

type DatasetController struct {
	datasetService service.DatasetService
}

func NewDatasetController(datasetService service.DatasetService) *DatasetController {
	return &DatasetController{
		datasetService: datasetService,
	}
}

func RegisterDatasetRoutes(router *gin.Engine, controller *DatasetController) {
	v1 := router.Group("/api/v1/datasets")
	{
		v1.POST("", controller.CreateDataset)
		v1.GET("/:id", controller.GetDataset)
		v1.GET("/:id/filters", controller.GetFilters)
		v1.POST("/:id/charts", controller.RenderChart)
		v1.POST("/:id/rows", controller.FilterRows)
	}
}

// CreateDataset godoc
// @Summary      Upload a dataset
// @Description  Stores the rows as a new session and returns the inferred column summary and the filter definitions derived from the data.
// @Tags         datasets
// @Accept       json
// @Produce      json
// @Param        request body dto.CreateDatasetRequest true "Rows as JSON objects, optional column order and name"
// @Success      201 {object} dto.DatasetResponse
// @Failure      400 {object} model.Response "Invalid or empty dataset"
// @Failure      500 {object} model.Response "Internal server error"
// @Router       /api/v1/datasets [post]
func (c *DatasetController) CreateDataset(ctx *gin.Context) {
	var req dto.CreateDatasetRequest
	if err := ctx.ShouldBindJSON(&req); err != nil {
		log.Warn().Err(err).Msg("Invalid dataset request body")
		ctx.JSON(http.StatusBadRequest, model.NewResponse("Invalid request body: "+err.Error(), nil))
		return
	}
	resp, err := c.datasetService.CreateDataset(ctx.Request.Context(), req)
	if err != nil {
		respondError(ctx, err, "create dataset")
		return
	}
	ctx.JSON(http.StatusCreated, resp)
}

// GetDataset godoc
// @Summary      Get a dataset summary
// @Tags         datasets
// @Produce      json
// @Param        id path string true "Session ID"
// @Success      200 {object} dto.DatasetResponse
// @Failure      404 {object} model.Response "Session not found"
// @Router       /api/v1/datasets/{id} [get]
func (c *DatasetController) GetDataset(ctx *gin.Context) {
	resp, err := c.datasetService.GetDataset(ctx.Request.Context(), ctx.Param("id"))
	if err != nil {
		respondError(ctx, err, "get dataset")
		return
	}
	ctx.JSON(http.StatusOK, resp)
}

// GetFilters godoc
// @Summary      Derive filter definitions
// @Description  Re-derives filters with optional per-column overrides. Each override is a comma-separated list of column names.
// @Tags         datasets
// @Produce      json
// @Param        id          path   string  true   "Session ID"
// @Param        categorical query  string  false  "Columns forced to categorical filters"
// @Param        numeric     query  string  false  "Columns forced to numeric filters"
// @Param        date        query  string  false  "Columns forced to date filters"
// @Param        exclude     query  string  false  "Columns to leave out"
// @Success      200 {array}  model.FilterDefinition
// @Failure      404 {object} model.Response "Session not found"
// @Router       /api/v1/datasets/{id}/filters [get]
func (c *DatasetController) GetFilters(ctx *gin.Context) {
	opts := filter.Options{
		Categorical: splitQuery(ctx.Query("categorical")),
		Numeric:     splitQuery(ctx.Query("numeric")),
		Date:        splitQuery(ctx.Query("date")),
		Exclude:     splitQuery(ctx.Query("exclude")),
	}
	defs, err := c.datasetService.DeriveFilters(ctx.Request.Context(), ctx.Param("id"), opts)
	if err != nil {
		respondError(ctx, err, "derive filters")
		return
	}
	ctx.JSON(http.StatusOK, defs)
}

// RenderChart godoc
// @Summary      Recompute a chart under active filters
// @Tags         datasets
// @Accept       json
// @Produce      json
// @Param        id      path  string            true  "Session ID"
// @Param        request body  dto.ChartRequest  true  "Chart spec and active filter selection"
// @Success      200 {object} model.ChartSpec "Chart with recomputed data, empty when it cannot be drawn"
// @Failure      400 {object} model.Response "Invalid request body"
// @Failure      404 {object} model.Response "Session not found"
// @Router       /api/v1/datasets/{id}/charts [post]
func (c *DatasetController) RenderChart(ctx *gin.Context) {
	var req dto.ChartRequest
	if err := ctx.ShouldBindJSON(&req); err != nil {
		ctx.JSON(http.StatusBadRequest, model.NewResponse("Invalid request body: "+err.Error(), nil))
		return
	}
	if !req.Chart.Type.Valid() {
		ctx.JSON(http.StatusBadRequest, model.NewResponse("Unsupported chart type: "+string(req.Chart.Type), nil))
		return
	}
	spec, err := c.datasetService.RenderChart(ctx.Request.Context(), ctx.Param("id"), req)
	if err != nil {
		respondError(ctx, err, "render chart")
		return
	}
	ctx.JSON(http.StatusOK, spec)
}

// FilterRows godoc
// @Summary      List rows matching the active filters
// @Tags         datasets
// @Accept       json
// @Produce      json
// @Param        id      path  string           true  "Session ID"
// @Param        request body  dto.RowsRequest  true  "Active filter selection and page size"
// @Success      200 {object} dto.RowsResponse
// @Failure      400 {object} model.Response "Invalid request body"
// @Failure      404 {object} model.Response "Session not found"
// @Router       /api/v1/datasets/{id}/rows [post]
func (c *DatasetController) FilterRows(ctx *gin.Context) {
	var req dto.RowsRequest
	if err := ctx.ShouldBindJSON(&req); err != nil {
		ctx.JSON(http.StatusBadRequest, model.NewResponse("Invalid request body: "+err.Error(), nil))
		return
	}
	resp, err := c.datasetService.FilterRows(ctx.Request.Context(), ctx.Param("id"), req)
	if err != nil {
		respondError(ctx, err, "filter rows")
		return
	}
	ctx.JSON(http.StatusOK, resp)
}

func splitQuery(raw string) []string {
	if raw == "" {
		return nil
	}
	parts := strings.Split(raw, ",")
	out := make([]string, 0, len(parts))
	for _, p := range parts {
		if p = strings.TrimSpace(p); p != "" {
			out = append(out, p)
		}
	}
	return out
}

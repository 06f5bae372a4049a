package controller

import (
	"context"
	"errors"
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/rs/zerolog/log"

	"datatalk-backend/internal/model"
	"datatalk-backend/internal/repository"
	"datatalk-backend/internal/service"
	"datatalk-backend/internal/store"
)

// respondError maps service errors to HTTP statuses.
func respondError(ctx *gin.Context, err error, action string) {
	switch {
	case errors.Is(err, store.ErrSessionNotFound):
		ctx.JSON(http.StatusNotFound, model.NewResponse("Session not found", nil))
	case errors.Is(err, repository.ErrDashboardNotFound):
		ctx.JSON(http.StatusNotFound, model.NewResponse("Dashboard not found", nil))
	case errors.Is(err, service.ErrInvalidDataset):
		ctx.JSON(http.StatusBadRequest, model.NewResponse(err.Error(), nil))
	case errors.Is(err, service.ErrDashboardsDisabled):
		ctx.JSON(http.StatusServiceUnavailable, model.NewResponse(err.Error(), nil))
	case errors.Is(err, context.Canceled), errors.Is(err, context.DeadlineExceeded):
		log.Warn().Err(err).Str("action", action).Msg("Request cancelled")
		ctx.JSON(http.StatusServiceUnavailable, model.NewResponse("Request cancelled", nil))
	default:
		log.Error().Err(err).Str("action", action).Msg("Internal error")
		ctx.JSON(http.StatusInternalServerError, model.NewResponse("Internal server error", nil))
	}
}

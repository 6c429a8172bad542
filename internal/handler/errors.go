package handler

import (
	"errors"
	"net/http"
	"time"

	"github.com/labstack/echo/v4"
	"go.uber.org/zap"

	"github.com/iliyamo/program-planner/internal/schedule"
	"github.com/iliyamo/program-planner/internal/service"
)

// respondError translates service and scheduling errors into JSON
// responses.  Unexpected errors are logged and hidden behind a 500.
func respondError(c echo.Context, log *zap.Logger, err error) error {
	var (
		validation *service.ValidationError
		rangeErr   *schedule.InvalidRangeError
		conflict   *schedule.ConflictError
	)
	switch {
	case errors.As(err, &validation):
		return c.JSON(http.StatusBadRequest, echo.Map{"error": validation.Error(), "field": validation.Field})
	case errors.As(err, &rangeErr):
		return c.JSON(http.StatusBadRequest, echo.Map{
			"error":      rangeErr.Error(),
			"start_time": rangeErr.Start.UTC().Format(time.RFC3339),
			"end_time":   rangeErr.End.UTC().Format(time.RFC3339),
		})
	case errors.As(err, &conflict):
		return c.JSON(http.StatusConflict, echo.Map{
			"error": conflict.Error(),
			"conflicting_item": echo.Map{
				"id":         conflict.Item.ID,
				"title":      conflict.Item.Title,
				"start_time": conflict.Item.StartTime.UTC().Format(time.RFC3339),
				"end_time":   conflict.Item.EndTime.UTC().Format(time.RFC3339),
			},
		})
	case errors.Is(err, service.ErrNotReady):
		return c.JSON(http.StatusBadRequest, echo.Map{"error": err.Error()})
	case errors.Is(err, service.ErrNotFound):
		return c.JSON(http.StatusNotFound, echo.Map{"error": "not found"})
	case errors.Is(err, service.ErrDuplicatePosition):
		return c.JSON(http.StatusConflict, echo.Map{"error": err.Error()})
	}
	if log != nil {
		log.Error("request failed",
			zap.String("method", c.Request().Method),
			zap.String("path", c.Request().URL.Path),
			zap.Error(err))
	}
	return c.JSON(http.StatusInternalServerError, echo.Map{"error": "internal error"})
}

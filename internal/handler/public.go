package handler

import (
	"net/http"

	"github.com/labstack/echo/v4"
	"go.uber.org/zap"

	"github.com/iliyamo/program-planner/internal/service"
)

// PublicHandler exposes the unauthenticated read path of shared programs.
type PublicHandler struct {
	Svc *service.ProgramService
	Log *zap.Logger
}

func NewPublicHandler(svc *service.ProgramService, log *zap.Logger) *PublicHandler {
	if log == nil {
		log = zap.NewNop()
	}
	return &PublicHandler{Svc: svc, Log: log}
}

// SharedProgram handles GET /v1/programs/shared/:token.
func (h *PublicHandler) SharedProgram(c echo.Context) error {
	view, err := h.Svc.GetSharedProgram(c.Request().Context(), c.Param("token"))
	if err != nil {
		return respondError(c, h.Log, err)
	}
	return c.JSON(http.StatusOK, toShared(view))
}

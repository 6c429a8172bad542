package handler

import (
	"net/http"

	"github.com/labstack/echo/v4"
	"go.uber.org/zap"

	"github.com/iliyamo/program-planner/internal/service"
)

// ProgramHandler serves the authenticated program endpoints.
type ProgramHandler struct {
	Svc *service.ProgramService
	Log *zap.Logger
}

func NewProgramHandler(svc *service.ProgramService, log *zap.Logger) *ProgramHandler {
	if svc == nil {
		panic("nil service passed to NewProgramHandler")
	}
	if log == nil {
		log = zap.NewNop()
	}
	return &ProgramHandler{Svc: svc, Log: log}
}

type programRequest struct {
	Title       *string     `json:"title"`
	Description *string     `json:"description"`
	Date        *string     `json:"date"`
	Capacity    nullableInt `json:"capacity"`
}

// draft converts a create or full replace body.  Title and date are
// required; a missing description is empty and a missing capacity is none.
func (r *programRequest) draft() (service.ProgramDraft, error) {
	var d service.ProgramDraft
	if r.Title == nil {
		return d, required("title")
	}
	if r.Date == nil {
		return d, required("date")
	}
	date, err := parseDate("date", *r.Date)
	if err != nil {
		return d, err
	}
	capacity, err := uint32Field("capacity", r.Capacity.Value)
	if err != nil {
		return d, err
	}
	d.Title = *r.Title
	d.Date = date
	d.Capacity = capacity
	if r.Description != nil {
		d.Description = *r.Description
	}
	return d, nil
}

// patch converts a partial update body.  An explicit null capacity clears it.
func (r *programRequest) patch() (service.ProgramPatch, error) {
	p := service.ProgramPatch{Title: r.Title, Description: r.Description}
	if r.Date != nil {
		date, err := parseDate("date", *r.Date)
		if err != nil {
			return p, err
		}
		p.Date = &date
	}
	if r.Capacity.Set {
		capacity, err := uint32Field("capacity", r.Capacity.Value)
		if err != nil {
			return p, err
		}
		p.Capacity = capacity
		p.ClearCapacity = capacity == nil
	}
	return p, nil
}

// List handles GET /v1/programs.
func (h *ProgramHandler) List(c echo.Context) error {
	views, err := h.Svc.ListPrograms(c.Request().Context(), actorFrom(c))
	if err != nil {
		return respondError(c, h.Log, err)
	}
	out := make([]programSummary, 0, len(views))
	for i := range views {
		out = append(out, toSummary(&views[i]))
	}
	return c.JSON(http.StatusOK, out)
}

// Dashboard handles GET /v1/dashboard.
func (h *ProgramHandler) Dashboard(c echo.Context) error {
	views, err := h.Svc.ListPrograms(c.Request().Context(), actorFrom(c))
	if err != nil {
		return respondError(c, h.Log, err)
	}
	out := make([]programSummary, 0, len(views))
	for i := range views {
		out = append(out, toSummary(&views[i]))
	}
	return c.JSON(http.StatusOK, echo.Map{"programs": out, "total_count": len(out)})
}

// Create handles POST /v1/programs.
func (h *ProgramHandler) Create(c echo.Context) error {
	var req programRequest
	if err := c.Bind(&req); err != nil {
		return badBody(c)
	}
	d, err := req.draft()
	if err != nil {
		return respondError(c, h.Log, err)
	}
	ctx := c.Request().Context()
	actor := actorFrom(c)
	p, err := h.Svc.CreateProgram(ctx, actor, d)
	if err != nil {
		return respondError(c, h.Log, err)
	}
	view, err := h.Svc.GetProgram(ctx, actor, p.ID)
	if err != nil {
		return respondError(c, h.Log, err)
	}
	return c.JSON(http.StatusCreated, toProgram(c, view))
}

// Get handles GET /v1/programs/:id.
func (h *ProgramHandler) Get(c echo.Context) error {
	id, err := pathID(c, "id")
	if err != nil {
		return respondError(c, h.Log, err)
	}
	view, err := h.Svc.GetProgram(c.Request().Context(), actorFrom(c), id)
	if err != nil {
		return respondError(c, h.Log, err)
	}
	return c.JSON(http.StatusOK, toProgram(c, view))
}

// Replace handles PUT /v1/programs/:id.
func (h *ProgramHandler) Replace(c echo.Context) error {
	return h.update(c, true)
}

// Patch handles PATCH /v1/programs/:id.
func (h *ProgramHandler) Patch(c echo.Context) error {
	return h.update(c, false)
}

func (h *ProgramHandler) update(c echo.Context, replace bool) error {
	id, err := pathID(c, "id")
	if err != nil {
		return respondError(c, h.Log, err)
	}
	var req programRequest
	if err := c.Bind(&req); err != nil {
		return badBody(c)
	}
	var patch service.ProgramPatch
	if replace {
		d, err := req.draft()
		if err != nil {
			return respondError(c, h.Log, err)
		}
		patch = service.ProgramPatch{
			Title:         &d.Title,
			Description:   &d.Description,
			Date:          &d.Date,
			Capacity:      d.Capacity,
			ClearCapacity: d.Capacity == nil,
		}
	} else if patch, err = req.patch(); err != nil {
		return respondError(c, h.Log, err)
	}

	ctx := c.Request().Context()
	actor := actorFrom(c)
	if _, err := h.Svc.UpdateProgram(ctx, actor, id, patch); err != nil {
		return respondError(c, h.Log, err)
	}
	view, err := h.Svc.GetProgram(ctx, actor, id)
	if err != nil {
		return respondError(c, h.Log, err)
	}
	return c.JSON(http.StatusOK, toProgram(c, view))
}

// Delete handles DELETE /v1/programs/:id.
func (h *ProgramHandler) Delete(c echo.Context) error {
	id, err := pathID(c, "id")
	if err != nil {
		return respondError(c, h.Log, err)
	}
	if err := h.Svc.DeleteProgram(c.Request().Context(), actorFrom(c), id); err != nil {
		return respondError(c, h.Log, err)
	}
	return c.NoContent(http.StatusNoContent)
}

// Share handles POST /v1/programs/:id/share.  Sharing an already shared
// program returns 200 with the existing token; a first share returns 201.
func (h *ProgramHandler) Share(c echo.Context) error {
	id, err := pathID(c, "id")
	if err != nil {
		return respondError(c, h.Log, err)
	}
	res, err := h.Svc.ShareProgram(c.Request().Context(), actorFrom(c), id)
	if err != nil {
		return respondError(c, h.Log, err)
	}
	status, msg := http.StatusCreated, "program shared"
	if res.AlreadyShared {
		status, msg = http.StatusOK, "program already shared"
	}
	return c.JSON(status, echo.Map{
		"message":        msg,
		"already_shared": res.AlreadyShared,
		"share_token":    res.Token,
		"share_url":      shareURL(c, res.Token),
		"shared_at":      res.SharedAt.UTC(),
		"program":        toProgram(c, &res.Program),
	})
}

// Readiness handles GET /v1/programs/:id/readiness.
func (h *ProgramHandler) Readiness(c echo.Context) error {
	id, err := pathID(c, "id")
	if err != nil {
		return respondError(c, h.Log, err)
	}
	r, err := h.Svc.EvaluateReadiness(c.Request().Context(), actorFrom(c), id)
	if err != nil {
		return respondError(c, h.Log, err)
	}
	return c.JSON(http.StatusOK, echo.Map{"is_ready": r.Ready, "shared_but_unready": r.SharedButUnready})
}

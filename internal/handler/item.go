package handler

import (
	"net/http"

	"github.com/labstack/echo/v4"
	"go.uber.org/zap"

	"github.com/iliyamo/program-planner/internal/service"
)

// ItemHandler serves the item endpoints nested under a program.
type ItemHandler struct {
	Svc *service.ProgramService
	Log *zap.Logger
}

func NewItemHandler(svc *service.ProgramService, log *zap.Logger) *ItemHandler {
	if svc == nil {
		panic("nil service passed to NewItemHandler")
	}
	if log == nil {
		log = zap.NewNop()
	}
	return &ItemHandler{Svc: svc, Log: log}
}

type itemRequest struct {
	Title       *string     `json:"title"`
	Description *string     `json:"description"`
	StartTime   *string     `json:"start_time"`
	EndTime     *string     `json:"end_time"`
	Position    nullableInt `json:"position"`
}

// full checks the fields a create or full replace requires and parses them.
func (r *itemRequest) full() (title, desc string, patch service.ItemPatch, err error) {
	switch {
	case r.Title == nil:
		return "", "", patch, required("title")
	case r.StartTime == nil:
		return "", "", patch, required("start_time")
	case r.EndTime == nil:
		return "", "", patch, required("end_time")
	}
	if patch, err = r.patch(); err != nil {
		return "", "", patch, err
	}
	if r.Description != nil {
		desc = *r.Description
	}
	return *r.Title, desc, patch, nil
}

func (r *itemRequest) patch() (service.ItemPatch, error) {
	p := service.ItemPatch{Title: r.Title, Description: r.Description}
	if r.StartTime != nil {
		t, err := parseInstant("start_time", *r.StartTime)
		if err != nil {
			return p, err
		}
		p.Start = &t
	}
	if r.EndTime != nil {
		t, err := parseInstant("end_time", *r.EndTime)
		if err != nil {
			return p, err
		}
		p.End = &t
	}
	pos, err := uint32Field("position", r.Position.Value)
	if err != nil {
		return p, err
	}
	p.Position = pos
	return p, nil
}

func (h *ItemHandler) ids(c echo.Context, withItem bool) (programID, itemID uint64, err error) {
	if programID, err = pathID(c, "id"); err != nil {
		return 0, 0, err
	}
	if withItem {
		if itemID, err = pathID(c, "item_id"); err != nil {
			return 0, 0, err
		}
	}
	return programID, itemID, nil
}

// List handles GET /v1/programs/:id/items.
func (h *ItemHandler) List(c echo.Context) error {
	programID, _, err := h.ids(c, false)
	if err != nil {
		return respondError(c, h.Log, err)
	}
	items, err := h.Svc.ListItems(c.Request().Context(), actorFrom(c), programID)
	if err != nil {
		return respondError(c, h.Log, err)
	}
	return c.JSON(http.StatusOK, toItems(items))
}

// Create handles POST /v1/programs/:id/items.
func (h *ItemHandler) Create(c echo.Context) error {
	programID, _, err := h.ids(c, false)
	if err != nil {
		return respondError(c, h.Log, err)
	}
	var req itemRequest
	if err := c.Bind(&req); err != nil {
		return badBody(c)
	}
	title, desc, p, err := req.full()
	if err != nil {
		return respondError(c, h.Log, err)
	}
	it, err := h.Svc.CreateItem(c.Request().Context(), actorFrom(c), programID, service.ItemDraft{
		Title:       title,
		Description: desc,
		Start:       *p.Start,
		End:         *p.End,
		Position:    p.Position,
	})
	if err != nil {
		return respondError(c, h.Log, err)
	}
	return c.JSON(http.StatusCreated, toItem(it))
}

// Get handles GET /v1/programs/:id/items/:item_id.
func (h *ItemHandler) Get(c echo.Context) error {
	programID, itemID, err := h.ids(c, true)
	if err != nil {
		return respondError(c, h.Log, err)
	}
	it, err := h.Svc.GetItem(c.Request().Context(), actorFrom(c), programID, itemID)
	if err != nil {
		return respondError(c, h.Log, err)
	}
	return c.JSON(http.StatusOK, toItem(it))
}

// Replace handles PUT /v1/programs/:id/items/:item_id.  Title and both
// times are required; an absent position keeps the stored one.
func (h *ItemHandler) Replace(c echo.Context) error {
	return h.update(c, true)
}

// Patch handles PATCH /v1/programs/:id/items/:item_id.
func (h *ItemHandler) Patch(c echo.Context) error {
	return h.update(c, false)
}

func (h *ItemHandler) update(c echo.Context, replace bool) error {
	programID, itemID, err := h.ids(c, true)
	if err != nil {
		return respondError(c, h.Log, err)
	}
	var req itemRequest
	if err := c.Bind(&req); err != nil {
		return badBody(c)
	}
	var p service.ItemPatch
	if replace {
		var title, desc string
		if title, desc, p, err = req.full(); err != nil {
			return respondError(c, h.Log, err)
		}
		p.Title, p.Description = &title, &desc
	} else if p, err = req.patch(); err != nil {
		return respondError(c, h.Log, err)
	}
	it, err := h.Svc.UpdateItem(c.Request().Context(), actorFrom(c), programID, itemID, p)
	if err != nil {
		return respondError(c, h.Log, err)
	}
	return c.JSON(http.StatusOK, toItem(it))
}

// Delete handles DELETE /v1/programs/:id/items/:item_id.
func (h *ItemHandler) Delete(c echo.Context) error {
	programID, itemID, err := h.ids(c, true)
	if err != nil {
		return respondError(c, h.Log, err)
	}
	if err := h.Svc.DeleteItem(c.Request().Context(), actorFrom(c), programID, itemID); err != nil {
		return respondError(c, h.Log, err)
	}
	return c.NoContent(http.StatusNoContent)
}

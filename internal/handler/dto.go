package handler

import (
	"time"

	"github.com/labstack/echo/v4"

	"github.com/iliyamo/program-planner/internal/model"
	"github.com/iliyamo/program-planner/internal/service"
)

type itemResponse struct {
	ID          uint64    `json:"id"`
	ProgramID   uint64    `json:"program_id"`
	Title       string    `json:"title"`
	Description string    `json:"description"`
	StartTime   time.Time `json:"start_time"`
	EndTime     time.Time `json:"end_time"`
	Position    uint32    `json:"position"`
	CreatedAt   time.Time `json:"created_at"`
	UpdatedAt   time.Time `json:"updated_at"`
}

func toItem(it *model.ProgramItem) itemResponse {
	return itemResponse{
		ID:          it.ID,
		ProgramID:   it.ProgramID,
		Title:       it.Title,
		Description: it.Description,
		StartTime:   it.StartTime.UTC(),
		EndTime:     it.EndTime.UTC(),
		Position:    it.Position,
		CreatedAt:   it.CreatedAt.UTC(),
		UpdatedAt:   it.UpdatedAt.UTC(),
	}
}

func toItems(items []model.ProgramItem) []itemResponse {
	out := make([]itemResponse, 0, len(items))
	for i := range items {
		out = append(out, toItem(&items[i]))
	}
	return out
}

// programSummary is the list and dashboard projection of a program.
type programSummary struct {
	ID               uint64     `json:"id"`
	OwnerID          uint64     `json:"owner_id"`
	Title            string     `json:"title"`
	Description      string     `json:"description"`
	Date             string     `json:"date"`
	Capacity         *uint32    `json:"capacity"`
	IsShared         bool       `json:"is_shared"`
	SharedAt         *time.Time `json:"shared_at"`
	IsReady          bool       `json:"is_ready"`
	SharedButUnready bool       `json:"shared_but_unready"`
	ItemCount        int        `json:"item_count"`
	CreatedAt        time.Time  `json:"created_at"`
	UpdatedAt        time.Time  `json:"updated_at"`
}

// programResponse is the owner's full view of a program.
type programResponse struct {
	programSummary
	ShareToken string         `json:"share_token,omitempty"`
	ShareURL   string         `json:"share_url,omitempty"`
	Items      []itemResponse `json:"items"`
}

// sharedProgramResponse is the public view.  Owner identity and the share
// token are never part of it.
type sharedProgramResponse struct {
	ID          uint64         `json:"id"`
	Title       string         `json:"title"`
	Description string         `json:"description"`
	Date        string         `json:"date"`
	Capacity    *uint32        `json:"capacity"`
	SharedAt    *time.Time     `json:"shared_at"`
	Items       []itemResponse `json:"items"`
	ItemCount   int            `json:"item_count"`
}

func utcPtr(t *time.Time) *time.Time {
	if t == nil {
		return nil
	}
	v := t.UTC()
	return &v
}

func toSummary(v *service.ProgramView) programSummary {
	p := &v.Program
	return programSummary{
		ID:               p.ID,
		OwnerID:          p.OwnerID,
		Title:            p.Title,
		Description:      p.Description,
		Date:             p.Date.Format(dateLayout),
		Capacity:         p.Capacity,
		IsShared:         p.IsShared(),
		SharedAt:         utcPtr(p.SharedAt),
		IsReady:          v.Ready,
		SharedButUnready: v.SharedButUnready,
		ItemCount:        len(v.Items),
		CreatedAt:        p.CreatedAt.UTC(),
		UpdatedAt:        p.UpdatedAt.UTC(),
	}
}

func toProgram(c echo.Context, v *service.ProgramView) programResponse {
	resp := programResponse{programSummary: toSummary(v), Items: toItems(v.Items)}
	if v.Program.IsShared() {
		resp.ShareToken = v.Program.ShareToken
		resp.ShareURL = shareURL(c, v.Program.ShareToken)
	}
	return resp
}

func toShared(v *service.ProgramView) sharedProgramResponse {
	p := &v.Program
	return sharedProgramResponse{
		ID:          p.ID,
		Title:       p.Title,
		Description: p.Description,
		Date:        p.Date.Format(dateLayout),
		Capacity:    p.Capacity,
		SharedAt:    utcPtr(p.SharedAt),
		Items:       toItems(v.Items),
		ItemCount:   len(v.Items),
	}
}

// shareURL builds the absolute public link from the request's own scheme
// and host.
func shareURL(c echo.Context, token string) string {
	return c.Scheme() + "://" + c.Request().Host + SharedPathPrefix + token
}

package handler // handler defines http handlers

import (
	"bytes"
	"encoding/json"
	"math"
	"net/http"
	"strconv"
	"time"

	"github.com/labstack/echo/v4"

	"github.com/iliyamo/program-planner/internal/access"
	"github.com/iliyamo/program-planner/internal/middleware"
	"github.com/iliyamo/program-planner/internal/model"
	"github.com/iliyamo/program-planner/internal/service"
)

// SharedPathPrefix is the public route prefix of shared programs.  The
// response cache is purged by concrete path, so it is exported for the
// invalidation adapter.
const SharedPathPrefix = "/v1/programs/shared/"

const dateLayout = "2006-01-02"

// actorFrom builds the access actor from the identity JWTAuth stored in
// the context.  Requests without identity are anonymous.
func actorFrom(c echo.Context) access.Actor {
	id, ok := c.Get(middleware.ContextUserID).(uint64)
	if !ok || id == 0 {
		return access.Anonymous()
	}
	role, _ := c.Get(middleware.ContextRole).(string)
	return access.User(id, role == model.RoleAdmin)
}

// pathID parses a positive numeric path parameter.  Malformed IDs and IDs
// beyond the signed 64-bit range no row can carry are reported as not
// found, like every other unreachable resource.
func pathID(c echo.Context, name string) (uint64, error) {
	n, err := strconv.ParseUint(c.Param(name), 10, 64)
	if err != nil || n == 0 || n > math.MaxInt64 {
		return 0, service.ErrNotFound
	}
	return n, nil
}

// nullableInt distinguishes an absent JSON field (Set false) from an
// explicit null (Set true, Value nil).
type nullableInt struct {
	Set   bool
	Value *int64
}

func (n *nullableInt) UnmarshalJSON(b []byte) error {
	n.Set = true
	if bytes.Equal(bytes.TrimSpace(b), []byte("null")) {
		n.Value = nil
		return nil
	}
	var v int64
	if err := json.Unmarshal(b, &v); err != nil {
		return err
	}
	n.Value = &v
	return nil
}

// uint32Field validates an optional non-negative integer field.
func uint32Field(field string, v *int64) (*uint32, error) {
	if v == nil {
		return nil, nil
	}
	if *v < 0 || *v > math.MaxUint32 {
		return nil, &service.ValidationError{Field: field, Message: "must be a non-negative integer"}
	}
	u := uint32(*v)
	return &u, nil
}

func parseDate(field, s string) (time.Time, error) {
	t, err := time.Parse(dateLayout, s)
	if err != nil {
		return time.Time{}, &service.ValidationError{Field: field, Message: "must be a date in YYYY-MM-DD format"}
	}
	return t, nil
}

func parseInstant(field, s string) (time.Time, error) {
	t, err := time.Parse(time.RFC3339, s)
	if err != nil {
		return time.Time{}, &service.ValidationError{Field: field, Message: "must be an RFC3339 timestamp"}
	}
	return t, nil
}

func required(field string) error {
	return &service.ValidationError{Field: field, Message: "is required"}
}

func badBody(c echo.Context) error {
	return c.JSON(http.StatusBadRequest, echo.Map{"error": "invalid request body"})
}

package router

import (
	"bytes"
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"path/filepath"
	"strconv"
	"testing"

	"github.com/labstack/echo/v4"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"github.com/iliyamo/program-planner/internal/config"
	"github.com/iliyamo/program-planner/internal/database"
	"github.com/iliyamo/program-planner/internal/handler"
	"github.com/iliyamo/program-planner/internal/middleware"
	"github.com/iliyamo/program-planner/internal/model"
	"github.com/iliyamo/program-planner/internal/repository"
	"github.com/iliyamo/program-planner/internal/service"
)

const jwtSecret = "router-test-secret"

type api struct {
	t     *testing.T
	e     *echo.Echo
	users *repository.UserRepo
}

func newAPI(t *testing.T) *api {
	t.Helper()
	path := filepath.Join(t.TempDir(), "api.db")
	require.NoError(t, database.MigrateSQLite(path))
	db, err := database.OpenSQLite(path)
	require.NoError(t, err)
	t.Cleanup(func() { _ = db.Close() })

	cfg := config.Config{JWTSecret: jwtSecret, AccessTTLMin: 5, RefreshTTLDays: 1, BcryptCost: 4}
	log := zap.NewNop()
	users := repository.NewUserRepo(db)
	cache := middleware.NewResponseCache(config.CacheConfig{}, nil, log)
	svc := service.NewProgramService(repository.NewStore(db),
		service.WithLogger(log),
		service.WithInvalidator(SharedViewCache{Cache: cache, Log: log}))

	e := echo.New()
	e.Use(middleware.RequestID())
	RegisterRoutes(e, db)
	RegisterAuth(e, handler.NewAuthHandler(cfg, users, repository.NewTokenRepo(db), log), jwtSecret)
	RegisterPrograms(e, handler.NewProgramHandler(svc, log), handler.NewItemHandler(svc, log), jwtSecret)
	RegisterPublic(e, handler.NewPublicHandler(svc, log), cache)
	return &api{t: t, e: e, users: users}
}

func (a *api) do(method, path, token string, body any) (*httptest.ResponseRecorder, map[string]any) {
	a.t.Helper()
	var buf bytes.Buffer
	if body != nil {
		require.NoError(a.t, json.NewEncoder(&buf).Encode(body))
	}
	req := httptest.NewRequest(method, path, &buf)
	req.Header.Set(echo.HeaderContentType, echo.MIMEApplicationJSON)
	if token != "" {
		req.Header.Set("Authorization", "Bearer "+token)
	}
	rec := httptest.NewRecorder()
	a.e.ServeHTTP(rec, req)

	var out map[string]any
	if rec.Body.Len() > 0 && rec.Body.Bytes()[0] == '{' {
		require.NoError(a.t, json.Unmarshal(rec.Body.Bytes(), &out))
	}
	return rec, out
}

// signup registers a user and returns its access token.
func (a *api) signup(email string) string {
	a.t.Helper()
	rec, body := a.do(http.MethodPost, "/v1/auth/register", "", echo.Map{"email": email, "password": "password123"})
	require.Equal(a.t, http.StatusCreated, rec.Code, rec.Body.String())
	return body["access"].(map[string]any)["token"].(string)
}

func (a *api) admin(email string) string {
	a.t.Helper()
	_, err := a.users.Create(context.Background(), email, "password123", model.RoleAdmin, 4)
	require.NoError(a.t, err)
	rec, body := a.do(http.MethodPost, "/v1/auth/login", "", echo.Map{"email": email, "password": "password123"})
	require.Equal(a.t, http.StatusOK, rec.Code, rec.Body.String())
	return body["access"].(map[string]any)["token"].(string)
}

func (a *api) createProgram(token string) string {
	a.t.Helper()
	rec, body := a.do(http.MethodPost, "/v1/programs", token, echo.Map{"title": "DevFest", "date": "2026-03-01", "capacity": 200})
	require.Equal(a.t, http.StatusCreated, rec.Code, rec.Body.String())
	return jsonID(body)
}

func jsonID(body map[string]any) string {
	return strconv.FormatUint(uint64(body["id"].(float64)), 10)
}

func item(title, start, end string) echo.Map {
	return echo.Map{"title": title, "start_time": start, "end_time": end}
}

func TestHealth(t *testing.T) {
	a := newAPI(t)
	rec, _ := a.do(http.MethodGet, "/healthz", "", nil)
	assert.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, "ok", rec.Body.String())
}

func TestAuthFlow(t *testing.T) {
	a := newAPI(t)
	token := a.signup("ada@example.com")

	rec, body := a.do(http.MethodGet, "/v1/me", token, nil)
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, "ada@example.com", body["email"])
	assert.Equal(t, model.RoleUser, body["role"])

	rec, _ = a.do(http.MethodPost, "/v1/auth/register", "", echo.Map{"email": "ADA@example.com", "password": "password123"})
	assert.Equal(t, http.StatusConflict, rec.Code)

	rec, _ = a.do(http.MethodPost, "/v1/auth/login", "", echo.Map{"email": "ada@example.com", "password": "wrong-password"})
	assert.Equal(t, http.StatusUnauthorized, rec.Code)

	rec, body = a.do(http.MethodPost, "/v1/auth/login", "", echo.Map{"email": "ada@example.com", "password": "password123"})
	require.Equal(t, http.StatusOK, rec.Code)
	refresh := body["refresh"].(map[string]any)["token"].(string)

	rec, body = a.do(http.MethodPost, "/v1/auth/refresh", "", echo.Map{"refresh_token": refresh})
	require.Equal(t, http.StatusOK, rec.Code)
	rotated := body["refresh"].(map[string]any)["token"].(string)

	// The old refresh token was revoked by rotation.
	rec, _ = a.do(http.MethodPost, "/v1/auth/refresh-access", "", echo.Map{"refresh_token": refresh})
	assert.Equal(t, http.StatusUnauthorized, rec.Code)
	rec, _ = a.do(http.MethodPost, "/v1/auth/refresh-access", "", echo.Map{"refresh_token": rotated})
	assert.Equal(t, http.StatusOK, rec.Code)

	rec, _ = a.do(http.MethodPost, "/v1/auth/logout", "", echo.Map{"refresh_token": rotated})
	assert.Equal(t, http.StatusNoContent, rec.Code)
	rec, _ = a.do(http.MethodPost, "/v1/auth/refresh", "", echo.Map{"refresh_token": rotated})
	assert.Equal(t, http.StatusUnauthorized, rec.Code)

	rec, _ = a.do(http.MethodGet, "/v1/me", "", nil)
	assert.Equal(t, http.StatusUnauthorized, rec.Code)
}

func TestLogoutWithBearerRevokesEverySession(t *testing.T) {
	a := newAPI(t)
	a.signup("ada@example.com")
	_, first := a.do(http.MethodPost, "/v1/auth/login", "", echo.Map{"email": "ada@example.com", "password": "password123"})
	_, second := a.do(http.MethodPost, "/v1/auth/login", "", echo.Map{"email": "ada@example.com", "password": "password123"})
	access := second["access"].(map[string]any)["token"].(string)

	rec, _ := a.do(http.MethodPost, "/v1/auth/logout", "", nil)
	assert.Equal(t, http.StatusBadRequest, rec.Code)

	rec, _ = a.do(http.MethodPost, "/v1/auth/logout", access, nil)
	require.Equal(t, http.StatusNoContent, rec.Code)

	for _, body := range []map[string]any{first, second} {
		refresh := body["refresh"].(map[string]any)["token"].(string)
		rec, _ = a.do(http.MethodPost, "/v1/auth/refresh", "", echo.Map{"refresh_token": refresh})
		assert.Equal(t, http.StatusUnauthorized, rec.Code)
	}
}

func TestProgramLifecycle(t *testing.T) {
	a := newAPI(t)
	owner := a.signup("owner@example.com")
	id := a.createProgram(owner)
	base := "/v1/programs/" + id

	// Not ready without items.
	rec, body := a.do(http.MethodPost, base+"/share", owner, nil)
	assert.Equal(t, http.StatusBadRequest, rec.Code)
	assert.Contains(t, body["error"], "not ready")

	rec, body = a.do(http.MethodPost, base+"/items", owner, item("Keynote", "2026-03-01T09:00:00Z", "2026-03-01T10:00:00Z"))
	require.Equal(t, http.StatusCreated, rec.Code, rec.Body.String())
	assert.Equal(t, float64(1), body["position"])
	keynote := jsonID(body)

	rec, body = a.do(http.MethodPost, base+"/items", owner, item("Overlap", "2026-03-01T09:30:00Z", "2026-03-01T10:30:00Z"))
	assert.Equal(t, http.StatusConflict, rec.Code)
	assert.Equal(t, "Keynote", body["conflicting_item"].(map[string]any)["title"])

	rec, body = a.do(http.MethodPost, base+"/items", owner, item("Workshop", "2026-03-01T10:00:00Z", "2026-03-01T11:00:00Z"))
	require.Equal(t, http.StatusCreated, rec.Code)
	assert.Equal(t, float64(2), body["position"])

	rec, _ = a.do(http.MethodPost, base+"/items", owner, item("Backwards", "2026-03-01T12:00:00Z", "2026-03-01T11:00:00Z"))
	assert.Equal(t, http.StatusBadRequest, rec.Code)

	rec, body = a.do(http.MethodPost, base+"/items", owner, echo.Map{
		"title": "Dup", "start_time": "2026-03-01T13:00:00Z", "end_time": "2026-03-01T14:00:00Z", "position": 1,
	})
	assert.Equal(t, http.StatusConflict, rec.Code)
	assert.Contains(t, body["error"], "position")

	rec, body = a.do(http.MethodGet, base+"/readiness", owner, nil)
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, true, body["is_ready"])

	rec, body = a.do(http.MethodPost, base+"/share", owner, nil)
	require.Equal(t, http.StatusCreated, rec.Code, rec.Body.String())
	assert.Equal(t, false, body["already_shared"])
	token := body["share_token"].(string)
	assert.Equal(t, "http://example.com/v1/programs/shared/"+token, body["share_url"])

	rec, body = a.do(http.MethodPost, base+"/share", owner, nil)
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, true, body["already_shared"])
	assert.Equal(t, token, body["share_token"])

	// Public view, no auth.
	rec, body = a.do(http.MethodGet, "/v1/programs/shared/"+token, "", nil)
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, "DevFest", body["title"])
	assert.Equal(t, float64(2), body["item_count"])
	assert.Len(t, body["items"], 2)
	assert.NotContains(t, body, "owner_id")
	assert.NotContains(t, body, "share_token")

	rec, _ = a.do(http.MethodGet, "/v1/programs/shared/unknown", "", nil)
	assert.Equal(t, http.StatusNotFound, rec.Code)

	// Partial update keeps the rest.
	rec, body = a.do(http.MethodPatch, base+"/items/"+keynote, owner, echo.Map{"title": "Opening keynote"})
	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())
	assert.Equal(t, "Opening keynote", body["title"])
	assert.Equal(t, "2026-03-01T09:00:00Z", body["start_time"])

	// Full update requires every field.
	rec, body = a.do(http.MethodPut, base+"/items/"+keynote, owner, echo.Map{"title": "Only title"})
	assert.Equal(t, http.StatusBadRequest, rec.Code)
	assert.Equal(t, "start_time", body["field"])

	rec, body = a.do(http.MethodPatch, base, owner, echo.Map{"capacity": nil})
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Nil(t, body["capacity"])
	assert.Equal(t, "DevFest", body["title"])
	assert.Equal(t, token, body["share_token"])

	rec, body = a.do(http.MethodGet, "/v1/dashboard", owner, nil)
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, float64(1), body["total_count"])

	rec, _ = a.do(http.MethodDelete, base, owner, nil)
	assert.Equal(t, http.StatusNoContent, rec.Code)
	rec, _ = a.do(http.MethodGet, base, owner, nil)
	assert.Equal(t, http.StatusNotFound, rec.Code)
	rec, _ = a.do(http.MethodGet, "/v1/programs/shared/"+token, "", nil)
	assert.Equal(t, http.StatusNotFound, rec.Code)
}

func TestForeignProgramsLookMissing(t *testing.T) {
	a := newAPI(t)
	owner := a.signup("owner@example.com")
	stranger := a.signup("stranger@example.com")
	admin := a.admin("root@example.com")
	id := a.createProgram(owner)
	base := "/v1/programs/" + id

	for _, tc := range []struct {
		method, path string
		body         any
	}{
		{http.MethodGet, base, nil},
		{http.MethodPatch, base, echo.Map{"title": "Mine now"}},
		{http.MethodDelete, base, nil},
		{http.MethodPost, base + "/share", nil},
		{http.MethodGet, base + "/items", nil},
		{http.MethodPost, base + "/items", item("X", "2026-03-01T09:00:00Z", "2026-03-01T10:00:00Z")},
	} {
		rec, _ := a.do(tc.method, tc.path, stranger, tc.body)
		assert.Equal(t, http.StatusNotFound, rec.Code, "%s %s", tc.method, tc.path)
	}

	rec, _ := a.do(http.MethodGet, base, "", nil)
	assert.Equal(t, http.StatusUnauthorized, rec.Code)

	rec, _ = a.do(http.MethodGet, "/v1/programs/abc", owner, nil)
	assert.Equal(t, http.StatusNotFound, rec.Code)

	for _, path := range []string{
		"/v1/programs/18446744073709551615",
		"/v1/programs/9223372036854775808",
		"/v1/programs/18446744073709551615/items",
		"/v1/programs/18446744073709551615/items/1",
		base + "/items/9223372036854775808",
		"/v1/programs/0",
	} {
		rec, body := a.do(http.MethodGet, path, owner, nil)
		assert.Equal(t, http.StatusNotFound, rec.Code, path)
		assert.Equal(t, "not found", body["error"], path)
	}

	rec, body := a.do(http.MethodGet, base, admin, nil)
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, "DevFest", body["title"])
}

func TestProgramValidation(t *testing.T) {
	a := newAPI(t)
	owner := a.signup("owner@example.com")

	for _, tc := range []struct {
		name  string
		body  echo.Map
		field string
	}{
		{"missing title", echo.Map{"date": "2026-03-01"}, "title"},
		{"blank title", echo.Map{"title": "  ", "date": "2026-03-01"}, "title"},
		{"bad date", echo.Map{"title": "T", "date": "03/01/2026"}, "date"},
		{"negative capacity", echo.Map{"title": "T", "date": "2026-03-01", "capacity": -1}, "capacity"},
	} {
		t.Run(tc.name, func(t *testing.T) {
			rec, body := a.do(http.MethodPost, "/v1/programs", owner, tc.body)
			assert.Equal(t, http.StatusBadRequest, rec.Code)
			assert.Equal(t, tc.field, body["field"])
		})
	}
}

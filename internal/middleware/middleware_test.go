package middleware

import (
	"context"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/labstack/echo/v4"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"github.com/iliyamo/program-planner/internal/config"
	"github.com/iliyamo/program-planner/internal/utils"
)

const secret = "test-secret"

func serve(e *echo.Echo, req *http.Request) *httptest.ResponseRecorder {
	rec := httptest.NewRecorder()
	e.ServeHTTP(rec, req)
	return rec
}

func whoAmI(c echo.Context) error {
	return c.JSON(http.StatusOK, echo.Map{"user_id": c.Get(ContextUserID), "role": c.Get(ContextRole)})
}

func TestJWTAuth(t *testing.T) {
	e := echo.New()
	e.GET("/me", whoAmI, JWTAuth(secret))

	tok, err := utils.NewAccessToken(secret, 9, "USER", 5)
	require.NoError(t, err)

	t.Run("valid token", func(t *testing.T) {
		req := httptest.NewRequest(http.MethodGet, "/me", nil)
		req.Header.Set("Authorization", "Bearer "+tok.Token)
		rec := serve(e, req)
		assert.Equal(t, http.StatusOK, rec.Code)
		assert.JSONEq(t, `{"user_id":9,"role":"USER"}`, rec.Body.String())
	})

	t.Run("missing header", func(t *testing.T) {
		rec := serve(e, httptest.NewRequest(http.MethodGet, "/me", nil))
		assert.Equal(t, http.StatusUnauthorized, rec.Code)
	})

	t.Run("bad signature", func(t *testing.T) {
		other, err := utils.NewAccessToken("other", 9, "USER", 5)
		require.NoError(t, err)
		req := httptest.NewRequest(http.MethodGet, "/me", nil)
		req.Header.Set("Authorization", "Bearer "+other.Token)
		assert.Equal(t, http.StatusUnauthorized, serve(e, req).Code)
	})
}

func TestOptionalJWT(t *testing.T) {
	e := echo.New()
	e.GET("/me", whoAmI, OptionalJWT(secret))

	rec := serve(e, httptest.NewRequest(http.MethodGet, "/me", nil))
	assert.Equal(t, http.StatusOK, rec.Code)
	assert.JSONEq(t, `{"user_id":null,"role":null}`, rec.Body.String())

	req := httptest.NewRequest(http.MethodGet, "/me", nil)
	req.Header.Set("Authorization", "Bearer garbage")
	assert.Equal(t, http.StatusOK, serve(e, req).Code)
}

func TestRequireRole(t *testing.T) {
	e := echo.New()
	e.GET("/admin", whoAmI, JWTAuth(secret), RequireRole("ADMIN"))

	for _, tc := range []struct {
		role string
		want int
	}{
		{"ADMIN", http.StatusOK},
		{"USER", http.StatusForbidden},
	} {
		tok, err := utils.NewAccessToken(secret, 1, tc.role, 5)
		require.NoError(t, err)
		req := httptest.NewRequest(http.MethodGet, "/admin", nil)
		req.Header.Set("Authorization", "Bearer "+tok.Token)
		assert.Equal(t, tc.want, serve(e, req).Code, tc.role)
	}
}

func TestRequestID(t *testing.T) {
	e := echo.New()
	e.Use(RequestID(), RequestLogger(zap.NewNop()))
	e.GET("/", func(c echo.Context) error { return c.NoContent(http.StatusNoContent) })

	rec := serve(e, httptest.NewRequest(http.MethodGet, "/", nil))
	assert.Len(t, rec.Header().Get(echo.HeaderXRequestID), 36)

	req := httptest.NewRequest(http.MethodGet, "/", nil)
	req.Header.Set(echo.HeaderXRequestID, "abc-123")
	rec = serve(e, req)
	assert.Equal(t, "abc-123", rec.Header().Get(echo.HeaderXRequestID))
}

func TestRequestLoggerRendersHandlerErrors(t *testing.T) {
	e := echo.New()
	e.Use(RequestLogger(zap.NewNop()))
	e.GET("/", func(c echo.Context) error { return echo.NewHTTPError(http.StatusTeapot, "nope") })

	rec := serve(e, httptest.NewRequest(http.MethodGet, "/", nil))
	assert.Equal(t, http.StatusTeapot, rec.Code)
}

func TestDisabledFeaturesPassThrough(t *testing.T) {
	cache := NewResponseCache(config.CacheConfig{Enabled: true}, nil, nil)
	e := echo.New()
	e.Use(cache.Middleware(), NewTokenBucket(config.RateLimitConfig{Enabled: true}, nil, nil))
	e.GET("/", func(c echo.Context) error { return c.String(http.StatusOK, "ok") })

	rec := serve(e, httptest.NewRequest(http.MethodGet, "/", nil))
	assert.Equal(t, http.StatusOK, rec.Code)
	assert.Empty(t, rec.Header().Get("X-Cache"))
	assert.NoError(t, cache.InvalidatePath(context.Background(), "/"))
}

func TestCacheKeysGroupByPath(t *testing.T) {
	rc := NewResponseCache(config.CacheConfig{Prefix: "cache", KeyStrategy: "path_query"}, nil, nil)

	a1 := rc.key(httptest.NewRequest(http.MethodGet, "/v1/programs/shared/a?x=1", nil))
	a2 := rc.key(httptest.NewRequest(http.MethodGet, "/v1/programs/shared/a?x=2", nil))
	b := rc.key(httptest.NewRequest(http.MethodGet, "/v1/programs/shared/b?x=1", nil))

	prefix := rc.pathPrefix("/v1/programs/shared/a")
	assert.NotEqual(t, a1, a2)
	assert.NotEqual(t, a1, b)
	assert.True(t, len(a1) > len(prefix) && a1[:len(prefix)] == prefix)
	assert.True(t, a2[:len(prefix)] == prefix)
	assert.False(t, b[:len(prefix)] == prefix)
}

func TestPayloadRoundTrip(t *testing.T) {
	hdr := http.Header{"Content-Type": {"application/json"}}
	bs, err := encodePayload(http.StatusOK, hdr, []byte(`{"a":1}`))
	require.NoError(t, err)

	status, gotHdr, body, ok := decodePayload(bs)
	require.True(t, ok)
	assert.Equal(t, http.StatusOK, status)
	assert.Equal(t, "application/json", gotHdr.Get("Content-Type"))
	assert.Equal(t, `{"a":1}`, string(body))

	_, _, _, ok = decodePayload([]byte{0, 1})
	assert.False(t, ok)
}

func TestBuildRateKey(t *testing.T) {
	e := echo.New()
	req := httptest.NewRequest(http.MethodGet, "/v1/programs", nil)
	req.RemoteAddr = "10.0.0.1:1234"
	c := e.NewContext(req, httptest.NewRecorder())
	c.SetPath("/v1/programs")
	c.Set(ContextUserID, uint64(5))

	assert.Equal(t, "rl:ip:10.0.0.1:user:5:route:GET /v1/programs",
		buildRateKey(config.RateLimitConfig{Prefix: "rl", KeyStrategy: "ip_user_route"}, c))
	assert.Equal(t, "rl:user:5", buildRateKey(config.RateLimitConfig{Prefix: "rl", KeyStrategy: "user"}, c))
	assert.Equal(t, "rl:ip:10.0.0.1:route:GET /v1/programs",
		buildRateKey(config.RateLimitConfig{Prefix: "rl", KeyStrategy: "IP_ROUTE"}, c))
	assert.Equal(t, "rl:ip:10.0.0.1:user:5:route:GET /v1/programs",
		buildRateKey(config.RateLimitConfig{Prefix: "rl", KeyStrategy: "bogus"}, c))
}

func TestRetryAfterSeconds(t *testing.T) {
	assert.Equal(t, 0, retryAfterSeconds(0))
	assert.Equal(t, 1, retryAfterSeconds(time.Millisecond))
	assert.Equal(t, 1, retryAfterSeconds(time.Second))
	assert.Equal(t, 2, retryAfterSeconds(1001*time.Millisecond))
}

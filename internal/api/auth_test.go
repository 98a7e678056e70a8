package api

import (
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/annel0/navgrid/internal/auth"
	"github.com/annel0/navgrid/internal/config"
	"github.com/annel0/navgrid/internal/world"
	"github.com/gin-gonic/gin"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newAuthServer(t *testing.T) (*RestServer, *auth.TokenIssuer) {
	t.Helper()
	gin.SetMode(gin.TestMode)

	secret, err := auth.GenerateSecureSecret()
	require.NoError(t, err)
	tokens, err := auth.NewTokenIssuer(secret, time.Hour)
	require.NoError(t, err)

	rm := world.NewRegionManager(plainTerrain{}, config.NavGridConfig{
		FieldSize:           1,
		RegionScale:         16,
		MaxWalkableSlope:    35,
		MaxSearchIterations: 5000,
	}, config.Default().World)
	rs := NewRestServer(Config{Regions: rm, Registry: prometheus.NewRegistry(), ServiceName: "auth", Tokens: tokens})
	return rs, tokens
}

func doAuth(rs *RestServer, method, target, token string) *httptest.ResponseRecorder {
	req := httptest.NewRequest(method, target, nil)
	if token != "" {
		req.Header.Set("Authorization", "Bearer "+token)
	}
	w := httptest.NewRecorder()
	rs.Handler().ServeHTTP(w, req)
	return w
}

func TestAuth_MutatingRoutesRequireToken(t *testing.T) {
	rs, tokens := newAuthServer(t)

	w := doAuth(rs, http.MethodPost, "/api/regions/0/0/activate", "")
	assert.Equal(t, http.StatusUnauthorized, w.Code)

	w = doAuth(rs, http.MethodPost, "/api/regions/0/0/activate", "garbage")
	assert.Equal(t, http.StatusUnauthorized, w.Code)

	user, err := tokens.Generate("tester", false)
	require.NoError(t, err)
	w = doAuth(rs, http.MethodPost, "/api/regions/0/0/activate", user)
	assert.Equal(t, http.StatusCreated, w.Code)

	// Чтение не требует токена
	w = doAuth(rs, http.MethodGet, "/api/regions/0/0/checkpoint?from_x=1.5&from_y=1.5&to_x=3.5&to_y=1.5", "")
	assert.Equal(t, http.StatusOK, w.Code)
}

func TestAuth_UnloadRequiresAdmin(t *testing.T) {
	rs, tokens := newAuthServer(t)

	admin, err := tokens.Generate("root", true)
	require.NoError(t, err)
	user, err := tokens.Generate("tester", false)
	require.NoError(t, err)

	require.Equal(t, http.StatusCreated, doAuth(rs, http.MethodPost, "/api/regions/0/0/activate", admin).Code)

	w := doAuth(rs, http.MethodDelete, "/api/regions/0/0", user)
	assert.Equal(t, http.StatusForbidden, w.Code)

	w = doAuth(rs, http.MethodDelete, "/api/regions/0/0", admin)
	assert.Equal(t, http.StatusOK, w.Code)
}

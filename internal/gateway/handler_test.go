package gateway

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"

	apphttp "leadflow_backend/internal/http"
	"leadflow_backend/platform/apperr"
	"leadflow_backend/platform/httpkit"

	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type fakeController struct {
	status        Status
	disconnectErr error
	disconnected  bool
}

func (f *fakeController) Status(context.Context) Status { return f.status }

func (f *fakeController) Disconnect(context.Context) error {
	f.disconnected = f.disconnectErr == nil
	return f.disconnectErr
}

func newEngine(ctrl Controller, roles ...string) *gin.Engine {
	gin.SetMode(gin.TestMode)
	engine := gin.New()
	protected := engine.Group("/api/v1", func(c *gin.Context) {
		c.Set(httpkit.ContextUserIDKey, int64(1))
		c.Set(httpkit.ContextRolesKey, roles)
		c.Next()
	})
	NewModule(ctrl, "http://gateway:3001").RegisterRoutes(&apphttp.RouterContext{Engine: engine, Protected: protected})
	return engine
}

func TestStatusEndpoint(t *testing.T) {
	engine := newEngine(&fakeController{status: Status{Connected: true, Address: "5511999990000"}}, httpkit.RoleSalesperson)

	w := httptest.NewRecorder()
	engine.ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/api/v1/gateway/status", nil))
	require.Equal(t, http.StatusOK, w.Code)

	var body map[string]any
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &body))
	assert.Equal(t, true, body["connected"])
	assert.Equal(t, "5511999990000", body["address"])
	assert.Equal(t, "http://gateway:3001", body["gatewayUrl"])
}

func TestDisconnectRequiresAdmin(t *testing.T) {
	ctrl := &fakeController{}

	w := httptest.NewRecorder()
	newEngine(ctrl, httpkit.RoleManager).ServeHTTP(w, httptest.NewRequest(http.MethodPost, "/api/v1/gateway/disconnect", nil))
	assert.Equal(t, http.StatusForbidden, w.Code)
	assert.False(t, ctrl.disconnected)

	w = httptest.NewRecorder()
	newEngine(ctrl, httpkit.RoleAdmin).ServeHTTP(w, httptest.NewRequest(http.MethodPost, "/api/v1/gateway/disconnect", nil))
	assert.Equal(t, http.StatusOK, w.Code)
	assert.True(t, ctrl.disconnected)
}

func TestDisconnectGatewayFailure(t *testing.T) {
	ctrl := &fakeController{disconnectErr: apperr.GatewayUnavailable("gateway disconnect failed", errors.New("refused"))}

	w := httptest.NewRecorder()
	newEngine(ctrl, httpkit.RoleAdmin).ServeHTTP(w, httptest.NewRequest(http.MethodPost, "/api/v1/gateway/disconnect", nil))
	assert.Equal(t, http.StatusBadGateway, w.Code)
}

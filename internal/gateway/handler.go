package gateway

import (
	"context"

	apphttp "leadflow_backend/internal/http"
	"leadflow_backend/platform/httpkit"

	"github.com/gin-gonic/gin"
)

// Controller is the subset of Client the HTTP handlers need.
type Controller interface {
	Status(ctx context.Context) Status
	Disconnect(ctx context.Context) error
}

// Module exposes gateway session status to agents and disconnect to admins.
type Module struct {
	gw  Controller
	url string
}

func NewModule(gw Controller, gatewayURL string) *Module {
	return &Module{gw: gw, url: gatewayURL}
}

type statusView struct {
	Status
	GatewayURL string `json:"gatewayUrl"`
}

func (m *Module) Name() string { return "gateway" }

func (m *Module) RegisterRoutes(ctx *apphttp.RouterContext) {
	g := ctx.Protected.Group("/gateway")
	g.GET("/status", m.status)
	g.POST("/disconnect", httpkit.RequireRole(httpkit.RoleAdmin), m.disconnect)
}

func (m *Module) status(c *gin.Context) {
	httpkit.OK(c, statusView{Status: m.gw.Status(c.Request.Context()), GatewayURL: m.url})
}

func (m *Module) disconnect(c *gin.Context) {
	if httpkit.HandleError(c, m.gw.Disconnect(c.Request.Context())) {
		return
	}
	httpkit.OK(c, gin.H{"success": true})
}

var _ apphttp.Module = (*Module)(nil)

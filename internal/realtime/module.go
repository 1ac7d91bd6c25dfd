package realtime

import (
	apphttp "leadflow_backend/internal/http"
	"leadflow_backend/platform/logger"
)

// Module mounts the realtime stream under /api/v1/realtime.
type Module struct {
	handler *Handler
}

func NewModule(hub *Hub, log *logger.Logger) *Module {
	return &Module{handler: NewHandler(hub, log.WithComponent("realtime"))}
}

func (m *Module) Name() string { return "realtime" }

func (m *Module) RegisterRoutes(ctx *apphttp.RouterContext) {
	m.handler.RegisterRoutes(ctx.Protected.Group("/realtime"))
}

var _ apphttp.Module = (*Module)(nil)

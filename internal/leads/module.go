// Package leads provides the lead conversation bounded context module.
// This file defines the module that encapsulates all leads setup and route registration.
package leads

import (
	"time"

	apphttp "leadflow_backend/internal/http"
	"leadflow_backend/internal/leads/handler"
	"leadflow_backend/internal/leads/identity"
	"leadflow_backend/internal/leads/management"
	"leadflow_backend/internal/leads/messaging"
	"leadflow_backend/internal/leads/notes"
	"leadflow_backend/internal/leads/repository"
	"leadflow_backend/internal/leads/timeline"
	"leadflow_backend/internal/realtime"
	"leadflow_backend/platform/dedupe"
	"leadflow_backend/platform/keylock"
	"leadflow_backend/platform/logger"
	"leadflow_backend/platform/validator"
)

// Deps are the collaborators the leads module is built from.
type Deps struct {
	Store         repository.Store
	Gateway       messaging.Gateway
	Dedupe        dedupe.Store
	Publisher     realtime.Publisher
	Validator     *validator.Validator
	WebhookSecret string
	Logger        *logger.Logger

	// StoreTimeout bounds recording sends the gateway already accepted.
	StoreTimeout time.Duration
}

// Module is the leads bounded context module implementing http.Module.
type Module struct {
	handler  *handler.Handler
	webhook  *handler.WebhookHandler
	resolver *identity.Resolver
	pipeline *messaging.Pipeline
}

// NewModule creates and initializes the leads module with all its dependencies.
func NewModule(d Deps) *Module {
	// One lock map shared by every service that mutates a lead.
	locks := keylock.New[int64]()

	resolver := identity.New(d.Store, d.Logger)
	mgmtSvc := management.New(d.Store, locks, d.Publisher, d.Logger)
	timelineSvc := timeline.New(d.Store)
	notesSvc := notes.New(d.Store, locks, d.Publisher, d.Logger)
	pipeline := messaging.New(messaging.Deps{
		Repo:     d.Store,
		Resolver: resolver,
		Gateway:  d.Gateway,
		Locks:    locks,
		Dedupe:   d.Dedupe,
		Pub:      d.Publisher,
		Log:      d.Logger,

		StoreTimeout: d.StoreTimeout,
	})

	notesHandler := handler.NewNotesHandler(notesSvc, d.Validator)
	h := handler.New(mgmtSvc, pipeline, timelineSvc, notesHandler, d.Validator)
	webhook := handler.NewWebhookHandler(pipeline, d.WebhookSecret, d.Validator, d.Logger)

	return &Module{
		handler:  h,
		webhook:  webhook,
		resolver: resolver,
		pipeline: pipeline,
	}
}

// Name returns the module identifier.
func (m *Module) Name() string {
	return "leads"
}

// Resolver returns the identity resolver for seeding and other in-process callers.
func (m *Module) Resolver() Resolver {
	return m.resolver
}

// Ingester returns the inbound side of the message pipeline.
func (m *Module) Ingester() Ingester {
	return m.pipeline
}

// RegisterRoutes mounts leads routes on the provided router context.
func (m *Module) RegisterRoutes(ctx *apphttp.RouterContext) {
	// All leads routes require authentication
	m.handler.RegisterRoutes(ctx.Protected.Group("/leads"))

	webhook := ctx.V1.Group("/webhook")
	if ctx.WebhookRateLimiter != nil {
		webhook.Use(ctx.WebhookRateLimiter.RateLimit())
	}
	webhook.POST("/message", m.webhook.Receive)

	if !ctx.Production {
		ctx.Protected.POST("/simulate/message", m.webhook.Simulate)
	}
}

// Compile-time check that Module implements http.Module
var _ apphttp.Module = (*Module)(nil)

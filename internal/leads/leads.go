// Package leads provides the lead conversation bounded context.
// This file defines the public API of the context: the in-process entry
// points other commands (seeding, tooling) may depend on.
package leads

import (
	"context"

	"leadflow_backend/internal/leads/identity"
	"leadflow_backend/internal/leads/messaging"
	"leadflow_backend/internal/leads/transport"
)

// Resolver maps a channel address to its lead, creating it on first sight.
type Resolver interface {
	Resolve(ctx context.Context, address, fallbackName string) (identity.Result, error)
}

// Ingester records inbound messages exactly as the webhook does.
type Ingester interface {
	Ingest(ctx context.Context, in transport.InboundMessage) (messaging.IngestResult, error)
}

var (
	_ Resolver = (*identity.Resolver)(nil)
	_ Ingester = (*messaging.Pipeline)(nil)
)

// Package dedupe remembers recently seen inbound message IDs so a gateway
// retry does not record the same message twice.
package dedupe

import (
	"context"
	"time"
)

// Store marks keys as seen for a bounded time.
type Store interface {
	// MarkSeen records key and reports whether it was already present.
	MarkSeen(ctx context.Context, key string) (duplicate bool, err error)
	// Forget removes key so a later delivery is processed again.
	Forget(ctx context.Context, key string) error
}

// Noop never reports duplicates. Used when dedupe is disabled.
type Noop struct{}

func (Noop) MarkSeen(context.Context, string) (bool, error) { return false, nil }
func (Noop) Forget(context.Context, string) error           { return nil }

const keyPrefix = "leadflow:inbound:"

func namespaced(key string) string { return keyPrefix + key }

// DefaultTTL is used when a zero TTL is configured.
const DefaultTTL = 10 * time.Minute

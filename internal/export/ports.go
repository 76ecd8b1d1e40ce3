// Package export defines the outbound port for mirroring the movement feed
// into external destinations.
package export

import (
	"context"

	"mibalance/internal/core"
)

// MovementMirror replaces the destination's view of the feed wholesale.
// Mirrors are rebuilt from fresh reads, never patched in place.
type MovementMirror interface {
	ReplaceMovements(ctx context.Context, movements []core.Movement) error
}

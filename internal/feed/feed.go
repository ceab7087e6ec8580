// Package feed broadcasts committed patches to subscribers over WebSocket,
// in per-object revision order.
package feed

import (
	"context"

	"github.com/cruxsync/otp/otp"
)

// Feed is the change-feed contract the commit pipeline publishes through.
type Feed interface {
	// Publish delivers patch to every subscriber of patch.ObjectID. It
	// never blocks on a slow subscriber; slow subscribers are disconnected
	// instead.
	Publish(ctx context.Context, patch otp.Patch) error
}

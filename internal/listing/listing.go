// Package listing triggers re-marketing of a unit when a renewal fails.
package listing

import (
	"context"
	"fmt"
	"time"

	"go.uber.org/zap"

	"github.com/renewal-ai/renewal-engine/internal/nats"
	"github.com/renewal-ai/renewal-engine/pkg/logger"
)

// Relister re-advertises the unit behind a lease.
type Relister interface {
	Relist(ctx context.Context, leaseID string) error
}

// NATSRelister publishes a relist event for the listings service to consume.
type NATSRelister struct {
	stream *nats.StreamManager
	log    *logger.Logger
}

// NewNATSRelister creates a relister backed by JetStream.
func NewNATSRelister(stream *nats.StreamManager, log *logger.Logger) *NATSRelister {
	return &NATSRelister{stream: stream, log: log}
}

// Relist publishes the relist event.
func (r *NATSRelister) Relist(ctx context.Context, leaseID string) error {
	_, err := r.stream.PublishEvent(ctx, &nats.EngineEvent{
		Type:      "relist_requested",
		LeaseID:   leaseID,
		Timestamp: time.Now().UTC(),
	})
	if err != nil {
		return fmt.Errorf("publish relist event: %w", err)
	}
	r.log.WithLease(leaseID).Info("unit queued for re-marketing", zap.String("event", "relist_requested"))
	return nil
}

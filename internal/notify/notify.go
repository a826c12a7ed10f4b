// Package notify writes landlord notifications. The engine notifies only on
// initiation, conclusion and escalation; failures here are logged, never
// fatal to the negotiation that triggered them.
package notify

import (
	"context"
	"time"

	"go.uber.org/zap"

	"github.com/renewal-ai/renewal-engine/internal/model"
	"github.com/renewal-ai/renewal-engine/internal/nats"
	"github.com/renewal-ai/renewal-engine/internal/store"
	"github.com/renewal-ai/renewal-engine/pkg/logger"
)

// LandlordNotifier persists a notification and mirrors it as an engine event.
type LandlordNotifier struct {
	notifications store.NotificationStore
	stream        *nats.StreamManager
	log           *logger.Logger
}

// NewLandlordNotifier creates a notifier. stream may be nil in tests.
func NewLandlordNotifier(notifications store.NotificationStore, stream *nats.StreamManager, log *logger.Logger) *LandlordNotifier {
	return &LandlordNotifier{notifications: notifications, stream: stream, log: log}
}

// Notify records a landlord notification. Errors are logged and swallowed:
// a dropped notification must never fail the negotiation path that raised it.
func (n *LandlordNotifier) Notify(ctx context.Context, landlordID, leaseID string, category model.NotificationCategory, message string) {
	err := n.notifications.CreateNotification(ctx, &model.LandlordNotification{
		LandlordID: landlordID,
		LeaseID:    leaseID,
		Category:   category,
		Message:    message,
	})
	if err != nil {
		n.log.WithLease(leaseID).Error("failed to persist landlord notification",
			zap.String("category", string(category)), zap.Error(err))
		return
	}

	if n.stream != nil {
		if _, err := n.stream.PublishEvent(ctx, &nats.EngineEvent{
			Type:      string(category),
			LeaseID:   leaseID,
			Detail:    message,
			Timestamp: time.Now().UTC(),
		}); err != nil {
			n.log.WithLease(leaseID).Warn("failed to publish notification event", zap.Error(err))
		}
	}
}

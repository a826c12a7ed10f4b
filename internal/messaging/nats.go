package messaging

import (
	"context"
	"fmt"
	"time"

	"go.uber.org/zap"

	"github.com/renewal-ai/renewal-engine/internal/model"
	"github.com/renewal-ai/renewal-engine/internal/nats"
	"github.com/renewal-ai/renewal-engine/pkg/logger"
)

// NATSMessenger publishes outbound messages to the renewals stream, where the
// WhatsApp and email channel adapters consume them. In-app messages have no
// external adapter; publishing them makes them visible to the tenant portal.
type NATSMessenger struct {
	stream *nats.StreamManager
	log    *logger.Logger
}

// NewNATSMessenger creates a messenger backed by JetStream.
func NewNATSMessenger(stream *nats.StreamManager, log *logger.Logger) *NATSMessenger {
	return &NATSMessenger{stream: stream, log: log}
}

// Send publishes the message. A missing destination on an external channel is
// a delivery failure; in-app needs none.
func (m *NATSMessenger) Send(ctx context.Context, msg Message) error {
	if msg.Destination == "" && msg.Channel != model.ChannelInApp {
		return fmt.Errorf("%s: %w", msg.Channel, ErrNoDestination)
	}

	seq, err := m.stream.PublishMessage(ctx, &nats.OutboundMessage{
		LeaseID:     msg.LeaseID,
		Channel:     string(msg.Channel),
		Destination: msg.Destination,
		Subject:     msg.Subject,
		Body:        msg.Body,
		SentAt:      time.Now().UTC(),
	})
	if err != nil {
		return fmt.Errorf("publish outbound message: %w", err)
	}

	m.log.WithLease(msg.LeaseID).Debug("outbound message published",
		zap.String("channel", string(msg.Channel)),
		zap.Uint64("sequence", seq))
	return nil
}

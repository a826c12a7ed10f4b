// Package messaging delivers occupant-bound text over the tenant's preferred
// channel. Delivery is fire-and-confirm: Send returns only after the message
// has been handed off, so callers can stamp sent_at truthfully.
package messaging

import (
	"context"
	"errors"

	"github.com/renewal-ai/renewal-engine/internal/model"
)

// ErrNoDestination is returned when a tenant has no address for the channel.
var ErrNoDestination = errors.New("tenant has no destination for channel")

// Message is one occupant-bound delivery.
type Message struct {
	LeaseID     string
	Channel     model.Channel
	Destination string
	Subject     string
	Body        string
}

// Messenger hands a message to a channel adapter.
type Messenger interface {
	Send(ctx context.Context, msg Message) error
}

// SelectChannel picks the delivery channel and destination for a tenant:
// WhatsApp when a number is known, email as the secondary, in-app otherwise.
func SelectChannel(tenant *model.Tenant) (model.Channel, string) {
	if tenant == nil {
		return model.ChannelInApp, ""
	}
	if tenant.WhatsAppNumber != "" {
		return model.ChannelWhatsApp, tenant.WhatsAppNumber
	}
	if tenant.Email != "" {
		return model.ChannelEmail, tenant.Email
	}
	return model.ChannelInApp, ""
}

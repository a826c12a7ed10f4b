package nats

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/nats-io/nats.go/jetstream"
)

const (
	// StreamName is the name of the renewals stream.
	StreamName = "RENEWALS"

	// SubjectPrefix is the prefix for all renewal subjects.
	SubjectPrefix = "renewal"
)

// OutboundMessage is one occupant-bound message handed to a channel adapter.
type OutboundMessage struct {
	LeaseID     string    `json:"lease_id"`
	Channel     string    `json:"channel"`
	Destination string    `json:"destination"`
	Subject     string    `json:"subject,omitempty"`
	Body        string    `json:"body"`
	SentAt      time.Time `json:"sent_at"`
}

// EngineEvent is a domain event emitted by the renewal engine.
type EngineEvent struct {
	Type      string    `json:"type"`
	LeaseID   string    `json:"lease_id"`
	OfferID   string    `json:"offer_id,omitempty"`
	Detail    string    `json:"detail,omitempty"`
	Timestamp time.Time `json:"timestamp"`
}

// StreamManager handles JetStream stream operations.
type StreamManager struct {
	client *Client
}

// NewStreamManager creates a new stream manager.
func NewStreamManager(client *Client) *StreamManager {
	return &StreamManager{client: client}
}

// EnsureStream ensures the renewals stream exists with proper configuration.
func (m *StreamManager) EnsureStream(ctx context.Context) error {
	js := m.client.JetStream()

	// Check if stream exists
	_, err := js.Stream(ctx, StreamName)
	if err == nil {
		return nil // Stream already exists
	}

	// Create stream
	_, err = js.CreateStream(ctx, jetstream.StreamConfig{
		Name:        StreamName,
		Subjects:    []string{fmt.Sprintf("%s.>", SubjectPrefix)},
		Retention:   jetstream.LimitsPolicy,
		MaxAge:      365 * 24 * time.Hour, // 1 year
		MaxBytes:    10 * 1024 * 1024 * 1024, // 10GB
		Storage:     jetstream.FileStorage,
		Replicas:    1,
		Compression: jetstream.S2Compression,
		DenyDelete:  true,
		DenyPurge:   true,
		Description: "Renewal outbound messages and engine events",
	})
	if err != nil {
		return fmt.Errorf("failed to create stream: %w", err)
	}

	return nil
}

// MessageSubject returns the subject for an outbound occupant message.
func MessageSubject(leaseID, channel string) string {
	return fmt.Sprintf("%s.%s.msg.%s", SubjectPrefix, leaseID, channel)
}

// EventSubject returns the subject for an engine event.
func EventSubject(leaseID, eventType string) string {
	return fmt.Sprintf("%s.%s.event.%s", SubjectPrefix, leaseID, eventType)
}

// LeaseFilter returns the filter subject for everything on one lease.
func LeaseFilter(leaseID string) string {
	return fmt.Sprintf("%s.%s.>", SubjectPrefix, leaseID)
}

// PublishMessage publishes an outbound message to JetStream.
func (m *StreamManager) PublishMessage(ctx context.Context, msg *OutboundMessage) (uint64, error) {
	subject := MessageSubject(msg.LeaseID, msg.Channel)

	data, err := json.Marshal(msg)
	if err != nil {
		return 0, fmt.Errorf("failed to marshal message: %w", err)
	}

	ack, err := m.client.JetStream().Publish(ctx, subject, data)
	if err != nil {
		return 0, fmt.Errorf("failed to publish message: %w", err)
	}

	return ack.Sequence, nil
}

// PublishEvent publishes an engine event to JetStream.
func (m *StreamManager) PublishEvent(ctx context.Context, event *EngineEvent) (uint64, error) {
	subject := EventSubject(event.LeaseID, event.Type)

	data, err := json.Marshal(event)
	if err != nil {
		return 0, fmt.Errorf("failed to marshal event: %w", err)
	}

	ack, err := m.client.JetStream().Publish(ctx, subject, data)
	if err != nil {
		return 0, fmt.Errorf("failed to publish event: %w", err)
	}

	return ack.Sequence, nil
}

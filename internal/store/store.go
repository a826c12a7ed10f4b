// Package store provides the persistence layer of the renewal engine. The
// engine depends on the narrow per-concern interfaces below; Store is the
// GORM-backed implementation of all of them.
package store

import (
	"context"
	"errors"
	"time"

	"github.com/shopspring/decimal"

	"github.com/renewal-ai/renewal-engine/internal/model"
)

var (
	// ErrNotFound is returned when a lease, offer or score does not exist.
	ErrNotFound = errors.New("record not found")

	// ErrOpenOfferExists is returned when a caller tries to create a second
	// open offer for the same lease.
	ErrOpenOfferExists = errors.New("an open offer already exists for this lease")

	// ErrInvalidTransition is returned when an offer status update would
	// violate the state machine.
	ErrInvalidTransition = errors.New("invalid offer status transition")
)

// LeaseStore reads lease data owned by the broader property system.
type LeaseStore interface {
	Get(ctx context.Context, id string) (*model.Lease, error)
	Payments(ctx context.Context, leaseID string) ([]model.Payment, error)
	MaintenanceTickets(ctx context.Context, leaseID string) ([]model.MaintenanceTicket, error)
	OpenMaintenanceCount(ctx context.Context, leaseID string) (int64, error)
	ActiveExpiringBetween(ctx context.Context, from, to time.Time) ([]model.Lease, error)
	SetRenewalStatus(ctx context.Context, leaseID string, status model.RenewalStatus) error
}

// ScoreStore owns renewal scores and their simulated scenarios.
type ScoreStore interface {
	CreateScore(ctx context.Context, score *model.RenewalScore) error
	LatestScore(ctx context.Context, leaseID string) (*model.RenewalScore, error)
	SetRecommendedIncrease(ctx context.Context, scoreID string, pct float64) error
	ReplaceScenarios(ctx context.Context, leaseID string, scenarios []model.RenewalScenario) error
	Scenarios(ctx context.Context, leaseID string) ([]model.RenewalScenario, error)
}

// OfferStore owns renewal offers.
type OfferStore interface {
	CreateOffer(ctx context.Context, offer *model.RenewalOffer) error
	GetOffer(ctx context.Context, id string) (*model.RenewalOffer, error)
	OpenOffer(ctx context.Context, leaseID string) (*model.RenewalOffer, error)
	HasAnyOffer(ctx context.Context, leaseID string) (bool, error)
	MarkSent(ctx context.Context, offerID string, at time.Time) error
	RecordFollowUp(ctx context.Context, offerID string, at time.Time) error
	UpdateNegotiation(ctx context.Context, offerID string, status model.OfferStatus, respondedAt time.Time, proposedRent *decimal.Decimal) error
	SetStatus(ctx context.Context, offerID string, status model.OfferStatus) error
	SetProposedRent(ctx context.Context, offerID string, rent decimal.Decimal) error
	FollowUpCandidates(ctx context.Context, cutoff time.Time) ([]model.RenewalOffer, error)
	AutoListCandidates(ctx context.Context, cutoff time.Time) ([]model.RenewalOffer, error)
}

// NegotiationLogStore owns the append-only negotiation transcript.
type NegotiationLogStore interface {
	AppendLog(ctx context.Context, entry *model.NegotiationLogEntry) error
	LogsForLease(ctx context.Context, leaseID string) ([]model.NegotiationLogEntry, error)
	LatestLog(ctx context.Context, offerID string) (*model.NegotiationLogEntry, error)
	StampLandlordDecision(ctx context.Context, entryID string, decision string, at time.Time) error
}

// FeedbackStore owns conclusion feedback rows.
type FeedbackStore interface {
	CreateFeedback(ctx context.Context, fb *model.OutcomeFeedback) error
}

// NotificationStore owns queued landlord notifications.
type NotificationStore interface {
	CreateNotification(ctx context.Context, n *model.LandlordNotification) error
}

// MessageLogStore owns the occupant conversation log.
type MessageLogStore interface {
	AppendMessage(ctx context.Context, m *model.MessageLog) error
}

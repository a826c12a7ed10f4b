package model

import (
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"gorm.io/gorm"
)

// OfferStatus is the lifecycle status of a renewal offer.
type OfferStatus string

const (
	OfferPending   OfferStatus = "pending"
	OfferCountered OfferStatus = "countered"
	OfferAccepted  OfferStatus = "accepted"
	OfferRejected  OfferStatus = "rejected"
	OfferExpired   OfferStatus = "expired"
)

// IsOpen reports whether the offer is still negotiable.
func (s OfferStatus) IsOpen() bool {
	return s == OfferPending || s == OfferCountered
}

// CanTransitionTo reports whether the state machine allows moving to next.
// pending → countered|accepted|rejected|expired; countered is re-entrant;
// accepted, rejected and expired are terminal.
func (s OfferStatus) CanTransitionTo(next OfferStatus) bool {
	if s == next {
		return true
	}
	switch s {
	case OfferPending:
		return next == OfferCountered || next == OfferAccepted || next == OfferRejected || next == OfferExpired
	case OfferCountered:
		return next == OfferAccepted || next == OfferRejected
	default:
		return false
	}
}

// Channel is the messaging channel an offer was dispatched on.
type Channel string

const (
	ChannelWhatsApp Channel = "whatsapp"
	ChannelEmail    Channel = "email"
	ChannelInApp    Channel = "in_app"
)

// LandlordTerms are the non-negotiable constraints embedded into an offer at
// creation time. The negotiation engine treats them as read-only.
type LandlordTerms struct {
	// FloorRent is the minimum rent the engine may ever agree to.
	FloorRent decimal.Decimal `json:"floor_rent"`
	// PreferredDurationMonths is the landlord's preferred renewal term.
	PreferredDurationMonths int `json:"preferred_duration_months"`
	// Concessions the landlord is willing to offer, free text.
	Concessions string `json:"concessions,omitempty"`
	// AutoNegotiate allows the engine to reply without per-message approval.
	AutoNegotiate bool `json:"auto_negotiate"`
}

// Validate checks the terms a caller supplied.
func (t LandlordTerms) Validate() error {
	if t.FloorRent.LessThanOrEqual(decimal.Zero) {
		return errors.New("floor rent must be positive")
	}
	if t.PreferredDurationMonths < 6 || t.PreferredDurationMonths > 36 {
		return fmt.Errorf("preferred duration must be between 6 and 36 months, got %d", t.PreferredDurationMonths)
	}
	return nil
}

// DefaultTerms derives terms for a lease when the landlord supplied none:
// a floor 5% under the proposed rent, a 12-month term, full autonomy.
func DefaultTerms(proposedRent decimal.Decimal) LandlordTerms {
	return LandlordTerms{
		FloorRent:               proposedRent.Mul(decimal.NewFromFloat(0.95)).Round(2),
		PreferredDurationMonths: 12,
		AutoNegotiate:           true,
	}
}

// OfferOption is one of the proposed renewal terms inside drafted content.
type OfferOption struct {
	Label          string          `json:"label"`
	MonthlyRent    decimal.Decimal `json:"monthly_rent"`
	DurationMonths int             `json:"duration_months"`
	IncreasePct    float64         `json:"increase_pct"`
	Highlights     []string        `json:"highlights,omitempty"`
}

// OfferContent is the drafted proposal stored on an offer. It is always
// displayable: when the drafting collaborator fails, a deterministic template
// fills the same fields and Fallback is set.
type OfferContent struct {
	Subject             string        `json:"subject"`
	Greeting            string        `json:"greeting"`
	Body                string        `json:"body"`
	MarketJustification string        `json:"market_justification"`
	AppreciationNote    string        `json:"appreciation_note"`
	Options             []OfferOption `json:"options"`
	CallToAction        string        `json:"call_to_action"`
	Closing             string        `json:"closing"`
	Tone                string        `json:"tone"`
	Fallback            bool          `json:"fallback,omitempty"`
}

// RenewalOffer is the proposal the negotiation state machine operates on.
// At most one open (pending/countered) offer exists per lease.
type RenewalOffer struct {
	ID             string          `gorm:"primaryKey" json:"id"`
	LeaseID        string          `gorm:"index;not null" json:"lease_id"`
	ProposedRent   decimal.Decimal `gorm:"type:decimal(10,2)" json:"proposed_rent"`
	DurationMonths int             `json:"lease_duration_months"`
	Status         OfferStatus     `gorm:"index;default:pending" json:"status"`
	Channel        Channel         `json:"channel"`
	Content        OfferContent    `gorm:"serializer:json" json:"content"`
	Terms          LandlordTerms   `gorm:"serializer:json" json:"terms"`

	// RequiresApproval marks low-confidence offers held for manual dispatch.
	RequiresApproval bool `json:"requires_approval"`

	SentAt         *time.Time `gorm:"index" json:"sent_at,omitempty"`
	RespondedAt    *time.Time `json:"responded_at,omitempty"`
	FollowUpSentAt *time.Time `json:"follow_up_sent_at,omitempty"`
	FollowUpCount  int        `json:"follow_up_count"`

	CreatedAt time.Time `json:"created_at"`
	UpdatedAt time.Time `json:"updated_at"`

	Lease *Lease `gorm:"foreignKey:LeaseID" json:"lease,omitempty"`
}

// Validate enforces the floor invariant on the stored proposal.
func (o *RenewalOffer) Validate() error {
	if o.ProposedRent.LessThanOrEqual(decimal.Zero) {
		return errors.New("proposed rent must be positive")
	}
	if !o.Terms.FloorRent.IsZero() && o.ProposedRent.LessThan(o.Terms.FloorRent) {
		return fmt.Errorf("proposed rent %s below floor %s", o.ProposedRent, o.Terms.FloorRent)
	}
	return nil
}

// BeforeCreate assigns a UUID and validates the floor invariant.
func (o *RenewalOffer) BeforeCreate(tx *gorm.DB) error {
	if o.ID == "" {
		o.ID = uuid.Must(uuid.NewV7()).String()
	}
	return o.Validate()
}

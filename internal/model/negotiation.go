package model

import (
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"gorm.io/gorm"
)

// Classification is the engine's reading of an occupant reply.
type Classification string

const (
	ClassAccepting   Classification = "accepting"
	ClassNegotiating Classification = "negotiating"
	ClassResistant   Classification = "resistant"
	ClassUnclear     Classification = "unclear"
)

// Valid reports whether the classification is one of the known values.
func (c Classification) Valid() bool {
	switch c {
	case ClassAccepting, ClassNegotiating, ClassResistant, ClassUnclear:
		return true
	}
	return false
}

// ReplyAnalysis is the structured result of analyzing one occupant message,
// whether produced by the drafting collaborator or the keyword fallback.
type ReplyAnalysis struct {
	SentimentScore        float64          `json:"sentiment_score"`
	SentimentLabel        string           `json:"sentiment_label"`
	Classification        Classification   `json:"classification"`
	Reasoning             string           `json:"classification_reasoning,omitempty"`
	NewRenewalProbability float64          `json:"new_renewal_probability"`
	SuggestedCounterRent  *decimal.Decimal `json:"suggested_counter_rent"`
	ResponseToTenant      string           `json:"response_to_tenant"`
	ConcludeDeal          bool             `json:"conclude_deal"`
	TriggerRelisting      bool             `json:"trigger_relisting"`
	EscalateToLandlord    bool             `json:"escalate_to_landlord"`
	EscalationReason      string           `json:"escalation_reason,omitempty"`
	Urgency               string           `json:"urgency,omitempty"`
	Fallback              bool             `json:"fallback,omitempty"`
}

// Validate checks the analysis payload for sane ranges.
func (a *ReplyAnalysis) Validate() error {
	if !a.Classification.Valid() {
		return fmt.Errorf("unknown classification %q", a.Classification)
	}
	if a.SentimentScore < -1 || a.SentimentScore > 1 {
		return fmt.Errorf("sentiment score out of range: %.2f", a.SentimentScore)
	}
	if a.NewRenewalProbability < 0 || a.NewRenewalProbability > 1 {
		return fmt.Errorf("renewal probability out of range: %.2f", a.NewRenewalProbability)
	}
	if a.ResponseToTenant == "" {
		return fmt.Errorf("analysis is missing a reply to the occupant")
	}
	return nil
}

// NegotiationLogEntry is the append-only record of one analyzed occupant
// message. Entries are never mutated except for the landlord-decision stamp.
type NegotiationLogEntry struct {
	ID                    string           `gorm:"primaryKey" json:"id"`
	OfferID               string           `gorm:"index;not null" json:"renewal_offer_id"`
	LeaseID               string           `gorm:"index;not null" json:"lease_id"`
	TenantMessage         string           `json:"tenant_message"`
	SentimentScore        float64          `json:"sentiment_score"`
	SentimentLabel        string           `json:"sentiment_label"`
	Classification        Classification   `json:"classification"`
	SuggestedResponse     string           `json:"ai_suggested_response"`
	SuggestedCounterRent  *decimal.Decimal `gorm:"type:decimal(10,2)" json:"ai_suggested_counter_rent"`
	NewRenewalProbability float64          `json:"ai_new_renewal_probability"`
	Analysis              ReplyAnalysis    `gorm:"serializer:json" json:"raw_analysis"`
	LandlordDecision      *string          `json:"landlord_decision,omitempty"`
	LandlordDecisionAt    *time.Time       `json:"landlord_decision_at,omitempty"`
	CreatedAt             time.Time        `gorm:"index" json:"created_at"`
}

// BeforeCreate assigns a UUID.
func (e *NegotiationLogEntry) BeforeCreate(tx *gorm.DB) error {
	if e.ID == "" {
		e.ID = uuid.Must(uuid.NewV7()).String()
	}
	return nil
}

// Outcome is how a renewal case concluded.
type Outcome string

const (
	OutcomeRenewed Outcome = "renewed"
	OutcomeChurned Outcome = "churned"
)

// OutcomeFeedback is written once when a case concludes; it is the training
// signal for future weight recalibration.
type OutcomeFeedback struct {
	ID                  string    `gorm:"primaryKey" json:"id"`
	LeaseID             string    `gorm:"index;not null" json:"lease_id"`
	OfferID             string    `gorm:"index;not null" json:"renewal_offer_id"`
	IncreasePctOffered  float64   `json:"increase_pct_offered"`
	IncreasePctAccepted *float64  `json:"increase_pct_accepted,omitempty"`
	Outcome             Outcome   `json:"outcome"`
	CreatedAt           time.Time `json:"created_at"`
}

// BeforeCreate assigns a UUID.
func (f *OutcomeFeedback) BeforeCreate(tx *gorm.DB) error {
	if f.ID == "" {
		f.ID = uuid.Must(uuid.NewV7()).String()
	}
	return nil
}

// NotificationCategory classifies landlord notifications.
type NotificationCategory string

const (
	NotifyRenewalInitiated NotificationCategory = "renewal_initiated"
	NotifyConcludedSuccess NotificationCategory = "renewal_concluded_success"
	NotifyConcludedFailed  NotificationCategory = "renewal_concluded_failed"
	NotifyEscalation       NotificationCategory = "renewal_escalation"
)

// LandlordNotification is a queued message for the landlord. The engine only
// writes these on initiation, conclusion or escalation.
type LandlordNotification struct {
	ID         string               `gorm:"primaryKey" json:"id"`
	LandlordID string               `gorm:"index;not null" json:"landlord_id"`
	LeaseID    string               `gorm:"index" json:"lease_id"`
	Category   NotificationCategory `json:"category"`
	Message    string               `json:"message"`
	CreatedAt  time.Time            `json:"created_at"`
}

// BeforeCreate assigns a UUID.
func (n *LandlordNotification) BeforeCreate(tx *gorm.DB) error {
	if n.ID == "" {
		n.ID = uuid.Must(uuid.NewV7()).String()
	}
	return nil
}

// MessageDirection distinguishes inbound occupant messages from autonomous sends.
type MessageDirection string

const (
	DirectionInbound  MessageDirection = "inbound"
	DirectionOutbound MessageDirection = "outbound"
)

// MessageLog records every message exchanged with an occupant so the full
// conversation can be reconstructed alongside the negotiation log.
type MessageLog struct {
	ID        string           `gorm:"primaryKey" json:"id"`
	LeaseID   string           `gorm:"index;not null" json:"lease_id"`
	Direction MessageDirection `json:"direction"`
	Body      string           `json:"body"`
	Intent    string           `json:"intent,omitempty"`
	CreatedAt time.Time        `json:"created_at"`
}

// BeforeCreate assigns a UUID.
func (m *MessageLog) BeforeCreate(tx *gorm.DB) error {
	if m.ID == "" {
		m.ID = uuid.Must(uuid.NewV7()).String()
	}
	return nil
}
